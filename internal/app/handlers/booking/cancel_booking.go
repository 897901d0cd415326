package booking

import (
	"context"
	"log/slog"
	"time"

	"travelbooking/internal/app/commands"
	"travelbooking/internal/app/dto"
	handlersupport "travelbooking/internal/app/handlers/support"
	"travelbooking/internal/app/outbox"
	"travelbooking/internal/app/policies"
	"travelbooking/internal/domain/shared/apperr"
	domainuser "travelbooking/internal/domain/user"
)

const cancelBookingKey = "booking.cancel"

var ErrActorRequired = apperr.New(apperr.KindUnauthorized, "booking: cancellation requires an actor")

type CancelBookingCommand struct {
	Actor     domainuser.Actor
	BookingID string `validate:"required"`
	Reason    string `validate:"max=500"`
}

func (c CancelBookingCommand) Key() string { return cancelBookingKey }

type CancelBookingHandler struct {
	Authorizer policies.Authorizer
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
	Now        func() time.Time
}

func (h *CancelBookingHandler) Handle(ctx context.Context, cmd CancelBookingCommand) (*dto.CancelBookingResult, error) {
	unit, err := handlersupport.CurrentUnit(ctx)
	if err != nil {
		return nil, err
	}
	b, err := loadBooking(ctx, unit, cmd.BookingID)
	if err != nil {
		return nil, err
	}
	actor, ok := actorFor(ctx, cmd.Actor)
	if !ok {
		return nil, ErrActorRequired.WithDetail("booking_id", cmd.BookingID)
	}
	if err := h.authorizer().CanCancel(ctx, actor, b); err != nil {
		return nil, err
	}
	refund, err := b.Cancel(cmd.Reason, handlersupport.Clock(h.Now))
	if err != nil {
		return nil, err
	}
	if err := persist(ctx, unit, h.Encoder, b); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "booking cancelled",
			"booking_id", b.ID, "actor_id", actor.ID, "refund", refund.String(), "payment_status", b.Payment.Status)
	}
	return &dto.CancelBookingResult{Booking: dto.MapBooking(b), Refund: dto.MapMoney(refund)}, nil
}

// actorFor prefers the actor named on the command over the one in ctx.
func actorFor(ctx context.Context, named domainuser.Actor) (domainuser.Actor, bool) {
	if named.ID != "" {
		return named, true
	}
	return policies.ActorFromContext(ctx)
}

func (h *CancelBookingHandler) authorizer() policies.Authorizer {
	if h.Authorizer != nil {
		return h.Authorizer
	}
	return policies.GuestOrAdmin{}
}

var _ commands.Handler[CancelBookingCommand, *dto.CancelBookingResult] = (*CancelBookingHandler)(nil)
