package booking

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"travelbooking/internal/app/commands"
	"travelbooking/internal/app/dto"
	handlersupport "travelbooking/internal/app/handlers/support"
	"travelbooking/internal/app/outbox"
	"travelbooking/internal/app/policies"
	"travelbooking/internal/app/uow"
	domainbooking "travelbooking/internal/domain/booking"
	"travelbooking/internal/domain/shared/apperr"
	domainuser "travelbooking/internal/domain/user"
)

const (
	confirmBookingKey  = "booking.confirm"
	completeBookingKey = "booking.complete"
	markNoShowKey      = "booking.no_show"
)

var (
	ErrBookingIDRequired = apperr.New(apperr.KindValidation, "booking: booking id is required")
	ErrBookingNotOwned   = apperr.New(apperr.KindUnauthorized, "booking: not owned by host")
)

var hostRoles = []domainuser.Role{domainuser.RoleHost, domainuser.RoleAdmin}

type ConfirmBookingCommand struct {
	BookingID string `validate:"required"`
}

func (c ConfirmBookingCommand) Key() string                     { return confirmBookingKey }
func (c ConfirmBookingCommand) AllowedRoles() []domainuser.Role { return hostRoles }

type CompleteBookingCommand struct {
	BookingID string `validate:"required"`
}

func (c CompleteBookingCommand) Key() string                     { return completeBookingKey }
func (c CompleteBookingCommand) AllowedRoles() []domainuser.Role { return hostRoles }

type MarkNoShowCommand struct {
	BookingID string `validate:"required"`
}

func (c MarkNoShowCommand) Key() string                     { return markNoShowKey }
func (c MarkNoShowCommand) AllowedRoles() []domainuser.Role { return hostRoles }

// TransitionHandler applies one host-driven status transition.
type TransitionHandler struct {
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
	Now     func() time.Time
}

func (h *TransitionHandler) Confirm() commands.Handler[ConfirmBookingCommand, *dto.BookingDTO] {
	return commands.HandlerFunc[ConfirmBookingCommand, *dto.BookingDTO](func(ctx context.Context, cmd ConfirmBookingCommand) (*dto.BookingDTO, error) {
		return h.apply(ctx, cmd.BookingID, "booking confirmed", (*domainbooking.Booking).Confirm)
	})
}

func (h *TransitionHandler) Complete() commands.Handler[CompleteBookingCommand, *dto.BookingDTO] {
	return commands.HandlerFunc[CompleteBookingCommand, *dto.BookingDTO](func(ctx context.Context, cmd CompleteBookingCommand) (*dto.BookingDTO, error) {
		return h.apply(ctx, cmd.BookingID, "booking completed", (*domainbooking.Booking).Complete)
	})
}

func (h *TransitionHandler) NoShow() commands.Handler[MarkNoShowCommand, *dto.BookingDTO] {
	return commands.HandlerFunc[MarkNoShowCommand, *dto.BookingDTO](func(ctx context.Context, cmd MarkNoShowCommand) (*dto.BookingDTO, error) {
		return h.apply(ctx, cmd.BookingID, "booking marked no-show", (*domainbooking.Booking).MarkNoShow)
	})
}

func (h *TransitionHandler) apply(ctx context.Context, bookingID, msg string, transition func(*domainbooking.Booking, time.Time) error) (*dto.BookingDTO, error) {
	unit, err := handlersupport.CurrentUnit(ctx)
	if err != nil {
		return nil, err
	}
	b, err := loadBooking(ctx, unit, bookingID)
	if err != nil {
		return nil, err
	}
	if err := ensureHostOrAdmin(ctx, b); err != nil {
		return nil, err
	}
	if err := transition(b, handlersupport.Clock(h.Now)); err != nil {
		return nil, err
	}
	if err := persist(ctx, unit, h.Encoder, b); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.InfoContext(ctx, msg, "booking_id", b.ID, "unit_id", b.UnitID, "status", b.Status)
	}
	out := dto.MapBooking(b)
	return &out, nil
}

func loadBooking(ctx context.Context, unit uow.UnitOfWork, id string) (*domainbooking.Booking, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrBookingIDRequired
	}
	return unit.Bookings().ByID(ctx, domainbooking.BookingID(id))
}

// persist saves the aggregate with its version check and stages its events in the same unit.
func persist(ctx context.Context, unit uow.UnitOfWork, encoder outbox.EventEncoder, b *domainbooking.Booking) error {
	if err := unit.Bookings().Save(ctx, b); err != nil {
		return err
	}
	return outbox.Drain(ctx, unit.Outbox(), encoder, b)
}

// ensureHostOrAdmin lets hosts act only on bookings at their own units.
func ensureHostOrAdmin(ctx context.Context, b *domainbooking.Booking) error {
	actor, ok := policies.ActorFromContext(ctx)
	if !ok || actor.IsAdmin() {
		return nil
	}
	if b.HostID != "" && string(actor.ID) == b.HostID {
		return nil
	}
	return ErrBookingNotOwned
}
