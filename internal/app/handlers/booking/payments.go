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
	domainbooking "travelbooking/internal/domain/booking"
	"travelbooking/internal/domain/shared/money"
	domainuser "travelbooking/internal/domain/user"
)

const (
	startPaymentKey   = "payment.start"
	processPaymentKey = "payment.process"
	failPaymentKey    = "payment.fail"
	refundBookingKey  = "payment.refund"
)

var (
	paymentRoles = []domainuser.Role{domainuser.RoleGuest, domainuser.RoleAdmin}
	gatewayRoles = []domainuser.Role{domainuser.RoleAdmin}
	refundRoles  = []domainuser.Role{domainuser.RoleHost, domainuser.RoleAdmin}
)

type StartPaymentCommand struct {
	BookingID string `validate:"required"`
	Method    string `validate:"max=64"`
	Provider  string `validate:"max=64"`
}

func (c StartPaymentCommand) Key() string                     { return startPaymentKey }
func (c StartPaymentCommand) AllowedRoles() []domainuser.Role { return paymentRoles }

// ProcessPaymentCommand reports a captured payment. Replays with the same transaction id are no-ops.
type ProcessPaymentCommand struct {
	BookingID     string `validate:"required"`
	TransactionID string `validate:"required,max=128"`
	Method        string `validate:"max=64"`
	Provider      string `validate:"max=64"`
}

func (c ProcessPaymentCommand) Key() string                     { return processPaymentKey }
func (c ProcessPaymentCommand) AllowedRoles() []domainuser.Role { return gatewayRoles }

type FailPaymentCommand struct {
	BookingID string `validate:"required"`
	Reason    string `validate:"max=500"`
}

func (c FailPaymentCommand) Key() string                     { return failPaymentKey }
func (c FailPaymentCommand) AllowedRoles() []domainuser.Role { return gatewayRoles }

// RefundBookingCommand refunds a completed payment. An empty Amount refunds in full.
type RefundBookingCommand struct {
	BookingID string `validate:"required"`
	Reason    string `validate:"max=500"`
	Amount    string `validate:"omitempty,numeric"`
}

func (c RefundBookingCommand) Key() string                     { return refundBookingKey }
func (c RefundBookingCommand) AllowedRoles() []domainuser.Role { return refundRoles }

type PaymentHandler struct {
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
	Now     func() time.Time
}

func (h *PaymentHandler) Start() commands.Handler[StartPaymentCommand, *dto.BookingDTO] {
	return commands.HandlerFunc[StartPaymentCommand, *dto.BookingDTO](func(ctx context.Context, cmd StartPaymentCommand) (*dto.BookingDTO, error) {
		return h.mutate(ctx, cmd.BookingID, func(b *domainbooking.Booking, now time.Time) (bool, error) {
			if actor, ok := policies.ActorFromContext(ctx); ok && !actor.IsAdmin() && actor.ID != b.GuestID {
				return false, policies.ErrNotBookingGuest
			}
			return true, b.StartPayment(strings.TrimSpace(cmd.Method), strings.TrimSpace(cmd.Provider), now)
		})
	})
}

// Process completes the payment and confirms a still-pending booking in the same unit.
func (h *PaymentHandler) Process() commands.Handler[ProcessPaymentCommand, *dto.BookingDTO] {
	return commands.HandlerFunc[ProcessPaymentCommand, *dto.BookingDTO](func(ctx context.Context, cmd ProcessPaymentCommand) (*dto.BookingDTO, error) {
		return h.mutate(ctx, cmd.BookingID, func(b *domainbooking.Booking, now time.Time) (bool, error) {
			if b.Payment.SettledBy(cmd.TransactionID) {
				return false, nil
			}
			if err := b.CompletePayment(cmd.TransactionID, strings.TrimSpace(cmd.Method), strings.TrimSpace(cmd.Provider), now); err != nil {
				return false, err
			}
			if b.Status == domainbooking.StatusPending {
				if err := b.Confirm(now); err != nil {
					return false, err
				}
			}
			return true, nil
		})
	})
}

func (h *PaymentHandler) Fail() commands.Handler[FailPaymentCommand, *dto.BookingDTO] {
	return commands.HandlerFunc[FailPaymentCommand, *dto.BookingDTO](func(ctx context.Context, cmd FailPaymentCommand) (*dto.BookingDTO, error) {
		return h.mutate(ctx, cmd.BookingID, func(b *domainbooking.Booking, now time.Time) (bool, error) {
			return true, b.FailPayment(cmd.Reason, now)
		})
	})
}

func (h *PaymentHandler) Refund() commands.Handler[RefundBookingCommand, *dto.RefundResult] {
	return commands.HandlerFunc[RefundBookingCommand, *dto.RefundResult](func(ctx context.Context, cmd RefundBookingCommand) (*dto.RefundResult, error) {
		var refunded money.Money
		out, err := h.mutate(ctx, cmd.BookingID, func(b *domainbooking.Booking, now time.Time) (bool, error) {
			if err := ensureHostOrAdmin(ctx, b); err != nil {
				return false, err
			}
			var amount *money.Money
			if raw := strings.TrimSpace(cmd.Amount); raw != "" {
				parsed, err := money.Parse(raw, b.Payment.Amount.Currency)
				if err != nil {
					return false, err
				}
				amount = &parsed
			}
			r, err := b.Refund(amount, cmd.Reason, now)
			if err != nil {
				return false, err
			}
			refunded = r
			return true, nil
		})
		if err != nil {
			return nil, err
		}
		return &dto.RefundResult{Booking: *out, Refunded: dto.MapMoney(refunded)}, nil
	})
}

// mutate loads the booking, applies fn and persists when fn reports a change.
func (h *PaymentHandler) mutate(ctx context.Context, bookingID string, fn func(*domainbooking.Booking, time.Time) (bool, error)) (*dto.BookingDTO, error) {
	unit, err := handlersupport.CurrentUnit(ctx)
	if err != nil {
		return nil, err
	}
	b, err := loadBooking(ctx, unit, bookingID)
	if err != nil {
		return nil, err
	}
	changed, err := fn(b, handlersupport.Clock(h.Now))
	if err != nil {
		return nil, err
	}
	if changed {
		if err := persist(ctx, unit, h.Encoder, b); err != nil {
			return nil, err
		}
		if h.Logger != nil {
			h.Logger.InfoContext(ctx, "payment updated",
				"booking_id", b.ID, "payment_status", b.Payment.Status, "booking_status", b.Status)
		}
	}
	out := dto.MapBooking(b)
	return &out, nil
}
