package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"travelbooking/internal/domain/cancellation"
	"travelbooking/internal/domain/catalog"
	"travelbooking/internal/domain/pricing"
	"travelbooking/internal/domain/shared/apperr"
	"travelbooking/internal/domain/shared/daterange"
	"travelbooking/internal/domain/shared/events"
	"travelbooking/internal/domain/shared/money"
	"travelbooking/internal/domain/user"
)

var (
	ErrInvalidState      = apperr.New(apperr.KindInvalidState, "booking: invalid state transition")
	ErrBookingNotFound   = apperr.New(apperr.KindNotFound, "booking: not found")
	ErrConcurrentUpdate  = apperr.New(apperr.KindConflict, "booking: concurrent update detected")
	ErrCapacityExceeded  = apperr.New(apperr.KindCapacityExceeded, "booking: guests exceed unit capacity")
	ErrInvalidGuests     = apperr.New(apperr.KindValidation, "booking: invalid guest counts")
	ErrStayTooShort      = apperr.New(apperr.KindValidation, "booking: stay must be at least one night")
	ErrCheckInInPast     = apperr.New(apperr.KindValidation, "booking: check-in date is in the past")
	ErrGuestRequired     = apperr.New(apperr.KindValidation, "booking: guest id required")
	ErrUnitRequired      = apperr.New(apperr.KindValidation, "booking: unit id required")
	ErrTextTooLong       = apperr.New(apperr.KindValidation, "booking: free text exceeds limit")
	ErrPriceInconsistent = apperr.New(apperr.KindValidation, "booking: price breakdown inconsistent")
)

const maxFreeText = 2000

type BookingID string

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
	StatusNoShow    Status = "NO_SHOW"
)

// Blocking reports whether a booking in this status still holds its dates.
func (s Status) Blocking() bool {
	return s == StatusPending || s == StatusConfirmed
}

func (s Status) Known() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted, StatusNoShow:
		return true
	}
	return false
}

type GuestCounts struct {
	Total    int `json:"total"`
	Adults   int `json:"adults"`
	Children int `json:"children"`
	Infants  int `json:"infants"`
}

// Validate requires at least one guest. When a breakdown is given it must add up to Total.
func (g GuestCounts) Validate() error {
	if g.Total < 1 || g.Adults < 0 || g.Children < 0 || g.Infants < 0 {
		return ErrInvalidGuests
	}
	if parts := g.Adults + g.Children + g.Infants; parts > 0 && parts != g.Total {
		return ErrInvalidGuests.WithDetail("breakdown", parts)
	}
	return nil
}

type Booking struct {
	ID                 BookingID
	GuestID            user.ID
	UnitID             catalog.UnitID
	HostID             string
	Stay               daterange.DateRange
	Guests             GuestCounts
	Price              pricing.PriceBreakdown
	Status             Status
	CancellationReason string
	SpecialRequests    string
	GuestMessage       string
	Policy             cancellation.Policy
	Payment            Payment
	CreatedAt          time.Time
	UpdatedAt          time.Time
	ConfirmedAt        time.Time
	CancelledAt        time.Time
	CompletedAt        time.Time
	Version            int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	// Save persists the aggregate if the stored version still equals b.Version, then bumps it.
	Save(ctx context.Context, b *Booking) error
	ListNonTerminalByUnit(ctx context.Context, unitID catalog.UnitID) ([]*Booking, error)
	ListByGuest(ctx context.Context, guestID user.ID) ([]*Booking, error)
}

type CreateParams struct {
	ID              BookingID
	PaymentID       PaymentID
	GuestID         user.ID
	UnitID          catalog.UnitID
	HostID          string
	Stay            daterange.DateRange
	Guests          GuestCounts
	Price           pricing.PriceBreakdown
	Policy          cancellation.Policy
	SpecialRequests string
	GuestMessage    string
	CreatedAt       time.Time
}

// NewBooking builds a PENDING booking with its PENDING payment.
func NewBooking(params CreateParams) (*Booking, error) {
	if strings.TrimSpace(string(params.GuestID)) == "" {
		return nil, ErrGuestRequired
	}
	if strings.TrimSpace(string(params.UnitID)) == "" {
		return nil, ErrUnitRequired
	}
	if err := params.Stay.Validate(); err != nil {
		return nil, err
	}
	if params.Stay.Nights() < 1 {
		return nil, ErrStayTooShort
	}
	if err := params.Guests.Validate(); err != nil {
		return nil, err
	}
	if err := params.Price.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPriceInconsistent, err)
	}
	if params.Price.Nights != params.Stay.Nights() {
		return nil, ErrPriceInconsistent
	}
	if len(params.SpecialRequests) > maxFreeText || len(params.GuestMessage) > maxFreeText {
		return nil, ErrTextTooLong
	}
	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:              params.ID,
		GuestID:         params.GuestID,
		UnitID:          params.UnitID,
		HostID:          params.HostID,
		Stay:            params.Stay,
		Guests:          params.Guests,
		Price:           params.Price,
		Policy:          params.Policy,
		SpecialRequests: strings.TrimSpace(params.SpecialRequests),
		GuestMessage:    strings.TrimSpace(params.GuestMessage),
		Status:          StatusPending,
		Payment:         newPayment(params.PaymentID, params.ID, params.Price.Total, now),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	b.Record(BookingRequested{
		BookingID: b.ID,
		UnitID:    b.UnitID,
		HostID:    b.HostID,
		GuestID:   b.GuestID,
		Stay:      stayOf(b.Stay),
		Guests:    b.Guests.Total,
		Total:     b.Price.Total,
		At:        now,
	})
	return b, nil
}

// EnsureCapacity rejects parties larger than the unit allows.
func EnsureCapacity(guests GuestCounts, maxGuests int) error {
	if guests.Total > maxGuests {
		return ErrCapacityExceeded.WithDetail("max_guests", maxGuests)
	}
	return nil
}

// ValidateCheckIn rejects stays starting before today.
func ValidateCheckIn(stay daterange.DateRange, now time.Time) error {
	if stay.Start.Before(daterange.Date(now.UTC())) {
		return ErrCheckInInPast
	}
	return nil
}

func (b *Booking) Confirm(now time.Time) error {
	if b.Status != StatusPending {
		return ErrInvalidState
	}
	now = now.UTC()
	b.Status = StatusConfirmed
	b.ConfirmedAt = now
	b.UpdatedAt = now
	b.Record(BookingConfirmed{BookingID: b.ID, UnitID: b.UnitID, GuestID: b.GuestID, Stay: stayOf(b.Stay), Total: b.Price.Total, At: now})
	return nil
}

// Cancel moves a live booking to CANCELLED and settles the payment under the booking's policy.
// The returned amount is what the guest gets back; it is zero when nothing was paid.
func (b *Booking) Cancel(reason string, now time.Time) (money.Money, error) {
	if !b.Status.Blocking() {
		return money.Money{}, ErrInvalidState
	}
	now = now.UTC()
	refund, err := b.Policy.CalculateRefund(b.Price.Total, b.Stay.Start, now)
	if err != nil {
		return money.Money{}, err
	}
	owed := money.Zero(b.Price.Total.Currency)
	paymentStatus := b.Payment.Status
	if b.Payment.Status == PaymentCompleted && !refund.IsZero() {
		full, err := refund.Equal(b.Payment.Amount)
		if err != nil {
			return money.Money{}, err
		}
		paymentStatus = PaymentPartiallyRefunded
		if full {
			paymentStatus = PaymentRefunded
		}
		owed = refund
	}

	b.Status = StatusCancelled
	b.CancellationReason = strings.TrimSpace(reason)
	b.CancelledAt = now
	b.UpdatedAt = now
	if paymentStatus != b.Payment.Status {
		b.Payment.applyRefund(paymentStatus, owed, "cancellation", now)
		b.Record(PaymentRefundIssued{BookingID: b.ID, PaymentID: b.Payment.ID, Amount: owed, Partial: paymentStatus == PaymentPartiallyRefunded, Reason: "cancellation", At: now})
	}
	b.Record(BookingCancelled{BookingID: b.ID, UnitID: b.UnitID, GuestID: b.GuestID, Refund: owed, Reason: b.CancellationReason, At: now})
	return owed, nil
}

func (b *Booking) Complete(now time.Time) error {
	if b.Status != StatusConfirmed {
		return ErrInvalidState
	}
	now = now.UTC()
	b.Status = StatusCompleted
	b.CompletedAt = now
	b.UpdatedAt = now
	b.Record(BookingCompleted{BookingID: b.ID, GuestID: b.GuestID, At: now})
	return nil
}

func (b *Booking) MarkNoShow(now time.Time) error {
	if b.Status != StatusConfirmed {
		return ErrInvalidState
	}
	now = now.UTC()
	b.Status = StatusNoShow
	b.UpdatedAt = now
	b.Record(NoShowRecorded{BookingID: b.ID, GuestID: b.GuestID, At: now})
	return nil
}

// Clone returns a deep copy without pending events.
func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	clone := *b
	clone.EventRecorder = events.EventRecorder{}
	return &clone
}

func stayOf(dr daterange.DateRange) StayDates {
	return StayDates{CheckIn: dr.Start.Format(time.DateOnly), CheckOut: dr.End.Format(time.DateOnly)}
}
