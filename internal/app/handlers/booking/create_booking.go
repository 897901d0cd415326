package booking

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"travelbooking/internal/app/commands"
	"travelbooking/internal/app/dto"
	handlersupport "travelbooking/internal/app/handlers/support"
	"travelbooking/internal/app/middleware"
	"travelbooking/internal/app/outbox"
	"travelbooking/internal/app/policies"
	domainavailability "travelbooking/internal/domain/availability"
	domainbooking "travelbooking/internal/domain/booking"
	domaincatalog "travelbooking/internal/domain/catalog"
	"travelbooking/internal/domain/shared/apperr"
	"travelbooking/internal/domain/shared/daterange"
	domainuser "travelbooking/internal/domain/user"
)

const createBookingKey = "booking.create"

var ErrUnitNotBookable = apperr.New(apperr.KindUnavailable, "booking: unit is not open for reservations")

type CreateBookingCommand struct {
	GuestID         string    `validate:"required"`
	UnitID          string    `validate:"required"`
	CheckIn         time.Time `validate:"required"`
	CheckOut        time.Time `validate:"required"`
	Guests          int       `validate:"gte=1"`
	Adults          int       `validate:"gte=0"`
	Children        int       `validate:"gte=0"`
	Infants         int       `validate:"gte=0"`
	SpecialRequests string    `validate:"max=2000"`
	GuestMessage    string    `validate:"max=2000"`
	IdempotencyKeyV string
}

func (c CreateBookingCommand) Key() string { return createBookingKey }

// IdempotencyKey is scoped to the guest so different guests cannot collide.
func (c CreateBookingCommand) IdempotencyKey() string {
	if c.IdempotencyKeyV == "" {
		return ""
	}
	return c.GuestID + ":" + c.IdempotencyKeyV
}

func (c CreateBookingCommand) ResultPrototype() any { return &dto.BookingDTO{} }

type CreateBookingHandler struct {
	Pricing policies.PricingPort
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
	Now     func() time.Time
	NewID   func() string
}

func (h *CreateBookingHandler) Handle(ctx context.Context, cmd CreateBookingCommand) (*dto.BookingDTO, error) {
	unit, err := handlersupport.CurrentUnit(ctx)
	if err != nil {
		return nil, err
	}
	now := handlersupport.Clock(h.Now)

	guestID := domainuser.ID(strings.TrimSpace(cmd.GuestID))
	unitID := domaincatalog.UnitID(strings.TrimSpace(cmd.UnitID))
	if guestID == "" {
		return nil, domainbooking.ErrGuestRequired
	}
	if unitID == "" {
		return nil, domainbooking.ErrUnitRequired
	}
	stay, err := daterange.New(cmd.CheckIn, cmd.CheckOut)
	if err != nil {
		return nil, err
	}
	if stay.Nights() < 1 {
		return nil, domainbooking.ErrStayTooShort
	}
	if err := domainbooking.ValidateCheckIn(stay, now); err != nil {
		return nil, err
	}
	guests := domainbooking.GuestCounts{Total: cmd.Guests, Adults: cmd.Adults, Children: cmd.Children, Infants: cmd.Infants}
	if err := guests.Validate(); err != nil {
		return nil, err
	}

	exists, err := unit.Users().Exists(ctx, guestID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domainuser.ErrNotFound.WithDetail("guest_id", string(guestID))
	}
	target, err := unit.Units().ByID(ctx, unitID)
	if err != nil {
		return nil, err
	}
	if !target.Bookable() {
		return nil, ErrUnitNotBookable.WithDetail("approval_status", string(target.ApprovalStatus))
	}

	if err := unit.LockUnit(ctx, target.ID); err != nil {
		return nil, err
	}
	existing, err := unit.Bookings().ListNonTerminalByUnit(ctx, target.ID)
	if err != nil {
		return nil, err
	}
	if err := domainavailability.Check(stay, existing); err != nil {
		return nil, err
	}
	if err := domainbooking.EnsureCapacity(guests, target.MaxGuests); err != nil {
		return nil, err
	}

	price, err := h.Pricing.Quote(ctx, target, stay, guests.Total)
	if err != nil {
		return nil, err
	}
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:              domainbooking.BookingID(h.newID()),
		PaymentID:       domainbooking.PaymentID(h.newID()),
		GuestID:         guestID,
		UnitID:          target.ID,
		HostID:          target.HostID,
		Stay:            stay,
		Guests:          guests,
		Price:           price,
		Policy:          target.CancellationPolicy,
		SpecialRequests: cmd.SpecialRequests,
		GuestMessage:    cmd.GuestMessage,
		CreatedAt:       now,
	})
	if err != nil {
		return nil, err
	}
	if err := persist(ctx, unit, h.Encoder, b); err != nil {
		return nil, err
	}

	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "booking requested",
			"booking_id", b.ID, "unit_id", b.UnitID, "guest_id", b.GuestID,
			"stay", b.Stay.String(), "total", b.Price.Total.String())
	}
	out := dto.MapBooking(b)
	return &out, nil
}

func (h *CreateBookingHandler) newID() string {
	if h.NewID != nil {
		return h.NewID()
	}
	return uuid.NewString()
}

var _ commands.Handler[CreateBookingCommand, *dto.BookingDTO] = (*CreateBookingHandler)(nil)
var _ middleware.IdempotentCommand = CreateBookingCommand{}
