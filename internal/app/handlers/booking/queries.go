package booking

import (
	"context"
	"sort"
	"strings"
	"time"

	"travelbooking/internal/app/dto"
	handlersupport "travelbooking/internal/app/handlers/support"
	"travelbooking/internal/app/policies"
	"travelbooking/internal/app/queries"
	"travelbooking/internal/app/uow"
	domainbooking "travelbooking/internal/domain/booking"
	domaincatalog "travelbooking/internal/domain/catalog"
	"travelbooking/internal/domain/shared/apperr"
	"travelbooking/internal/domain/shared/daterange"
	domainuser "travelbooking/internal/domain/user"
)

const (
	getBookingKey    = "booking.get"
	guestBookingsKey = "booking.guest_list"
	quotePriceKey    = "pricing.quote"
)

var ErrBookingHidden = apperr.New(apperr.KindUnauthorized, "booking: not visible to actor")

type GetBookingQuery struct {
	BookingID string `validate:"required"`
}

func (q GetBookingQuery) Key() string { return getBookingKey }

type GetBookingHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetBookingHandler) Handle(ctx context.Context, q GetBookingQuery) (*dto.BookingDTO, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	b, err := loadBooking(execCtx, unit, q.BookingID)
	if err != nil {
		return nil, err
	}
	if actor, ok := policies.ActorFromContext(ctx); ok && !actor.IsAdmin() {
		if actor.ID != b.GuestID && string(actor.ID) != b.HostID {
			return nil, ErrBookingHidden
		}
	}
	out := dto.MapBooking(b)
	return &out, nil
}

type ListGuestBookingsQuery struct {
	GuestID string `validate:"required"`
}

func (q ListGuestBookingsQuery) Key() string { return guestBookingsKey }

type ListGuestBookingsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListGuestBookingsHandler) Handle(ctx context.Context, q ListGuestBookingsQuery) (dto.GuestBookingCollection, error) {
	guestID := domainuser.ID(strings.TrimSpace(q.GuestID))
	if actor, ok := policies.ActorFromContext(ctx); ok && !actor.IsAdmin() && actor.ID != guestID {
		return dto.GuestBookingCollection{}, ErrBookingHidden
	}
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.GuestBookingCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	records, err := unit.Bookings().ListByGuest(execCtx, guestID)
	if err != nil {
		return dto.GuestBookingCollection{}, err
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	items := make([]dto.BookingDTO, 0, len(records))
	for _, b := range records {
		items = append(items, dto.MapBooking(b))
	}
	return dto.GuestBookingCollection{Items: items}, nil
}

// QuotePriceQuery prices a prospective stay without reserving it.
type QuotePriceQuery struct {
	UnitID   string    `validate:"required"`
	CheckIn  time.Time `validate:"required"`
	CheckOut time.Time `validate:"required"`
	Guests   int       `validate:"gte=1"`
}

func (q QuotePriceQuery) Key() string { return quotePriceKey }

type QuotePriceHandler struct {
	UoWFactory uow.UoWFactory
	Pricing    policies.PricingPort
}

func (h *QuotePriceHandler) Handle(ctx context.Context, q QuotePriceQuery) (*dto.QuoteDTO, error) {
	stay, err := daterange.New(q.CheckIn, q.CheckOut)
	if err != nil {
		return nil, err
	}
	if stay.Nights() < 1 {
		return nil, domainbooking.ErrStayTooShort
	}
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	target, err := unit.Units().ByID(execCtx, domaincatalog.UnitID(strings.TrimSpace(q.UnitID)))
	if err != nil {
		return nil, err
	}
	if !target.Bookable() {
		return nil, ErrUnitNotBookable.WithDetail("approval_status", string(target.ApprovalStatus))
	}
	if err := domainbooking.EnsureCapacity(domainbooking.GuestCounts{Total: q.Guests}, target.MaxGuests); err != nil {
		return nil, err
	}
	price, err := h.Pricing.Quote(execCtx, target, stay, q.Guests)
	if err != nil {
		return nil, err
	}
	return &dto.QuoteDTO{
		UnitID:   string(target.ID),
		CheckIn:  stay.Start.Format(time.DateOnly),
		CheckOut: stay.End.Format(time.DateOnly),
		Guests:   q.Guests,
		Price:    dto.MapPrice(price),
	}, nil
}

var (
	_ queries.Handler[GetBookingQuery, *dto.BookingDTO]                    = (*GetBookingHandler)(nil)
	_ queries.Handler[ListGuestBookingsQuery, dto.GuestBookingCollection] = (*ListGuestBookingsHandler)(nil)
	_ queries.Handler[QuotePriceQuery, *dto.QuoteDTO]                      = (*QuotePriceHandler)(nil)
)
