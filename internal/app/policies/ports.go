package policies

import (
	"context"

	domainbooking "travelbooking/internal/domain/booking"
	domaincatalog "travelbooking/internal/domain/catalog"
	domainpricing "travelbooking/internal/domain/pricing"
	"travelbooking/internal/domain/shared/apperr"
	"travelbooking/internal/domain/shared/daterange"
	domainuser "travelbooking/internal/domain/user"
)

// PricingPort prices a stay at a unit. The default implementation is the fee calculator;
// an external dynamic price source can replace it.
type PricingPort interface {
	Quote(ctx context.Context, unit *domaincatalog.Unit, stay daterange.DateRange, guests int) (domainpricing.PriceBreakdown, error)
}

type Notifier interface {
	Send(ctx context.Context, to string, template string, data any) error
}

// ReceiptArchiver stores a rendered receipt document for a booking.
type ReceiptArchiver interface {
	Archive(ctx context.Context, bookingID string, document []byte) (string, error)
}

// Authorizer decides who may act on an existing booking.
type Authorizer interface {
	CanCancel(ctx context.Context, actor domainuser.Actor, b *domainbooking.Booking) error
}

var ErrNotBookingGuest = apperr.New(apperr.KindUnauthorized, "only the guest or an admin may act on this booking")

// GuestOrAdmin allows the booking's guest, and admins acting on anyone's behalf.
type GuestOrAdmin struct{}

func (GuestOrAdmin) CanCancel(_ context.Context, actor domainuser.Actor, b *domainbooking.Booking) error {
	if b == nil {
		return domainbooking.ErrBookingNotFound
	}
	if actor.IsAdmin() {
		return nil
	}
	if actor.ID != "" && actor.ID == b.GuestID {
		return nil
	}
	return ErrNotBookingGuest
}
