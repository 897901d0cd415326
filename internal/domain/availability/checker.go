package availability

import (
	"travelbooking/internal/domain/booking"
	"travelbooking/internal/domain/shared/apperr"
	"travelbooking/internal/domain/shared/daterange"
)

var ErrUnavailable = apperr.New(apperr.KindUnavailable, "availability: unit is not available for the requested dates")

// Conflicting returns the live bookings whose occupied nights overlap the candidate stay.
// Checkout dates are vacated, so a stay may begin on another stay's checkout date.
func Conflicting(candidate daterange.DateRange, existing []*booking.Booking) []*booking.Booking {
	var out []*booking.Booking
	for _, b := range existing {
		if b == nil || !b.Status.Blocking() {
			continue
		}
		if b.Stay.Conflicts(candidate) {
			out = append(out, b)
		}
	}
	return out
}

func IsAvailable(candidate daterange.DateRange, existing []*booking.Booking) bool {
	return len(Conflicting(candidate, existing)) == 0
}

// Check returns ErrUnavailable, annotated with the blocking booking ids, when the stay is taken.
func Check(candidate daterange.DateRange, existing []*booking.Booking) error {
	conflicts := Conflicting(candidate, existing)
	if len(conflicts) == 0 {
		return nil
	}
	ids := make([]string, 0, len(conflicts))
	for _, b := range conflicts {
		ids = append(ids, string(b.ID))
	}
	return ErrUnavailable.WithDetail("conflicts", ids)
}
