package availability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travelbooking/internal/domain/booking"
	"travelbooking/internal/domain/shared/apperr"
	"travelbooking/internal/domain/shared/daterange"
)

func rng(t *testing.T, start, end string) daterange.DateRange {
	t.Helper()
	dr, err := daterange.Parse(start, end)
	require.NoError(t, err)
	return dr
}

func existing(t *testing.T, id string, status booking.Status, start, end string) *booking.Booking {
	return &booking.Booking{ID: booking.BookingID(id), Status: status, Stay: rng(t, start, end)}
}

func TestIsAvailable(t *testing.T) {
	confirmed := []*booking.Booking{existing(t, "b1", booking.StatusConfirmed, "2024-06-01", "2024-06-10")}

	tests := []struct {
		name      string
		candidate daterange.DateRange
		want      bool
	}{
		{"inside existing stay", rng(t, "2024-06-05", "2024-06-07"), false},
		{"after existing stay", rng(t, "2024-06-11", "2024-06-15"), true},
		{"starts on checkout date", rng(t, "2024-06-10", "2024-06-12"), true},
		{"ends on check-in date", rng(t, "2024-05-28", "2024-06-01"), true},
		{"straddles check-in", rng(t, "2024-05-30", "2024-06-02"), false},
		{"covers whole stay", rng(t, "2024-05-01", "2024-07-01"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAvailable(tt.candidate, confirmed))
		})
	}
}

func TestTerminalBookingsDoNotBlock(t *testing.T) {
	bookings := []*booking.Booking{
		existing(t, "c", booking.StatusCancelled, "2024-06-01", "2024-06-10"),
		existing(t, "d", booking.StatusCompleted, "2024-06-01", "2024-06-10"),
		existing(t, "n", booking.StatusNoShow, "2024-06-01", "2024-06-10"),
		nil,
	}
	assert.True(t, IsAvailable(rng(t, "2024-06-02", "2024-06-04"), bookings))

	bookings = append(bookings, existing(t, "p", booking.StatusPending, "2024-06-03", "2024-06-05"))
	assert.False(t, IsAvailable(rng(t, "2024-06-02", "2024-06-04"), bookings))
}

func TestCheckReportsConflicts(t *testing.T) {
	bookings := []*booking.Booking{
		existing(t, "a", booking.StatusConfirmed, "2024-06-01", "2024-06-05"),
		existing(t, "b", booking.StatusPending, "2024-06-05", "2024-06-08"),
	}
	err := Check(rng(t, "2024-06-03", "2024-06-07"), bookings)
	require.ErrorIs(t, err, apperr.ErrUnavailable)
	assert.Equal(t, []string{"a", "b"}, apperr.DetailsOf(err)["conflicts"])

	assert.NoError(t, Check(rng(t, "2024-06-08", "2024-06-09"), bookings))
}
