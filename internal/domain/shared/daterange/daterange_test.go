package daterange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travelbooking/internal/domain/shared/apperr"
)

func mustParse(t *testing.T, start, end string) DateRange {
	t.Helper()
	dr, err := Parse(start, end)
	require.NoError(t, err)
	return dr
}

func TestNewRejectsReversedRange(t *testing.T) {
	_, err := Parse("2024-06-10", "2024-06-01")
	assert.ErrorIs(t, err, ErrInvalidRange)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = New(time.Time{}, time.Now())
	assert.ErrorIs(t, err, ErrMissingDate)
}

func TestNewTruncatesToDates(t *testing.T) {
	start := time.Date(2024, 6, 1, 17, 30, 0, 0, time.UTC)
	end := time.Date(2024, 6, 4, 9, 0, 0, 0, time.UTC)
	dr, err := New(start, end)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), dr.Start)
	assert.Equal(t, 3, dr.Nights())
	assert.Equal(t, 4, dr.Days())
}

func TestOverlapsWithIsSymmetric(t *testing.T) {
	ranges := []DateRange{
		mustParse(t, "2024-06-01", "2024-06-10"),
		mustParse(t, "2024-06-05", "2024-06-07"),
		mustParse(t, "2024-06-10", "2024-06-12"),
		mustParse(t, "2024-06-11", "2024-06-15"),
		mustParse(t, "2024-05-20", "2024-06-01"),
		mustParse(t, "2024-07-01", "2024-07-01"),
	}
	for _, a := range ranges {
		for _, b := range ranges {
			assert.Equal(t, a.OverlapsWith(b), b.OverlapsWith(a), "%s vs %s", a, b)
		}
	}
}

func TestOverlapsWithIsInclusive(t *testing.T) {
	base := mustParse(t, "2024-06-01", "2024-06-10")

	assert.True(t, base.OverlapsWith(mustParse(t, "2024-06-05", "2024-06-07")))
	assert.True(t, base.OverlapsWith(mustParse(t, "2024-06-10", "2024-06-12")))
	assert.False(t, base.OverlapsWith(mustParse(t, "2024-06-11", "2024-06-15")))
}

func TestConflictsTreatsCheckoutAsVacated(t *testing.T) {
	base := mustParse(t, "2024-06-01", "2024-06-10")

	assert.True(t, base.Conflicts(mustParse(t, "2024-06-05", "2024-06-07")))
	assert.True(t, base.Conflicts(mustParse(t, "2024-05-28", "2024-06-02")))
	assert.False(t, base.Conflicts(mustParse(t, "2024-06-10", "2024-06-12")))
	assert.False(t, base.Conflicts(mustParse(t, "2024-05-25", "2024-06-01")))
	assert.False(t, base.Conflicts(mustParse(t, "2024-06-03", "2024-06-03")))
}

func TestIntersectionAndOrdering(t *testing.T) {
	a := mustParse(t, "2024-06-01", "2024-06-10")
	b := mustParse(t, "2024-06-08", "2024-06-15")

	got, ok := a.Intersection(b)
	require.True(t, ok)
	assert.Equal(t, "2024-06-08..2024-06-10", got.String())

	_, ok = a.Intersection(mustParse(t, "2024-07-01", "2024-07-02"))
	assert.False(t, ok)

	later := mustParse(t, "2024-06-11", "2024-06-12")
	assert.True(t, a.IsBefore(later))
	assert.True(t, later.IsAfter(a))
	assert.False(t, a.IsBefore(b))

	assert.True(t, a.Contains(time.Date(2024, 6, 10, 23, 0, 0, 0, time.UTC)))
	assert.False(t, a.Contains(time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC)))
}

func TestDaysBetween(t *testing.T) {
	now := time.Date(2024, 6, 1, 22, 0, 0, 0, time.UTC)
	assert.Equal(t, 3, DaysBetween(now, time.Date(2024, 6, 4, 1, 0, 0, 0, time.UTC)))
	assert.Equal(t, -1, DaysBetween(now, time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)))
}
