package daterange

import (
	"time"

	"travelbooking/internal/domain/shared/apperr"
)

const day = 24 * time.Hour

var (
	ErrInvalidRange = apperr.New(apperr.KindValidation, "daterange: end must not be before start")
	ErrMissingDate  = apperr.New(apperr.KindValidation, "daterange: start and end are required")
)

// DateRange is an inclusive interval of calendar dates. Both bounds are UTC midnights.
type DateRange struct {
	Start time.Time
	End   time.Time
}

func New(start, end time.Time) (DateRange, error) {
	if start.IsZero() || end.IsZero() {
		return DateRange{}, ErrMissingDate
	}
	dr := DateRange{Start: Date(start), End: Date(end)}
	if err := dr.Validate(); err != nil {
		return DateRange{}, err
	}
	return dr, nil
}

// Parse reads two YYYY-MM-DD dates.
func Parse(start, end string) (DateRange, error) {
	s, err := time.Parse(time.DateOnly, start)
	if err != nil {
		return DateRange{}, apperr.Wrap(apperr.KindValidation, "daterange: invalid start", err)
	}
	e, err := time.Parse(time.DateOnly, end)
	if err != nil {
		return DateRange{}, apperr.Wrap(apperr.KindValidation, "daterange: invalid end", err)
	}
	return New(s, e)
}

// Date truncates t to its calendar date in t's own location, expressed at UTC midnight.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts calendar days from a to b; negative when b precedes a.
func DaysBetween(a, b time.Time) int {
	return int(Date(b).Sub(Date(a)) / day)
}

func (dr DateRange) Validate() error {
	if dr.Start.IsZero() || dr.End.IsZero() {
		return ErrMissingDate
	}
	if dr.End.Before(dr.Start) {
		return ErrInvalidRange
	}
	return nil
}

func (dr DateRange) Nights() int {
	return DaysBetween(dr.Start, dr.End)
}

func (dr DateRange) Days() int {
	return dr.Nights() + 1
}

// OverlapsWith treats both ranges as inclusive on both ends.
func (dr DateRange) OverlapsWith(other DateRange) bool {
	return !dr.End.Before(other.Start) && !dr.Start.After(other.End)
}

func (dr DateRange) Contains(date time.Time) bool {
	d := Date(date)
	return !d.Before(dr.Start) && !d.After(dr.End)
}

func (dr DateRange) Intersection(other DateRange) (DateRange, bool) {
	if !dr.OverlapsWith(other) {
		return DateRange{}, false
	}
	start := dr.Start
	if other.Start.After(start) {
		start = other.Start
	}
	end := dr.End
	if other.End.Before(end) {
		end = other.End
	}
	return DateRange{Start: start, End: end}, true
}

// IsBefore reports whether the range ends strictly before other starts.
func (dr DateRange) IsBefore(other DateRange) bool {
	return dr.End.Before(other.Start)
}

func (dr DateRange) IsAfter(other DateRange) bool {
	return dr.Start.After(other.End)
}

// OccupiedNights is the range of dates a guest sleeps over: start through the day before end.
// The checkout date itself is vacated. Zero-night ranges occupy nothing.
func (dr DateRange) OccupiedNights() (DateRange, bool) {
	if dr.Nights() < 1 {
		return DateRange{}, false
	}
	return DateRange{Start: dr.Start, End: dr.End.Add(-day)}, true
}

// Conflicts reports whether two stays need the same night. A stay may start on the
// date another one checks out.
func (dr DateRange) Conflicts(other DateRange) bool {
	a, ok := dr.OccupiedNights()
	if !ok {
		return false
	}
	b, ok := other.OccupiedNights()
	if !ok {
		return false
	}
	return a.OverlapsWith(b)
}

func (dr DateRange) String() string {
	return dr.Start.Format(time.DateOnly) + ".." + dr.End.Format(time.DateOnly)
}
