package core

import (
	"time"
)

// DayLayout is the fixed-width date format used for OccurredOn. Values in this
// layout sort lexicographically in date order.
const DayLayout = "2006-01-02"

// DateRange is an inclusive range of YYYY-MM-DD days.
type DateRange struct {
	Start string
	End   string
}

// Contains reports whether day falls inside the range.
func (r DateRange) Contains(day string) bool {
	return day >= r.Start && day <= r.End
}

// MonthBounds returns the first and last calendar day of t's month.
func MonthBounds(t time.Time) DateRange {
	y, m, _ := t.Date()
	first := time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
	last := first.AddDate(0, 1, -1)
	return DateRange{Start: FormatDay(first), End: FormatDay(last)}
}

// Today returns the current local date as YYYY-MM-DD.
func Today() string {
	return FormatDay(time.Now())
}

func FormatDay(t time.Time) string {
	return t.Format(DayLayout)
}

// ParseDay parses a YYYY-MM-DD string.
func ParseDay(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DayLayout, s, time.Local)
	if err != nil {
		return time.Time{}, &ValidationError{Field: "date", Message: "date must be in YYYY-MM-DD format"}
	}
	return t, nil
}

// ParseMonth parses a YYYY-MM string into the first day of that month.
func ParseMonth(s string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01", s, time.Local)
	if err != nil {
		return time.Time{}, &ValidationError{Field: "month", Message: "month must be in YYYY-MM format"}
	}
	return t, nil
}
