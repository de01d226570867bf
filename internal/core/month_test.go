package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthBounds(t *testing.T) {
	cases := []struct {
		name string
		in   time.Time
		want DateRange
	}{
		{"leap february", time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC), DateRange{"2024-02-01", "2024-02-29"}},
		{"non-leap february", time.Date(2023, 2, 28, 23, 59, 0, 0, time.UTC), DateRange{"2023-02-01", "2023-02-28"}},
		{"century non-leap", time.Date(1900, 2, 1, 0, 0, 0, 0, time.UTC), DateRange{"1900-02-01", "1900-02-28"}},
		{"thirty days", time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC), DateRange{"2024-04-01", "2024-04-30"}},
		{"thirty-one days", time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), DateRange{"2024-01-01", "2024-01-31"}},
		{"december crosses year", time.Date(2024, 12, 15, 0, 0, 0, 0, time.UTC), DateRange{"2024-12-01", "2024-12-31"}},
		{"january", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), DateRange{"2025-01-01", "2025-01-31"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MonthBounds(tc.in))
		})
	}
}

func TestDateRangeContains(t *testing.T) {
	r := DateRange{Start: "2024-02-01", End: "2024-02-29"}
	assert.True(t, r.Contains("2024-02-01"))
	assert.True(t, r.Contains("2024-02-29"))
	assert.False(t, r.Contains("2024-01-31"))
	assert.False(t, r.Contains("2024-03-01"))
}

func TestMonthOptionsDefaultsToNow(t *testing.T) {
	assert.Equal(t, MonthBounds(time.Now()), MonthOptions{}.Month())
}

func TestParseDayAndMonth(t *testing.T) {
	d, err := ParseDay("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, 29, d.Day())

	_, err = ParseDay("2023-02-29")
	assert.ErrorIs(t, err, ErrValidation)

	m, err := ParseMonth("2024-11")
	require.NoError(t, err)
	assert.Equal(t, DateRange{"2024-11-01", "2024-11-30"}, MonthBounds(m))

	_, err = ParseMonth("11/2024")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestToday(t *testing.T) {
	assert.Len(t, Today(), len(DayLayout))
}
