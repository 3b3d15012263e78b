package normalize

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func localDay(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func TestParseDate_DayMonthYear(t *testing.T) {
	parsed, ok := ParseDate("05/03/2024")
	require.True(t, ok)

	// 5 March, never 3 May
	assert.True(t, ToDayStart(parsed).Equal(localDay(2024, time.March, 5)))
	assert.Equal(t, localDay(2024, time.March, 5).UnixMilli(), ToDayStart(parsed).UnixMilli())
}

func TestParseDate_Variants(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"1/2/2024", time.Date(2024, time.February, 1, 0, 0, 0, 0, time.Local)},
		{"01.02.2024", time.Date(2024, time.February, 1, 0, 0, 0, 0, time.Local)},
		{"1-2-2024", time.Date(2024, time.February, 1, 0, 0, 0, 0, time.Local)},
		{"31/12/2023 23:59", time.Date(2023, time.December, 31, 23, 59, 0, 0, time.Local)},
		{"31/12/2023 7:05:09", time.Date(2023, time.December, 31, 7, 5, 9, 0, time.Local)},
		{"timestamp: 05/03/2024 10:30", time.Date(2024, time.March, 5, 10, 30, 0, 0, time.Local)},
		{"Timestamp 05/03/2024", time.Date(2024, time.March, 5, 0, 0, 0, 0, time.Local)},
		{"Dátum: 13/03/2024", time.Date(2024, time.March, 13, 0, 0, 0, 0, time.Local)},
		{"2024-03-05", time.Date(2024, time.March, 5, 0, 0, 0, 0, time.Local)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDate(tt.in)
			require.True(t, ok, "expected %q to parse", tt.in)
			assert.True(t, got.Equal(tt.want), "ParseDate(%q) = %v, want %v", tt.in, got, tt.want)
		})
	}
}

func TestParseDate_ISOTimestamp(t *testing.T) {
	got, ok := ParseDate("2024-03-05T10:00:00Z")
	require.True(t, ok)
	assert.True(t, got.Equal(time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)))
}

func TestParseDate_Rejects(t *testing.T) {
	for _, in := range []string{"", "   ", "not a date", "31/02/2024", "05/13/2024", "05/03/2024 25:00"} {
		t.Run(in, func(t *testing.T) {
			_, ok := ParseDate(in)
			assert.False(t, ok, "expected %q to be rejected", in)
		})
	}
}

func TestParseDate_TimeValues(t *testing.T) {
	now := time.Date(2024, time.June, 1, 15, 4, 5, 0, time.Local)
	got, ok := ParseDate(now)
	require.True(t, ok)
	assert.True(t, got.Equal(now))

	_, ok = ParseDate(time.Time{})
	assert.False(t, ok)

	_, ok = ParseDate(42)
	assert.False(t, ok)
}

func TestToDayStart(t *testing.T) {
	in := time.Date(2024, time.January, 2, 18, 45, 12, 999, time.Local)
	assert.True(t, ToDayStart(in).Equal(localDay(2024, time.January, 2)))
	assert.True(t, ToDayStart(time.Time{}).IsZero())
}

func TestDayOf(t *testing.T) {
	assert.True(t, DayOf("02/01/2024 08:15").Equal(localDay(2024, time.January, 2)))
	assert.True(t, DayOf("garbage").IsZero())
}

func TestFormatDay(t *testing.T) {
	assert.Equal(t, "05/03/2024", FormatDay(localDay(2024, time.March, 5)))
	assert.Equal(t, "", FormatDay(time.Time{}))
}

func TestParseDay(t *testing.T) {
	got, err := ParseDay("5.3.2024")
	require.NoError(t, err)
	assert.True(t, got.Equal(localDay(2024, time.March, 5)))

	got, err = ParseDay("2024-03-05")
	require.NoError(t, err)
	assert.True(t, got.Equal(localDay(2024, time.March, 5)))

	for _, in := range []string{"", "tomorrow", "32/01/2024", "05/03/2024 and more", "2024-02-30"} {
		_, err := ParseDay(in)
		assert.True(t, errors.Is(err, ErrInvalidDate), "ParseDay(%q) error = %v", in, err)
	}
}
