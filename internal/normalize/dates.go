package normalize

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// DayLayout is the DD/MM/YYYY format the service uses on the wire and in the UI
const DayLayout = "02/01/2006"

// ErrInvalidDate is returned by ParseDay for input that is not a calendar day
var ErrInvalidDate = errors.New("invalid date")

var (
	// Leading labels such as "timestamp:" or "Dátum:"
	labelPattern = regexp.MustCompile(`(?i)^(?:timestamp\s*:?|[\p{L}_ ]+:)\s*`)

	// D.M.YYYY, D/M/YYYY or D-M-YYYY with an optional H:M[:S] time.
	// Always day-month-year: the service emits European dates.
	dmyPattern = regexp.MustCompile(`(\d{1,2})[./-](\d{1,2})[./-](\d{4})(?:\s+(\d{1,2}):(\d{2})(?::(\d{2}))?)?`)

	isoDayPattern = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
)

// ParseDate parses a time.Time or a loosely formatted date string in local time
func ParseDate(v any) (time.Time, bool) {
	return ParseDateIn(v, time.Local)
}

// ParseDateIn is ParseDate with an explicit location for wall-clock dates
func ParseDateIn(v any, loc *time.Location) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return time.Time{}, false
		}
		return t, true
	case *time.Time:
		if t == nil || t.IsZero() {
			return time.Time{}, false
		}
		return *t, true
	case string:
		return parseDateString(t, loc)
	}
	return time.Time{}, false
}

func parseDateString(s string, loc *time.Location) (time.Time, bool) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return time.Time{}, false
	}

	candidate := strings.TrimSpace(labelPattern.ReplaceAllString(trimmed, ""))
	if candidate == "" {
		candidate = trimmed
	}

	if m := dmyPattern.FindStringSubmatch(candidate); m != nil {
		if t, ok := buildDMY(m, loc); ok {
			return t, true
		}
		return time.Time{}, false
	}

	t, err := dateparse.ParseIn(candidate, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// buildDMY assembles a time from dmyPattern groups, rejecting values that
// time.Date would silently roll over (31/02, 25:00, ...)
func buildDMY(m []string, loc *time.Location) (time.Time, bool) {
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])

	var hour, minute, second int
	if m[4] != "" {
		hour, _ = strconv.Atoi(m[4])
		minute, _ = strconv.Atoi(m[5])
	}
	if m[6] != "" {
		second, _ = strconv.Atoi(m[6])
	}

	if month < 1 || month > 12 || day < 1 || hour > 23 || minute > 59 || second > 59 {
		return time.Time{}, false
	}

	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, loc)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}

// ToDayStart truncates t to local midnight
func ToDayStart(t time.Time) time.Time {
	return ToDayStartIn(t, time.Local)
}

// ToDayStartIn truncates t to midnight in loc
func ToDayStartIn(t time.Time, loc *time.Location) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

// DayOf parses v and returns its local day start, zero if unparseable
func DayOf(v any) time.Time {
	t, ok := ParseDate(v)
	if !ok {
		return time.Time{}
	}
	return ToDayStart(t)
}

// FormatDay renders t as DD/MM/YYYY, or "" for the zero time
func FormatDay(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DayLayout)
}

// ParseDay strictly parses user input for a date filter. It accepts
// DD/MM/YYYY (with ".", "/" or "-") and YYYY-MM-DD and returns local midnight.
func ParseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidDate)
	}

	if m := isoDayPattern.FindStringSubmatch(s); m != nil {
		// Reorder into the DMY groups buildDMY expects
		if t, ok := buildDMY([]string{s, m[3], m[2], m[1], "", "", ""}, time.Local); ok {
			return t, nil
		}
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}

	m := dmyPattern.FindStringSubmatch(s)
	if m == nil || m[0] != s {
		return time.Time{}, fmt.Errorf("%w: %q (use DD/MM/YYYY)", ErrInvalidDate, s)
	}
	t, ok := buildDMY(m, time.Local)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return ToDayStart(t), nil
}
