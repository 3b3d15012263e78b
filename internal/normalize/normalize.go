// Package normalize turns loosely typed server values into the comparable
// forms the filter engine works with: trimmed strings, local calendar days
// and the field aliases different server versions have used.
package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Value returns "" for nil, blank and "n/a"/"na" placeholders (any case),
// otherwise the trimmed string form of v.
func Value(v any) string {
	var text string
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		text = t
	case json.Number:
		text = t.String()
	case float64:
		text = strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		text = strconv.Itoa(t)
	case int64:
		text = strconv.FormatInt(t, 10)
	case fmt.Stringer:
		text = t.String()
	default:
		text = fmt.Sprint(t)
	}

	text = strings.TrimSpace(text)
	switch strings.ToLower(text) {
	case "", "n/a", "na":
		return ""
	}
	return text
}

// Field aliases in priority order. Server versions disagree on naming.
var (
	dateAliases = []string{"date", "Date", "DATE", "timestamp", "Timestamp", "TIMESTAMP"}
	cityAliases = []string{"city", "City", "location_city"}
	zipAliases  = []string{"zip_code", "zip", "zipCode", "postal_code", "postcode"}
)

// ExtractDateField returns the first non-empty date-like field of a raw record
func ExtractDateField(fields map[string]any) (string, bool) {
	return firstField(fields, dateAliases)
}

// CityField returns the first non-empty city field of a raw record
func CityField(fields map[string]any) string {
	v, _ := firstField(fields, cityAliases)
	return v
}

// ZipField returns the first non-empty zip code field of a raw record
func ZipField(fields map[string]any) string {
	v, _ := firstField(fields, zipAliases)
	return v
}

func firstField(fields map[string]any, aliases []string) (string, bool) {
	for _, key := range aliases {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		if v := Value(raw); v != "" {
			return v, true
		}
	}
	return "", false
}
