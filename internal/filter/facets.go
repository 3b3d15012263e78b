// Package filter derives facet lists from a result set and computes the
// filtered view for a FilterSelection.
package filter

import (
	"sort"
	"strings"

	"github.com/infernoscraper/inferno/internal/models"
	"github.com/infernoscraper/inferno/internal/normalize"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// BuildFacets collects the distinct non-empty subcategories, cities and zip
// codes of records plus the day range of their parseable dates. The result
// does not depend on record order.
func BuildFacets(records []models.ResultRecord) models.FilterFacets {
	subcats := make(map[string]struct{})
	cities := make(map[string]struct{})
	zips := make(map[string]struct{})
	var dates models.DateRange

	for _, r := range records {
		addValue(subcats, r.Subcat)
		addValue(cities, r.City)
		addValue(zips, r.ZipCode)

		if !r.HasDay() {
			continue
		}
		if dates.Min.IsZero() || r.Day.Before(dates.Min) {
			dates.Min = r.Day
		}
		if dates.Max.IsZero() || r.Day.After(dates.Max) {
			dates.Max = r.Day
		}
	}

	return models.FilterFacets{
		Subcategories: sortedValues(subcats),
		Cities:        sortedValues(cities),
		Zips:          sortedValues(zips),
		DateRange:     dates,
	}
}

func addValue(set map[string]struct{}, raw string) {
	if v := normalize.Value(raw); v != "" {
		set[v] = struct{}{}
	}
}

// sortedValues orders values with Slovak collation. Byte order is applied
// first so values the collator treats as equal keep a fixed order.
func sortedValues(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)

	c := collate.New(language.Slovak, collate.IgnoreCase, collate.Numeric)
	sort.SliceStable(out, func(i, j int) bool {
		return c.CompareString(out[i], out[j]) < 0
	})
	return out
}

// SearchFacet returns the values containing term, ignoring case. An empty
// term returns all values.
func SearchFacet(values []string, term string) []string {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return values
	}

	var out []string
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), term) {
			out = append(out, v)
		}
	}
	return out
}
