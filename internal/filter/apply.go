package filter

import (
	"github.com/infernoscraper/inferno/internal/models"
	"github.com/infernoscraper/inferno/internal/normalize"
)

// Apply returns the records passing every active constraint of sel, in
// input order. It never mutates its arguments.
func Apply(records []models.ResultRecord, sel models.FilterSelection, facets models.FilterFacets) []models.ResultRecord {
	out := make([]models.ResultRecord, 0, len(records))
	for _, r := range records {
		if matches(r, sel, facets) {
			out = append(out, r)
		}
	}
	return out
}

func matches(r models.ResultRecord, sel models.FilterSelection, facets models.FilterFacets) bool {
	if !inSet(sel.Subcategories, r.Subcat) {
		return false
	}
	if !inSet(sel.Cities, r.City) {
		return false
	}
	if !inSet(sel.Zips, r.ZipCode) {
		return false
	}
	return matchesDate(r, sel, facets)
}

// inSet treats an empty set as no constraint
func inSet(set map[string]struct{}, raw string) bool {
	if len(set) == 0 {
		return true
	}
	_, ok := set[normalize.Value(raw)]
	return ok
}

func matchesDate(r models.ResultRecord, sel models.FilterSelection, facets models.FilterFacets) bool {
	if sel.NewOnly {
		if !r.HasDay() || facets.DateRange.Max.IsZero() {
			return false
		}
		return r.Day.Equal(facets.DateRange.Max)
	}

	if sel.StartDay.IsZero() && sel.EndDay.IsZero() {
		return true
	}
	if !r.HasDay() {
		return false
	}
	if !sel.StartDay.IsZero() && r.Day.Before(sel.StartDay) {
		return false
	}
	if !sel.EndDay.IsZero() && r.Day.After(sel.EndDay) {
		return false
	}
	return true
}
