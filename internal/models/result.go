package models

import "time"

// ResultRecord represents one scraped listing returned by the job service
type ResultRecord struct {
	URL     string
	Subcat  string
	City    string
	ZipCode string
	RawDate string    // date as the server sent it, empty if absent
	Day     time.Time // local midnight of RawDate, zero when unparseable
}

// HasDay returns true if the record carries a parseable date
func (r ResultRecord) HasDay() bool {
	return !r.Day.IsZero()
}

// DateRange is the day-truncated span of all parseable dates in a result set.
// Zero Min/Max means the set has no dates.
type DateRange struct {
	Min time.Time
	Max time.Time
}

// IsEmpty returns true if no date was observed
func (d DateRange) IsEmpty() bool {
	return d.Min.IsZero() || d.Max.IsZero()
}

// FilterFacets holds the filterable values observed across a result set
type FilterFacets struct {
	Subcategories []string
	Cities        []string
	Zips          []string
	DateRange     DateRange
}

// FilterSelection is the currently selected filter predicate.
// An empty set means "no constraint". NewOnly and an explicit
// StartDay/EndDay range are never active together.
type FilterSelection struct {
	Subcategories map[string]struct{}
	Cities        map[string]struct{}
	Zips          map[string]struct{}
	StartDay      time.Time // zero = unset
	EndDay        time.Time // zero = unset
	NewOnly       bool
}

// NewFilterSelection returns an empty selection that lets every record pass
func NewFilterSelection() FilterSelection {
	return FilterSelection{
		Subcategories: make(map[string]struct{}),
		Cities:        make(map[string]struct{}),
		Zips:          make(map[string]struct{}),
	}
}

// HasDateConstraint returns true if any date constraint is active
func (s FilterSelection) HasDateConstraint() bool {
	return s.NewOnly || !s.StartDay.IsZero() || !s.EndDay.IsZero()
}

// IsEmpty returns true if the selection constrains nothing
func (s FilterSelection) IsEmpty() bool {
	return len(s.Subcategories) == 0 && len(s.Cities) == 0 && len(s.Zips) == 0 && !s.HasDateConstraint()
}

// Clone returns a deep copy so callers can't mutate engine state
func (s FilterSelection) Clone() FilterSelection {
	out := FilterSelection{
		Subcategories: cloneSet(s.Subcategories),
		Cities:        cloneSet(s.Cities),
		Zips:          cloneSet(s.Zips),
		StartDay:      s.StartDay,
		EndDay:        s.EndDay,
		NewOnly:       s.NewOnly,
	}
	return out
}

func cloneSet(in map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}

// ResultSet is an archived, committed set of records
type ResultSet struct {
	ID        int64
	Mode      string // "latest" or "history"
	JobID     string // empty for history fetches
	Count     int
	FetchedAt time.Time
}
