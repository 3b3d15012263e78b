package filter

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/infernoscraper/inferno/internal/models"
	"github.com/infernoscraper/inferno/internal/normalize"
)

// ErrNoDates is returned when a date mode needs dates the result set lacks
var ErrNoDates = errors.New("result set has no dates")

// Engine holds a loaded result set, its facets, the current selection and
// the filtered view. Every mutator recomputes the view. Engine is not safe
// for concurrent use; callers serialize access.
type Engine struct {
	records   []models.ResultRecord
	facets    models.FilterFacets
	selection models.FilterSelection
	view      []models.ResultRecord
}

// NewEngine returns an engine with no records
func NewEngine() *Engine {
	e := &Engine{selection: models.NewFilterSelection()}
	e.recompute()
	return e
}

// Load replaces the result set, rebuilds facets and clears the selection
func (e *Engine) Load(records []models.ResultRecord) {
	e.records = append([]models.ResultRecord(nil), records...)
	e.facets = BuildFacets(e.records)
	e.selection = models.NewFilterSelection()
	e.recompute()
}

// Records returns a copy of the loaded result set
func (e *Engine) Records() []models.ResultRecord {
	return append([]models.ResultRecord(nil), e.records...)
}

// Facets returns the facets of the loaded result set
func (e *Engine) Facets() models.FilterFacets {
	f := e.facets
	f.Subcategories = append([]string(nil), f.Subcategories...)
	f.Cities = append([]string(nil), f.Cities...)
	f.Zips = append([]string(nil), f.Zips...)
	return f
}

// Selection returns a copy of the current selection
func (e *Engine) Selection() models.FilterSelection {
	return e.selection.Clone()
}

// View returns a copy of the filtered records
func (e *Engine) View() []models.ResultRecord {
	return append([]models.ResultRecord(nil), e.view...)
}

// ToggleSubcategory adds or removes v from the subcategory selection
func (e *Engine) ToggleSubcategory(v string) {
	toggle(e.selection.Subcategories, v)
	e.recompute()
}

// ToggleCity adds or removes v from the city selection
func (e *Engine) ToggleCity(v string) {
	toggle(e.selection.Cities, v)
	e.recompute()
}

// ToggleZip adds or removes v from the zip selection
func (e *Engine) ToggleZip(v string) {
	toggle(e.selection.Zips, v)
	e.recompute()
}

// SetSubcategories replaces the subcategory selection
func (e *Engine) SetSubcategories(values []string) {
	e.selection.Subcategories = toSet(values)
	e.recompute()
}

// SetCities replaces the city selection
func (e *Engine) SetCities(values []string) {
	e.selection.Cities = toSet(values)
	e.recompute()
}

// SetZips replaces the zip selection
func (e *Engine) SetZips(values []string) {
	e.selection.Zips = toSet(values)
	e.recompute()
}

// SetDateRange sets an inclusive day range and turns NewOnly off. Either
// bound may be zero. A reversed range is swapped.
func (e *Engine) SetDateRange(start, end time.Time) {
	start = normalize.ToDayStart(start)
	end = normalize.ToDayStart(end)
	if !start.IsZero() && !end.IsZero() && start.After(end) {
		start, end = end, start
	}

	e.selection.StartDay = start
	e.selection.EndDay = end
	e.selection.NewOnly = false
	e.recompute()
}

// SetDateRangeInput parses user supplied DD/MM/YYYY bounds and applies them.
// A blank bound is unset. On a parse error the selection is left unchanged.
func (e *Engine) SetDateRangeInput(start, end string) error {
	var startDay, endDay time.Time
	var err error

	if strings.TrimSpace(start) != "" {
		if startDay, err = normalize.ParseDay(start); err != nil {
			return fmt.Errorf("start date: %w", err)
		}
	}
	if strings.TrimSpace(end) != "" {
		if endDay, err = normalize.ParseDay(end); err != nil {
			return fmt.Errorf("end date: %w", err)
		}
	}

	e.SetDateRange(startDay, endDay)
	return nil
}

// SetNewOnly toggles the newest-day mode. Turning it on clears any explicit
// range and fails with ErrNoDates when the result set has no dates.
func (e *Engine) SetNewOnly(on bool) error {
	if on && e.facets.DateRange.Max.IsZero() {
		return ErrNoDates
	}

	e.selection.NewOnly = on
	if on {
		e.selection.StartDay = time.Time{}
		e.selection.EndDay = time.Time{}
	}
	e.recompute()
	return nil
}

// ClearDateFilter drops the date range and NewOnly
func (e *Engine) ClearDateFilter() {
	e.selection.StartDay = time.Time{}
	e.selection.EndDay = time.Time{}
	e.selection.NewOnly = false
	e.recompute()
}

// Reset clears the whole selection
func (e *Engine) Reset() {
	e.selection = models.NewFilterSelection()
	e.recompute()
}

func (e *Engine) recompute() {
	e.view = Apply(e.records, e.selection, e.facets)
}

func toggle(set map[string]struct{}, raw string) {
	v := normalize.Value(raw)
	if v == "" {
		return
	}
	if _, ok := set[v]; ok {
		delete(set, v)
		return
	}
	set[v] = struct{}{}
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, raw := range values {
		if v := normalize.Value(raw); v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}
