package coordinator

import (
	"time"

	"github.com/infernoscraper/inferno/internal/job"
	"github.com/infernoscraper/inferno/internal/models"
)

// Snapshot returns the job state as the dashboard renders it
func (c *Coordinator) Snapshot() job.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.View()
}

// Results returns the records that pass the current filter selection
func (c *Coordinator) Results() []models.ResultRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.View()
}

// AllResults returns every committed record in server order
func (c *Coordinator) AllResults() []models.ResultRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.Records()
}

func (c *Coordinator) Facets() models.FilterFacets {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.Facets()
}

func (c *Coordinator) Selection() models.FilterSelection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.Selection()
}

// ResultsMode reports which fetch owns the result view
func (c *Coordinator) ResultsMode() ResultsMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ResultsNone
	}
	return c.session.mode
}

// Filters returns the filters of the last job or history request
func (c *Coordinator) Filters() models.ScrapeFilters {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return models.ScrapeFilters{}
	}
	if c.session.mode == ResultsHistory {
		return c.session.historyFilters
	}
	return c.session.jobFilters
}

func (c *Coordinator) ServerStatus() ServerStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverStatus
}

// AuthRequired reports whether the user must log in before issuing intents
func (c *Coordinator) AuthRequired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authRequired
}

// LastResultSet returns the archive entry of the committed results, zero if
// nothing was archived
func (c *Coordinator) LastResultSet() models.ResultSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSet
}

// Result filter intents. They only touch the local view.

func (c *Coordinator) ToggleSubcategory(v string) { c.withEngine(func() { c.engine.ToggleSubcategory(v) }) }
func (c *Coordinator) ToggleCity(v string)        { c.withEngine(func() { c.engine.ToggleCity(v) }) }
func (c *Coordinator) ToggleZip(v string)         { c.withEngine(func() { c.engine.ToggleZip(v) }) }

func (c *Coordinator) SetSubcategories(values []string) {
	c.withEngine(func() { c.engine.SetSubcategories(values) })
}

func (c *Coordinator) SetCities(values []string) { c.withEngine(func() { c.engine.SetCities(values) }) }
func (c *Coordinator) SetZips(values []string)   { c.withEngine(func() { c.engine.SetZips(values) }) }

func (c *Coordinator) SetDateRange(start, end time.Time) {
	c.withEngine(func() { c.engine.SetDateRange(start, end) })
}

// SetDateRangeInput parses DD/MM/YYYY bounds; blank means unset
func (c *Coordinator) SetDateRangeInput(start, end string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.SetDateRangeInput(start, end)
}

func (c *Coordinator) SetNewOnly(on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.SetNewOnly(on)
}

func (c *Coordinator) ClearDateFilter() { c.withEngine(c.engine.ClearDateFilter) }
func (c *Coordinator) ResetFilters()    { c.withEngine(c.engine.Reset) }

func (c *Coordinator) withEngine(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn()
}
