package coordinator

import (
	"context"
	"errors"
	"fmt"

	"github.com/infernoscraper/inferno/internal/api"
	"github.com/infernoscraper/inferno/internal/models"
)

// StartNew clears the result view and asks the service for a new job. The
// view then belongs to that job's results.
func (c *Coordinator) StartNew(ctx context.Context, filters models.ScrapeFilters) error {
	c.mu.Lock()
	if c.authRequired {
		c.mu.Unlock()
		return ErrNotAuthenticated
	}
	if !c.machine.Start(c.opts.Now()) {
		c.mu.Unlock()
		return ErrJobActive
	}
	s := c.ensureSessionLocked()
	s.jobFilters = filters
	s.mode = ResultsLatest
	c.generation++
	gen := c.generation
	c.engine.Load(nil)
	c.lastSet = models.ResultSet{}
	c.mu.Unlock()

	c.logger.Info("Starting scrape job", "subcategories", len(filters.Subcategories))
	c.restartJobPolling()

	resp, err := c.svc.StartScrape(ctx, filters)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		c.logger.Debug("Start response arrived after reset, ignoring")
		return ErrSuperseded
	}

	switch {
	case errors.Is(err, api.ErrJobInProgress):
		if resp.Job.StartedAt != "" {
			c.notifyLocked(NoticeInfo, c.machine.AlreadyRunning(resp.Job))
		} else {
			// stay provisional; the next active poll adopts the running job
			c.notifyLocked(NoticeInfo, err.Error())
		}
		return nil
	case err != nil:
		c.machine.FailStart(err)
		if !c.handleErrLocked(err) {
			c.notifyLocked(NoticeError, err.Error())
		}
		c.logger.Error("Failed to start scrape job", "err", err)
		return err
	}

	if !c.machine.AcceptStart(resp.Job.StartedAt) {
		c.logger.Debug("Start accepted after local cancel, ignoring", "started_at", resp.Job.StartedAt)
		return nil
	}
	if resp.Job.StartedAt != "" && resp.Job.Status.IsActive() {
		c.machine.Tick(resp.Job)
	}
	c.notifyLocked(NoticeInfo, "Zber spustený.")
	return nil
}

// LoadPrevious fetches the accumulated history. The response is dropped if
// any newer intent took over the view meanwhile.
func (c *Coordinator) LoadPrevious(ctx context.Context, filters models.ScrapeFilters) error {
	return c.loadDirect(ctx, ResultsHistory, models.ModeOld, &filters)
}

// LoadLatest fetches the last finished job's results with the session's
// filters
func (c *Coordinator) LoadLatest(ctx context.Context) error {
	return c.loadDirect(ctx, ResultsLatest, models.ModeLatest, nil)
}

func (c *Coordinator) loadDirect(ctx context.Context, mode ResultsMode, scrapeMode models.ScrapeMode, filters *models.ScrapeFilters) error {
	c.mu.Lock()
	if c.authRequired {
		c.mu.Unlock()
		return ErrNotAuthenticated
	}
	s := c.ensureSessionLocked()
	query := s.jobFilters
	if filters != nil {
		s.historyFilters = *filters
		query = *filters
	}
	s.mode = mode
	c.generation++
	gen := c.generation
	c.engine.Load(nil)
	c.lastSet = models.ResultSet{}
	c.mu.Unlock()

	c.logger.Info("Loading results", "mode", scrapeMode)
	records, err := c.svc.FetchResults(ctx, scrapeMode, query)

	c.mu.Lock()
	if !c.ownsViewLocked(mode, gen) {
		c.mu.Unlock()
		c.logger.Debug("Discarding superseded results", "mode", scrapeMode)
		return ErrSuperseded
	}
	if err != nil {
		if !c.handleErrLocked(err) {
			c.notifyLocked(NoticeError, err.Error())
		}
		c.mu.Unlock()
		c.logger.Error("Failed to load results", "mode", scrapeMode, "err", err)
		return err
	}
	c.commitLocked(records)
	c.mu.Unlock()

	c.archiveResults(gen, mode, "", records)
	return nil
}

// fetchCompleted loads the results of a finished job exactly once. It only
// commits while the view still belongs to the job's session.
func (c *Coordinator) fetchCompleted(ctx context.Context, jobID string, gen uint64, filters models.ScrapeFilters) {
	c.logger.Info("Job finished, fetching results", "job", jobID)
	records, err := c.svc.FetchResults(ctx, models.ModeLatest, filters)

	c.mu.Lock()
	if !c.ownsViewLocked(ResultsLatest, gen) {
		c.mu.Unlock()
		c.logger.Debug("Discarding completed results, view moved on", "job", jobID)
		return
	}
	if err != nil {
		if !c.handleErrLocked(err) {
			c.notifyLocked(NoticeError, err.Error())
		}
		c.mu.Unlock()
		c.logger.Error("Failed to fetch completed results", "job", jobID, "err", err)
		return
	}
	c.commitLocked(records)
	c.mu.Unlock()

	c.archiveResults(gen, ResultsLatest, jobID, records)
}

func (c *Coordinator) ownsViewLocked(mode ResultsMode, gen uint64) bool {
	return gen == c.generation && c.session != nil && c.session.mode == mode
}

func (c *Coordinator) commitLocked(records []models.ResultRecord) {
	c.engine.Load(records)
	if len(records) == 0 {
		c.notifyLocked(NoticeInfo, "Žiadne výsledky.")
		return
	}
	c.notifyLocked(NoticeSuccess, fmt.Sprintf("Načítaných výsledkov: %d", len(records)))
}

// archiveResults stores a committed set and prunes old ones. Errors only
// reach the log.
func (c *Coordinator) archiveResults(gen uint64, mode ResultsMode, jobID string, records []models.ResultRecord) {
	if c.archive == nil {
		return
	}

	set, err := c.archive.SaveResultSet(string(mode), jobID, records)
	if err != nil {
		c.logger.Error("Failed to archive results", "err", err)
		return
	}
	if c.opts.ArchiveKeep > 0 {
		if n, err := c.archive.PruneResultSets(c.opts.ArchiveKeep); err != nil {
			c.logger.Error("Failed to prune archive", "err", err)
		} else if n > 0 {
			c.logger.Debug("Pruned archived result sets", "count", n)
		}
	}

	c.mu.Lock()
	if gen == c.generation {
		c.lastSet = set
	}
	c.mu.Unlock()
}

// Cancel stops tracking the current job at once and asks the service to
// cancel it
func (c *Coordinator) Cancel(ctx context.Context) error {
	c.mu.Lock()
	if c.authRequired {
		c.mu.Unlock()
		return ErrNotAuthenticated
	}
	wasActive := c.machine.Cancel()
	c.mu.Unlock()

	err := c.svc.Cancel(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		if !c.handleErrLocked(err) {
			c.notifyLocked(NoticeError, err.Error())
		}
		c.logger.Error("Failed to cancel job", "err", err)
		return err
	}
	if wasActive {
		c.notifyLocked(NoticeInfo, "Zber zrušený.")
	}
	c.logger.Info("Cancel requested", "was_active", wasActive)
	return nil
}

// SoftReset returns to idle without touching the server. Snapshots of the
// dismissed job are ignored until a different job shows up.
func (c *Coordinator) SoftReset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.machine.SoftReset()
	c.engine.Load(nil)
	c.session = nil
	c.lastSet = models.ResultSet{}
	c.generation++
	c.logger.Info("Soft reset")
}

// Restart asks the service to restart itself and then soft-resets
func (c *Coordinator) Restart(ctx context.Context) error {
	c.mu.Lock()
	if c.authRequired {
		c.mu.Unlock()
		return ErrNotAuthenticated
	}
	c.machine.BeginRestart()
	c.engine.Load(nil)
	c.lastSet = models.ResultSet{}
	c.generation++
	c.mu.Unlock()

	err := c.svc.Restart(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.machine.SoftResetAll()
	c.session = nil
	c.generation++
	if err != nil {
		if !c.handleErrLocked(err) {
			c.notifyLocked(NoticeError, err.Error())
		}
		c.logger.Error("Failed to restart service", "err", err)
		return err
	}
	c.notifyLocked(NoticeInfo, "Služba sa reštartuje, počkaj približne minútu.")
	c.logger.Info("Service restart requested")
	return nil
}

// PollOnce fetches one job status snapshot and reconciles it. Concurrent
// calls share a single request.
func (c *Coordinator) PollOnce(ctx context.Context) {
	c.mu.Lock()
	if c.authRequired {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do("job-status", func() (any, error) {
		return c.svc.JobStatus(ctx)
	})
	if err != nil {
		c.mu.Lock()
		expired := c.handleErrLocked(err)
		c.mu.Unlock()
		if !expired {
			c.pollLog.Do(func() { c.logger.Warn("Job status poll failed", "err", err) })
		}
		return
	}
	snap := v.(models.Job)

	c.mu.Lock()
	out := c.machine.Tick(snap)
	if out.Failure != "" {
		c.notifyLocked(NoticeError, out.Failure)
	}
	if out.FetchJobID == "" {
		c.mu.Unlock()
		return
	}
	if c.session == nil || c.session.mode != ResultsLatest {
		c.notifyLocked(NoticeInfo, "Zber dokončený. Výsledky načítaš klávesom l.")
		c.mu.Unlock()
		return
	}
	gen := c.generation
	filters := c.session.jobFilters
	c.mu.Unlock()

	c.fetchCompleted(ctx, out.FetchJobID, gen, filters)
}
