// Package job reconciles polled job snapshots from the scrape service with
// what the client knows locally.
//
// Status graph:
//
//	idle ──► starting ──► running ──► finished
//	             │            │   └──► failed
//	             └────────────┴──────► cancelled
//
//	any ──► restarting ──(soft reset)──► idle
//
// running never goes back to starting.
package job

import (
	"strconv"
	"time"

	"github.com/infernoscraper/inferno/internal/models"
)

// DefaultFailure is reported for failed jobs that carry no error text
const DefaultFailure = "Zber zlyhal."

// AlreadyRunningNotice is returned when the service refuses a start because
// a job is already in progress
const AlreadyRunningNotice = "Zber už prebieha, sledujem existujúci zber."

// Outcome tells the caller what a Tick decided
type Outcome struct {
	Applied    bool   // snapshot was written to local state
	FetchJobID string // non-empty exactly once per finished job
	Failure    string // non-empty once per distinct failure
}

// Snapshot is the read-only view handed to presentation
type Snapshot struct {
	Status          models.JobStatus
	Phase           string
	Done            int
	Total           int
	ProgressPercent int
	Label           string
	Counter         string
	ResultsReady    bool
	Error           string
	JobID           string
	LastCount       int
}

// suppression ignores snapshots of a dismissed job. An armed marker with an
// empty jobID is the wildcard.
type suppression struct {
	armed bool
	jobID string
}

func (s suppression) clearedBy(snap models.Job) bool {
	if !snap.Status.IsActive() || snap.StartedAt == "" {
		return false
	}
	return s.jobID == "" || snap.StartedAt != s.jobID
}

// Machine is the job lifecycle state machine. It does no I/O and is not safe
// for concurrent use; the coordinator serializes access.
type Machine struct {
	job         models.Job
	watch       Identity
	pending     string // pendingResultsJobId
	suppress    suppression
	lastFailure string
	cancelled   suppression // active snapshots of a cancelled job are stale
}

// NewMachine returns an idle machine
func NewMachine() *Machine {
	return &Machine{job: models.Job{Status: models.JobIdle}}
}

// Status returns the current local status
func (m *Machine) Status() models.JobStatus { return m.job.Status }

// Watch returns the identity compared against every poll
func (m *Machine) Watch() Identity { return m.watch }

// Pending returns the job id whose results are still owed, or ""
func (m *Machine) Pending() string { return m.pending }

// Suppressed reports whether snapshots of a dismissed job are being ignored
func (m *Machine) Suppressed() bool { return m.suppress.armed }

// Start moves to starting under a provisional identity derived from now. It
// is a no-op returning false while a job is starting or running.
func (m *Machine) Start(now time.Time) bool {
	if m.job.Status.IsActive() {
		return false
	}

	localID := strconv.FormatInt(now.UnixMilli(), 10)
	m.job = models.Job{
		StartedAt: localID,
		Status:    models.JobStarting,
		LastCount: m.job.LastCount,
	}
	m.watch = Provisional(localID)
	m.pending = localID
	m.suppress = suppression{}
	m.cancelled = suppression{}
	m.lastFailure = ""
	return true
}

// AcceptStart confirms the start with the server's job id. It returns false
// when the start was abandoned locally (cancel, reset) before the response.
func (m *Machine) AcceptStart(serverID string) bool {
	if !m.job.Status.IsActive() {
		return false
	}
	if serverID == "" {
		return true
	}

	m.watch = m.watch.Confirm(serverID)
	m.job.StartedAt = serverID
	m.pending = serverID
	return true
}

// AlreadyRunning attaches to the job the service reports as in progress
// and returns the notice to show
func (m *Machine) AlreadyRunning(existing models.Job) string {
	if !existing.Status.IsActive() {
		existing.Status = models.JobRunning
	}
	m.job = existing
	m.watch = Confirmed(existing.StartedAt)
	m.pending = existing.StartedAt
	m.suppress = suppression{}
	m.cancelled = suppression{}
	return AlreadyRunningNotice
}

// FailStart returns to idle after a start request failed
func (m *Machine) FailStart(err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	m.job = models.Job{Status: models.JobIdle, Error: msg, LastCount: m.job.LastCount}
	m.watch = None()
	m.pending = ""
}

// Tick reconciles one polled snapshot with local state
func (m *Machine) Tick(snap models.Job) Outcome {
	if m.suppress.armed {
		if m.suppress.clearedBy(snap) {
			m.suppress = suppression{}
		} else if !m.watch.Matches(snap.StartedAt) {
			return Outcome{}
		}
	}

	if !m.accepts(snap) {
		return Outcome{}
	}

	if m.job.Status == models.JobStarting && m.watch.IsProvisional() && snap.StartedAt != "" {
		m.watch = m.watch.Confirm(snap.StartedAt)
		m.pending = snap.StartedAt
	}
	// The service runs one job at a time, so an active job with another id
	// is the one to follow. pending keeps pointing at our own job.
	if m.watch.IsConfirmed() && snap.Status.IsActive() && snap.StartedAt != "" && !m.watch.Matches(snap.StartedAt) {
		m.watch = Confirmed(snap.StartedAt)
	}
	if snap.Status.IsTerminal() {
		m.cancelled = suppression{}
	}

	if m.job.Status == models.JobRunning && snap.Status == models.JobStarting {
		snap.Status = models.JobRunning
	}
	m.job = snap

	out := Outcome{Applied: true}
	switch snap.Status {
	case models.JobFinished:
		if snap.ResultsReady && m.pending != "" && snap.StartedAt == m.pending {
			out.FetchJobID = m.pending
			m.pending = ""
		}
	case models.JobFailed:
		msg := snap.Error
		if msg == "" {
			msg = DefaultFailure
		}
		if msg != m.lastFailure {
			out.Failure = msg
			m.lastFailure = msg
		}
		m.pending = ""
	case models.JobCancelled:
		m.pending = ""
	}
	return out
}

// accepts decides whether an unsuppressed snapshot may be applied
func (m *Machine) accepts(snap models.Job) bool {
	// Nothing but an active job may end a start the server has not confirmed
	if m.job.Status == models.JobStarting && m.watch.IsProvisional() {
		return snap.Status.IsActive()
	}

	// A cancelled job still reported as active is stale until it stops
	if m.cancelled.armed && snap.Status.IsActive() && (m.cancelled.jobID == "" || snap.StartedAt == m.cancelled.jobID) {
		return false
	}

	// Terminal snapshots of some other job never overwrite the watched one
	if m.watch.IsConfirmed() && snap.StartedAt != "" && !m.watch.Matches(snap.StartedAt) && !snap.Status.IsActive() {
		return false
	}
	return true
}

// Cancel clears the pending fetch and zeroes progress without waiting for
// the next poll. It returns false when no job was active.
func (m *Machine) Cancel() bool {
	wasActive := m.job.Status.IsActive()

	m.pending = ""
	m.job.Phase = ""
	m.job.Done = 0
	m.job.Total = 0
	m.job.ResultsReady = false
	if wasActive {
		m.job.Status = models.JobCancelled
		// A provisional id is unknown to the server, so any active job is stale
		if m.watch.IsConfirmed() {
			m.cancelled = suppression{armed: true, jobID: m.watch.ID()}
		} else {
			m.cancelled = suppression{armed: true}
		}
	}
	return wasActive
}

// SoftReset drops local job state and ignores further snapshots of the
// dismissed job until a different job becomes active
func (m *Machine) SoftReset() {
	dismissed := m.watch.ID()
	if dismissed == "" {
		dismissed = m.job.StartedAt
	}
	m.reset(dismissed)
}

// SoftResetAll is SoftReset with the wildcard marker: every snapshot is
// ignored until any job becomes active
func (m *Machine) SoftResetAll() {
	m.reset("")
}

func (m *Machine) reset(dismissed string) {
	m.job = models.Job{Status: models.JobIdle, LastCount: m.job.LastCount}
	m.watch = None()
	m.pending = ""
	m.lastFailure = ""
	m.cancelled = suppression{}
	m.suppress = suppression{armed: true, jobID: dismissed}
}

// BeginRestart enters restarting while the service restarts. Follow it with
// SoftResetAll once the restart request returns.
func (m *Machine) BeginRestart() {
	m.job = models.Job{Status: models.JobRestarting, LastCount: m.job.LastCount}
	m.pending = ""
}

// View projects local state for presentation
func (m *Machine) View() Snapshot {
	j := m.job
	snap := Snapshot{
		Status:          j.Status,
		Phase:           j.Phase,
		Done:            j.Done,
		Total:           j.Total,
		ProgressPercent: ProgressPercent(j.Status, j.Done, j.Total),
		Label:           StageLabel(j.Phase),
		ResultsReady:    j.ResultsReady,
		Error:           j.Error,
		JobID:           m.watch.ID(),
		LastCount:       j.LastCount,
	}
	if snap.JobID == "" {
		snap.JobID = j.StartedAt
	}
	if snap.Label == "" && j.Status == models.JobFinished {
		snap.Label = DoneLabel
	}
	if j.Status.IsActive() || j.Total > 0 || j.Done > 0 {
		snap.Counter = Counter(j.Phase, j.Done, j.Total)
	}
	return snap
}
