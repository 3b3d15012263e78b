// Package coordinator sequences the client's conversation with the scrape
// service: start a job, poll it, fetch its results once, load history, and
// keep late responses from overwriting fresher state.
package coordinator

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/infernoscraper/inferno/internal/api"
	"github.com/infernoscraper/inferno/internal/filter"
	"github.com/infernoscraper/inferno/internal/job"
	"github.com/infernoscraper/inferno/internal/models"
	"github.com/infernoscraper/inferno/internal/poller"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

var (
	// ErrJobActive is returned by StartNew while a job is starting or running
	ErrJobActive = errors.New("zber už beží")
	// ErrSuperseded means a newer intent replaced this one before its
	// response arrived; the response was discarded
	ErrSuperseded = errors.New("požiadavka bola nahradená novšou")
	// ErrNotAuthenticated is returned by intents issued without a session
	ErrNotAuthenticated = errors.New("nie si prihlásený")
	// ErrLoginBlocked is returned while the local login lockout is active
	ErrLoginBlocked = errors.New("prihlasovanie je dočasne zablokované")
)

// ScrapeService is the remote job service as the coordinator uses it
type ScrapeService interface {
	StartScrape(ctx context.Context, filters models.ScrapeFilters) (api.StartResponse, error)
	FetchResults(ctx context.Context, mode models.ScrapeMode, filters models.ScrapeFilters) ([]models.ResultRecord, error)
	JobStatus(ctx context.Context) (models.Job, error)
	Cancel(ctx context.Context) error
	Restart(ctx context.Context) error
	Health(ctx context.Context) (api.Health, error)
	Wake(ctx context.Context) error
	Login(ctx context.Context, password string) (time.Duration, error)
	AuthStatus(ctx context.Context) (bool, error)
	Logout(ctx context.Context) error
	SendFeedback(ctx context.Context, keyword string) error
	HasToken() bool
}

// Archive stores committed result sets. Failures are logged, never fatal.
type Archive interface {
	SaveResultSet(mode, jobID string, records []models.ResultRecord) (models.ResultSet, error)
	PruneResultSets(keep int) (int64, error)
}

// ResultsMode marks which kind of fetch currently owns the result view
type ResultsMode string

const (
	ResultsNone    ResultsMode = ""
	ResultsLatest  ResultsMode = "latest"
	ResultsHistory ResultsMode = "history"
)

// ServerStatus is the health indicator state
type ServerStatus string

const (
	ServerChecking ServerStatus = "checking"
	ServerOnline   ServerStatus = "online"
	ServerOffline  ServerStatus = "offline"
	ServerWaking   ServerStatus = "waking"
)

// Options tunes a Coordinator. Zero values fall back to defaults.
type Options struct {
	PollInterval     time.Duration
	HealthInterval   time.Duration
	WakeRecheck      time.Duration
	LoginMaxAttempts int
	LoginLockout     time.Duration
	ArchiveKeep      int
	Archive          Archive
	Logger           *log.Logger
	Now              func() time.Time
}

func (o *Options) setDefaults() {
	if o.PollInterval <= 0 {
		o.PollInterval = time.Second
	}
	if o.HealthInterval <= 0 {
		o.HealthInterval = 60 * time.Second
	}
	if o.WakeRecheck <= 0 {
		o.WakeRecheck = 4 * time.Second
	}
	if o.LoginMaxAttempts <= 0 {
		o.LoginMaxAttempts = 3
	}
	if o.LoginLockout <= 0 {
		o.LoginLockout = 60 * time.Second
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// session is the per-login client state. It is dropped on logout and on
// soft reset and created again by the next intent.
type session struct {
	jobFilters     models.ScrapeFilters // submitted with the last job
	historyFilters models.ScrapeFilters // used by the last history request
	mode           ResultsMode
}

// Coordinator owns the job machine, the filter engine and the session. All
// state sits behind one mutex; network calls run outside it.
type Coordinator struct {
	svc     ScrapeService
	opts    Options
	logger  *log.Logger
	archive Archive

	mu           sync.Mutex
	machine      *job.Machine
	engine       *filter.Engine
	session      *session
	generation   uint64
	lastSet      models.ResultSet
	serverStatus ServerStatus
	authRequired bool
	failedLogins int
	blockedUntil time.Time
	notices      []Notice
	runCtx       context.Context
	wakeTimer    *time.Timer

	group     singleflight.Group
	pollLog   rate.Sometimes
	healthLog rate.Sometimes

	jobPoller    *poller.Ticker
	healthPoller *poller.Ticker
}

// New returns an idle coordinator. Call Run to start polling.
func New(svc ScrapeService, opts Options) *Coordinator {
	opts.setDefaults()

	c := &Coordinator{
		svc:          svc,
		opts:         opts,
		logger:       opts.Logger,
		archive:      opts.Archive,
		machine:      job.NewMachine(),
		engine:       filter.NewEngine(),
		serverStatus: ServerChecking,
		authRequired: !svc.HasToken(),
		pollLog:      rate.Sometimes{First: 1, Interval: 30 * time.Second},
		healthLog:    rate.Sometimes{First: 1, Interval: 5 * time.Minute},
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard)
	}

	c.jobPoller = poller.New(opts.PollInterval, func(ctx context.Context) { c.PollOnce(ctx) }, poller.Immediately())
	c.healthPoller = poller.New(opts.HealthInterval, func(ctx context.Context) { c.CheckHealth(ctx) }, poller.Immediately())
	return c
}

// Run starts the health poller and the job status poller. They stop when
// ctx ends or Close is called.
func (c *Coordinator) Run(ctx context.Context) {
	c.mu.Lock()
	c.runCtx = ctx
	c.mu.Unlock()

	c.healthPoller.Start(ctx)
	c.jobPoller.Start(ctx)
}

// Close stops both pollers and any pending wake recheck
func (c *Coordinator) Close() {
	c.jobPoller.Stop()
	c.healthPoller.Stop()

	c.mu.Lock()
	if c.wakeTimer != nil {
		c.wakeTimer.Stop()
		c.wakeTimer = nil
	}
	c.mu.Unlock()
}

// restartJobPolling restarts the job poller so the first poll of a new job
// happens right away. No-op before Run.
func (c *Coordinator) restartJobPolling() {
	c.mu.Lock()
	ctx := c.runCtx
	c.mu.Unlock()

	if ctx != nil && ctx.Err() == nil {
		c.jobPoller.Start(ctx)
	}
}

// ensureSessionLocked returns the live session, creating one if needed
func (c *Coordinator) ensureSessionLocked() *session {
	if c.session == nil {
		c.session = &session{}
	}
	return c.session
}

// expireLocked tears the session down after a 401
func (c *Coordinator) expireLocked() {
	if c.authRequired {
		return
	}
	c.logger.Warn("Session expired, login required")
	c.authRequired = true
	c.teardownLocked()
	c.notifyLocked(NoticeError, api.ErrUnauthorized.Error())
}

// teardownLocked forgets everything tied to the session
func (c *Coordinator) teardownLocked() {
	c.machine = job.NewMachine()
	c.engine.Load(nil)
	c.session = nil
	c.lastSet = models.ResultSet{}
	c.generation++
}

// handleErrLocked records a failed remote call. It returns true if the
// error expired the session.
func (c *Coordinator) handleErrLocked(err error) bool {
	if errors.Is(err, api.ErrUnauthorized) {
		c.expireLocked()
		return true
	}
	return false
}
