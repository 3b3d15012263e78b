package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/infernoscraper/inferno/internal/api"
	"github.com/infernoscraper/inferno/internal/job"
	"github.com/infernoscraper/inferno/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	mu sync.Mutex

	token     bool
	status    models.Job
	statusErr error
	startResp api.StartResponse
	startErr  error
	fetch     func(mode models.ScrapeMode) ([]models.ResultRecord, error)
	healthErr error
	loginErr  error

	statusCalls  int
	fetchCalls   map[models.ScrapeMode]int
	fetchQuery   map[models.ScrapeMode]models.ScrapeFilters
	loginCalls   int
	cancelCalls  int
	restartCalls int
	wakeCalls    int
	healthCalls  int
	feedback     []string
}

func newFakeService() *fakeService {
	return &fakeService{
		token:      true,
		status:     models.Job{Status: models.JobIdle},
		fetchCalls: map[models.ScrapeMode]int{},
	}
}

func (f *fakeService) setStatus(j models.Job) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = j
	f.statusErr = nil
}

func (f *fakeService) set(fn func(f *fakeService)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeService) calls(fn func(f *fakeService) int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fn(f)
}

func (f *fakeService) StartScrape(ctx context.Context, filters models.ScrapeFilters) (api.StartResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.startResp, f.startErr
}

func (f *fakeService) FetchResults(ctx context.Context, mode models.ScrapeMode, filters models.ScrapeFilters) ([]models.ResultRecord, error) {
	f.mu.Lock()
	f.fetchCalls[mode]++
	if f.fetchQuery == nil {
		f.fetchQuery = make(map[models.ScrapeMode]models.ScrapeFilters)
	}
	f.fetchQuery[mode] = filters
	fn := f.fetch
	f.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(mode)
}

func (f *fakeService) JobStatus(ctx context.Context) (models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	return f.status, f.statusErr
}

func (f *fakeService) Cancel(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelCalls++
	return nil
}

func (f *fakeService) Restart(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restartCalls++
	return nil
}

func (f *fakeService) Health(ctx context.Context) (api.Health, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.healthCalls++
	if f.healthErr != nil {
		return api.Health{}, f.healthErr
	}
	return api.Health{Status: "ok", Uptime: "12"}, nil
}

func (f *fakeService) Wake(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wakeCalls++
	return nil
}

func (f *fakeService) Login(ctx context.Context, password string) (time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginCalls++
	if f.loginErr != nil {
		return 0, f.loginErr
	}
	f.token = true
	return time.Hour, nil
}

func (f *fakeService) AuthStatus(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token, nil
}

func (f *fakeService) Logout(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = false
	return nil
}

func (f *fakeService) SendFeedback(ctx context.Context, keyword string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feedback = append(f.feedback, keyword)
	return nil
}

func (f *fakeService) HasToken() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

type fakeArchive struct {
	mu     sync.Mutex
	saved  []string
	pruned []int
}

func (a *fakeArchive) SaveResultSet(mode, jobID string, records []models.ResultRecord) (models.ResultSet, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.saved = append(a.saved, mode+":"+jobID)
	return models.ResultSet{ID: int64(len(a.saved)), Mode: mode, JobID: jobID, Count: len(records)}, nil
}

func (a *fakeArchive) PruneResultSets(keep int) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pruned = append(a.pruned, keep)
	return 0, nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var (
	latestRecords  = []models.ResultRecord{{URL: "https://x/new-1", Subcat: "Byty"}, {URL: "https://x/new-2", Subcat: "Domy"}}
	historyRecords = []models.ResultRecord{{URL: "https://x/old-1", Subcat: "Byty"}}
	testFilters    = models.ScrapeFilters{Subcategories: []string{"Byty", "Domy"}}
)

func newTestCoordinator(t *testing.T, svc *fakeService, mutate ...func(*Options)) (*Coordinator, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)}
	opts := Options{Now: clock.Now}
	for _, m := range mutate {
		m(&opts)
	}
	c := New(svc, opts)
	t.Cleanup(c.Close)
	return c, clock
}

func defaultFetch(mode models.ScrapeMode) ([]models.ResultRecord, error) {
	if mode == models.ModeOld {
		return historyRecords, nil
	}
	return latestRecords, nil
}

// startJob starts a job the fake service accepts as "srv-1"
func startJob(t *testing.T, c *Coordinator, svc *fakeService) {
	t.Helper()
	svc.set(func(f *fakeService) {
		f.startResp = api.StartResponse{Job: models.Job{StartedAt: "srv-1", Status: models.JobRunning, Phase: "1/5 Zber sitemap", Done: 1, Total: 4}}
		f.startErr = nil
	})
	require.NoError(t, c.StartNew(context.Background(), testFilters))
}

func urls(records []models.ResultRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.URL)
	}
	return out
}

func messages(notices []Notice, kind NoticeKind) []string {
	var out []string
	for _, n := range notices {
		if n.Kind == kind {
			out = append(out, n.Message)
		}
	}
	return out
}

func TestStartNew_CompletionFetchesOnce(t *testing.T) {
	svc := newFakeService()
	svc.fetch = defaultFetch
	archive := &fakeArchive{}
	c, _ := newTestCoordinator(t, svc, func(o *Options) {
		o.Archive = archive
		o.ArchiveKeep = 5
	})
	ctx := context.Background()

	startJob(t, c, svc)
	snap := c.Snapshot()
	assert.Equal(t, models.JobRunning, snap.Status)
	assert.Equal(t, "srv-1", snap.JobID)
	assert.Equal(t, "Sitemapy stiahnuté: 1/4", snap.Counter)
	assert.Equal(t, ResultsLatest, c.ResultsMode())

	svc.setStatus(models.Job{StartedAt: "srv-1", Status: models.JobFinished, ResultsReady: true, LastCount: 2})
	c.PollOnce(ctx)
	c.PollOnce(ctx)
	c.PollOnce(ctx)

	assert.Equal(t, 1, svc.calls(func(f *fakeService) int { return f.fetchCalls[models.ModeLatest] }))
	assert.Equal(t, urls(latestRecords), urls(c.Results()))
	assert.Equal(t, models.JobFinished, c.Snapshot().Status)
	assert.Equal(t, 100, c.Snapshot().ProgressPercent)

	assert.Equal(t, []string{"latest:srv-1"}, archive.saved)
	assert.Equal(t, []int{5}, archive.pruned)
	assert.Equal(t, int64(1), c.LastResultSet().ID)
}

func TestStartNew_WhileActive(t *testing.T) {
	svc := newFakeService()
	c, _ := newTestCoordinator(t, svc)

	startJob(t, c, svc)
	err := c.StartNew(context.Background(), testFilters)
	assert.ErrorIs(t, err, ErrJobActive)
	assert.Equal(t, "srv-1", c.Snapshot().JobID)
}

func TestStartNew_AlreadyRunningOnServer(t *testing.T) {
	svc := newFakeService()
	svc.fetch = defaultFetch
	svc.startErr = fmt.Errorf("%w: Zber už prebieha.", api.ErrJobInProgress)
	svc.startResp = api.StartResponse{Job: models.Job{StartedAt: "srv-9", Status: models.JobRunning, Done: 3, Total: 10}}
	c, _ := newTestCoordinator(t, svc)
	ctx := context.Background()

	require.NoError(t, c.StartNew(ctx, testFilters))
	snap := c.Snapshot()
	assert.Equal(t, models.JobRunning, snap.Status)
	assert.Equal(t, "srv-9", snap.JobID)
	assert.Equal(t, 30, snap.ProgressPercent)
	assert.Contains(t, messages(c.DrainNotices(), NoticeInfo), job.AlreadyRunningNotice)

	svc.setStatus(models.Job{StartedAt: "srv-9", Status: models.JobFinished, ResultsReady: true})
	c.PollOnce(ctx)
	assert.Equal(t, urls(latestRecords), urls(c.Results()))
}

func TestStartNew_Failure(t *testing.T) {
	svc := newFakeService()
	svc.startErr = &api.APIError{Status: 500, Message: "boom"}
	c, _ := newTestCoordinator(t, svc)

	err := c.StartNew(context.Background(), testFilters)
	require.Error(t, err)

	snap := c.Snapshot()
	assert.Equal(t, models.JobIdle, snap.Status)
	assert.NotEmpty(t, snap.Error)
	assert.Len(t, messages(c.DrainNotices(), NoticeError), 1)
}

func TestLoadPrevious_DiscardedByStartNew(t *testing.T) {
	svc := newFakeService()
	entered := make(chan struct{})
	release := make(chan struct{})
	svc.fetch = func(mode models.ScrapeMode) ([]models.ResultRecord, error) {
		if mode == models.ModeOld {
			close(entered)
			<-release
			return historyRecords, nil
		}
		return latestRecords, nil
	}
	c, _ := newTestCoordinator(t, svc)
	ctx := context.Background()

	errc := make(chan error, 1)
	go func() { errc <- c.LoadPrevious(ctx, testFilters) }()
	<-entered

	startJob(t, c, svc)
	close(release)

	assert.ErrorIs(t, <-errc, ErrSuperseded)
	assert.Empty(t, c.AllResults())
	assert.Equal(t, ResultsLatest, c.ResultsMode())

	svc.setStatus(models.Job{StartedAt: "srv-1", Status: models.JobFinished, ResultsReady: true})
	c.PollOnce(ctx)
	assert.Equal(t, urls(latestRecords), urls(c.Results()))
}

func TestCompletionFetch_DiscardedByLoadPrevious(t *testing.T) {
	svc := newFakeService()
	c, _ := newTestCoordinator(t, svc)
	ctx := context.Background()
	startJob(t, c, svc)

	entered := make(chan struct{})
	release := make(chan struct{})
	svc.set(func(f *fakeService) {
		f.fetch = func(mode models.ScrapeMode) ([]models.ResultRecord, error) {
			if mode == models.ModeLatest {
				close(entered)
				<-release
				return latestRecords, nil
			}
			return historyRecords, nil
		}
	})
	svc.setStatus(models.Job{StartedAt: "srv-1", Status: models.JobFinished, ResultsReady: true})

	done := make(chan struct{})
	go func() {
		c.PollOnce(ctx)
		close(done)
	}()
	<-entered

	require.NoError(t, c.LoadPrevious(ctx, testFilters))
	close(release)
	<-done

	assert.Equal(t, urls(historyRecords), urls(c.Results()))
	assert.Equal(t, ResultsHistory, c.ResultsMode())
}

func TestCompletion_AfterSwitchingToHistory(t *testing.T) {
	svc := newFakeService()
	svc.fetch = defaultFetch
	c, _ := newTestCoordinator(t, svc)
	ctx := context.Background()

	startJob(t, c, svc)
	require.NoError(t, c.LoadPrevious(ctx, testFilters))
	c.DrainNotices()

	svc.setStatus(models.Job{StartedAt: "srv-1", Status: models.JobFinished, ResultsReady: true})
	c.PollOnce(ctx)

	assert.Zero(t, svc.calls(func(f *fakeService) int { return f.fetchCalls[models.ModeLatest] }))
	assert.Equal(t, urls(historyRecords), urls(c.Results()))
	assert.Len(t, messages(c.DrainNotices(), NoticeInfo), 1)

	require.NoError(t, c.LoadLatest(ctx))
	assert.Equal(t, urls(latestRecords), urls(c.Results()))
	assert.Equal(t, ResultsLatest, c.ResultsMode())
}

func TestLoadLatest_UsesJobFiltersAfterHistory(t *testing.T) {
	svc := newFakeService()
	svc.fetch = defaultFetch
	c, _ := newTestCoordinator(t, svc)
	ctx := context.Background()

	startJob(t, c, svc)
	history := models.ScrapeFilters{Subcategories: []string{"Garáže"}}
	require.NoError(t, c.LoadPrevious(ctx, history))
	assert.Equal(t, history, c.Filters())

	svc.setStatus(models.Job{StartedAt: "srv-1", Status: models.JobFinished, ResultsReady: true})
	c.PollOnce(ctx)

	require.NoError(t, c.LoadLatest(ctx))
	svc.mu.Lock()
	assert.Equal(t, testFilters, svc.fetchQuery[models.ModeLatest])
	assert.Equal(t, history, svc.fetchQuery[models.ModeOld])
	svc.mu.Unlock()
	assert.Equal(t, testFilters, c.Filters())
}

func TestCancel_ZeroesProgressBeforePoll(t *testing.T) {
	svc := newFakeService()
	c, _ := newTestCoordinator(t, svc)
	ctx := context.Background()
	startJob(t, c, svc)

	require.NoError(t, c.Cancel(ctx))
	snap := c.Snapshot()
	assert.Equal(t, models.JobCancelled, snap.Status)
	assert.Zero(t, snap.Done)
	assert.Zero(t, snap.Total)
	assert.Zero(t, snap.ProgressPercent)
	assert.Equal(t, 1, svc.calls(func(f *fakeService) int { return f.cancelCalls }))

	svc.setStatus(models.Job{StartedAt: "srv-1", Status: models.JobRunning, Done: 3, Total: 4})
	c.PollOnce(ctx)
	assert.Equal(t, models.JobCancelled, c.Snapshot().Status)
	assert.Zero(t, c.Snapshot().Done)

	svc.setStatus(models.Job{StartedAt: "srv-1", Status: models.JobFinished, ResultsReady: true})
	c.PollOnce(ctx)
	assert.Zero(t, svc.calls(func(f *fakeService) int { return f.fetchCalls[models.ModeLatest] }))
}

func TestFailedJob_NotifiesOnce(t *testing.T) {
	svc := newFakeService()
	c, _ := newTestCoordinator(t, svc)
	ctx := context.Background()
	startJob(t, c, svc)
	c.DrainNotices()

	svc.setStatus(models.Job{StartedAt: "srv-1", Status: models.JobFailed, Error: "Server spadol"})
	c.PollOnce(ctx)
	c.PollOnce(ctx)

	assert.Equal(t, []string{"Server spadol"}, messages(c.DrainNotices(), NoticeError))
	assert.Equal(t, models.JobFailed, c.Snapshot().Status)
}

func TestSoftReset_IgnoresDismissedJob(t *testing.T) {
	svc := newFakeService()
	svc.fetch = defaultFetch
	c, _ := newTestCoordinator(t, svc)
	ctx := context.Background()
	startJob(t, c, svc)

	c.SoftReset()
	assert.Equal(t, models.JobIdle, c.Snapshot().Status)
	assert.Equal(t, ResultsNone, c.ResultsMode())

	svc.setStatus(models.Job{StartedAt: "srv-1", Status: models.JobRunning, Done: 2, Total: 4})
	c.PollOnce(ctx)
	assert.Equal(t, models.JobIdle, c.Snapshot().Status)

	svc.setStatus(models.Job{StartedAt: "srv-2", Status: models.JobRunning, Done: 1, Total: 4})
	c.PollOnce(ctx)
	assert.Equal(t, models.JobRunning, c.Snapshot().Status)
	assert.Equal(t, "srv-2", c.Snapshot().JobID)
}

func TestRestart_EndsIdle(t *testing.T) {
	svc := newFakeService()
	c, _ := newTestCoordinator(t, svc)
	ctx := context.Background()
	startJob(t, c, svc)

	require.NoError(t, c.Restart(ctx))
	assert.Equal(t, models.JobIdle, c.Snapshot().Status)
	assert.Equal(t, 1, svc.calls(func(f *fakeService) int { return f.restartCalls }))

	svc.setStatus(models.Job{StartedAt: "srv-1", Status: models.JobFailed, Error: "restart"})
	c.PollOnce(ctx)
	assert.Equal(t, models.JobIdle, c.Snapshot().Status)
}

func TestUnauthorized_TearsDownSession(t *testing.T) {
	svc := newFakeService()
	c, _ := newTestCoordinator(t, svc)
	ctx := context.Background()
	startJob(t, c, svc)
	c.DrainNotices()

	svc.set(func(f *fakeService) { f.statusErr = api.ErrUnauthorized })
	c.PollOnce(ctx)

	assert.True(t, c.AuthRequired())
	assert.Equal(t, models.JobIdle, c.Snapshot().Status)
	assert.Equal(t, ResultsNone, c.ResultsMode())
	assert.Equal(t, []string{api.ErrUnauthorized.Error()}, messages(c.DrainNotices(), NoticeError))

	assert.ErrorIs(t, c.StartNew(ctx, testFilters), ErrNotAuthenticated)
	assert.ErrorIs(t, c.LoadPrevious(ctx, testFilters), ErrNotAuthenticated)

	calls := svc.calls(func(f *fakeService) int { return f.statusCalls })
	c.PollOnce(ctx)
	assert.Equal(t, calls, svc.calls(func(f *fakeService) int { return f.statusCalls }), "no polling without a session")

	require.NoError(t, c.Login(ctx, "heslo"))
	assert.False(t, c.AuthRequired())
}

func TestLogin_Lockout(t *testing.T) {
	svc := newFakeService()
	svc.token = false
	svc.loginErr = api.ErrInvalidPassword
	c, clock := newTestCoordinator(t, svc)
	ctx := context.Background()
	require.True(t, c.AuthRequired())

	assert.ErrorIs(t, c.Login(ctx, "a"), api.ErrInvalidPassword)
	assert.ErrorIs(t, c.Login(ctx, "b"), api.ErrInvalidPassword)
	assert.ErrorIs(t, c.Login(ctx, "c"), ErrLoginBlocked)
	assert.ErrorIs(t, c.Login(ctx, "d"), ErrLoginBlocked)
	assert.Equal(t, 3, svc.calls(func(f *fakeService) int { return f.loginCalls }))
	assert.Equal(t, 60*time.Second, c.LoginBlockedFor())

	clock.Advance(61 * time.Second)
	assert.Zero(t, c.LoginBlockedFor())

	svc.set(func(f *fakeService) { f.loginErr = nil })
	require.NoError(t, c.Login(ctx, "správne"))
	assert.False(t, c.AuthRequired())
}

func TestLogin_EmptyPassword(t *testing.T) {
	svc := newFakeService()
	c, _ := newTestCoordinator(t, svc)
	assert.Error(t, c.Login(context.Background(), "  "))
	assert.Zero(t, svc.calls(func(f *fakeService) int { return f.loginCalls }))
}

func TestLogout(t *testing.T) {
	svc := newFakeService()
	svc.fetch = defaultFetch
	c, _ := newTestCoordinator(t, svc)
	ctx := context.Background()
	require.NoError(t, c.LoadPrevious(ctx, testFilters))
	require.NotEmpty(t, c.AllResults())

	require.NoError(t, c.Logout(ctx))
	assert.True(t, c.AuthRequired())
	assert.Empty(t, c.AllResults())
	assert.False(t, svc.HasToken())

	ok, err := c.CheckAuth(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHealthAndWake(t *testing.T) {
	svc := newFakeService()
	svc.healthErr = errors.New("connection refused")
	c, _ := newTestCoordinator(t, svc, func(o *Options) { o.WakeRecheck = 200 * time.Millisecond })
	ctx := context.Background()

	assert.Equal(t, ServerChecking, c.ServerStatus())
	assert.Equal(t, ServerOffline, c.CheckHealth(ctx))

	svc.set(func(f *fakeService) { f.healthErr = nil })
	c.Wake(ctx)
	assert.Equal(t, ServerWaking, c.ServerStatus())
	assert.Equal(t, 1, svc.calls(func(f *fakeService) int { return f.wakeCalls }))

	assert.Eventually(t, func() bool { return c.ServerStatus() == ServerOnline }, 2*time.Second, 10*time.Millisecond)
}

func TestResultFilters(t *testing.T) {
	svc := newFakeService()
	svc.fetch = func(models.ScrapeMode) ([]models.ResultRecord, error) { return latestRecords, nil }
	c, _ := newTestCoordinator(t, svc)
	require.NoError(t, c.LoadLatest(context.Background()))

	assert.Equal(t, []string{"Byty", "Domy"}, c.Facets().Subcategories)

	c.ToggleSubcategory("Domy")
	assert.Equal(t, []string{"https://x/new-2"}, urls(c.Results()))
	assert.Len(t, c.AllResults(), 2)

	c.ResetFilters()
	assert.Len(t, c.Results(), 2)
	assert.True(t, c.Selection().IsEmpty())
}

func TestSendFeedback(t *testing.T) {
	svc := newFakeService()
	c, _ := newTestCoordinator(t, svc)

	require.NoError(t, c.SendFeedback(context.Background(), "mezonet"))
	assert.Equal(t, []string{"mezonet"}, svc.feedback)
	assert.Len(t, messages(c.DrainNotices(), NoticeSuccess), 1)
}

func TestRun_PollsUntilClosed(t *testing.T) {
	svc := newFakeService()
	c, _ := newTestCoordinator(t, svc, func(o *Options) { o.PollInterval = 5 * time.Millisecond })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Run(ctx)

	assert.Eventually(t, func() bool {
		return svc.calls(func(f *fakeService) int { return f.statusCalls }) >= 3
	}, 2*time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return c.ServerStatus() == ServerOnline }, 2*time.Second, 5*time.Millisecond)

	c.Close()
	n := svc.calls(func(f *fakeService) int { return f.statusCalls })
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, n, svc.calls(func(f *fakeService) int { return f.statusCalls }))
}

func TestDrainNotices_Caps(t *testing.T) {
	svc := newFakeService()
	c, _ := newTestCoordinator(t, svc)

	c.mu.Lock()
	for i := 0; i < maxNotices+10; i++ {
		c.notifyLocked(NoticeInfo, fmt.Sprintf("n%d", i))
	}
	c.mu.Unlock()

	notices := c.DrainNotices()
	require.Len(t, notices, maxNotices)
	assert.Equal(t, "n10", notices[0].Message)
	assert.Empty(t, c.DrainNotices())
}
