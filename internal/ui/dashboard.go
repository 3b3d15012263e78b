package ui

// dashboard.go is the main screen: job progress, server health and the
// filtered result table. Quick intents run as commands against the
// Controller; intents that need a form return an Action to the caller.

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/infernoscraper/inferno/internal/coordinator"
	"github.com/infernoscraper/inferno/internal/export"
	"github.com/infernoscraper/inferno/internal/job"
	"github.com/infernoscraper/inferno/internal/models"
)

// Controller is what the dashboard needs from the coordinator
type Controller interface {
	Snapshot() job.Snapshot
	Results() []models.ResultRecord
	AllResults() []models.ResultRecord
	Selection() models.FilterSelection
	Facets() models.FilterFacets
	ResultsMode() coordinator.ResultsMode
	ServerStatus() coordinator.ServerStatus
	AuthRequired() bool
	DrainNotices() []coordinator.Notice

	Cancel(ctx context.Context) error
	SoftReset()
	Wake(ctx context.Context)
	LoadLatest(ctx context.Context) error
	SetNewOnly(on bool) error
	ClearDateFilter()
	ResetFilters()
}

// Action tells the caller what to do after the dashboard exits
type Action int

const (
	ActionQuit Action = iota
	ActionNewJob
	ActionPrevious
	ActionFacets
	ActionDateRange
	ActionFeedback
	ActionRestart
	ActionLogout
	ActionLogin
)

const (
	refreshInterval = 250 * time.Millisecond
	statusDuration  = 6 * time.Second
	helpText        = "n nový zber • p história • l posledné • c zrušiť • x reset • r reštart • w zobudiť • f filtre • t dátum • h len nové • z bez filtrov • d uložiť • k spätná väzba • o odhlásiť • q koniec"
)

type refreshMsg time.Time

type intentDoneMsg struct {
	label string
	err   error
}

// DashboardModel is the bubbletea model of the main screen
type DashboardModel struct {
	PageState

	ctx          context.Context
	ctrl         Controller
	downloadPath string

	table    table.Model
	progress progress.Model
	spinner  spinner.Model

	snapshot job.Snapshot
	shown    int
	total    int
	server   coordinator.ServerStatus
	mode     coordinator.ResultsMode
	sel      models.FilterSelection
	rowsKey  string
	busy     string
	action   Action
}

// NewDashboard builds the dashboard. downloadPath is where d saves the
// filtered URLs.
func NewDashboard(ctx context.Context, ctrl Controller, downloadPath string) DashboardModel {
	layout := DefaultLayout()
	m := DashboardModel{
		PageState:    NewPageState(layout),
		ctx:          ctx,
		ctrl:         ctrl,
		downloadPath: downloadPath,
		table:        InitTable(CalculateColumns(ResultColumns(), layout.TableWidth), nil, layout),
		progress:     progress.New(progress.WithSolidFill(string(ColorAccentDim)), progress.WithWidth(layout.InnerWidth-20)),
		spinner:      NewAppSpinner(),
	}
	m.refresh()
	return m
}

// Action returns what the user chose when the dashboard exited
func (m DashboardModel) Action() Action { return m.action }

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

func (m DashboardModel) Init() tea.Cmd {
	return tea.Batch(tea.WindowSize(), tick(), m.spinner.Tick)
}

// run executes a blocking intent off the update loop
func (m *DashboardModel) run(label string, fn func(ctx context.Context) error) tea.Cmd {
	m.busy = label
	ctx := m.ctx
	return func() tea.Msg {
		return intentDoneMsg{label: label, err: fn(ctx)}
	}
}

func (m DashboardModel) exit(a Action) (tea.Model, tea.Cmd) {
	m.action = a
	m.Quitting = true
	return m, tea.Quit
}

func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if m.UpdateLayout(msg.Width, msg.Height) {
			m.resize()
		}
		return m, nil

	case refreshMsg:
		m.ClearExpiredStatus()
		m.refresh()
		if m.ctrl.AuthRequired() {
			return m.exit(ActionLogin)
		}
		return m, tick()

	case intentDoneMsg:
		m.busy = ""
		if msg.err != nil && !errors.Is(msg.err, coordinator.ErrSuperseded) {
			m.SetStatus(fmt.Sprintf("%s: %v", msg.label, msg.err), StatusError, statusDuration)
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m DashboardModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m.exit(ActionQuit)
	case "n":
		if m.snapshot.Status.IsActive() {
			m.SetStatus("Zber už beží.", StatusInfo, statusDuration)
			return m, nil
		}
		return m.exit(ActionNewJob)
	case "p":
		return m.exit(ActionPrevious)
	case "f":
		if len(m.ctrl.AllResults()) == 0 {
			m.SetStatus("Najprv načítaj výsledky.", StatusInfo, statusDuration)
			return m, nil
		}
		return m.exit(ActionFacets)
	case "t":
		if len(m.ctrl.AllResults()) == 0 {
			m.SetStatus("Najprv načítaj výsledky.", StatusInfo, statusDuration)
			return m, nil
		}
		return m.exit(ActionDateRange)
	case "k":
		return m.exit(ActionFeedback)
	case "r":
		return m.exit(ActionRestart)
	case "o":
		return m.exit(ActionLogout)
	}

	if m.busy != "" {
		switch msg.String() {
		case "c", "l", "w":
			m.SetStatus("Počkaj na dokončenie: "+m.busy, StatusInfo, statusDuration)
			return m, nil
		}
	}

	switch msg.String() {
	case "c":
		return m, m.run("Zrušenie", m.ctrl.Cancel)
	case "l":
		return m, m.run("Načítanie posledných výsledkov", m.ctrl.LoadLatest)
	case "w":
		return m, m.run("Prebúdzanie", func(ctx context.Context) error {
			m.ctrl.Wake(ctx)
			return nil
		})
	case "x":
		m.ctrl.SoftReset()
		m.SetStatus("Stav vynulovaný.", StatusInfo, statusDuration)
	case "h":
		if err := m.ctrl.SetNewOnly(!m.sel.NewOnly); err != nil {
			m.SetStatus(err.Error(), StatusError, statusDuration)
		}
	case "z":
		m.ctrl.ResetFilters()
		m.SetStatus("Filtre zrušené.", StatusInfo, statusDuration)
	case "esc":
		m.ctrl.ClearDateFilter()
	case "d":
		m.download()
	case "enter":
		if row := m.table.SelectedRow(); len(row) > 1 {
			if err := openURL(row[1]); err != nil {
				m.SetStatus(err.Error(), StatusError, statusDuration)
			}
		}
		return m, nil
	default:
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}
	m.refresh()
	return m, nil
}

func (m *DashboardModel) download() {
	records := m.ctrl.Results()
	if len(records) == 0 {
		m.SetStatus("Nie je čo uložiť.", StatusInfo, statusDuration)
		return
	}
	if err := export.SaveFile(m.downloadPath, export.FormatFor(m.downloadPath), records); err != nil {
		m.SetStatus(err.Error(), StatusError, statusDuration)
		return
	}
	m.SetStatus(fmt.Sprintf("Uložených %d odkazov do %s", len(records), m.downloadPath), StatusSuccess, statusDuration)
}

// refresh pulls state from the controller
func (m *DashboardModel) refresh() {
	m.snapshot = m.ctrl.Snapshot()
	m.server = m.ctrl.ServerStatus()
	m.mode = m.ctrl.ResultsMode()
	m.sel = m.ctrl.Selection()

	for _, n := range m.ctrl.DrainNotices() {
		kind := StatusInfo
		switch n.Kind {
		case coordinator.NoticeSuccess:
			kind = StatusSuccess
		case coordinator.NoticeError:
			kind = StatusError
		}
		m.SetStatus(n.Message, kind, statusDuration)
	}

	view := m.ctrl.Results()
	m.shown = len(view)
	m.total = len(m.ctrl.AllResults())

	key := rowsKey(view)
	if key != m.rowsKey {
		m.rowsKey = key
		m.table.SetRows(ResultRows(view))
		if m.table.Cursor() >= len(view) {
			m.table.GotoTop()
		}
	}
}

// rowsKey identifies a result view cheaply enough to run on every refresh
func rowsKey(records []models.ResultRecord) string {
	if len(records) == 0 {
		return "0"
	}
	return fmt.Sprintf("%d|%s|%s", len(records), records[0].URL, records[len(records)-1].URL)
}

func (m *DashboardModel) resize() {
	m.table.SetColumns(CalculateColumns(ResultColumns(), m.Layout.TableWidth))
	m.table.SetHeight(m.Layout.TableHeight)
	m.progress.Width = m.Layout.InnerWidth - 20
}

func (m DashboardModel) View() string {
	if m.Quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(ViewHeader("INFERNO", m.serverBadge(), m.Layout.InnerWidth))
	b.WriteString(m.jobView())
	b.WriteString("\n")
	b.WriteString(FullWidthDivider(m.Layout.InnerWidth))
	b.WriteString("\n")
	b.WriteString(m.resultsSummary())
	b.WriteString("\n")
	b.WriteString(RenderTableWithSelection(m.table, m.Layout))
	b.WriteString("\n")

	switch {
	case m.busy != "":
		b.WriteString(m.spinner.View() + " " + RenderNormal(m.busy+"..."))
	case m.HasStatus():
		b.WriteString(m.RenderStatus())
	}

	return BuildTwoBoxView(b.String(), helpText, m.Layout)
}

func (m DashboardModel) serverBadge() string {
	switch m.server {
	case coordinator.ServerOnline:
		return SuccessStyle.Render("● server online")
	case coordinator.ServerOffline:
		return ErrorStyle.Render("● server offline (w = zobudiť)")
	case coordinator.ServerWaking:
		return AccentStyle.Render("● server sa prebúdza")
	}
	return RenderDim("● overujem server")
}

var statusNames = map[models.JobStatus]string{
	models.JobIdle:       "Pripravené",
	models.JobStarting:   "Spúšťa sa",
	models.JobRunning:    "Beží",
	models.JobFinished:   "Dokončené",
	models.JobFailed:     "Zlyhalo",
	models.JobCancelled:  "Zrušené",
	models.JobRestarting: "Reštartuje sa",
}

func (m DashboardModel) jobView() string {
	s := m.snapshot

	var b strings.Builder
	b.WriteString(RenderAccent(statusNames[s.Status]))
	if s.Counter != "" {
		b.WriteString("  " + ProgressStyle.Render(s.Counter))
	} else if s.Label != "" {
		b.WriteString("  " + RenderNormal(s.Label))
	}
	if s.LastCount > 0 {
		b.WriteString("  " + RenderDim(fmt.Sprintf("posledný zber: %d inzerátov", s.LastCount)))
	}
	if s.Status == models.JobFailed && s.Error != "" {
		b.WriteString("  " + ErrorStyle.Render(s.Error))
	}
	b.WriteString("\n")
	b.WriteString(m.progress.ViewAs(float64(s.ProgressPercent) / 100))
	return b.String()
}

func (m DashboardModel) resultsSummary() string {
	var mode string
	switch m.mode {
	case coordinator.ResultsLatest:
		mode = "posledný zber"
	case coordinator.ResultsHistory:
		mode = "história"
	default:
		return RenderHint("Žiadne výsledky. n = nový zber, p = história, l = posledné výsledky")
	}

	parts := []string{fmt.Sprintf("Výsledky (%s): %d / %d", mode, m.shown, m.total)}
	if f := describeSelection(m.sel); f != "" {
		parts = append(parts, RenderDim("filtre: "+f))
	}
	return RenderNormal(strings.Join(parts, "  "))
}

func describeSelection(sel models.FilterSelection) string {
	var parts []string
	if n := len(sel.Subcategories); n > 0 {
		parts = append(parts, fmt.Sprintf("kategórie %d", n))
	}
	if n := len(sel.Cities); n > 0 {
		parts = append(parts, fmt.Sprintf("mestá %d", n))
	}
	if n := len(sel.Zips); n > 0 {
		parts = append(parts, fmt.Sprintf("PSČ %d", n))
	}
	switch {
	case sel.NewOnly:
		parts = append(parts, "len nové")
	case !sel.StartDay.IsZero() || !sel.EndDay.IsZero():
		parts = append(parts, "dátum")
	}
	return strings.Join(parts, ", ")
}

// RunDashboard shows the dashboard until the user picks an action
func RunDashboard(ctx context.Context, ctrl Controller, downloadPath string) (Action, error) {
	p := tea.NewProgram(NewDashboard(ctx, ctrl, downloadPath), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return ActionQuit, err
	}
	if m, ok := final.(DashboardModel); ok {
		return m.Action(), nil
	}
	return ActionQuit, nil
}
