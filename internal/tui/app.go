package tui

import (
	"context"
	"strings"

	"arc/internal/history"
	"arc/internal/retriever"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultAppWidth         = 100
	defaultEvidenceWidth    = 36
	minimumTimelineWidth    = 40
	minimumEvidenceVisible  = 22
	runStatusCompletedLabel = "completed"
	runStatusErrorLabel     = "error"
)

// Controller drives retrieval runs on behalf of the UI.
type Controller interface {
	Submit(ctx context.Context, query string)
	Reset()
	Snapshot() retriever.Snapshot
	Updates() <-chan retriever.Snapshot
}

// AppConfig configures the root BubbleTea model.
type AppConfig struct {
	Version      string
	BackendURL   string
	Tenant       string
	ThemeName    string
	ShowEvidence bool
	Controller   Controller
	History      *history.Store
	Logger       zerolog.Logger
}

type snapshotMsg struct {
	Snapshot retriever.Snapshot
	Closed   bool
}

// App is the root TUI model.
type App struct {
	theme        Theme
	showEvidence bool
	controller   Controller
	history      *history.Store
	log          zerolog.Logger

	width  int
	height int

	status   StatusModel
	timeline TimelineModel
	input    InputModel
	evidence EvidencePanel

	// recordedQuery marks the query whose outcome was already persisted,
	// so coalesced snapshots do not produce duplicate history records.
	recordedQuery string
}

// NewApp constructs the root TUI model with defaults.
func NewApp(cfg AppConfig) *App {
	model := &App{
		theme:        ResolveTheme(cfg.ThemeName),
		showEvidence: cfg.ShowEvidence,
		controller:   cfg.Controller,
		history:      cfg.History,
		log:          cfg.Logger,
		status:       NewStatusModel(cfg.Version, cfg.BackendURL, cfg.Tenant),
		timeline:     NewTimelineModel(),
		input:        NewInputModel("?", "Ask a question and press Enter"),
		evidence:     NewEvidencePanel(),
	}

	if model.width == 0 {
		model.width = defaultAppWidth
	}
	return model
}

// Init arms the snapshot reader.
func (m *App) Init() tea.Cmd {
	if m.controller == nil {
		return nil
	}
	return readUpdateCommand(m.controller.Updates())
}

// Update applies state changes from user input and run snapshots.
func (m *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.timeline.SetViewportHeight(m.timelineViewportHeight())
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q":
			if strings.TrimSpace(m.input.Value()) == "" && !m.isLoading() {
				return m, tea.Quit
			}
		case "esc":
			if m.controller != nil && m.canReset() {
				m.controller.Reset()
				m.applySnapshot(m.controller.Snapshot())
			}
			return m, nil
		}

		if m.handleScrollKey(msg) {
			return m, nil
		}

		if submitted := m.input.HandleKey(msg); submitted {
			query := strings.TrimSpace(m.input.Value())
			m.input.Remember(query)
			m.input.Clear()
			m.submitQuery(query)
		}
		return m, nil

	case snapshotMsg:
		if msg.Closed {
			return m, nil
		}
		m.applySnapshot(msg.Snapshot)
		if m.controller != nil {
			return m, readUpdateCommand(m.controller.Updates())
		}
		return m, nil
	}

	return m, nil
}

// View renders status bar, timeline, optional evidence panel, and input.
func (m *App) View() string {
	width := m.width
	if width <= 0 {
		width = defaultAppWidth
	}

	statusLine := m.status.Render(width, m.theme)
	body := m.renderBody(width)
	inputLine := m.input.Render(width, m.theme)
	return strings.Join([]string{statusLine, body, inputLine}, "\n")
}

func (m *App) submitQuery(query string) {
	if m.controller == nil {
		return
	}
	if query == "" {
		// Bare Enter retries a failed run with its original query.
		snapshot := m.controller.Snapshot()
		if snapshot.Status != retriever.StatusError {
			return
		}
		query = strings.TrimSpace(snapshot.Query)
		if query == "" {
			return
		}
	}
	m.controller.Submit(context.Background(), query)
	m.applySnapshot(m.controller.Snapshot())
}

func (m *App) applySnapshot(snapshot retriever.Snapshot) {
	m.status.SetFromSnapshot(snapshot)
	m.timeline.SetViewportHeight(m.timelineViewportHeight())
	m.timeline.SetFromSnapshot(snapshot)
	m.evidence.SetFromSnapshot(snapshot)
	m.recordOutcome(snapshot)
}

func (m *App) recordOutcome(snapshot retriever.Snapshot) {
	if m.history == nil {
		return
	}
	query := strings.TrimSpace(snapshot.Query)
	if query == "" {
		return
	}
	if snapshot.Status == retriever.StatusLoading {
		// A new attempt invalidates the dedup mark so a retried query
		// records its own outcome.
		m.recordedQuery = ""
		return
	}
	if query == m.recordedQuery {
		return
	}

	record := history.Record{
		ID:        uuid.NewString(),
		Query:     query,
		StepCount: len(snapshot.Steps),
	}
	switch {
	case snapshot.Status == retriever.StatusIdle && snapshot.Result != nil:
		record.Status = runStatusCompletedLabel
		record.Answer = snapshot.Result.Text
		record.SourceCount = len(snapshot.Result.Evidence)
	case snapshot.Status == retriever.StatusError:
		record.Status = runStatusErrorLabel
		record.Error = snapshot.Err
	default:
		return
	}

	if err := m.history.Append(context.Background(), history.Today(), record); err != nil {
		m.log.Warn().Err(err).Msg("record run outcome")
		return
	}
	m.recordedQuery = query
}

func (m *App) isLoading() bool {
	if m.controller == nil {
		return false
	}
	return m.controller.Snapshot().Status == retriever.StatusLoading
}

func (m *App) canReset() bool {
	if m.controller == nil {
		return false
	}
	status := m.controller.Snapshot().Status
	return status == retriever.StatusLoading || status == retriever.StatusError
}

func readUpdateCommand(updates <-chan retriever.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snapshot, ok := <-updates
		if !ok {
			return snapshotMsg{Closed: true}
		}
		return snapshotMsg{Snapshot: snapshot}
	}
}

func (m *App) renderBody(width int) string {
	m.timeline.SetViewportHeight(m.timelineViewportHeight())

	if !m.showEvidence {
		return m.timeline.Render(width, m.theme)
	}

	evidenceWidth := defaultEvidenceWidth
	if width/3 < evidenceWidth {
		evidenceWidth = width / 3
	}
	if evidenceWidth < minimumEvidenceVisible {
		evidenceWidth = minimumEvidenceVisible
	}

	timelineWidth := width - evidenceWidth - 1
	if timelineWidth < minimumTimelineWidth {
		timelineWidth = minimumTimelineWidth
		evidenceWidth = width - timelineWidth - 1
		if evidenceWidth < 0 {
			evidenceWidth = 0
		}
	}

	timelineView := m.timeline.Render(timelineWidth, m.theme)
	if evidenceWidth <= 0 {
		return timelineView
	}

	evidenceView := m.evidence.Render(evidenceWidth, m.theme)
	return lipgloss.JoinHorizontal(lipgloss.Top, timelineView, evidenceView)
}

func (m *App) handleScrollKey(msg tea.KeyMsg) bool {
	switch msg.Type {
	case tea.KeyUp:
		m.timeline.ScrollUp(1)
		return true
	case tea.KeyDown:
		m.timeline.ScrollDown(1)
		return true
	case tea.KeyPgUp:
		m.timeline.PageUp()
		return true
	case tea.KeyPgDown:
		m.timeline.PageDown()
		return true
	case tea.KeyHome:
		m.timeline.ScrollToTop()
		return true
	case tea.KeyEnd:
		m.timeline.ScrollToBottom()
		return true
	default:
		return false
	}
}

func (m *App) timelineViewportHeight() int {
	if m.height <= 0 {
		return 0
	}

	const nonBodyRows = 2 // status + input
	bodyHeight := m.height - nonBodyRows
	if bodyHeight < 1 {
		return 1
	}

	contentHeight := bodyHeight - m.theme.PanelStyle.GetVerticalFrameSize()
	if contentHeight < 1 {
		return 1
	}
	return contentHeight
}
