// Package tui implements the interactive terminal interface for watching
// workflow executions. It renders the live run state folded by the exec
// tracker and forwards pause, resume, and cancel commands to it.
package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/loomworks/loom/internal/exec"
	"github.com/loomworks/loom/internal/graph"
)

// Session is the subset of the execution tracker the watch view drives.
type Session interface {
	Snapshot() exec.State
	Updates() <-chan exec.State
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Cancel(ctx context.Context) error
}

// WatchConfig configures a watch view.
type WatchConfig struct {
	ExecutionID string
	Workflow    *graph.Workflow
	Session     Session
	Theme       *Theme
}

// Messages produced by the watch view.
type (
	stateMsg         struct{ state exec.State }
	updatesClosedMsg struct{}
	commandDoneMsg   struct {
		action string
		err    error
	}
)

// WatchModel is the bubbletea model for following a single execution.
type WatchModel struct {
	ctx      context.Context
	session  Session
	workflow *graph.Workflow
	theme    *Theme
	keys     watchKeyMap

	execID  string
	state   exec.State
	updates <-chan exec.State

	spinner spinner.Model
	logView viewport.Model

	width    int
	height   int
	lastErr  error
	quitting bool
}

// NewWatchModel creates a watch view over an attached execution session.
func NewWatchModel(ctx context.Context, cfg WatchConfig) *WatchModel {
	theme := cfg.Theme
	if theme == nil {
		theme = DefaultTheme()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Primary)

	m := &WatchModel{
		ctx:      ctx,
		session:  cfg.Session,
		workflow: cfg.Workflow,
		theme:    theme,
		keys:     defaultWatchKeyMap(),
		execID:   cfg.ExecutionID,
		spinner:  sp,
		logView:  viewport.New(0, 0),
	}
	if cfg.Session != nil {
		m.state = cfg.Session.Snapshot()
		m.updates = cfg.Session.Updates()
	}
	return m
}

// Init starts the spinner and the state update loop.
func (m *WatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForState())
}

// waitForState blocks on the next tracker snapshot and re-arms itself
// from Update, so exactly one read is in flight at a time.
func (m *WatchModel) waitForState() tea.Cmd {
	updates := m.updates
	return func() tea.Msg {
		st, ok := <-updates
		if !ok {
			return updatesClosedMsg{}
		}
		return stateMsg{state: st}
	}
}

// Update handles messages and updates the model state.
func (m *WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.refreshLog()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case stateMsg:
		m.state = msg.state
		m.refreshLog()
		if m.state.Status.IsTerminal() {
			m.quitting = true
			return m, tea.Quit
		}
		return m, m.waitForState()

	case updatesClosedMsg:
		m.quitting = true
		return m, tea.Quit

	case commandDoneMsg:
		m.lastErr = msg.err
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.logView, cmd = m.logView.Update(msg)
	return m, cmd
}

func (m *WatchModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Pause):
		if m.state.Status.CanPause() {
			return m, m.commandCmd("pause", m.session.Pause)
		}
		return m, nil

	case key.Matches(msg, m.keys.Resume):
		if m.state.Status.CanResume() {
			return m, m.commandCmd("resume", m.session.Resume)
		}
		return m, nil

	case key.Matches(msg, m.keys.Cancel):
		if m.state.Status.CanCancel() {
			return m, m.commandCmd("cancel", m.session.Cancel)
		}
		return m, nil

	case key.Matches(msg, m.keys.ScrollUp), key.Matches(msg, m.keys.ScrollDown):
		var cmd tea.Cmd
		m.logView, cmd = m.logView.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *WatchModel) commandCmd(action string, run func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return commandDoneMsg{action: action, err: run(ctx)}
	}
}

// View renders the watch interface.
func (m *WatchModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}
	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderHeader(),
		m.renderStatus(),
		m.renderNodes(),
		m.theme.PanelStyle.Render(m.logView.View()),
		m.renderStatusBar(),
	)
}

func (m *WatchModel) renderHeader() string {
	name := "execution"
	if m.workflow != nil && m.workflow.Name != "" {
		name = m.workflow.Name
	}
	title := m.theme.TitleStyle.Render(fmt.Sprintf(" %s ", name))
	id := lipgloss.NewStyle().Foreground(m.theme.Muted).Render(m.execID)
	return lipgloss.JoinHorizontal(lipgloss.Center, title, " ", id)
}

func (m *WatchModel) renderStatus() string {
	parts := make([]string, 0, 4)
	if m.state.Status == exec.StatusRunning || m.state.Status == exec.StatusPending {
		parts = append(parts, m.spinner.View())
	}
	parts = append(parts, m.theme.StatusStyle(m.state.Status).Render(strings.ToUpper(m.state.Status.String())))
	if m.state.CurrentNode != "" {
		parts = append(parts, lipgloss.NewStyle().Foreground(m.theme.Info).Render("at "+m.state.CurrentNode))
	}
	if !m.state.Connected && !m.state.Status.IsTerminal() {
		parts = append(parts, lipgloss.NewStyle().Foreground(m.theme.Danger).Render("stream disconnected"))
	}
	return " " + strings.Join(parts, "  ")
}

func (m *WatchModel) renderNodes() string {
	ids := m.nodeOrder()
	if len(ids) == 0 {
		return m.theme.PanelStyle.Render(lipgloss.NewStyle().Foreground(m.theme.Muted).Render("no nodes reported yet"))
	}

	rows := make([]string, 0, len(ids))
	for _, id := range ids {
		glyph, style := m.theme.NodeGlyph(m.state.Nodes[id])
		row := fmt.Sprintf("%s %s", style.Render(glyph), id)
		if m.workflow != nil {
			if node, err := m.workflow.GetNode(id); err == nil {
				if node.Label != "" {
					row += " " + node.Label
				}
				row += lipgloss.NewStyle().Foreground(m.theme.Muted).Render(fmt.Sprintf(" (%s)", node.Kind))
			}
		}
		rows = append(rows, row)
	}
	return m.theme.PanelStyle.Render(strings.Join(rows, "\n"))
}

// nodeOrder lists workflow nodes in stable order, then any nodes the
// stream reported that the local workflow does not know about.
func (m *WatchModel) nodeOrder() []string {
	if m.workflow == nil {
		ids := make([]string, 0, len(m.state.Nodes))
		for id := range m.state.Nodes {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		return ids
	}

	ids := m.workflow.NodeIDs()
	known := make(map[string]bool, len(ids))
	for _, id := range ids {
		known[id] = true
	}
	extra := make([]string, 0)
	for id := range m.state.Nodes {
		if !known[id] {
			extra = append(extra, id)
		}
	}
	sort.Strings(extra)
	return append(ids, extra...)
}

func (m *WatchModel) renderStatusBar() string {
	hints := []string{
		m.keys.Pause.Help().Key + ": " + m.keys.Pause.Help().Desc,
		m.keys.Resume.Help().Key + ": " + m.keys.Resume.Help().Desc,
		m.keys.Cancel.Help().Key + ": " + m.keys.Cancel.Help().Desc,
		m.keys.ScrollDown.Help().Key + ": scroll",
		m.keys.Quit.Help().Key + ": " + m.keys.Quit.Help().Desc,
	}
	bar := strings.Join(hints, " | ")
	if m.lastErr != nil {
		bar = lipgloss.NewStyle().Foreground(m.theme.Danger).Render("error: "+m.lastErr.Error()) + "  " + bar
	}
	return lipgloss.NewStyle().
		Width(m.width).
		Background(lipgloss.Color("236")).
		Foreground(lipgloss.Color("250")).
		Padding(0, 1).
		Render(bar)
}

func (m *WatchModel) resize() {
	width := m.width - 4
	if width < 10 {
		width = 10
	}
	nodeRows := len(m.nodeOrder())
	if nodeRows == 0 {
		nodeRows = 1
	}
	// Header, status line, node panel with borders, log borders, status bar.
	height := m.height - nodeRows - 9
	if height < 3 {
		height = 3
	}
	m.logView.Width = width
	m.logView.Height = height
}

func (m *WatchModel) refreshLog() {
	lines := make([]string, 0, len(m.state.Logs))
	tsStyle := lipgloss.NewStyle().Foreground(m.theme.Muted)
	nodeStyle := lipgloss.NewStyle().Foreground(m.theme.Info)
	for _, entry := range m.state.Logs {
		line := tsStyle.Render(entry.Ts.Format("15:04:05"))
		if entry.NodeID != "" {
			line += " " + nodeStyle.Render(entry.NodeID)
		}
		line += " " + entry.Message
		lines = append(lines, line)
	}
	m.logView.SetContent(strings.Join(lines, "\n"))
	m.logView.GotoBottom()
}

// FinalState returns the last state the view rendered. It is valid
// after the program exits.
func (m *WatchModel) FinalState() exec.State {
	return m.state
}

// Run starts the watch program and blocks until it exits. It returns
// the final observed execution state.
func Run(ctx context.Context, cfg WatchConfig) (exec.State, error) {
	model := NewWatchModel(ctx, cfg)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return model.state, fmt.Errorf("watch interface failed: %w", err)
	}
	if m, ok := final.(*WatchModel); ok {
		return m.FinalState(), nil
	}
	return model.state, nil
}
