package app

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/nateberkopec/cardnudge/internal/content"
	"github.com/nateberkopec/cardnudge/internal/reminder"
)

// controller captures the subset of reminder.Controller the dashboard needs.
// This makes it easy to stub in tests without a collection on disk.
type controller interface {
	Status() reminder.Status
	Library() *content.Library
	Categories(ctx context.Context) []string
	ApplySettings(ctx context.Context, in reminder.SettingsInput) error
	UpdateProgress(ctx context.Context) reminder.Progress
	ShowNotification(ctx context.Context)
	CloseNotification()
}

type mode int

const (
	modeList mode = iota
	modeSettings
	modeAddPair
	modeEditMessage
	modeEditImage
)

type statusKind int

const (
	statusNeutral statusKind = iota
	statusError
	statusSuccess
)

type statusMessage struct {
	text    string
	kind    statusKind
	expires time.Time
}

type area struct {
	top    int
	height int
}

// Config wires external dependencies for the app.
type Config struct {
	Controller      controller
	RefreshInterval time.Duration
}

// Model implements the Bubble Tea dashboard.
type Model struct {
	ctl             controller
	refreshInterval time.Duration

	mode  mode
	keys  *KeyMap
	help  help.Model
	spin  spinner.Model
	form  *huh.Form
	draft formDraft

	progress reminder.Progress
	state    reminder.Status
	pairs    []content.Pair
	marked   map[string]bool

	refreshing bool

	selectedIndex int
	scrollOffset  int
	width         int
	height        int
	listArea      area

	status statusMessage
}

// New creates the dashboard model.
func New(cfg Config) *Model {
	refresh := cfg.RefreshInterval
	if refresh <= 0 {
		refresh = 2 * time.Second
	}

	m := &Model{
		ctl:             cfg.Controller,
		refreshInterval: refresh,
		keys:            DefaultKeyMap(),
		help:            help.New(),
		spin:            spinner.New(spinner.WithSpinner(spinner.Ellipsis)),
		refreshing:      true,
		marked:          make(map[string]bool),
	}
	m.reload()
	m.progress = reminder.Progress{
		Count:    m.state.Count,
		Category: m.state.Settings.SelectedCategory,
		Title:    reminder.Title(m.state.Count, m.state.Settings.SelectedCategory),
	}
	return m
}

// Init satisfies the tea.Model interface.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle(m.progress.Title),
		m.scheduleRefresh(),
		m.progressCmd(),
		m.spin.Tick,
	)
}

// Update drives the Bubble Tea state machine.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m.maybeExpireStatus()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.configureLayout()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	case progressMsg:
		m.refreshing = false
		m.progress = reminder.Progress(msg)
		m.reload()
		return m, tea.SetWindowTitle(m.progress.Title)
	case refreshTickMsg:
		m.reload()
		return m, m.scheduleRefresh()
	case actionResultMsg:
		if msg.Err != nil {
			m.setStatus(msg.Err.Error(), statusError)
		} else if msg.Text != "" {
			m.setStatus(msg.Text, statusSuccess)
		}
		m.reload()
		return m, nil
	}

	if m.mode != modeList {
		return m.updateForm(msg)
	}

	switch msg := msg.(type) {
	case tea.MouseMsg:
		return m.handleMouse(msg)
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// View renders the TUI.
func (m *Model) View() string {
	return renderView(m)
}

func (m *Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.MouseLeft:
		if m.listArea.contains(msg.Y) {
			row := msg.Y - m.listArea.top
			if row <= 0 {
				return m, nil
			}
			index := m.scrollOffset + row - 1
			if index >= 0 && index < len(m.pairs) {
				m.selectedIndex = index
				m.ensureSelectionBounds()
			}
		}
	case tea.MouseWheelUp:
		m.moveSelection(-1)
	case tea.MouseWheelDown:
		m.moveSelection(1)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Down):
		m.moveSelection(1)
	case key.Matches(msg, m.keys.Up):
		m.moveSelection(-1)
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.configureLayout()
	case key.Matches(msg, m.keys.Add):
		return m.openAddForm()
	case key.Matches(msg, m.keys.Edit):
		return m.openEditForm()
	case key.Matches(msg, m.keys.EditImage):
		return m.openImageForm()
	case key.Matches(msg, m.keys.Mark):
		m.toggleMark()
	case key.Matches(msg, m.keys.Remove):
		m.removeSelected()
	case key.Matches(msg, m.keys.Open):
		return m, m.openSelected()
	case key.Matches(msg, m.keys.Settings):
		return m.openSettingsForm()
	case key.Matches(msg, m.keys.Show):
		m.setStatus("Showing notification…", statusNeutral)
		return m, m.showCmd()
	case key.Matches(msg, m.keys.Close):
		m.ctl.CloseNotification()
		m.reload()
		m.setStatus("Notification closed", statusNeutral)
	case key.Matches(msg, m.keys.Refresh):
		m.ctl.Library().Load()
		m.reload()
		m.refreshing = true
		return m, m.progressCmd()
	}
	return m, nil
}

func (m *Model) toggleMark() {
	pair := m.selectedPair()
	if pair == nil {
		return
	}
	if m.marked[pair.ID] {
		delete(m.marked, pair.ID)
	} else {
		m.marked[pair.ID] = true
	}
	m.moveSelection(1)
}

// removeSelected removes every marked pair, or the selected one when nothing
// is marked.
func (m *Model) removeSelected() {
	var ids []string
	for _, p := range m.pairs {
		if m.marked[p.ID] {
			ids = append(ids, p.ID)
		}
	}
	label := ""
	if len(ids) == 0 {
		pair := m.selectedPair()
		if pair == nil {
			return
		}
		ids = []string{pair.ID}
		label = pairLabel(*pair)
	}

	removed, err := m.ctl.Library().Remove(ids...)
	if err != nil {
		m.setStatus(fmt.Sprintf("Failed to remove: %v", err), statusError)
		return
	}
	m.reload()
	if label == "" {
		label = fmt.Sprintf("%d messages", removed)
	}
	m.setStatus(fmt.Sprintf("Removed %s", label), statusNeutral)
}

func (m *Model) openSelected() tea.Cmd {
	pair := m.selectedPair()
	if pair == nil {
		return nil
	}
	if !pair.HasImage() {
		m.setStatus("No image to view", statusNeutral)
		return nil
	}
	m.setStatus(fmt.Sprintf("Opening %s", pair.ImageReference), statusNeutral)
	return openFileCmd(pair.ImageReference)
}

func (m *Model) selectedPair() *content.Pair {
	if len(m.pairs) == 0 {
		return nil
	}
	if m.selectedIndex < 0 {
		m.selectedIndex = 0
	}
	if m.selectedIndex >= len(m.pairs) {
		m.selectedIndex = len(m.pairs) - 1
	}
	return &m.pairs[m.selectedIndex]
}

func (m *Model) moveSelection(delta int) {
	if len(m.pairs) == 0 {
		m.selectedIndex = 0
		m.scrollOffset = 0
		return
	}
	m.selectedIndex += delta
	if m.selectedIndex < 0 {
		m.selectedIndex = 0
	}
	if m.selectedIndex >= len(m.pairs) {
		m.selectedIndex = len(m.pairs) - 1
	}
	m.ensureSelectionBounds()
}

func (m *Model) ensureSelectionBounds() {
	dataRows := m.dataRows()
	if dataRows <= 0 {
		return
	}
	if m.selectedIndex >= len(m.pairs) {
		m.selectedIndex = max(0, len(m.pairs)-1)
	}
	if m.selectedIndex < m.scrollOffset {
		m.scrollOffset = m.selectedIndex
	}
	if m.selectedIndex >= m.scrollOffset+dataRows {
		m.scrollOffset = m.selectedIndex - dataRows + 1
	}
	maxScroll := max(0, len(m.pairs)-dataRows)
	if m.scrollOffset > maxScroll {
		m.scrollOffset = maxScroll
	}
	if m.scrollOffset < 0 {
		m.scrollOffset = 0
	}
}

func (m *Model) dataRows() int {
	rows := m.listArea.height - 1 // header consumes one row
	if rows < 1 {
		rows = 1
	}
	return rows
}

// reload pulls the controller status and the pair list.
func (m *Model) reload() {
	m.state = m.ctl.Status()
	m.pairs = m.ctl.Library().All()
	for id := range m.marked {
		if !slices.ContainsFunc(m.pairs, func(p content.Pair) bool { return p.ID == id }) {
			delete(m.marked, id)
		}
	}
	m.ensureSelectionBounds()
}

func (m *Model) configureLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	const (
		headerHeight = 2
		statusHeight = 1
	)
	helpHeight := strings.Count(m.help.View(m.keys), "\n") + 1
	listHeight := m.height - (headerHeight + statusHeight + helpHeight)
	if listHeight < 3 {
		listHeight = 3
	}
	m.listArea = area{top: headerHeight, height: listHeight}
	m.ensureSelectionBounds()
}

func (m *Model) scheduleRefresh() tea.Cmd {
	return tea.Tick(m.refreshInterval, func(time.Time) tea.Msg {
		return refreshTickMsg{}
	})
}

// progressCmd recomputes the due count off the event loop; the query can
// wait on a locked collection.
func (m *Model) progressCmd() tea.Cmd {
	ctl := m.ctl
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return progressMsg(ctl.UpdateProgress(ctx))
	}
}

func (m *Model) showCmd() tea.Cmd {
	ctl := m.ctl
	return func() tea.Msg {
		ctl.ShowNotification(context.Background())
		return actionResultMsg{}
	}
}

func (m *Model) setStatus(text string, kind statusKind) {
	if text == "" {
		m.status = statusMessage{}
		return
	}
	m.status = statusMessage{
		text:    text,
		kind:    kind,
		expires: time.Now().Add(10 * time.Second),
	}
}

func (m *Model) maybeExpireStatus() {
	if m.status.text == "" {
		return
	}
	if time.Now().After(m.status.expires) {
		m.status = statusMessage{}
	}
}

func (a area) contains(y int) bool {
	return y >= a.top && y < a.top+a.height
}

type progressMsg reminder.Progress

type refreshTickMsg struct{}

type actionResultMsg struct {
	Text string
	Err  error
}

func openFileCmd(target string) tea.Cmd {
	return func() tea.Msg {
		name, args := openCommand(target)
		if name == "" {
			return actionResultMsg{Err: errors.New("opening files is not supported on this platform")}
		}
		cmd := exec.Command(name, args...)
		if err := cmd.Start(); err != nil {
			return actionResultMsg{Err: err}
		}
		go func() { _ = cmd.Wait() }()
		return nil
	}
}

func openCommand(target string) (string, []string) {
	switch runtime.GOOS {
	case "darwin":
		return "open", []string{target}
	case "linux":
		return "xdg-open", []string{target}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", target}
	default:
		return "", nil
	}
}

func pairLabel(p content.Pair) string {
	if p.Message != "" {
		return truncate(p.Message, 30)
	}
	return "image pair"
}
