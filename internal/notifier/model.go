// Package notifier is the child process that shows the rotating reminder card.
// It only talks to the main process through the handoff and snapshot files.
package notifier

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nateberkopec/cardnudge/internal/badge"
	"github.com/nateberkopec/cardnudge/internal/content"
	"github.com/nateberkopec/cardnudge/internal/persistence"
)

const (
	noMessage = "(No message)"
	noContent = "No content available"
)

// Timing controls how long the card stays up and how it fades out.
type Timing struct {
	Poll     time.Duration
	Visible  time.Duration
	Blink    time.Duration
	BlinkFor time.Duration
}

func DefaultTiming() Timing {
	return Timing{
		Poll:     time.Second,
		Visible:  5 * time.Second,
		Blink:    500 * time.Millisecond,
		BlinkFor: 2 * time.Second,
	}
}

// Config wires external dependencies for the notifier.
type Config struct {
	Layout  persistence.Layout
	Library *content.Library
	Toaster Toaster
	Logger  *slog.Logger
	Rand    *rand.Rand
	// Wake delivers early handoff change signals; nil relies on polling alone.
	Wake <-chan struct{}

	// IntervalUnit scales the configured interval; one minute by default.
	IntervalUnit time.Duration
	Timing       Timing
}

type phase int

const (
	phaseHidden phase = iota
	phaseShowing
	phaseBlinking
)

// Card is what one display cycle shows.
type Card struct {
	Message      string
	Status       string
	Image        string
	ImageMissing bool
}

// Model implements the Bubble Tea program for the notifier window.
type Model struct {
	layout   persistence.Layout
	library  *content.Library
	toaster  Toaster
	logger   *slog.Logger
	rng      *rand.Rand
	wake     <-chan struct{}
	interval time.Duration
	timing   Timing

	paused  bool
	cycling bool
	// Generations invalidate ticks scheduled before a stop or restart.
	cycleGen int
	showGen  int

	phase   phase
	blinkOn bool
	card    Card
	count   int

	closed   bool
	quitting bool
	width    int
}

// New reads the interval and the initial review flag. A notifier started
// during review stays hidden and paused until the review ends.
func New(cfg Config) *Model {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	unit := cfg.IntervalUnit
	if unit <= 0 {
		unit = time.Minute
	}
	timing := cfg.Timing
	if timing == (Timing{}) {
		timing = DefaultTiming()
	}
	toaster := cfg.Toaster
	if toaster == nil {
		toaster = DesktopToaster{}
	}
	library := cfg.Library
	if library == nil {
		library = content.NewLibrary(cfg.Layout, logger)
		library.Load()
	}

	settings := persistence.LoadSettings(cfg.Layout, logger)

	m := &Model{
		layout:   cfg.Layout,
		library:  library,
		toaster:  toaster,
		logger:   logger,
		rng:      cfg.Rand,
		wake:     cfg.Wake,
		interval: time.Duration(settings.NotificationIntervalMinutes) * unit,
		timing:   timing,
	}

	state, err := persistence.ReadHandoff(cfg.Layout)
	if err != nil {
		logger.Warn("error checking initial review state", "error", err)
	} else if state.InReview {
		m.paused = true
	}
	return m
}

// Init starts polling and, unless paused, runs the first cycle immediately.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.schedulePoll(), m.waitForWake()}
	if !m.paused {
		m.cycling = true
		m.cycleGen++
		gen := m.cycleGen
		cmds = append(cmds, func() tea.Msg { return cycleMsg{gen: gen} })
	}
	return tea.Batch(cmds...)
}

// Update drives the Bubble Tea state machine.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tea.KeyMsg:
		return m.handleKey(msg)
	case pollMsg:
		cmd := m.checkStatus()
		if m.quitting {
			return m, cmd
		}
		return m, tea.Batch(cmd, m.schedulePoll())
	case wakeMsg:
		cmd := m.checkStatus()
		if m.quitting {
			return m, cmd
		}
		return m, tea.Batch(cmd, m.waitForWake())
	case cycleMsg:
		if msg.gen != m.cycleGen || !m.cycling {
			return m, nil
		}
		return m, tea.Batch(m.scheduleCycle(), m.show())
	case showDoneMsg:
		if msg.gen != m.showGen || m.phase != phaseShowing {
			return m, nil
		}
		m.phase = phaseBlinking
		m.blinkOn = true
		return m, tea.Batch(m.scheduleBlink(), m.scheduleBlinkEnd())
	case blinkMsg:
		if msg.gen != m.showGen || m.phase != phaseBlinking {
			return m, nil
		}
		m.blinkOn = !m.blinkOn
		return m, m.scheduleBlink()
	case blinkEndMsg:
		if msg.gen != m.showGen {
			return m, nil
		}
		m.hide()
	}
	return m, nil
}

// View renders the card while it is up and the tray line otherwise.
func (m *Model) View() string {
	return renderView(m)
}

// Visible reports whether the card is currently drawn.
func (m *Model) Visible() bool {
	return m.phase == phaseShowing || (m.phase == phaseBlinking && m.blinkOn)
}

// Closed reports whether the user closed the notifier from its own keys.
func (m *Model) Closed() bool { return m.closed }

func (m *Model) CurrentCard() Card { return m.card }

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		// Nothing is shown while a review is running.
		if m.paused {
			return m, nil
		}
		return m, m.show()
	case "c", "q", "ctrl+c":
		return m, m.close()
	}
	return m, nil
}

// checkStatus applies the handoff file. A read failure leaves everything as
// it was.
func (m *Model) checkStatus() tea.Cmd {
	state, err := persistence.ReadHandoff(m.layout)
	if err != nil {
		m.logger.Warn("error checking status", "error", err)
		return nil
	}

	if !state.Active {
		m.hide()
		m.quitting = true
		return tea.Quit
	}

	if state.InReview {
		m.paused = true
		m.cycling = false
		m.cycleGen++
		m.hide()
		return nil
	}

	m.paused = false
	if m.cycling {
		return nil
	}
	m.cycling = true
	m.cycleGen++
	return m.scheduleCycle()
}

// show runs one display cycle. A zero count hides the card instead.
func (m *Model) show() tea.Cmd {
	snap, err := persistence.ReadSnapshot(m.layout)
	if err != nil {
		m.logger.Warn("error loading card count", "error", err)
		snap = persistence.DueCountSnapshot{CategoryLabel: persistence.AllCategories}
	}
	m.count = snap.Count

	if snap.Count <= 0 {
		m.hide()
		return nil
	}

	m.card = m.nextCard(snap)
	m.showGen++
	m.phase = phaseShowing
	m.blinkOn = true
	m.toast()

	gen := m.showGen
	return tea.Tick(m.timing.Visible, func(time.Time) tea.Msg {
		return showDoneMsg{gen: gen}
	})
}

func (m *Model) nextCard(snap persistence.DueCountSnapshot) Card {
	pair, ok := m.library.Pick(m.rng)
	if !ok {
		return Card{Message: noContent}
	}

	message := pair.Message
	if message == "" {
		message = noMessage
	}
	card := Card{
		Message: message,
		Status:  statusLine(snap.Count, snap.CategoryLabel),
	}
	if pair.ImageReference != "" {
		card.Image = pair.ImageReference
		card.ImageMissing = !pair.HasImage()
	}
	return card
}

func (m *Model) toast() {
	icon := ""
	if m.card.Image != "" && !m.card.ImageMissing {
		icon = m.card.Image
	} else if path, err := badge.WriteIcon(m.layout.IconsDir(), m.count); err == nil {
		icon = path
	} else {
		m.logger.Warn("error drawing badge", "error", err)
	}

	body := m.card.Message
	if m.card.Status != "" {
		body += "\n" + m.card.Status
	}
	if err := m.toaster.Notify("Anki", body, icon); err != nil {
		m.logger.Debug("desktop notification failed", "error", err)
	}
}

func (m *Model) hide() {
	m.showGen++
	m.phase = phaseHidden
	m.blinkOn = false
}

func (m *Model) close() tea.Cmd {
	state := persistence.HandoffState{Active: false, InReview: m.paused}
	if err := persistence.WriteHandoff(m.layout, state); err != nil {
		m.logger.Error("error saving state", "error", err)
	}
	m.hide()
	m.closed = true
	m.quitting = true
	return tea.Quit
}

func (m *Model) schedulePoll() tea.Cmd {
	return tea.Tick(m.timing.Poll, func(time.Time) tea.Msg { return pollMsg{} })
}

func (m *Model) scheduleCycle() tea.Cmd {
	gen := m.cycleGen
	return tea.Tick(m.interval, func(time.Time) tea.Msg { return cycleMsg{gen: gen} })
}

func (m *Model) scheduleBlink() tea.Cmd {
	gen := m.showGen
	return tea.Tick(m.timing.Blink, func(time.Time) tea.Msg { return blinkMsg{gen: gen} })
}

func (m *Model) scheduleBlinkEnd() tea.Cmd {
	gen := m.showGen
	return tea.Tick(m.timing.BlinkFor, func(time.Time) tea.Msg { return blinkEndMsg{gen: gen} })
}

func (m *Model) waitForWake() tea.Cmd {
	if m.wake == nil {
		return nil
	}
	wake := m.wake
	return func() tea.Msg {
		if _, ok := <-wake; !ok {
			return nil
		}
		return wakeMsg{}
	}
}

func statusLine(count int, category string) string {
	if category == "" || category == persistence.AllCategories {
		return fmt.Sprintf("%d cards left", count)
	}
	return fmt.Sprintf("%d cards left in %s", count, category)
}

type pollMsg struct{}

type wakeMsg struct{}

type cycleMsg struct{ gen int }

type showDoneMsg struct{ gen int }

type blinkMsg struct{ gen int }

type blinkEndMsg struct{ gen int }
