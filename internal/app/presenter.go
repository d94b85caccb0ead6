package app

import (
	"log/slog"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nateberkopec/cardnudge/internal/reminder"
)

// Presenter forwards due-count progress from the controller into a running
// program. Progress reported before Attach is kept and replayed.
type Presenter struct {
	mu      sync.Mutex
	program *tea.Program
	last    reminder.Progress
}

func NewPresenter() *Presenter {
	return &Presenter{}
}

func (p *Presenter) Attach(program *tea.Program) {
	p.mu.Lock()
	p.program = program
	last := p.last
	p.mu.Unlock()

	go program.Send(progressMsg(last))
}

// ShowProgress never blocks: Send waits for the event loop, and the
// controller calls this from its own goroutines.
func (p *Presenter) ShowProgress(progress reminder.Progress) {
	p.mu.Lock()
	p.last = progress
	program := p.program
	p.mu.Unlock()

	if program != nil {
		go program.Send(progressMsg(progress))
	}
}

func (p *Presenter) Last() reminder.Progress {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// LogPresenter reports progress changes to the log when no terminal is
// attached.
type LogPresenter struct {
	Logger *slog.Logger

	mu   sync.Mutex
	last string
}

func (p *LogPresenter) ShowProgress(progress reminder.Progress) {
	p.mu.Lock()
	changed := progress.Title != p.last
	p.last = progress.Title
	p.mu.Unlock()

	if !changed {
		return
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("due cards", "count", progress.Count, "category", progress.Category, "title", progress.Title)
}
