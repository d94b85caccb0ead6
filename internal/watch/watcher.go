// Package watch is the standalone reminder: it polls the collection file on a
// fixed interval and raises a desktop toast while cards are waiting. It needs
// neither the host events nor the notifier process.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nateberkopec/cardnudge/internal/badge"
	"github.com/nateberkopec/cardnudge/internal/collection"
)

// DefaultInterval is the poll period when none is configured.
const DefaultInterval = 60 * time.Second

const pollTimeout = 30 * time.Second

// Counter reads the actionable counts for a category.
type Counter interface {
	Counts(ctx context.Context, category string) (collection.Counts, error)
}

// Toaster sends a desktop notification.
type Toaster interface {
	Notify(title, message, iconPath string) error
}

// Config wires external dependencies for the watcher.
type Config struct {
	Probe    Counter
	Toaster  Toaster
	Logger   *slog.Logger
	Interval time.Duration
	Category string
	// IconDir caches the badge icon attached to toasts; empty sends none.
	IconDir string
}

// Result records the outcome of one poll.
type Result struct {
	Count     int
	CheckedAt time.Time
	Err       error
}

// Watcher polls until its context ends.
type Watcher struct {
	probe    Counter
	toaster  Toaster
	logger   *slog.Logger
	interval time.Duration
	category string
	iconDir  string

	triggerCh chan struct{}

	mu   sync.Mutex
	last Result
}

func New(cfg Config) *Watcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	category := cfg.Category
	if category == "" {
		category = collection.AllCategories
	}
	return &Watcher{
		probe:     cfg.Probe,
		toaster:   cfg.Toaster,
		logger:    logger,
		interval:  interval,
		category:  category,
		iconDir:   cfg.IconDir,
		triggerCh: make(chan struct{}, 1),
	}
}

// Run checks once immediately and then on every tick. It returns when ctx is
// done.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Check(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.Check(ctx)
		case <-w.triggerCh:
			w.Check(ctx)
		}
	}
}

// Trigger asks a running watcher for an extra check without waiting for the
// next tick.
func (w *Watcher) Trigger() {
	select {
	case w.triggerCh <- struct{}{}:
	default:
	}
}

// Check polls once and toasts when anything is actionable. Query errors are
// logged and count as zero; toast errors are ignored.
func (w *Watcher) Check(ctx context.Context) Result {
	ctx, cancel := context.WithTimeout(ctx, pollTimeout)
	defer cancel()

	counts, err := w.probe.Counts(ctx, w.category)
	result := Result{Count: counts.Total(), CheckedAt: time.Now(), Err: err}
	if err != nil {
		w.logger.Error("error checking cards", "error", err)
		result.Count = 0
	}

	w.mu.Lock()
	w.last = result
	w.mu.Unlock()

	w.logger.Debug("checked collection", "new", counts.New, "due", counts.Due, "category", w.category)
	if result.Count > 0 {
		w.toast(result.Count)
	}
	return result
}

// Last returns the most recent poll result.
func (w *Watcher) Last() Result {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

func (w *Watcher) toast(count int) {
	if w.toaster == nil {
		return
	}
	icon := ""
	if w.iconDir != "" {
		if path, err := badge.WriteIcon(w.iconDir, count); err == nil {
			icon = path
		}
	}
	_ = w.toaster.Notify("Anki", fmt.Sprintf("%d cards to review", count), icon)
}
