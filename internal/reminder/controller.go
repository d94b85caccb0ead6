// Package reminder is the main-process side: it tracks review state, keeps the
// reminder timer armed, publishes the due count, and drives the notifier
// through the handoff file.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nateberkopec/cardnudge/internal/content"
	"github.com/nateberkopec/cardnudge/internal/hostevent"
	"github.com/nateberkopec/cardnudge/internal/persistence"
)

// Prober counts actionable cards. Implementations log their own failures and
// return zero.
type Prober interface {
	DueCount(ctx context.Context, category string) int
	Categories(ctx context.Context) []string
}

// Presenter shows the badge and title for the latest due count.
type Presenter interface {
	ShowProgress(p Progress)
}

// Launcher starts the notifier process.
type Launcher interface {
	Launch(ctx context.Context, inReview bool) error
}

// Progress is what the tray badge and window title display.
type Progress struct {
	Count    int
	Category string
	Title    string
}

// Status is a point-in-time view of the controller for dashboards.
type Status struct {
	Settings       persistence.Settings
	Count          int
	InReview       bool
	Armed          bool
	NotifierActive bool
}

// SettingsInput is the raw settings dialog submission.
type SettingsInput struct {
	Enabled  bool
	Interval string
	Category string
}

// Config wires the controller's collaborators.
type Config struct {
	Layout    persistence.Layout
	Probe     Prober
	Library   *content.Library
	Presenter Presenter
	Launcher  Launcher
	Logger    *slog.Logger

	// IntervalUnit scales NotificationIntervalMinutes; one minute unless a
	// test shortens it.
	IntervalUnit time.Duration
	// RelaunchDelay separates closing the notifier from starting a new one
	// after a settings change.
	RelaunchDelay time.Duration
}

// Controller is the application context handed to every host event.
type Controller struct {
	layout        persistence.Layout
	probe         Prober
	library       *content.Library
	presenter     Presenter
	launcher      Launcher
	logger        *slog.Logger
	intervalUnit  time.Duration
	relaunchDelay time.Duration
	scheduler     *Scheduler

	mu             sync.Mutex
	settings       persistence.Settings
	inReview       bool
	savedCount     int
	notifierActive bool
	relaunch       *time.Timer
	stopped        bool
}

func New(cfg Config) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	unit := cfg.IntervalUnit
	if unit <= 0 {
		unit = time.Minute
	}
	delay := cfg.RelaunchDelay
	if delay <= 0 {
		delay = time.Second
	}
	library := cfg.Library
	if library == nil {
		library = content.NewLibrary(cfg.Layout, logger)
	}

	c := &Controller{
		layout:        cfg.Layout,
		probe:         cfg.Probe,
		library:       library,
		presenter:     cfg.Presenter,
		launcher:      cfg.Launcher,
		logger:        logger,
		intervalUnit:  unit,
		relaunchDelay: delay,
		settings:      persistence.LoadSettings(cfg.Layout, logger),
	}
	c.library.Load()
	c.scheduler = NewScheduler(c.fire)
	return c
}

func (c *Controller) Library() *content.Library { return c.library }

func (c *Controller) Settings() persistence.Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// Categories lists the category choices for the settings dialog.
func (c *Controller) Categories(ctx context.Context) []string {
	if c.probe == nil {
		return []string{persistence.AllCategories}
	}
	return c.probe.Categories(ctx)
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	status := Status{
		Settings:       c.settings,
		Count:          c.savedCount,
		InReview:       c.inReview,
		NotifierActive: c.currentActiveLocked(),
	}
	c.mu.Unlock()
	status.Armed = c.scheduler.Armed()
	return status
}

// Start resets the handoff, arms the reminder, and publishes the first count.
// When notifications are enabled the notifier is launched after the relaunch
// delay, so a notifier left over from an earlier run sees the inactive
// handoff and exits first.
func (c *Controller) Start(ctx context.Context) {
	c.writeHandoff(persistence.HandoffState{Active: false})

	c.mu.Lock()
	c.stopped = false
	c.notifierActive = false
	c.armLocked()
	c.mu.Unlock()

	c.UpdateProgress(ctx)

	c.mu.Lock()
	c.scheduleLaunchLocked(ctx)
	c.mu.Unlock()
}

// Stop disarms the timer and tells the notifier to exit.
func (c *Controller) Stop() {
	c.scheduler.Disarm()
	c.mu.Lock()
	c.stopped = true
	if c.relaunch != nil {
		c.relaunch.Stop()
		c.relaunch = nil
	}
	c.mu.Unlock()
	c.CloseNotification()
}

// HandleEvent routes one host lifecycle notification.
func (c *Controller) HandleEvent(ctx context.Context, ev hostevent.Event) {
	c.logger.Debug("host event", "kind", ev.Kind, "category", ev.Category)

	switch ev.Kind {
	case hostevent.ReviewStarted:
		c.OnEnterReview(ev.Category)
	case hostevent.ReviewEnded:
		c.OnExitReview(ctx, ev.Category)
	case hostevent.CollectionLoaded:
		c.UpdateProgress(ctx)
	case hostevent.ProfileOpened, hostevent.CardAnswered, hostevent.SyncFinished, hostevent.StateChanged:
		c.CheckForNewCards(ctx)
	case hostevent.SettingsChanged:
		c.Reload(ctx)
	case hostevent.ShowNotification:
		c.ShowNotification(ctx)
	case hostevent.CloseNotification:
		c.CloseNotification()
	default:
		c.logger.Warn("ignoring host event", "kind", ev.Kind)
	}
}

// OnEnterReview suppresses reminders while a matching review session runs.
func (c *Controller) OnEnterReview(category string) {
	c.mu.Lock()
	if !c.matchesLocked(category) {
		c.mu.Unlock()
		return
	}
	c.inReview = true
	c.scheduler.Disarm()
	active := c.currentActiveLocked()
	c.mu.Unlock()

	c.writeHandoff(persistence.HandoffState{Active: active, InReview: true})
}

// OnExitReview re-arms the reminder from zero when a matching session ends and
// always republishes the count.
func (c *Controller) OnExitReview(ctx context.Context, category string) {
	c.mu.Lock()
	matched := c.matchesLocked(category)
	var active bool
	if matched {
		c.inReview = false
		c.armLocked()
		active = c.currentActiveLocked()
	}
	c.mu.Unlock()

	if matched {
		c.writeHandoff(persistence.HandoffState{Active: active, InReview: false})
	}
	c.UpdateProgress(ctx)
}

// CheckForNewCards republishes only when the count moved.
func (c *Controller) CheckForNewCards(ctx context.Context) {
	count := c.dueCount(ctx)

	c.mu.Lock()
	changed := count != c.savedCount
	c.mu.Unlock()

	if changed {
		c.UpdateProgress(ctx)
	}
}

// UpdateProgress recomputes the due count, refreshes the badge and title, and
// writes the snapshot the notifier reads.
func (c *Controller) UpdateProgress(ctx context.Context) Progress {
	count := c.dueCount(ctx)

	c.mu.Lock()
	category := c.settings.SelectedCategory
	c.savedCount = count
	c.mu.Unlock()

	progress := Progress{
		Count:    count,
		Category: category,
		Title:    Title(count, category),
	}
	if c.presenter != nil {
		c.presenter.ShowProgress(progress)
	}

	snap := persistence.DueCountSnapshot{Count: count, CategoryLabel: category}
	if err := persistence.WriteSnapshot(c.layout, snap); err != nil {
		c.logger.Error("error saving card count", "error", err)
	}
	return progress
}

// ApplySettings validates and persists a settings dialog submission. An
// invalid interval is returned untouched and nothing is written.
func (c *Controller) ApplySettings(ctx context.Context, in SettingsInput) error {
	interval, err := persistence.ParseInterval(in.Interval)
	if err != nil {
		return err
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = persistence.AllCategories
	}

	next := persistence.Settings{
		NotificationEnabled:         in.Enabled,
		NotificationIntervalMinutes: interval,
		SelectedCategory:            category,
	}
	if err := persistence.SaveSettings(c.layout, next); err != nil {
		c.logger.Error("error saving settings", "error", err)
	}

	c.mu.Lock()
	c.settings = next
	c.armLocked()
	c.mu.Unlock()

	c.UpdateProgress(ctx)
	c.restartNotifier(ctx)
	return nil
}

// Reload picks up settings and pairs edited by another process.
func (c *Controller) Reload(ctx context.Context) {
	settings := persistence.LoadSettings(c.layout, c.logger)
	c.library.Load()

	c.mu.Lock()
	c.settings = settings
	c.armLocked()
	c.mu.Unlock()

	c.UpdateProgress(ctx)
	c.restartNotifier(ctx)
}

// ShowNotification starts the notifier unless the handoff says it is running.
func (c *Controller) ShowNotification(ctx context.Context) {
	c.mu.Lock()
	active := c.currentActiveLocked()
	c.mu.Unlock()

	if !active {
		c.launch(ctx)
	}
}

// CloseNotification asks the notifier to exit on its next poll.
func (c *Controller) CloseNotification() {
	c.mu.Lock()
	c.notifierActive = false
	inReview := c.inReview
	c.mu.Unlock()

	c.writeHandoff(persistence.HandoffState{Active: false, InReview: inReview})
}

// Title is the main window title for count.
func Title(count int, category string) string {
	if count <= 0 {
		return "Anki"
	}
	if category != "" && category != persistence.AllCategories {
		return fmt.Sprintf("Anki (%d) - %s", count, category)
	}
	return fmt.Sprintf("Anki (%d)", count)
}

func (c *Controller) fire() {
	ctx := context.Background()

	c.mu.Lock()
	idle := !c.inReview && c.settings.NotificationEnabled
	c.mu.Unlock()
	if !idle {
		return
	}

	if progress := c.UpdateProgress(ctx); progress.Count <= 0 {
		return
	}
	c.ShowNotification(ctx)
}

func (c *Controller) restartNotifier(ctx context.Context) {
	c.CloseNotification()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.scheduleLaunchLocked(ctx)
}

// scheduleLaunchLocked replaces any pending launch with one that runs after
// the relaunch delay. Nothing is scheduled while notifications are off.
func (c *Controller) scheduleLaunchLocked(ctx context.Context) {
	if c.relaunch != nil {
		c.relaunch.Stop()
		c.relaunch = nil
	}
	if !c.settings.NotificationEnabled {
		return
	}
	c.relaunch = time.AfterFunc(c.relaunchDelay, func() {
		c.mu.Lock()
		active := c.currentActiveLocked()
		c.mu.Unlock()
		// ShowNotification may have started one in the meantime.
		if !active {
			c.launch(context.WithoutCancel(ctx))
		}
	})
}

func (c *Controller) launch(ctx context.Context) {
	if c.launcher == nil {
		return
	}

	c.mu.Lock()
	inReview := c.inReview
	stopped := c.stopped
	c.mu.Unlock()
	if stopped {
		return
	}

	if err := c.launcher.Launch(ctx, inReview); err != nil {
		c.logger.Error("error starting notifier", "error", err)
		return
	}

	c.mu.Lock()
	c.notifierActive = true
	c.mu.Unlock()
}

func (c *Controller) dueCount(ctx context.Context) int {
	if c.probe == nil {
		return 0
	}
	c.mu.Lock()
	category := c.settings.SelectedCategory
	c.mu.Unlock()
	return c.probe.DueCount(ctx, category)
}

func (c *Controller) armLocked() {
	if c.settings.NotificationEnabled && !c.inReview {
		c.scheduler.Arm(time.Duration(c.settings.NotificationIntervalMinutes) * c.intervalUnit)
		return
	}
	c.scheduler.Disarm()
}

// matchesLocked reports whether a review in category concerns the selection.
func (c *Controller) matchesLocked(category string) bool {
	selected := c.settings.SelectedCategory
	if c.settings.AllCategoriesSelected() {
		return true
	}
	return strings.EqualFold(category, selected) ||
		strings.HasPrefix(strings.ToLower(category), strings.ToLower(selected)+"::")
}

// currentActiveLocked prefers the handoff file, since the notifier can close
// itself, and falls back to what this process last did.
func (c *Controller) currentActiveLocked() bool {
	state, err := persistence.ReadHandoff(c.layout)
	if err != nil {
		return c.notifierActive
	}
	return state.Active
}

func (c *Controller) writeHandoff(state persistence.HandoffState) {
	if err := persistence.WriteHandoff(c.layout, state); err != nil {
		c.logger.Error("error saving state", "error", err)
	}
}
