package reminder

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nateberkopec/cardnudge/internal/hostevent"
	"github.com/nateberkopec/cardnudge/internal/persistence"
)

type stubProbe struct {
	count atomic.Int32
	calls atomic.Int32
}

func (p *stubProbe) DueCount(context.Context, string) int {
	p.calls.Add(1)
	return int(p.count.Load())
}

func (p *stubProbe) Categories(context.Context) []string {
	return []string{"all", "Japanese"}
}

type recordingPresenter struct {
	mu    sync.Mutex
	shown []Progress
}

func (r *recordingPresenter) ShowProgress(p Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shown = append(r.shown, p)
}

func (r *recordingPresenter) last() (Progress, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.shown) == 0 {
		return Progress{}, 0
	}
	return r.shown[len(r.shown)-1], len(r.shown)
}

// stubLauncher behaves like ProcessLauncher without starting anything.
type stubLauncher struct {
	layout   persistence.Layout
	launches atomic.Int32
}

func (l *stubLauncher) Launch(_ context.Context, inReview bool) error {
	l.launches.Add(1)
	return persistence.WriteHandoff(l.layout, persistence.HandoffState{Active: true, InReview: inReview})
}

type fixture struct {
	layout    persistence.Layout
	probe     *stubProbe
	presenter *recordingPresenter
	launcher  *stubLauncher
	ctl       *Controller
}

func newFixture(t *testing.T, settings persistence.Settings, count int) *fixture {
	t.Helper()
	layout := persistence.NewLayout(t.TempDir())
	require.NoError(t, persistence.SaveSettings(layout, settings))

	f := &fixture{
		layout:    layout,
		probe:     &stubProbe{},
		presenter: &recordingPresenter{},
		launcher:  &stubLauncher{layout: layout},
	}
	f.probe.count.Store(int32(count))
	f.ctl = New(Config{
		Layout:        layout,
		Probe:         f.probe,
		Presenter:     f.presenter,
		Launcher:      f.launcher,
		IntervalUnit:  10 * time.Millisecond,
		RelaunchDelay: 10 * time.Millisecond,
	})
	t.Cleanup(f.ctl.Stop)
	return f
}

// start runs Start and waits for the delayed first launch.
func (f *fixture) start(t *testing.T) {
	t.Helper()
	f.ctl.Start(context.Background())
	require.Eventually(t, func() bool {
		return f.launcher.launches.Load() >= 1
	}, 2*time.Second, 5*time.Millisecond)
}

func (f *fixture) handoff(t *testing.T) persistence.HandoffState {
	t.Helper()
	state, err := persistence.ReadHandoff(f.layout)
	require.NoError(t, err)
	return state
}

func defaultSettings() persistence.Settings {
	return persistence.Settings{
		NotificationEnabled:         true,
		NotificationIntervalMinutes: 5,
		SelectedCategory:            "all",
	}
}

func TestStartPublishesCountAndLaunches(t *testing.T) {
	f := newFixture(t, defaultSettings(), 3)

	f.start(t)

	progress, _ := f.presenter.last()
	assert.Equal(t, Progress{Count: 3, Category: "all", Title: "Anki (3)"}, progress)

	snap, err := persistence.ReadSnapshot(f.layout)
	require.NoError(t, err)
	assert.Equal(t, persistence.DueCountSnapshot{Count: 3, CategoryLabel: "all"}, snap)

	assert.EqualValues(t, 1, f.launcher.launches.Load())
	assert.True(t, f.handoff(t).Active)
	assert.True(t, f.ctl.Status().Armed)
}

func TestStartWaitsBeforeLaunching(t *testing.T) {
	settings := defaultSettings()
	settings.NotificationIntervalMinutes = 500
	f := newFixture(t, settings, 3)
	f.ctl.relaunchDelay = 150 * time.Millisecond
	require.NoError(t, persistence.WriteHandoff(f.layout, persistence.HandoffState{Active: true}))

	f.ctl.Start(context.Background())

	// A notifier from an earlier run gets a full delay to see this.
	assert.False(t, f.handoff(t).Active)
	assert.EqualValues(t, 0, f.launcher.launches.Load())

	require.Eventually(t, func() bool {
		return f.launcher.launches.Load() == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.True(t, f.handoff(t).Active)
}

func TestStopCancelsPendingLaunch(t *testing.T) {
	f := newFixture(t, defaultSettings(), 3)
	f.ctl.relaunchDelay = 50 * time.Millisecond

	f.ctl.Start(context.Background())
	f.ctl.Stop()
	time.Sleep(150 * time.Millisecond)

	assert.EqualValues(t, 0, f.launcher.launches.Load())
	assert.False(t, f.handoff(t).Active)
}

// countingLauncher counts attempts made through a real ProcessLauncher.
type countingLauncher struct {
	inner    *ProcessLauncher
	attempts atomic.Int32
}

func (l *countingLauncher) Launch(ctx context.Context, inReview bool) error {
	l.attempts.Add(1)
	return l.inner.Launch(ctx, inReview)
}

func TestFailedLaunchLeavesHandoffInactive(t *testing.T) {
	layout := persistence.NewLayout(t.TempDir())
	settings := defaultSettings()
	settings.NotificationEnabled = false
	require.NoError(t, persistence.SaveSettings(layout, settings))

	launcher := &countingLauncher{inner: &ProcessLauncher{
		Layout: layout,
		Path:   filepath.Join(t.TempDir(), "no-such-notifier"),
	}}
	ctl := New(Config{Layout: layout, Launcher: launcher})
	t.Cleanup(ctl.Stop)
	ctx := context.Background()
	ctl.Start(ctx)

	ctl.ShowNotification(ctx)
	state, err := persistence.ReadHandoff(layout)
	require.NoError(t, err)
	assert.False(t, state.Active)
	assert.False(t, ctl.Status().NotifierActive)

	ctl.ShowNotification(ctx)
	assert.EqualValues(t, 2, launcher.attempts.Load(), "a failed start must not block the next one")
}

func TestTimerRelaunchesNotifierWhenCardsAreDue(t *testing.T) {
	f := newFixture(t, defaultSettings(), 3)
	f.start(t)

	// The notifier was closed from its tray menu.
	require.NoError(t, persistence.WriteHandoff(f.layout, persistence.HandoffState{Active: false}))

	require.Eventually(t, func() bool {
		return f.launcher.launches.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond)

	progress, _ := f.presenter.last()
	assert.Equal(t, "Anki (3)", progress.Title)
}

func TestTimerDoesNothingWithoutDueCards(t *testing.T) {
	f := newFixture(t, defaultSettings(), 0)
	f.start(t)
	require.NoError(t, persistence.WriteHandoff(f.layout, persistence.HandoffState{Active: false}))

	require.Eventually(t, func() bool { return f.probe.calls.Load() >= 4 }, 2*time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 1, f.launcher.launches.Load())

	progress, _ := f.presenter.last()
	assert.Equal(t, "Anki", progress.Title)
}

func TestReviewSuppressesAndRearms(t *testing.T) {
	f := newFixture(t, defaultSettings(), 3)
	ctx := context.Background()
	f.start(t)

	f.ctl.HandleEvent(ctx, hostevent.Event{Kind: hostevent.ReviewStarted, Category: "Japanese"})
	status := f.ctl.Status()
	assert.True(t, status.InReview)
	assert.False(t, status.Armed)
	assert.Equal(t, persistence.HandoffState{Active: true, InReview: true}, f.handoff(t))

	require.NoError(t, persistence.WriteHandoff(f.layout, persistence.HandoffState{Active: false, InReview: true}))
	time.Sleep(120 * time.Millisecond)
	assert.EqualValues(t, 1, f.launcher.launches.Load(), "no reminder may fire while reviewing")

	f.ctl.HandleEvent(ctx, hostevent.Event{Kind: hostevent.ReviewEnded, Category: "Japanese"})
	status = f.ctl.Status()
	assert.False(t, status.InReview)
	assert.True(t, status.Armed)
	assert.Equal(t, persistence.HandoffState{Active: false, InReview: false}, f.handoff(t))
}

func TestReviewInOtherCategoryIsIgnored(t *testing.T) {
	settings := defaultSettings()
	settings.SelectedCategory = "Japanese"
	f := newFixture(t, settings, 2)
	f.start(t)

	f.ctl.OnEnterReview("Spanish")
	assert.False(t, f.ctl.Status().InReview)

	f.ctl.OnEnterReview("Japanese::Kanji")
	assert.True(t, f.ctl.Status().InReview)

	progress, _ := f.presenter.last()
	assert.Equal(t, "Anki (2) - Japanese", progress.Title)
}

func TestApplySettingsRejectsBadInterval(t *testing.T) {
	f := newFixture(t, defaultSettings(), 1)
	before, err := os.ReadFile(f.layout.SettingsPath())
	require.NoError(t, err)

	for _, input := range []string{"0", "-4", "soon", ""} {
		err := f.ctl.ApplySettings(context.Background(), SettingsInput{Enabled: true, Interval: input, Category: "all"})
		assert.ErrorIs(t, err, persistence.ErrInvalidInterval, "input %q", input)
	}

	after, err := os.ReadFile(f.layout.SettingsPath())
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
	assert.Equal(t, 5, f.ctl.Settings().NotificationIntervalMinutes)
}

func TestApplySettingsSavesAndRestartsNotifier(t *testing.T) {
	f := newFixture(t, defaultSettings(), 4)
	ctx := context.Background()
	f.start(t)

	err := f.ctl.ApplySettings(ctx, SettingsInput{Enabled: true, Interval: " 10 ", Category: "Japanese"})
	require.NoError(t, err)

	saved := persistence.LoadSettings(f.layout, nil)
	assert.Equal(t, persistence.Settings{
		NotificationEnabled:         true,
		NotificationIntervalMinutes: 10,
		SelectedCategory:            "Japanese",
	}, saved)

	require.Eventually(t, func() bool {
		return f.launcher.launches.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond)
	assert.True(t, f.handoff(t).Active)
}

func TestApplySettingsDisabledClosesNotifier(t *testing.T) {
	f := newFixture(t, defaultSettings(), 4)
	ctx := context.Background()
	f.start(t)

	require.NoError(t, f.ctl.ApplySettings(ctx, SettingsInput{Enabled: false, Interval: "5", Category: "all"}))
	time.Sleep(50 * time.Millisecond)

	assert.False(t, f.handoff(t).Active)
	assert.False(t, f.ctl.Status().Armed)
	assert.EqualValues(t, 1, f.launcher.launches.Load())
}

func TestCheckForNewCardsOnlyRepublishesOnChange(t *testing.T) {
	settings := defaultSettings()
	settings.NotificationEnabled = false
	f := newFixture(t, settings, 2)
	ctx := context.Background()
	f.ctl.Start(ctx)
	_, before := f.presenter.last()

	f.ctl.HandleEvent(ctx, hostevent.Event{Kind: hostevent.CardAnswered})
	_, same := f.presenter.last()
	assert.Equal(t, before, same)

	f.probe.count.Store(1)
	f.ctl.HandleEvent(ctx, hostevent.Event{Kind: hostevent.SyncFinished})
	progress, after := f.presenter.last()
	assert.Equal(t, before+1, after)
	assert.Equal(t, 1, progress.Count)
}

func TestShowAndCloseNotification(t *testing.T) {
	settings := defaultSettings()
	settings.NotificationEnabled = false
	f := newFixture(t, settings, 0)
	ctx := context.Background()
	f.ctl.Start(ctx)
	assert.EqualValues(t, 0, f.launcher.launches.Load())

	f.ctl.HandleEvent(ctx, hostevent.Event{Kind: hostevent.ShowNotification})
	f.ctl.HandleEvent(ctx, hostevent.Event{Kind: hostevent.ShowNotification})
	assert.EqualValues(t, 1, f.launcher.launches.Load(), "an active notifier is not started twice")

	f.ctl.HandleEvent(ctx, hostevent.Event{Kind: hostevent.CloseNotification})
	assert.False(t, f.handoff(t).Active)
}

func TestReloadPicksUpExternalEdits(t *testing.T) {
	settings := defaultSettings()
	settings.NotificationEnabled = false
	f := newFixture(t, settings, 0)
	ctx := context.Background()

	settings.SelectedCategory = "Japanese"
	require.NoError(t, persistence.SaveSettings(f.layout, settings))
	require.NoError(t, os.WriteFile(f.layout.LegacyPath(), []byte("hello\n"), 0644))

	f.ctl.HandleEvent(ctx, hostevent.Event{Kind: hostevent.SettingsChanged})

	assert.Equal(t, "Japanese", f.ctl.Settings().SelectedCategory)
	assert.Equal(t, 1, f.ctl.Library().Len())
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Anki", Title(0, "all"))
	assert.Equal(t, "Anki (3)", Title(3, "all"))
	assert.Equal(t, "Anki (3) - Spanish", Title(3, "Spanish"))
}
