package watch

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nateberkopec/cardnudge/internal/collection"
)

type stubCounter struct {
	mu       sync.Mutex
	counts   collection.Counts
	err      error
	calls    atomic.Int32
	category string
}

func (s *stubCounter) Counts(_ context.Context, category string) (collection.Counts, error) {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.category = category
	return s.counts, s.err
}

type recordingToaster struct {
	mu       sync.Mutex
	messages []string
	icons    []string
	err      error
}

func (r *recordingToaster) Notify(_, message, icon string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
	r.icons = append(r.icons, icon)
	return r.err
}

func (r *recordingToaster) sent() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

func TestCheckToastsWhenCardsAreActionable(t *testing.T) {
	counter := &stubCounter{counts: collection.Counts{New: 2, Due: 3}}
	toaster := &recordingToaster{}
	iconDir := t.TempDir()
	w := New(Config{Probe: counter, Toaster: toaster, IconDir: iconDir})

	result := w.Check(context.Background())

	assert.Equal(t, 5, result.Count)
	assert.NoError(t, result.Err)
	assert.Equal(t, "all", counter.category)
	assert.Equal(t, []string{"5 cards to review"}, toaster.sent())
	assert.Equal(t, filepath.Join(iconDir, "star-5.png"), toaster.icons[0])
	assert.Equal(t, result, w.Last())
}

func TestCheckStaysQuietWithoutCards(t *testing.T) {
	counter := &stubCounter{}
	toaster := &recordingToaster{}
	w := New(Config{Probe: counter, Toaster: toaster, Category: "Spanish"})

	result := w.Check(context.Background())

	assert.Zero(t, result.Count)
	assert.Empty(t, toaster.sent())
	assert.Equal(t, "Spanish", counter.category)
}

func TestCheckTreatsQueryErrorAsZero(t *testing.T) {
	counter := &stubCounter{counts: collection.Counts{Due: 4}, err: errors.New("database is locked")}
	toaster := &recordingToaster{}
	w := New(Config{Probe: counter, Toaster: toaster})

	result := w.Check(context.Background())

	assert.Zero(t, result.Count)
	assert.Error(t, result.Err)
	assert.Empty(t, toaster.sent())
}

func TestToastErrorsAreIgnored(t *testing.T) {
	counter := &stubCounter{counts: collection.Counts{New: 1}}
	toaster := &recordingToaster{err: errors.New("no notification daemon")}
	w := New(Config{Probe: counter, Toaster: toaster})

	result := w.Check(context.Background())

	assert.Equal(t, 1, result.Count)
	assert.NoError(t, result.Err)
}

func TestRunPollsUntilCancelled(t *testing.T) {
	counter := &stubCounter{counts: collection.Counts{Due: 1}}
	toaster := &recordingToaster{}
	w := New(Config{Probe: counter, Toaster: toaster, Interval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return counter.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop after cancellation")
	}
	assert.GreaterOrEqual(t, len(toaster.sent()), 3)
}

func TestTriggerForcesCheck(t *testing.T) {
	counter := &stubCounter{}
	w := New(Config{Probe: counter, Interval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.Eventually(t, func() bool { return counter.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	w.Trigger()
	require.Eventually(t, func() bool { return counter.calls.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestProbeAgainstMissingCollection(t *testing.T) {
	probe := collection.NewProbe(filepath.Join(t.TempDir(), "collection.anki2"), nil)
	toaster := &recordingToaster{}
	w := New(Config{Probe: probe, Toaster: toaster})

	result := w.Check(context.Background())

	assert.Zero(t, result.Count)
	assert.Error(t, result.Err)
	assert.Empty(t, toaster.sent())
}
