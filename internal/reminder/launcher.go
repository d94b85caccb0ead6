package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/nateberkopec/cardnudge/internal/persistence"
)

// NotifierBinary is the executable started for the notification window.
const NotifierBinary = "cardnudge-notifier"

// ProcessLauncher starts the notifier as a detached process.
type ProcessLauncher struct {
	Layout persistence.Layout
	Path   string
	Logger *slog.Logger
}

// DefaultNotifierPath looks next to the running executable first, then PATH.
func DefaultNotifierPath() string {
	name := NotifierBinary
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	if path, err := exec.LookPath(name); err == nil {
		return path
	}
	return name
}

// Launch marks the handoff active and starts the notifier. The child exits on
// its own when the handoff turns inactive; Wait only reaps it. A failed start
// puts the handoff back to inactive so the next launch is not skipped.
func (l *ProcessLauncher) Launch(_ context.Context, inReview bool) error {
	if err := persistence.WriteHandoff(l.Layout, persistence.HandoffState{Active: true, InReview: inReview}); err != nil {
		return err
	}

	path := l.Path
	if path == "" {
		path = DefaultNotifierPath()
	}

	// Not tied to a context: the notifier must outlive this call.
	cmd := exec.Command(path, "--dir", l.Layout.Dir)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	detach(cmd)

	if err := cmd.Start(); err != nil {
		if werr := persistence.WriteHandoff(l.Layout, persistence.HandoffState{InReview: inReview}); werr != nil && l.Logger != nil {
			l.Logger.Error("error saving state", "error", werr)
		}
		return fmt.Errorf("starting notifier %s: %w", path, err)
	}
	if l.Logger != nil {
		l.Logger.Info("notifier started", "pid", cmd.Process.Pid, "path", path)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
