package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"github.com/nateberkopec/cardnudge/internal/notifier"
	"github.com/nateberkopec/cardnudge/internal/persistence"
)

func main() {
	var (
		dir      string
		headless bool
		verbose  bool
	)

	flag.StringVar(&dir, "dir", "", "state directory shared with cardnudge run")
	flag.BoolVar(&headless, "headless", false, "send toasts only, without a terminal view")
	flag.BoolVar(&verbose, "verbose", false, "enable verbose logging")
	flag.Parse()

	if dir == "" {
		var err error
		dir, err = persistence.DefaultDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}
	layout := persistence.NewLayout(dir)
	if err := layout.Ensure(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// The terminal, when there is one, belongs to the view.
	logFile, err := os.OpenFile(layout.NotifierLogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wake, err := notifier.WatchHandoff(ctx, layout, logger)
	if err != nil {
		logger.Warn("falling back to polling only", "error", err)
	}

	model := notifier.New(notifier.Config{
		Layout: layout,
		Logger: logger,
		Wake:   wake,
	})

	opts := []tea.ProgramOption{}
	if headless || !isatty.IsTerminal(os.Stdout.Fd()) {
		opts = append(opts, tea.WithoutRenderer(), tea.WithInput(nil))
	}

	logger.Info("notifier started", "pid", os.Getpid(), "dir", layout.Dir)
	if _, err := tea.NewProgram(model, opts...).Run(); err != nil {
		logger.Error("notifier stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("notifier exited", "closed_by_user", model.Closed())
}
