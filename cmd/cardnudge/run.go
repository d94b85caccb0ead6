package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/nateberkopec/cardnudge/internal/app"
	"github.com/nateberkopec/cardnudge/internal/collection"
	"github.com/nateberkopec/cardnudge/internal/hostevent"
	"github.com/nateberkopec/cardnudge/internal/reminder"
)

var (
	notifierPath string
	headless     bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the reminder, listening for host events",
	Long: `run keeps the due count current, shows the dashboard on a terminal, and
starts the notifier window on every reminder. Host events arrive on the
events socket in the state directory (see "cardnudge emit").`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		layout, err := resolveLayout()
		if err != nil {
			return err
		}
		path, err := collectionPath()
		if err != nil {
			return err
		}

		interactive := !headless && isatty.IsTerminal(os.Stdout.Fd())
		if interactive {
			closer, err := logToFile(layout.LogPath())
			if err != nil {
				return err
			}
			defer closer.Close()
		}
		logger := slog.Default()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		listener, err := hostevent.Listen(layout.SocketPath(), logger)
		if err != nil {
			return err
		}

		var presenter reminder.Presenter = &app.LogPresenter{Logger: logger}
		var dashboard *app.Presenter
		if interactive {
			dashboard = app.NewPresenter()
			presenter = dashboard
		}

		ctl := reminder.New(reminder.Config{
			Layout:    layout,
			Probe:     collection.NewProbe(path, logger),
			Presenter: presenter,
			Launcher:  &reminder.ProcessLauncher{Layout: layout, Path: notifierPath, Logger: logger},
			Logger:    logger,
		})

		serveCtx, cancelServe := context.WithCancel(ctx)
		defer cancelServe()
		go func() {
			if err := listener.Serve(serveCtx); err != nil {
				logger.Error("host event listener stopped", "error", err)
			}
		}()
		go func() {
			for ev := range listener.Events() {
				ctl.HandleEvent(serveCtx, ev)
			}
		}()

		ctl.Start(ctx)
		defer ctl.Stop()
		logger.Info("reminder running", "dir", layout.Dir, "collection", path)

		if !interactive {
			<-ctx.Done()
			return nil
		}

		program := tea.NewProgram(
			app.New(app.Config{Controller: ctl}),
			tea.WithAltScreen(),
			tea.WithMouseCellMotion(),
			tea.WithContext(ctx),
		)
		dashboard.Attach(program)

		if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return err
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&notifierPath, "notifier", "", "path to the cardnudge-notifier binary (default: next to this binary, then $PATH)")
	runCmd.Flags().BoolVar(&headless, "headless", false, "skip the dashboard even on a terminal")
	rootCmd.AddCommand(runCmd)
}
