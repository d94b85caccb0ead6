package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nateberkopec/cardnudge/internal/collection"
	"github.com/nateberkopec/cardnudge/internal/notifier"
	"github.com/nateberkopec/cardnudge/internal/watch"
)

var (
	watchInterval time.Duration
	watchCategory string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll the collection and toast while cards are due",
	Long: `watch is the standalone reminder. It needs no host events: every
interval it opens the collection read-only, counts new and due cards, and
raises a desktop toast when any are waiting. SIGHUP forces a check.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := collectionPath()
		if err != nil {
			return err
		}
		logger := slog.Default()

		iconDir := ""
		if layout, err := resolveLayout(); err == nil {
			iconDir = layout.IconsDir()
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		w := watch.New(watch.Config{
			Probe:    collection.NewProbe(path, logger),
			Toaster:  notifier.DesktopToaster{},
			Logger:   logger,
			Interval: watchInterval,
			Category: watchCategory,
			IconDir:  iconDir,
		})
		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-hup:
					logger.Debug("check requested")
					w.Trigger()
				}
			}
		}()

		logger.Info("watching collection", "path", path, "interval", watchInterval, "category", watchCategory)
		err = w.Run(ctx)
		last := w.Last()
		logger.Info("watch stopped", "last_count", last.Count, "checked_at", last.CheckedAt)
		return err
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", watch.DefaultInterval, "time between checks")
	watchCmd.Flags().StringVar(&watchCategory, "category", collection.AllCategories, `deck to count, or "all"`)
	rootCmd.AddCommand(watchCmd)
}
