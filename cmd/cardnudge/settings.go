package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/nateberkopec/cardnudge/internal/app"
	"github.com/nateberkopec/cardnudge/internal/collection"
	"github.com/nateberkopec/cardnudge/internal/hostevent"
	"github.com/nateberkopec/cardnudge/internal/persistence"
)

var (
	settingsEnabled  bool
	settingsInterval string
	settingsCategory string
	settingsShow     bool
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Change the reminder interval, category, or on/off switch",
	Long: `settings opens the settings form on a terminal. Flags change values
without the form. A running "cardnudge run" picks the change up immediately.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		layout, err := resolveLayout()
		if err != nil {
			return err
		}
		current := persistence.LoadSettings(layout, slog.Default())

		if settingsShow {
			fmt.Printf("enabled: %t\ninterval: %d\ncategory: %s\n",
				current.NotificationEnabled, current.NotificationIntervalMinutes, current.SelectedCategory)
			return nil
		}

		enabled := current.NotificationEnabled
		interval := strconv.Itoa(current.NotificationIntervalMinutes)
		category := current.SelectedCategory

		flags := cmd.Flags()
		if flags.Changed("enabled") || flags.Changed("interval") || flags.Changed("category") {
			if flags.Changed("enabled") {
				enabled = settingsEnabled
			}
			if flags.Changed("interval") {
				interval = settingsInterval
			}
			if flags.Changed("category") {
				category = settingsCategory
			}
		} else {
			if !isatty.IsTerminal(os.Stdin.Fd()) {
				return errors.New("no terminal for the settings form: pass --enabled, --interval, or --category")
			}
			form := app.SettingsForm(&enabled, &interval, &category, categoryChoices(cmd.Context()))
			if err := form.Run(); err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					return nil
				}
				return err
			}
		}

		minutes, err := persistence.ParseInterval(interval)
		if err != nil {
			return err
		}
		if category == "" {
			category = persistence.AllCategories
		}
		next := persistence.Settings{
			NotificationEnabled:         enabled,
			NotificationIntervalMinutes: minutes,
			SelectedCategory:            category,
		}
		if err := persistence.SaveSettings(layout, next); err != nil {
			return err
		}
		fmt.Println("Settings saved.")

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Second)
		defer cancel()
		if err := hostevent.Send(ctx, layout.SocketPath(), hostevent.Event{Kind: hostevent.SettingsChanged}); err != nil {
			slog.Debug("no running reminder to notify", "error", err)
		}
		return nil
	},
}

func categoryChoices(ctx context.Context) []string {
	path, err := collectionPath()
	if err != nil {
		return []string{persistence.AllCategories}
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return collection.NewProbe(path, slog.Default()).Categories(ctx)
}

func init() {
	settingsCmd.Flags().BoolVar(&settingsEnabled, "enabled", true, "turn reminders on or off")
	settingsCmd.Flags().StringVar(&settingsInterval, "interval", "", "minutes between reminders")
	settingsCmd.Flags().StringVar(&settingsCategory, "category", "", `deck to count, or "all"`)
	settingsCmd.Flags().BoolVar(&settingsShow, "show", false, "print the current settings and exit")
	rootCmd.AddCommand(settingsCmd)
}
