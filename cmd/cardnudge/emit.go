package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/nateberkopec/cardnudge/internal/hostevent"
)

var emitCmd = &cobra.Command{
	Use:   "emit KIND [CATEGORY]",
	Short: "Send a host event to the running reminder",
	Long: `emit forwards one lifecycle event from the review application, for
example "cardnudge emit review_started Japanese". Known kinds:
profile_opened, collection_loaded, review_started, review_ended,
card_answered, sync_finished, state_changed, settings_changed,
show_notification, close_notification.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := hostevent.ParseKind(args[0])
		if err != nil {
			return err
		}
		ev := hostevent.Event{Kind: kind}
		if len(args) == 2 {
			ev.Category = args[1]
		}

		layout, err := resolveLayout()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()
		return hostevent.Send(ctx, layout.SocketPath(), ev)
	},
}

func init() {
	rootCmd.AddCommand(emitCmd)
}
