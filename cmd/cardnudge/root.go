package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nateberkopec/cardnudge/internal/persistence"
)

var (
	verbose bool
	cfg     = viper.New()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cardnudge",
	Short: "Reminds you to review when flashcards are due",
	Long: `cardnudge watches a flashcard collection and nudges you with a rotating
message, a count badge, and desktop toasts whenever cards are waiting.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setLogOutput(os.Stderr)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().String("dir", "", "state directory (default $CARDNUDGE_DIR or $XDG_DATA_HOME/cardnudge)")
	rootCmd.PersistentFlags().String("collection", "", "path to the collection file (or $CARDNUDGE_COLLECTION)")

	cfg.SetEnvPrefix("cardnudge")
	cfg.AutomaticEnv()
	_ = cfg.BindPFlag("dir", rootCmd.PersistentFlags().Lookup("dir"))
	_ = cfg.BindPFlag("collection", rootCmd.PersistentFlags().Lookup("collection"))
}

func setLogOutput(w io.Writer) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}
	logger := slog.New(slog.NewTextHandler(w, opts))
	slog.SetDefault(logger)
}

// logToFile redirects logging while a full-screen view owns the terminal.
func logToFile(path string) (io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	setLogOutput(f)
	return f, nil
}

func resolveLayout() (persistence.Layout, error) {
	dir := cfg.GetString("dir")
	if dir == "" {
		var err error
		dir, err = persistence.DefaultDir()
		if err != nil {
			return persistence.Layout{}, err
		}
	}
	layout := persistence.NewLayout(dir)
	if err := layout.Ensure(); err != nil {
		return persistence.Layout{}, err
	}
	return layout, nil
}

func collectionPath() (string, error) {
	path := cfg.GetString("collection")
	if path == "" {
		return "", fmt.Errorf("no collection configured: pass --collection or set CARDNUDGE_COLLECTION")
	}
	return path, nil
}
