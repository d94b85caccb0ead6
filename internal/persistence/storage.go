package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const appDirName = "cardnudge"

// Layout names every file the main process and the notifier share. Both
// processes are started with the same directory so they agree on paths.
type Layout struct {
	Dir string
}

// NewLayout returns a layout rooted at dir.
func NewLayout(dir string) Layout {
	return Layout{Dir: dir}
}

// DefaultDir resolves the state directory: $CARDNUDGE_DIR, then
// $XDG_DATA_HOME/cardnudge, then ~/.local/share/cardnudge.
func DefaultDir() (string, error) {
	if dir := os.Getenv("CARDNUDGE_DIR"); dir != "" {
		return dir, nil
	}

	xdgData := os.Getenv("XDG_DATA_HOME")
	if xdgData == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		xdgData = filepath.Join(home, ".local", "share")
	}

	return filepath.Join(xdgData, appDirName), nil
}

// Ensure creates the state directory and its image and icon folders.
func (l Layout) Ensure() error {
	for _, dir := range []string{l.Dir, l.ImagesDir(), l.IconsDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	return nil
}

func (l Layout) SettingsPath() string { return filepath.Join(l.Dir, "settings.json") }
func (l Layout) PairsPath() string    { return filepath.Join(l.Dir, "message_image_pairs.json") }
func (l Layout) LegacyPath() string   { return filepath.Join(l.Dir, "msg.txt") }
func (l Layout) HandoffPath() string  { return filepath.Join(l.Dir, "handoff.json") }
func (l Layout) SnapshotPath() string { return filepath.Join(l.Dir, "card_count.json") }
func (l Layout) SocketPath() string   { return filepath.Join(l.Dir, "events.sock") }
func (l Layout) ImagesDir() string    { return filepath.Join(l.Dir, "images") }
func (l Layout) IconsDir() string     { return filepath.Join(l.Dir, "icons") }
func (l Layout) LogPath() string      { return filepath.Join(l.Dir, "cardnudge.log") }

// NotifierLogPath is where the detached notifier writes its log.
func (l Layout) NotifierLogPath() string { return filepath.Join(l.Dir, "notifier.log") }

// WriteJSON marshals v and replaces path with it through a temp file.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", filepath.Base(path), err)
	}

	return nil
}
