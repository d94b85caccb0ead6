package persistence

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// AllCategories is the category label that disables deck scoping.
const AllCategories = "all"

const (
	defaultEnabled  = true
	defaultInterval = 5
)

// ErrInvalidInterval is returned for interval input that is not a positive integer.
var ErrInvalidInterval = errors.New("interval must be a whole number of minutes greater than 0")

// Settings is the flat user configuration.
type Settings struct {
	NotificationEnabled         bool   `json:"notificationEnabled" mapstructure:"notificationEnabled"`
	NotificationIntervalMinutes int    `json:"notificationIntervalMinutes" mapstructure:"notificationIntervalMinutes"`
	SelectedCategory            string `json:"selectedCategory" mapstructure:"selectedCategory"`
}

// DefaultSettings returns the values used for any key missing on disk.
func DefaultSettings() Settings {
	return Settings{
		NotificationEnabled:         defaultEnabled,
		NotificationIntervalMinutes: defaultInterval,
		SelectedCategory:            AllCategories,
	}
}

// AllCategoriesSelected reports whether due counts cover the whole collection.
func (s Settings) AllCategoriesSelected() bool {
	return s.SelectedCategory == "" || s.SelectedCategory == AllCategories
}

// LoadSettings merges the stored JSON over the defaults. It never fails: read
// and parse errors are logged and the defaults are returned.
func LoadSettings(l Layout, logger *slog.Logger) Settings {
	if logger == nil {
		logger = slog.Default()
	}
	path := l.SettingsPath()

	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Error("error loading settings", "path", path, "error", err)
		}
		return DefaultSettings()
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	v.SetDefault("notificationEnabled", defaultEnabled)
	v.SetDefault("notificationIntervalMinutes", defaultInterval)
	v.SetDefault("selectedCategory", AllCategories)

	if err := v.ReadInConfig(); err != nil {
		logger.Error("error loading settings", "path", path, "error", err)
		return DefaultSettings()
	}

	settings := DefaultSettings()
	if err := v.Unmarshal(&settings); err != nil {
		logger.Error("error parsing settings", "path", path, "error", err)
		return DefaultSettings()
	}

	if settings.NotificationIntervalMinutes <= 0 {
		logger.Warn("ignoring non-positive notification interval",
			"path", path, "interval", settings.NotificationIntervalMinutes)
		settings.NotificationIntervalMinutes = defaultInterval
	}
	if strings.TrimSpace(settings.SelectedCategory) == "" {
		settings.SelectedCategory = AllCategories
	}

	return settings
}

// SaveSettings overwrites the settings file with s.
func SaveSettings(l Layout, s Settings) error {
	if err := WriteJSON(l.SettingsPath(), s); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// ParseInterval validates the interval text typed into the settings dialog.
func ParseInterval(text string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidInterval, text)
	}
	if value <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidInterval, value)
	}
	return value, nil
}
