package persistence

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeRaw(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadSettingsMissingFile(t *testing.T) {
	layout := NewLayout(t.TempDir())

	got := LoadSettings(layout, nil)
	if got != DefaultSettings() {
		t.Fatalf("expected defaults, got %+v", got)
	}
}

func TestLoadSettingsMergesMissingKeys(t *testing.T) {
	layout := NewLayout(t.TempDir())
	writeRaw(t, layout.SettingsPath(), `{"notificationIntervalMinutes": 12}`)

	got := LoadSettings(layout, nil)
	if got.NotificationIntervalMinutes != 12 {
		t.Errorf("expected stored interval 12, got %d", got.NotificationIntervalMinutes)
	}
	if !got.NotificationEnabled {
		t.Error("expected default enabled flag")
	}
	if got.SelectedCategory != AllCategories {
		t.Errorf("expected default category, got %q", got.SelectedCategory)
	}
}

func TestLoadSettingsKeepsPresentKeys(t *testing.T) {
	layout := NewLayout(t.TempDir())
	writeRaw(t, layout.SettingsPath(), `{"notificationEnabled": false, "selectedCategory": "Japanese::Kanji"}`)

	got := LoadSettings(layout, nil)
	if got.NotificationEnabled {
		t.Error("expected stored false to survive the merge")
	}
	if got.SelectedCategory != "Japanese::Kanji" {
		t.Errorf("expected stored category, got %q", got.SelectedCategory)
	}
	if got.NotificationIntervalMinutes != 5 {
		t.Errorf("expected default interval, got %d", got.NotificationIntervalMinutes)
	}
}

func TestLoadSettingsCorruptFileFallsBack(t *testing.T) {
	layout := NewLayout(t.TempDir())
	writeRaw(t, layout.SettingsPath(), `{"notificationEnabled": tru`)

	if got := LoadSettings(layout, nil); got != DefaultSettings() {
		t.Fatalf("expected defaults for corrupt file, got %+v", got)
	}
}

func TestLoadSettingsRejectsNonPositiveInterval(t *testing.T) {
	layout := NewLayout(t.TempDir())
	writeRaw(t, layout.SettingsPath(), `{"notificationIntervalMinutes": -3}`)

	if got := LoadSettings(layout, nil); got.NotificationIntervalMinutes != 5 {
		t.Fatalf("expected default interval, got %d", got.NotificationIntervalMinutes)
	}
}

func TestSaveLoadSettingsRoundTrip(t *testing.T) {
	layout := NewLayout(t.TempDir())
	want := Settings{
		NotificationEnabled:         false,
		NotificationIntervalMinutes: 30,
		SelectedCategory:            "Spanish",
	}

	if err := SaveSettings(layout, want); err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}

	if got := LoadSettings(layout, nil); got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}

	if _, err := os.Stat(layout.SettingsPath() + ".tmp"); !errors.Is(err, os.ErrNotExist) {
		t.Error("expected temp file to be renamed away")
	}
}

func TestParseInterval(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"5", 5, false},
		{" 15 ", 15, false},
		{"0", 0, true},
		{"-2", 0, true},
		{"five", 0, true},
		{"", 0, true},
		{"2.5", 0, true},
	}

	for _, tc := range cases {
		got, err := ParseInterval(tc.in)
		if tc.wantErr {
			if !errors.Is(err, ErrInvalidInterval) {
				t.Errorf("ParseInterval(%q): expected ErrInvalidInterval, got %v", tc.in, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("ParseInterval(%q) = %d, %v; want %d", tc.in, got, err, tc.want)
		}
	}
}

func TestHandoffRoundTrip(t *testing.T) {
	layout := NewLayout(t.TempDir())

	if err := WriteHandoff(layout, HandoffState{Active: true, InReview: true}); err != nil {
		t.Fatalf("WriteHandoff failed: %v", err)
	}

	got, err := ReadHandoff(layout)
	if err != nil {
		t.Fatalf("ReadHandoff failed: %v", err)
	}
	if !got.Active || !got.InReview {
		t.Fatalf("unexpected state %+v", got)
	}
}

func TestReadHandoffMissingActiveDefaultsTrue(t *testing.T) {
	layout := NewLayout(t.TempDir())
	writeRaw(t, layout.HandoffPath(), `{"inReview": true}`)

	got, err := ReadHandoff(layout)
	if err != nil {
		t.Fatalf("ReadHandoff failed: %v", err)
	}
	if !got.Active {
		t.Error("expected missing active flag to read as true")
	}
}

func TestReadHandoffCorrupt(t *testing.T) {
	layout := NewLayout(t.TempDir())
	writeRaw(t, layout.HandoffPath(), `{"active": fa`)

	if _, err := ReadHandoff(layout); err == nil {
		t.Fatal("expected error for malformed handoff file")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	layout := NewLayout(t.TempDir())

	if err := WriteSnapshot(layout, DueCountSnapshot{Count: 3, CategoryLabel: "all"}); err != nil {
		t.Fatalf("WriteSnapshot failed: %v", err)
	}

	data, err := os.ReadFile(layout.SnapshotPath())
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	want := "{\n  \"count\": 3,\n  \"categoryLabel\": \"all\"\n}"
	if string(data) != want {
		t.Errorf("unexpected snapshot body:\n%s", data)
	}

	got, err := ReadSnapshot(layout)
	if err != nil {
		t.Fatalf("ReadSnapshot failed: %v", err)
	}
	if got.Count != 3 || got.CategoryLabel != "all" {
		t.Fatalf("unexpected snapshot %+v", got)
	}
}

func TestDefaultDir(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("CARDNUDGE_DIR", "")
	t.Setenv("XDG_DATA_HOME", tmpDir)

	dir, err := DefaultDir()
	if err != nil {
		t.Fatalf("DefaultDir failed: %v", err)
	}
	if want := filepath.Join(tmpDir, "cardnudge"); dir != want {
		t.Errorf("expected %s, got %s", want, dir)
	}

	t.Setenv("CARDNUDGE_DIR", "/opt/nudge")
	if dir, _ := DefaultDir(); dir != "/opt/nudge" {
		t.Errorf("expected override dir, got %s", dir)
	}
}
