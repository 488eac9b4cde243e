// Package config persists the operator settings snapshot: colors, timer
// duration, and the last committed selections. It is a flat key-value JSON
// file, loaded once at startup and rewritten on debounced selection or
// settings changes.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const DefaultPath = "overlay_config.json"

// Settings is the durable operator state. Empty strings mean "never set".
type Settings struct {
	BackgroundColor     string `json:"background_color"`
	TimerDuration       int    `json:"timer_duration"`
	LeftColor           string `json:"left_color"`
	RightColor          string `json:"right_color"`
	LastTournament      string `json:"last_tournament,omitempty"`
	LastLeftCompetitor  string `json:"last_left_competitor,omitempty"`
	LastRightCompetitor string `json:"last_right_competitor,omitempty"`
}

// DefaultSettings returns the chroma-key green background, red/blue name
// colors, and a two minute match timer.
func DefaultSettings() Settings {
	return Settings{
		BackgroundColor: "#00FF00",
		TimerDuration:   120,
		LeftColor:       "#C22E2E",
		RightColor:      "#2D5FCC",
	}
}

// Load reads the settings file. A missing file is not an error: defaults are
// returned. Fields absent from the file keep their defaults.
func Load(path string) (Settings, error) {
	settings := DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return settings, nil
		}
		return settings, fmt.Errorf("failed to read settings file: %w", err)
	}

	if err := json.Unmarshal(data, &settings); err != nil {
		return DefaultSettings(), fmt.Errorf("failed to parse settings file: %w", err)
	}
	return settings, nil
}

// Save writes the full snapshot. The write goes through a temp file and
// rename so a crash mid-write never leaves a torn settings file.
func Save(path string, settings Settings) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".overlay_config-*")
	if err != nil {
		return fmt.Errorf("failed to create temp settings file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close settings file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace settings file: %w", err)
	}
	return nil
}
