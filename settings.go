package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/lucasb-eyer/go-colorful"

	"overlay-gpt/layout"
)

const (
	configDir    = "config"
	settingsFile = "settings.json"
)

var (
	settings      Settings
	settingsMutex sync.RWMutex
)

func defaultSettings() Settings {
	return Settings{
		BoxColor:      layout.DefaultColor,
		DefaultTarget: "ko",
	}
}

// validate normalizes the color to #rrggbb and fills empty fields with
// their defaults.
func (s Settings) validate() (Settings, error) {
	defaults := defaultSettings()
	if s.BoxColor == "" {
		s.BoxColor = defaults.BoxColor
	}
	c, err := colorful.Hex(s.BoxColor)
	if err != nil {
		return s, fmt.Errorf("invalid box color %q: %w", s.BoxColor, err)
	}
	s.BoxColor = c.Hex()
	if s.DefaultTarget == "" {
		s.DefaultTarget = defaults.DefaultTarget
	}
	return s, nil
}

// currentSettings returns a copy of the active settings.
func currentSettings() Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settings
}

// updateSettings validates, stores and persists new settings.
func updateSettings(s Settings) (Settings, error) {
	s, err := s.validate()
	if err != nil {
		return s, err
	}
	settingsMutex.Lock()
	defer settingsMutex.Unlock()
	settings = s
	return s, saveSettingsLocked()
}

// saveSettingsLocked performs the actual saving without locking the mutex.
// This is to be called from functions that already hold the lock.
func saveSettingsLocked() error {
	// Ensure the config directory exists
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(configDir, settingsFile), data, 0644)
}

// loadSettings loads the settings from settings.json, creating it with defaults if it doesn't exist or is corrupt.
func loadSettings() {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settingsPath := filepath.Join(configDir, settingsFile)
	data, err := os.ReadFile(settingsPath)

	if err != nil {
		settings = defaultSettings()
		if os.IsNotExist(err) {
			// File doesn't exist, create it with defaults
			log.Infof("Settings file not found at %s, creating with default values.", settingsPath)
			if err := saveSettingsLocked(); err != nil {
				log.Fatalf("Failed to create default settings file: %v", err)
			}
		} else {
			log.Warnf("Failed to read settings file: %v. Loading default settings.", err)
		}
		return
	}

	var loaded Settings
	if err := json.Unmarshal(data, &loaded); err != nil {
		log.Warnf("Failed to parse settings file, please check its format. Loading default settings. Error: %v", err)
		settings = defaultSettings()
		return
	}
	if settings, err = loaded.validate(); err != nil {
		log.Warnf("Invalid settings file: %v. Loading default settings.", err)
		settings = defaultSettings()
		return
	}

	log.Info("Successfully loaded settings from settings.json")
}
