// Package storage persists desktop preferences as YAML under the user config directory.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"focusmatrix/internal/ui/preferences"
)

const settingsFileName = "settings.yaml"

type yamlSettings struct {
	WorkMinutes           int    `yaml:"work_minutes"`
	ShortBreakMinutes     int    `yaml:"short_break_minutes"`
	LongBreakMinutes      int    `yaml:"long_break_minutes"`
	CyclesBeforeLongBreak int    `yaml:"cycles_before_long_break"`
	ServerURL             string `yaml:"server_url"`
	Token                 string `yaml:"token,omitempty"`
	TaskID                string `yaml:"task_id"`
	Notifications         *bool  `yaml:"notifications,omitempty"`
}

// LoadSettings reads user preferences from YAML.
// If the config file does not exist, default settings are returned.
func LoadSettings(appName string) (preferences.Settings, error) {
	configPath, err := resolveConfigPath(appName)
	if err != nil {
		return preferences.DefaultSettings(), err
	}
	return LoadSettingsFile(configPath)
}

// LoadSettingsFile reads preferences from an explicit path.
// Invalid numeric fields keep their defaults.
func LoadSettingsFile(configPath string) (preferences.Settings, error) {
	settings := preferences.DefaultSettings()

	rawData, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return settings, nil
		}
		return settings, fmt.Errorf("read settings file: %w", err)
	}

	var fileData yamlSettings
	if err := yaml.Unmarshal(rawData, &fileData); err != nil {
		return settings, fmt.Errorf("parse settings yaml: %w", err)
	}

	applyYamlSettings(&settings, fileData)
	return settings, nil
}

// SaveSettings writes user preferences to YAML.
func SaveSettings(appName string, settings preferences.Settings) error {
	configPath, err := resolveConfigPath(appName)
	if err != nil {
		return err
	}
	return SaveSettingsFile(configPath, settings)
}

// SaveSettingsFile writes preferences to an explicit path, creating its directory.
func SaveSettingsFile(configPath string, settings preferences.Settings) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	notifications := settings.Notifications
	fileData := yamlSettings{
		WorkMinutes:           settings.WorkMinutes,
		ShortBreakMinutes:     settings.ShortBreakMinutes,
		LongBreakMinutes:      settings.LongBreakMinutes,
		CyclesBeforeLongBreak: settings.CyclesBeforeLongBreak,
		ServerURL:             settings.ServerURL,
		Token:                 settings.Token,
		TaskID:                settings.TaskID,
		Notifications:         &notifications,
	}

	serialized, err := yaml.Marshal(fileData)
	if err != nil {
		return fmt.Errorf("marshal settings yaml: %w", err)
	}

	// The file may hold a bearer token.
	if err := os.WriteFile(configPath, serialized, 0o600); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}
	return nil
}

func resolveConfigPath(appName string) (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(configDir, appName, settingsFileName), nil
}

func applyYamlSettings(settings *preferences.Settings, fileData yamlSettings) {
	if fileData.WorkMinutes > 0 {
		settings.WorkMinutes = fileData.WorkMinutes
	}
	if fileData.ShortBreakMinutes > 0 {
		settings.ShortBreakMinutes = fileData.ShortBreakMinutes
	}
	if fileData.LongBreakMinutes > 0 {
		settings.LongBreakMinutes = fileData.LongBreakMinutes
	}
	if fileData.CyclesBeforeLongBreak > 0 {
		settings.CyclesBeforeLongBreak = fileData.CyclesBeforeLongBreak
	}
	if fileData.Notifications != nil {
		settings.Notifications = *fileData.Notifications
	}

	settings.ServerURL = fileData.ServerURL
	settings.Token = fileData.Token
	settings.TaskID = fileData.TaskID
}
