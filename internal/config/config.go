package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jar-ry/Snowflake-Data-Science/internal/common"
	"github.com/jar-ry/Snowflake-Data-Science/pkg/models"
	"gopkg.in/yaml.v3"
)

// EnvConfigDir overrides the directory holding settings.yaml.
const EnvConfigDir = "SFDS_CONFIG"

// GetConfigPath returns the directory holding sfds configuration.
func GetConfigPath() string {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		if cleaned, err := common.CleanPath(dir); err == nil {
			return cleaned
		}
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".sfds")
}

// GetSettingsFile returns the path of settings.yaml.
func GetSettingsFile() string {
	return filepath.Join(GetConfigPath(), "settings.yaml")
}

// LoadSettings reads settings.yaml on top of the quickstart defaults. A
// missing file is not an error.
func LoadSettings() (*models.Settings, error) {
	settings := models.DefaultSettings()

	cleanedPath, err := common.CleanPath(GetSettingsFile())
	if err != nil {
		return nil, fmt.Errorf("invalid settings file path: %w", err)
	}

	if _, err := os.Stat(cleanedPath); os.IsNotExist(err) {
		return &settings, nil
	}

	data, err := os.ReadFile(cleanedPath) // #nosec G304 - path is validated
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	return &settings, nil
}

// SaveSettings writes settings.yaml, creating the config directory.
func SaveSettings(settings *models.Settings) error {
	if err := os.MkdirAll(GetConfigPath(), common.DirPermissionSecure); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := os.WriteFile(GetSettingsFile(), data, common.FilePermissionSecure); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	return nil
}

// SettingsExist reports whether settings.yaml is present.
func SettingsExist() bool {
	_, err := os.Stat(GetSettingsFile())
	return err == nil
}

// StatementTimeout parses the settings timeout, falling back to five minutes.
func StatementTimeout(settings *models.Settings) time.Duration {
	if settings == nil || settings.Timeout == "" {
		return 5 * time.Minute
	}
	d, err := time.ParseDuration(settings.Timeout)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}
