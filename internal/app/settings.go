package app

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Settings represents operational configuration loaded from settings.yaml.
// Field names match snake_case YAML keys.
type Settings struct {
	Root            string `yaml:"root"`
	OutputFormat    string `yaml:"output_format"`
	LogLevel        string `yaml:"log_level"`
	CheckpointLimit int    `yaml:"checkpoint_limit"`
}

// settingsOnce, settings, settingsErr implement the sync.Once lazy-load
// singleton for settings. rootOverrideMu and rootOverride implement a
// mutex-protected process-wide override for CLI --root.
//
//nolint:gochecknoglobals // sync.Once singleton + RWMutex override are intentional process-wide state
var (
	settingsOnce sync.Once
	settings     Settings
	settingsErr  error

	rootOverrideMu sync.RWMutex
	rootOverride   string
)

// SetRootOverride sets a process-wide store-root override, for --root.
func SetRootOverride(path string) {
	rootOverrideMu.Lock()
	rootOverride = path
	rootOverrideMu.Unlock()
}

func getRootOverride() string {
	rootOverrideMu.RLock()
	v := rootOverride
	rootOverrideMu.RUnlock()
	return v
}

// LoadSettings loads configuration once using the documented lookup order.
// Lookup order (first found wins):
// 1) ~/.config/ctm/settings.yaml
// 2) /etc/ctm/settings.yaml
// 3) ./settings.yaml (lowest priority; allows repo-local overrides)
func LoadSettings() (Settings, error) {
	settingsOnce.Do(func() {
		settings = Settings{OutputFormat: "text"}

		dir, err := SettingsDir()
		if err != nil {
			settingsErr = err
			return
		}
		if s, err := loadSettingsFile(filepath.Join(dir, "settings.yaml")); err == nil {
			settings = s
			return
		} else if !errors.Is(err, os.ErrNotExist) {
			settingsErr = err
			return
		}

		if s, err := loadSettingsFile(filepath.Join(string(os.PathSeparator), "etc", "ctm", "settings.yaml")); err == nil {
			settings = s
			return
		} else if !errors.Is(err, os.ErrNotExist) {
			settingsErr = err
			return
		}

		if s, err := loadSettingsFile("settings.yaml"); err == nil {
			settings = s
			return
		} else if !errors.Is(err, os.ErrNotExist) {
			settingsErr = err
			return
		}
	})

	return settings, settingsErr
}

func loadSettingsFile(path string) (Settings, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, err
	}
	var s Settings
	if err := yaml.Unmarshal(b, &s); err != nil {
		return Settings{}, err
	}
	return s, nil
}
