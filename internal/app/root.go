// Package app holds operational, CLI-level concerns: where the on-disk
// store root lives and the operator-facing settings.yaml that is distinct
// from the domain config.json in internal/config.
package app

import (
	"os"
	"path/filepath"
)

// RootDir returns the fixed on-disk root described in spec §6. No
// environment variable is semantically required; the default is
// HOME-relative, matching the original implementation's ~/.claude/ctm.
func RootDir() (string, error) {
	if override := getRootOverride(); override != "" {
		return override, nil
	}
	if envRoot := os.Getenv("CTM_ROOT"); envRoot != "" {
		return envRoot, nil
	}
	s, err := LoadSettings()
	if err == nil && s.Root != "" {
		return s.Root, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".claude", "ctm"), nil
}

// EnsureRootDir creates the root directory (and its fixed subdirectories)
// and a default settings.yaml if missing.
func EnsureRootDir() error {
	root, err := RootDir()
	if err != nil {
		return err
	}
	for _, sub := range []string{"agents", "episodic", "semantic", "checkpoints", "corrupt-backup"} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0o750); err != nil {
			return err
		}
	}

	cfgDir, err := SettingsDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfgDir, 0o750); err != nil {
		return err
	}
	settingsFile := filepath.Join(cfgDir, "settings.yaml")
	if _, err := os.Stat(settingsFile); os.IsNotExist(err) {
		return os.WriteFile(settingsFile, []byte(defaultSettings), 0o600)
	}
	return nil
}

// SettingsDir returns ~/.config/ctm, the home of the operational settings
// file (distinct from the domain root, which may be relocated independently).
func SettingsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "ctm"), nil
}

const defaultSettings = `# ctm operational settings
# Run: ctm --help

# Optional: override the on-disk store root.
# Can also be set via CTM_ROOT or --root.
# root: ~/.claude/ctm

# Default output format for human-facing commands: "json" or "text".
# output_format: text
`
