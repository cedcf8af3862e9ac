package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetRootOverrideWinsOverEverything(t *testing.T) {
	t.Cleanup(func() { SetRootOverride("") })
	SetRootOverride("/tmp/custom-ctm-root")

	root, err := RootDir()
	require.NoError(t, err)
	require.Equal(t, "/tmp/custom-ctm-root", root)
}

func TestRootDirHonorsEnvOverride(t *testing.T) {
	t.Cleanup(func() { SetRootOverride("") })
	SetRootOverride("")
	t.Setenv("CTM_ROOT", "/tmp/env-ctm-root")

	root, err := RootDir()
	require.NoError(t, err)
	require.Equal(t, "/tmp/env-ctm-root", root)
}

func TestLoadSettingsFileParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("root: /custom/root\noutput_format: json\ncheckpoint_limit: 10\n"), 0o644))

	s, err := loadSettingsFile(path)
	require.NoError(t, err)
	require.Equal(t, "/custom/root", s.Root)
	require.Equal(t, "json", s.OutputFormat)
	require.Equal(t, 10, s.CheckpointLimit)
}

func TestLoadSettingsFileMissingReturnsNotExist(t *testing.T) {
	_, err := loadSettingsFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.True(t, os.IsNotExist(err))
}

func TestEnsureRootDirCreatesSubdirectories(t *testing.T) {
	t.Cleanup(func() { SetRootOverride("") })
	root := t.TempDir()
	SetRootOverride(root)

	require.NoError(t, EnsureRootDir())

	for _, sub := range []string{"agents", "episodic", "semantic", "checkpoints", "corrupt-backup"} {
		info, err := os.Stat(filepath.Join(root, sub))
		require.NoError(t, err)
		require.True(t, info.IsDir())
	}
}
