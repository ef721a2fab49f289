package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultHome_UsesEnvOverride(t *testing.T) {
	t.Setenv(HomeEnvVar, "/custom/path")
	require.Equal(t, "/custom/path", DefaultHome())
}

func TestDefaultHome_FallsBackToDotTranscriptdex(t *testing.T) {
	t.Setenv(HomeEnvVar, "")
	home := DefaultHome()
	require.Contains(t, home, defaultHomeName)
}

func TestOpen_CreatesDefaultSettingsFile(t *testing.T) {
	dir := t.TempDir()
	st, err := Open(dir)
	require.NoError(t, err)

	require.FileExists(t, filepath.Join(dir, settingsFileName))

	settings, err := st.Get()
	require.NoError(t, err)
	require.Equal(t, 60, settings.BackupIntervalMinutes)
	require.Equal(t, 10, settings.MaxBackups)
}

func TestUpdate_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	st, err := Open(dir)
	require.NoError(t, err)

	_, err = st.Update(func(s *Settings) {
		s.MaxBackups = 5
		s.TranscriptRoot = "/data/transcripts"
	})
	require.NoError(t, err)

	reopened, err := Open(dir)
	require.NoError(t, err)
	settings, err := reopened.Get()
	require.NoError(t, err)
	require.Equal(t, 5, settings.MaxBackups)
	require.Equal(t, "/data/transcripts", settings.TranscriptRoot)
}

func TestOpen_CreatesHomeDirectoryIfMissing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "home")
	_, err := Open(dir)
	require.NoError(t, err)
	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}
