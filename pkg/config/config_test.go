package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScannerSettingsDefaults(t *testing.T) {
	settings, err := LoadScannerSettings("")
	require.NoError(t, err)

	assert.Equal(t, DefaultMetadataPrecedence, settings.MetadataPrecedence)
	assert.False(t, settings.PreferAudioMetadata)
	assert.False(t, settings.FindCovers)
}

func TestLoadScannerSettingsMissingFile(t *testing.T) {
	settings, err := LoadScannerSettings(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultMetadataPrecedence, settings.MetadataPrecedence)
}

func TestLoadScannerSettingsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	data := []byte("metadata_precedence:\n  - folderStructure\n  - nfoFile\nprefer_audio_metadata: true\nfind_covers: true\n")
	require.NoError(t, os.WriteFile(path, data, 0644))

	settings, err := LoadScannerSettings(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"folderStructure", "nfoFile"}, settings.MetadataPrecedence)
	assert.True(t, settings.PreferAudioMetadata)
	assert.True(t, settings.FindCovers)
}

func TestLoadScannerSettingsEnvOverride(t *testing.T) {
	t.Setenv("HONDANA_PREFER_AUDIO_METADATA", "true")

	settings, err := LoadScannerSettings("")
	require.NoError(t, err)
	assert.True(t, settings.PreferAudioMetadata)
}
