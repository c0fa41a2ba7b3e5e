package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// TestEmbeddedDefaultConfig verifies the embedded config.yaml parses and
// carries workable defaults.
func TestEmbeddedDefaultConfig(t *testing.T) {
	raw := getDefaultConfig()
	require.NotEmpty(t, raw)

	var settings Settings
	require.NoError(t, yaml.Unmarshal([]byte(raw), &settings))

	assert.True(t, settings.Output.SQLite.Enabled)
	assert.NotEmpty(t, settings.Output.SQLite.Path)
	assert.Positive(t, settings.Capture.SegmentLength)
	assert.Positive(t, settings.Journal.Transcription.PollInterval)
	assert.Positive(t, settings.Journal.Transcription.MaxAttempts)

	require.NoError(t, ValidateSettings(&settings))
}

func TestSaveYAMLConfigRoundTrip(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	settings := &Settings{}
	settings.Capture.SegmentLength = 45
	settings.Journal.Transcription.Command = "whisper-cli"
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = "journal.db"
	settings.History.RetentionDays = 90

	require.NoError(t, SaveYAMLConfig(configPath, settings))

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)

	var loaded Settings
	require.NoError(t, yaml.Unmarshal(data, &loaded))
	assert.Equal(t, settings.Capture.SegmentLength, loaded.Capture.SegmentLength)
	assert.Equal(t, settings.Journal.Transcription.Command, loaded.Journal.Transcription.Command)
	assert.Equal(t, settings.History.RetentionDays, loaded.History.RetentionDays)
	assert.True(t, loaded.Output.SQLite.Enabled)
}

func TestGetBasePathKeepsAbsolutePaths(t *testing.T) {
	abs := t.TempDir()
	assert.Equal(t, abs, GetBasePath(abs))
}
