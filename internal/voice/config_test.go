package voice

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "voz.json"))
	require.NoError(t, err)
	assert.Equal(t, EngineBasic, cfg.Engine)
	assert.Equal(t, 1.0, cfg.Rate)
}

func TestLoadConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voz.json")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	cfg.Engine = EngineAzure
	cfg.Rate = 1.3
	cfg.Azure.Region = "westeurope"
	require.NoError(t, cfg.Save())

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, EngineAzure, loaded.Engine)
	assert.Equal(t, 1.3, loaded.Rate)
	assert.Equal(t, "westeurope", loaded.Azure.Region)
	// Keys absent from the file keep their defaults.
	assert.Equal(t, "es", loaded.Language)
}

func TestLoadConfigMalformedFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voz.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	cfg, err := LoadConfig(path)
	assert.Error(t, err)
	assert.Equal(t, EngineBasic, cfg.Engine)
}

func TestValidEngine(t *testing.T) {
	assert.True(t, ValidEngine(EngineGoogle))
	assert.False(t, ValidEngine("festival"))
}
