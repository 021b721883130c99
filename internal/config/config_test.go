package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, 640, cfg.Capture.Width)
	assert.Equal(t, 3, cfg.Drawing.LineWidth)
	assert.Len(t, cfg.UI.Buttons, 5)
}

func TestLoad_FileMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"drawing":{"line_width":7,"eraser_radius":30,"color":[0,255,0],"sessions_dir":"sesiones","autosave_interval":60}}`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Drawing.LineWidth)
	// Untouched sections keep defaults.
	assert.Equal(t, 9600, cfg.Robot.BaudRate)
}

func TestLoad_MalformedFileFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	cfg, err := Load(path)
	assert.Error(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, 3, cfg.Drawing.LineWidth)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("LIENZO_SERVER_ADDR", ":9999")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Server.Addr)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := Default()
	cfg.Drawing.EraserRadius = 45
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 45, loaded.Drawing.EraserRadius)
}
