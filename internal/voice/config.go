package voice

import (
	"encoding/json"
	"fmt"
	"os"
)

// Engine names accepted in configuration.
const (
	EngineBasic   = "basic"
	EngineGoogle  = "google"
	EngineAzure   = "azure"
	EngineOffline = "offline"
)

// Prosody parameter ranges. Out-of-range values are rejected and the prior
// value retained.
const (
	MinRate   = 0.5
	MaxRate   = 2.0
	MinPitch  = -10.0
	MaxPitch  = 10.0
	MinVolume = 0.0
	MaxVolume = 1.0
)

// GoogleConfig configures the Google Cloud TTS REST backend.
type GoogleConfig struct {
	APIKey       string `json:"api_key"`
	Voice        string `json:"voice"`
	UseWavenet   bool   `json:"use_wavenet"`
	AudioCommand string `json:"audio_command"`
}

// AzureConfig configures the Azure Speech REST backend.
type AzureConfig struct {
	SubscriptionKey string `json:"subscription_key"`
	Region          string `json:"region"`
	Voice           string `json:"voice"`
	AudioCommand    string `json:"audio_command"`
}

// OfflineConfig configures the local model backend.
type OfflineConfig struct {
	Command   string `json:"command"`
	ModelPath string `json:"model_path"`
}

// Config is the voice engine configuration, persisted as its own JSON file.
type Config struct {
	Engine        string        `json:"engine"`
	VoiceID       string        `json:"voice_id"`
	Gender        string        `json:"gender"`
	Language      string        `json:"language"`
	Rate          float64       `json:"rate"`
	Volume        float64       `json:"volume"`
	Pitch         float64       `json:"pitch"`
	NaturalPauses bool          `json:"natural_pauses"`
	EmphasisWords bool          `json:"emphasis_words"`
	Google        GoogleConfig  `json:"google"`
	Azure         AzureConfig   `json:"azure"`
	Offline       OfflineConfig `json:"offline"`

	path string
}

// DefaultConfig returns the compiled-in voice configuration.
func DefaultConfig() *Config {
	return &Config{
		Engine:        EngineBasic,
		Gender:        "femenino",
		Language:      "es",
		Rate:          1.0,
		Volume:        0.9,
		Pitch:         0.0,
		NaturalPauses: true,
		EmphasisWords: true,
		Google: GoogleConfig{
			Voice:        "es-ES-Standard-A",
			AudioCommand: "aplay",
		},
		Azure: AzureConfig{
			Region:       "eastus",
			Voice:        "es-ES-ElviraNeural",
			AudioCommand: "aplay",
		},
		Offline: OfflineConfig{
			Command: "piper",
		},
	}
}

// LoadConfig reads the voice configuration at path, merged over defaults.
// A missing file yields the defaults; a malformed file yields the defaults
// and an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.path = path

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read voice config: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		fresh := DefaultConfig()
		fresh.path = path
		return fresh, fmt.Errorf("parse voice config %s: %w", path, err)
	}
	return cfg, nil
}

// Save persists the configuration to the path it was loaded from.
// A config never loaded from disk saves nowhere and reports success.
func (c *Config) Save() error {
	if c.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(c, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0644)
}

// ValidEngine reports whether name is a known engine.
func ValidEngine(name string) bool {
	switch name {
	case EngineBasic, EngineGoogle, EngineAzure, EngineOffline:
		return true
	}
	return false
}
