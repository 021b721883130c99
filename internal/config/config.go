// Package config loads kiosk configuration: compiled defaults, an optional
// JSON file merged over them, and environment variable overrides on top.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Capture CaptureConfig `json:"capture"`
	Drawing DrawingConfig `json:"drawing"`
	UI      UIConfig      `json:"ui"`
	Robot   RobotConfig   `json:"robot"`
	OCR     OCRConfig     `json:"ocr"`
	Server  ServerConfig  `json:"server"`
	Logging LogConfig     `json:"logging"`
	Debug   bool          `json:"debug" envconfig:"LIENZO_DEBUG"`
}

// CaptureConfig holds camera configuration.
type CaptureConfig struct {
	DeviceID         int `json:"device_id" envconfig:"LIENZO_CAPTURE_DEVICE"`
	FallbackDeviceID int `json:"fallback_device_id" envconfig:"LIENZO_CAPTURE_FALLBACK"`
	Width            int `json:"width"`
	Height           int `json:"height"`
}

// DrawingConfig holds stroke engine configuration.
type DrawingConfig struct {
	LineWidth        int      `json:"line_width"`
	EraserRadius     int      `json:"eraser_radius"`
	Color            [3]uint8 `json:"color"`
	SessionsDir      string   `json:"sessions_dir" envconfig:"LIENZO_SESSIONS_DIR"`
	AutosaveInterval int      `json:"autosave_interval"` // seconds
}

// ButtonConfig describes one virtual button on the overlay.
type ButtonConfig struct {
	Name   string `json:"name"`
	Action string `json:"action"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// UIConfig holds overlay layout and colors.
type UIConfig struct {
	Buttons []ButtonConfig      `json:"buttons"`
	Palette map[string][3]uint8 `json:"palette"`
}

// RobotConfig holds the robotic hand serial link configuration.
type RobotConfig struct {
	Port        string   `json:"port" envconfig:"LIENZO_ROBOT_PORT"`
	BaudRate    int      `json:"baud_rate"`
	TimeoutSec  int      `json:"timeout_sec"`
	Identifiers []string `json:"identifiers"`
}

// OCRConfig holds text recognition configuration.
type OCRConfig struct {
	Languages  []string `json:"languages"`
	TimeoutSec int      `json:"timeout_sec"`
	TextLog    string   `json:"text_log"`
}

// ServerConfig holds the status server configuration.
type ServerConfig struct {
	Enabled bool   `json:"enabled" envconfig:"LIENZO_SERVER_ENABLED"`
	Addr    string `json:"addr" envconfig:"LIENZO_SERVER_ADDR"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `json:"level" envconfig:"LIENZO_LOG_LEVEL"`
	Development bool   `json:"development" envconfig:"LIENZO_LOG_DEV"`
}

// Default returns the compiled-in configuration.
func Default() *Config {
	return &Config{
		Capture: CaptureConfig{
			DeviceID:         0,
			FallbackDeviceID: 1,
			Width:            640,
			Height:           480,
		},
		Drawing: DrawingConfig{
			LineWidth:        3,
			EraserRadius:     30,
			Color:            [3]uint8{0, 255, 0},
			SessionsDir:      "sesiones",
			AutosaveInterval: 60,
		},
		UI: UIConfig{
			// Laid out to fit the default 640px frame width.
			Buttons: []ButtonConfig{
				{Name: "Dibujar", Action: "draw", X: 20, Y: 20, Width: 100, Height: 40},
				{Name: "Borrar", Action: "erase", X: 145, Y: 20, Width: 100, Height: 40},
				{Name: "Limpiar", Action: "clear", X: 270, Y: 20, Width: 100, Height: 40},
				{Name: "Guardar", Action: "save", X: 395, Y: 20, Width: 100, Height: 40},
				{Name: "Salir", Action: "exit", X: 520, Y: 20, Width: 100, Height: 40},
			},
			Palette: map[string][3]uint8{
				"verde":    {0, 255, 0},
				"rojo":     {255, 0, 0},
				"azul":     {0, 0, 255},
				"amarillo": {255, 255, 0},
				"blanco":   {255, 255, 255},
			},
		},
		Robot: RobotConfig{
			Port:        "",
			BaudRate:    9600,
			TimeoutSec:  2,
			Identifiers: []string{"Arduino", "CH340", "USB Serial"},
		},
		OCR: OCRConfig{
			Languages:  []string{"spa", "eng"},
			TimeoutSec: 30,
			TextLog:    "texto_reconocido.txt",
		},
		Server: ServerConfig{
			Enabled: true,
			Addr:    ":8080",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
	}
}

// Load builds the configuration: defaults, then the JSON file at path (if it
// exists), then environment overrides. A missing file is not an error; a
// malformed file is reported and the defaults are kept.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// fall through to env overrides
		case err != nil:
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := json.Unmarshal(data, cfg); err != nil {
				return Default(), fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return cfg, fmt.Errorf("apply env overrides: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration as indented JSON.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
