package voice

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// OfflineBackend runs a local neural synthesizer command (piper by default),
// feeding text on stdin and playing the wav it produces. No network, no SSML.
type OfflineBackend struct {
	config OfflineConfig
	player *audioPlayer
}

// NewOfflineBackend creates the local model backend. The synthesizer command
// must be on PATH.
func NewOfflineBackend(config OfflineConfig) (*OfflineBackend, error) {
	if config.Command == "" {
		config.Command = "piper"
	}
	if _, err := exec.LookPath(config.Command); err != nil {
		return nil, fmt.Errorf("offline synthesizer %q not found: %w", config.Command, err)
	}
	return &OfflineBackend{
		config: config,
		player: newAudioPlayer(""),
	}, nil
}

func (b *OfflineBackend) Name() string       { return EngineOffline }
func (b *OfflineBackend) SupportsSSML() bool { return false }
func (b *OfflineBackend) Close() error       { return nil }

// synthArgs builds the piper invocation. Rate maps to the inverse length
// scale and volume to piper's amplitude multiplier; the model fixes the
// pitch.
func (b *OfflineBackend) synthArgs(outPath string, p Prosody) []string {
	args := []string{"--output_file", outPath}
	if b.config.ModelPath != "" {
		args = append(args, "--model", b.config.ModelPath)
	}
	if p.Rate > 0 {
		args = append(args, "--length_scale", fmt.Sprintf("%.2f", 1.0/p.Rate))
	}
	args = append(args, "--volume", fmt.Sprintf("%.2f", p.Volume))
	return args
}

func (b *OfflineBackend) Speak(text string, p Prosody) error {
	out, err := os.CreateTemp("", "lienzo_tts_*.wav")
	if err != nil {
		return err
	}
	outPath := out.Name()
	out.Close()
	defer os.Remove(outPath)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, b.config.Command, b.synthArgs(outPath, p)...)
	cmd.Stdin = bytes.NewBufferString(stripSentinels(text))
	if outBytes, err := cmd.CombinedOutput(); err != nil {
		return &SynthesisError{
			Class:   FailUnknown,
			Backend: EngineOffline,
			Err:     fmt.Errorf("%w: %s", err, strings.TrimSpace(string(outBytes))),
		}
	}

	if err := runPlayer(b.player.command, outPath); err != nil {
		return &SynthesisError{Class: FailUnknown, Backend: EngineOffline, Err: err}
	}
	return nil
}

// Voices reports the single configured local model.
func (b *OfflineBackend) Voices() ([]Voice, error) {
	name := b.config.ModelPath
	if name == "" {
		name = b.config.Command
	}
	return []Voice{{ID: name, Name: name, Language: "es", Gender: "neutro"}}, nil
}
