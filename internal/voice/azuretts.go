package voice

import (
	"context"
	"fmt"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// AzureBackend synthesizes speech through the Azure Speech REST API.
type AzureBackend struct {
	client   *resty.Client
	config   AzureConfig
	language string
	player   *audioPlayer
}

// NewAzureBackend creates the Azure Speech backend. Missing credentials are
// an auth failure at construction time.
func NewAzureBackend(config AzureConfig, language string) (*AzureBackend, error) {
	if config.SubscriptionKey == "" {
		return nil, &SynthesisError{
			Class:   FailAuth,
			Backend: EngineAzure,
			Err:     fmt.Errorf("azure subscription key not configured"),
		}
	}

	client := resty.New().
		SetTimeout(15 * time.Second).
		SetRetryCount(1).
		SetRetryWaitTime(500 * time.Millisecond)

	return &AzureBackend{
		client:   client,
		config:   config,
		language: language,
		player:   newAudioPlayer(config.AudioCommand),
	}, nil
}

func (b *AzureBackend) Name() string       { return EngineAzure }
func (b *AzureBackend) SupportsSSML() bool { return true }
func (b *AzureBackend) Close() error       { return nil }

func (b *AzureBackend) endpoint() string {
	return fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/v1", b.config.Region)
}

// ssmlDocument wraps text in the Azure SSML envelope. Rate is relative,
// pitch in semitones, volume absolute on Azure's 0-100 scale.
func (b *AzureBackend) ssmlDocument(text string, p Prosody) string {
	voice := p.Voice
	if voice == "" {
		voice = b.config.Voice
	}
	return fmt.Sprintf(
		`<speak version="1.0" xml:lang="%s"><voice name="%s"><prosody rate="%d%%" pitch="%+.0fst" volume="%.0f">%s</prosody></voice></speak>`,
		b.languageCode(), voice, int((p.Rate-1.0)*100), p.Pitch, p.Volume*100, text)
}

// Speak posts an SSML document and plays the returned PCM audio.
func (b *AzureBackend) Speak(text string, p Prosody) error {
	ssml := b.ssmlDocument(text, p)

	resp, err := b.client.R().
		SetHeader("Ocp-Apim-Subscription-Key", b.config.SubscriptionKey).
		SetHeader("Content-Type", "application/ssml+xml").
		SetHeader("X-Microsoft-OutputFormat", "riff-16khz-16bit-mono-pcm").
		SetBody(ssml).
		Post(b.endpoint())
	if err != nil {
		return &SynthesisError{Class: FailNetwork, Backend: EngineAzure, Err: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return &SynthesisError{
			Class:   classifyHTTPStatus(resp.StatusCode()),
			Backend: EngineAzure,
			Err:     fmt.Errorf("status %d: %s", resp.StatusCode(), resp.String()),
		}
	}

	if err := b.player.Play(resp.Body(), ".wav"); err != nil {
		return &SynthesisError{Class: FailUnknown, Backend: EngineAzure, Err: err}
	}
	return nil
}

// Voices lists the neural voices the kiosk uses for the configured language.
func (b *AzureBackend) Voices() ([]Voice, error) {
	lang := b.languageCode()
	return []Voice{
		{ID: lang + "-ElviraNeural", Name: "Elvira", Language: lang, Gender: "femenino"},
		{ID: lang + "-AlvaroNeural", Name: "Álvaro", Language: lang, Gender: "masculino"},
	}, nil
}

func (b *AzureBackend) languageCode() string {
	if b.language == "es" {
		return "es-ES"
	}
	return b.language
}

func runPlayer(command, path string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if out, err := exec.CommandContext(ctx, command, path).CombinedOutput(); err != nil {
		return fmt.Errorf("play audio: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
