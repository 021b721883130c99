package voice

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
)

const googleTTSURL = "https://texttospeech.googleapis.com/v1/text:synthesize"

// GoogleBackend synthesizes speech through the Google Cloud TTS REST API
// and plays the returned audio with an external player command.
type GoogleBackend struct {
	client   *resty.Client
	config   GoogleConfig
	language string
	player   *audioPlayer
}

// NewGoogleBackend creates the Google Cloud TTS backend. A missing API key
// is an auth failure at construction time.
func NewGoogleBackend(config GoogleConfig, language string) (*GoogleBackend, error) {
	if config.APIKey == "" {
		return nil, &SynthesisError{
			Class:   FailAuth,
			Backend: EngineGoogle,
			Err:     fmt.Errorf("google api key not configured"),
		}
	}

	client := resty.New().
		SetTimeout(15 * time.Second).
		SetRetryCount(1).
		SetRetryWaitTime(500 * time.Millisecond)

	return &GoogleBackend{
		client:   client,
		config:   config,
		language: language,
		player:   newAudioPlayer(config.AudioCommand),
	}, nil
}

func (b *GoogleBackend) Name() string       { return EngineGoogle }
func (b *GoogleBackend) SupportsSSML() bool { return true }
func (b *GoogleBackend) Close() error       { return nil }

type googleSynthesisRequest struct {
	Input struct {
		SSML string `json:"ssml"`
	} `json:"input"`
	Voice struct {
		LanguageCode string `json:"languageCode"`
		Name         string `json:"name"`
	} `json:"voice"`
	AudioConfig struct {
		AudioEncoding string  `json:"audioEncoding"`
		SpeakingRate  float64 `json:"speakingRate"`
		Pitch         float64 `json:"pitch"`
		VolumeGainDB  float64 `json:"volumeGainDb"`
	} `json:"audioConfig"`
}

type googleSynthesisResponse struct {
	AudioContent string `json:"audioContent"`
}

// Speak synthesizes the SSML-normalized text and plays it.
func (b *GoogleBackend) Speak(text string, p Prosody) error {
	req := googleSynthesisRequest{}
	req.Input.SSML = ToSSML(text, p, b.languageCode())
	req.Voice.LanguageCode = b.languageCode()
	req.Voice.Name = b.voiceName(p)
	req.AudioConfig.AudioEncoding = "LINEAR16"
	req.AudioConfig.SpeakingRate = p.Rate
	req.AudioConfig.Pitch = p.Pitch

	resp, err := b.client.R().
		SetQueryParam("key", b.config.APIKey).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post(googleTTSURL)
	if err != nil {
		return &SynthesisError{Class: FailNetwork, Backend: EngineGoogle, Err: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return &SynthesisError{
			Class:   classifyHTTPStatus(resp.StatusCode()),
			Backend: EngineGoogle,
			Err:     fmt.Errorf("status %d: %s", resp.StatusCode(), resp.String()),
		}
	}

	var body googleSynthesisResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return &SynthesisError{Class: FailUnknown, Backend: EngineGoogle, Err: err}
	}
	audio, err := base64.StdEncoding.DecodeString(body.AudioContent)
	if err != nil {
		return &SynthesisError{Class: FailUnknown, Backend: EngineGoogle, Err: err}
	}

	if err := b.player.Play(audio, ".wav"); err != nil {
		return &SynthesisError{Class: FailUnknown, Backend: EngineGoogle, Err: err}
	}
	return nil
}

// Voices lists the configured voice family. The full catalog endpoint is
// not queried; the kiosk only ever uses the Spanish voices.
func (b *GoogleBackend) Voices() ([]Voice, error) {
	lang := b.languageCode()
	voices := []Voice{
		{ID: lang + "-Standard-A", Name: "Standard A", Language: lang, Gender: "femenino"},
		{ID: lang + "-Standard-B", Name: "Standard B", Language: lang, Gender: "masculino"},
	}
	if b.config.UseWavenet {
		voices = append(voices,
			Voice{ID: lang + "-Wavenet-C", Name: "Wavenet C", Language: lang, Gender: "femenino"},
			Voice{ID: lang + "-Wavenet-B", Name: "Wavenet B", Language: lang, Gender: "masculino"},
		)
	}
	return voices, nil
}

func (b *GoogleBackend) languageCode() string {
	if b.language == "es" {
		return "es-ES"
	}
	return b.language
}

func (b *GoogleBackend) voiceName(p Prosody) string {
	if p.Voice != "" {
		return p.Voice
	}
	return b.config.Voice
}

func classifyHTTPStatus(code int) FailureClass {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return FailAuth
	case code == http.StatusTooManyRequests:
		return FailQuota
	case code >= 500:
		return FailNetwork
	default:
		return FailUnknown
	}
}

// audioPlayer plays raw audio bytes through an external command.
type audioPlayer struct {
	command string
}

func newAudioPlayer(command string) *audioPlayer {
	if command == "" {
		command = "aplay"
	}
	return &audioPlayer{command: command}
}

func (p *audioPlayer) Play(audio []byte, ext string) error {
	f, err := os.CreateTemp("", "lienzo_tts_*"+ext)
	if err != nil {
		return err
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.Write(audio); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return runPlayer(p.command, path)
}
