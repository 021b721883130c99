package voice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAzureSSMLCarriesFullProsody(t *testing.T) {
	b := &AzureBackend{
		config:   AzureConfig{Voice: "es-ES-ElviraNeural"},
		language: "es",
	}

	ssml := b.ssmlDocument("hola", Prosody{Rate: 1.5, Pitch: -2, Volume: 0.9})

	assert.Contains(t, ssml, `xml:lang="es-ES"`)
	assert.Contains(t, ssml, `name="es-ES-ElviraNeural"`)
	assert.Contains(t, ssml, `rate="50%"`)
	assert.Contains(t, ssml, `pitch="-2st"`)
	assert.Contains(t, ssml, `volume="90"`)
	assert.Contains(t, ssml, ">hola<")
}

func TestAzureSSMLMessageVoiceOverridesConfig(t *testing.T) {
	b := &AzureBackend{
		config:   AzureConfig{Voice: "es-ES-ElviraNeural"},
		language: "es",
	}

	ssml := b.ssmlDocument("hola", Prosody{Rate: 1.0, Volume: 1.0, Voice: "es-ES-AlvaroNeural"})
	assert.Contains(t, ssml, `name="es-ES-AlvaroNeural"`)
}

func TestOfflineSynthArgsApplyProsody(t *testing.T) {
	b := &OfflineBackend{
		config: OfflineConfig{Command: "piper", ModelPath: "/modelos/es.onnx"},
	}

	args := b.synthArgs("/tmp/salida.wav", Prosody{Rate: 2.0, Volume: 0.5})

	assert.Equal(t, []string{
		"--output_file", "/tmp/salida.wav",
		"--model", "/modelos/es.onnx",
		"--length_scale", "0.50",
		"--volume", "0.50",
	}, args)
}

func TestOfflineSynthArgsSkipLengthScaleForZeroRate(t *testing.T) {
	b := &OfflineBackend{config: OfflineConfig{Command: "piper"}}

	args := b.synthArgs("/tmp/salida.wav", Prosody{Volume: 1.0})

	assert.NotContains(t, args, "--length_scale")
	assert.Contains(t, args, "--volume")
}
