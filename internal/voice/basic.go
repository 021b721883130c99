package voice

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// BasicBackend speaks through the espeak command line synthesizer. It has no
// SSML support; sentinel pause tokens in the text are interpreted inline.
type BasicBackend struct {
	command  string
	language string
	sleep    func(time.Duration)
}

// NewBasicBackend creates the espeak-based backend.
func NewBasicBackend(language string) (*BasicBackend, error) {
	command, err := exec.LookPath("espeak")
	if err != nil {
		if command, err = exec.LookPath("espeak-ng"); err != nil {
			return nil, fmt.Errorf("no speech synthesizer found: %w", err)
		}
	}
	return &BasicBackend{
		command:  command,
		language: language,
		sleep:    time.Sleep,
	}, nil
}

func (b *BasicBackend) Name() string       { return EngineBasic }
func (b *BasicBackend) SupportsSSML() bool { return false }
func (b *BasicBackend) Close() error       { return nil }

// Speak plays each text segment between pause tokens, sleeping for the pause
// duration in between.
func (b *BasicBackend) Speak(text string, p Prosody) error {
	for _, seg := range splitSentinels(text) {
		if seg.pause > 0 {
			b.sleep(seg.pause)
		}
		if seg.text == "" {
			continue
		}
		if err := b.say(seg.text, p); err != nil {
			return err
		}
	}
	return nil
}

func (b *BasicBackend) say(text string, p Prosody) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	args := []string{
		"-v", b.language,
		"-s", fmt.Sprintf("%d", int(175*p.Rate)),
		"-p", fmt.Sprintf("%d", clampInt(50+int(p.Pitch*4), 0, 99)),
		"-a", fmt.Sprintf("%d", clampInt(int(p.Volume*200), 0, 200)),
		text,
	}
	if out, err := exec.CommandContext(ctx, b.command, args...).CombinedOutput(); err != nil {
		return &SynthesisError{
			Class:   FailUnknown,
			Backend: EngineBasic,
			Err:     fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out))),
		}
	}
	return nil
}

// Voices returns the fixed espeak voices for the configured language.
func (b *BasicBackend) Voices() ([]Voice, error) {
	return []Voice{
		{ID: b.language, Name: "espeak " + b.language, Language: b.language, Gender: "neutro"},
		{ID: b.language + "+f3", Name: "espeak " + b.language + " femenino", Language: b.language, Gender: "femenino"},
		{ID: b.language + "+m3", Name: "espeak " + b.language + " masculino", Language: b.language, Gender: "masculino"},
	}, nil
}

type segment struct {
	pause time.Duration
	text  string
}

// splitSentinels breaks text at pause tokens, tagging each following segment
// with the pause to take before speaking it.
func splitSentinels(text string) []segment {
	var segs []segment
	rest := text
	pause := time.Duration(0)
	for {
		iLong := strings.Index(rest, pauseToken)
		iShort := strings.Index(rest, shortPauseToken)

		i, tokenLen, next := -1, 0, time.Duration(0)
		if iLong >= 0 && (iShort < 0 || iLong < iShort) {
			i, tokenLen, next = iLong, len(pauseToken), 500*time.Millisecond
		} else if iShort >= 0 {
			i, tokenLen, next = iShort, len(shortPauseToken), 200*time.Millisecond
		}

		if i < 0 {
			segs = append(segs, segment{pause: pause, text: strings.TrimSpace(rest)})
			return segs
		}
		segs = append(segs, segment{pause: pause, text: strings.TrimSpace(rest[:i])})
		rest = rest[i+tokenLen:]
		pause = next
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
