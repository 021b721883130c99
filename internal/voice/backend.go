// Package voice provides queued speech synthesis over interchangeable
// backends with automatic one-shot fallback between cloud engines.
package voice

import "fmt"

// FailureClass classifies a synthesis failure for fallback routing.
type FailureClass int

const (
	FailUnknown FailureClass = iota
	FailAuth
	FailQuota
	FailNetwork
)

func (c FailureClass) String() string {
	switch c {
	case FailAuth:
		return "auth"
	case FailQuota:
		return "quota"
	case FailNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// SynthesisError is a classified backend failure.
type SynthesisError struct {
	Class   FailureClass
	Backend string
	Err     error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("%s synthesis failed (%s): %v", e.Backend, e.Class, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// Recoverable reports whether the failure class warrants trying the
// fallback backend for this utterance.
func (e *SynthesisError) Recoverable() bool {
	switch e.Class {
	case FailAuth, FailQuota, FailNetwork:
		return true
	default:
		return false
	}
}

// Voice describes one synthesizer voice.
type Voice struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Language string `json:"language"`
	Gender   string `json:"gender"`
}

// Prosody is the per-utterance synthesis parameter snapshot. The worker
// receives a copy per message so mid-playback changes never race.
type Prosody struct {
	Rate   float64
	Pitch  float64
	Volume float64
	Voice  string
}

// Backend synthesizes and plays one utterance at a time. SupportsSSML is
// fixed at construction and decides which normalization path the engine
// applies before Speak.
type Backend interface {
	Name() string
	Speak(text string, p Prosody) error
	Voices() ([]Voice, error)
	SupportsSSML() bool
	Close() error
}
