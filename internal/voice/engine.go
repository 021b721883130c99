package voice

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// joinTimeout bounds how long Close and SwitchEngine wait for the worker to
// finish its current utterance.
const joinTimeout = 5 * time.Second

// Engine is the speech facade: a FIFO queue with priority-front insertion,
// one worker goroutine feeding the active backend, and one-shot fallback to
// a secondary cloud backend on classified failures. Blocking speech goes
// through SayNow, which bypasses the queue entirely.
type Engine struct {
	logger *zap.Logger
	config *Config

	mu         sync.Mutex
	cond       *sync.Cond
	queue      []string
	backend    Backend
	stopping   bool
	started    bool
	workerDone chan struct{}

	// speakMu serializes playback between the worker and SayNow.
	speakMu sync.Mutex

	factory func(name string, cfg *Config) (Backend, error)
}

// NewEngine creates an engine around the given configuration. Call Start
// before speaking.
func NewEngine(cfg *Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		logger:  logger,
		config:  cfg,
		factory: newBackend,
	}
	e.cond = sync.NewCond(&e.mu)
	return e
}

func newBackend(name string, cfg *Config) (Backend, error) {
	switch name {
	case EngineBasic:
		return NewBasicBackend(cfg.Language)
	case EngineGoogle:
		return NewGoogleBackend(cfg.Google, cfg.Language)
	case EngineAzure:
		return NewAzureBackend(cfg.Azure, cfg.Language)
	case EngineOffline:
		return NewOfflineBackend(cfg.Offline)
	default:
		return nil, fmt.Errorf("unknown voice engine %q", name)
	}
}

// Start brings up the configured backend and the queue worker. If the
// configured backend fails to start, the basic backend is tried; if that
// also fails the engine stays down and utterances are dropped with a log.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return nil
	}

	backend, err := e.factory(e.config.Engine, e.config)
	if err != nil && e.config.Engine != EngineBasic {
		e.logger.Warn("configured voice engine unavailable, trying basic",
			zap.String("engine", e.config.Engine), zap.Error(err))
		backend, err = e.factory(EngineBasic, e.config)
	}
	if err != nil {
		e.logger.Error("no voice backend available", zap.Error(err))
		return fmt.Errorf("start voice engine: %w", err)
	}

	e.backend = backend
	e.started = true
	e.startWorkerLocked()
	e.logger.Info("voice engine started", zap.String("backend", backend.Name()))
	return nil
}

// Started reports whether a backend is live.
func (e *Engine) Started() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.started
}

// ActiveBackend returns the name of the live backend, or "" when down.
func (e *Engine) ActiveBackend() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.backend == nil {
		return ""
	}
	return e.backend.Name()
}

// Say enqueues an utterance. Non-blocking; silently dropped when the engine
// is not started.
func (e *Engine) Say(text string) {
	e.enqueue(text, false)
}

// SayPriority enqueues an utterance at the front of the queue.
func (e *Engine) SayPriority(text string) {
	e.enqueue(text, true)
}

// SayNow speaks inline, bypassing the queue, and blocks until playback
// finishes.
func (e *Engine) SayNow(text string) error {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return fmt.Errorf("voice engine not started")
	}
	backend := e.backend
	pros := e.prosodyLocked()
	e.mu.Unlock()

	return e.speakWith(backend, text, pros)
}

func (e *Engine) enqueue(text string, priority bool) {
	if strings.TrimSpace(text) == "" {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started {
		e.logger.Debug("voice engine down, dropping utterance", zap.String("text", text))
		return
	}

	if priority {
		e.queue = append([]string{text}, e.queue...)
	} else {
		e.queue = append(e.queue, text)
	}
	e.cond.Signal()
}

// ClearQueue drops all pending utterances. The one currently playing is
// not interrupted.
func (e *Engine) ClearQueue() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queue = nil
}

// QueueLen returns the number of pending utterances.
func (e *Engine) QueueLen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

// SwitchEngine stops the current backend, persists the new selection and
// starts the new backend. On failure the previous backend is restored and
// the configuration reverted, so a started engine always has a live backend.
func (e *Engine) SwitchEngine(name string) error {
	if !ValidEngine(name) {
		return fmt.Errorf("unknown voice engine %q", name)
	}

	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return fmt.Errorf("voice engine not started")
	}
	previous := e.config.Engine
	if name == previous && e.backend != nil && e.backend.Name() == name {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	e.stopWorker()

	e.mu.Lock()
	e.queue = nil
	old := e.backend
	e.backend = nil
	e.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			e.logger.Warn("closing previous voice backend", zap.Error(err))
		}
	}

	e.config.Engine = name
	if err := e.config.Save(); err != nil {
		e.logger.Warn("persisting voice engine selection", zap.Error(err))
	}

	backend, err := e.factory(name, e.config)
	if err != nil {
		e.logger.Error("new voice backend failed to start, reverting",
			zap.String("engine", name), zap.Error(err))

		e.config.Engine = previous
		if saveErr := e.config.Save(); saveErr != nil {
			e.logger.Warn("reverting voice engine selection", zap.Error(saveErr))
		}

		restored, restoreErr := e.factory(previous, e.config)
		if restoreErr != nil {
			e.mu.Lock()
			e.started = false
			e.mu.Unlock()
			return fmt.Errorf("switch to %s failed (%w) and restore of %s failed: %v",
				name, err, previous, restoreErr)
		}
		e.mu.Lock()
		e.backend = restored
		e.startWorkerLocked()
		e.mu.Unlock()
		return fmt.Errorf("switch voice engine to %s: %w", name, err)
	}

	e.mu.Lock()
	e.backend = backend
	e.startWorkerLocked()
	e.mu.Unlock()

	e.logger.Info("voice engine switched",
		zap.String("from", previous), zap.String("to", name))
	return nil
}

// Close drains nothing: pending utterances are dropped, the worker is
// joined with a bounded timeout and the backend released.
func (e *Engine) Close() error {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return nil
	}
	e.started = false
	e.queue = nil
	e.mu.Unlock()

	e.stopWorker()

	e.mu.Lock()
	backend := e.backend
	e.backend = nil
	e.mu.Unlock()

	if backend != nil {
		return backend.Close()
	}
	return nil
}

func (e *Engine) startWorkerLocked() {
	e.stopping = false
	done := make(chan struct{})
	e.workerDone = done
	go e.worker(done)
}

func (e *Engine) stopWorker() {
	e.mu.Lock()
	done := e.workerDone
	if done == nil {
		e.mu.Unlock()
		return
	}
	e.stopping = true
	e.workerDone = nil
	e.cond.Broadcast()
	e.mu.Unlock()

	select {
	case <-done:
	case <-time.After(joinTimeout):
		e.logger.Warn("voice worker did not stop in time")
	}
}

func (e *Engine) worker(done chan struct{}) {
	defer close(done)
	for {
		e.mu.Lock()
		for len(e.queue) == 0 && !e.stopping {
			e.cond.Wait()
		}
		if e.stopping {
			e.mu.Unlock()
			return
		}
		text := e.queue[0]
		e.queue = e.queue[1:]
		backend := e.backend
		pros := e.prosodyLocked()
		e.mu.Unlock()

		if err := e.speakWith(backend, text, pros); err != nil {
			e.logger.Warn("utterance failed", zap.String("text", text), zap.Error(err))
		}
	}
}

// speakWith normalizes and speaks one utterance, falling back once to the
// secondary cloud backend on a recoverable failure. The fallback is not
// persisted; the configured backend is used again for the next utterance.
func (e *Engine) speakWith(backend Backend, text string, pros Prosody) error {
	if backend == nil {
		return fmt.Errorf("no voice backend")
	}

	e.speakMu.Lock()
	defer e.speakMu.Unlock()

	err := backend.Speak(Normalize(text, backend.SupportsSSML()), pros)
	if err == nil {
		return nil
	}

	synthErr, ok := err.(*SynthesisError)
	if !ok || !synthErr.Recoverable() {
		return err
	}

	fallbackName := fallbackFor(backend.Name())
	if fallbackName == "" {
		return err
	}

	e.logger.Warn("backend failed, trying fallback for this utterance",
		zap.String("backend", backend.Name()),
		zap.Stringer("class", synthErr.Class),
		zap.String("fallback", fallbackName))

	fb, fbErr := e.factory(fallbackName, e.config)
	if fbErr != nil {
		e.logger.Error("fallback backend unavailable", zap.Error(fbErr))
		return err
	}
	defer fb.Close()

	if fbErr := fb.Speak(Normalize(text, fb.SupportsSSML()), pros); fbErr != nil {
		return fmt.Errorf("primary: %v; fallback: %w", err, fbErr)
	}
	return nil
}

// fallbackFor pairs the cloud backends with each other. Local backends have
// no fallback.
func fallbackFor(name string) string {
	switch name {
	case EngineGoogle:
		return EngineAzure
	case EngineAzure:
		return EngineGoogle
	default:
		return ""
	}
}

func (e *Engine) prosodyLocked() Prosody {
	return Prosody{
		Rate:   e.config.Rate,
		Pitch:  e.config.Pitch,
		Volume: e.config.Volume,
		Voice:  e.config.VoiceID,
	}
}

// SetRate updates the speaking rate. Out-of-range values are rejected and
// the prior value retained.
func (e *Engine) SetRate(rate float64) bool {
	if rate < MinRate || rate > MaxRate {
		e.logger.Warn("rate out of range", zap.Float64("rate", rate))
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.config.Rate = rate
	return true
}

// SetPitch updates the pitch offset in semitones.
func (e *Engine) SetPitch(pitch float64) bool {
	if pitch < MinPitch || pitch > MaxPitch {
		e.logger.Warn("pitch out of range", zap.Float64("pitch", pitch))
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.config.Pitch = pitch
	return true
}

// SetVolume updates the playback volume.
func (e *Engine) SetVolume(volume float64) bool {
	if volume < MinVolume || volume > MaxVolume {
		e.logger.Warn("volume out of range", zap.Float64("volume", volume))
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.config.Volume = volume
	return true
}

// Voices lists the active backend's voices.
func (e *Engine) Voices() ([]Voice, error) {
	e.mu.Lock()
	backend := e.backend
	e.mu.Unlock()
	if backend == nil {
		return nil, fmt.Errorf("voice engine not started")
	}
	return backend.Voices()
}

// SetVoice selects a voice by id.
func (e *Engine) SetVoice(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.config.VoiceID = id
}

// SelectVoice picks the first voice matching language prefix and gender and
// makes it the active voice.
func (e *Engine) SelectVoice(language, gender string) (Voice, error) {
	voices, err := e.Voices()
	if err != nil {
		return Voice{}, err
	}
	for _, v := range voices {
		if strings.HasPrefix(v.Language, language) && (gender == "" || v.Gender == gender) {
			e.SetVoice(v.ID)
			return v, nil
		}
	}
	return Voice{}, fmt.Errorf("no voice for language %q gender %q", language, gender)
}
