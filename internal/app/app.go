// Package app wires the kiosk together: camera frames flow through the hand
// detector into the gesture dispatcher, which drives the drawing board, the
// voice engine, the robotic hand and the status server.
package app

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mirantes/lienzo/internal/calib"
	"github.com/mirantes/lienzo/internal/canvas"
	"github.com/mirantes/lienzo/internal/capture"
	"github.com/mirantes/lienzo/internal/config"
	"github.com/mirantes/lienzo/internal/detector"
	"github.com/mirantes/lienzo/internal/gesture"
	"github.com/mirantes/lienzo/internal/ocr"
	"github.com/mirantes/lienzo/internal/robot"
	"github.com/mirantes/lienzo/internal/server"
	"github.com/mirantes/lienzo/internal/store"
	"github.com/mirantes/lienzo/internal/ui"
	"github.com/mirantes/lienzo/internal/voice"
)

// Options carries optional collaborators. Nil fields are built from the
// configuration; tests inject mocks here.
type Options struct {
	Camera     capture.Camera
	Detector   detector.Detector
	Voice      *voice.Engine
	Recognizer ocr.Recognizer
	Hand       *robot.Hand
	Store      *store.Store
	Window     *ui.Window
	Calibrator *calib.Calibrator
}

// App is the kiosk application.
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	camera     capture.Camera
	det        detector.Detector
	board      *canvas.Board
	panel      *gesture.Panel
	dispatcher *gesture.Dispatcher
	compositor *ui.Compositor
	window     *ui.Window

	voice      *voice.Engine
	recognizer ocr.Recognizer
	hand       *robot.Hand
	db         *store.Store
	calibrator *calib.Calibrator

	events *server.EventHub
	srv    *server.Server

	// The board and dispatcher belong to the frame loop; the fields below
	// hold the loop's latest published snapshot for other goroutines.
	mu             sync.RWMutex
	running        bool
	enabled        bool
	savePending    bool
	colorName      string
	lastTranscript string
	modeName       string
	strokeCount    int
	historyCursor  int
	sessionName    string

	// background OCR jobs joined on shutdown
	jobs sync.WaitGroup
}

// New builds the application from the configuration, filling in any
// collaborator missing from opts.
func New(cfg *config.Config, logger *zap.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &App{
		cfg:        cfg,
		logger:     logger,
		camera:     opts.Camera,
		det:        opts.Detector,
		voice:      opts.Voice,
		recognizer: opts.Recognizer,
		hand:       opts.Hand,
		db:         opts.Store,
		window:     opts.Window,
		calibrator: opts.Calibrator,
		enabled:    true,
		colorName:  paletteName(cfg.UI.Palette, cfg.Drawing.Color),
	}

	if a.camera == nil {
		a.camera = capture.NewCamera(cfg.Capture.DeviceID, cfg.Capture.FallbackDeviceID,
			cfg.Capture.Width, cfg.Capture.Height)
	}
	if a.det == nil {
		det, err := detector.NewMediaPipeDetector(detector.DefaultConfig(), logger.Named("detector"))
		if err != nil {
			return nil, fmt.Errorf("create detector: %w", err)
		}
		a.det = det
	}

	a.board = canvas.NewBoard(canvas.Options{
		Width:  cfg.Capture.Width,
		Height: cfg.Capture.Height,
		Color: canvas.RGB{
			R: cfg.Drawing.Color[0],
			G: cfg.Drawing.Color[1],
			B: cfg.Drawing.Color[2],
		},
		LineWidth:        cfg.Drawing.LineWidth,
		EraserRadius:     cfg.Drawing.EraserRadius,
		SessionsDir:      cfg.Drawing.SessionsDir,
		AutosaveInterval: time.Duration(cfg.Drawing.AutosaveInterval) * time.Second,
	}, logger.Named("canvas"))

	a.panel = gesture.PanelFromConfig(cfg.UI)
	a.dispatcher = gesture.NewDispatcher(a.panel, boardSurface{a.board},
		cfg.Capture.Width, cfg.Capture.Height, logger.Named("gesture"))
	a.compositor = ui.NewCompositor(a.panel, cfg.UI.Palette)

	if cfg.Server.Enabled {
		a.events = server.NewEventHub(logger.Named("events"))
		srvCfg := server.Config{
			State:    a,
			Sessions: sessionLister{a.board},
			Events:   a.events,
			Logger:   logger.Named("server"),
		}
		if a.voice != nil {
			srvCfg.Voice = a.voice
		}
		a.srv = server.New(srvCfg)
	}

	a.syncState()
	return a, nil
}

// boardSurface adapts the board to the dispatcher's point-based surface.
type boardSurface struct {
	board *canvas.Board
}

func (s boardSurface) DrawAt(pt image.Point)  { s.board.DrawAt(pt.X, pt.Y) }
func (s boardSurface) EraseAt(pt image.Point) { s.board.EraseAt(pt.X, pt.Y) }
func (s boardSurface) EndStroke()             { s.board.EndStroke() }

// sessionLister adapts the board's session listing to the server interface.
type sessionLister struct {
	board *canvas.Board
}

func (l sessionLister) ListSessions() ([]canvas.SessionInfo, error) {
	return l.board.ListSessions(), nil
}

func canvasRGB(c [3]uint8) canvas.RGB {
	return canvas.RGB{R: c[0], G: c[1], B: c[2]}
}

// paletteName finds the palette entry matching a color, if any.
func paletteName(palette map[string][3]uint8, c [3]uint8) string {
	for name, pc := range palette {
		if pc == c {
			return name
		}
	}
	return ""
}

// Board exposes the drawing board.
func (a *App) Board() *canvas.Board { return a.board }

// SetEnabled pauses or resumes gesture input. Frames keep rendering either
// way so the kiosk screen never goes stale.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	a.enabled = enabled
	a.mu.Unlock()
	a.logger.Info("gesture input toggled", zap.Bool("enabled", enabled))
}

// Enabled reports whether gesture input is active.
func (a *App) Enabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// Stop asks the main loop to exit.
func (a *App) Stop() {
	a.mu.Lock()
	a.running = false
	a.mu.Unlock()
}

func (a *App) isRunning() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.running
}

// syncState publishes the board and dispatcher values for State. Must be
// called from the frame loop, which owns both.
func (a *App) syncState() {
	a.mu.Lock()
	a.modeName = a.dispatcher.Mode().String()
	a.strokeCount = a.board.HistoryLen()
	a.historyCursor = a.board.Cursor()
	a.sessionName = a.board.CurrentSession()
	a.mu.Unlock()
}

// State returns a snapshot for the status server. It never touches the board
// or the dispatcher directly, so it is safe from any goroutine.
func (a *App) State() server.State {
	a.mu.RLock()
	defer a.mu.RUnlock()

	st := server.State{
		Mode:           a.modeName,
		Color:          a.colorName,
		Strokes:        a.strokeCount,
		Cursor:         a.historyCursor,
		Session:        a.sessionName,
		LastTranscript: a.lastTranscript,
	}
	if a.voice != nil {
		st.VoiceBackend = a.voice.ActiveBackend()
	}
	if a.hand != nil {
		st.RobotConnected = a.hand.Connected()
	}
	return st
}

// SaveNow requests a session save. The board only mutates on the frame loop,
// so the save itself happens on the next iteration. Safe to call from the
// tray goroutine.
func (a *App) SaveNow() {
	a.mu.Lock()
	a.savePending = true
	a.mu.Unlock()
}

// takeSaveRequest consumes a pending SaveNow request.
func (a *App) takeSaveRequest() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	pending := a.savePending
	a.savePending = false
	return pending
}

// saveSession writes the session bundle and a flattened PNG, records the
// session in the database, then recognizes text in the background.
func (a *App) saveSession(name string) {
	path := a.board.SaveSession(name)
	if path == "" {
		if a.voice != nil {
			a.voice.Say("Error al guardar el dibujo")
		}
		return
	}

	pngPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".png"
	pngPath = a.board.SaveRaster(pngPath)

	sessionID := uuid.NewString()
	if a.db != nil {
		err := a.db.Sessions().Create(&store.Session{
			ID:          sessionID,
			Name:        filepath.Base(path),
			Path:        path,
			StrokeCount: a.board.HistoryLen(),
		})
		if err != nil {
			a.logger.Error("failed to index session", zap.Error(err))
		}
		if _, err := a.db.Sessions().PruneAutosaves(5); err != nil {
			a.logger.Warn("autosave prune failed", zap.Error(err))
		}
	}

	if a.events != nil {
		a.events.Publish(server.EventSessionSaved, map[string]string{
			"name": filepath.Base(path),
			"path": path,
		})
	}
	if a.voice != nil {
		a.voice.Say("Dibujo guardado")
	}
	a.compositor.ShowMessage("Dibujo guardado", 3*time.Second)

	if a.recognizer != nil && pngPath != "" {
		a.jobs.Add(1)
		go a.recognizeText(pngPath, sessionID)
	}
	a.syncState()
}

// recognizeText runs OCR on a saved raster and fans the result out to the
// transcript log, the database, the voice engine and the robotic hand.
func (a *App) recognizeText(imagePath, sessionID string) {
	defer a.jobs.Done()

	results, err := a.recognizer.Recognize(imagePath)
	if err != nil {
		a.logger.Error("text recognition failed", zap.String("image", imagePath), zap.Error(err))
		return
	}

	text := ocr.JoinText(results)
	if text == "" {
		a.logger.Info("no text recognized", zap.String("image", imagePath))
		return
	}
	a.logger.Info("text recognized", zap.String("text", text))

	a.mu.Lock()
	a.lastTranscript = text
	a.mu.Unlock()

	a.appendTextLog(text)

	if a.db != nil {
		var confidence float64
		for _, r := range results {
			if r.Confidence > confidence {
				confidence = r.Confidence
			}
		}
		err := a.db.Transcripts().Create(&store.Transcript{
			ID:         uuid.NewString(),
			SessionID:  sessionID,
			ImagePath:  imagePath,
			Text:       text,
			Confidence: confidence,
		})
		if err != nil {
			a.logger.Error("failed to store transcript", zap.Error(err))
		}
	}

	if a.events != nil {
		a.events.Publish(server.EventTextRecognized, map[string]string{"text": text})
	}
	if a.voice != nil {
		a.voice.Say("Texto reconocido: " + text)
	}
	if a.hand != nil {
		a.hand.Send(text)
	}
}

// appendTextLog appends a timestamped line to the recognized-text log file.
func (a *App) appendTextLog(text string) {
	if a.cfg.OCR.TextLog == "" {
		return
	}
	f, err := os.OpenFile(a.cfg.OCR.TextLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		a.logger.Error("failed to open text log", zap.Error(err))
		return
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] %s\n", time.Now().Format("2006-01-02 15:04:05"), text)
	if _, err := f.WriteString(line); err != nil {
		a.logger.Error("failed to append text log", zap.Error(err))
	}
}

// Shutdown releases every collaborator in reverse dependency order. Errors
// are logged and do not stop the cascade.
func (a *App) Shutdown() {
	a.Stop()
	a.jobs.Wait()

	if a.voice != nil {
		if err := a.voice.Close(); err != nil {
			a.logger.Warn("voice shutdown", zap.Error(err))
		}
	}
	if a.hand != nil {
		if err := a.hand.Close(); err != nil {
			a.logger.Warn("robot shutdown", zap.Error(err))
		}
	}
	if err := a.det.Close(); err != nil {
		a.logger.Warn("detector shutdown", zap.Error(err))
	}
	if err := a.camera.Close(); err != nil {
		a.logger.Warn("camera shutdown", zap.Error(err))
	}
	if a.window != nil {
		if err := a.window.Close(); err != nil {
			a.logger.Warn("window shutdown", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("store shutdown", zap.Error(err))
		}
	}
	a.logger.Info("shutdown complete")
}
