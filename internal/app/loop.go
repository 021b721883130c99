package app

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mirantes/lienzo/internal/detector"
	"github.com/mirantes/lienzo/internal/gesture"
	"github.com/mirantes/lienzo/internal/server"
	"github.com/mirantes/lienzo/internal/ui"
)

const (
	targetFPS     = 30
	frameInterval = time.Second / targetFPS
	readBackoff   = 100 * time.Millisecond
)

// Run opens the camera, starts the collaborators and drives the frame loop
// until Stop is called or the operator quits. Blocks the calling goroutine.
func (a *App) Run() error {
	if err := a.camera.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}

	if a.voice != nil {
		if err := a.voice.Start(); err != nil {
			a.logger.Warn("voice engine unavailable", zap.Error(err))
		} else {
			a.voice.Say("Bienvenido a Lienzo")
		}
	}

	if a.hand != nil {
		if err := a.hand.Connect(a.cfg.Robot.Port); err != nil {
			a.logger.Warn("robotic hand not connected", zap.Error(err))
		}
	}

	if a.srv != nil {
		go func() {
			if err := a.srv.ListenAndServe(a.cfg.Server.Addr); err != nil {
				a.logger.Error("status server stopped", zap.Error(err))
			}
		}()
	}

	if a.window == nil {
		a.window = ui.NewWindow("Lienzo")
	}

	a.mu.Lock()
	a.running = true
	a.mu.Unlock()
	a.logger.Info("kiosk running",
		zap.Int("width", a.cfg.Capture.Width),
		zap.Int("height", a.cfg.Capture.Height))

	var fps float64
	last := time.Now()
	for a.isRunning() {
		start := time.Now()
		a.step(fps)

		elapsed := time.Since(start)
		if elapsed < frameInterval {
			time.Sleep(frameInterval - elapsed)
		}

		// Exponentially smoothed so the debug readout does not flicker.
		frameTime := time.Since(last)
		last = time.Now()
		if frameTime > 0 {
			fps = 0.9*fps + 0.1/frameTime.Seconds()
		}
	}
	return nil
}

// step processes one frame. A panic in any collaborator is confined to the
// frame that raised it.
func (a *App) step(fps float64) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("frame processing panicked", zap.Any("panic", r))
		}
	}()

	frame, err := a.camera.ReadFrame()
	if err != nil {
		a.logger.Warn("frame read failed", zap.Error(err))
		time.Sleep(readBackoff)
		return
	}
	defer frame.Close()

	var hands []detector.HandLandmarks
	if a.Enabled() {
		hands, err = a.det.Detect(frame)
		if err != nil {
			a.logger.Warn("hand detection failed", zap.Error(err))
			hands = nil
		}
	}

	var res gesture.Result
	if a.calibrator != nil && a.calibrator.Calibrating() {
		res = a.stepCalibration(hands)
	} else {
		prevMode := a.dispatcher.Mode()
		res = a.dispatcher.Process(hands)
		if res.DidFire {
			a.handleButton(res.Fired)
		}
		if mode := a.dispatcher.Mode(); mode != prevMode && a.events != nil {
			a.events.Publish(server.EventModeChanged, map[string]string{"mode": mode.String()})
		}
	}

	if a.takeSaveRequest() {
		a.saveSession("")
	}
	a.board.MaybeAutosave(time.Now())
	a.syncState()

	a.mu.RLock()
	colorName := a.colorName
	a.mu.RUnlock()

	st := ui.State{
		Mode:        a.dispatcher.Mode(),
		ColorName:   colorName,
		Fingertip:   res.Fingertip,
		HandPresent: res.HandPresent,
		Fist:        res.Fist,
		FPS:         fps,
		Debug:       a.cfg.Debug,
	}
	if err := a.compositor.Render(frame, a.board.Image(), st); err != nil {
		a.logger.Warn("render failed", zap.Error(err))
	}
	a.window.Show(frame)
	a.handleKey(a.window.WaitKey(1))
}

// stepCalibration feeds hand samples to the calibrator and advances the
// guided flow, keeping the operator informed through the overlay.
func (a *App) stepCalibration(hands []detector.HandLandmarks) gesture.Result {
	var res gesture.Result
	if len(hands) > 0 {
		hand := &hands[0]
		raised := detector.RaisedFingers(hand)
		res.HandPresent = true
		res.Fingertip = detector.FingertipPixel(hand, a.cfg.Capture.Width, a.cfg.Capture.Height)
		a.calibrator.Record(hand, raised)
	}

	a.compositor.ShowMessage(fmt.Sprintf("%s (%.0f%%)",
		a.calibrator.Instruction(), a.calibrator.StepProgress()*100), time.Second)

	if a.calibrator.StepDone() {
		if !a.calibrator.NextStep() {
			a.compositor.ShowMessage("Calibración completada", 3*time.Second)
			if a.voice != nil {
				a.voice.Say("Calibración completada")
			}
		}
	}
	return res
}

// handleButton acts on a fired panel button. Mode switches are already done
// by the dispatcher; the narration and the side effects happen here.
func (a *App) handleButton(b gesture.Button) {
	a.logger.Info("button pressed", zap.String("button", b.Name))
	if a.events != nil {
		a.events.Publish(server.EventButtonPressed, map[string]string{
			"button": b.Name,
			"action": b.Action.String(),
		})
	}

	switch b.Action {
	case gesture.ActionDraw:
		a.narrate("Modo dibujo")
	case gesture.ActionErase:
		a.narrate("Modo borrado")
	case gesture.ActionClear:
		a.board.Clear()
		a.narrate("Lienzo limpio")
	case gesture.ActionSave:
		a.saveSession("")
	case gesture.ActionExit:
		if a.voice != nil {
			a.voice.SayPriority("Hasta pronto")
		}
		a.Stop()
	case gesture.ActionColor:
		a.setColor(b.Arg)
	}
}

// setColor switches the active draw color to a palette entry.
func (a *App) setColor(name string) {
	c, ok := a.cfg.UI.Palette[name]
	if !ok {
		a.logger.Warn("unknown palette color", zap.String("color", name))
		return
	}

	a.board.SetColor(canvasRGB(c))
	a.mu.Lock()
	a.colorName = name
	a.mu.Unlock()

	a.narrate("Color " + name)
	if a.events != nil {
		a.events.Publish(server.EventColorChanged, map[string]string{"color": name})
	}
}

func (a *App) narrate(text string) {
	if a.voice != nil {
		a.voice.Say(text)
	}
}

// handleKey maps operator keyboard input. The kiosk is gesture-first; keys
// cover what a fist cannot reach once the camera is down.
func (a *App) handleKey(key int) {
	switch key {
	case 'q', 27: // ESC
		a.Stop()
	case 's':
		a.saveSession("")
	case 'z':
		a.board.Undo()
	case 'y':
		a.board.Redo()
	case 'c':
		if a.calibrator != nil && !a.calibrator.Calibrating() {
			a.calibrator.Start()
			a.narrate("Iniciando calibración")
		}
	}
}
