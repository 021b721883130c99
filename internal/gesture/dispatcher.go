// Package gesture turns hand landmarks into drawing input and button actions.
package gesture

import (
	"image"

	"go.uber.org/zap"

	"github.com/mirantes/lienzo/internal/detector"
)

// Action identifies what a button activation does.
type Action int

const (
	ActionNone Action = iota
	ActionDraw
	ActionErase
	ActionClear
	ActionSave
	ActionExit
	ActionColor
)

// ParseAction maps a configured action name to an Action.
func ParseAction(name string) Action {
	switch name {
	case "draw":
		return ActionDraw
	case "erase":
		return ActionErase
	case "clear":
		return ActionClear
	case "save":
		return ActionSave
	case "exit":
		return ActionExit
	case "color":
		return ActionColor
	default:
		return ActionNone
	}
}

// String returns the configured name of the action.
func (a Action) String() string {
	switch a {
	case ActionDraw:
		return "draw"
	case ActionErase:
		return "erase"
	case ActionClear:
		return "clear"
	case ActionSave:
		return "save"
	case ActionExit:
		return "exit"
	case ActionColor:
		return "color"
	default:
		return "none"
	}
}

// Mode is the dispatcher's interaction mode.
type Mode int

const (
	ModeNone Mode = iota
	ModeDraw
	ModeErase
)

func (m Mode) String() string {
	switch m {
	case ModeDraw:
		return "draw"
	case ModeErase:
		return "erase"
	default:
		return "none"
	}
}

// Surface receives drawing input from the dispatcher.
type Surface interface {
	DrawAt(pt image.Point)
	EraseAt(pt image.Point)
	EndStroke()
}

// Result describes what one frame of landmarks produced.
type Result struct {
	HandPresent bool
	Fingertip   image.Point
	Fist        bool
	Fired       Button
	DidFire     bool
}

// Dispatcher routes hand poses to the drawing surface and the button panel.
//
// A closed fist over a button activates it. With draw mode selected, an
// index-only pose paints at the fingertip; any extra raised finger lifts the
// pen. Erase mode erases at the fingertip regardless of pose.
type Dispatcher struct {
	panel   *Panel
	surface Surface
	logger  *zap.Logger
	mode    Mode
	width   int
	height  int
}

// NewDispatcher creates a dispatcher for frames of the given dimensions.
func NewDispatcher(panel *Panel, surface Surface, width, height int, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		panel:   panel,
		surface: surface,
		logger:  logger,
		width:   width,
		height:  height,
	}
}

// Mode returns the current interaction mode.
func (d *Dispatcher) Mode() Mode {
	return d.mode
}

// SetMode switches the interaction mode directly, as the draw and erase
// buttons do.
func (d *Dispatcher) SetMode(m Mode) {
	if m != d.mode {
		d.logger.Info("mode changed", zap.Stringer("from", d.mode), zap.Stringer("to", m))
	}
	d.mode = m
}

// Process handles one frame of detected hands. Only the first hand is used.
// Mode-switching actions are applied internally; every fired button is also
// reported in the result for the caller to act on.
func (d *Dispatcher) Process(hands []detector.HandLandmarks) Result {
	if len(hands) == 0 {
		d.surface.EndStroke()
		return Result{}
	}

	hand := &hands[0]
	raised := detector.RaisedFingers(hand)
	pt := detector.FingertipPixel(hand, d.width, d.height)
	res := Result{HandPresent: true, Fingertip: pt}
	res.Fist = !detector.AnyRaised(raised)

	// Surface routing comes first and never depends on the fist: erasing is
	// position-driven, so a closed fist still erases at the fingertip.
	switch d.mode {
	case ModeDraw:
		if indexOnly(raised) {
			d.surface.DrawAt(pt)
		} else {
			d.surface.EndStroke()
		}
	case ModeErase:
		d.surface.EraseAt(pt)
	default:
		d.surface.EndStroke()
	}

	if res.Fist {
		if b, ok := d.panel.Press(pt); ok {
			res.Fired = b
			res.DidFire = true
			d.apply(b)
		}
	}

	return res
}

func (d *Dispatcher) apply(b Button) {
	d.logger.Info("button activated", zap.String("button", b.Name), zap.Stringer("action", b.Action))
	switch b.Action {
	case ActionDraw:
		d.SetMode(ModeDraw)
	case ActionErase:
		d.SetMode(ModeErase)
	}
}

// indexOnly reports an index finger raised with middle, ring and pinky down.
// The thumb does not matter for the drawing pose.
func indexOnly(raised [detector.NumFingers]bool) bool {
	return raised[detector.Index] &&
		!raised[detector.Middle] &&
		!raised[detector.Ring] &&
		!raised[detector.Pinky]
}
