package gesture

import (
	"image"
	"sort"
	"time"

	"github.com/mirantes/lienzo/internal/config"
)

// DefaultCooldown is the minimum interval between two activations of the
// same button.
const DefaultCooldown = 500 * time.Millisecond

// Button is a rectangular screen region bound to an action.
type Button struct {
	Name   string
	Action Action
	Rect   image.Rectangle
	// Arg carries action parameters, such as the color name for ActionColor.
	Arg string
}

// Area returns the button surface in pixels.
func (b Button) Area() int {
	return b.Rect.Dx() * b.Rect.Dy()
}

// Panel holds the buttons of the overlay and tracks per-button cooldowns so
// a held fist fires each action at most once per cooldown window.
type Panel struct {
	buttons   []Button
	cooldown  time.Duration
	lastFired map[string]time.Time
	now       func() time.Time
}

// NewPanel creates a panel with the given buttons and the default cooldown.
func NewPanel(buttons []Button) *Panel {
	return &Panel{
		buttons:   buttons,
		cooldown:  DefaultCooldown,
		lastFired: make(map[string]time.Time),
		now:       time.Now,
	}
}

// PanelFromConfig builds a panel from configured action buttons plus one
// color button per palette entry, laid out in a column on the left edge.
func PanelFromConfig(ui config.UIConfig) *Panel {
	buttons := make([]Button, 0, len(ui.Buttons)+len(ui.Palette))
	for _, b := range ui.Buttons {
		buttons = append(buttons, Button{
			Name:   b.Name,
			Action: ParseAction(b.Action),
			Rect:   image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height),
		})
	}

	names := make([]string, 0, len(ui.Palette))
	for name := range ui.Palette {
		names = append(names, name)
	}
	sort.Strings(names)

	const (
		swatchSize = 40
		swatchX    = 20
		swatchY0   = 120
		swatchGap  = 10
	)
	for i, name := range names {
		y := swatchY0 + i*(swatchSize+swatchGap)
		buttons = append(buttons, Button{
			Name:   name,
			Action: ActionColor,
			Arg:    name,
			Rect:   image.Rect(swatchX, y, swatchX+swatchSize, y+swatchSize),
		})
	}

	return NewPanel(buttons)
}

// SetCooldown overrides the activation cooldown. Non-positive values are ignored.
func (p *Panel) SetCooldown(d time.Duration) {
	if d > 0 {
		p.cooldown = d
	}
}

// Buttons returns the panel's buttons in declaration order.
func (p *Panel) Buttons() []Button {
	return p.buttons
}

// HitTest returns the button containing pt. When buttons overlap, the one
// with the smallest area wins; ties go to the earliest declared.
func (p *Panel) HitTest(pt image.Point) (Button, bool) {
	var best Button
	found := false
	for _, b := range p.buttons {
		if !pt.In(b.Rect) {
			continue
		}
		if !found || b.Area() < best.Area() {
			best = b
			found = true
		}
	}
	return best, found
}

// Press hit-tests pt and, if a button is hit and its cooldown has elapsed,
// marks it fired and returns it.
func (p *Panel) Press(pt image.Point) (Button, bool) {
	b, ok := p.HitTest(pt)
	if !ok {
		return Button{}, false
	}

	now := p.now()
	if last, seen := p.lastFired[b.Name]; seen && now.Sub(last) < p.cooldown {
		return Button{}, false
	}
	p.lastFired[b.Name] = now
	return b, true
}
