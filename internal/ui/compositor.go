// Package ui composites the camera frame, the drawing canvas and the
// control overlay, and manages the display windows.
package ui

import (
	"fmt"
	"image"
	"image/color"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/mirantes/lienzo/internal/gesture"
)

// Overlay colors, BGR as OpenCV expects.
var (
	colorButton    = color.RGBA{R: 200, G: 200, B: 200, A: 255}
	colorSelected  = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	colorIndicator = color.RGBA{R: 255, G: 0, B: 255, A: 255}
	colorFist      = color.RGBA{R: 0, G: 0, B: 255, A: 255}
	colorText      = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// State is what the compositor needs from one frame of the session.
type State struct {
	Mode        gesture.Mode
	ColorName   string
	Fingertip   image.Point
	HandPresent bool
	Fist        bool
	FPS         float64
	Debug       bool
}

// Compositor renders the kiosk overlay onto camera frames. ShowMessage may
// be called from other goroutines; rendering happens on the frame loop.
type Compositor struct {
	panel   *gesture.Panel
	palette map[string][3]uint8

	mu           sync.Mutex
	message      string
	messageUntil time.Time
	now          func() time.Time
}

// NewCompositor creates a compositor for the given button panel and palette.
func NewCompositor(panel *gesture.Panel, palette map[string][3]uint8) *Compositor {
	return &Compositor{
		panel:   panel,
		palette: palette,
		now:     time.Now,
	}
}

// ShowMessage displays a system message on the overlay for the duration.
func (c *Compositor) ShowMessage(text string, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.message = text
	c.messageUntil = c.now().Add(d)
}

// currentMessage returns the active system message, or "" once expired.
func (c *Compositor) currentMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.message == "" || !c.now().Before(c.messageUntil) {
		return ""
	}
	return c.message
}

// Render draws the canvas and overlay onto frame in place. The canvas is
// blended additively so strokes appear over the camera image.
func (c *Compositor) Render(frame *gocv.Mat, canvas image.Image, st State) error {
	if canvas != nil {
		overlay, err := gocv.ImageToMatRGBA(canvas)
		if err != nil {
			return fmt.Errorf("convert canvas: %w", err)
		}
		defer overlay.Close()

		bgr := gocv.NewMat()
		defer bgr.Close()
		gocv.CvtColor(overlay, &bgr, gocv.ColorRGBAToBGR)

		if bgr.Cols() == frame.Cols() && bgr.Rows() == frame.Rows() {
			gocv.AddWeighted(*frame, 1.0, bgr, 1.0, 0, frame)
		}
	}

	c.drawButtons(frame, st)
	c.drawHand(frame, st)
	c.drawStatus(frame, st)
	return nil
}

func (c *Compositor) drawButtons(frame *gocv.Mat, st State) {
	for _, b := range c.panel.Buttons() {
		border := colorButton
		thickness := 2

		switch {
		case b.Action == gesture.ActionDraw && st.Mode == gesture.ModeDraw,
			b.Action == gesture.ActionErase && st.Mode == gesture.ModeErase,
			b.Action == gesture.ActionColor && b.Arg == st.ColorName:
			border = colorSelected
			thickness = 3
		}

		if b.Action == gesture.ActionColor {
			if rgb, ok := c.palette[b.Arg]; ok {
				fill := color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255}
				gocv.Rectangle(frame, b.Rect, fill, -1)
			}
			gocv.Rectangle(frame, b.Rect, border, thickness)
			continue
		}

		gocv.Rectangle(frame, b.Rect, border, thickness)
		gocv.PutText(frame, b.Name,
			image.Pt(b.Rect.Min.X+8, b.Rect.Min.Y+b.Rect.Dy()/2+5),
			gocv.FontHersheySimplex, 0.5, colorText, 1)
	}
}

func (c *Compositor) drawHand(frame *gocv.Mat, st State) {
	if !st.HandPresent {
		return
	}

	indicator := colorIndicator
	if st.Fist {
		indicator = colorFist
	}

	pt := st.Fingertip
	gocv.Circle(frame, pt, 10, indicator, 2)
	gocv.Line(frame, image.Pt(pt.X-15, pt.Y), image.Pt(pt.X+15, pt.Y), indicator, 1)
	gocv.Line(frame, image.Pt(pt.X, pt.Y-15), image.Pt(pt.X, pt.Y+15), indicator, 1)
}

func (c *Compositor) drawStatus(frame *gocv.Mat, st State) {
	status := fmt.Sprintf("Modo: %s | Color: %s", modeLabel(st.Mode), st.ColorName)
	gocv.PutText(frame, status,
		image.Pt(10, frame.Rows()-15),
		gocv.FontHersheySimplex, 0.6, colorText, 2)

	if st.Debug && st.FPS > 0 {
		gocv.PutText(frame, fmt.Sprintf("%.1f fps", st.FPS),
			image.Pt(frame.Cols()-110, frame.Rows()-15),
			gocv.FontHersheySimplex, 0.6, colorSelected, 2)
	}

	if msg := c.currentMessage(); msg != "" {
		gocv.PutText(frame, msg,
			image.Pt(10, frame.Rows()-45),
			gocv.FontHersheySimplex, 0.7, colorSelected, 2)
	}
}

func modeLabel(m gesture.Mode) string {
	switch m {
	case gesture.ModeDraw:
		return "dibujo"
	case gesture.ModeErase:
		return "borrado"
	default:
		return "ninguno"
	}
}
