// Package canvas implements the drawing board: a fixed-resolution raster
// mutated through committed strokes, with a linear undo/redo log and
// session persistence.
package canvas

import (
	"fmt"
	"image"
	"os"
	"time"

	"github.com/fogleman/gg"
	"go.uber.org/zap"
	xdraw "golang.org/x/image/draw"

	_ "image/jpeg"
	_ "image/png"
)

// Kind identifies the stroke record variant.
type Kind string

const (
	// KindDraw is a colored freehand stroke.
	KindDraw Kind = "draw"
	// KindErase is an eraser pass (filled background circles).
	KindErase Kind = "erase"
	// KindImage marks a history reset caused by loading an external image.
	KindImage Kind = "image"
)

// RGB is a stroke color.
type RGB struct {
	R, G, B uint8
}

// Stroke is one record in the history log.
type Stroke struct {
	Kind   Kind
	Color  RGB         // draw strokes
	Width  int         // draw strokes
	Radius int         // erase strokes
	Points []image.Point
	Source string    // image records
	At     time.Time // image records
}

// Board owns the canvas raster and the replayable stroke log.
// It is not safe for concurrent use: all mutation happens on the main loop.
type Board struct {
	logger *zap.Logger

	width  int
	height int
	dc     *gg.Context

	strokes []Stroke
	cursor  int // index of last applied record, -1 = blank canvas

	color        RGB
	lineWidth    int
	eraserRadius int

	drawing bool // a stroke is currently open

	sessionsDir      string
	currentSession   string
	autosaveInterval time.Duration
	lastAutosave     time.Time
}

// Options configures a new Board.
type Options struct {
	Width            int
	Height           int
	Color            RGB
	LineWidth        int
	EraserRadius     int
	SessionsDir      string
	AutosaveInterval time.Duration
}

// NewBoard creates a blank board.
func NewBoard(opts Options, logger *zap.Logger) *Board {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Width <= 0 {
		opts.Width = 640
	}
	if opts.Height <= 0 {
		opts.Height = 480
	}
	if opts.LineWidth <= 0 {
		opts.LineWidth = 3
	}
	if opts.EraserRadius <= 0 {
		opts.EraserRadius = 30
	}

	b := &Board{
		logger:           logger,
		width:            opts.Width,
		height:           opts.Height,
		color:            opts.Color,
		lineWidth:        opts.LineWidth,
		eraserRadius:     opts.EraserRadius,
		cursor:           -1,
		sessionsDir:      opts.SessionsDir,
		autosaveInterval: opts.AutosaveInterval,
		lastAutosave:     time.Now(),
	}
	b.dc = b.blankContext()

	if b.sessionsDir != "" {
		if err := os.MkdirAll(b.sessionsDir, 0755); err != nil {
			logger.Error("failed to create sessions directory", zap.String("dir", b.sessionsDir), zap.Error(err))
		}
	}
	return b
}

func (b *Board) blankContext() *gg.Context {
	dc := gg.NewContext(b.width, b.height)
	dc.SetRGB(0, 0, 0)
	dc.Clear()
	return dc
}

func (b *Board) inBounds(x, y int) bool {
	return x >= 0 && x < b.width && y >= 0 && y < b.height
}

// DrawAt opens a draw stroke at (x, y) or extends the open one, rasterizing
// the new segment eagerly. Points outside the canvas are ignored.
func (b *Board) DrawAt(x, y int) {
	if !b.inBounds(x, y) {
		return
	}

	if !b.drawing {
		b.truncateRedo()
		b.strokes = append(b.strokes, Stroke{
			Kind:   KindDraw,
			Color:  b.color,
			Width:  b.lineWidth,
			Points: []image.Point{{X: x, Y: y}},
		})
		b.cursor = len(b.strokes) - 1
		b.drawing = true
		return
	}

	stroke := &b.strokes[b.cursor]
	prev := stroke.Points[len(stroke.Points)-1]
	stroke.Points = append(stroke.Points, image.Point{X: x, Y: y})
	b.rasterSegment(prev, image.Point{X: x, Y: y}, stroke.Color, stroke.Width)
}

// EraseAt opens an erase stroke at (x, y) or extends the open one, stamping a
// filled background circle of the configured radius.
func (b *Board) EraseAt(x, y int) {
	if !b.inBounds(x, y) {
		return
	}

	if !b.drawing {
		b.truncateRedo()
		b.strokes = append(b.strokes, Stroke{
			Kind:   KindErase,
			Radius: b.eraserRadius,
			Points: []image.Point{{X: x, Y: y}},
		})
		b.cursor = len(b.strokes) - 1
		b.drawing = true
	} else {
		stroke := &b.strokes[b.cursor]
		stroke.Points = append(stroke.Points, image.Point{X: x, Y: y})
	}

	b.rasterErase(image.Point{X: x, Y: y}, b.strokes[b.cursor].Radius)
}

// EndStroke closes the open stroke, if any. Idempotent.
func (b *Board) EndStroke() {
	b.drawing = false
}

// truncateRedo discards any records beyond the cursor before a new commit.
func (b *Board) truncateRedo() {
	b.strokes = b.strokes[:b.cursor+1]
}

// Undo steps the cursor back one record and rebuilds the canvas.
// Returns false at the blank-canvas boundary.
func (b *Board) Undo() bool {
	if b.cursor < 0 {
		return false
	}
	b.EndStroke()
	b.cursor--
	b.rebuild()
	b.logger.Info("stroke undone", zap.Int("cursor", b.cursor))
	return true
}

// Redo re-applies the next record, if one exists.
func (b *Board) Redo() bool {
	if b.cursor >= len(b.strokes)-1 {
		return false
	}
	b.EndStroke()
	b.cursor++
	b.rebuild()
	b.logger.Info("stroke redone", zap.Int("cursor", b.cursor))
	return true
}

// Clear resets the canvas and empties the log. Not undoable.
func (b *Board) Clear() {
	b.dc = b.blankContext()
	b.strokes = nil
	b.cursor = -1
	b.drawing = false
	b.logger.Info("canvas cleared")
}

// rebuild replays records [0, cursor] from a blank canvas. Deterministic:
// the same log prefix always yields the same pixels.
func (b *Board) rebuild() {
	b.dc = b.blankContext()

	for i := 0; i <= b.cursor; i++ {
		stroke := b.strokes[i]
		switch stroke.Kind {
		case KindDraw:
			for j := 1; j < len(stroke.Points); j++ {
				b.rasterSegment(stroke.Points[j-1], stroke.Points[j], stroke.Color, stroke.Width)
			}
		case KindErase:
			for _, pt := range stroke.Points {
				b.rasterErase(pt, stroke.Radius)
			}
		case KindImage:
			b.rasterImage(stroke.Source)
		}
	}
}

func (b *Board) rasterSegment(from, to image.Point, c RGB, width int) {
	b.dc.SetRGB255(int(c.R), int(c.G), int(c.B))
	b.dc.SetLineWidth(float64(width))
	b.dc.SetLineCapRound()
	b.dc.DrawLine(float64(from.X), float64(from.Y), float64(to.X), float64(to.Y))
	b.dc.Stroke()
}

func (b *Board) rasterErase(at image.Point, radius int) {
	b.dc.SetRGB(0, 0, 0)
	b.dc.DrawCircle(float64(at.X), float64(at.Y), float64(radius))
	b.dc.Fill()
}

func (b *Board) rasterImage(path string) {
	img, err := loadScaled(path, b.width, b.height)
	if err != nil {
		b.logger.Error("failed to replay loaded image", zap.String("path", path), zap.Error(err))
		return
	}
	b.dc.DrawImage(img, 0, 0)
}

// LoadImage replaces the canvas with an external image. The history is reset
// to a single image record: loads are not composable with undo.
func (b *Board) LoadImage(path string) error {
	img, err := loadScaled(path, b.width, b.height)
	if err != nil {
		return fmt.Errorf("load image %s: %w", path, err)
	}

	b.dc = b.blankContext()
	b.dc.DrawImage(img, 0, 0)
	b.strokes = []Stroke{{Kind: KindImage, Source: path, At: time.Now()}}
	b.cursor = 0
	b.drawing = false
	b.logger.Info("image loaded onto canvas", zap.String("path", path))
	return nil
}

func loadScaled(path string, width, height int) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}

	if src.Bounds().Dx() == width && src.Bounds().Dy() == height {
		return src, nil
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	return dst, nil
}

// SetColor changes the active draw color.
func (b *Board) SetColor(c RGB) {
	b.color = c
}

// SetLineWidth changes the active stroke width. Non-positive values are
// rejected and the prior value retained.
func (b *Board) SetLineWidth(width int) bool {
	if width <= 0 {
		b.logger.Warn("rejected line width", zap.Int("width", width))
		return false
	}
	b.lineWidth = width
	return true
}

// SetEraserRadius changes the eraser radius. Non-positive values are rejected.
func (b *Board) SetEraserRadius(radius int) bool {
	if radius <= 0 {
		b.logger.Warn("rejected eraser radius", zap.Int("radius", radius))
		return false
	}
	b.eraserRadius = radius
	return true
}

// Color returns the active draw color.
func (b *Board) Color() RGB { return b.color }

// LineWidth returns the active stroke width.
func (b *Board) LineWidth() int { return b.lineWidth }

// EraserRadius returns the active eraser radius.
func (b *Board) EraserRadius() int { return b.eraserRadius }

// HistoryLen returns the number of records in the log.
func (b *Board) HistoryLen() int { return len(b.strokes) }

// Cursor returns the history cursor (-1 for a blank canvas).
func (b *Board) Cursor() int { return b.cursor }

// Drawing reports whether a stroke is currently open.
func (b *Board) Drawing() bool { return b.drawing }

// Size returns the canvas dimensions.
func (b *Board) Size() (int, int) { return b.width, b.height }

// Image returns the current canvas raster. The caller must not mutate it.
func (b *Board) Image() image.Image {
	return b.dc.Image()
}

// Snapshot returns an independent copy of the canvas pixels.
func (b *Board) Snapshot() *image.RGBA {
	src := b.dc.Image()
	dst := image.NewRGBA(src.Bounds())
	xdraw.Copy(dst, image.Point{}, src, src.Bounds(), xdraw.Src, nil)
	return dst
}

// CurrentSession returns the name of the most recently saved or loaded
// session, if any.
func (b *Board) CurrentSession() string { return b.currentSession }
