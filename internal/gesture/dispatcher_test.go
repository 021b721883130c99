package gesture

import (
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mirantes/lienzo/internal/config"
	"github.com/mirantes/lienzo/internal/detector"
)

func configWithPalette() config.UIConfig {
	return config.UIConfig{
		Buttons: []config.ButtonConfig{
			{Name: "Guardar", Action: "save", X: 10, Y: 10, Width: 80, Height: 30},
		},
		Palette: map[string][3]uint8{
			"verde": {0, 255, 0},
			"rojo":  {255, 0, 0},
		},
	}
}

// recordingSurface captures dispatcher output for assertions.
type recordingSurface struct {
	draws  []image.Point
	erases []image.Point
	ends   int
}

func (s *recordingSurface) DrawAt(pt image.Point)  { s.draws = append(s.draws, pt) }
func (s *recordingSurface) EraseAt(pt image.Point) { s.erases = append(s.erases, pt) }
func (s *recordingSurface) EndStroke()             { s.ends++ }

func testButtons() []Button {
	return []Button{
		{Name: "Dibujar", Action: ActionDraw, Rect: image.Rect(50, 50, 150, 90)},
		{Name: "Borrar", Action: ActionErase, Rect: image.Rect(200, 50, 300, 90)},
		{Name: "Guardar", Action: ActionSave, Rect: image.Rect(350, 50, 450, 90)},
	}
}

func newTestDispatcher() (*Dispatcher, *recordingSurface, *Panel) {
	surface := &recordingSurface{}
	panel := NewPanel(testButtons())
	d := NewDispatcher(panel, surface, 640, 480, nil)
	return d, surface, panel
}

func handsAt(h detector.HandLandmarks) []detector.HandLandmarks {
	return []detector.HandLandmarks{h}
}

func TestIndexOnlyDrawsInDrawMode(t *testing.T) {
	d, surface, _ := newTestDispatcher()
	d.SetMode(ModeDraw)

	res := d.Process(handsAt(detector.IndexOnlyLandmarks(0.5, 0.5)))

	assert.True(t, res.HandPresent)
	assert.Equal(t, []image.Point{{X: 320, Y: 240}}, surface.draws)
	assert.Zero(t, surface.ends)
}

func TestIndexMiddleLiftsPen(t *testing.T) {
	d, surface, _ := newTestDispatcher()
	d.SetMode(ModeDraw)

	d.Process(handsAt(detector.IndexOnlyLandmarks(0.5, 0.5)))
	d.Process(handsAt(detector.IndexMiddleLandmarks(0.5, 0.5)))

	assert.Len(t, surface.draws, 1)
	assert.Equal(t, 1, surface.ends)
}

func TestNoModeNeverDraws(t *testing.T) {
	d, surface, _ := newTestDispatcher()

	d.Process(handsAt(detector.IndexOnlyLandmarks(0.5, 0.5)))

	assert.Empty(t, surface.draws)
	assert.Equal(t, 1, surface.ends)
}

func TestEraseModeIgnoresPose(t *testing.T) {
	d, surface, _ := newTestDispatcher()
	d.SetMode(ModeErase)

	d.Process(handsAt(detector.IndexOnlyLandmarks(0.25, 0.5)))
	d.Process(handsAt(detector.OpenPalmLandmarks(0.25, 0.5)))

	assert.Len(t, surface.erases, 2)
	assert.Empty(t, surface.draws)
}

func TestFistErasesInEraseMode(t *testing.T) {
	d, surface, _ := newTestDispatcher()
	d.SetMode(ModeErase)

	res := d.Process(handsAt(detector.FistLandmarks(0.5, 0.9)))

	assert.True(t, res.Fist)
	assert.Equal(t, []image.Point{{X: 320, Y: 432}}, surface.erases)
	assert.Zero(t, surface.ends)
}

func TestFistOverButtonStillErasesInEraseMode(t *testing.T) {
	d, surface, _ := newTestDispatcher()
	d.SetMode(ModeErase)

	// Inside "Guardar": the erase happens and the button fires.
	res := d.Process(handsAt(detector.FistLandmarks(400.0/640, 70.0/480)))

	assert.Len(t, surface.erases, 1)
	assert.True(t, res.DidFire)
	assert.Equal(t, "Guardar", res.Fired.Name)
}

func TestNoHandEndsStroke(t *testing.T) {
	d, surface, _ := newTestDispatcher()
	d.SetMode(ModeDraw)

	d.Process(handsAt(detector.IndexOnlyLandmarks(0.5, 0.5)))
	res := d.Process(nil)

	assert.False(t, res.HandPresent)
	assert.Equal(t, 1, surface.ends)
}

func TestFistOverButtonFires(t *testing.T) {
	d, _, _ := newTestDispatcher()

	// Button "Dibujar" spans (50,50)-(150,90); 100/640, 70/480 lands inside.
	res := d.Process(handsAt(detector.FistLandmarks(100.0/640, 70.0/480)))

	assert.True(t, res.Fist)
	assert.True(t, res.DidFire)
	assert.Equal(t, "Dibujar", res.Fired.Name)
	assert.Equal(t, ModeDraw, d.Mode())
}

func TestFistAwayFromButtonsFiresNothing(t *testing.T) {
	d, surface, _ := newTestDispatcher()
	d.SetMode(ModeDraw)

	res := d.Process(handsAt(detector.FistLandmarks(0.5, 0.9)))

	assert.True(t, res.Fist)
	assert.False(t, res.DidFire)
	assert.Equal(t, 1, surface.ends)
}

func TestButtonCooldown(t *testing.T) {
	d, _, panel := newTestDispatcher()

	now := time.Unix(1000, 0)
	panel.now = func() time.Time { return now }

	fist := handsAt(detector.FistLandmarks(100.0/640, 70.0/480))

	assert.True(t, d.Process(fist).DidFire)

	// Held fist within the cooldown window fires nothing.
	now = now.Add(200 * time.Millisecond)
	assert.False(t, d.Process(fist).DidFire)

	now = now.Add(400 * time.Millisecond)
	assert.True(t, d.Process(fist).DidFire)
}

func TestCooldownIsPerButton(t *testing.T) {
	d, _, panel := newTestDispatcher()

	now := time.Unix(1000, 0)
	panel.now = func() time.Time { return now }

	assert.True(t, d.Process(handsAt(detector.FistLandmarks(100.0/640, 70.0/480))).DidFire)

	// A different button is not throttled by the first one's window.
	res := d.Process(handsAt(detector.FistLandmarks(250.0/640, 70.0/480)))
	assert.True(t, res.DidFire)
	assert.Equal(t, "Borrar", res.Fired.Name)
	assert.Equal(t, ModeErase, d.Mode())
}

func TestHitTestSmallestAreaWins(t *testing.T) {
	panel := NewPanel([]Button{
		{Name: "grande", Action: ActionClear, Rect: image.Rect(0, 0, 200, 200)},
		{Name: "chico", Action: ActionSave, Rect: image.Rect(50, 50, 100, 100)},
	})

	b, ok := panel.HitTest(image.Pt(60, 60))
	assert.True(t, ok)
	assert.Equal(t, "chico", b.Name)

	b, ok = panel.HitTest(image.Pt(150, 150))
	assert.True(t, ok)
	assert.Equal(t, "grande", b.Name)
}

func TestHitTestTieGoesToDeclarationOrder(t *testing.T) {
	panel := NewPanel([]Button{
		{Name: "primero", Action: ActionSave, Rect: image.Rect(0, 0, 100, 100)},
		{Name: "segundo", Action: ActionExit, Rect: image.Rect(0, 0, 100, 100)},
	})

	b, ok := panel.HitTest(image.Pt(10, 10))
	assert.True(t, ok)
	assert.Equal(t, "primero", b.Name)
}

func TestPanelFromConfigIncludesPalette(t *testing.T) {
	panel := PanelFromConfig(configWithPalette())

	var colors []string
	for _, b := range panel.Buttons() {
		if b.Action == ActionColor {
			colors = append(colors, b.Arg)
		}
	}
	// Palette buttons come out sorted by name.
	assert.Equal(t, []string{"rojo", "verde"}, colors)
}
