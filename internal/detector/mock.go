package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector implements Detector with scripted results, for tests and
// development without the Python service.
type MockDetector struct {
	mu      sync.Mutex
	results [][]HandLandmarks
	index   int
	loop    bool
	closed  bool
}

// NewMockDetector creates a detector that returns the given result sequence,
// one element per Detect call. With loop set, the sequence repeats.
func NewMockDetector(results [][]HandLandmarks, loop bool) *MockDetector {
	return &MockDetector{results: results, loop: loop}
}

// Detect returns the next scripted result. Past the end of a non-looping
// sequence it returns no hands.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.results) == 0 {
		return nil, nil
	}
	if m.index >= len(m.results) {
		if !m.loop {
			return nil, nil
		}
		m.index = 0
	}
	result := m.results[m.index]
	m.index++
	return result, nil
}

// Close marks the detector closed.
func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockDetector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// baseHand returns a hand positioned around (x, y) in normalized coordinates
// with every finger curled: all tips sit below their PIP joints and the thumb
// tip is left of its IP joint.
func baseHand(x, y float64) HandLandmarks {
	h := HandLandmarks{Handedness: "Right", Score: 0.95}

	h.Points[Wrist] = Point3D{X: x, Y: y + 0.20}

	h.Points[ThumbCMC] = Point3D{X: x - 0.04, Y: y + 0.16}
	h.Points[ThumbMCP] = Point3D{X: x - 0.06, Y: y + 0.12}
	h.Points[ThumbIP] = Point3D{X: x - 0.07, Y: y + 0.09}
	h.Points[ThumbTip] = Point3D{X: x - 0.09, Y: y + 0.07}

	fingers := []struct{ mcp, pip, dip, tip int }{
		{IndexMCP, IndexPIP, IndexDIP, IndexTip},
		{MiddleMCP, MiddlePIP, MiddleDIP, MiddleTip},
		{RingMCP, RingPIP, RingDIP, RingTip},
		{PinkyMCP, PinkyPIP, PinkyDIP, PinkyTip},
	}
	for i, f := range fingers {
		fx := x + float64(i-1)*0.03
		h.Points[f.mcp] = Point3D{X: fx, Y: y + 0.12}
		h.Points[f.pip] = Point3D{X: fx, Y: y + 0.08}
		h.Points[f.dip] = Point3D{X: fx, Y: y + 0.11}
		h.Points[f.tip] = Point3D{X: fx, Y: y + 0.14}
	}
	return h
}

func raiseFinger(h *HandLandmarks, pip, dip, tip int) {
	base := h.Points[pip]
	h.Points[dip] = Point3D{X: base.X, Y: base.Y - 0.04}
	h.Points[tip] = Point3D{X: base.X, Y: base.Y - 0.08}
}

// FistLandmarks returns a closed fist with the index tip at (x, y).
// Fingertips cluster tightly, as a real fist's do.
func FistLandmarks(x, y float64) HandLandmarks {
	h := baseHand(x, y)

	fingers := []struct{ pip, dip, tip int }{
		{IndexPIP, IndexDIP, IndexTip},
		{MiddlePIP, MiddleDIP, MiddleTip},
		{RingPIP, RingDIP, RingTip},
		{PinkyPIP, PinkyDIP, PinkyTip},
	}
	for i, f := range fingers {
		fx := x + float64(i)*0.015
		h.Points[f.pip] = Point3D{X: fx, Y: y - 0.06}
		h.Points[f.dip] = Point3D{X: fx, Y: y - 0.03}
		h.Points[f.tip] = Point3D{X: fx, Y: y}
	}
	h.Points[ThumbIP] = Point3D{X: x - 0.02, Y: y}
	h.Points[ThumbTip] = Point3D{X: x - 0.05, Y: y + 0.01}
	return h
}

// IndexOnlyLandmarks returns a hand with only the index finger extended,
// its tip at (x, y).
func IndexOnlyLandmarks(x, y float64) HandLandmarks {
	h := baseHand(x, y)
	raiseFinger(&h, IndexPIP, IndexDIP, IndexTip)
	h.Points[IndexTip] = Point3D{X: x, Y: y}
	h.Points[IndexPIP] = Point3D{X: x, Y: y + 0.08}
	h.Points[IndexDIP] = Point3D{X: x, Y: y + 0.04}
	return h
}

// IndexMiddleLandmarks returns a hand with index and middle fingers extended,
// the index tip at (x, y).
func IndexMiddleLandmarks(x, y float64) HandLandmarks {
	h := IndexOnlyLandmarks(x, y)
	raiseFinger(&h, MiddlePIP, MiddleDIP, MiddleTip)
	return h
}

// OpenPalmLandmarks returns a hand with all five fingers extended and
// spread, the index tip at (x, y).
func OpenPalmLandmarks(x, y float64) HandLandmarks {
	h := baseHand(x, y)

	fingers := []struct{ pip, dip, tip int }{
		{IndexPIP, IndexDIP, IndexTip},
		{MiddlePIP, MiddleDIP, MiddleTip},
		{RingPIP, RingDIP, RingTip},
		{PinkyPIP, PinkyDIP, PinkyTip},
	}
	for i, f := range fingers {
		fx := x + float64(i)*0.06
		h.Points[f.pip] = Point3D{X: fx, Y: y + 0.08}
		h.Points[f.dip] = Point3D{X: fx, Y: y + 0.04}
		h.Points[f.tip] = Point3D{X: fx, Y: y}
	}
	h.Points[ThumbTip] = Point3D{X: h.Points[ThumbIP].X + 0.06, Y: y + 0.06}
	return h
}
