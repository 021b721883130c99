package calib

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/mirantes/lienzo/internal/detector"
)

// Gesture identifies a calibrated gesture.
type Gesture string

const (
	OpenPalm  Gesture = "mano_abierta"
	Fist      Gesture = "puno_cerrado"
	IndexOnly Gesture = "indice_extendido"
	Pinch     Gesture = "pinza"
)

const (
	defaultThreshold   = 0.7
	defaultSensitivity = 0.7
	// samples recorded in the first second of a step are discarded while
	// the user settles into the pose
	settleTime   = time.Second
	stepDuration = 3 * time.Second
)

var steps = []struct {
	gesture     Gesture
	instruction string
}{
	{OpenPalm, "Extienda todos los dedos y muestre la palma de la mano"},
	{Fist, "Cierre el puño completamente"},
	{IndexOnly, "Extienda solo el dedo índice"},
	{Pinch, "Forme un gesto de pinza (pulgar e índice)"},
}

// Data is the persisted calibration result.
type Data struct {
	Sensitivity float64             `json:"sensibilidad_gestos"`
	Thresholds  map[Gesture]float64 `json:"umbrales_gestos"`
}

// Calibrator runs the guided calibration flow and evaluates gestures
// against the resulting thresholds.
type Calibrator struct {
	logger *zap.Logger
	path   string

	sensitivity float64
	thresholds  map[Gesture]float64

	calibrating bool
	step        int
	stepStart   time.Time
	samples     map[Gesture][]float64

	now func() time.Time
}

// New creates a calibrator persisting to path, loading any saved data.
func New(path string, logger *zap.Logger) *Calibrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Calibrator{
		logger:      logger,
		path:        path,
		sensitivity: defaultSensitivity,
		thresholds:  defaultThresholds(),
		now:         time.Now,
	}
	if err := c.load(); err != nil {
		logger.Warn("calibration not loaded, using defaults", zap.Error(err))
	}
	return c
}

func defaultThresholds() map[Gesture]float64 {
	return map[Gesture]float64{
		OpenPalm:  defaultThreshold,
		Fist:      defaultThreshold,
		IndexOnly: defaultThreshold,
		Pinch:     defaultThreshold,
	}
}

// Start begins the guided flow at the first step.
func (c *Calibrator) Start() {
	c.calibrating = true
	c.step = 0
	c.stepStart = c.now()
	c.samples = make(map[Gesture][]float64)
	c.logger.Info("calibration started")
}

// Calibrating reports whether the guided flow is active.
func (c *Calibrator) Calibrating() bool { return c.calibrating }

// Instruction returns the prompt for the current step.
func (c *Calibrator) Instruction() string {
	if !c.calibrating || c.step >= len(steps) {
		return ""
	}
	return steps[c.step].instruction
}

// StepProgress returns how much of the current step's hold time has elapsed,
// in [0, 1].
func (c *Calibrator) StepProgress() float64 {
	if !c.calibrating {
		return 0
	}
	p := float64(c.now().Sub(c.stepStart)) / float64(stepDuration)
	if p > 1 {
		p = 1
	}
	return p
}

// StepDone reports whether the current step's hold time has elapsed.
func (c *Calibrator) StepDone() bool {
	return c.calibrating && c.now().Sub(c.stepStart) >= stepDuration
}

// NextStep advances the flow, finalizing thresholds after the last step.
// It returns false when calibration is complete.
func (c *Calibrator) NextStep() bool {
	if !c.calibrating {
		return false
	}
	c.step++
	if c.step >= len(steps) {
		c.finalize()
		return false
	}
	c.stepStart = c.now()
	return true
}

// Cancel aborts the flow, discarding collected samples.
func (c *Calibrator) Cancel() {
	c.calibrating = false
	c.samples = nil
}

// Record registers a metric sample for the current step when the observed
// pose matches what the step asks for.
func (c *Calibrator) Record(h *detector.HandLandmarks, raised [detector.NumFingers]bool) {
	if !c.calibrating || c.step >= len(steps) || h == nil {
		return
	}
	if c.now().Sub(c.stepStart) < settleTime {
		return
	}

	gesture := steps[c.step].gesture
	switch gesture {
	case OpenPalm:
		if countRaised(raised) >= 4 {
			c.samples[gesture] = append(c.samples[gesture], HandOpenness(h))
		}
	case Fist:
		if countRaised(raised) <= 1 {
			c.samples[gesture] = append(c.samples[gesture], FistClosure(h))
		}
	case IndexOnly:
		if raised[detector.Index] && !raised[detector.Middle] &&
			!raised[detector.Ring] && !raised[detector.Pinky] {
			c.samples[gesture] = append(c.samples[gesture], IndexExtension(h))
		}
	case Pinch:
		c.samples[gesture] = append(c.samples[gesture], PinchDistance(h))
	}
}

// finalize turns collected samples into thresholds and persists them.
// Samples more than two standard deviations from the mean are discarded
// before averaging.
func (c *Calibrator) finalize() {
	for gesture, data := range c.samples {
		if len(data) == 0 {
			continue
		}
		c.thresholds[gesture] = threshold(data, c.sensitivity)
	}
	c.calibrating = false
	c.samples = nil

	if err := c.Save(); err != nil {
		c.logger.Error("saving calibration", zap.Error(err))
		return
	}
	c.logger.Info("calibration finished", zap.Int("gestures", len(c.thresholds)))
}

func threshold(data []float64, sensitivity float64) float64 {
	mean, std := stat.MeanStdDev(data, nil)
	if len(data) >= 3 && std > 0 {
		var trimmed []float64
		for _, v := range data {
			if v >= mean-2*std && v <= mean+2*std {
				trimmed = append(trimmed, v)
			}
		}
		if len(trimmed) > 0 {
			mean = stat.Mean(trimmed, nil)
		}
	}
	return mean * sensitivity
}

// Verify returns how strongly the hand matches a calibrated gesture, as the
// metric over its threshold. Values at or above 1 count as a match.
func (c *Calibrator) Verify(h *detector.HandLandmarks, gesture Gesture) float64 {
	if h == nil {
		return 0
	}
	th := c.thresholds[gesture]
	if th <= 0 {
		return 0
	}
	switch gesture {
	case OpenPalm:
		return HandOpenness(h) / th
	case Fist:
		return FistClosure(h) / th
	case IndexOnly:
		return IndexExtension(h) / th
	case Pinch:
		return PinchDistance(h) / th
	}
	return 0
}

// Threshold returns the calibrated threshold for a gesture.
func (c *Calibrator) Threshold(gesture Gesture) float64 {
	return c.thresholds[gesture]
}

// SetSensitivity adjusts the global gesture sensitivity. Values outside
// [0.1, 1.0] are rejected and the prior value retained.
func (c *Calibrator) SetSensitivity(v float64) bool {
	if v < 0.1 || v > 1.0 {
		c.logger.Warn("sensitivity out of range", zap.Float64("value", v))
		return false
	}
	c.sensitivity = v
	return true
}

// Sensitivity returns the current gesture sensitivity.
func (c *Calibrator) Sensitivity() float64 { return c.sensitivity }

// Save persists thresholds and sensitivity as JSON.
func (c *Calibrator) Save() error {
	data := Data{
		Sensitivity: c.sensitivity,
		Thresholds:  c.thresholds,
	}
	raw, err := json.MarshalIndent(data, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.path, raw, 0644)
}

func (c *Calibrator) load() error {
	raw, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("parse calibration %s: %w", c.path, err)
	}
	if data.Sensitivity >= 0.1 && data.Sensitivity <= 1.0 {
		c.sensitivity = data.Sensitivity
	}
	for gesture, th := range data.Thresholds {
		if th > 0 {
			c.thresholds[gesture] = th
		}
	}
	return nil
}

func countRaised(raised [detector.NumFingers]bool) int {
	n := 0
	for _, up := range raised {
		if up {
			n++
		}
	}
	return n
}
