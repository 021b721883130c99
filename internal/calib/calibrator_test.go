package calib

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirantes/lienzo/internal/detector"
)

func newTestCalibrator(t *testing.T) (*Calibrator, *time.Time) {
	t.Helper()
	now := time.Unix(1000, 0)
	c := New(filepath.Join(t.TempDir(), "calibracion.json"), nil)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestMetricsOrdering(t *testing.T) {
	open := detector.OpenPalmLandmarks(0.5, 0.4)
	fist := detector.FistLandmarks(0.5, 0.4)

	// An open palm spreads the fingertips; a fist pulls them in.
	assert.Greater(t, HandOpenness(&open), HandOpenness(&fist))

	index := detector.IndexOnlyLandmarks(0.5, 0.4)
	assert.Greater(t, IndexExtension(&index), 0.9)
}

func TestGuidedFlowProducesThresholds(t *testing.T) {
	c, now := newTestCalibrator(t)

	c.Start()
	assert.True(t, c.Calibrating())
	assert.NotEmpty(t, c.Instruction())

	poses := []struct {
		hand detector.HandLandmarks
	}{
		{detector.OpenPalmLandmarks(0.5, 0.4)},
		{detector.FistLandmarks(0.5, 0.4)},
		{detector.IndexOnlyLandmarks(0.5, 0.4)},
		{detector.IndexOnlyLandmarks(0.5, 0.4)}, // pinch step accepts any pose
	}

	for i := range poses {
		// Samples during the settle window are discarded.
		c.Record(&poses[i].hand, detector.RaisedFingers(&poses[i].hand))

		*now = now.Add(settleTime + 100*time.Millisecond)
		for j := 0; j < 5; j++ {
			c.Record(&poses[i].hand, detector.RaisedFingers(&poses[i].hand))
		}

		*now = now.Add(stepDuration)
		assert.True(t, c.StepDone())
		more := c.NextStep()
		assert.Equal(t, i < len(poses)-1, more)
	}

	assert.False(t, c.Calibrating())

	open := detector.OpenPalmLandmarks(0.5, 0.4)
	// The recorded pose scores at 1/sensitivity of its own threshold.
	assert.InDelta(t, 1/c.Sensitivity(), c.Verify(&open, OpenPalm), 0.01)
}

func TestCalibrationPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibracion.json")
	c := New(path, nil)
	c.thresholds[Fist] = 0.42
	c.SetSensitivity(0.9)
	require.NoError(t, c.Save())

	reloaded := New(path, nil)
	assert.InDelta(t, 0.42, reloaded.Threshold(Fist), 1e-9)
	assert.InDelta(t, 0.9, reloaded.Sensitivity(), 1e-9)
}

func TestSensitivityValidation(t *testing.T) {
	c, _ := newTestCalibrator(t)

	assert.True(t, c.SetSensitivity(0.5))
	assert.False(t, c.SetSensitivity(1.5))
	assert.False(t, c.SetSensitivity(0.05))
	assert.Equal(t, 0.5, c.Sensitivity())
}

func TestCancelDiscardsSamples(t *testing.T) {
	c, now := newTestCalibrator(t)
	c.Start()

	hand := detector.OpenPalmLandmarks(0.5, 0.4)
	*now = now.Add(2 * time.Second)
	c.Record(&hand, detector.RaisedFingers(&hand))

	c.Cancel()
	assert.False(t, c.Calibrating())
	// Thresholds stay at their defaults.
	assert.Equal(t, defaultThreshold, c.Threshold(OpenPalm))
}

func TestRecordRejectsMismatchedPose(t *testing.T) {
	c, now := newTestCalibrator(t)
	c.Start()
	*now = now.Add(2 * time.Second)

	// A fist during the open-palm step is not sampled.
	fist := detector.FistLandmarks(0.5, 0.4)
	c.Record(&fist, detector.RaisedFingers(&fist))
	assert.Empty(t, c.samples[OpenPalm])
}

func TestStepProgress(t *testing.T) {
	c, now := newTestCalibrator(t)
	c.Start()

	assert.Equal(t, 0.0, c.StepProgress())
	*now = now.Add(stepDuration / 2)
	assert.InDelta(t, 0.5, c.StepProgress(), 0.01)
	*now = now.Add(stepDuration)
	assert.Equal(t, 1.0, c.StepProgress())
}
