// Package calib calibrates per-user gesture thresholds from guided samples.
package calib

import (
	"math"

	"github.com/mirantes/lienzo/internal/detector"
)

func dist(a, b detector.Point3D) float64 {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

var fingerTips = [5]int{
	detector.ThumbTip, detector.IndexTip, detector.MiddleTip,
	detector.RingTip, detector.PinkyTip,
}

// HandOpenness measures the average distance between adjacent fingertips.
// An open palm yields larger values.
func HandOpenness(h *detector.HandLandmarks) float64 {
	var sum float64
	for i := 0; i < len(fingerTips)-1; i++ {
		sum += dist(h.Points[fingerTips[i]], h.Points[fingerTips[i+1]])
	}
	return sum / float64(len(fingerTips)-1)
}

// FistClosure measures the average fingertip distance from the palm center.
// A closed fist yields smaller values.
func FistClosure(h *detector.HandLandmarks) float64 {
	wrist := h.Points[detector.Wrist]
	middleBase := h.Points[detector.MiddleMCP]
	center := detector.Point3D{
		X: (wrist.X + middleBase.X) / 2,
		Y: (wrist.Y + middleBase.Y) / 2,
	}

	var sum float64
	for _, tip := range fingerTips {
		sum += dist(detector.Point3D{X: h.Points[tip].X, Y: h.Points[tip].Y}, center)
	}
	return sum / float64(len(fingerTips))
}

// IndexExtension relates the direct tip-to-base distance of the index finger
// to the sum of its segment lengths. A straight finger approaches 1.
func IndexExtension(h *detector.HandLandmarks) float64 {
	tip := h.Points[detector.IndexTip]
	dip := h.Points[detector.IndexDIP]
	pip := h.Points[detector.IndexPIP]
	mcp := h.Points[detector.IndexMCP]

	segments := dist(tip, dip) + dist(dip, pip) + dist(pip, mcp)
	if segments == 0 {
		return 0
	}
	return dist(tip, mcp) / segments
}

// PinchDistance measures the gap between thumb and index fingertips.
func PinchDistance(h *detector.HandLandmarks) float64 {
	return dist(h.Points[detector.ThumbTip], h.Points[detector.IndexTip])
}
