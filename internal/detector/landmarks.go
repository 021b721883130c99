// Package detector provides hand landmark detection for the kiosk.
package detector

import "image"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Finger indices in a raised-fingers vector, thumb through pinky.
const (
	Thumb = iota
	Index
	Middle
	Ring
	Pinky
	NumFingers
)

// Point3D represents a normalized landmark coordinate (0..1 in x and y).
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks represents the 21 hand landmarks of one detected hand.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// RaisedFingers classifies which fingers are extended. The thumb is judged by
// its tip passing the IP joint horizontally; the other fingers by the tip
// sitting above the PIP joint (image y grows downward).
func RaisedFingers(h *HandLandmarks) [NumFingers]bool {
	var raised [NumFingers]bool
	if h == nil {
		return raised
	}

	raised[Thumb] = h.Points[ThumbTip].X > h.Points[ThumbIP].X

	tips := [4]int{IndexTip, MiddleTip, RingTip, PinkyTip}
	pips := [4]int{IndexPIP, MiddlePIP, RingPIP, PinkyPIP}
	for i := 0; i < 4; i++ {
		raised[Index+i] = h.Points[tips[i]].Y < h.Points[pips[i]].Y
	}
	return raised
}

// AnyRaised reports whether any finger in the vector is extended.
// A closed fist is the all-false vector.
func AnyRaised(fingers [NumFingers]bool) bool {
	for _, up := range fingers {
		if up {
			return true
		}
	}
	return false
}

// FingertipPixel converts the index fingertip landmark to pixel coordinates
// for a frame of the given dimensions.
func FingertipPixel(h *HandLandmarks, width, height int) image.Point {
	return image.Point{
		X: int(h.Points[IndexTip].X * float64(width)),
		Y: int(h.Points[IndexTip].Y * float64(height)),
	}
}
