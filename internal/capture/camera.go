// Package capture provides camera capture functionality using GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Default camera settings
const (
	DefaultWidth  = 640
	DefaultHeight = 480
)

// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
var ErrCameraNotOpen = errors.New("camera is not open")

// Camera defines the interface for camera capture implementations.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	IsOpen() bool
	DeviceID() int
}

// cameraImpl manages video capture from a camera device using GoCV.
type cameraImpl struct {
	deviceID   int
	fallbackID int
	activeID   int
	width      int
	height     int
	capture    *gocv.VideoCapture
	mu         sync.Mutex
	running    bool
}

// NewCamera creates a new Camera with a primary device ID and a fallback
// device tried when the primary fails to open.
func NewCamera(deviceID, fallbackID, width, height int) Camera {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	return &cameraImpl{
		deviceID:   deviceID,
		fallbackID: fallbackID,
		width:      width,
		height:     height,
	}
}

// Open opens the primary camera device, falling back to the secondary
// device when the primary is unavailable.
func (c *cameraImpl) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(c.deviceID)
	activeID := c.deviceID
	if err != nil && c.fallbackID != c.deviceID {
		capture, err = gocv.OpenVideoCapture(c.fallbackID)
		activeID = c.fallbackID
	}
	if err != nil {
		return fmt.Errorf("open camera %d: %w", c.deviceID, err)
	}

	// Set resolution for performance
	capture.Set(gocv.VideoCaptureFrameWidth, float64(c.width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(c.height))

	c.capture = capture
	c.activeID = activeID
	c.running = true

	return nil
}

// Close closes the camera and releases resources.
func (c *cameraImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		c.running = false
		return nil
	}

	err := c.capture.Close()
	c.capture = nil
	c.running = false

	return err
}

// ReadFrame reads a single frame from the camera.
// The caller is responsible for closing the returned Mat.
func (c *cameraImpl) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok {
		mat.Close()
		return nil, errors.New("failed to read frame from camera")
	}

	if mat.Empty() {
		mat.Close()
		return nil, errors.New("captured frame is empty")
	}

	return &mat, nil
}

// IsOpen returns true if the camera is currently open and running.
func (c *cameraImpl) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.running
}

// DeviceID returns the device the camera actually opened.
func (c *cameraImpl) DeviceID() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return c.activeID
	}
	return c.deviceID
}
