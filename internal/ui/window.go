package ui

import "gocv.io/x/gocv"

// Window wraps a gocv display window.
type Window struct {
	win  *gocv.Window
	open bool
}

// NewWindow creates a named display window.
func NewWindow(title string) *Window {
	return &Window{win: gocv.NewWindow(title), open: true}
}

// Show displays the frame.
func (w *Window) Show(frame *gocv.Mat) {
	if w.open {
		w.win.IMShow(*frame)
	}
}

// WaitKey polls for a key press for the given milliseconds, returning the
// key code or -1.
func (w *Window) WaitKey(ms int) int {
	if !w.open {
		return -1
	}
	return w.win.WaitKey(ms)
}

// Close destroys the window. Safe to call twice.
func (w *Window) Close() error {
	if !w.open {
		return nil
	}
	w.open = false
	return w.win.Close()
}
