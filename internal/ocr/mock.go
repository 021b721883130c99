package ocr

import "sync"

// MockRecognizer returns scripted results, for tests and development
// without tesseract installed.
type MockRecognizer struct {
	mu      sync.Mutex
	results []Result
	err     error
	calls   []string
}

// NewMockRecognizer creates a recognizer that always returns the given
// results.
func NewMockRecognizer(results []Result, err error) *MockRecognizer {
	return &MockRecognizer{results: results, err: err}
}

func (m *MockRecognizer) Recognize(imagePath string) ([]Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, imagePath)
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

// Calls returns the image paths recognized so far.
func (m *MockRecognizer) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}
