// Package ocr recognizes handwritten or printed text in saved drawings.
package ocr

import (
	"image"
	"strings"
)

// MinConfidence is the threshold below which recognized fragments are
// discarded when assembling text.
const MinConfidence = 0.5

// Result is one recognized text fragment.
type Result struct {
	BBox       image.Rectangle
	Text       string
	Confidence float64
}

// Recognizer extracts text from an image file.
type Recognizer interface {
	Recognize(imagePath string) ([]Result, error)
}

// JoinText concatenates confident fragments in detection order.
func JoinText(results []Result) string {
	var parts []string
	for _, r := range results {
		if r.Confidence > MinConfidence && strings.TrimSpace(r.Text) != "" {
			parts = append(parts, strings.TrimSpace(r.Text))
		}
	}
	return strings.Join(parts, " ")
}
