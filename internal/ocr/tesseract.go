package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// TesseractRecognizer runs the tesseract command line tool and parses its
// TSV output into word-level results.
type TesseractRecognizer struct {
	command   string
	languages []string
	timeout   time.Duration
	logger    *zap.Logger
}

// NewTesseractRecognizer creates a recognizer for the given languages
// ("spa", "eng"). The tesseract binary must be on PATH.
func NewTesseractRecognizer(languages []string, timeout time.Duration, logger *zap.Logger) (*TesseractRecognizer, error) {
	command, err := exec.LookPath("tesseract")
	if err != nil {
		return nil, fmt.Errorf("tesseract not found: %w", err)
	}
	if len(languages) == 0 {
		languages = []string{"spa"}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TesseractRecognizer{
		command:   command,
		languages: languages,
		timeout:   timeout,
		logger:    logger,
	}, nil
}

// Recognize runs tesseract on the image and returns word-level fragments.
func (r *TesseractRecognizer) Recognize(imagePath string) ([]Result, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	args := []string{imagePath, "stdout", "-l", strings.Join(r.languages, "+"), "tsv"}
	cmd := exec.CommandContext(ctx, r.command, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("tesseract timed out after %s", r.timeout)
		}
		return nil, fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	results := parseTSV(stdout.String())
	r.logger.Debug("text recognition finished",
		zap.String("image", imagePath), zap.Int("fragments", len(results)))
	return results, nil
}

// parseTSV extracts word rows from tesseract's TSV output. Confidence is
// normalized from 0..100 to 0..1; structural rows carry -1 and are skipped.
func parseTSV(output string) []Result {
	var results []Result
	lines := strings.Split(output, "\n")
	for i, line := range lines {
		if i == 0 || strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 12 {
			continue
		}

		conf, err := strconv.ParseFloat(fields[10], 64)
		if err != nil || conf < 0 {
			continue
		}
		text := strings.TrimSpace(fields[11])
		if text == "" {
			continue
		}

		left, _ := strconv.Atoi(fields[6])
		top, _ := strconv.Atoi(fields[7])
		width, _ := strconv.Atoi(fields[8])
		height, _ := strconv.Atoi(fields[9])

		results = append(results, Result{
			BBox:       image.Rect(left, top, left+width, top+height),
			Text:       text,
			Confidence: conf / 100,
		})
	}
	return results
}
