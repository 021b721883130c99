package canvas

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	sessionExt     = ".session"
	autosavePrefix = "autosave_"
	maxAutosaves   = 5
)

// sessionData is the serialized session bundle. The raster travels as PNG
// bytes so the bundle stays self-contained and compact.
type sessionData struct {
	PNG          []byte
	Strokes      []Stroke
	Cursor       int
	Color        RGB
	LineWidth    int
	EraserRadius int
	Timestamp    time.Time
}

// SessionInfo describes one persisted session file.
type SessionInfo struct {
	Name      string
	Path      string
	Timestamp time.Time
	Autosave  bool
}

// SaveSession persists the full board state. An empty name generates a
// timestamped one. Returns the path written, or "" on failure.
func (b *Board) SaveSession(name string) string {
	if name == "" {
		name = fmt.Sprintf("sesion_%s", time.Now().Format("20060102_150405"))
	}
	if !strings.HasSuffix(strings.ToLower(name), sessionExt) {
		name += sessionExt
	}

	path := filepath.Join(b.sessionsDir, name)
	if err := b.writeSession(path); err != nil {
		b.logger.Error("failed to save session", zap.String("path", path), zap.Error(err))
		return ""
	}

	b.currentSession = name
	b.logger.Info("session saved", zap.String("path", path))
	return path
}

func (b *Board) writeSession(path string) error {
	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, b.dc.Image()); err != nil {
		return fmt.Errorf("encode raster: %w", err)
	}

	data := sessionData{
		PNG:          pngBuf.Bytes(),
		Strokes:      b.strokes,
		Cursor:       b.cursor,
		Color:        b.color,
		LineWidth:    b.lineWidth,
		EraserRadius: b.eraserRadius,
		Timestamp:    time.Now(),
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(data); err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// LoadSession replaces the in-memory state with a persisted session.
// On any failure the prior state is left untouched.
func (b *Board) LoadSession(path string) error {
	if _, err := os.Stat(path); err != nil {
		// Bare names resolve against the sessions directory.
		alt := filepath.Join(b.sessionsDir, path)
		if _, err2 := os.Stat(alt); err2 != nil {
			return fmt.Errorf("session not found: %s", path)
		}
		path = alt
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read session %s: %w", path, err)
	}

	var data sessionData
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&data); err != nil {
		return fmt.Errorf("decode session %s: %w", path, err)
	}

	img, err := png.Decode(bytes.NewReader(data.PNG))
	if err != nil {
		return fmt.Errorf("decode session raster: %w", err)
	}
	if data.Cursor < -1 || data.Cursor > len(data.Strokes)-1 {
		return fmt.Errorf("session %s: cursor %d out of range", path, data.Cursor)
	}

	// Fully decoded; now it is safe to swap state.
	b.dc = b.blankContext()
	b.dc.DrawImage(img, 0, 0)
	b.strokes = data.Strokes
	b.cursor = data.Cursor
	b.color = data.Color
	if data.LineWidth > 0 {
		b.lineWidth = data.LineWidth
	}
	if data.EraserRadius > 0 {
		b.eraserRadius = data.EraserRadius
	}
	b.drawing = false
	b.currentSession = filepath.Base(path)

	b.logger.Info("session loaded", zap.String("path", path))
	return nil
}

// MaybeAutosave writes an autosave session if the configured interval has
// elapsed, pruning old autosaves to the newest five.
func (b *Board) MaybeAutosave(now time.Time) {
	if b.autosaveInterval <= 0 || now.Sub(b.lastAutosave) < b.autosaveInterval {
		return
	}
	b.lastAutosave = now

	name := fmt.Sprintf("%s%s%s", autosavePrefix, now.Format("20060102_150405"), sessionExt)
	path := filepath.Join(b.sessionsDir, name)
	if err := b.writeSession(path); err != nil {
		b.logger.Error("autosave failed", zap.Error(err))
		return
	}
	b.logger.Info("session autosaved", zap.String("path", path))
	b.pruneAutosaves()
}

func (b *Board) pruneAutosaves() {
	infos := b.ListSessions()

	var autosaves []SessionInfo
	for _, info := range infos {
		if info.Autosave {
			autosaves = append(autosaves, info)
		}
	}
	// ListSessions is newest-first; everything past the cap goes.
	for i := maxAutosaves; i < len(autosaves); i++ {
		if err := os.Remove(autosaves[i].Path); err != nil {
			b.logger.Warn("failed to prune autosave", zap.String("path", autosaves[i].Path), zap.Error(err))
		}
	}
}

// ListSessions returns all persisted sessions, newest first. Files that fail
// to decode are still listed, with zero metadata.
func (b *Board) ListSessions() []SessionInfo {
	entries, err := os.ReadDir(b.sessionsDir)
	if err != nil {
		b.logger.Error("failed to list sessions", zap.String("dir", b.sessionsDir), zap.Error(err))
		return nil
	}

	var infos []SessionInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), sessionExt) {
			continue
		}
		info := SessionInfo{
			Name:     entry.Name(),
			Path:     filepath.Join(b.sessionsDir, entry.Name()),
			Autosave: strings.HasPrefix(entry.Name(), autosavePrefix),
		}
		if raw, err := os.ReadFile(info.Path); err == nil {
			var data sessionData
			if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&data); err == nil {
				info.Timestamp = data.Timestamp
			}
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Timestamp.After(infos[j].Timestamp)
	})
	return infos
}

// SaveRaster flattens the canvas to a PNG file, independent of session
// persistence. Returns the path written, or "" on failure.
func (b *Board) SaveRaster(name string) string {
	if name == "" {
		name = "dibujo.png"
	}
	if !strings.HasSuffix(strings.ToLower(name), ".png") {
		name += ".png"
	}

	f, err := os.Create(name)
	if err != nil {
		b.logger.Error("failed to save raster", zap.String("path", name), zap.Error(err))
		return ""
	}
	defer f.Close()

	if err := png.Encode(f, b.dc.Image()); err != nil {
		b.logger.Error("failed to encode raster", zap.String("path", name), zap.Error(err))
		return ""
	}
	b.logger.Info("raster saved", zap.String("path", name))
	return name
}

// PixelAt returns the canvas pixel color at (x, y). Used by tests to verify
// the reconstruct invariant.
func (b *Board) PixelAt(x, y int) RGB {
	img := b.dc.Image()
	r, g, bl, _ := img.At(x, y).RGBA()
	return RGB{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(bl >> 8)}
}

// Pixels returns the raw RGBA bytes of the canvas for bit-exact comparison.
func (b *Board) Pixels() []byte {
	rgba, ok := b.dc.Image().(*image.RGBA)
	if !ok {
		return b.Snapshot().Pix
	}
	out := make([]byte, len(rgba.Pix))
	copy(out, rgba.Pix)
	return out
}
