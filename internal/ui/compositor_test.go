package ui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mirantes/lienzo/internal/gesture"
)

func TestModeLabel(t *testing.T) {
	assert.Equal(t, "dibujo", modeLabel(gesture.ModeDraw))
	assert.Equal(t, "borrado", modeLabel(gesture.ModeErase))
	assert.Equal(t, "ninguno", modeLabel(gesture.ModeNone))
}

func TestShowMessageExpires(t *testing.T) {
	c := NewCompositor(gesture.NewPanel(nil), nil)

	clock := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	c.ShowMessage("Dibujo guardado", 3*time.Second)
	assert.Equal(t, "Dibujo guardado", c.currentMessage())

	clock = clock.Add(2 * time.Second)
	assert.Equal(t, "Dibujo guardado", c.currentMessage())

	clock = clock.Add(2 * time.Second)
	assert.Equal(t, "", c.currentMessage())
}
