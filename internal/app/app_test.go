package app

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirantes/lienzo/internal/capture"
	"github.com/mirantes/lienzo/internal/config"
	"github.com/mirantes/lienzo/internal/detector"
	"github.com/mirantes/lienzo/internal/gesture"
	"github.com/mirantes/lienzo/internal/ocr"
	"github.com/mirantes/lienzo/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Drawing.SessionsDir = t.TempDir()
	cfg.Drawing.AutosaveInterval = 0
	cfg.OCR.TextLog = filepath.Join(t.TempDir(), "texto.txt")
	cfg.Server.Enabled = false
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config, opts Options) *App {
	t.Helper()
	if opts.Camera == nil {
		opts.Camera = capture.NewMockCamera(nil, false)
	}
	if opts.Detector == nil {
		opts.Detector = detector.NewMockDetector(nil, false)
	}
	a, err := New(cfg, nil, opts)
	require.NoError(t, err)
	return a
}

func TestNewBuildsCollaborators(t *testing.T) {
	cfg := testConfig(t)
	a := newTestApp(t, cfg, Options{})

	require.NotNil(t, a.Board())
	assert.True(t, a.Enabled())

	st := a.State()
	assert.Equal(t, "none", st.Mode)
	assert.Equal(t, "verde", st.Color)
	assert.Equal(t, 0, st.Strokes)
	assert.Equal(t, -1, st.Cursor)
	assert.False(t, st.RobotConnected)
}

func TestSetEnabledToggles(t *testing.T) {
	a := newTestApp(t, testConfig(t), Options{})

	a.SetEnabled(false)
	assert.False(t, a.Enabled())
	a.SetEnabled(true)
	assert.True(t, a.Enabled())
}

func TestBoardSurfaceAdaptsPoints(t *testing.T) {
	a := newTestApp(t, testConfig(t), Options{})
	s := boardSurface{a.Board()}

	s.DrawAt(image.Pt(100, 100))
	s.DrawAt(image.Pt(120, 100))
	s.EndStroke()

	assert.Equal(t, 1, a.Board().HistoryLen())
	assert.False(t, a.Board().Drawing())
}

func TestHandleButtonClearResetsBoard(t *testing.T) {
	a := newTestApp(t, testConfig(t), Options{})

	a.Board().DrawAt(50, 200)
	a.Board().DrawAt(60, 200)
	a.Board().EndStroke()
	require.Equal(t, 1, a.Board().HistoryLen())

	a.handleButton(gesture.Button{Name: "Limpiar", Action: gesture.ActionClear})
	assert.Equal(t, 0, a.Board().HistoryLen())
}

func TestHandleButtonExitStopsLoop(t *testing.T) {
	a := newTestApp(t, testConfig(t), Options{})
	a.mu.Lock()
	a.running = true
	a.mu.Unlock()

	a.handleButton(gesture.Button{Name: "Salir", Action: gesture.ActionExit})
	assert.False(t, a.isRunning())
}

func TestSetColorUpdatesBoardAndState(t *testing.T) {
	a := newTestApp(t, testConfig(t), Options{})

	a.handleButton(gesture.Button{Name: "rojo", Action: gesture.ActionColor, Arg: "rojo"})
	assert.Equal(t, "rojo", a.State().Color)

	// Unknown colors are rejected and the current one retained.
	a.setColor("morado")
	assert.Equal(t, "rojo", a.State().Color)
}

func TestSaveSessionWritesBundleAndRaster(t *testing.T) {
	cfg := testConfig(t)
	a := newTestApp(t, cfg, Options{})

	a.Board().DrawAt(100, 200)
	a.Board().DrawAt(150, 200)
	a.Board().EndStroke()

	a.saveSession("prueba")
	a.jobs.Wait()

	_, err := os.Stat(filepath.Join(cfg.Drawing.SessionsDir, "prueba.session"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(cfg.Drawing.SessionsDir, "prueba.png"))
	assert.NoError(t, err)
	assert.Equal(t, "prueba.session", a.State().Session)
}

func TestSaveSessionRunsRecognition(t *testing.T) {
	cfg := testConfig(t)
	rec := ocr.NewMockRecognizer([]ocr.Result{
		{Text: "hola", Confidence: 0.92},
		{Text: "mundo", Confidence: 0.88},
	}, nil)

	dbPath := filepath.Join(t.TempDir(), "lienzo.db")
	db, err := store.New(dbPath)
	require.NoError(t, err)

	a := newTestApp(t, cfg, Options{Recognizer: rec, Store: db})
	a.Board().DrawAt(100, 200)
	a.Board().EndStroke()

	a.saveSession("texto")
	a.jobs.Wait()

	require.Len(t, rec.Calls(), 1)
	assert.Equal(t, filepath.Join(cfg.Drawing.SessionsDir, "texto.png"), rec.Calls()[0])
	assert.Equal(t, "hola mundo", a.State().LastTranscript)

	tr, err := db.Transcripts().Latest()
	require.NoError(t, err)
	assert.Equal(t, "hola mundo", tr.Text)
	assert.InDelta(t, 0.92, tr.Confidence, 1e-9)

	data, err := os.ReadFile(cfg.OCR.TextLog)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hola mundo")

	sessions, err := db.Sessions().List()
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "texto.session", sessions[0].Name)

	require.NoError(t, db.Close())
}

func TestRecognitionSkipsBlankCanvas(t *testing.T) {
	cfg := testConfig(t)
	rec := ocr.NewMockRecognizer(nil, nil)
	a := newTestApp(t, cfg, Options{Recognizer: rec})

	a.saveSession("vacio")
	a.jobs.Wait()

	require.Len(t, rec.Calls(), 1)
	assert.Empty(t, a.State().LastTranscript)
	_, err := os.Stat(cfg.OCR.TextLog)
	assert.True(t, os.IsNotExist(err))
}

func TestStateReadsPublishedSnapshotOnly(t *testing.T) {
	a := newTestApp(t, testConfig(t), Options{})

	// Board mutations are invisible until the loop publishes them.
	a.Board().DrawAt(100, 200)
	a.Board().DrawAt(110, 200)
	a.Board().EndStroke()
	assert.Equal(t, 0, a.State().Strokes)
	assert.Equal(t, -1, a.State().Cursor)

	a.syncState()
	assert.Equal(t, 1, a.State().Strokes)
	assert.Equal(t, 0, a.State().Cursor)
}

func TestSaveNowDefersToLoop(t *testing.T) {
	a := newTestApp(t, testConfig(t), Options{})

	assert.False(t, a.takeSaveRequest())
	a.SaveNow()
	assert.True(t, a.takeSaveRequest())
	assert.False(t, a.takeSaveRequest())
}

func TestPaletteName(t *testing.T) {
	palette := map[string][3]uint8{
		"verde": {0, 255, 0},
		"rojo":  {255, 0, 0},
	}
	assert.Equal(t, "verde", paletteName(palette, [3]uint8{0, 255, 0}))
	assert.Equal(t, "", paletteName(palette, [3]uint8{1, 2, 3}))
}

func TestHandleKeyUndoRedo(t *testing.T) {
	a := newTestApp(t, testConfig(t), Options{})

	a.Board().DrawAt(100, 200)
	a.Board().DrawAt(110, 200)
	a.Board().EndStroke()
	require.Equal(t, 0, a.Board().Cursor())

	a.handleKey('z')
	assert.Equal(t, -1, a.Board().Cursor())
	a.handleKey('y')
	assert.Equal(t, 0, a.Board().Cursor())
}
