package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/mirantes/lienzo/internal/app"
	"github.com/mirantes/lienzo/internal/calib"
	"github.com/mirantes/lienzo/internal/config"
	"github.com/mirantes/lienzo/internal/logging"
	"github.com/mirantes/lienzo/internal/ocr"
	"github.com/mirantes/lienzo/internal/robot"
	"github.com/mirantes/lienzo/internal/store"
	"github.com/mirantes/lienzo/internal/tray"
	"github.com/mirantes/lienzo/internal/voice"
)

func main() {
	configPath := flag.String("config", "", "path to the JSON configuration file")
	noTray := flag.Bool("no-tray", false, "run without the system tray")
	noRobot := flag.Bool("no-robot", false, "run without the robotic hand")
	flag.Parse()

	fmt.Println("Lienzo - Interactive Drawing Kiosk")

	cfg, err := config.Load(*configPath)
	if err != nil {
		// Defaults are still usable; report and keep going.
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		OutputPaths: []string{"stdout"},
	})
	if err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logger.Sync()

	dataDir, err := dataDirectory()
	if err != nil {
		logger.Fatal("failed to prepare data directory", zap.Error(err))
	}

	db, err := store.New(filepath.Join(dataDir, "lienzo.db"))
	if err != nil {
		logger.Fatal("failed to initialize store", zap.Error(err))
	}

	voiceCfg, err := voice.LoadConfig(filepath.Join(dataDir, "voz.json"))
	if err != nil {
		logger.Warn("voice configuration reset to defaults", zap.Error(err))
	}
	engine := voice.NewEngine(voiceCfg, logger.Named("voice"))

	recognizer, err := ocr.NewTesseractRecognizer(cfg.OCR.Languages,
		time.Duration(cfg.OCR.TimeoutSec)*time.Second, logger.Named("ocr"))
	opts := app.Options{
		Voice:      engine,
		Store:      db,
		Calibrator: calib.New(filepath.Join(dataDir, "calibracion.json"), logger.Named("calib")),
	}
	if err != nil {
		logger.Warn("text recognition disabled", zap.Error(err))
	} else {
		opts.Recognizer = recognizer
	}

	if !*noRobot {
		robotCfg := robot.Config{
			Port:        cfg.Robot.Port,
			BaudRate:    cfg.Robot.BaudRate,
			Timeout:     time.Duration(cfg.Robot.TimeoutSec) * time.Second,
			Identifiers: cfg.Robot.Identifiers,
		}
		opts.Hand = robot.NewHand(robotCfg, logger.Named("robot"))
	}

	kiosk, err := app.New(cfg, logger, opts)
	if err != nil {
		logger.Fatal("failed to build application", zap.Error(err))
	}

	if *noTray {
		if err := kiosk.Run(); err != nil {
			logger.Fatal("kiosk failed", zap.Error(err))
		}
		kiosk.Shutdown()
		return
	}

	// The tray owns the process lifetime; the frame loop runs beside it.
	t := tray.New()
	t.OnToggle(kiosk.SetEnabled)
	t.OnSave(kiosk.SaveNow)
	t.OnQuit(kiosk.Stop)

	go func() {
		if err := kiosk.Run(); err != nil {
			logger.Error("kiosk failed", zap.Error(err))
		}
		kiosk.Shutdown()
		t.Quit()
	}()

	t.Run()
}

// dataDirectory ensures ~/.lienzo exists and returns its path.
func dataDirectory() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(homeDir, ".lienzo")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}
