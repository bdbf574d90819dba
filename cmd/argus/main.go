package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/argussec/argus/internal/config"
	"github.com/argussec/argus/internal/database"
	"github.com/argussec/argus/internal/gatekeeper"
	"github.com/argussec/argus/internal/logger"
	"github.com/argussec/argus/internal/notify"
	"github.com/argussec/argus/internal/server"
	"github.com/argussec/argus/internal/version"
)

func main() {
	// Setup logging with rotation
	logDir := getEnv("ARGUS_LOG_DIR", filepath.Join("data", "logs"))
	_ = os.MkdirAll(logDir, 0755)

	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "argus.log"),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}

	// Log to both stdout and file
	mw := io.MultiWriter(os.Stdout, rotator)
	log.SetOutput(mw)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger.Init(cfg.Environment == "development", mw)

	// Handle CLI commands
	if len(os.Args) > 1 && os.Args[1] == "hash-token" {
		if len(os.Args) != 3 {
			log.Fatalf("Usage: %s hash-token <token>", os.Args[0])
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(os.Args[2]), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("hash token: %v", err)
		}
		os.Stdout.WriteString(string(hash) + "\n")
		return
	}

	log.Printf("starting %s version %s", version.Name, version.Full())

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}

	gk := gatekeeper.New(cfg.Gatekeeper, gatekeeper.Options{
		DB:       db,
		Notifier: notify.NewShoutrrrNotifier(cfg.AlertURLs),
	})

	srv, err := server.New(db, cfg, gk)
	if err != nil {
		log.Fatalf("build server: %v", err)
	}

	gk.Start()
	defer gk.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("listening on :%s", cfg.HTTPPort)
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
	log.Printf("shutdown complete")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
