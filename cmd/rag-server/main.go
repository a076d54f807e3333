package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"rag/internal/api"
	"rag/internal/app"
	"rag/internal/config"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/rag/config.yaml if not provided)")
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()
	pipeline, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to assemble pipeline: %v", err)
	}

	server := api.NewServer(cfg.Server.Addr, cfg.Server.UploadDir, pipeline)

	go func() {
		if err := server.Run(); err != nil {
			log.Fatalf("server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	if err := server.Stop(); err != nil {
		slog.Error("shutdown failed", "error", err)
	}
}
