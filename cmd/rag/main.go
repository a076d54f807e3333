package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"rag/internal/app"
	"rag/internal/config"
	"rag/internal/domain"
	"rag/internal/loader"
	"rag/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/rag/config.yaml if not provided)")
	flag.Parse()
	inputs := flag.Args()
	if len(inputs) == 0 {
		fmt.Println("Usage: rag [--config=config.yaml] file1.txt [file2.pdf ...]")
		os.Exit(1)
	}

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

	var docs []domain.Document
	for _, path := range inputs {
		loaded, err := loader.ForPath(path).Load(ctx)
		if err != nil {
			log.Fatalf("failed to load %s: %v", path, err)
		}
		docs = append(docs, loaded...)
	}

	report, err := pipeline.Ingest(ctx, docs)
	if err != nil {
		log.Fatalf("failed to index documents: %v", err)
	}

	summary := fmt.Sprintf("%d documents, %d segments indexed", report.Documents, report.Segments)
	if report.Summary != "" {
		summary += " | " + report.Summary
	}

	p := tea.NewProgram(tui.New(pipeline, summary), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("tui error: %v", err)
	}
}
