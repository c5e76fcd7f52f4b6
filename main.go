package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"pdfinsight/features/job"
	"pdfinsight/internal/adapter/gemini"
	"pdfinsight/internal/adapter/mistral"
	"pdfinsight/internal/app"
	"pdfinsight/internal/config"
	"pdfinsight/internal/logger"
)

func main() {
	// Structured logger with correlation id propagation
	handler := logger.NewContextHandler(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(slog.New(handler))

	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Optional infrastructure (Postgres store, NSQ events)
	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer deps.Close()

	// 3. External capability adapters
	ocrClient := mistral.NewClient(cfg.MistralAPIKey, cfg.OCRModel)
	if cfg.MistralBaseURL != "" {
		ocrClient.SetBaseURL(cfg.MistralBaseURL)
	}

	gen, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		slog.Error("failed to create gemini client", "error", err)
		os.Exit(1)
	}
	defer gen.Close()

	// A nil producer must stay a nil interface, publishing is skipped then.
	var pub job.EventPublisher
	if deps.NSQProducer != nil {
		pub = deps.NSQProducer
	}

	// 4. Wire the application
	a, err := app.New(cfg, deps.Store, ocrClient, gen, pub)
	if err != nil {
		slog.Error("failed to build app", "error", err)
		os.Exit(1)
	}

	// 5. Serve
	if err := a.Run(ctx); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
