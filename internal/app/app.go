package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"pdfinsight/features/chat"
	"pdfinsight/features/job"
	"pdfinsight/features/stats"
	"pdfinsight/internal/config"
	"pdfinsight/internal/middleware"
	"pdfinsight/internal/pipeline"
	"pdfinsight/internal/ratelimit"
)

// Generator is the language-understanding capability shared by the
// pipeline stages and the chat aggregator.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type App struct {
	Handler    http.Handler
	JobManager *job.Manager

	port int
}

func New(
	cfg *config.Config,
	store job.Store,
	ocrClient pipeline.OCRClient,
	gen Generator,
	pub job.EventPublisher,
) (*App, error) {

	// Shared rate limiter: one bucket per capability kind, passed explicitly
	// to every stage.
	limiter := ratelimit.New(
		time.Duration(cfg.AcquireTimeoutSeconds)*time.Second,
		map[ratelimit.Kind]ratelimit.BucketConfig{
			ratelimit.KindOCR:      {PerMinute: cfg.OCRRatePerMinute, Burst: cfg.OCRBurst},
			ratelimit.KindLanguage: {PerMinute: cfg.LanguageRatePerMinute, Burst: cfg.LanguageBurst},
		},
	)

	callTimeout := time.Duration(cfg.CallTimeoutSeconds) * time.Second

	// Pipeline stages
	ocrStage := pipeline.NewOCRStage(ocrClient, limiter, cfg.MaxStageRetries, callTimeout)
	correctionStage := pipeline.NewCorrectionStage(gen, limiter, cfg.MaxStageRetries, callTimeout)
	chunkingStage := pipeline.NewChunkingStage(gen, limiter, cfg.MaxStageRetries, callTimeout)

	// Feature: Job
	jobManager := job.NewManager(store, ocrStage, correctionStage, chunkingStage, pub)
	jobHandler := job.NewHandler(jobManager, cfg.MaxUploadSizeMB<<20)

	// Feature: Chat
	chatLogger, err := chat.NewFileChatLogger(cfg.ChatLogPath)
	if err != nil {
		slog.Warn("failed to create chat logger, falling back to stdout", "error", err)
		chatLogger = chat.NewChatLogger(os.Stdout)
	}
	chatService := chat.NewService(jobManager, gen, limiter, cfg.ChatContextTokens, callTimeout, chatLogger)
	chatHandler := chat.NewHandler(chatService)

	// Feature: Stats
	statsHandler := stats.NewHandler(jobManager)

	// Middleware: CORS
	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	// Routes
	mux := http.NewServeMux()

	mux.Handle("POST /documents", middleware.CorrelationID(enableCORS(jobHandler.Process)))
	mux.Handle("GET /jobs/{id}", middleware.CorrelationID(enableCORS(jobHandler.GetStatus)))
	mux.Handle("POST /jobs/{id}/chat", middleware.CorrelationID(enableCORS(chatHandler.Reply)))

	mux.Handle("GET /stats", middleware.CorrelationID(enableCORS(statsHandler.GetStats)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return &App{
		Handler:    mux,
		JobManager: jobManager,
		port:       cfg.ServerPort,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.port),
		Handler: a.Handler,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
		// Let in-flight pipelines finish before the process exits.
		a.JobManager.Wait()
	}()

	slog.Info("server starting", "port", a.port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
