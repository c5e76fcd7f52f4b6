package job

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"pdfinsight/internal/config"
	"pdfinsight/internal/middleware"
	"pdfinsight/internal/pipeline"
)

type OCRRunner interface {
	Run(ctx context.Context, filename string, document []byte) ([]pipeline.PageText, error)
}

type Corrector interface {
	Run(ctx context.Context, pages []pipeline.PageText) ([]pipeline.PageText, error)
}

type Chunker interface {
	Run(ctx context.Context, pages []pipeline.PageText) ([]pipeline.Chunk, error)
}

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

// Manager owns the job lifecycle. Submit schedules pipeline execution
// without blocking the caller; GetStatus is a point-in-time snapshot safe
// to call concurrently with in-flight pipelines.
type Manager struct {
	store   Store
	ocr     OCRRunner
	correct Corrector
	chunk   Chunker
	pub     EventPublisher

	wg sync.WaitGroup
}

func NewManager(store Store, ocr OCRRunner, correct Corrector, chunk Chunker, pub EventPublisher) *Manager {
	return &Manager{
		store:   store,
		ocr:     ocr,
		correct: correct,
		chunk:   chunk,
		pub:     pub,
	}
}

// Submit validates the input, stores a queued job, and launches the
// pipeline in the background. The returned id is usable with GetStatus
// immediately.
func (m *Manager) Submit(ctx context.Context, filename string, document []byte) (string, error) {
	if len(document) == 0 {
		return "", ErrEmptyDocument
	}

	j := &Job{
		ID:        uuid.New().String(),
		Status:    StatusQueued,
		CreatedAt: time.Now().UTC(),
	}
	if err := m.store.Create(ctx, j); err != nil {
		return "", err
	}

	slog.InfoContext(ctx, "job queued", "job_id", j.ID, "filename", filename, "bytes", len(document))
	m.publishStatus(ctx, j.ID, StatusQueued, "")

	// The pipeline outlives the request; it runs on a background context
	// carrying only the correlation id.
	runCtx := middleware.WithCorrelationID(context.Background(), middleware.GetCorrelationID(ctx))
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.run(runCtx, j.ID, filename, document)
	}()

	return j.ID, nil
}

// GetStatus returns the job's current status and, once completed, its
// result. Unknown ids return ErrNotFound.
func (m *Manager) GetStatus(ctx context.Context, id string) (*Job, error) {
	return m.store.Get(ctx, id)
}

func (m *Manager) CountByStatus(ctx context.Context) (map[Status]int, error) {
	return m.store.CountByStatus(ctx)
}

// Wait blocks until all in-flight pipelines have finished. Used by
// shutdown and tests.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// run drives one job through the pipeline. Any stage failure moves the job
// to failed with a reason; a failed job never exposes a partial result.
func (m *Manager) run(ctx context.Context, id, filename string, document []byte) {
	// 1. OCR
	if err := m.advance(ctx, id, StatusProcessingOCR); err != nil {
		return
	}
	pages, err := m.ocr.Run(ctx, filename, document)
	if err != nil {
		m.fail(ctx, id, err)
		return
	}

	// 2. Correction + Chunking
	if err := m.advance(ctx, id, StatusProcessingChunks); err != nil {
		return
	}
	corrected, err := m.correct.Run(ctx, pages)
	if err != nil {
		m.fail(ctx, id, err)
		return
	}
	chunks, err := m.chunk.Run(ctx, corrected)
	if err != nil {
		m.fail(ctx, id, err)
		return
	}

	// 3. Store result
	result := &pipeline.Result{
		Chunks:      chunks,
		TotalChunks: len(chunks),
		Pages:       corrected,
	}
	if err := m.store.Complete(ctx, id, result); err != nil {
		slog.ErrorContext(ctx, "failed to store result", "job_id", id, "error", err)
		m.fail(ctx, id, err)
		return
	}

	slog.InfoContext(ctx, "job completed", "job_id", id, "total_chunks", len(chunks))
	m.publishStatus(ctx, id, StatusCompleted, "")
}

func (m *Manager) advance(ctx context.Context, id string, status Status) error {
	if err := m.store.UpdateStatus(ctx, id, status); err != nil {
		slog.ErrorContext(ctx, "failed to advance job", "job_id", id, "status", string(status), "error", err)
		return err
	}
	slog.InfoContext(ctx, "job advanced", "job_id", id, "status", string(status))
	m.publishStatus(ctx, id, status, "")
	return nil
}

func (m *Manager) fail(ctx context.Context, id string, cause error) {
	slog.ErrorContext(ctx, "job failed", "job_id", id, "error", cause)
	if err := m.store.Fail(ctx, id, cause.Error()); err != nil {
		slog.ErrorContext(ctx, "failed to mark job failed", "job_id", id, "error", err)
		return
	}
	m.publishStatus(ctx, id, StatusFailed, cause.Error())
}

// publishStatus emits a best-effort lifecycle event. A missing or failing
// publisher never affects the job itself.
func (m *Manager) publishStatus(ctx context.Context, id string, status Status, reason string) {
	if m.pub == nil {
		return
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"job_id":         id,
		"status":         string(status),
		"error":          reason,
		"correlation_id": middleware.GetCorrelationID(ctx),
	})

	if err := m.pub.Publish(config.TopicJobStatus, payload); err != nil {
		slog.WarnContext(ctx, "failed to publish job event", "job_id", id, "topic", config.TopicJobStatus, "error", err)
	}
	if status.Terminal() {
		if err := m.pub.Publish(config.TopicJobCompleted, payload); err != nil {
			slog.WarnContext(ctx, "failed to publish job event", "job_id", id, "topic", config.TopicJobCompleted, "error", err)
		}
	}
}
