package job

import (
	"errors"
	"time"

	"pdfinsight/internal/pipeline"
)

type Status string

const (
	StatusQueued           Status = "queued"
	StatusProcessingOCR    Status = "processing_ocr"
	StatusProcessingChunks Status = "processing_chunks"
	StatusCompleted        Status = "completed"
	StatusFailed           Status = "failed"
)

var (
	ErrNotFound          = errors.New("job not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrEmptyDocument     = errors.New("document is empty")
)

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition enforces the job state machine: statuses advance strictly
// in pipeline order, with failed reachable from any non-terminal state.
func CanTransition(from, to Status) bool {
	if from.Terminal() {
		return false
	}
	if to == StatusFailed {
		return true
	}
	switch from {
	case StatusQueued:
		return to == StatusProcessingOCR
	case StatusProcessingOCR:
		return to == StatusProcessingChunks
	case StatusProcessingChunks:
		return to == StatusCompleted
	}
	return false
}

// Job is one document-processing request and its lifecycle state. Result
// is non-nil if and only if Status is completed.
type Job struct {
	ID        string           `json:"job_id"`
	Status    Status           `json:"status"`
	Error     string           `json:"error,omitempty"`
	Result    *pipeline.Result `json:"result,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}
