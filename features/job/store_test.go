package job

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"pdfinsight/internal/pipeline"
)

func newQueuedJob(id string) *Job {
	return &Job{ID: id, Status: StatusQueued, CreatedAt: time.Now().UTC()}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusQueued, StatusProcessingOCR, true},
		{StatusProcessingOCR, StatusProcessingChunks, true},
		{StatusProcessingChunks, StatusCompleted, true},
		{StatusQueued, StatusFailed, true},
		{StatusProcessingOCR, StatusFailed, true},
		{StatusProcessingChunks, StatusFailed, true},
		{StatusQueued, StatusProcessingChunks, false}, // no skipping
		{StatusQueued, StatusCompleted, false},
		{StatusProcessingOCR, StatusCompleted, false},
		{StatusCompleted, StatusFailed, false}, // terminal
		{StatusFailed, StatusProcessingOCR, false},
		{StatusCompleted, StatusQueued, false},
	}

	for _, c := range cases {
		assert.Equal(t, c.ok, CanTransition(c.from, c.to), "%s -> %s", c.from, c.to)
	}
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	s := NewMemoryStore()

	j := newQueuedJob("j1")
	assert.NoError(t, s.Create(context.Background(), j))

	got, err := s.Get(context.Background(), "j1")
	assert.NoError(t, err)
	assert.Equal(t, StatusQueued, got.Status)

	// Duplicate ids are rejected.
	assert.Error(t, s.Create(context.Background(), newQueuedJob("j1")))

	_, err = s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_GetReturnsSnapshot(t *testing.T) {
	s := NewMemoryStore()
	assert.NoError(t, s.Create(context.Background(), newQueuedJob("j1")))

	got, _ := s.Get(context.Background(), "j1")
	got.Status = StatusFailed // mutating the snapshot must not leak back

	again, _ := s.Get(context.Background(), "j1")
	assert.Equal(t, StatusQueued, again.Status)
}

func TestMemoryStore_UpdateStatus(t *testing.T) {
	s := NewMemoryStore()
	assert.NoError(t, s.Create(context.Background(), newQueuedJob("j1")))

	assert.NoError(t, s.UpdateStatus(context.Background(), "j1", StatusProcessingOCR))
	assert.NoError(t, s.UpdateStatus(context.Background(), "j1", StatusProcessingChunks))

	// Skipping a state is rejected.
	err := s.UpdateStatus(context.Background(), "j1", StatusProcessingChunks)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	assert.ErrorIs(t, s.UpdateStatus(context.Background(), "missing", StatusProcessingOCR), ErrNotFound)
}

func TestMemoryStore_CompleteStoresResultAtomically(t *testing.T) {
	s := NewMemoryStore()
	assert.NoError(t, s.Create(context.Background(), newQueuedJob("j1")))
	assert.NoError(t, s.UpdateStatus(context.Background(), "j1", StatusProcessingOCR))
	assert.NoError(t, s.UpdateStatus(context.Background(), "j1", StatusProcessingChunks))

	result := &pipeline.Result{TotalChunks: 2, Chunks: []pipeline.Chunk{{Content: "a"}, {Content: "b"}}}
	assert.NoError(t, s.Complete(context.Background(), "j1", result))

	got, _ := s.Get(context.Background(), "j1")
	assert.Equal(t, StatusCompleted, got.Status)
	assert.NotNil(t, got.Result)
	assert.Equal(t, 2, got.Result.TotalChunks)

	// Completing from queued is invalid.
	assert.NoError(t, s.Create(context.Background(), newQueuedJob("j2")))
	assert.ErrorIs(t, s.Complete(context.Background(), "j2", result), ErrInvalidTransition)
}

func TestMemoryStore_FailClearsResult(t *testing.T) {
	s := NewMemoryStore()
	assert.NoError(t, s.Create(context.Background(), newQueuedJob("j1")))
	assert.NoError(t, s.UpdateStatus(context.Background(), "j1", StatusProcessingOCR))

	assert.NoError(t, s.Fail(context.Background(), "j1", "extraction failed"))

	got, _ := s.Get(context.Background(), "j1")
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "extraction failed", got.Error)
	assert.Nil(t, got.Result)

	// Terminal: no further transitions.
	assert.ErrorIs(t, s.Fail(context.Background(), "j1", "again"), ErrInvalidTransition)
}

func TestMemoryStore_CountByStatus(t *testing.T) {
	s := NewMemoryStore()
	assert.NoError(t, s.Create(context.Background(), newQueuedJob("j1")))
	assert.NoError(t, s.Create(context.Background(), newQueuedJob("j2")))
	assert.NoError(t, s.Create(context.Background(), newQueuedJob("j3")))
	assert.NoError(t, s.UpdateStatus(context.Background(), "j3", StatusProcessingOCR))

	counts, err := s.CountByStatus(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 2, counts[StatusQueued])
	assert.Equal(t, 1, counts[StatusProcessingOCR])
}
