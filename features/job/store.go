package job

import (
	"context"
	"fmt"
	"sync"

	"pdfinsight/internal/pipeline"
)

// Store owns all job state. Created at process start, mutated only through
// the manager, torn down at shutdown. Implementations must be safe for
// concurrent use: status reads are point-in-time snapshots that never block
// on in-flight pipelines.
type Store interface {
	Create(ctx context.Context, j *Job) error
	Get(ctx context.Context, id string) (*Job, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
	Complete(ctx context.Context, id string, result *pipeline.Result) error
	Fail(ctx context.Context, id, reason string) error
	CountByStatus(ctx context.Context) (map[Status]int, error)
}

// MemoryStore is the default Store: a mutex-guarded map scoped to the
// process lifetime. Sufficient for the polling contract; the Postgres
// repository provides durability behind the same interface.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*Job)}
}

func (s *MemoryStore) Create(ctx context.Context, j *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[j.ID]; exists {
		return fmt.Errorf("job %s already exists", j.ID)
	}
	cp := *j
	s.jobs[j.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, id string, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if !CanTransition(j.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, status)
	}
	j.Status = status
	return nil
}

// Complete stores the result and marks the job completed in one step, so a
// reader can never observe a completed job without its result.
func (s *MemoryStore) Complete(ctx context.Context, id string, result *pipeline.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if !CanTransition(j.Status, StatusCompleted) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, StatusCompleted)
	}
	j.Status = StatusCompleted
	j.Result = result
	return nil
}

func (s *MemoryStore) Fail(ctx context.Context, id, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if !CanTransition(j.Status, StatusFailed) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, StatusFailed)
	}
	j.Status = StatusFailed
	j.Error = reason
	j.Result = nil
	return nil
}

func (s *MemoryStore) CountByStatus(ctx context.Context) (map[Status]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[Status]int)
	for _, j := range s.jobs {
		counts[j.Status]++
	}
	return counts, nil
}
