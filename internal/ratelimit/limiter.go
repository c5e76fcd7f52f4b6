package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrRateLimited is returned when a caller waited past the configured
// acquire timeout without getting a slot. It is transient: callers are
// expected to retry with backoff before treating it as fatal.
var ErrRateLimited = errors.New("rate limit exceeded")

// Kind identifies an external capability that carries its own quota.
type Kind string

const (
	KindOCR      Kind = "ocr"
	KindLanguage Kind = "language"
)

type BucketConfig struct {
	PerMinute int
	Burst     int
}

// Limiter bounds the call rate into each external capability, shared by
// all concurrently running jobs. One token bucket per capability kind;
// Acquire waits for a token and never silently drops a call.
type Limiter struct {
	mu             sync.RWMutex
	buckets        map[Kind]*rate.Limiter
	acquireTimeout time.Duration
}

func New(acquireTimeout time.Duration, cfgs map[Kind]BucketConfig) *Limiter {
	buckets := make(map[Kind]*rate.Limiter, len(cfgs))
	for kind, cfg := range cfgs {
		perMinute := cfg.PerMinute
		if perMinute <= 0 {
			perMinute = 1
		}
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		buckets[kind] = rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), burst)
	}
	return &Limiter{
		buckets:        buckets,
		acquireTimeout: acquireTimeout,
	}
}

// Acquire blocks until a token for the given capability kind is available.
// Waiting is bounded by the configured acquire timeout; expiry surfaces as
// ErrRateLimited. Cancellation of the caller's context surfaces as the
// context's own error.
func (l *Limiter) Acquire(ctx context.Context, kind Kind) error {
	bucket, err := l.bucket(kind)
	if err != nil {
		return err
	}

	waitCtx := ctx
	var cancel context.CancelFunc
	if l.acquireTimeout > 0 {
		waitCtx, cancel = context.WithTimeout(ctx, l.acquireTimeout)
		defer cancel()
	}

	start := time.Now()
	if err := bucket.Wait(waitCtx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.WarnContext(ctx, "rate limiter acquire timed out", "kind", string(kind), "waited", time.Since(start))
		return fmt.Errorf("%w: capability %s", ErrRateLimited, kind)
	}
	return nil
}

func (l *Limiter) bucket(kind Kind) (*rate.Limiter, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	bucket, ok := l.buckets[kind]
	if !ok {
		return nil, fmt.Errorf("unknown capability kind: %s", kind)
	}
	return bucket, nil
}
