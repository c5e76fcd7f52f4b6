package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"pdfinsight/internal/ratelimit"
)

// callThrough funnels one external-capability call through the shared rate
// limiter. A rate-limiter timeout is transient: the call is retried with
// exponential backoff up to maxRetries before the error escalates to the
// caller. Every attempt carries its own call timeout so a hung capability
// never hangs the job.
func callThrough(ctx context.Context, limiter Limiter, kind ratelimit.Kind, maxRetries int, callTimeout time.Duration, fn func(ctx context.Context) error) error {
	operation := func() error {
		if err := limiter.Acquire(ctx, kind); err != nil {
			if errors.Is(err, ratelimit.ErrRateLimited) {
				slog.WarnContext(ctx, "rate limited, backing off", "kind", string(kind))
				return err
			}
			return backoff.Permanent(err)
		}

		callCtx := ctx
		var cancel context.CancelFunc
		if callTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, callTimeout)
			defer cancel()
		}
		if err := fn(callCtx); err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}

	bo := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	return backoff.Retry(operation, backoff.WithMaxRetries(bo, uint64(maxRetries)))
}
