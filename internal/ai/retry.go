package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type RetryConfig struct {
	MaxAttempts int
	Timeout     time.Duration
	Backoff     time.Duration
}

type retryEmbedder struct {
	next IEmbedder
	cfg  RetryConfig
}

// NewRetryEmbedder retries failed embedding calls with linear backoff.
// Embedding is idempotent so every failure is retried until MaxAttempts.
func NewRetryEmbedder(next IEmbedder, cfg RetryConfig) IEmbedder {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	return &retryEmbedder{next: next, cfg: cfg}
}

// linearBackOff waits step, 2*step, 3*step ... between attempts.
type linearBackOff struct {
	step time.Duration
	n    int
}

func (l *linearBackOff) NextBackOff() time.Duration {
	l.n++
	return l.step * time.Duration(l.n)
}

func (l *linearBackOff) Reset() {
	l.n = 0
}

func (r *retryEmbedder) policy(ctx context.Context) backoff.BackOffContext {
	var b backoff.BackOff = &linearBackOff{step: r.cfg.Backoff}
	b = backoff.WithMaxRetries(b, uint64(r.cfg.MaxAttempts-1))
	return backoff.WithContext(b, ctx)
}

func (r *retryEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	var vec []float32
	attempt := 0
	op := func() error {
		attempt++
		out, err := r.embedOnce(ctx, text, taskType)
		if err != nil {
			return err
		}
		vec = out
		return nil
	}
	notify := func(err error, wait time.Duration) {
		logutil.GetLogger(ctx).Warn("embed failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}
	if err := backoff.RetryNotify(op, r.policy(ctx), notify); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("embed after %d attempts: %w", attempt, err)
	}
	return vec, nil
}

func (r *retryEmbedder) embedOnce(ctx context.Context, text string, taskType string) ([]float32, error) {
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}
	return r.next.Embed(ctx, text, taskType)
}

func (r *retryEmbedder) ModelName() string {
	return r.next.ModelName()
}
