package ai

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

const retryNote = `

Your previous reply could not be used: %s
Reply again with ONLY the JSON object described above. No markdown fences, no commentary.`

// Caller runs structured generative calls: each attempt is bounded by a
// timeout, decoded with DecodeJSON and checked by an optional validator.
// Transport and malformed output failures get the same bounded retry.
type Caller struct {
	gen      IGenerator
	timeout  time.Duration
	attempts int
}

func NewCaller(gen IGenerator, timeout time.Duration, retries int) *Caller {
	if retries < 0 {
		retries = 0
	}
	return &Caller{gen: gen, timeout: timeout, attempts: retries + 1}
}

func (c *Caller) Call(ctx context.Context, stage string, prompt string, out interface{}, check func() error) error {
	if c.gen == nil {
		return ErrUnavailable
	}
	logger := logutil.GetLogger(ctx).With(zap.String("stage", stage))
	current := prompt
	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		resetValue(out)
		err := c.once(ctx, current, out, check)
		if err == nil {
			if attempt > 1 {
				logger.Info("generative call recovered on retry", zap.Int("attempt", attempt))
			}
			return nil
		}
		lastErr = err
		logger.Warn("generative call failed", zap.Int("attempt", attempt), zap.Int("max_attempts", c.attempts), zap.Error(err))
		if errors.Is(err, ErrMalformedOutput) {
			current = prompt + fmt.Sprintf(retryNote, truncate(err.Error(), 300))
		} else {
			current = prompt
		}
	}
	return fmt.Errorf("%s: %w", stage, lastErr)
}

func (c *Caller) once(ctx context.Context, prompt string, out interface{}, check func() error) error {
	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	resp, err := c.gen.Generate(callCtx, prompt)
	if err != nil {
		return err
	}
	if strings.TrimSpace(resp) == "" {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, ErrEmptyResponse)
	}
	if err := DecodeJSON(resp, out); err != nil {
		return err
	}
	if check != nil {
		if err := check(); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
		}
	}
	return nil
}

func resetValue(out interface{}) {
	v := reflect.ValueOf(out)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return
	}
	v.Elem().Set(reflect.Zero(v.Elem().Type()))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
