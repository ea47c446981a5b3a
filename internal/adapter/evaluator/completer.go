package evaluator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"questionnaire-engine/internal/logger"

	"github.com/cenkalti/backoff/v4"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
)

// RetryPolicy bounds calls to a network model.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Timeout         time.Duration // per attempt, 0 disables
}

// DefaultRetryPolicy is used when a zero policy is given.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:     4,
	InitialInterval: 500 * time.Millisecond,
	MaxInterval:     8 * time.Second,
	Timeout:         60 * time.Second,
}

// ErrEmptyCompletion is returned when the model answers with no choices.
var ErrEmptyCompletion = errors.New("model returned no choices")

// Completer calls a langchaingo model with exponential backoff and jitter.
type Completer struct {
	model  llms.Model
	policy RetryPolicy
	opts   []llms.CallOption
}

// NewCompleter creates a Completer. opts are passed on every call.
func NewCompleter(model llms.Model, policy RetryPolicy, opts ...llms.CallOption) *Completer {
	if policy.MaxAttempts < 1 {
		policy = DefaultRetryPolicy
	}
	return &Completer{model: model, policy: policy, opts: opts}
}

func (c *Completer) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.policy.InitialInterval
	b.MaxInterval = c.policy.MaxInterval
	b.RandomizationFactor = 0.5
	b.Multiplier = 2
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.policy.MaxAttempts-1)), ctx)
}

// Complete returns the text of the first choice. It fails once every attempt
// has failed; there is no fallback answer.
func (c *Completer) Complete(ctx context.Context, messages []llms.MessageContent) (string, error) {
	l := logger.Get()
	attempt := 0
	var out string

	op := func() error {
		attempt++
		callCtx := ctx
		if c.policy.Timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, c.policy.Timeout)
			defer cancel()
		}

		resp, err := c.model.GenerateContent(callCtx, messages, c.opts...)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			l.Warn("Model call failed",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", c.policy.MaxAttempts),
				zap.Error(err))
			return err
		}
		if resp == nil || len(resp.Choices) == 0 {
			l.Warn("Model returned an empty response", zap.Int("attempt", attempt))
			return ErrEmptyCompletion
		}
		out = resp.Choices[0].Content
		return nil
	}

	if err := backoff.Retry(op, c.newBackOff(ctx)); err != nil {
		return "", fmt.Errorf("model call failed after %d attempt(s): %w", attempt, err)
	}
	return out, nil
}
