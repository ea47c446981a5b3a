package evaluator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

func TestCompleter_RetriesTransientFailures(t *testing.T) {
	model := &fakeModel{respond: func(call int, _ []llms.MessageContent) (string, error) {
		if call < 3 {
			return "", errors.New("connection reset")
		}
		return "ok", nil
	}}

	out, err := NewCompleter(model, fastRetry).Complete(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 3, model.callCount())
}

func TestCompleter_GivesUpAfterMaxAttempts(t *testing.T) {
	model := &fakeModel{respond: func(int, []llms.MessageContent) (string, error) {
		return "", errors.New("503 service unavailable")
	}}

	_, err := NewCompleter(model, fastRetry).Complete(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Equal(t, fastRetry.MaxAttempts, model.callCount())
}

func TestCompleter_StopsOnCancelledContext(t *testing.T) {
	model := &fakeModel{respond: replyWith("never")}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCompleter(model, fastRetry).Complete(ctx, nil)
	require.Error(t, err)
	assert.LessOrEqual(t, model.callCount(), 1)
}

func TestNewCompleter_ZeroPolicyUsesDefault(t *testing.T) {
	c := NewCompleter(&fakeModel{respond: replyWith("x")}, RetryPolicy{})
	assert.Equal(t, DefaultRetryPolicy, c.policy)
}
