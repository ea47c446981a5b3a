package evaluator

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/tmc/langchaingo/llms"
)

// fakeModel answers through respond, recording every call.
type fakeModel struct {
	mu      sync.Mutex
	calls   [][]llms.MessageContent
	respond func(call int, messages []llms.MessageContent) (string, error)
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, messages)
	n := len(f.calls)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text, err := f.respond(n, messages)
	if err != nil {
		return nil, err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: text}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func (f *fakeModel) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func replyWith(text string) func(int, []llms.MessageContent) (string, error) {
	return func(int, []llms.MessageContent) (string, error) { return text, nil }
}

func textOf(msg llms.MessageContent) string {
	var b strings.Builder
	for _, p := range msg.Parts {
		if t, ok := p.(llms.TextContent); ok {
			b.WriteString(t.Text)
		}
	}
	return b.String()
}

func messageOf(messages []llms.MessageContent, role llms.ChatMessageType) (string, bool) {
	for _, m := range messages {
		if m.Role == role {
			return textOf(m), true
		}
	}
	return "", false
}

var fastRetry = RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
