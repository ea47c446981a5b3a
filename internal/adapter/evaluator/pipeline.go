package evaluator

import (
	"context"

	"questionnaire-engine/internal/domain"
	"questionnaire-engine/internal/logger"

	"go.uber.org/zap"
)

// Pipeline is a network-backed evaluator composed from optional stages:
// gate, then sanitizer, then prompt, completion and parsing.
type Pipeline struct {
	name      string
	gate      *Gate
	sanitizer Sanitizer
	prompt    PromptStrategy
	completer *Completer
}

// PipelineOption adds an optional stage.
type PipelineOption func(*Pipeline)

func WithGate(g *Gate) PipelineOption { return func(p *Pipeline) { p.gate = g } }

func WithSanitizer(s Sanitizer) PipelineOption { return func(p *Pipeline) { p.sanitizer = s } }

func NewPipeline(name string, prompt PromptStrategy, completer *Completer, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{name: name, prompt: prompt, completer: completer}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// EvaluateBatch implements port.FreeTextEvaluator.
func (p *Pipeline) EvaluateBatch(ctx context.Context, items []domain.FreeTextItem, questionnaireGuidelines string) ([]domain.FreeTextVerdict, error) {
	l := logger.Get().With(zap.String("evaluator", p.name))
	if len(items) == 0 {
		return nil, nil
	}

	pending := items
	var verdicts []domain.FreeTextVerdict
	if p.gate != nil {
		clean, flagged, err := p.gate.Screen(ctx, items)
		if err != nil {
			return nil, err
		}
		pending, verdicts = clean, flagged
		if len(pending) == 0 {
			return verdicts, nil
		}
	}

	if p.sanitizer != nil {
		sanitized := make([]domain.FreeTextItem, len(pending))
		for i, it := range pending {
			text, err := p.sanitizer.Sanitize(it.AnswerText)
			if err != nil {
				return nil, err
			}
			it.AnswerText = text
			sanitized[i] = it
		}
		pending = sanitized
	}

	l.Info("Evaluating free-text batch", zap.Int("items", len(pending)))
	raw, err := p.completer.Complete(ctx, p.prompt.Build(pending, questionnaireGuidelines))
	if err != nil {
		return nil, err
	}
	l.Debug("Raw evaluator response received", zap.String("raw_response", raw))

	parsed, err := ParseVerdicts(raw, pending)
	if err != nil {
		return nil, err
	}
	return append(verdicts, parsed...), nil
}
