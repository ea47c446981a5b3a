package port

import (
	"context"

	"questionnaire-engine/internal/domain"
)

// FreeTextEvaluator judges a batch of free-text answers. Implementations
// return at most one verdict per submitted question id; callers treat a
// missing verdict as unscored.
type FreeTextEvaluator interface {
	EvaluateBatch(ctx context.Context, items []domain.FreeTextItem, questionnaireGuidelines string) ([]domain.FreeTextVerdict, error)
}

// EvaluatorResolver maps a backend identifier to an evaluator. An empty
// identifier selects the configured default.
type EvaluatorResolver interface {
	Resolve(backend string) (FreeTextEvaluator, error)
	Known(backend string) bool
	Default() string
}
