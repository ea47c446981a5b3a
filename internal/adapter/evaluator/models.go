package evaluator

import (
	"fmt"

	"questionnaire-engine/internal/config"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// NewDependencies builds the model clients described by cfg.
func NewDependencies(cfg config.EvaluatorConfig) (Dependencies, error) {
	model, err := newEvaluatorModel(cfg)
	if err != nil {
		return Dependencies{}, err
	}

	var classifier llms.Model
	if cfg.ClassifierServerURL != "" && cfg.ClassifierModel != "" {
		classifier, err = ollama.New(
			ollama.WithServerURL(cfg.ClassifierServerURL),
			ollama.WithModel(cfg.ClassifierModel),
		)
		if err != nil {
			return Dependencies{}, fmt.Errorf("failed to create classifier client: %w", err)
		}
	}

	return Dependencies{
		Model:      model,
		Classifier: classifier,
		Retry: RetryPolicy{
			MaxAttempts:     cfg.MaxAttempts,
			InitialInterval: cfg.InitialBackoff,
			MaxInterval:     cfg.MaxBackoff,
			Timeout:         cfg.Timeout,
		},
		ClassifierConcurrency: cfg.ClassifierConcurrency,
	}, nil
}

func newEvaluatorModel(cfg config.EvaluatorConfig) (llms.Model, error) {
	switch cfg.Provider {
	case "openai":
		opts := []openai.Option{openai.WithToken(cfg.APIKey), openai.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai client: %w", err)
		}
		return llm, nil
	case "ollama", "":
		llm, err := ollama.New(ollama.WithServerURL(cfg.ServerURL), ollama.WithModel(cfg.Model))
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
		return llm, nil
	}
	return nil, fmt.Errorf("unknown evaluator provider %q", cfg.Provider)
}
