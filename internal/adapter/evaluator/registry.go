package evaluator

import (
	"fmt"
	"sort"
	"sync"

	"questionnaire-engine/internal/port"

	"github.com/tmc/langchaingo/llms"
)

// Backend identifiers accepted in questionnaire definitions and config.
const (
	BackendMock            = "mock"
	BackendVulnerable      = "vulnerable"
	BackendTagged          = "tagged"
	BackendSanitized       = "sanitized"
	BackendClassifierGated = "classifier_gated"
)

// Dependencies are the shared clients the backends are built from.
type Dependencies struct {
	Model                 llms.Model
	Classifier            llms.Model
	Retry                 RetryPolicy
	ClassifierConcurrency int
}

type factory func(Dependencies) (port.FreeTextEvaluator, error)

var factories = map[string]factory{
	BackendMock: func(Dependencies) (port.FreeTextEvaluator, error) {
		return NewKeywordEvaluator(), nil
	},
	BackendVulnerable: func(d Dependencies) (port.FreeTextEvaluator, error) {
		c, err := d.completer(BackendVulnerable)
		if err != nil {
			return nil, err
		}
		return NewPipeline(BackendVulnerable, PlainPrompt{}, c), nil
	},
	BackendTagged: func(d Dependencies) (port.FreeTextEvaluator, error) {
		c, err := d.completer(BackendTagged)
		if err != nil {
			return nil, err
		}
		return NewPipeline(BackendTagged, TaggedPrompt{}, c), nil
	},
	BackendSanitized: func(d Dependencies) (port.FreeTextEvaluator, error) {
		c, err := d.completer(BackendSanitized)
		if err != nil {
			return nil, err
		}
		return NewPipeline(BackendSanitized, TaggedPrompt{}, c, WithSanitizer(TagStripper{})), nil
	},
	BackendClassifierGated: func(d Dependencies) (port.FreeTextEvaluator, error) {
		c, err := d.completer(BackendClassifierGated)
		if err != nil {
			return nil, err
		}
		if d.Classifier == nil {
			return nil, fmt.Errorf("backend %s needs a classifier model", BackendClassifierGated)
		}
		classifier := NewModelClassifier(NewCompleter(d.Classifier, d.Retry, llms.WithTemperature(0)))
		return NewPipeline(BackendClassifierGated, TaggedPrompt{}, c,
			WithGate(NewGate(classifier, d.ClassifierConcurrency))), nil
	},
}

func (d Dependencies) completer(backend string) (*Completer, error) {
	if d.Model == nil {
		return nil, fmt.Errorf("backend %s needs an evaluator model", backend)
	}
	return NewCompleter(d.Model, d.Retry, llms.WithTemperature(0), llms.WithJSONMode()), nil
}

// Backends lists every known backend identifier.
func Backends() []string {
	out := make([]string, 0, len(factories))
	for name := range factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Registry resolves backend identifiers to evaluators, building each one
// once.
type Registry struct {
	deps           Dependencies
	defaultBackend string

	mu    sync.Mutex
	built map[string]port.FreeTextEvaluator
}

func NewRegistry(deps Dependencies, defaultBackend string) (*Registry, error) {
	if _, ok := factories[defaultBackend]; !ok {
		return nil, fmt.Errorf("unknown default evaluator backend %q", defaultBackend)
	}
	return &Registry{
		deps:           deps,
		defaultBackend: defaultBackend,
		built:          make(map[string]port.FreeTextEvaluator),
	}, nil
}

// Known reports whether backend names a registered evaluator. The empty
// string stands for the default and is always known.
func (r *Registry) Known(backend string) bool {
	if backend == "" {
		return true
	}
	_, ok := factories[backend]
	return ok
}

// Default is the backend used when a questionnaire names none.
func (r *Registry) Default() string {
	return r.defaultBackend
}

// Resolve implements port.EvaluatorResolver.
func (r *Registry) Resolve(backend string) (port.FreeTextEvaluator, error) {
	if backend == "" {
		backend = r.defaultBackend
	}
	f, ok := factories[backend]
	if !ok {
		return nil, fmt.Errorf("unknown evaluator backend %q", backend)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if ev, ok := r.built[backend]; ok {
		return ev, nil
	}
	ev, err := f(r.deps)
	if err != nil {
		return nil, err
	}
	r.built[backend] = ev
	return ev, nil
}
