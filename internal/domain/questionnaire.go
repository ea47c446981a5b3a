package domain

import (
	"fmt"
	"sort"
	"time"
)

// EvaluationMode decides who finalises an evaluation.
type EvaluationMode string

const (
	EvaluationModeAutomatic EvaluationMode = "automatic"
	EvaluationModeManual    EvaluationMode = "manual"
	EvaluationModeHybrid    EvaluationMode = "hybrid"
)

// Valid reports whether m is a known mode.
func (m EvaluationMode) Valid() bool {
	switch m {
	case EvaluationModeAutomatic, EvaluationModeManual, EvaluationModeHybrid:
		return true
	}
	return false
}

// QuestionKind tags the concrete variant of a Question.
type QuestionKind string

const (
	QuestionKindChoice   QuestionKind = "multiple_choice"
	QuestionKindFreeText QuestionKind = "free_text"
)

// Questionnaire is the root of a definition tree.
type Questionnaire struct {
	ID               string
	Name             string
	MinScore         float64 // 0..100
	ShuffleQuestions bool
	ShuffleSections  bool
	EvaluationMode   EvaluationMode
	EvaluatorBackend string // empty selects the configured default
	Guidelines       string
	MaxAttempts      int           // 0 means unlimited
	RetakeCooldown   time.Duration // 0 means no cooldown
	Sections         []*Section
	Questions        []*Question
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Section groups questions and can be made conditional on one option.
type Section struct {
	ID                string
	QuestionnaireID   string
	Name              string
	Description       string
	Order             int
	DependsOnOptionID string
}

// Question is the shared contract of choice and free-text questions. Kind
// selects which of the variant fields are meaningful.
type Question struct {
	ID                string
	QuestionnaireID   string
	SectionID         string
	Kind              QuestionKind
	Text              string
	Hint              string
	Order             int
	IsMandatory       bool
	IsFatal           bool
	PositiveWeight    float64
	NegativeWeight    float64
	DependsOnOptionID string

	// choice variant
	AllowMultipleAnswers bool
	ShuffleOptions       bool
	Options              []*Option

	// free-text variant
	Guidelines string
}

// Option belongs to exactly one choice question.
type Option struct {
	ID         string
	QuestionID string
	Text       string
	IsCorrect  bool
	Order      int
}

// NewQuestionnaire creates a new Questionnaire instance
func NewQuestionnaire(name string, minScore float64, mode EvaluationMode) *Questionnaire {
	now := time.Now()
	return &Questionnaire{
		Name:           name,
		MinScore:       minScore,
		EvaluationMode: mode,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (q *Question) IsChoice() bool   { return q.Kind == QuestionKindChoice }
func (q *Question) IsFreeText() bool { return q.Kind == QuestionKindFreeText }

// Penalty is the amount deducted for an incorrect answer. Authors may store
// the negative weight either signed or unsigned; both deduct.
func (q *Question) Penalty() float64 {
	if q.NegativeWeight < 0 {
		return -q.NegativeWeight
	}
	return q.NegativeWeight
}

// MergedGuidelines returns the question guidelines, falling back to the
// questionnaire-wide ones.
func (q *Question) MergedGuidelines(questionnaireGuidelines string) string {
	if q.Guidelines != "" {
		return q.Guidelines
	}
	return questionnaireGuidelines
}

// Option returns the option with the given id, or nil.
func (q *Question) Option(optionID string) *Option {
	for _, o := range q.Options {
		if o.ID == optionID {
			return o
		}
	}
	return nil
}

// QuestionByID returns the question with the given id, or nil.
func (q *Questionnaire) QuestionByID(id string) *Question {
	for _, question := range q.Questions {
		if question.ID == id {
			return question
		}
	}
	return nil
}

// SectionByID returns the section with the given id, or nil.
func (q *Questionnaire) SectionByID(id string) *Section {
	for _, s := range q.Sections {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// OptionOwners maps every option id in the questionnaire to its question.
func (q *Questionnaire) OptionOwners() map[string]*Question {
	owners := make(map[string]*Question)
	for _, question := range q.Questions {
		for _, o := range question.Options {
			owners[o.ID] = question
		}
	}
	return owners
}

// SortedSections returns the sections ordered by Order, ties broken by id.
func (q *Questionnaire) SortedSections() []*Section {
	out := append([]*Section(nil), q.Sections...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// QuestionsIn returns the questions of a section (empty id for top-level
// questions), ordered by Order.
func (q *Questionnaire) QuestionsIn(sectionID string) []*Question {
	var out []*Question
	for _, question := range q.Questions {
		if question.SectionID == sectionID {
			out = append(out, question)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// SortedOptions returns the options ordered by Order.
func (q *Question) SortedOptions() []*Option {
	out := append([]*Option(nil), q.Options...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Validate checks the whole definition tree. It runs once when a definition
// is saved so that applicability resolution never has to check references.
func (q *Questionnaire) Validate() error {
	if q.Name == "" {
		return NewInvalidDefinitionError("name is required")
	}
	if q.MinScore < 0 || q.MinScore > 100 {
		return NewInvalidDefinitionError(fmt.Sprintf("min score must be within 0..100, got %v", q.MinScore))
	}
	if !q.EvaluationMode.Valid() {
		return NewInvalidDefinitionError(fmt.Sprintf("unknown evaluation mode %q", q.EvaluationMode))
	}
	if q.MaxAttempts < 0 {
		return NewInvalidDefinitionError("max attempts cannot be negative")
	}
	if q.RetakeCooldown < 0 {
		return NewInvalidDefinitionError("retake cooldown cannot be negative")
	}

	sections := make(map[string]*Section, len(q.Sections))
	for _, s := range q.Sections {
		if s.ID == "" {
			return NewInvalidDefinitionError("section id is required")
		}
		if _, dup := sections[s.ID]; dup {
			return NewInvalidDefinitionError(fmt.Sprintf("duplicate section id %s", s.ID))
		}
		if s.QuestionnaireID != q.ID {
			return NewInvalidDefinitionError(fmt.Sprintf("section %s belongs to another questionnaire", s.ID))
		}
		sections[s.ID] = s
	}

	questions := make(map[string]bool, len(q.Questions))
	options := make(map[string]bool)
	for _, question := range q.Questions {
		if question.ID == "" {
			return NewInvalidDefinitionError("question id is required")
		}
		if questions[question.ID] {
			return NewInvalidDefinitionError(fmt.Sprintf("duplicate question id %s", question.ID))
		}
		questions[question.ID] = true
		if err := q.validateQuestion(question, sections); err != nil {
			return err
		}
		for _, o := range question.Options {
			if options[o.ID] {
				return NewInvalidDefinitionError(fmt.Sprintf("duplicate option id %s", o.ID))
			}
			options[o.ID] = true
		}
	}

	owners := q.OptionOwners()
	for _, s := range q.Sections {
		if s.DependsOnOptionID == "" {
			continue
		}
		owner, ok := owners[s.DependsOnOptionID]
		if !ok {
			return NewInvalidDefinitionError(fmt.Sprintf("section %s depends on unknown option %s", s.ID, s.DependsOnOptionID))
		}
		if owner.SectionID == s.ID {
			return NewInvalidDefinitionError(fmt.Sprintf("section %s depends on an option of its own question %s", s.ID, owner.ID))
		}
	}
	for _, question := range q.Questions {
		if question.DependsOnOptionID == "" {
			continue
		}
		owner, ok := owners[question.DependsOnOptionID]
		if !ok {
			return NewInvalidDefinitionError(fmt.Sprintf("question %s depends on unknown option %s", question.ID, question.DependsOnOptionID))
		}
		if owner.ID == question.ID {
			return NewInvalidDefinitionError(fmt.Sprintf("question %s depends on one of its own options", question.ID))
		}
	}
	return nil
}

func (q *Questionnaire) validateQuestion(question *Question, sections map[string]*Section) error {
	if question.QuestionnaireID != q.ID {
		return NewInvalidDefinitionError(fmt.Sprintf("question %s belongs to another questionnaire", question.ID))
	}
	if question.SectionID != "" {
		if _, ok := sections[question.SectionID]; !ok {
			return NewInvalidDefinitionError(fmt.Sprintf("question %s references section %s outside this questionnaire", question.ID, question.SectionID))
		}
	}
	if question.Text == "" {
		return NewInvalidDefinitionError(fmt.Sprintf("question %s has no text", question.ID))
	}
	if question.PositiveWeight < 0 {
		return NewInvalidDefinitionError(fmt.Sprintf("question %s has a negative positive weight", question.ID))
	}

	switch question.Kind {
	case QuestionKindChoice:
		if len(question.Options) == 0 {
			return NewInvalidDefinitionError(fmt.Sprintf("choice question %s has no options", question.ID))
		}
		correct := 0
		for _, o := range question.Options {
			if o.ID == "" {
				return NewInvalidDefinitionError(fmt.Sprintf("question %s has an option without id", question.ID))
			}
			if o.QuestionID != question.ID {
				return NewInvalidDefinitionError(fmt.Sprintf("option %s belongs to another question", o.ID))
			}
			if o.IsCorrect {
				correct++
			}
		}
		if !question.AllowMultipleAnswers && correct > 1 {
			return NewInvalidDefinitionError(fmt.Sprintf("single-answer question %s has %d correct options", question.ID, correct))
		}
	case QuestionKindFreeText:
		if len(question.Options) > 0 {
			return NewInvalidDefinitionError(fmt.Sprintf("free-text question %s cannot own options", question.ID))
		}
	default:
		return NewInvalidDefinitionError(fmt.Sprintf("question %s has unknown kind %q", question.ID, question.Kind))
	}
	return nil
}
