package dto

import (
	"time"

	"questionnaire-engine/internal/domain"
)

// QuestionnaireRequest is the authoring payload of a full definition tree.
type QuestionnaireRequest struct {
	Name                  string            `json:"name"`
	MinScore              float64           `json:"min_score"`
	ShuffleQuestions      bool              `json:"shuffle_questions"`
	ShuffleSections       bool              `json:"shuffle_sections"`
	EvaluationMode        string            `json:"evaluation_mode"`
	EvaluatorBackend      string            `json:"evaluator_backend,omitempty"`
	Guidelines            string            `json:"guidelines,omitempty"`
	MaxAttempts           int               `json:"max_attempts"`
	RetakeCooldownSeconds int64             `json:"retake_cooldown_seconds"`
	Sections              []SectionRequest  `json:"sections"`
	Questions             []QuestionRequest `json:"questions"`
}

type SectionRequest struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Description       string `json:"description,omitempty"`
	Order             int    `json:"order"`
	DependsOnOptionID string `json:"depends_on_option_id,omitempty"`
}

type QuestionRequest struct {
	ID                   string          `json:"id"`
	SectionID            string          `json:"section_id,omitempty"`
	Kind                 string          `json:"kind"`
	Text                 string          `json:"text"`
	Hint                 string          `json:"hint,omitempty"`
	Order                int             `json:"order"`
	IsMandatory          bool            `json:"is_mandatory"`
	IsFatal              bool            `json:"is_fatal"`
	PositiveWeight       float64         `json:"positive_weight"`
	NegativeWeight       float64         `json:"negative_weight"`
	DependsOnOptionID    string          `json:"depends_on_option_id,omitempty"`
	AllowMultipleAnswers bool            `json:"allow_multiple_answers,omitempty"`
	ShuffleOptions       bool            `json:"shuffle_options,omitempty"`
	Guidelines           string          `json:"guidelines,omitempty"`
	Options              []OptionRequest `json:"options,omitempty"`
}

type OptionRequest struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
	Order     int    `json:"order"`
}

// ToDomain builds the definition tree for questionnaire id. Child rows take
// the questionnaire id; ids left empty are assigned when saving.
func (r *QuestionnaireRequest) ToDomain(id string) *domain.Questionnaire {
	q := domain.NewQuestionnaire(r.Name, r.MinScore, domain.EvaluationMode(r.EvaluationMode))
	q.ID = id
	q.ShuffleQuestions = r.ShuffleQuestions
	q.ShuffleSections = r.ShuffleSections
	q.EvaluatorBackend = r.EvaluatorBackend
	q.Guidelines = r.Guidelines
	q.MaxAttempts = r.MaxAttempts
	q.RetakeCooldown = time.Duration(r.RetakeCooldownSeconds) * time.Second

	for _, s := range r.Sections {
		q.Sections = append(q.Sections, &domain.Section{
			ID:                s.ID,
			QuestionnaireID:   id,
			Name:              s.Name,
			Description:       s.Description,
			Order:             s.Order,
			DependsOnOptionID: s.DependsOnOptionID,
		})
	}
	for _, qr := range r.Questions {
		question := &domain.Question{
			ID:                   qr.ID,
			QuestionnaireID:      id,
			SectionID:            qr.SectionID,
			Kind:                 domain.QuestionKind(qr.Kind),
			Text:                 qr.Text,
			Hint:                 qr.Hint,
			Order:                qr.Order,
			IsMandatory:          qr.IsMandatory,
			IsFatal:              qr.IsFatal,
			PositiveWeight:       qr.PositiveWeight,
			NegativeWeight:       qr.NegativeWeight,
			DependsOnOptionID:    qr.DependsOnOptionID,
			AllowMultipleAnswers: qr.AllowMultipleAnswers,
			ShuffleOptions:       qr.ShuffleOptions,
			Guidelines:           qr.Guidelines,
		}
		for _, o := range qr.Options {
			question.Options = append(question.Options, &domain.Option{
				ID:         o.ID,
				QuestionID: qr.ID,
				Text:       o.Text,
				IsCorrect:  o.IsCorrect,
				Order:      o.Order,
			})
		}
		q.Questions = append(q.Questions, question)
	}
	return q
}

// QuestionnaireSavedResponse acknowledges a saved definition.
type QuestionnaireSavedResponse struct {
	ID        string    `json:"id"`
	UpdatedAt time.Time `json:"updated_at"`
}

// QuestionnaireTreeResponse is the presentation schema of a questionnaire.
// It carries every section and question, conditional ones included, and
// never the correct answers.
type QuestionnaireTreeResponse struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	EvaluationMode string         `json:"evaluation_mode"`
	Guidelines     string         `json:"guidelines,omitempty"`
	Questions      []QuestionView `json:"questions"`
	Sections       []SectionView  `json:"sections"`
}

type SectionView struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"`
	Description       string         `json:"description,omitempty"`
	Order             int            `json:"order"`
	DependsOnOptionID string         `json:"depends_on_option_id,omitempty"`
	Questions         []QuestionView `json:"questions"`
}

type QuestionView struct {
	ID                   string       `json:"id"`
	SectionID            string       `json:"section_id,omitempty"`
	Kind                 string       `json:"kind"`
	Text                 string       `json:"text"`
	Hint                 string       `json:"hint,omitempty"`
	Order                int          `json:"order"`
	IsMandatory          bool         `json:"is_mandatory"`
	DependsOnOptionID    string       `json:"depends_on_option_id,omitempty"`
	AllowMultipleAnswers bool         `json:"allow_multiple_answers,omitempty"`
	Options              []OptionView `json:"options,omitempty"`
}

type OptionView struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Order int    `json:"order"`
}
