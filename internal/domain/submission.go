package domain

import (
	"strings"
	"time"
)

// SubmissionStatus is the lifecycle state of a submission.
type SubmissionStatus string

const (
	SubmissionStatusDraft SubmissionStatus = "draft"
	SubmissionStatusReady SubmissionStatus = "ready"
)

// Valid reports whether s is a known status.
func (s SubmissionStatus) Valid() bool {
	return s == SubmissionStatusDraft || s == SubmissionStatusReady
}

// Submission is one attempt of a user at a questionnaire.
type Submission struct {
	ID              string
	QuestionnaireID string
	UserID          string
	Status          SubmissionStatus
	SubmittedAt     *time.Time
	ChoiceAnswers   []ChoiceAnswer
	FreeTextAnswers []FreeTextAnswer
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ChoiceAnswer is one selected option. A multi-select question produces one
// ChoiceAnswer per selected option.
type ChoiceAnswer struct {
	SubmissionID string
	QuestionID   string
	OptionID     string
}

// FreeTextAnswer is the single text answer of a free-text question.
type FreeTextAnswer struct {
	SubmissionID string
	QuestionID   string
	Text         string
}

// AnswerSet is the raw answer payload handed to the submission writer.
type AnswerSet struct {
	Choices   []ChoiceAnswer
	FreeTexts []FreeTextAnswer
}

// SelectedOptionIDs returns the set of option ids selected in choice answers.
func (s *Submission) SelectedOptionIDs() map[string]bool {
	return selectedOptions(s.ChoiceAnswers)
}

// AnsweredQuestionIDs returns the set of question ids carrying at least one
// answer row.
func (s *Submission) AnsweredQuestionIDs() map[string]bool {
	return answeredQuestions(s.ChoiceAnswers, s.FreeTextAnswers)
}

// ChoicesByQuestion groups selected option ids by question id.
func (s *Submission) ChoicesByQuestion() map[string][]string {
	out := make(map[string][]string)
	for _, a := range s.ChoiceAnswers {
		out[a.QuestionID] = append(out[a.QuestionID], a.OptionID)
	}
	return out
}

// SelectedOptionIDs returns the set of option ids selected in the payload.
func (a AnswerSet) SelectedOptionIDs() map[string]bool {
	return selectedOptions(a.Choices)
}

// AnsweredQuestionIDs returns the set of question ids answered in the payload.
func (a AnswerSet) AnsweredQuestionIDs() map[string]bool {
	return answeredQuestions(a.Choices, a.FreeTexts)
}

func selectedOptions(choices []ChoiceAnswer) map[string]bool {
	out := make(map[string]bool, len(choices))
	for _, c := range choices {
		out[c.OptionID] = true
	}
	return out
}

func answeredQuestions(choices []ChoiceAnswer, texts []FreeTextAnswer) map[string]bool {
	out := make(map[string]bool, len(choices)+len(texts))
	for _, c := range choices {
		out[c.QuestionID] = true
	}
	for _, t := range texts {
		// Whitespace-only text does not answer a question.
		if strings.TrimSpace(t.Text) == "" {
			continue
		}
		out[t.QuestionID] = true
	}
	return out
}
