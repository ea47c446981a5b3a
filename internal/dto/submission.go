package dto

import (
	"time"

	"questionnaire-engine/internal/domain"
)

// SubmitRequest is the answer payload of a draft save or a final submit.
type SubmitRequest struct {
	Status    string                  `json:"status"`
	Choices   []ChoiceAnswerRequest   `json:"choices"`
	FreeTexts []FreeTextAnswerRequest `json:"free_texts"`
}

// ChoiceAnswerRequest lists the options selected for one question.
type ChoiceAnswerRequest struct {
	QuestionID string   `json:"question_id"`
	OptionIDs  []string `json:"option_ids"`
}

type FreeTextAnswerRequest struct {
	QuestionID string `json:"question_id"`
	Text       string `json:"text"`
}

// ToAnswerSet flattens the request into one row per selected option.
func (r *SubmitRequest) ToAnswerSet() domain.AnswerSet {
	var set domain.AnswerSet
	for _, c := range r.Choices {
		for _, optionID := range c.OptionIDs {
			set.Choices = append(set.Choices, domain.ChoiceAnswer{QuestionID: c.QuestionID, OptionID: optionID})
		}
	}
	for _, f := range r.FreeTexts {
		set.FreeTexts = append(set.FreeTexts, domain.FreeTextAnswer{QuestionID: f.QuestionID, Text: f.Text})
	}
	return set
}

type SubmissionResponse struct {
	ID              string     `json:"id"`
	QuestionnaireID string     `json:"questionnaire_id"`
	Status          string     `json:"status"`
	SubmittedAt     *time.Time `json:"submitted_at,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func ToSubmissionResponse(s *domain.Submission) SubmissionResponse {
	return SubmissionResponse{
		ID:              s.ID,
		QuestionnaireID: s.QuestionnaireID,
		Status:          string(s.Status),
		SubmittedAt:     s.SubmittedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

// EvaluationResponse is what the admission workflow reads.
type EvaluationResponse struct {
	SubmissionID           string                 `json:"submission_id"`
	Score                  float64                `json:"score"`
	Status                 string                 `json:"status"`
	ProposedStatus         string                 `json:"proposed_status"`
	Comments               string                 `json:"comments,omitempty"`
	AutomaticallyEvaluated bool                   `json:"automatically_evaluated"`
	EvaluatorID            string                 `json:"evaluator_id,omitempty"`
	Audit                  domain.EvaluationAudit `json:"audit"`
	UpdatedAt              time.Time              `json:"updated_at"`
}

func ToEvaluationResponse(e *domain.Evaluation) EvaluationResponse {
	return EvaluationResponse{
		SubmissionID:           e.SubmissionID,
		Score:                  e.Score,
		Status:                 string(e.Status),
		ProposedStatus:         string(e.ProposedStatus),
		Comments:               e.Comments,
		AutomaticallyEvaluated: e.AutomaticallyEvaluated,
		EvaluatorID:            e.EvaluatorID,
		Audit:                  e.Audit,
		UpdatedAt:              e.UpdatedAt,
	}
}

// ReviewRequest is a reviewer's override. A nil score keeps the computed one.
type ReviewRequest struct {
	Status   string   `json:"status"`
	Score    *float64 `json:"score,omitempty"`
	Comments string   `json:"comments"`
}

// EvaluationQueuedResponse acknowledges an asynchronous evaluation request.
type EvaluationQueuedResponse struct {
	SubmissionID string `json:"submission_id"`
	Queued       bool   `json:"queued"`
}
