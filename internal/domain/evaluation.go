package domain

import "time"

// EvaluationStatus is the outcome recorded on an Evaluation.
type EvaluationStatus string

const (
	EvaluationStatusApproved      EvaluationStatus = "approved"
	EvaluationStatusRejected      EvaluationStatus = "rejected"
	EvaluationStatusPendingReview EvaluationStatus = "pending_review"
)

// IsDecision reports whether s is a final approve/reject decision.
func (s EvaluationStatus) IsDecision() bool {
	return s == EvaluationStatusApproved || s == EvaluationStatusRejected
}

// Evaluation is the scoring result of a ready submission. There is at most one
// row per submission; re-evaluation replaces it.
type Evaluation struct {
	SubmissionID           string
	Score                  float64
	Status                 EvaluationStatus
	ProposedStatus         EvaluationStatus
	Comments               string
	AutomaticallyEvaluated bool
	EvaluatorID            string
	Audit                  EvaluationAudit
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// EvaluationAudit is the structured record kept for reviewers. A human review
// never rewrites it.
type EvaluationAudit struct {
	ChoicePointsScored   float64           `json:"mc_points_scored"`
	ChoiceMaxPoints      float64           `json:"mc_max_points"`
	FreeTextPointsScored float64           `json:"ft_points_scored"`
	FreeTextMaxPoints    float64           `json:"ft_max_points"`
	MissingMandatory     []string          `json:"missing_mandatory"`
	FatalQuestionIDs     []string          `json:"fatal_question_ids,omitempty"`
	UnscoredQuestionIDs  []string          `json:"unscored_question_ids,omitempty"`
	FreeTextVerdicts     []FreeTextVerdict `json:"free_text_verdicts,omitempty"`
	EvaluatorBackend     string            `json:"evaluator_backend,omitempty"`
}

// ReviewDecision is a human override of an evaluation.
type ReviewDecision struct {
	SubmissionID string
	ReviewerID   string
	Status       EvaluationStatus
	Score        *float64
	Comments     string
}

// Viewer is the caller reading an evaluation. Reviewers see every
// evaluation, anyone else only those of their own submissions.
type Viewer struct {
	UserID     string
	IsReviewer bool
}

// FreeTextItem is one entry of a batch sent to a free-text evaluator.
type FreeTextItem struct {
	QuestionID   string `json:"question_id"`
	QuestionText string `json:"question_text"`
	AnswerText   string `json:"answer_text"`
	Guidelines   string `json:"guidelines,omitempty"`
}

// FreeTextVerdict is the evaluator's judgement of one FreeTextItem.
type FreeTextVerdict struct {
	QuestionID  string `json:"question_id"`
	IsPassing   bool   `json:"is_passing"`
	Explanation string `json:"explanation"`
}
