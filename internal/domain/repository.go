package domain

import (
	"context"
	"errors"
	"time"
)

// ErrDraftExists is returned by SubmissionRepository.InsertSubmission when
// the user already holds a draft for the questionnaire.
var ErrDraftExists = errors.New("submission: draft already exists")

// TransactionManager runs fn inside one database transaction. Repositories
// called with the context passed to fn take part in it.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// QuestionnaireRepository persists definition trees.
type QuestionnaireRepository interface {
	// GetQuestionnaireByID loads the full tree. Returns nil, nil when absent.
	GetQuestionnaireByID(ctx context.Context, id string) (*Questionnaire, error)

	// SaveQuestionnaire upserts the questionnaire row and replaces its
	// sections, questions and options.
	SaveQuestionnaire(ctx context.Context, q *Questionnaire) error
}

// SubmissionRepository persists submissions and their answers.
type SubmissionRepository interface {
	// GetSubmissionByID loads a submission with its answers. Returns nil, nil
	// when absent.
	GetSubmissionByID(ctx context.Context, id string) (*Submission, error)

	// GetSubmissionForUpdate is GetSubmissionByID taking a row lock for the
	// rest of the surrounding transaction.
	GetSubmissionForUpdate(ctx context.Context, id string) (*Submission, error)

	// FindDraft returns the draft of a user for a questionnaire, or nil.
	FindDraft(ctx context.Context, userID, questionnaireID string) (*Submission, error)

	// InsertSubmission inserts a new submission row without answers. A second
	// draft for the same user and questionnaire fails with ErrDraftExists.
	InsertSubmission(ctx context.Context, s *Submission) error

	// UpdateSubmission updates status and submitted_at of an existing row.
	UpdateSubmission(ctx context.Context, s *Submission) error

	// ReplaceAnswers deletes all answers of the submission and inserts the
	// given ones.
	ReplaceAnswers(ctx context.Context, submissionID string, answers AnswerSet) error

	// CountReadySubmissions counts ready attempts of a user.
	CountReadySubmissions(ctx context.Context, userID, questionnaireID string) (int, error)

	// LastRejectedAt returns the submission time of the latest ready attempt
	// whose evaluation is rejected, or nil.
	LastRejectedAt(ctx context.Context, userID, questionnaireID string) (*time.Time, error)
}

// EvaluationRepository persists evaluations keyed by submission.
type EvaluationRepository interface {
	// GetEvaluationBySubmissionID returns nil, nil when absent.
	GetEvaluationBySubmissionID(ctx context.Context, submissionID string) (*Evaluation, error)

	// UpsertEvaluation inserts or replaces the evaluation of a submission.
	UpsertEvaluation(ctx context.Context, e *Evaluation) error

	// ApplyReview overwrites status, score, comments and evaluator, leaving
	// proposed status and audit untouched.
	ApplyReview(ctx context.Context, d ReviewDecision) error
}
