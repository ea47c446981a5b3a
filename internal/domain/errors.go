package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a specific type of error in the domain
type ErrorCode string

const (
	// Common errors
	ErrInternal     ErrorCode = "INTERNAL_ERROR"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrNotFound     ErrorCode = "NOT_FOUND"
	ErrUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrForbidden    ErrorCode = "FORBIDDEN"

	// Definition errors
	ErrQuestionnaireNotFound ErrorCode = "QUESTIONNAIRE_NOT_FOUND"
	ErrInvalidDefinition     ErrorCode = "INVALID_DEFINITION"

	// Submission errors
	ErrSubmissionNotFound           ErrorCode = "SUBMISSION_NOT_FOUND"
	ErrCrossQuestionnaireSubmission ErrorCode = "CROSS_QUESTIONNAIRE_SUBMISSION"
	ErrInvalidOptionReference       ErrorCode = "INVALID_OPTION_REFERENCE"
	ErrMultipleAnswersNotAllowed    ErrorCode = "MULTIPLE_ANSWERS_NOT_ALLOWED"
	ErrDuplicateAnswer              ErrorCode = "DUPLICATE_ANSWER"
	ErrMissingMandatoryAnswer       ErrorCode = "MISSING_MANDATORY_ANSWER"
	ErrMaxAttemptsExceeded          ErrorCode = "MAX_ATTEMPTS_EXCEEDED"
	ErrRetakeCooldown               ErrorCode = "RETAKE_COOLDOWN"

	// Evaluation errors
	ErrSubmissionInDraft    ErrorCode = "SUBMISSION_IN_DRAFT"
	ErrEvaluationNotFound   ErrorCode = "EVALUATION_NOT_FOUND"
	ErrEvaluationInProgress ErrorCode = "EVALUATION_IN_PROGRESS"
	ErrEvaluationReviewed   ErrorCode = "EVALUATION_ALREADY_REVIEWED"
	ErrEvaluatorError       ErrorCode = "EVALUATOR_ERROR"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Err     error                  `json:"-"`
	Context map[string]interface{} `json:"-"`
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// MarshalJSON implements the json.Marshaler interface
func (e *DomainError) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Code    string                 `json:"code"`
		Message string                 `json:"message"`
		Details map[string]interface{} `json:"details,omitempty"`
	}{
		Code:    string(e.Code),
		Message: e.Message,
		Details: e.Context,
	})
}

// WithContext attaches a detail value rendered alongside the error.
func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewError creates a new DomainError
func NewError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// HasCode reports whether err is a DomainError carrying code.
func HasCode(err error, code ErrorCode) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Helper functions for common errors
func NewNotFoundError(message string) *DomainError {
	return NewError(ErrNotFound, message, nil)
}

func NewInvalidInputError(message string) *DomainError {
	return NewError(ErrInvalidInput, message, nil)
}

func NewInternalError(message string, err error) *DomainError {
	return NewError(ErrInternal, message, err)
}

func NewUnauthorizedError(message string) *DomainError {
	return NewError(ErrUnauthorized, message, nil)
}

func NewForbiddenError(message string) *DomainError {
	return NewError(ErrForbidden, message, nil)
}

func NewQuestionnaireNotFoundError(questionnaireID string) *DomainError {
	return NewError(ErrQuestionnaireNotFound, fmt.Sprintf("Questionnaire not found with ID: %s", questionnaireID), nil).
		WithContext("questionnaire_id", questionnaireID)
}

func NewInvalidDefinitionError(message string) *DomainError {
	return NewError(ErrInvalidDefinition, message, nil)
}

func NewSubmissionNotFoundError(submissionID string) *DomainError {
	return NewError(ErrSubmissionNotFound, fmt.Sprintf("Submission not found with ID: %s", submissionID), nil).
		WithContext("submission_id", submissionID)
}

func NewEvaluationNotFoundError(submissionID string) *DomainError {
	return NewError(ErrEvaluationNotFound, fmt.Sprintf("No evaluation for submission: %s", submissionID), nil).
		WithContext("submission_id", submissionID)
}

func NewCrossQuestionnaireSubmissionError(questionIDs []string) *DomainError {
	return NewError(ErrCrossQuestionnaireSubmission,
		fmt.Sprintf("Answers reference questions outside this questionnaire: %s", strings.Join(questionIDs, ", ")), nil).
		WithContext("question_ids", questionIDs)
}

func NewInvalidOptionReferenceError(questionID, optionID string) *DomainError {
	return NewError(ErrInvalidOptionReference,
		fmt.Sprintf("Option %s is not a valid answer for question %s", optionID, questionID), nil).
		WithContext("question_id", questionID).
		WithContext("option_id", optionID)
}

func NewMultipleAnswersNotAllowedError(questionID string) *DomainError {
	return NewError(ErrMultipleAnswersNotAllowed,
		fmt.Sprintf("Question %s accepts a single option", questionID), nil).
		WithContext("question_id", questionID)
}

func NewDuplicateAnswerError(questionID string) *DomainError {
	return NewError(ErrDuplicateAnswer,
		fmt.Sprintf("Question %s was answered more than once", questionID), nil).
		WithContext("question_id", questionID)
}

func NewMissingMandatoryAnswerError(questionIDs []string) *DomainError {
	return NewError(ErrMissingMandatoryAnswer,
		fmt.Sprintf("Mandatory questions left unanswered: %s", strings.Join(questionIDs, ", ")), nil).
		WithContext("missing_question_ids", questionIDs)
}

func NewMaxAttemptsExceededError(maxAttempts int) *DomainError {
	return NewError(ErrMaxAttemptsExceeded,
		fmt.Sprintf("Maximum number of attempts (%d) reached", maxAttempts), nil).
		WithContext("max_attempts", maxAttempts)
}

func NewRetakeCooldownError(retryAfterSeconds int64) *DomainError {
	return NewError(ErrRetakeCooldown, "Questionnaire cannot be retaken yet", nil).
		WithContext("retry_after_seconds", retryAfterSeconds)
}

func NewSubmissionInDraftError(submissionID string) *DomainError {
	return NewError(ErrSubmissionInDraft,
		fmt.Sprintf("Submission %s is still a draft", submissionID), nil).
		WithContext("submission_id", submissionID)
}

func NewEvaluationInProgressError(submissionID string) *DomainError {
	return NewError(ErrEvaluationInProgress,
		fmt.Sprintf("Submission %s is already being evaluated", submissionID), nil).
		WithContext("submission_id", submissionID)
}

func NewEvaluationReviewedError(submissionID, reviewerID string) *DomainError {
	return NewError(ErrEvaluationReviewed,
		fmt.Sprintf("Evaluation of submission %s was decided by a reviewer", submissionID), nil).
		WithContext("submission_id", submissionID).
		WithContext("reviewer_id", reviewerID)
}

func NewEvaluatorError(err error) *DomainError {
	return NewError(ErrEvaluatorError, "Failed to process with free-text evaluator", err)
}
