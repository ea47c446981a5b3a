package validation

import (
	"fmt"
	"regexp"
	"strings"

	"questionnaire-engine/internal/domain"
	"questionnaire-engine/internal/dto"
)

const (
	MaxFreeTextLength = 10000
	MaxNameLength     = 255
)

// Ids are ULIDs when generated, or author-chosen slugs.
var validID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Validator provides request validation functionality
type Validator struct{}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateID validates a path or body identifier.
func (v *Validator) ValidateID(field, id string) domain.ValidationErrors {
	var errors domain.ValidationErrors
	if strings.TrimSpace(id) == "" {
		errors = append(errors, domain.NewMissingFieldError(field))
	} else if !validID.MatchString(id) {
		errors = append(errors, domain.NewInvalidFormatError(field, id))
	}
	return errors
}

// ValidateSubmitRequest checks request shape only; answer integrity is
// checked against the definition by the submission writer.
func (v *Validator) ValidateSubmitRequest(req *dto.SubmitRequest) domain.ValidationErrors {
	var errors domain.ValidationErrors

	switch domain.SubmissionStatus(req.Status) {
	case domain.SubmissionStatusDraft, domain.SubmissionStatusReady:
	case "":
		errors = append(errors, domain.NewMissingFieldError("status"))
	default:
		errors = append(errors, domain.NewInvalidFormatError("status", req.Status))
	}

	for i, c := range req.Choices {
		field := fmt.Sprintf("choices[%d]", i)
		errors = append(errors, v.ValidateID(field+".question_id", c.QuestionID)...)
		if len(c.OptionIDs) == 0 {
			errors = append(errors, domain.NewMissingFieldError(field+".option_ids"))
		}
		for j, id := range c.OptionIDs {
			errors = append(errors, v.ValidateID(fmt.Sprintf("%s.option_ids[%d]", field, j), id)...)
		}
	}
	for i, f := range req.FreeTexts {
		field := fmt.Sprintf("free_texts[%d]", i)
		errors = append(errors, v.ValidateID(field+".question_id", f.QuestionID)...)
		if len(f.Text) > MaxFreeTextLength {
			errors = append(errors, domain.NewOutOfRangeError(field+".text", len(f.Text), 0, MaxFreeTextLength))
		}
	}
	return errors
}

// ValidateReviewRequest validates a reviewer override.
func (v *Validator) ValidateReviewRequest(req *dto.ReviewRequest) domain.ValidationErrors {
	var errors domain.ValidationErrors
	if !domain.EvaluationStatus(req.Status).IsDecision() {
		errors = append(errors, domain.NewValidationError("status", "must be approved or rejected"))
	}
	if req.Score != nil && (*req.Score < domain.ForcedFailScore || *req.Score > 100) {
		errors = append(errors, domain.NewOutOfRangeError("score", *req.Score, domain.ForcedFailScore, 100))
	}
	return errors
}

// ValidateQuestionnaireRequest catches malformed payloads before the
// definition tree itself is validated.
func (v *Validator) ValidateQuestionnaireRequest(req *dto.QuestionnaireRequest) domain.ValidationErrors {
	var errors domain.ValidationErrors
	name := strings.TrimSpace(req.Name)
	if name == "" {
		errors = append(errors, domain.NewMissingFieldError("name"))
	} else if len(name) > MaxNameLength {
		errors = append(errors, domain.NewOutOfRangeError("name", len(name), 1, MaxNameLength))
	}
	if !domain.EvaluationMode(req.EvaluationMode).Valid() {
		errors = append(errors, domain.NewInvalidFormatError("evaluation_mode", req.EvaluationMode))
	}
	if req.MinScore < 0 || req.MinScore > 100 {
		errors = append(errors, domain.NewOutOfRangeError("min_score", req.MinScore, 0, 100))
	}
	if req.MaxAttempts < 0 {
		errors = append(errors, domain.NewValidationError("max_attempts", "cannot be negative"))
	}
	if req.RetakeCooldownSeconds < 0 {
		errors = append(errors, domain.NewValidationError("retake_cooldown_seconds", "cannot be negative"))
	}
	for i, s := range req.Sections {
		if s.ID != "" {
			errors = append(errors, v.ValidateID(fmt.Sprintf("sections[%d].id", i), s.ID)...)
		}
	}
	for i, q := range req.Questions {
		field := fmt.Sprintf("questions[%d]", i)
		if q.ID != "" {
			errors = append(errors, v.ValidateID(field+".id", q.ID)...)
		}
		if strings.TrimSpace(q.Text) == "" {
			errors = append(errors, domain.NewMissingFieldError(field+".text"))
		}
		switch domain.QuestionKind(q.Kind) {
		case domain.QuestionKindChoice, domain.QuestionKindFreeText:
		default:
			errors = append(errors, domain.NewInvalidFormatError(field+".kind", q.Kind))
		}
	}
	return errors
}
