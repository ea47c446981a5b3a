package models

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"questionnaire-engine/internal/domain"
)

// Flag columns are NUMBER(1) because Oracle has no boolean column type.

type Questionnaire struct {
	ID                    string         `db:"id"`
	Name                  string         `db:"name"`
	MinScore              float64        `db:"min_score"`
	ShuffleQuestions      int            `db:"shuffle_questions"`
	ShuffleSections       int            `db:"shuffle_sections"`
	EvaluationMode        string         `db:"evaluation_mode"`
	EvaluatorBackend      sql.NullString `db:"evaluator_backend"`
	Guidelines            sql.NullString `db:"guidelines"`
	MaxAttempts           int            `db:"max_attempts"`
	RetakeCooldownSeconds int64          `db:"retake_cooldown_seconds"`
	CreatedAt             time.Time      `db:"created_at"`
	UpdatedAt             time.Time      `db:"updated_at"`
}

type Section struct {
	ID                string         `db:"id"`
	QuestionnaireID   string         `db:"questionnaire_id"`
	Name              string         `db:"name"`
	Description       sql.NullString `db:"description"`
	DisplayOrder      int            `db:"display_order"`
	DependsOnOptionID sql.NullString `db:"depends_on_option_id"`
}

type Question struct {
	ID                   string         `db:"id"`
	QuestionnaireID      string         `db:"questionnaire_id"`
	SectionID            sql.NullString `db:"section_id"`
	Kind                 string         `db:"kind"`
	QuestionText         string         `db:"question_text"`
	Hint                 sql.NullString `db:"hint"`
	DisplayOrder         int            `db:"display_order"`
	IsMandatory          int            `db:"is_mandatory"`
	IsFatal              int            `db:"is_fatal"`
	PositiveWeight       float64        `db:"positive_weight"`
	NegativeWeight       float64        `db:"negative_weight"`
	DependsOnOptionID    sql.NullString `db:"depends_on_option_id"`
	AllowMultipleAnswers int            `db:"allow_multiple_answers"`
	ShuffleOptions       int            `db:"shuffle_options"`
	Guidelines           sql.NullString `db:"guidelines"`
}

type Option struct {
	ID           string `db:"id"`
	QuestionID   string `db:"question_id"`
	OptionText   string `db:"option_text"`
	IsCorrect    int    `db:"is_correct"`
	DisplayOrder int    `db:"display_order"`
}

type Submission struct {
	ID              string       `db:"id"`
	QuestionnaireID string       `db:"questionnaire_id"`
	UserID          string       `db:"user_id"`
	Status          string       `db:"status"`
	SubmittedAt     sql.NullTime `db:"submitted_at"`
	CreatedAt       time.Time    `db:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at"`
}

type ChoiceAnswer struct {
	SubmissionID string `db:"submission_id"`
	QuestionID   string `db:"question_id"`
	OptionID     string `db:"option_id"`
}

type FreeTextAnswer struct {
	SubmissionID string `db:"submission_id"`
	QuestionID   string `db:"question_id"`
	AnswerText   string `db:"answer_text"`
}

type Evaluation struct {
	SubmissionID           string         `db:"submission_id"`
	Score                  float64        `db:"score"`
	Status                 string         `db:"status"`
	ProposedStatus         string         `db:"proposed_status"`
	Comments               sql.NullString `db:"comments"`
	AutomaticallyEvaluated int            `db:"automatically_evaluated"`
	EvaluatorID            sql.NullString `db:"evaluator_id"`
	Audit                  Audit          `db:"audit"`
	CreatedAt              time.Time      `db:"created_at"`
	UpdatedAt              time.Time      `db:"updated_at"`
}

// Audit stores domain.EvaluationAudit as JSON in a CLOB column.
type Audit domain.EvaluationAudit

// Value implements the driver.Valuer interface
func (a Audit) Value() (driver.Value, error) {
	data, err := json.Marshal(domain.EvaluationAudit(a))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements the sql.Scanner interface
func (a *Audit) Scan(value interface{}) error {
	if value == nil {
		*a = Audit{}
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("Audit Scan: unsupported type " + fmt.Sprintf("%T", value))
	}
	if len(raw) == 0 || string(raw) == "null" {
		*a = Audit{}
		return nil
	}

	var out domain.EvaluationAudit
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*a = Audit(out)
	return nil
}
