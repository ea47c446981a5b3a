package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"questionnaire-engine/internal/domain"
	"questionnaire-engine/internal/repository/models"
	"questionnaire-engine/internal/util"

	"github.com/jmoiron/sqlx"
)

const (
	submissionColumns = `id "id",
		questionnaire_id "questionnaire_id",
		user_id "user_id",
		status "status",
		submitted_at "submitted_at",
		created_at "created_at",
		updated_at "updated_at"`

	selectSubmissionQuery          = `SELECT ` + submissionColumns + ` FROM submissions WHERE id = :1`
	selectSubmissionForUpdateQuery = selectSubmissionQuery + ` FOR UPDATE`

	selectDraftQuery = `SELECT ` + submissionColumns + ` FROM submissions
	WHERE user_id = :1 AND questionnaire_id = :2 AND status = 'draft'
	FOR UPDATE`

	selectChoiceAnswersQuery = `SELECT
		submission_id "submission_id",
		question_id "question_id",
		option_id "option_id"
	FROM submission_choice_answers
	WHERE submission_id = :1
	ORDER BY question_id, option_id`

	selectFreeTextAnswersQuery = `SELECT
		submission_id "submission_id",
		question_id "question_id",
		answer_text "answer_text"
	FROM submission_free_text_answers
	WHERE submission_id = :1
	ORDER BY question_id`

	insertSubmissionQuery = `INSERT INTO submissions (
		id, questionnaire_id, user_id, status, submitted_at, created_at, updated_at
	) VALUES (:1, :2, :3, :4, :5, :6, :7)`

	updateSubmissionQuery = `UPDATE submissions
	SET status = :1, submitted_at = :2, updated_at = :3
	WHERE id = :4`

	deleteChoiceAnswersQuery   = `DELETE FROM submission_choice_answers WHERE submission_id = :1`
	deleteFreeTextAnswersQuery = `DELETE FROM submission_free_text_answers WHERE submission_id = :1`

	insertChoiceAnswerQuery = `INSERT INTO submission_choice_answers (
		submission_id, question_id, option_id
	) VALUES (:1, :2, :3)`

	insertFreeTextAnswerQuery = `INSERT INTO submission_free_text_answers (
		submission_id, question_id, answer_text
	) VALUES (:1, :2, :3)`

	countReadySubmissionsQuery = `SELECT COUNT(*) FROM submissions
	WHERE user_id = :1 AND questionnaire_id = :2 AND status = 'ready'`

	latestEvaluatedAttemptQuery = `SELECT
		s.submitted_at "submitted_at",
		e.status "status"
	FROM submissions s
	JOIN evaluations e ON e.submission_id = s.id
	WHERE s.user_id = :1 AND s.questionnaire_id = :2 AND s.status = 'ready'
	ORDER BY s.submitted_at DESC
	FETCH FIRST 1 ROWS ONLY`
)

// SubmissionDatabaseAdapter implements domain.SubmissionRepository.
type SubmissionDatabaseAdapter struct {
	db DBTX
}

func NewSubmissionDatabaseAdapter(db *sqlx.DB) domain.SubmissionRepository {
	return &SubmissionDatabaseAdapter{db: db}
}

func (a *SubmissionDatabaseAdapter) GetSubmissionByID(ctx context.Context, id string) (*domain.Submission, error) {
	return a.load(ctx, selectSubmissionQuery, id)
}

func (a *SubmissionDatabaseAdapter) GetSubmissionForUpdate(ctx context.Context, id string) (*domain.Submission, error) {
	return a.load(ctx, selectSubmissionForUpdateQuery, id)
}

func (a *SubmissionDatabaseAdapter) FindDraft(ctx context.Context, userID, questionnaireID string) (*domain.Submission, error) {
	return a.load(ctx, selectDraftQuery, userID, questionnaireID)
}

func (a *SubmissionDatabaseAdapter) load(ctx context.Context, query string, args ...interface{}) (*domain.Submission, error) {
	exec := GetExecutor(ctx, a.db)

	var ms models.Submission
	if err := exec.GetContext(ctx, &ms, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	var choices []models.ChoiceAnswer
	if err := exec.SelectContext(ctx, &choices, selectChoiceAnswersQuery, ms.ID); err != nil {
		return nil, fmt.Errorf("failed to get choice answers of submission %s: %w", ms.ID, err)
	}
	var texts []models.FreeTextAnswer
	if err := exec.SelectContext(ctx, &texts, selectFreeTextAnswersQuery, ms.ID); err != nil {
		return nil, fmt.Errorf("failed to get free-text answers of submission %s: %w", ms.ID, err)
	}
	return toDomainSubmission(&ms, choices, texts), nil
}

func (a *SubmissionDatabaseAdapter) InsertSubmission(ctx context.Context, s *domain.Submission) error {
	now := time.Now()
	if s.ID == "" {
		s.ID = util.NewULID()
	}
	s.CreatedAt, s.UpdatedAt = now, now

	_, err := GetExecutor(ctx, a.db).ExecContext(ctx, insertSubmissionQuery,
		s.ID, s.QuestionnaireID, s.UserID, string(s.Status), util.TimePtrToNullTime(s.SubmittedAt), s.CreatedAt, s.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) && s.Status == domain.SubmissionStatusDraft {
			return fmt.Errorf("%w: %v", domain.ErrDraftExists, err)
		}
		return fmt.Errorf("failed to insert submission: %w", err)
	}
	return nil
}

func (a *SubmissionDatabaseAdapter) UpdateSubmission(ctx context.Context, s *domain.Submission) error {
	s.UpdatedAt = time.Now()
	_, err := GetExecutor(ctx, a.db).ExecContext(ctx, updateSubmissionQuery,
		string(s.Status), util.TimePtrToNullTime(s.SubmittedAt), s.UpdatedAt, s.ID)
	if err != nil {
		return fmt.Errorf("failed to update submission %s: %w", s.ID, err)
	}
	return nil
}

// ReplaceAnswers deletes then inserts, so a draft save is a full snapshot.
func (a *SubmissionDatabaseAdapter) ReplaceAnswers(ctx context.Context, submissionID string, answers domain.AnswerSet) error {
	exec := GetExecutor(ctx, a.db)

	if _, err := exec.ExecContext(ctx, deleteChoiceAnswersQuery, submissionID); err != nil {
		return fmt.Errorf("failed to delete choice answers: %w", err)
	}
	if _, err := exec.ExecContext(ctx, deleteFreeTextAnswersQuery, submissionID); err != nil {
		return fmt.Errorf("failed to delete free-text answers: %w", err)
	}

	for _, c := range answers.Choices {
		if _, err := exec.ExecContext(ctx, insertChoiceAnswerQuery, submissionID, c.QuestionID, c.OptionID); err != nil {
			return fmt.Errorf("failed to insert choice answer for question %s: %w", c.QuestionID, err)
		}
	}
	for _, t := range answers.FreeTexts {
		if _, err := exec.ExecContext(ctx, insertFreeTextAnswerQuery, submissionID, t.QuestionID, t.Text); err != nil {
			return fmt.Errorf("failed to insert free-text answer for question %s: %w", t.QuestionID, err)
		}
	}
	return nil
}

func (a *SubmissionDatabaseAdapter) CountReadySubmissions(ctx context.Context, userID, questionnaireID string) (int, error) {
	var n int
	if err := GetExecutor(ctx, a.db).GetContext(ctx, &n, countReadySubmissionsQuery, userID, questionnaireID); err != nil {
		return 0, fmt.Errorf("failed to count submissions: %w", err)
	}
	return n, nil
}

func (a *SubmissionDatabaseAdapter) LastRejectedAt(ctx context.Context, userID, questionnaireID string) (*time.Time, error) {
	var row struct {
		SubmittedAt sql.NullTime `db:"submitted_at"`
		Status      string       `db:"status"`
	}
	err := GetExecutor(ctx, a.db).GetContext(ctx, &row, latestEvaluatedAttemptQuery, userID, questionnaireID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest evaluated attempt: %w", err)
	}
	if row.Status != string(domain.EvaluationStatusRejected) {
		return nil, nil
	}
	return util.NullTimeToPtr(row.SubmittedAt), nil
}

func toDomainSubmission(ms *models.Submission, choices []models.ChoiceAnswer, texts []models.FreeTextAnswer) *domain.Submission {
	s := &domain.Submission{
		ID:              ms.ID,
		QuestionnaireID: ms.QuestionnaireID,
		UserID:          ms.UserID,
		Status:          domain.SubmissionStatus(ms.Status),
		SubmittedAt:     util.NullTimeToPtr(ms.SubmittedAt),
		CreatedAt:       ms.CreatedAt,
		UpdatedAt:       ms.UpdatedAt,
	}
	for _, c := range choices {
		s.ChoiceAnswers = append(s.ChoiceAnswers, domain.ChoiceAnswer{
			SubmissionID: c.SubmissionID,
			QuestionID:   c.QuestionID,
			OptionID:     c.OptionID,
		})
	}
	for _, t := range texts {
		s.FreeTextAnswers = append(s.FreeTextAnswers, domain.FreeTextAnswer{
			SubmissionID: t.SubmissionID,
			QuestionID:   t.QuestionID,
			Text:         t.AnswerText,
		})
	}
	return s
}

// isUniqueViolation matches ORA-00001, raised for uq_submissions_draft.
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "ORA-00001")
}
