package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"questionnaire-engine/internal/domain"
	"questionnaire-engine/internal/repository/models"
	"questionnaire-engine/internal/util"

	"github.com/jmoiron/sqlx"
)

const (
	selectEvaluationQuery = `SELECT
		submission_id "submission_id",
		score "score",
		status "status",
		proposed_status "proposed_status",
		comments "comments",
		automatically_evaluated "automatically_evaluated",
		evaluator_id "evaluator_id",
		audit "audit",
		created_at "created_at",
		updated_at "updated_at"
	FROM evaluations
	WHERE submission_id = :1`

	mergeEvaluationQuery = `MERGE INTO evaluations t
	USING (SELECT :1 AS submission_id FROM dual) src
	ON (t.submission_id = src.submission_id)
	WHEN MATCHED THEN UPDATE SET
		score = :2, status = :3, proposed_status = :4, comments = :5,
		automatically_evaluated = :6, evaluator_id = :7, audit = :8, updated_at = :9
	WHEN NOT MATCHED THEN INSERT (
		submission_id, score, status, proposed_status, comments,
		automatically_evaluated, evaluator_id, audit, created_at, updated_at
	) VALUES (:10, :11, :12, :13, :14, :15, :16, :17, :18, :19)`

	applyReviewQuery = `UPDATE evaluations
	SET status = :1, score = :2, comments = :3, evaluator_id = :4,
		automatically_evaluated = 0, updated_at = :5
	WHERE submission_id = :6`
)

// EvaluationDatabaseAdapter implements domain.EvaluationRepository.
type EvaluationDatabaseAdapter struct {
	db DBTX
}

func NewEvaluationDatabaseAdapter(db *sqlx.DB) domain.EvaluationRepository {
	return &EvaluationDatabaseAdapter{db: db}
}

func (a *EvaluationDatabaseAdapter) GetEvaluationBySubmissionID(ctx context.Context, submissionID string) (*domain.Evaluation, error) {
	var me models.Evaluation
	if err := GetExecutor(ctx, a.db).GetContext(ctx, &me, selectEvaluationQuery, submissionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get evaluation of submission %s: %w", submissionID, err)
	}
	return toDomainEvaluation(&me), nil
}

func (a *EvaluationDatabaseAdapter) UpsertEvaluation(ctx context.Context, e *domain.Evaluation) error {
	now := time.Now()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now
	me := toModelEvaluation(e)

	_, err := GetExecutor(ctx, a.db).ExecContext(ctx, mergeEvaluationQuery,
		me.SubmissionID,
		me.Score, me.Status, me.ProposedStatus, me.Comments,
		me.AutomaticallyEvaluated, me.EvaluatorID, me.Audit, me.UpdatedAt,
		me.SubmissionID, me.Score, me.Status, me.ProposedStatus, me.Comments,
		me.AutomaticallyEvaluated, me.EvaluatorID, me.Audit, me.CreatedAt, me.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert evaluation of submission %s: %w", e.SubmissionID, err)
	}
	return nil
}

func (a *EvaluationDatabaseAdapter) ApplyReview(ctx context.Context, d domain.ReviewDecision) error {
	if d.Score == nil {
		return fmt.Errorf("review of submission %s has no score", d.SubmissionID)
	}
	_, err := GetExecutor(ctx, a.db).ExecContext(ctx, applyReviewQuery,
		string(d.Status), *d.Score, util.StringToNullString(d.Comments), util.StringToNullString(d.ReviewerID),
		time.Now(), d.SubmissionID)
	if err != nil {
		return fmt.Errorf("failed to apply review to submission %s: %w", d.SubmissionID, err)
	}
	return nil
}

func toModelEvaluation(e *domain.Evaluation) *models.Evaluation {
	return &models.Evaluation{
		SubmissionID:           e.SubmissionID,
		Score:                  e.Score,
		Status:                 string(e.Status),
		ProposedStatus:         string(e.ProposedStatus),
		Comments:               util.StringToNullString(e.Comments),
		AutomaticallyEvaluated: util.BoolToFlag(e.AutomaticallyEvaluated),
		EvaluatorID:            util.StringToNullString(e.EvaluatorID),
		Audit:                  models.Audit(e.Audit),
		CreatedAt:              e.CreatedAt,
		UpdatedAt:              e.UpdatedAt,
	}
}

func toDomainEvaluation(me *models.Evaluation) *domain.Evaluation {
	return &domain.Evaluation{
		SubmissionID:           me.SubmissionID,
		Score:                  me.Score,
		Status:                 domain.EvaluationStatus(me.Status),
		ProposedStatus:         domain.EvaluationStatus(me.ProposedStatus),
		Comments:               me.Comments.String,
		AutomaticallyEvaluated: util.FlagToBool(me.AutomaticallyEvaluated),
		EvaluatorID:            me.EvaluatorID.String,
		Audit:                  domain.EvaluationAudit(me.Audit),
		CreatedAt:              me.CreatedAt,
		UpdatedAt:              me.UpdatedAt,
	}
}
