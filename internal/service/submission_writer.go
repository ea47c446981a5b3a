package service

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"questionnaire-engine/internal/domain"
	"questionnaire-engine/internal/logger"

	"go.uber.org/zap"
)

// SubmissionWriter validates and persists draft and final submissions.
type SubmissionWriter interface {
	Submit(ctx context.Context, userID, questionnaireID string, answers domain.AnswerSet, status domain.SubmissionStatus) (*domain.Submission, error)
}

type submissionWriter struct {
	definitions DefinitionService
	submissions domain.SubmissionRepository
	tx          domain.TransactionManager
	dispatcher  EvaluationDispatcher
	now         func() time.Time
}

// NewSubmissionWriter creates a writer. When dispatcher is non-nil every ready
// submission is queued for evaluation after it commits.
func NewSubmissionWriter(
	definitions DefinitionService,
	submissions domain.SubmissionRepository,
	tx domain.TransactionManager,
	dispatcher EvaluationDispatcher,
) SubmissionWriter {
	return &submissionWriter{
		definitions: definitions,
		submissions: submissions,
		tx:          tx,
		dispatcher:  dispatcher,
		now:         time.Now,
	}
}

func (w *submissionWriter) Submit(
	ctx context.Context,
	userID, questionnaireID string,
	answers domain.AnswerSet,
	status domain.SubmissionStatus,
) (*domain.Submission, error) {
	if userID == "" {
		return nil, domain.NewInvalidInputError("user is required")
	}
	if !status.Valid() {
		return nil, domain.NewInvalidInputError("status must be draft or ready")
	}

	q, err := w.definitions.GetQuestionnaire(ctx, questionnaireID)
	if err != nil {
		return nil, err
	}
	if err := checkAnswers(q, answers); err != nil {
		return nil, err
	}

	if status == domain.SubmissionStatusReady {
		applicable := domain.ResolveApplicability(q, answers.SelectedOptionIDs())
		if missing := domain.MissingMandatory(q, applicable, answers.AnsweredQuestionIDs()); len(missing) > 0 {
			return nil, domain.NewMissingMandatoryAnswerError(missing)
		}
	}

	var saved *domain.Submission
	err = w.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if status == domain.SubmissionStatusReady {
			if err := w.checkAttemptPolicy(txCtx, q, userID); err != nil {
				return err
			}
			s, err := w.insertReady(txCtx, q.ID, userID)
			if err != nil {
				return err
			}
			saved = s
		} else {
			s, err := w.upsertDraft(txCtx, q.ID, userID)
			if err != nil {
				return err
			}
			saved = s
		}
		if err := w.submissions.ReplaceAnswers(txCtx, saved.ID, answers); err != nil {
			return domain.NewInternalError("Failed to save answers", err)
		}
		return nil
	})
	if err != nil {
		var de *domain.DomainError
		if !errors.As(err, &de) {
			err = domain.NewInternalError("Failed to save submission", err)
		}
		logger.Get().Warn("SubmissionWriter: submission rejected",
			zap.String("questionnaire_id", questionnaireID),
			zap.String("user_id", userID),
			zap.String("status", string(status)),
			zap.Error(err))
		return nil, err
	}

	saved.ChoiceAnswers = withSubmissionID(answers.Choices, saved.ID)
	saved.FreeTextAnswers = withSubmissionIDText(answers.FreeTexts, saved.ID)
	logger.Get().Info("SubmissionWriter: submission saved",
		zap.String("submission_id", saved.ID),
		zap.String("questionnaire_id", q.ID),
		zap.String("user_id", userID),
		zap.String("status", string(saved.Status)))

	if saved.Status == domain.SubmissionStatusReady && w.dispatcher != nil {
		if err := w.dispatcher.Enqueue(ctx, saved.ID); err != nil {
			// The submission stands; evaluation can be requested again.
			logger.Get().Error("SubmissionWriter: failed to queue evaluation",
				zap.String("submission_id", saved.ID), zap.Error(err))
		}
	}
	return saved, nil
}

func (w *submissionWriter) insertReady(ctx context.Context, questionnaireID, userID string) (*domain.Submission, error) {
	now := w.now()
	s := &domain.Submission{
		QuestionnaireID: questionnaireID,
		UserID:          userID,
		Status:          domain.SubmissionStatusReady,
		SubmittedAt:     &now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := w.submissions.InsertSubmission(ctx, s); err != nil {
		return nil, domain.NewInternalError("Failed to create submission", err)
	}
	return s, nil
}

// upsertDraft keeps at most one draft per user and questionnaire.
func (w *submissionWriter) upsertDraft(ctx context.Context, questionnaireID, userID string) (*domain.Submission, error) {
	now := w.now()
	draft, err := w.submissions.FindDraft(ctx, userID, questionnaireID)
	if err != nil {
		return nil, domain.NewInternalError("Failed to load draft", err)
	}
	if draft == nil {
		draft = &domain.Submission{
			QuestionnaireID: questionnaireID,
			UserID:          userID,
			Status:          domain.SubmissionStatusDraft,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		err := w.submissions.InsertSubmission(ctx, draft)
		if err == nil {
			return draft, nil
		}
		if !errors.Is(err, domain.ErrDraftExists) {
			return nil, domain.NewInternalError("Failed to create draft", err)
		}
		// A concurrent save created the draft first; write into that one.
		logger.Get().Debug("SubmissionWriter: draft created concurrently, reloading",
			zap.String("user_id", userID), zap.String("questionnaire_id", questionnaireID))
		draft, err = w.submissions.FindDraft(ctx, userID, questionnaireID)
		if err != nil {
			return nil, domain.NewInternalError("Failed to load draft", err)
		}
		if draft == nil {
			return nil, domain.NewInternalError("Failed to create draft", domain.ErrDraftExists)
		}
	}
	draft.UpdatedAt = now
	if err := w.submissions.UpdateSubmission(ctx, draft); err != nil {
		return nil, domain.NewInternalError("Failed to update draft", err)
	}
	return draft, nil
}

func (w *submissionWriter) checkAttemptPolicy(ctx context.Context, q *domain.Questionnaire, userID string) error {
	if q.MaxAttempts > 0 {
		n, err := w.submissions.CountReadySubmissions(ctx, userID, q.ID)
		if err != nil {
			return domain.NewInternalError("Failed to count attempts", err)
		}
		if n >= q.MaxAttempts {
			return domain.NewMaxAttemptsExceededError(q.MaxAttempts)
		}
	}
	if q.RetakeCooldown > 0 {
		last, err := w.submissions.LastRejectedAt(ctx, userID, q.ID)
		if err != nil {
			return domain.NewInternalError("Failed to load previous attempt", err)
		}
		if last != nil {
			if wait := q.RetakeCooldown - w.now().Sub(*last); wait > 0 {
				return domain.NewRetakeCooldownError(int64(math.Ceil(wait.Seconds())))
			}
		}
	}
	return nil
}

// checkAnswers enforces the integrity rules that need the definition but not
// the database: foreign questions first, then option ownership and answer
// cardinality.
func checkAnswers(q *domain.Questionnaire, answers domain.AnswerSet) error {
	var foreign []string
	for id := range answers.AnsweredQuestionIDs() {
		if q.QuestionByID(id) == nil {
			foreign = append(foreign, id)
		}
	}
	if len(foreign) > 0 {
		sort.Strings(foreign)
		return domain.NewCrossQuestionnaireSubmissionError(foreign)
	}

	picked := make(map[string]map[string]bool)
	for _, c := range answers.Choices {
		question := q.QuestionByID(c.QuestionID)
		if !question.IsChoice() || question.Option(c.OptionID) == nil {
			return domain.NewInvalidOptionReferenceError(c.QuestionID, c.OptionID)
		}
		if picked[c.QuestionID] == nil {
			picked[c.QuestionID] = make(map[string]bool)
		}
		if picked[c.QuestionID][c.OptionID] {
			return domain.NewDuplicateAnswerError(c.QuestionID)
		}
		picked[c.QuestionID][c.OptionID] = true
		if !question.AllowMultipleAnswers && len(picked[c.QuestionID]) > 1 {
			return domain.NewMultipleAnswersNotAllowedError(c.QuestionID)
		}
	}

	texts := make(map[string]bool)
	for _, f := range answers.FreeTexts {
		question := q.QuestionByID(f.QuestionID)
		if !question.IsFreeText() {
			return domain.NewInvalidOptionReferenceError(f.QuestionID, "")
		}
		if texts[f.QuestionID] {
			return domain.NewDuplicateAnswerError(f.QuestionID)
		}
		texts[f.QuestionID] = true
	}
	return nil
}

func withSubmissionID(in []domain.ChoiceAnswer, submissionID string) []domain.ChoiceAnswer {
	out := make([]domain.ChoiceAnswer, len(in))
	for i, c := range in {
		c.SubmissionID = submissionID
		out[i] = c
	}
	return out
}

func withSubmissionIDText(in []domain.FreeTextAnswer, submissionID string) []domain.FreeTextAnswer {
	out := make([]domain.FreeTextAnswer, len(in))
	for i, f := range in {
		f.SubmissionID = submissionID
		out[i] = f
	}
	return out
}
