package service

import (
	"context"
	"errors"
	"time"

	"questionnaire-engine/internal/cache"
	"questionnaire-engine/internal/domain"
	"questionnaire-engine/internal/logger"
	"questionnaire-engine/internal/port"

	"go.uber.org/zap"
)

// EvaluationService scores ready submissions and applies reviewer overrides.
type EvaluationService interface {
	// Evaluate refuses to replace an evaluation a reviewer already decided.
	Evaluate(ctx context.Context, submissionID string) (*domain.Evaluation, error)
	// Reevaluate rescores on behalf of reviewerID and discards any prior
	// review decision.
	Reevaluate(ctx context.Context, submissionID, reviewerID string) (*domain.Evaluation, error)
	Review(ctx context.Context, d domain.ReviewDecision) (*domain.Evaluation, error)
	GetEvaluation(ctx context.Context, submissionID string, viewer domain.Viewer) (*domain.Evaluation, error)
}

type evaluationService struct {
	definitions DefinitionService
	submissions domain.SubmissionRepository
	evaluations domain.EvaluationRepository
	tx          domain.TransactionManager
	resolver    port.EvaluatorResolver
	locker      domain.Locker
	lockTTL     time.Duration
}

// NewEvaluationService creates the scoring evaluator. A nil locker leaves
// coordination of concurrent evaluations to the caller.
func NewEvaluationService(
	definitions DefinitionService,
	submissions domain.SubmissionRepository,
	evaluations domain.EvaluationRepository,
	tx domain.TransactionManager,
	resolver port.EvaluatorResolver,
	locker domain.Locker,
	lockTTL time.Duration,
) EvaluationService {
	return &evaluationService{
		definitions: definitions,
		submissions: submissions,
		evaluations: evaluations,
		tx:          tx,
		resolver:    resolver,
		locker:      locker,
		lockTTL:     lockTTL,
	}
}

// Evaluate scores a ready submission and upserts its evaluation. Running it
// twice on unchanged answers yields the same score and proposed status.
func (s *evaluationService) Evaluate(ctx context.Context, submissionID string) (*domain.Evaluation, error) {
	return s.evaluate(ctx, submissionID, "")
}

func (s *evaluationService) Reevaluate(ctx context.Context, submissionID, reviewerID string) (*domain.Evaluation, error) {
	if reviewerID == "" {
		return nil, domain.NewInvalidInputError("reviewer is required")
	}
	return s.evaluate(ctx, submissionID, reviewerID)
}

// evaluate keeps a reviewed evaluation unless forcedBy names the reviewer
// asking for the rescore.
func (s *evaluationService) evaluate(ctx context.Context, submissionID, forcedBy string) (*domain.Evaluation, error) {
	if s.locker != nil {
		release, ok, err := s.locker.TryLock(ctx, cache.EvaluationLockKey(submissionID), s.lockTTL)
		if err != nil {
			return nil, domain.NewInternalError("Failed to acquire evaluation lock", err)
		}
		if !ok {
			return nil, domain.NewEvaluationInProgressError(submissionID)
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				logger.Get().Warn("EvaluationService: failed to release evaluation lock",
					zap.String("submission_id", submissionID), zap.Error(err))
			}
		}()
	}

	var result *domain.Evaluation
	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		sub, err := s.submissions.GetSubmissionForUpdate(txCtx, submissionID)
		if err != nil {
			return domain.NewInternalError("Failed to load submission", err)
		}
		if sub == nil {
			return domain.NewSubmissionNotFoundError(submissionID)
		}
		if sub.Status != domain.SubmissionStatusReady {
			return domain.NewSubmissionInDraftError(submissionID)
		}

		if forcedBy == "" {
			existing, err := s.evaluations.GetEvaluationBySubmissionID(txCtx, submissionID)
			if err != nil {
				return domain.NewInternalError("Failed to load evaluation", err)
			}
			if existing != nil && existing.EvaluatorID != "" {
				return domain.NewEvaluationReviewedError(submissionID, existing.EvaluatorID)
			}
		}

		q, err := s.definitions.GetQuestionnaire(txCtx, sub.QuestionnaireID)
		if err != nil {
			return err
		}

		ev, err := s.score(txCtx, q, sub)
		if err != nil {
			return err
		}
		if err := s.evaluations.UpsertEvaluation(txCtx, ev); err != nil {
			return domain.NewInternalError("Failed to save evaluation", err)
		}
		result = ev
		return nil
	})
	if err != nil {
		var de *domain.DomainError
		if !errors.As(err, &de) {
			err = domain.NewInternalError("Failed to evaluate submission", err)
		}
		if domain.HasCode(err, domain.ErrEvaluationReviewed) {
			logger.Get().Info("EvaluationService: keeping reviewed evaluation",
				zap.String("submission_id", submissionID))
			return nil, err
		}
		logger.Get().Error("EvaluationService: evaluation failed",
			zap.String("submission_id", submissionID), zap.Error(err))
		return nil, err
	}

	logger.Get().Info("EvaluationService: submission evaluated",
		zap.String("submission_id", submissionID),
		zap.String("forced_by", forcedBy),
		zap.Float64("score", result.Score),
		zap.String("proposed_status", string(result.ProposedStatus)),
		zap.String("status", string(result.Status)))
	return result, nil
}

// score runs the mandatory gate, choice scoring and, unless the gate already
// failed, one batched free-text call.
func (s *evaluationService) score(ctx context.Context, q *domain.Questionnaire, sub *domain.Submission) (*domain.Evaluation, error) {
	sc := domain.NewScoreCard(q)
	applicable := domain.ResolveApplicability(q, sub.SelectedOptionIDs())
	sc.Missing = domain.MissingMandatory(q, applicable, sub.AnsweredQuestionIDs())

	selected := sub.ChoicesByQuestion()
	for _, question := range q.Questions {
		options, answered := selected[question.ID]
		if !question.IsChoice() || !answered {
			continue
		}
		sc.Apply(question, domain.IsChoiceCorrect(question, options))
	}

	backend := q.EvaluatorBackend
	if backend == "" {
		backend = s.resolver.Default()
	}
	audit := domain.EvaluationAudit{MissingMandatory: sc.Missing, EvaluatorBackend: backend}

	if !sc.GateFailed() && len(sub.FreeTextAnswers) > 0 {
		verdicts, unscored, err := s.scoreFreeText(ctx, q, sub, sc)
		if err != nil {
			return nil, err
		}
		audit.FreeTextVerdicts = verdicts
		audit.UnscoredQuestionIDs = unscored
	}

	audit.ChoicePointsScored = sc.ChoicePoints
	audit.ChoiceMaxPoints = sc.ChoiceMax
	audit.FreeTextPointsScored = sc.FreeTextPoints
	audit.FreeTextMaxPoints = sc.FreeTextMax
	audit.FatalQuestionIDs = sc.FatalQuestions

	score := sc.Score()
	ev := &domain.Evaluation{
		SubmissionID:   sub.ID,
		Score:          score,
		ProposedStatus: domain.Propose(score, q.MinScore),
		Audit:          audit,
	}
	if q.EvaluationMode == domain.EvaluationModeAutomatic {
		ev.Status = ev.ProposedStatus
		ev.AutomaticallyEvaluated = true
	} else {
		ev.Status = domain.EvaluationStatusPendingReview
	}
	return ev, nil
}

func (s *evaluationService) scoreFreeText(
	ctx context.Context,
	q *domain.Questionnaire,
	sub *domain.Submission,
	sc *domain.ScoreCard,
) ([]domain.FreeTextVerdict, []string, error) {
	evaluator, err := s.resolver.Resolve(q.EvaluatorBackend)
	if err != nil {
		return nil, nil, domain.NewEvaluatorError(err)
	}

	items := make([]domain.FreeTextItem, 0, len(sub.FreeTextAnswers))
	questions := make(map[string]*domain.Question, len(sub.FreeTextAnswers))
	for _, a := range sub.FreeTextAnswers {
		question := q.QuestionByID(a.QuestionID)
		if question == nil || !question.IsFreeText() {
			continue
		}
		questions[question.ID] = question
		items = append(items, domain.FreeTextItem{
			QuestionID:   question.ID,
			QuestionText: question.Text,
			AnswerText:   a.Text,
			Guidelines:   question.MergedGuidelines(q.Guidelines),
		})
	}
	if len(items) == 0 {
		return nil, nil, nil
	}

	verdicts, err := evaluator.EvaluateBatch(ctx, items, q.Guidelines)
	if err != nil {
		return nil, nil, domain.NewEvaluatorError(err)
	}

	byID := make(map[string]domain.FreeTextVerdict, len(verdicts))
	for _, v := range verdicts {
		if _, ok := questions[v.QuestionID]; ok {
			byID[v.QuestionID] = v
		}
	}
	kept := make([]domain.FreeTextVerdict, 0, len(items))
	var unscored []string
	for _, item := range items {
		v, ok := byID[item.QuestionID]
		if !ok {
			unscored = append(unscored, item.QuestionID)
			continue
		}
		kept = append(kept, v)
		sc.Apply(questions[item.QuestionID], v.IsPassing)
	}
	if len(unscored) > 0 {
		// Degraded scoring: a missing verdict scores zero instead of failing
		// the run.
		logger.Get().Warn("EvaluationService: evaluator returned no verdict for some answers",
			zap.String("submission_id", sub.ID),
			zap.Strings("unscored_question_ids", unscored))
	}
	return kept, unscored, nil
}

// Review overrides status, score and comments. Proposed status and the audit
// stay as computed.
func (s *evaluationService) Review(ctx context.Context, d domain.ReviewDecision) (*domain.Evaluation, error) {
	if !d.Status.IsDecision() {
		return nil, domain.NewInvalidInputError("review status must be approved or rejected")
	}
	if d.ReviewerID == "" {
		return nil, domain.NewInvalidInputError("reviewer is required")
	}

	var result *domain.Evaluation
	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		ev, err := s.evaluations.GetEvaluationBySubmissionID(txCtx, d.SubmissionID)
		if err != nil {
			return domain.NewInternalError("Failed to load evaluation", err)
		}
		if ev == nil {
			return domain.NewEvaluationNotFoundError(d.SubmissionID)
		}
		if d.Score == nil {
			score := ev.Score
			d.Score = &score
		}
		if err := s.evaluations.ApplyReview(txCtx, d); err != nil {
			return domain.NewInternalError("Failed to apply review", err)
		}
		ev.Status = d.Status
		ev.Score = *d.Score
		ev.Comments = d.Comments
		ev.EvaluatorID = d.ReviewerID
		ev.AutomaticallyEvaluated = false
		ev.UpdatedAt = time.Now()
		result = ev
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Get().Info("EvaluationService: evaluation reviewed",
		zap.String("submission_id", d.SubmissionID),
		zap.String("reviewer_id", d.ReviewerID),
		zap.String("status", string(d.Status)))
	return result, nil
}

// GetEvaluation returns the evaluation to a reviewer or to the owner of the
// submission. Other callers get ErrForbidden.
func (s *evaluationService) GetEvaluation(ctx context.Context, submissionID string, viewer domain.Viewer) (*domain.Evaluation, error) {
	if !viewer.IsReviewer {
		sub, err := s.submissions.GetSubmissionByID(ctx, submissionID)
		if err != nil {
			return nil, domain.NewInternalError("Failed to load submission", err)
		}
		if sub == nil {
			return nil, domain.NewSubmissionNotFoundError(submissionID)
		}
		if sub.UserID != viewer.UserID {
			logger.Get().Warn("EvaluationService: evaluation read denied",
				zap.String("submission_id", submissionID), zap.String("user_id", viewer.UserID))
			return nil, domain.NewForbiddenError("Evaluation belongs to another user")
		}
	}

	ev, err := s.evaluations.GetEvaluationBySubmissionID(ctx, submissionID)
	if err != nil {
		return nil, domain.NewInternalError("Failed to load evaluation", err)
	}
	if ev == nil {
		return nil, domain.NewEvaluationNotFoundError(submissionID)
	}
	return ev, nil
}
