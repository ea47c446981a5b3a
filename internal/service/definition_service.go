package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"questionnaire-engine/internal/cache"
	"questionnaire-engine/internal/domain"
	"questionnaire-engine/internal/logger"
	"questionnaire-engine/internal/port"
	"questionnaire-engine/internal/util"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefinitionService is the definition store: it validates and persists
// questionnaire trees and serves them read-through a cache.
type DefinitionService interface {
	SaveQuestionnaire(ctx context.Context, q *domain.Questionnaire) (*domain.Questionnaire, error)
	GetQuestionnaire(ctx context.Context, id string) (*domain.Questionnaire, error)
}

type definitionService struct {
	repo     domain.QuestionnaireRepository
	tx       domain.TransactionManager
	cache    domain.Cache
	resolver port.EvaluatorResolver
	ttl      time.Duration
	group    singleflight.Group
}

// NewDefinitionService creates a definition store. cache may be nil, in which
// case every read goes to the repository.
func NewDefinitionService(
	repo domain.QuestionnaireRepository,
	tx domain.TransactionManager,
	cache domain.Cache,
	resolver port.EvaluatorResolver,
	ttl time.Duration,
) DefinitionService {
	return &definitionService{
		repo:     repo,
		tx:       tx,
		cache:    cache,
		resolver: resolver,
		ttl:      ttl,
	}
}

// SaveQuestionnaire validates the whole tree once and replaces the stored
// definition in one transaction.
func (s *definitionService) SaveQuestionnaire(ctx context.Context, q *domain.Questionnaire) (*domain.Questionnaire, error) {
	assignIDs(q)
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if !s.resolver.Known(q.EvaluatorBackend) {
		return nil, domain.NewInvalidDefinitionError(fmt.Sprintf("unknown evaluator backend %q", q.EvaluatorBackend))
	}

	now := time.Now()
	if q.CreatedAt.IsZero() {
		q.CreatedAt = now
	}
	q.UpdatedAt = now

	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.repo.SaveQuestionnaire(txCtx, q)
	})
	if err != nil {
		logger.Get().Error("DefinitionService: failed to save questionnaire",
			zap.String("questionnaire_id", q.ID), zap.Error(err))
		return nil, domain.NewInternalError("Failed to save questionnaire", err)
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, cache.QuestionnaireKey(q.ID)); err != nil {
			logger.Get().Warn("DefinitionService: failed to invalidate cached questionnaire",
				zap.String("questionnaire_id", q.ID), zap.Error(err))
		}
	}
	logger.Get().Info("DefinitionService: questionnaire saved",
		zap.String("questionnaire_id", q.ID),
		zap.Int("sections", len(q.Sections)),
		zap.Int("questions", len(q.Questions)))
	return q, nil
}

// GetQuestionnaire returns the definition tree. Concurrent misses for the same
// id share one repository load. The returned tree is shared and must not be
// mutated.
func (s *definitionService) GetQuestionnaire(ctx context.Context, id string) (*domain.Questionnaire, error) {
	key := cache.QuestionnaireKey(id)
	if q := s.fromCache(ctx, key); q != nil {
		return q, nil
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		q, err := s.repo.GetQuestionnaireByID(ctx, id)
		if err != nil {
			return nil, domain.NewInternalError("Failed to load questionnaire", err)
		}
		if q == nil {
			return nil, domain.NewQuestionnaireNotFoundError(id)
		}
		s.toCache(ctx, key, q)
		return q, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Questionnaire), nil
}

func (s *definitionService) fromCache(ctx context.Context, key string) *domain.Questionnaire {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			logger.Get().Warn("DefinitionService: cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil
	}
	var q domain.Questionnaire
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		logger.Get().Warn("DefinitionService: dropping undecodable cache entry", zap.String("key", key), zap.Error(err))
		return nil
	}
	return &q
}

func (s *definitionService) toCache(ctx context.Context, key string, q *domain.Questionnaire) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(q)
	if err != nil {
		logger.Get().Warn("DefinitionService: failed to encode questionnaire", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, key, string(raw), s.ttl); err != nil {
		logger.Get().Warn("DefinitionService: cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// assignIDs fills in ids the author left empty. Entities without an id cannot
// be the target of a dependency, so generating them never breaks a reference.
func assignIDs(q *domain.Questionnaire) {
	if q.ID == "" {
		q.ID = util.NewULID()
	}
	for _, s := range q.Sections {
		if s.ID == "" {
			s.ID = util.NewULID()
		}
		if s.QuestionnaireID == "" {
			s.QuestionnaireID = q.ID
		}
	}
	for _, question := range q.Questions {
		if question.ID == "" {
			question.ID = util.NewULID()
		}
		if question.QuestionnaireID == "" {
			question.QuestionnaireID = q.ID
		}
		for _, o := range question.Options {
			if o.ID == "" {
				o.ID = util.NewULID()
			}
			if o.QuestionID == "" {
				o.QuestionID = question.ID
			}
		}
	}
}
