package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"questionnaire-engine/internal/domain"
	"questionnaire-engine/internal/port"
	"questionnaire-engine/internal/util"

	"github.com/stretchr/testify/mock"
)

// --- MockQuestionnaireRepository ---
type MockQuestionnaireRepository struct {
	mock.Mock
}

func (m *MockQuestionnaireRepository) GetQuestionnaireByID(ctx context.Context, id string) (*domain.Questionnaire, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Questionnaire), args.Error(1)
}

func (m *MockQuestionnaireRepository) SaveQuestionnaire(ctx context.Context, q *domain.Questionnaire) error {
	args := m.Called(ctx, q)
	return args.Error(0)
}

// --- MockCache ---
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	args := m.Called(ctx, key, value, expiration)
	return args.Error(0)
}

func (m *MockCache) SetNX(ctx context.Context, key string, value string, expiration time.Duration) (bool, error) {
	args := m.Called(ctx, key, value, expiration)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) CompareAndDelete(ctx context.Context, key string, value string) (bool, error) {
	args := m.Called(ctx, key, value)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCache) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- MockResolver ---
type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(backend string) (port.FreeTextEvaluator, error) {
	args := m.Called(backend)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(port.FreeTextEvaluator), args.Error(1)
}

func (m *MockResolver) Known(backend string) bool {
	args := m.Called(backend)
	return args.Bool(0)
}

func (m *MockResolver) Default() string {
	return "mock"
}

// --- MockFreeTextEvaluator ---
type MockFreeTextEvaluator struct {
	mock.Mock
}

func (m *MockFreeTextEvaluator) EvaluateBatch(ctx context.Context, items []domain.FreeTextItem, guidelines string) ([]domain.FreeTextVerdict, error) {
	args := m.Called(ctx, items, guidelines)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FreeTextVerdict), args.Error(1)
}

// --- MockLocker ---
type MockLocker struct {
	mock.Mock
	released int
}

func (m *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	args := m.Called(ctx, key, ttl)
	if !args.Bool(0) || args.Error(1) != nil {
		return nil, args.Bool(0), args.Error(1)
	}
	return func(context.Context) error {
		m.released++
		return nil
	}, true, nil
}

// --- MockTaskQueue ---
type MockTaskQueue struct {
	mock.Mock
}

func (m *MockTaskQueue) Enqueue(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockTaskQueue) Dequeue(ctx context.Context, timeout time.Duration) (string, error) {
	args := m.Called(ctx, timeout)
	return args.String(0), args.Error(1)
}

func (m *MockTaskQueue) Ack(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// --- MockEvaluationService ---
type MockEvaluationService struct {
	mock.Mock
}

func (m *MockEvaluationService) Evaluate(ctx context.Context, submissionID string) (*domain.Evaluation, error) {
	args := m.Called(ctx, submissionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Evaluation), args.Error(1)
}

func (m *MockEvaluationService) Review(ctx context.Context, d domain.ReviewDecision) (*domain.Evaluation, error) {
	args := m.Called(ctx, d)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Evaluation), args.Error(1)
}

func (m *MockEvaluationService) Reevaluate(ctx context.Context, submissionID, reviewerID string) (*domain.Evaluation, error) {
	args := m.Called(ctx, submissionID, reviewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Evaluation), args.Error(1)
}

func (m *MockEvaluationService) GetEvaluation(ctx context.Context, submissionID string, viewer domain.Viewer) (*domain.Evaluation, error) {
	args := m.Called(ctx, submissionID, viewer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Evaluation), args.Error(1)
}

// passthroughTx runs fn directly.
type passthroughTx struct{}

func (passthroughTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// staticDefinitions serves fixed trees.
type staticDefinitions map[string]*domain.Questionnaire

func (d staticDefinitions) SaveQuestionnaire(ctx context.Context, q *domain.Questionnaire) (*domain.Questionnaire, error) {
	d[q.ID] = q
	return q, nil
}

func (d staticDefinitions) GetQuestionnaire(ctx context.Context, id string) (*domain.Questionnaire, error) {
	q, ok := d[id]
	if !ok {
		return nil, domain.NewQuestionnaireNotFoundError(id)
	}
	return q, nil
}

// memStore is an in-memory submission and evaluation store.
type memStore struct {
	mu          sync.Mutex
	submissions map[string]*domain.Submission
	evaluations map[string]*domain.Evaluation
	upserts     int
}

func newMemStore() *memStore {
	return &memStore{
		submissions: make(map[string]*domain.Submission),
		evaluations: make(map[string]*domain.Evaluation),
	}
}

func (s *memStore) GetSubmissionByID(ctx context.Context, id string) (*domain.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.submissions[id]
	if !ok {
		return nil, nil
	}
	cp := *sub
	return &cp, nil
}

func (s *memStore) GetSubmissionForUpdate(ctx context.Context, id string) (*domain.Submission, error) {
	return s.GetSubmissionByID(ctx, id)
}

func (s *memStore) FindDraft(ctx context.Context, userID, questionnaireID string) (*domain.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.submissions {
		if sub.UserID == userID && sub.QuestionnaireID == questionnaireID && sub.Status == domain.SubmissionStatusDraft {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memStore) InsertSubmission(ctx context.Context, sub *domain.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub.Status == domain.SubmissionStatusDraft {
		for _, other := range s.submissions {
			if other.UserID == sub.UserID && other.QuestionnaireID == sub.QuestionnaireID && other.Status == domain.SubmissionStatusDraft {
				return domain.ErrDraftExists
			}
		}
	}
	if sub.ID == "" {
		sub.ID = util.NewULID()
	}
	cp := *sub
	s.submissions[sub.ID] = &cp
	return nil
}

// racingDraftStore hides drafts from the first lookup, as if another save
// committed its draft between that lookup and the insert.
type racingDraftStore struct {
	*memStore
	lookups int
}

func (s *racingDraftStore) FindDraft(ctx context.Context, userID, questionnaireID string) (*domain.Submission, error) {
	s.lookups++
	if s.lookups == 1 {
		return nil, nil
	}
	return s.memStore.FindDraft(ctx, userID, questionnaireID)
}

func (s *memStore) UpdateSubmission(ctx context.Context, sub *domain.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.submissions[sub.ID]
	stored.Status = sub.Status
	stored.SubmittedAt = sub.SubmittedAt
	stored.UpdatedAt = sub.UpdatedAt
	return nil
}

func (s *memStore) ReplaceAnswers(ctx context.Context, submissionID string, answers domain.AnswerSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.submissions[submissionID]
	stored.ChoiceAnswers = withSubmissionID(answers.Choices, submissionID)
	stored.FreeTextAnswers = withSubmissionIDText(answers.FreeTexts, submissionID)
	return nil
}

func (s *memStore) CountReadySubmissions(ctx context.Context, userID, questionnaireID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, sub := range s.submissions {
		if sub.UserID == userID && sub.QuestionnaireID == questionnaireID && sub.Status == domain.SubmissionStatusReady {
			n++
		}
	}
	return n, nil
}

func (s *memStore) LastRejectedAt(ctx context.Context, userID, questionnaireID string) (*time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ready []*domain.Submission
	for _, sub := range s.submissions {
		if sub.UserID == userID && sub.QuestionnaireID == questionnaireID && sub.Status == domain.SubmissionStatusReady {
			if _, evaluated := s.evaluations[sub.ID]; evaluated {
				ready = append(ready, sub)
			}
		}
	}
	if len(ready) == 0 {
		return nil, nil
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i].SubmittedAt.After(*ready[j].SubmittedAt) })
	latest := ready[0]
	if s.evaluations[latest.ID].Status != domain.EvaluationStatusRejected {
		return nil, nil
	}
	return latest.SubmittedAt, nil
}

func (s *memStore) GetEvaluationBySubmissionID(ctx context.Context, submissionID string) (*domain.Evaluation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.evaluations[submissionID]
	if !ok {
		return nil, nil
	}
	cp := *ev
	return &cp, nil
}

func (s *memStore) UpsertEvaluation(ctx context.Context, ev *domain.Evaluation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	cp := *ev
	s.evaluations[ev.SubmissionID] = &cp
	return nil
}

func (s *memStore) ApplyReview(ctx context.Context, d domain.ReviewDecision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev := s.evaluations[d.SubmissionID]
	ev.Status = d.Status
	ev.Score = *d.Score
	ev.Comments = d.Comments
	ev.EvaluatorID = d.ReviewerID
	ev.AutomaticallyEvaluated = false
	return nil
}

// --- fixtures ---

// fatalQuestionnaire has one mandatory single-choice fatal question worth 1
// point and requires a perfect score.
func fatalQuestionnaire(mode domain.EvaluationMode) *domain.Questionnaire {
	return &domain.Questionnaire{
		ID:             "qf",
		Name:           "Safety briefing",
		MinScore:       100,
		EvaluationMode: mode,
		Questions: []*domain.Question{
			{
				ID: "q1", QuestionnaireID: "qf", Kind: domain.QuestionKindChoice, Text: "Is it safe?",
				IsMandatory: true, IsFatal: true, PositiveWeight: 1,
				Options: []*domain.Option{
					{ID: "wrong", QuestionID: "q1", Text: "No idea", Order: 1},
					{ID: "right", QuestionID: "q1", Text: "Yes", IsCorrect: true, Order: 2},
				},
			},
		},
	}
}

// branchingQuestionnaire: section s1 (holding mandatory free-text q2) only
// applies when o1a of q1 is selected; q3 depends on o1b.
func branchingQuestionnaire() *domain.Questionnaire {
	return &domain.Questionnaire{
		ID:             "qb",
		Name:           "Membership",
		MinScore:       50,
		EvaluationMode: domain.EvaluationModeAutomatic,
		Guidelines:     "Be fair.",
		Sections: []*domain.Section{
			{ID: "s1", QuestionnaireID: "qb", Name: "Experience", Order: 1, DependsOnOptionID: "o1a"},
		},
		Questions: []*domain.Question{
			{
				ID: "q1", QuestionnaireID: "qb", Kind: domain.QuestionKindChoice, Text: "Been before?",
				IsMandatory: true, PositiveWeight: 1, Order: 1,
				Options: []*domain.Option{
					{ID: "o1a", QuestionID: "q1", Text: "Yes", Order: 1},
					{ID: "o1b", QuestionID: "q1", Text: "No", IsCorrect: true, Order: 2},
				},
			},
			{
				ID: "q2", QuestionnaireID: "qb", SectionID: "s1", Kind: domain.QuestionKindFreeText,
				Text: "Describe it", IsMandatory: true, PositiveWeight: 2, Order: 1,
				Guidelines: "keywords: music",
			},
			{
				ID: "q3", QuestionnaireID: "qb", Kind: domain.QuestionKindChoice, Text: "Pick all fruit",
				PositiveWeight: 1, NegativeWeight: -1, DependsOnOptionID: "o1b", Order: 2,
				AllowMultipleAnswers: true,
				Options: []*domain.Option{
					{ID: "o3a", QuestionID: "q3", Text: "Apple", IsCorrect: true, Order: 1},
					{ID: "o3b", QuestionID: "q3", Text: "Pear", IsCorrect: true, Order: 2},
					{ID: "o3c", QuestionID: "q3", Text: "Stone", Order: 3},
				},
			},
		},
	}
}
