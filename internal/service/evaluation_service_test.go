package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"questionnaire-engine/internal/cache"
	"questionnaire-engine/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type evaluationFixture struct {
	store     *memStore
	resolver  *MockResolver
	evaluator *MockFreeTextEvaluator
	svc       EvaluationService
}

func newEvaluationFixture(qs ...*domain.Questionnaire) *evaluationFixture {
	defs := staticDefinitions{}
	for _, q := range qs {
		defs[q.ID] = q
	}
	f := &evaluationFixture{
		store:     newMemStore(),
		resolver:  new(MockResolver),
		evaluator: new(MockFreeTextEvaluator),
	}
	f.resolver.On("Resolve", mock.Anything).Return(f.evaluator, nil).Maybe()
	f.svc = NewEvaluationService(defs, f.store, f.store, passthroughTx{}, f.resolver, nil, time.Minute)
	return f
}

func (f *evaluationFixture) ready(id, questionnaireID string, answers domain.AnswerSet) {
	now := time.Now()
	f.store.submissions[id] = &domain.Submission{
		ID:              id,
		QuestionnaireID: questionnaireID,
		UserID:          "u1",
		Status:          domain.SubmissionStatusReady,
		SubmittedAt:     &now,
		ChoiceAnswers:   withSubmissionID(answers.Choices, id),
		FreeTextAnswers: withSubmissionIDText(answers.FreeTexts, id),
	}
}

func TestEvaluate_FatalWrongAnswerForcesFail(t *testing.T) {
	f := newEvaluationFixture(fatalQuestionnaire(domain.EvaluationModeAutomatic))
	f.ready("s1", "qf", domain.AnswerSet{Choices: choices("q1", "wrong")})

	ev, err := f.svc.Evaluate(context.Background(), "s1")
	require.NoError(t, err)

	assert.Equal(t, domain.ForcedFailScore, ev.Score)
	assert.Equal(t, domain.EvaluationStatusRejected, ev.ProposedStatus)
	assert.Equal(t, domain.EvaluationStatusRejected, ev.Status)
	assert.True(t, ev.AutomaticallyEvaluated)
	assert.Equal(t, []string{"q1"}, ev.Audit.FatalQuestionIDs)
	assert.Equal(t, 1.0, ev.Audit.ChoiceMaxPoints)
}

func TestEvaluate_CorrectAnswerApproves(t *testing.T) {
	f := newEvaluationFixture(fatalQuestionnaire(domain.EvaluationModeAutomatic))
	f.ready("s1", "qf", domain.AnswerSet{Choices: choices("q1", "right")})

	ev, err := f.svc.Evaluate(context.Background(), "s1")
	require.NoError(t, err)

	assert.Equal(t, 100.0, ev.Score)
	assert.Equal(t, domain.EvaluationStatusApproved, ev.Status)
	assert.Equal(t, domain.EvaluationStatusApproved, ev.ProposedStatus)
	assert.Equal(t, "mock", ev.Audit.EvaluatorBackend)
	f.resolver.AssertNotCalled(t, "Resolve", mock.Anything)
}

func TestEvaluate_ReviewModesWaitForHuman(t *testing.T) {
	for _, mode := range []domain.EvaluationMode{domain.EvaluationModeManual, domain.EvaluationModeHybrid} {
		t.Run(string(mode), func(t *testing.T) {
			f := newEvaluationFixture(fatalQuestionnaire(mode))
			f.ready("s1", "qf", domain.AnswerSet{Choices: choices("q1", "right")})

			ev, err := f.svc.Evaluate(context.Background(), "s1")
			require.NoError(t, err)
			assert.Equal(t, domain.EvaluationStatusPendingReview, ev.Status)
			assert.Equal(t, domain.EvaluationStatusApproved, ev.ProposedStatus)
			assert.False(t, ev.AutomaticallyEvaluated)
		})
	}
}

func TestEvaluate_IsIdempotent(t *testing.T) {
	f := newEvaluationFixture(branchingQuestionnaire())
	f.ready("s1", "qb", domain.AnswerSet{Choices: choices("q1", "o1b", "q3", "o3a", "q3", "o3b")})
	ctx := context.Background()

	first, err := f.svc.Evaluate(ctx, "s1")
	require.NoError(t, err)
	second, err := f.svc.Evaluate(ctx, "s1")
	require.NoError(t, err)

	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, first.ProposedStatus, second.ProposedStatus)
	assert.Equal(t, 2, f.store.upserts)
	assert.Len(t, f.store.evaluations, 1)
	// 2 of 4 points: q1 and q3 correct, free-text q2 unanswered but inapplicable
	assert.Equal(t, 50.0, first.Score)
	assert.Equal(t, domain.EvaluationStatusApproved, first.Status)
}

func TestEvaluate_IncompleteMultiSelectIsPenalised(t *testing.T) {
	f := newEvaluationFixture(branchingQuestionnaire())
	f.ready("s1", "qb", domain.AnswerSet{Choices: choices("q1", "o1b", "q3", "o3a")})

	ev, err := f.svc.Evaluate(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, ev.Audit.ChoicePointsScored)
	assert.Equal(t, 0.0, ev.Score)
	assert.Equal(t, domain.EvaluationStatusRejected, ev.Status)
}

func TestEvaluate_FreeTextBatch(t *testing.T) {
	f := newEvaluationFixture(branchingQuestionnaire())
	f.ready("s1", "qb", domain.AnswerSet{
		Choices:   choices("q1", "o1a"),
		FreeTexts: []domain.FreeTextAnswer{{QuestionID: "q2", Text: "great music"}},
	})

	expected := []domain.FreeTextItem{{
		QuestionID: "q2", QuestionText: "Describe it", AnswerText: "great music", Guidelines: "keywords: music",
	}}
	f.evaluator.On("EvaluateBatch", mock.Anything, expected, "Be fair.").
		Return([]domain.FreeTextVerdict{{QuestionID: "q2", IsPassing: true, Explanation: "mentions music"}}, nil)

	ev, err := f.svc.Evaluate(context.Background(), "s1")
	require.NoError(t, err)

	// q1 wrong (no penalty), q2 passes: 2 of 4 points
	assert.Equal(t, 50.0, ev.Score)
	assert.Equal(t, 2.0, ev.Audit.FreeTextPointsScored)
	assert.Equal(t, 2.0, ev.Audit.FreeTextMaxPoints)
	require.Len(t, ev.Audit.FreeTextVerdicts, 1)
	assert.Equal(t, "mentions music", ev.Audit.FreeTextVerdicts[0].Explanation)
	f.evaluator.AssertExpectations(t)
}

func TestEvaluate_MissingVerdictLeavesAnswerUnscored(t *testing.T) {
	f := newEvaluationFixture(branchingQuestionnaire())
	f.ready("s1", "qb", domain.AnswerSet{
		Choices:   choices("q1", "o1a"),
		FreeTexts: []domain.FreeTextAnswer{{QuestionID: "q2", Text: "something"}},
	})
	f.evaluator.On("EvaluateBatch", mock.Anything, mock.Anything, mock.Anything).
		Return([]domain.FreeTextVerdict{{QuestionID: "unknown", IsPassing: true}}, nil)

	ev, err := f.svc.Evaluate(context.Background(), "s1")
	require.NoError(t, err)

	assert.Equal(t, []string{"q2"}, ev.Audit.UnscoredQuestionIDs)
	assert.Equal(t, 0.0, ev.Audit.FreeTextPointsScored)
	assert.Empty(t, ev.Audit.FreeTextVerdicts)
	assert.Equal(t, 0.0, ev.Score)
}

func TestEvaluate_EvaluatorFailureCommitsNothing(t *testing.T) {
	f := newEvaluationFixture(branchingQuestionnaire())
	f.ready("s1", "qb", domain.AnswerSet{
		Choices:   choices("q1", "o1a"),
		FreeTexts: []domain.FreeTextAnswer{{QuestionID: "q2", Text: "something"}},
	})
	f.evaluator.On("EvaluateBatch", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("model call failed after 4 attempt(s)"))

	_, err := f.svc.Evaluate(context.Background(), "s1")
	assert.True(t, domain.HasCode(err, domain.ErrEvaluatorError))
	assert.Empty(t, f.store.evaluations)
}

func TestEvaluate_MandatoryGateSkipsFreeText(t *testing.T) {
	f := newEvaluationFixture(branchingQuestionnaire())
	// q2 became applicable through o1a but was left unanswered
	f.ready("s1", "qb", domain.AnswerSet{Choices: choices("q1", "o1a")})

	ev, err := f.svc.Evaluate(context.Background(), "s1")
	require.NoError(t, err)

	assert.Equal(t, domain.ForcedFailScore, ev.Score)
	assert.Equal(t, []string{"q2"}, ev.Audit.MissingMandatory)
	f.evaluator.AssertNotCalled(t, "EvaluateBatch", mock.Anything, mock.Anything, mock.Anything)
}

func TestEvaluate_FatalChoiceSkipsFreeText(t *testing.T) {
	q := branchingQuestionnaire()
	q.QuestionByID("q1").IsFatal = true
	f := newEvaluationFixture(q)
	f.ready("s1", "qb", domain.AnswerSet{
		Choices:   choices("q1", "o1a"),
		FreeTexts: []domain.FreeTextAnswer{{QuestionID: "q2", Text: "something"}},
	})

	ev, err := f.svc.Evaluate(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.ForcedFailScore, ev.Score)
	f.evaluator.AssertNotCalled(t, "EvaluateBatch", mock.Anything, mock.Anything, mock.Anything)
}

func TestEvaluate_Preconditions(t *testing.T) {
	f := newEvaluationFixture(fatalQuestionnaire(domain.EvaluationModeAutomatic))
	f.store.submissions["d1"] = &domain.Submission{ID: "d1", QuestionnaireID: "qf", UserID: "u1", Status: domain.SubmissionStatusDraft}
	ctx := context.Background()

	_, err := f.svc.Evaluate(ctx, "d1")
	assert.True(t, domain.HasCode(err, domain.ErrSubmissionInDraft))

	_, err = f.svc.Evaluate(ctx, "missing")
	assert.True(t, domain.HasCode(err, domain.ErrSubmissionNotFound))
}

func TestEvaluate_Lock(t *testing.T) {
	store := newMemStore()
	locker := new(MockLocker)
	defs := staticDefinitions{"qf": fatalQuestionnaire(domain.EvaluationModeAutomatic)}
	svc := NewEvaluationService(defs, store, store, passthroughTx{}, new(MockResolver), locker, 30*time.Second)
	now := time.Now()
	store.submissions["s1"] = &domain.Submission{
		ID: "s1", QuestionnaireID: "qf", Status: domain.SubmissionStatusReady, SubmittedAt: &now,
		ChoiceAnswers: choices("q1", "right"),
	}
	key := cache.EvaluationLockKey("s1")

	locker.On("TryLock", mock.Anything, key, 30*time.Second).Return(true, nil).Once()
	_, err := svc.Evaluate(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, locker.released)

	locker.On("TryLock", mock.Anything, key, 30*time.Second).Return(false, nil).Once()
	_, err = svc.Evaluate(context.Background(), "s1")
	assert.True(t, domain.HasCode(err, domain.ErrEvaluationInProgress))
}

func TestReview_OverridesWithoutTouchingAudit(t *testing.T) {
	f := newEvaluationFixture(fatalQuestionnaire(domain.EvaluationModeHybrid))
	f.ready("s1", "qf", domain.AnswerSet{Choices: choices("q1", "wrong")})
	ctx := context.Background()

	scored, err := f.svc.Evaluate(ctx, "s1")
	require.NoError(t, err)

	reviewed, err := f.svc.Review(ctx, domain.ReviewDecision{
		SubmissionID: "s1", ReviewerID: "rev", Status: domain.EvaluationStatusApproved, Comments: "discussed in person",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.EvaluationStatusApproved, reviewed.Status)
	assert.Equal(t, scored.Score, reviewed.Score)
	assert.Equal(t, domain.EvaluationStatusRejected, reviewed.ProposedStatus)
	assert.False(t, reviewed.AutomaticallyEvaluated)
	assert.Equal(t, "rev", reviewed.EvaluatorID)
	assert.Equal(t, scored.Audit, reviewed.Audit)

	stored := f.store.evaluations["s1"]
	assert.Equal(t, domain.EvaluationStatusApproved, stored.Status)
	assert.Equal(t, scored.Audit, stored.Audit)

	score := 80.0
	reviewed, err = f.svc.Review(ctx, domain.ReviewDecision{
		SubmissionID: "s1", ReviewerID: "rev", Status: domain.EvaluationStatusRejected, Score: &score,
	})
	require.NoError(t, err)
	assert.Equal(t, 80.0, reviewed.Score)
}

func TestReview_Rejects(t *testing.T) {
	f := newEvaluationFixture()
	ctx := context.Background()

	_, err := f.svc.Review(ctx, domain.ReviewDecision{SubmissionID: "s1", ReviewerID: "rev", Status: domain.EvaluationStatusPendingReview})
	assert.True(t, domain.HasCode(err, domain.ErrInvalidInput))

	_, err = f.svc.Review(ctx, domain.ReviewDecision{SubmissionID: "s1", ReviewerID: "rev", Status: domain.EvaluationStatusApproved})
	assert.True(t, domain.HasCode(err, domain.ErrEvaluationNotFound))

	_, err = f.svc.GetEvaluation(ctx, "s1", domain.Viewer{UserID: "rev", IsReviewer: true})
	assert.True(t, domain.HasCode(err, domain.ErrEvaluationNotFound))
}

// A rescore after a human decision must not reset status, reviewer and
// comments back to the automatic proposal.
func TestEvaluate_KeepsReviewedEvaluation(t *testing.T) {
	f := newEvaluationFixture(fatalQuestionnaire(domain.EvaluationModeHybrid))
	f.ready("s1", "qf", domain.AnswerSet{Choices: choices("q1", "wrong")})
	ctx := context.Background()

	_, err := f.svc.Evaluate(ctx, "s1")
	require.NoError(t, err)
	_, err = f.svc.Review(ctx, domain.ReviewDecision{
		SubmissionID: "s1", ReviewerID: "rev", Status: domain.EvaluationStatusApproved, Comments: "ok after call",
	})
	require.NoError(t, err)

	_, err = f.svc.Evaluate(ctx, "s1")
	assert.True(t, domain.HasCode(err, domain.ErrEvaluationReviewed))

	stored := f.store.evaluations["s1"]
	assert.Equal(t, domain.EvaluationStatusApproved, stored.Status)
	assert.Equal(t, "rev", stored.EvaluatorID)
	assert.Equal(t, "ok after call", stored.Comments)
	assert.Equal(t, 1, f.store.upserts)
}

func TestReevaluate_ReplacesReviewedEvaluation(t *testing.T) {
	f := newEvaluationFixture(fatalQuestionnaire(domain.EvaluationModeHybrid))
	f.ready("s1", "qf", domain.AnswerSet{Choices: choices("q1", "wrong")})
	ctx := context.Background()

	_, err := f.svc.Evaluate(ctx, "s1")
	require.NoError(t, err)
	_, err = f.svc.Review(ctx, domain.ReviewDecision{
		SubmissionID: "s1", ReviewerID: "rev", Status: domain.EvaluationStatusApproved,
	})
	require.NoError(t, err)

	_, err = f.svc.Reevaluate(ctx, "s1", "")
	assert.True(t, domain.HasCode(err, domain.ErrInvalidInput))

	ev, err := f.svc.Reevaluate(ctx, "s1", "rev2")
	require.NoError(t, err)
	assert.Equal(t, domain.EvaluationStatusPendingReview, ev.Status)
	assert.Empty(t, ev.EvaluatorID)

	stored := f.store.evaluations["s1"]
	assert.Equal(t, domain.EvaluationStatusPendingReview, stored.Status)
	assert.Empty(t, stored.EvaluatorID)
	assert.Equal(t, 2, f.store.upserts)
}

func TestGetEvaluation_OwnerOrReviewer(t *testing.T) {
	f := newEvaluationFixture(fatalQuestionnaire(domain.EvaluationModeAutomatic))
	f.ready("s1", "qf", domain.AnswerSet{Choices: choices("q1", "right")})
	ctx := context.Background()
	_, err := f.svc.Evaluate(ctx, "s1")
	require.NoError(t, err)

	ev, err := f.svc.GetEvaluation(ctx, "s1", domain.Viewer{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "s1", ev.SubmissionID)

	_, err = f.svc.GetEvaluation(ctx, "s1", domain.Viewer{UserID: "u2"})
	assert.True(t, domain.HasCode(err, domain.ErrForbidden))

	ev, err = f.svc.GetEvaluation(ctx, "s1", domain.Viewer{UserID: "rev", IsReviewer: true})
	require.NoError(t, err)
	assert.Equal(t, "s1", ev.SubmissionID)

	_, err = f.svc.GetEvaluation(ctx, "missing", domain.Viewer{UserID: "u1"})
	assert.True(t, domain.HasCode(err, domain.ErrSubmissionNotFound))
}
