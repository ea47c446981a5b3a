package service

import (
	"context"
	"errors"
	"time"

	"questionnaire-engine/internal/domain"
	"questionnaire-engine/internal/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// EvaluationDispatcher hands ready submissions to the evaluation worker.
type EvaluationDispatcher interface {
	Enqueue(ctx context.Context, submissionID string) error
}

type queueDispatcher struct {
	queue domain.TaskQueue
}

func NewEvaluationDispatcher(queue domain.TaskQueue) EvaluationDispatcher {
	return &queueDispatcher{queue: queue}
}

func (d *queueDispatcher) Enqueue(ctx context.Context, submissionID string) error {
	pushed, err := d.queue.Enqueue(ctx, submissionID)
	if err != nil {
		return err
	}
	if !pushed {
		logger.Get().Debug("EvaluationDispatcher: submission already queued", zap.String("submission_id", submissionID))
	}
	return nil
}

// EvaluationWorker drains the evaluation queue.
type EvaluationWorker struct {
	queue       domain.TaskQueue
	evaluations EvaluationService
	pollTimeout time.Duration
	workers     int
	retryDelay  time.Duration
}

func NewEvaluationWorker(queue domain.TaskQueue, evaluations EvaluationService, pollTimeout time.Duration, workers int) *EvaluationWorker {
	if workers < 1 {
		workers = 1
	}
	return &EvaluationWorker{
		queue:       queue,
		evaluations: evaluations,
		pollTimeout: pollTimeout,
		workers:     workers,
		retryDelay:  time.Second,
	}
}

// Run blocks until ctx is cancelled.
func (w *EvaluationWorker) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < w.workers; i++ {
		g.Go(func() error {
			for gctx.Err() == nil {
				w.poll(gctx)
			}
			return nil
		})
	}
	return g.Wait()
}

func (w *EvaluationWorker) poll(ctx context.Context) {
	id, err := w.queue.Dequeue(ctx, w.pollTimeout)
	if err != nil {
		if errors.Is(err, domain.ErrQueueEmpty) || ctx.Err() != nil {
			return
		}
		logger.Get().Error("EvaluationWorker: dequeue failed", zap.Error(err))
		w.sleep(ctx)
		return
	}
	w.Process(ctx, id)
}

// Process evaluates one queued submission. Evaluator failures put the id back
// on the queue; every other outcome is final.
func (w *EvaluationWorker) Process(ctx context.Context, submissionID string) {
	_, evalErr := w.evaluations.Evaluate(ctx, submissionID)

	if err := w.queue.Ack(ctx, submissionID); err != nil {
		logger.Get().Warn("EvaluationWorker: ack failed", zap.String("submission_id", submissionID), zap.Error(err))
	}
	switch {
	case evalErr == nil:
	case domain.HasCode(evalErr, domain.ErrEvaluatorError):
		logger.Get().Warn("EvaluationWorker: evaluator unavailable, requeueing",
			zap.String("submission_id", submissionID), zap.Error(evalErr))
		w.sleep(ctx)
		if _, err := w.queue.Enqueue(ctx, submissionID); err != nil {
			logger.Get().Error("EvaluationWorker: requeue failed", zap.String("submission_id", submissionID), zap.Error(err))
		}
	case domain.HasCode(evalErr, domain.ErrEvaluationInProgress):
		logger.Get().Debug("EvaluationWorker: evaluation already running", zap.String("submission_id", submissionID))
	case domain.HasCode(evalErr, domain.ErrEvaluationReviewed):
		logger.Get().Info("EvaluationWorker: evaluation already reviewed, skipping", zap.String("submission_id", submissionID))
	default:
		logger.Get().Error("EvaluationWorker: dropping submission",
			zap.String("submission_id", submissionID), zap.Error(evalErr))
	}
}

func (w *EvaluationWorker) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(w.retryDelay):
	}
}
