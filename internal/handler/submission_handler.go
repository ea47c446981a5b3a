package handler

import (
	"questionnaire-engine/internal/domain"
	"questionnaire-engine/internal/dto"
	"questionnaire-engine/internal/logger"
	"questionnaire-engine/internal/middleware"
	"questionnaire-engine/internal/service"
	"questionnaire-engine/internal/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// SubmissionHandler handles answers, evaluation requests and reviews.
type SubmissionHandler struct {
	writer      service.SubmissionWriter
	evaluations service.EvaluationService
	dispatcher  service.EvaluationDispatcher
	validator   *validation.Validator
}

func NewSubmissionHandler(
	writer service.SubmissionWriter,
	evaluations service.EvaluationService,
	dispatcher service.EvaluationDispatcher,
) *SubmissionHandler {
	return &SubmissionHandler{
		writer:      writer,
		evaluations: evaluations,
		dispatcher:  dispatcher,
		validator:   validation.NewValidator(),
	}
}

// Submit handles POST /api/questionnaires/:id/submissions
func (h *SubmissionHandler) Submit(c *fiber.Ctx) error {
	var req dto.SubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if errors := h.validator.ValidateSubmitRequest(&req); len(errors) > 0 {
		return errors
	}

	s, err := h.writer.Submit(c.UserContext(), middleware.UserID(c), c.Params("id"), req.ToAnswerSet(), domain.SubmissionStatus(req.Status))
	if err != nil {
		return err
	}

	status := fiber.StatusOK
	if s.Status == domain.SubmissionStatusReady {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(dto.ToSubmissionResponse(s))
}

// RequestEvaluation handles POST /api/submissions/:id/evaluation. Scoring
// runs on the worker; this only queues it. With ?force=true the submission is
// rescored inline and a prior review decision is discarded.
func (h *SubmissionHandler) RequestEvaluation(c *fiber.Ctx) error {
	id := c.Params("id")
	if c.Query("force") == "true" {
		ev, err := h.evaluations.Reevaluate(c.UserContext(), id, middleware.UserID(c))
		if err != nil {
			return err
		}
		return c.JSON(dto.ToEvaluationResponse(ev))
	}
	if err := h.dispatcher.Enqueue(c.UserContext(), id); err != nil {
		logger.Get().Error("Failed to queue evaluation", zap.String("submission_id", id), zap.Error(err))
		return domain.NewInternalError("Failed to queue evaluation", err)
	}
	return c.Status(fiber.StatusAccepted).JSON(dto.EvaluationQueuedResponse{SubmissionID: id, Queued: true})
}

// GetEvaluation handles GET /api/submissions/:id/evaluation
func (h *SubmissionHandler) GetEvaluation(c *fiber.Ctx) error {
	viewer := domain.Viewer{
		UserID:     middleware.UserID(c),
		IsReviewer: middleware.Role(c) == dto.RoleReviewer,
	}
	ev, err := h.evaluations.GetEvaluation(c.UserContext(), c.Params("id"), viewer)
	if err != nil {
		return err
	}
	return c.JSON(dto.ToEvaluationResponse(ev))
}

// Review handles PUT /api/submissions/:id/evaluation/review
func (h *SubmissionHandler) Review(c *fiber.Ctx) error {
	var req dto.ReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if errors := h.validator.ValidateReviewRequest(&req); len(errors) > 0 {
		return errors
	}

	ev, err := h.evaluations.Review(c.UserContext(), domain.ReviewDecision{
		SubmissionID: c.Params("id"),
		ReviewerID:   middleware.UserID(c),
		Status:       domain.EvaluationStatus(req.Status),
		Score:        req.Score,
		Comments:     req.Comments,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.ToEvaluationResponse(ev))
}
