package handler

import (
	"questionnaire-engine/internal/dto"
	"questionnaire-engine/internal/service"
	"questionnaire-engine/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// QuestionnaireHandler serves definitions and their presentation tree.
type QuestionnaireHandler struct {
	definitions service.DefinitionService
	builder     service.SubmissionBuilder
	validator   *validation.Validator
}

func NewQuestionnaireHandler(definitions service.DefinitionService, builder service.SubmissionBuilder) *QuestionnaireHandler {
	return &QuestionnaireHandler{
		definitions: definitions,
		builder:     builder,
		validator:   validation.NewValidator(),
	}
}

// SaveQuestionnaire handles PUT /api/questionnaires/:id
func (h *QuestionnaireHandler) SaveQuestionnaire(c *fiber.Ctx) error {
	var req dto.QuestionnaireRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if errors := h.validator.ValidateQuestionnaireRequest(&req); len(errors) > 0 {
		return errors
	}

	saved, err := h.definitions.SaveQuestionnaire(c.UserContext(), req.ToDomain(c.Params("id")))
	if err != nil {
		return err
	}
	return c.JSON(dto.QuestionnaireSavedResponse{ID: saved.ID, UpdatedAt: saved.UpdatedAt})
}

// GetTree handles GET /api/questionnaires/:id/tree
func (h *QuestionnaireHandler) GetTree(c *fiber.Ctx) error {
	tree, err := h.builder.Build(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(tree)
}
