package handler

import (
	"questionnaire-engine/internal/dto"
	"questionnaire-engine/internal/middleware"
	"questionnaire-engine/internal/service"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts the API under router. Every route needs a valid
// access token; authoring, evaluation requests and review also need the
// reviewer role.
func RegisterRoutes(router fiber.Router, authService service.AuthService, questionnaires *QuestionnaireHandler, submissions *SubmissionHandler) {
	vm := middleware.NewValidationMiddleware()
	reviewer := middleware.RequireRole(dto.RoleReviewer)
	validID := vm.ValidateIDParam("id")

	api := router.Group("", middleware.Protected(authService))

	api.Put("/questionnaires/:id", reviewer, validID, questionnaires.SaveQuestionnaire)
	api.Get("/questionnaires/:id/tree", validID, questionnaires.GetTree)
	api.Post("/questionnaires/:id/submissions", validID, submissions.Submit)

	api.Post("/submissions/:id/evaluation", reviewer, validID, submissions.RequestEvaluation)
	api.Get("/submissions/:id/evaluation", validID, submissions.GetEvaluation)
	api.Put("/submissions/:id/evaluation/review", reviewer, validID, submissions.Review)
}
