package seedmodels

import "questionnaire-engine/internal/dto"

// SeedQuestionnaire is one definition in the JSON seed file. The id is
// stable so re-running the seeder replaces rather than duplicates.
type SeedQuestionnaire struct {
	ID string `json:"id"`
	dto.QuestionnaireRequest
}
