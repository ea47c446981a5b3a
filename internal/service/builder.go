package service

import (
	"context"
	"math/rand/v2"

	"questionnaire-engine/internal/domain"
	"questionnaire-engine/internal/dto"
	"questionnaire-engine/internal/logger"

	"go.uber.org/zap"
)

// ShuffleFunc permutes n elements through swap, like rand.Shuffle.
type ShuffleFunc func(n int, swap func(i, j int))

// SubmissionBuilder renders the full question tree for presentation.
type SubmissionBuilder interface {
	Build(ctx context.Context, questionnaireID string) (*dto.QuestionnaireTreeResponse, error)
}

type submissionBuilder struct {
	definitions DefinitionService
	shuffle     ShuffleFunc
}

// NewSubmissionBuilder creates a builder. A nil shuffle uses math/rand/v2, so
// every render of a shuffled questionnaire may differ.
func NewSubmissionBuilder(definitions DefinitionService, shuffle ShuffleFunc) SubmissionBuilder {
	if shuffle == nil {
		shuffle = rand.Shuffle
	}
	return &submissionBuilder{definitions: definitions, shuffle: shuffle}
}

// Build returns every section and question, conditional ones included. The
// client hides inapplicable content; the writer re-derives applicability.
func (b *submissionBuilder) Build(ctx context.Context, questionnaireID string) (*dto.QuestionnaireTreeResponse, error) {
	q, err := b.definitions.GetQuestionnaire(ctx, questionnaireID)
	if err != nil {
		return nil, err
	}

	tree := &dto.QuestionnaireTreeResponse{
		ID:             q.ID,
		Name:           q.Name,
		EvaluationMode: string(q.EvaluationMode),
		Guidelines:     q.Guidelines,
		Questions:      b.questions(q, ""),
		Sections:       make([]dto.SectionView, 0, len(q.Sections)),
	}
	for _, s := range q.SortedSections() {
		tree.Sections = append(tree.Sections, dto.SectionView{
			ID:                s.ID,
			Name:              s.Name,
			Description:       s.Description,
			Order:             s.Order,
			DependsOnOptionID: s.DependsOnOptionID,
			Questions:         b.questions(q, s.ID),
		})
	}
	if q.ShuffleSections {
		b.shuffle(len(tree.Sections), func(i, j int) {
			tree.Sections[i], tree.Sections[j] = tree.Sections[j], tree.Sections[i]
		})
	}

	logger.Get().Debug("SubmissionBuilder: built questionnaire tree",
		zap.String("questionnaire_id", q.ID),
		zap.Int("sections", len(tree.Sections)))
	return tree, nil
}

func (b *submissionBuilder) questions(q *domain.Questionnaire, sectionID string) []dto.QuestionView {
	source := q.QuestionsIn(sectionID)
	views := make([]dto.QuestionView, 0, len(source))
	for _, question := range source {
		views = append(views, b.question(question))
	}
	if q.ShuffleQuestions {
		b.shuffle(len(views), func(i, j int) { views[i], views[j] = views[j], views[i] })
	}
	return views
}

func (b *submissionBuilder) question(question *domain.Question) dto.QuestionView {
	view := dto.QuestionView{
		ID:                   question.ID,
		SectionID:            question.SectionID,
		Kind:                 string(question.Kind),
		Text:                 question.Text,
		Hint:                 question.Hint,
		Order:                question.Order,
		IsMandatory:          question.IsMandatory,
		DependsOnOptionID:    question.DependsOnOptionID,
		AllowMultipleAnswers: question.AllowMultipleAnswers,
	}
	if !question.IsChoice() {
		return view
	}
	for _, o := range question.SortedOptions() {
		view.Options = append(view.Options, dto.OptionView{ID: o.ID, Text: o.Text, Order: o.Order})
	}
	if question.ShuffleOptions {
		b.shuffle(len(view.Options), func(i, j int) {
			view.Options[i], view.Options[j] = view.Options[j], view.Options[i]
		})
	}
	return view
}
