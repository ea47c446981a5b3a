package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"questionnaire-engine/internal/domain"
	"questionnaire-engine/internal/repository/models"
	"questionnaire-engine/internal/util"

	"github.com/jmoiron/sqlx"
)

const (
	selectQuestionnaireQuery = `SELECT
		id "id",
		name "name",
		min_score "min_score",
		shuffle_questions "shuffle_questions",
		shuffle_sections "shuffle_sections",
		evaluation_mode "evaluation_mode",
		evaluator_backend "evaluator_backend",
		guidelines "guidelines",
		max_attempts "max_attempts",
		retake_cooldown_seconds "retake_cooldown_seconds",
		created_at "created_at",
		updated_at "updated_at"
	FROM questionnaires
	WHERE id = :1`

	selectSectionsQuery = `SELECT
		id "id",
		questionnaire_id "questionnaire_id",
		name "name",
		description "description",
		display_order "display_order",
		depends_on_option_id "depends_on_option_id"
	FROM questionnaire_sections
	WHERE questionnaire_id = :1
	ORDER BY display_order, id`

	selectQuestionsQuery = `SELECT
		id "id",
		questionnaire_id "questionnaire_id",
		section_id "section_id",
		kind "kind",
		question_text "question_text",
		hint "hint",
		display_order "display_order",
		is_mandatory "is_mandatory",
		is_fatal "is_fatal",
		positive_weight "positive_weight",
		negative_weight "negative_weight",
		depends_on_option_id "depends_on_option_id",
		allow_multiple_answers "allow_multiple_answers",
		shuffle_options "shuffle_options",
		guidelines "guidelines"
	FROM questionnaire_questions
	WHERE questionnaire_id = :1
	ORDER BY display_order, id`

	selectOptionsQuery = `SELECT
		o.id "id",
		o.question_id "question_id",
		o.option_text "option_text",
		o.is_correct "is_correct",
		o.display_order "display_order"
	FROM question_options o
	JOIN questionnaire_questions q ON q.id = o.question_id
	WHERE q.questionnaire_id = :1
	ORDER BY o.display_order, o.id`

	mergeQuestionnaireQuery = `MERGE INTO questionnaires t
	USING (SELECT :1 AS id FROM dual) src
	ON (t.id = src.id)
	WHEN MATCHED THEN UPDATE SET
		name = :2, min_score = :3, shuffle_questions = :4, shuffle_sections = :5,
		evaluation_mode = :6, evaluator_backend = :7, guidelines = :8,
		max_attempts = :9, retake_cooldown_seconds = :10, updated_at = :11
	WHEN NOT MATCHED THEN INSERT (
		id, name, min_score, shuffle_questions, shuffle_sections,
		evaluation_mode, evaluator_backend, guidelines,
		max_attempts, retake_cooldown_seconds, created_at, updated_at
	) VALUES (:12, :13, :14, :15, :16, :17, :18, :19, :20, :21, :22, :23)`

	deleteOptionsQuery = `DELETE FROM question_options
	WHERE question_id IN (SELECT id FROM questionnaire_questions WHERE questionnaire_id = :1)`
	deleteQuestionsQuery = `DELETE FROM questionnaire_questions WHERE questionnaire_id = :1`
	deleteSectionsQuery  = `DELETE FROM questionnaire_sections WHERE questionnaire_id = :1`

	insertSectionQuery = `INSERT INTO questionnaire_sections (
		id, questionnaire_id, name, description, display_order, depends_on_option_id
	) VALUES (:1, :2, :3, :4, :5, :6)`

	insertQuestionQuery = `INSERT INTO questionnaire_questions (
		id, questionnaire_id, section_id, kind, question_text, hint, display_order,
		is_mandatory, is_fatal, positive_weight, negative_weight, depends_on_option_id,
		allow_multiple_answers, shuffle_options, guidelines
	) VALUES (:1, :2, :3, :4, :5, :6, :7, :8, :9, :10, :11, :12, :13, :14, :15)`

	insertOptionQuery = `INSERT INTO question_options (
		id, question_id, option_text, is_correct, display_order
	) VALUES (:1, :2, :3, :4, :5)`
)

// QuestionnaireDatabaseAdapter implements domain.QuestionnaireRepository.
type QuestionnaireDatabaseAdapter struct {
	db DBTX
}

func NewQuestionnaireDatabaseAdapter(db *sqlx.DB) domain.QuestionnaireRepository {
	return &QuestionnaireDatabaseAdapter{db: db}
}

func (a *QuestionnaireDatabaseAdapter) GetQuestionnaireByID(ctx context.Context, id string) (*domain.Questionnaire, error) {
	exec := GetExecutor(ctx, a.db)

	var mq models.Questionnaire
	if err := exec.GetContext(ctx, &mq, selectQuestionnaireQuery, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get questionnaire %s: %w", id, err)
	}

	var sections []models.Section
	if err := exec.SelectContext(ctx, &sections, selectSectionsQuery, id); err != nil {
		return nil, fmt.Errorf("failed to get sections of questionnaire %s: %w", id, err)
	}
	var questions []models.Question
	if err := exec.SelectContext(ctx, &questions, selectQuestionsQuery, id); err != nil {
		return nil, fmt.Errorf("failed to get questions of questionnaire %s: %w", id, err)
	}
	var options []models.Option
	if err := exec.SelectContext(ctx, &options, selectOptionsQuery, id); err != nil {
		return nil, fmt.Errorf("failed to get options of questionnaire %s: %w", id, err)
	}

	return toDomainQuestionnaire(&mq, sections, questions, options), nil
}

// SaveQuestionnaire replaces the whole tree. Call it inside a transaction.
func (a *QuestionnaireDatabaseAdapter) SaveQuestionnaire(ctx context.Context, q *domain.Questionnaire) error {
	exec := GetExecutor(ctx, a.db)

	now := time.Now()
	if q.CreatedAt.IsZero() {
		q.CreatedAt = now
	}
	q.UpdatedAt = now
	mq := toModelQuestionnaire(q)

	_, err := exec.ExecContext(ctx, mergeQuestionnaireQuery,
		mq.ID,
		mq.Name, mq.MinScore, mq.ShuffleQuestions, mq.ShuffleSections,
		mq.EvaluationMode, mq.EvaluatorBackend, mq.Guidelines,
		mq.MaxAttempts, mq.RetakeCooldownSeconds, mq.UpdatedAt,
		mq.ID, mq.Name, mq.MinScore, mq.ShuffleQuestions, mq.ShuffleSections,
		mq.EvaluationMode, mq.EvaluatorBackend, mq.Guidelines,
		mq.MaxAttempts, mq.RetakeCooldownSeconds, mq.CreatedAt, mq.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert questionnaire %s: %w", q.ID, err)
	}

	for _, query := range []string{deleteOptionsQuery, deleteQuestionsQuery, deleteSectionsQuery} {
		if _, err := exec.ExecContext(ctx, query, q.ID); err != nil {
			return fmt.Errorf("failed to clear definition of questionnaire %s: %w", q.ID, err)
		}
	}

	for _, s := range q.Sections {
		_, err := exec.ExecContext(ctx, insertSectionQuery,
			s.ID, q.ID, s.Name, util.StringToNullString(s.Description), s.Order, util.StringToNullString(s.DependsOnOptionID))
		if err != nil {
			return fmt.Errorf("failed to insert section %s: %w", s.ID, err)
		}
	}
	for _, question := range q.Questions {
		m := toModelQuestion(question)
		_, err := exec.ExecContext(ctx, insertQuestionQuery,
			m.ID, m.QuestionnaireID, m.SectionID, m.Kind, m.QuestionText, m.Hint, m.DisplayOrder,
			m.IsMandatory, m.IsFatal, m.PositiveWeight, m.NegativeWeight, m.DependsOnOptionID,
			m.AllowMultipleAnswers, m.ShuffleOptions, m.Guidelines)
		if err != nil {
			return fmt.Errorf("failed to insert question %s: %w", question.ID, err)
		}
	}
	for _, question := range q.Questions {
		for _, o := range question.Options {
			_, err := exec.ExecContext(ctx, insertOptionQuery,
				o.ID, question.ID, o.Text, util.BoolToFlag(o.IsCorrect), o.Order)
			if err != nil {
				return fmt.Errorf("failed to insert option %s: %w", o.ID, err)
			}
		}
	}
	return nil
}

func toModelQuestionnaire(q *domain.Questionnaire) *models.Questionnaire {
	return &models.Questionnaire{
		ID:                    q.ID,
		Name:                  q.Name,
		MinScore:              q.MinScore,
		ShuffleQuestions:      util.BoolToFlag(q.ShuffleQuestions),
		ShuffleSections:       util.BoolToFlag(q.ShuffleSections),
		EvaluationMode:        string(q.EvaluationMode),
		EvaluatorBackend:      util.StringToNullString(q.EvaluatorBackend),
		Guidelines:            util.StringToNullString(q.Guidelines),
		MaxAttempts:           q.MaxAttempts,
		RetakeCooldownSeconds: int64(q.RetakeCooldown / time.Second),
		CreatedAt:             q.CreatedAt,
		UpdatedAt:             q.UpdatedAt,
	}
}

func toModelQuestion(q *domain.Question) *models.Question {
	return &models.Question{
		ID:                   q.ID,
		QuestionnaireID:      q.QuestionnaireID,
		SectionID:            util.StringToNullString(q.SectionID),
		Kind:                 string(q.Kind),
		QuestionText:         q.Text,
		Hint:                 util.StringToNullString(q.Hint),
		DisplayOrder:         q.Order,
		IsMandatory:          util.BoolToFlag(q.IsMandatory),
		IsFatal:              util.BoolToFlag(q.IsFatal),
		PositiveWeight:       q.PositiveWeight,
		NegativeWeight:       q.NegativeWeight,
		DependsOnOptionID:    util.StringToNullString(q.DependsOnOptionID),
		AllowMultipleAnswers: util.BoolToFlag(q.AllowMultipleAnswers),
		ShuffleOptions:       util.BoolToFlag(q.ShuffleOptions),
		Guidelines:           util.StringToNullString(q.Guidelines),
	}
}

func toDomainQuestionnaire(mq *models.Questionnaire, sections []models.Section, questions []models.Question, options []models.Option) *domain.Questionnaire {
	q := &domain.Questionnaire{
		ID:               mq.ID,
		Name:             mq.Name,
		MinScore:         mq.MinScore,
		ShuffleQuestions: util.FlagToBool(mq.ShuffleQuestions),
		ShuffleSections:  util.FlagToBool(mq.ShuffleSections),
		EvaluationMode:   domain.EvaluationMode(mq.EvaluationMode),
		EvaluatorBackend: mq.EvaluatorBackend.String,
		Guidelines:       mq.Guidelines.String,
		MaxAttempts:      mq.MaxAttempts,
		RetakeCooldown:   time.Duration(mq.RetakeCooldownSeconds) * time.Second,
		CreatedAt:        mq.CreatedAt,
		UpdatedAt:        mq.UpdatedAt,
	}

	for _, s := range sections {
		q.Sections = append(q.Sections, &domain.Section{
			ID:                s.ID,
			QuestionnaireID:   s.QuestionnaireID,
			Name:              s.Name,
			Description:       s.Description.String,
			Order:             s.DisplayOrder,
			DependsOnOptionID: s.DependsOnOptionID.String,
		})
	}

	byID := make(map[string]*domain.Question, len(questions))
	for _, m := range questions {
		question := &domain.Question{
			ID:                   m.ID,
			QuestionnaireID:      m.QuestionnaireID,
			SectionID:            m.SectionID.String,
			Kind:                 domain.QuestionKind(m.Kind),
			Text:                 m.QuestionText,
			Hint:                 m.Hint.String,
			Order:                m.DisplayOrder,
			IsMandatory:          util.FlagToBool(m.IsMandatory),
			IsFatal:              util.FlagToBool(m.IsFatal),
			PositiveWeight:       m.PositiveWeight,
			NegativeWeight:       m.NegativeWeight,
			DependsOnOptionID:    m.DependsOnOptionID.String,
			AllowMultipleAnswers: util.FlagToBool(m.AllowMultipleAnswers),
			ShuffleOptions:       util.FlagToBool(m.ShuffleOptions),
			Guidelines:           m.Guidelines.String,
		}
		byID[m.ID] = question
		q.Questions = append(q.Questions, question)
	}

	for _, o := range options {
		question, ok := byID[o.QuestionID]
		if !ok {
			continue
		}
		question.Options = append(question.Options, &domain.Option{
			ID:         o.ID,
			QuestionID: o.QuestionID,
			Text:       o.OptionText,
			IsCorrect:  util.FlagToBool(o.IsCorrect),
			Order:      o.DisplayOrder,
		})
	}
	return q
}
