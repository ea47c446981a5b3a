package domain

// ForcedFailScore is recorded when a mandatory answer is missing or a fatal
// question was failed. It is below any reachable threshold.
const ForcedFailScore = -100.0

// ScoreCard accumulates points for one evaluation run.
type ScoreCard struct {
	ChoicePoints   float64
	ChoiceMax      float64
	FreeTextPoints float64
	FreeTextMax    float64
	Fatal          bool
	FatalQuestions []string
	Missing        []string
}

// NewScoreCard sets the maximum points from every weighted question of the
// questionnaire, answered or not.
func NewScoreCard(q *Questionnaire) *ScoreCard {
	sc := &ScoreCard{}
	for _, question := range q.Questions {
		switch question.Kind {
		case QuestionKindChoice:
			sc.ChoiceMax += question.PositiveWeight
		case QuestionKindFreeText:
			sc.FreeTextMax += question.PositiveWeight
		}
	}
	return sc
}

// Apply records a correct or incorrect outcome for one question.
func (sc *ScoreCard) Apply(question *Question, correct bool) {
	delta := question.PositiveWeight
	if !correct {
		delta = -question.Penalty()
		if question.IsFatal {
			sc.Fatal = true
			sc.FatalQuestions = append(sc.FatalQuestions, question.ID)
		}
	}
	if question.IsFreeText() {
		sc.FreeTextPoints += delta
		return
	}
	sc.ChoicePoints += delta
}

// GateFailed reports whether the score is already forced to fail.
func (sc *ScoreCard) GateFailed() bool {
	return sc.Fatal || len(sc.Missing) > 0
}

// Score returns the final percentage.
func (sc *ScoreCard) Score() float64 {
	if sc.GateFailed() {
		return ForcedFailScore
	}
	max := sc.ChoiceMax + sc.FreeTextMax
	if max == 0 {
		return 100
	}
	return (sc.ChoicePoints + sc.FreeTextPoints) / max * 100
}

// Propose turns a score into an approve/reject recommendation.
func Propose(score, minScore float64) EvaluationStatus {
	if score >= minScore {
		return EvaluationStatusApproved
	}
	return EvaluationStatusRejected
}

// IsChoiceCorrect judges the selected options of one choice question. A
// multi-select answer is correct only when it selects exactly the correct set.
func IsChoiceCorrect(question *Question, selected []string) bool {
	if len(selected) == 0 {
		return false
	}
	picked := make(map[string]bool, len(selected))
	for _, id := range selected {
		o := question.Option(id)
		if o == nil {
			return false
		}
		picked[id] = true
	}
	if !question.AllowMultipleAnswers {
		return len(picked) == 1 && question.Option(selected[0]).IsCorrect
	}
	for _, o := range question.Options {
		if o.IsCorrect != picked[o.ID] {
			return false
		}
	}
	return true
}
