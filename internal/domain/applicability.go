package domain

// Applicability is the set of sections and questions that are relevant to
// one submission attempt.
type Applicability struct {
	Sections  map[string]bool
	Questions map[string]bool
}

// IsQuestionApplicable reports whether the question id is applicable.
func (a Applicability) IsQuestionApplicable(questionID string) bool {
	return a.Questions[questionID]
}

// ResolveApplicability computes which sections and questions are active for
// the selected option ids. Dependencies are one level deep: a section depends
// on an option, a question depends on an option and on its section.
func ResolveApplicability(q *Questionnaire, selectedOptionIDs map[string]bool) Applicability {
	a := Applicability{
		Sections:  make(map[string]bool, len(q.Sections)),
		Questions: make(map[string]bool, len(q.Questions)),
	}
	for _, s := range q.Sections {
		if s.DependsOnOptionID == "" || selectedOptionIDs[s.DependsOnOptionID] {
			a.Sections[s.ID] = true
		}
	}
	for _, question := range q.Questions {
		if question.SectionID != "" && !a.Sections[question.SectionID] {
			continue
		}
		if question.DependsOnOptionID != "" && !selectedOptionIDs[question.DependsOnOptionID] {
			continue
		}
		a.Questions[question.ID] = true
	}
	return a
}

// MissingMandatory returns the ids of applicable mandatory questions that are
// not in answered, in definition order.
func MissingMandatory(q *Questionnaire, a Applicability, answered map[string]bool) []string {
	var missing []string
	for _, question := range q.Questions {
		if question.IsMandatory && a.Questions[question.ID] && !answered[question.ID] {
			missing = append(missing, question.ID)
		}
	}
	return missing
}
