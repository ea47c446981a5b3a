package domain

// branchingQuestionnaire builds:
//
//	q1 (choice, mandatory): o1a, o1b(correct)
//	section s1 depends on o1a
//	  q2 (free text, mandatory) in s1
//	q3 (choice, depends on o1b): o3a(correct), o3b
func branchingQuestionnaire() *Questionnaire {
	return &Questionnaire{
		ID:             "qn1",
		Name:           "Membership",
		MinScore:       50,
		EvaluationMode: EvaluationModeAutomatic,
		Sections: []*Section{
			{ID: "s1", QuestionnaireID: "qn1", Name: "Details", Order: 1, DependsOnOptionID: "o1a"},
		},
		Questions: []*Question{
			{
				ID: "q1", QuestionnaireID: "qn1", Kind: QuestionKindChoice, Text: "Member before?",
				IsMandatory: true, PositiveWeight: 1, Order: 1,
				Options: []*Option{
					{ID: "o1a", QuestionID: "q1", Text: "yes", Order: 1},
					{ID: "o1b", QuestionID: "q1", Text: "no", IsCorrect: true, Order: 2},
				},
			},
			{
				ID: "q2", QuestionnaireID: "qn1", SectionID: "s1", Kind: QuestionKindFreeText,
				Text: "Tell us more", IsMandatory: true, PositiveWeight: 2, Order: 1,
			},
			{
				ID: "q3", QuestionnaireID: "qn1", Kind: QuestionKindChoice, Text: "Agree?",
				PositiveWeight: 1, NegativeWeight: -1, DependsOnOptionID: "o1b", Order: 2,
				Options: []*Option{
					{ID: "o3a", QuestionID: "q3", Text: "agree", IsCorrect: true, Order: 1},
					{ID: "o3b", QuestionID: "q3", Text: "disagree", Order: 2},
				},
			},
		},
	}
}
