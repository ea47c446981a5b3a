package evaluator

import (
	"context"
	"fmt"
	"strings"

	"questionnaire-engine/internal/domain"
)

// KeywordEvaluator is a deterministic evaluator that never leaves the
// process. Guidelines may carry a line "keywords: a, b, c"; an answer passes
// when it mentions at least one of them. Without keywords any non-blank
// answer passes.
type KeywordEvaluator struct{}

func NewKeywordEvaluator() *KeywordEvaluator { return &KeywordEvaluator{} }

func (e *KeywordEvaluator) EvaluateBatch(_ context.Context, items []domain.FreeTextItem, questionnaireGuidelines string) ([]domain.FreeTextVerdict, error) {
	verdicts := make([]domain.FreeTextVerdict, 0, len(items))
	for _, it := range items {
		keywords := parseKeywords(it.Guidelines)
		if len(keywords) == 0 {
			keywords = parseKeywords(questionnaireGuidelines)
		}
		verdicts = append(verdicts, judgeByKeywords(it, keywords))
	}
	return verdicts, nil
}

func judgeByKeywords(it domain.FreeTextItem, keywords []string) domain.FreeTextVerdict {
	answer := strings.ToLower(it.AnswerText)
	if len(keywords) == 0 {
		if strings.TrimSpace(answer) == "" {
			return domain.FreeTextVerdict{QuestionID: it.QuestionID, Explanation: "Answer is blank."}
		}
		return domain.FreeTextVerdict{QuestionID: it.QuestionID, IsPassing: true, Explanation: "Answer provided."}
	}
	for _, kw := range keywords {
		if strings.Contains(answer, kw) {
			return domain.FreeTextVerdict{
				QuestionID:  it.QuestionID,
				IsPassing:   true,
				Explanation: fmt.Sprintf("Answer mentions %q.", kw),
			}
		}
	}
	return domain.FreeTextVerdict{
		QuestionID:  it.QuestionID,
		Explanation: fmt.Sprintf("Answer mentions none of: %s.", strings.Join(keywords, ", ")),
	}
}

func parseKeywords(guidelines string) []string {
	for _, line := range strings.Split(guidelines, "\n") {
		line = strings.TrimSpace(line)
		if len(line) < len("keywords:") || !strings.EqualFold(line[:len("keywords:")], "keywords:") {
			continue
		}
		var out []string
		for _, kw := range strings.Split(line[len("keywords:"):], ",") {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				out = append(out, kw)
			}
		}
		return out
	}
	return nil
}
