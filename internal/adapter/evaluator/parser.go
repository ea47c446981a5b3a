package evaluator

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"questionnaire-engine/internal/domain"
	"questionnaire-engine/internal/logger"

	"go.uber.org/zap"
)

var (
	thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)
	codeFence  = regexp.MustCompile("(?m)^```[a-zA-Z]*\\s*$")
)

type batchResponse struct {
	Evaluations []domain.FreeTextVerdict `json:"evaluations"`
}

// ParseVerdicts extracts the verdict list from a raw model response. Verdicts
// for ids that were not sent, and repeated ids, are dropped. Missing ids are
// left for the caller to handle.
func ParseVerdicts(raw string, items []domain.FreeTextItem) ([]domain.FreeTextVerdict, error) {
	l := logger.Get()

	cleaned := thinkBlock.ReplaceAllString(raw, "")
	cleaned = codeFence.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)

	jsonStart := strings.Index(cleaned, "{")
	jsonEnd := strings.LastIndex(cleaned, "}")
	if jsonStart == -1 || jsonEnd <= jsonStart {
		return nil, fmt.Errorf("no JSON object found in model response")
	}

	var resp batchResponse
	if err := json.Unmarshal([]byte(cleaned[jsonStart:jsonEnd+1]), &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal model response: %w", err)
	}

	sent := make(map[string]bool, len(items))
	for _, it := range items {
		sent[it.QuestionID] = true
	}

	seen := make(map[string]bool, len(resp.Evaluations))
	verdicts := make([]domain.FreeTextVerdict, 0, len(resp.Evaluations))
	for _, v := range resp.Evaluations {
		if !sent[v.QuestionID] {
			l.Warn("Dropping verdict for a question that was not sent", zap.String("question_id", v.QuestionID))
			continue
		}
		if seen[v.QuestionID] {
			l.Warn("Dropping repeated verdict", zap.String("question_id", v.QuestionID))
			continue
		}
		seen[v.QuestionID] = true
		verdicts = append(verdicts, v)
	}
	return verdicts, nil
}
