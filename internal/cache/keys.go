package cache

import "strings"

const (
	GlobalKeyPrefix = "qengine"
)

// GenerateCacheKey generates a cache key for a given service, object type, and identifier.
// If paramsKey are provided, they are joined by "_" and appended to the cache key.
func GenerateCacheKey(serviceName, objectType, identifier string, paramsKey ...string) string {
	baseKey := strings.Join([]string{GlobalKeyPrefix, serviceName, objectType, identifier}, ":")
	if len(paramsKey) > 0 {
		return strings.Join([]string{baseKey, strings.Join(paramsKey, "_")}, ":")
	}
	return baseKey
}

// QuestionnaireKey is the key of a cached definition tree.
func QuestionnaireKey(questionnaireID string) string {
	return GenerateCacheKey("definition", "questionnaire", questionnaireID)
}

// EvaluationLockKey guards one in-flight evaluation of a submission.
func EvaluationLockKey(submissionID string) string {
	return GenerateCacheKey("evaluation", "lock", submissionID)
}

// QueueListKey is the redis list backing a task queue.
func QueueListKey(queue string) string {
	return GenerateCacheKey("queue", queue, "pending")
}

// QueueDedupeKey marks an id as already queued.
func QueueDedupeKey(queue, id string) string {
	return GenerateCacheKey("queue", queue, "dedupe", id)
}
