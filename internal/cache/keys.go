package cache

import "fmt"

// Key namespace. Writers invalidate synchronously after every durable write:
// persisting an evaluation deletes its EvaluationKey and every listing page
// under EvaluationsByJobPattern for its job.
func EvaluationKey(id string) string {
	return fmt.Sprintf("evaluation:%s", id)
}

func EvaluationsByJobKey(jobID string, offset, limit int) string {
	return fmt.Sprintf("evaluations:job:%s:%d:%d", jobID, offset, limit)
}

func EvaluationsByJobPattern(jobID string) string {
	return fmt.Sprintf("evaluations:job:%s:*", jobID)
}

// StructuredRecordKey caches structurer output per raw-text digest so a
// retried task does not re-run the strategy chain.
func StructuredRecordKey(kind, digest string) string {
	return fmt.Sprintf("structured:%s:%s", kind, digest)
}
