package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/arkanata/talentsift/internal/cache"
	"github.com/arkanata/talentsift/internal/model"
	"github.com/arkanata/talentsift/internal/scoring"
	"github.com/arkanata/talentsift/internal/structurer"
	"github.com/arkanata/talentsift/internal/taskqueue"
	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TaskKindEvaluation and TaskKindBatch are the task kinds this use case
// registers with the queue.
const (
	TaskKindEvaluation = "evaluation"
	TaskKindBatch      = "evaluation_batch"
)

const (
	evaluationTTL = 10 * time.Minute
	listingTTL    = 5 * time.Minute
	structuredTTL = time.Hour
)

// ErrInvalidInput marks synchronous validation failures; they are surfaced
// to the submitter immediately and never enqueued.
var ErrInvalidInput = errors.New("invalid input")

// Scorer is the slice of the scoring client the pipeline needs.
type Scorer interface {
	Evaluate(ctx context.Context, resume scoring.ResumeData, job scoring.JobRequirements, weights scoring.Weights) (scoring.ScoreResult, error)
	EvaluateBatch(ctx context.Context, resumes []scoring.ResumeData, job scoring.JobRequirements, weights scoring.Weights) ([]scoring.ScoreResult, error)
}

// Structurer turns raw text into structured records.
type Structurer interface {
	Structure(ctx context.Context, raw string, kind structurer.Kind) (*structurer.StructuredRecord, error)
}

// Embedder produces text embeddings for job-match suggestions.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

type evaluationStore interface {
	Create(ev *model.Evaluation) error
	Update(ev *model.Evaluation) error
	FindByID(id string) (*model.Evaluation, error)
	ListByJob(jobID string, offset, limit int) ([]model.Evaluation, int64, error)
}

type candidateStore interface {
	FindByID(id string) (*model.Candidate, error)
}

type jobStore interface {
	FindByID(id string) (*model.JobPosting, error)
	Update(job *model.JobPosting) error
	List(offset, limit int) ([]model.JobPosting, int64, error)
	SearchByEmbedding(embedding pgvector.Vector, topK int) ([]model.JobPosting, error)
}

// EvaluationUsecase owns the asynchronous evaluation pipeline: it validates
// submissions, runs the task bodies the queue schedules, and keeps the
// durable store and cache consistent.
type EvaluationUsecase struct {
	evaluationRepo evaluationStore
	candidateRepo  candidateStore
	jobRepo        jobStore
	scorer         Scorer
	structurer     Structurer
	embedder       Embedder
	cache          *cache.Cache
	queue          *taskqueue.Queue
	logger         *zap.Logger
}

func NewEvaluationUsecase(
	evaluationRepo evaluationStore,
	candidateRepo candidateStore,
	jobRepo jobStore,
	scorer Scorer,
	structurer Structurer,
	embedder Embedder,
	c *cache.Cache,
	queue *taskqueue.Queue,
	logger *zap.Logger,
) *EvaluationUsecase {
	uc := &EvaluationUsecase{
		evaluationRepo: evaluationRepo,
		candidateRepo:  candidateRepo,
		jobRepo:        jobRepo,
		scorer:         scorer,
		structurer:     structurer,
		embedder:       embedder,
		cache:          c,
		queue:          queue,
		logger:         logger,
	}
	queue.RegisterHandler(TaskKindEvaluation, uc.runEvaluationTask)
	queue.RegisterHandler(TaskKindBatch, uc.runBatchTask)
	return uc
}

type evaluationPayload struct {
	EvaluationID string           `json:"evaluation_id"`
	CandidateID  string           `json:"candidate_id"`
	JobPostingID string           `json:"job_posting_id"`
	Weights      *scoring.Weights `json:"weights,omitempty"`
}

type batchPayload struct {
	Items        []evaluationPayload `json:"items"`
	JobPostingID string              `json:"job_posting_id"`
	Weights      *scoring.Weights    `json:"weights,omitempty"`
}

// Submit validates the request, creates the pending evaluation record, and
// enqueues the scoring task. Validation failures surface synchronously;
// everything downstream is the task's problem.
func (uc *EvaluationUsecase) Submit(ctx context.Context, candidateID, jobID string, weights *scoring.Weights, maxRetries int) (string, error) {
	payload, err := uc.buildPayload(candidateID, jobID, weights)
	if err != nil {
		return "", err
	}

	taskID, err := uc.queue.Submit(TaskKindEvaluation, *payload, jobID, maxRetries)
	if err != nil {
		return "", err
	}
	return taskID, nil
}

// SubmitBatch validates every candidate up front: one bad id fails the whole
// submission, nothing is enqueued.
func (uc *EvaluationUsecase) SubmitBatch(ctx context.Context, candidateIDs []string, jobID string, weights *scoring.Weights, maxRetries int) (string, error) {
	if len(candidateIDs) == 0 {
		return "", fmt.Errorf("%w: no candidates given", ErrInvalidInput)
	}

	batch := batchPayload{JobPostingID: jobID, Weights: weights}
	for _, cid := range candidateIDs {
		payload, err := uc.buildPayload(cid, jobID, weights)
		if err != nil {
			return "", err
		}
		batch.Items = append(batch.Items, *payload)
	}

	return uc.queue.Submit(TaskKindBatch, batch, jobID, maxRetries)
}

func (uc *EvaluationUsecase) buildPayload(candidateID, jobID string, weights *scoring.Weights) (*evaluationPayload, error) {
	if _, err := uuid.Parse(candidateID); err != nil {
		return nil, fmt.Errorf("%w: candidate id %q is not a valid uuid", ErrInvalidInput, candidateID)
	}
	if _, err := uuid.Parse(jobID); err != nil {
		return nil, fmt.Errorf("%w: job id %q is not a valid uuid", ErrInvalidInput, jobID)
	}

	candidate, err := uc.candidateRepo.FindByID(candidateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: candidate %s not found", ErrInvalidInput, candidateID)
		}
		return nil, fmt.Errorf("load candidate: %w", err)
	}
	if candidate.ResumeText == "" {
		return nil, fmt.Errorf("%w: candidate %s has no resume text", ErrInvalidInput, candidateID)
	}

	job, err := uc.jobRepo.FindByID(jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: job posting %s not found", ErrInvalidInput, jobID)
		}
		return nil, fmt.Errorf("load job posting: %w", err)
	}

	ev := &model.Evaluation{
		CandidateID:  candidate.ID,
		JobPostingID: job.ID,
		Status:       "processing",
		MatchDetails: "{}",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := uc.evaluationRepo.Create(ev); err != nil {
		return nil, fmt.Errorf("create evaluation record: %w", err)
	}

	return &evaluationPayload{
		EvaluationID: ev.ID.String(),
		CandidateID:  candidateID,
		JobPostingID: jobID,
		Weights:      weights,
	}, nil
}

// runEvaluationTask is the task body for a single evaluation.
func (uc *EvaluationUsecase) runEvaluationTask(ctx context.Context, task taskqueue.Task) (any, error) {
	payload, ok := task.Payload.(evaluationPayload)
	if !ok {
		return nil, fmt.Errorf("unexpected payload type %T", task.Payload)
	}

	result, err := uc.evaluateOne(ctx, payload)
	if err != nil {
		// Only the final attempt marks the durable record failed; earlier
		// attempts leave it "processing" for the retry.
		if task.RetryCount == task.MaxRetries {
			uc.markEvaluationFailed(ctx, payload, err)
		}
		return nil, err
	}
	return result, nil
}

// runBatchTask scores every candidate in the batch against the shared job.
// One candidate failing fails the task as a whole, which retries the batch.
func (uc *EvaluationUsecase) runBatchTask(ctx context.Context, task taskqueue.Task) (any, error) {
	payload, ok := task.Payload.(batchPayload)
	if !ok {
		return nil, fmt.Errorf("unexpected payload type %T", task.Payload)
	}

	results := make([]scoring.ScoreResult, 0, len(payload.Items))
	for _, item := range payload.Items {
		result, err := uc.evaluateOne(ctx, item)
		if err != nil {
			// The final attempt must leave no row stuck in "processing":
			// items after the failing one were never reached, so sweep the
			// whole batch and fail everything that has not completed.
			if task.RetryCount == task.MaxRetries {
				for _, it := range payload.Items {
					uc.markEvaluationFailed(ctx, it, err)
				}
			}
			return nil, fmt.Errorf("candidate %s: %w", item.CandidateID, err)
		}
		results = append(results, *result)
	}
	return results, nil
}

func (uc *EvaluationUsecase) evaluateOne(ctx context.Context, payload evaluationPayload) (*scoring.ScoreResult, error) {
	candidate, err := uc.candidateRepo.FindByID(payload.CandidateID)
	if err != nil {
		return nil, fmt.Errorf("load candidate: %w", err)
	}
	job, err := uc.jobRepo.FindByID(payload.JobPostingID)
	if err != nil {
		return nil, fmt.Errorf("load job posting: %w", err)
	}

	resume, err := uc.structuredResume(ctx, candidate.ResumeText)
	if err != nil {
		return nil, err
	}
	requirements, err := uc.structuredJob(ctx, job.Title, job.Description)
	if err != nil {
		return nil, err
	}

	weights := scoring.Weights{}
	if payload.Weights != nil {
		weights = *payload.Weights
	}

	result, err := uc.scorer.Evaluate(ctx, *resume, *requirements, weights)
	if err != nil {
		return nil, err
	}

	if err := uc.persistResult(ctx, payload, result); err != nil {
		return nil, err
	}
	return &result, nil
}

// structuredResume runs the structuring chain behind a cache keyed by the
// text digest, so retries and repeat evaluations skip the expensive hops.
func (uc *EvaluationUsecase) structuredResume(ctx context.Context, raw string) (*scoring.ResumeData, error) {
	key := cache.StructuredRecordKey(string(structurer.KindResume), digest(raw))

	var cached scoring.ResumeData
	if uc.cache.GetJSON(ctx, key, &cached) {
		return &cached, nil
	}

	rec, err := uc.structurer.Structure(ctx, raw, structurer.KindResume)
	if err != nil {
		return nil, fmt.Errorf("structure resume: %w", err)
	}
	uc.cache.SetJSON(ctx, key, rec.Resume, structuredTTL)
	return rec.Resume, nil
}

func (uc *EvaluationUsecase) structuredJob(ctx context.Context, title, description string) (*scoring.JobRequirements, error) {
	raw := title + "\n" + description
	key := cache.StructuredRecordKey(string(structurer.KindJob), digest(raw))

	var cached scoring.JobRequirements
	if uc.cache.GetJSON(ctx, key, &cached) {
		return &cached, nil
	}

	rec, err := uc.structurer.Structure(ctx, raw, structurer.KindJob)
	if err != nil {
		return nil, fmt.Errorf("structure job description: %w", err)
	}
	uc.cache.SetJSON(ctx, key, rec.Job, structuredTTL)
	return rec.Job, nil
}

// persistResult writes the evaluation outcome and synchronously invalidates
// every cache entry the write makes stale.
func (uc *EvaluationUsecase) persistResult(ctx context.Context, payload evaluationPayload, result scoring.ScoreResult) error {
	ev, err := uc.evaluationRepo.FindByID(payload.EvaluationID)
	if err != nil {
		return fmt.Errorf("load evaluation record: %w", err)
	}

	ev.Status = "completed"
	ev.OverallScore = result.OverallScore
	ev.SkillScore = result.Subscores.Skill
	ev.ExperienceScore = result.Subscores.Experience
	ev.EducationScore = result.Subscores.Education
	ev.Narrative = result.Narrative
	ev.Fallback = result.Fallback
	ev.MatchDetails = marshalDetails(result.MatchDetails)
	ev.UpdatedAt = time.Now()

	if err := uc.evaluationRepo.Update(ev); err != nil {
		return fmt.Errorf("persist evaluation result: %w", err)
	}

	uc.invalidateEvaluation(ctx, payload.EvaluationID, payload.JobPostingID)
	return nil
}

func (uc *EvaluationUsecase) markEvaluationFailed(ctx context.Context, payload evaluationPayload, cause error) {
	ev, err := uc.evaluationRepo.FindByID(payload.EvaluationID)
	if err != nil {
		uc.logger.Error("cannot load evaluation to mark failed",
			zap.String("evaluation_id", payload.EvaluationID), zap.Error(err))
		return
	}
	if ev.Status == "completed" {
		return
	}
	ev.Status = "failed"
	ev.Narrative = cause.Error()
	ev.UpdatedAt = time.Now()
	if err := uc.evaluationRepo.Update(ev); err != nil {
		uc.logger.Error("cannot mark evaluation failed",
			zap.String("evaluation_id", payload.EvaluationID), zap.Error(err))
		return
	}
	uc.invalidateEvaluation(ctx, payload.EvaluationID, payload.JobPostingID)
}

func (uc *EvaluationUsecase) invalidateEvaluation(ctx context.Context, evaluationID, jobID string) {
	uc.cache.Del(ctx, cache.EvaluationKey(evaluationID))
	uc.cache.InvalidatePattern(ctx, cache.EvaluationsByJobPattern(jobID))
}

// GetTask exposes the status-poll view of a queued task.
func (uc *EvaluationUsecase) GetTask(id string) (taskqueue.Task, bool) {
	return uc.queue.Get(id)
}

// QueueStats returns the live queue snapshot.
func (uc *EvaluationUsecase) QueueStats() taskqueue.Stats {
	return uc.queue.Stats()
}

// GetEvaluation serves a single evaluation read-through the cache.
func (uc *EvaluationUsecase) GetEvaluation(ctx context.Context, id string) (*model.Evaluation, error) {
	key := cache.EvaluationKey(id)

	var cached model.Evaluation
	if uc.cache.GetJSON(ctx, key, &cached) {
		return &cached, nil
	}

	ev, err := uc.evaluationRepo.FindByID(id)
	if err != nil {
		return nil, err
	}
	uc.cache.SetJSON(ctx, key, ev, evaluationTTL)
	return ev, nil
}

type evaluationPage struct {
	Items []model.Evaluation `json:"items"`
	Total int64              `json:"total"`
}

// ListEvaluationsByJob pages evaluations for a job, read-through the cache.
// Listing pages live under the per-job pattern so a new result invalidates
// every page at once.
func (uc *EvaluationUsecase) ListEvaluationsByJob(ctx context.Context, jobID string, offset, limit int) ([]model.Evaluation, int64, error) {
	key := cache.EvaluationsByJobKey(jobID, offset, limit)

	var page evaluationPage
	if uc.cache.GetJSON(ctx, key, &page) {
		return page.Items, page.Total, nil
	}

	items, total, err := uc.evaluationRepo.ListByJob(jobID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	uc.cache.SetJSON(ctx, key, evaluationPage{Items: items, Total: total}, listingTTL)
	return items, total, nil
}

// JobMatches suggests postings for a candidate by embedding the resume and
// searching the pgvector index.
func (uc *EvaluationUsecase) JobMatches(ctx context.Context, candidateID string, topK int) ([]model.JobPosting, error) {
	if uc.embedder == nil {
		return nil, errors.New("embeddings are not configured")
	}
	candidate, err := uc.candidateRepo.FindByID(candidateID)
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = 5
	}

	emb, err := uc.embedder.GenerateEmbedding(ctx, candidate.ResumeText)
	if err != nil {
		return nil, fmt.Errorf("embed resume: %w", err)
	}
	return uc.jobRepo.SearchByEmbedding(pgvector.NewVector(emb), topK)
}

// RefreshJobEmbeddings recomputes the embedding column for every posting.
func (uc *EvaluationUsecase) RefreshJobEmbeddings(ctx context.Context) (int, error) {
	if uc.embedder == nil {
		return 0, errors.New("embeddings are not configured")
	}

	const pageSize = 50
	updated := 0
	for offset := 0; ; offset += pageSize {
		jobs, _, err := uc.jobRepo.List(offset, pageSize)
		if err != nil {
			return updated, err
		}
		if len(jobs) == 0 {
			return updated, nil
		}
		for i := range jobs {
			emb, err := uc.embedder.GenerateEmbedding(ctx, jobs[i].Title+"\n"+jobs[i].Description)
			if err != nil {
				return updated, fmt.Errorf("embed job %s: %w", jobs[i].ID, err)
			}
			jobs[i].Embedding = pgvector.NewVector(emb)
			if err := uc.jobRepo.Update(&jobs[i]); err != nil {
				return updated, err
			}
			updated++
		}
	}
}

func digest(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func marshalDetails(details map[string]string) string {
	if len(details) == 0 {
		return "{}"
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return "{}"
	}
	return string(raw)
}
