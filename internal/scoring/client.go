package scoring

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// HealthReporter gates whether a real RPC is attempted.
type HealthReporter interface {
	IsHealthy(ctx context.Context) bool
}

// Client is the typed wrapper around the external scoring service.
//
// Retry policy: transient failures (timeouts, connection errors, 429, 5xx)
// are retried up to MaxAttempts with exponential backoff. 4xx responses are
// permanent and fail immediately. When the health monitor reports the
// service down, Evaluate and EvaluateBatch skip the network entirely and
// return a fallback-marked result. Exhausted retries surface the error to
// the caller; they do not silently fall back.
type Client struct {
	http        *resty.Client
	maxAttempts int
	baseDelay   time.Duration
	fallback    *FallbackEvaluator
	health      HealthReporter
	logger      *zap.Logger
}

type ClientOptions struct {
	BaseURL        string
	RequestTimeout time.Duration
	MaxAttempts    int
	BaseDelay      time.Duration
}

func NewClient(opts ClientOptions, fallback *FallbackEvaluator, logger *zap.Logger) *Client {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = time.Second
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.RequestTimeout).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:        httpClient,
		maxAttempts: opts.MaxAttempts,
		baseDelay:   opts.BaseDelay,
		fallback:    fallback,
		logger:      logger,
	}
}

// SetHealth wires the health monitor in after construction; the monitor
// itself probes through this client, so the two reference each other.
func (c *Client) SetHealth(h HealthReporter) {
	c.health = h
}

// Ping hits the scoring service liveness endpoint.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/health")
	if err != nil {
		return fmt.Errorf("scorer liveness check: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("scorer liveness check: status %d", resp.StatusCode())
	}
	return nil
}

type evaluateRequest struct {
	ResumeData      ResumeData      `json:"resume_data"`
	JobRequirements JobRequirements `json:"job_requirements"`
	Weights         *Weights        `json:"weights,omitempty"`
}

type evaluateBatchRequest struct {
	Candidates      []ResumeData    `json:"candidates"`
	JobRequirements JobRequirements `json:"job_requirements"`
	Weights         *Weights        `json:"weights,omitempty"`
}

type evaluateResponse struct {
	OverallScore      float64           `json:"overall_score"`
	SkillScore        float64           `json:"skill_score"`
	ExperienceScore   float64           `json:"experience_score"`
	EducationScore    float64           `json:"education_score"`
	MatchDetails      map[string]string `json:"match_details"`
	EvaluationSummary string            `json:"evaluation_summary"`
}

func (r *evaluateResponse) toScoreResult() ScoreResult {
	return ScoreResult{
		OverallScore: r.OverallScore,
		Subscores: Subscores{
			Skill:      r.SkillScore,
			Experience: r.ExperienceScore,
			Education:  r.EducationScore,
		},
		MatchDetails: r.MatchDetails,
		Narrative:    r.EvaluationSummary,
		Fallback:     false,
	}
}

// Evaluate scores one candidate against one job. A zero-value weights means
// the service defaults.
func (c *Client) Evaluate(ctx context.Context, resume ResumeData, job JobRequirements, weights Weights) (ScoreResult, error) {
	if c.health != nil && !c.health.IsHealthy(ctx) {
		c.logger.Debug("scoring service unhealthy, using fallback evaluator")
		return c.fallback.Score(resume, job, weights), nil
	}

	var parsed evaluateResponse
	req := evaluateRequest{ResumeData: resume, JobRequirements: job, Weights: weightsPtr(weights)}
	if err := c.doWithRetry(ctx, "/evaluate", req, &parsed); err != nil {
		return ScoreResult{}, err
	}
	return parsed.toScoreResult(), nil
}

// EvaluateBatch scores several candidates against one job in a single call.
func (c *Client) EvaluateBatch(ctx context.Context, resumes []ResumeData, job JobRequirements, weights Weights) ([]ScoreResult, error) {
	if c.health != nil && !c.health.IsHealthy(ctx) {
		c.logger.Debug("scoring service unhealthy, using fallback evaluator for batch",
			zap.Int("candidates", len(resumes)))
		results := make([]ScoreResult, 0, len(resumes))
		for _, r := range resumes {
			results = append(results, c.fallback.Score(r, job, weights))
		}
		return results, nil
	}

	var parsed struct {
		Results []evaluateResponse `json:"results"`
	}
	req := evaluateBatchRequest{Candidates: resumes, JobRequirements: job, Weights: weightsPtr(weights)}
	if err := c.doWithRetry(ctx, "/evaluate/batch", req, &parsed); err != nil {
		return nil, err
	}

	results := make([]ScoreResult, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		results = append(results, r.toScoreResult())
	}
	return results, nil
}

// ParseResumeText asks the scoring service's built-in parser to structure raw
// resume text. Used as a fallback hop by the structurer.
func (c *Client) ParseResumeText(ctx context.Context, text string) (ResumeData, error) {
	var parsed ResumeData
	req := map[string]string{"text": text}
	if err := c.doWithRetry(ctx, "/parse/text/resume", req, &parsed); err != nil {
		return ResumeData{}, err
	}
	return parsed, nil
}

// ParseJobText is ParseResumeText for job descriptions.
func (c *Client) ParseJobText(ctx context.Context, text string) (JobRequirements, error) {
	var parsed JobRequirements
	req := map[string]string{"text": text}
	if err := c.doWithRetry(ctx, "/parse/text/job-description", req, &parsed); err != nil {
		return JobRequirements{}, err
	}
	return parsed, nil
}

func (c *Client) doWithRetry(ctx context.Context, path string, body, out any) error {
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			delay := c.backoff(attempt)
			c.logger.Info("retrying scoring service call",
				zap.String("path", path),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return fmt.Errorf("scoring service %s: %w", path, ctx.Err())
			}
		}

		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(body).
			SetResult(out).
			Post(path)

		if err != nil {
			// A per-request timeout also satisfies context.DeadlineExceeded,
			// so only the caller's own context ending stops the loop; an
			// expired request deadline is a transient failure like any other.
			if ctx.Err() != nil {
				return fmt.Errorf("scoring service %s: %w", path, ctx.Err())
			}
			lastErr = err
			continue
		}

		code := resp.StatusCode()
		switch {
		case code >= 200 && code < 300:
			return nil
		case code == http.StatusTooManyRequests || code >= 500:
			lastErr = fmt.Errorf("scoring service %s: status %d", path, code)
		default:
			// 4xx is a malformed request, not a transient outage. Do not retry.
			return fmt.Errorf("scoring service %s: rejected with status %d: %s", path, code, resp.String())
		}
	}

	return fmt.Errorf("scoring service %s: %d attempts exhausted: %w", path, c.maxAttempts, lastErr)
}

// backoff returns baseDelay * 2^(attempt-2), so the wait before the second
// attempt is baseDelay, before the third 2*baseDelay, and so on.
func (c *Client) backoff(attempt int) time.Duration {
	return time.Duration(float64(c.baseDelay) * math.Pow(2, float64(attempt-2)))
}

func weightsPtr(w Weights) *Weights {
	if w == (Weights{}) {
		return nil
	}
	return &w
}
