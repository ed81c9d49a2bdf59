package scoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticHealth bool

func (h staticHealth) IsHealthy(ctx context.Context) bool { return bool(h) }

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	return NewClient(ClientOptions{
		BaseURL:        url,
		RequestTimeout: 2 * time.Second,
		MaxAttempts:    3,
		BaseDelay:      time.Millisecond,
	}, NewFallbackEvaluator(), zap.NewNop())
}

func TestEvaluateReturnsServiceScore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/evaluate", r.URL.Path)
		var req evaluateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"Go"}, req.JobRequirements.RequiredSkills)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(evaluateResponse{
			OverallScore:      81.5,
			SkillScore:        90,
			ExperienceScore:   80,
			EducationScore:    70,
			EvaluationSummary: "strong match",
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	c.SetHealth(staticHealth(true))

	res, err := c.Evaluate(context.Background(), ResumeData{Skills: []string{"Go"}},
		JobRequirements{RequiredSkills: []string{"Go"}}, Weights{})

	require.NoError(t, err)
	assert.Equal(t, 81.5, res.OverallScore)
	assert.Equal(t, 90.0, res.Subscores.Skill)
	assert.False(t, res.Fallback)
}

func TestEvaluateUnhealthyNeverCallsService(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	c.SetHealth(staticHealth(false))

	res, err := c.Evaluate(context.Background(), ResumeData{Skills: []string{"Python"}},
		JobRequirements{RequiredSkills: []string{"Python", "React"}}, Weights{})

	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.Equal(t, 50.0, res.Subscores.Skill)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestEvaluateRetriesTransientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(evaluateResponse{OverallScore: 70})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	c.SetHealth(staticHealth(true))

	res, err := c.Evaluate(context.Background(), ResumeData{}, JobRequirements{}, Weights{})

	require.NoError(t, err)
	assert.Equal(t, 70.0, res.OverallScore)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestEvaluateRetriesRequestTimeouts(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{
		BaseURL:        srv.URL,
		RequestTimeout: 50 * time.Millisecond,
		MaxAttempts:    3,
		BaseDelay:      time.Millisecond,
	}, NewFallbackEvaluator(), zap.NewNop())
	c.SetHealth(staticHealth(true))

	_, err := c.Evaluate(context.Background(), ResumeData{}, JobRequirements{}, Weights{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "attempts exhausted")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestEvaluateStopsWhenCallerContextEnds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	c.SetHealth(staticHealth(true))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Evaluate(ctx, ResumeData{}, JobRequirements{}, Weights{})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestEvaluateExhaustedRetriesSurfaceError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	c.SetHealth(staticHealth(true))

	_, err := c.Evaluate(context.Background(), ResumeData{}, JobRequirements{}, Weights{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "attempts exhausted")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestEvaluateDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	c.SetHealth(staticHealth(true))

	_, err := c.Evaluate(context.Background(), ResumeData{}, JobRequirements{}, Weights{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestEvaluateBatchFallsBackPerCandidate(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:0")
	c.SetHealth(staticHealth(false))

	results, err := c.EvaluateBatch(context.Background(),
		[]ResumeData{{Skills: []string{"Python"}}, {Skills: []string{"Python", "React"}}},
		JobRequirements{RequiredSkills: []string{"Python", "React"}}, Weights{})

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 50.0, results[0].Subscores.Skill)
	assert.Equal(t, 100.0, results[1].Subscores.Skill)
	assert.True(t, results[0].Fallback)
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	assert.NoError(t, c.Ping(context.Background()))

	srv.Close()
	assert.Error(t, c.Ping(context.Background()))
}

func TestParseResumeText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/parse/text/resume", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ResumeData{
			Name:                 "Jane Doe",
			Skills:               []string{"Go", "Postgres"},
			TotalExperienceYears: 6,
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	parsed, err := c.ParseResumeText(context.Background(), "raw resume text")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", parsed.Name)
	assert.Equal(t, 6.0, parsed.TotalExperienceYears)
}
