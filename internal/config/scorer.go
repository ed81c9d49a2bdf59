package config

import (
	"os"
	"strconv"
	"sync"
	"time"
)

// ScorerConfig points at the external ML scoring service.
type ScorerConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	MaxAttempts    int
	BaseDelay      time.Duration
	ProbeInterval  time.Duration
	ProbeTimeout   time.Duration
}

var (
	scorerConfig *ScorerConfig
	scorerOnce   sync.Once
)

func LoadScorerConfig() *ScorerConfig {
	scorerOnce.Do(func() {
		baseURL := os.Getenv("SCORER_URL")
		if baseURL == "" {
			baseURL = "http://localhost:8001"
		}
		timeout := durationFromEnv("SCORER_TIMEOUT_SECONDS", 30*time.Second)
		attempts, _ := strconv.Atoi(os.Getenv("SCORER_MAX_ATTEMPTS"))
		if attempts <= 0 {
			attempts = 3
		}
		scorerConfig = &ScorerConfig{
			BaseURL:        baseURL,
			RequestTimeout: timeout,
			MaxAttempts:    attempts,
			BaseDelay:      time.Second,
			ProbeInterval:  durationFromEnv("SCORER_PROBE_INTERVAL_SECONDS", 30*time.Second),
			ProbeTimeout:   durationFromEnv("SCORER_PROBE_TIMEOUT_SECONDS", 5*time.Second),
		}
	})
	return scorerConfig
}

func durationFromEnv(key string, fallback time.Duration) time.Duration {
	secs, err := strconv.Atoi(os.Getenv(key))
	if err != nil || secs <= 0 {
		return fallback
	}
	return time.Duration(secs) * time.Second
}
