package config

import (
	"os"
	"strconv"
	"sync"
	"time"
)

type QueueConfig struct {
	Capacity     int
	PollInterval time.Duration
	RetryDelay   time.Duration
}

var (
	queueConfig *QueueConfig
	queueOnce   sync.Once
)

func LoadQueueConfig() *QueueConfig {
	queueOnce.Do(func() {
		capacity, _ := strconv.Atoi(os.Getenv("QUEUE_CAPACITY"))
		if capacity <= 0 {
			capacity = 5
		}
		queueConfig = &QueueConfig{
			Capacity:     capacity,
			PollInterval: 500 * time.Millisecond,
			RetryDelay:   durationFromEnv("QUEUE_RETRY_DELAY_SECONDS", 5*time.Second),
		}
	})
	return queueConfig
}
