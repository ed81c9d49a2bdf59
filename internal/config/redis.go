package config

import (
	"os"
	"strconv"
	"sync"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

var (
	redisConfig *RedisConfig
	redisOnce   sync.Once
)

func LoadRedisConfig() *RedisConfig {
	redisOnce.Do(func() {
		addr := os.Getenv("REDIS_ADDR")
		if addr == "" {
			addr = "localhost:6379"
		}
		db, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
		redisConfig = &RedisConfig{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       db,
		}
	})
	return redisConfig
}
