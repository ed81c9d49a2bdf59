package config

import (
	"os"
	"sync"
	"time"
)

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string

	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

var (
	dbConfig *DBConfig
	dbOnce   sync.Once
)

// LoadDBConfig reads the Postgres settings. Pool sizes default by
// environment: small in development, sized for real traffic in production.
func LoadDBConfig() *DBConfig {
	dbOnce.Do(func() {
		dbConfig = &DBConfig{
			Host:     os.Getenv("DB_HOST"),
			Port:     os.Getenv("DB_PORT"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     os.Getenv("DB_NAME"),
			SSLMode:  os.Getenv("DB_SSLMODE"),
		}
		if LoadAppConfig().Env == "production" {
			dbConfig.MaxIdleConns = 20
			dbConfig.MaxOpenConns = 200
			dbConfig.ConnMaxLifetime = time.Hour
		} else {
			dbConfig.MaxIdleConns = 5
			dbConfig.MaxOpenConns = 10
			dbConfig.ConnMaxLifetime = 30 * time.Minute
		}
	})
	return dbConfig
}
