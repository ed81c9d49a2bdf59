package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/arkanata/talentsift/internal/cache"
	"github.com/arkanata/talentsift/internal/config"
	"github.com/arkanata/talentsift/internal/domain/fiber/handler"
	"github.com/arkanata/talentsift/internal/events"
	"github.com/arkanata/talentsift/internal/middleware"
	"github.com/arkanata/talentsift/internal/model"
	"github.com/arkanata/talentsift/internal/repository"
	"github.com/arkanata/talentsift/internal/scoring"
	"github.com/arkanata/talentsift/internal/structurer"
	"github.com/arkanata/talentsift/internal/taskqueue"
	"github.com/arkanata/talentsift/internal/usecase"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/pprof"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const taskRetention = 24 * time.Hour

func main() {
	ctx := context.Background()
	if err := godotenv.Load(); err != nil {
		log.Println("Could not load .env file")
	}

	appConfig := config.LoadAppConfig()

	logger, err := buildLogger(appConfig.Env)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	app := fiber.New(fiber.Config{
		AppName: appConfig.Name,
		ErrorHandler: func(ctx *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			message := err.Error()
			if message == "" {
				message = "Internal Server Error"
			}
			return ctx.Status(code).JSON(fiber.Map{"error": message})
		},
	})
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
	}))
	app.Use(recover.New(recover.Config{
		EnableStackTrace: appConfig.Env != "production",
	}))
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(pprof.New(pprof.Config{
		Next: func(c *fiber.Ctx) bool {
			return appConfig.Env == "production"
		},
	}))
	app.Use(healthcheck.New())
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))
	app.Use(middleware.RateLimiter(50, 1*time.Minute))

	db := ConnectDB(logger)

	redisConfig := config.LoadRedisConfig()
	redisClient := redis.NewClient(&redis.Options{
		Addr:     redisConfig.Addr,
		Password: redisConfig.Password,
		DB:       redisConfig.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable at startup, cache degrades to pass-through", zap.Error(err))
	}
	resultCache := cache.New(redisClient, logger)

	candidateRepo := repository.NewCandidateRepository(db)
	jobRepo := repository.NewJobPostingRepository(db)
	evaluationRepo := repository.NewEvaluationRepository(db)

	scorerConfig := config.LoadScorerConfig()
	fallback := scoring.NewFallbackEvaluator()
	scorer := scoring.NewClient(scoring.ClientOptions{
		BaseURL:        scorerConfig.BaseURL,
		RequestTimeout: scorerConfig.RequestTimeout,
		MaxAttempts:    scorerConfig.MaxAttempts,
		BaseDelay:      scorerConfig.BaseDelay,
	}, fallback, logger)

	health := scoring.NewHealthMonitor(scorer, scorerConfig.ProbeInterval, scorerConfig.ProbeTimeout, logger)
	scorer.SetHealth(health)
	go health.Start(ctx)

	hub := events.NewHub(logger)

	queueConfig := config.LoadQueueConfig()
	var queue *taskqueue.Queue
	bridge := events.NewQueueBridge(hub, func() taskqueue.Stats { return queue.Stats() })
	queue = taskqueue.New(taskqueue.Options{
		Capacity:     queueConfig.Capacity,
		PollInterval: queueConfig.PollInterval,
		RetryDelay:   queueConfig.RetryDelay,
	}, bridge, logger)
	go queue.Start(ctx)

	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			if n := queue.Cleanup(taskRetention); n > 0 {
				logger.Info("evicted finished tasks", zap.Int("count", n))
			}
		}
	}()

	structuringChain, embedder := buildStructurer(ctx, scorer, logger)

	uc := usecase.NewEvaluationUsecase(
		evaluationRepo, candidateRepo, jobRepo,
		scorer, structuringChain, embedder,
		resultCache, queue, logger,
	)

	handler.NewEvaluateHandler(uc, health).RegisterRoutes(app)
	handler.NewCandidateHandler(candidateRepo).RegisterRoutes(app)
	handler.NewJobPostingHandler(jobRepo).RegisterRoutes(app)
	handler.NewWSHandler(hub, logger).RegisterRoutes(app)

	logger.Info("server starting", zap.String("port", appConfig.Port))
	if err := app.Listen(appConfig.Port); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

// buildStructurer assembles the structuring chain in preference order:
// Gemini when a key is configured, then the scoring service's parser, then
// the local rule-based rebuild which always succeeds on non-empty text.
func buildStructurer(ctx context.Context, scorer *scoring.Client, logger *zap.Logger) (*structurer.Chain, usecase.Embedder) {
	geminiConfig := config.LoadGeminiConfig()

	strategies := make([]structurer.Strategy, 0, 3)
	var embedder usecase.Embedder
	if geminiConfig.APIKey != "" {
		generator, err := structurer.NewGeminiGenerator(ctx, geminiConfig.APIKey, geminiConfig.Model)
		if err != nil {
			logger.Warn("gemini unavailable, structuring falls through to later hops", zap.Error(err))
		} else {
			strategies = append(strategies, structurer.NewGeminiStrategy(generator))
			embedder = generator
		}
	}
	strategies = append(strategies,
		structurer.NewRemoteStrategy(scorer),
		structurer.NewRebuildStrategy(),
	)

	return structurer.NewChain(logger, strategies...), embedder
}

func ConnectDB(logger *zap.Logger) *gorm.DB {
	dbConfig := config.LoadDBConfig()

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		dbConfig.Host,
		dbConfig.User,
		dbConfig.Password,
		dbConfig.Name,
		dbConfig.Port,
		dbConfig.SSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		logger.Fatal("cannot connect to database", zap.Error(err))
	}
	pgDB, err := db.DB()
	if err != nil {
		logger.Fatal("cannot get database instance", zap.Error(err))
	}
	pgDB.SetMaxIdleConns(dbConfig.MaxIdleConns)
	pgDB.SetMaxOpenConns(dbConfig.MaxOpenConns)
	pgDB.SetConnMaxLifetime(dbConfig.ConnMaxLifetime)

	if err := db.AutoMigrate(&model.Candidate{}, &model.JobPosting{}, &model.Evaluation{}); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}
	return db
}

func buildLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
