package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/arena-go-api/internal/config"
	"github.com/noah-isme/arena-go-api/internal/database"
	"github.com/noah-isme/arena-go-api/internal/handler"
	"github.com/noah-isme/arena-go-api/internal/middleware"
	"github.com/noah-isme/arena-go-api/internal/repository"
	"github.com/noah-isme/arena-go-api/internal/router"
	"github.com/noah-isme/arena-go-api/internal/service"
	"github.com/noah-isme/arena-go-api/pkg/ai"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		connectCtx, cancelConnect := context.WithTimeout(context.Background(), 5*time.Second)
		redisClient, err = database.ConnectRedis(connectCtx, cfg.RedisURL)
		cancelConnect()
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis url not configured, board snapshots and cross-node events disabled")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	} else {
		logger.Warn().Msg("nats url not configured, running without the message bus")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	challengeRepo := repository.NewChallengeRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	scoreRepo := repository.NewScoreRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	timers := service.NewTimerRegistry()
	grading := service.NewGradingService(buildGrader(cfg, logger), cfg.OracleTimeout, logger)
	activityService := service.NewActivityService(activityRepo, logger)
	leaderboardService := service.NewLeaderboardService(submissionRepo, challengeRepo, scoreRepo, redisClient, cfg.EventChannel, natsConn, logger)
	announcer := service.NewChallengeAnnouncer(redisClient, cfg.EventChannel, natsConn, logger)
	challengeService := service.NewChallengeService(challengeRepo, leaderboardService, announcer, activityService, validate, logger)
	submissionService := service.NewSubmissionService(submissionRepo, challengeRepo, timers, grading, leaderboardService, activityService, validate, logger)

	challengeHandler := handler.NewChallengeHandler(challengeService, validate, logger)
	submissionHandler := handler.NewSubmissionHandler(submissionService, validate, logger)
	leaderboardHandler := handler.NewLeaderboardHandler(leaderboardService, logger)
	activityHandler := handler.NewActivityHandler(activityService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.CORSOrigins})
	router.Register(app, cfg, router.Dependencies{
		ChallengeHandler:   challengeHandler,
		SubmissionHandler:  submissionHandler,
		LeaderboardHandler: leaderboardHandler,
		ActivityHandler:    activityHandler,
		JWTMiddleware:      middleware.JWTProtected(cfg.JWTSecret),
	})

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	leaderboardService.Start(runCtx)

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-runCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}

// buildGrader selects the grading backend. A missing or misconfigured
// backend returns nil; grading then degrades to the fallback verdict instead
// of blocking submissions.
func buildGrader(cfg config.Config, logger zerolog.Logger) ai.Grader {
	switch cfg.AIProvider {
	case "openai":
		grader, err := ai.NewOpenAIGrader(ai.OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.OpenAIModel,
			Logger: logger,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("openai grader unavailable, submissions will receive fallback verdicts")
			return nil
		}
		return grader
	default:
		grader, err := ai.NewGeminiGrader(ai.GeminiConfig{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			Timeout: cfg.OracleTimeout,
			Logger:  logger,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("gemini grader unavailable, submissions will receive fallback verdicts")
			return nil
		}
		return grader
	}
}
