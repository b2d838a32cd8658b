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

	"github.com/chief-impact7/OCRvKing/internal/config"
	"github.com/chief-impact7/OCRvKing/internal/database"
	"github.com/chief-impact7/OCRvKing/internal/handler"
	"github.com/chief-impact7/OCRvKing/internal/middleware"
	"github.com/chief-impact7/OCRvKing/internal/models"
	"github.com/chief-impact7/OCRvKing/internal/queue"
	"github.com/chief-impact7/OCRvKing/internal/repository"
	"github.com/chief-impact7/OCRvKing/internal/router"
	"github.com/chief-impact7/OCRvKing/internal/service"
	"github.com/chief-impact7/OCRvKing/pkg/ai"
	cloud "github.com/chief-impact7/OCRvKing/pkg/cloudinary"
	"github.com/chief-impact7/OCRvKing/pkg/pdfimg"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.AnswerKey{}, &models.GradeRecord{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	}

	var store service.ArtifactStore
	if cfg.CloudinaryCloudName != "" {
		uploader, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create cloudinary client: %v", err)
		}
		store = uploader
	}

	grader, err := buildGrader(cfg, logger)
	if err != nil {
		log.Fatalf("failed to create grader: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	rasterizer := pdfimg.New(logger)
	submissions := queue.New()

	answerKeyRepo := repository.NewAnswerKeyRepository(db)
	gradeRecordRepo := repository.NewGradeRecordRepository(db)

	notifier := service.NewNotifyService(redisClient, natsConn, cfg.EventChannel, logger)
	answerKeyService := service.NewAnswerKeyService(answerKeyRepo, rasterizer, cfg.MaxUploadMB, logger)
	intakeService := service.NewIntakeService(submissions, rasterizer, store, notifier, validate, cfg.MaxUploadMB, logger)
	gradingService := service.NewGradingService(submissions, grader, answerKeyService, gradeRecordRepo, notifier, cfg.GradingRules, logger)
	exportService := service.NewExportService(submissions, logger)
	archiveService := service.NewArchiveService(gradeRecordRepo, logger)

	appCtx, stopNotifier := context.WithCancel(context.Background())
	defer stopNotifier()
	notifier.Start(appCtx)

	answerKeyHandler := handler.NewAnswerKeyHandler(answerKeyService, logger)
	submissionHandler := handler.NewSubmissionHandler(intakeService, logger)
	gradingHandler := handler.NewGradingHandler(gradingService, logger)
	exportHandler := handler.NewExportHandler(exportService, archiveService, logger)
	progressHandler := handler.NewProgressHandler(notifier, gradingService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.MaxUploadMB + 1) * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})

	var jwtMiddleware fiber.Handler
	if cfg.JWTSecret != "" {
		jwtMiddleware = middleware.JWTProtected(cfg.JWTSecret)
	}

	router.Register(app, cfg, router.Dependencies{
		AnswerKeyHandler:  answerKeyHandler,
		SubmissionHandler: submissionHandler,
		GradingHandler:    gradingHandler,
		ExportHandler:     exportHandler,
		ProgressHandler:   progressHandler,
		JWTMiddleware:     jwtMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func buildGrader(cfg config.Config, logger zerolog.Logger) (ai.Grader, error) {
	switch cfg.AIProvider {
	case "anthropic":
		return ai.NewAnthropicGrader(ai.AnthropicConfig{APIKey: cfg.AnthropicAPIKey})
	default:
		return ai.NewOpenAIGrader(ai.OpenAIConfig{
			APIKey:    cfg.OpenAIAPIKey,
			Model:     cfg.OpenAIModel,
			MaxTokens: cfg.OpenAIMaxTokens,
			Logger:    logger,
		})
	}
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
