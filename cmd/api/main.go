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
	"github.com/rs/zerolog"

	"github.com/noah-isme/taskbridge-api/internal/config"
	"github.com/noah-isme/taskbridge-api/internal/database"
	"github.com/noah-isme/taskbridge-api/internal/handler"
	"github.com/noah-isme/taskbridge-api/internal/middleware"
	"github.com/noah-isme/taskbridge-api/internal/models"
	"github.com/noah-isme/taskbridge-api/internal/repository"
	"github.com/noah-isme/taskbridge-api/internal/router"
	"github.com/noah-isme/taskbridge-api/internal/service"
	"github.com/noah-isme/taskbridge-api/pkg/ai"
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

	if err := db.AutoMigrate(
		&models.User{},
		&models.Task{},
		&models.TaskAssignment{},
		&models.Submission{},
		&models.Progress{},
		&models.ChatSession{},
		&models.ChatMessage{},
		&models.Announcement{},
		&models.ActivityLog{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSURL)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	chatRepo := repository.NewChatRepository(db)
	announcementRepo := repository.NewAnnouncementRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	activityService := service.NewActivityService(activityRepo, logger)
	authService := service.NewAuthService(userRepo, progressRepo, validate, cfg.JWTSecret, cfg.TokenTTL, logger)
	userService := service.NewUserService(userRepo, progressRepo, activityService, validate, logger)
	progressService := service.NewProgressService(progressRepo, submissionRepo, userRepo, redisClient, cfg.LeaderboardCacheTTL, logger)
	taskService := service.NewTaskService(taskRepo, submissionRepo, progressRepo, activityService, validate, logger)
	submissionService := service.NewSubmissionService(submissionRepo, taskRepo, userRepo, progressService, activityService, validate, logger)
	announcementService := service.NewAnnouncementService(announcementRepo, activityService, redisClient, cfg.AnnouncementTTL, validate, logger)
	chatService := service.NewChatService(chatRepo, userRepo, redisClient, cfg.ChatChannel, natsConn, validate, logger)

	var assistant ai.Assistant
	if cfg.OpenAIAPIKey != "" {
		openaiAssistant, err := ai.NewOpenAIAssistant(ai.OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.AIModel,
			Logger: logger,
		})
		if err != nil {
			log.Fatalf("failed to create openai assistant: %v", err)
		}
		assistant = openaiAssistant
	} else {
		logger.Warn().Msg("openai api key not set, ai endpoints disabled")
	}
	assistService := service.NewAssistService(assistant, cfg.AITimeout, validate, logger)

	appCtx, stopServices := context.WithCancel(context.Background())
	defer stopServices()
	chatService.Start(appCtx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:         handler.NewAuthHandler(authService, logger),
		UserHandler:         handler.NewUserHandler(userService, logger),
		TaskHandler:         handler.NewTaskHandler(taskService, submissionService, logger),
		SubmissionHandler:   handler.NewSubmissionHandler(submissionService, logger),
		ProgressHandler:     handler.NewProgressHandler(progressService, logger),
		AnnouncementHandler: handler.NewAnnouncementHandler(announcementService, logger),
		ChatHandler:         handler.NewChatHandler(chatService, logger),
		AIHandler:           handler.NewAIHandler(assistService, logger),
		ActivityHandler:     handler.NewActivityHandler(activityService, logger),
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
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
