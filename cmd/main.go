package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sarrietav-dev/ai-backlog/internal/clients/redis"
	"github.com/sarrietav-dev/ai-backlog/internal/db"
	"github.com/sarrietav-dev/ai-backlog/internal/handlers"
	"github.com/sarrietav-dev/ai-backlog/internal/middleware"
	"github.com/sarrietav-dev/ai-backlog/internal/observability"
	"github.com/sarrietav-dev/ai-backlog/internal/platform/envutil"
	"github.com/sarrietav-dev/ai-backlog/internal/platform/logger"
	"github.com/sarrietav-dev/ai-backlog/internal/platform/openai"
	"github.com/sarrietav-dev/ai-backlog/internal/repos"
	"github.com/sarrietav-dev/ai-backlog/internal/server"
	"github.com/sarrietav-dev/ai-backlog/internal/services"
)

const serviceName = "ai-backlog"

func main() {
	// Logger
	logMode := envutil.String("LOG_MODE", "development")
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	jwtSecretKey := envutil.String("JWT_SECRET_KEY", "")
	if jwtSecretKey == "" {
		log.Fatal("JWT_SECRET_KEY is required")
	}
	accessTokenTTL := envutil.Int("ACCESS_TOKEN_TTL", 3600)
	refreshTokenTTL := envutil.Int("REFRESH_TOKEN_TTL", 86400)
	port := envutil.String("PORT", "8080")

	// Observability
	observability.SetCurrent(observability.NewMetrics())
	shutdownOtel := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: serviceName,
		Environment: envutil.String("ENVIRONMENT", "development"),
		Version:     envutil.String("SERVICE_VERSION", "dev"),
	})
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOtel(ctx); err != nil {
			log.Warn("otel shutdown failed", "error", err)
		}
	}()

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err := postgresService.AutoMigrateAll(); err != nil {
		log.Fatal("Postgres auto migration failed", "error", err)
	}
	gormDB := postgresService.DB()

	// Repos
	userRepo := repos.NewUserRepo(gormDB, log)
	userTokenRepo := repos.NewUserTokenRepo(gormDB, log)
	backlogRepo := repos.NewBacklogRepo(gormDB, log)
	chatMessageRepo := repos.NewChatMessageRepo(gormDB, log)
	userStoryRepo := repos.NewUserStoryRepo(gormDB, log)
	taskRepo := repos.NewTaskRepo(gormDB, log)
	techStackRepo := repos.NewTechStackRepo(gormDB, log)

	// Redis (optional)
	techStackCache, err := redis.NewTechStackCache(log)
	if err != nil {
		log.Warn("Redis init failed, continuing without cache", "error", err)
		techStackCache = nil
	}
	if techStackCache != nil {
		defer techStackCache.Close()
	}

	// OpenAI. Chat and tech stack analysis use the default model, story and
	// task generation run on a cheaper one.
	aiClient, err := openai.NewClient(log)
	if err != nil {
		log.Fatal("OpenAI client init failed", "error", err)
	}
	generationModel := envutil.String("OPENAI_GENERATION_MODEL", "gpt-4o-mini")
	generationClient := openai.WithModel(aiClient, generationModel)

	// Services
	authService := services.NewAuthService(
		gormDB, log, userRepo, userTokenRepo,
		jwtSecretKey,
		time.Duration(accessTokenTTL)*time.Second,
		time.Duration(refreshTokenTTL)*time.Second,
	)
	backlogService := services.NewBacklogService(gormDB, log, backlogRepo, techStackCache)
	chatService := services.NewChatService(gormDB, log, aiClient, backlogRepo, chatMessageRepo, userStoryRepo)
	storyService := services.NewStoryService(gormDB, log, generationClient, backlogRepo, userStoryRepo, chatMessageRepo)
	taskService := services.NewTaskService(gormDB, log, generationClient, userStoryRepo, taskRepo)
	techStackService := services.NewTechStackService(gormDB, log, aiClient, backlogRepo, userStoryRepo, techStackRepo, techStackCache)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	backlogHandler := handlers.NewBacklogHandler(backlogService, chatService)
	chatHandler := handlers.NewChatHandler(log, chatService)
	storyHandler := handlers.NewStoryHandler(log, storyService)
	taskHandler := handlers.NewTaskHandler(log, taskService)
	techStackHandler := handlers.NewTechStackHandler(log, techStackService)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	router := server.NewRouter(server.RouterConfig{
		Log:              log,
		ServiceName:      serviceName,
		AuthHandler:      authHandler,
		AuthMiddleware:   authMiddleware,
		BacklogHandler:   backlogHandler,
		ChatHandler:      chatHandler,
		StoryHandler:     storyHandler,
		TaskHandler:      taskHandler,
		TechStackHandler: techStackHandler,
	})

	log.Info("Starting server", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}
