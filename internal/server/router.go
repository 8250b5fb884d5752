package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/sarrietav-dev/ai-backlog/internal/handlers"
	"github.com/sarrietav-dev/ai-backlog/internal/middleware"
	"github.com/sarrietav-dev/ai-backlog/internal/platform/envutil"
	"github.com/sarrietav-dev/ai-backlog/internal/platform/logger"
)

type RouterConfig struct {
	Log              *logger.Logger
	ServiceName      string
	AuthHandler      *handlers.AuthHandler
	AuthMiddleware   *middleware.AuthMiddleware
	BacklogHandler   *handlers.BacklogHandler
	ChatHandler      *handlers.ChatHandler
	StoryHandler     *handlers.StoryHandler
	TaskHandler      *handlers.TaskHandler
	TechStackHandler *handlers.TechStackHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(middleware.AttachTraceContext())
	router.Use(middleware.RequestLog(cfg.Log))
	router.Use(middleware.APIMetrics())

	allowOrigins := strings.Split(envutil.String("CORS_ALLOW_ORIGINS", "http://localhost:3000"), ",")
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-Request-Id"},
		AllowCredentials: true,
	}))

	// Public
	router.GET("/healthcheck", handlers.HealthCheck)
	if envutil.Bool("DEBUG_METRICS_ENABLED", false) {
		router.GET("/debug/metrics", handlers.MetricsSnapshot)
	}

	api := router.Group("/api")
	api.POST("/register", cfg.AuthHandler.Register)
	api.POST("/login", cfg.AuthHandler.Login)

	// Protected
	protected := api.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())

	protected.POST("/refresh", cfg.AuthHandler.Refresh)
	protected.POST("/logout", cfg.AuthHandler.Logout)

	protected.GET("/backlogs", cfg.BacklogHandler.List)
	protected.POST("/backlogs", cfg.BacklogHandler.Create)
	protected.GET("/backlogs/:backlogId", cfg.BacklogHandler.Get)
	protected.PATCH("/backlogs/:backlogId", cfg.BacklogHandler.Update)
	protected.DELETE("/backlogs/:backlogId", cfg.BacklogHandler.Delete)
	protected.GET("/backlogs/:backlogId/messages", cfg.BacklogHandler.ListMessages)
	protected.GET("/backlogs/:backlogId/stories", cfg.StoryHandler.ListByBacklog)
	protected.GET("/stories", cfg.StoryHandler.List)
	protected.GET("/stories/:storyId/tasks", cfg.TaskHandler.ListByStory)

	protected.POST("/chat", cfg.ChatHandler.Stream)
	protected.POST("/generate-stories", cfg.StoryHandler.Generate)
	protected.POST("/generate-stories-from-chat", cfg.StoryHandler.GenerateFromChat)
	protected.POST("/generate-tasks", cfg.TaskHandler.Generate)
	protected.POST("/generate-tech-stack", cfg.TechStackHandler.Generate)
	protected.GET("/get-cached-tech-stack", cfg.TechStackHandler.GetCached)

	protected.POST("/save-stories", cfg.StoryHandler.Save)
	protected.POST("/save-tasks", cfg.TaskHandler.Save)
	protected.POST("/save-tech-stack", cfg.TechStackHandler.Save)
	protected.PATCH("/update-story-status", cfg.StoryHandler.UpdateStatus)
	protected.PATCH("/update-task-status", cfg.TaskHandler.UpdateStatus)

	return router
}
