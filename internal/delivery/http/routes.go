package http

import (
	"github.com/gin-gonic/gin"

	"github.com/lucasrcosta20/IA-Cadastro/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(cfg.RateLimit.PerIP))
	{
		v1.POST("/generate", handler.Generate)
		v1.POST("/generate/batch", handler.GenerateBatch)
		v1.POST("/test", handler.TestGeneration)
		v1.GET("/stats", handler.Stats)

		cache := v1.Group("/cache")
		{
			cache.GET("/stats", handler.CacheStats)
			cache.DELETE("", handler.ClearCache)
			cache.POST("/prune", handler.PruneCache)
		}

		models := v1.Group("/models")
		{
			models.GET("", handler.ListModels)
			models.POST("/pull", handler.PullModel)
		}

		v1.GET("/config", handler.GetConfig)
		v1.PATCH("/config", handler.UpdateConfig)

		prompts := v1.Group("/prompts")
		{
			prompts.GET("", handler.GetPrompts)
			prompts.PUT("", handler.UpdatePrompts)
			prompts.POST("/validate", handler.ValidatePrompt)
			prompts.POST("/reset", handler.ResetPrompts)
			prompts.GET("/variables", handler.PromptVariables)
		}
	}

	return router
}
