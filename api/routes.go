package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/oneboxlabs/onebox/api/handlers"
	"github.com/oneboxlabs/onebox/api/middleware"
	"github.com/oneboxlabs/onebox/internal/repository"
	"github.com/oneboxlabs/onebox/internal/tracing"
	"github.com/oneboxlabs/onebox/services"
)

// RegisterRoutes sets up all API endpoints
func RegisterRoutes(ctx context.Context, r *gin.Engine, s *services.Services, repos *repository.Repositories, apikey string) {
	if s == nil {
		panic("Services cannot be nil")
	}
	if repos == nil {
		panic("Repositories cannot be nil")
	}

	// Add recovery middlewares
	r.Use(gin.Recovery())
	r.Use(tracing.RecoveryWithJaeger(opentracing.GlobalTracer()))

	// Health check and status endpoints (no auth needed)
	r.GET("/health", handlers.HealthCheck)
	r.GET("/status", handlers.Status(s.IMAPService))

	apiKeyMiddleware := middleware.APIKeyMiddleware(middleware.APIKeyConfig{
		HeaderName:  "X-ONEBOX-API-KEY",
		ValidAPIKey: apikey,
	})

	// API group with version
	api := r.Group("/v1")
	api.Use(apiKeyMiddleware)
	{
		// Account endpoints
		accounts := api.Group("/accounts")
		{
			accounts.GET("", handlers.ListAccounts(s.IMAPService))
			accounts.POST("", handlers.AddAccount(s.IMAPService))
			accounts.DELETE("/:id", handlers.RemoveAccount(s.IMAPService))
			accounts.POST("/:id/sync", handlers.SyncAccount(s.IMAPService))
		}

		// Stored email endpoints
		emails := api.Group("/emails")
		{
			emails.GET("", handlers.ListEmails(repos.EmailRepository))
			emails.GET("/:id", handlers.GetEmail(repos.EmailRepository))
		}
	}
}
