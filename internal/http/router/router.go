package router

import (
	"github.com/gin-gonic/gin"

	"switchboard.app/server/internal/http/handler"
	"switchboard.app/server/internal/http/handler/webhook"
	"switchboard.app/server/internal/http/middleware"
	"switchboard.app/server/internal/service"
)

type RouterConfig struct {
	PublicURL     string
	JWTSigningKey string
	JWTIssuer     string

	// Ready backs GET /ready, usually the database ping.
	Ready handler.Pinger
}

func SetupRoutes(router *gin.Engine, services *service.Services, cfg RouterConfig) {
	health := handler.NewHealthHandler(cfg.Ready)
	router.GET("/health", health.Health)
	router.GET("/ready", health.Ready)

	ingress := webhook.NewIngressHandler(services.Integrations(), services.Platforms(), services.Conversations())
	AppEventsRouter(router.Group("/api/apps"), ingress)

	requireTenant := middleware.RequireTenant(middleware.NewTokenVerifier(cfg.JWTSigningKey, cfg.JWTIssuer))

	v1 := router.Group("/api/v1", requireTenant)
	{
		appHandler := handler.NewAppIntegrationHandler(services.AppIntegrations(), cfg.PublicURL)
		AppIntegrationRouter(v1.Group("/apps"), appHandler)

		webhookHandler := handler.NewWebhookHandler(services.Webhooks())
		WebhookRouter(v1.Group("/webhooks"), webhookHandler)
	}

	agent := router.Group("/api/agent", requireTenant)
	{
		conversationHandler := handler.NewConversationHandler(services.Conversations())
		ConversationRouter(agent.Group("/conversation"), conversationHandler)
	}
}

func AppEventsRouter(router *gin.RouterGroup, h *webhook.IngressHandler) {
	router.POST("/:platform/events/:integration_id", h.HandleEvent)
	router.POST("/:platform/events/:integration_id/:secret", h.HandleEvent)
}

func AppIntegrationRouter(router *gin.RouterGroup, h *handler.AppIntegrationHandler) {
	router.GET("/platforms", h.Platforms)
	router.POST("", h.Create)
	router.GET("", h.List)
	router.GET("/:id", h.Get)
	router.PATCH("/:id", h.Update)
	router.DELETE("/:id", h.Delete)
	router.POST("/:id/enable", h.Enable)
	router.POST("/:id/disable", h.Disable)
	router.POST("/:id/test", h.Test)
	router.POST("/:id/rotate-secret", h.RotateSecret)
}

func WebhookRouter(router *gin.RouterGroup, h *handler.WebhookHandler) {
	router.POST("", h.Create)
	router.GET("", h.List)
	router.DELETE("/:id", h.Delete)
	router.POST("/trigger", h.Trigger)
}

func ConversationRouter(router *gin.RouterGroup, h *handler.ConversationHandler) {
	router.POST("/outbound", h.SendOutgoing)
	router.GET("/threads/:id/messages", h.ListMessages)
}
