package handlers

import (
	"net/http"

	"github.com/SscSPs/txn_ingest/cmd/docs"
	portssvc "github.com/SscSPs/txn_ingest/internal/core/ports/services"
	"github.com/SscSPs/txn_ingest/internal/middleware"
	"github.com/SscSPs/txn_ingest/internal/platform/config"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// EventTracker records product events for the authenticated user. A nil
// tracker disables tracking.
type EventTracker interface {
	Track(c *gin.Context, eventName string, properties map[string]any)
}

// RegisterRoutes mounts every route on r:
//
//	/health, /metrics        unauthenticated health and scrape endpoints
//	/webhooks/...            aggregator callbacks, per-setup webhook token
//	/api/v1/...              bearer JWT
//	/swagger/...             outside production only
func RegisterRoutes(r *gin.Engine, cfg *config.Config, svc *portssvc.ServiceContainer, events EventTracker) {
	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "OK") })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	registerWebhookRoutes(r, svc.Setup, svc.BankSync)

	api := r.Group("/api/v1", middleware.AuthMiddleware(cfg.JWTSecret, cfg.JWTIssuer))
	registerImportRoutes(api, svc.Import, events)
	registerTemplateRoutes(api, svc.Template)
	registerQueueRoutes(api, svc.Queue, events)
	registerSetupRoutes(api, svc)
	registerMaintenanceRoutes(api, svc.Maintenance, cfg.OrphanGrace)

	if !cfg.IsProduction {
		docs.SwaggerInfo.BasePath = "/api/v1"
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
}
