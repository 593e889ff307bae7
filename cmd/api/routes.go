package main

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aymandakir/voice-ai-call-center/internal/auth"
	"github.com/aymandakir/voice-ai-call-center/internal/config"
	"github.com/aymandakir/voice-ai-call-center/internal/httpapi"
	"github.com/aymandakir/voice-ai-call-center/internal/rbac"
	"github.com/aymandakir/voice-ai-call-center/pkg/logger"
	"github.com/aymandakir/voice-ai-call-center/pkg/utils"
)

func newRouter(cfg config.Config, log *slog.Logger, manager *auth.Manager, h *httpapi.Handlers, db *sql.DB) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", func(c *gin.Context) {
		if err := utils.HealthCheck(c.Request.Context(), db, 2*time.Second); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Provider callbacks are unauthenticated by design; the voice webhook is
	// correlated via provider_call_id and the billing webhook is HMAC-signed.
	r.POST("/webhooks/voice", h.VoiceWebhook)
	r.POST("/webhooks/billing", h.BillingWebhook)

	r.POST("/v1/auth/login", h.HandleLogin)
	r.POST("/v1/auth/refresh", h.HandleRefresh)

	v1 := r.Group("/v1", auth.RequireAccessToken(manager), rbac.RequireOrganization())
	{
		v1.POST("/agents", rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleAdmin), h.CreateAgent)
		v1.GET("/agents", h.ListAgents)
		v1.GET("/agents/:id", h.GetAgent)
		v1.PATCH("/agents/:id", rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleAdmin), h.UpdateAgent)
		v1.DELETE("/agents/:id", rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleAdmin), h.DeleteAgent)

		v1.POST("/calls/outbound", h.StartOutboundCall)
		v1.GET("/calls", h.ListCalls)
		v1.GET("/calls/:id", h.GetCall)

		v1.GET("/analytics/summary", h.AnalyticsSummary)
		v1.GET("/usage/summary", h.UsageSummary)
	}

	return r
}
