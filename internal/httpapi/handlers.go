// Package httpapi contains the gin handlers for the public API surface:
// provider webhooks, authentication and the authenticated dashboard routes.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aymandakir/voice-ai-call-center/internal/agents"
	"github.com/aymandakir/voice-ai-call-center/internal/analytics"
	"github.com/aymandakir/voice-ai-call-center/internal/auth"
	"github.com/aymandakir/voice-ai-call-center/internal/billing"
	"github.com/aymandakir/voice-ai-call-center/internal/calls"
)

// Handlers bundles the injected services. Everything is constructed in main
// and passed down; handlers hold no global state.
type Handlers struct {
	Login     *auth.LoginService
	Agents    *agents.Service
	Store     calls.Store
	Sync      *calls.Synchronizer
	Initiator *calls.Initiator
	Billing   *billing.Service
	Analytics *analytics.Service
}

func (h *Handlers) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// organizationID pulls the tenant from the authenticated request context.
// RequireOrganization guarantees presence on protected routes.
func organizationID(c *gin.Context) (string, bool) {
	oid, err := auth.OrganizationID(c.Request.Context())
	if err != nil || oid == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "organization_id required"})
		return "", false
	}
	return oid, true
}
