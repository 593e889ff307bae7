package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aymandakir/voice-ai-call-center/internal/analytics"
)

// AnalyticsSummary reports call aggregates over ?from=..&to=.. (RFC3339),
// defaulting to the trailing 30 days.
func (h *Handlers) AnalyticsSummary(c *gin.Context) {
	oid, ok := organizationID(c)
	if !ok {
		return
	}

	now := time.Now().UTC()
	from, to := now.AddDate(0, 0, -30), now
	if v := c.Query("from"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from"})
			return
		}
		from = ts
	}
	if v := c.Query("to"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to"})
			return
		}
		to = ts
	}

	sum, err := h.Analytics.CallsSummary(c.Request.Context(), oid, from, to)
	if err != nil {
		if errors.Is(err, analytics.ErrInvalidRange) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid range"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, sum)
}

// UsageSummary reports the current (or ?month=YYYY-MM) calendar month's usage
// against the organization's plan limits.
func (h *Handlers) UsageSummary(c *gin.Context) {
	oid, ok := organizationID(c)
	if !ok {
		return
	}

	at := time.Now().UTC()
	if v := c.Query("month"); v != "" {
		ts, err := time.Parse("2006-01", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid month"})
			return
		}
		at = ts
	}

	sum, err := h.Analytics.UsageSummary(c.Request.Context(), oid, at)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, sum)
}
