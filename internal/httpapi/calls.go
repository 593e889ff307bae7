package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aymandakir/voice-ai-call-center/internal/calls"
	"github.com/aymandakir/voice-ai-call-center/pkg/logger"
)

const defaultCallPageSize = 50

func (h *Handlers) StartOutboundCall(c *gin.Context) {
	oid, ok := organizationID(c)
	if !ok {
		return
	}

	var req calls.StartOutboundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	call, err := h.Initiator.StartOutbound(c.Request.Context(), oid, req)
	if err != nil {
		switch {
		case errors.Is(err, calls.ErrInvalidArgument), errors.Is(err, calls.ErrNoFromNumber):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, calls.ErrAgentNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "agent not found"})
		case errors.Is(err, calls.ErrAgentInactive):
			c.JSON(http.StatusConflict, gin.H{"error": "agent is inactive"})
		case errors.Is(err, calls.ErrConcurrencyLimit):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "outbound call limit reached"})
		default:
			logger.FromGin(c).Error("outbound call start failed", "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "call could not be started"})
		}
		return
	}

	c.JSON(http.StatusCreated, call)
}

func (h *Handlers) ListCalls(c *gin.Context) {
	oid, ok := organizationID(c)
	if !ok {
		return
	}

	f := calls.ListFilter{
		AgentID:   c.Query("agent_id"),
		Direction: calls.Direction(c.Query("direction")),
		Status:    calls.Status(c.Query("status")),
		Outcome:   c.Query("outcome"),
		Limit:     defaultCallPageSize,
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		f.Limit = n
	}
	if v := c.Query("from"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from"})
			return
		}
		f.From = ts
	}
	if v := c.Query("to"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to"})
			return
		}
		f.To = ts
	}

	list, err := h.Store.ListCalls(c.Request.Context(), oid, f)
	if err != nil {
		logger.FromGin(c).Error("list calls failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"calls": list})
}

func (h *Handlers) GetCall(c *gin.Context) {
	oid, ok := organizationID(c)
	if !ok {
		return
	}

	call, err := h.Store.GetCall(c.Request.Context(), oid, c.Param("id"))
	if err != nil {
		if errors.Is(err, calls.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "call not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	events, err := h.Store.ListEvents(c.Request.Context(), call.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"call": call, "events": events})
}
