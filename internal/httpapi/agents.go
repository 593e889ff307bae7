package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aymandakir/voice-ai-call-center/internal/agents"
)

func (h *Handlers) CreateAgent(c *gin.Context) {
	oid, ok := organizationID(c)
	if !ok {
		return
	}

	var req agents.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	a, err := h.Agents.Create(c.Request.Context(), oid, req)
	if err != nil {
		h.agentError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h *Handlers) ListAgents(c *gin.Context) {
	oid, ok := organizationID(c)
	if !ok {
		return
	}

	list, err := h.Agents.List(c.Request.Context(), oid)
	if err != nil {
		h.agentError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"agents": list})
}

func (h *Handlers) GetAgent(c *gin.Context) {
	oid, ok := organizationID(c)
	if !ok {
		return
	}

	a, err := h.Agents.Get(c.Request.Context(), oid, c.Param("id"))
	if err != nil {
		h.agentError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handlers) UpdateAgent(c *gin.Context) {
	oid, ok := organizationID(c)
	if !ok {
		return
	}

	var req agents.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	a, err := h.Agents.Update(c.Request.Context(), oid, c.Param("id"), req)
	if err != nil {
		h.agentError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handlers) DeleteAgent(c *gin.Context) {
	oid, ok := organizationID(c)
	if !ok {
		return
	}

	if err := h.Agents.Delete(c.Request.Context(), oid, c.Param("id")); err != nil {
		h.agentError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) agentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, agents.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "agent not found"})
	case errors.Is(err, agents.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid agent"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
