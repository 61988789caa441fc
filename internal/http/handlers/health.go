package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/agepredict-backend/internal/session"
)

type HealthHandler struct {
	registry *session.Registry
}

func NewHealthHandler(registry *session.Registry) *HealthHandler {
	return &HealthHandler{registry: registry}
}

// GET /healthcheck
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	body := gin.H{"status": "ok"}
	if h.registry != nil {
		body["sessions"] = h.registry.Len()
	}
	c.JSON(http.StatusOK, body)
}
