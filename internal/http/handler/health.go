package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ReadinessChecker reports whether the bot is connected and receiving events.
type ReadinessChecker interface {
	Ready() bool
}

type HealthHandler struct {
	readiness ReadinessChecker
}

// NewHealthHandler accepts a nil checker, in which case the process is
// reported ready as soon as it serves requests.
func NewHealthHandler(readiness ReadinessChecker) *HealthHandler {
	return &HealthHandler{readiness: readiness}
}

func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) Ready(c *gin.Context) {
	if h.readiness != nil && !h.readiness.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
