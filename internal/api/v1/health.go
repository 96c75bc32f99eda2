package v1

import (
	"net/http"
	"time"

	"github.com/flexprice/subscriptions/internal/config"
	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	config *config.Configuration
	logger *logger.Logger
}

func NewHealthHandler(
	config *config.Configuration,
	logger *logger.Logger,
) *HealthHandler {
	return &HealthHandler{
		config: config,
		logger: logger,
	}
}

func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"mode":   h.config.Deployment.Mode,
		"time":   time.Now().UTC(),
	})
}
