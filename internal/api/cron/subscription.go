package cron

import (
	"net/http"

	"github.com/flexprice/subscriptions/internal/api/dto"
	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/flexprice/subscriptions/internal/scheduler"
	"github.com/flexprice/subscriptions/internal/service"
	"github.com/gin-gonic/gin"
)

// SubscriptionHandler triggers the billing sweep steps on demand
type SubscriptionHandler struct {
	subscriptionService service.SubscriptionService
	scheduler           *scheduler.Scheduler
	logger              *logger.Logger
}

// NewSubscriptionHandler creates a new subscription handler
func NewSubscriptionHandler(
	subscriptionService service.SubscriptionService,
	scheduler *scheduler.Scheduler,
	logger *logger.Logger,
) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionService: subscriptionService,
		scheduler:           scheduler,
		logger:              logger,
	}
}

// Sweep runs a full cycle, the same work the scheduler does at midnight UTC
func (h *SubscriptionHandler) Sweep(c *gin.Context) {
	h.logger.Infow("starting billing sweep cron job")

	response, err := h.scheduler.RunOnce(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *SubscriptionHandler) MarkExpiredSubscriptionsAsInactive(c *gin.Context) {
	expired, err := h.subscriptionService.MarkExpiredSubscriptionsAsInactive(c.Request.Context())
	if err != nil {
		h.logger.Errorw("failed to mark expired subscriptions inactive",
			"error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.ExpireSubscriptionsResponse{Expired: expired})
}

func (h *SubscriptionHandler) ChargeActiveSubscriptions(c *gin.Context) {
	response, err := h.subscriptionService.ChargeActiveSubscriptions(c.Request.Context())
	if err != nil {
		h.logger.Errorw("failed to charge active subscriptions",
			"error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, response)
}
