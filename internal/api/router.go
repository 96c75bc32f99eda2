package api

import (
	"github.com/flexprice/subscriptions/internal/api/cron"
	v1 "github.com/flexprice/subscriptions/internal/api/v1"
	"github.com/flexprice/subscriptions/internal/config"
	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/flexprice/subscriptions/internal/rest/middleware"
	"github.com/flexprice/subscriptions/internal/types"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Health           *v1.HealthHandler
	CronSubscription *cron.SubscriptionHandler
}

func NewRouter(handlers Handlers, cfg *config.Configuration, logger *logger.Logger) *gin.Engine {
	if cfg.Logging.Level != types.LogLevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware,
		middleware.LoggerMiddleware(logger),
		middleware.ErrorHandler(logger),
	)

	router.GET("/health", handlers.Health.Health)

	v1Router := router.Group("/v1")
	v1Router.Use(middleware.UserIDMiddleware)

	// Cron routes
	cronGroup := v1Router.Group("/cron")
	cronGroup.Use(middleware.OpsTokenMiddleware(cfg.Server.OpsToken, logger))
	{
		subscriptionGroup := cronGroup.Group("/subscriptions")
		{
			subscriptionGroup.POST("/sweep", handlers.CronSubscription.Sweep)
			subscriptionGroup.POST("/expire", handlers.CronSubscription.MarkExpiredSubscriptionsAsInactive)
			subscriptionGroup.POST("/charge", handlers.CronSubscription.ChargeActiveSubscriptions)
		}
	}

	return router
}
