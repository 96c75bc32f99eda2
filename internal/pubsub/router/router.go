package router

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/flexprice/subscriptions/internal/logger"
)

const deadLetterTopic = "webhooks_dlq"

// Router runs the webhook delivery handlers on a watermill router
type Router struct {
	router *message.Router
	logger *logger.Logger
}

// NewRouter builds a router whose failed messages go to an in-memory poison
// queue. The HTTP client already retries deliveries, so nothing is redelivered here.
func NewRouter(logger *logger.Logger) (*Router, error) {
	wl := logger.GetWatermillLogger()

	r, err := message.NewRouter(message.RouterConfig{}, wl)
	if err != nil {
		return nil, err
	}

	dlq := gochannel.NewGoChannel(gochannel.Config{}, wl)
	poison, err := middleware.PoisonQueue(dlq, deadLetterTopic)
	if err != nil {
		return nil, err
	}
	r.AddMiddleware(poison, middleware.Recoverer, middleware.CorrelationID)

	return &Router{router: r, logger: logger}, nil
}

func (r *Router) logFailures(name string, h message.NoPublishHandlerFunc) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		err := h(msg)
		if err != nil {
			r.logger.Errorw("message handler failed",
				"handler", name,
				"message_uuid", msg.UUID,
				"correlation_id", middleware.MessageCorrelationID(msg),
				"error", err,
			)
		}
		return err
	}
}

// AddNoPublishHandler consumes topic with h. Extra middlewares run inside the router-wide ones.
func (r *Router) AddNoPublishHandler(
	name string,
	topic string,
	subscriber message.Subscriber,
	h message.NoPublishHandlerFunc,
	middlewares ...message.HandlerMiddleware,
) {
	handler := r.router.AddNoPublisherHandler(name, topic, subscriber, r.logFailures(name, h))
	handler.AddMiddleware(middlewares...)
}

// Run blocks until ctx is cancelled or Close is called
func (r *Router) Run(ctx context.Context) error {
	r.logger.Info("message router starting")
	return r.router.Run(ctx)
}

// Running is closed once every handler has subscribed
func (r *Router) Running() chan struct{} {
	return r.router.Running()
}

func (r *Router) Close() error {
	r.logger.Info("message router closing")
	return r.router.Close()
}
