package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/flexprice/subscriptions/internal/config"
	"github.com/flexprice/subscriptions/internal/httpclient"
	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/flexprice/subscriptions/internal/pubsub"
	pubsubRouter "github.com/flexprice/subscriptions/internal/pubsub/router"
	"github.com/flexprice/subscriptions/internal/types"
)

const (
	HeaderWebhookEvent   = "X-Webhook-Event"
	HeaderWebhookEventID = "X-Webhook-Event-ID"
)

// Handler interface for processing webhook events
type Handler interface {
	RegisterHandler(router *pubsubRouter.Router)
}

type handler struct {
	pubSub pubsub.PubSub
	config *config.WebhookConfig
	client httpclient.Client
	logger *logger.Logger
}

// NewHandler creates a handler that delivers events to the configured endpoint
func NewHandler(
	pubSub pubsub.PubSub,
	cfg *config.Configuration,
	client httpclient.Client,
	logger *logger.Logger,
) (Handler, error) {
	return &handler{
		pubSub: pubSub,
		config: &cfg.Webhook,
		client: client,
		logger: logger,
	}, nil
}

func (h *handler) RegisterHandler(router *pubsubRouter.Router) {
	router.AddNoPublishHandler(
		"webhook_handler",
		h.config.Topic,
		h.pubSub,
		h.processMessage,
	)
}

// processMessage processes a single webhook message
func (h *handler) processMessage(msg *message.Message) error {
	var event types.WebhookEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		h.logger.Errorw("failed to unmarshal webhook event",
			"error", err,
			"message_uuid", msg.UUID,
		)
		return nil
	}

	ctx := types.SetUserID(msg.Context(), event.UserID)
	return h.deliver(ctx, &event, msg.UUID)
}

func (h *handler) deliver(ctx context.Context, event *types.WebhookEvent, messageUUID string) error {
	if !h.config.Enabled || h.config.URL == "" {
		h.logger.Debugw("webhook endpoint not configured, skipping",
			"event", event.EventName,
			"message_uuid", messageUUID,
		)
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	headers := make(map[string]string, len(h.config.Headers)+2)
	for k, v := range h.config.Headers {
		headers[k] = v
	}
	headers[HeaderWebhookEvent] = event.EventName
	headers[HeaderWebhookEventID] = event.ID

	resp, err := h.client.Send(ctx, &httpclient.Request{
		Method:  http.MethodPost,
		URL:     h.config.URL,
		Headers: headers,
		Body:    body,
	})
	if err != nil {
		h.logger.Errorw("failed to send webhook",
			"error", err,
			"message_uuid", messageUUID,
			"user_id", event.UserID,
			"event", event.EventName,
		)
		return err
	}

	h.logger.Infow("webhook sent successfully",
		"message_uuid", messageUUID,
		"user_id", event.UserID,
		"event", event.EventName,
		"status_code", resp.StatusCode,
	)

	return nil
}
