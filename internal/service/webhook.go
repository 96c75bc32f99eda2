package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/flexprice/subscriptions/internal/types"
)

// publishWebhookEvent hands an event to the webhook publisher. Failures are
// logged only, a committed operation is never reported as failed because
// its notification could not be queued.
func (sp ServiceParams) publishWebhookEvent(ctx context.Context, eventName, userID string, payload interface{}) {
	if sp.WebhookPublisher == nil {
		return
	}

	webhookPayload, err := json.Marshal(payload)
	if err != nil {
		sp.Logger.Errorw("failed to marshal webhook payload",
			"event_name", eventName,
			"error", err,
		)
		return
	}

	webhookEvent := &types.WebhookEvent{
		ID:        types.NewID(types.IDPrefixWebhookEvent),
		EventName: eventName,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		Payload:   json.RawMessage(webhookPayload),
	}
	if err := sp.WebhookPublisher.PublishWebhook(ctx, webhookEvent); err != nil {
		sp.Logger.Errorf("failed to publish %s event: %v", webhookEvent.EventName, err)
	}
}
