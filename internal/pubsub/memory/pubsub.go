package memory

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/flexprice/subscriptions/internal/pubsub"
)

const outputBuffer = 100

// PubSub is the in-process transport between the webhook publisher and the
// delivery handler. Messages published with no subscriber are dropped.
type PubSub struct {
	ch *gochannel.GoChannel
}

func NewPubSub(logger *logger.Logger) pubsub.PubSub {
	return &PubSub{
		ch: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: outputBuffer,
		}, logger.GetWatermillLogger()),
	}
}

func (p *PubSub) Publish(_ context.Context, topic string, msg *message.Message) error {
	return p.ch.Publish(topic, msg)
}

func (p *PubSub) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return p.ch.Subscribe(ctx, topic)
}

func (p *PubSub) Close() error {
	return p.ch.Close()
}
