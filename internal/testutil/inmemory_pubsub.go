package testutil

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/flexprice/subscriptions/internal/pubsub"
)

var _ pubsub.PubSub = (*InMemoryPubSub)(nil)

const subscriberBuffer = 64

// topicLog holds everything published on one topic plus its live listeners
type topicLog struct {
	published []*message.Message
	listeners []chan *message.Message
}

// InMemoryPubSub records published webhook messages so tests can assert on
// them. Subscribers first receive the backlog, then live messages.
type InMemoryPubSub struct {
	mu     sync.RWMutex
	topics map[string]*topicLog
}

func NewInMemoryPubSub() *InMemoryPubSub {
	return &InMemoryPubSub{topics: make(map[string]*topicLog)}
}

func (ps *InMemoryPubSub) topic(name string) *topicLog {
	t, ok := ps.topics[name]
	if !ok {
		t = &topicLog{}
		ps.topics[name] = t
	}
	return t
}

func (ps *InMemoryPubSub) Publish(_ context.Context, topic string, msg *message.Message) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	t := ps.topic(topic)
	t.published = append(t.published, msg)
	for _, ch := range t.listeners {
		select {
		case ch <- msg:
		default:
			// slow listener, the message stays in the backlog
		}
	}
	return nil
}

func (ps *InMemoryPubSub) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	t := ps.topic(topic)
	ch := make(chan *message.Message, subscriberBuffer)
	t.listeners = append(t.listeners, ch)

	backlog := append([]*message.Message(nil), t.published...)
	if len(backlog) > 0 {
		go func() {
			for _, msg := range backlog {
				select {
				case ch <- msg:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	return ch, nil
}

func (ps *InMemoryPubSub) Close() error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	for _, t := range ps.topics {
		for _, ch := range t.listeners {
			close(ch)
		}
	}
	ps.topics = make(map[string]*topicLog)
	return nil
}

// GetMessages returns a snapshot of the messages published on topic
func (ps *InMemoryPubSub) GetMessages(topic string) []*message.Message {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	t, ok := ps.topics[topic]
	if !ok {
		return nil
	}
	return append([]*message.Message(nil), t.published...)
}

// ClearMessages drops the recorded backlog but keeps listeners attached
func (ps *InMemoryPubSub) ClearMessages() {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	for _, t := range ps.topics {
		t.published = nil
	}
}
