package messaging

import (
	"context"
	"time"

	"github.com/jwalitptl/orders-api/pkg/metrics"
)

// ChannelPublisher publishes typed messages to a single broker channel.
type ChannelPublisher struct {
	broker  Broker
	channel string
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewPublisher(broker Broker, channel string, m *metrics.Metrics) *ChannelPublisher {
	return &ChannelPublisher{
		broker:  broker,
		channel: channel,
		metrics: m,
		now:     time.Now,
	}
}

func (p *ChannelPublisher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	err := p.broker.Publish(ctx, p.channel, Message{
		Type:       eventType,
		Payload:    payload,
		OccurredAt: p.now().UTC(),
	})
	p.metrics.EventPublished(eventType, err)
	return err
}
