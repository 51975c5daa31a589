package notifier

import (
	"context"

	"github.com/oneboxlabs/onebox/interfaces"
)

// amqpSink forwards every event onto the notifications fanout exchange so
// downstream consumers can react asynchronously.
type amqpSink struct {
	publisher interfaces.EventPublisher
}

func NewAMQPSink(publisher interfaces.EventPublisher) interfaces.NotificationSink {
	return &amqpSink{publisher: publisher}
}

func (s *amqpSink) Name() string {
	return "amqp"
}

func (s *amqpSink) Accepts(event interfaces.NotificationEvent) bool {
	return true
}

func (s *amqpSink) Deliver(ctx context.Context, event interfaces.NotificationEvent) error {
	return s.publisher.PublishFanoutEvent(ctx, event.Name.String(), event)
}
