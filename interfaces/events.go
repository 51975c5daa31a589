package interfaces

import "context"

type EventPublisher interface {
	PublishFanoutEvent(ctx context.Context, routingKey string, message interface{}) error
	Close() error
}
