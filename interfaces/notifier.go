package interfaces

import (
	"context"
	"time"

	"github.com/oneboxlabs/onebox/internal/enum"
	"github.com/oneboxlabs/onebox/internal/models"
)

// NotificationEvent is one outbound event about a processed message.
type NotificationEvent struct {
	ID        string             `json:"id"`
	Name      enum.EventName     `json:"event"`
	Timestamp time.Time          `json:"timestamp"`
	AccountID string             `json:"accountId"`
	Folder    string             `json:"folder"`
	Category  enum.EmailCategory `json:"category"`
	Email     *models.Email      `json:"data"`
}

// DeliveryResult records one sink's outcome for one event. A failed sink
// never prevents delivery to the remaining sinks.
type DeliveryResult struct {
	Sink  string
	Event enum.EventName
	Err   error
}

type NotificationSink interface {
	Name() string
	// Accepts reports whether this sink wants the event at all.
	Accepts(event NotificationEvent) bool
	Deliver(ctx context.Context, event NotificationEvent) error
}

type Notifier interface {
	Notify(ctx context.Context, email *models.Email, category enum.EmailCategory) []DeliveryResult
}
