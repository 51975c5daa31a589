package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oneboxlabs/onebox/config"
	"github.com/oneboxlabs/onebox/interfaces"
	"github.com/oneboxlabs/onebox/internal/enum"
)

func webhookEvent() interfaces.NotificationEvent {
	return interfaces.NotificationEvent{
		ID:        "evt_test",
		Name:      enum.EventNewEmail,
		Timestamp: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		AccountID: "acc1",
		Folder:    "INBOX",
		Category:  enum.CategoryNotInterested,
		Email:     testEmail(),
	}
}

func TestWebhookSink(t *testing.T) {
	ctx := context.Background()

	t.Run("posts the event with the routing header", func(t *testing.T) {
		var received map[string]interface{}
		var eventHeader string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			eventHeader = r.Header.Get("X-Event-Name")
			json.NewDecoder(r.Body).Decode(&received)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		sink := NewWebhookSink(server.URL, &config.WebhookConfig{TimeoutSec: 5})
		err := sink.Deliver(ctx, webhookEvent())

		require.NoError(t, err)
		assert.Equal(t, "new_email", eventHeader)
		assert.Equal(t, "new_email", received["event"])
		assert.Equal(t, "2025-06-01T10:00:00Z", received["timestamp"])
		require.NotNil(t, received["data"])
	})

	t.Run("non-2xx response is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusBadGateway)
		}))
		defer server.Close()

		sink := NewWebhookSink(server.URL, &config.WebhookConfig{TimeoutSec: 5})
		err := sink.Deliver(ctx, webhookEvent())

		assert.Error(t, err)
	})

	t.Run("accepts every event", func(t *testing.T) {
		sink := NewWebhookSink("https://example.com/hook", &config.WebhookConfig{TimeoutSec: 5})

		event := webhookEvent()
		for _, name := range []enum.EventName{enum.EventNewEmail, enum.EventInterestedEmail, enum.EventSpamDetected} {
			event.Name = name
			assert.True(t, sink.Accepts(event))
		}
	})
}

func TestSlackSink(t *testing.T) {
	t.Run("only accepts interested leads", func(t *testing.T) {
		sink := NewSlackSink(&config.SlackConfig{WebhookURL: "https://hooks.slack.com/test", TimeoutSec: 5})

		event := webhookEvent()
		event.Name = enum.EventInterestedEmail
		assert.True(t, sink.Accepts(event))

		event.Name = enum.EventNewEmail
		assert.False(t, sink.Accepts(event))
	})

	t.Run("posts an attachment to the webhook", func(t *testing.T) {
		var received map[string]interface{}
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewDecoder(r.Body).Decode(&received)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		sink := NewSlackSink(&config.SlackConfig{WebhookURL: server.URL, Channel: "#leads", TimeoutSec: 5})

		event := webhookEvent()
		event.Name = enum.EventInterestedEmail
		event.Category = enum.CategoryInterested

		require.NoError(t, sink.Deliver(context.Background(), event))
		assert.Equal(t, "#leads", received["channel"])
		require.NotEmpty(t, received["attachments"])
	})
}
