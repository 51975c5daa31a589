package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/oneboxlabs/onebox/config"
	"github.com/oneboxlabs/onebox/interfaces"
)

// webhookSink POSTs every event to one configured endpoint. The event name
// travels in the X-Event-Name header so receivers can route without parsing
// the body.
type webhookSink struct {
	url        string
	httpClient *http.Client
}

func NewWebhookSink(url string, cfg *config.WebhookConfig) interfaces.NotificationSink {
	return &webhookSink{
		url: url,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSec) * time.Second,
		},
	}
}

func (s *webhookSink) Name() string {
	return fmt.Sprintf("webhook:%s", s.url)
}

func (s *webhookSink) Accepts(event interfaces.NotificationEvent) bool {
	return true
}

func (s *webhookSink) Deliver(ctx context.Context, event interfaces.NotificationEvent) error {
	payload, err := json.Marshal(map[string]interface{}{
		"event":     event.Name,
		"timestamp": event.Timestamp.Format(time.RFC3339),
		"data":      event.Email,
	})
	if err != nil {
		return errors.Wrap(err, "failed to marshal webhook payload")
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.url, bytes.NewBuffer(payload))
	if err != nil {
		return errors.Wrap(err, "failed to create webhook request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Name", event.Name.String())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "webhook request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return errors.Errorf("webhook returned status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
