package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/oneboxlabs/onebox/config"
	"github.com/oneboxlabs/onebox/interfaces"
	"github.com/oneboxlabs/onebox/internal/enum"
)

// slackSink posts a formatted attachment to a Slack incoming webhook for
// interested leads only. It is a side channel on top of the regular event
// sinks, not a general event consumer.
type slackSink struct {
	cfg        *config.SlackConfig
	httpClient *http.Client
}

func NewSlackSink(cfg *config.SlackConfig) interfaces.NotificationSink {
	return &slackSink{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSec) * time.Second,
		},
	}
}

func (s *slackSink) Name() string {
	return "slack"
}

func (s *slackSink) Accepts(event interfaces.NotificationEvent) bool {
	return event.Name == enum.EventInterestedEmail
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Fields []slackField `json:"fields"`
	Footer string       `json:"footer"`
	Ts     int64        `json:"ts"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

func (s *slackSink) Deliver(ctx context.Context, event interfaces.NotificationEvent) error {
	email := event.Email

	received := ""
	if email.ReceivedAt != nil {
		received = email.ReceivedAt.Format(time.RFC1123)
	}

	message := map[string]interface{}{
		"channel": s.cfg.Channel,
		"text":    ":tada: New interested lead",
		"attachments": []slackAttachment{
			{
				Color: "#36a64f",
				Title: email.Subject,
				Fields: []slackField{
					{Title: "From", Value: email.FromAddress, Short: true},
					{Title: "Account", Value: email.AccountID, Short: true},
					{Title: "Category", Value: event.Category.String(), Short: true},
					{Title: "Received", Value: received, Short: true},
				},
				Footer: "Onebox",
				Ts:     event.Timestamp.Unix(),
			},
		},
	}

	payload, err := json.Marshal(message)
	if err != nil {
		return errors.Wrap(err, "failed to marshal slack payload")
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.cfg.WebhookURL, bytes.NewBuffer(payload))
	if err != nil {
		return errors.Wrap(err, "failed to create slack request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "slack request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return errors.Errorf("slack returned status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
