package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/oneboxlabs/onebox/config"
	"github.com/oneboxlabs/onebox/interfaces"
	"github.com/oneboxlabs/onebox/internal/enum"
	"github.com/oneboxlabs/onebox/internal/models"
	"github.com/oneboxlabs/onebox/internal/tracing"
)

const systemPrompt = `You are an email categorization assistant for a sales outreach tool.
Classify the email into exactly one of these categories:
- interested: the sender shows interest in the product or offer
- not_interested: the sender declines or shows no interest
- meeting_booked: a meeting has been scheduled or confirmed
- spam: unsolicited or irrelevant bulk email
- out_of_office: an automatic out-of-office reply

Respond with only the category name, nothing else.`

// maxBodyChars caps the body excerpt sent for classification. Long emails
// carry no extra signal past the opening paragraphs.
const maxBodyChars = 4000

type classifierService struct {
	cfg        *config.OpenAIConfig
	httpClient *http.Client
}

func NewClassifierService(cfg *config.OpenAIConfig) interfaces.Classifier {
	return &classifierService{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSec) * time.Second,
		},
	}
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (s *classifierService) Classify(ctx context.Context, email *models.Email) (enum.EmailCategory, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "classifierService.Classify")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagAccount(span, email.AccountID)
	span.SetTag("emailId", email.ID)

	if s.cfg.APIKey == "" {
		err := errors.New("openai api key not configured")
		tracing.TraceErr(span, err)
		return enum.DefaultEmailCategory, err
	}

	request := chatCompletionRequest{
		Model: s.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildUserPrompt(email)},
		},
		Temperature: s.cfg.Temperature,
		MaxTokens:   10,
	}

	payload, err := json.Marshal(request)
	if err != nil {
		tracing.TraceErr(span, err)
		return enum.DefaultEmailCategory, errors.Wrap(err, "failed to marshal payload")
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.cfg.BaseURL+"/chat/completions", bytes.NewBuffer(payload))
	if err != nil {
		tracing.TraceErr(span, err)
		return enum.DefaultEmailCategory, errors.Wrap(err, "failed to create request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		tracing.TraceErr(span, err)
		return enum.DefaultEmailCategory, errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		tracing.TraceErr(span, err)
		return enum.DefaultEmailCategory, errors.Wrap(err, "unable to read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("request failed with status code %d: %s", resp.StatusCode, string(body))
		tracing.TraceErr(span, err)
		return enum.DefaultEmailCategory, err
	}

	var response chatCompletionResponse
	if err := json.Unmarshal(body, &response); err != nil {
		tracing.TraceErr(span, err)
		return enum.DefaultEmailCategory, errors.Wrap(err, "failed to unmarshal response")
	}

	if len(response.Choices) == 0 {
		err := errors.New("empty completion response")
		tracing.TraceErr(span, err)
		return enum.DefaultEmailCategory, err
	}

	label := strings.ToLower(strings.TrimSpace(response.Choices[0].Message.Content))
	category, known := enum.ParseEmailCategory(label)
	if !known {
		err := errors.Errorf("classifier returned unknown label %q", label)
		tracing.TraceErr(span, err)
		return enum.DefaultEmailCategory, err
	}

	span.SetTag("category", category.String())
	return category, nil
}

func buildUserPrompt(email *models.Email) string {
	body := email.BodyText
	if body == "" {
		body = email.BodyHTML
	}
	if len(body) > maxBodyChars {
		body = body[:maxBodyChars]
	}

	var sb strings.Builder
	sb.WriteString("From: ")
	sb.WriteString(email.FromAddress)
	sb.WriteString("\nSubject: ")
	sb.WriteString(email.Subject)
	sb.WriteString("\n\n")
	sb.WriteString(body)
	return sb.String()
}
