package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oneboxlabs/onebox/config"
	"github.com/oneboxlabs/onebox/internal/enum"
	"github.com/oneboxlabs/onebox/internal/models"
)

func completionServer(t *testing.T, label string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var request chatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&request))
		require.Len(t, request.Messages, 2)
		assert.Equal(t, "system", request.Messages[0].Role)
		assert.Equal(t, float64(0), request.Temperature)

		response := chatCompletionResponse{}
		response.Choices = append(response.Choices, struct {
			Message chatMessage `json:"message"`
		}{Message: chatMessage{Role: "assistant", Content: label}})
		json.NewEncoder(w).Encode(response)
	}))
}

func classifierFor(baseURL string) *classifierService {
	return NewClassifierService(&config.OpenAIConfig{
		APIKey:     "test-key",
		Model:      "gpt-4o-mini",
		BaseURL:    baseURL,
		TimeoutSec: 5,
	}).(*classifierService)
}

func testEmail() *models.Email {
	return &models.Email{
		ID:          "acc1-INBOX-1",
		AccountID:   "acc1",
		FromAddress: "jane@example.com",
		Subject:     "Interested in a demo",
		BodyText:    "Can we schedule a call next week?",
	}
}

func TestClassify(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the label from the completion", func(t *testing.T) {
		server := completionServer(t, "interested")
		defer server.Close()

		category, err := classifierFor(server.URL).Classify(ctx, testEmail())

		require.NoError(t, err)
		assert.Equal(t, enum.CategoryInterested, category)
	})

	t.Run("trims and lowercases the label", func(t *testing.T) {
		server := completionServer(t, "  Out_Of_Office \n")
		defer server.Close()

		category, err := classifierFor(server.URL).Classify(ctx, testEmail())

		require.NoError(t, err)
		assert.Equal(t, enum.CategoryOutOfOffice, category)
	})

	t.Run("unknown label degrades to the default", func(t *testing.T) {
		server := completionServer(t, "maybe interested?")
		defer server.Close()

		category, err := classifierFor(server.URL).Classify(ctx, testEmail())

		assert.Error(t, err)
		assert.Equal(t, enum.DefaultEmailCategory, category)
	})

	t.Run("upstream failure degrades to the default", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		}))
		defer server.Close()

		category, err := classifierFor(server.URL).Classify(ctx, testEmail())

		assert.Error(t, err)
		assert.Equal(t, enum.DefaultEmailCategory, category)
	})

	t.Run("missing api key fails without a request", func(t *testing.T) {
		service := NewClassifierService(&config.OpenAIConfig{TimeoutSec: 5})

		category, err := service.Classify(ctx, testEmail())

		assert.Error(t, err)
		assert.Equal(t, enum.DefaultEmailCategory, category)
	})
}

func TestBuildUserPrompt(t *testing.T) {
	t.Run("includes sender, subject and body", func(t *testing.T) {
		prompt := buildUserPrompt(testEmail())

		assert.Contains(t, prompt, "From: jane@example.com")
		assert.Contains(t, prompt, "Subject: Interested in a demo")
		assert.Contains(t, prompt, "Can we schedule a call next week?")
	})

	t.Run("falls back to html when there is no text", func(t *testing.T) {
		email := testEmail()
		email.BodyText = ""
		email.BodyHTML = "<p>hello</p>"

		assert.Contains(t, buildUserPrompt(email), "<p>hello</p>")
	})

	t.Run("caps the body excerpt", func(t *testing.T) {
		email := testEmail()
		email.BodyText = strings.Repeat("a", maxBodyChars+500)

		prompt := buildUserPrompt(email)

		assert.LessOrEqual(t, len(prompt), maxBodyChars+200)
	})
}
