package pipeline

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oneboxlabs/onebox/interfaces"
	"github.com/oneboxlabs/onebox/internal/enum"
	er "github.com/oneboxlabs/onebox/internal/errors"
	"github.com/oneboxlabs/onebox/internal/logger"
	"github.com/oneboxlabs/onebox/internal/models"
)

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

type fakeRepository struct {
	interfaces.EmailRepository
	upserted  []*models.Email
	upsertErr error
}

func (f *fakeRepository) Upsert(ctx context.Context, email *models.Email) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, email)
	return nil
}

type fakeClassifier struct {
	category enum.EmailCategory
	err      error
}

func (f *fakeClassifier) Classify(ctx context.Context, email *models.Email) (enum.EmailCategory, error) {
	if f.err != nil {
		return enum.DefaultEmailCategory, f.err
	}
	return f.category, nil
}

type fakeNotifier struct {
	notified   []*models.Email
	categories []enum.EmailCategory
	results    []interfaces.DeliveryResult
}

func (f *fakeNotifier) Notify(ctx context.Context, email *models.Email, category enum.EmailCategory) []interfaces.DeliveryResult {
	f.notified = append(f.notified, email)
	f.categories = append(f.categories, category)
	return f.results
}

func testEmail() *models.Email {
	return &models.Email{
		ID:        "acc1-INBOX-42",
		AccountID: "acc1",
		Folder:    "INBOX",
		ImapUID:   42,
		Subject:   "Quick question about pricing",
	}
}

func TestProcessEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("classifies, stores and notifies", func(t *testing.T) {
		repo := &fakeRepository{}
		notifier := &fakeNotifier{}
		processor := NewProcessor(repo, &fakeClassifier{category: enum.CategoryInterested}, notifier, getLogger())

		email := testEmail()
		err := processor.ProcessEmail(ctx, email)

		require.NoError(t, err)
		require.Len(t, repo.upserted, 1)
		assert.Equal(t, enum.CategoryInterested, repo.upserted[0].Category)
		require.Len(t, notifier.notified, 1)
		assert.Equal(t, enum.CategoryInterested, notifier.categories[0])
	})

	t.Run("classification failure degrades to the default category", func(t *testing.T) {
		repo := &fakeRepository{}
		notifier := &fakeNotifier{}
		classifier := &fakeClassifier{err: errors.New("model unavailable")}
		processor := NewProcessor(repo, classifier, notifier, getLogger())

		email := testEmail()
		err := processor.ProcessEmail(ctx, email)

		require.NoError(t, err)
		require.Len(t, repo.upserted, 1)
		assert.Equal(t, enum.DefaultEmailCategory, repo.upserted[0].Category)
		require.Len(t, notifier.notified, 1)
		assert.Equal(t, enum.DefaultEmailCategory, notifier.categories[0])
	})

	t.Run("store failure short-circuits notification", func(t *testing.T) {
		repo := &fakeRepository{upsertErr: errors.New("connection refused")}
		notifier := &fakeNotifier{}
		processor := NewProcessor(repo, &fakeClassifier{category: enum.CategoryInterested}, notifier, getLogger())

		err := processor.ProcessEmail(ctx, testEmail())

		require.Error(t, err)
		assert.True(t, errors.Is(err, er.ErrStoreFailed))
		assert.Empty(t, notifier.notified)
	})

	t.Run("sink failures never fail the pipeline", func(t *testing.T) {
		repo := &fakeRepository{}
		notifier := &fakeNotifier{results: []interfaces.DeliveryResult{
			{Sink: "webhook:https://example.com", Event: enum.EventNewEmail, Err: errors.New("timeout")},
		}}
		processor := NewProcessor(repo, &fakeClassifier{category: enum.CategoryNotInterested}, notifier, getLogger())

		err := processor.ProcessEmail(ctx, testEmail())

		require.NoError(t, err)
		require.Len(t, repo.upserted, 1)
	})
}
