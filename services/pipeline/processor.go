package pipeline

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/oneboxlabs/onebox/interfaces"
	"github.com/oneboxlabs/onebox/internal/enum"
	er "github.com/oneboxlabs/onebox/internal/errors"
	"github.com/oneboxlabs/onebox/internal/logger"
	"github.com/oneboxlabs/onebox/internal/models"
	"github.com/oneboxlabs/onebox/internal/tracing"
)

// Processor runs the classify, store, notify stages for one message.
//
// Stage isolation rules:
//   - classification failure degrades to the default category and the
//     pipeline continues;
//   - store failure aborts the pipeline, nothing is notified about a
//     message that was not persisted;
//   - notification failures are logged per sink and never fail the
//     pipeline.
type Processor struct {
	repository interfaces.EmailRepository
	classifier interfaces.Classifier
	notifier   interfaces.Notifier
	log        logger.Logger
}

func NewProcessor(
	repository interfaces.EmailRepository,
	classifier interfaces.Classifier,
	notifier interfaces.Notifier,
	log logger.Logger,
) *Processor {
	return &Processor{
		repository: repository,
		classifier: classifier,
		notifier:   notifier,
		log:        log,
	}
}

func (p *Processor) ProcessEmail(ctx context.Context, email *models.Email) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Processor.ProcessEmail")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagAccount(span, email.AccountID)
	tracing.TagFolder(span, email.Folder)
	span.SetTag("emailId", email.ID)

	// Classify
	category, err := p.classifier.Classify(ctx, email)
	if err != nil {
		tracing.TraceErr(span, err)
		p.log.Warnf("Classification failed for email %s, using default category: %v", email.ID, err)
		category = enum.DefaultEmailCategory
	}
	email.Category = category
	span.SetTag("category", category.String())

	// Store
	if err := p.repository.Upsert(ctx, email); err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrapf(er.ErrStoreFailed, "email %s: %v", email.ID, err)
	}

	// Notify
	results := p.notifier.Notify(ctx, email, category)
	for _, result := range results {
		if result.Err != nil {
			span.LogKV("sink.failed", result.Sink, "event", result.Event.String())
		}
	}

	return nil
}
