package notifier

import (
	"context"

	"github.com/opentracing/opentracing-go"

	"github.com/oneboxlabs/onebox/interfaces"
	"github.com/oneboxlabs/onebox/internal/enum"
	"github.com/oneboxlabs/onebox/internal/logger"
	"github.com/oneboxlabs/onebox/internal/models"
	"github.com/oneboxlabs/onebox/internal/tracing"
	"github.com/oneboxlabs/onebox/internal/utils"
)

type notifierService struct {
	sinks []interfaces.NotificationSink
	log   logger.Logger
}

func NewNotifierService(log logger.Logger, sinks ...interfaces.NotificationSink) interfaces.Notifier {
	return &notifierService{
		sinks: sinks,
		log:   log,
	}
}

// Notify raises the events mapped to the category and delivers each one to
// every sink that accepts it. A sink failure is recorded and never blocks
// the remaining sinks or events.
func (s *notifierService) Notify(ctx context.Context, email *models.Email, category enum.EmailCategory) []interfaces.DeliveryResult {
	span, ctx := opentracing.StartSpanFromContext(ctx, "notifierService.Notify")
	defer span.Finish()
	tracing.TagComponentNotifier(span)
	tracing.TagAccount(span, email.AccountID)
	span.SetTag("category", category.String())

	var results []interfaces.DeliveryResult

	for _, eventName := range enum.EventsForCategory(category) {
		event := interfaces.NotificationEvent{
			ID:        utils.GenerateNanoIDWithPrefix("evt", 21),
			Name:      eventName,
			Timestamp: utils.Now(),
			AccountID: email.AccountID,
			Folder:    email.Folder,
			Category:  category,
			Email:     email,
		}

		for _, sink := range s.sinks {
			if !sink.Accepts(event) {
				continue
			}

			err := sink.Deliver(ctx, event)
			if err != nil {
				tracing.TraceErr(span, err)
				s.log.Warnf("Sink %s failed to deliver %s for email %s: %v", sink.Name(), eventName, email.ID, err)
			}
			results = append(results, interfaces.DeliveryResult{
				Sink:  sink.Name(),
				Event: eventName,
				Err:   err,
			})
		}
	}

	return results
}
