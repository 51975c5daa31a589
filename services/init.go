package services

import (
	"github.com/oneboxlabs/onebox/config"
	"github.com/oneboxlabs/onebox/interfaces"
	"github.com/oneboxlabs/onebox/internal/logger"
	"github.com/oneboxlabs/onebox/internal/repository"
	"github.com/oneboxlabs/onebox/services/classifier"
	"github.com/oneboxlabs/onebox/services/events"
	"github.com/oneboxlabs/onebox/services/imap"
	"github.com/oneboxlabs/onebox/services/notifier"
	"github.com/oneboxlabs/onebox/services/pipeline"
)

type Services struct {
	EventPublisher interfaces.EventPublisher
	Classifier     interfaces.Classifier
	Notifier       interfaces.Notifier
	EmailProcessor interfaces.EmailProcessor
	IMAPService    interfaces.IMAPService
}

func InitServices(cfg *config.Config, log logger.Logger, repos *repository.Repositories) (*Services, error) {
	services := &Services{}

	// events
	if cfg.AppConfig.RabbitMQURL != "" {
		publisherConfig := &events.PublisherConfig{
			MessageTTL:          events.DefaultMessageTTL,
			MaxRetries:          events.DefaultMaxRetries,
			PublishTimeout:      events.DefaultPublishTimeout,
			ReconnectBackoff:    events.DefaultReconnectBackoff,
			MaxReconnectBackoff: events.DefaultMaxReconnectBackoff,
		}

		publisher, err := events.NewRabbitMQPublisher(cfg.AppConfig.RabbitMQURL, log, publisherConfig)
		if err != nil {
			return nil, err
		}
		services.EventPublisher = publisher
	}

	// notification sinks
	var sinks []interfaces.NotificationSink
	for _, url := range cfg.WebhookConfig.URLs {
		if url != "" {
			sinks = append(sinks, notifier.NewWebhookSink(url, cfg.WebhookConfig))
		}
	}
	if cfg.SlackConfig.WebhookURL != "" {
		sinks = append(sinks, notifier.NewSlackSink(cfg.SlackConfig))
	}
	if services.EventPublisher != nil {
		sinks = append(sinks, notifier.NewAMQPSink(services.EventPublisher))
	}

	services.Classifier = classifier.NewClassifierService(cfg.OpenAIConfig)
	services.Notifier = notifier.NewNotifierService(log, sinks...)
	services.EmailProcessor = pipeline.NewProcessor(repos.EmailRepository, services.Classifier, services.Notifier, log)
	services.IMAPService = imap.NewIMAPService(log, services.EmailProcessor)

	return services, nil
}
