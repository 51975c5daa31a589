package config

type AppConfig struct {
	APIPort     string `env:"PORT" envDefault:"8080"`
	APIKey      string `env:"API_KEY"`
	RabbitMQURL string `env:"RABBITMQ_URL"`
}

type OpenAIConfig struct {
	APIKey      string  `env:"OPENAI_API_KEY"`
	Model       string  `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	BaseURL     string  `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	Temperature float64 `env:"OPENAI_TEMPERATURE" envDefault:"0"`
	TimeoutSec  int     `env:"OPENAI_TIMEOUT_SECONDS" envDefault:"30"`
}

type SlackConfig struct {
	WebhookURL string `env:"SLACK_WEBHOOK_URL"`
	Channel    string `env:"SLACK_CHANNEL" envDefault:"#onebox"`
	TimeoutSec int    `env:"SLACK_TIMEOUT_SECONDS" envDefault:"5"`
}

type WebhookConfig struct {
	// Comma-separated list of webhook endpoint URLs. Each endpoint
	// receives every event with the event name in the X-Event-Name header.
	URLs       []string `env:"WEBHOOK_URLS" envSeparator:","`
	TimeoutSec int      `env:"WEBHOOK_TIMEOUT_SECONDS" envDefault:"5"`
}

type CronConfig struct {
	// Schedule for the periodic catch-up sync across all accounts.
	CronScheduleSyncEmails string `env:"CRON_SCHEDULE_SYNC_EMAILS" envDefault:"0 */30 * * * *"`
}

type AccountsConfig struct {
	// JSON array of account objects, matching models.Account field names.
	EmailAccountsJSON string `env:"EMAIL_ACCOUNTS"`
}
