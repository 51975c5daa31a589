package config

import (
	"encoding/json"
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/oneboxlabs/onebox/internal/database"
	"github.com/oneboxlabs/onebox/internal/logger"
	"github.com/oneboxlabs/onebox/internal/models"
	"github.com/oneboxlabs/onebox/internal/tracing"
)

type Config struct {
	AppConfig      *AppConfig
	Logger         *logger.Config
	Tracing        *tracing.JaegerConfig
	DatabaseConfig *database.DatabaseConfig
	OpenAIConfig   *OpenAIConfig
	SlackConfig    *SlackConfig
	WebhookConfig  *WebhookConfig
	CronConfig     *CronConfig
	AccountsConfig *AccountsConfig
}

func InitConfig() (*Config, error) {
	config := &Config{
		AppConfig:      &AppConfig{},
		Logger:         &logger.Config{},
		Tracing:        &tracing.JaegerConfig{},
		DatabaseConfig: &database.DatabaseConfig{},
		OpenAIConfig:   &OpenAIConfig{},
		SlackConfig:    &SlackConfig{},
		WebhookConfig:  &WebhookConfig{},
		CronConfig:     &CronConfig{},
		AccountsConfig: &AccountsConfig{},
	}

	err := godotenv.Load()
	if err != nil {
		log.Print("Unable to load .env file")
	}

	err = env.Parse(config)
	if err != nil {
		return nil, errors.Wrap(err, "error loading onebox config")
	}

	return config, nil
}

// ParseAccounts decodes the EMAIL_ACCOUNTS JSON list and validates every
// entry. An empty variable yields an empty list, not an error.
func (c *Config) ParseAccounts() ([]models.Account, error) {
	raw := c.AccountsConfig.EmailAccountsJSON
	if raw == "" {
		return []models.Account{}, nil
	}

	var accounts []models.Account
	if err := json.Unmarshal([]byte(raw), &accounts); err != nil {
		return nil, errors.Wrap(err, "invalid EMAIL_ACCOUNTS json")
	}

	seen := make(map[string]struct{}, len(accounts))
	for _, account := range accounts {
		if err := account.Validate(); err != nil {
			return nil, err
		}
		if _, exists := seen[account.ID]; exists {
			return nil, errors.Errorf("duplicate account id %s in EMAIL_ACCOUNTS", account.ID)
		}
		seen[account.ID] = struct{}{}
	}

	return accounts, nil
}
