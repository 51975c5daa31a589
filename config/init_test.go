package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func configWithAccounts(raw string) *Config {
	return &Config{
		AccountsConfig: &AccountsConfig{EmailAccountsJSON: raw},
	}
}

func TestParseAccounts(t *testing.T) {
	t.Run("decodes a valid account list", func(t *testing.T) {
		cfg := configWithAccounts(`[
			{"id":"acc1","name":"Jane Doe","user":"jane@example.com","password":"secret","host":"imap.example.com","port":993,"security":"ssl"},
			{"id":"acc2","user":"john@example.com","password":"secret","host":"imap.example.com","port":143,"security":"none"}
		]`)

		accounts, err := cfg.ParseAccounts()

		require.NoError(t, err)
		require.Len(t, accounts, 2)
		assert.Equal(t, "acc1", accounts[0].ID)
		assert.Equal(t, "Jane Doe", accounts[0].DisplayName)
		assert.Equal(t, "imap.example.com:993", accounts[0].Address())
		assert.Empty(t, accounts[1].DisplayName)
	})

	t.Run("empty variable yields an empty list", func(t *testing.T) {
		accounts, err := configWithAccounts("").ParseAccounts()

		require.NoError(t, err)
		assert.Empty(t, accounts)
	})

	t.Run("invalid json fails", func(t *testing.T) {
		_, err := configWithAccounts(`{"not":"a list"}`).ParseAccounts()
		assert.Error(t, err)
	})

	t.Run("invalid account fails", func(t *testing.T) {
		cfg := configWithAccounts(`[{"id":"acc1","user":"jane@example.com","host":"imap.example.com","port":993}]`)

		_, err := cfg.ParseAccounts()

		assert.Error(t, err)
	})

	t.Run("duplicate ids fail", func(t *testing.T) {
		cfg := configWithAccounts(`[
			{"id":"acc1","user":"jane@example.com","password":"secret","host":"imap.example.com","port":993},
			{"id":"acc1","user":"john@example.com","password":"secret","host":"imap.example.com","port":993}
		]`)

		_, err := cfg.ParseAccounts()

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate account id")
	})
}
