package models

import (
	"fmt"

	"github.com/oneboxlabs/onebox/internal/enum"
)

// Account is the immutable configuration for one monitored mailbox.
// Credentials never change at runtime; reconfiguring an account means
// terminating its connection and starting a new one.
type Account struct {
	ID          string             `json:"id"`
	DisplayName string             `json:"name"`
	User        string             `json:"user"`
	Password    string             `json:"password"`
	Host        string             `json:"host"`
	Port        int                `json:"port"`
	Security    enum.EmailSecurity `json:"security"`
}

func (a Account) Address() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

func (a Account) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("account id is required")
	}
	if a.User == "" {
		return fmt.Errorf("account %s: user is required", a.ID)
	}
	if a.Password == "" {
		return fmt.Errorf("account %s: password is required", a.ID)
	}
	if a.Host == "" {
		return fmt.Errorf("account %s: host is required", a.ID)
	}
	if a.Port <= 0 || a.Port > 65535 {
		return fmt.Errorf("account %s: invalid port %d", a.ID, a.Port)
	}
	return nil
}
