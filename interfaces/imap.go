package interfaces

import (
	"context"
	"time"

	"github.com/oneboxlabs/onebox/internal/enum"
	"github.com/oneboxlabs/onebox/internal/models"
)

type IMAPService interface {
	Start(ctx context.Context) error
	Stop() error
	AddAccount(ctx context.Context, account models.Account) error
	RemoveAccount(ctx context.Context, accountID string) error
	SyncAccount(ctx context.Context, accountID string, force bool) (*SyncReport, error)
	SyncAllAccounts(ctx context.Context, force bool) map[string]*SyncReport
	Accounts() []models.Account
	Status() map[string]MailboxStatus
}

type MailboxStatus struct {
	State       enum.ConnectionState `json:"state"`
	Connected   bool                 `json:"connected"`
	LastError   string               `json:"lastError,omitempty"`
	LastSync    time.Time            `json:"lastSync,omitempty"`
	LastChecked time.Time            `json:"lastChecked,omitempty"`
}

// SyncReport summarizes one syncAccount run.
type SyncReport struct {
	AccountID string                  `json:"accountId"`
	StartedAt time.Time               `json:"startedAt"`
	Duration  time.Duration           `json:"duration"`
	Folders   map[string]FolderReport `json:"folders"`
	Errors    []string                `json:"errors,omitempty"`
}

type FolderReport struct {
	Attempted int `json:"attempted"`
	Processed int `json:"processed"`
}

func (r *SyncReport) TotalAttempted() int {
	total := 0
	for _, f := range r.Folders {
		total += f.Attempted
	}
	return total
}

func (r *SyncReport) TotalProcessed() int {
	total := 0
	for _, f := range r.Folders {
		total += f.Processed
	}
	return total
}
