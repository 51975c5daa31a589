package imap

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"
	"github.com/pkg/errors"

	"github.com/oneboxlabs/onebox/interfaces"
	er "github.com/oneboxlabs/onebox/internal/errors"
	"github.com/oneboxlabs/onebox/internal/logger"
	"github.com/oneboxlabs/onebox/internal/models"
	"github.com/oneboxlabs/onebox/internal/tracing"
)

// IMAPService monitors a set of accounts, each on its own runner goroutine,
// and hands every new message to the processing pipeline.
type IMAPService struct {
	processor interfaces.EmailProcessor
	log       logger.Logger

	runners      map[string]*accountRunner
	runnersMutex sync.RWMutex
	wg           sync.WaitGroup
	ctx          context.Context
	cancel       context.CancelFunc
}

func NewIMAPService(log logger.Logger, processor interfaces.EmailProcessor) *IMAPService {
	return &IMAPService{
		processor: processor,
		log:       log,
		runners:   make(map[string]*accountRunner),
	}
}

// Start launches a runner for every registered account.
func (s *IMAPService) Start(ctx context.Context) error {
	span, ctx := tracing.StartTracerSpan(ctx, "IMAPService.Start")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	s.ctx, s.cancel = context.WithCancel(ctx)

	s.runnersMutex.RLock()
	defer s.runnersMutex.RUnlock()
	span.LogFields(tracingLog.Int("account_count", len(s.runners)))

	for id, runner := range s.runners {
		s.log.Infof("Starting account: %s (%s)", id, runner.account.User)
		go runner.run(s.ctx)
	}

	return nil
}

// Stop gracefully shuts down every runner.
func (s *IMAPService) Stop() error {
	s.log.Info("Stopping IMAP service...")

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("All IMAP operations completed gracefully")
	case <-time.After(10 * time.Second):
		s.log.Warn("Timeout waiting for IMAP operations to complete")
	}

	return nil
}

// AddAccount registers an account and, when the service is already running,
// starts its runner immediately.
func (s *IMAPService) AddAccount(ctx context.Context, account models.Account) error {
	span, _ := opentracing.StartSpanFromContext(ctx, "IMAPService.AddAccount")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagAccount(span, account.ID)

	if err := account.Validate(); err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	s.runnersMutex.Lock()
	defer s.runnersMutex.Unlock()

	if _, exists := s.runners[account.ID]; exists {
		err := errors.Errorf("account with ID %s already exists", account.ID)
		tracing.TraceErr(span, err)
		return err
	}

	runner := newAccountRunner(account, s)
	s.runners[account.ID] = runner

	if s.ctx != nil {
		go runner.run(s.ctx)
	}

	return nil
}

// RemoveAccount terminates the account's runner and forgets the account.
func (s *IMAPService) RemoveAccount(ctx context.Context, accountID string) error {
	span, _ := opentracing.StartSpanFromContext(ctx, "IMAPService.RemoveAccount")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagAccount(span, accountID)

	s.runnersMutex.Lock()
	defer s.runnersMutex.Unlock()

	runner, exists := s.runners[accountID]
	if !exists {
		tracing.TraceErr(span, er.ErrAccountNotFound)
		return er.ErrAccountNotFound
	}

	runner.terminate()
	delete(s.runners, accountID)

	return nil
}

// SyncAccount triggers a catch-up sync for one account. Only one sync per
// account runs at a time; a second request while one is in flight fails
// with ErrSyncInProgress instead of queuing.
func (s *IMAPService) SyncAccount(ctx context.Context, accountID string, force bool) (*interfaces.SyncReport, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPService.SyncAccount")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagAccount(span, accountID)
	span.SetTag("force", force)

	s.runnersMutex.RLock()
	runner, exists := s.runners[accountID]
	s.runnersMutex.RUnlock()

	if !exists {
		tracing.TraceErr(span, er.ErrAccountNotFound)
		return nil, er.ErrAccountNotFound
	}

	report, err := runner.requestSync(ctx, force)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return report, nil
}

// SyncAllAccounts syncs every account, isolating failures per account.
func (s *IMAPService) SyncAllAccounts(ctx context.Context, force bool) map[string]*interfaces.SyncReport {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPService.SyncAllAccounts")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("force", force)

	s.runnersMutex.RLock()
	accountIDs := make([]string, 0, len(s.runners))
	for id := range s.runners {
		accountIDs = append(accountIDs, id)
	}
	s.runnersMutex.RUnlock()
	sort.Strings(accountIDs)

	reports := make(map[string]*interfaces.SyncReport, len(accountIDs))
	for _, accountID := range accountIDs {
		report, err := s.SyncAccount(ctx, accountID, force)
		if err != nil {
			s.log.Warnf("[%s] Sync failed: %v", accountID, err)
			report = &interfaces.SyncReport{
				AccountID: accountID,
				Folders:   make(map[string]interfaces.FolderReport),
				Errors:    []string{err.Error()},
			}
		}
		reports[accountID] = report
	}

	return reports
}

// Accounts returns the registered account configurations without passwords.
func (s *IMAPService) Accounts() []models.Account {
	s.runnersMutex.RLock()
	defer s.runnersMutex.RUnlock()

	accounts := make([]models.Account, 0, len(s.runners))
	for _, runner := range s.runners {
		account := runner.account
		account.Password = ""
		accounts = append(accounts, account)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].ID < accounts[j].ID
	})

	return accounts
}

// Status returns a point-in-time snapshot of every account's connection.
func (s *IMAPService) Status() map[string]interfaces.MailboxStatus {
	s.runnersMutex.RLock()
	defer s.runnersMutex.RUnlock()

	result := make(map[string]interfaces.MailboxStatus, len(s.runners))
	for id, runner := range s.runners {
		result[id] = runner.status()
	}

	return result
}
