package imap

import (
	"context"
	"testing"
	"time"

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

func testAccount(id string) models.Account {
	return models.Account{
		ID:       id,
		User:     id + "@example.com",
		Password: "secret",
		Host:     "imap.example.com",
		Port:     993,
		Security: enum.EmailSecuritySSL,
	}
}

func TestAddAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("registers a valid account", func(t *testing.T) {
		service := NewIMAPService(getLogger(), nil)

		err := service.AddAccount(ctx, testAccount("acc1"))

		require.NoError(t, err)
		assert.Len(t, service.Accounts(), 1)
	})

	t.Run("rejects a duplicate id", func(t *testing.T) {
		service := NewIMAPService(getLogger(), nil)
		require.NoError(t, service.AddAccount(ctx, testAccount("acc1")))

		err := service.AddAccount(ctx, testAccount("acc1"))

		assert.Error(t, err)
	})

	t.Run("rejects an invalid account", func(t *testing.T) {
		service := NewIMAPService(getLogger(), nil)
		account := testAccount("acc1")
		account.Password = ""

		err := service.AddAccount(ctx, account)

		assert.Error(t, err)
		assert.Empty(t, service.Accounts())
	})
}

func TestRemoveAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("removes a registered account", func(t *testing.T) {
		service := NewIMAPService(getLogger(), nil)
		require.NoError(t, service.AddAccount(ctx, testAccount("acc1")))

		err := service.RemoveAccount(ctx, "acc1")

		require.NoError(t, err)
		assert.Empty(t, service.Accounts())
	})

	t.Run("unknown account fails", func(t *testing.T) {
		service := NewIMAPService(getLogger(), nil)

		err := service.RemoveAccount(ctx, "missing")

		assert.ErrorIs(t, err, er.ErrAccountNotFound)
	})
}

func TestAccounts(t *testing.T) {
	ctx := context.Background()
	service := NewIMAPService(getLogger(), nil)
	require.NoError(t, service.AddAccount(ctx, testAccount("b")))
	require.NoError(t, service.AddAccount(ctx, testAccount("a")))

	accounts := service.Accounts()

	require.Len(t, accounts, 2)
	assert.Equal(t, "a", accounts[0].ID)
	assert.Equal(t, "b", accounts[1].ID)
	for _, account := range accounts {
		assert.Empty(t, account.Password)
	}
}

func TestSyncAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown account fails", func(t *testing.T) {
		service := NewIMAPService(getLogger(), nil)

		_, err := service.SyncAccount(ctx, "missing", false)

		assert.ErrorIs(t, err, er.ErrAccountNotFound)
	})

	t.Run("disconnected account fails", func(t *testing.T) {
		service := NewIMAPService(getLogger(), nil)
		require.NoError(t, service.AddAccount(ctx, testAccount("acc1")))

		_, err := service.SyncAccount(ctx, "acc1", false)

		assert.ErrorIs(t, err, er.ErrNoConnection)
	})
}

func TestRequestSync(t *testing.T) {
	newConnectedRunner := func() *accountRunner {
		service := NewIMAPService(getLogger(), nil)
		runner := newAccountRunner(testAccount("acc1"), service)
		runner.setState(enum.StateConnected)
		return runner
	}

	t.Run("a second request never queues", func(t *testing.T) {
		runner := newConnectedRunner()
		require.True(t, runner.syncInProgress.CompareAndSwap(false, true))

		_, err := runner.requestSync(context.Background(), false)

		assert.ErrorIs(t, err, er.ErrSyncInProgress)
	})

	t.Run("delivers the report from the runner goroutine", func(t *testing.T) {
		runner := newConnectedRunner()

		expected := &interfaces.SyncReport{AccountID: "acc1", Folders: map[string]interfaces.FolderReport{}}
		go func() {
			request := <-runner.syncRequests
			request.reply <- syncReply{report: expected}
			runner.syncInProgress.Store(false)
		}()

		report, err := runner.requestSync(context.Background(), true)

		require.NoError(t, err)
		assert.Equal(t, expected, report)
		assert.False(t, runner.syncInProgress.Load())
	})

	t.Run("terminated runner fails", func(t *testing.T) {
		runner := newConnectedRunner()
		runner.terminate()

		_, err := runner.requestSync(context.Background(), false)

		assert.ErrorIs(t, err, er.ErrNoConnection)
	})

	t.Run("abandoned caller times out without unlocking", func(t *testing.T) {
		runner := newConnectedRunner()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		var request *syncRequest
		done := make(chan struct{})
		go func() {
			request = <-runner.syncRequests
			// never reply; the caller gives up on its own deadline
			close(done)
		}()

		_, err := runner.requestSync(ctx, false)
		<-done

		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.True(t, runner.syncInProgress.Load())
		_ = request
	})
}
