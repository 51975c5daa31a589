package imap

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/emersion/go-imap/client"
	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"

	"github.com/oneboxlabs/onebox/interfaces"
	"github.com/oneboxlabs/onebox/internal/enum"
	er "github.com/oneboxlabs/onebox/internal/errors"
	"github.com/oneboxlabs/onebox/internal/models"
	"github.com/oneboxlabs/onebox/internal/tracing"
	"github.com/oneboxlabs/onebox/internal/utils"
)

const (
	// reconnectDelay is the fixed pause between a lost connection and the
	// next attempt.
	reconnectDelay = 5 * time.Second

	// idleRefreshInterval restarts the IDLE command before servers that
	// enforce the RFC 2177 30-minute limit drop the connection.
	idleRefreshInterval = 29 * time.Minute

	monitoredFolder = "INBOX"
)

type syncRequest struct {
	force bool
	reply chan syncReply
}

type syncReply struct {
	report *interfaces.SyncReport
	err    error
}

// accountRunner owns one account's connection end to end. All IMAP commands
// for the account run on the runner goroutine; syncs requested from the
// outside cross over via the syncRequests channel.
type accountRunner struct {
	account models.Account
	service *IMAPService

	syncRequests   chan *syncRequest
	terminated     chan struct{}
	terminateOnce  sync.Once
	syncInProgress atomic.Bool

	mu          sync.RWMutex
	state       enum.ConnectionState
	lastError   string
	lastSync    time.Time
	lastChecked time.Time

	// catalog is loaded lazily per connection
	catalogCache []string
}

func newAccountRunner(account models.Account, service *IMAPService) *accountRunner {
	return &accountRunner{
		account:      account,
		service:      service,
		syncRequests: make(chan *syncRequest),
		terminated:   make(chan struct{}),
		state:        enum.StateDisconnected,
	}
}

func (r *accountRunner) terminate() {
	r.terminateOnce.Do(func() {
		close(r.terminated)
	})
}

func (r *accountRunner) status() interfaces.MailboxStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return interfaces.MailboxStatus{
		State:       r.state,
		Connected:   r.state == enum.StateConnected || r.state == enum.StateIdling,
		LastError:   r.lastError,
		LastSync:    r.lastSync,
		LastChecked: r.lastChecked,
	}
}

func (r *accountRunner) currentState() enum.ConnectionState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

func (r *accountRunner) setState(state enum.ConnectionState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = state
	r.lastChecked = utils.Now()
	if state == enum.StateConnected {
		r.lastError = ""
	}
}

func (r *accountRunner) recordError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastError = err.Error()
	r.lastChecked = utils.Now()
}

func (r *accountRunner) watermark() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastSync
}

func (r *accountRunner) setWatermark(t time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastSync = t
}

// requestSync hands a sync over to the runner goroutine. It never queues:
// a sync already in flight is reported immediately.
func (r *accountRunner) requestSync(ctx context.Context, force bool) (*interfaces.SyncReport, error) {
	state := r.currentState()
	if state != enum.StateConnected && state != enum.StateIdling {
		return nil, er.ErrNoConnection
	}

	if !r.syncInProgress.CompareAndSwap(false, true) {
		return nil, er.ErrSyncInProgress
	}

	request := &syncRequest{
		force: force,
		reply: make(chan syncReply, 1),
	}

	select {
	case r.syncRequests <- request:
	case <-ctx.Done():
		r.syncInProgress.Store(false)
		return nil, ctx.Err()
	case <-r.terminated:
		r.syncInProgress.Store(false)
		return nil, er.ErrNoConnection
	}

	// The runner releases the in-progress flag once the sync completes,
	// even if this caller gives up waiting.
	select {
	case reply := <-request.reply:
		return reply.report, reply.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// run is the runner main loop: connect, serve a session, reconnect after a
// fixed delay on failure, until terminated.
func (r *accountRunner) run(ctx context.Context) {
	r.service.wg.Add(1)
	defer r.service.wg.Done()

	log := r.service.log

	for {
		select {
		case <-ctx.Done():
			r.setState(enum.StateTerminated)
			return
		case <-r.terminated:
			r.setState(enum.StateTerminated)
			return
		default:
		}

		r.setState(enum.StateConnecting)

		connectCtx, connectCancel := context.WithTimeout(ctx, time.Minute)
		c, err := r.service.connectToIMAPServer(connectCtx, r.account)
		connectCancel()

		if err != nil {
			log.Warnf("[%s] Connection error: %v", r.account.ID, err)
			r.recordError(err)
			if !r.waitReconnect(ctx) {
				r.setState(enum.StateTerminated)
				return
			}
			continue
		}

		r.setState(enum.StateConnected)
		r.catalogCache = nil

		err = r.session(ctx, c)

		c.Timeout = 5 * time.Second
		_ = c.Logout()

		select {
		case <-ctx.Done():
			r.setState(enum.StateTerminated)
			return
		case <-r.terminated:
			r.setState(enum.StateTerminated)
			return
		default:
		}

		if err != nil {
			log.Warnf("[%s] Session ended: %v", r.account.ID, err)
			r.recordError(err)
		}
		if !r.waitReconnect(ctx) {
			r.setState(enum.StateTerminated)
			return
		}
	}
}

// waitReconnect sleeps the fixed reconnect delay. It returns false when the
// runner should stop instead of reconnecting.
func (r *accountRunner) waitReconnect(ctx context.Context) bool {
	r.setState(enum.StateReconnecting)
	select {
	case <-time.After(reconnectDelay):
		return true
	case <-ctx.Done():
		return false
	case <-r.terminated:
		return false
	}
}

// session drives one connection: an initial catch-up sync, then IDLE
// monitoring with periodic refresh. It returns when the connection breaks
// or the runner terminates.
func (r *accountRunner) session(ctx context.Context, c *client.Client) error {
	span, ctx := tracing.StartTracerSpan(ctx, "accountRunner.session")
	defer span.Finish()
	tracing.TagAccount(span, r.account.ID)

	// Catch-up sync on every fresh connection
	if r.syncInProgress.CompareAndSwap(false, true) {
		_, err := r.runSync(ctx, c, false)
		r.syncInProgress.Store(false)
		if err != nil {
			tracing.TraceErr(span, err)
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.terminated:
			return nil
		default:
		}

		c.Timeout = 30 * time.Second
		mbox, err := c.Select(monitoredFolder, false)
		c.Timeout = 0
		if err != nil {
			err = fmt.Errorf("error selecting %s: %w", monitoredFolder, err)
			tracing.TraceErr(span, err)
			return err
		}

		r.setState(enum.StateIdling)
		outcome, err := r.idle(ctx, c, mbox.Messages)
		r.setState(enum.StateConnected)

		if outcome != nil && outcome.request != nil {
			r.handleSyncRequest(ctx, c, outcome.request, err)
		}
		if err != nil {
			tracing.TraceErr(span, err)
			return err
		}
		if outcome == nil {
			return nil
		}

		if outcome.pushTo > 0 {
			if fetchErr := r.fetchRecent(ctx, c, monitoredFolder, outcome.pushFrom, outcome.pushTo); fetchErr != nil {
				tracing.TraceErr(span, fetchErr)
				if isConnectionError(fetchErr) {
					return fetchErr
				}
				r.service.log.Warnf("[%s][%s] Error fetching new messages: %v", r.account.ID, monitoredFolder, fetchErr)
			}
		}
	}
}

// handleSyncRequest runs a requested sync on the runner goroutine and
// replies to the caller. connErr is non-nil when the connection broke while
// leaving IDLE, in which case the request fails without a sync attempt.
func (r *accountRunner) handleSyncRequest(ctx context.Context, c *client.Client, request *syncRequest, connErr error) {
	defer r.syncInProgress.Store(false)

	if connErr != nil {
		request.reply <- syncReply{err: er.ErrNoConnection}
		return
	}

	report, err := r.runSync(ctx, c, request.force)
	request.reply <- syncReply{report: report, err: err}
}

// idleOutcome reports why an IDLE round ended.
type idleOutcome struct {
	request  *syncRequest
	pushFrom uint32
	pushTo   uint32
}

// idle runs one IDLE command until something interesting happens: new
// messages arrive, a sync is requested, the refresh interval passes, or
// the runner stops.
func (r *accountRunner) idle(ctx context.Context, c *client.Client, initialCount uint32) (*idleOutcome, error) {
	span := opentracing.StartSpan("accountRunner.idle")
	defer span.Finish()
	tracing.TagAccount(span, r.account.ID)
	span.LogFields(tracingLog.Uint32("initial_count", initialCount))

	updates := make(chan client.Update, 100)
	c.Updates = updates
	defer func() { c.Updates = nil }()

	var stopOnce sync.Once
	stop := make(chan struct{})
	stopIdle := func() {
		stopOnce.Do(func() { close(stop) })
	}

	idleDone := make(chan error, 1)
	go func() {
		idleDone <- c.Idle(stop, &client.IdleOptions{})
	}()

	refresh := time.NewTimer(idleRefreshInterval)
	defer refresh.Stop()

	currentCount := initialCount
	outcome := &idleOutcome{}

	for {
		select {
		case <-ctx.Done():
			stopIdle()
			<-idleDone
			return outcome, nil

		case <-r.terminated:
			stopIdle()
			<-idleDone
			return outcome, nil

		case request := <-r.syncRequests:
			outcome.request = request
			stopIdle()
			err := <-idleDone
			if err != nil && ctx.Err() == nil {
				return outcome, err
			}
			return outcome, nil

		case <-refresh.C:
			span.LogFields(tracingLog.String("reason", "refresh"))
			stopIdle()
			err := <-idleDone
			if err != nil && ctx.Err() == nil {
				return outcome, err
			}
			return outcome, nil

		case update := <-updates:
			mailboxUpdate, ok := update.(*client.MailboxUpdate)
			if !ok {
				continue
			}
			if mailboxUpdate.Mailbox.Messages <= currentCount {
				currentCount = mailboxUpdate.Mailbox.Messages
				continue
			}

			newCount := mailboxUpdate.Mailbox.Messages - currentCount
			span.LogFields(tracingLog.Uint32("new_messages", newCount))
			r.service.log.Infof("[%s][%s] Detected %d new message(s)", r.account.ID, monitoredFolder, newCount)

			from, to, ok := PushWindow(mailboxUpdate.Mailbox.Messages, newCount)
			if ok {
				outcome.pushFrom = from
				outcome.pushTo = to
			}
			stopIdle()
			err := <-idleDone
			if err != nil && ctx.Err() == nil {
				return outcome, err
			}
			return outcome, nil

		case err := <-idleDone:
			// IDLE ended on its own
			if err != nil && ctx.Err() == nil {
				return outcome, err
			}
			return outcome, nil
		}
	}
}
