package imap

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	goimap "github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"

	"github.com/oneboxlabs/onebox/interfaces"
	er "github.com/oneboxlabs/onebox/internal/errors"
	"github.com/oneboxlabs/onebox/internal/tracing"
	"github.com/oneboxlabs/onebox/internal/utils"
)

// syncBatchSize bounds how many messages one fetch command covers. Batches
// run sequentially; messages within a batch are processed concurrently.
const syncBatchSize = 10

// runSync executes one catch-up sync over the account's sync folders.
// The watermark advances to the attempt start time unless the run ended
// with a fatal connection error; folder-level errors only land in the
// report.
func (r *accountRunner) runSync(ctx context.Context, c *client.Client, force bool) (*interfaces.SyncReport, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "accountRunner.runSync")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagAccount(span, r.account.ID)
	span.SetTag("force", force)

	startedAt := utils.Now()
	report := &interfaces.SyncReport{
		AccountID: r.account.ID,
		StartedAt: startedAt,
		Folders:   make(map[string]interfaces.FolderReport),
	}

	catalog, err := r.catalog(ctx, c)
	if err != nil {
		tracing.TraceErr(span, err)
		report.Errors = append(report.Errors, err.Error())
		report.Duration = time.Since(startedAt)
		return report, err
	}

	folders := SelectSyncFolders(catalog)
	since := SinceDate(startedAt, r.watermark(), force)
	span.LogFields(
		tracingLog.String("folders", fmt.Sprintf("%v", folders)),
		tracingLog.String("since", since.Format(time.RFC3339)),
	)

	var fatal error
	for _, folder := range folders {
		folderReport, err := r.syncFolder(ctx, c, folder, since)
		report.Folders[folder] = folderReport

		if err != nil {
			tracing.TraceErr(span, err)
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", folder, err))
			if isConnectionError(err) {
				fatal = err
				break
			}
			r.service.log.Warnf("[%s][%s] Folder sync error, continuing with other folders: %v", r.account.ID, folder, err)
		}
	}

	report.Duration = time.Since(startedAt)

	r.setWatermark(NextWatermark(r.watermark(), startedAt, fatal))

	r.service.log.Infof("[%s] Sync complete: %d attempted, %d processed, %d errors",
		r.account.ID, report.TotalAttempted(), report.TotalProcessed(), len(report.Errors))

	return report, fatal
}

// catalog returns the folder catalog for the current connection, listing
// folders on first use and caching the flattened tree for the rest of the
// session.
func (r *accountRunner) catalog(ctx context.Context, c *client.Client) ([]string, error) {
	if r.catalogCache != nil {
		return r.catalogCache, nil
	}

	infos, err := r.service.listFolders(ctx, c, r.account.ID)
	if err != nil {
		return nil, err
	}

	r.catalogCache = Flatten(BuildFolderTree(infos))
	return r.catalogCache, nil
}

// syncFolder searches one folder for messages in the watermark window and
// feeds them through the pipeline in batches.
func (r *accountRunner) syncFolder(ctx context.Context, c *client.Client, folder string, since time.Time) (interfaces.FolderReport, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "accountRunner.syncFolder")
	defer span.Finish()
	tracing.TagAccount(span, r.account.ID)
	tracing.TagFolder(span, folder)

	report := interfaces.FolderReport{}

	c.Timeout = 30 * time.Second
	_, err := c.Select(folder, false)
	c.Timeout = 0
	if err != nil {
		err = fmt.Errorf("error selecting folder: %w", err)
		tracing.TraceErr(span, err)
		return report, err
	}

	criteria := goimap.NewSearchCriteria()
	criteria.Since = since

	c.Timeout = 30 * time.Second
	uids, err := c.UidSearch(criteria)
	c.Timeout = 0
	if err != nil {
		err = fmt.Errorf("error searching folder: %w", err)
		tracing.TraceErr(span, err)
		return report, err
	}

	report.Attempted = len(uids)
	span.LogFields(tracingLog.Int("attempted", len(uids)))
	if len(uids) == 0 {
		return report, nil
	}

	for i := 0; i < len(uids); i += syncBatchSize {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}

		end := i + syncBatchSize
		if end > len(uids) {
			end = len(uids)
		}

		processed, err := r.fetchAndProcessBatch(ctx, c, folder, uids[i:end])
		report.Processed += processed
		if err != nil {
			tracing.TraceErr(span, err)
			return report, err
		}
	}

	span.LogFields(tracingLog.Int("processed", report.Processed))
	return report, nil
}

// fetchAndProcessBatch fetches one UID batch and runs each message through
// the pipeline. The fetch is a single command; pipeline work for the
// messages runs concurrently and the batch waits for all of it.
func (r *accountRunner) fetchAndProcessBatch(ctx context.Context, c *client.Client, folder string, uids []uint32) (int, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "accountRunner.fetchAndProcessBatch")
	defer span.Finish()
	tracing.TagAccount(span, r.account.ID)
	tracing.TagFolder(span, folder)
	span.LogFields(tracingLog.Int("batch_size", len(uids)))

	seqSet := new(goimap.SeqSet)
	for _, uid := range uids {
		seqSet.AddNum(uid)
	}

	messages := make(chan *goimap.Message, syncBatchSize)
	done := make(chan error, 1)

	c.Timeout = 60 * time.Second
	go func() {
		done <- c.UidFetch(seqSet, fetchItems, messages)
	}()

	var wg sync.WaitGroup
	var processed int64

	for msg := range messages {
		wg.Add(1)
		go func(msg *goimap.Message) {
			defer wg.Done()
			email := buildEmail(r.account.ID, folder, msg)
			if err := r.service.processor.ProcessEmail(ctx, email); err != nil {
				r.service.log.Warnf("[%s][%s] Error processing message uid=%d: %v", r.account.ID, folder, msg.Uid, err)
				return
			}
			atomic.AddInt64(&processed, 1)
		}(msg)
	}

	c.Timeout = 0
	err := <-done
	wg.Wait()

	if err != nil {
		err = fmt.Errorf("%w: %v", er.ErrFetchFailed, err)
		return int(processed), err
	}

	return int(processed), nil
}

// fetchRecent fetches an exact sequence number range, used for the push
// window after IDLE reports new messages in the monitored folder.
func (r *accountRunner) fetchRecent(ctx context.Context, c *client.Client, folder string, from, to uint32) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "accountRunner.fetchRecent")
	defer span.Finish()
	tracing.TagAccount(span, r.account.ID)
	tracing.TagFolder(span, folder)
	span.LogFields(tracingLog.Uint32("from", from), tracingLog.Uint32("to", to))

	if from > to {
		return nil
	}

	seqSet := new(goimap.SeqSet)
	seqSet.AddRange(from, to)

	messages := make(chan *goimap.Message, syncBatchSize)
	done := make(chan error, 1)

	c.Timeout = 60 * time.Second
	go func() {
		done <- c.Fetch(seqSet, fetchItems, messages)
	}()

	var wg sync.WaitGroup
	for msg := range messages {
		wg.Add(1)
		go func(msg *goimap.Message) {
			defer wg.Done()
			email := buildEmail(r.account.ID, folder, msg)
			if err := r.service.processor.ProcessEmail(ctx, email); err != nil {
				r.service.log.Warnf("[%s][%s] Error processing message uid=%d: %v", r.account.ID, folder, msg.Uid, err)
			}
		}(msg)
	}

	c.Timeout = 0
	err := <-done
	wg.Wait()

	if err != nil {
		err = fmt.Errorf("%w: %v", er.ErrFetchFailed, err)
		tracing.TraceErr(span, err)
		return err
	}

	return nil
}

// isConnectionError checks if an error is related to connectivity
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}

	errorMsg := err.Error()
	return strings.Contains(errorMsg, "connection closed") ||
		strings.Contains(errorMsg, "i/o timeout") ||
		strings.Contains(errorMsg, "EOF") ||
		strings.Contains(errorMsg, "connection reset")
}
