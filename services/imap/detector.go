package imap

import "time"

// SyncLookback bounds how far back a watermark sync will search.
const SyncLookback = 30 * 24 * time.Hour

// PushWindow returns the sequence number range covering exactly the n most
// recent messages in a folder holding total messages. A zero count in
// either argument yields an empty window.
func PushWindow(total, n uint32) (from, to uint32, ok bool) {
	if total == 0 || n == 0 {
		return 0, 0, false
	}
	if n > total {
		n = total
	}
	return total - n + 1, total, true
}

// NextWatermark returns the watermark after a sync attempt. The watermark
// advances to the attempt start on any attempt free of fatal connection
// errors; folder-level errors are recorded in the report and never hold it
// back.
func NextWatermark(current, startedAt time.Time, fatal error) time.Time {
	if fatal != nil {
		return current
	}
	return startedAt
}

// SinceDate returns the start of the search window for a watermark sync.
// The window never reaches further back than the lookback horizon; a forced
// sync ignores the previous watermark and rescans the full horizon.
func SinceDate(now, lastSync time.Time, force bool) time.Time {
	horizon := now.Add(-SyncLookback)
	if force || lastSync.IsZero() {
		return horizon
	}
	if lastSync.After(horizon) {
		return lastSync
	}
	return horizon
}
