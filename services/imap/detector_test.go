package imap

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestPushWindow(t *testing.T) {
	t.Run("covers exactly the n most recent messages", func(t *testing.T) {
		from, to, ok := PushWindow(120, 3)

		assert.True(t, ok)
		assert.Equal(t, uint32(118), from)
		assert.Equal(t, uint32(120), to)
	})

	t.Run("single new message", func(t *testing.T) {
		from, to, ok := PushWindow(5, 1)

		assert.True(t, ok)
		assert.Equal(t, uint32(5), from)
		assert.Equal(t, uint32(5), to)
	})

	t.Run("clamps when n exceeds total", func(t *testing.T) {
		from, to, ok := PushWindow(2, 10)

		assert.True(t, ok)
		assert.Equal(t, uint32(1), from)
		assert.Equal(t, uint32(2), to)
	})

	t.Run("empty mailbox yields no window", func(t *testing.T) {
		_, _, ok := PushWindow(0, 3)
		assert.False(t, ok)
	})

	t.Run("zero count yields no window", func(t *testing.T) {
		_, _, ok := PushWindow(100, 0)
		assert.False(t, ok)
	})
}

func TestNextWatermark(t *testing.T) {
	current := time.Date(2025, 6, 15, 11, 0, 0, 0, time.UTC)
	startedAt := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	t.Run("fatal-error-free attempt advances to the attempt start", func(t *testing.T) {
		// Folder-level errors land in the report, not in fatal; a folder
		// that persistently fails to select must not pin the watermark and
		// force every later attempt to rescan the full lookback window.
		assert.Equal(t, startedAt, NextWatermark(current, startedAt, nil))
	})

	t.Run("fatal connection error keeps the current watermark", func(t *testing.T) {
		fatal := errors.New("connection closed")
		assert.Equal(t, current, NextWatermark(current, startedAt, fatal))
	})
}

func TestSinceDate(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	horizon := now.Add(-SyncLookback)

	t.Run("first sync uses the full lookback horizon", func(t *testing.T) {
		since := SinceDate(now, time.Time{}, false)
		assert.Equal(t, horizon, since)
	})

	t.Run("recent watermark wins over the horizon", func(t *testing.T) {
		lastSync := now.Add(-2 * time.Hour)
		since := SinceDate(now, lastSync, false)
		assert.Equal(t, lastSync, since)
	})

	t.Run("stale watermark is clamped to the horizon", func(t *testing.T) {
		lastSync := now.Add(-60 * 24 * time.Hour)
		since := SinceDate(now, lastSync, false)
		assert.Equal(t, horizon, since)
	})

	t.Run("forced sync ignores the watermark", func(t *testing.T) {
		lastSync := now.Add(-2 * time.Hour)
		since := SinceDate(now, lastSync, true)
		assert.Equal(t, horizon, since)
	})
}
