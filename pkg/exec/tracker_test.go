package exec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAckTracker(t *testing.T) {
	tracker := NewAckTracker()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return now }

	_, ok := tracker.Last("vault-a")
	assert.False(t, ok)
	_, ok = tracker.Latest()
	assert.False(t, ok)

	tracker.Record("vault-a")
	ts, ok := tracker.Last("vault-a")
	require.True(t, ok)
	assert.Equal(t, now, ts)

	now = now.Add(time.Minute)
	tracker.Record("vault-b")

	latest, ok := tracker.Latest()
	require.True(t, ok)
	assert.Equal(t, now, latest)

	// Earlier vault keeps its own timestamp.
	ts, _ = tracker.Last("vault-a")
	assert.Equal(t, now.Add(-time.Minute), ts)
}

func TestAckTrackerEmptyVaultIsGlobal(t *testing.T) {
	tracker := NewAckTracker()
	tracker.Record("")

	_, ok := tracker.Last("_global")
	assert.True(t, ok)

	all := tracker.All()
	assert.Contains(t, all, "_global")
	assert.Contains(t, all, "_latest")
}
