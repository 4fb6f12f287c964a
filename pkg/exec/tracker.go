package exec

import (
	"sync"
	"time"
)

// latestKey aggregates the most recent ack across all vaults.
const latestKey = "_latest"

// AckTracker records the last venue acknowledgment timestamp per vault.
// Operational liveness signal only; writes are atomic per key.
type AckTracker struct {
	mu   sync.RWMutex
	last map[string]time.Time
	now  func() time.Time
}

func NewAckTracker() *AckTracker {
	return &AckTracker{
		last: make(map[string]time.Time),
		now:  time.Now,
	}
}

func (t *AckTracker) Record(vault string) {
	if vault == "" {
		vault = "_global"
	}
	ts := t.now()
	t.mu.Lock()
	t.last[vault] = ts
	t.last[latestKey] = ts
	t.mu.Unlock()
}

// Last returns the last ack time for a vault, or false if none recorded.
func (t *AckTracker) Last(vault string) (time.Time, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ts, ok := t.last[vault]
	return ts, ok
}

// Latest returns the most recent ack across all vaults.
func (t *AckTracker) Latest() (time.Time, bool) {
	return t.Last(latestKey)
}

// All returns a copy of every tracked timestamp.
func (t *AckTracker) All() map[string]time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]time.Time, len(t.last))
	for k, v := range t.last {
		out[k] = v
	}
	return out
}
