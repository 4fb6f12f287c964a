package events

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Event types emitted by the dispatcher.
const (
	TypeExecOpen  = "exec_open"
	TypeExecClose = "exec_close"
	TypeFill      = "fill"
)

// Event statuses.
const (
	StatusRejected = "rejected"
	StatusDryRun   = "dry_run"
	StatusAck      = "ack"
	StatusError    = "error"
	StatusApplied  = "applied"
)

// Event is an immutable record of one dispatcher outcome. Type and Status
// are always set; the remaining fields are call-specific.
type Event struct {
	Type     string      `json:"type"`
	Status   string      `json:"status"`
	Symbol   string      `json:"symbol,omitempty"`
	Side     string      `json:"side,omitempty"`
	Size     *float64    `json:"size,omitempty"`
	Venue    string      `json:"venue,omitempty"`
	Mode     string      `json:"mode,omitempty"`
	Source   string      `json:"source,omitempty"`
	UnitNav  *float64    `json:"unitNav,omitempty"`
	Attempts int         `json:"attempts,omitempty"`
	Payload  interface{} `json:"payload,omitempty"`
	Error    string      `json:"error,omitempty"`
	At       time.Time   `json:"at,omitempty"`
}

// Sink receives event records. The event store itself is an external
// collaborator; the core's only obligation is producing well-formed records.
type Sink interface {
	Add(vault string, event Event)
}

// MemorySink keeps a bounded per-vault event history. Used by tests and the
// status API's events feed.
type MemorySink struct {
	mu     sync.RWMutex
	limit  int
	events map[string][]Event
}

func NewMemorySink(limit int) *MemorySink {
	if limit <= 0 {
		limit = 500
	}
	return &MemorySink{
		limit:  limit,
		events: make(map[string][]Event),
	}
}

func (s *MemorySink) Add(vault string, event Event) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	list := append(s.events[vault], event)
	if len(list) > s.limit {
		list = list[len(list)-s.limit:]
	}
	s.events[vault] = list
}

// List returns a copy of the recorded events for a vault, oldest first.
func (s *MemorySink) List(vault string) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Event, len(s.events[vault]))
	copy(out, s.events[vault])
	return out
}

// LogSink renders every event through a logrus logger.
type LogSink struct {
	logger *logrus.Logger
}

func NewLogSink(logger *logrus.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Add(vault string, event Event) {
	entry := s.logger.WithFields(logrus.Fields{
		"vault":  vault,
		"type":   event.Type,
		"status": event.Status,
	})
	if event.Symbol != "" {
		entry = entry.WithField("symbol", event.Symbol)
	}
	if event.Venue != "" {
		entry = entry.WithField("venue", event.Venue)
	}
	if event.Error != "" {
		entry.WithField("error", event.Error).Warn("execution event")
		return
	}
	entry.Info("execution event")
}

// MultiSink fans one event out to several sinks.
type MultiSink []Sink

func (m MultiSink) Add(vault string, event Event) {
	for _, sink := range m {
		sink.Add(vault, event)
	}
}

// Float is a convenience for the optional numeric event fields.
func Float(v float64) *float64 { return &v }
