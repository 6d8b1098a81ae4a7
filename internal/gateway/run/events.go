package run

import (
	"strings"
	"sync"
	"time"

	"appforge/internal/runner"
)

const completedRunRetention = 30 * time.Second

// Event types on a run's watch stream.
const (
	EventLog       = "log"
	EventCompleted = "completed"
	EventFailed    = "failed"
)

// Event is one message on a run's watch stream. Log events carry a single
// entry; the terminal completed/failed event carries the full result or
// the error.
type Event struct {
	Type       string            `json:"type"`
	RunID      string            `json:"runId"`
	Log        *runner.LogEntry  `json:"log,omitempty"`
	StatePatch map[string]any    `json:"statePatch,omitempty"`
	Logs       []runner.LogEntry `json:"logs,omitempty"`
	Error      *ErrorInfo        `json:"error,omitempty"`
}

// ErrorInfo is the wire form of a run failure.
type ErrorInfo struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// EventBroker manages per-run event channels.
type EventBroker struct {
	mu     sync.RWMutex
	events map[string]chan Event
}

// NewEventBroker creates a new event broker.
func NewEventBroker() *EventBroker {
	return &EventBroker{events: make(map[string]chan Event)}
}

// Allocate creates and registers a new event channel for a run.
func (b *EventBroker) Allocate(runID string, size int) chan Event {
	if size <= 0 {
		size = 1
	}
	ch := make(chan Event, size)
	b.mu.Lock()
	b.events[strings.TrimSpace(runID)] = ch
	b.mu.Unlock()
	return ch
}

// Get returns the event channel for a run.
func (b *EventBroker) Get(runID string) (chan Event, bool) {
	b.mu.RLock()
	ch, ok := b.events[strings.TrimSpace(runID)]
	b.mu.RUnlock()
	return ch, ok
}

// ScheduleCleanup removes a run's event channel after a retention period.
func (b *EventBroker) ScheduleCleanup(runID string) {
	time.AfterFunc(completedRunRetention, func() {
		b.mu.Lock()
		delete(b.events, strings.TrimSpace(runID))
		b.mu.Unlock()
	})
}
