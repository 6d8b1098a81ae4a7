// Package run orchestrates event executions over stored app definitions:
// load, compile through the shared cache, interpret, persist a trace, and
// stream progress for asynchronous runs.
package run

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"appforge/internal/appdef"
	"appforge/internal/cache/compiled"
	"appforge/internal/compile"
	"appforge/internal/gateway/repository/appstore"
	"appforge/internal/runner"
)

// Finished runs stay queryable for this long; traces persist beyond it.
const runResultRetention = 5 * time.Minute

// Run status values.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// CompileRejectedError reports a stored definition that failed
// compilation. The diagnostics carry the individual errors.
type CompileRejectedError struct {
	AppID       string
	Diagnostics []compile.Diagnostic
}

func (e *CompileRejectedError) Error() string {
	n := 0
	for _, d := range e.Diagnostics {
		if d.Severity == compile.SeverityError {
			n++
		}
	}
	return fmt.Sprintf("app %q failed compilation with %d error(s)", e.AppID, n)
}

// ExecuteResult is the outcome of a synchronous execution.
type ExecuteResult struct {
	RunID      string            `json:"runId"`
	StatePatch map[string]any    `json:"statePatch"`
	Logs       []runner.LogEntry `json:"logs"`
}

// RunState is the queryable status of a run.
type RunState struct {
	RunID      string            `json:"runId"`
	AppID      string            `json:"appId"`
	EventID    string            `json:"eventId"`
	Status     string            `json:"status"`
	StatePatch map[string]any    `json:"statePatch,omitempty"`
	Logs       []runner.LogEntry `json:"logs,omitempty"`
	Error      *ErrorInfo        `json:"error,omitempty"`
	StartedAt  time.Time         `json:"startedAt"`
	FinishedAt *time.Time        `json:"finishedAt,omitempty"`
}

// Service owns all run-related state.
type Service struct {
	apps   appstore.Store
	cache  *compiled.Cache
	interp *runner.Interpreter
	traces *TraceLogger
	events *EventBroker
	logger *log.Logger

	mu   sync.RWMutex
	runs map[string]*RunState
}

// New creates a run service.
func New(apps appstore.Store, cache *compiled.Cache, interp *runner.Interpreter, traces *TraceLogger, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		apps:   apps,
		cache:  cache,
		interp: interp,
		traces: traces,
		events: NewEventBroker(),
		logger: logger,
		runs:   make(map[string]*RunState),
	}
}

// Compile loads the stored definition and compiles it through the cache.
// The error reports store failures only; compilation problems land in the
// result's diagnostics.
func (s *Service) Compile(ctx context.Context, appID string) (*compile.Result, error) {
	rec, err := s.apps.Get(ctx, appID)
	if err != nil {
		return nil, fmt.Errorf("load app %q: %w", strings.TrimSpace(appID), err)
	}
	return s.cache.Compile(rec.AppID, rec.Definition), nil
}

// loadCompiled resolves an app to its validated definition, rejecting
// definitions whose diagnostics contain errors.
func (s *Service) loadCompiled(ctx context.Context, appID string) (*appdef.AppDefinition, error) {
	res, err := s.Compile(ctx, appID)
	if err != nil {
		return nil, err
	}
	if !res.OK() {
		return nil, &CompileRejectedError{AppID: strings.TrimSpace(appID), Diagnostics: res.Diagnostics}
	}
	return res.App, nil
}

// Execute runs one event synchronously and returns the patch and log.
func (s *Service) Execute(ctx context.Context, appID, eventID string, state map[string]any) (*ExecuteResult, error) {
	app, err := s.loadCompiled(ctx, appID)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	s.logger.Printf("run %s: executing event %s on app %s", runID, eventID, app.AppID)
	s.beginRun(runID, app.AppID, eventID)

	res, err := s.runEvent(ctx, runID, app, eventID, state, nil)
	s.finishRun(runID, res, err)
	if err != nil {
		return nil, err
	}
	return &ExecuteResult{RunID: runID, StatePatch: res.StatePatch, Logs: res.Logs}, nil
}

// Start launches one event asynchronously. Lookup and compilation still
// happen on the caller's side of the fence so a missing app or broken
// definition fails the request, not the run.
func (s *Service) Start(ctx context.Context, appID, eventID string, state map[string]any) (string, error) {
	app, err := s.loadCompiled(ctx, appID)
	if err != nil {
		return "", err
	}

	runID := uuid.NewString()
	s.logger.Printf("run %s: starting event %s on app %s", runID, eventID, app.AppID)
	s.beginRun(runID, app.AppID, eventID)
	eventCh := s.events.Allocate(runID, 128)

	go func() {
		defer func() {
			close(eventCh)
			s.events.ScheduleCleanup(runID)
		}()

		onLog := func(entry runner.LogEntry) {
			e := entry
			sendEvent(eventCh, Event{Type: EventLog, RunID: runID, Log: &e})
		}
		res, err := s.runEvent(context.Background(), runID, app, eventID, state, onLog)
		s.finishRun(runID, res, err)
		if err != nil {
			sendEvent(eventCh, Event{Type: EventFailed, RunID: runID, Error: errorInfo(err)})
			return
		}
		sendEvent(eventCh, Event{Type: EventCompleted, RunID: runID, StatePatch: res.StatePatch, Logs: res.Logs})
	}()

	return runID, nil
}

// runEvent is the shared core of Execute and Start: interpret with a
// trace-appending observer, then record the terminal trace line.
func (s *Service) runEvent(ctx context.Context, runID string, app *appdef.AppDefinition, eventID string, state map[string]any, onLog runner.Observer) (*runner.Result, error) {
	s.traces.Append(runID, TraceEvent{AppID: app.AppID, EventID: eventID, Stage: "start", Message: "execution started"})

	obs := func(entry runner.LogEntry) {
		s.traces.Append(runID, TraceEvent{AppID: app.AppID, EventID: entry.EventID, Stage: entry.Stage, Message: entry.Message})
		if onLog != nil {
			onLog(entry)
		}
	}
	res, err := s.interp.Execute(runner.WithObserver(ctx, obs), app, eventID, state)
	if err != nil {
		s.logger.Printf("run %s: failed: %v", runID, err)
		s.traces.Append(runID, TraceEvent{
			AppID: app.AppID, EventID: eventID, Stage: "error", Message: err.Error(),
			Fields: map[string]any{"code": runner.Code(err)},
		})
		return nil, err
	}
	s.traces.Append(runID, TraceEvent{
		AppID: app.AppID, EventID: eventID, Stage: "complete",
		Message: fmt.Sprintf("patched %d state key(s)", len(res.StatePatch)),
	})
	return res, nil
}

// Watch returns the run's event channel when one is still registered.
func (s *Service) Watch(runID string) (<-chan Event, bool) {
	return s.events.Get(runID)
}

// Status returns a snapshot of the run's state.
func (s *Service) Status(runID string) (RunState, bool) {
	s.mu.RLock()
	st, ok := s.runs[strings.TrimSpace(runID)]
	s.mu.RUnlock()
	if !ok {
		return RunState{}, false
	}
	return *st, true
}

// Trace returns the persisted trace events for a run.
func (s *Service) Trace(runID string) ([]TraceEvent, error) {
	return s.traces.Read(runID)
}

func (s *Service) beginRun(runID, appID, eventID string) {
	s.mu.Lock()
	s.runs[runID] = &RunState{
		RunID:     runID,
		AppID:     appID,
		EventID:   eventID,
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
	}
	s.mu.Unlock()
}

func (s *Service) finishRun(runID string, res *runner.Result, err error) {
	s.mu.Lock()
	st, ok := s.runs[runID]
	if !ok {
		st = &RunState{RunID: runID}
		s.runs[runID] = st
	}
	now := time.Now().UTC()
	st.FinishedAt = &now
	if err != nil {
		st.Status = StatusFailed
		st.Error = errorInfo(err)
	} else {
		st.Status = StatusCompleted
		if res != nil {
			st.StatePatch = res.StatePatch
			st.Logs = res.Logs
		}
	}
	s.mu.Unlock()

	time.AfterFunc(runResultRetention, func() {
		s.mu.Lock()
		delete(s.runs, runID)
		s.mu.Unlock()
	})
}

// sendEvent drops when the buffer is full; watchers also learn the run is
// over from the channel closing.
func sendEvent(ch chan Event, ev Event) {
	select {
	case ch <- ev:
	default:
	}
}

func errorInfo(err error) *ErrorInfo {
	if err == nil {
		return nil
	}
	return &ErrorInfo{Code: runner.Code(err), Message: err.Error()}
}
