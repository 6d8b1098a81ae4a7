// Package runner executes one event's action graph against a state
// snapshot. Nodes run strictly in dependency order; prompt outputs flow
// through a per-call output map and transforms project them into the
// returned state patch. Any node failure aborts the run, so a failed
// execution is a no-op on state.
package runner

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"
	"time"

	"appforge/internal/appdef"
	"appforge/internal/graph"
	"appforge/internal/llm"
	"appforge/internal/llmtool"
)

// Log stages, in the order a typical graph produces them.
const (
	StageValidate  = "validate"
	StagePrompt    = "prompt"
	StageTransform = "transform"
)

// LogEntry is one line of an execution log.
type LogEntry struct {
	At      time.Time `json:"at"`
	EventID string    `json:"eventId"`
	Stage   string    `json:"stage"`
	Message string    `json:"message"`
}

// Result is a successful execution: the patch the caller merges into live
// state, plus the per-node log.
type Result struct {
	StatePatch map[string]any `json:"statePatch"`
	Logs       []LogEntry     `json:"logs"`
}

// outputRef is the single recognized transform expression: wrap a prior
// node's output in a one-element array. Any other string is assigned as a
// literal.
var outputRef = regexp.MustCompile(`^\[\$(.+)\.output\]$`)

// Interpreter executes events against a provider registry. It keeps no
// per-run state; one value serves concurrent executions.
type Interpreter struct {
	Providers *llm.Registry
	Logger    *log.Logger
}

func New(providers *llm.Registry, logger *log.Logger) *Interpreter {
	if logger == nil {
		logger = log.Default()
	}
	return &Interpreter{Providers: providers, Logger: logger}
}

func (it *Interpreter) logf(format string, args ...any) {
	if it.Logger != nil {
		it.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// Execute runs the named event's graph against the given state snapshot
// and returns the resulting state patch and log. The snapshot is never
// written to; all writes land in the patch.
func (it *Interpreter) Execute(ctx context.Context, app *appdef.AppDefinition, eventID string, state map[string]any) (*Result, error) {
	ev, ok := app.FindEvent(eventID)
	if !ok {
		return nil, fault(errUnknownEvent,
			fmt.Sprintf("unknown event %q", eventID),
			map[string]any{"eventId": eventID})
	}

	order, nodes, err := executionOrder(ev)
	if err != nil {
		return nil, err
	}
	it.logf("event %s: executing %d nodes", ev.ID, len(order))

	run := &execution{
		interp:  it,
		event:   ev,
		state:   state,
		outputs: map[string]any{},
		patch:   map[string]any{},
		notify:  observerFrom(ctx),
	}
	for _, id := range order {
		if err := run.step(ctx, nodes[id]); err != nil {
			it.logf("event %s: node %s failed: %v", ev.ID, id, err)
			return nil, err
		}
	}
	return &Result{StatePatch: run.patch, Logs: run.logs}, nil
}

// executionOrder flattens the event's graph into a total node order. The
// definition normally arrives pre-validated, so any structural defect
// here is fatal rather than diagnosed.
func executionOrder(ev *appdef.EventDefinition) ([]string, map[string]*appdef.ActionNode, error) {
	ids := make([]string, 0, len(ev.Graph.Nodes))
	nodes := make(map[string]*appdef.ActionNode, len(ev.Graph.Nodes))
	for i := range ev.Graph.Nodes {
		n := &ev.Graph.Nodes[i]
		ids = append(ids, n.ID)
		if _, seen := nodes[n.ID]; !seen {
			nodes[n.ID] = n
		}
	}
	edges := make([]graph.Edge, 0, len(ev.Graph.Edges))
	for _, e := range ev.Graph.Edges {
		edges = append(edges, graph.Edge{From: e.From, To: e.To})
	}

	ord := graph.Order(ids, edges)
	if !ord.OK() {
		return nil, nil, fault(errCyclicGraph,
			fmt.Sprintf("event %q: action graph is not executable", ev.ID),
			map[string]any{"eventId": ev.ID})
	}
	return ord.Order, nodes, nil
}

// execution is the mutable context of one Execute call.
type execution struct {
	interp  *Interpreter
	event   *appdef.EventDefinition
	state   map[string]any
	outputs map[string]any
	patch   map[string]any
	logs    []LogEntry
	notify  Observer
}

func (r *execution) log(stage, format string, args ...any) {
	entry := LogEntry{
		At:      time.Now().UTC(),
		EventID: r.event.ID,
		Stage:   stage,
		Message: fmt.Sprintf(format, args...),
	}
	r.logs = append(r.logs, entry)
	r.notify(entry)
}

func (r *execution) step(ctx context.Context, n *appdef.ActionNode) error {
	switch {
	case n.Type == appdef.NodeValidate && n.Validate != nil:
		return r.validate(n)
	case n.Type == appdef.NodePromptTask && n.Prompt != nil:
		return r.prompt(ctx, n)
	case n.Type == appdef.NodeTransform && n.Transform != nil:
		return r.transform(n)
	default:
		return fault(errUnknownNode,
			fmt.Sprintf("node %q has no executable form", n.ID),
			map[string]any{"eventId": r.event.ID, "nodeId": n.ID, "nodeType": string(n.Type)})
	}
}

// validate requires every listed state key to be present and non-empty.
func (r *execution) validate(n *appdef.ActionNode) error {
	for _, key := range n.Validate.StateKeys {
		v, ok := r.state[key]
		if !ok || v == nil || v == "" {
			return fault(errValidationFailed,
				fmt.Sprintf("Validation failed: state key %q is empty", key),
				map[string]any{"eventId": r.event.ID, "nodeId": n.ID, "stateKey": key})
		}
	}
	r.log(StageValidate, "validated %s", strings.Join(n.Validate.StateKeys, ", "))
	return nil
}

// prompt gathers the node's variables from state and delegates to the
// prompt layer. Absent keys stay absent; interpolation reports them if
// the template actually needs them.
func (r *execution) prompt(ctx context.Context, n *appdef.ActionNode) error {
	vars := make(map[string]any, len(n.Prompt.Variables))
	for _, key := range n.Prompt.Variables {
		if v, ok := r.state[key]; ok {
			vars[key] = v
		}
	}

	res, err := llmtool.Run(ctx, r.interp.Providers, llmtool.RunInput{
		Template:  n.Prompt.Template,
		Variables: vars,
		Output:    n.Prompt.Output,
		Policy:    n.Prompt.Model,
	})
	if err != nil {
		return err
	}
	r.outputs[n.ID] = res.Output
	r.log(StagePrompt, "prompt completed via provider %q", res.Meta.Provider)
	return nil
}

// transform assigns each target key either a literal or a one-element
// array wrapping a prior node's output. Targets are applied in sorted
// order so runs are reproducible.
func (r *execution) transform(n *appdef.ActionNode) error {
	targets := make([]string, 0, len(n.Transform.Assign))
	for key := range n.Transform.Assign {
		targets = append(targets, key)
	}
	sort.Strings(targets)

	for _, key := range targets {
		expr := n.Transform.Assign[key]
		m := outputRef.FindStringSubmatch(expr)
		if m == nil {
			r.patch[key] = expr
			continue
		}
		out, ok := r.outputs[m[1]]
		if !ok {
			return fault(errUnknownNode,
				fmt.Sprintf("transform references unknown node %q", m[1]),
				map[string]any{"eventId": r.event.ID, "nodeId": n.ID, "ref": m[1]})
		}
		r.patch[key] = []any{out}
	}
	r.log(StageTransform, "assigned %s", strings.Join(targets, ", "))
	return nil
}
