// Package llmtool turns one prompt task into one validated model call:
// interpolate the template, resolve the provider, execute, parse and
// check the response against the task's declared output shape. Retry and
// throttling policy live in the provider middleware, not here.
package llmtool

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/getkin/kin-openapi/openapi3"

	"appforge/internal/appdef"
	"appforge/internal/llm"
)

// systemInstruction is prepended to every interpolated template so the
// model answers with a bare JSON document.
const systemInstruction = "you are a strict JSON API, return ONLY valid JSON"

// RunInput is one prompt task ready for execution. Variables must
// already be keyed by canonical names; Run does no alias resolution.
type RunInput struct {
	Template  string
	Variables map[string]any
	Output    appdef.OutputSchema
	Policy    appdef.ModelPolicy
}

// RunResult is the validated output plus the raw text and provider
// metadata for logging. Meta is opaque to callers.
type RunResult struct {
	Output  map[string]any
	RawText string
	Meta    llm.Meta
}

// Run executes one prompt task. Every failure is fatal and carries a
// RUN_* text code; there is no fallback between providers.
func Run(ctx context.Context, providers *llm.Registry, in RunInput) (*RunResult, error) {
	text, err := Interpolate(in.Template, in.Variables)
	if err != nil {
		return nil, err
	}

	provider, err := providers.Get(in.Policy.Provider)
	if err != nil {
		return nil, fault(ErrUnknownProvider,
			"unknown provider: "+in.Policy.Provider, err,
			map[string]any{"provider": in.Policy.Provider})
	}

	resp, err := provider.Execute(ctx, llm.Request{
		Prompt:      systemInstruction + "\n\n" + text,
		Model:       in.Policy.Model,
		Temperature: in.Policy.Temperature,
	})
	if err != nil {
		return nil, fault(ErrProviderFailure,
			"provider "+in.Policy.Provider+" failed: "+err.Error(), err,
			map[string]any{"provider": in.Policy.Provider, "model": in.Policy.Model})
	}

	var parsed any
	if err := json.Unmarshal([]byte(resp.Text), &parsed); err != nil {
		return nil, fault(ErrBadModelJSON,
			"model returned invalid JSON: "+err.Error(), err,
			map[string]any{"raw": resp.Text})
	}

	schema := SchemaFor(in.Output)
	if err := schema.VisitJSON(parsed, openapi3.MultiErrors()); err != nil {
		return nil, fault(ErrOutputMismatch,
			"model output does not match declared schema: "+err.Error(), err,
			map[string]any{"raw": resp.Text, "problems": schemaProblems(err)})
	}

	obj, ok := parsed.(map[string]any)
	if !ok {
		return nil, fault(ErrOutputMismatch,
			"model output is not a JSON object", nil,
			map[string]any{"raw": resp.Text})
	}

	return &RunResult{Output: obj, RawText: resp.Text, Meta: resp.Meta}, nil
}

func schemaProblems(err error) []string {
	var me openapi3.MultiError
	if stderrors.As(err, &me) {
		out := make([]string, 0, len(me))
		for _, e := range me {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}
