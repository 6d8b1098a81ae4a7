package runner

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/require"

	"appforge/internal/appdef"
	"appforge/internal/compile"
	"appforge/internal/llm"
	"appforge/internal/llmtool"
)

const analysisReply = `{"sentiment":"neutral","reply":"ok"}`

func analysisFields() []appdef.ObjectField {
	one := 1
	return []appdef.ObjectField{
		{Name: "sentiment", FieldSpec: appdef.FieldSpec{Type: appdef.FieldString, Enum: []any{"positive", "neutral", "negative"}}},
		{Name: "reply", FieldSpec: appdef.FieldSpec{Type: appdef.FieldString, MinLength: &one}},
	}
}

// scenarioApp is the canonical complaint-desk app in its normalized form:
// validate -> promptTask -> transform feeding a data table.
func scenarioApp() *appdef.AppDefinition {
	return &appdef.AppDefinition{
		AppID:   "complaint-desk",
		Version: "1.0.0",
		Components: []appdef.Component{
			{ID: "cmp_input", Type: appdef.ComponentTextArea, TextArea: &appdef.TextAreaComponent{Label: "Customer Complaint", StateKey: "customerComplaint"}},
			{ID: "cmp_analyze", Type: appdef.ComponentButton, Button: &appdef.ButtonComponent{Label: "Analyze", OnClick: "evt_analyze_click"}},
			{ID: "cmp_results", Type: appdef.ComponentDataTable, DataTable: &appdef.DataTableComponent{Label: "Analysis", DataKey: "analysisRows"}},
		},
		StateModel: map[string]appdef.StateField{
			"customerComplaint": {Type: appdef.FieldString},
			"analysisRows":      {Type: appdef.FieldArray, Items: &appdef.ObjectShape{Fields: analysisFields()}},
		},
		Events: []appdef.EventDefinition{{
			ID:      "evt_analyze_click",
			Trigger: appdef.Trigger{ComponentID: "cmp_analyze", On: "onClick"},
			Graph: appdef.ActionGraph{
				Nodes: []appdef.ActionNode{
					{ID: "check", Type: appdef.NodeValidate, Validate: &appdef.ValidateNode{StateKeys: []string{"customerComplaint"}}},
					{ID: "prompt", Type: appdef.NodePromptTask, Prompt: &appdef.PromptTaskNode{
						Template:  "Analyze this complaint and draft a reply: {{customerComplaint}}",
						Variables: []string{"customerComplaint"},
						Model:     appdef.ModelPolicy{Provider: "fake", Model: "test-model"},
						Output:    appdef.OutputSchema{Name: "analysis", ObjectShape: appdef.ObjectShape{Fields: analysisFields()}},
					}},
					{ID: "apply", Type: appdef.NodeTransform, Transform: &appdef.TransformNode{Assign: map[string]string{"analysisRows": "[$prompt.output]"}}},
				},
				Edges: []appdef.Edge{{From: "check", To: "prompt"}, {From: "prompt", To: "apply"}},
			},
		}},
	}
}

func registryWith(t *testing.T, p llm.Provider) *llm.Registry {
	t.Helper()
	reg := llm.NewRegistry()
	require.NoError(t, reg.Register(p))
	return reg
}

func quiet() *log.Logger { return log.New(io.Discard, "", 0) }

func TestExecuteScenario(t *testing.T) {
	fake := llm.NewFakeProvider("fake", analysisReply)
	it := New(registryWith(t, fake), quiet())

	res, err := it.Execute(context.Background(), scenarioApp(), "evt_analyze_click",
		map[string]any{"customerComplaint": "too slow"})

	require.NoError(t, err)
	require.Equal(t, map[string]any{
		"analysisRows": []any{map[string]any{"sentiment": "neutral", "reply": "ok"}},
	}, res.StatePatch)

	require.Len(t, res.Logs, 3)
	stages := make([]string, 0, 3)
	for _, entry := range res.Logs {
		require.Equal(t, "evt_analyze_click", entry.EventID)
		require.False(t, entry.At.IsZero())
		stages = append(stages, entry.Stage)
	}
	require.Equal(t, []string{StageValidate, StagePrompt, StageTransform}, stages)
	require.Contains(t, res.Logs[1].Message, `"fake"`)

	calls := fake.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, "test-model", calls[0].Model)
	require.Contains(t, calls[0].Prompt, "too slow")
}

func TestExecuteEmptyInputSkipsProvider(t *testing.T) {
	fake := llm.NewFakeProvider("fake", analysisReply)
	it := New(registryWith(t, fake), quiet())

	res, err := it.Execute(context.Background(), scenarioApp(), "evt_analyze_click",
		map[string]any{"customerComplaint": ""})

	require.Nil(t, res)
	require.Equal(t, ErrCodeValidationFailed, Code(err))
	require.Contains(t, err.Error(), "Validation failed")
	require.Empty(t, fake.Calls())
}

func TestExecuteMissingAndNilStateFail(t *testing.T) {
	for name, state := range map[string]map[string]any{
		"absent key": {},
		"nil value":  {"customerComplaint": nil},
		"nil map":    nil,
	} {
		t.Run(name, func(t *testing.T) {
			fake := llm.NewFakeProvider("fake", analysisReply)
			it := New(registryWith(t, fake), quiet())

			_, err := it.Execute(context.Background(), scenarioApp(), "evt_analyze_click", state)

			require.Equal(t, ErrCodeValidationFailed, Code(err))
			require.Empty(t, fake.Calls())
		})
	}
}

func TestExecuteUnknownEvent(t *testing.T) {
	it := New(registryWith(t, llm.NewFakeProvider("fake", analysisReply)), quiet())

	res, err := it.Execute(context.Background(), scenarioApp(), "evt_missing", map[string]any{})

	require.Nil(t, res)
	require.Equal(t, ErrCodeUnknownEvent, Code(err))
	require.Contains(t, err.Error(), "evt_missing")
}

func TestExecuteCyclicGraph(t *testing.T) {
	app := scenarioApp()
	g := &app.Events[0].Graph
	g.Edges = append(g.Edges, appdef.Edge{From: "apply", To: "check"})
	fake := llm.NewFakeProvider("fake", analysisReply)
	it := New(registryWith(t, fake), quiet())

	res, err := it.Execute(context.Background(), app, "evt_analyze_click",
		map[string]any{"customerComplaint": "too slow"})

	require.Nil(t, res)
	require.Equal(t, ErrCodeCyclicGraph, Code(err))
	require.Empty(t, fake.Calls())
}

func TestExecuteTransformUnknownReference(t *testing.T) {
	app := scenarioApp()
	app.Events[0].Graph.Nodes[2].Transform.Assign = map[string]string{"analysisRows": "[$ghost.output]"}
	fake := llm.NewFakeProvider("fake", analysisReply)
	it := New(registryWith(t, fake), quiet())

	res, err := it.Execute(context.Background(), app, "evt_analyze_click",
		map[string]any{"customerComplaint": "too slow"})

	require.Nil(t, res)
	require.Equal(t, ErrCodeUnknownNode, Code(err))
	require.Contains(t, err.Error(), "ghost")
	require.Len(t, fake.Calls(), 1)
}

func TestExecuteTransformLiteralPassthrough(t *testing.T) {
	app := scenarioApp()
	app.Events[0].Graph.Nodes[2].Transform.Assign = map[string]string{
		"analysisRows": "[$prompt.output]",
		"note":         "plain text",
		"banner":       "[$prompt.outputs]",
	}
	it := New(registryWith(t, llm.NewFakeProvider("fake", analysisReply)), quiet())

	res, err := it.Execute(context.Background(), app, "evt_analyze_click",
		map[string]any{"customerComplaint": "too slow"})

	require.NoError(t, err)
	require.Equal(t, []any{map[string]any{"sentiment": "neutral", "reply": "ok"}}, res.StatePatch["analysisRows"])
	require.Equal(t, "plain text", res.StatePatch["note"])
	require.Equal(t, "[$prompt.outputs]", res.StatePatch["banner"])
}

func TestExecuteProviderErrorPropagates(t *testing.T) {
	fake := llm.NewFakeProvider("fake", analysisReply).Fail(errors.New("backend down"))
	it := New(registryWith(t, fake), quiet())

	_, err := it.Execute(context.Background(), scenarioApp(), "evt_analyze_click",
		map[string]any{"customerComplaint": "too slow"})

	require.Equal(t, llmtool.ErrCodeProviderFailure, Code(err))
}

func TestExecuteBadModelJSON(t *testing.T) {
	it := New(registryWith(t, llm.NewFakeProvider("fake", "definitely not json")), quiet())

	_, err := it.Execute(context.Background(), scenarioApp(), "evt_analyze_click",
		map[string]any{"customerComplaint": "too slow"})

	require.Equal(t, llmtool.ErrCodeBadModelJSON, Code(err))
}

func TestExecuteOutputMismatch(t *testing.T) {
	it := New(registryWith(t, llm.NewFakeProvider("fake", `{"sentiment":"furious","reply":"ok"}`)), quiet())

	_, err := it.Execute(context.Background(), scenarioApp(), "evt_analyze_click",
		map[string]any{"customerComplaint": "too slow"})

	require.Equal(t, llmtool.ErrCodeOutputMismatch, Code(err))
}

func TestExecuteLeavesStateUntouched(t *testing.T) {
	state := map[string]any{"customerComplaint": "too slow"}
	it := New(registryWith(t, llm.NewFakeProvider("fake", analysisReply)), quiet())

	res, err := it.Execute(context.Background(), scenarioApp(), "evt_analyze_click", state)

	require.NoError(t, err)
	require.Equal(t, map[string]any{"customerComplaint": "too slow"}, state)
	require.NotContains(t, res.StatePatch, "customerComplaint")
}

func TestCompileThenExecuteRoundTrip(t *testing.T) {
	app := scenarioApp()
	app.Events[0].Graph.Nodes[1].Prompt.Template = "Analyze this complaint and draft a reply: {{Customer Complaint}}"
	app.Events[0].Graph.Nodes[1].Prompt.Variables = []string{"Customer Complaint"}
	raw, err := json.Marshal(app)
	require.NoError(t, err)

	compiled := compile.Compile(raw)
	require.True(t, compiled.OK(), "diagnostics: %v", compiled.Diagnostics)

	fake := llm.NewFakeProvider("fake", analysisReply)
	it := New(registryWith(t, fake), quiet())

	res, err := it.Execute(context.Background(), compiled.App, "evt_analyze_click",
		map[string]any{"customerComplaint": "too slow"})

	require.NoError(t, err)
	require.Equal(t, []any{map[string]any{"sentiment": "neutral", "reply": "ok"}}, res.StatePatch["analysisRows"])
	require.Len(t, fake.Calls(), 1)
	require.Contains(t, fake.Calls()[0].Prompt, "too slow")
}

func TestCodeHelper(t *testing.T) {
	require.Empty(t, Code(nil))
	require.Empty(t, Code(errors.New("plain")))
	require.Equal(t, ErrCodeUnknownEvent, Code(fault(errUnknownEvent, "unknown event", nil)))
}

func TestLogEntryWireFormat(t *testing.T) {
	it := New(registryWith(t, llm.NewFakeProvider("fake", analysisReply)), quiet())

	res, err := it.Execute(context.Background(), scenarioApp(), "evt_analyze_click",
		map[string]any{"customerComplaint": "too slow"})
	require.NoError(t, err)

	raw, err := json.Marshal(res.Logs[0])
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Contains(t, decoded, "at")
	require.Contains(t, decoded, "eventId")
	require.Equal(t, "validate", decoded["stage"])
	require.Contains(t, decoded["message"], "customerComplaint")
}
