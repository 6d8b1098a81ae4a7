package compile

import (
	"testing"

	"github.com/stretchr/testify/require"

	"appforge/internal/appdef"
)

func TestValidateScenarioClean(t *testing.T) {
	require.Empty(t, Validate(scenarioApp(t)))
}

func TestValidateDuplicateComponentID(t *testing.T) {
	app := scenarioApp(t)
	app.Components = append(app.Components, appdef.Component{
		ID:     "cmp_input",
		Type:   appdef.ComponentButton,
		Button: &appdef.ButtonComponent{Label: "Again", OnClick: "evt_other"},
	})

	diags := Validate(app)

	d := findDiag(t, diags, CodeDuplicateComponentID)
	require.Equal(t, "components.3.id", d.Path)
	require.Contains(t, d.Message, `"cmp_input"`)
}

func TestValidateMissingStateKey(t *testing.T) {
	app := scenarioApp(t)
	app.Components[0].TextArea.StateKey = "ghost"

	diags := Validate(app)

	require.Len(t, diags, 1)
	require.Equal(t, CodeMissingStateKey, diags[0].Code)
	require.Equal(t, "components.0.stateKey", diags[0].Path)
	require.Contains(t, diags[0].Message, `"ghost"`)
}

func TestValidateMissingDataKey(t *testing.T) {
	app := scenarioApp(t)
	app.Components[2].DataTable.DataKey = "ghostRows"

	diags := Validate(app)

	d := findDiag(t, diags, CodeMissingStateKey)
	require.Equal(t, "components.2.dataKey", d.Path)
}

func TestValidateDuplicateUIStateKey(t *testing.T) {
	app := scenarioApp(t)
	app.Components = append(app.Components, appdef.Component{
		ID:       "cmp_copy",
		Type:     appdef.ComponentTextArea,
		TextArea: &appdef.TextAreaComponent{Label: "Copy", StateKey: "customerComplaint"},
	})

	diags := Validate(app)

	d := findDiag(t, diags, CodeDuplicateUIStateKey)
	require.Equal(t, "components.3.stateKey", d.Path)
	require.Contains(t, d.Message, `"cmp_input"`)
}

func TestValidateDuplicateTriggerEventID(t *testing.T) {
	app := scenarioApp(t)
	app.Components = append(app.Components, appdef.Component{
		ID:     "cmp_retrigger",
		Type:   appdef.ComponentButton,
		Button: &appdef.ButtonComponent{Label: "Retry", OnClick: "evt_analyze_click"},
	})

	diags := Validate(app)

	d := findDiag(t, diags, CodeDuplicateTriggerEventID)
	require.Equal(t, "components.3.onClick", d.Path)
	require.Contains(t, d.Message, `"cmp_analyze"`)
}

func TestValidateDuplicateEventID(t *testing.T) {
	app := scenarioApp(t)
	app.Events = append(app.Events, appdef.EventDefinition{
		ID:      "evt_analyze_click",
		Trigger: appdef.Trigger{ComponentID: "cmp_analyze", On: "onClick"},
	})

	diags := Validate(app)

	d := findDiag(t, diags, CodeDuplicateEventID)
	require.Equal(t, "events.1.id", d.Path)
}

func TestValidateUnknownTriggerComponent(t *testing.T) {
	app := scenarioApp(t)
	app.Events[0].Trigger.ComponentID = "cmp_missing"

	diags := Validate(app)

	require.Len(t, diags, 1)
	require.Equal(t, CodeUnknownTriggerComponent, diags[0].Code)
	require.Equal(t, "events.0.trigger.componentId", diags[0].Path)
	require.Contains(t, diags[0].Message, "unknown component")
}

func TestValidateTriggerMustBeButton(t *testing.T) {
	app := scenarioApp(t)
	app.Events[0].Trigger.ComponentID = "cmp_input"

	diags := Validate(app)

	require.Len(t, diags, 1)
	require.Equal(t, CodeUnknownTriggerComponent, diags[0].Code)
	require.Contains(t, diags[0].Message, "not a button")
}

func TestValidateGraphCycle(t *testing.T) {
	app := scenarioApp(t)
	g := &app.Events[0].Graph
	g.Edges = append(g.Edges, appdef.Edge{From: "prompt", To: "check"})

	diags := Validate(app)

	require.Len(t, diags, 1)
	require.Equal(t, CodeGraphCycleDetected, diags[0].Code)
	require.Equal(t, "events.0.graph", diags[0].Path)
	require.Equal(t, "action graph contains a cycle", diags[0].Message)
}

func TestValidateGraphDuplicateNodeID(t *testing.T) {
	app := scenarioApp(t)
	g := &app.Events[0].Graph
	g.Nodes = append(g.Nodes, appdef.ActionNode{
		ID:       "check",
		Type:     appdef.NodeValidate,
		Validate: &appdef.ValidateNode{StateKeys: []string{"customerComplaint"}},
	})

	diags := Validate(app)

	d := findDiag(t, diags, CodeGraphDuplicateNodeID)
	require.Equal(t, "events.0.graph.nodes.3.id", d.Path)
	require.Contains(t, d.Message, `"check"`)
}

func TestValidateGraphUnknownEdgeNode(t *testing.T) {
	app := scenarioApp(t)
	g := &app.Events[0].Graph
	g.Edges = append(g.Edges, appdef.Edge{From: "check", To: "ghost"})

	diags := Validate(app)

	require.Len(t, diags, 1)
	require.Equal(t, CodeGraphUnknownEdgeNode, diags[0].Code)
	require.Equal(t, "events.0.graph.edges.2", diags[0].Path)
	require.Contains(t, diags[0].Message, "check -> ghost")
}

func TestValidateUnknownPromptVariableInTemplate(t *testing.T) {
	app := scenarioApp(t)
	app.Events[0].Graph.Nodes[1].Prompt.Template = "Analyze {{doesNotExist}} now"

	diags := Validate(app)

	require.Len(t, diags, 1)
	require.Equal(t, CodeUnknownPromptVariable, diags[0].Code)
	require.Equal(t, "events.0.graph.nodes.1.template", diags[0].Path)
	require.Equal(t, `unknown prompt variable "doesNotExist"`, diags[0].Message)
}

func TestValidateUnknownPromptVariableInDeclaredList(t *testing.T) {
	app := scenarioApp(t)
	prompt := app.Events[0].Graph.Nodes[1].Prompt
	prompt.Variables = append(prompt.Variables, "doesNotExist")

	diags := Validate(app)

	d := findDiag(t, diags, CodeUnknownPromptVariable)
	require.Equal(t, "events.0.graph.nodes.1.variables.1", d.Path)
}

func TestValidatePromptVariableByLabelOrKey(t *testing.T) {
	for _, token := range []string{"Customer Complaint", "customerComplaint", "customer_complaint"} {
		app := scenarioApp(t)
		app.Events[0].Graph.Nodes[1].Prompt.Template = "Analyze {{" + token + "}}"
		app.Events[0].Graph.Nodes[1].Prompt.Variables = []string{token}

		require.Empty(t, Validate(app), "token %q should resolve", token)
	}
}

func TestValidateStateModelKeyWithoutComponentIsKnown(t *testing.T) {
	app := scenarioApp(t)
	app.StateModel["tone"] = appdef.StateField{Type: appdef.FieldString}
	app.Events[0].Graph.Nodes[1].Prompt.Template = "Analyze {{Customer Complaint}} in a {{tone}} voice"

	require.Empty(t, Validate(app))
}
