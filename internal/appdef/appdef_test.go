package appdef

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestComponentRoundTrip(t *testing.T) {
	in := `{"id":"cmp_input","type":"textArea","label":"Customer Complaint","stateKey":"customerComplaint","placeholder":"Describe the issue"}`
	var c Component
	if err := json.Unmarshal([]byte(in), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if c.Type != ComponentTextArea || c.TextArea == nil {
		t.Fatalf("expected textArea variant, got %+v", c)
	}
	if c.TextArea.StateKey != "customerComplaint" {
		t.Fatalf("stateKey = %q", c.TextArea.StateKey)
	}
	if c.Button != nil || c.DataTable != nil {
		t.Fatalf("other variants must stay nil")
	}

	out, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Component
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("re-unmarshal: %v", err)
	}
	if back.TextArea == nil || *back.TextArea != *c.TextArea {
		t.Fatalf("round trip changed payload: %+v vs %+v", back.TextArea, c.TextArea)
	}
}

func TestComponentUnknownType(t *testing.T) {
	var c Component
	err := json.Unmarshal([]byte(`{"id":"x","type":"slider"}`), &c)
	if err == nil {
		t.Fatal("expected error for unknown component type")
	}
	if !strings.Contains(err.Error(), "slider") {
		t.Fatalf("error should name the offending tag: %v", err)
	}
}

func TestStateBearingKey(t *testing.T) {
	cases := []struct {
		c    Component
		key  string
		ok   bool
	}{
		{Component{Type: ComponentTextArea, TextArea: &TextAreaComponent{StateKey: "a"}}, "a", true},
		{Component{Type: ComponentDataTable, DataTable: &DataTableComponent{DataKey: "rows"}}, "rows", true},
		{Component{Type: ComponentButton, Button: &ButtonComponent{OnClick: "evt"}}, "", false},
	}
	for i, tc := range cases {
		key, ok := tc.c.StateBearingKey()
		if key != tc.key || ok != tc.ok {
			t.Fatalf("case %d: got (%q,%v), want (%q,%v)", i, key, ok, tc.key, tc.ok)
		}
	}
}

func TestActionNodeRoundTrip(t *testing.T) {
	in := `{
		"id":"prompt",
		"type":"promptTask",
		"template":"Analyze {{customerComplaint}} and reply as JSON.",
		"variables":["customerComplaint"],
		"model":{"provider":"fake","model":"fake-1","temperature":0.2},
		"output":{"name":"Analysis","fields":[
			{"name":"sentiment","type":"string","enum":["positive","neutral","negative"]},
			{"name":"reply","type":"string","minLength":1}
		]}
	}`
	var n ActionNode
	if err := json.Unmarshal([]byte(in), &n); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if n.Type != NodePromptTask || n.Prompt == nil {
		t.Fatalf("expected promptTask variant, got %+v", n)
	}
	if n.Prompt.Model.Temperature == nil || *n.Prompt.Model.Temperature != 0.2 {
		t.Fatalf("temperature = %v", n.Prompt.Model.Temperature)
	}
	if len(n.Prompt.Output.Fields) != 2 || n.Prompt.Output.Fields[0].Name != "sentiment" {
		t.Fatalf("output fields = %+v", n.Prompt.Output.Fields)
	}

	out, err := json.Marshal(n)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back ActionNode
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("re-unmarshal: %v", err)
	}
	if back.Prompt.Template != n.Prompt.Template || len(back.Prompt.Output.Fields) != 2 {
		t.Fatalf("round trip changed payload")
	}
}

func TestCloneIsDeep(t *testing.T) {
	temp := 0.5
	min := 1
	app := &AppDefinition{
		AppID:   "demo",
		Version: "1",
		Components: []Component{
			{ID: "c1", Type: ComponentTextArea, TextArea: &TextAreaComponent{Label: "In", StateKey: "in"}},
		},
		StateModel: map[string]StateField{
			"in":   {Type: FieldString, MinLength: &min},
			"rows": {Type: FieldArray, Items: &ObjectShape{Fields: []ObjectField{{Name: "a", FieldSpec: FieldSpec{Type: FieldString}}}}},
		},
		Events: []EventDefinition{{
			ID:      "evt",
			Trigger: Trigger{ComponentID: "c1", On: "onClick"},
			Graph: ActionGraph{
				Nodes: []ActionNode{
					{ID: "p", Type: NodePromptTask, Prompt: &PromptTaskNode{
						Template:  "{{in}}",
						Variables: []string{"in"},
						Model:     ModelPolicy{Provider: "fake", Model: "m", Temperature: &temp},
					}},
					{ID: "t", Type: NodeTransform, Transform: &TransformNode{Assign: map[string]string{"rows": "[$p.output]"}}},
				},
				Edges: []Edge{{From: "p", To: "t"}},
			},
		}},
	}

	cp := app.Clone()
	cp.Events[0].Graph.Nodes[0].Prompt.Template = "changed"
	cp.Events[0].Graph.Nodes[0].Prompt.Variables[0] = "changed"
	*cp.Events[0].Graph.Nodes[0].Prompt.Model.Temperature = 9
	cp.Events[0].Graph.Nodes[1].Transform.Assign["rows"] = "changed"
	cp.StateModel["in"] = StateField{Type: FieldNumber}

	if app.Events[0].Graph.Nodes[0].Prompt.Template != "{{in}}" {
		t.Fatal("clone shares template")
	}
	if app.Events[0].Graph.Nodes[0].Prompt.Variables[0] != "in" {
		t.Fatal("clone shares variables slice")
	}
	if *app.Events[0].Graph.Nodes[0].Prompt.Model.Temperature != 0.5 {
		t.Fatal("clone shares temperature pointer")
	}
	if app.Events[0].Graph.Nodes[1].Transform.Assign["rows"] != "[$p.output]" {
		t.Fatal("clone shares assign map")
	}
	if app.StateModel["in"].Type != FieldString {
		t.Fatal("clone shares state model map")
	}
}

func TestFindEvent(t *testing.T) {
	app := &AppDefinition{Events: []EventDefinition{{ID: "evt_a"}, {ID: "evt_b"}}}
	if _, ok := app.FindEvent(" evt_b "); !ok {
		t.Fatal("trimmed lookup should find evt_b")
	}
	if _, ok := app.FindEvent("nope"); ok {
		t.Fatal("unexpected hit")
	}
}
