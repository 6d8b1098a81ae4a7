package compile

import (
	"fmt"
	"strings"

	"appforge/internal/alias"
	"appforge/internal/appdef"
	"appforge/internal/graph"
	"appforge/internal/llmtool"
)

// Validate runs every cross-reference check over a decoded definition and
// returns the accumulated diagnostics. Checks are independent: one failing
// never suppresses another, so a caller sees the full picture in one pass.
func Validate(app *appdef.AppDefinition) []Diagnostic {
	diags := make([]Diagnostic, 0)
	diags = append(diags, checkComponents(app)...)
	diags = append(diags, checkEvents(app)...)
	return diags
}

func checkComponents(app *appdef.AppDefinition) []Diagnostic {
	var diags []Diagnostic

	seenID := map[string]bool{}
	keyOwner := map[string]string{}
	clickOwner := map[string]string{}
	for i := range app.Components {
		c := &app.Components[i]
		path := fmt.Sprintf("components.%d", i)

		if seenID[c.ID] {
			diags = append(diags, errorDiag(CodeDuplicateComponentID,
				fmt.Sprintf("duplicate component id %q", c.ID), path+".id"))
		}
		seenID[c.ID] = true

		if key, ok := c.StateBearingKey(); ok && key != "" {
			field := "stateKey"
			if c.Type == appdef.ComponentDataTable {
				field = "dataKey"
			}
			if _, declared := app.StateModel[key]; !declared {
				diags = append(diags, errorDiag(CodeMissingStateKey,
					fmt.Sprintf("state key %q is not declared in the state model", key), path+"."+field))
			}
			if owner, taken := keyOwner[key]; taken {
				diags = append(diags, errorDiag(CodeDuplicateUIStateKey,
					fmt.Sprintf("state key %q is already claimed by component %q", key, owner), path+"."+field))
			} else {
				keyOwner[key] = c.ID
			}
		}

		if c.Type == appdef.ComponentButton && c.Button != nil && c.Button.OnClick != "" {
			if owner, taken := clickOwner[c.Button.OnClick]; taken {
				diags = append(diags, errorDiag(CodeDuplicateTriggerEventID,
					fmt.Sprintf("event %q is already triggered by component %q", c.Button.OnClick, owner), path+".onClick"))
			} else {
				clickOwner[c.Button.OnClick] = c.ID
			}
		}
	}

	return diags
}

func checkEvents(app *appdef.AppDefinition) []Diagnostic {
	var diags []Diagnostic
	am := alias.Build(app.Components)

	seenEvent := map[string]bool{}
	for i := range app.Events {
		ev := &app.Events[i]
		path := fmt.Sprintf("events.%d", i)

		if seenEvent[ev.ID] {
			diags = append(diags, errorDiag(CodeDuplicateEventID,
				fmt.Sprintf("duplicate event id %q", ev.ID), path+".id"))
		}
		seenEvent[ev.ID] = true

		if c, ok := app.FindComponent(ev.Trigger.ComponentID); !ok {
			diags = append(diags, errorDiag(CodeUnknownTriggerComponent,
				fmt.Sprintf("trigger references unknown component %q", ev.Trigger.ComponentID),
				path+".trigger.componentId"))
		} else if c.Type != appdef.ComponentButton {
			diags = append(diags, errorDiag(CodeUnknownTriggerComponent,
				fmt.Sprintf("trigger component %q is not a button", ev.Trigger.ComponentID),
				path+".trigger.componentId"))
		}

		diags = append(diags, checkGraph(&ev.Graph, path+".graph")...)
		diags = append(diags, checkPromptVariables(app, am, &ev.Graph, path+".graph")...)
	}

	return diags
}

func checkGraph(g *appdef.ActionGraph, base string) []Diagnostic {
	var diags []Diagnostic

	ids := make([]string, 0, len(g.Nodes))
	known := map[string]bool{}
	for j, n := range g.Nodes {
		if known[n.ID] {
			diags = append(diags, errorDiag(CodeGraphDuplicateNodeID,
				fmt.Sprintf("duplicate node id %q", n.ID), fmt.Sprintf("%s.nodes.%d.id", base, j)))
		}
		known[n.ID] = true
		ids = append(ids, n.ID)
	}

	edges := make([]graph.Edge, 0, len(g.Edges))
	for k, e := range g.Edges {
		if !known[e.From] || !known[e.To] {
			diags = append(diags, errorDiag(CodeGraphUnknownEdgeNode,
				fmt.Sprintf("edge %s -> %s references an unknown node", e.From, e.To),
				fmt.Sprintf("%s.edges.%d", base, k)))
		}
		edges = append(edges, graph.Edge{From: e.From, To: e.To})
	}

	if graph.Order(ids, edges).Cyclic {
		diags = append(diags, errorDiag(CodeGraphCycleDetected, "action graph contains a cycle", base))
	}

	return diags
}

// checkPromptVariables resolves every template token and declared variable
// of each PromptTask. A token is known when the alias map resolves it or it
// already names a state-model key.
func checkPromptVariables(app *appdef.AppDefinition, am *alias.Map, g *appdef.ActionGraph, base string) []Diagnostic {
	var diags []Diagnostic

	known := func(token string) bool {
		if _, ok := am.Resolve(token); ok {
			return true
		}
		_, declared := app.StateModel[strings.TrimSpace(token)]
		return declared
	}

	for j, n := range g.Nodes {
		if n.Type != appdef.NodePromptTask || n.Prompt == nil {
			continue
		}
		nodePath := fmt.Sprintf("%s.nodes.%d", base, j)
		for _, tok := range llmtool.Tokens(n.Prompt.Template) {
			if !known(tok) {
				diags = append(diags, errorDiag(CodeUnknownPromptVariable,
					fmt.Sprintf("unknown prompt variable %q", tok), nodePath+".template"))
			}
		}
		for k, v := range n.Prompt.Variables {
			if !known(v) {
				diags = append(diags, errorDiag(CodeUnknownPromptVariable,
					fmt.Sprintf("unknown prompt variable %q", v), fmt.Sprintf("%s.variables.%d", nodePath, k)))
			}
		}
	}

	return diags
}
