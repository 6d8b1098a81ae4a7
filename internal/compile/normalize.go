package compile

import (
	"strings"

	"appforge/internal/alias"
	"appforge/internal/appdef"
	"appforge/internal/llmtool"
)

// Normalize rewrites every PromptTask template token and declared variable
// to its canonical state-model key, so downstream consumers never touch
// aliases again. The input stays untouched; tokens the alias map cannot
// resolve pass through unchanged, which makes the rewrite idempotent.
func Normalize(app *appdef.AppDefinition) *appdef.AppDefinition {
	out := app.Clone()
	if out == nil {
		return nil
	}
	am := alias.Build(out.Components)

	for i := range out.Events {
		nodes := out.Events[i].Graph.Nodes
		for j := range nodes {
			n := &nodes[j]
			if n.Type != appdef.NodePromptTask || n.Prompt == nil {
				continue
			}
			n.Prompt.Template = llmtool.RewriteTokens(n.Prompt.Template, am.Canon)
			n.Prompt.Variables = canonicalVariables(am, n.Prompt.Variables)
		}
	}
	return out
}

// canonicalVariables maps each declared variable to its canonical key and
// drops duplicates that collapse together, keeping first-appearance order.
func canonicalVariables(am *alias.Map, vars []string) []string {
	if vars == nil {
		return nil
	}
	out := make([]string, 0, len(vars))
	seen := map[string]bool{}
	for _, v := range vars {
		key := am.Canon(strings.TrimSpace(v))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	return out
}
