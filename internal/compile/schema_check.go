package compile

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// appSchema is the wire-shape contract for an application definition.
// It checks structure and primitive constraints; cross-references
// (state keys, trigger targets, graph edges) belong to Validate.
var appSchema = buildAppSchema()

func buildAppSchema() *openapi3.Schema {
	fieldType := openapi3.NewStringSchema().WithEnum("string", "number", "boolean", "array")

	objectField := openapi3.NewObjectSchema().
		WithProperty("name", openapi3.NewStringSchema().WithMinLength(1)).
		WithProperty("type", openapi3.NewStringSchema().WithEnum("string", "number", "boolean")).
		WithProperty("enum", openapi3.NewArraySchema()).
		WithProperty("minLength", openapi3.NewIntegerSchema().WithMin(0)).
		WithProperty("maxLength", openapi3.NewIntegerSchema().WithMin(0))
	objectField.Required = []string{"name", "type"}

	objectShape := openapi3.NewObjectSchema().
		WithProperty("fields", openapi3.NewArraySchema().WithItems(objectField))
	objectShape.Required = []string{"fields"}

	stateField := openapi3.NewObjectSchema().
		WithProperty("type", fieldType).
		WithProperty("enum", openapi3.NewArraySchema()).
		WithProperty("minLength", openapi3.NewIntegerSchema().WithMin(0)).
		WithProperty("maxLength", openapi3.NewIntegerSchema().WithMin(0)).
		WithProperty("items", objectShape)
	stateField.Required = []string{"type"}

	component := openapi3.NewObjectSchema().
		WithProperty("id", openapi3.NewStringSchema().WithMinLength(1)).
		WithProperty("type", openapi3.NewStringSchema().WithEnum("textArea", "button", "dataTable")).
		WithProperty("label", openapi3.NewStringSchema()).
		WithProperty("stateKey", openapi3.NewStringSchema()).
		WithProperty("placeholder", openapi3.NewStringSchema()).
		WithProperty("onClick", openapi3.NewStringSchema()).
		WithProperty("dataKey", openapi3.NewStringSchema())
	component.Required = []string{"id", "type"}

	modelPolicy := openapi3.NewObjectSchema().
		WithProperty("provider", openapi3.NewStringSchema().WithMinLength(1)).
		WithProperty("model", openapi3.NewStringSchema().WithMinLength(1)).
		WithProperty("temperature", openapi3.NewFloat64Schema().WithMin(0).WithMax(2))
	modelPolicy.Required = []string{"provider", "model"}

	outputSchema := openapi3.NewObjectSchema().
		WithProperty("name", openapi3.NewStringSchema()).
		WithProperty("fields", openapi3.NewArraySchema().WithItems(objectField))
	outputSchema.Required = []string{"fields"}

	node := openapi3.NewObjectSchema().
		WithProperty("id", openapi3.NewStringSchema().WithMinLength(1)).
		WithProperty("type", openapi3.NewStringSchema().WithEnum("validate", "promptTask", "transform")).
		WithProperty("stateKeys", openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema())).
		WithProperty("template", openapi3.NewStringSchema()).
		WithProperty("variables", openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema())).
		WithProperty("model", modelPolicy).
		WithProperty("output", outputSchema).
		WithProperty("assign", openapi3.NewObjectSchema().WithAdditionalProperties(openapi3.NewStringSchema()))
	node.Required = []string{"id", "type"}

	edge := openapi3.NewObjectSchema().
		WithProperty("from", openapi3.NewStringSchema().WithMinLength(1)).
		WithProperty("to", openapi3.NewStringSchema().WithMinLength(1))
	edge.Required = []string{"from", "to"}

	actionGraph := openapi3.NewObjectSchema().
		WithProperty("nodes", openapi3.NewArraySchema().WithItems(node)).
		WithProperty("edges", openapi3.NewArraySchema().WithItems(edge))
	actionGraph.Required = []string{"nodes"}

	trigger := openapi3.NewObjectSchema().
		WithProperty("componentId", openapi3.NewStringSchema().WithMinLength(1)).
		WithProperty("on", openapi3.NewStringSchema().WithMinLength(1))
	trigger.Required = []string{"componentId", "on"}

	event := openapi3.NewObjectSchema().
		WithProperty("id", openapi3.NewStringSchema().WithMinLength(1)).
		WithProperty("trigger", trigger).
		WithProperty("graph", actionGraph)
	event.Required = []string{"id", "trigger", "graph"}

	app := openapi3.NewObjectSchema().
		WithProperty("appId", openapi3.NewStringSchema().WithMinLength(1)).
		WithProperty("version", openapi3.NewStringSchema()).
		WithProperty("components", openapi3.NewArraySchema().WithItems(component)).
		WithProperty("stateModel", openapi3.NewObjectSchema().WithAdditionalProperties(stateField)).
		WithProperty("events", openapi3.NewArraySchema().WithItems(event))
	app.Required = []string{"appId", "version", "components", "stateModel", "events"}

	return app
}

// SchemaCheck validates the raw document against the wire schema and
// the per-variant field requirements the flat component and node
// encodings cannot express in one schema. Every issue becomes one
// SCHEMA_VALIDATION_ERROR diagnostic; nothing halts early.
func SchemaCheck(raw []byte) []Diagnostic {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return []Diagnostic{errorDiag(CodeSchemaValidation, "invalid JSON: "+err.Error(), "")}
	}

	var diags []Diagnostic
	if err := appSchema.VisitJSON(doc, openapi3.MultiErrors()); err != nil {
		diags = append(diags, schemaErrorDiags(err)...)
	}
	if m, ok := doc.(map[string]any); ok {
		diags = append(diags, variantChecks(m)...)
	}
	return diags
}

// schemaErrorDiags flattens a (possibly nested) MultiError into one
// diagnostic per schema issue, each located by its dotted JSON pointer.
// Plain type switches here: MultiError's As delegates into its elements,
// which would collapse the list to its first entry.
func schemaErrorDiags(err error) []Diagnostic {
	switch e := err.(type) {
	case openapi3.MultiError:
		var out []Diagnostic
		for _, inner := range e {
			out = append(out, schemaErrorDiags(inner)...)
		}
		return out
	case *openapi3.SchemaError:
		msg := e.Reason
		if msg == "" {
			msg = e.Error()
		}
		return []Diagnostic{errorDiag(CodeSchemaValidation, msg, strings.Join(e.JSONPointer(), "."))}
	default:
		return []Diagnostic{errorDiag(CodeSchemaValidation, err.Error(), "")}
	}
}

// variantChecks enforces the fields each component and node kind needs.
// The walk tolerates malformed shapes; those already produced schema
// diagnostics above.
func variantChecks(doc map[string]any) []Diagnostic {
	var diags []Diagnostic
	req := func(m map[string]any, field, path, what string) {
		s, ok := m[field].(string)
		if !ok || strings.TrimSpace(s) == "" {
			diags = append(diags, errorDiag(CodeSchemaValidation,
				fmt.Sprintf("%s requires %s", what, field), path+"."+field))
		}
	}

	components, _ := doc["components"].([]any)
	for i, c := range components {
		m, ok := c.(map[string]any)
		if !ok {
			continue
		}
		path := fmt.Sprintf("components.%d", i)
		switch m["type"] {
		case "textArea":
			req(m, "stateKey", path, "a textArea component")
		case "button":
			req(m, "onClick", path, "a button component")
		case "dataTable":
			req(m, "dataKey", path, "a dataTable component")
		}
	}

	stateModel, _ := doc["stateModel"].(map[string]any)
	for key, v := range stateModel {
		m, ok := v.(map[string]any)
		if !ok {
			continue
		}
		if m["type"] == "array" {
			if _, ok := m["items"].(map[string]any); !ok {
				diags = append(diags, errorDiag(CodeSchemaValidation,
					"an array state field requires items", "stateModel."+key+".items"))
			}
		}
	}

	events, _ := doc["events"].([]any)
	for i, e := range events {
		em, ok := e.(map[string]any)
		if !ok {
			continue
		}
		gm, ok := em["graph"].(map[string]any)
		if !ok {
			continue
		}
		nodes, _ := gm["nodes"].([]any)
		for j, n := range nodes {
			nm, ok := n.(map[string]any)
			if !ok {
				continue
			}
			path := fmt.Sprintf("events.%d.graph.nodes.%d", i, j)
			switch nm["type"] {
			case "validate":
				if keys, ok := nm["stateKeys"].([]any); !ok || len(keys) == 0 {
					diags = append(diags, errorDiag(CodeSchemaValidation,
						"a validate node requires a non-empty stateKeys list", path+".stateKeys"))
				}
			case "promptTask":
				req(nm, "template", path, "a promptTask node")
				if _, ok := nm["model"].(map[string]any); !ok {
					diags = append(diags, errorDiag(CodeSchemaValidation,
						"a promptTask node requires a model policy", path+".model"))
				}
				if _, ok := nm["output"].(map[string]any); !ok {
					diags = append(diags, errorDiag(CodeSchemaValidation,
						"a promptTask node requires an output shape", path+".output"))
				}
			case "transform":
				if assign, ok := nm["assign"].(map[string]any); !ok || len(assign) == 0 {
					diags = append(diags, errorDiag(CodeSchemaValidation,
						"a transform node requires a non-empty assign map", path+".assign"))
				}
			}
		}
	}

	return diags
}
