// Package appdef defines the declarative shape of a builder application:
// UI components, the state model, and per-event action graphs. Everything
// else in the compiler and interpreter consumes these types; they carry no
// behavior beyond JSON mapping and deep copy.
package appdef

import "strings"

// FieldType is the primitive (or array) type of a state-model field.
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldNumber  FieldType = "number"
	FieldBoolean FieldType = "boolean"
	FieldArray   FieldType = "array"
)

// AppDefinition is one complete application description as authored by the
// builder UI. Component ids and event ids are unique; state-model keys are
// unique by construction (map).
type AppDefinition struct {
	AppID      string                `json:"appId"`
	Version    string                `json:"version"`
	Components []Component           `json:"components"`
	StateModel map[string]StateField `json:"stateModel"`
	Events     []EventDefinition     `json:"events"`
}

// StateField describes one declared state-model entry: a primitive with
// optional enum/length constraints, or an array of a fixed object shape.
type StateField struct {
	Type      FieldType    `json:"type"`
	Enum      []any        `json:"enum,omitempty"`
	MinLength *int         `json:"minLength,omitempty"`
	MaxLength *int         `json:"maxLength,omitempty"`
	Items     *ObjectShape `json:"items,omitempty"`
}

// FieldSpec is the primitive descriptor used inside object shapes.
type FieldSpec struct {
	Type      FieldType `json:"type"`
	Enum      []any     `json:"enum,omitempty"`
	MinLength *int      `json:"minLength,omitempty"`
	MaxLength *int      `json:"maxLength,omitempty"`
}

// ObjectField pairs a field name with its primitive descriptor. The wire
// form is flat: {"name": "sentiment", "type": "string", ...}.
type ObjectField struct {
	Name string `json:"name"`
	FieldSpec
}

// ObjectShape is an ordered object layout. Field order is meaningful: it
// defines DataTable column order and output-schema property order.
type ObjectShape struct {
	Fields []ObjectField `json:"fields"`
}

// OutputSchema is a named object shape a PromptTask response must satisfy.
type OutputSchema struct {
	Name string `json:"name,omitempty"`
	ObjectShape
}

// EventDefinition binds a UI trigger to one action graph.
type EventDefinition struct {
	ID      string      `json:"id"`
	Trigger Trigger     `json:"trigger"`
	Graph   ActionGraph `json:"graph"`
}

// Trigger names the component and UI event (e.g. onClick) that fires an event.
type Trigger struct {
	ComponentID string `json:"componentId"`
	On          string `json:"on"`
}

// ActionGraph is a set of nodes plus directed edges between their ids.
// Node declaration order is not meaningful; edges define execution order.
type ActionGraph struct {
	Nodes []ActionNode `json:"nodes"`
	Edges []Edge       `json:"edges,omitempty"`
}

// Edge is one directed dependency: From runs before To.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// FindEvent returns the event with the given id, if any.
func (a *AppDefinition) FindEvent(id string) (*EventDefinition, bool) {
	if a == nil {
		return nil, false
	}
	id = strings.TrimSpace(id)
	for i := range a.Events {
		if a.Events[i].ID == id {
			return &a.Events[i], true
		}
	}
	return nil, false
}

// FindComponent returns the component with the given id, if any.
func (a *AppDefinition) FindComponent(id string) (*Component, bool) {
	if a == nil {
		return nil, false
	}
	id = strings.TrimSpace(id)
	for i := range a.Components {
		if a.Components[i].ID == id {
			return &a.Components[i], true
		}
	}
	return nil, false
}
