package appdef

import (
	"encoding/json"
	"fmt"
)

// ComponentType tags the closed set of UI component variants.
type ComponentType string

const (
	ComponentTextArea  ComponentType = "textArea"
	ComponentButton    ComponentType = "button"
	ComponentDataTable ComponentType = "dataTable"
)

// Component is one UI component. Exactly one variant pointer matching Type
// is non-nil. The wire form is flat; see componentWire.
type Component struct {
	ID        string
	Type      ComponentType
	TextArea  *TextAreaComponent
	Button    *ButtonComponent
	DataTable *DataTableComponent
}

// TextAreaComponent is a free-form string input bound to a state-model key.
type TextAreaComponent struct {
	Label       string
	StateKey    string
	Placeholder string
}

// ButtonComponent triggers an event by id when clicked.
type ButtonComponent struct {
	Label   string
	OnClick string
}

// DataTableComponent renders an array-typed state-model key as rows.
type DataTableComponent struct {
	Label   string
	DataKey string
}

// componentWire is the flat JSON encoding shared by all variants.
type componentWire struct {
	ID          string        `json:"id"`
	Type        ComponentType `json:"type"`
	Label       string        `json:"label,omitempty"`
	StateKey    string        `json:"stateKey,omitempty"`
	Placeholder string        `json:"placeholder,omitempty"`
	OnClick     string        `json:"onClick,omitempty"`
	DataKey     string        `json:"dataKey,omitempty"`
}

func (c *Component) UnmarshalJSON(data []byte) error {
	var w componentWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	c.ID = w.ID
	c.Type = w.Type
	c.TextArea = nil
	c.Button = nil
	c.DataTable = nil
	switch w.Type {
	case ComponentTextArea:
		c.TextArea = &TextAreaComponent{Label: w.Label, StateKey: w.StateKey, Placeholder: w.Placeholder}
	case ComponentButton:
		c.Button = &ButtonComponent{Label: w.Label, OnClick: w.OnClick}
	case ComponentDataTable:
		c.DataTable = &DataTableComponent{Label: w.Label, DataKey: w.DataKey}
	default:
		return fmt.Errorf("appdef: unknown component type %q", w.Type)
	}
	return nil
}

func (c Component) MarshalJSON() ([]byte, error) {
	w := componentWire{ID: c.ID, Type: c.Type}
	switch c.Type {
	case ComponentTextArea:
		if c.TextArea != nil {
			w.Label = c.TextArea.Label
			w.StateKey = c.TextArea.StateKey
			w.Placeholder = c.TextArea.Placeholder
		}
	case ComponentButton:
		if c.Button != nil {
			w.Label = c.Button.Label
			w.OnClick = c.Button.OnClick
		}
	case ComponentDataTable:
		if c.DataTable != nil {
			w.Label = c.DataTable.Label
			w.DataKey = c.DataTable.DataKey
		}
	default:
		return nil, fmt.Errorf("appdef: unknown component type %q", c.Type)
	}
	return json.Marshal(w)
}

// Label returns the variant's human label.
func (c *Component) Label() string {
	if c == nil {
		return ""
	}
	switch c.Type {
	case ComponentTextArea:
		if c.TextArea != nil {
			return c.TextArea.Label
		}
	case ComponentButton:
		if c.Button != nil {
			return c.Button.Label
		}
	case ComponentDataTable:
		if c.DataTable != nil {
			return c.DataTable.Label
		}
	}
	return ""
}

// StateBearingKey returns the state-model key this component claims
// (stateKey for a TextArea, dataKey for a DataTable) and whether it has one.
func (c *Component) StateBearingKey() (string, bool) {
	if c == nil {
		return "", false
	}
	switch c.Type {
	case ComponentTextArea:
		if c.TextArea != nil {
			return c.TextArea.StateKey, true
		}
	case ComponentButton:
		return "", false
	case ComponentDataTable:
		if c.DataTable != nil {
			return c.DataTable.DataKey, true
		}
	}
	return "", false
}
