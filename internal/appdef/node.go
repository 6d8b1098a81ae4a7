package appdef

import (
	"encoding/json"
	"fmt"
)

// NodeType tags the closed set of action-node variants.
type NodeType string

const (
	NodeValidate   NodeType = "validate"
	NodePromptTask NodeType = "promptTask"
	NodeTransform  NodeType = "transform"
)

// ActionNode is one node of an action graph. Exactly one variant pointer
// matching Type is non-nil. The wire form is flat; see nodeWire.
type ActionNode struct {
	ID        string
	Type      NodeType
	Validate  *ValidateNode
	Prompt    *PromptTaskNode
	Transform *TransformNode
}

// ValidateNode requires the listed state keys to be present and non-empty
// at execution time.
type ValidateNode struct {
	StateKeys []string
}

// PromptTaskNode runs one prompt against a provider and parses its JSON
// response. Template tokens use {{variable}} form; Variables declares the
// state keys the template draws from.
type PromptTaskNode struct {
	Template  string
	Variables []string
	Model     ModelPolicy
	Output    OutputSchema
}

// ModelPolicy selects the provider and model for a PromptTask.
// Temperature, when set, is in [0,2].
type ModelPolicy struct {
	Provider    string   `json:"provider"`
	Model       string   `json:"model"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// TransformNode projects prior node outputs into named state. Each value is
// either the single recognized reference form "[$<nodeId>.output]" or a
// literal passed through verbatim.
type TransformNode struct {
	Assign map[string]string
}

// nodeWire is the flat JSON encoding shared by all node variants.
type nodeWire struct {
	ID        string            `json:"id"`
	Type      NodeType          `json:"type"`
	StateKeys []string          `json:"stateKeys,omitempty"`
	Template  string            `json:"template,omitempty"`
	Variables []string          `json:"variables,omitempty"`
	Model     *ModelPolicy      `json:"model,omitempty"`
	Output    *OutputSchema     `json:"output,omitempty"`
	Assign    map[string]string `json:"assign,omitempty"`
}

func (n *ActionNode) UnmarshalJSON(data []byte) error {
	var w nodeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	n.ID = w.ID
	n.Type = w.Type
	n.Validate = nil
	n.Prompt = nil
	n.Transform = nil
	switch w.Type {
	case NodeValidate:
		n.Validate = &ValidateNode{StateKeys: w.StateKeys}
	case NodePromptTask:
		p := &PromptTaskNode{Template: w.Template, Variables: w.Variables}
		if w.Model != nil {
			p.Model = *w.Model
		}
		if w.Output != nil {
			p.Output = *w.Output
		}
		n.Prompt = p
	case NodeTransform:
		n.Transform = &TransformNode{Assign: w.Assign}
	default:
		return fmt.Errorf("appdef: unknown node type %q", w.Type)
	}
	return nil
}

func (n ActionNode) MarshalJSON() ([]byte, error) {
	w := nodeWire{ID: n.ID, Type: n.Type}
	switch n.Type {
	case NodeValidate:
		if n.Validate != nil {
			w.StateKeys = n.Validate.StateKeys
		}
	case NodePromptTask:
		if n.Prompt != nil {
			w.Template = n.Prompt.Template
			w.Variables = n.Prompt.Variables
			model := n.Prompt.Model
			w.Model = &model
			output := n.Prompt.Output
			w.Output = &output
		}
	case NodeTransform:
		if n.Transform != nil {
			w.Assign = n.Transform.Assign
		}
	default:
		return nil, fmt.Errorf("appdef: unknown node type %q", n.Type)
	}
	return json.Marshal(w)
}
