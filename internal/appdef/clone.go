package appdef

// Clone returns a deep copy. Normalization rewrites templates on a clone so
// the caller's definition stays untouched.
func (a *AppDefinition) Clone() *AppDefinition {
	if a == nil {
		return nil
	}
	out := &AppDefinition{
		AppID:   a.AppID,
		Version: a.Version,
	}
	if a.Components != nil {
		out.Components = make([]Component, len(a.Components))
		for i := range a.Components {
			out.Components[i] = a.Components[i].clone()
		}
	}
	if a.StateModel != nil {
		out.StateModel = make(map[string]StateField, len(a.StateModel))
		for k, v := range a.StateModel {
			out.StateModel[k] = v.clone()
		}
	}
	if a.Events != nil {
		out.Events = make([]EventDefinition, len(a.Events))
		for i := range a.Events {
			out.Events[i] = a.Events[i].clone()
		}
	}
	return out
}

func (c Component) clone() Component {
	out := Component{ID: c.ID, Type: c.Type}
	if c.TextArea != nil {
		v := *c.TextArea
		out.TextArea = &v
	}
	if c.Button != nil {
		v := *c.Button
		out.Button = &v
	}
	if c.DataTable != nil {
		v := *c.DataTable
		out.DataTable = &v
	}
	return out
}

func (f StateField) clone() StateField {
	out := StateField{Type: f.Type}
	out.Enum = cloneAnys(f.Enum)
	out.MinLength = cloneIntPtr(f.MinLength)
	out.MaxLength = cloneIntPtr(f.MaxLength)
	if f.Items != nil {
		items := f.Items.clone()
		out.Items = &items
	}
	return out
}

func (s ObjectShape) clone() ObjectShape {
	out := ObjectShape{}
	if s.Fields != nil {
		out.Fields = make([]ObjectField, len(s.Fields))
		for i, f := range s.Fields {
			out.Fields[i] = ObjectField{Name: f.Name, FieldSpec: f.FieldSpec.clone()}
		}
	}
	return out
}

func (f FieldSpec) clone() FieldSpec {
	return FieldSpec{
		Type:      f.Type,
		Enum:      cloneAnys(f.Enum),
		MinLength: cloneIntPtr(f.MinLength),
		MaxLength: cloneIntPtr(f.MaxLength),
	}
}

func (e EventDefinition) clone() EventDefinition {
	out := EventDefinition{ID: e.ID, Trigger: e.Trigger}
	if e.Graph.Nodes != nil {
		out.Graph.Nodes = make([]ActionNode, len(e.Graph.Nodes))
		for i := range e.Graph.Nodes {
			out.Graph.Nodes[i] = e.Graph.Nodes[i].clone()
		}
	}
	if e.Graph.Edges != nil {
		out.Graph.Edges = append([]Edge(nil), e.Graph.Edges...)
	}
	return out
}

func (n ActionNode) clone() ActionNode {
	out := ActionNode{ID: n.ID, Type: n.Type}
	if n.Validate != nil {
		out.Validate = &ValidateNode{StateKeys: append([]string(nil), n.Validate.StateKeys...)}
	}
	if n.Prompt != nil {
		p := &PromptTaskNode{
			Template:  n.Prompt.Template,
			Variables: append([]string(nil), n.Prompt.Variables...),
			Model:     n.Prompt.Model,
		}
		if n.Prompt.Model.Temperature != nil {
			t := *n.Prompt.Model.Temperature
			p.Model.Temperature = &t
		}
		p.Output = OutputSchema{Name: n.Prompt.Output.Name, ObjectShape: n.Prompt.Output.ObjectShape.clone()}
		out.Prompt = p
	}
	if n.Transform != nil {
		assign := make(map[string]string, len(n.Transform.Assign))
		for k, v := range n.Transform.Assign {
			assign[k] = v
		}
		out.Transform = &TransformNode{Assign: assign}
	}
	return out
}

func cloneAnys(in []any) []any {
	if in == nil {
		return nil
	}
	return append([]any(nil), in...)
}

func cloneIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
