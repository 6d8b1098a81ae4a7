package llmtool

import (
	"github.com/getkin/kin-openapi/openapi3"

	"appforge/internal/appdef"
)

// SchemaFor builds the response-validation schema for a prompt task's
// declared output shape. Every declared field is required; keys beyond
// the declaration are tolerated.
func SchemaFor(out appdef.OutputSchema) *openapi3.Schema {
	obj := openapi3.NewObjectSchema()
	for _, f := range out.Fields {
		var s *openapi3.Schema
		switch f.Type {
		case appdef.FieldNumber:
			s = openapi3.NewFloat64Schema()
		case appdef.FieldBoolean:
			s = openapi3.NewBoolSchema()
		default:
			s = openapi3.NewStringSchema()
		}
		if f.MinLength != nil {
			s = s.WithMinLength(int64(*f.MinLength))
		}
		if f.MaxLength != nil {
			s = s.WithMaxLength(int64(*f.MaxLength))
		}
		if len(f.Enum) > 0 {
			s = s.WithEnum(f.Enum...)
		}
		obj = obj.WithProperty(f.Name, s)
		obj.Required = append(obj.Required, f.Name)
	}
	return obj
}
