// Package jsonutil holds the JSON encoding helpers shared by codegen,
// the prompt orchestrator and the stores.
package jsonutil

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MarshalNoEscape encodes v into JSON without escaping <, >, & to
// \u003c and friends. Generated app bundles embed the output inside
// script tags, where the escaped form is just noise.
func MarshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	// json.Encoder.Encode appends a newline.
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// MarshalNoEscapeIndent is MarshalNoEscape with indentation.
func MarshalNoEscapeIndent(v any, prefix, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent(prefix, indent)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Stringify renders a state value for prompt interpolation: strings pass
// through untouched, everything else becomes its JSON text. Numbers and
// booleans therefore read naturally ("2", "true") while objects and
// arrays stay machine-parseable.
func Stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := MarshalNoEscape(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
