// Package alias maps the three naming schemes a builder app mixes freely
// (human labels, raw state keys, loosely formatted template tokens) onto
// canonical state-model keys. Maps are cheap to build and are recomputed
// from the live component list on every compile or execution pass.
package alias

import (
	"strings"
	"unicode"

	"appforge/internal/appdef"
)

// Map resolves a raw token to its canonical state-model key. Exact matches
// (the original stateKey or label text) win over normalized matches. An
// alias claimed by two different canonical keys is ambiguous and resolves
// to neither, which keeps the map independent of component order.
type Map struct {
	exact map[string]string
	norm  map[string]string
}

// Build derives the lookup from the component list. Only TextArea
// components contribute: they are the only components whose labels name
// state-bearing free-form input.
func Build(components []appdef.Component) *Map {
	m := &Map{
		exact: make(map[string]string),
		norm:  make(map[string]string),
	}
	exactDead := make(map[string]struct{})
	normDead := make(map[string]struct{})

	add := func(table map[string]string, dead map[string]struct{}, key, canonical string) {
		if key == "" {
			return
		}
		if _, gone := dead[key]; gone {
			return
		}
		if prev, ok := table[key]; ok {
			if prev != canonical {
				delete(table, key)
				dead[key] = struct{}{}
			}
			return
		}
		table[key] = canonical
	}

	for i := range components {
		c := &components[i]
		if c.Type != appdef.ComponentTextArea || c.TextArea == nil {
			continue
		}
		canonical := strings.TrimSpace(c.TextArea.StateKey)
		if canonical == "" {
			continue
		}
		label := c.TextArea.Label

		add(m.exact, exactDead, canonical, canonical)
		add(m.exact, exactDead, label, canonical)
		add(m.norm, normDead, Normalize(canonical), canonical)
		add(m.norm, normDead, Normalize(label), canonical)
	}
	return m
}

// Resolve returns the canonical key for token and whether any alias matched.
// Precedence: exact raw match, then normalized match.
func (m *Map) Resolve(token string) (string, bool) {
	if m == nil {
		return token, false
	}
	if c, ok := m.exact[token]; ok {
		return c, true
	}
	if c, ok := m.norm[Normalize(token)]; ok {
		return c, true
	}
	return token, false
}

// Canon is Resolve without the hit flag: unknown tokens come back unchanged.
func (m *Map) Canon(token string) string {
	c, _ := m.Resolve(token)
	return c
}

// Normalize reduces a label or key to its comparison form: trim, lowercase,
// collapse every run of non-alphanumeric characters to one space, trim
// again, then delete the remaining whitespace. The collapse and the final
// strip compose to simply dropping separators, so one pass suffices:
// "Customer Complaint" and "customer_complaint " both become
// "customercomplaint".
func Normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
