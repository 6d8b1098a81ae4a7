package llmtool

import (
	"regexp"
	"strings"

	"appforge/internal/util/jsonutil"
)

var templateTokenRE = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

// Tokens lists the distinct {{token}} names in a template, trimmed, in
// order of first appearance.
func Tokens(template string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, m := range templateTokenRE.FindAllStringSubmatch(template, -1) {
		tok := strings.TrimSpace(m[1])
		if tok == "" {
			continue
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

// RewriteTokens maps each {{token}} name through fn, keeping the braces
// and dropping decorative whitespace inside them.
func RewriteTokens(template string, fn func(string) string) string {
	return templateTokenRE.ReplaceAllStringFunc(template, func(m string) string {
		sub := templateTokenRE.FindStringSubmatch(m)
		tok := strings.TrimSpace(sub[1])
		if tok == "" {
			return m
		}
		return "{{" + fn(tok) + "}}"
	})
}

// Interpolate replaces every {{token}} with its variable value: strings
// verbatim, everything else as JSON text. A token without an entry in
// vars is fatal.
func Interpolate(template string, vars map[string]any) (string, error) {
	var missing []string
	out := templateTokenRE.ReplaceAllStringFunc(template, func(m string) string {
		sub := templateTokenRE.FindStringSubmatch(m)
		tok := strings.TrimSpace(sub[1])
		if tok == "" {
			return m
		}
		v, ok := vars[tok]
		if !ok {
			missing = append(missing, tok)
			return m
		}
		return jsonutil.Stringify(v)
	})
	if len(missing) > 0 {
		return "", fault(ErrMissingTemplateVariable,
			"missing template variable: "+missing[0], nil,
			map[string]any{"variable": missing[0], "missing": missing})
	}
	return out, nil
}
