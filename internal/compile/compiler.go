package compile

import (
	"encoding/json"

	"appforge/internal/appdef"
)

// Result is what one compile pass hands back. App and Image are set only
// when no error-severity diagnostic was produced; Diagnostics is always
// present, possibly empty.
type Result struct {
	App         *appdef.AppDefinition `json:"app,omitempty"`
	Diagnostics []Diagnostic          `json:"diagnostics"`
	Image       string                `json:"image,omitempty"`
}

// OK reports whether the pass produced a usable application.
func (r *Result) OK() bool {
	return r != nil && r.App != nil && !HasErrors(r.Diagnostics)
}

// ImageName derives the deterministic container image name for an app.
func ImageName(appID string) string {
	return "app-" + appID
}

// Compile takes a raw JSON document through the full pipeline: wire-schema
// check, decode, cross-reference validation, canonical-key normalization.
// Diagnostics accumulate across stages; the first stage that leaves errors
// behind ends the pass without an App.
func Compile(raw []byte) *Result {
	diags := SchemaCheck(raw)
	if HasErrors(diags) {
		return &Result{Diagnostics: diags}
	}

	var app appdef.AppDefinition
	if err := json.Unmarshal(raw, &app); err != nil {
		diags = append(diags, errorDiag(CodeSchemaValidation, err.Error(), ""))
		return &Result{Diagnostics: diags}
	}

	diags = append(diags, Validate(&app)...)
	if HasErrors(diags) {
		return &Result{Diagnostics: diags}
	}

	return &Result{
		App:         Normalize(&app),
		Diagnostics: diags,
		Image:       ImageName(app.AppID),
	}
}
