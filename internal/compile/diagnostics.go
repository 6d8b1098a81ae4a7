// Package compile validates, normalizes and packages application
// definitions. Its diagnostics list is the stable contract with every
// caller: codes never change meaning, checks never halt each other, and
// success means the absence of error-severity entries.
package compile

// Severity grades a diagnostic. Warnings never block compilation.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic codes. These strings are load-bearing for UIs and tests;
// add new ones rather than renaming.
const (
	CodeSchemaValidation        = "SCHEMA_VALIDATION_ERROR"
	CodeDuplicateComponentID    = "DUPLICATE_COMPONENT_ID"
	CodeMissingStateKey         = "MISSING_STATE_KEY"
	CodeDuplicateUIStateKey     = "DUPLICATE_UI_STATE_KEY"
	CodeDuplicateTriggerEventID = "DUPLICATE_TRIGGER_EVENT_ID"
	CodeDuplicateEventID        = "DUPLICATE_EVENT_ID"
	CodeUnknownTriggerComponent = "UNKNOWN_TRIGGER_COMPONENT"
	CodeGraphDuplicateNodeID    = "GRAPH_DUPLICATE_NODE_ID"
	CodeGraphUnknownEdgeNode    = "GRAPH_UNKNOWN_EDGE_NODE"
	CodeGraphCycleDetected      = "GRAPH_CYCLE_DETECTED"
	CodeUnknownPromptVariable   = "UNKNOWN_PROMPT_VARIABLE"
)

// Diagnostic locates one problem in an application definition. Path is
// a dotted JSON path into the submitted document, empty for
// document-level problems.
type Diagnostic struct {
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Path     string   `json:"path,omitempty"`
}

func errorDiag(code, message, path string) Diagnostic {
	return Diagnostic{Code: code, Severity: SeverityError, Message: message, Path: path}
}

// HasErrors reports whether any diagnostic is error severity.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}
