package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"appforge/internal/compile"
	"appforge/internal/gateway/repository/appstore"
	"appforge/internal/gateway/run"
	"appforge/internal/llmtool"
	"appforge/internal/runner"
)

// Error codes for failures that originate in the gateway itself rather
// than in compilation or execution.
const (
	codeAppNotFound      = "APP_NOT_FOUND"
	codeRunNotFound      = "RUN_NOT_FOUND"
	codeArtifactNotFound = "ARTIFACT_NOT_FOUND"
	codeCompileRejected  = "COMPILE_REJECTED"
	codeBadRequest       = "BAD_REQUEST"
	codeInternal         = "INTERNAL"
)

type errorBody struct {
	Error       string               `json:"error"`
	Code        string               `json:"code,omitempty"`
	Diagnostics []compile.Diagnostic `json:"diagnostics,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: message, Code: code})
}

// writeRunError maps load, compile, and execution failures onto HTTP
// statuses. Compile rejections carry their diagnostics so the builder
// can surface them inline.
func writeRunError(w http.ResponseWriter, err error) {
	var rejected *run.CompileRejectedError
	switch {
	case errors.Is(err, appstore.ErrNotFound):
		writeError(w, http.StatusNotFound, codeAppNotFound, err.Error())
	case errors.As(err, &rejected):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Error:       rejected.Error(),
			Code:        codeCompileRejected,
			Diagnostics: rejected.Diagnostics,
		})
	default:
		code := runner.Code(err)
		if code == "" {
			code = codeInternal
		}
		writeError(w, statusForRunCode(code), code, err.Error())
	}
}

// statusForRunCode grades execution failures: unknown event is a lookup
// miss, validation-class codes are the client's definition or state to
// fix, provider-side codes are an upstream failure, anything else is
// internal.
func statusForRunCode(code string) int {
	switch code {
	case runner.ErrCodeUnknownEvent:
		return http.StatusNotFound
	case runner.ErrCodeValidationFailed,
		llmtool.ErrCodeMissingTemplateVariable,
		llmtool.ErrCodeUnknownProvider:
		return http.StatusUnprocessableEntity
	case llmtool.ErrCodeProviderFailure,
		llmtool.ErrCodeBadModelJSON,
		llmtool.ErrCodeOutputMismatch:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
