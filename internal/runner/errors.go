package runner

import (
	stderrors "errors"

	apperrors "github.com/goliatone/go-errors"
)

// Stable classification codes for execution failures. Every error this
// package returns carries exactly one; provider-side failures keep the
// codes assigned by the prompt layer.
const (
	ErrCodeUnknownEvent     = "RUN_UNKNOWN_EVENT"
	ErrCodeCyclicGraph      = "RUN_CYCLIC_GRAPH"
	ErrCodeValidationFailed = "RUN_VALIDATION_FAILED"
	ErrCodeUnknownNode      = "RUN_UNKNOWN_NODE"
)

var (
	errUnknownEvent = apperrors.New(
		"event is not defined", apperrors.CategoryBadInput).WithTextCode(ErrCodeUnknownEvent)
	errCyclicGraph = apperrors.New(
		"action graph is not executable", apperrors.CategoryBadInput).WithTextCode(ErrCodeCyclicGraph)
	errValidationFailed = apperrors.New(
		"validation failed", apperrors.CategoryValidation).WithTextCode(ErrCodeValidationFailed)
	errUnknownNode = apperrors.New(
		"node is not defined", apperrors.CategoryBadInput).WithTextCode(ErrCodeUnknownNode)
)

func fault(base *apperrors.Error, message string, metadata map[string]any) error {
	err := base.Clone()
	err.Message = message
	if metadata != nil {
		err = err.WithMetadata(metadata)
	}
	return err
}

// Code returns the stable classification code carried by an execution
// error, empty when the error carries none.
func Code(err error) string {
	var ge *apperrors.Error
	if stderrors.As(err, &ge) {
		return ge.TextCode
	}
	return ""
}
