package llmtool

import (
	"strings"

	apperrors "github.com/goliatone/go-errors"
)

const (
	ErrCodeMissingTemplateVariable = "RUN_MISSING_TEMPLATE_VARIABLE"
	ErrCodeUnknownProvider         = "RUN_UNKNOWN_PROVIDER"
	ErrCodeProviderFailure         = "RUN_PROVIDER_FAILURE"
	ErrCodeBadModelJSON            = "RUN_BAD_MODEL_JSON"
	ErrCodeOutputMismatch          = "RUN_OUTPUT_MISMATCH"
)

var (
	ErrMissingTemplateVariable = apperrors.New("missing template variable", apperrors.CategoryBadInput).
					WithTextCode(ErrCodeMissingTemplateVariable)
	ErrUnknownProvider = apperrors.New("unknown provider", apperrors.CategoryBadInput).
				WithTextCode(ErrCodeUnknownProvider)
	ErrProviderFailure = apperrors.New("provider call failed", apperrors.CategoryExternal).
				WithTextCode(ErrCodeProviderFailure)
	ErrBadModelJSON = apperrors.New("model returned invalid JSON", apperrors.CategoryExternal).
			WithTextCode(ErrCodeBadModelJSON)
	ErrOutputMismatch = apperrors.New("model output does not match declared schema", apperrors.CategoryExternal).
				WithTextCode(ErrCodeOutputMismatch)
)

func fault(base *apperrors.Error, message string, source error, metadata map[string]any) *apperrors.Error {
	err := base.Clone()
	if text := strings.TrimSpace(message); text != "" {
		err.Message = text
	}
	if source != nil {
		err.Source = source
	}
	if len(metadata) > 0 {
		err = err.WithMetadata(metadata)
	}
	return err
}
