package operations

import (
	"context"
	"errors"

	apperrors "txanomaly/internal/errors"
)

// stepErrorTypes classifies failures of the built-in steps that are not
// caught by a sentinel
var stepErrorTypes = map[string]apperrors.ErrorType{
	StepTables:   apperrors.ErrTypeReport,
	StepWorkbook: apperrors.ErrTypeReport,
	StepPlots:    apperrors.ErrTypeReport,
	StepSummary:  apperrors.ErrTypeReport,
	StepCommit:   apperrors.ErrTypeReport,
	StepPublish:  apperrors.ErrTypeStorage,
	StepSink:     apperrors.ErrTypeSink,
}

// NewStepError wraps the failure of step in a classified error. Errors
// already classified are returned unchanged.
func NewStepError(step string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.New(classify(step, err), step, "step failed", err)
}

// NewCancellationError reports a run cancelled before step started
func NewCancellationError(step string, cause error) error {
	return apperrors.New(apperrors.ErrTypeCancelled, step, "run cancelled", cause)
}

func classify(step string, err error) apperrors.ErrorType {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperrors.ErrTypeCancelled
	case errors.Is(err, apperrors.ErrMissingColumns):
		return apperrors.ErrTypeSchema
	case apperrors.IsFatalInput(err):
		return apperrors.ErrTypeInput
	case errors.Is(err, apperrors.ErrEmptyFeatures):
		return apperrors.ErrTypeDegenerate
	case errors.Is(err, apperrors.ErrInvalidConfig):
		return apperrors.ErrTypeConfig
	}
	if t, ok := stepErrorTypes[step]; ok {
		return t
	}
	return apperrors.ErrTypeInternal
}
