package errors

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Category classifies a failure by its origin.
type Category int

const (
	// CategoryValidation covers malformed or inconsistent user input.
	CategoryValidation Category = iota + 1
	// CategoryResource covers missing files and storage failures.
	CategoryResource
	// CategoryComputation covers failures raised while fitting, predicting or scoring.
	CategoryComputation
)

// String returns the lower-case name of the category.
func (c Category) String() string {
	switch c {
	case CategoryValidation:
		return "validation"
	case CategoryResource:
		return "resource"
	case CategoryComputation:
		return "computation"
	default:
		return "unknown"
	}
}

// CategoryOf walks the error chain and reports the category of the first
// recognised error type. Errors of unknown origin are computation failures.
func CategoryOf(err error) Category {
	if err == nil {
		return 0
	}

	var pipelineErr *PipelineError
	if As(err, &pipelineErr) {
		return pipelineErr.Category
	}

	var (
		fileErr     *FileNotFoundError
		resourceErr *ResourceError
	)
	if As(err, &fileErr) || As(err, &resourceErr) {
		return CategoryResource
	}

	var (
		validationErr *ValidationError
		valueErr      *ValueError
		formatErr     *FormatError
		columnErr     *ColumnNotFoundError
		unsupported   *UnsupportedError
		parseErr      *ParseError
		exprErr       *ExpressionError
	)
	switch {
	case As(err, &validationErr), As(err, &valueErr), As(err, &formatErr),
		As(err, &columnErr), As(err, &unsupported), As(err, &parseErr), As(err, &exprErr):
		return CategoryValidation
	}

	return CategoryComputation
}

// PipelineError is the single failure type surfaced by the pipeline. It keeps
// the stage that failed and the category of the underlying error, while its
// message reads the same as the flattened "unhandled exception" text.
type PipelineError struct {
	Stage    string
	Category Category
	Err      error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("An unhandled Exception occurred. Error %v", e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *PipelineError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("stage", e.Stage).
		Str("category", e.Category.String()).
		Str("cause", fmt.Sprint(e.Err)).
		Str("type", "PipelineError")
}

// NewPipelineError wraps err with the failing stage and its category.
// Wrapping an existing PipelineError keeps the innermost stage.
func NewPipelineError(stage string, err error) error {
	if err == nil {
		return nil
	}
	var existing *PipelineError
	if As(err, &existing) {
		return err
	}
	return WithStack(&PipelineError{Stage: stage, Category: CategoryOf(err), Err: err})
}
