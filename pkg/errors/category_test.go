package errors

import (
	"fmt"
	"math"
	"strings"
	"testing"
)

func TestCategoryOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Category
	}{
		{"file not found", NewFileNotFoundError("data/x.csv"), CategoryResource},
		{"resource", NewResourceError("mkdir", "data", fmt.Errorf("permission denied")), CategoryResource},
		{"format", NewFormatError("x.txt", "unexpected extension"), CategoryValidation},
		{"column", NewColumnNotFoundError("split", "price", []string{"a", "b"}), CategoryValidation},
		{"unsupported", NewUnsupportedError("model type", 7, "Classification", "Regression"), CategoryValidation},
		{"parse", NewParseError("hyperparameter grid", "{", fmt.Errorf("eof")), CategoryValidation},
		{"expression", NewExpressionError("age >", fmt.Errorf("unexpected token")), CategoryValidation},
		{"wrapped validation", Wrap(NewValidationError("test_size", "out of range", 2.0), "request"), CategoryValidation},
		{"not fitted", NewNotFittedError("RandomForestRegressor", "Predict"), CategoryComputation},
		{"panic", NewPanicError("fit", "index out of range"), CategoryComputation},
		{"plain", fmt.Errorf("boom"), CategoryComputation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CategoryOf(tt.err); got != tt.want {
				t.Errorf("CategoryOf() = %v, want %v", got, tt.want)
			}
		})
	}

	if got := CategoryOf(nil); got != 0 {
		t.Errorf("CategoryOf(nil) = %v, want 0", got)
	}
}

func TestPipelineError(t *testing.T) {
	cause := NewColumnNotFoundError("split", "price", []string{"age", "income"})
	err := NewPipelineError("split", cause)

	want := `An unhandled Exception occurred. Error automl: split: column not found: "price" (available: age, income)`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	var pipelineErr *PipelineError
	if !As(err, &pipelineErr) {
		t.Fatal("Error should be castable to *PipelineError")
	}
	if pipelineErr.Stage != "split" {
		t.Errorf("Stage = %q, want split", pipelineErr.Stage)
	}
	if pipelineErr.Category != CategoryValidation {
		t.Errorf("Category = %v, want validation", pipelineErr.Category)
	}

	var columnErr *ColumnNotFoundError
	if !As(err, &columnErr) {
		t.Error("PipelineError should unwrap to *ColumnNotFoundError")
	}

	// 二重ラップしても最初のステージを保持する
	again := NewPipelineError("evaluate", err)
	if !As(again, &pipelineErr) || pipelineErr.Stage != "split" {
		t.Errorf("re-wrapping should keep the original stage, got %q", pipelineErr.Stage)
	}

	if NewPipelineError("load", nil) != nil {
		t.Error("NewPipelineError(nil) should return nil")
	}
}

func TestUnsupportedErrorMessage(t *testing.T) {
	err := NewUnsupportedError("model type", "Clustering", "Classification", "Regression")
	if !strings.Contains(err.Error(), "unsupported model type Clustering. Use 'Classification' or 'Regression'.") {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestCheckScalar(t *testing.T) {
	if err := CheckScalar("rmse", 0.5); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := CheckScalar("rmse", math.NaN()); err == nil {
		t.Error("expected error for NaN")
	}
	if got := SafeDivide(1, 0); got != 0 {
		t.Errorf("SafeDivide(1, 0) = %v, want 0", got)
	}
}
