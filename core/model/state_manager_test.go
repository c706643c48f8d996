package model

import (
	"testing"

	"github.com/YuminosukeSato/automl/pkg/errors"
)

func TestStateManager(t *testing.T) {
	s := NewStateManager()
	if s.IsFitted() {
		t.Fatal("new state should not be fitted")
	}

	err := s.RequireFitted("RandomForestClassifier", "Predict")
	var notFitted *errors.NotFittedError
	if !errors.As(err, &notFitted) {
		t.Fatalf("expected NotFittedError, got %v", err)
	}

	s.SetDimensions(3, 10)
	s.SetFitted()
	if err := s.RequireFitted("RandomForestClassifier", "Predict"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if f, n := s.GetDimensions(); f != 3 || n != 10 {
		t.Errorf("GetDimensions() = (%d, %d), want (3, 10)", f, n)
	}

	if err := s.CheckFeatures("predict", 3); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	var dimErr *errors.DimensionError
	if err := s.CheckFeatures("predict", 4); !errors.As(err, &dimErr) {
		t.Errorf("expected DimensionError, got %v", err)
	}

	s.Reset()
	if s.IsFitted() {
		t.Error("Reset should clear fitted state")
	}
	if f, _ := s.GetDimensions(); f != 0 {
		t.Errorf("Reset should clear dimensions, got %d", f)
	}
}
