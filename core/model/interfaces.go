// Package model defines the estimator contracts shared by the tree, ensemble and
// model selection packages, plus the fitted-state bookkeeping they embed.
package model

import (
	"gonum.org/v1/gonum/mat"
)

// Scorer is the interface for models that can compute a score.
// Classifiers return accuracy, regressors return R².
type Scorer interface {
	Score(X, y mat.Matrix) float64
}

// Regressor combines interfaces for regression models.
type Regressor interface {
	Estimator
	Scorer
}

// Classifier combines interfaces for classification models.
type Classifier interface {
	ProbabilisticClassifier
	Scorer
}

// FeatureImportancer is implemented by models exposing impurity based importances.
type FeatureImportancer interface {
	GetFeatureImportances() []float64
}

// ParameterGetter is the interface for models that expose their parameters.
type ParameterGetter interface {
	// GetParams returns the hyperparameters keyed by their snake_case names.
	GetParams() map[string]interface{}
}

// ParameterSetter is the interface for models that allow parameter modification.
type ParameterSetter interface {
	// SetParams updates hyperparameters; unknown names are rejected.
	SetParams(params map[string]interface{}) error
}

// IsClassifier reports whether est predicts class labels.
func IsClassifier(est Estimator) bool {
	_, ok := est.(ProbabilisticClassifier)
	return ok
}
