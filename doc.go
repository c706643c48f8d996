// Package automl trains and evaluates a random forest on a CSV file in a single
// call, with the missing value handling, row filtering and hyperparameter search
// that a quick experiment usually needs.
//
// A run saves the uploaded file, loads it as a typed table, imputes or drops
// missing values, optionally keeps only the rows matching a condition, splits
// the rows into train and test sets, fits a RandomForestClassifier or
// RandomForestRegressor (optionally through a 5-fold GridSearchCV) and reports a
// single metric:
//
//	Model Performance - "Accuracy Score": 0.95
//	Model Performance - "Mean Squared Error": 1.23456
//
// The regression metric is the root mean squared error rounded to five decimal
// places; the label is kept for compatibility with existing consumers.
//
// # Installation
//
//	go get github.com/YuminosukeSato/automl
//
// # Quick Start
//
//	package main
//
//	import (
//	    "context"
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/automl/automl"
//	    "github.com/YuminosukeSato/automl/preprocessing"
//	    "github.com/YuminosukeSato/automl/storage"
//	)
//
//	func main() {
//	    p := automl.NewPipeline()
//	    res, err := p.Run(context.Background(), automl.Request{
//	        Upload:   storage.PathUpload{Path: "customers.csv"},
//	        Target:   "bought",
//	        TestSize: 0.2,
//	        Kind:     automl.Classification,
//	        Strategy: preprocessing.Mean,
//	        Params:   `{"n_estimators": [50, 100], "max_depth": [null, 5]}`,
//	    })
//	    if err != nil {
//	        log.Fatal(err) // An unhandled Exception occurred. Error ...
//	    }
//	    fmt.Println(res.Text)
//	}
//
// The same run is available from the command line and over HTTP:
//
//	automl run --file customers.csv --target bought --report
//	automl serve --port 7860
//
// # Packages
//
//   - automl: model factory, trainer, evaluator and the Pipeline orchestrator
//   - dataset: CSV loading into a typed Table
//   - preprocessing: missing value strategies, row filtering, train/test split
//   - sklearn/tree, sklearn/ensemble: CART trees and random forests
//   - sklearn/model_selection: KFold, StratifiedKFold, GridSearchCV
//   - metrics: accuracy, confusion matrix, classification report, MSE/RMSE/MAE/R²
//   - storage: saving uploaded files into the working directory
//   - report: tables and plots of the detailed evaluation
//   - config: file and AUTOML_* environment configuration
//   - server: form-based interface and JSON API
//   - core/model: estimator interfaces and fitted state
//   - core/parallel: parallel processing utilities
//   - pkg/errors, pkg/log: structured errors and logging
//
// # scikit-learn Compatibility
//
// Estimators follow the scikit-learn API (Fit, Predict, PredictProba, Score,
// GetParams, SetParams) and use the same defaults:
//
//	model := ensemble.NewRandomForestClassifier(
//	    ensemble.WithNEstimators(200),
//	    ensemble.WithMaxDepth(8),
//	    ensemble.WithRandomState(101),
//	)
//
// # Errors
//
// Every failure of a run is returned as *errors.PipelineError, which keeps the
// failing stage and a category (validation, resource, computation):
//
//	var perr *errors.PipelineError
//	if errors.As(err, &perr) && perr.Category == errors.CategoryValidation {
//	    // bad input: unknown column, malformed condition or grid, ...
//	}
//
// # License
//
// automl is released under the MIT License.
package automl
