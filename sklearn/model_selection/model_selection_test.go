package model_selection

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/sklearn/ensemble"
	"github.com/YuminosukeSato/automl/sklearn/tree"
)

func TestKFold(t *testing.T) {
	X := mat.NewDense(7, 1, nil)
	folds, err := NewKFold(3, false, 0).Split(X, nil)
	require.NoError(t, err)
	require.Len(t, folds, 3)

	assert.Equal(t, []int{0, 1, 2}, folds[0].TestIndices)
	assert.Equal(t, []int{3, 4}, folds[1].TestIndices)
	assert.Equal(t, []int{5, 6}, folds[2].TestIndices)
	assert.Equal(t, []int{0, 1, 2, 5, 6}, folds[1].TrainIndices)

	seen := map[int]int{}
	for _, f := range folds {
		assert.Len(t, f.TrainIndices, 7-len(f.TestIndices))
		for _, i := range f.TestIndices {
			seen[i]++
		}
	}
	assert.Len(t, seen, 7)

	_, err = NewKFold(10, false, 0).Split(X, nil)
	var valueErr *errors.ValueError
	assert.True(t, errors.As(err, &valueErr), "got %v", err)
	assert.Contains(t, err.Error(), "n_splits=10")

	assert.Equal(t, 5, NewKFold(1, false, 0).GetNSplits())
}

func TestKFoldShuffleReproducible(t *testing.T) {
	X := mat.NewDense(10, 1, nil)
	a, err := NewKFold(5, true, 3).Split(X, nil)
	require.NoError(t, err)
	b, err := NewKFold(5, true, 3).Split(X, nil)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(a, b))
}

func TestStratifiedKFold(t *testing.T) {
	y := mat.NewDense(10, 1, []float64{0, 0, 0, 0, 0, 0, 1, 1, 1, 1})
	X := mat.NewDense(10, 1, nil)
	folds, err := NewStratifiedKFold(2, false, 0).Split(X, y)
	require.NoError(t, err)

	for _, f := range folds {
		counts := map[float64]int{}
		for _, i := range f.TestIndices {
			counts[y.At(i, 0)]++
		}
		assert.Equal(t, 3, counts[0])
		assert.Equal(t, 2, counts[1])
		assert.Len(t, f.TrainIndices, 5)
	}

	_, err = NewStratifiedKFold(2, false, 0).Split(X, mat.NewDense(3, 1, nil))
	assert.Error(t, err)
}

func TestParseParamGrid(t *testing.T) {
	grid, err := ParseParamGrid(`{"n_estimators": [10, 50], "max_depth": [3, null], "criterion": "gini"}`)
	require.NoError(t, err)
	require.Len(t, grid, 1)
	assert.Equal(t, 4, grid.Len())

	candidates := grid.Candidates()
	want := []map[string]interface{}{
		{"criterion": "gini", "max_depth": 3, "n_estimators": 10},
		{"criterion": "gini", "max_depth": 3, "n_estimators": 50},
		{"criterion": "gini", "max_depth": nil, "n_estimators": 10},
		{"criterion": "gini", "max_depth": nil, "n_estimators": 50},
	}
	assert.Empty(t, cmp.Diff(want, candidates))

	list, err := ParseParamGrid("- max_depth: [2]\n- min_samples_leaf: [1, 2]\n")
	require.NoError(t, err)
	assert.Equal(t, 3, list.Len())
	assert.Len(t, list.Candidates(), 3)

	empty, err := ParseParamGrid("  ")
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestParseParamGridErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"not a mapping", `42`},
		{"syntax error", `{"n_estimators": [10, `},
		{"empty list", `{"n_estimators": []}`},
		{"list of scalars", `[1, 2]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseParamGrid(tt.text)
			assert.Error(t, err)
			assert.Equal(t, errors.CategoryValidation, errors.CategoryOf(err))
		})
	}
}

func TestFormatParams(t *testing.T) {
	got := FormatParams(map[string]interface{}{"max_depth": nil, "criterion": "gini", "n_estimators": 10})
	assert.Equal(t, "{'criterion': 'gini', 'max_depth': None, 'n_estimators': 10}", got)
}

// stepData は x が 0..9 でクラス 0、20..29 でクラス 1 のデータ
func stepData() (*mat.Dense, *mat.Dense) {
	n := 20
	X := mat.NewDense(n, 1, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		if i >= 10 {
			X.Set(i, 0, float64(i+10))
			y.Set(i, 0, 1)
		}
	}
	return X, y
}

func TestGridSearchCV_Classifier(t *testing.T) {
	X, y := stepData()
	grid, err := ParseParamGrid(`{"max_depth": [1, 2], "min_samples_leaf": [1, 20]}`)
	require.NoError(t, err)

	gs := NewGridSearchCV(tree.NewDecisionTreeClassifier(), grid)
	require.NoError(t, gs.Fit(X, y))

	results := gs.CVResults()
	require.Len(t, results, 4)
	for _, r := range results {
		assert.Len(t, r.FoldScores, DefaultCV)
	}

	// min_samples_leaf=20 では分割できず、常に多数派を予測する
	assert.Equal(t, 1.0, gs.BestScore())
	assert.Equal(t, map[string]interface{}{"max_depth": 1, "min_samples_leaf": 1}, gs.BestParams())
	assert.Equal(t, 0, gs.BestIndex())
	assert.Equal(t, 1, results[0].Rank)
	assert.Less(t, results[1].MeanScore, results[0].MeanScore)

	pred, err := gs.Predict(mat.NewDense(2, 1, []float64{2, 25}))
	require.NoError(t, err)
	assert.Equal(t, 0.0, pred.At(0, 0))
	assert.Equal(t, 1.0, pred.At(1, 0))
}

func TestGridSearchCV_RegressorNegMSE(t *testing.T) {
	n := 25
	X := mat.NewDense(n, 1, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		y.Set(i, 0, float64(i*i))
	}
	grid, err := ParseParamGrid(`{"n_estimators": [5], "max_depth": [1, 8], "random_state": 101}`)
	require.NoError(t, err)

	gs := NewGridSearchCV(ensemble.NewRandomForestRegressor(), grid, WithCV(5))
	require.NoError(t, gs.Fit(X, y))

	assert.Equal(t, 8, gs.BestParams()["max_depth"])
	assert.LessOrEqual(t, gs.BestScore(), 0.0)
	assert.NotNil(t, gs.BestEstimator())
}

func TestGridSearchCV_InvalidParameter(t *testing.T) {
	X, y := stepData()
	grid, err := ParseParamGrid(`{"n_neighbors": [3]}`)
	require.NoError(t, err)

	gs := NewGridSearchCV(ensemble.NewRandomForestClassifier(ensemble.WithNEstimators(3)), grid)
	err = gs.Fit(X, y)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid parameter for estimator RandomForestClassifier")
	assert.Contains(t, err.Error(), "n_neighbors")

	_, err = gs.Predict(X)
	var notFitted *errors.NotFittedError
	assert.True(t, errors.As(err, &notFitted))
}

func TestGridSearchCV_EmptyGridFitsDefaults(t *testing.T) {
	X, y := stepData()
	gs := NewGridSearchCV(tree.NewDecisionTreeClassifier(), nil, WithCV(4))
	require.NoError(t, gs.Fit(X, y))
	assert.Len(t, gs.CVResults(), 1)
	assert.Empty(t, gs.BestParams())
}
