package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/automl"
	"github.com/YuminosukeSato/automl/metrics"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/sklearn/model_selection"
)

var (
	yTrue = mat.NewVecDense(4, []float64{0, 0, 1, 1})
	yPred = mat.NewVecDense(4, []float64{0, 1, 1, 1})
)

func yesNo(code float64) string {
	if code == 1 {
		return "yes"
	}
	return "no"
}

func TestRenderClassificationReport(t *testing.T) {
	rep, err := metrics.NewClassificationReport(yTrue, yPred)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, RenderClassificationReport(&buf, rep, yesNo))
	out := buf.String()
	for _, want := range []string{"no", "yes", "1.00", "0.50", "0.67", "accuracy", "0.75", "macro avg", "weighted avg"} {
		assert.Contains(t, out, want)
	}

	assert.Error(t, RenderClassificationReport(&buf, nil, nil))
}

func TestRenderConfusionMatrix(t *testing.T) {
	cm, err := metrics.NewConfusionMatrix(yTrue, yPred)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, RenderConfusionMatrix(&buf, cm, nil))
	out := buf.String()
	assert.Contains(t, out, "0")
	assert.Contains(t, out, "2")
	assert.Equal(t, 1, cm.Count(0, 1))
}

func TestRenderGridResults(t *testing.T) {
	results := []model_selection.CVResult{
		{Params: map[string]interface{}{"max_depth": 2}, MeanScore: 0.8, StdScore: 0.1, Rank: 2},
		{Params: map[string]interface{}{"max_depth": 4}, MeanScore: 0.9, StdScore: 0.05, Rank: 1},
	}
	var buf bytes.Buffer
	require.NoError(t, RenderGridResults(&buf, results))
	out := buf.String()
	first := bytes.Index(buf.Bytes(), []byte("0.90000"))
	second := bytes.Index(buf.Bytes(), []byte("0.80000"))
	require.True(t, first >= 0 && second >= 0, out)
	assert.Less(t, first, second, "rank 1 comes first")
	assert.Contains(t, out, "'max_depth': 4")
	// 入力の順序は変えない
	assert.Equal(t, 2, results[0].Rank)
}

func TestRenderFeatureImportances(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderFeatureImportances(&buf, []string{"age", "income"}, []float64{0.25, 0.75}))
	out := buf.String()
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("income")), bytes.Index(buf.Bytes(), []byte("age")), out)
	assert.Contains(t, out, "0.75000")

	err := RenderFeatureImportances(&buf, []string{"age"}, []float64{0.25, 0.75})
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))
}

func TestRender(t *testing.T) {
	rep, err := metrics.NewClassificationReport(yTrue, yPred)
	require.NoError(t, err)
	cm, err := metrics.NewConfusionMatrix(yTrue, yPred)
	require.NoError(t, err)

	d := &automl.Details{
		Kind:               automl.Classification,
		Classes:            []string{"no", "yes"},
		Classification:     rep,
		Confusion:          cm,
		Features:           []string{"x1", "x2"},
		FeatureImportances: []float64{0.6, 0.4},
		BestParams:         map[string]interface{}{"max_depth": 4},
		CVResults: []model_selection.CVResult{
			{Params: map[string]interface{}{"max_depth": 4}, MeanScore: 0.9, Rank: 1},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, d))
	out := buf.String()
	for _, want := range []string{"Classification report", "Confusion matrix", "Feature importances", "Grid search (best: {'max_depth': 4})"} {
		assert.Contains(t, out, want)
	}

	summary, err := metrics.Summarize(mat.NewVecDense(3, []float64{1, 2, 3}), mat.NewVecDense(3, []float64{1, 2, 4}))
	require.NoError(t, err)
	buf.Reset()
	require.NoError(t, Render(&buf, &automl.Details{Kind: automl.Regression, Regression: &summary}))
	assert.Contains(t, buf.String(), "Regression metrics")
	assert.Contains(t, buf.String(), "RMSE")

	assert.Error(t, Render(&buf, &automl.Details{Kind: automl.Regression}))
	assert.Error(t, Render(&buf, nil))
}

func TestPlots(t *testing.T) {
	dir := t.TempDir()

	fi := filepath.Join(dir, "nested", "fi.png")
	require.NoError(t, PlotFeatureImportances(fi, []string{"a", "b", "c"}, []float64{0.5, 0.3, 0.2}))
	info, err := os.Stat(fi)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	pred := filepath.Join(dir, "pred.svg")
	require.NoError(t, PlotPredictions(pred, []float64{1, 2, 3}, []float64{1.1, 1.9, 3.2}))
	assert.FileExists(t, pred)

	d := &automl.Details{
		Kind:               automl.Regression,
		Features:           []string{"x"},
		FeatureImportances: []float64{1},
		YTrue:              []float64{1, 2},
		YPred:              []float64{1, 2},
	}
	paths, err := Plots(d, filepath.Join(dir, "out"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "out", FeatureImportancesFile),
		filepath.Join(dir, "out", PredictionsFile),
	}, paths)
}

func TestPlotErrors(t *testing.T) {
	dir := t.TempDir()

	err := PlotPredictions(filepath.Join(dir, "p.png"), []float64{1}, []float64{1, 2})
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))

	err = PlotFeatureImportances(filepath.Join(dir, "fi.png"), nil, nil)
	assert.Equal(t, errors.CategoryValidation, errors.CategoryOf(err))

	err = PlotFeatureImportances(filepath.Join(dir, "fi.unknown"), []string{"a"}, []float64{1})
	require.Error(t, err)
	assert.Equal(t, errors.CategoryResource, errors.CategoryOf(err))
}
