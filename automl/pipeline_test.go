package automl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/pkg/log"
	"github.com/YuminosukeSato/automl/preprocessing"
	"github.com/YuminosukeSato/automl/storage"
)

// sampleCSV は x1 < 50 なら "no"、それ以外は "yes" となる100行のデータ。
// x2 には欠損値が含まれ、y は 3*x1 + 1。
func sampleCSV() []byte {
	var b strings.Builder
	b.WriteString("x1,x2,label,y\n")
	for i := 0; i < 100; i++ {
		x2 := strconv.Itoa(i % 7)
		if i%10 == 3 {
			x2 = ""
		}
		label := "no"
		if i >= 50 {
			label = "yes"
		}
		fmt.Fprintf(&b, "%d,%s,%s,%d\n", i, x2, label, 3*i+1)
	}
	return []byte(b.String())
}

func newTestPipeline(t *testing.T, opts ...PipelineOption) *Pipeline {
	t.Helper()
	cfg := DefaultForestConfig()
	cfg.NEstimators = 10
	base := []PipelineOption{WithWorkDir(t.TempDir()), WithForest(cfg), WithCVFolds(3)}
	return NewPipeline(append(base, opts...)...)
}

func classificationRequest(up storage.Upload) Request {
	return Request{
		Upload:    up,
		Target:    "label",
		TestSize:  DefaultTestSize,
		Kind:      Classification,
		Strategy:  preprocessing.Mean,
		Condition: "",
	}
}

func TestPipeline_NoFile(t *testing.T) {
	res, err := newTestPipeline(t).Run(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "File has not been uploaded.", res.Text)
	assert.Nil(t, res.Evaluation)
	assert.NotEmpty(t, res.RunID)
}

func TestPipeline_Classification(t *testing.T) {
	req := classificationRequest(storage.BytesUpload{Content: sampleCSV()})
	res, err := newTestPipeline(t).Run(context.Background(), req)
	require.NoError(t, err)

	require.NotNil(t, res.Evaluation)
	assert.Equal(t, AccuracyName, res.Evaluation.Name)
	assert.Regexp(t, `^Model Performance - "Accuracy Score": [01]\.[0-9]+$`, res.Text)
	assert.GreaterOrEqual(t, res.Evaluation.Value, 0.8)
	assert.Nil(t, res.Details)
}

func TestPipeline_Regression(t *testing.T) {
	req := Request{
		Upload:    storage.BytesUpload{Content: sampleCSV()},
		Target:    "y",
		TestSize:  0.3,
		Kind:      Regression,
		Strategy:  preprocessing.Median,
		Condition: "x1 >= 10",
	}
	p := newTestPipeline(t)

	// カテゴリ列 label が特徴量に残るので学習できない
	_, err := p.Run(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not convert string to float")

	numericOnly := strings.ReplaceAll(string(sampleCSV()), ",no,", ",0,")
	numericOnly = strings.ReplaceAll(numericOnly, ",yes,", ",1,")
	req.Upload = storage.BytesUpload{Content: []byte(numericOnly)}
	res, err := p.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, RMSEName, res.Evaluation.Name)
	assert.True(t, strings.HasPrefix(res.Text, `Model Performance - "Mean Squared Error": `), res.Text)
	assert.Less(t, res.Evaluation.Value, 30.0)
}

func TestPipeline_GridSearchDetails(t *testing.T) {
	req := classificationRequest(storage.BytesUpload{Content: sampleCSV()})
	req.Params = `{"max_depth": [2, 4], "n_estimators": [5]}`
	req.Strategy = preprocessing.Drop

	res, err := newTestPipeline(t, WithDetails(true)).Run(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res.Details)

	d := res.Details
	assert.Equal(t, []string{"no", "yes"}, d.Classes)
	assert.Equal(t, []string{"x1", "x2", "y"}, d.Features)
	assert.Len(t, d.CVResults, 2)
	assert.Equal(t, 5, d.BestParams["n_estimators"])
	require.NotNil(t, d.Classification)
	require.NotNil(t, d.Confusion)
	assert.Len(t, d.FeatureImportances, 3)
	assert.Equal(t, "yes", d.LabelName(1))
	assert.Equal(t, "unknown", d.LabelName(7))
	assert.Len(t, d.YPred, len(d.YTrue))
}

func TestPipeline_Errors(t *testing.T) {
	p := newTestPipeline(t)
	ctx := context.Background()
	good := storage.BytesUpload{Content: sampleCSV()}

	tests := []struct {
		name     string
		mutate   func(*Request)
		stage    string
		category errors.Category
		contains string
	}{
		{
			name:     "missing target column",
			mutate:   func(r *Request) { r.Target = "price" },
			stage:    StageSplit,
			category: errors.CategoryValidation,
			contains: "column not found",
		},
		{
			name:     "empty target",
			mutate:   func(r *Request) { r.Target = "" },
			stage:    StageValidate,
			category: errors.CategoryValidation,
			contains: "Target",
		},
		{
			name:     "test size out of range",
			mutate:   func(r *Request) { r.TestSize = 1.5 },
			stage:    StageValidate,
			category: errors.CategoryValidation,
			contains: "TestSize",
		},
		{
			name:     "unsupported model type",
			mutate:   func(r *Request) { r.Kind = ModelKind(5) },
			stage:    StageValidate,
			category: errors.CategoryValidation,
			contains: "unsupported model type",
		},
		{
			name:     "unsupported strategy",
			mutate:   func(r *Request) { r.Strategy = preprocessing.Strategy(9) },
			stage:    StageValidate,
			category: errors.CategoryValidation,
			contains: "Use 'Mean' or 'Median' or 'Mode' or 'Drop'",
		},
		{
			name:     "missing file",
			mutate:   func(r *Request) { r.Upload = storage.PathUpload{Path: filepath.Join(t.TempDir(), "nope.csv")} },
			stage:    StageSave,
			category: errors.CategoryResource,
			contains: "does not exist",
		},
		{
			name:     "bad condition",
			mutate:   func(r *Request) { r.Condition = "x1 >" },
			stage:    StageSlice,
			category: errors.CategoryValidation,
		},
		{
			name:     "bad grid",
			mutate:   func(r *Request) { r.Params = "[1, 2" },
			stage:    StageTrain,
			category: errors.CategoryValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := classificationRequest(good)
			tt.mutate(&req)
			res, err := p.Run(ctx, req)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.Contains(t, err.Error(), "An unhandled Exception occurred. Error")
			if tt.contains != "" {
				assert.Contains(t, err.Error(), tt.contains)
			}

			var perr *errors.PipelineError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.stage, perr.Stage)
			assert.Equal(t, tt.category, perr.Category)
		})
	}
}

func TestPipeline_PathUploadKeepsName(t *testing.T) {
	src := filepath.Join(t.TempDir(), "iris_like.csv")
	require.NoError(t, os.WriteFile(src, sampleCSV(), 0o644))

	dir := t.TempDir()
	cfg := DefaultForestConfig()
	cfg.NEstimators = 5
	p := NewPipeline(WithWorkDir(dir), WithForest(cfg), WithSplitSeed(7))

	_, err := p.Run(context.Background(), classificationRequest(storage.PathUpload{Path: src}))
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "iris_like.csv"))
}

func TestPipeline_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestPipeline(t).Run(ctx, classificationRequest(storage.BytesUpload{Content: sampleCSV()}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))

	var perr *errors.PipelineError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, StageSave, perr.Stage)
}

func TestPipeline_Logging(t *testing.T) {
	rec := log.Install(t, log.LevelDebug)
	p := newTestPipeline(t)

	res, err := p.Run(context.Background(), classificationRequest(storage.BytesUpload{Content: sampleCSV()}))
	require.NoError(t, err)

	finished, ok := rec.Find("Pipeline finished")
	require.True(t, ok, "missing finish entry in %s", rec.String())
	assert.Equal(t, res.RunID, finished.Str(log.RunIDKey))
	assert.Equal(t, "pipeline", finished.Str(log.ComponentKey))
	// save, load, impute, slice, split, train, evaluate
	assert.Equal(t, 7, rec.Count("Stage finished"))

	req := classificationRequest(storage.BytesUpload{Content: sampleCSV()})
	req.Target = "price"
	_, err = p.Run(context.Background(), req)
	require.Error(t, err)

	failed, ok := rec.Find("Pipeline failed")
	require.True(t, ok)
	assert.Equal(t, StageSplit, failed.Str(log.StageKey))
	assert.Equal(t, "validation", failed.Str(log.ErrorCategoryKey))
	assert.NotEqual(t, res.RunID, failed.Str(log.RunIDKey))
}
