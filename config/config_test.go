package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/automl/automl"
	"github.com/YuminosukeSato/automl/pkg/errors"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefault(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
	assert.Equal(t, "data/saved_data", c.WorkDir)
	assert.Equal(t, uint64(42), c.Seeds.Split)
	assert.Equal(t, int64(101), c.Seeds.Model)
	assert.Equal(t, 100, c.Forest.NEstimators)
	assert.Equal(t, 5, c.Search.CVFolds)
	assert.Equal(t, 7860, c.Server.Port)
}

func TestBindEnv(t *testing.T) {
	t.Setenv("AUTOML_WORK_DIR", "/tmp/automl")
	t.Setenv("AUTOML_LOG_LEVEL", "debug")
	t.Setenv("AUTOML_SEEDS_SPLIT", "7")
	t.Setenv("AUTOML_FOREST_N_ESTIMATORS", "25")
	t.Setenv("AUTOML_FOREST_MAX_FEATURES", "log2")
	t.Setenv("AUTOML_SERVER_PORT", "8080")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/automl", c.WorkDir)
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, uint64(7), c.Seeds.Split)
	assert.Equal(t, 25, c.Forest.NEstimators)
	assert.Equal(t, "log2", c.Forest.MaxFeatures)
	assert.Equal(t, 8080, c.Server.Port)
}

func TestLoadFile(t *testing.T) {
	yamlPath := writeFile(t, "automl.yaml", `
work_dir: uploads
forest:
  n_estimators: 10
  max_depth: 4
  max_features: "0.5"
search:
  cv_folds: 3
report:
  plot_dir: plots
`)
	c, err := Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "uploads", c.WorkDir)
	assert.Equal(t, 10, c.Forest.NEstimators)
	assert.Equal(t, 4, c.Forest.MaxDepth)
	assert.Equal(t, 3, c.Search.CVFolds)
	assert.Equal(t, "plots", c.Report.PlotDir)
	// 指定されていない値は既定値
	assert.Equal(t, 2, c.Forest.MinSamplesSplit)

	forest, err := c.ForestConfig()
	require.NoError(t, err)
	assert.Equal(t, automl.ForestConfig{
		NEstimators:     10,
		MaxDepth:        4,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MaxFeatures:     0.5,
		RandomState:     101,
	}, forest)

	tomlPath := writeFile(t, "automl.toml", `
log_level = "warn"

[server]
port = 9000
`)
	c, err = Load(tomlPath)
	require.NoError(t, err)
	assert.Equal(t, "warn", c.LogLevel)
	assert.Equal(t, 9000, c.Server.Port)
}

func TestMaxFeatures(t *testing.T) {
	tests := []struct {
		in      string
		want    interface{}
		wantErr bool
	}{
		{"", nil, false},
		{"sqrt", "sqrt", false},
		{"3", 3, false},
		{"0.25", 0.25, false},
		{"0", nil, true},
		{"cube", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ForestConfig{MaxFeatures: tt.in}.maxFeatures()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	var notFound *errors.FileNotFoundError
	assert.True(t, errors.As(err, &notFound))

	_, err = Load(writeFile(t, "bad.yaml", "forest: [1, 2"))
	require.Error(t, err)
	assert.Equal(t, errors.CategoryValidation, errors.CategoryOf(err))

	_, err = Load(writeFile(t, "zero.yaml", "forest:\n  n_estimators: 0\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Config.Forest.NEstimators")

	_, err = Load(writeFile(t, "level.yaml", "log_level: verbose\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LogLevel")

	_, err = Load(writeFile(t, "mf.yaml", "forest:\n  max_features: cube\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_features")
}

func TestPipeline(t *testing.T) {
	c := Default()
	c.WorkDir = t.TempDir()
	p, err := c.Pipeline(automl.WithDetails(true))
	require.NoError(t, err)
	assert.NotNil(t, p)

	c.Forest.MaxFeatures = "many"
	_, err = c.Pipeline()
	assert.Error(t, err)
}
