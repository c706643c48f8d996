package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeCSV(t *testing.T) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("x1,x2,y\n")
	for i := 0; i < 50; i++ {
		fmt.Fprintf(&b, "%d,%d,%d\n", i, i%3, 2*i)
	}
	path := filepath.Join(t.TempDir(), "train.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version:")
	assert.Contains(t, out, "Go version:")
}

func TestRunCommand(t *testing.T) {
	t.Setenv("AUTOML_WORK_DIR", t.TempDir())
	t.Setenv("AUTOML_FOREST_N_ESTIMATORS", "5")
	plotDir := t.TempDir()

	out, err := execute(t, "run",
		"--file", writeCSV(t),
		"--target", "y",
		"--model", "Regression",
		"--strategy", "Median",
		"--report",
		"--plot-dir", plotDir,
	)
	require.NoError(t, err, out)
	assert.Contains(t, out, `Model Performance - "Mean Squared Error": `)
	assert.Contains(t, out, "Regression metrics")
	assert.Contains(t, out, "plot saved:")
	assert.FileExists(t, filepath.Join(plotDir, "predictions.png"))
}

func TestRunCommand_NoFile(t *testing.T) {
	t.Setenv("AUTOML_WORK_DIR", t.TempDir())
	out, err := execute(t, "run", "--target", "y")
	require.NoError(t, err)
	assert.Contains(t, out, "File has not been uploaded.")
}

func TestRunCommand_Errors(t *testing.T) {
	t.Setenv("AUTOML_WORK_DIR", t.TempDir())

	_, err := execute(t, "run", "--file", writeCSV(t), "--target", "y", "--model", "Clustering")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported model type")

	_, err = execute(t, "run", "--file", writeCSV(t), "--target", "price")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "An unhandled Exception occurred. Error")

	_, err = execute(t, "--log-level", "loud", "version")
	assert.NoError(t, err, "version does not load the config")

	_, err = execute(t, "--log-level", "loud", "run")
	assert.Error(t, err)
}
