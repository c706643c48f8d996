package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/automl/pkg/errors"
)

func TestSavePathUpload(t *testing.T) {
	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "iris.csv")
	require.NoError(t, os.WriteFile(src, []byte("a,b\n1,2\n"), 0o644))

	dir := filepath.Join(t.TempDir(), "nested", "saved")
	dst, err := Save(PathUpload{Path: src}, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "iris.csv"), dst)

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(got))

	// 同じ場所への保存は内容を壊さない
	again, err := Save(PathUpload{Path: dst}, dir)
	require.NoError(t, err)
	assert.Equal(t, dst, again)
	got, _ = os.ReadFile(dst)
	assert.Equal(t, "a,b\n1,2\n", string(got))
}

func TestSaveBytesUploadOverwrites(t *testing.T) {
	dir := t.TempDir()
	h := NewHandler(dir)

	dst, err := h.Save(BytesUpload{Content: []byte("x\n1\n")})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, BytesFileName), dst)

	_, err = h.Save(BytesUpload{Content: []byte("y\n2\n")})
	require.NoError(t, err)
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "y\n2\n", string(got))
}

func TestSaveErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Save(nil, dir)
	var validation *errors.ValidationError
	require.True(t, errors.As(err, &validation), "got %v", err)
	assert.Contains(t, err.Error(), "File uploaded is not a valid file")

	_, err = Save(PathUpload{Path: filepath.Join(dir, "missing.csv")}, dir)
	var notFound *errors.FileNotFoundError
	assert.True(t, errors.As(err, &notFound), "got %v", err)
	assert.Equal(t, errors.CategoryResource, errors.CategoryOf(err))

	// 保存先がファイルの場合はディレクトリを作れない
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	_, err = Save(BytesUpload{Content: []byte("a\n")}, filepath.Join(blocker, "sub"))
	var resource *errors.ResourceError
	assert.True(t, errors.As(err, &resource), "got %v", err)
	assert.Contains(t, err.Error(), "Error in saving file. Error:")
}

func TestNewHandlerDefaultDir(t *testing.T) {
	assert.Equal(t, DefaultDir, NewHandler("").Dir())
}
