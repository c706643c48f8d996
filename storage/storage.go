// Package storage はアップロードされたデータファイルを作業ディレクトリに保存する。
package storage

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/pkg/log"
)

const (
	// DefaultDir は保存先ディレクトリの既定値
	DefaultDir = "data/saved_data"
	// BytesFileName は内容で渡されたアップロードの保存名
	BytesFileName = "user_data.csv"
)

// Upload はアップロードされたファイル。PathUpload か BytesUpload のいずれか
type Upload interface {
	// name は保存先のファイル名
	name() string
	open() (io.ReadCloser, error)
}

// PathUpload は既存ファイルのパスで渡されたアップロード
type PathUpload struct {
	Path string
}

func (u PathUpload) name() string { return filepath.Base(u.Path) }

func (u PathUpload) open() (io.ReadCloser, error) {
	info, err := os.Stat(u.Path)
	if err != nil || !info.Mode().IsRegular() {
		return nil, errors.NewFileNotFoundError(u.Path)
	}
	return os.Open(u.Path)
}

// BytesUpload はファイル内容で渡されたアップロード
type BytesUpload struct {
	Content []byte
}

func (u BytesUpload) name() string { return BytesFileName }

func (u BytesUpload) open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(u.Content)), nil
}

// Handler は保存先ディレクトリを持つファイルハンドラ
type Handler struct {
	dir    string
	logger log.Logger
}

// NewHandler は dir に保存する Handler を作成する。空文字列は DefaultDir
func NewHandler(dir string) *Handler {
	if dir == "" {
		dir = DefaultDir
	}
	return &Handler{dir: dir, logger: log.GetLoggerWithName("storage")}
}

// Dir は保存先ディレクトリを返す
func (h *Handler) Dir() string { return h.dir }

// Save はアップロードを保存先ディレクトリに書き込み、保存したパスを返す。
// ディレクトリは必要に応じて作成し、同名のファイルは上書きする。
//
// パラメータ:
//   - up: PathUpload（元のファイル名で複製）または BytesUpload（user_data.csv に書き込み）
//
// 戻り値:
//   - string: 保存したファイルのパス
//   - error: up が nil の場合は ValidationError、入出力の失敗は ResourceError
func (h *Handler) Save(up Upload) (string, error) {
	if up == nil {
		return "", errors.NewValidationError("file", "File uploaded is not a valid file", nil)
	}
	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		return "", errors.NewResourceError("mkdir", h.dir, err)
	}

	dst := filepath.Join(h.dir, up.name())
	if p, ok := up.(PathUpload); ok && samePath(p.Path, dst) {
		return dst, nil
	}

	src, err := up.open()
	if err != nil {
		var notFound *errors.FileNotFoundError
		if errors.As(err, &notFound) {
			return "", err
		}
		return "", errors.NewResourceError("open", "", err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", errors.NewResourceError("create", dst, err)
	}
	n, err := io.Copy(out, src)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", errors.NewResourceError("write", dst, err)
	}

	h.logger.Debug("Upload saved",
		log.StageKey, "save",
		log.PathKey, dst,
		"bytes", n,
	)
	return dst, nil
}

func samePath(a, b string) bool {
	ia, err := os.Stat(a)
	if err != nil {
		return false
	}
	ib, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ia, ib)
}

// Save は dir（空なら DefaultDir）に up を保存する
func Save(up Upload, dir string) (string, error) {
	return NewHandler(dir).Save(up)
}
