// Package errors はautoml全体のエラーハンドリングと警告システムを提供します。
// scikit-learnの警告・例外システムにインスパイアされており、構造化されたエラー情報を提供します。
// 各エラー型は Category（入力検証・リソース・計算）に分類され、パイプラインの
// 最上位まで分類が失われずに伝搬します。
package errors

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	グローバル警告ハンドリング
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		// デフォルトのハンドラは標準エラー出力にログを出す
		log.Printf("automl-Warning: %v\n", w)
	}
	// zerologロガー（循環importを避けるため遅延初期化）
	zerologWarnFunc func(warning error)
)

// SetZerologWarnFunc はzerolog警告関数を設定します（循環importを避けるため）。
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn は警告を発生させます。
// zerologが利用可能な場合は構造化ログとして出力し、そうでなければ従来のハンドラを使用します。
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}

	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	scikit-learn互換の警告型
//
// ===========================================================================

// UndefinedMetricWarning は評価指標が計算できない場合に発生する警告です。
// 例えば、適合率(precision)を計算する際に、陽性クラスの予測が一つもなかった場合など。
type UndefinedMetricWarning struct {
	Metric    string
	Condition string
	Result    float64 // この条件で返される値
}

func (w *UndefinedMetricWarning) Error() string {
	return fmt.Sprintf("'%s' is ill-defined and being set to %f due to %s.", w.Metric, w.Result, w.Condition)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *UndefinedMetricWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("metric", w.Metric).
		Str("condition", w.Condition).
		Float64("result", w.Result).
		Str("type", "UndefinedMetricWarning")
}

// NewUndefinedMetricWarning は新しいUndefinedMetricWarningを作成します。
func NewUndefinedMetricWarning(metric, condition string, result float64) *UndefinedMetricWarning {
	return &UndefinedMetricWarning{Metric: metric, Condition: condition, Result: result}
}

// ===========================================================================
//
//	構造化されたエラー型（モデル・数値計算）
//
// ===========================================================================

// NotFittedError はモデルが未学習の状態で `Predict` を呼び出した場合のエラーです。
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("automl: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError は新しいNotFittedErrorを作成し、スタックトレースを付与します。
func NewNotFittedError(modelName, method string) error {
	return errors.WithStack(&NotFittedError{ModelName: modelName, Method: method})
}

// DimensionError は入力データの次元が期待値と異なる場合のエラーです。
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) axisName() string {
	if e.Axis == 0 {
		return "rows"
	}
	return "features"
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("automl: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, e.axisName(), e.Expected, e.Got)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", e.axisName()).
		Str("type", "DimensionError")
}

// NewDimensionError は新しいDimensionErrorを作成し、スタックトレースを付与します。
func NewDimensionError(op string, expected, got, axis int) error {
	return errors.WithStack(&DimensionError{Op: op, Expected: expected, Got: got, Axis: axis})
}

// ValidationError は入力パラメータの検証に失敗した場合のエラーです。
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("automl: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError は新しいValidationErrorを作成し、スタックトレースを付与します。
func NewValidationError(param, reason string, value interface{}) error {
	return errors.WithStack(&ValidationError{ParamName: param, Reason: reason, Value: value})
}

// ValueError は引数の値が不適切または不正な場合に発生するエラーです。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("automl: %s: %s", e.Op, e.Message)
}

// NewValueError は新しいValueErrorを作成し、スタックトレースを付与します。
func NewValueError(op, message string) error {
	return errors.WithStack(&ValueError{Op: op, Message: message})
}

// NumericalInstabilityError は数値計算が不安定になった場合のエラーです。
// NaN、Infを検出します。
type NumericalInstabilityError struct {
	Operation string
	Values    []float64
}

func (e *NumericalInstabilityError) Error() string {
	vals := make([]string, 0, len(e.Values))
	for i, v := range e.Values {
		if i >= 5 {
			vals = append(vals, "...")
			break
		}
		vals = append(vals, fmt.Sprintf("%.6g", v))
	}
	return fmt.Sprintf("automl: numerical instability detected in %s. Values: [%s]", e.Operation, strings.Join(vals, ", "))
}

// NewNumericalInstabilityError は新しいNumericalInstabilityErrorを作成します。
func NewNumericalInstabilityError(operation string, values []float64) error {
	return errors.WithStack(&NumericalInstabilityError{Operation: operation, Values: values})
}

// ===========================================================================
//
//	データセット・パイプライン固有のエラー型
//
// ===========================================================================

// FileNotFoundError は入力ファイルが存在しない、または通常ファイルでない場合のエラーです。
type FileNotFoundError struct {
	Path string
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("file %s does not exist.", e.Path)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *FileNotFoundError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("path", e.Path).Str("type", "FileNotFoundError")
}

// NewFileNotFoundError は新しいFileNotFoundErrorを作成します。
func NewFileNotFoundError(path string) error {
	return errors.WithStack(&FileNotFoundError{Path: path})
}

// FormatError はファイル形式が不正な場合のエラーです（拡張子、ヘッダー、行の長さなど）。
type FormatError struct {
	Path   string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("File %s is not a valid '.csv' file: %s", e.Path, e.Reason)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *FormatError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("path", e.Path).Str("reason", e.Reason).Str("type", "FormatError")
}

// NewFormatError は新しいFormatErrorを作成します。
func NewFormatError(path, reason string) error {
	return errors.WithStack(&FormatError{Path: path, Reason: reason})
}

// ColumnNotFoundError はテーブルに指定された列が存在しない場合のエラーです。
type ColumnNotFoundError struct {
	Op      string
	Column  string
	Columns []string
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("automl: %s: column not found: %q (available: %s)", e.Op, e.Column, strings.Join(e.Columns, ", "))
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ColumnNotFoundError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("column", e.Column).
		Strs("columns", e.Columns).
		Str("type", "ColumnNotFoundError")
}

// NewColumnNotFoundError は新しいColumnNotFoundErrorを作成します。
func NewColumnNotFoundError(op, column string, columns []string) error {
	return errors.WithStack(&ColumnNotFoundError{Op: op, Column: column, Columns: columns})
}

// UnsupportedError は列挙値（モデル種別、欠損値戦略など）が未対応の場合のエラーです。
type UnsupportedError struct {
	What      string
	Value     interface{}
	Supported []string
}

func (e *UnsupportedError) Error() string {
	quoted := make([]string, len(e.Supported))
	for i, s := range e.Supported {
		quoted[i] = "'" + s + "'"
	}
	return fmt.Sprintf("automl: unsupported %s %v. Use %s.", e.What, e.Value, strings.Join(quoted, " or "))
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *UnsupportedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("what", e.What).
		Interface("value", e.Value).
		Strs("supported", e.Supported).
		Str("type", "UnsupportedError")
}

// NewUnsupportedError は新しいUnsupportedErrorを作成します。
func NewUnsupportedError(what string, value interface{}, supported ...string) error {
	return errors.WithStack(&UnsupportedError{What: what, Value: value, Supported: supported})
}

// ParseError は構造化テキスト（ハイパーパラメータグリッドなど）の解析に失敗した場合のエラーです。
type ParseError struct {
	Subject string
	Input   string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("automl: failed to parse %s: %v", e.Subject, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError は新しいParseErrorを作成します。
func NewParseError(subject, input string, err error) error {
	return errors.WithStack(&ParseError{Subject: subject, Input: input, Err: err})
}

// ExpressionError は行フィルタ条件式のコンパイルまたは評価に失敗した場合のエラーです。
type ExpressionError struct {
	Expression string
	Err        error
}

func (e *ExpressionError) Error() string {
	return fmt.Sprintf("automl: invalid condition %q: %v", e.Expression, e.Err)
}

func (e *ExpressionError) Unwrap() error {
	return e.Err
}

// NewExpressionError は新しいExpressionErrorを作成します。
func NewExpressionError(expression string, err error) error {
	return errors.WithStack(&ExpressionError{Expression: expression, Err: err})
}

// ResourceError はディレクトリ作成やファイル書き込みなどのI/Oに失敗した場合のエラーです。
type ResourceError struct {
	Op   string
	Path string
	Err  error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("Error in saving file. Error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

// NewResourceError は新しいResourceErrorを作成します。
func NewResourceError(op, path string, err error) error {
	return errors.WithStack(&ResourceError{Op: op, Path: path, Err: err})
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")

	// ErrNoUpload はファイルがアップロードされていない場合のエラーです。
	ErrNoUpload = New("File uploaded is not a valid file")
)
