package automl

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/dataset"
	"github.com/YuminosukeSato/automl/metrics"
	"github.com/YuminosukeSato/automl/pkg/log"
	"github.com/YuminosukeSato/automl/sklearn/model_selection"
)

// 評価指標の表示名。回帰は RMSE を計算するが、表示名は従来どおり "Mean Squared Error"
const (
	AccuracyName = "Accuracy Score"
	RMSEName     = "Mean Squared Error"
)

// Evaluation は評価値と指標名の組
type Evaluation struct {
	Value float64
	Name  string
}

func (e Evaluation) String() string {
	return FormatResult(e.Name, e.Value)
}

// FormatResult は `Model Performance - "<name>": <value>` 形式の結果文字列を返す
func FormatResult(name string, value float64) string {
	return fmt.Sprintf("Model Performance - %q: %s", name, FormatFloat(value))
}

// FormatFloat は小数を Python の repr と同じ形で整形する（1.0, 0.95, 1e-05）
func FormatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	if v != 0 {
		if exp := math.Floor(math.Log10(math.Abs(v))); exp < -4 || exp >= 16 {
			return strconv.FormatFloat(v, 'e', -1, 64)
		}
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// Evaluate はテストデータに対する予測を評価する。
// 分類は正解率、回帰は小数第5位に丸めた RMSE。y は (n, 1)。
func Evaluate(m Predictor, X, y mat.Matrix, kind ModelKind) (Evaluation, error) {
	if !kind.Valid() {
		return Evaluation{}, unsupportedKind(kind)
	}
	pred, err := m.Predict(X)
	if err != nil {
		return Evaluation{}, err
	}
	yTrue, err := metrics.Column("Evaluate", y)
	if err != nil {
		return Evaluation{}, err
	}
	yPred, err := metrics.Column("Evaluate", pred)
	if err != nil {
		return Evaluation{}, err
	}
	return score(kind, yTrue, yPred)
}

func score(kind ModelKind, yTrue, yPred *mat.VecDense) (Evaluation, error) {
	logger := log.GetLoggerWithName("evaluator")
	switch kind {
	case Classification:
		acc, err := metrics.Accuracy(yTrue, yPred)
		if err != nil {
			return Evaluation{}, err
		}
		logger.Info("Model evaluated", log.MetricNameKey, AccuracyName, log.AccuracyKey, acc)
		return Evaluation{Value: acc, Name: AccuracyName}, nil
	case Regression:
		rmse, err := metrics.RMSE(yTrue, yPred)
		if err != nil {
			return Evaluation{}, err
		}
		rmse = math.Round(rmse*1e5) / 1e5
		logger.Info("Model evaluated", log.MetricNameKey, RMSEName, log.RMSEKey, rmse)
		return Evaluation{Value: rmse, Name: RMSEName}, nil
	default:
		return Evaluation{}, unsupportedKind(kind)
	}
}

// EvaluateTable はテーブル形式のテストデータで学習済みモデルを評価する
func EvaluateTable(m *TrainedModel, X *dataset.Table, y []dataset.Value) (Evaluation, error) {
	yTrue, yPred, err := predictTable(m, X, y)
	if err != nil {
		return Evaluation{}, err
	}
	return score(m.Kind, yTrue, yPred)
}

func predictTable(m *TrainedModel, X *dataset.Table, y []dataset.Value) (*mat.VecDense, *mat.VecDense, error) {
	pred, err := m.Predict(X)
	if err != nil {
		return nil, nil, err
	}
	var targets []float64
	if m.Kind == Classification {
		targets = m.Labels.Encode(y)
	} else {
		targets = make([]float64, len(y))
		for i, v := range y {
			targets[i] = v.Float()
		}
	}
	return mat.NewVecDense(len(targets), targets), mat.NewVecDense(len(pred), pred), nil
}

// Details は結果文字列に加えて報告する詳細な評価
type Details struct {
	Kind ModelKind
	// 分類
	Classes        []string
	Classification *metrics.ClassificationReport
	Confusion      *metrics.ConfusionMatrix
	// 回帰
	Regression *metrics.RegressionSummary

	Features           []string
	FeatureImportances []float64
	BestParams         map[string]interface{}
	CVResults          []model_selection.CVResult

	YTrue, YPred []float64
}

// Report は分類レポートと混同行列（分類）、または RMSE・MAE・R²（回帰）を計算する
func Report(m *TrainedModel, X *dataset.Table, y []dataset.Value) (*Details, error) {
	yTrue, yPred, err := predictTable(m, X, y)
	if err != nil {
		return nil, err
	}
	d := &Details{
		Kind:     m.Kind,
		Features: m.Features,
		YTrue:    mat.Col(nil, 0, yTrue),
		YPred:    mat.Col(nil, 0, yPred),
	}
	if fi, ok := m.FeatureImportances(); ok {
		d.FeatureImportances = fi
	}
	if m.Search != nil {
		d.BestParams = m.Search.BestParams()
		d.CVResults = m.Search.CVResults()
	}

	switch m.Kind {
	case Classification:
		d.Classes = m.Labels.Classes()
		if d.Classification, err = metrics.NewClassificationReport(yTrue, yPred); err != nil {
			return nil, err
		}
		if d.Confusion, err = metrics.NewConfusionMatrix(yTrue, yPred); err != nil {
			return nil, err
		}
	case Regression:
		s, err := metrics.Summarize(yTrue, yPred)
		if err != nil {
			return nil, err
		}
		d.Regression = &s
	}
	return d, nil
}

// LabelName は符号化されたクラス番号の表示名を返す（未知のクラスは "unknown"）
func (d *Details) LabelName(code float64) string {
	i := int(code)
	if code != float64(i) || i < 0 || i >= len(d.Classes) {
		return "unknown"
	}
	return d.Classes[i]
}
