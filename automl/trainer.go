package automl

import (
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/dataset"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/pkg/log"
	"github.com/YuminosukeSato/automl/sklearn/model_selection"
)

// Predictor は学習済みモデルの予測機能。推定器そのものとグリッドサーチの両方が満たす
type Predictor interface {
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Train は推定器を学習する。gridText が空でなければ解析し、cvFolds 分割の
// GridSearchCV で包んでから学習する。
//
// 戻り値は学習済みの推定器か *model_selection.GridSearchCV。
// グリッドの解析エラーは ParseError、未知のパラメータは推定器の SetParams のエラー。
func Train(est model.Estimator, X, y mat.Matrix, gridText string, cvFolds int) (Predictor, error) {
	grid, err := model_selection.ParseParamGrid(gridText)
	if err != nil {
		return nil, err
	}
	if len(grid) == 0 {
		if err := est.Fit(X, y); err != nil {
			return nil, err
		}
		return est, nil
	}
	gs := model_selection.NewGridSearchCV(est, grid, model_selection.WithCV(cvFolds))
	if err := gs.Fit(X, y); err != nil {
		return nil, err
	}
	return gs, nil
}

// TrainedModel はテーブルから学習したモデルと、予測に必要な列・ラベル情報
type TrainedModel struct {
	Kind     ModelKind
	Features []string
	// Labels は分類の場合のみ設定される
	Labels *LabelEncoder
	// Search はグリッドサーチを使った場合のみ設定される
	Search *model_selection.GridSearchCV

	predictor Predictor
}

// TrainOptions は TrainTable の設定
type TrainOptions struct {
	Forest  ForestConfig
	CVFolds int
}

// DefaultTrainOptions は既定の学習設定を返す
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{Forest: DefaultForestConfig(), CVFolds: model_selection.DefaultCV}
}

// TrainTable は特徴量テーブルと目的変数から kind のモデルを作って学習する。
// 分類では目的変数をクラス番号に符号化し、回帰では数値列であることを要求する。
func TrainTable(kind ModelKind, X *dataset.Table, y []dataset.Value, targetKind dataset.Kind, gridText string, opts TrainOptions) (*TrainedModel, error) {
	logger := log.GetLoggerWithName("trainer")
	start := time.Now()

	est, err := NewModel(kind, opts.Forest)
	if err != nil {
		return nil, err
	}
	features, err := X.ToMatrix()
	if err != nil {
		return nil, err
	}

	tm := &TrainedModel{Kind: kind, Features: X.Columns()}
	var targets []float64
	if kind == Classification {
		tm.Labels, err = FitLabelEncoder(targetKind, y)
		if err != nil {
			return nil, err
		}
		targets = tm.Labels.Encode(y)
	} else {
		targets, err = numericTargets(targetKind, y)
		if err != nil {
			return nil, err
		}
	}

	p, err := Train(est, features, mat.NewDense(len(targets), 1, targets), gridText, opts.CVFolds)
	if err != nil {
		return nil, err
	}
	tm.predictor = p
	if gs, ok := p.(*model_selection.GridSearchCV); ok {
		tm.Search = gs
	}

	logger.Info("Model trained",
		log.ModelKindKey, kind.String(),
		log.SamplesKey, X.NRows(),
		log.FeaturesKey, X.NCols(),
		"grid_search", tm.Search != nil,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return tm, nil
}

func numericTargets(kind dataset.Kind, y []dataset.Value) ([]float64, error) {
	if kind != dataset.Numeric {
		first := ""
		for _, v := range y {
			if !v.Missing {
				first = v.Str
				break
			}
		}
		return nil, errors.Newf("could not convert string to float: %q", first)
	}
	out := make([]float64, len(y))
	for i, v := range y {
		if v.Missing {
			return nil, errors.NewValueError("Fit", "Input y contains NaN")
		}
		out[i] = v.Num
	}
	return out, nil
}

// Predict は特徴量テーブルから予測する。分類では符号化されたクラス番号を返す
func (m *TrainedModel) Predict(X *dataset.Table) ([]float64, error) {
	if m == nil || m.predictor == nil {
		return nil, errors.NewNotFittedError("TrainedModel", "Predict")
	}
	if missing := missingFeatures(m.Features, X); len(missing) > 0 {
		return nil, errors.NewColumnNotFoundError("predict", strings.Join(missing, ", "), X.Columns())
	}
	features, err := X.ToMatrix(m.Features...)
	if err != nil {
		return nil, err
	}
	pred, err := m.predictor.Predict(features)
	if err != nil {
		return nil, err
	}
	return mat.Col(nil, 0, pred), nil
}

// Estimator は学習済みの推定器を返す（グリッドサーチの場合は再学習済みの最良推定器）
func (m *TrainedModel) Estimator() model.Estimator {
	if m.Search != nil {
		return m.Search.BestEstimator()
	}
	est, _ := m.predictor.(model.Estimator)
	return est
}

// FeatureImportances は推定器が特徴量重要度を持つ場合に返す
func (m *TrainedModel) FeatureImportances() ([]float64, bool) {
	fi, ok := m.Estimator().(model.FeatureImportancer)
	if !ok {
		return nil, false
	}
	return fi.GetFeatureImportances(), true
}

func missingFeatures(features []string, X *dataset.Table) []string {
	var out []string
	for _, f := range features {
		if !X.HasColumn(f) {
			out = append(out, f)
		}
	}
	return out
}
