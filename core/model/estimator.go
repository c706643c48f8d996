package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行う
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Estimator はパイプラインで扱う学習器の共通インターフェース。
// Clone は学習状態を持たない同一パラメータの新しいインスタンスを返す。
type Estimator interface {
	Fitter
	Predictor
	ParameterGetter
	ParameterSetter
	Clone() Estimator
}

// ProbabilisticClassifier はクラス確率を出力できる分類器
type ProbabilisticClassifier interface {
	Estimator
	// PredictProba は各クラスの確率を (n_samples, n_classes) で返す
	PredictProba(X mat.Matrix) (mat.Matrix, error)
	// Classes は学習時に観測したクラスラベルを昇順で返す
	Classes() []float64
}
