package automl

import (
	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/sklearn/ensemble"
)

// DefaultModelSeed はランダムフォレストの既定の乱数シード
const DefaultModelSeed = 101

// ForestConfig はファクトリが作るランダムフォレストの設定
type ForestConfig struct {
	NEstimators     int
	MaxDepth        int // 0 以下は無制限
	MinSamplesSplit int
	MinSamplesLeaf  int
	// MaxFeatures は nil の場合に推定器の既定値（分類: "sqrt"、回帰: 全特徴量）
	MaxFeatures interface{}
	RandomState int64
}

// DefaultForestConfig は scikit-learn の既定値に random_state=101 を加えた設定を返す
func DefaultForestConfig() ForestConfig {
	return ForestConfig{
		NEstimators:     100,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		RandomState:     DefaultModelSeed,
	}
}

func (c ForestConfig) options() []ensemble.Option {
	opts := []ensemble.Option{
		ensemble.WithNEstimators(c.NEstimators),
		ensemble.WithMaxDepth(c.MaxDepth),
		ensemble.WithMinSamplesSplit(c.MinSamplesSplit),
		ensemble.WithMinSamplesLeaf(c.MinSamplesLeaf),
		ensemble.WithRandomState(c.RandomState),
	}
	if c.MaxFeatures != nil {
		opts = append(opts, ensemble.WithMaxFeatures(c.MaxFeatures))
	}
	return opts
}

// NewModel は kind に対応する未学習の推定器を返す
func NewModel(kind ModelKind, cfg ForestConfig) (model.Estimator, error) {
	switch kind {
	case Classification:
		return ensemble.NewRandomForestClassifier(cfg.options()...), nil
	case Regression:
		return ensemble.NewRandomForestRegressor(cfg.options()...), nil
	default:
		return nil, unsupportedKind(kind)
	}
}
