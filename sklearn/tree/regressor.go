package tree

import (
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/pkg/log"
)

// DecisionTreeRegressor は二乗誤差を最小化する回帰木
type DecisionTreeRegressor struct {
	state *model.StateManager

	criterion       string // "squared_error"
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     interface{}
	randomState     uint64

	nodes        []node
	depth_       int
	importances_ []float64

	logger log.Logger
}

// NewDecisionTreeRegressor は新しい回帰木を作成する
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	p := defaultParams("squared_error")
	for _, opt := range opts {
		opt(&p)
	}
	return &DecisionTreeRegressor{
		state:           model.NewStateManager(),
		criterion:       p.criterion,
		maxDepth:        p.maxDepth,
		minSamplesSplit: p.minSamplesSplit,
		minSamplesLeaf:  p.minSamplesLeaf,
		maxFeatures:     p.maxFeatures,
		randomState:     p.randomState,
		logger:          log.GetLoggerWithName("DecisionTreeRegressor"),
	}
}

// Fit は訓練データで回帰木を学習する
func (dt *DecisionTreeRegressor) Fit(X, y mat.Matrix) error {
	data, err := NewRegressionData(X, y)
	if err != nil {
		return err
	}
	samples := make([]int, data.nSamples)
	for i := range samples {
		samples[i] = i
	}
	return dt.FitData(data, samples)
}

// FitData は共有された学習データのうち samples（重複可）の行で学習する
func (dt *DecisionTreeRegressor) FitData(data *TrainingData, samples []int) error {
	if dt.criterion != "squared_error" {
		return errors.NewValidationError("criterion", "must be 'squared_error'", dt.criterion)
	}
	if err := validateCommon(dt.minSamplesSplit, dt.minSamplesLeaf); err != nil {
		return err
	}
	if len(samples) == 0 {
		return errors.ErrEmptyData
	}
	start := time.Now()

	maxFeatures, err := resolveMaxFeatures(dt.maxFeatures, data.nFeatures)
	if err != nil {
		return err
	}
	b := &builder{
		cfg: builderConfig{
			criterion:       dt.criterion,
			maxDepth:        dt.maxDepth,
			minSamplesSplit: dt.minSamplesSplit,
			minSamplesLeaf:  dt.minSamplesLeaf,
			maxFeatures:     maxFeatures,
		},
		data: data,
		rng:  rand.New(rand.NewPCG(dt.randomState, dt.randomState^0x9e3779b97f4a7c15)),
	}
	b.build(samples)

	dt.nodes = b.nodes
	dt.depth_ = b.depth
	dt.importances_ = normalize(b.importances)
	dt.state.SetDimensions(data.nFeatures, len(samples))
	dt.state.SetFitted()

	dt.logger.Debug("Decision tree fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, len(samples),
		log.FeaturesKey, data.nFeatures,
		"n_leaves", countLeaves(dt.nodes),
		"depth", dt.depth_,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// Predict は予測値を (n_samples, 1) で返す
func (dt *DecisionTreeRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.state.RequireFitted("DecisionTreeRegressor", "Predict"); err != nil {
		return nil, err
	}
	nSamples, nFeatures := X.Dims()
	if err := dt.state.CheckFeatures("DecisionTreeRegressor.Predict", nFeatures); err != nil {
		return nil, err
	}
	out := mat.NewDense(nSamples, 1, nil)
	row := make([]float64, nFeatures)
	for i := 0; i < nSamples; i++ {
		mat.Row(row, i, X)
		out.Set(i, 0, predictRow(dt.nodes, row)[0])
	}
	return out, nil
}

// Score は決定係数 R² を返す
func (dt *DecisionTreeRegressor) Score(X, y mat.Matrix) float64 {
	predictions, err := dt.Predict(X)
	if err != nil {
		return 0.0
	}
	return R2(y, predictions)
}

// R2 は (n, 1) の行列同士の決定係数を計算する
func R2(yTrue, yPred mat.Matrix) float64 {
	n, _ := yTrue.Dims()
	t := make([]float64, n)
	p := make([]float64, n)
	for i := 0; i < n; i++ {
		t[i] = yTrue.At(i, 0)
		p[i] = yPred.At(i, 0)
	}
	return stat.RSquaredFrom(p, t, nil)
}

// GetFeatureImportances は不純度減少量に基づく特徴量重要度（合計1）を返す
func (dt *DecisionTreeRegressor) GetFeatureImportances() []float64 {
	return append([]float64(nil), dt.importances_...)
}

// GetDepth は木の深さを返す
func (dt *DecisionTreeRegressor) GetDepth() int { return dt.depth_ }

// GetNLeaves は葉の数を返す
func (dt *DecisionTreeRegressor) GetNLeaves() int { return countLeaves(dt.nodes) }

// GetParams はハイパーパラメータを返す
func (dt *DecisionTreeRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":         dt.criterion,
		"max_depth":         depthParam(dt.maxDepth),
		"min_samples_split": dt.minSamplesSplit,
		"min_samples_leaf":  dt.minSamplesLeaf,
		"max_features":      dt.maxFeatures,
		"random_state":      int(dt.randomState),
	}
}

// SetParams はハイパーパラメータを設定する
func (dt *DecisionTreeRegressor) SetParams(params map[string]interface{}) error {
	p := treeParams{
		criterion:       dt.criterion,
		maxDepth:        dt.maxDepth,
		minSamplesSplit: dt.minSamplesSplit,
		minSamplesLeaf:  dt.minSamplesLeaf,
		maxFeatures:     dt.maxFeatures,
		randomState:     dt.randomState,
	}
	if err := p.set("DecisionTreeRegressor", dt.GetParams(), params); err != nil {
		return err
	}
	dt.criterion = p.criterion
	dt.maxDepth = p.maxDepth
	dt.minSamplesSplit = p.minSamplesSplit
	dt.minSamplesLeaf = p.minSamplesLeaf
	dt.maxFeatures = p.maxFeatures
	dt.randomState = p.randomState
	return nil
}

// Clone は同じハイパーパラメータを持つ未学習の回帰木を返す
func (dt *DecisionTreeRegressor) Clone() model.Estimator {
	return NewDecisionTreeRegressor(
		WithCriterion(dt.criterion),
		WithMaxDepth(dt.maxDepth),
		WithMinSamplesSplit(dt.minSamplesSplit),
		WithMinSamplesLeaf(dt.minSamplesLeaf),
		WithMaxFeatures(dt.maxFeatures),
		WithRandomState(dt.randomState),
	)
}
