package ensemble

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/pkg/log"
	"github.com/YuminosukeSato/automl/sklearn/tree"
)

// RandomForestRegressor は決定木の予測平均による回帰器
type RandomForestRegressor struct {
	state  *model.StateManager
	params forestParams

	trees        []*tree.DecisionTreeRegressor
	importances_ []float64

	logger log.Logger
}

// NewRandomForestRegressor は新しいランダムフォレスト回帰器を作成する
//
// デフォルト: n_estimators=100, criterion="squared_error", max_features=nil（全特徴量）, bootstrap=true
func NewRandomForestRegressor(opts ...Option) *RandomForestRegressor {
	p := forestParams{
		nEstimators:     100,
		criterion:       "squared_error",
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		bootstrap:       true,
		randomState:     -1,
	}
	for _, opt := range opts {
		opt(&p)
	}
	return &RandomForestRegressor{
		state:  model.NewStateManager(),
		params: p,
		logger: log.GetLoggerWithName("RandomForestRegressor"),
	}
}

// Fit は訓練データでフォレストを学習する
func (rf *RandomForestRegressor) Fit(X, y mat.Matrix) error {
	start := time.Now()
	data, err := tree.NewRegressionData(X, y)
	if err != nil {
		return err
	}

	trees := make([]*tree.DecisionTreeRegressor, rf.params.nEstimators)
	err = fitTrees(rf.params, data.NSamples(), func(i int, seed uint64, samples []int) error {
		dt := tree.NewDecisionTreeRegressor(rf.params.treeOptions(seed)...)
		if err := dt.FitData(data, samples); err != nil {
			return err
		}
		trees[i] = dt
		return nil
	})
	if err != nil {
		rf.state.Reset()
		return err
	}

	perTree := make([][]float64, len(trees))
	for i, dt := range trees {
		perTree[i] = dt.GetFeatureImportances()
	}

	rf.trees = trees
	rf.importances_ = meanImportances(perTree, data.NFeatures())
	rf.state.SetDimensions(data.NFeatures(), data.NSamples())
	rf.state.SetFitted()

	logFitted(rf.logger, rf.params, data.NSamples(), data.NFeatures(), start)
	return nil
}

// Predict は各木の予測の平均を (n_samples, 1) で返す
func (rf *RandomForestRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := rf.state.RequireFitted("RandomForestRegressor", "Predict"); err != nil {
		return nil, err
	}
	_, nFeatures := X.Dims()
	if err := rf.state.CheckFeatures("RandomForestRegressor.Predict", nFeatures); err != nil {
		return nil, err
	}

	var sum *mat.Dense
	for _, dt := range rf.trees {
		pred, err := dt.Predict(X)
		if err != nil {
			return nil, err
		}
		if sum == nil {
			sum = mat.DenseCopyOf(pred)
			continue
		}
		sum.Add(sum, pred)
	}
	sum.Scale(1/float64(len(rf.trees)), sum)
	return sum, nil
}

// Score は決定係数 R² を返す
func (rf *RandomForestRegressor) Score(X, y mat.Matrix) float64 {
	predictions, err := rf.Predict(X)
	if err != nil {
		return 0.0
	}
	return tree.R2(y, predictions)
}

// GetFeatureImportances は全木の平均重要度を返す
func (rf *RandomForestRegressor) GetFeatureImportances() []float64 {
	return append([]float64(nil), rf.importances_...)
}

// NEstimators は学習済みの木の本数を返す
func (rf *RandomForestRegressor) NEstimators() int { return len(rf.trees) }

// GetParams はハイパーパラメータを返す
func (rf *RandomForestRegressor) GetParams() map[string]interface{} {
	return rf.params.toMap()
}

// SetParams はハイパーパラメータを設定する。エラー時は何も変更しない
func (rf *RandomForestRegressor) SetParams(params map[string]interface{}) error {
	p, err := rf.params.set("RandomForestRegressor", params)
	if err != nil {
		return err
	}
	rf.params = p
	return nil
}

// Clone は同じハイパーパラメータを持つ未学習の回帰器を返す
func (rf *RandomForestRegressor) Clone() model.Estimator {
	return NewRandomForestRegressor(rf.params.options()...)
}

var _ model.Regressor = (*RandomForestRegressor)(nil)
