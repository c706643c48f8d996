// Package tree は CART 決定木（分類・回帰）を提供する。
//
// scikit-learn の DecisionTreeClassifier / DecisionTreeRegressor と同じ
// ハイパーパラメータ名を持ち、ランダムフォレストの基本推定器として使われる。
package tree

import (
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/pkg/log"
)

// DecisionTreeClassifier は CART による分類木
type DecisionTreeClassifier struct {
	state *model.StateManager

	// ハイパーパラメータ
	criterion       string      // "gini" | "entropy" | "log_loss"
	maxDepth        int         // 0 以下は無制限
	minSamplesSplit int         // 分割に必要な最小サンプル数
	minSamplesLeaf  int         // 葉の最小サンプル数
	maxFeatures     interface{} // nil | "sqrt" | "log2" | int | float64
	randomState     uint64

	// 学習結果
	nodes        []node
	classes_     []float64
	nClasses_    int
	nFeatures_   int
	depth_       int
	importances_ []float64

	logger log.Logger
}

// Option は決定木の関数オプション
type Option func(*treeParams)

type treeParams struct {
	criterion       string
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     interface{}
	randomState     uint64
}

// WithCriterion は分割の評価基準を設定する
func WithCriterion(criterion string) Option {
	return func(p *treeParams) { p.criterion = criterion }
}

// WithMaxDepth は木の最大深さを設定する（0 以下で無制限）
func WithMaxDepth(depth int) Option {
	return func(p *treeParams) { p.maxDepth = depth }
}

// WithMinSamplesSplit は内部ノードの分割に必要な最小サンプル数を設定する
func WithMinSamplesSplit(n int) Option {
	return func(p *treeParams) { p.minSamplesSplit = n }
}

// WithMinSamplesLeaf は葉の最小サンプル数を設定する
func WithMinSamplesLeaf(n int) Option {
	return func(p *treeParams) { p.minSamplesLeaf = n }
}

// WithMaxFeatures は各分割で探索する特徴量数を設定する
func WithMaxFeatures(value interface{}) Option {
	return func(p *treeParams) { p.maxFeatures = value }
}

// WithRandomState は特徴量の探索順に使う乱数シードを設定する
func WithRandomState(seed uint64) Option {
	return func(p *treeParams) { p.randomState = seed }
}

func defaultParams(criterion string) treeParams {
	return treeParams{
		criterion:       criterion,
		maxDepth:        0,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
	}
}

// NewDecisionTreeClassifier は新しい分類木を作成する
//
// 使用例:
//
//	dt := tree.NewDecisionTreeClassifier(tree.WithCriterion("entropy"), tree.WithMaxDepth(5))
//	err := dt.Fit(X, y)
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	p := defaultParams("gini")
	for _, opt := range opts {
		opt(&p)
	}
	return &DecisionTreeClassifier{
		state:           model.NewStateManager(),
		criterion:       p.criterion,
		maxDepth:        p.maxDepth,
		minSamplesSplit: p.minSamplesSplit,
		minSamplesLeaf:  p.minSamplesLeaf,
		maxFeatures:     p.maxFeatures,
		randomState:     p.randomState,
		logger:          log.GetLoggerWithName("DecisionTreeClassifier"),
	}
}

// Fit は訓練データで分類木を学習する。y は (n_samples, 1) のクラスラベル
func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) error {
	data, err := NewClassificationData(X, y)
	if err != nil {
		return err
	}
	samples := make([]int, data.nSamples)
	for i := range samples {
		samples[i] = i
	}
	return dt.FitData(data, samples)
}

// FitData は共有された学習データのうち samples（重複可）の行で学習する。
// クラス集合は data 全体のものを使うため、一部のクラスが samples に現れなくても
// PredictProba の列数は変わらない。
func (dt *DecisionTreeClassifier) FitData(data *TrainingData, samples []int) error {
	if err := dt.validate(); err != nil {
		return err
	}
	if data.classes == nil {
		return errors.NewValueError("DecisionTreeClassifier.Fit", "training data has no class labels")
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
			nClasses:        len(data.classes),
		},
		data: data,
		rng:  rand.New(rand.NewPCG(dt.randomState, dt.randomState^0x9e3779b97f4a7c15)),
	}
	b.build(samples)

	dt.nodes = b.nodes
	dt.classes_ = data.Classes()
	dt.nClasses_ = len(data.classes)
	dt.nFeatures_ = data.nFeatures
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

func (dt *DecisionTreeClassifier) validate() error {
	switch dt.criterion {
	case "gini", "entropy", "log_loss":
	default:
		return errors.NewValidationError("criterion", "must be 'gini', 'entropy' or 'log_loss'", dt.criterion)
	}
	return validateCommon(dt.minSamplesSplit, dt.minSamplesLeaf)
}

func validateCommon(minSamplesSplit, minSamplesLeaf int) error {
	if minSamplesSplit < 2 {
		return errors.NewValidationError("min_samples_split", "must be an integer >= 2", minSamplesSplit)
	}
	if minSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be an integer >= 1", minSamplesLeaf)
	}
	return nil
}

// PredictProba は各クラスの確率を (n_samples, n_classes) で返す
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.state.RequireFitted("DecisionTreeClassifier", "PredictProba"); err != nil {
		return nil, err
	}
	nSamples, nFeatures := X.Dims()
	if err := dt.state.CheckFeatures("DecisionTreeClassifier.PredictProba", nFeatures); err != nil {
		return nil, err
	}
	probas := mat.NewDense(nSamples, dt.nClasses_, nil)
	row := make([]float64, nFeatures)
	for i := 0; i < nSamples; i++ {
		mat.Row(row, i, X)
		probas.SetRow(i, predictRow(dt.nodes, row))
	}
	return probas, nil
}

// Predict はクラスラベルを (n_samples, 1) で返す
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.state.RequireFitted("DecisionTreeClassifier", "Predict"); err != nil {
		return nil, err
	}
	probas, err := dt.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return ArgmaxLabels(probas, dt.classes_), nil
}

// ArgmaxLabels は確率行列の各行で最大のクラスラベルを返す（同点は先のクラス）
func ArgmaxLabels(probas mat.Matrix, classes []float64) *mat.Dense {
	n, k := probas.Dims()
	out := mat.NewDense(n, 1, nil)
	row := make([]float64, k)
	for i := 0; i < n; i++ {
		mat.Row(row, i, probas)
		out.Set(i, 0, classes[floats.MaxIdx(row)])
	}
	return out
}

// Score は正解率を返す
func (dt *DecisionTreeClassifier) Score(X, y mat.Matrix) float64 {
	predictions, err := dt.Predict(X)
	if err != nil {
		return 0.0
	}
	nSamples, _ := X.Dims()
	correct := 0
	for i := 0; i < nSamples; i++ {
		if predictions.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(nSamples)
}

// Classes は学習時のクラスラベルを昇順で返す
func (dt *DecisionTreeClassifier) Classes() []float64 {
	return append([]float64(nil), dt.classes_...)
}

// GetFeatureImportances は不純度減少量に基づく特徴量重要度（合計1）を返す
func (dt *DecisionTreeClassifier) GetFeatureImportances() []float64 {
	return append([]float64(nil), dt.importances_...)
}

// GetDepth は木の深さを返す
func (dt *DecisionTreeClassifier) GetDepth() int { return dt.depth_ }

// GetNLeaves は葉の数を返す
func (dt *DecisionTreeClassifier) GetNLeaves() int { return countLeaves(dt.nodes) }

// GetParams はハイパーパラメータを返す
func (dt *DecisionTreeClassifier) GetParams() map[string]interface{} {
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
func (dt *DecisionTreeClassifier) SetParams(params map[string]interface{}) error {
	p := treeParams{
		criterion:       dt.criterion,
		maxDepth:        dt.maxDepth,
		minSamplesSplit: dt.minSamplesSplit,
		minSamplesLeaf:  dt.minSamplesLeaf,
		maxFeatures:     dt.maxFeatures,
		randomState:     dt.randomState,
	}
	if err := p.set("DecisionTreeClassifier", dt.GetParams(), params); err != nil {
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

// Clone は同じハイパーパラメータを持つ未学習の分類木を返す
func (dt *DecisionTreeClassifier) Clone() model.Estimator {
	return NewDecisionTreeClassifier(
		WithCriterion(dt.criterion),
		WithMaxDepth(dt.maxDepth),
		WithMinSamplesSplit(dt.minSamplesSplit),
		WithMinSamplesLeaf(dt.minSamplesLeaf),
		WithMaxFeatures(dt.maxFeatures),
		WithRandomState(dt.randomState),
	)
}

func depthParam(depth int) interface{} {
	if depth <= 0 {
		return nil
	}
	return depth
}

// set は params を検証しながら p に反映する
func (p *treeParams) set(estimator string, valid, params map[string]interface{}) error {
	for key, value := range params {
		var err error
		switch key {
		case "criterion":
			p.criterion, err = model.ParamString(key, value)
		case "max_depth":
			if value == nil {
				p.maxDepth = 0
			} else {
				p.maxDepth, err = model.ParamInt(key, value)
			}
		case "min_samples_split":
			p.minSamplesSplit, err = model.ParamInt(key, value)
		case "min_samples_leaf":
			p.minSamplesLeaf, err = model.ParamInt(key, value)
		case "max_features":
			p.maxFeatures, err = NormalizeMaxFeatures(value)
		case "random_state":
			var seed int
			seed, err = model.ParamInt(key, value)
			p.randomState = uint64(seed)
		default:
			return model.InvalidParamError(estimator, key, valid)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// NormalizeMaxFeatures は max_features の値を検証し、整数値の float を int に揃える
func NormalizeMaxFeatures(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case nil, string:
		if _, err := resolveMaxFeatures(v, 1); err != nil {
			return nil, err
		}
		return v, nil
	case int, int64:
		n, err := model.ParamInt("max_features", v)
		if err != nil || n < 1 {
			return nil, errors.NewValidationError("max_features", "must be a positive integer", value)
		}
		return n, nil
	case float64:
		if v > 0 && v <= 1 {
			return v, nil
		}
		if n, err := model.ParamInt("max_features", v); err == nil && n >= 1 {
			return n, nil
		}
	}
	return nil, errors.NewValidationError("max_features", "must be None, 'sqrt', 'log2', a positive int or a float in (0, 1]", value)
}
