package ensemble

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/pkg/log"
	"github.com/YuminosukeSato/automl/sklearn/tree"
)

// RandomForestClassifier は決定木の多数決（確率平均）による分類器
type RandomForestClassifier struct {
	state  *model.StateManager
	params forestParams

	trees        []*tree.DecisionTreeClassifier
	classes_     []float64
	importances_ []float64

	logger log.Logger
}

// NewRandomForestClassifier は新しいランダムフォレスト分類器を作成する
//
// デフォルト: n_estimators=100, criterion="gini", max_features="sqrt", bootstrap=true
//
// 使用例:
//
//	rf := ensemble.NewRandomForestClassifier(ensemble.WithRandomState(101))
//	err := rf.Fit(X, y)
//	labels, err := rf.Predict(XTest)
func NewRandomForestClassifier(opts ...Option) *RandomForestClassifier {
	p := forestParams{
		nEstimators:     100,
		criterion:       "gini",
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		maxFeatures:     "sqrt",
		bootstrap:       true,
		randomState:     -1,
	}
	for _, opt := range opts {
		opt(&p)
	}
	return &RandomForestClassifier{
		state:  model.NewStateManager(),
		params: p,
		logger: log.GetLoggerWithName("RandomForestClassifier"),
	}
}

// Fit は訓練データでフォレストを学習する。y は (n_samples, 1) のクラスラベル
func (rf *RandomForestClassifier) Fit(X, y mat.Matrix) error {
	start := time.Now()
	data, err := tree.NewClassificationData(X, y)
	if err != nil {
		return err
	}

	trees := make([]*tree.DecisionTreeClassifier, rf.params.nEstimators)
	err = fitTrees(rf.params, data.NSamples(), func(i int, seed uint64, samples []int) error {
		dt := tree.NewDecisionTreeClassifier(rf.params.treeOptions(seed)...)
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
	rf.classes_ = data.Classes()
	rf.importances_ = meanImportances(perTree, data.NFeatures())
	rf.state.SetDimensions(data.NFeatures(), data.NSamples())
	rf.state.SetFitted()

	logFitted(rf.logger, rf.params, data.NSamples(), data.NFeatures(), start)
	return nil
}

// PredictProba は各木の確率の平均を (n_samples, n_classes) で返す
func (rf *RandomForestClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := rf.state.RequireFitted("RandomForestClassifier", "PredictProba"); err != nil {
		return nil, err
	}
	_, nFeatures := X.Dims()
	if err := rf.state.CheckFeatures("RandomForestClassifier.PredictProba", nFeatures); err != nil {
		return nil, err
	}

	var sum *mat.Dense
	for _, dt := range rf.trees {
		probas, err := dt.PredictProba(X)
		if err != nil {
			return nil, err
		}
		if sum == nil {
			sum = mat.DenseCopyOf(probas)
			continue
		}
		sum.Add(sum, probas)
	}
	sum.Scale(1/float64(len(rf.trees)), sum)
	return sum, nil
}

// Predict はクラスラベルを (n_samples, 1) で返す
func (rf *RandomForestClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	probas, err := rf.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return tree.ArgmaxLabels(probas, rf.classes_), nil
}

// Score は正解率を返す
func (rf *RandomForestClassifier) Score(X, y mat.Matrix) float64 {
	predictions, err := rf.Predict(X)
	if err != nil {
		return 0.0
	}
	n, _ := predictions.Dims()
	if n == 0 {
		return 0.0
	}
	correct := 0
	for i := 0; i < n; i++ {
		if predictions.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(n)
}

// Classes は学習時のクラスラベルを昇順で返す
func (rf *RandomForestClassifier) Classes() []float64 {
	return append([]float64(nil), rf.classes_...)
}

// GetFeatureImportances は全木の平均重要度を返す
func (rf *RandomForestClassifier) GetFeatureImportances() []float64 {
	return append([]float64(nil), rf.importances_...)
}

// NEstimators は学習済みの木の本数を返す
func (rf *RandomForestClassifier) NEstimators() int { return len(rf.trees) }

// GetParams はハイパーパラメータを返す
func (rf *RandomForestClassifier) GetParams() map[string]interface{} {
	return rf.params.toMap()
}

// SetParams はハイパーパラメータを設定する。エラー時は何も変更しない
func (rf *RandomForestClassifier) SetParams(params map[string]interface{}) error {
	p, err := rf.params.set("RandomForestClassifier", params)
	if err != nil {
		return err
	}
	rf.params = p
	return nil
}

// Clone は同じハイパーパラメータを持つ未学習の分類器を返す
func (rf *RandomForestClassifier) Clone() model.Estimator {
	return NewRandomForestClassifier(rf.params.options()...)
}

var _ model.Classifier = (*RandomForestClassifier)(nil)
