// Package ensemble はランダムフォレスト（分類・回帰）を提供する。
//
// 各決定木はブートストラップ標本と特徴量のランダムな部分集合で学習され、
// core/parallel によって並列に構築される。乱数シードが同じなら、並列度に
// 関係なく同じモデルが得られる。
package ensemble

import (
	"math/rand/v2"
	"time"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/core/parallel"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/pkg/log"
	"github.com/YuminosukeSato/automl/sklearn/tree"
)

// forestParams は分類・回帰で共通のハイパーパラメータ
type forestParams struct {
	nEstimators     int
	criterion       string
	maxDepth        int // 0 以下は無制限
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     interface{}
	bootstrap       bool
	randomState     int64 // 負の値は実行ごとに異なるシード
	nJobs           int   // 0 以下は全コア
}

// Option はランダムフォレストの関数オプション
type Option func(*forestParams)

// WithNEstimators は木の本数を設定する
func WithNEstimators(n int) Option {
	return func(p *forestParams) { p.nEstimators = n }
}

// WithCriterion は分割の評価基準を設定する
func WithCriterion(criterion string) Option {
	return func(p *forestParams) { p.criterion = criterion }
}

// WithMaxDepth は各木の最大深さを設定する（0 以下で無制限）
func WithMaxDepth(depth int) Option {
	return func(p *forestParams) { p.maxDepth = depth }
}

// WithMinSamplesSplit は内部ノードの分割に必要な最小サンプル数を設定する
func WithMinSamplesSplit(n int) Option {
	return func(p *forestParams) { p.minSamplesSplit = n }
}

// WithMinSamplesLeaf は葉の最小サンプル数を設定する
func WithMinSamplesLeaf(n int) Option {
	return func(p *forestParams) { p.minSamplesLeaf = n }
}

// WithMaxFeatures は各分割で探索する特徴量数を設定する（nil, "sqrt", "log2", int, float64）
func WithMaxFeatures(value interface{}) Option {
	return func(p *forestParams) { p.maxFeatures = value }
}

// WithBootstrap はブートストラップ標本を使うかどうかを設定する
func WithBootstrap(bootstrap bool) Option {
	return func(p *forestParams) { p.bootstrap = bootstrap }
}

// WithRandomState は乱数シードを設定する
func WithRandomState(seed int64) Option {
	return func(p *forestParams) { p.randomState = seed }
}

// WithNJobs は木を並列に学習するワーカー数を設定する（0 以下で全コア）
func WithNJobs(n int) Option {
	return func(p *forestParams) { p.nJobs = n }
}

func (p forestParams) options() []Option {
	return []Option{
		WithNEstimators(p.nEstimators),
		WithCriterion(p.criterion),
		WithMaxDepth(p.maxDepth),
		WithMinSamplesSplit(p.minSamplesSplit),
		WithMinSamplesLeaf(p.minSamplesLeaf),
		WithMaxFeatures(p.maxFeatures),
		WithBootstrap(p.bootstrap),
		WithRandomState(p.randomState),
		WithNJobs(p.nJobs),
	}
}

func (p forestParams) toMap() map[string]interface{} {
	var maxDepth, randomState, nJobs interface{}
	if p.maxDepth > 0 {
		maxDepth = p.maxDepth
	}
	if p.nJobs > 0 {
		nJobs = p.nJobs
	}
	if p.randomState >= 0 {
		randomState = int(p.randomState)
	}
	return map[string]interface{}{
		"n_estimators":      p.nEstimators,
		"criterion":         p.criterion,
		"max_depth":         maxDepth,
		"min_samples_split": p.minSamplesSplit,
		"min_samples_leaf":  p.minSamplesLeaf,
		"max_features":      p.maxFeatures,
		"bootstrap":         p.bootstrap,
		"random_state":      randomState,
		"n_jobs":            nJobs,
	}
}

// set は params を検証しながら反映した新しい forestParams を返す
func (p forestParams) set(estimator string, params map[string]interface{}) (forestParams, error) {
	valid := p.toMap()
	for key, value := range params {
		var err error
		switch key {
		case "n_estimators":
			p.nEstimators, err = model.ParamInt(key, value)
			if err == nil && p.nEstimators < 1 {
				err = errors.NewValidationError(key, "must be an integer >= 1", value)
			}
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
			p.maxFeatures, err = tree.NormalizeMaxFeatures(value)
		case "bootstrap":
			p.bootstrap, err = model.ParamBool(key, value)
		case "random_state":
			if value == nil {
				p.randomState = -1
			} else {
				var seed int
				seed, err = model.ParamInt(key, value)
				p.randomState = int64(seed)
			}
		case "n_jobs":
			if value == nil {
				p.nJobs = 0
			} else {
				p.nJobs, err = model.ParamInt(key, value)
			}
		default:
			return p, model.InvalidParamError(estimator, key, valid)
		}
		if err != nil {
			return p, err
		}
	}
	return p, nil
}

func (p forestParams) treeOptions(seed uint64) []tree.Option {
	return []tree.Option{
		tree.WithCriterion(p.criterion),
		tree.WithMaxDepth(p.maxDepth),
		tree.WithMinSamplesSplit(p.minSamplesSplit),
		tree.WithMinSamplesLeaf(p.minSamplesLeaf),
		tree.WithMaxFeatures(p.maxFeatures),
		tree.WithRandomState(seed),
	}
}

// treeSeeds は random_state から各木のシードを決定的に導出する
func (p forestParams) treeSeeds() []uint64 {
	base := uint64(p.randomState)
	if p.randomState < 0 {
		base = uint64(time.Now().UnixNano())
	}
	r := rand.New(rand.NewPCG(base, base))
	seeds := make([]uint64, p.nEstimators)
	for i := range seeds {
		seeds[i] = r.Uint64()
	}
	return seeds
}

// bootstrapSamples は n 行から重複ありで n 行を選ぶ
func bootstrapSamples(n int, seed uint64) []int {
	r := rand.New(rand.NewPCG(seed, ^seed))
	out := make([]int, n)
	for i := range out {
		out[i] = r.IntN(n)
	}
	return out
}

func allSamples(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// fitTrees は木を並列に学習する。結果は木の番号順に格納されるため並列度に依存しない
func fitTrees(p forestParams, nSamples int, fit func(i int, seed uint64, samples []int) error) error {
	seeds := p.treeSeeds()
	workers := parallel.Workers(p.nJobs, p.nEstimators)
	return parallel.ForEach(p.nEstimators, workers, func(i int) error {
		samples := allSamples(nSamples)
		if p.bootstrap {
			samples = bootstrapSamples(nSamples, seeds[i])
		}
		return errors.SafeExecute("fit tree", func() error {
			return fit(i, seeds[i], samples)
		})
	})
}

func logFitted(logger log.Logger, p forestParams, nSamples, nFeatures int, start time.Time) {
	logger.Info("Random forest fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		"n_estimators", p.nEstimators,
		log.RandomSeedKey, p.randomState,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
}

// meanImportances は各木の重要度の平均を合計1に正規化して返す
func meanImportances(perTree [][]float64, nFeatures int) []float64 {
	out := make([]float64, nFeatures)
	for _, imp := range perTree {
		for j, v := range imp {
			out[j] += v
		}
	}
	total := 0.0
	for _, v := range out {
		total += v
	}
	if total > 0 {
		for j := range out {
			out[j] /= total
		}
	}
	return out
}
