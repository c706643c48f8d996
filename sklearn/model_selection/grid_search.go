package model_selection

import (
	"slices"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/automl/core/model"
	"github.com/YuminosukeSato/automl/metrics"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/pkg/log"
)

// DefaultCV は GridSearchCV の既定の分割数
const DefaultCV = 5

// ScoreFunc は学習済み推定器の検証データに対するスコア（大きいほど良い）を返す
type ScoreFunc func(est model.Estimator, X, y mat.Matrix) (float64, error)

// AccuracyScore は正解率でスコアを付ける
func AccuracyScore(est model.Estimator, X, y mat.Matrix) (float64, error) {
	pred, err := est.Predict(X)
	if err != nil {
		return 0, err
	}
	t, p, err := vectors(y, pred)
	if err != nil {
		return 0, err
	}
	return metrics.Accuracy(t, p)
}

// NegMSEScore は負の平均二乗誤差でスコアを付ける
func NegMSEScore(est model.Estimator, X, y mat.Matrix) (float64, error) {
	pred, err := est.Predict(X)
	if err != nil {
		return 0, err
	}
	mse, err := metrics.MSEMatrix(y, pred)
	if err != nil {
		return 0, err
	}
	return -mse, nil
}

func vectors(y, pred mat.Matrix) (*mat.VecDense, *mat.VecDense, error) {
	t, err := metrics.Column("score", y)
	if err != nil {
		return nil, nil, err
	}
	p, err := metrics.Column("score", pred)
	if err != nil {
		return nil, nil, err
	}
	return t, p, nil
}

// CVResult は1つの候補の交差検証結果
type CVResult struct {
	Params     map[string]interface{}
	FoldScores []float64
	MeanScore  float64
	StdScore   float64
	Rank       int
}

// GridSearchCV はパラメータグリッドを総当たりし、交差検証スコアが最も高い
// 組み合わせで推定器を再学習する
type GridSearchCV struct {
	estimator model.Estimator
	grid      ParamGrid
	cv        Splitter
	nSplits   int
	scoring   ScoreFunc

	bestEstimator model.Estimator
	bestParams    map[string]interface{}
	bestScore     float64
	bestIndex     int
	results       []CVResult

	logger log.Logger
}

// GridSearchOption は GridSearchCV の関数オプション
type GridSearchOption func(*GridSearchCV)

// WithCV は分割数を設定する（分類器は StratifiedKFold、回帰器は KFold）
func WithCV(nSplits int) GridSearchOption {
	return func(g *GridSearchCV) { g.nSplits = nSplits }
}

// WithSplitter は分割器を直接設定する
func WithSplitter(s Splitter) GridSearchOption {
	return func(g *GridSearchCV) { g.cv = s }
}

// WithScoring はスコア関数を設定する
func WithScoring(f ScoreFunc) GridSearchOption {
	return func(g *GridSearchCV) { g.scoring = f }
}

// NewGridSearchCV は新しい GridSearchCV を作成する
//
// 使用例:
//
//	grid, _ := model_selection.ParseParamGrid(`{"n_estimators": [10, 50], "max_depth": [3, null]}`)
//	gs := model_selection.NewGridSearchCV(ensemble.NewRandomForestClassifier(), grid)
//	err := gs.Fit(X, y)
//	fmt.Println(gs.BestParams(), gs.BestScore())
func NewGridSearchCV(estimator model.Estimator, grid ParamGrid, opts ...GridSearchOption) *GridSearchCV {
	g := &GridSearchCV{
		estimator: estimator,
		grid:      grid,
		nSplits:   DefaultCV,
		bestIndex: -1,
		logger:    log.GetLoggerWithName("GridSearchCV"),
	}
	for _, opt := range opts {
		opt(g)
	}
	classifier := model.IsClassifier(estimator)
	if g.cv == nil {
		if classifier {
			g.cv = NewStratifiedKFold(g.nSplits, false, 0)
		} else {
			g.cv = NewKFold(g.nSplits, false, 0)
		}
	}
	if g.scoring == nil {
		if classifier {
			g.scoring = AccuracyScore
		} else {
			g.scoring = NegMSEScore
		}
	}
	return g
}

// Fit は全候補を交差検証で評価し、最良の候補で全データを再学習する。
// 候補のパラメータを推定器が受け付けない場合は SetParams のエラーをそのまま返す。
func (g *GridSearchCV) Fit(X, y mat.Matrix) error {
	start := time.Now()
	candidates := g.grid.Candidates()
	if len(candidates) == 0 {
		candidates = []map[string]interface{}{{}}
	}

	folds, err := g.cv.Split(X, y)
	if err != nil {
		return err
	}

	results := make([]CVResult, len(candidates))
	for ci, params := range candidates {
		scores := make([]float64, len(folds))
		for fi, fold := range folds {
			est := g.estimator.Clone()
			if err := est.SetParams(params); err != nil {
				return err
			}
			if err := est.Fit(rows(X, fold.TrainIndices), rows(y, fold.TrainIndices)); err != nil {
				return errors.Wrapf(err, "fit candidate %s on fold %d", FormatParams(params), fi)
			}
			scores[fi], err = g.scoring(est, rows(X, fold.TestIndices), rows(y, fold.TestIndices))
			if err != nil {
				return errors.Wrapf(err, "score candidate %s on fold %d", FormatParams(params), fi)
			}
		}
		mean, std := stat.PopMeanStdDev(scores, nil)
		results[ci] = CVResult{Params: params, FoldScores: scores, MeanScore: mean, StdScore: std}

		g.logger.Debug("Candidate evaluated",
			log.OperationKey, log.OperationSearch,
			log.HyperParamsKey, FormatParams(params),
			log.CVScoreKey, mean,
		)
	}
	rankResults(results)

	best := 0
	for i, r := range results {
		if r.MeanScore > results[best].MeanScore {
			best = i
		}
	}

	refit := g.estimator.Clone()
	if err := refit.SetParams(candidates[best]); err != nil {
		return err
	}
	if err := refit.Fit(X, y); err != nil {
		return errors.Wrap(err, "refit best candidate")
	}

	g.results = results
	g.bestIndex = best
	g.bestParams = candidates[best]
	g.bestScore = results[best].MeanScore
	g.bestEstimator = refit

	g.logger.Info("Grid search finished",
		log.OperationKey, log.OperationSearch,
		log.CandidatesKey, len(candidates),
		log.FoldsKey, len(folds),
		log.HyperParamsKey, FormatParams(g.bestParams),
		log.CVScoreKey, g.bestScore,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// rankResults は平均スコアの降順に順位を付ける（同点は同順位）
func rankResults(results []CVResult) {
	order := make([]int, len(results))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case results[a].MeanScore > results[b].MeanScore:
			return -1
		case results[a].MeanScore < results[b].MeanScore:
			return 1
		}
		return 0
	})
	for pos, idx := range order {
		rank := pos + 1
		if pos > 0 && results[order[pos-1]].MeanScore == results[idx].MeanScore {
			rank = results[order[pos-1]].Rank
		}
		results[idx].Rank = rank
	}
}

func rows(m mat.Matrix, idx []int) *mat.Dense {
	_, c := m.Dims()
	out := mat.NewDense(len(idx), c, nil)
	for i, r := range idx {
		for j := 0; j < c; j++ {
			out.Set(i, j, m.At(r, j))
		}
	}
	return out
}

// Predict は再学習済みの最良推定器で予測する
func (g *GridSearchCV) Predict(X mat.Matrix) (mat.Matrix, error) {
	if g.bestEstimator == nil {
		return nil, errors.NewNotFittedError("GridSearchCV", "Predict")
	}
	return g.bestEstimator.Predict(X)
}

// BestEstimator は再学習済みの最良推定器を返す
func (g *GridSearchCV) BestEstimator() model.Estimator { return g.bestEstimator }

// BestParams は最良の候補のパラメータを返す
func (g *GridSearchCV) BestParams() map[string]interface{} {
	out := make(map[string]interface{}, len(g.bestParams))
	for k, v := range g.bestParams {
		out[k] = v
	}
	return out
}

// BestScore は最良の候補の平均交差検証スコアを返す
func (g *GridSearchCV) BestScore() float64 { return g.bestScore }

// BestIndex は CVResults における最良の候補の位置を返す（未学習なら -1）
func (g *GridSearchCV) BestIndex() int { return g.bestIndex }

// CVResults は候補ごとの交差検証結果を評価順に返す
func (g *GridSearchCV) CVResults() []CVResult {
	return slices.Clone(g.results)
}
