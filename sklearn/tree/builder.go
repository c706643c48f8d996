package tree

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/pkg/errors"
)

// TrainingData は学習用の特徴量を列指向で保持する。
// ランダムフォレストでは全ての木で共有される。
type TrainingData struct {
	cols      [][]float64 // cols[feature][sample]
	y         []float64   // 回帰: 目的変数, 分類: クラスインデックス
	classes   []float64   // 分類のみ: 昇順のクラスラベル
	nSamples  int
	nFeatures int
}

// NSamples returns the number of rows.
func (d *TrainingData) NSamples() int { return d.nSamples }

// NFeatures returns the number of columns.
func (d *TrainingData) NFeatures() int { return d.nFeatures }

// Classes returns the ordered class labels (nil for regression data).
func (d *TrainingData) Classes() []float64 { return append([]float64(nil), d.classes...) }

// ClassIndex returns the encoded class of sample i.
func (d *TrainingData) ClassIndex(i int) int { return int(d.y[i]) }

func newTrainingData(op string, X, y mat.Matrix) (*TrainingData, error) {
	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return nil, errors.ErrEmptyData
	}
	if yRows != nSamples {
		return nil, errors.NewDimensionError(op, nSamples, yRows, 0)
	}
	if yCols != 1 {
		return nil, errors.NewDimensionError(op, 1, yCols, 1)
	}

	d := &TrainingData{
		cols:      make([][]float64, nFeatures),
		y:         make([]float64, nSamples),
		nSamples:  nSamples,
		nFeatures: nFeatures,
	}
	for j := 0; j < nFeatures; j++ {
		col := make([]float64, nSamples)
		for i := 0; i < nSamples; i++ {
			v := X.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, errors.NewValueError(op, "Input X contains NaN or infinity")
			}
			col[i] = v
		}
		d.cols[j] = col
	}
	for i := 0; i < nSamples; i++ {
		v := y.At(i, 0)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.NewValueError(op, "Input y contains NaN or infinity")
		}
		d.y[i] = v
	}
	return d, nil
}

// NewRegressionData validates X (n_samples, n_features) and y (n_samples, 1).
func NewRegressionData(X, y mat.Matrix) (*TrainingData, error) {
	return newTrainingData("DecisionTreeRegressor.Fit", X, y)
}

// NewClassificationData validates X and y and encodes the labels of y as class indices.
func NewClassificationData(X, y mat.Matrix) (*TrainingData, error) {
	d, err := newTrainingData("DecisionTreeClassifier.Fit", X, y)
	if err != nil {
		return nil, err
	}
	seen := make(map[float64]struct{})
	for _, v := range d.y {
		seen[v] = struct{}{}
	}
	d.classes = make([]float64, 0, len(seen))
	for v := range seen {
		d.classes = append(d.classes, v)
	}
	sort.Float64s(d.classes)
	index := make(map[float64]int, len(d.classes))
	for i, c := range d.classes {
		index[c] = i
	}
	for i, v := range d.y {
		d.y[i] = float64(index[v])
	}
	return d, nil
}

// node は木のノード。feature < 0 なら葉
type node struct {
	feature   int
	threshold float64
	left      int
	right     int
	value     []float64 // 分類: クラス確率, 回帰: [平均]
	nSamples  int
	impurity  float64
}

func (n *node) isLeaf() bool { return n.feature < 0 }

// builderConfig は木の成長を制御するパラメータ
type builderConfig struct {
	criterion       string
	maxDepth        int // 0 以下は無制限
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int // 1ノードで探索する特徴量の数
	nClasses        int // 0 なら回帰
}

// builder は深さ優先で木を構築する
type builder struct {
	cfg         builderConfig
	data        *TrainingData
	rng         *rand.Rand
	nodes       []node
	importances []float64
	depth       int
}

// build は samples（重複可）で木を構築し、ノード列と正規化前の重要度を返す
func (b *builder) build(samples []int) {
	b.importances = make([]float64, b.data.nFeatures)
	idx := append([]int(nil), samples...)
	b.grow(idx, 0)
}

func (b *builder) grow(samples []int, depth int) int {
	if depth > b.depth {
		b.depth = depth
	}
	value, impurity := b.nodeStats(samples)
	id := len(b.nodes)
	b.nodes = append(b.nodes, node{
		feature:  -1,
		value:    value,
		nSamples: len(samples),
		impurity: impurity,
	})

	n := len(samples)
	if impurity <= 1e-12 ||
		n < b.cfg.minSamplesSplit ||
		n < 2*b.cfg.minSamplesLeaf ||
		(b.cfg.maxDepth > 0 && depth >= b.cfg.maxDepth) {
		return id
	}

	sp, ok := b.bestSplit(samples, impurity)
	if !ok {
		return id
	}

	left := make([]int, 0, sp.nLeft)
	right := make([]int, 0, n-sp.nLeft)
	col := b.data.cols[sp.feature]
	for _, s := range samples {
		if col[s] <= sp.threshold {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}
	b.importances[sp.feature] += sp.improvement

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[id].feature = sp.feature
	b.nodes[id].threshold = sp.threshold
	b.nodes[id].left = l
	b.nodes[id].right = r
	return id
}

// nodeStats は葉の値と不純度を計算する
func (b *builder) nodeStats(samples []int) ([]float64, float64) {
	n := float64(len(samples))
	if b.cfg.nClasses > 0 {
		counts := make([]float64, b.cfg.nClasses)
		for _, s := range samples {
			counts[int(b.data.y[s])]++
		}
		impurity := b.classImpurity(counts, n)
		for k := range counts {
			counts[k] /= n
		}
		return counts, impurity
	}
	var sum, sumSq float64
	for _, s := range samples {
		v := b.data.y[s]
		sum += v
		sumSq += v * v
	}
	mean := sum / n
	return []float64{mean}, math.Max(sumSq/n-mean*mean, 0)
}

func (b *builder) classImpurity(counts []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	if b.cfg.criterion == "entropy" || b.cfg.criterion == "log_loss" {
		e := 0.0
		for _, c := range counts {
			if c > 0 {
				p := c / n
				e -= p * math.Log2(p)
			}
		}
		return e
	}
	g := 1.0
	for _, c := range counts {
		p := c / n
		g -= p * p
	}
	return g
}

type split struct {
	feature     int
	threshold   float64
	improvement float64
	nLeft       int
}

// bestSplit は不純度の減少量が最大の分割を探す。同点の場合は先に見つかった分割を採用する
func (b *builder) bestSplit(samples []int, parentImpurity float64) (split, bool) {
	n := len(samples)
	features := b.featureOrder()

	best := split{improvement: math.Inf(-1)}
	found := false
	visited := 0
	sorted := make([]int, n)

	for _, f := range features {
		if visited >= b.cfg.maxFeatures && found {
			break
		}
		col := b.data.cols[f]
		copy(sorted, samples)
		sort.Slice(sorted, func(i, j int) bool { return col[sorted[i]] < col[sorted[j]] })
		if col[sorted[0]] == col[sorted[n-1]] {
			// 定数の特徴量は探索数に数えない
			continue
		}
		visited++

		sp, ok := b.scanFeature(f, sorted, parentImpurity)
		if ok && sp.improvement > best.improvement {
			best = sp
			found = true
		}
	}
	return best, found
}

// featureOrder は特徴量の探索順。max_features が全特徴量でも順序はシャッフルする
func (b *builder) featureOrder() []int {
	if b.rng == nil {
		order := make([]int, b.data.nFeatures)
		for i := range order {
			order[i] = i
		}
		return order
	}
	return b.rng.Perm(b.data.nFeatures)
}

// scanFeature はソート済みのサンプルを走査し、最良の閾値を返す
func (b *builder) scanFeature(f int, sorted []int, parentImpurity float64) (split, bool) {
	col := b.data.cols[f]
	n := len(sorted)
	nf := float64(n)
	minLeaf := b.cfg.minSamplesLeaf
	best := split{feature: f, improvement: math.Inf(-1)}
	found := false

	if b.cfg.nClasses > 0 {
		left := make([]float64, b.cfg.nClasses)
		right := make([]float64, b.cfg.nClasses)
		for _, s := range sorted {
			right[int(b.data.y[s])]++
		}
		for i := 0; i < n-1; i++ {
			k := int(b.data.y[sorted[i]])
			left[k]++
			right[k]--
			nl := i + 1
			if col[sorted[i]] == col[sorted[i+1]] || nl < minLeaf || n-nl < minLeaf {
				continue
			}
			fl, fr := float64(nl), float64(n-nl)
			imp := nf*parentImpurity - fl*b.classImpurity(left, fl) - fr*b.classImpurity(right, fr)
			if imp > best.improvement {
				best.improvement = imp
				best.threshold = midpoint(col[sorted[i]], col[sorted[i+1]])
				best.nLeft = nl
				found = true
			}
		}
		return best, found
	}

	var totalSum, totalSq float64
	for _, s := range sorted {
		v := b.data.y[s]
		totalSum += v
		totalSq += v * v
	}
	var leftSum, leftSq float64
	for i := 0; i < n-1; i++ {
		v := b.data.y[sorted[i]]
		leftSum += v
		leftSq += v * v
		nl := i + 1
		if col[sorted[i]] == col[sorted[i+1]] || nl < minLeaf || n-nl < minLeaf {
			continue
		}
		fl, fr := float64(nl), float64(n-nl)
		rightSum, rightSq := totalSum-leftSum, totalSq-leftSq
		// n*Var = sumSq - sum^2/n
		leftSSE := leftSq - leftSum*leftSum/fl
		rightSSE := rightSq - rightSum*rightSum/fr
		imp := nf*parentImpurity - leftSSE - rightSSE
		if imp > best.improvement {
			best.improvement = imp
			best.threshold = midpoint(col[sorted[i]], col[sorted[i+1]])
			best.nLeft = nl
			found = true
		}
	}
	return best, found
}

// midpoint は二値の中点を返す。丸めで上側の値と一致した場合は下側の値を使う
func midpoint(a, b float64) float64 {
	m := a/2 + b/2
	if m >= b || math.IsInf(m, 0) {
		return a
	}
	return m
}

// resolveMaxFeatures は max_features の指定を探索する特徴量数に変換する
func resolveMaxFeatures(value interface{}, nFeatures int) (int, error) {
	switch v := value.(type) {
	case nil:
		return nFeatures, nil
	case string:
		switch v {
		case "sqrt", "auto":
			return max(1, int(math.Sqrt(float64(nFeatures)))), nil
		case "log2":
			return max(1, int(math.Log2(float64(nFeatures)))), nil
		}
	case int:
		if v >= 1 {
			return min(v, nFeatures), nil
		}
	case float64:
		if v > 0 && v <= 1 {
			return max(1, int(v*float64(nFeatures))), nil
		}
	}
	return 0, errors.NewValidationError("max_features", "must be None, 'sqrt', 'log2', a positive int or a float in (0, 1]", value)
}

// predictRow は葉までたどり、その値を返す
func predictRow(nodes []node, x []float64) []float64 {
	i := 0
	for !nodes[i].isLeaf() {
		if x[nodes[i].feature] <= nodes[i].threshold {
			i = nodes[i].left
		} else {
			i = nodes[i].right
		}
	}
	return nodes[i].value
}

func countLeaves(nodes []node) int {
	n := 0
	for i := range nodes {
		if nodes[i].isLeaf() {
			n++
		}
	}
	return n
}

func normalize(importances []float64) []float64 {
	out := append([]float64(nil), importances...)
	total := 0.0
	for _, v := range out {
		total += v
	}
	if total <= 0 {
		return out
	}
	for i := range out {
		out[i] /= total
	}
	return out
}
