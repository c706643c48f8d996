// Package model_selection は交差検証の分割器とグリッドサーチを提供する。
package model_selection

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/pkg/errors"
)

// Splitter は交差検証の分割器
type Splitter interface {
	Split(X, y mat.Matrix) ([]Fold, error)
	GetNSplits() int
}

// Fold は1つの分割の訓練・検証インデックス
type Fold struct {
	TrainIndices []int
	TestIndices  []int
}

// KFold は連続するブロックで分割する k 分割交差検証
type KFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed uint64
}

// NewKFold は新しい KFold を作成する。nSplits < 2 の場合は 5
func NewKFold(nSplits int, shuffle bool, randomSeed uint64) *KFold {
	if nSplits < 2 {
		nSplits = 5
	}
	return &KFold{NSplits: nSplits, Shuffle: shuffle, RandomSeed: randomSeed}
}

// GetNSplits は分割数を返す
func (kf *KFold) GetNSplits() int { return kf.NSplits }

// Split は各分割の訓練・検証インデックスを生成する。
// 先頭の n_samples % n_splits 個の分割は1行多くなる。
func (kf *KFold) Split(X, _ mat.Matrix) ([]Fold, error) {
	nSamples, _ := X.Dims()
	if err := checkSplits(kf.NSplits, nSamples); err != nil {
		return nil, err
	}

	indices := lo.Range(nSamples)
	if kf.Shuffle {
		r := rand.New(rand.NewPCG(kf.RandomSeed, kf.RandomSeed))
		r.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	folds := make([]Fold, kf.NSplits)
	foldSize := nSamples / kf.NSplits
	remainder := nSamples % kf.NSplits
	current := 0
	for i := range folds {
		testSize := foldSize
		if i < remainder {
			testSize++
		}
		test := slices.Clone(indices[current : current+testSize])
		train := make([]int, 0, nSamples-testSize)
		train = append(train, indices[:current]...)
		train = append(train, indices[current+testSize:]...)
		folds[i] = Fold{TrainIndices: train, TestIndices: test}
		current += testSize
	}
	return folds, nil
}

// StratifiedKFold はクラス比率を保つ k 分割交差検証
type StratifiedKFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed uint64
}

// NewStratifiedKFold は新しい StratifiedKFold を作成する。nSplits < 2 の場合は 5
func NewStratifiedKFold(nSplits int, shuffle bool, randomSeed uint64) *StratifiedKFold {
	if nSplits < 2 {
		nSplits = 5
	}
	return &StratifiedKFold{NSplits: nSplits, Shuffle: shuffle, RandomSeed: randomSeed}
}

// GetNSplits は分割数を返す
func (skf *StratifiedKFold) GetNSplits() int { return skf.NSplits }

// Split はクラスごとにインデックスを各分割へ順に配り、層化された分割を生成する。
// クラスは昇順に処理されるため結果は決定的。
func (skf *StratifiedKFold) Split(X, y mat.Matrix) ([]Fold, error) {
	nSamples, _ := X.Dims()
	if err := checkSplits(skf.NSplits, nSamples); err != nil {
		return nil, err
	}
	if yRows, _ := y.Dims(); yRows != nSamples {
		return nil, errors.NewDimensionError("StratifiedKFold.Split", nSamples, yRows, 0)
	}

	classIndices := make(map[float64][]int)
	for i := 0; i < nSamples; i++ {
		label := y.At(i, 0)
		classIndices[label] = append(classIndices[label], i)
	}
	labels := lo.Keys(classIndices)
	slices.Sort(labels)

	if skf.Shuffle {
		r := rand.New(rand.NewPCG(skf.RandomSeed, skf.RandomSeed))
		for _, label := range labels {
			indices := classIndices[label]
			r.Shuffle(len(indices), func(i, j int) {
				indices[i], indices[j] = indices[j], indices[i]
			})
		}
	}

	tests := make([][]int, skf.NSplits)
	next := 0
	for _, label := range labels {
		for _, idx := range classIndices[label] {
			tests[next] = append(tests[next], idx)
			next = (next + 1) % skf.NSplits
		}
	}

	folds := make([]Fold, skf.NSplits)
	for i, test := range tests {
		slices.Sort(test)
		inTest := make(map[int]bool, len(test))
		for _, idx := range test {
			inTest[idx] = true
		}
		folds[i] = Fold{
			TrainIndices: lo.Filter(lo.Range(nSamples), func(j int, _ int) bool { return !inTest[j] }),
			TestIndices:  test,
		}
	}
	return folds, nil
}

func checkSplits(nSplits, nSamples int) error {
	if nSplits > nSamples {
		return errors.NewValueError("cross-validation", fmt.Sprintf(
			"Cannot have number of splits n_splits=%d greater than the number of samples: n_samples=%d.",
			nSplits, nSamples))
	}
	return nil
}
