package preprocessing

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/YuminosukeSato/automl/dataset"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/pkg/log"
)

// DefaultSplitSeed は訓練/テスト分割の既定の乱数シード
const DefaultSplitSeed = 42

// Split は TrainTestSplit の結果
type Split struct {
	// XTrain, XTest は目的変数列を除いた特徴量テーブル
	XTrain, XTest *dataset.Table
	// YTrain, YTest は目的変数の値
	YTrain, YTest []dataset.Value
	// TargetKind は目的変数列の型
	TargetKind dataset.Kind
	// TrainIndex, TestIndex は元のテーブルにおける行番号
	TrainIndex, TestIndex []int
}

// TrainTestSplit は目的変数列を分離し、行を訓練用とテスト用に分割する
//
// パラメータ:
//   - t: 入力テーブル
//   - target: 目的変数の列名
//   - testSize: テスト用に回す行の割合 (0, 1)
//   - seed: シャッフルの乱数シード（同じ入力とシードなら同じ分割になる）
//
// テスト行数は ceil(n * testSize)。目的変数列が存在しない場合は ColumnNotFoundError。
func TrainTestSplit(t *dataset.Table, target string, testSize float64, seed uint64) (*Split, error) {
	if !t.HasColumn(target) {
		return nil, errors.NewColumnNotFoundError("split", target, t.Columns())
	}
	if !(testSize > 0 && testSize < 1) {
		return nil, errors.NewValidationError("test_size", "must be in the open interval (0, 1)", testSize)
	}
	n := t.NRows()
	nTest := int(math.Ceil(testSize * float64(n)))
	nTrain := n - nTest
	if nTest == 0 || nTrain == 0 {
		return nil, errors.NewValueError("split", fmt.Sprintf(
			"with n_samples=%d and test_size=%v, the resulting train set or test set will be empty", n, testSize))
	}

	features, err := t.DropColumn(target)
	if err != nil {
		return nil, err
	}
	y, _ := t.Column(target)
	kind, _ := t.Kind(target)

	r := rand.New(rand.NewPCG(seed, seed))
	perm := r.Perm(n)
	testIdx := perm[:nTest]
	trainIdx := perm[nTest:]

	s := &Split{
		XTrain:     features.SelectRows(trainIdx),
		XTest:      features.SelectRows(testIdx),
		YTrain:     pick(y, trainIdx),
		YTest:      pick(y, testIdx),
		TargetKind: kind,
		TrainIndex: append([]int(nil), trainIdx...),
		TestIndex:  append([]int(nil), testIdx...),
	}

	log.GetLoggerWithName("preprocessing").Debug("Dataset split",
		log.TargetKey, target,
		log.TestSizeKey, testSize,
		log.SamplesKey, n,
		log.RandomSeedKey, seed,
	)
	return s, nil
}

func pick(values []dataset.Value, idx []int) []dataset.Value {
	out := make([]dataset.Value, len(idx))
	for i, r := range idx {
		out[i] = values[r]
	}
	return out
}
