// Package preprocessing は欠損値処理、行フィルタ、訓練/テスト分割を提供する
package preprocessing

import (
	"math"
	"slices"
	"time"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/automl/dataset"
	"github.com/YuminosukeSato/automl/pkg/log"
)

// HandleMissing は指定された戦略でテーブルの欠損値を処理する
//
// パラメータ:
//   - t: 入力テーブル（変更されない）
//   - strategy: 欠損値の処理方法
//
// 戻り値:
//   - *dataset.Table: 欠損値を処理した新しいテーブル
//   - error: 未対応の戦略の場合 UnsupportedError
//
// Mean と Median は数値列にのみ適用され、カテゴリ列の欠損はそのまま残る。
// Mode は全ての列に適用され、最頻値が複数ある場合は最小の値を使う。
// 列の値が全て欠損している場合、その列は補完されない。
// Drop は欠損値を一つでも含む行を削除し、列構成は変更しない。
//
// 使用例:
//
//	cleaned, err := preprocessing.HandleMissing(tbl, preprocessing.Median)
func HandleMissing(t *dataset.Table, strategy Strategy) (*dataset.Table, error) {
	start := time.Now()
	var (
		out *dataset.Table
		err error
	)
	switch strategy {
	case Mean:
		out, err = fillNumeric(t, columnMean)
	case Median:
		out, err = fillNumeric(t, columnMedian)
	case Mode:
		out, err = fillMode(t)
	case Drop:
		out = dropMissing(t)
	default:
		return nil, unsupportedStrategy(strategy)
	}
	if err != nil {
		return nil, err
	}

	log.GetLoggerWithName("preprocessing").Debug("Missing values handled",
		log.StrategyKey, strategy.String(),
		log.MissingKey, t.MissingCount(),
		log.SamplesKey, out.NRows(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return out, nil
}

// presentFloats は欠損でない数値を返す
func presentFloats(values []dataset.Value) []float64 {
	return lo.FilterMap(values, func(v dataset.Value, _ int) (float64, bool) {
		return v.Num, !v.Missing
	})
}

func columnMean(values []dataset.Value) float64 {
	xs := presentFloats(values)
	if len(xs) == 0 {
		return math.NaN()
	}
	return stat.Mean(xs, nil)
}

// columnMedian は偶数個の場合に中央の二値の平均を返す
func columnMedian(values []dataset.Value) float64 {
	xs := presentFloats(values)
	n := len(xs)
	if n == 0 {
		return math.NaN()
	}
	slices.Sort(xs)
	if n%2 == 1 {
		return xs[n/2]
	}
	return (xs[n/2-1] + xs[n/2]) / 2
}

func fillNumeric(t *dataset.Table, statistic func([]dataset.Value) float64) (*dataset.Table, error) {
	out := t
	for _, c := range t.Columns() {
		kind, _ := t.Kind(c)
		if kind != dataset.Numeric {
			continue
		}
		values, _ := t.Column(c)
		fill := statistic(values)
		if math.IsNaN(fill) {
			continue
		}
		filled, changed := fillWith(values, dataset.Num(fill))
		if !changed {
			continue
		}
		var err error
		if out, err = out.ReplaceColumn(c, kind, filled); err != nil {
			return nil, err
		}
	}
	if out == t {
		return t.Clone(), nil
	}
	return out, nil
}

func fillMode(t *dataset.Table) (*dataset.Table, error) {
	out := t
	for _, c := range t.Columns() {
		kind, _ := t.Kind(c)
		values, _ := t.Column(c)
		mode, ok := columnMode(kind, values)
		if !ok {
			continue
		}
		filled, changed := fillWith(values, mode)
		if !changed {
			continue
		}
		var err error
		if out, err = out.ReplaceColumn(c, kind, filled); err != nil {
			return nil, err
		}
	}
	if out == t {
		return t.Clone(), nil
	}
	return out, nil
}

// columnMode は最頻値を返す。同数の場合は最小の値を選ぶ
func columnMode(kind dataset.Kind, values []dataset.Value) (dataset.Value, bool) {
	counts := make(map[string]int)
	first := make(map[string]dataset.Value)
	for _, v := range values {
		if v.Missing {
			continue
		}
		k := v.Key(kind)
		counts[k]++
		if _, ok := first[k]; !ok {
			first[k] = v
		}
	}
	if len(counts) == 0 {
		return dataset.Value{}, false
	}

	var (
		best      dataset.Value
		bestCount int
	)
	for k, n := range counts {
		v := first[k]
		if n > bestCount || (n == bestCount && dataset.Less(kind, v, best)) {
			best, bestCount = v, n
		}
	}
	return best, true
}

func fillWith(values []dataset.Value, fill dataset.Value) ([]dataset.Value, bool) {
	changed := false
	out := make([]dataset.Value, len(values))
	for i, v := range values {
		if v.Missing {
			out[i] = fill
			changed = true
		} else {
			out[i] = v
		}
	}
	return out, changed
}

func dropMissing(t *dataset.Table) *dataset.Table {
	keep := lo.Filter(lo.Range(t.NRows()), func(i int, _ int) bool {
		return !t.RowHasMissing(i)
	})
	return t.SelectRows(keep)
}
