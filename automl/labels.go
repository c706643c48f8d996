package automl

import (
	"slices"

	"github.com/samber/lo"

	"github.com/YuminosukeSato/automl/dataset"
	"github.com/YuminosukeSato/automl/pkg/errors"
)

// LabelEncoder は目的変数のクラスを 0..k-1 の整数に対応付ける
type LabelEncoder struct {
	kind    dataset.Kind
	classes []dataset.Value
	index   map[string]int
}

// FitLabelEncoder は values に現れるクラスを昇順に並べて符号化器を作る
func FitLabelEncoder(kind dataset.Kind, values []dataset.Value) (*LabelEncoder, error) {
	if lo.ContainsBy(values, func(v dataset.Value) bool { return v.Missing }) {
		return nil, errors.NewValueError("LabelEncoder.Fit", "Input y contains NaN")
	}
	classes := lo.UniqBy(values, func(v dataset.Value) string { return v.Key(kind) })
	slices.SortFunc(classes, func(a, b dataset.Value) int {
		switch {
		case dataset.Less(kind, a, b):
			return -1
		case dataset.Less(kind, b, a):
			return 1
		}
		return 0
	})
	index := make(map[string]int, len(classes))
	for i, c := range classes {
		index[c.Key(kind)] = i
	}
	return &LabelEncoder{kind: kind, classes: classes, index: index}, nil
}

// Encode はクラスを整数に変換する。学習時に現れなかった値は -1
func (e *LabelEncoder) Encode(values []dataset.Value) []float64 {
	return lo.Map(values, func(v dataset.Value, _ int) float64 {
		if i, ok := e.index[v.Key(e.kind)]; ok && !v.Missing {
			return float64(i)
		}
		return -1
	})
}

// Decode は整数をクラスに戻す
func (e *LabelEncoder) Decode(codes []float64) []dataset.Value {
	return lo.Map(codes, func(c float64, _ int) dataset.Value {
		i := int(c)
		if i < 0 || i >= len(e.classes) {
			return dataset.Missing()
		}
		return e.classes[i]
	})
}

// Classes はクラスの表示名を符号の順に返す
func (e *LabelEncoder) Classes() []string {
	return lo.Map(e.classes, func(v dataset.Value, _ int) string { return v.Format(e.kind) })
}
