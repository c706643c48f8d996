package metrics

import (
	"slices"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/automl/pkg/errors"
)

// Accuracy は正解率を計算する
func Accuracy(yTrue, yPred mat.Vector) (float64, error) {
	n, err := checkPair("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// ClassificationError は誤分類率（1 - 正解率）を計算する
func ClassificationError(yTrue, yPred mat.Vector) (float64, error) {
	acc, err := Accuracy(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return 1 - acc, nil
}

// ConfusionMatrix は混同行列。行が正解ラベル、列が予測ラベルで、
// Labels は yTrue と yPred に現れるラベルの昇順
type ConfusionMatrix struct {
	Labels []float64
	Counts *mat.Dense
}

// NewConfusionMatrix は混同行列を計算する
func NewConfusionMatrix(yTrue, yPred mat.Vector) (*ConfusionMatrix, error) {
	n, err := checkPair("ConfusionMatrix", yTrue, yPred)
	if err != nil {
		return nil, err
	}
	t := mat.Col(nil, 0, yTrue)
	p := mat.Col(nil, 0, yPred)
	labels := lo.Uniq(append(slices.Clone(t), p...))
	slices.Sort(labels)

	index := make(map[float64]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}
	counts := mat.NewDense(len(labels), len(labels), nil)
	for i := 0; i < n; i++ {
		r, c := index[t[i]], index[p[i]]
		counts.Set(r, c, counts.At(r, c)+1)
	}
	return &ConfusionMatrix{Labels: labels, Counts: counts}, nil
}

// Count は正解 trueLabel を predLabel と予測した件数を返す
func (cm *ConfusionMatrix) Count(trueLabel, predLabel float64) int {
	if cm == nil {
		return 0
	}
	r := slices.Index(cm.Labels, trueLabel)
	c := slices.Index(cm.Labels, predLabel)
	if r < 0 || c < 0 {
		return 0
	}
	return int(cm.Counts.At(r, c))
}

// ClassMetrics はクラスごと（または平均）の適合率・再現率・F1・件数
type ClassMetrics struct {
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// ClassificationReport は scikit-learn の classification_report 相当の集計
type ClassificationReport struct {
	Labels      []float64
	PerClass    []ClassMetrics
	Accuracy    float64
	MacroAvg    ClassMetrics
	WeightedAvg ClassMetrics
	Support     int
}

// NewClassificationReport は混同行列からクラスごとの指標を計算する。
// 分母が 0 の指標は 0 とし、UndefinedMetricWarning を出す。
func NewClassificationReport(yTrue, yPred mat.Vector) (*ClassificationReport, error) {
	cm, err := NewConfusionMatrix(yTrue, yPred)
	if err != nil {
		return nil, err
	}
	k := len(cm.Labels)
	report := &ClassificationReport{
		Labels:   cm.Labels,
		PerClass: make([]ClassMetrics, k),
		Support:  yTrue.Len(),
	}

	var correct float64
	for i := 0; i < k; i++ {
		tp := cm.Counts.At(i, i)
		correct += tp
		support := floats.Sum(mat.Row(nil, i, cm.Counts))
		predicted := floats.Sum(mat.Col(nil, i, cm.Counts))

		m := ClassMetrics{Support: int(support)}
		m.Precision = ratio("precision", "no predicted samples", tp, predicted)
		m.Recall = ratio("recall", "no true samples", tp, support)
		m.F1 = errors.SafeDivide(2*m.Precision*m.Recall, m.Precision+m.Recall)
		report.PerClass[i] = m
	}
	report.Accuracy = correct / float64(report.Support)

	for _, m := range report.PerClass {
		report.MacroAvg.Precision += m.Precision / float64(k)
		report.MacroAvg.Recall += m.Recall / float64(k)
		report.MacroAvg.F1 += m.F1 / float64(k)

		w := float64(m.Support) / float64(report.Support)
		report.WeightedAvg.Precision += m.Precision * w
		report.WeightedAvg.Recall += m.Recall * w
		report.WeightedAvg.F1 += m.F1 * w
	}
	report.MacroAvg.Support = report.Support
	report.WeightedAvg.Support = report.Support
	return report, nil
}

func ratio(metric, condition string, num, den float64) float64 {
	if den == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning(metric, condition, 0))
		return 0
	}
	return num / den
}

// Class はラベルに対応する指標を返す
func (r *ClassificationReport) Class(label float64) (ClassMetrics, bool) {
	if r == nil {
		return ClassMetrics{}, false
	}
	i := slices.Index(r.Labels, label)
	if i < 0 {
		return ClassMetrics{}, false
	}
	return r.PerClass[i], true
}
