// Package report は評価結果を表（tablewriter）と図（gonum/plot）として出力する。
package report

import (
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"

	"github.com/YuminosukeSato/automl/automl"
	"github.com/YuminosukeSato/automl/metrics"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/sklearn/model_selection"
)

// LabelFunc は符号化されたクラス番号を表示名に変換する
type LabelFunc func(code float64) string

// NumericLabels はクラス番号をそのまま表示する
func NumericLabels(code float64) string {
	return strconv.FormatFloat(code, 'g', -1, 64)
}

func f2(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

func render(w io.Writer, header []string, rows [][]string) error {
	table := tablewriter.NewWriter(w)
	table.Header(lo.ToAnySlice(header)...)
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return errors.Wrap(err, "append row")
		}
	}
	if err := table.Render(); err != nil {
		return errors.Wrap(err, "render table")
	}
	return nil
}

// RenderClassificationReport はクラスごとの precision / recall / f1-score / support を表にする
func RenderClassificationReport(w io.Writer, rep *metrics.ClassificationReport, label LabelFunc) error {
	if rep == nil {
		return errors.NewValueError("RenderClassificationReport", "report is nil")
	}
	if label == nil {
		label = NumericLabels
	}
	row := func(name string, m metrics.ClassMetrics) []string {
		return []string{name, f2(m.Precision), f2(m.Recall), f2(m.F1), strconv.Itoa(m.Support)}
	}
	rows := make([][]string, 0, len(rep.Labels)+3)
	for i, l := range rep.Labels {
		rows = append(rows, row(label(l), rep.PerClass[i]))
	}
	rows = append(rows,
		[]string{"accuracy", "", "", f2(rep.Accuracy), strconv.Itoa(rep.Support)},
		row("macro avg", rep.MacroAvg),
		row("weighted avg", rep.WeightedAvg),
	)
	return render(w, []string{"class", "precision", "recall", "f1-score", "support"}, rows)
}

// RenderConfusionMatrix は行を正解、列を予測とする混同行列を表にする
func RenderConfusionMatrix(w io.Writer, cm *metrics.ConfusionMatrix, label LabelFunc) error {
	if cm == nil {
		return errors.NewValueError("RenderConfusionMatrix", "confusion matrix is nil")
	}
	if label == nil {
		label = NumericLabels
	}
	names := lo.Map(cm.Labels, func(l float64, _ int) string { return label(l) })
	header := append([]string{"true / pred"}, names...)
	rows := make([][]string, len(cm.Labels))
	for i := range cm.Labels {
		rows[i] = make([]string, 0, len(cm.Labels)+1)
		rows[i] = append(rows[i], names[i])
		for j := range cm.Labels {
			rows[i] = append(rows[i], strconv.Itoa(int(cm.Counts.At(i, j))))
		}
	}
	return render(w, header, rows)
}

// RenderGridResults はグリッドサーチの候補を順位順に表にする
func RenderGridResults(w io.Writer, results []model_selection.CVResult) error {
	sorted := slices.Clone(results)
	slices.SortStableFunc(sorted, func(a, b model_selection.CVResult) int { return a.Rank - b.Rank })
	rows := lo.Map(sorted, func(r model_selection.CVResult, _ int) []string {
		return []string{
			strconv.Itoa(r.Rank),
			model_selection.FormatParams(r.Params),
			strconv.FormatFloat(r.MeanScore, 'f', 5, 64),
			strconv.FormatFloat(r.StdScore, 'f', 5, 64),
		}
	})
	return render(w, []string{"rank", "params", "mean score", "std score"}, rows)
}

// RenderRegressionSummary は回帰の評価指標を表にする
func RenderRegressionSummary(w io.Writer, s metrics.RegressionSummary) error {
	rows := [][]string{
		{"MSE", automl.FormatFloat(s.MSE)},
		{"RMSE", automl.FormatFloat(s.RMSE)},
		{"MAE", automl.FormatFloat(s.MAE)},
		{"R2", automl.FormatFloat(s.R2)},
	}
	return render(w, []string{"metric", "value"}, rows)
}

// RenderFeatureImportances は特徴量重要度を降順で表にする
func RenderFeatureImportances(w io.Writer, features []string, importances []float64) error {
	if len(features) != len(importances) {
		return errors.NewDimensionError("RenderFeatureImportances", len(features), len(importances), 0)
	}
	order := lo.Range(len(features))
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case importances[a] > importances[b]:
			return -1
		case importances[a] < importances[b]:
			return 1
		}
		return 0
	})
	rows := lo.Map(order, func(i int, _ int) []string {
		return []string{features[i], strconv.FormatFloat(importances[i], 'f', 5, 64)}
	})
	return render(w, []string{"feature", "importance"}, rows)
}

// Render は詳細な評価をまとめて出力する
func Render(w io.Writer, d *automl.Details) error {
	if d == nil {
		return errors.NewValueError("Render", "details are nil")
	}
	section := func(title string) {
		fmt.Fprintf(w, "\n%s\n", title)
	}

	switch d.Kind {
	case automl.Classification:
		section("Classification report")
		if err := RenderClassificationReport(w, d.Classification, d.LabelName); err != nil {
			return err
		}
		section("Confusion matrix")
		if err := RenderConfusionMatrix(w, d.Confusion, d.LabelName); err != nil {
			return err
		}
	case automl.Regression:
		if d.Regression == nil {
			return errors.NewValueError("Render", "regression summary is missing")
		}
		section("Regression metrics")
		if err := RenderRegressionSummary(w, *d.Regression); err != nil {
			return err
		}
	}

	if len(d.FeatureImportances) > 0 {
		section("Feature importances")
		if err := RenderFeatureImportances(w, d.Features, d.FeatureImportances); err != nil {
			return err
		}
	}
	if len(d.CVResults) > 0 {
		section("Grid search (best: " + model_selection.FormatParams(d.BestParams) + ")")
		if err := RenderGridResults(w, d.CVResults); err != nil {
			return err
		}
	}
	return nil
}
