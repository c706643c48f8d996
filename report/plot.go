package report

import (
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/automl/automl"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/pkg/log"
)

// 出力ファイル名（Plots が使う）
const (
	FeatureImportancesFile = "feature_importances.png"
	PredictionsFile        = "predictions.png"
)

// PlotFeatureImportances は特徴量重要度の棒グラフを path に保存する。
// 形式は拡張子（.png, .svg, .pdf など）で決まる。
func PlotFeatureImportances(path string, names []string, importances []float64) error {
	if len(names) != len(importances) {
		return errors.NewDimensionError("PlotFeatureImportances", len(names), len(importances), 0)
	}
	if len(importances) == 0 {
		return errors.NewValueError("PlotFeatureImportances", "no feature importances to plot")
	}

	p := plot.New()
	p.Title.Text = "Feature importances"
	p.Y.Label.Text = "importance"

	bars, err := plotter.NewBarChart(plotter.Values(importances), vg.Points(20))
	if err != nil {
		return errors.Wrap(err, "feature importance bars")
	}
	p.Add(bars)
	p.NominalX(names...)
	return save(p, path)
}

// PlotPredictions は正解値と予測値の散布図を y=x の参照線付きで path に保存する
func PlotPredictions(path string, yTrue, yPred []float64) error {
	if len(yTrue) != len(yPred) {
		return errors.NewDimensionError("PlotPredictions", len(yTrue), len(yPred), 0)
	}
	if len(yTrue) == 0 {
		return errors.NewValueError("PlotPredictions", "no predictions to plot")
	}

	pts := make(plotter.XYs, len(yTrue))
	for i := range yTrue {
		pts[i].X = yTrue[i]
		pts[i].Y = yPred[i]
	}
	p := plot.New()
	p.Title.Text = "Predicted vs actual"
	p.X.Label.Text = "actual"
	p.Y.Label.Text = "predicted"
	p.Add(plotter.NewGrid())

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return errors.Wrap(err, "prediction scatter")
	}
	low := min(floats.Min(yTrue), floats.Min(yPred))
	high := max(floats.Max(yTrue), floats.Max(yPred))
	ref, err := plotter.NewLine(plotter.XYs{{X: low, Y: low}, {X: high, Y: high}})
	if err != nil {
		return errors.Wrap(err, "reference line")
	}
	ref.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(scatter, ref)
	return save(p, path)
}

func save(p *plot.Plot, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.NewResourceError("mkdir", filepath.Dir(path), err)
	}
	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.NewResourceError("plot", path, err)
	}
	log.GetLoggerWithName("report").Debug("Plot saved", log.PathKey, path)
	return nil
}

// Plots は d から作れる図を dir に保存し、保存したパスを返す。
// 特徴量重要度は常に、予測の散布図は回帰の場合のみ出力する。
func Plots(d *automl.Details, dir string) ([]string, error) {
	if d == nil {
		return nil, errors.NewValueError("Plots", "details are nil")
	}
	var paths []string
	if len(d.FeatureImportances) > 0 {
		path := filepath.Join(dir, FeatureImportancesFile)
		if err := PlotFeatureImportances(path, d.Features, d.FeatureImportances); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	if d.Kind == automl.Regression {
		path := filepath.Join(dir, PredictionsFile)
		if err := PlotPredictions(path, d.YTrue, d.YPred); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
