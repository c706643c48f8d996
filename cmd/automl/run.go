package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/YuminosukeSato/automl/automl"
	"github.com/YuminosukeSato/automl/preprocessing"
	"github.com/YuminosukeSato/automl/report"
	"github.com/YuminosukeSato/automl/storage"
)

type runOptions struct {
	file      string
	target    string
	testSize  float64
	model     string
	strategy  string
	condition string
	params    string
	report    bool
	plotDir   string
}

func addRunFlags(flags *pflag.FlagSet, o *runOptions) {
	flags.StringVarP(&o.file, "file", "f", "", "CSV file to train on")
	flags.StringVarP(&o.target, "target", "t", "", "name of the target column")
	flags.Float64Var(&o.testSize, "test-size", automl.DefaultTestSize, "fraction of rows held out for evaluation")
	flags.StringVarP(&o.model, "model", "m", automl.Classification.String(), "model type: Classification or Regression")
	flags.StringVarP(&o.strategy, "strategy", "s", preprocessing.Mean.String(), "missing value strategy: Mean, Median, Mode or Drop")
	flags.StringVar(&o.condition, "condition", "", "row filter expression, e.g. \"age > 30\"")
	flags.StringVar(&o.params, "params", "", "hyperparameter grid as JSON or YAML")
	flags.BoolVar(&o.report, "report", false, "print the classification report or regression metrics")
	flags.StringVar(&o.plotDir, "plot-dir", "", "directory for feature importance and prediction plots")
}

func (o *runOptions) request() (automl.Request, error) {
	kind, err := automl.ParseModelKind(o.model)
	if err != nil {
		return automl.Request{}, err
	}
	strategy, err := preprocessing.ParseStrategy(o.strategy)
	if err != nil {
		return automl.Request{}, err
	}
	req := automl.Request{
		Target:    o.target,
		TestSize:  o.testSize,
		Kind:      kind,
		Strategy:  strategy,
		Condition: o.condition,
		Params:    o.params,
	}
	if o.file != "" {
		req.Upload = storage.PathUpload{Path: o.file}
	}
	return req, nil
}

func newRunCommand(a *app) *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once and print the model performance.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := o.request()
			if err != nil {
				return err
			}
			plotDir := o.plotDir
			if plotDir == "" {
				plotDir = a.cfg.Report.PlotDir
			}
			details := o.report || plotDir != ""
			p, err := a.cfg.Pipeline(automl.WithDetails(details))
			if err != nil {
				return err
			}

			res, err := p.Run(cmd.Context(), req)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, res.Text)
			if res.Details == nil {
				return nil
			}
			if o.report {
				if err := report.Render(out, res.Details); err != nil {
					return err
				}
			}
			if plotDir != "" {
				paths, err := report.Plots(res.Details, plotDir)
				if err != nil {
					return err
				}
				for _, path := range paths {
					fmt.Fprintf(out, "plot saved: %s\n", path)
				}
			}
			return nil
		},
	}
	addRunFlags(cmd.Flags(), o)
	return cmd
}
