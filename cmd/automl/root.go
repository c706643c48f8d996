package main

import (
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/automl/config"
	"github.com/YuminosukeSato/automl/pkg/log"
)

// app はサブコマンド間で共有する状態
type app struct {
	configPath string
	logLevel   string
	cfg        *config.Config
}

func newRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "automl",
		Short:        "Train and evaluate a random forest on a CSV file.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "path to a config file (toml, yaml or json)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error (overrides the config)")

	root.AddCommand(newRunCommand(a), newServeCommand(a), newVersionCommand())
	return root
}

// setup は設定を読み込み、ログレベルを反映する（version では何もしない）
func (a *app) setup(cmd *cobra.Command) error {
	if cmd.Name() == "version" {
		return nil
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	log.Provider().SetLevel(level)
	log.SetupLogger(cfg.LogLevel)
	a.cfg = cfg

	log.GetLoggerWithName("cli").Debug("Config loaded", log.PathKey, a.configPath, "work_dir", cfg.WorkDir)
	return nil
}
