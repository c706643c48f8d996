// Package config loads the automl settings from an optional file and AUTOML_*
// environment variables on top of built-in defaults.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/YuminosukeSato/automl/automl"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/preprocessing"
	"github.com/YuminosukeSato/automl/sklearn/model_selection"
	"github.com/YuminosukeSato/automl/sklearn/tree"
	"github.com/YuminosukeSato/automl/storage"
)

// EnvPrefix is the prefix of environment variables, e.g. AUTOML_FOREST_N_ESTIMATORS.
const EnvPrefix = "AUTOML"

// Config is the configuration of a pipeline run and of the web server.
type Config struct {
	WorkDir  string       `mapstructure:"work_dir" validate:"required"`
	LogLevel string       `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	Seeds    SeedConfig   `mapstructure:"seeds"`
	Forest   ForestConfig `mapstructure:"forest"`
	Search   SearchConfig `mapstructure:"search"`
	Server   ServerConfig `mapstructure:"server"`
	Report   ReportConfig `mapstructure:"report"`
}

// SeedConfig holds the random seeds of the split and of the model.
type SeedConfig struct {
	Split uint64 `mapstructure:"split"`
	Model int64  `mapstructure:"model" validate:"gte=0"`
}

// ForestConfig is the random forest configuration.
type ForestConfig struct {
	NEstimators     int `mapstructure:"n_estimators" validate:"gte=1"`
	MaxDepth        int `mapstructure:"max_depth" validate:"gte=0"`
	MinSamplesSplit int `mapstructure:"min_samples_split" validate:"gte=2"`
	MinSamplesLeaf  int `mapstructure:"min_samples_leaf" validate:"gte=1"`
	// MaxFeatures is "", "sqrt", "log2", an integer count or a fraction in (0, 1].
	MaxFeatures string `mapstructure:"max_features"`
}

type SearchConfig struct {
	CVFolds int `mapstructure:"cv_folds" validate:"gte=2"`
}

type ServerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port" validate:"gte=1,lte=65535"`
	MaxUploadMB int    `mapstructure:"max_upload_mb" validate:"gte=1"`
}

type ReportConfig struct {
	PlotDir string `mapstructure:"plot_dir"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		WorkDir:  storage.DefaultDir,
		LogLevel: "info",
		Seeds: SeedConfig{
			Split: preprocessing.DefaultSplitSeed,
			Model: automl.DefaultModelSeed,
		},
		Forest: ForestConfig{
			NEstimators:     100,
			MinSamplesSplit: 2,
			MinSamplesLeaf:  1,
		},
		Search: SearchConfig{CVFolds: model_selection.DefaultCV},
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        7860,
			MaxUploadMB: 32,
		},
	}
}

func setDefault(v *viper.Viper) {
	d := Default()
	v.SetDefault("work_dir", d.WorkDir)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("seeds.split", d.Seeds.Split)
	v.SetDefault("seeds.model", d.Seeds.Model)
	v.SetDefault("forest.n_estimators", d.Forest.NEstimators)
	v.SetDefault("forest.max_depth", d.Forest.MaxDepth)
	v.SetDefault("forest.min_samples_split", d.Forest.MinSamplesSplit)
	v.SetDefault("forest.min_samples_leaf", d.Forest.MinSamplesLeaf)
	v.SetDefault("forest.max_features", d.Forest.MaxFeatures)
	v.SetDefault("search.cv_folds", d.Search.CVFolds)
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.max_upload_mb", d.Server.MaxUploadMB)
	v.SetDefault("report.plot_dir", d.Report.PlotDir)
}

// Load reads the configuration. path may be empty, in which case only the
// defaults and environment variables are used. The file format follows the
// extension (.toml, .yaml, .json).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefault(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			return nil, errors.NewFileNotFoundError(path)
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.NewParseError("config", path, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, errors.NewParseError("config", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration and returns the first violation.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return errors.NewValidationError(fe.Namespace(), "failed on the '"+fe.Tag()+"' rule", fe.Value())
		}
		return errors.Wrap(err, "validate config")
	}
	if _, err := c.Forest.maxFeatures(); err != nil {
		return err
	}
	return nil
}

func (f ForestConfig) maxFeatures() (interface{}, error) {
	s := strings.TrimSpace(f.MaxFeatures)
	if s == "" {
		return nil, nil
	}
	var value interface{} = s
	if i, err := strconv.Atoi(s); err == nil {
		value = i
	} else if x, err := strconv.ParseFloat(s, 64); err == nil {
		value = x
	}
	return tree.NormalizeMaxFeatures(value)
}

// ForestConfig converts the forest section to the estimator factory settings.
func (c *Config) ForestConfig() (automl.ForestConfig, error) {
	mf, err := c.Forest.maxFeatures()
	if err != nil {
		return automl.ForestConfig{}, err
	}
	return automl.ForestConfig{
		NEstimators:     c.Forest.NEstimators,
		MaxDepth:        c.Forest.MaxDepth,
		MinSamplesSplit: c.Forest.MinSamplesSplit,
		MinSamplesLeaf:  c.Forest.MinSamplesLeaf,
		MaxFeatures:     mf,
		RandomState:     c.Seeds.Model,
	}, nil
}

// PipelineOptions returns the pipeline options that apply this configuration.
func (c *Config) PipelineOptions() ([]automl.PipelineOption, error) {
	forest, err := c.ForestConfig()
	if err != nil {
		return nil, err
	}
	return []automl.PipelineOption{
		automl.WithWorkDir(c.WorkDir),
		automl.WithSplitSeed(c.Seeds.Split),
		automl.WithForest(forest),
		automl.WithCVFolds(c.Search.CVFolds),
	}, nil
}

// Pipeline builds a pipeline configured by c. Extra options are applied last.
func (c *Config) Pipeline(extra ...automl.PipelineOption) (*automl.Pipeline, error) {
	opts, err := c.PipelineOptions()
	if err != nil {
		return nil, err
	}
	return automl.NewPipeline(append(opts, extra...)...), nil
}
