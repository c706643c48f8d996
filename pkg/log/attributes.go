package log

// 属性キーは "領域.名前" の形で統一し、ログ検索でまとめて絞り込めるようにする。

// Model and operation
const (
	// ModelKindKey identifies the model family selected for a run ("Classification", "Regression").
	ModelKindKey = "model.kind"

	// OperationKey is one of the Operation* values below.
	OperationKey = "ml.operation"

	// ComponentKey is set by GetLoggerWithName (e.g. "pipeline", "RandomForestClassifier").
	ComponentKey = "ml.component"
)

// Pipeline context, shared by every line of one run
const (
	RunIDKey = "pipeline.run_id"

	// StageKey names the pipeline stage (save, load, impute, slice, split, train, evaluate).
	StageKey = "pipeline.stage"

	StrategyKey  = "pipeline.strategy"
	ConditionKey = "pipeline.condition"
	PathKey      = "pipeline.path"
)

// Data shape
const (
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"
	TargetKey   = "data.target"
	TestSizeKey = "data.test_size"

	// MissingKey records the number of missing cells before imputation.
	MissingKey = "data.missing"
)

// Timing and scores
const (
	DurationMsKey = "perf.duration_ms"
	AccuracyKey   = "metrics.accuracy"
	RMSEKey       = "metrics.rmse"

	// MetricNameKey is the label printed in the result line.
	MetricNameKey = "metrics.name"

	// CVScoreKey records the mean cross-validated score of a grid candidate.
	CVScoreKey    = "metrics.cv_score"
	CandidatesKey = "search.candidates"
	FoldsKey      = "search.folds"
)

const (
	// ErrorCategoryKey records the category (validation, resource, computation).
	ErrorCategoryKey = "error.category"

	// HyperParamsKey contains model hyperparameters as a structured object.
	HyperParamsKey = "model.hyperparams"

	RandomSeedKey = "config.random_seed"
)

const (
	OperationFit    = "fit"
	OperationSearch = "search"
)
