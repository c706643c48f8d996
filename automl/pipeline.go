package automl

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/YuminosukeSato/automl/dataset"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/pkg/log"
	"github.com/YuminosukeSato/automl/preprocessing"
	"github.com/YuminosukeSato/automl/storage"
)

// NoFileMessage はファイルが指定されなかった場合の結果文字列
const NoFileMessage = "File has not been uploaded."

// パイプラインの段階名
const (
	StageValidate = "validate"
	StageSave     = "save"
	StageLoad     = "load"
	StageImpute   = "impute"
	StageSlice    = "slice"
	StageSplit    = "split"
	StageTrain    = "train"
	StageEvaluate = "evaluate"
	StageReport   = "report"
)

// Request は1回の実行の入力
type Request struct {
	// Upload が nil の場合は NoFileMessage を返す
	Upload    storage.Upload
	Target    string                 `validate:"required"`
	TestSize  float64                `validate:"gt=0,lt=1"`
	Kind      ModelKind              `validate:"oneof=0 1"`
	Strategy  preprocessing.Strategy `validate:"oneof=0 1 2 3"`
	Condition string
	// Params はハイパーパラメータグリッドの JSON（空なら直接学習）
	Params string
}

// DefaultTestSize はテストデータの割合の既定値
const DefaultTestSize = 0.2

// Result は1回の実行の結果
type Result struct {
	RunID string
	// Text は結果文字列（`Model Performance - "<name>": <value>` または NoFileMessage）
	Text       string
	Evaluation *Evaluation
	// Details は WithDetails が有効な場合のみ設定される
	Details *Details
}

// Pipeline は保存・読み込み・補完・抽出・分割・学習・評価を順に実行する
type Pipeline struct {
	files     *storage.Handler
	splitSeed uint64
	train     TrainOptions
	details   bool

	validate *validator.Validate
	logger   log.Logger
}

// PipelineOption は Pipeline の関数オプション
type PipelineOption func(*Pipeline)

// WithWorkDir はアップロードの保存先ディレクトリを設定する
func WithWorkDir(dir string) PipelineOption {
	return func(p *Pipeline) { p.files = storage.NewHandler(dir) }
}

// WithSplitSeed は訓練/テスト分割の乱数シードを設定する
func WithSplitSeed(seed uint64) PipelineOption {
	return func(p *Pipeline) { p.splitSeed = seed }
}

// WithForest はランダムフォレストの設定を変更する
func WithForest(cfg ForestConfig) PipelineOption {
	return func(p *Pipeline) { p.train.Forest = cfg }
}

// WithCVFolds はグリッドサーチの分割数を設定する
func WithCVFolds(n int) PipelineOption {
	return func(p *Pipeline) { p.train.CVFolds = n }
}

// WithDetails は分類レポートなどの詳細な評価を Result に含める
func WithDetails(enabled bool) PipelineOption {
	return func(p *Pipeline) { p.details = enabled }
}

// NewPipeline は新しい Pipeline を作成する
func NewPipeline(opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		files:     storage.NewHandler(storage.DefaultDir),
		splitSeed: preprocessing.DefaultSplitSeed,
		train:     DefaultTrainOptions(),
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    log.GetLoggerWithName("pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run は req を実行する。
//
// ファイルが無い場合は Text が NoFileMessage の Result を nil エラーで返す。
// 各段階の失敗は *errors.PipelineError として返り、Error() は
// "An unhandled Exception occurred. Error <元のメッセージ>" になる。
// 段階名と分類（validation, resource, computation）は errors.As で取り出せる。
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	runID := uuid.NewString()
	logger := p.logger.With(log.RunIDKey, runID)
	res := &Result{RunID: runID}

	if req.Upload == nil {
		logger.Info("No file uploaded")
		res.Text = NoFileMessage
		return res, nil
	}

	fail := func(stage string, err error) (*Result, error) {
		perr := errors.NewPipelineError(stage, err)
		logger.Error("Pipeline failed", perr, log.StageKey, stage)
		return nil, perr
	}
	// step は段階の前にキャンセルを確認し、所要時間を記録する
	step := func(stage string, fn func() error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		if err := fn(); err != nil {
			return err
		}
		logger.Debug("Stage finished", log.StageKey, stage, log.DurationMsKey, time.Since(start).Milliseconds())
		return nil
	}

	if err := p.validateRequest(req); err != nil {
		return fail(StageValidate, err)
	}

	var (
		path  string
		table *dataset.Table
		split *preprocessing.Split
		tm    *TrainedModel
		eval  Evaluation
	)
	stages := []struct {
		name string
		fn   func() error
	}{
		{StageSave, func() (err error) { path, err = p.files.Save(req.Upload); return }},
		{StageLoad, func() (err error) { table, err = dataset.Load(path); return }},
		{StageImpute, func() (err error) { table, err = preprocessing.HandleMissing(table, req.Strategy); return }},
		{StageSlice, func() (err error) {
			if req.Condition != "" {
				table, err = preprocessing.Slice(table, req.Condition)
			}
			return
		}},
		{StageSplit, func() (err error) {
			split, err = preprocessing.TrainTestSplit(table, req.Target, req.TestSize, p.splitSeed)
			return
		}},
		{StageTrain, func() (err error) {
			tm, err = TrainTable(req.Kind, split.XTrain, split.YTrain, split.TargetKind, req.Params, p.train)
			return
		}},
		{StageEvaluate, func() (err error) { eval, err = EvaluateTable(tm, split.XTest, split.YTest); return }},
	}
	for _, s := range stages {
		if err := step(s.name, s.fn); err != nil {
			return fail(s.name, err)
		}
	}

	res.Evaluation = &eval
	res.Text = eval.String()
	if p.details {
		d, err := Report(tm, split.XTest, split.YTest)
		if err != nil {
			return fail(StageReport, err)
		}
		res.Details = d
	}

	logger.Info("Pipeline finished",
		log.ModelKindKey, req.Kind.String(),
		log.StrategyKey, req.Strategy.String(),
		log.TargetKey, req.Target,
		log.TestSizeKey, req.TestSize,
		log.MetricNameKey, eval.Name,
	)
	return res, nil
}

func (p *Pipeline) validateRequest(req Request) error {
	err := p.validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		switch fe.Field() {
		case "Kind":
			return unsupportedKind(req.Kind)
		case "Strategy":
			return errors.NewUnsupportedError("strategy", req.Strategy, strategyNames()...)
		}
		reason := "failed on the '" + fe.Tag() + "' rule"
		if fe.Param() != "" {
			reason += " (" + fe.Param() + ")"
		}
		return errors.NewValidationError(fe.Field(), reason, fe.Value())
	}
	return errors.Wrap(err, "validate request")
}

func strategyNames() []string {
	names := make([]string, 0, 4)
	for _, s := range preprocessing.Strategies() {
		names = append(names, s.String())
	}
	return names
}
