// Package server はパイプラインをフォーム画面と JSON API として公開する。
package server

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/emicklei/go-restful/v3"
	"github.com/nikolalohinski/gonja/v2"
	"github.com/nikolalohinski/gonja/v2/exec"
	"github.com/samber/lo"

	"github.com/YuminosukeSato/automl/automl"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/pkg/log"
	"github.com/YuminosukeSato/automl/preprocessing"
	"github.com/YuminosukeSato/automl/storage"
)

// フォームのテストサイズのスライダー範囲
const (
	MinTestSize = 0.1
	MaxTestSize = 0.5
)

const (
	// DefaultMaxUploadMB はアップロードサイズの上限の既定値
	DefaultMaxUploadMB = 32
	title              = "AutoML"
)

// Runner はパイプラインの実行部分。*automl.Pipeline が満たす
type Runner interface {
	Run(ctx context.Context, req automl.Request) (*automl.Result, error)
}

// Server はフォーム画面（GET /、POST /run）と JSON API（POST /api/run）を提供する
type Server struct {
	runner    Runner
	maxUpload int64
	form      *exec.Template
	container *restful.Container
	logger    log.Logger
}

// Option は Server の関数オプション
type Option func(*Server)

// WithMaxUploadMB はアップロードサイズの上限を MB 単位で設定する
func WithMaxUploadMB(mb int) Option {
	return func(s *Server) {
		if mb > 0 {
			s.maxUpload = int64(mb) << 20
		}
	}
}

// New は runner を実行する Server を作成する
func New(runner Runner, opts ...Option) (*Server, error) {
	form, err := gonja.FromString(formTemplate)
	if err != nil {
		return nil, errors.Wrap(err, "parse form template")
	}
	s := &Server{
		runner:    runner,
		maxUpload: DefaultMaxUploadMB << 20,
		form:      form,
		logger:    log.GetLoggerWithName("server"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.container = restful.NewContainer()
	s.container.Add(s.webService())
	return s, nil
}

// Handler は HTTP ハンドラを返す
func (s *Server) Handler() http.Handler {
	return s.container
}

// ListenAndServe は addr で待ち受け、ctx がキャンセルされると停止する
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.container,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Start http server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "http server")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) webService() *restful.WebService {
	ws := new(restful.WebService)
	ws.Path("/")
	ws.Filter(s.logFilter)

	ws.Route(ws.GET("/").To(s.index).
		Doc("Render the form.").
		Produces("text/html"))
	ws.Route(ws.POST("/run").To(s.runForm).
		Doc("Run the pipeline from the submitted form.").
		Consumes("multipart/form-data", "application/x-www-form-urlencoded").
		Produces("text/html"))
	ws.Route(ws.POST("/api/run").To(s.runAPI).
		Doc("Run the pipeline from a JSON request.").
		Consumes(restful.MIME_JSON).
		Produces(restful.MIME_JSON).
		Reads(APIRequest{}).
		Writes(APIResponse{}))
	return ws
}

func (s *Server) logFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	start := time.Now()
	chain.ProcessFilter(req, resp)
	s.logger.Info(req.Request.Method+" "+req.Request.URL.Path,
		"status_code", resp.StatusCode(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
}

// formState はフォームの入力値と出力欄
type formState struct {
	Target    string
	TestSize  float64
	Kind      automl.ModelKind
	Strategy  preprocessing.Strategy
	Condition string
	Params    string
	Output    string
}

func defaultFormState() formState {
	return formState{TestSize: automl.DefaultTestSize, Kind: automl.Classification, Strategy: preprocessing.Mean}
}

func (s *Server) renderForm(resp *restful.Response, state formState) {
	ctx := exec.NewContext(map[string]any{
		"title":             title,
		"target":            state.Target,
		"test_size":         formatFloat(state.TestSize),
		"min_test_size":     formatFloat(MinTestSize),
		"max_test_size":     formatFloat(MaxTestSize),
		"kinds":             lo.Map(automl.ModelKinds(), func(k automl.ModelKind, _ int) string { return k.String() }),
		"selected_kind":     state.Kind.String(),
		"strategies":        lo.Map(preprocessing.Strategies(), func(st preprocessing.Strategy, _ int) string { return st.String() }),
		"selected_strategy": state.Strategy.String(),
		"condition":         state.Condition,
		"params":            state.Params,
		"output":            state.Output,
	})
	var buf strings.Builder
	if err := s.form.Execute(&buf, ctx); err != nil {
		InternalServerError(resp, errors.Wrap(err, "render form"))
		return
	}
	resp.AddHeader("Content-Type", "text/html; charset=utf-8")
	Text(resp, buf.String())
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func (s *Server) index(req *restful.Request, resp *restful.Response) {
	s.renderForm(resp, defaultFormState())
}

// runForm はフォームの送信を実行し、結果またはエラーを出力欄に表示する
func (s *Server) runForm(req *restful.Request, resp *restful.Response) {
	state := defaultFormState()
	httpReq := req.Request
	httpReq.Body = http.MaxBytesReader(resp.ResponseWriter, httpReq.Body, s.maxUpload)
	if err := httpReq.ParseMultipartForm(s.maxUpload); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		state.Output = errors.NewValidationError("file", "could not read the submitted form", err.Error()).Error()
		s.renderForm(resp, state)
		return
	}

	runReq, err := parseForm(httpReq, &state)
	if err != nil {
		state.Output = err.Error()
		s.renderForm(resp, state)
		return
	}
	res, err := s.runner.Run(req.Request.Context(), runReq)
	if err != nil {
		state.Output = err.Error()
	} else {
		state.Output = res.Text
	}
	s.renderForm(resp, state)
}

// parseForm はフォームの値を state に反映し、パイプラインの入力を組み立てる
func parseForm(r *http.Request, state *formState) (automl.Request, error) {
	state.Target = strings.TrimSpace(r.FormValue("target"))
	state.Condition = r.FormValue("condition")
	state.Params = r.FormValue("params")

	if v := r.FormValue("test_size"); v != "" {
		x, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return automl.Request{}, errors.NewParseError("test_size", v, err)
		}
		state.TestSize = x
	}
	if state.TestSize < MinTestSize || state.TestSize > MaxTestSize {
		return automl.Request{}, errors.NewValidationError("test_size", "must be between 0.1 and 0.5", state.TestSize)
	}
	if v := r.FormValue("model_type"); v != "" {
		kind, err := automl.ParseModelKind(v)
		if err != nil {
			return automl.Request{}, err
		}
		state.Kind = kind
	}
	if v := r.FormValue("strategy"); v != "" {
		strategy, err := preprocessing.ParseStrategy(v)
		if err != nil {
			return automl.Request{}, err
		}
		state.Strategy = strategy
	}

	req := automl.Request{
		Target:    state.Target,
		TestSize:  state.TestSize,
		Kind:      state.Kind,
		Strategy:  state.Strategy,
		Condition: state.Condition,
		Params:    state.Params,
	}
	var err error
	if req.Upload, err = formUpload(r); err != nil {
		return automl.Request{}, err
	}
	return req, nil
}

func formUpload(r *http.Request) (storage.Upload, error) {
	if r.MultipartForm == nil || len(r.MultipartForm.File["file"]) == 0 {
		return nil, nil
	}
	header := r.MultipartForm.File["file"][0]
	f, err := header.Open()
	if err != nil {
		return nil, errors.NewResourceError("open upload", header.Filename, err)
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.NewResourceError("read upload", header.Filename, err)
	}
	return storage.BytesUpload{Content: content}, nil
}
