package server

import (
	"net/http"

	"github.com/emicklei/go-restful/v3"

	"github.com/YuminosukeSato/automl/automl"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/pkg/log"
	"github.com/YuminosukeSato/automl/preprocessing"
	"github.com/YuminosukeSato/automl/storage"
)

// APIRequest は POST /api/run の入力。FilePath と Content のどちらも空ならファイル無し
type APIRequest struct {
	// FilePath はサーバ上の CSV ファイルのパス
	FilePath string `json:"file_path,omitempty"`
	// Content は CSV の内容
	Content   string  `json:"content,omitempty"`
	Target    string  `json:"target"`
	TestSize  float64 `json:"test_size,omitempty"`
	ModelType string  `json:"model_type,omitempty"`
	Strategy  string  `json:"strategy,omitempty"`
	Condition string  `json:"condition,omitempty"`
	Params    string  `json:"params,omitempty"`
}

// APIResponse は POST /api/run の出力
type APIResponse struct {
	RunID    string  `json:"run_id,omitempty"`
	Result   string  `json:"result,omitempty"`
	Metric   string  `json:"metric,omitempty"`
	Value    float64 `json:"value,omitempty"`
	Error    string  `json:"error,omitempty"`
	Stage    string  `json:"stage,omitempty"`
	Category string  `json:"category,omitempty"`
}

func (r APIRequest) toRequest() (automl.Request, error) {
	req := automl.Request{
		Target:    r.Target,
		TestSize:  r.TestSize,
		Kind:      automl.Classification,
		Strategy:  preprocessing.Mean,
		Condition: r.Condition,
		Params:    r.Params,
	}
	if req.TestSize == 0 {
		req.TestSize = automl.DefaultTestSize
	}
	if r.ModelType != "" {
		kind, err := automl.ParseModelKind(r.ModelType)
		if err != nil {
			return req, err
		}
		req.Kind = kind
	}
	if r.Strategy != "" {
		strategy, err := preprocessing.ParseStrategy(r.Strategy)
		if err != nil {
			return req, err
		}
		req.Strategy = strategy
	}
	switch {
	case r.FilePath != "":
		req.Upload = storage.PathUpload{Path: r.FilePath}
	case r.Content != "":
		req.Upload = storage.BytesUpload{Content: []byte(r.Content)}
	}
	return req, nil
}

func (s *Server) runAPI(req *restful.Request, resp *restful.Response) {
	var body APIRequest
	if err := req.ReadEntity(&body); err != nil {
		s.writeError(resp, errors.NewParseError("request", "", err))
		return
	}
	runReq, err := body.toRequest()
	if err != nil {
		s.writeError(resp, err)
		return
	}
	res, err := s.runner.Run(req.Request.Context(), runReq)
	if err != nil {
		s.writeError(resp, err)
		return
	}
	out := APIResponse{RunID: res.RunID, Result: res.Text}
	if res.Evaluation != nil {
		out.Metric = res.Evaluation.Name
		out.Value = res.Evaluation.Value
	}
	Ok(resp, out)
}

// writeError は入力・ファイルの誤りを 400、それ以外を 500 として返す
func (s *Server) writeError(resp *restful.Response, err error) {
	category := errors.CategoryOf(err)
	out := APIResponse{Error: err.Error(), Category: category.String()}
	var perr *errors.PipelineError
	if errors.As(err, &perr) {
		out.Stage = perr.Stage
	}
	status := http.StatusInternalServerError
	if category == errors.CategoryValidation || category == errors.CategoryResource {
		status = http.StatusBadRequest
	}
	s.logger.Warn("Request failed", log.ErrorCategoryKey, out.Category, log.StageKey, out.Stage)
	resp.Header().Set("Access-Control-Allow-Origin", "*")
	if werr := resp.WriteHeaderAndJson(status, out, restful.MIME_JSON); werr != nil {
		s.logger.Error("Failed to write json", werr)
	}
}

// Ok は content を JSON で返す
func Ok(resp *restful.Response, content interface{}) {
	resp.Header().Set("Access-Control-Allow-Origin", "*")
	if err := resp.WriteAsJson(content); err != nil {
		log.GetLoggerWithName("server").Error("Failed to write json", err)
	}
}

// Text は文字列をそのまま返す
func Text(resp *restful.Response, content string) {
	resp.Header().Set("Access-Control-Allow-Origin", "*")
	if _, err := resp.Write([]byte(content)); err != nil {
		log.GetLoggerWithName("server").Error("Failed to write text", err)
	}
}

// InternalServerError は 500 を返す
func InternalServerError(resp *restful.Response, err error) {
	resp.Header().Set("Access-Control-Allow-Origin", "*")
	log.GetLoggerWithName("server").Error("Internal server error", err)
	if err := resp.WriteError(http.StatusInternalServerError, err); err != nil {
		log.GetLoggerWithName("server").Error("Failed to write error", err)
	}
}
