package service

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	nethttp "net/http"
	"strconv"
	"strings"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"

	"github.com/iWorld-y/research_assistant/app/display/internal/repo"
	"github.com/iWorld-y/research_assistant/app/display/internal/usecase"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/apierr"
)

const maxBodyBytes = 1 << 16

// ResearchReq POST /api/research 请求体
type ResearchReq struct {
	Topic string `json:"topic"`
}

// DisplayService Web 界面的 HTTP 接口
type DisplayService struct {
	ucReport   *usecase.ReportUseCase
	ucResearch *usecase.ResearchUseCase
	log        *log.Helper
}

func NewDisplayService(ucReport *usecase.ReportUseCase, ucResearch *usecase.ResearchUseCase, logger log.Logger) *DisplayService {
	return &DisplayService{
		ucReport:   ucReport,
		ucResearch: ucResearch,
		log:        log.NewHelper(logger),
	}
}

// Research POST /api/research
func (s *DisplayService) Research(w nethttp.ResponseWriter, r *nethttp.Request) {
	if r.Method != nethttp.MethodPost {
		s.fail(w, r, errors.New(nethttp.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "use POST"))
		return
	}

	var req ResearchReq
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.fail(w, r, errors.BadRequest("BAD_BODY", err.Error()))
		return
	}
	if err := json.Unmarshal(body, &req); err != nil {
		s.fail(w, r, errors.BadRequest("BAD_BODY", "request body must be JSON: "+err.Error()))
		return
	}
	req.Topic = strings.TrimSpace(req.Topic)
	if req.Topic == "" {
		s.fail(w, r, errors.BadRequest("TOPIC_EMPTY", "research topic is required"))
		return
	}

	res, err := s.ucResearch.Research(r.Context(), req.Topic)
	if err != nil {
		s.fail(w, r, researchError(err))
		return
	}
	s.reply(w, r, res)
}

// ListReports GET /api/reports
func (s *DisplayService) ListReports(w nethttp.ResponseWriter, r *nethttp.Request) {
	list, err := s.ucReport.List(r.Context())
	if err != nil {
		s.fail(w, r, errors.InternalServer("LIST_FAILED", err.Error()))
		return
	}
	s.reply(w, r, map[string]any{"reports": list, "total": len(list)})
}

// GetReport GET /api/reports/<name>
func (s *DisplayService) GetReport(w nethttp.ResponseWriter, r *nethttp.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/reports/")
	detail, err := s.ucReport.Get(r.Context(), name)
	if err != nil {
		s.fail(w, r, reportError(name, err))
		return
	}
	s.reply(w, r, detail)
}

// RawReport GET /reports/<name>，返回 markdown 原文
func (s *DisplayService) RawReport(w nethttp.ResponseWriter, r *nethttp.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/reports/")
	detail, err := s.ucReport.Get(r.Context(), name)
	if err != nil {
		s.fail(w, r, reportError(name, err))
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="`+detail.Name+`"`)
	_, _ = io.WriteString(w, detail.Markdown)
}

// ListRuns GET /api/runs?limit=N
func (s *DisplayService) ListRuns(w nethttp.ResponseWriter, r *nethttp.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := s.ucReport.Runs(r.Context(), limit)
	if err != nil {
		s.fail(w, r, errors.InternalServer("LIST_RUNS_FAILED", err.Error()))
		return
	}
	s.reply(w, r, map[string]any{"runs": runs})
}

func (s *DisplayService) reply(w nethttp.ResponseWriter, r *nethttp.Request, v any) {
	if err := http.DefaultResponseEncoder(w, r, v); err != nil {
		s.log.Errorf("failed to encode response: %v", err)
	}
}

func (s *DisplayService) fail(w nethttp.ResponseWriter, r *nethttp.Request, err *errors.Error) {
	if err.Code >= 500 {
		s.log.Errorf("%s %s: %v", r.Method, r.URL.Path, err)
	} else {
		s.log.Warnf("%s %s: %v", r.Method, r.URL.Path, err)
	}
	http.DefaultErrorEncoder(w, r, err)
}

func researchError(err error) *errors.Error {
	if stderrors.Is(err, context.Canceled) {
		return errors.New(499, "CLIENT_CLOSED", err.Error())
	}
	switch apierr.KindOf(err) {
	case apierr.KindValidation:
		return errors.BadRequest("INVALID_TOPIC", err.Error())
	case apierr.KindFatal:
		return errors.InternalServer("RESEARCH_FAILED", err.Error())
	default:
		return errors.InternalServer("INTERNAL", err.Error())
	}
}

func reportError(name string, err error) *errors.Error {
	if stderrors.Is(err, repo.ErrNotFound) {
		return errors.NotFound("REPORT_NOT_FOUND", "report "+name+" not found")
	}
	return errors.InternalServer("READ_FAILED", err.Error())
}
