package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"RailScan/internal/domain/models"
	domrepo "RailScan/internal/domain/repository"
	"RailScan/internal/service/marketdata"
	"RailScan/internal/service/ratelimit"
	"RailScan/internal/usecase"
	xhttp "RailScan/pkg/http"
	xlogger "RailScan/pkg/logger"

	"github.com/labstack/echo/v4"
)

// JobService submits and tracks asynchronous scans.
type JobService interface {
	Submit(ctx context.Context, p usecase.ScanParams) (*models.ScanJob, error)
	Status(ctx context.Context, id string) (*models.ScanJob, error)
}

// HealthCheck reports whether one backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// ScannerHandlerDeps groups the collaborators of ScannerEchoHandler. History,
// Hub and Limiter are optional.
type ScannerHandlerDeps struct {
	Analyzer usecase.InstrumentAnalyzer
	Scanner  usecase.BatchScanner
	Jobs     JobService
	History  domrepo.ResultStore
	Hub      echo.HandlerFunc
	Limiter  *ratelimit.Limiter
	Checks   map[string]HealthCheck
}

// ScannerEchoHandler serves the analysis endpoints.
type ScannerEchoHandler struct {
	logger *xlogger.Logger
	deps   ScannerHandlerDeps
}

func NewScannerEchoHandler(logger *xlogger.Logger, deps ScannerHandlerDeps) *ScannerEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &ScannerEchoHandler{logger: logger, deps: deps}
}

func (h *ScannerEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	if h.deps.Hub != nil {
		e.GET("/ws/scans", h.deps.Hub)
	}

	g := e.Group("/api")
	if h.deps.Limiter != nil {
		g.Use(ratelimit.Middleware(h.deps.Limiter))
	}
	g.GET("/analyze", h.Analyze)
	g.GET("/scan", h.Scan)
	g.POST("/scan/jobs", h.SubmitJob)
	g.GET("/scan/jobs/:id", h.JobStatus)
	g.GET("/history", h.History)
}

// Analyze runs the full pipeline for one symbol.
func (h *ScannerEchoHandler) Analyze(c echo.Context) error {
	req := &models.AnalyzeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.deps.Analyzer.Analyze(c.Request().Context(), req.Params())
	if err != nil {
		return h.analysisError(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, res)
}

// Scan analyzes a comma separated symbol list and returns the ranked report.
func (h *ScannerEchoHandler) Scan(c echo.Context) error {
	req := &models.ScanRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	report, err := h.deps.Scanner.Scan(c.Request().Context(), usecase.ScanParams{
		Symbols:  req.SymbolList(),
		Template: req.Template(),
	})
	if err != nil {
		return h.scanError(c, err)
	}
	return xhttp.SuccessResponse(c, report)
}

// SubmitJob queues a scan and returns the pending job.
func (h *ScannerEchoHandler) SubmitJob(c echo.Context) error {
	req := &models.ScanRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	job, err := h.deps.Jobs.Submit(c.Request().Context(), usecase.ScanParams{
		Symbols:  req.SymbolList(),
		Template: req.Template(),
	})
	if err != nil {
		return h.scanError(c, err)
	}
	return xhttp.CreatedResponse(c, job)
}

func (h *ScannerEchoHandler) JobStatus(c echo.Context) error {
	req := &models.JobRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	job, err := h.deps.Jobs.Status(c.Request().Context(), req.ID)
	if errors.Is(err, usecase.ErrJobNotFound) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("scan job %s not found", req.ID))
	}
	if err != nil {
		h.logger.Error("job status error", xlogger.String("job_id", req.ID), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, job)
}

// History lists stored results for a symbol, newest first.
func (h *ScannerEchoHandler) History(c echo.Context) error {
	if h.deps.History == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("result history is disabled"))
	}
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	sym, err := marketdata.NormalizeSymbol(req.Symbol)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}

	rows, err := h.deps.History.ListResults(c.Request().Context(), sym, req.Limit)
	if err != nil {
		h.logger.Error("history error", xlogger.String("symbol", sym), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

// Health pings every registered dependency.
func (h *ScannerEchoHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	status := map[string]string{}
	healthy := true
	for name, check := range h.deps.Checks {
		if err := check(ctx); err != nil {
			status[name] = err.Error()
			healthy = false
			continue
		}
		status[name] = "ok"
	}
	if !healthy {
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, status)
	}
	return xhttp.SuccessResponse(c, status)
}

func (h *ScannerEchoHandler) analysisError(c echo.Context, err error) error {
	var ae *usecase.AnalysisError
	if !errors.As(err, &ae) {
		h.logger.Error("analyze error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if ae.Kind == models.ErrKindInvalidSymbol {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(ae.Error()).WithError(err))
	}
	return xhttp.AppErrorResponse(c, xhttp.UnprocessableError("ERR_ANALYSIS", ae.Error()).
		WithParam("kind", string(ae.Kind)).
		WithParam("symbol", ae.Symbol))
}

func (h *ScannerEchoHandler) scanError(c echo.Context, err error) error {
	if errors.Is(err, usecase.ErrNoSymbols) || errors.Is(err, usecase.ErrTooManySymbols) {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}
	h.logger.Error("scan error", xlogger.Error(err))
	return xhttp.AppErrorResponse(c, err)
}
