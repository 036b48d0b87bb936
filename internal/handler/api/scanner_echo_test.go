package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RailScan/internal/domain/models"
	"RailScan/internal/service/ratelimit"
	"RailScan/internal/usecase"
)

type fakeAnalyzer struct {
	last models.AnalysisParams
	err  error
}

func (f *fakeAnalyzer) Analyze(_ context.Context, p models.AnalysisParams) (models.ScanResult, error) {
	f.last = p
	if f.err != nil {
		return models.ScanResult{}, f.err
	}
	return models.ScanResult{Symbol: p.Symbol, Side: models.SideLong, Score: 73.4}, nil
}

type fakeScanner struct {
	last usecase.ScanParams
	err  error
}

func (f *fakeScanner) Scan(_ context.Context, p usecase.ScanParams) (*models.ScanReport, error) {
	f.last = p
	if f.err != nil {
		return nil, f.err
	}
	return &models.ScanReport{Summary: models.ScanSummary{Total: len(p.Symbols)}}, nil
}

type fakeJobs struct {
	jobs map[string]*models.ScanJob
}

func (f *fakeJobs) Submit(_ context.Context, p usecase.ScanParams) (*models.ScanJob, error) {
	job := &models.ScanJob{ID: uuid.NewString(), Status: models.JobPending, Symbols: p.Symbols}
	f.jobs[job.ID] = job
	return job, nil
}

func (f *fakeJobs) Status(_ context.Context, id string) (*models.ScanJob, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, usecase.ErrJobNotFound
	}
	return job, nil
}

type fakeHistory struct{}

func (fakeHistory) SaveResults(context.Context, []models.ScanResult) error { return nil }
func (fakeHistory) ListResults(_ context.Context, symbol string, limit int) ([]models.ScanResult, error) {
	return []models.ScanResult{{Symbol: symbol}}, nil
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func newTestServer(deps ScannerHandlerDeps) *echo.Echo {
	e := echo.New()
	NewScannerEchoHandler(nil, deps).RegisterRoutes(e)
	return e
}

func do(t *testing.T, e *echo.Echo, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func TestAnalyzeAppliesDefaults(t *testing.T) {
	an := &fakeAnalyzer{}
	e := newTestServer(ScannerHandlerDeps{Analyzer: an})

	rec, env := do(t, e, http.MethodGet, "/api/analyze?symbol=aapl&use_log=false&tp=4", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusOK, env.Status)

	var res models.ScanResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "AAPL", res.Symbol)

	assert.Equal(t, "2y", an.last.Period)
	assert.Equal(t, 200, an.last.Lookback)
	assert.False(t, an.last.UseLog)
	assert.Equal(t, 4.0, an.last.TPPct)
	assert.Equal(t, 3.0, an.last.SLPct)
	assert.Equal(t, 10, an.last.Horizon)
}

func TestAnalyzeErrors(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		err    error
		status int
		code   string
	}{
		{"missing symbol", "", nil, http.StatusBadRequest, "ERR_REQUIRED"},
		{"bad period", "symbol=AAPL&period=3w", nil, http.StatusBadRequest, "ERR_ONEOF"},
		{"sl out of range", "symbol=AAPL&sl=100", nil, http.StatusBadRequest, "ERR_LT"},
		{
			"short history", "symbol=AAPL",
			&usecase.AnalysisError{Kind: models.ErrKindInsufficientHistory, Symbol: "AAPL", Err: errors.New("have 12")},
			http.StatusUnprocessableEntity, "ERR_ANALYSIS",
		},
		{
			"invalid symbol", "symbol=AAPL",
			&usecase.AnalysisError{Kind: models.ErrKindInvalidSymbol, Symbol: "AAPL", Err: errors.New("bad")},
			http.StatusBadRequest, "ERR_BAD_REQUEST",
		},
		{"internal", "symbol=AAPL", errors.New("boom"), http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestServer(ScannerHandlerDeps{Analyzer: &fakeAnalyzer{err: tt.err}})
			rec, env := do(t, e, http.MethodGet, "/api/analyze?"+tt.query, "")
			require.Equal(t, tt.status, rec.Code)
			if tt.code == "" {
				return
			}
			var details []map[string]interface{}
			require.NoError(t, json.Unmarshal(env.Data, &details))
			require.NotEmpty(t, details)
			assert.Equal(t, tt.code, details[0]["code"])
		})
	}
}

func TestAnalyzeErrorCarriesKind(t *testing.T) {
	an := &fakeAnalyzer{err: &usecase.AnalysisError{Kind: models.ErrKindChannelUnavailable, Symbol: "AAPL", Err: errors.New("x")}}
	e := newTestServer(ScannerHandlerDeps{Analyzer: an})

	_, env := do(t, e, http.MethodGet, "/api/analyze?symbol=AAPL", "")
	var details []struct {
		Params map[string]string `json:"params"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &details))
	assert.Equal(t, "channel_unavailable", details[0].Params["kind"])
}

func TestScan(t *testing.T) {
	sc := &fakeScanner{}
	e := newTestServer(ScannerHandlerDeps{Scanner: sc})

	rec, env := do(t, e, http.MethodGet, "/api/scan?symbols=aapl,msft,,AAPL&horizon=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"AAPL", "MSFT"}, sc.last.Symbols)
	assert.Equal(t, 5, sc.last.Template.Horizon)
	assert.Empty(t, sc.last.Template.Symbol)

	var report models.ScanReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, 2, report.Summary.Total)

	sc.err = usecase.ErrTooManySymbols
	rec, _ = do(t, e, http.MethodGet, "/api/scan?symbols=A", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScanJobs(t *testing.T) {
	e := newTestServer(ScannerHandlerDeps{Jobs: &fakeJobs{jobs: map[string]*models.ScanJob{}}})

	rec, env := do(t, e, http.MethodPost, "/api/scan/jobs", `{"symbols":"AAPL,MSFT","use_log":"false"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var job models.ScanJob
	require.NoError(t, json.Unmarshal(env.Data, &job))
	assert.Equal(t, models.JobPending, job.Status)

	rec, _ = do(t, e, http.MethodGet, "/api/scan/jobs/"+job.ID, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, e, http.MethodGet, "/api/scan/jobs/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, e, http.MethodGet, "/api/scan/jobs/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistory(t *testing.T) {
	e := newTestServer(ScannerHandlerDeps{})
	rec, _ := do(t, e, http.MethodGet, "/api/history?symbol=AAPL", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	e = newTestServer(ScannerHandlerDeps{History: fakeHistory{}})
	rec, env := do(t, e, http.MethodGet, "/api/history?symbol=spy", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Rows  []models.ScanResult `json:"rows"`
		Total int64               `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.EqualValues(t, 1, list.Total)
	assert.Equal(t, "SPY", list.Rows[0].Symbol)
}

func TestHealth(t *testing.T) {
	e := newTestServer(ScannerHandlerDeps{Checks: map[string]HealthCheck{
		"redis": func(context.Context) error { return nil },
	}})
	rec, _ := do(t, e, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	e = newTestServer(ScannerHandlerDeps{Checks: map[string]HealthCheck{
		"clickhouse": func(context.Context) error { return errors.New("dial tcp: refused") },
	}})
	rec, env := do(t, e, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, string(env.Data), "refused")
}

func TestRateLimit(t *testing.T) {
	e := newTestServer(ScannerHandlerDeps{Analyzer: &fakeAnalyzer{}, Limiter: ratelimit.New(0.001, 1)})

	rec, _ := do(t, e, http.MethodGet, "/api/analyze?symbol=AAPL", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = do(t, e, http.MethodGet, "/api/analyze?symbol=AAPL", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec, _ = do(t, e, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
