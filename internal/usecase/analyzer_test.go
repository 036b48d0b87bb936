package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RailScan/internal/domain/models"
	domrepo "RailScan/internal/domain/repository"
	"RailScan/internal/service/marketdata"
	"RailScan/pkg/cache"
)

func linearSeries(n int, start float64) models.PriceSeries {
	day := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	out := make(models.PriceSeries, n)
	for i := range out {
		c := start + float64(i)
		out[i] = models.PriceBar{Date: day.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 1}
	}
	return out
}

func linearParams() models.AnalysisParams {
	return models.AnalysisParams{Symbol: "AAPL", Period: "2y", Lookback: 80, TPPct: 5, SLPct: 2, Horizon: 10}
}

func TestEvaluateLinearSeries(t *testing.T) {
	now := time.Date(2024, 6, 3, 21, 0, 0, 0, time.FixedZone("EST", -5*3600))
	res, err := Evaluate("AAPL", linearSeries(100, 100), linearParams(), now)
	require.NoError(t, err)

	assert.Equal(t, models.SideLong, res.Side)
	assert.Equal(t, models.StrengthStrong, res.Strength)
	assert.InDelta(t, 73.44, res.Score, 0.01)
	assert.Equal(t, 199.0, res.Price)
	require.NotNil(t, res.RR)
	assert.InDelta(t, 2.5, *res.RR, 1e-9)
	assert.InDelta(t, 199.0, res.Mid, 1e-6)
	assert.Equal(t, 80, res.Lookback)
	assert.Equal(t, 100, res.Bars)
	assert.Equal(t, time.UTC, res.AnalyzedAt.Location())
	assert.GreaterOrEqual(t, res.N, 0)
	assert.Equal(t, res.N, res.Wins+res.Losses)
}

func TestEvaluateErrorKinds(t *testing.T) {
	noPrice := linearSeries(100, 100)
	noPrice[99].Close = 0

	badLog := linearSeries(100, 100)
	badLog[95].Close = -3
	logParams := linearParams()
	logParams.UseLog = true

	tests := []struct {
		name   string
		series models.PriceSeries
		params models.AnalysisParams
		kind   models.ErrorKind
	}{
		{"short history", linearSeries(50, 100), linearParams(), models.ErrKindInsufficientHistory},
		{"no last price", noPrice, linearParams(), models.ErrKindPriceUnavailable},
		{"log fit over negative close", badLog, logParams, models.ErrKindChannelUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Evaluate("X", tt.series, tt.params, time.Now())
			var ae *AnalysisError
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, tt.kind, ae.Kind)
			assert.Equal(t, tt.kind, KindOf(err))
			assert.Equal(t, "X", ae.Symbol)
		})
	}
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, models.ErrKindFetchFailed, KindOf(errors.New("boom")))
	wrapped := fmt.Errorf("scan: %w", &AnalysisError{Kind: models.ErrKindInvalidSymbol})
	assert.Equal(t, models.ErrKindInvalidSymbol, KindOf(wrapped))
}

type stubLoader struct {
	mu     sync.Mutex
	calls  int
	series map[string]models.PriceSeries
	err    error
}

func (l *stubLoader) Load(_ context.Context, symbol string, _ domrepo.Period) (models.PriceSeries, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	s, ok := l.series[symbol]
	if !ok {
		return nil, fmt.Errorf("%s: %w", symbol, marketdata.ErrNoData)
	}
	return s, nil
}

type recMetrics struct {
	mu     sync.Mutex
	sides  []string
	kinds  []string
	hits   int
	misses int
	rates  map[string]float64
}

func (m *recMetrics) RecordScan(side string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sides = append(m.sides, side)
}

func (m *recMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kinds = append(m.kinds, kind)
}

func (m *recMetrics) RecordWinRate(symbol string, wr float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rates == nil {
		m.rates = map[string]float64{}
	}
	m.rates[symbol] = wr
}

func (m *recMetrics) RecordLatency(string, float64) {}

func (m *recMetrics) RecordCache(hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hit {
		m.hits++
	} else {
		m.misses++
	}
}

func TestAnalyzerMemoizes(t *testing.T) {
	loader := &stubLoader{series: map[string]models.PriceSeries{"AAPL": linearSeries(100, 100)}}
	mc := cache.NewMemoryCache()
	defer mc.Close()
	m := &recMetrics{}
	a := NewAnalyzer(loader, mc, m, AnalyzerConfig{ResultTTL: time.Minute, BarsTTL: time.Minute}, nil)

	p := linearParams()
	p.Symbol = " aapl "
	first, err := a.Analyze(context.Background(), p)
	require.NoError(t, err)
	second, err := a.Analyze(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, 1, loader.calls)
	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, "AAPL", second.Symbol)
	assert.Equal(t, 1, m.hits)
	assert.Equal(t, 1, m.misses)
	assert.Equal(t, []string{"LONG"}, m.sides)

	// different knobs miss the result cache but reuse the bars
	p.Horizon = 5
	_, err = a.Analyze(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 1, loader.calls)
}

func TestAnalyzerErrors(t *testing.T) {
	loader := &stubLoader{series: map[string]models.PriceSeries{"SHORT": linearSeries(40, 10)}}
	m := &recMetrics{}
	a := NewAnalyzer(loader, nil, m, AnalyzerConfig{}, nil)

	_, err := a.Analyze(context.Background(), models.AnalysisParams{Symbol: "bad symbol!"})
	assert.Equal(t, models.ErrKindInvalidSymbol, KindOf(err))

	_, err = a.Analyze(context.Background(), models.AnalysisParams{Symbol: "MISSING", Lookback: 200})
	assert.Equal(t, models.ErrKindFetchFailed, KindOf(err))
	assert.ErrorIs(t, err, marketdata.ErrNoData)

	_, err = a.Analyze(context.Background(), models.AnalysisParams{Symbol: "SHORT", Lookback: 200})
	assert.Equal(t, models.ErrKindInsufficientHistory, KindOf(err))

	assert.Equal(t, []string{"invalid_symbol", "fetch_failed", "insufficient_history"}, m.kinds)
	assert.Empty(t, m.sides)
}
