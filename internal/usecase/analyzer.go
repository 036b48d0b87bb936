package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"RailScan/internal/domain/models"
	domrepo "RailScan/internal/domain/repository"
	"RailScan/internal/service/marketdata"
	"RailScan/internal/services/backtest"
	"RailScan/internal/services/regression"
	"RailScan/internal/services/signals"
	"RailScan/pkg/cache"
	"RailScan/pkg/logger"
	"RailScan/pkg/metrics"
)

var (
	errTooShort  = errors.New("not enough daily bars")
	errNoPrice   = errors.New("no usable last close")
	errNoChannel = errors.New("regression channel could not be fitted")
)

// AnalysisError is a per-instrument failure carrying its kind.
type AnalysisError struct {
	Kind   models.ErrorKind
	Symbol string
	Err    error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Symbol, e.Kind, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// KindOf extracts the analysis kind from err. Errors that are not analysis
// errors count as fetch failures.
func KindOf(err error) models.ErrorKind {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return models.ErrKindFetchFailed
}

// BarLoader supplies cleaned daily bars.
type BarLoader interface {
	Load(ctx context.Context, symbol string, period domrepo.Period) (models.PriceSeries, error)
}

// Evaluate runs fit, rails, decision, similarity mask and first-hit backtest
// over series. It does no I/O.
func Evaluate(symbol string, series models.PriceSeries, p models.AnalysisParams, now time.Time) (models.ScanResult, error) {
	if series.Len() < models.MinBars {
		return models.ScanResult{}, &AnalysisError{
			Kind:   models.ErrKindInsufficientHistory,
			Symbol: symbol,
			Err:    fmt.Errorf("%w: have %d, need %d", errTooShort, series.Len(), models.MinBars),
		}
	}
	price, ok := marketdata.LastPrice(series)
	if !ok {
		return models.ScanResult{}, &AnalysisError{Kind: models.ErrKindPriceUnavailable, Symbol: symbol, Err: errNoPrice}
	}
	ch := regression.FitChannel(series, p.Lookback, p.UseLog, models.DefaultKs)
	if ch.Empty() {
		return models.ScanResult{}, &AnalysisError{Kind: models.ErrKindChannelUnavailable, Symbol: symbol, Err: errNoChannel}
	}

	hint := regression.PickNearestRails(ch, price)
	sig := signals.Decide(price, ch, hint, p.TPPct, p.SLPct)
	mask := backtest.SimilarityMask(series, sig.Side, ch.SlopePctPerDay, ch.Lookback)
	bt := backtest.SimulateFirstHit(series, sig.Side, p.TPPct, p.SLPct, p.Horizon, mask)

	return models.ScanResult{
		Symbol:         symbol,
		Price:          price,
		Side:           sig.Side,
		Strength:       sig.Strength,
		Score:          sig.Score,
		Reason:         sig.Reason,
		Entry:          sig.Entry,
		TP:             sig.TP,
		SL:             sig.SL,
		EntryZoneLow:   sig.EntryZoneLow,
		EntryZoneHigh:  sig.EntryZoneHigh,
		Support:        sig.Support,
		Mid:            sig.Mid,
		Resist:         sig.Resist,
		SlopePctPerDay: sig.SlopePctPerDay,
		RR:             sig.RR,
		WinRate:        bt.WinRate,
		N:              bt.N,
		Wins:           bt.Wins,
		Losses:         bt.Losses,
		NoHits:         bt.NoHits,
		AvgDays:        bt.AvgDaysToHit,
		AvgRet:         bt.AvgReturnPct,
		Period:         p.Period,
		Lookback:       ch.Lookback,
		UseLog:         p.UseLog,
		TPPct:          p.TPPct,
		SLPct:          p.SLPct,
		Horizon:        p.Horizon,
		Bars:           series.Len(),
		AnalyzedAt:     now.UTC(),
	}, nil
}

// AnalyzerConfig sets cache lifetimes. Zero TTL disables that cache level.
type AnalyzerConfig struct {
	ResultTTL time.Duration
	BarsTTL   time.Duration
}

// Analyzer loads bars and evaluates one instrument, memoizing both the bars
// and the finished result.
type Analyzer struct {
	bars    BarLoader
	cache   cache.Service
	metrics domrepo.Metrics
	cfg     AnalyzerConfig
	log     *logger.Logger
	now     func() time.Time
}

func NewAnalyzer(bars BarLoader, c cache.Service, m domrepo.Metrics, cfg AnalyzerConfig, lgr *logger.Logger) *Analyzer {
	if m == nil {
		m = metrics.Nop{}
	}
	if lgr == nil {
		lgr = logger.Nop()
	}
	return &Analyzer{bars: bars, cache: c, metrics: m, cfg: cfg, log: lgr, now: time.Now}
}

// Analyze returns the analysis of p.Symbol, served from cache when fresh.
func (a *Analyzer) Analyze(ctx context.Context, p models.AnalysisParams) (models.ScanResult, error) {
	start := a.now()
	res, err := a.analyze(ctx, p)
	a.metrics.RecordLatency("analyze", time.Since(start).Seconds())
	if err != nil {
		a.metrics.RecordError(string(KindOf(err)))
		return models.ScanResult{}, err
	}
	return res, nil
}

func (a *Analyzer) analyze(ctx context.Context, p models.AnalysisParams) (models.ScanResult, error) {
	sym, err := marketdata.NormalizeSymbol(p.Symbol)
	if err != nil {
		return models.ScanResult{}, &AnalysisError{Kind: models.ErrKindInvalidSymbol, Symbol: p.Symbol, Err: err}
	}
	period := domrepo.NormalizePeriod(p.Period)
	p.Symbol, p.Period = sym, string(period)

	key := cache.GenerateKeyWithParams("analysis", p.Symbol, p.Period, p.Lookback, p.UseLog, p.TPPct, p.SLPct, p.Horizon)
	if a.cache != nil && a.cfg.ResultTTL > 0 {
		var cached models.ScanResult
		if err := a.cache.Get(ctx, key, &cached); err == nil {
			a.metrics.RecordCache(true)
			return cached, nil
		}
		a.metrics.RecordCache(false)
	}

	series, err := a.loadBars(ctx, sym, period)
	if err != nil {
		kind := models.ErrKindFetchFailed
		if errors.Is(err, marketdata.ErrInvalidSymbol) {
			kind = models.ErrKindInvalidSymbol
		}
		return models.ScanResult{}, &AnalysisError{Kind: kind, Symbol: sym, Err: err}
	}

	res, err := Evaluate(sym, series, p, a.now())
	if err != nil {
		return models.ScanResult{}, err
	}

	a.metrics.RecordScan(string(res.Side))
	if res.WinRate != nil {
		a.metrics.RecordWinRate(sym, *res.WinRate)
	}
	if a.cache != nil && a.cfg.ResultTTL > 0 {
		if err := a.cache.Set(ctx, key, res, a.cfg.ResultTTL); err != nil {
			a.log.Warn("analyzer: cache result", logger.String("symbol", sym), logger.Error(err))
		}
	}
	a.log.Debug("analyzer: done",
		logger.String("symbol", sym),
		logger.String("side", string(res.Side)),
		logger.Float64("score", res.Score),
		logger.Int("bars", res.Bars),
	)
	return res, nil
}

func (a *Analyzer) loadBars(ctx context.Context, symbol string, period domrepo.Period) (models.PriceSeries, error) {
	key := cache.GenerateKeyWithParams("bars", symbol, string(period))
	if a.cache != nil && a.cfg.BarsTTL > 0 {
		var series models.PriceSeries
		if err := a.cache.Get(ctx, key, &series); err == nil && len(series) > 0 {
			return series, nil
		}
	}

	start := a.now()
	series, err := a.bars.Load(ctx, symbol, period)
	a.metrics.RecordLatency("load_bars", time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	if a.cache != nil && a.cfg.BarsTTL > 0 {
		if err := a.cache.Set(ctx, key, series, a.cfg.BarsTTL); err != nil {
			a.log.Warn("analyzer: cache bars", logger.String("symbol", symbol), logger.Error(err))
		}
	}
	return series, nil
}
