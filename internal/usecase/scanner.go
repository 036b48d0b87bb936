package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"RailScan/internal/domain/models"
	domrepo "RailScan/internal/domain/repository"
	"RailScan/pkg/logger"
)

var (
	ErrNoSymbols      = errors.New("no symbols to scan")
	ErrTooManySymbols = errors.New("too many symbols")
)

// InstrumentAnalyzer analyzes a single instrument.
type InstrumentAnalyzer interface {
	Analyze(ctx context.Context, p models.AnalysisParams) (models.ScanResult, error)
}

// ScanParams is a batch: the same knobs applied to every symbol.
type ScanParams struct {
	Symbols  []string              `json:"symbols"`
	Template models.AnalysisParams `json:"params"`
}

type ScannerConfig struct {
	Concurrency int
	Timeout     time.Duration
	MaxSymbols  int
}

// Scanner runs analyses across symbols with bounded concurrency.
type Scanner struct {
	analyzer  InstrumentAnalyzer
	publisher domrepo.SignalPublisher
	cfg       ScannerConfig
	log       *logger.Logger
	now       func() time.Time
}

// NewScanner builds a scanner. publisher may be nil.
func NewScanner(analyzer InstrumentAnalyzer, publisher domrepo.SignalPublisher, cfg ScannerConfig, lgr *logger.Logger) *Scanner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Minute
	}
	if lgr == nil {
		lgr = logger.Nop()
	}
	return &Scanner{analyzer: analyzer, publisher: publisher, cfg: cfg, log: lgr, now: time.Now}
}

// Scan analyzes every symbol. Per-symbol failures become error records; only
// an unusable request fails the call.
func (s *Scanner) Scan(ctx context.Context, p ScanParams) (*models.ScanReport, error) {
	symbols := models.SplitSymbols(strings.Join(p.Symbols, ","))
	if len(symbols) == 0 {
		return nil, ErrNoSymbols
	}
	if s.cfg.MaxSymbols > 0 && len(symbols) > s.cfg.MaxSymbols {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManySymbols, len(symbols), s.cfg.MaxSymbols)
	}

	started := s.now()
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	type item struct {
		symbol string
		res    models.ScanResult
		err    error
	}
	ch := make(chan item, len(symbols))
	sem := make(chan struct{}, s.cfg.Concurrency)
	var wg sync.WaitGroup

	for _, sym := range symbols {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				ch <- item{symbol: sym, err: &AnalysisError{Kind: models.ErrKindFetchFailed, Symbol: sym, Err: ctx.Err()}}
				return
			}
			params := p.Template
			params.Symbol = sym
			res, err := s.analyzer.Analyze(ctx, params)
			ch <- item{symbol: sym, res: res, err: err}
		}(sym)
	}
	go func() { wg.Wait(); close(ch) }()

	report := &models.ScanReport{
		Results:   make([]models.ScanResult, 0, len(symbols)),
		Errors:    []models.ScanError{},
		StartedAt: started.UTC(),
	}
	for it := range ch {
		if it.err != nil {
			report.Errors = append(report.Errors, models.ScanError{
				Symbol: it.symbol,
				Kind:   KindOf(it.err),
				Error:  it.err.Error(),
			})
			continue
		}
		report.Results = append(report.Results, it.res)
	}

	RankResults(report.Results)
	sort.Slice(report.Errors, func(i, j int) bool { return report.Errors[i].Symbol < report.Errors[j].Symbol })
	report.Summary = Summarize(report.Results, report.Errors)
	report.TookMs = time.Since(started).Milliseconds()

	s.publish(ctx, report.Results)
	s.log.Info("scan finished",
		logger.Int("symbols", len(symbols)),
		logger.Int("results", len(report.Results)),
		logger.Int("errors", len(report.Errors)),
		logger.Int("long", report.Summary.Long),
		logger.Int("short", report.Summary.Short),
		logger.Int64("took_ms", report.TookMs),
	)
	return report, nil
}

// publish is best-effort; a failed sink never fails the scan.
func (s *Scanner) publish(ctx context.Context, results []models.ScanResult) {
	if s.publisher == nil || len(results) == 0 {
		return
	}
	pctx := context.WithoutCancel(ctx)
	pctx, cancel := context.WithTimeout(pctx, 10*time.Second)
	defer cancel()
	if err := s.publisher.PublishResults(pctx, results); err != nil {
		s.log.Warn("scan publish failed", logger.Int("results", len(results)), logger.Error(err))
	}
}
