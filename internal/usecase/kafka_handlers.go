package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"RailScan/internal/domain/models"
	domrepo "RailScan/internal/domain/repository"
	"RailScan/internal/service/marketdata"
	"RailScan/internal/services/features"
	pkgkafka "RailScan/pkg/kafka"
	"RailScan/pkg/logger"
	"RailScan/pkg/metrics"
)

// BarIngestHandler archives daily bars pushed on Kafka.
type BarIngestHandler struct {
	topic   string
	archive domrepo.BarArchive
	metrics domrepo.Metrics
	log     *logger.Logger
}

func NewBarIngestHandler(topic string, archive domrepo.BarArchive, m domrepo.Metrics, lgr *logger.Logger) *BarIngestHandler {
	if m == nil {
		m = metrics.Nop{}
	}
	if lgr == nil {
		lgr = logger.Nop()
	}
	return &BarIngestHandler{topic: topic, archive: archive, metrics: m, log: lgr}
}

func (h *BarIngestHandler) Topic() string { return h.topic }

// incoming message schema: {symbol, bars: [{date, open, high, low, close, volume}]}
func (h *BarIngestHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Symbol string             `json:"symbol"`
		Bars   models.PriceSeries `json:"bars"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return &pkgkafka.HookError{Code: "ERR_VALIDATION", Err: err}
	}
	sym, err := marketdata.NormalizeSymbol(m.Symbol)
	if err != nil {
		h.metrics.RecordError("consumer_symbol")
		return &pkgkafka.HookError{Code: "ERR_VALIDATION", Err: err}
	}
	bars := features.CleanBars(m.Bars)
	if len(bars) == 0 {
		h.log.Debug("bar ingest: nothing usable", logger.String("symbol", sym), logger.Int("received", len(m.Bars)))
		return nil
	}

	start := time.Now()
	err = h.archive.SaveBars(ctx, sym, bars)
	h.metrics.RecordLatency("archive_insert", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return fmt.Errorf("archive %s: %w", sym, err)
	}
	return nil
}

// ScanRequestHandler runs batch scans requested over Kafka. Results leave
// through the scanner's publisher.
type ScanRequestHandler struct {
	topic    string
	scanner  BatchScanner
	defaults models.AnalysisParams
	log      *logger.Logger
}

func NewScanRequestHandler(topic string, scanner BatchScanner, defaults models.AnalysisParams, lgr *logger.Logger) *ScanRequestHandler {
	if lgr == nil {
		lgr = logger.Nop()
	}
	return &ScanRequestHandler{topic: topic, scanner: scanner, defaults: defaults, log: lgr}
}

func (h *ScanRequestHandler) Topic() string { return h.topic }

// scanRequestMessage leaves knobs nil when the sender wants the defaults.
type scanRequestMessage struct {
	Symbols  []string `json:"symbols"`
	Period   string   `json:"period"`
	Lookback *int     `json:"lookback"`
	UseLog   *bool    `json:"use_log"`
	TP       *float64 `json:"tp"`
	SL       *float64 `json:"sl"`
	Horizon  *int     `json:"horizon"`
}

func (m scanRequestMessage) params(defaults models.AnalysisParams) ScanParams {
	p := defaults
	if m.Period != "" {
		p.Period = m.Period
	}
	if m.Lookback != nil {
		p.Lookback = *m.Lookback
	}
	if m.UseLog != nil {
		p.UseLog = *m.UseLog
	}
	if m.TP != nil && *m.TP > 0 {
		p.TPPct = *m.TP
	}
	if m.SL != nil && *m.SL > 0 && *m.SL < 100 {
		p.SLPct = *m.SL
	}
	if m.Horizon != nil && *m.Horizon > 0 {
		p.Horizon = *m.Horizon
	}
	return ScanParams{Symbols: m.Symbols, Template: p}
}

func (h *ScanRequestHandler) Handle(ctx context.Context, b []byte) error {
	var m scanRequestMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return &pkgkafka.HookError{Code: "ERR_VALIDATION", Err: err}
	}
	report, err := h.scanner.Scan(ctx, m.params(h.defaults))
	if err != nil {
		return &pkgkafka.HookError{Code: "ERR_VALIDATION", Err: err}
	}
	h.log.Info("kafka scan request done",
		logger.Int("results", len(report.Results)),
		logger.Int("errors", len(report.Errors)),
		logger.String("trace_id", pkgkafka.TraceIDFrom(ctx)),
	)
	return nil
}

var (
	_ pkgkafka.MessageHandler = (*BarIngestHandler)(nil)
	_ pkgkafka.MessageHandler = (*ScanRequestHandler)(nil)
)
