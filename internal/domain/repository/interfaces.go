package repository

import (
	"context"
	"time"

	"RailScan/internal/domain/models"
)

// BarSource fetches daily history from a market data provider.
type BarSource interface {
	Name() string
	FetchDaily(ctx context.Context, symbol string, period Period) (models.PriceSeries, error)
}

// BarArchive persists cleaned bars and serves them when providers fail.
type BarArchive interface {
	SaveBars(ctx context.Context, symbol string, bars models.PriceSeries) error
	LoadBars(ctx context.Context, symbol string, from time.Time) (models.PriceSeries, error)
}

// ResultStore keeps a history of analysis results.
type ResultStore interface {
	SaveResults(ctx context.Context, results []models.ScanResult) error
	ListResults(ctx context.Context, symbol string, limit int) ([]models.ScanResult, error)
}

// SignalPublisher fans published results out to downstream consumers.
type SignalPublisher interface {
	PublishResults(ctx context.Context, results []models.ScanResult) error
}

type Metrics interface {
	RecordScan(side string)
	RecordError(kind string)
	RecordWinRate(symbol string, winrate float64)
	RecordLatency(op string, seconds float64)
	RecordCache(hit bool)
}
