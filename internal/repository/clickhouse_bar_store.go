package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"RailScan/internal/domain/models"
	domrepo "RailScan/internal/domain/repository"
	applogger "RailScan/pkg/logger"
)

// barChunk bounds rows per INSERT statement.
const barChunk = 2000

// CHBarStore implements BarArchive backed by ClickHouse.
type CHBarStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

var _ domrepo.BarArchive = (*CHBarStore)(nil)

func NewCHBarStore(db *sql.DB, database string, l *applogger.Logger) *CHBarStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHBarStore{db: db, table: database + ".daily_bars", l: l}
}

// Schema returns the DDL for the bar archive.
func (s *CHBarStore) Schema() []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            symbol      LowCardinality(String),
            date        Date,
            open        Float64,
            high        Float64,
            low         Float64,
            close       Float64,
            volume      Float64,
            ingested_at DateTime DEFAULT now()
        ) ENGINE = ReplacingMergeTree(ingested_at)
        ORDER BY (symbol, date)`, s.table),
	}
}

// SaveBars inserts bars in multi-row chunks. Re-sent days replace older rows
// at merge time.
func (s *CHBarStore) SaveBars(ctx context.Context, symbol string, bars models.PriceSeries) error {
	if len(bars) == 0 {
		return nil
	}
	start := time.Now()
	for lo := 0; lo < len(bars); lo += barChunk {
		hi := lo + barChunk
		if hi > len(bars) {
			hi = len(bars)
		}

		values := make([]string, 0, hi-lo)
		args := make([]interface{}, 0, (hi-lo)*7)
		for _, b := range bars[lo:hi] {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
			args = append(args, symbol, b.Date, b.Open, b.High, b.Low, b.Close, b.Volume)
		}
		q := fmt.Sprintf("INSERT INTO %s (symbol, date, open, high, low, close, volume) VALUES %s",
			s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.l.Error("clickhouse save_bars error",
				applogger.String("symbol", symbol),
				applogger.Int("rows", hi-lo),
				applogger.Error(err),
			)
			return fmt.Errorf("save bars %s: %w", symbol, err)
		}
	}
	s.l.Debug("clickhouse save_bars ok",
		applogger.String("symbol", symbol),
		applogger.Int("rows", len(bars)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

// LoadBars returns archived bars dated on or after from, oldest first.
func (s *CHBarStore) LoadBars(ctx context.Context, symbol string, from time.Time) (models.PriceSeries, error) {
	q := fmt.Sprintf(`
        SELECT date, open, high, low, close, volume
        FROM %s FINAL
        WHERE symbol = ? AND date >= ?
        ORDER BY date ASC
    `, s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, from)
	if err != nil {
		return nil, fmt.Errorf("load bars %s: %w", symbol, err)
	}
	defer rows.Close()

	out := make(models.PriceSeries, 0, 512)
	for rows.Next() {
		var b models.PriceBar
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		b.Date = b.Date.UTC()
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
