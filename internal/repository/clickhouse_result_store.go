package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"RailScan/internal/domain/models"
	domrepo "RailScan/internal/domain/repository"
	applogger "RailScan/pkg/logger"
)

// CHResultStore keeps analysis results in ClickHouse. The full record is
// stored as JSON next to a few columns used for filtering.
type CHResultStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

var _ domrepo.ResultStore = (*CHResultStore)(nil)

func NewCHResultStore(db *sql.DB, database string, l *applogger.Logger) *CHResultStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHResultStore{db: db, table: database + ".scan_results", l: l}
}

// Schema returns the DDL for the result history.
func (s *CHResultStore) Schema() []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            analyzed_at DateTime64(3),
            symbol      LowCardinality(String),
            side        LowCardinality(String),
            strength    LowCardinality(String),
            score       Float64,
            winrate     Nullable(Float64),
            payload     String
        ) ENGINE = MergeTree
        PARTITION BY toYYYYMM(analyzed_at)
        ORDER BY (symbol, analyzed_at)
        TTL toDateTime(analyzed_at) + INTERVAL 180 DAY`, s.table),
	}
}

func (s *CHResultStore) SaveResults(ctx context.Context, results []models.ScanResult) error {
	if len(results) == 0 {
		return nil
	}
	values := make([]string, 0, len(results))
	args := make([]interface{}, 0, len(results)*7)
	for _, r := range results {
		payload, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode result %s: %w", r.Symbol, err)
		}
		values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
		args = append(args, r.AnalyzedAt, r.Symbol, string(r.Side), string(r.Strength), r.Score, r.WinRate, string(payload))
	}
	q := fmt.Sprintf("INSERT INTO %s (analyzed_at, symbol, side, strength, score, winrate, payload) VALUES %s",
		s.table, strings.Join(values, ","))
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		s.l.Error("clickhouse save_results error", applogger.Int("rows", len(results)), applogger.Error(err))
		return fmt.Errorf("save results: %w", err)
	}
	return nil
}

// ListResults returns the newest results for symbol, newest first.
func (s *CHResultStore) ListResults(ctx context.Context, symbol string, limit int) ([]models.ScanResult, error) {
	if limit <= 0 {
		limit = 50
	}
	q := fmt.Sprintf(`
        SELECT payload
        FROM %s
        WHERE symbol = ?
        ORDER BY analyzed_at DESC
        LIMIT ?
    `, s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("list results %s: %w", symbol, err)
	}
	defer rows.Close()

	out := make([]models.ScanResult, 0, limit)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		var r models.ScanResult
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			s.l.Warn("clickhouse list_results: bad payload", applogger.String("symbol", symbol), applogger.Error(err))
			continue
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
