package marketdata

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"RailScan/internal/domain/models"
	"RailScan/internal/domain/repository"
	xhttp "RailScan/pkg/http"
	"RailScan/pkg/util"
)

// StooqSource reads daily bars from the Stooq CSV download endpoint. It is
// used as a fallback when Yahoo is unavailable.
type StooqSource struct {
	baseURL string
	client  *xhttp.Client
	now     func() time.Time
}

// NewStooqSource creates a Stooq CSV client rooted at baseURL.
func NewStooqSource(baseURL string, timeout time.Duration) *StooqSource {
	return &StooqSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout), xhttp.WithUserAgent(browserUA)),
		now:     time.Now,
	}
}

func (s *StooqSource) Name() string { return "stooq" }

// stooqSymbol maps a US ticker to Stooq's lower-case ".us" form.
func stooqSymbol(symbol string) string {
	return strings.ToLower(symbol + ".US")
}

func (s *StooqSource) FetchDaily(ctx context.Context, symbol string, period repository.Period) (models.PriceSeries, error) {
	var body []byte
	err := s.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    s.baseURL + "/q/d/l/",
		QueryParams: map[string][]string{
			"s": {stooqSymbol(symbol)},
			"i": {"d"},
		},
	}, &body)
	if err != nil {
		return nil, fmt.Errorf("stooq fetch %s: %w", symbol, err)
	}

	bars, err := parseStooqCSV(body)
	if err != nil {
		return nil, fmt.Errorf("stooq %s: %w", symbol, err)
	}

	from := repository.PeriodStart(s.now().UTC(), period)
	trimmed := bars[:0]
	for _, b := range bars {
		if !b.Date.Before(from) {
			trimmed = append(trimmed, b)
		}
	}
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("stooq %s: %w", symbol, ErrNoData)
	}
	return trimmed, nil
}

// parseStooqCSV decodes a Date,Open,High,Low,Close,Volume table. Rows that do
// not parse are skipped; a body without a header (Stooq answers "No data")
// yields ErrNoData.
func parseStooqCSV(body []byte) (models.PriceSeries, error) {
	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, ErrNoData
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range []string{"date", "open", "high", "low", "close"} {
		if _, ok := idx[col]; !ok {
			return nil, ErrNoData
		}
	}

	var bars models.PriceSeries
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		b, ok := stooqRow(rec, idx)
		if ok {
			bars = append(bars, b)
		}
	}
	if len(bars) == 0 {
		return nil, ErrNoData
	}
	return bars, nil
}

func stooqRow(rec []string, idx map[string]int) (models.PriceBar, bool) {
	field := func(name string) (float64, bool) {
		i, ok := idx[name]
		if !ok || i >= len(rec) {
			return 0, false
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
		return v, err == nil
	}

	if idx["date"] >= len(rec) {
		return models.PriceBar{}, false
	}
	day, err := util.ParseDay(strings.TrimSpace(rec[idx["date"]]))
	if err != nil {
		return models.PriceBar{}, false
	}
	o, ok1 := field("open")
	h, ok2 := field("high")
	l, ok3 := field("low")
	c, ok4 := field("close")
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return models.PriceBar{}, false
	}
	vol, _ := field("volume")
	return models.PriceBar{Date: day, Open: o, High: h, Low: l, Close: c, Volume: vol}, true
}
