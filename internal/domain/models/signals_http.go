package models

import "strings"

// Requests for the scanner HTTP endpoints. Defined in domain for reuse by the
// kafka scan-request handler and the CLI.

// AnalyzeRequest binds a single-symbol analysis.
type AnalyzeRequest struct {
	Symbol   string  `query:"symbol" json:"symbol" validate:"required,max=20"`
	Period   string  `query:"period" json:"period" default:"2y" validate:"oneof=6mo 1y 2y 5y 10y max"`
	Lookback int     `query:"lookback" json:"lookback" default:"200" validate:"gte=60,lte=2000"`
	// UseLog is bound as a string so an explicit false survives default filling.
	UseLog   string  `query:"use_log" json:"use_log" default:"true" validate:"oneof=true false 1 0"`
	TP       float64 `query:"tp" json:"tp" default:"5" validate:"gt=0,lte=100"`
	SL       float64 `query:"sl" json:"sl" default:"3" validate:"gt=0,lt=100"`
	Horizon  int     `query:"horizon" json:"horizon" default:"10" validate:"gte=1,lte=250"`
}

func (r AnalyzeRequest) Params() AnalysisParams {
	return AnalysisParams{
		Symbol:   strings.ToUpper(strings.TrimSpace(r.Symbol)),
		Period:   r.Period,
		Lookback: r.Lookback,
		UseLog:   parseBool(r.UseLog),
		TPPct:    r.TP,
		SLPct:    r.SL,
		Horizon:  r.Horizon,
	}
}

type ScanRequest struct {
	Symbols  string  `query:"symbols" json:"symbols" validate:"required"`
	Period   string  `query:"period" json:"period" default:"2y" validate:"oneof=6mo 1y 2y 5y 10y max"`
	Lookback int     `query:"lookback" json:"lookback" default:"200" validate:"gte=60,lte=2000"`
	// UseLog is bound as a string so an explicit false survives default filling.
	UseLog   string  `query:"use_log" json:"use_log" default:"true" validate:"oneof=true false 1 0"`
	TP       float64 `query:"tp" json:"tp" default:"5" validate:"gt=0,lte=100"`
	SL       float64 `query:"sl" json:"sl" default:"3" validate:"gt=0,lt=100"`
	Horizon  int     `query:"horizon" json:"horizon" default:"10" validate:"gte=1,lte=250"`
}

// SymbolList splits the comma separated symbols, upper-cased and de-duplicated.
func (r ScanRequest) SymbolList() []string {
	return SplitSymbols(r.Symbols)
}

// Template returns the shared params; Symbol is left empty.
func (r ScanRequest) Template() AnalysisParams {
	return AnalysisParams{
		Period:   r.Period,
		Lookback: r.Lookback,
		UseLog:   parseBool(r.UseLog),
		TPPct:    r.TP,
		SLPct:    r.SL,
		Horizon:  r.Horizon,
	}
}

type HistoryRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,max=20"`
	Limit  int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=1000"`
}

type JobRequest struct {
	ID string `param:"id" validate:"required,uuid"`
}

// SplitSymbols parses a comma separated list into normalized tickers.
func SplitSymbols(s string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "false", "0":
		return false
	default:
		return true
	}
}
