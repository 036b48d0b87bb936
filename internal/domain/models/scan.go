package models

import "time"

// AnalysisParams are the numeric knobs of one instrument analysis.
type AnalysisParams struct {
	Symbol   string  `json:"symbol"`
	Period   string  `json:"period"`
	Lookback int     `json:"lookback"`
	UseLog   bool    `json:"use_log"`
	TPPct    float64 `json:"tp_pct"`
	SLPct    float64 `json:"sl_pct"`
	Horizon  int     `json:"horizon"`
}

// ScanResult is the flat per-instrument record returned by analyze and scan.
type ScanResult struct {
	Symbol         string    `json:"symbol"`
	Price          float64   `json:"price"`
	Side           Side      `json:"side"`
	Strength       Strength  `json:"strength"`
	Score          float64   `json:"score"`
	Reason         string    `json:"reason"`
	Entry          *float64  `json:"entry"`
	TP             *float64  `json:"tp"`
	SL             *float64  `json:"sl"`
	EntryZoneLow   *float64  `json:"entry_zone_low"`
	EntryZoneHigh  *float64  `json:"entry_zone_high"`
	Support        float64   `json:"support"`
	Mid            float64   `json:"mid"`
	Resist         float64   `json:"resist"`
	SlopePctPerDay float64   `json:"slope_pct_per_day"`
	RR             *float64  `json:"rr"`
	WinRate        *float64  `json:"tp_sl_winrate"`
	N              int       `json:"tp_sl_n"`
	Wins           int       `json:"tp_sl_wins"`
	Losses         int       `json:"tp_sl_losses"`
	NoHits         int       `json:"tp_sl_no_hits"`
	AvgDays        *float64  `json:"avg_days"`
	AvgRet         *float64  `json:"avg_ret"`
	Period         string    `json:"period"`
	Lookback       int       `json:"lookback"`
	UseLog         bool      `json:"use_log"`
	TPPct          float64   `json:"tp_pct"`
	SLPct          float64   `json:"sl_pct"`
	Horizon        int       `json:"horizon"`
	Bars           int       `json:"bars"`
	AnalyzedAt     time.Time `json:"analyzed_at"`
}

type ErrorKind string

const (
	ErrKindInsufficientHistory ErrorKind = "insufficient_history"
	ErrKindPriceUnavailable    ErrorKind = "price_unavailable"
	ErrKindChannelUnavailable  ErrorKind = "channel_unavailable"
	ErrKindFetchFailed         ErrorKind = "fetch_failed"
	ErrKindInvalidSymbol       ErrorKind = "invalid_symbol"
)

// ScanError is a per-instrument failure inside a batch.
type ScanError struct {
	Symbol string    `json:"symbol"`
	Kind   ErrorKind `json:"kind"`
	Error  string    `json:"error"`
}

type ScanSummary struct {
	Total      int      `json:"total"`
	Long       int      `json:"long"`
	Short      int      `json:"short"`
	Hold       int      `json:"hold"`
	Errors     int      `json:"errors"`
	Strong     int      `json:"strong"`
	AvgWinRate *float64 `json:"avg_winrate"`
}

// ScanReport is the ranked outcome of a batch scan.
type ScanReport struct {
	Results   []ScanResult `json:"results"`
	Errors    []ScanError  `json:"errors"`
	Summary   ScanSummary  `json:"summary"`
	StartedAt time.Time    `json:"started_at"`
	TookMs    int64        `json:"took_ms"`
}

type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// ScanJob tracks an asynchronous batch scan.
type ScanJob struct {
	ID        string      `json:"id"`
	Status    JobStatus   `json:"status"`
	Symbols   []string    `json:"symbols"`
	Report    *ScanReport `json:"report,omitempty"`
	Error     string      `json:"error,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}
