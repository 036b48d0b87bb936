package models

type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
	SideHold  Side = "HOLD"
)

// Directional reports whether the side opens a position.
func (s Side) Directional() bool {
	return s == SideLong || s == SideShort
}

type Strength string

const (
	StrengthStrong Strength = "STRONG"
	StrengthMid    Strength = "MID"
	StrengthWeak   Strength = "WEAK"
)

// Signal is a trade decision with its levels. Level fields are nil for HOLD.
type Signal struct {
	Side           Side     `json:"side"`
	Strength       Strength `json:"strength"`
	Score          float64  `json:"score"`
	Reason         string   `json:"reason"`
	Entry          *float64 `json:"entry"`
	TP             *float64 `json:"tp"`
	SL             *float64 `json:"sl"`
	EntryZoneLow   *float64 `json:"entry_zone_low"`
	EntryZoneHigh  *float64 `json:"entry_zone_high"`
	Support        float64  `json:"support"`
	Resist         float64  `json:"resist"`
	Mid            float64  `json:"mid"`
	SlopePctPerDay float64  `json:"slope_pct_per_day"`
	RR             *float64 `json:"rr"`
}

// BacktestResult summarises first-hit outcomes over comparable history.
// N == 0 means no comparable history resolved.
type BacktestResult struct {
	N            int      `json:"n"`
	Wins         int      `json:"wins"`
	Losses       int      `json:"losses"`
	NoHits       int      `json:"no_hits"`
	WinRate      *float64 `json:"winrate"`
	AvgDaysToHit *float64 `json:"avg_days"`
	AvgReturnPct *float64 `json:"avg_ret"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }
