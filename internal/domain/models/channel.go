package models

// DefaultKs are the sigma multiples drawn as rails.
var DefaultKs = []float64{-2, -1, 0, 1, 2}

// Rail is a channel line at K sigmas from the regression mid.
type Rail struct {
	K     float64 `json:"k"`
	Price float64 `json:"price"`
}

// Channel is a regression fit over the trailing window of closes.
// Rails are ordered by ascending K.
type Channel struct {
	Lookback       int       `json:"lookback"`
	UseLog         bool      `json:"use_log"`
	Slope          float64   `json:"slope"`
	SlopePctPerDay float64   `json:"slope_pct_per_day"`
	Sigma          float64   `json:"sigma"`
	Rails          []Rail    `json:"rails"`
	MidNow         float64   `json:"mid_now"`
	LastClose      float64   `json:"last_close"`
	Ks             []float64 `json:"ks"`
}

// Empty reports whether the channel carries no usable rails.
func (c *Channel) Empty() bool {
	return c == nil || len(c.Rails) == 0
}

// RailHint is the pair of rails bracketing a reference price.
type RailHint struct {
	SupportK float64 `json:"support_k"`
	Support  float64 `json:"support"`
	ResistK  float64 `json:"resist_k"`
	Resist   float64 `json:"resist"`
	Mid      float64 `json:"mid"`
}
