package backtest

import (
	"sort"

	"RailScan/internal/domain/models"
)

// SimilarityMask marks bars whose close sits on the same side of the recent
// median as the current signal. A channel slope against the side tightens the
// threshold by one percent. HOLD marks nothing.
func SimilarityMask(series models.PriceSeries, side models.Side, slopePctPerDay float64, lookback int) []bool {
	mask := make([]bool, series.Len())
	if series.Len() == 0 || !side.Directional() {
		return mask
	}

	closes := series.Closes()
	tail := closes
	if lookback > 0 && lookback < len(closes) {
		tail = closes[len(closes)-lookback:]
	}
	med := median(tail)

	for i, c := range closes {
		switch side {
		case models.SideLong:
			if slopePctPerDay < 0 {
				mask[i] = c <= med*0.99
			} else {
				mask[i] = c <= med
			}
		case models.SideShort:
			if slopePctPerDay > 0 {
				mask[i] = c >= med*1.01
			} else {
				mask[i] = c >= med
			}
		}
	}
	return mask
}

func median(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	s := append([]float64(nil), v...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}
