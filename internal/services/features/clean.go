// Package features prepares raw provider bars for analysis.
package features

import (
	"math"
	"sort"

	"RailScan/internal/domain/models"
	"RailScan/pkg/util"
)

// ValidBar reports whether every price is a positive finite number and the
// high/low range is consistent.
func ValidBar(b models.PriceBar) bool {
	for _, v := range []float64{b.Open, b.High, b.Low, b.Close} {
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.High >= b.Low
}

// CleanBars sorts bars by date, drops invalid rows and keeps the last bar for
// each calendar day. Dates are normalized to UTC midnight. The input is not
// modified.
func CleanBars(bars models.PriceSeries) models.PriceSeries {
	out := make(models.PriceSeries, 0, len(bars))
	for _, b := range bars {
		if !ValidBar(b) {
			continue
		}
		b.Date = util.DayUTC(b.Date)
		if math.IsNaN(b.Volume) || b.Volume < 0 {
			b.Volume = 0
		}
		out = append(out, b)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })

	dedup := out[:0]
	for _, b := range out {
		if n := len(dedup); n > 0 && dedup[n-1].Date.Equal(b.Date) {
			dedup[n-1] = b
			continue
		}
		dedup = append(dedup, b)
	}
	return dedup
}
