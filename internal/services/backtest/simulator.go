// Package backtest estimates how often a TP level is reached before an SL
// level over historical entries.
package backtest

import (
	"RailScan/internal/domain/models"
)

type outcome int

const (
	noHit outcome = iota
	hitTP
	hitSL
)

// SimulateFirstHit enters at each masked bar's close and walks forward up to
// horizon bars checking highs and lows against the TP and SL levels. When both
// are touched on the same bar the stop wins. Entries that touch neither are
// left out of N and counted in NoHits.
//
// A nil mask selects every bar that still has a full horizon ahead.
func SimulateFirstHit(series models.PriceSeries, side models.Side, tpPct, slPct float64, horizon int, mask []bool) models.BacktestResult {
	n := series.Len()
	if n == 0 || !side.Directional() || horizon < 1 {
		return models.BacktestResult{}
	}
	if mask != nil && len(mask) != n {
		return models.BacktestResult{}
	}
	if mask == nil {
		mask = defaultMask(n, horizon)
	}

	var (
		res     models.BacktestResult
		days    float64
		returns float64
	)
	for i, on := range mask {
		if !on || i+1 >= n || i+horizon >= n {
			continue
		}
		entry := series[i].Close
		if entry <= 0 {
			continue
		}
		tp, sl := levels(side, entry, tpPct, slPct)

		hit, at := firstHit(series, side, i, horizon, tp, sl)
		switch hit {
		case noHit:
			res.NoHits++
			continue
		case hitTP:
			res.Wins++
			returns += realized(side, entry, tp)
		case hitSL:
			res.Losses++
			returns += realized(side, entry, sl)
		}
		days += float64(at - i)
	}

	res.N = res.Wins + res.Losses
	if res.N == 0 {
		return models.BacktestResult{NoHits: res.NoHits}
	}
	total := float64(res.N)
	res.WinRate = models.Float(float64(res.Wins) / total * 100)
	res.AvgDaysToHit = models.Float(days / total)
	res.AvgReturnPct = models.Float(returns / total)
	return res
}

func defaultMask(n, horizon int) []bool {
	mask := make([]bool, n)
	for i := 0; i < n-horizon-1; i++ {
		mask[i] = true
	}
	return mask
}

func levels(side models.Side, entry, tpPct, slPct float64) (tp, sl float64) {
	if side == models.SideLong {
		return entry * (1 + tpPct/100), entry * (1 - slPct/100)
	}
	return entry * (1 - tpPct/100), entry * (1 + slPct/100)
}

func firstHit(series models.PriceSeries, side models.Side, i, horizon int, tp, sl float64) (outcome, int) {
	last := i + horizon
	if last > len(series)-1 {
		last = len(series) - 1
	}
	for j := i + 1; j <= last; j++ {
		bar := series[j]
		var tpHit, slHit bool
		if side == models.SideLong {
			slHit = bar.Low <= sl
			tpHit = bar.High >= tp
		} else {
			tpHit = bar.Low <= tp
			slHit = bar.High >= sl
		}
		if slHit {
			return hitSL, j
		}
		if tpHit {
			return hitTP, j
		}
	}
	return noHit, 0
}

// realized is the percent return of exiting at price.
func realized(side models.Side, entry, exit float64) float64 {
	if side == models.SideLong {
		return (exit/entry - 1) * 100
	}
	return (entry/exit - 1) * 100
}
