// Package regression fits least-squares price channels over daily closes.
package regression

import (
	"math"
	"sort"

	"RailScan/internal/domain/models"
)

const (
	// minFitPoints is the fewest closes a raw fit accepts.
	minFitPoints = 30
	// minEffectiveLookback is the floor applied to the clamped lookback.
	minEffectiveLookback = 60
	// lookbackReserve keeps bars before the window for the similarity mask.
	lookbackReserve = 20
)

// EffectiveLookback clamps a requested lookback to the available history.
func EffectiveLookback(n, lookback int) int {
	lb := lookback
	if n-lookbackReserve < lb {
		lb = n - lookbackReserve
	}
	if lb < minEffectiveLookback {
		lb = minEffectiveLookback
	}
	return lb
}

// FitChannel is the guarded entry point used by the analyzer. It returns nil
// for series shorter than models.MinBars.
func FitChannel(series models.PriceSeries, lookback int, useLog bool, ks []float64) *models.Channel {
	if series.Len() < models.MinBars {
		return nil
	}
	return Fit(series.Closes(), EffectiveLookback(series.Len(), lookback), useLog, ks)
}

// Fit regresses the trailing max(30, lookback) closes against their index and
// draws rails at mid + k*sigma. In log mode the fit runs on ln(close) and the
// rails are mapped back to prices. Nil means the channel is not computable.
func Fit(closes []float64, lookback int, useLog bool, ks []float64) *models.Channel {
	if len(ks) == 0 {
		ks = models.DefaultKs
	}

	take := lookback
	if take < minFitPoints {
		take = minFitPoints
	}
	if take > len(closes) {
		take = len(closes)
	}
	window := closes[len(closes)-take:]
	n := len(window)
	if n < minFitPoints {
		return nil
	}

	y := make([]float64, n)
	for i, c := range window {
		if useLog {
			if c <= 0 {
				return nil
			}
			y[i] = math.Log(c)
		} else {
			y[i] = c
		}
	}

	slope, intercept := linreg(y)

	resid := make([]float64, n)
	for i := range y {
		resid[i] = y[i] - (slope*float64(i) + intercept)
	}
	sigma := stddev(resid)

	midY := slope*float64(n-1) + intercept
	toPrice := func(v float64) float64 {
		if useLog {
			return math.Exp(v)
		}
		return v
	}

	sorted := sortedKs(ks)
	rails := make([]models.Rail, len(sorted))
	for i, k := range sorted {
		rails[i] = models.Rail{K: k, Price: toPrice(midY + k*sigma)}
	}

	var slopePct float64
	if useLog {
		slopePct = slope * 100
	} else {
		slopePct = slope / (mean(window) + 1e-9) * 100
	}

	return &models.Channel{
		Lookback:       lookback,
		UseLog:         useLog,
		Slope:          slope,
		SlopePctPerDay: slopePct,
		Sigma:          sigma,
		Rails:          rails,
		MidNow:         toPrice(midY),
		LastClose:      window[n-1],
		Ks:             sorted,
	}
}

// PickNearestRails returns the closest rail at or below price as support and
// the closest at or above as resistance. When price is outside the channel
// the outermost rail on that side is used. Ties go to the lower K.
func PickNearestRails(ch *models.Channel, price float64) *models.RailHint {
	if ch.Empty() {
		return nil
	}

	support, resist := -1, -1
	for i, r := range ch.Rails {
		if r.Price <= price && (support < 0 || r.Price > ch.Rails[support].Price) {
			support = i
		}
		if r.Price >= price && (resist < 0 || r.Price < ch.Rails[resist].Price) {
			resist = i
		}
	}
	if support < 0 {
		support = 0
	}
	if resist < 0 {
		resist = len(ch.Rails) - 1
	}

	return &models.RailHint{
		SupportK: ch.Rails[support].K,
		Support:  ch.Rails[support].Price,
		ResistK:  ch.Rails[resist].K,
		Resist:   ch.Rails[resist].Price,
		Mid:      ch.MidNow,
	}
}

// linreg fits y = slope*x + intercept with x = 0..n-1 using centered sums.
func linreg(y []float64) (slope, intercept float64) {
	n := float64(len(y))
	xMean := (n - 1) / 2
	yMean := mean(y)

	var num, den float64
	for i, v := range y {
		dx := float64(i) - xMean
		num += dx * (v - yMean)
		den += dx * dx
	}
	if den == 0 {
		return 0, yMean
	}
	slope = num / den
	return slope, yMean - slope*xMean
}

// stddev is the sample standard deviation for n >= 3, population otherwise.
func stddev(v []float64) float64 {
	n := len(v)
	if n == 0 {
		return 0
	}
	m := mean(v)
	var ss float64
	for _, x := range v {
		ss += (x - m) * (x - m)
	}
	ddof := 0
	if n >= 3 {
		ddof = 1
	}
	return math.Sqrt(ss / float64(n-ddof))
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	var s float64
	for _, x := range v {
		s += x
	}
	return s / float64(len(v))
}

func sortedKs(ks []float64) []float64 {
	out := append([]float64(nil), ks...)
	sort.Float64s(out)
	return out
}
