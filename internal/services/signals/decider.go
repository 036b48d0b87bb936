// Package signals turns a fitted channel into a directional trade signal.
package signals

import (
	"fmt"
	"math"

	"RailScan/internal/domain/models"
)

const (
	eps = 1e-9

	// midBand is how far from mid (as a fraction) still counts as "near mid".
	midBand = 0.015
	// railBand is the proximity to a rail that triggers a counter-trend entry.
	railBand = 0.005

	baseScore = 50.0
	holdScore = 40.0

	strongScore = 70.0
	weakScore   = 55.0

	ReasonChannelFailed = "channel computation failed"
	ReasonAmbiguous     = "ambiguous zone between mid and rails"
)

// Decide picks a side from the price position against the channel mid and
// the channel slope, then derives TP/SL levels, risk/reward and a score.
// A missing channel or hint yields a WEAK HOLD.
func Decide(price float64, ch *models.Channel, hint *models.RailHint, tpPct, slPct float64) models.Signal {
	if ch.Empty() || hint == nil {
		return models.Signal{
			Side:     models.SideHold,
			Strength: models.StrengthWeak,
			Score:    holdScore,
			Reason:   ReasonChannelFailed,
		}
	}

	mid := hint.Mid
	support, resist := hint.Support, hint.Resist
	trend := ch.SlopePctPerDay
	pos := (price - mid) / (mid + eps)

	side := direction(price, pos, trend, support, resist)

	sig := models.Signal{
		Side:           side,
		Support:        support,
		Resist:         resist,
		Mid:            mid,
		SlopePctPerDay: trend,
	}

	switch side {
	case models.SideLong:
		sig.Entry = models.Float(price)
		sig.TP = models.Float(price * (1 + tpPct/100))
		sig.SL = models.Float(price * (1 - slPct/100))
		sig.EntryZoneLow = models.Float(math.Min(support, mid))
		sig.EntryZoneHigh = models.Float(math.Max(support, mid))
	case models.SideShort:
		sig.Entry = models.Float(price)
		sig.TP = models.Float(price * (1 - tpPct/100))
		sig.SL = models.Float(price * (1 + slPct/100))
		sig.EntryZoneLow = models.Float(math.Min(mid, resist))
		sig.EntryZoneHigh = models.Float(math.Max(mid, resist))
	default:
		sig.Score = holdScore
		sig.Strength = strengthFor(holdScore)
		sig.Reason = ReasonAmbiguous
		return sig
	}

	sig.RR = RiskReward(side, *sig.Entry, *sig.TP, *sig.SL)
	sig.Score = score(side, price, support, resist, trend, sig.RR)
	sig.Strength = strengthFor(sig.Score)
	sig.Reason = fmt.Sprintf("channel slope %+.2f%%/day · vs mid %+.2f%%", trend, pos*100)
	return sig
}

// direction applies the rules in priority order: trend-following near mid
// first, then counter-trend at the rails.
func direction(price, pos, trend, support, resist float64) models.Side {
	switch {
	case trend >= 0 && pos <= midBand:
		return models.SideLong
	case trend <= 0 && pos >= -midBand:
		return models.SideShort
	case price >= resist*(1-railBand):
		return models.SideShort
	case price <= support*(1+railBand):
		return models.SideLong
	default:
		return models.SideHold
	}
}

// RiskReward returns reward over risk, or nil when the stop is not on the
// losing side of entry.
func RiskReward(side models.Side, entry, tp, sl float64) *float64 {
	switch side {
	case models.SideLong:
		if entry <= 0 || entry-sl <= 0 {
			return nil
		}
		return models.Float((tp - entry) / (entry - sl))
	case models.SideShort:
		if sl-entry <= 0 {
			return nil
		}
		return models.Float((entry - tp) / (sl - entry))
	default:
		return nil
	}
}

func score(side models.Side, price, support, resist, trend float64, rr *float64) float64 {
	s := baseScore
	if rr != nil {
		s += clamp((*rr-1)*15, 0, 25)
	}

	var room, tilt float64
	if side == models.SideLong {
		room = (resist - price) / (price + eps)
		tilt = trend * 1.5
	} else {
		room = (price - support) / (price + eps)
		tilt = -trend * 1.5
	}
	s += clamp(room*200, 0, 15)
	s += clamp(tilt, -10, 10)
	return s
}

func strengthFor(score float64) models.Strength {
	switch {
	case score >= strongScore:
		return models.StrengthStrong
	case score < weakScore:
		return models.StrengthWeak
	default:
		return models.StrengthMid
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
