package usecase

import (
	"sort"

	"RailScan/internal/domain/models"
)

// rankValue is an optional sort key. Unranked values sort after every ranked
// value instead of borrowing a sentinel number.
type rankValue struct {
	value  float64
	ranked bool
}

func rankOf(v *float64) rankValue {
	if v == nil {
		return rankValue{}
	}
	return rankValue{value: *v, ranked: true}
}

// before reports whether a sorts ahead of b in descending order.
func (a rankValue) before(b rankValue) (less, decided bool) {
	switch {
	case a.ranked && !b.ranked:
		return true, true
	case !a.ranked && b.ranked:
		return false, true
	case !a.ranked && !b.ranked, a.value == b.value:
		return false, false
	default:
		return a.value > b.value, true
	}
}

// RankResults orders results: directional before HOLD, then score, win rate
// and rr descending, then symbol.
func RankResults(results []models.ScanResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if ad, bd := a.Side.Directional(), b.Side.Directional(); ad != bd {
			return ad
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if less, ok := rankOf(a.WinRate).before(rankOf(b.WinRate)); ok {
			return less
		}
		if less, ok := rankOf(a.RR).before(rankOf(b.RR)); ok {
			return less
		}
		return a.Symbol < b.Symbol
	})
}

// Summarize counts sides and errors and averages the win rate over results
// that have one.
func Summarize(results []models.ScanResult, errs []models.ScanError) models.ScanSummary {
	s := models.ScanSummary{Total: len(results) + len(errs), Errors: len(errs)}
	var sum float64
	var n int
	for _, r := range results {
		switch r.Side {
		case models.SideLong:
			s.Long++
		case models.SideShort:
			s.Short++
		default:
			s.Hold++
		}
		if r.Strength == models.StrengthStrong {
			s.Strong++
		}
		if r.WinRate != nil {
			sum += *r.WinRate
			n++
		}
	}
	if n > 0 {
		s.AvgWinRate = models.Float(sum / float64(n))
	}
	return s
}
