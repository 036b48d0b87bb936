package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"RailScan/internal/domain/models"
)

func closes(v ...float64) models.PriceSeries {
	out := make(models.PriceSeries, len(v))
	for i, c := range v {
		out[i] = models.PriceBar{Open: c, High: c, Low: c, Close: c}
	}
	return out
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 2.0, median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, median([]float64{4, 1, 3, 2}))
	assert.Equal(t, 0.0, median(nil))
}

func TestSimilarityMaskLong(t *testing.T) {
	s := closes(90, 99.5, 100, 101, 110)

	// median over the last 3 closes (100, 101, 110) is 101
	assert.Equal(t, []bool{true, true, true, true, false}, SimilarityMask(s, models.SideLong, 0.2, 3))
	// falling channel requires close <= 99.99
	assert.Equal(t, []bool{true, true, false, false, false}, SimilarityMask(s, models.SideLong, -0.2, 3))
}

func TestSimilarityMaskShort(t *testing.T) {
	s := closes(90, 100, 101, 102, 110)

	// median of all five closes is 101
	assert.Equal(t, []bool{false, false, true, true, true}, SimilarityMask(s, models.SideShort, -0.1, 0))
	// rising channel requires close >= 102.01
	assert.Equal(t, []bool{false, false, false, false, true}, SimilarityMask(s, models.SideShort, 0.1, 50))
}

func TestSimilarityMaskHold(t *testing.T) {
	m := SimilarityMask(closes(1, 2, 3), models.SideHold, 0, 3)
	assert.Equal(t, []bool{false, false, false}, m)
	assert.Empty(t, SimilarityMask(nil, models.SideLong, 0, 3))
}
