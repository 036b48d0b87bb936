package signals

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RailScan/internal/domain/models"
	"RailScan/internal/services/regression"
)

func channelWith(trend float64) *models.Channel {
	return &models.Channel{
		SlopePctPerDay: trend,
		MidNow:         100,
		Rails:          []models.Rail{{K: -1, Price: 90}, {K: 0, Price: 100}, {K: 1, Price: 110}},
	}
}

func TestDecideEndToEndLinear(t *testing.T) {
	day := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	series := make(models.PriceSeries, 100)
	for i := range series {
		c := 100 + float64(i)
		series[i] = models.PriceBar{Date: day.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 1}
	}

	ch := regression.FitChannel(series, 80, false, nil)
	require.NotNil(t, ch)
	hint := regression.PickNearestRails(ch, 199)
	require.NotNil(t, hint)

	sig := Decide(199, ch, hint, 5, 2)
	assert.Equal(t, models.SideLong, sig.Side)
	require.NotNil(t, sig.RR)
	assert.InDelta(t, 2.5, *sig.RR, 1e-9)
	assert.InDelta(t, 50+22.5+0+1.5*100/159.5, sig.Score, 1e-6)
	assert.InDelta(t, 73.44, sig.Score, 0.01)
	assert.Equal(t, models.StrengthStrong, sig.Strength)
	assert.Equal(t, "channel slope +0.63%/day · vs mid +0.00%", sig.Reason)

	require.NotNil(t, sig.Entry)
	assert.Equal(t, 199.0, *sig.Entry)
	assert.InDelta(t, 199*1.05, *sig.TP, 1e-9)
	assert.InDelta(t, 199*0.98, *sig.SL, 1e-9)
	assert.InDelta(t, 199.0, *sig.EntryZoneLow, 1e-9)
	assert.InDelta(t, 199.0, *sig.EntryZoneHigh, 1e-9)
}

func TestDecideShortSeriesHolds(t *testing.T) {
	day := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	series := make(models.PriceSeries, 50)
	for i := range series {
		series[i] = models.PriceBar{Date: day.AddDate(0, 0, i), Open: 10, High: 10, Low: 10, Close: 10}
	}
	ch := regression.FitChannel(series, 200, true, nil)
	assert.Nil(t, ch)

	sig := Decide(10, ch, regression.PickNearestRails(ch, 10), 5, 3)
	assert.Equal(t, models.SideHold, sig.Side)
	assert.Equal(t, models.StrengthWeak, sig.Strength)
	assert.Equal(t, 40.0, sig.Score)
	assert.Equal(t, ReasonChannelFailed, sig.Reason)
	assert.Nil(t, sig.Entry)
	assert.Nil(t, sig.TP)
	assert.Nil(t, sig.SL)
	assert.Nil(t, sig.RR)
}

func TestDecideDirection(t *testing.T) {
	tests := []struct {
		name    string
		trend   float64
		price   float64
		support float64
		resist  float64
		want    models.Side
	}{
		{"uptrend below mid", 0.4, 99, 90, 100, models.SideLong},
		{"flat trend at mid prefers long", 0, 100, 100, 100, models.SideLong},
		{"downtrend near mid", -0.2, 100.5, 100, 110, models.SideShort},
		{"uptrend stretched to resist", 0.5, 109.6, 100, 110, models.SideShort},
		{"downtrend washed to support", -0.3, 90.2, 90, 100, models.SideLong},
		{"uptrend between mid and resist", 0.5, 103, 100, 110, models.SideHold},
		{"downtrend between support and mid", -0.5, 95, 90, 100, models.SideHold},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hint := &models.RailHint{Support: tt.support, Resist: tt.resist, Mid: 100}
			sig := Decide(tt.price, channelWith(tt.trend), hint, 5, 3)
			assert.Equal(t, tt.want, sig.Side)
		})
	}
}

func TestDecideHoldLevels(t *testing.T) {
	hint := &models.RailHint{Support: 100, Resist: 110, Mid: 100}
	sig := Decide(103, channelWith(0.5), hint, 5, 3)

	assert.Equal(t, models.SideHold, sig.Side)
	assert.Equal(t, 40.0, sig.Score)
	assert.Equal(t, models.StrengthWeak, sig.Strength)
	assert.Equal(t, ReasonAmbiguous, sig.Reason)
	assert.Nil(t, sig.Entry)
	assert.Nil(t, sig.EntryZoneLow)
	assert.Nil(t, sig.RR)
	assert.Equal(t, 110.0, sig.Resist)
}

func TestDecideCounterTrendShortScore(t *testing.T) {
	hint := &models.RailHint{Support: 105, Resist: 110, Mid: 100}
	sig := Decide(109.6, channelWith(0.5), hint, 5, 3)

	require.Equal(t, models.SideShort, sig.Side)
	want := 50 + (5.0/3-1)*15 + (109.6-105)/109.6*200 - 0.75
	assert.InDelta(t, want, sig.Score, 1e-6)
	assert.Equal(t, models.StrengthMid, sig.Strength)
	assert.InDelta(t, 109.6*0.95, *sig.TP, 1e-9)
	assert.InDelta(t, 109.6*1.03, *sig.SL, 1e-9)
	assert.Equal(t, 100.0, *sig.EntryZoneLow)
	assert.Equal(t, 110.0, *sig.EntryZoneHigh)
}

func TestDecideScoreClamps(t *testing.T) {
	hint := &models.RailHint{Support: 50, Resist: 200, Mid: 100}
	sig := Decide(99, channelWith(20), hint, 50, 1)

	require.Equal(t, models.SideLong, sig.Side)
	assert.InDelta(t, 50+25+15+10, sig.Score, 1e-9)
}

func TestRiskReward(t *testing.T) {
	assert.Nil(t, RiskReward(models.SideLong, 100, 105, 100), "degenerate long stop")
	assert.Nil(t, RiskReward(models.SideShort, 100, 95, 100), "degenerate short stop")
	assert.Nil(t, RiskReward(models.SideHold, 100, 105, 95))

	rr := RiskReward(models.SideLong, 100, 106, 98)
	require.NotNil(t, rr)
	assert.InDelta(t, 3.0, *rr, 1e-9)

	rr = RiskReward(models.SideShort, 100, 94, 102)
	require.NotNil(t, rr)
	assert.InDelta(t, 3.0, *rr, 1e-9)
}

func TestDecideZeroStopHasNoRR(t *testing.T) {
	hint := &models.RailHint{Support: 90, Resist: 110, Mid: 100}
	sig := Decide(99, channelWith(0.1), hint, 5, 0)
	require.Equal(t, models.SideLong, sig.Side)
	assert.Nil(t, sig.RR)
}
