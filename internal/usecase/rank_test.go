package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"RailScan/internal/domain/models"
)

func TestRankResults(t *testing.T) {
	results := []models.ScanResult{
		{Symbol: "HOLD", Side: models.SideHold, Score: 99},
		{Symbol: "NORR", Side: models.SideLong, Score: 70, WinRate: models.Float(50)},
		{Symbol: "RR3", Side: models.SideLong, Score: 70, WinRate: models.Float(50), RR: models.Float(3)},
		{Symbol: "RR2", Side: models.SideShort, Score: 70, WinRate: models.Float(50), RR: models.Float(2)},
		{Symbol: "NOWR", Side: models.SideLong, Score: 70, RR: models.Float(9)},
		{Symbol: "TOP", Side: models.SideShort, Score: 85},
		{Symbol: "BETA", Side: models.SideLong, Score: 60},
		{Symbol: "ALFA", Side: models.SideLong, Score: 60},
	}
	RankResults(results)

	var got []string
	for _, r := range results {
		got = append(got, r.Symbol)
	}
	assert.Equal(t, []string{"TOP", "RR3", "RR2", "NORR", "NOWR", "ALFA", "BETA", "HOLD"}, got)
}

func TestRankValueBefore(t *testing.T) {
	tests := []struct {
		name        string
		a, b        rankValue
		less, known bool
	}{
		{"ranked beats unranked", rankValue{1, true}, rankValue{}, true, true},
		{"unranked loses", rankValue{}, rankValue{1, true}, false, true},
		{"both unranked tie", rankValue{}, rankValue{}, false, false},
		{"equal tie", rankValue{2, true}, rankValue{2, true}, false, false},
		{"higher first", rankValue{3, true}, rankValue{2, true}, true, true},
		{"negative still ranked", rankValue{-5, true}, rankValue{}, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			less, known := tt.a.before(tt.b)
			assert.Equal(t, tt.less, less)
			assert.Equal(t, tt.known, known)
		})
	}
}

func TestSummarizeWithoutWinRates(t *testing.T) {
	s := Summarize([]models.ScanResult{{Side: models.SideHold}}, nil)
	assert.Equal(t, 1, s.Total)
	assert.Equal(t, 1, s.Hold)
	assert.Nil(t, s.AvgWinRate)
}
