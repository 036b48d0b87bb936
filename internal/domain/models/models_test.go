package models

import (
	"testing"

	"github.com/creasty/defaults"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSymbols(t *testing.T) {
	assert.Equal(t, []string{"AAPL", "MSFT"}, SplitSymbols(" aapl, msft,,AAPL "))
	assert.Empty(t, SplitSymbols(" , "))
}

func TestAnalyzeRequestParams(t *testing.T) {
	r := AnalyzeRequest{Symbol: " spy ", Period: "1y", Lookback: 120, UseLog: "false", TP: 4, SL: 2, Horizon: 5}
	p := r.Params()
	assert.Equal(t, "SPY", p.Symbol)
	assert.False(t, p.UseLog)
	assert.Equal(t, 4.0, p.TPPct)

	r.UseLog = "1"
	assert.True(t, r.Params().UseLog)
}

func TestRequestDefaultsKeepExplicitFalse(t *testing.T) {
	a := AnalyzeRequest{Symbol: "SPY", UseLog: "false"}
	require.NoError(t, defaults.Set(&a))
	assert.False(t, a.Params().UseLog)
	assert.Equal(t, 200, a.Lookback)

	var unset AnalyzeRequest
	require.NoError(t, defaults.Set(&unset))
	assert.True(t, unset.Params().UseLog)

	s := ScanRequest{Symbols: "SPY", UseLog: "0"}
	require.NoError(t, defaults.Set(&s))
	assert.Equal(t, "0", s.UseLog)
}

func TestChannelEmpty(t *testing.T) {
	var c *Channel
	assert.True(t, c.Empty())
	assert.True(t, (&Channel{}).Empty())
	assert.False(t, (&Channel{Rails: []Rail{{K: 0, Price: 1}}}).Empty())
}

func TestSideDirectional(t *testing.T) {
	assert.True(t, SideLong.Directional())
	assert.True(t, SideShort.Directional())
	assert.False(t, SideHold.Directional())
}
