package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RailScan/internal/domain/models"
	"RailScan/pkg/config"
)

func sampleReport() *models.ScanReport {
	return &models.ScanReport{
		Results: []models.ScanResult{
			{Symbol: "AAPL", Side: models.SideLong, Strength: models.StrengthStrong, Score: 73.44, Price: 199,
				Entry: models.Float(199), TP: models.Float(208.95), SL: models.Float(195.02), RR: models.Float(2.5),
				WinRate: models.Float(61.5), N: 13, SlopePctPerDay: 0.63},
			{Symbol: "MSFT", Side: models.SideHold, Strength: models.StrengthWeak, Score: 40, Price: 410},
		},
		Errors:  []models.ScanError{{Symbol: "ZZZZ", Kind: models.ErrKindFetchFailed}},
		Summary: models.ScanSummary{Total: 3, Long: 1, Hold: 1, Errors: 1, Strong: 1, AvgWinRate: models.Float(61.5)},
	}
}

func TestWriteReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, sampleReport()))
	out := buf.String()

	lines := strings.Split(out, "\n")
	assert.True(t, strings.HasPrefix(lines[0], "SYMBOL"))
	assert.Contains(t, lines[1], "AAPL")
	assert.Contains(t, lines[1], "61.5% (n=13)")
	assert.Contains(t, lines[2], "MSFT")
	assert.Contains(t, out, "! ZZZZ: fetch_failed")
	assert.Contains(t, out, "3 scanned: 1 long, 0 short, 1 hold, 1 errors, 1 strong, avg winrate 61.5")
}

func TestWriteDetailHold(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeDetail(&buf, sampleReport().Results[1]))
	out := buf.String()
	assert.Contains(t, out, "HOLD WEAK (40.0)")
	assert.Contains(t, out, "- / -")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, sampleReport().Results[0]))
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "LONG", got["side"])
	assert.Nil(t, sampleReport().Results[1].Entry)
}

func TestParamsOverlayFlags(t *testing.T) {
	cfg, err := config.Parse(nil)
	require.NoError(t, err)

	cmd := &cobra.Command{Use: "x"}
	cmd.Flags().AddFlagSet(rootCmd.PersistentFlags())
	require.NoError(t, cmd.Flags().Parse([]string{"--lookback", "120", "--log=false", "--tp", "4"}))

	p, err := params(cmd, cfg)
	require.NoError(t, err)
	assert.Equal(t, 120, p.Lookback)
	assert.False(t, p.UseLog)
	assert.Equal(t, 4.0, p.TPPct)
	assert.Equal(t, cfg.Scanner.SLPct, p.SLPct)
	assert.Equal(t, cfg.Scanner.Period, p.Period)

	require.NoError(t, cmd.Flags().Set("sl", "100"))
	_, err = params(cmd, cfg)
	assert.Error(t, err)
	require.NoError(t, cmd.Flags().Set("sl", "3"))
}
