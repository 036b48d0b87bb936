package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"RailScan/internal/domain/models"
	"RailScan/pkg/util"
)

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func winRate(r models.ScanResult) string {
	if r.WinRate == nil {
		return "-"
	}
	return fmt.Sprintf("%s%% (n=%d)", util.FormatFloatPtr(r.WinRate, 1), r.N)
}

// writeDetail prints one result as aligned key/value rows.
func writeDetail(w io.Writer, r models.ScanResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"symbol", r.Symbol},
		{"price", fmt.Sprintf("%.2f", r.Price)},
		{"signal", fmt.Sprintf("%s %s (%.1f)", r.Side, r.Strength, r.Score)},
		{"reason", r.Reason},
		{"entry", util.FormatFloatPtr(r.Entry, 2)},
		{"zone", util.FormatFloatPtr(r.EntryZoneLow, 2) + " .. " + util.FormatFloatPtr(r.EntryZoneHigh, 2)},
		{"tp / sl", util.FormatFloatPtr(r.TP, 2) + " / " + util.FormatFloatPtr(r.SL, 2)},
		{"rr", util.FormatFloatPtr(r.RR, 2)},
		{"rails", fmt.Sprintf("%.2f | %.2f | %.2f", r.Support, r.Mid, r.Resist)},
		{"slope", fmt.Sprintf("%+.2f%%/day", r.SlopePctPerDay)},
		{"winrate", winRate(r)},
		{"wins / losses / open", fmt.Sprintf("%d / %d / %d", r.Wins, r.Losses, r.NoHits)},
		{"avg days", util.FormatFloatPtr(r.AvgDays, 1)},
		{"avg ret", util.FormatFloatPtr(r.AvgRet, 2)},
		{"window", fmt.Sprintf("%s, lookback %d, log=%t, horizon %d, bars %d", r.Period, r.Lookback, r.UseLog, r.Horizon, r.Bars)},
	}
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%s\n", row[0], row[1])
	}
	return tw.Flush()
}

// writeReport prints the ranked table, then errors and the summary.
func writeReport(w io.Writer, rep *models.ScanReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tSIDE\tSTR\tSCORE\tPRICE\tENTRY\tTP\tSL\tRR\tWINRATE\tSLOPE")
	for _, r := range rep.Results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f\t%.2f\t%s\t%s\t%s\t%s\t%s\t%+.2f%%\n",
			r.Symbol, r.Side, r.Strength, r.Score, r.Price,
			util.FormatFloatPtr(r.Entry, 2), util.FormatFloatPtr(r.TP, 2), util.FormatFloatPtr(r.SL, 2),
			util.FormatFloatPtr(r.RR, 2), winRate(r), r.SlopePctPerDay)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, e := range rep.Errors {
		fmt.Fprintf(w, "! %s: %s\n", e.Symbol, e.Kind)
	}
	s := rep.Summary
	fmt.Fprintf(w, "\n%d scanned: %d long, %d short, %d hold, %d errors, %d strong, avg winrate %s\n",
		s.Total, s.Long, s.Short, s.Hold, s.Errors, s.Strong, util.FormatFloatPtr(s.AvgWinRate, 1))
	return nil
}
