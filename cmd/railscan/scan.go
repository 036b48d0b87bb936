package main

import (
	"RailScan/internal/usecase"

	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan SYMBOL...",
	Short: "Scan and rank several instruments",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	p, err := params(cmd, cfg)
	if err != nil {
		return err
	}
	_, scanner, err := newScanner(cfg)
	if err != nil {
		return err
	}

	report, err := scanner.Scan(cmd.Context(), usecase.ScanParams{Symbols: args, Template: p})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if flagFormat == "json" {
		return writeJSON(out, report)
	}
	return writeReport(out, report)
}
