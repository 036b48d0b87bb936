package main

import (
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze SYMBOL",
	Short: "Analyze one instrument",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	p, err := params(cmd, cfg)
	if err != nil {
		return err
	}
	analyzer, _, err := newScanner(cfg)
	if err != nil {
		return err
	}

	p.Symbol = args[0]
	res, err := analyzer.Analyze(cmd.Context(), p)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if flagFormat == "json" {
		return writeJSON(out, res)
	}
	return writeDetail(out, res)
}
