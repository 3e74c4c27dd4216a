package main

import (
	"github.com/spf13/cobra"

	"github.com/samuellwn/beanimport/tools"
)

var rootCmd = &cobra.Command{
	Use:   "beanimport",
	Short: "Rule-driven ledger importer for beancount-flavored ledgers",
	Long: `beanimport turns bank statement exports (CSV, OFX) into beancount transactions
by matching each extracted record against a configurable rule list, then reconciles the
generated transactions against an existing ledger file tree.`,
}

// Execute adds all child commands to the root command and runs it. Called by main.main.
func Execute() {
	tools.HandleErr(rootCmd.Execute())
}
