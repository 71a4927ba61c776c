// Package cmd implements the formulaeval command-line demo: a thin
// shell around the public API for exercising the lexer, parser, and
// engine from a terminal.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "formulaeval",
	Short: "Formula evaluation engine command-line demo",
	Long: `formulaeval is a command-line demo for the formula evaluation engine.

It exposes the lexer and parser front end for debugging formula bodies,
and an eval command that runs a batch of formulas from a YAML file
through the engine.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
