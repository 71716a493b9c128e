// Copyright (c) 2026 sqldsh
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for the sqldsh application.
// It implements subcommands for the interactive SQL shell, one-shot query
// execution, latency probing, and database discovery using the Cobra CLI
// framework. The package handles command parsing, execution, and provides a
// rich terminal UI with spinners and result tables.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	showVersion bool
)

// rootCmd represents the base command when called without any subcommands.
// It serves as the entry point for the sqldsh application.
var rootCmd = &cobra.Command{
	Use:           "sqldsh",
	Short:         "Interactive SQL shell for libsql/sqld databases",
	Long:          `sqldsh is a terminal SQL shell for libsql/sqld databases. It speaks the Hrana protocol over a persistent WebSocket, multiplexing statements, stream management and latency probes over a single connection.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Printf("sqldsh %s\n", Version)
			return nil
		}
		// If no flag is set, show help
		return cmd.Help()
	},
}

// Execute runs the CLI application.
// It executes the root command and handles any errors that occur during execution.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show version information")
}
