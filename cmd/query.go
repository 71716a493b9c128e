// Copyright (c) 2026 sqldsh
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"os"
	"time"

	"sqldsh/cli/internal/bridge"
	"sqldsh/cli/internal/logging"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	queryDB      string
	queryURL     string
	queryToken   string
	verboseQuery bool
)

// queryCmd represents the query command for one-shot statement execution.
// It connects, runs a single statement, renders the result and exits,
// which makes it usable from scripts.
var queryCmd = &cobra.Command{
	Use:   "query <sql>",
	Short: "Execute a single SQL statement and exit",
	Long: `The query command connects to a database, executes one SQL statement,
prints the result as a table and disconnects. Use --db to name a cached
Turso database or --url for an explicit endpoint.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if verboseQuery {
			os.Setenv("SQLDSH_VERBOSE", "1")
			logging.SetVerbose(true)
		}

		t, err := resolveTarget(queryDB, queryURL, queryToken)
		if err != nil {
			pterm.Println("❌ " + logging.PresentError("", err))
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
		defer cancel()

		br := bridge.New()
		if err := br.Connect(ctx, t.Endpoint, t.Token); err != nil {
			pterm.Println("❌ Failed to connect")
			pterm.Println(logging.PresentError("", err))
			return err
		}
		defer func() { _ = br.Close(context.Background()) }()

		if err := br.OpenStream(ctx, defaultStreamID); err != nil {
			pterm.Println("❌ Failed to open execution stream")
			pterm.Println(logging.PresentError("", err))
			return err
		}

		res, err := br.Execute(ctx, defaultStreamID, args[0])
		if err != nil {
			pterm.Error.Println(logging.PresentError("", err))
			return err
		}
		renderResult(res)
		return nil
	},
}

func init() {
	queryCmd.Flags().StringVar(&queryDB, "db", "", "Cached Turso database name")
	queryCmd.Flags().StringVar(&queryURL, "url", "", "Connect to an explicit ws://, wss:// or libsql:// URL")
	queryCmd.Flags().StringVar(&queryToken, "token", "", "Auth token (JWT) for the handshake")
	queryCmd.Flags().BoolVar(&verboseQuery, "verbose", false, "Enable verbose diagnostics")
	rootCmd.AddCommand(queryCmd)
}
