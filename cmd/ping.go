// Copyright (c) 2026 sqldsh
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"time"

	"sqldsh/cli/internal/bridge"
	"sqldsh/cli/internal/logging"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	pingURL   string
	pingToken string
	pingCount int
)

// pingCmd represents the ping command for measuring round-trip latency.
// Probes travel as WebSocket control frames on the same connection the
// shell would use, so the numbers reflect what statements will see.
var pingCmd = &cobra.Command{
	Use:   "ping [database]",
	Short: "Measure round-trip latency to a database",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dbArg := ""
		if len(args) > 0 {
			dbArg = args[0]
		}
		t, err := resolveTarget(dbArg, pingURL, pingToken)
		if err != nil {
			pterm.Println("❌ " + logging.PresentError("", err))
			return err
		}

		ctx := cmd.Context()
		dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()

		br := bridge.New()
		if err := br.Connect(dialCtx, t.Endpoint, t.Token); err != nil {
			pterm.Println("❌ Failed to connect")
			pterm.Println(logging.PresentError("", err))
			return err
		}
		defer func() { _ = br.Close(context.Background()) }()

		var (
			min, max, total time.Duration
			ok              int
		)
		for i := 0; i < pingCount; i++ {
			pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			d, err := br.Ping(pctx)
			cancel()
			if err != nil {
				pterm.Error.Printf("probe %d: %s\n", i+1, logging.PresentError("", err))
				continue
			}
			pterm.Printf("probe %d: %s\n", i+1, formatLatency(d))
			if ok == 0 || d < min {
				min = d
			}
			if d > max {
				max = d
			}
			total += d
			ok++
			if i < pingCount-1 {
				time.Sleep(200 * time.Millisecond)
			}
		}
		if ok == 0 {
			pterm.Error.Println("all probes failed")
			return nil
		}

		pterm.Println()
		pterm.Printf("%d probe(s) · min %s · avg %s · max %s\n",
			ok, formatLatency(min), formatLatency(total/time.Duration(ok)), formatLatency(max))
		return nil
	},
}

func init() {
	pingCmd.Flags().StringVar(&pingURL, "url", "", "Connect to an explicit ws://, wss:// or libsql:// URL")
	pingCmd.Flags().StringVar(&pingToken, "token", "", "Auth token (JWT) for the handshake")
	pingCmd.Flags().IntVar(&pingCount, "count", 5, "Number of probes to send")
	rootCmd.AddCommand(pingCmd)
}
