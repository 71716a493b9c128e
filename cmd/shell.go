// Copyright (c) 2026 sqldsh
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"sqldsh/cli/internal/auth"
	"sqldsh/cli/internal/bridge"
	"sqldsh/cli/internal/config"
	"sqldsh/cli/internal/endpoint"
	cerrors "sqldsh/cli/internal/errors"
	"sqldsh/cli/internal/logging"
	"sqldsh/cli/internal/xdg"

	"atomicgo.dev/cursor"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// defaultStreamID is the server-side execution context the shell works on.
// One stream is enough for a sequential REPL.
const defaultStreamID int32 = 1

var (
	shellURL       string
	shellToken     string
	shellSaveToken bool
	verboseShell   bool
)

// shellCmd represents the shell command, the interactive SQL REPL. It
// connects to the database, opens an execution stream and then reads
// statements until the user quits, while a background probe keeps a
// latency readout fresh.
var shellCmd = &cobra.Command{
	Use:   "shell [database]",
	Short: "Open an interactive SQL shell",
	Long: `The shell command connects to a libsql/sqld database and starts an
interactive SQL session. Statements end with a semicolon and may span
multiple lines. Results render as tables; server-side statement errors are
shown without ending the session.

Built-in commands:
  .ping         measure round-trip latency
  .quit, .exit  leave the shell`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if verboseShell {
			os.Setenv("SQLDSH_VERBOSE", "1")
			logging.SetVerbose(true)
		}

		dbArg := ""
		if len(args) > 0 {
			dbArg = args[0]
		}
		t, err := resolveTarget(dbArg, shellURL, shellToken)
		if err != nil {
			pterm.Println("❌ " + logging.PresentError("", err))
			return err
		}
		cfg, err := config.Load()
		if err != nil {
			cfg = config.Config{PingIntervalMs: 1000}
		}

		printConnectHeader(t)

		ctx := cmd.Context()
		br, err := connectBridge(ctx, t)
		if err != nil {
			return err
		}
		defer func() { _ = br.Close(context.Background()) }()

		if shellSaveToken && t.Database != "" && t.TokenSource != auth.SourceKeychain {
			if err := auth.SaveToken(t.Database, t.Token); err != nil {
				pterm.Println("⚠️  Could not save token to keychain: " + logging.PresentError("", err))
			} else {
				pterm.Println("🔑 Token saved to OS keychain")
			}
		}

		// Seed the latency readout, then keep it fresh in the background.
		var (
			latMu   sync.Mutex
			latency time.Duration
		)
		if d, err := br.Ping(ctx); err == nil {
			latency = d
		}
		probeCtx, stopProbe := context.WithCancel(ctx)
		defer stopProbe()
		go func() {
			interval := time.Duration(cfg.PingIntervalMs) * time.Millisecond
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-probeCtx.Done():
					return
				case <-ticker.C:
					pctx, cancel := context.WithTimeout(probeCtx, interval)
					d, err := br.Ping(pctx)
					cancel()
					if err == nil {
						latMu.Lock()
						latency = d
						latMu.Unlock()
					}
				}
			}
		}()

		pterm.Success.Println("Connected. Type SQL statements ending with ';' or .help for commands.")
		pterm.Println()

		history := openHistory()
		if history != nil {
			defer history.Close()
		}

		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		var pending strings.Builder

		for {
			latMu.Lock()
			lat := latency
			latMu.Unlock()

			prompt := pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprintf("%s [%s]> ", promptName(t), formatLatency(lat))
			if pending.Len() > 0 {
				prompt = pterm.NewStyle(pterm.FgGray).Sprint("   ...> ")
			}
			fmt.Print(prompt)

			if !scanner.Scan() {
				fmt.Println()
				return scanner.Err()
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}

			if pending.Len() == 0 && (strings.HasPrefix(line, ".") || line == "exit" || line == "quit") {
				switch strings.ToLower(line) {
				case ".quit", ".exit", "exit", "quit":
					return nil
				case ".help":
					pterm.Println("  .ping         measure round-trip latency")
					pterm.Println("  .quit, .exit  leave the shell")
					continue
				case ".ping":
					d, err := br.Ping(ctx)
					if err != nil {
						pterm.Error.Println(logging.PresentError("ping failed", err))
						continue
					}
					pterm.Printf("Latency: %s\n", formatLatency(d))
					continue
				default:
					pterm.Println("Unknown command " + line + "; try .help")
					continue
				}
			}

			pending.WriteString(line)
			if !strings.HasSuffix(line, ";") {
				pending.WriteString(" ")
				continue
			}
			sql := strings.TrimSuffix(strings.TrimSpace(pending.String()), ";")
			pending.Reset()

			if history != nil {
				fmt.Fprintf(history, "%s;\n", sql)
			}

			if err := runStatement(ctx, br, sql); err != nil {
				if cerrors.HasKind(err, cerrors.ConnectionClosed) || cerrors.HasKind(err, cerrors.TransportFailed) {
					pterm.Error.Println(logging.PresentError("connection lost", err))
					return err
				}
			}
		}
	},
}

// connectBridge dials, handshakes and opens the shell's stream, with a
// spinner while the user waits.
func connectBridge(ctx context.Context, t *target) (bridge.Bridge, error) {
	cursor.Hide()
	stopSpin := startInlineSpinner(os.Stderr, "connecting", spinnerFrames, 100*time.Millisecond)
	defer func() {
		stopSpin()
		cursor.Show()
	}()

	dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	br := bridge.New()
	if err := br.Connect(dialCtx, t.Endpoint, t.Token); err != nil {
		stopSpin()
		cursor.Show()
		pterm.Println("❌ Failed to connect")
		pterm.Println(logging.PresentError("", err))
		return nil, err
	}
	if err := br.OpenStream(dialCtx, defaultStreamID); err != nil {
		stopSpin()
		cursor.Show()
		_ = br.Close(context.Background())
		pterm.Println("❌ Failed to open execution stream")
		pterm.Println(logging.PresentError("", err))
		return nil, err
	}
	return br, nil
}

// runStatement executes one statement and renders the outcome. Query
// errors are displayed and swallowed; transport-level failures are
// returned so the caller can end the session.
func runStatement(ctx context.Context, br bridge.Bridge, sql string) error {
	cursor.Hide()
	stopSpin := startInlineSpinner(os.Stderr, "executing", spinnerFrames, 100*time.Millisecond)
	res, err := br.Execute(ctx, defaultStreamID, sql)
	stopSpin()
	cursor.Show()

	if err != nil {
		if cerrors.HasKind(err, cerrors.QueryFailed) {
			pterm.Error.Println(logging.PresentError("", err))
			return nil
		}
		pterm.Error.Println(logging.PresentError("", err))
		return err
	}
	renderResult(res)
	return nil
}

// promptName picks what to show in the prompt: the database name when we
// have one, otherwise the endpoint's host.
func promptName(t *target) string {
	if t.Database != "" {
		return t.Database
	}
	if h := endpoint.Host(t.Endpoint); h != "" {
		return h
	}
	return "sqldsh"
}

// openHistory opens the shell's statement history file for appending.
// History is best-effort; a nil return just disables it.
func openHistory() *os.File {
	dir, err := xdg.StateDir()
	if err != nil {
		return nil
	}
	f, err := os.OpenFile(filepath.Join(dir, "history"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil
	}
	return f
}

func init() {
	shellCmd.Flags().StringVar(&shellURL, "url", "", "Connect to an explicit ws://, wss:// or libsql:// URL")
	shellCmd.Flags().StringVar(&shellToken, "token", "", "Auth token (JWT) for the handshake")
	shellCmd.Flags().BoolVar(&shellSaveToken, "save-token", false, "Save the resolved token to the OS keychain on success")
	shellCmd.Flags().BoolVar(&verboseShell, "verbose", false, "Enable verbose diagnostics")
	rootCmd.AddCommand(shellCmd)
}
