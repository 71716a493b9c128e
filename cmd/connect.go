// Copyright (c) 2026 sqldsh
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"sqldsh/cli/internal/auth"
	"sqldsh/cli/internal/bridge"
	"sqldsh/cli/internal/config"
	cerrors "sqldsh/cli/internal/errors"
	"sqldsh/cli/internal/logging"
	"sqldsh/cli/internal/terminal"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	connectURL        string
	connectToken      string
	connectSetDefault bool
	verboseConnect    bool
)

// connectCmd represents the connect command for configuring and verifying a
// database connection. It resolves (or prompts for) an auth token, verifies
// it with a real handshake and latency probe, and stores the token in the
// OS keychain so later sessions skip the prompt.
var connectCmd = &cobra.Command{
	Use:   "connect [database]",
	Short: "Verify a database connection and save its token",
	Long: `The connect command verifies that a database is reachable and that an
auth token works, then saves the token securely in the OS keychain. When no
token can be resolved it prompts for one; the prompt is cleared from the
terminal afterwards so the token never lingers on screen.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if verboseConnect {
			os.Setenv("SQLDSH_VERBOSE", "1")
			logging.SetVerbose(true)
		}

		dbArg := ""
		if len(args) > 0 {
			dbArg = args[0]
		}

		t, err := resolveTarget(dbArg, connectURL, connectToken)
		if err != nil {
			// Everything but a missing token is fatal; a missing token we can
			// prompt for.
			if !isTokenMissing(err) {
				pterm.Println("❌ " + logging.PresentError("", err))
				return err
			}
			t, err = promptForToken(dbArg, connectURL)
			if err != nil {
				return err
			}
		}

		printConnectHeader(t)

		ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
		defer cancel()

		stopSpinner := startInlineSpinner(os.Stderr, "verifying connection", spinnerFrames, 100*time.Millisecond)
		br := bridge.New()
		err = br.Connect(ctx, t.Endpoint, t.Token)
		if err == nil {
			_, err = br.Ping(ctx)
		}
		stopSpinner()
		if err != nil {
			pterm.Println("❌ Connection check failed")
			pterm.Println(logging.PresentError("", err))
			return err
		}
		_ = br.Close(context.Background())

		pterm.Success.Println("Connection verified")

		if t.Database != "" && t.TokenSource != auth.SourceKeychain {
			if err := auth.SaveToken(t.Database, t.Token); err != nil {
				pterm.Println("⚠️  Could not save token to keychain: " + logging.PresentError("", err))
			} else {
				pterm.Println("🔑 Token saved to OS keychain")
			}
		}

		if connectSetDefault && t.Database != "" {
			cfg, _ := config.Load()
			cfg.DefaultDatabase = t.Database
			if err := config.Save(cfg); err != nil {
				pterm.Println("⚠️  Could not update config: " + logging.PresentError("", err))
			} else {
				pterm.Printf("Default database set to %s\n", t.Database)
			}
		}
		return nil
	},
}

// isTokenMissing reports whether resolution failed only for lack of a token.
func isTokenMissing(err error) bool {
	return cerrors.HasKind(err, cerrors.TokenMissing)
}

// promptForToken asks for a token on stdin and scrubs it from the terminal
// once read.
func promptForToken(dbArg, flagURL string) (*target, error) {
	reader := bufio.NewReader(os.Stdin)
	promptText := "Enter auth token (JWT): "
	fmt.Print(promptText)
	raw, _ := reader.ReadString('\n')
	raw = strings.TrimSpace(raw)

	// Clear the prompt and user input from terminal
	terminal.ClearPreviousLines(len(promptText) + len(raw))

	if raw == "" {
		return nil, errors.New("token is required")
	}
	return resolveTarget(dbArg, flagURL, raw)
}

func init() {
	connectCmd.Flags().StringVar(&connectURL, "url", "", "Connect to an explicit ws://, wss:// or libsql:// URL")
	connectCmd.Flags().StringVar(&connectToken, "token", "", "Auth token (JWT) for the handshake")
	connectCmd.Flags().BoolVar(&connectSetDefault, "set-default", false, "Make this the default database")
	connectCmd.Flags().BoolVar(&verboseConnect, "verbose", false, "Enable verbose diagnostics")
	rootCmd.AddCommand(connectCmd)
}
