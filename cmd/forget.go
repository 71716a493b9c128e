// Copyright (c) 2026 sqldsh
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"sqldsh/cli/internal/auth"
	"sqldsh/cli/internal/logging"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// forgetCmd represents the forget command for removing a saved token.
// The counterpart to saving a token on connect: the next session
// resolves the token from scratch.
var forgetCmd = &cobra.Command{
	Use:   "forget <database>",
	Short: "Remove a database's saved token from the OS keychain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database := args[0]
		if err := auth.DeleteToken(database); err != nil {
			pterm.Println("❌ " + logging.PresentError("could not remove token", err))
			return err
		}
		pterm.Success.Printf("Removed saved token for %s\n", database)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(forgetCmd)
}
