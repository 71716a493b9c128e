// Copyright (c) 2026 sqldsh
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"time"

	"sqldsh/cli/internal/config"
	"sqldsh/cli/internal/turso"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// databasesCmd represents the databases command for listing the databases
// known from the Turso CLI's local cache, along with whether a usable
// cached token exists for each.
var databasesCmd = &cobra.Command{
	Use:     "databases",
	Aliases: []string{"dbs"},
	Short:   "List cached databases and their token status",
	Long: `The databases command lists the databases cached by the Turso CLI,
their hostnames, and whether an unexpired auth token is cached for each.
Run ` + "`turso db list`" + ` to refresh the cache.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := turso.Load()
		if err != nil {
			pterm.Println("⚠️  No Turso config found")
			pterm.Println("   Install the Turso CLI and run: turso db list")
			return nil
		}
		dbs, err := settings.Databases()
		if err != nil {
			pterm.Println("⚠️  " + err.Error())
			return nil
		}

		cfg, _ := config.Load()
		now := time.Now()

		data := pterm.TableData{{"", "NAME", "HOSTNAME", "TOKEN"}}
		for _, db := range dbs {
			marker := ""
			if db.Name == cfg.DefaultDatabase {
				marker = "*"
			}
			tokenState := "—"
			if _, ok := settings.Token(db.Name, now); ok {
				tokenState = "cached"
			} else if tok, found := settings.Cache.DatabaseToken[db.Name]; found && tok.Data != "" {
				tokenState = "expired"
			}
			data = append(data, []string{marker, db.Name, db.Hostname, tokenState})
		}
		if err := pterm.DefaultTable.WithHasHeader().WithHeaderRowSeparator("-").WithData(data).Render(); err != nil {
			return err
		}

		if cfg.DefaultDatabase != "" {
			pterm.Println()
			pterm.Println(pterm.NewStyle(pterm.FgGray).Sprint("* default database"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(databasesCmd)
}
