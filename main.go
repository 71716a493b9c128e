// Package main is the entry point for the sqldsh CLI application.
// It provides an interactive SQL shell for libsql/sqld databases over the
// Hrana WebSocket protocol.
package main

import (
	"sqldsh/cli/cmd"
)

// main is the entry point for the sqldsh CLI application.
// It initializes and executes the command-line interface.
func main() {
	cmd.Execute()
}
