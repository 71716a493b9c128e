// Copyright (c) 2026 sqldsh
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"sqldsh/cli/internal/hrana"
	"sqldsh/cli/internal/logging"

	"github.com/pterm/pterm"
)

// startInlineSpinner starts a simple inline spinner animation on a single line.
// It displays rotating animation frames followed by the provided text,
// updating the same line in the terminal. The spinner runs in a separate
// goroutine; the returned function stops it and clears the line.
func startInlineSpinner(w io.Writer, text string, frames []string, interval time.Duration) func() {
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		i := 0
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				line := fmt.Sprintf("%s %s", frames[i%len(frames)], text)
				// Clear the spinner line completely, then return
				fmt.Fprintf(w, "\r%*s\r", len(line), "")
				return
			case <-ticker.C:
				line := fmt.Sprintf("%s %s", frames[i%len(frames)], text)
				if len(line) > 2000 {
					line = line[:2000]
				}
				fmt.Fprintf(w, "\r%s", line)
				i++
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			wg.Wait()
		})
	}
}

var spinnerFrames = []string{"-", "\\", "|", "/"}

// printConnectHeader shows where we are about to connect, with the token
// source called out and the endpoint masked so credentials never print.
func printConnectHeader(t *target) {
	pterm.Println()
	if t.Database != "" {
		pterm.Println(pterm.NewStyle(pterm.FgLightCyan).Sprint("→ Database: ") + pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint(t.Database))
	}
	pterm.Println(pterm.NewStyle(pterm.FgLightCyan).Sprint("→ Endpoint: ") + pterm.NewStyle(pterm.FgLightBlue).Sprint(logging.Mask(t.Endpoint)))
	pterm.Println(pterm.NewStyle(pterm.FgLightCyan).Sprint("→ Token:    ") + pterm.NewStyle(pterm.FgGray).Sprint("from "+string(t.TokenSource)))
	pterm.Println()
}

// renderResult prints a statement result as a table plus a counters footer.
// Statements that produced no rows print only the counters.
func renderResult(res hrana.StmtResult) {
	if len(res.Cols) > 0 && len(res.Rows) > 0 {
		data := make(pterm.TableData, 0, len(res.Rows)+1)
		header := make([]string, 0, len(res.Cols))
		for _, col := range res.Cols {
			header = append(header, col.DisplayName())
		}
		data = append(data, header)
		for _, row := range res.Rows {
			cells := make([]string, 0, len(row))
			for _, v := range row {
				cells = append(cells, formatValue(v))
			}
			data = append(data, cells)
		}
		_ = pterm.DefaultTable.WithHasHeader().WithHeaderRowSeparator("-").WithData(data).Render()
	}

	summary := fmt.Sprintf("%d row(s)", len(res.Rows))
	if res.AffectedRowCount > 0 {
		summary = fmt.Sprintf("%d row(s) affected", res.AffectedRowCount)
	}
	pterm.Println(pterm.NewStyle(pterm.FgGray).Sprintf("%s · read %d · written %d · %.1fms",
		summary, res.RowsRead, res.RowsWritten, res.QueryDurationMs))
}

// blobPreviewBytes limits how much of a blob is rendered in a table cell.
const blobPreviewBytes = 16

// formatValue renders one cell. Blobs are shown as spaced hex, truncated
// with a byte count when long; everything else uses the value's natural
// text form.
func formatValue(v hrana.Value) string {
	if v.Kind != hrana.KindBlob {
		return v.String()
	}
	raw, err := base64.StdEncoding.DecodeString(v.Base64)
	if err != nil {
		// Not valid base64; show what the server sent.
		return v.Base64
	}
	shown := raw
	if len(raw) > blobPreviewBytes {
		shown = raw[:blobPreviewBytes]
	}
	pairs := make([]string, 0, len(shown))
	for _, b := range shown {
		pairs = append(pairs, strings.ToUpper(hex.EncodeToString([]byte{b})))
	}
	out := strings.Join(pairs, " ")
	if len(raw) > blobPreviewBytes {
		out = fmt.Sprintf("%s … (%d bytes)", out, len(raw))
	}
	return out
}

// formatLatency renders a round-trip duration in milliseconds.
func formatLatency(d time.Duration) string {
	return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000.0)
}
