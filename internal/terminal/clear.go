// Package terminal provides utilities for terminal operations such as clearing text.
package terminal

import (
	"fmt"
	"math"
	"os"

	"golang.org/x/term"
)

// ClearPreviousLines clears text from the terminal that was previously printed.
// It calculates how many lines were used by the provided text based on the
// current terminal width, then moves up and clears each line.
//
// This is used to scrub secret prompts (auth tokens) from the screen right
// after the user enters them.
func ClearPreviousLines(textLength int) {
	// Get terminal width to calculate line wrapping
	termWidth := 80 // default fallback
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		termWidth = width
	}

	totalLines := int(math.Ceil(float64(textLength) / float64(termWidth)))
	if totalLines < 1 {
		totalLines = 1
	}

	// After Enter, the cursor sits on a new line below the input; clear that
	// one too.
	linesToClear := totalLines + 1

	for i := 0; i < linesToClear; i++ {
		fmt.Print("\r\x1b[2K") // move to start and clear entire line
		if i < linesToClear-1 {
			fmt.Print("\x1b[1A") // move up one line
		}
	}
}
