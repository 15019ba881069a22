package main

import (
	stderrors "errors"
	"fmt"
	"os"

	"symtrack/internal/errors"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		var se *errors.SymtrackError
		if stderrors.As(err, &se) {
			for _, fix := range se.SuggestedFixes {
				switch {
				case fix.Command != "":
					fmt.Fprintf(os.Stderr, "  try: %s\n", fix.Command)
				case fix.Description != "":
					fmt.Fprintf(os.Stderr, "  hint: %s\n", fix.Description)
				}
			}
		}
		os.Exit(1)
	}
}
