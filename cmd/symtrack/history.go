package main

import (
	"fmt"

	"symtrack/internal/errors"
	"symtrack/internal/identity"

	"github.com/spf13/cobra"
)

var historyFormat string

var historyCmd = &cobra.Command{
	Use:   "history NAME",
	Short: "Show the rename history of a tracked type",
	Long: `Show every name the type tracked under NAME has had. NAME may be the
current name or any previous one. Untracked types are not adopted.`,
	Args: cobra.ExactArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(historyFormat)
	if err != nil {
		return err
	}

	ctx := newContext()
	e, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	rec, found, refreshErr := e.registry.History(ctx, identity.SymbolicName(args[0]))
	if !found {
		return errors.NewSymtrackError(errors.SymbolNotFound,
			fmt.Sprintf("%s is not tracked", args[0]), refreshErr)
	}

	resp := &HistoryResponseCLI{
		Requested: args[0],
		Record:    recordToCLI(rec),
		Warnings:  e.warnings(refreshErr),
	}

	if err := writeResponse(cmd.OutOrStdout(), resp, format); err != nil {
		return err
	}
	return refreshErr
}
