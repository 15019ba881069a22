package main

import (
	"time"

	"github.com/spf13/cobra"
)

var (
	refreshFormat string
	refreshForce  bool
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Update tracked records against the current declarations",
	Long: `Ask the source for the name currently declared at every tracked identity,
append renamed types' old names to their history and save the registry when
anything changed.

Without --force a refresh happens at most once per process; --force rescans
regardless and rewrites the store. A store that could not be read is first
copied to <store>.unreadable-<time>.`,
	RunE: runRefresh,
}

func init() {
	refreshCmd.Flags().StringVar(&refreshFormat, "format", "human", "Output format (json, human)")
	refreshCmd.Flags().BoolVar(&refreshForce, "force", false, "Refresh even if already refreshed and save unconditionally")
	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(refreshFormat)
	if err != nil {
		return err
	}

	start := time.Now()
	ctx := newContext()
	e, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	before := e.registry.Records()
	refreshErr := e.registry.Refresh(ctx, refreshForce)

	// A forced refresh also rewrites a store that could not be read; the
	// unreadable file was copied aside when the engine opened.
	var saveErr error
	if refreshForce && refreshErr == nil {
		saveErr = e.registry.Save(ctx)
	}
	after := e.registry.Records()

	resp := &RefreshResponseCLI{
		Scope:       string(e.scope),
		Forced:      refreshForce,
		Records:     len(after),
		Renamed:     renamesBetween(before, after),
		Orphans:     recordsToCLI(e.registry.Orphans()),
		Diagnostics: diagnosticsToCLI(e.diagnostics),
		DurationMs:  time.Since(start).Milliseconds(),
		Warnings:    e.warnings(refreshErr, saveErr),
	}

	if err := writeResponse(cmd.OutOrStdout(), resp, format); err != nil {
		return err
	}
	return firstError(refreshErr, saveErr)
}
