package main

import (
	"github.com/spf13/cobra"
)

var (
	pruneFormat string
	pruneDryRun bool
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove records whose declaration no longer exists",
	Long: `Force a refresh and remove every record whose stable identity no longer
resolves to a declaration. Names stored in those records stop resolving.

Nothing is removed when a source root cannot be scanned.`,
	RunE: runPrune,
}

func init() {
	pruneCmd.Flags().StringVar(&pruneFormat, "format", "human", "Output format (json, human)")
	pruneCmd.Flags().BoolVar(&pruneDryRun, "dry-run", false, "Report orphaned records without removing them")
	rootCmd.AddCommand(pruneCmd)
}

func runPrune(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(pruneFormat)
	if err != nil {
		return err
	}

	ctx := newContext()
	e, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	resp := &PruneResponseCLI{DryRun: pruneDryRun}
	var opErr error

	if pruneDryRun {
		// A failed sweep would report every record as orphaned.
		if err := e.source.Scan(ctx); err != nil {
			return err
		}
		opErr = e.registry.Refresh(ctx, true)
		orphans := e.registry.Orphans()
		resp.Removed = recordsToCLI(orphans)
		resp.Remaining = e.registry.Len() - len(orphans)
	} else {
		removed, err := e.registry.Prune(ctx)
		opErr = err
		resp.Removed = recordsToCLI(removed)
		resp.Remaining = e.registry.Len()
	}
	resp.Warnings = e.warnings(opErr)

	if err := writeResponse(cmd.OutOrStdout(), resp, format); err != nil {
		return err
	}
	return opErr
}
