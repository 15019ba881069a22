package main

import (
	"github.com/spf13/cobra"
)

var (
	listFormat  string
	listOrphans bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked types and their rename history",
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listFormat, "format", "human", "Output format (json, human)")
	listCmd.Flags().BoolVar(&listOrphans, "orphans", false, "Only list records whose declaration is gone")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(listFormat)
	if err != nil {
		return err
	}

	ctx := newContext()
	e, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	// Orphan status is only known after a refresh.
	refreshErr := e.registry.Refresh(ctx, false)

	records := e.registry.Records()
	if listOrphans {
		records = e.registry.Orphans()
	}

	resp := &ListResponseCLI{
		Scope:    string(e.scope),
		Records:  recordsToCLI(records),
		Warnings: e.warnings(refreshErr),
	}

	if err := writeResponse(cmd.OutOrStdout(), resp, format); err != nil {
		return err
	}
	return refreshErr
}
