package main

import (
	"fmt"

	"symtrack/internal/errors"
	"symtrack/internal/identity"

	"github.com/spf13/cobra"
)

var resolveFormat string

var resolveCmd = &cobra.Command{
	Use:   "resolve NAME...",
	Short: "Resolve possibly stale type names to their current names",
	Long: `Resolve each NAME against the registry: current names first, then rename
history, then the live declarations. A declared type that is not tracked yet
is adopted so later renames can be followed.

Exits non-zero when any name cannot be resolved.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringVar(&resolveFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(resolveFormat)
	if err != nil {
		return err
	}

	ctx := newContext()
	e, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	resp := &ResolveResponseCLI{}
	var persistErrs []error
	var missing []string

	for _, arg := range args {
		res, found, err := e.registry.Resolve(ctx, identity.SymbolicName(arg))
		if err != nil {
			persistErrs = append(persistErrs, err)
		}
		if !found {
			missing = append(missing, arg)
			resp.Results = append(resp.Results, ResolveResultCLI{Requested: arg})
			continue
		}
		resp.Results = append(resp.Results, ResolveResultCLI{
			Requested:  arg,
			Found:      true,
			Name:       string(res.Name),
			ID:         string(res.ID),
			Handle:     res.Handle,
			Pass:       string(res.Pass),
			Redirected: res.Redirected(),
			Adopted:    res.Adopted,
			Orphaned:   res.Orphaned,
		})
	}
	resp.Warnings = e.warnings(persistErrs...)

	if err := writeResponse(cmd.OutOrStdout(), resp, format); err != nil {
		return err
	}

	if len(missing) > 0 {
		return errors.NewSymtrackError(errors.SymbolNotFound,
			fmt.Sprintf("%d of %d names did not resolve", len(missing), len(args)), nil).
			WithDetails(missing)
	}
	return firstError(persistErrs...)
}
