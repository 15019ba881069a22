package main

import (
	"symtrack/internal/version"

	"github.com/spf13/cobra"
)

var (
	// rootFlag is the project root; defaults to the working directory
	rootFlag string
	// scopeFlag overrides the configured store scope
	scopeFlag string
	verbosity int
	quiet     bool
)

var rootCmd = &cobra.Command{
	Use:   "symtrack",
	Short: "symtrack - keep serialized type names valid across renames",
	Long: `symtrack tracks type declarations by the stable identity of the file that
declares them (the GUID in the file's .meta sidecar) and records every name a
declaration has had. A stored type name that went stale after a rename still
resolves to the declaration it meant.`,
	Version:       version.Info(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("symtrack version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", "", "Project root (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&scopeFlag, "scope", "", "Registry scope: project or user (default: from config)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress all logs")
}
