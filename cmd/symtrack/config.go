package main

import (
	"fmt"
	"os"
	"path/filepath"

	"symtrack/internal/config"
	"symtrack/internal/errors"
	"symtrack/internal/paths"
	"symtrack/internal/source"

	"github.com/spf13/cobra"
)

var (
	configFormat string
	configForce  bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage symtrack configuration",
	Long:  "View and manage symtrack configuration stored in .symtrack/config.json",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Display the configuration after defaults and SYMTRACK_* environment
overrides are applied, together with where the registry is stored.`,
	RunE: runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration to .symtrack/config.json",
	RunE:  runConfigInit,
}

func init() {
	configShowCmd.Flags().StringVar(&configFormat, "format", "human", "Output format (json, human)")
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

// ConfigShowResponse is the output of `symtrack config show`.
type ConfigShowResponse struct {
	ConfigPath string         `json:"configPath"`
	FileExists bool           `json:"fileExists"`
	Scope      string         `json:"scope"`
	StateDir   string         `json:"stateDir"`
	Valid      bool           `json:"valid"`
	TreeSitter bool           `json:"treeSitter"` // Declaration extraction compiled in
	Error      string         `json:"error,omitempty"`
	Config     *config.Config `json:"config"`
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(configFormat)
	if err != nil {
		return err
	}

	root, err := getProjectRoot()
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig(root)
	if err != nil {
		return errors.NewSymtrackError(errors.ConfigInvalid, "failed to load config", err)
	}

	resp := &ConfigShowResponse{
		ConfigPath: configPath(root),
		Config:     cfg,
		Valid:      true,
		TreeSitter: source.ExtractorAvailable(),
	}
	if _, err := os.Stat(resp.ConfigPath); err == nil {
		resp.FileExists = true
	}
	if err := cfg.Validate(); err != nil {
		resp.Valid = false
		resp.Error = err.Error()
	}

	scopeName := cfg.Scope
	if scopeFlag != "" {
		scopeName = scopeFlag
	}
	if scope, err := paths.ParseScope(scopeName); err == nil {
		resp.Scope = string(scope)
		resp.StateDir, _ = paths.StateDir(scope, root)
	}

	out := cmd.OutOrStdout()
	if format == FormatJSON {
		return writeResponse(out, resp, FormatJSON)
	}

	fmt.Fprintf(out, "Config file: %s", resp.ConfigPath)
	if !resp.FileExists {
		fmt.Fprint(out, " (not present, using defaults)")
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Scope:       %s\n", resp.Scope)
	fmt.Fprintf(out, "State dir:   %s\n", resp.StateDir)
	fmt.Fprintf(out, "Store:       %s", cfg.Store.Backend)
	if cfg.Store.Backend == "file" {
		fmt.Fprintf(out, " (%s", cfg.Store.Format)
		if cfg.Store.Compress {
			fmt.Fprint(out, ", zstd")
		}
		fmt.Fprint(out, ")")
	}
	fmt.Fprintln(out)
	if !resp.TreeSitter {
		fmt.Fprintln(out, "Extraction:  unavailable (built without cgo)")
	}
	if !resp.Valid {
		fmt.Fprintf(out, "Invalid:     %s\n", resp.Error)
	}
	fmt.Fprintln(out)
	return writeResponse(out, cfg, FormatJSON)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	root, err := getProjectRoot()
	if err != nil {
		return err
	}

	path := configPath(root)
	if _, err := os.Stat(path); err == nil && !configForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	if err := config.DefaultConfig().Save(root); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}

func configPath(root string) string {
	return filepath.Join(root, paths.StateDirName, "config.json")
}
