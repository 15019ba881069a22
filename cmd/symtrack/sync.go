package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"symtrack/internal/binding"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	syncFormat string
	syncDryRun bool
)

var syncCmd = &cobra.Command{
	Use:   "sync FILE",
	Short: "Rewrite stored type names in a reference file to their current names",
	Long: `FILE is a flat YAML (.yaml, .yml) or JSON (.json) mapping from keys to type
names, for example:

  spawner.enemyType: Game.Foe
  hud.playerType: Game.Player

Each name is resolved and replaced by the current name of the type it refers
to. Unresolvable names are reported and left unchanged.`,
	Args: cobra.ExactArgs(1),
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringVar(&syncFormat, "format", "human", "Output format (json, human)")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Report changes without writing FILE")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(syncFormat)
	if err != nil {
		return err
	}
	path := args[0]

	values, err := readReferenceFile(path)
	if err != nil {
		return err
	}

	ctx := newContext()
	e, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	storage := binding.NewMapStorage(values)
	resp := &SyncResponseCLI{File: path, DryRun: syncDryRun}
	var persistErrs []error

	for _, key := range keys {
		ref := binding.NewReference(storage, key, e.registry, e.logger)
		result, err := ref.Sync(ctx)
		if err != nil {
			persistErrs = append(persistErrs, err)
		}
		entry := SyncEntryCLI{
			Key:       key,
			Stored:    string(result.Stored),
			Found:     result.Found,
			Rewritten: result.Rewritten,
		}
		if result.Found {
			entry.Current = string(result.Resolution.Name)
		}
		if result.Rewritten {
			resp.Rewritten++
		}
		resp.References = append(resp.References, entry)
	}

	if resp.Rewritten > 0 && !syncDryRun {
		if err := writeReferenceFile(path, storage.Snapshot()); err != nil {
			return err
		}
	}
	resp.Warnings = e.warnings(persistErrs...)

	if err := writeResponse(cmd.OutOrStdout(), resp, format); err != nil {
		return err
	}
	return firstError(persistErrs...)
}

func readReferenceFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	values := make(map[string]string)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &values)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &values)
	default:
		return nil, fmt.Errorf("unsupported reference file %s (want .yaml, .yml or .json)", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return values, nil
}

func writeReferenceFile(path string, values map[string]string) error {
	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err = json.MarshalIndent(values, "", "  ")
		data = append(data, '\n')
	default:
		data, err = yaml.Marshal(values)
	}
	if err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, info.Mode().Perm())
}
