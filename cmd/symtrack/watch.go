package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"symtrack/internal/slogutil"
	"symtrack/internal/watcher"

	"github.com/spf13/cobra"
)

var (
	watchFormat     string
	watchDebounceMs int
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow renames as source files change",
	Long: `Watch the configured source roots. After each burst of changes the
registry is refreshed and detected renames are printed. Stops on interrupt.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchFormat, "format", "human", "Output format (json, human)")
	watchCmd.Flags().IntVar(&watchDebounceMs, "debounce", 0, "Quiet period in milliseconds (default: from config)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(watchFormat)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(newContext(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	if err := e.registry.Refresh(ctx, false); err != nil {
		e.logger.Warn("initial refresh failed to save", "error", err.Error())
	}

	cfg := watcher.DefaultConfig()
	cfg.DebounceMs = e.cfg.Watcher.DebounceMs
	if watchDebounceMs > 0 {
		cfg.DebounceMs = watchDebounceMs
	}
	cfg.Extensions = e.cfg.Source.Extensions
	cfg.MetaExtension = e.cfg.Source.MetaExtension
	cfg.IgnorePatterns = append(cfg.IgnorePatterns, e.cfg.Source.Ignore...)

	out := cmd.OutOrStdout()
	checkpoints := make(chan []watcher.Event, 1)

	w := watcher.New(cfg, e.logger.With(slogutil.ComponentKey, "watcher"),
		func(events []watcher.Event) {
			select {
			case checkpoints <- events:
			default:
				// A refresh is already pending and will see this batch.
			}
		},
		e.source, e.registry,
	)
	if err := w.Start(e.sourceRoots()...); err != nil {
		return err
	}
	defer func() {
		e.logger.Debug("stopping watcher",
			"roots", w.WatchedRoots(),
			"stats", w.Stats(),
		)
		_ = w.Stop()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case events := <-checkpoints:
			resp := refreshCheckpoint(ctx, e, len(events))
			e.logger.Debug("watcher stats", "stats", w.Stats())
			if err := writeResponse(out, resp, format); err != nil {
				return err
			}
			if format == FormatHuman {
				fmt.Fprintln(out)
			}
		}
	}
}

// refreshCheckpoint refreshes after a change batch; the watcher has already
// invalidated the source and the registry.
func refreshCheckpoint(ctx context.Context, e *engine, events int) *RefreshResponseCLI {
	start := time.Now()
	e.diagnostics = nil

	before := e.registry.Records()
	err := e.registry.Refresh(ctx, false)
	after := e.registry.Records()

	e.logger.Debug("checkpoint refresh",
		"events", events,
		"records", len(after),
	)

	var warnings []string
	if err != nil {
		warnings = append(warnings, err.Error())
	}
	return &RefreshResponseCLI{
		Scope:       string(e.scope),
		Records:     len(after),
		Renamed:     renamesBetween(before, after),
		Orphans:     recordsToCLI(e.registry.Orphans()),
		Diagnostics: diagnosticsToCLI(e.diagnostics),
		DurationMs:  time.Since(start).Milliseconds(),
		Warnings:    warnings,
	}
}
