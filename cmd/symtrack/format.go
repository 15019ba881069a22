package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
)

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// writeResponse formats resp and writes it with a trailing newline.
func writeResponse(w io.Writer, resp interface{}, format OutputFormat) error {
	out, err := FormatResponse(resp, format)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *ResolveResponseCLI:
		return formatResolveHuman(v), nil
	case *RefreshResponseCLI:
		return formatRefreshHuman(v), nil
	case *ListResponseCLI:
		return formatListHuman(v), nil
	case *HistoryResponseCLI:
		return formatHistoryHuman(v), nil
	case *PruneResponseCLI:
		return formatPruneHuman(v), nil
	case *SyncResponseCLI:
		return formatSyncHuman(v), nil
	default:
		return formatJSON(resp)
	}
}

func formatResolveHuman(r *ResolveResponseCLI) string {
	var b strings.Builder
	for _, res := range r.Results {
		if !res.Found {
			fmt.Fprintf(&b, "%s: not found\n", res.Requested)
			continue
		}
		fmt.Fprintf(&b, "%s -> %s", res.Requested, res.Name)
		var tags []string
		if res.Redirected {
			tags = append(tags, "renamed")
		}
		if res.Adopted {
			tags = append(tags, "now tracked")
		}
		if res.Orphaned {
			tags = append(tags, "orphaned")
		}
		if res.ID == "" {
			tags = append(tags, "untracked")
		}
		if len(tags) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(tags, ", "))
		}
		if res.Handle != "" {
			fmt.Fprintf(&b, "\n    %s", res.Handle)
		}
		b.WriteString("\n")
	}
	writeWarnings(&b, r.Warnings)
	return strings.TrimRight(b.String(), "\n")
}

func formatRefreshHuman(r *RefreshResponseCLI) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Refreshed %d records (%s scope) in %dms\n", r.Records, r.Scope, r.DurationMs)
	if len(r.Renamed) == 0 {
		b.WriteString("No renames detected.\n")
	} else {
		fmt.Fprintf(&b, "Renames (%d):\n", len(r.Renamed))
		for _, rn := range r.Renamed {
			fmt.Fprintf(&b, "  %s -> %s\n", rn.From, rn.To)
		}
	}
	if len(r.Orphans) > 0 {
		fmt.Fprintf(&b, "Orphaned (%d):\n", len(r.Orphans))
		for _, o := range r.Orphans {
			fmt.Fprintf(&b, "  %s [%s]\n", o.CurrentName, o.ID)
		}
	}
	for _, d := range r.Diagnostics {
		if d.Kind == "duplicate-current-name" {
			fmt.Fprintf(&b, "Warning: %d identities share the name %s; the first tracked wins\n", len(d.IDs), d.Name)
		}
	}
	writeWarnings(&b, r.Warnings)
	return strings.TrimRight(b.String(), "\n")
}

func formatListHuman(r *ListResponseCLI) string {
	var b strings.Builder
	if len(r.Records) == 0 {
		fmt.Fprintf(&b, "No tracked types (%s scope).\n", r.Scope)
	}
	for _, rec := range r.Records {
		fmt.Fprintf(&b, "%s  %s", rec.ID, rec.CurrentName)
		if rec.Orphaned {
			b.WriteString(" (orphaned)")
		}
		b.WriteString("\n")
		if len(rec.PreviousNames) > 0 {
			fmt.Fprintf(&b, "    was: %s\n", strings.Join(rec.PreviousNames, ", "))
		}
	}
	writeWarnings(&b, r.Warnings)
	return strings.TrimRight(b.String(), "\n")
}

func formatHistoryHuman(r *HistoryResponseCLI) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s]\n", r.Record.CurrentName, r.Record.ID)
	if r.Record.Handle != "" {
		fmt.Fprintf(&b, "  declared in %s\n", r.Record.Handle)
	}
	if r.Record.Orphaned {
		b.WriteString("  no longer declared\n")
	}
	if len(r.Record.PreviousNames) == 0 {
		b.WriteString("  never renamed\n")
	}
	for i, name := range r.Record.PreviousNames {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, name)
	}
	writeWarnings(&b, r.Warnings)
	return strings.TrimRight(b.String(), "\n")
}

func formatPruneHuman(r *PruneResponseCLI) string {
	var b strings.Builder
	verb := "Removed"
	if r.DryRun {
		verb = "Would remove"
	}
	fmt.Fprintf(&b, "%s %d orphaned records, %d remaining\n", verb, len(r.Removed), r.Remaining)
	for _, rec := range r.Removed {
		fmt.Fprintf(&b, "  %s [%s]\n", rec.CurrentName, rec.ID)
	}
	writeWarnings(&b, r.Warnings)
	return strings.TrimRight(b.String(), "\n")
}

func formatSyncHuman(r *SyncResponseCLI) string {
	var b strings.Builder
	verb := "Updated"
	if r.DryRun {
		verb = "Would update"
	}
	fmt.Fprintf(&b, "%s %d of %d references in %s\n", verb, r.Rewritten, len(r.References), r.File)
	for _, ref := range r.References {
		switch {
		case !ref.Found:
			fmt.Fprintf(&b, "  %s: %s (unresolved)\n", ref.Key, ref.Stored)
		case ref.Rewritten:
			fmt.Fprintf(&b, "  %s: %s -> %s\n", ref.Key, ref.Stored, ref.Current)
		}
	}
	writeWarnings(&b, r.Warnings)
	return strings.TrimRight(b.String(), "\n")
}

func writeWarnings(b *strings.Builder, warnings []string) {
	for _, w := range warnings {
		fmt.Fprintf(b, "Warning: %s\n", w)
	}
}
