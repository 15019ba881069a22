package main

import (
	"symtrack/internal/identity"
)

// RecordCLI is one registry record as printed by the CLI.
type RecordCLI struct {
	ID            string   `json:"id"`
	CurrentName   string   `json:"currentName"`
	PreviousNames []string `json:"previousNames"`
	Handle        string   `json:"handle,omitempty"`
	Orphaned      bool     `json:"orphaned,omitempty"`
}

func recordToCLI(rec identity.RenameHistoryRecord) RecordCLI {
	prev := make([]string, len(rec.PreviousNames))
	for i, p := range rec.PreviousNames {
		prev[i] = string(p)
	}
	return RecordCLI{
		ID:            string(rec.ID),
		CurrentName:   string(rec.CurrentName),
		PreviousNames: prev,
		Handle:        rec.Handle(),
		Orphaned:      rec.IsOrphaned(),
	}
}

func recordsToCLI(recs []identity.RenameHistoryRecord) []RecordCLI {
	out := make([]RecordCLI, 0, len(recs))
	for _, rec := range recs {
		out = append(out, recordToCLI(rec))
	}
	return out
}

// RenameCLI is one rename observed by a refresh.
type RenameCLI struct {
	ID   string `json:"id"`
	From string `json:"from"`
	To   string `json:"to"`
}

// renamesBetween compares two snapshots of the same registry taken around a
// refresh; refresh never reorders, adds or removes records.
func renamesBetween(before, after []identity.RenameHistoryRecord) []RenameCLI {
	var out []RenameCLI
	for i := range after {
		if i >= len(before) || before[i].ID != after[i].ID {
			continue
		}
		if before[i].CurrentName != after[i].CurrentName {
			out = append(out, RenameCLI{
				ID:   string(after[i].ID),
				From: string(before[i].CurrentName),
				To:   string(after[i].CurrentName),
			})
		}
	}
	return out
}

// DiagnosticCLI is a tolerated inconsistency reported by the registry.
type DiagnosticCLI struct {
	Kind string   `json:"kind"`
	Name string   `json:"name,omitempty"`
	IDs  []string `json:"ids"`
}

func diagnosticsToCLI(diags []identity.Diagnostic) []DiagnosticCLI {
	var out []DiagnosticCLI
	for _, d := range diags {
		ids := make([]string, len(d.IDs))
		for i, id := range d.IDs {
			ids[i] = string(id)
		}
		out = append(out, DiagnosticCLI{Kind: string(d.Kind), Name: string(d.Name), IDs: ids})
	}
	return out
}

// ResolveResultCLI is the outcome for one requested name.
type ResolveResultCLI struct {
	Requested  string `json:"requested"`
	Found      bool   `json:"found"`
	Name       string `json:"name,omitempty"`
	ID         string `json:"id,omitempty"`
	Handle     string `json:"handle,omitempty"`
	Pass       string `json:"pass,omitempty"`
	Redirected bool   `json:"redirected,omitempty"`
	Adopted    bool   `json:"adopted,omitempty"`
	Orphaned   bool   `json:"orphaned,omitempty"`
}

// ResolveResponseCLI is the output of `symtrack resolve`.
type ResolveResponseCLI struct {
	Results  []ResolveResultCLI `json:"results"`
	Warnings []string           `json:"warnings,omitempty"`
}

// RefreshResponseCLI is the output of `symtrack refresh`.
type RefreshResponseCLI struct {
	Scope       string          `json:"scope"`
	Forced      bool            `json:"forced"`
	Records     int             `json:"records"`
	Renamed     []RenameCLI     `json:"renamed"`
	Orphans     []RecordCLI     `json:"orphans"`
	Diagnostics []DiagnosticCLI `json:"diagnostics,omitempty"`
	DurationMs  int64           `json:"durationMs"`
	Warnings    []string        `json:"warnings,omitempty"`
}

// ListResponseCLI is the output of `symtrack list`.
type ListResponseCLI struct {
	Scope    string      `json:"scope"`
	Records  []RecordCLI `json:"records"`
	Warnings []string    `json:"warnings,omitempty"`
}

// HistoryResponseCLI is the output of `symtrack history`.
type HistoryResponseCLI struct {
	Requested string    `json:"requested"`
	Record    RecordCLI `json:"record"`
	Warnings  []string  `json:"warnings,omitempty"`
}

// PruneResponseCLI is the output of `symtrack prune`.
type PruneResponseCLI struct {
	DryRun    bool        `json:"dryRun"`
	Removed   []RecordCLI `json:"removed"`
	Remaining int         `json:"remaining"`
	Warnings  []string    `json:"warnings,omitempty"`
}

// SyncEntryCLI is one reference handled by `symtrack sync`.
type SyncEntryCLI struct {
	Key       string `json:"key"`
	Stored    string `json:"stored"`
	Current   string `json:"current,omitempty"`
	Found     bool   `json:"found"`
	Rewritten bool   `json:"rewritten"`
}

// SyncResponseCLI is the output of `symtrack sync`.
type SyncResponseCLI struct {
	File       string         `json:"file"`
	References []SyncEntryCLI `json:"references"`
	Rewritten  int            `json:"rewritten"`
	DryRun     bool           `json:"dryRun"`
	Warnings   []string       `json:"warnings,omitempty"`
}
