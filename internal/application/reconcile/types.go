package reconcile

import "time"

// Options controls one reconciliation run.
type Options struct {
	// Cutoff excludes records dated before it. Zero means no cutoff.
	Cutoff time.Time

	// PageSize is the fetch page size (default 500).
	PageSize int

	// CommitBatchSize bounds how many matched pairs are committed per
	// batch (default 10). A storage failure mid-batch abandons only the
	// rest of that batch.
	CommitBatchSize int
}

// RecordReport is the per-ledger-entry audit line of a run.
type RecordReport struct {
	LedgerID    string `json:"ledger_id"`
	StatementID string `json:"statement_id,omitempty"`
	Matched     bool   `json:"matched"`
	Detail      string `json:"detail"`
}

// Report summarizes a reconciliation run.
type Report struct {
	RunID int64 `json:"run_id"`

	// Processed is the number of ledger entries examined.
	Processed int `json:"processed"`

	// Matched counts pairs committed to storage, not pairs found; a pair
	// that fails its commit is not matched.
	Matched int `json:"matched"`

	// Duplicates counts pairs rejected by a uniqueness constraint at
	// commit time, typically a concurrent run claiming the same
	// counterpart.
	Duplicates int `json:"duplicates"`

	// Errors counts commit failures that were not duplicate rejections.
	Errors int `json:"errors"`

	Reports []RecordReport `json:"reports"`
}
