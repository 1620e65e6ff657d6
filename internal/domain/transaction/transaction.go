// Package transaction defines the normalized transaction entity shared by
// the import path, the matching engine, and storage.
//
// Upstream parsers (CSV, spreadsheet exports) must produce this shape;
// column-name guessing never happens inside the engine.
package transaction

import (
	"time"
)

// Status is the lifecycle state of a transaction.
type Status string

const (
	// StatusPendingLedger is a ledger-side entry awaiting reconciliation.
	StatusPendingLedger Status = "pending-ledger"

	// StatusPendingStatement is a bank/card statement entry awaiting reconciliation.
	StatusPendingStatement Status = "pending-statement"

	// StatusReconciled means the entry has been paired with its counterpart.
	StatusReconciled Status = "reconciled"

	// StatusDeleted is a soft-deleted entry. It keeps its hash so the
	// duplicate guard still applies to re-imports.
	StatusDeleted Status = "deleted"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPendingLedger, StatusPendingStatement, StatusReconciled, StatusDeleted:
		return true
	}
	return false
}

// Transaction is a single imported financial record, either ledger-side or
// statement-side depending on its status.
type Transaction struct {
	ID            string  `json:"id"`
	Date          time.Time `json:"date"`
	Value         float64 `json:"value"`
	Name          string  `json:"name,omitempty"`
	Depositor     string  `json:"depositor,omitempty"`
	Car           string  `json:"car,omitempty"`
	PaymentMethod string  `json:"payment_method"`
	Source        string  `json:"source"`
	Status        Status  `json:"status"`

	// Confidence is 0-100 and only meaningful when Status is reconciled.
	Confidence int `json:"confidence"`

	// MatchedTransactionID references the paired record. Reconciled pairs
	// point at each other.
	MatchedTransactionID string `json:"matched_transaction_id,omitempty"`

	// DuplicateCheckHash is the canonical fingerprint. Unique across all
	// records ever persisted, enforced by the storage layer.
	DuplicateCheckHash string `json:"duplicate_check_hash"`

	DeleteReason string    `json:"delete_reason,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsMatched reports whether the record is already consumed by a pairing.
// Matched records are never offered as candidates again.
func (t *Transaction) IsMatched() bool {
	return t.MatchedTransactionID != ""
}

// Day returns the date truncated to its calendar day in UTC. Time-of-day
// and sub-day timezone offsets are insignificant for matching.
func (t *Transaction) Day() time.Time {
	d := t.Date.UTC()
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

// DayLabel returns the calendar-day label used in index keys and hashes.
func (t *Transaction) DayLabel() string {
	return t.Day().Format("2006-01-02")
}
