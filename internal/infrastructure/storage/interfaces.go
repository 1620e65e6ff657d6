package storage

import (
	"errors"
	"time"

	"github.com/rentledger/reconcile-backend/internal/domain/transaction"
)

// Sentinel errors. Callers check these with errors.Is; the engine treats
// ErrDuplicateHash as an expected outcome, never a run failure.
var (
	// ErrNotFound means no transaction exists with the given id.
	ErrNotFound = errors.New("transaction not found")

	// ErrDuplicateHash means a uniqueness constraint rejected the write:
	// either duplicate_check_hash on insert, or the one-counterpart
	// guard on matched_transaction_id during commit.
	ErrDuplicateHash = errors.New("duplicate transaction")
)

// Repository defines the complete storage interface. It allows swapping
// implementations (SQLite, in-memory mock) and keeps the engine free of
// database details.
type Repository interface {
	TransactionRepository
	RunRepository
	Close() error
}

// TransactionRepository handles transaction persistence.
type TransactionRepository interface {
	// Insert persists a new transaction. Returns ErrDuplicateHash when a
	// record with the same canonical hash was ever persisted before.
	Insert(t *transaction.Transaction) error

	// GetByID retrieves a transaction by id.
	GetByID(id string) (*transaction.Transaction, error)

	// FetchByStatus returns one page of transactions in the given status,
	// ordered by (date, id) so pagination is stable. A zero cutoff means
	// no date filter. Callers loop until a short page confirms
	// end-of-data; a single call is never assumed to be complete.
	FetchByStatus(status transaction.Status, cutoff time.Time, offset, limit int) ([]*transaction.Transaction, error)

	// UpdateByID applies a partial update. Nil fields are left untouched.
	// Returns ErrNotFound for unknown ids and ErrDuplicateHash when a
	// uniqueness constraint rejects the update.
	UpdateByID(id string, fields UpdateFields) error

	// ListHashes returns the canonical hashes of every record ever
	// persisted, including soft-deleted ones. Feeds the import filter.
	ListHashes() (map[string]struct{}, error)

	// List returns transactions matching the filters with pagination,
	// newest first. Serves the API, not the engine.
	List(filters TransactionFilters) (*TransactionListResult, error)

	// SoftDelete marks a transaction deleted with a reason. The record
	// keeps its hash so re-imports are still rejected.
	SoftDelete(id, reason string) error

	// Restore returns a soft-deleted transaction to pending-ledger,
	// clearing its match reference and confidence.
	Restore(id string) error

	// GetStats returns aggregate counts for the dashboard endpoints.
	GetStats() (*Stats, error)
}

// RunRepository tracks reconciliation runs for audit.
type RunRepository interface {
	// StartRun records the start of a reconciliation run and returns its id.
	StartRun(cutoff time.Time) (int64, error)

	// CompleteRun records the outcome of a run.
	CompleteRun(runID int64, processed, matched, duplicates, errors int) error

	// ListRuns returns recent runs, newest first.
	ListRuns(limit int) ([]Run, error)
}

// UpdateFields is a partial update. Only non-nil fields are written.
type UpdateFields struct {
	Status               *transaction.Status
	Confidence           *int
	MatchedTransactionID *string // empty string clears the reference
	DeleteReason         *string
}

// TransactionFilters defines filters for listing transactions.
type TransactionFilters struct {
	Status transaction.Status // empty = all
	Source string             // empty = all
	Limit  int                // 0 = default 50
	Offset int
}

// TransactionListResult contains one page of transactions.
type TransactionListResult struct {
	Transactions []*transaction.Transaction `json:"transactions"`
	TotalCount   int                        `json:"total_count"`
	Limit        int                        `json:"limit"`
	Offset       int                        `json:"offset"`
}

// Run is one recorded reconciliation run.
type Run struct {
	ID          int64  `json:"id"`
	StartedAt   string `json:"started_at"`
	CompletedAt string `json:"completed_at,omitempty"`
	Cutoff      string `json:"cutoff,omitempty"`
	Processed   int    `json:"processed"`
	Matched     int    `json:"matched"`
	Duplicates  int    `json:"duplicates"`
	Errors      int    `json:"errors"`
	Status      string `json:"status"`
}

// Stats contains aggregate transaction counts.
type Stats struct {
	Total            int     `json:"total"`
	PendingLedger    int     `json:"pending_ledger"`
	PendingStatement int     `json:"pending_statement"`
	Reconciled       int     `json:"reconciled"`
	Deleted          int     `json:"deleted"`
	ReconciledValue  float64 `json:"reconciled_value"`
}
