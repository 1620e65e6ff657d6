package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/rentledger/reconcile-backend/internal/domain/transaction"
)

// Storage provides SQLite database access for transactions.
// It implements the Repository interface.
type Storage struct {
	db *sql.DB
}

// Compile-time check that Storage implements Repository
var _ Repository = (*Storage)(nil)

// NewStorage creates a new storage instance with SQLite database
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints (SQLite-specific)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Storage{db: db}

	if err := s.runMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// isUniqueViolation reports whether err is a SQLite uniqueness-constraint
// failure. This is how the storage-level duplicate guard surfaces.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// Insert persists a new transaction
func (s *Storage) Insert(t *transaction.Transaction) error {
	query := `
	INSERT INTO transactions
	(id, date, value, name, depositor, car, payment_method, source,
	 status, confidence, matched_transaction_id, duplicate_check_hash, delete_reason)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		t.ID,
		t.Date.UTC(),
		t.Value,
		t.Name,
		t.Depositor,
		t.Car,
		t.PaymentMethod,
		t.Source,
		string(t.Status),
		t.Confidence,
		t.MatchedTransactionID,
		t.DuplicateCheckHash,
		t.DeleteReason,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert %s: %w", t.ID, ErrDuplicateHash)
		}
		return fmt.Errorf("insert %s: %w", t.ID, err)
	}

	return nil
}

const transactionColumns = `id, date, value, name, depositor, car, payment_method, source,
	status, confidence, matched_transaction_id, duplicate_check_hash, delete_reason,
	created_at, updated_at`

// scanTransaction scans one row into a transaction.
func scanTransaction(row interface{ Scan(...any) error }) (*transaction.Transaction, error) {
	t := &transaction.Transaction{}
	var status string
	err := row.Scan(
		&t.ID,
		&t.Date,
		&t.Value,
		&t.Name,
		&t.Depositor,
		&t.Car,
		&t.PaymentMethod,
		&t.Source,
		&status,
		&t.Confidence,
		&t.MatchedTransactionID,
		&t.DuplicateCheckHash,
		&t.DeleteReason,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Status = transaction.Status(status)
	return t, nil
}

// GetByID retrieves a transaction by id
func (s *Storage) GetByID(id string) (*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`

	t, err := scanTransaction(s.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// FetchByStatus returns one page of transactions in the given status,
// ordered by (date, id). A zero cutoff disables the date filter.
func (s *Storage) FetchByStatus(status transaction.Status, cutoff time.Time, offset, limit int) ([]*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE status = ?`
	args := []any{string(status)}

	if !cutoff.IsZero() {
		query += ` AND date >= ?`
		args = append(args, cutoff.UTC())
	}

	query += ` ORDER BY date, id LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var txs []*transaction.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}

	return txs, rows.Err()
}

// UpdateByID applies a partial update to a transaction
func (s *Storage) UpdateByID(id string, fields UpdateFields) error {
	sets := []string{"updated_at = CURRENT_TIMESTAMP"}
	var args []any

	if fields.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*fields.Status))
	}
	if fields.Confidence != nil {
		sets = append(sets, "confidence = ?")
		args = append(args, *fields.Confidence)
	}
	if fields.MatchedTransactionID != nil {
		sets = append(sets, "matched_transaction_id = ?")
		args = append(args, *fields.MatchedTransactionID)
	}
	if fields.DeleteReason != nil {
		sets = append(sets, "delete_reason = ?")
		args = append(args, *fields.DeleteReason)
	}

	query := `UPDATE transactions SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	args = append(args, id)

	result, err := s.db.Exec(query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update %s: %w", id, ErrDuplicateHash)
		}
		return fmt.Errorf("update %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("update %s: %w", id, ErrNotFound)
	}

	return nil
}

// ListHashes returns the hashes of every record ever persisted
func (s *Storage) ListHashes() (map[string]struct{}, error) {
	rows, err := s.db.Query(`SELECT duplicate_check_hash FROM transactions`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	hashes := make(map[string]struct{})
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		hashes[h] = struct{}{}
	}

	return hashes, rows.Err()
}

// List returns transactions matching the filters, newest first
func (s *Storage) List(filters TransactionFilters) (*TransactionListResult, error) {
	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}

	where := []string{"1=1"}
	var args []any
	if filters.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filters.Status))
	}
	if filters.Source != "" {
		where = append(where, "source = ?")
		args = append(args, filters.Source)
	}
	whereClause := strings.Join(where, " AND ")

	var total int
	countQuery := `SELECT COUNT(*) FROM transactions WHERE ` + whereClause
	if err := s.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, err
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` + whereClause +
		` ORDER BY date DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, filters.Offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	result := &TransactionListResult{
		Transactions: make([]*transaction.Transaction, 0, limit),
		TotalCount:   total,
		Limit:        limit,
		Offset:       filters.Offset,
	}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result.Transactions = append(result.Transactions, t)
	}

	return result, rows.Err()
}

// SoftDelete marks a transaction deleted with a reason
func (s *Storage) SoftDelete(id, reason string) error {
	status := transaction.StatusDeleted
	return s.UpdateByID(id, UpdateFields{
		Status:       &status,
		DeleteReason: &reason,
	})
}

// Restore returns a soft-deleted transaction to pending-ledger. The match
// reference and confidence are cleared so the record can be matched again.
func (s *Storage) Restore(id string) error {
	status := transaction.StatusPendingLedger
	confidence := 0
	matchedID := ""
	reason := ""
	return s.UpdateByID(id, UpdateFields{
		Status:               &status,
		Confidence:           &confidence,
		MatchedTransactionID: &matchedID,
		DeleteReason:         &reason,
	})
}

// GetStats returns aggregate transaction counts
func (s *Storage) GetStats() (*Stats, error) {
	stats := &Stats{}

	query := `
	SELECT
		COUNT(*) as total,
		COUNT(CASE WHEN status = 'pending-ledger' THEN 1 END) as pending_ledger,
		COUNT(CASE WHEN status = 'pending-statement' THEN 1 END) as pending_statement,
		COUNT(CASE WHEN status = 'reconciled' THEN 1 END) as reconciled,
		COUNT(CASE WHEN status = 'deleted' THEN 1 END) as deleted,
		COALESCE(SUM(CASE WHEN status = 'reconciled' THEN ABS(value) ELSE 0 END), 0) as reconciled_value
	FROM transactions
	`

	err := s.db.QueryRow(query).Scan(
		&stats.Total,
		&stats.PendingLedger,
		&stats.PendingStatement,
		&stats.Reconciled,
		&stats.Deleted,
		&stats.ReconciledValue,
	)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// StartRun records the start of a reconciliation run
func (s *Storage) StartRun(cutoff time.Time) (int64, error) {
	cutoffLabel := ""
	if !cutoff.IsZero() {
		cutoffLabel = cutoff.UTC().Format("2006-01-02")
	}

	result, err := s.db.Exec(
		`INSERT INTO reconciliation_runs (cutoff, status) VALUES (?, 'running')`,
		cutoffLabel,
	)
	if err != nil {
		return 0, err
	}

	return result.LastInsertId()
}

// CompleteRun records the completion of a reconciliation run
func (s *Storage) CompleteRun(runID int64, processed, matched, duplicates, errCount int) error {
	query := `
		UPDATE reconciliation_runs
		SET completed_at = CURRENT_TIMESTAMP,
		    processed = ?,
		    matched = ?,
		    duplicates = ?,
		    errors = ?,
		    status = CASE WHEN ? > 0 THEN 'completed_with_errors' ELSE 'completed' END
		WHERE id = ?
	`

	_, err := s.db.Exec(query, processed, matched, duplicates, errCount, errCount, runID)
	return err
}

// ListRuns returns recent reconciliation runs, newest first
func (s *Storage) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, COALESCE(started_at, ''), COALESCE(completed_at, ''), cutoff,
		       processed, matched, duplicates, errors, status
		FROM reconciliation_runs
		ORDER BY id DESC
		LIMIT ?
	`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var r Run
		err := rows.Scan(
			&r.ID,
			&r.StartedAt,
			&r.CompletedAt,
			&r.Cutoff,
			&r.Processed,
			&r.Matched,
			&r.Duplicates,
			&r.Errors,
			&r.Status,
		)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}

	return runs, rows.Err()
}
