package storage

import (
	"fmt"
	"sort"
	"time"

	"github.com/rentledger/reconcile-backend/internal/domain/transaction"
)

// MockRepository is an in-memory implementation of Repository for testing.
// It enforces the same uniqueness rules as the SQLite schema (hash on
// insert, one counterpart per record on update) so engine tests exercise
// the real duplicate semantics without a database.
type MockRepository struct {
	transactions map[string]*transaction.Transaction
	hashes       map[string]string // hash -> owning id
	matchedBy    map[string]string // matched_transaction_id -> claiming id
	runs         []Run
	nextRunID    int64

	// Hooks for test assertions
	InsertCalled      bool
	UpdateCalled      bool
	UpdateCalls       []string // ids, in order
	FetchPageRequests int

	// Error injection for testing error paths
	InsertErr error
	FetchErr  error
	UpdateErr error

	// UpdateErrForID fails updates for specific ids only.
	UpdateErrForID map[string]error
}

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		transactions: make(map[string]*transaction.Transaction),
		hashes:       make(map[string]string),
		matchedBy:    make(map[string]string),
		nextRunID:    1,
	}
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// Close does nothing for mock
func (m *MockRepository) Close() error {
	return nil
}

// Insert stores a transaction, rejecting duplicate hashes
func (m *MockRepository) Insert(t *transaction.Transaction) error {
	m.InsertCalled = true
	if m.InsertErr != nil {
		return m.InsertErr
	}

	if t.DuplicateCheckHash != "" {
		if _, ok := m.hashes[t.DuplicateCheckHash]; ok {
			return fmt.Errorf("insert %s: %w", t.ID, ErrDuplicateHash)
		}
	}

	copied := *t
	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = time.Now().UTC()
	}
	copied.UpdatedAt = copied.CreatedAt
	m.transactions[t.ID] = &copied
	if t.DuplicateCheckHash != "" {
		m.hashes[t.DuplicateCheckHash] = t.ID
	}
	return nil
}

// GetByID retrieves a transaction copy by id
func (m *MockRepository) GetByID(id string) (*transaction.Transaction, error) {
	t, ok := m.transactions[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *t
	return &copied, nil
}

// FetchByStatus pages through transactions ordered by (date, id)
func (m *MockRepository) FetchByStatus(status transaction.Status, cutoff time.Time, offset, limit int) ([]*transaction.Transaction, error) {
	m.FetchPageRequests++
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}

	var matched []*transaction.Transaction
	for _, t := range m.transactions {
		if t.Status != status {
			continue
		}
		if !cutoff.IsZero() && t.Date.Before(cutoff) {
			continue
		}
		matched = append(matched, t)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Date.Equal(matched[j].Date) {
			return matched[i].Date.Before(matched[j].Date)
		}
		return matched[i].ID < matched[j].ID
	})

	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}

	page := make([]*transaction.Transaction, 0, end-offset)
	for _, t := range matched[offset:end] {
		copied := *t
		page = append(page, &copied)
	}
	return page, nil
}

// UpdateByID applies a partial update, enforcing the counterpart guard
func (m *MockRepository) UpdateByID(id string, fields UpdateFields) error {
	m.UpdateCalled = true
	m.UpdateCalls = append(m.UpdateCalls, id)
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	if err, ok := m.UpdateErrForID[id]; ok {
		return err
	}

	t, ok := m.transactions[id]
	if !ok {
		return fmt.Errorf("update %s: %w", id, ErrNotFound)
	}

	if fields.MatchedTransactionID != nil && *fields.MatchedTransactionID != "" {
		if claimer, taken := m.matchedBy[*fields.MatchedTransactionID]; taken && claimer != id {
			return fmt.Errorf("update %s: %w", id, ErrDuplicateHash)
		}
	}

	if fields.Status != nil {
		t.Status = *fields.Status
	}
	if fields.Confidence != nil {
		t.Confidence = *fields.Confidence
	}
	if fields.MatchedTransactionID != nil {
		if t.MatchedTransactionID != "" {
			delete(m.matchedBy, t.MatchedTransactionID)
		}
		t.MatchedTransactionID = *fields.MatchedTransactionID
		if t.MatchedTransactionID != "" {
			m.matchedBy[t.MatchedTransactionID] = id
		}
	}
	if fields.DeleteReason != nil {
		t.DeleteReason = *fields.DeleteReason
	}
	t.UpdatedAt = time.Now().UTC()

	return nil
}

// ListHashes returns all persisted hashes
func (m *MockRepository) ListHashes() (map[string]struct{}, error) {
	hashes := make(map[string]struct{}, len(m.hashes))
	for h := range m.hashes {
		hashes[h] = struct{}{}
	}
	return hashes, nil
}

// List returns transactions matching the filters, newest first
func (m *MockRepository) List(filters TransactionFilters) (*TransactionListResult, error) {
	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}

	var matched []*transaction.Transaction
	for _, t := range m.transactions {
		if filters.Status != "" && t.Status != filters.Status {
			continue
		}
		if filters.Source != "" && t.Source != filters.Source {
			continue
		}
		matched = append(matched, t)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Date.Equal(matched[j].Date) {
			return matched[i].Date.After(matched[j].Date)
		}
		return matched[i].ID > matched[j].ID
	})

	result := &TransactionListResult{
		Transactions: make([]*transaction.Transaction, 0),
		TotalCount:   len(matched),
		Limit:        limit,
		Offset:       filters.Offset,
	}

	if filters.Offset < len(matched) {
		end := filters.Offset + limit
		if end > len(matched) {
			end = len(matched)
		}
		for _, t := range matched[filters.Offset:end] {
			copied := *t
			result.Transactions = append(result.Transactions, &copied)
		}
	}

	return result, nil
}

// SoftDelete marks a transaction deleted
func (m *MockRepository) SoftDelete(id, reason string) error {
	status := transaction.StatusDeleted
	return m.UpdateByID(id, UpdateFields{Status: &status, DeleteReason: &reason})
}

// Restore returns a soft-deleted transaction to pending-ledger
func (m *MockRepository) Restore(id string) error {
	status := transaction.StatusPendingLedger
	confidence := 0
	matchedID := ""
	reason := ""
	return m.UpdateByID(id, UpdateFields{
		Status:               &status,
		Confidence:           &confidence,
		MatchedTransactionID: &matchedID,
		DeleteReason:         &reason,
	})
}

// GetStats returns aggregate counts
func (m *MockRepository) GetStats() (*Stats, error) {
	stats := &Stats{}
	for _, t := range m.transactions {
		stats.Total++
		switch t.Status {
		case transaction.StatusPendingLedger:
			stats.PendingLedger++
		case transaction.StatusPendingStatement:
			stats.PendingStatement++
		case transaction.StatusReconciled:
			stats.Reconciled++
			if t.Value < 0 {
				stats.ReconciledValue -= t.Value
			} else {
				stats.ReconciledValue += t.Value
			}
		case transaction.StatusDeleted:
			stats.Deleted++
		}
	}
	return stats, nil
}

// StartRun records a new run
func (m *MockRepository) StartRun(cutoff time.Time) (int64, error) {
	id := m.nextRunID
	m.nextRunID++
	cutoffLabel := ""
	if !cutoff.IsZero() {
		cutoffLabel = cutoff.UTC().Format("2006-01-02")
	}
	m.runs = append(m.runs, Run{
		ID:        id,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
		Cutoff:    cutoffLabel,
		Status:    "running",
	})
	return id, nil
}

// CompleteRun records the outcome of a run
func (m *MockRepository) CompleteRun(runID int64, processed, matched, duplicates, errCount int) error {
	for i := range m.runs {
		if m.runs[i].ID == runID {
			m.runs[i].CompletedAt = time.Now().UTC().Format(time.RFC3339)
			m.runs[i].Processed = processed
			m.runs[i].Matched = matched
			m.runs[i].Duplicates = duplicates
			m.runs[i].Errors = errCount
			m.runs[i].Status = "completed"
			if errCount > 0 {
				m.runs[i].Status = "completed_with_errors"
			}
			return nil
		}
	}
	return ErrNotFound
}

// ListRuns returns recorded runs, newest first
func (m *MockRepository) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 || limit > len(m.runs) {
		limit = len(m.runs)
	}
	runs := make([]Run, 0, limit)
	for i := len(m.runs) - 1; i >= 0 && len(runs) < limit; i-- {
		runs = append(runs, m.runs[i])
	}
	return runs, nil
}
