package storage

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentledger/reconcile-backend/internal/domain/canonical"
	"github.com/rentledger/reconcile-backend/internal/domain/transaction"
)

// newTestStorage creates storage backed by an in-memory database.
func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := NewStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testTx(id string, day int, value float64, status transaction.Status) *transaction.Transaction {
	tx := &transaction.Transaction{
		ID:            id,
		Date:          time.Date(2025, 10, day, 0, 0, 0, 0, time.UTC),
		Value:         value,
		Name:          "name-" + id,
		PaymentMethod: "Zelle",
		Source:        "test",
		Status:        status,
	}
	tx.DuplicateCheckHash = canonical.Key(tx)
	return tx
}

func TestStorage_InsertAndGet(t *testing.T) {
	s := newTestStorage(t)

	tx := testTx("t1", 16, 330.00, transaction.StatusPendingLedger)
	tx.Depositor = "dep"
	tx.Car = "camry"
	require.NoError(t, s.Insert(tx))

	got, err := s.GetByID("t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", got.ID)
	assert.Equal(t, 330.00, got.Value)
	assert.Equal(t, "name-t1", got.Name)
	assert.Equal(t, "dep", got.Depositor)
	assert.Equal(t, "camry", got.Car)
	assert.Equal(t, transaction.StatusPendingLedger, got.Status)
	assert.Equal(t, "2025-10-16", got.DayLabel())
	assert.Equal(t, tx.DuplicateCheckHash, got.DuplicateCheckHash)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestStorage_GetByID_NotFound(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.GetByID("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStorage_Insert_DuplicateHashRejected(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.Insert(testTx("t1", 16, 100, transaction.StatusPendingLedger)))

	// Different id, same defining attributes, therefore same hash.
	dup := testTx("t2", 16, 100, transaction.StatusPendingLedger)
	dup.Name = "name-t1"
	dup.DuplicateCheckHash = canonical.Key(dup)

	err := s.Insert(dup)
	assert.ErrorIs(t, err, ErrDuplicateHash)
}

func TestStorage_Insert_DeletedRecordStillBlocksHash(t *testing.T) {
	s := newTestStorage(t)

	tx := testTx("t1", 16, 100, transaction.StatusPendingLedger)
	require.NoError(t, s.Insert(tx))
	require.NoError(t, s.SoftDelete("t1", "bad import"))

	dup := testTx("t2", 16, 100, transaction.StatusPendingLedger)
	dup.Name = "name-t1"
	dup.DuplicateCheckHash = canonical.Key(dup)

	// Uniqueness applies to all records ever persisted, not just active ones.
	assert.ErrorIs(t, s.Insert(dup), ErrDuplicateHash)
}

func TestStorage_FetchByStatus_Pagination(t *testing.T) {
	s := newTestStorage(t)

	for i := 0; i < 7; i++ {
		require.NoError(t, s.Insert(testTx(fmt.Sprintf("t%d", i), 1+i, 100+float64(i), transaction.StatusPendingLedger)))
	}
	require.NoError(t, s.Insert(testTx("other", 1, 999, transaction.StatusPendingStatement)))

	page1, err := s.FetchByStatus(transaction.StatusPendingLedger, time.Time{}, 0, 3)
	require.NoError(t, err)
	require.Len(t, page1, 3)
	assert.Equal(t, "t0", page1[0].ID)

	page2, err := s.FetchByStatus(transaction.StatusPendingLedger, time.Time{}, 3, 3)
	require.NoError(t, err)
	require.Len(t, page2, 3)
	assert.Equal(t, "t3", page2[0].ID)

	// Short final page signals end-of-data.
	page3, err := s.FetchByStatus(transaction.StatusPendingLedger, time.Time{}, 6, 3)
	require.NoError(t, err)
	assert.Len(t, page3, 1)
}

func TestStorage_FetchByStatus_Cutoff(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.Insert(testTx("old", 1, 100, transaction.StatusPendingLedger)))
	require.NoError(t, s.Insert(testTx("new", 20, 200, transaction.StatusPendingLedger)))

	cutoff := time.Date(2025, 10, 10, 0, 0, 0, 0, time.UTC)
	page, err := s.FetchByStatus(transaction.StatusPendingLedger, cutoff, 0, 100)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "new", page[0].ID)
}

func TestStorage_UpdateByID_PartialFields(t *testing.T) {
	s := newTestStorage(t)
	require.NoError(t, s.Insert(testTx("t1", 16, 100, transaction.StatusPendingLedger)))

	status := transaction.StatusReconciled
	confidence := 100
	matchedID := "t9"
	require.NoError(t, s.UpdateByID("t1", UpdateFields{
		Status:               &status,
		Confidence:           &confidence,
		MatchedTransactionID: &matchedID,
	}))

	got, err := s.GetByID("t1")
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusReconciled, got.Status)
	assert.Equal(t, 100, got.Confidence)
	assert.Equal(t, "t9", got.MatchedTransactionID)
	// Untouched fields survive.
	assert.Equal(t, "name-t1", got.Name)
}

func TestStorage_UpdateByID_NotFound(t *testing.T) {
	s := newTestStorage(t)

	status := transaction.StatusReconciled
	err := s.UpdateByID("missing", UpdateFields{Status: &status})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStorage_UpdateByID_CounterpartClaimedTwice(t *testing.T) {
	s := newTestStorage(t)
	require.NoError(t, s.Insert(testTx("l1", 16, 100, transaction.StatusPendingLedger)))
	require.NoError(t, s.Insert(testTx("l2", 17, 200, transaction.StatusPendingLedger)))

	target := "s1"
	require.NoError(t, s.UpdateByID("l1", UpdateFields{MatchedTransactionID: &target}))

	// A second record claiming the same counterpart trips the partial
	// unique index; this is the double-commit race from concurrent runs.
	err := s.UpdateByID("l2", UpdateFields{MatchedTransactionID: &target})
	assert.ErrorIs(t, err, ErrDuplicateHash)
}

func TestStorage_SoftDeleteAndRestore(t *testing.T) {
	s := newTestStorage(t)
	require.NoError(t, s.Insert(testTx("t1", 16, 100, transaction.StatusPendingLedger)))

	matchedID := "t9"
	confidence := 100
	status := transaction.StatusReconciled
	require.NoError(t, s.UpdateByID("t1", UpdateFields{
		Status:               &status,
		Confidence:           &confidence,
		MatchedTransactionID: &matchedID,
	}))

	require.NoError(t, s.SoftDelete("t1", "duplicate entry"))
	got, err := s.GetByID("t1")
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusDeleted, got.Status)
	assert.Equal(t, "duplicate entry", got.DeleteReason)

	require.NoError(t, s.Restore("t1"))
	got, err = s.GetByID("t1")
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusPendingLedger, got.Status)
	assert.Empty(t, got.MatchedTransactionID)
	assert.Zero(t, got.Confidence)
	assert.Empty(t, got.DeleteReason)
}

func TestStorage_ListHashes(t *testing.T) {
	s := newTestStorage(t)

	t1 := testTx("t1", 16, 100, transaction.StatusPendingLedger)
	t2 := testTx("t2", 17, 200, transaction.StatusPendingStatement)
	require.NoError(t, s.Insert(t1))
	require.NoError(t, s.Insert(t2))

	hashes, err := s.ListHashes()
	require.NoError(t, err)
	assert.Len(t, hashes, 2)
	assert.Contains(t, hashes, t1.DuplicateCheckHash)
	assert.Contains(t, hashes, t2.DuplicateCheckHash)
}

func TestStorage_List_FiltersAndCounts(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.Insert(testTx("t1", 16, 100, transaction.StatusPendingLedger)))
	require.NoError(t, s.Insert(testTx("t2", 17, 200, transaction.StatusPendingStatement)))
	require.NoError(t, s.Insert(testTx("t3", 18, 300, transaction.StatusPendingLedger)))

	result, err := s.List(TransactionFilters{Status: transaction.StatusPendingLedger})
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalCount)
	require.Len(t, result.Transactions, 2)
	// Newest first.
	assert.Equal(t, "t3", result.Transactions[0].ID)
}

func TestStorage_GetStats(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.Insert(testTx("t1", 16, 100, transaction.StatusPendingLedger)))
	require.NoError(t, s.Insert(testTx("t2", 17, -250, transaction.StatusReconciled)))
	require.NoError(t, s.Insert(testTx("t3", 18, 300, transaction.StatusPendingStatement)))

	stats, err := s.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.PendingLedger)
	assert.Equal(t, 1, stats.PendingStatement)
	assert.Equal(t, 1, stats.Reconciled)
	assert.InDelta(t, 250.0, stats.ReconciledValue, 0.001)
}

func TestStorage_RunTracking(t *testing.T) {
	s := newTestStorage(t)

	id, err := s.StartRun(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, s.CompleteRun(id, 100, 80, 2, 1))

	runs, err := s.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, id, runs[0].ID)
	assert.Equal(t, 100, runs[0].Processed)
	assert.Equal(t, 80, runs[0].Matched)
	assert.Equal(t, 2, runs[0].Duplicates)
	assert.Equal(t, 1, runs[0].Errors)
	assert.Equal(t, "completed_with_errors", runs[0].Status)
	assert.Equal(t, "2025-01-01", runs[0].Cutoff)
}

func TestStorage_MigrationsAreIdempotent(t *testing.T) {
	s := newTestStorage(t)
	// Re-running against an already-migrated database is a no-op.
	require.NoError(t, s.runMigrations())
}
