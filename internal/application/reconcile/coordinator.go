// Package reconcile runs the matching engine end to end: fetch both
// pending populations, pair them, and commit the pairs.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rentledger/reconcile-backend/internal/domain/matcher"
	"github.com/rentledger/reconcile-backend/internal/domain/transaction"
	"github.com/rentledger/reconcile-backend/internal/infrastructure/storage"
)

const (
	defaultPageSize        = 500
	defaultCommitBatchSize = 10
)

// Coordinator orchestrates one reconciliation run at a time.
type Coordinator struct {
	repo     storage.Repository
	searcher *matcher.Searcher
	config   matcher.Config
	logger   *slog.Logger
}

// NewCoordinator creates a coordinator with the given tolerances.
func NewCoordinator(repo storage.Repository, config matcher.Config, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		repo:     repo,
		searcher: matcher.NewSearcher(config),
		config:   config,
		logger:   logger,
	}
}

// pair is a matched ledger/statement couple awaiting commit.
type pair struct {
	ledger    *transaction.Transaction
	statement *transaction.Transaction
}

// Run executes a full reconciliation pass: load both pending populations,
// search candidates for every ledger entry, then commit matched pairs in
// bounded batches. Matching happens in memory first so a commit failure
// never leaves the search seeing half-updated state.
func (c *Coordinator) Run(ctx context.Context, opts Options) (*Report, error) {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	batchSize := opts.CommitBatchSize
	if batchSize <= 0 {
		batchSize = defaultCommitBatchSize
	}

	runID, err := c.repo.StartRun(opts.Cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to start run: %w", err)
	}

	ledger, err := c.fetchAll(ctx, transaction.StatusPendingLedger, opts.Cutoff, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ledger entries: %w", err)
	}
	statements, err := c.fetchAll(ctx, transaction.StatusPendingStatement, opts.Cutoff, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch statement entries: %w", err)
	}

	c.logger.Info("reconciliation run started",
		"run_id", runID,
		"ledger_entries", len(ledger),
		"statement_entries", len(statements),
	)

	idx := matcher.NewIndex(statements)

	report := &Report{RunID: runID}
	var pairs []pair

	for _, entry := range ledger {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if entry.IsMatched() {
			continue
		}
		report.Processed++

		result := c.searcher.Search(entry, idx)
		rec := RecordReport{LedgerID: entry.ID, Detail: result.Detail}
		if result.Match != nil {
			idx.Remove(result.Match.ID)
			pairs = append(pairs, pair{ledger: entry, statement: result.Match})
			rec.Matched = true
			rec.StatementID = result.Match.ID
		}
		report.Reports = append(report.Reports, rec)
	}

	for start := 0; start < len(pairs); start += batchSize {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		end := start + batchSize
		if end > len(pairs) {
			end = len(pairs)
		}
		c.commitBatch(pairs[start:end], report)
	}

	if err := c.repo.CompleteRun(runID, report.Processed, report.Matched, report.Duplicates, report.Errors); err != nil {
		c.logger.Error("failed to record run completion", "run_id", runID, "error", err)
	}

	c.logger.Info("reconciliation run completed",
		"run_id", runID,
		"processed", report.Processed,
		"matched", report.Matched,
		"duplicates", report.Duplicates,
		"errors", report.Errors,
	)

	return report, nil
}

// fetchAll pages through a status until a short page confirms end-of-data.
// A single fetch is never assumed complete.
func (c *Coordinator) fetchAll(ctx context.Context, status transaction.Status, cutoff time.Time, pageSize int) ([]*transaction.Transaction, error) {
	var all []*transaction.Transaction
	for offset := 0; ; offset += pageSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := c.repo.FetchByStatus(status, cutoff, offset, pageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
	}
}

// commitBatch commits matched pairs, ledger side first. A duplicate
// rejection means another run already claimed one side; the pair is
// skipped and counted, never failed. Any other storage error abandons the
// rest of the batch so a sick store is not hammered pair after pair.
func (c *Coordinator) commitBatch(batch []pair, report *Report) {
	for i, p := range batch {
		if err := c.commitPair(p); err != nil {
			if errors.Is(err, storage.ErrDuplicateHash) {
				report.Duplicates++
				c.logger.Warn("pair already claimed, skipping",
					"ledger_id", p.ledger.ID, "statement_id", p.statement.ID)
				continue
			}
			report.Errors += len(batch) - i
			c.logger.Error("commit batch abandoned",
				"ledger_id", p.ledger.ID,
				"statement_id", p.statement.ID,
				"remaining", len(batch)-i-1,
				"error", err,
			)
			return
		}
		report.Matched++
	}
}

// commitPair writes both sides of a match. If the statement side fails
// after the ledger side succeeded, the ledger side is rolled back so no
// record ever references a counterpart that does not reference it back.
func (c *Coordinator) commitPair(p pair) error {
	reconciled := transaction.StatusReconciled
	confidence := 100

	statementID := p.statement.ID
	if err := c.repo.UpdateByID(p.ledger.ID, storage.UpdateFields{
		Status:               &reconciled,
		Confidence:           &confidence,
		MatchedTransactionID: &statementID,
	}); err != nil {
		return fmt.Errorf("ledger side %s: %w", p.ledger.ID, err)
	}

	ledgerID := p.ledger.ID
	if err := c.repo.UpdateByID(p.statement.ID, storage.UpdateFields{
		Status:               &reconciled,
		Confidence:           &confidence,
		MatchedTransactionID: &ledgerID,
	}); err != nil {
		c.rollbackLedgerSide(p.ledger.ID)
		return fmt.Errorf("statement side %s: %w", p.statement.ID, err)
	}

	return nil
}

// rollbackLedgerSide returns a half-committed ledger entry to pending.
// Best effort; a failure here is logged and the entry is picked up again
// by a later run once the statement side conflict clears.
func (c *Coordinator) rollbackLedgerSide(id string) {
	pending := transaction.StatusPendingLedger
	confidence := 0
	cleared := ""
	if err := c.repo.UpdateByID(id, storage.UpdateFields{
		Status:               &pending,
		Confidence:           &confidence,
		MatchedTransactionID: &cleared,
	}); err != nil {
		c.logger.Error("failed to roll back half-committed pair", "ledger_id", id, "error", err)
	}
}
