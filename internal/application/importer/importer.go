// Package importer is the write path for newly parsed records: duplicate
// filtering, id assignment, and insertion.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/rentledger/reconcile-backend/internal/domain/dupe"
	"github.com/rentledger/reconcile-backend/internal/domain/transaction"
	"github.com/rentledger/reconcile-backend/internal/infrastructure/storage"
)

// Importer inserts batches of normalized transactions.
type Importer struct {
	repo   storage.Repository
	logger *slog.Logger
}

// NewImporter creates an importer backed by the given repository.
func NewImporter(repo storage.Repository, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{repo: repo, logger: logger}
}

// Result reports what an import batch did.
type Result struct {
	Inserted             int      `json:"inserted"`
	PersistedDuplicates  int      `json:"persisted_duplicates"`
	IntraBatchDuplicates int      `json:"intra_batch_duplicates"`
	Errors               int      `json:"errors"`
	ErrorDetails         []string `json:"error_details,omitempty"`
}

// Import filters the batch against persisted hashes and inserts the
// survivors. A duplicate-constraint rejection at insert time (a record the
// filter missed, e.g. from a concurrent import) is counted as a persisted
// duplicate, not an error.
func (i *Importer) Import(ctx context.Context, records []*transaction.Transaction) (*Result, error) {
	for _, r := range records {
		if err := validate(r); err != nil {
			return nil, err
		}
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
	}

	existing, err := i.repo.ListHashes()
	if err != nil {
		return nil, fmt.Errorf("failed to load existing hashes: %w", err)
	}

	filtered := dupe.Filter(records, existing)

	result := &Result{
		PersistedDuplicates:  filtered.PersistedDuplicates,
		IntraBatchDuplicates: filtered.IntraBatchDuplicates,
	}

	i.logger.Info("importing batch",
		"received", len(records),
		"unique", len(filtered.Unique),
		"persisted_duplicates", filtered.PersistedDuplicates,
		"intra_batch_duplicates", filtered.IntraBatchDuplicates,
	)

	for _, t := range filtered.Unique {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if err := i.repo.Insert(t); err != nil {
			if errors.Is(err, storage.ErrDuplicateHash) {
				// Filter miss; the storage constraint is authoritative.
				result.PersistedDuplicates++
				i.logger.Debug("insert rejected as duplicate", "id", t.ID)
				continue
			}
			result.Errors++
			result.ErrorDetails = append(result.ErrorDetails, err.Error())
			i.logger.Error("insert failed", "id", t.ID, "error", err)
			continue
		}
		result.Inserted++
	}

	return result, nil
}

// validate rejects records the engine cannot work with.
func validate(t *transaction.Transaction) error {
	if t.Date.IsZero() {
		return fmt.Errorf("record %q: date is required", t.ID)
	}
	switch t.Status {
	case transaction.StatusPendingLedger, transaction.StatusPendingStatement:
	default:
		return fmt.Errorf("record %q: import status must be %s or %s, got %q",
			t.ID, transaction.StatusPendingLedger, transaction.StatusPendingStatement, t.Status)
	}
	return nil
}
