// Package dupe filters freshly parsed records against already-persisted
// ones before insert.
//
// The filter is advisory. The authoritative duplicate guard is the UNIQUE
// constraint on duplicate_check_hash in storage; a record that slips past
// here (concurrent import) surfaces as storage.ErrDuplicateHash at insert
// time and is counted, not fatal.
package dupe

import (
	"github.com/rentledger/reconcile-backend/internal/domain/canonical"
	"github.com/rentledger/reconcile-backend/internal/domain/transaction"
)

// Result reports what the filter kept and dropped.
type Result struct {
	Unique []*transaction.Transaction

	// PersistedDuplicates were already in storage.
	PersistedDuplicates int

	// IntraBatchDuplicates repeated within the same import batch. Tallied
	// separately because they usually mean the source file itself has
	// doubled rows.
	IntraBatchDuplicates int
}

// Filter drops records whose canonical key is already persisted or already
// seen earlier in the batch. It also stamps DuplicateCheckHash on every
// record it sees, kept or dropped.
func Filter(batch []*transaction.Transaction, existingHashes map[string]struct{}) Result {
	res := Result{Unique: make([]*transaction.Transaction, 0, len(batch))}
	seen := make(map[string]struct{}, len(batch))

	for _, t := range batch {
		key := canonical.Key(t)
		t.DuplicateCheckHash = key

		if _, ok := existingHashes[key]; ok {
			res.PersistedDuplicates++
			continue
		}
		if _, ok := seen[key]; ok {
			res.IntraBatchDuplicates++
			continue
		}

		seen[key] = struct{}{}
		res.Unique = append(res.Unique, t)
	}

	return res
}
