package matcher

import (
	"github.com/rentledger/reconcile-backend/internal/domain/canonical"
	"github.com/rentledger/reconcile-backend/internal/domain/transaction"
)

// bucketKey locates candidates that could only differ on the fuzzy
// criteria (date offset handled by probing neighboring day labels, name
// handled by the evaluator). Value is an integer cent count so float
// formatting can never split a bucket.
type bucketKey struct {
	dayLabel   string
	valueCents int64
	method     string
}

// Index buckets unmatched candidates by (day, cents, method) so the match
// loop stays linear instead of re-scanning every candidate per ledger
// entry. Built once per reconciliation run; not safe for concurrent use.
type Index struct {
	buckets map[bucketKey][]*transaction.Transaction

	// keyByID lets Remove find a candidate's bucket without recomputing
	// its key from possibly mutated fields.
	keyByID map[string]bucketKey
}

// NewIndex builds an index from the candidate pool. Records already
// carrying a matched id are excluded; they are never candidates again.
func NewIndex(candidates []*transaction.Transaction) *Index {
	idx := &Index{
		buckets: make(map[bucketKey][]*transaction.Transaction, len(candidates)),
		keyByID: make(map[string]bucketKey, len(candidates)),
	}
	for _, c := range candidates {
		if c.IsMatched() {
			continue
		}
		key := keyFor(c)
		idx.buckets[key] = append(idx.buckets[key], c)
		idx.keyByID[c.ID] = key
	}
	return idx
}

// keyFor derives the bucket key from a record's own attributes.
func keyFor(t *transaction.Transaction) bucketKey {
	return bucketKey{
		dayLabel:   t.DayLabel(),
		valueCents: canonical.ValueCents(t.Value),
		method:     canonical.NormalizeText(t.PaymentMethod),
	}
}

// Lookup returns the bucket for an exact (dayLabel, cents, method) probe.
// The returned slice is the live bucket; callers must not mutate it.
func (idx *Index) Lookup(dayLabel string, valueCents int64, normalizedMethod string) []*transaction.Transaction {
	return idx.buckets[bucketKey{dayLabel, valueCents, normalizedMethod}]
}

// Remove deletes a consumed candidate so it cannot be matched twice in the
// same run. Emptied buckets are deleted rather than left as empty slices.
func (idx *Index) Remove(candidateID string) {
	key, ok := idx.keyByID[candidateID]
	if !ok {
		return
	}
	delete(idx.keyByID, candidateID)

	bucket := idx.buckets[key]
	for i, c := range bucket {
		if c.ID == candidateID {
			bucket = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	if len(bucket) == 0 {
		delete(idx.buckets, key)
		return
	}
	idx.buckets[key] = bucket
}

// Len returns the number of candidates still available.
func (idx *Index) Len() int {
	return len(idx.keyByID)
}
