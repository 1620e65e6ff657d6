package matcher

import (
	"fmt"

	"github.com/rentledger/reconcile-backend/internal/domain/canonical"
	"github.com/rentledger/reconcile-backend/internal/domain/transaction"
)

// Searcher probes the candidate index across the date tolerance window for
// one ledger entry at a time.
type Searcher struct {
	evaluator *Evaluator
	config    Config
}

// NewSearcher creates a searcher that evaluates probed candidates with the
// given tolerances.
func NewSearcher(config Config) *Searcher {
	return &Searcher{
		evaluator: NewEvaluator(config),
		config:    config,
	}
}

// Search probes idx for every day offset in the tolerance window, unions
// the buckets de-duplicated by id, and evaluates candidates in encounter
// order. The first full pass wins. The caller must Remove the winner from
// the index before moving to the next ledger entry.
//
// Buckets preserve insertion order and the fetch that feeds the index is
// ordered, so first-fit is deterministic for a given store state.
func (s *Searcher) Search(ledger *transaction.Transaction, idx *Index) SearchResult {
	valueCents := canonical.ValueCents(ledger.Value)
	method := canonical.NormalizeText(ledger.PaymentMethod)
	day := ledger.Day()

	seen := make(map[string]struct{})

	// bestAttempt is the failed evaluation with the fewest failed
	// criteria, kept for the diagnostic when nothing passes.
	var bestAttempt *Evaluation

	for offset := -s.config.DateToleranceDays; offset <= s.config.DateToleranceDays; offset++ {
		label := day.AddDate(0, 0, offset).Format("2006-01-02")

		for _, candidate := range idx.Lookup(label, valueCents, method) {
			if _, ok := seen[candidate.ID]; ok {
				continue
			}
			seen[candidate.ID] = struct{}{}

			ev := s.evaluator.Evaluate(ledger, candidate)
			if ev.Pass {
				detail := fmt.Sprintf("matched %s (name similarity %.2f", candidate.ID, ev.NameScore)
				if ev.NameSkipped {
					detail = fmt.Sprintf("matched %s (name check skipped: credit card", candidate.ID)
				}
				return SearchResult{Match: candidate, Detail: detail + ")"}
			}

			if bestAttempt == nil || len(ev.Failures) < len(bestAttempt.Failures) {
				evCopy := ev
				bestAttempt = &evCopy
			}
		}
	}

	if bestAttempt == nil {
		return SearchResult{Detail: "no candidates"}
	}
	return SearchResult{Detail: fmt.Sprintf(
		"no match; closest candidate %s failed: %s",
		bestAttempt.Candidate.ID, bestAttempt.FailureSummary())}
}
