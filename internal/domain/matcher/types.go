package matcher

import (
	"github.com/rentledger/reconcile-backend/internal/domain/transaction"
)

// Config holds the matching tolerances.
type Config struct {
	// DateToleranceDays is the maximum calendar-day distance (default 2).
	DateToleranceDays int

	// ValueEpsilon is the currency-unit epsilon for value equality
	// (default 0.01, one cent).
	ValueEpsilon float64

	// NameThreshold is the minimum bigram similarity for the name gate
	// (default 0.5).
	NameThreshold float64
}

// DefaultConfig returns the tolerances used in production.
func DefaultConfig() Config {
	return Config{
		DateToleranceDays: 2,
		ValueEpsilon:      0.01,
		NameThreshold:     0.5,
	}
}

// Evaluation is the outcome of comparing one ledger entry with one
// statement candidate. All four criteria are hard gates; Pass is true only
// when every gate passes.
type Evaluation struct {
	Candidate *transaction.Transaction

	Pass bool

	// Per-criterion scores, kept for audit output. Date, value and method
	// are binary; NameScore is the raw best pairwise similarity.
	DateScore   float64
	ValueScore  float64
	MethodScore float64
	NameScore   float64

	// NameSkipped is set when the credit-card exception bypassed the
	// name gate.
	NameSkipped bool

	// Failures lists human-readable reasons for each failed criterion.
	Failures []string
}

// FailureSummary joins the failure reasons for reporting.
func (e *Evaluation) FailureSummary() string {
	if len(e.Failures) == 0 {
		return ""
	}
	s := e.Failures[0]
	for _, f := range e.Failures[1:] {
		s += "; " + f
	}
	return s
}

// SearchResult is what a search over the candidate index produced for one
// ledger entry.
type SearchResult struct {
	// Match is the first candidate that passed every gate, nil when none did.
	Match *transaction.Transaction

	// Detail explains the outcome: the winning evaluation, or the
	// best-attempted candidate's failures, or "no candidates".
	Detail string
}
