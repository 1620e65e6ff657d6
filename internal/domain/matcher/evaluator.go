// Package matcher pairs ledger entries with statement entries that
// describe the same real-world payment.
//
// Matching is strict: date within tolerance AND value within one cent AND
// same payment method AND party-name similarity above threshold. The name
// gate is skipped for credit card transactions, whose statement
// descriptors rarely carry the payer's name.
package matcher

import (
	"fmt"
	"math"
	"strings"

	"github.com/rentledger/reconcile-backend/internal/domain/canonical"
	"github.com/rentledger/reconcile-backend/internal/domain/transaction"
)

// creditCardMarker triggers the name-gate exemption when it appears in
// either side's payment method.
const creditCardMarker = "credit card"

// Evaluator applies the four match criteria to a ledger/candidate pair.
type Evaluator struct {
	config Config
}

// NewEvaluator creates an evaluator with the given tolerances.
func NewEvaluator(config Config) *Evaluator {
	return &Evaluator{config: config}
}

// Evaluate compares one ledger entry against one statement candidate.
// Every criterion is checked even after the first failure so the report
// lists all reasons, not just the first.
func (e *Evaluator) Evaluate(ledger, candidate *transaction.Transaction) Evaluation {
	ev := Evaluation{Candidate: candidate}

	// 1. Date: same calendar day or within tolerance.
	dayDiff := calendarDayDiff(ledger, candidate)
	if dayDiff <= e.config.DateToleranceDays {
		ev.DateScore = 1
	} else {
		ev.Failures = append(ev.Failures, fmt.Sprintf(
			"date: %d days apart (max %d)", dayDiff, e.config.DateToleranceDays))
	}

	// 2. Value: currency-unit epsilon on absolute values.
	valueDiff := math.Abs(math.Abs(ledger.Value) - math.Abs(candidate.Value))
	if valueDiff < e.config.ValueEpsilon {
		ev.ValueScore = 1
	} else {
		ev.Failures = append(ev.Failures, fmt.Sprintf(
			"value: %.2f vs %.2f", ledger.Value, candidate.Value))
	}

	// 3. Payment method: case-insensitive trimmed equality.
	lm := canonical.NormalizeText(ledger.PaymentMethod)
	cm := canonical.NormalizeText(candidate.PaymentMethod)
	if lm == cm {
		ev.MethodScore = 1
	} else {
		ev.Failures = append(ev.Failures, fmt.Sprintf(
			"method: %q vs %q", ledger.PaymentMethod, candidate.PaymentMethod))
	}

	// 4. Name similarity, unless either side is a credit card charge.
	if isCreditCard(lm) || isCreditCard(cm) {
		ev.NameSkipped = true
		ev.NameScore = 1
	} else {
		ev.NameScore = bestPairSimilarity(
			ledger.Name, ledger.Depositor,
			candidate.Name, candidate.Depositor,
		)
		if ev.NameScore < e.config.NameThreshold {
			ev.Failures = append(ev.Failures, fmt.Sprintf(
				"name: best similarity %.2f below %.2f", ev.NameScore, e.config.NameThreshold))
		}
	}

	ev.Pass = len(ev.Failures) == 0
	return ev
}

// isCreditCard matches on a normalized method string.
func isCreditCard(normalizedMethod string) bool {
	return strings.Contains(normalizedMethod, creditCardMarker)
}

// calendarDayDiff counts whole calendar days between the two records,
// ignoring time-of-day.
func calendarDayDiff(a, b *transaction.Transaction) int {
	diff := int(a.Day().Sub(b.Day()).Hours() / 24)
	if diff < 0 {
		diff = -diff
	}
	return diff
}
