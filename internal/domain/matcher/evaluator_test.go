package matcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rentledger/reconcile-backend/internal/domain/transaction"
)

func ledgerTx(day int, value float64, method, name string) *transaction.Transaction {
	return &transaction.Transaction{
		ID:            "ledger-1",
		Date:          time.Date(2025, 10, day, 0, 0, 0, 0, time.UTC),
		Value:         value,
		Name:          name,
		PaymentMethod: method,
		Status:        transaction.StatusPendingLedger,
	}
}

func statementTx(day int, value float64, method, depositor string) *transaction.Transaction {
	return &transaction.Transaction{
		ID:            "stmt-1",
		Date:          time.Date(2025, 10, day, 0, 0, 0, 0, time.UTC),
		Value:         value,
		Depositor:     depositor,
		PaymentMethod: method,
		Status:        transaction.StatusPendingStatement,
	}
}

func TestEvaluate_FullPass(t *testing.T) {
	e := NewEvaluator(DefaultConfig())

	ev := e.Evaluate(
		ledgerTx(16, 330.00, "Zelle", "Jeremias Arias Mendez CO"),
		statementTx(16, 330.00, "Zelle", "JEREMIAS ARIAS MENDEZ"),
	)

	assert.True(t, ev.Pass)
	assert.Equal(t, 1.0, ev.DateScore)
	assert.Equal(t, 1.0, ev.ValueScore)
	assert.Equal(t, 1.0, ev.MethodScore)
	assert.GreaterOrEqual(t, ev.NameScore, 0.5)
	assert.Empty(t, ev.Failures)
}

func TestEvaluate_DateBoundary(t *testing.T) {
	e := NewEvaluator(DefaultConfig())
	ledger := ledgerTx(16, 100, "Zelle", "alpha")

	// Exactly 2 days apart passes.
	ev := e.Evaluate(ledger, statementTx(18, 100, "Zelle", "alpha"))
	assert.True(t, ev.Pass)

	// 3 days apart fails the date gate only.
	ev = e.Evaluate(ledger, statementTx(19, 100, "Zelle", "alpha"))
	assert.False(t, ev.Pass)
	assert.Equal(t, 0.0, ev.DateScore)
	assert.Equal(t, 1.0, ev.ValueScore)
	assert.Len(t, ev.Failures, 1)
	assert.Contains(t, ev.Failures[0], "date")
}

func TestEvaluate_DateIgnoresTimeOfDay(t *testing.T) {
	e := NewEvaluator(DefaultConfig())

	ledger := ledgerTx(16, 100, "Zelle", "alpha")
	candidate := statementTx(18, 100, "Zelle", "alpha")
	candidate.Date = candidate.Date.Add(23 * time.Hour) // still Oct 18

	ev := e.Evaluate(ledger, candidate)
	assert.True(t, ev.Pass)
}

func TestEvaluate_ValueEpsilon(t *testing.T) {
	e := NewEvaluator(DefaultConfig())
	ledger := ledgerTx(16, 100.00, "Zelle", "alpha")

	// Sub-cent difference passes.
	ev := e.Evaluate(ledger, statementTx(16, 100.005, "Zelle", "alpha"))
	assert.True(t, ev.Pass)

	// One full cent fails.
	ev = e.Evaluate(ledger, statementTx(16, 100.01, "Zelle", "alpha"))
	assert.False(t, ev.Pass)
	assert.Contains(t, ev.FailureSummary(), "value")
}

func TestEvaluate_ValueSignIgnored(t *testing.T) {
	// Ledger debit -330 against statement credit +330.
	e := NewEvaluator(DefaultConfig())
	ev := e.Evaluate(
		ledgerTx(16, -330.00, "Zelle", "alpha"),
		statementTx(16, 330.00, "Zelle", "alpha"),
	)
	assert.Equal(t, 1.0, ev.ValueScore)
}

func TestEvaluate_MethodCaseInsensitive(t *testing.T) {
	e := NewEvaluator(DefaultConfig())

	ev := e.Evaluate(
		ledgerTx(16, 100, " ZELLE ", "alpha"),
		statementTx(16, 100, "zelle", "alpha"),
	)
	assert.Equal(t, 1.0, ev.MethodScore)

	ev = e.Evaluate(
		ledgerTx(16, 100, "Zelle", "alpha"),
		statementTx(16, 100, "Venmo", "alpha"),
	)
	assert.False(t, ev.Pass)
	assert.Contains(t, ev.FailureSummary(), "method")
}

func TestEvaluate_NameBelowThresholdFails(t *testing.T) {
	e := NewEvaluator(DefaultConfig())

	ev := e.Evaluate(
		ledgerTx(16, 100, "Zelle", "John Doe"),
		statementTx(16, 100, "Zelle", "Totally Different Name"),
	)
	assert.False(t, ev.Pass)
	assert.Less(t, ev.NameScore, 0.5)
	assert.Contains(t, ev.FailureSummary(), "name")
}

func TestEvaluate_CreditCardSkipsNameCheck(t *testing.T) {
	e := NewEvaluator(DefaultConfig())

	ev := e.Evaluate(
		ledgerTx(16, 100.00, "Credit Card", "John Doe"),
		statementTx(16, 100.00, "Credit Card", "Totally Different Name"),
	)
	assert.True(t, ev.Pass)
	assert.True(t, ev.NameSkipped)
}

func TestEvaluate_CreditCardMarkerInsideLongerMethod(t *testing.T) {
	e := NewEvaluator(DefaultConfig())

	ev := e.Evaluate(
		ledgerTx(16, 100.00, "Visa credit card", "John Doe"),
		statementTx(16, 100.00, "VISA CREDIT CARD", "Unrelated Descriptor"),
	)
	assert.True(t, ev.Pass)
	assert.True(t, ev.NameSkipped)
}

func TestEvaluate_CollectsAllFailures(t *testing.T) {
	e := NewEvaluator(DefaultConfig())

	ev := e.Evaluate(
		ledgerTx(10, 100, "Zelle", "John Doe"),
		statementTx(20, 250, "Venmo", "Someone Else"),
	)
	assert.False(t, ev.Pass)
	assert.Len(t, ev.Failures, 4)
}

func TestEvaluate_NegativeScenario(t *testing.T) {
	// Six days apart, everything else equal: no match.
	e := NewEvaluator(DefaultConfig())

	ev := e.Evaluate(
		ledgerTx(14, 199.02, "Zelle", ""),
		statementTx(20, 199.02, "Zelle", ""),
	)
	assert.False(t, ev.Pass)
	assert.Equal(t, 0.0, ev.DateScore)
}
