// Package canonical derives the deterministic fingerprint used for
// duplicate detection.
//
// The same normalization must be applied everywhere a key is computed:
// the import filter, the storage constraint, and tests. Two differently
// formatted exports of the same real transaction hash identically; any
// change in one normalized field changes the hash.
package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rentledger/reconcile-backend/internal/domain/transaction"
)

// fieldSep joins normalized fields before hashing. It cannot appear in a
// normalized text field because NormalizeText collapses whitespace only.
const fieldSep = "|"

// Key computes the canonical fingerprint for a transaction.
func Key(t *transaction.Transaction) string {
	return KeyFields(t.Date, t.Value, t.Name, t.Depositor, t.Car, t.PaymentMethod)
}

// KeyFields computes the fingerprint from the defining attributes directly.
// Absent text fields are treated as empty strings, not omitted, so the key
// stays well-defined for sparse records.
func KeyFields(date time.Time, value float64, name, depositor, car, method string) string {
	parts := []string{
		DayLabel(date),
		NormalizeValue(value),
		NormalizeText(name),
		NormalizeText(depositor),
		NormalizeText(car),
		NormalizeText(method),
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, fieldSep)))
	return hex.EncodeToString(sum[:])
}

// DayLabel truncates a timestamp to its UTC calendar day. Time-of-day and
// sub-day timezone offsets do not affect the key.
func DayLabel(date time.Time) string {
	return date.UTC().Format("2006-01-02")
}

// NormalizeValue renders |value| rounded to two decimal places. Rounding
// goes through decimal so 330 and 330.004 produce the same "330.00".
func NormalizeValue(value float64) string {
	return decimal.NewFromFloat(value).Abs().Round(2).StringFixed(2)
}

// NormalizeText lower-cases, trims, and collapses internal whitespace.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// ValueCents returns |value| as an integer minor-unit count. Index keys use
// this instead of the float itself to avoid floating point key collisions.
func ValueCents(value float64) int64 {
	return decimal.NewFromFloat(value).Abs().Round(2).Shift(2).IntPart()
}
