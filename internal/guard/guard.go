// Package guard holds the precondition checks and due-date arithmetic shared
// by the ledger components.
package guard

import (
	"time"

	"github.com/card-ledger/card_ledger/internal/apperr"
)

// DefaultPeriod is one scheduling period.
const DefaultPeriod = 7 * 24 * time.Hour

// AssertTrue returns a validation error carrying message and code when
// condition is false.
func AssertTrue(condition bool, message string, code int) error {
	if condition {
		return nil
	}
	return &apperr.Error{Kind: apperr.KindValidation, Message: message, Code: code}
}

// Require returns err when condition is false.
func Require(condition bool, err *apperr.Error) error {
	if condition || err == nil {
		return nil
	}
	return err
}

// Advance returns t moved forward by periods scheduling periods.
// A non-positive period falls back to DefaultPeriod.
func Advance(t time.Time, period time.Duration, periods int) time.Time {
	if period <= 0 {
		period = DefaultPeriod
	}
	return t.Add(time.Duration(periods) * period)
}
