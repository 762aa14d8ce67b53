// Package ledger is the single path through which a card balance changes.
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/card-ledger/card_ledger/internal/apperr"
	"github.com/card-ledger/card_ledger/internal/domain"
	"github.com/card-ledger/card_ledger/internal/guard"
	"github.com/card-ledger/card_ledger/internal/storage"
)

// Settings carries the ledger configuration threaded into every component.
type Settings struct {
	CreditTypeID     string
	DebitTypeID      string
	InstallmentCount int
	SchedulePeriod   time.Duration
	UpdatedBy        string
}

// DefaultSettings matches the seeded transaction types and a weekly schedule.
func DefaultSettings() Settings {
	return Settings{
		CreditTypeID:     "C",
		DebitTypeID:      "D",
		InstallmentCount: 4,
		SchedulePeriod:   guard.DefaultPeriod,
		UpdatedBy:        "card-ledger",
	}
}

// Amount bounds accepted by ParseAmount.
const (
	MaxAmountScale   = 18
	MaxAmountDigits  = 20
	maxAmountTextLen = 64
)

// Validate reports settings that would make purchase scheduling impossible.
func (s Settings) Validate() error {
	if s.InstallmentCount < 1 {
		return fmt.Errorf("installment count must be at least 1, got %d", s.InstallmentCount)
	}
	if s.CreditTypeID == "" || s.DebitTypeID == "" {
		return fmt.Errorf("credit and debit type ids are required")
	}
	return nil
}

// IsCredit reports whether typeID names the credit type.
func (s Settings) IsCredit(typeID string) bool {
	return strings.EqualFold(typeID, s.CreditTypeID)
}

// SignedDelta turns a magnitude into the balance change for typeID.
func (s Settings) SignedDelta(typeID string, amount decimal.Decimal) decimal.Decimal {
	if s.IsCredit(typeID) {
		return amount.Abs()
	}
	return amount.Abs().Neg()
}

// Balancer applies signed deltas to card balances.
type Balancer struct {
	settings Settings
	now      func() time.Time
}

// NewBalancer builds a balancer stamping audit fields from settings.
func NewBalancer(settings Settings) *Balancer {
	return &Balancer{settings: settings, now: func() time.Time { return time.Now().UTC() }}
}

// WithClock replaces the time source. Tests only.
func (b *Balancer) WithClock(now func() time.Time) *Balancer {
	b.now = now
	return b
}

// Now returns the balancer's current time.
func (b *Balancer) Now() time.Time {
	return b.now()
}

// Settings returns the configuration the balancer was built with.
func (b *Balancer) Settings() Settings {
	return b.settings
}

// ApplyDelta adds delta to the card balance and persists it through q. It
// must be called inside a unit of work. A debit that would make the balance
// negative fails with InsufficientFunds, quoting rawAmount as the client sent
// it, and writes nothing.
func (b *Balancer) ApplyDelta(ctx context.Context, q storage.Queries, card domain.Card, delta decimal.Decimal, rawAmount string) (domain.Card, error) {
	next := card.Balance.Add(delta)
	if next.IsNegative() {
		if rawAmount == "" {
			rawAmount = delta.Abs().String()
		}
		return card, apperr.InsufficientFunds(card.ID, rawAmount)
	}

	card.Balance = next
	card.LastUpdated = b.now()
	card.LastUpdatedBy = b.settings.UpdatedBy
	if err := q.UpdateCardBalance(ctx, card); err != nil {
		return card, err
	}
	return card, nil
}

// ParseAmount parses a textual amount, failing with NumberFormatMismatch.
// Amounts with more than MaxAmountScale fractional digits or more than
// MaxAmountDigits integer digits are rejected the same way.
func ParseAmount(raw string) (decimal.Decimal, error) {
	text := strings.TrimSpace(raw)
	if len(text) > maxAmountTextLen {
		return decimal.Decimal{}, apperr.NumberFormat(raw)
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Decimal{}, apperr.NumberFormat(raw)
	}
	exp := int64(d.Exponent())
	if exp < -MaxAmountScale {
		return decimal.Decimal{}, apperr.NumberFormat(raw)
	}
	if int64(d.NumDigits())+exp > MaxAmountDigits {
		return decimal.Decimal{}, apperr.NumberFormat(raw)
	}
	return d, nil
}

// Split divides amount into count equal parts, rounding half up at the
// amount's own scale. A count below one leaves amount whole.
func Split(amount decimal.Decimal, count int) decimal.Decimal {
	if count < 1 {
		count = 1
	}
	scale := -amount.Exponent()
	if scale < 0 {
		scale = 0
	}
	return amount.DivRound(decimal.NewFromInt(int64(count)), scale)
}
