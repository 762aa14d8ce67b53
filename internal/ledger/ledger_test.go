package ledger

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/card-ledger/card_ledger/internal/apperr"
	"github.com/card-ledger/card_ledger/internal/storage"
)

func TestApplyDeltaCreditAndDebit(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	card, err := storage.SeedCard(ctx, store, "owner-1", "GBP", "100")
	require.NoError(t, err)

	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	b := NewBalancer(DefaultSettings()).WithClock(func() time.Time { return fixed })

	err = store.InTx(ctx, func(q storage.Queries) error {
		c, err := q.Card(ctx, card.ID)
		if err != nil {
			return err
		}
		c, err = b.ApplyDelta(ctx, q, c, decimal.NewFromInt(50), "")
		if err != nil {
			return err
		}
		_, err = b.ApplyDelta(ctx, q, c, decimal.NewFromInt(-150), "")
		return err
	})
	require.NoError(t, err)

	got, err := store.Card(ctx, card.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.IsZero(), "balance %s", got.Balance)
	assert.Equal(t, fixed, got.LastUpdated)
	assert.Equal(t, "card-ledger", got.LastUpdatedBy)
}

func TestApplyDeltaRejectsOverdraft(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	card, err := storage.SeedCard(ctx, store, "owner-1", "GBP", "100")
	require.NoError(t, err)

	b := NewBalancer(DefaultSettings())
	err = store.InTx(ctx, func(q storage.Queries) error {
		_, err := b.ApplyDelta(ctx, q, card, decimal.NewFromInt(-150), "")
		return err
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrInsufficientFunds))
	assert.Equal(t, "Card 1 has not enough funds to perform debit transaction with amount 150", err.Error())

	err = store.InTx(ctx, func(q storage.Queries) error {
		_, err := b.ApplyDelta(ctx, q, card, decimal.RequireFromString("-150.00"), "150.00")
		return err
	})
	assert.Equal(t, "Card 1 has not enough funds to perform debit transaction with amount 150.00", err.Error())

	got, err := store.Card(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, "100", got.Balance.String())
}

func TestSignedDelta(t *testing.T) {
	s := DefaultSettings()
	ten := decimal.NewFromInt(10)

	assert.Equal(t, "10", s.SignedDelta("C", ten).String())
	assert.Equal(t, "10", s.SignedDelta("c", ten.Neg()).String())
	assert.Equal(t, "-10", s.SignedDelta("D", ten).String())
	assert.Equal(t, "-10", s.SignedDelta("D", ten.Neg()).String())
	assert.False(t, s.IsCredit("D"))
}

func TestParseAmount(t *testing.T) {
	d, err := ParseAmount(" 12.50 ")
	require.NoError(t, err)
	assert.Equal(t, "12.5", d.String())

	_, err = ParseAmount("12,5")
	require.Error(t, err)
	assert.Equal(t, apperr.KindNumberFormat, apperr.KindOf(err))
	assert.Equal(t, "'12,5' should be a number", err.Error())

	d, err = ParseAmount("0.000000000000000001")
	require.NoError(t, err)
	assert.Equal(t, "0.000000000000000001", d.String())

	_, err = ParseAmount("99999999999999999999.5")
	require.NoError(t, err)
}

func TestParseAmountRejectsOutOfRange(t *testing.T) {
	for _, raw := range []string{
		"1e-50000000",
		"1e50000000",
		"0e99999999",
		"0.0000000000000000001",
		"100000000000000000000",
		"1" + strings.Repeat("0", 70),
	} {
		_, err := ParseAmount(raw)
		require.Error(t, err, raw)
		assert.Equal(t, apperr.KindNumberFormat, apperr.KindOf(err), raw)
	}
}

func TestSettingsValidate(t *testing.T) {
	require.NoError(t, DefaultSettings().Validate())

	s := DefaultSettings()
	s.InstallmentCount = 0
	assert.Error(t, s.Validate())

	s = DefaultSettings()
	s.DebitTypeID = ""
	assert.Error(t, s.Validate())
}

func TestSplitRoundsHalfUpAtAmountScale(t *testing.T) {
	cases := map[string]string{
		"100":   "25",
		"10":    "3",
		"10.50": "2.63",
		"0.01":  "0",
		"99.99": "25",
	}
	for in, want := range cases {
		got := Split(decimal.RequireFromString(in), 4)
		assert.Equal(t, want, got.String(), in)
	}
	assert.Equal(t, "10", Split(decimal.NewFromInt(10), 0).String())
}
