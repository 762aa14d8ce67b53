package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/card-ledger/card_ledger/internal/domain"
)

func TestMemoryStoreSeedsReferenceData(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	gbp, err := s.CurrencyByName(ctx, "GBP")
	require.NoError(t, err)
	assert.Equal(t, "GBP", gbp.Name)

	_, err = s.CurrencyByName(ctx, "JPY")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.TransactionType(ctx, "C")
	require.NoError(t, err)
	_, err = s.TransactionType(ctx, "X")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreInTxRollsBackOnError(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	card, err := SeedCard(ctx, s, "owner-1", "GBP", "50")
	require.NoError(t, err)

	boom := errors.New("boom")
	err = s.InTx(ctx, func(q Queries) error {
		c, err := q.Card(ctx, card.ID)
		require.NoError(t, err)
		c.Balance = decimal.NewFromInt(10)
		require.NoError(t, q.UpdateCardBalance(ctx, c))
		_, err = q.InsertTransaction(ctx, domain.Transaction{
			GlobalID: "g-1", TypeID: "D", Amount: decimal.NewFromInt(40),
			CurrencyID: c.Currency.ID, CardID: c.ID, Submitted: true, DueDate: time.Now(),
		})
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Card(ctx, card.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(50)), "balance %s", got.Balance)

	txs, err := s.TransactionsByCard(ctx, card.ID)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestMemoryStoreConstraintErrors(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	card, err := SeedCard(ctx, s, "owner-1", "GBP", "0")
	require.NoError(t, err)

	base := domain.Transaction{
		GlobalID: "dup", TypeID: "C", Amount: decimal.NewFromInt(1),
		CurrencyID: card.Currency.ID, CardID: card.ID, Submitted: true, DueDate: time.Now(),
	}
	_, err = s.InsertTransaction(ctx, base)
	require.NoError(t, err)

	var pgErr *pgconn.PgError

	_, err = s.InsertTransaction(ctx, base)
	require.ErrorAs(t, err, &pgErr)
	assert.Equal(t, "23505", pgErr.Code)
	assert.Contains(t, pgErr.Message, `"transaction_global_id_key"`)
	assert.Equal(t, "Key (global_id)=(dup) already exists.", pgErr.Detail)

	missingType := base
	missingType.GlobalID = "t-2"
	missingType.TypeID = "Z"
	_, err = s.InsertTransaction(ctx, missingType)
	require.ErrorAs(t, err, &pgErr)
	assert.Equal(t, "23503", pgErr.Code)
	assert.Contains(t, pgErr.Message, `"transaction_type_id_fkey"`)

	missingCard := base
	missingCard.GlobalID = "t-3"
	missingCard.CardID = 999
	_, err = s.InsertTransaction(ctx, missingCard)
	require.ErrorAs(t, err, &pgErr)
	assert.Contains(t, pgErr.Message, `"transaction_card_id_fkey"`)
	assert.Equal(t, `Key (card_id)=(999) is not present in table "card".`, pgErr.Detail)

	_, err = s.InsertCard(ctx, domain.Card{OwnerID: "x", Currency: domain.Currency{ID: 42}})
	require.ErrorAs(t, err, &pgErr)
	assert.Contains(t, pgErr.Message, `"card_currency_id_fkey"`)

	p := domain.Purchase{GlobalID: "p-1", ShopID: "s", Amount: decimal.NewFromInt(4), CurrencyID: card.Currency.ID, CardID: card.ID}
	_, err = s.InsertPurchase(ctx, p)
	require.NoError(t, err)
	_, err = s.InsertPurchase(ctx, p)
	require.ErrorAs(t, err, &pgErr)
	assert.Contains(t, pgErr.Message, `"purchase_global_id_key"`)
}

func TestMemoryStoreListsAreOrderedAndAttached(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	a, err := SeedCard(ctx, s, "owner-1", "GBP", "0")
	require.NoError(t, err)
	b, err := SeedCard(ctx, s, "owner-2", "EUR", "0")
	require.NoError(t, err)
	c, err := SeedCard(ctx, s, "owner-1", "USD", "0")
	require.NoError(t, err)

	cards, err := s.Cards(ctx)
	require.NoError(t, err)
	require.Len(t, cards, 3)
	assert.Equal(t, []int64{a.ID, b.ID, c.ID}, []int64{cards[0].ID, cards[1].ID, cards[2].ID})
	assert.Equal(t, "EUR", cards[1].Currency.Name)

	mine, err := s.CardsByOwner(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, c.ID, mine[1].ID)

	p, err := s.InsertPurchase(ctx, domain.Purchase{GlobalID: "p", ShopID: "shop", Amount: decimal.NewFromInt(2), CurrencyID: a.Currency.ID, CardID: a.ID})
	require.NoError(t, err)
	for _, gid := range []string{"p_0", "p_1"} {
		_, err := s.InsertTransaction(ctx, domain.Transaction{
			GlobalID: gid, TypeID: "D", Amount: decimal.NewFromInt(1),
			CurrencyID: a.Currency.ID, CardID: a.ID, PurchaseID: &p.ID, DueDate: time.Now(),
		})
		require.NoError(t, err)
	}

	got, err := s.Purchase(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, got.Transactions, 2)
	assert.Equal(t, "p_0", got.Transactions[0].GlobalID)

	byCard, err := s.PurchasesByCard(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, byCard)

	_, err = s.Purchase(ctx, 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreInTxHonoursCancelledContext(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.InTx(ctx, func(Queries) error { called = true; return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
