package storage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/card-ledger/card_ledger/internal/domain"
)

// SeedCard is a test helper that inserts a card in the named currency with
// the given starting balance.
func SeedCard(ctx context.Context, s Store, ownerID, currency, balance string) (domain.Card, error) {
	var card domain.Card
	err := s.InTx(ctx, func(q Queries) error {
		cur, err := q.CurrencyByName(ctx, currency)
		if err != nil {
			return err
		}
		card, err = q.InsertCard(ctx, domain.Card{
			OwnerID:       ownerID,
			Currency:      cur,
			Balance:       decimal.Zero,
			LastUpdated:   time.Now().UTC(),
			LastUpdatedBy: "seed",
		})
		if err != nil {
			return err
		}
		return seedBalance(ctx, q, &card, balance)
	})
	return card, err
}

// SeedBalance is a test helper that overwrites the balance of a card,
// bypassing the ledger.
func SeedBalance(ctx context.Context, s Store, cardID int64, balance string) error {
	return s.InTx(ctx, func(q Queries) error {
		card, err := q.Card(ctx, cardID)
		if err != nil {
			return err
		}
		return seedBalance(ctx, q, &card, balance)
	})
}

func seedBalance(ctx context.Context, q Queries, card *domain.Card, balance string) error {
	b, err := decimal.NewFromString(balance)
	if err != nil {
		return err
	}
	card.Balance = b
	return q.UpdateCardBalance(ctx, *card)
}
