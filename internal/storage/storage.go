package storage

import (
	"context"
	"errors"

	"github.com/card-ledger/card_ledger/internal/domain"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("not found")

// Queries is the set of reads and writes the ledger needs. Implementations
// report constraint violations as *pgconn.PgError so callers can classify
// them uniformly.
type Queries interface {
	CurrencyByName(ctx context.Context, name string) (domain.Currency, error)
	TransactionType(ctx context.Context, id string) (domain.TransactionType, error)

	Card(ctx context.Context, id int64) (domain.Card, error)
	CardsByOwner(ctx context.Context, ownerID string) ([]domain.Card, error)
	Cards(ctx context.Context) ([]domain.Card, error)
	InsertCard(ctx context.Context, card domain.Card) (domain.Card, error)
	UpdateCardBalance(ctx context.Context, card domain.Card) error

	InsertTransaction(ctx context.Context, tx domain.Transaction) (domain.Transaction, error)
	TransactionsByCard(ctx context.Context, cardID int64) ([]domain.Transaction, error)
	TransactionsByPurchase(ctx context.Context, purchaseID int64) ([]domain.Transaction, error)

	InsertPurchase(ctx context.Context, p domain.Purchase) (domain.Purchase, error)
	Purchase(ctx context.Context, id int64) (domain.Purchase, error)
	PurchasesByCard(ctx context.Context, cardID int64) ([]domain.Purchase, error)
	Purchases(ctx context.Context) ([]domain.Purchase, error)
}

// Store is a Queries backend that can also run a group of queries as one
// atomic unit. InTx commits when fn returns nil and discards every write
// otherwise. Implementations must serialize concurrent units touching the
// same card.
type Store interface {
	Queries
	InTx(ctx context.Context, fn func(q Queries) error) error
}
