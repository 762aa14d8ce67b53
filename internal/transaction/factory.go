// Package transaction creates single ledger entries and the balance change
// that goes with them.
package transaction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/card-ledger/card_ledger/internal/apperr"
	"github.com/card-ledger/card_ledger/internal/card"
	"github.com/card-ledger/card_ledger/internal/classify"
	"github.com/card-ledger/card_ledger/internal/domain"
	"github.com/card-ledger/card_ledger/internal/guard"
	"github.com/card-ledger/card_ledger/internal/ledger"
	"github.com/card-ledger/card_ledger/internal/storage"
)

// Factory builds transactions. Standalone creates run in their own unit of
// work; purchase installments run inside the caller's.
type Factory struct {
	store    storage.Store
	balancer *ledger.Balancer
	logger   *slog.Logger
}

// NewFactory wires a factory.
func NewFactory(store storage.Store, balancer *ledger.Balancer, logger *slog.Logger) *Factory {
	return &Factory{store: store, balancer: balancer, logger: logger}
}

// CreateInput is a standalone transaction request. Every field except
// Description is mandatory.
type CreateInput struct {
	GlobalID    string
	Currency    string
	CardID      string
	TypeID      string
	Amount      string
	Description string
}

func (in CreateInput) validate() error {
	for _, f := range []struct{ name, value string }{
		{"globalId", in.GlobalID},
		{"currency", in.Currency},
		{"cardId", in.CardID},
		{"transactionTypeId", in.TypeID},
		{"amount", in.Amount},
	} {
		if strings.TrimSpace(f.value) == "" {
			return apperr.MandatoryField(f.name)
		}
	}
	return nil
}

// Params describes one transaction against an already resolved card.
type Params struct {
	GlobalID    string
	Currency    domain.Currency
	Card        domain.Card
	TypeID      string
	Amount      string
	PurchaseID  *int64
	Submitted   bool
	DueDate     time.Time
	Description string
}

// Create records a submitted transaction and applies it to the card balance
// atomically.
func (f *Factory) Create(ctx context.Context, in CreateInput) (domain.Transaction, error) {
	if err := in.validate(); err != nil {
		return domain.Transaction{}, err
	}
	cardID, err := card.ParseID(in.CardID)
	if err != nil {
		return domain.Transaction{}, err
	}

	var created domain.Transaction
	err = f.store.InTx(ctx, func(q storage.Queries) error {
		cur, err := card.LookupCurrency(ctx, q, in.Currency)
		if err != nil {
			return err
		}
		c, err := card.Lookup(ctx, q, cardID)
		if err != nil {
			return err
		}
		typeID, err := f.resolveType(ctx, q, in.TypeID)
		if err != nil {
			return err
		}
		created, err = f.CreateForPurchase(ctx, q, Params{
			GlobalID:    in.GlobalID,
			Currency:    cur,
			Card:        c,
			TypeID:      typeID,
			Amount:      in.Amount,
			Submitted:   true,
			DueDate:     f.balancer.Now(),
			Description: in.Description,
		})
		return err
	})
	if err != nil {
		de := classify.Classify(err)
		f.log(de, "transaction create failed", "global_id", in.GlobalID, "card_id", cardID)
		return domain.Transaction{}, de
	}

	f.logger.Info("transaction created",
		"transaction_id", created.ID, "global_id", created.GlobalID, "card_id", created.CardID, "type", created.TypeID)
	return created, nil
}

// CreateForPurchase validates and persists one transaction through q. The
// balance changes only when p.Submitted is set. Errors are returned
// unclassified so the enclosing unit can abort as a whole.
func (f *Factory) CreateForPurchase(ctx context.Context, q storage.Queries, p Params) (domain.Transaction, error) {
	if err := guard.AssertTrue(p.Currency.ID == p.Card.Currency.ID,
		fmt.Sprintf(apperr.MsgTxCurrencyMismatch, p.Currency.Name, p.Card.Currency.Name), http.StatusBadRequest); err != nil {
		return domain.Transaction{}, err
	}
	amount, err := ledger.ParseAmount(p.Amount)
	if err != nil {
		return domain.Transaction{}, err
	}

	settings := f.balancer.Settings()
	if p.Submitted {
		if _, err := f.balancer.ApplyDelta(ctx, q, p.Card, settings.SignedDelta(p.TypeID, amount), strings.TrimSpace(p.Amount)); err != nil {
			return domain.Transaction{}, err
		}
	}

	return q.InsertTransaction(ctx, domain.Transaction{
		GlobalID:      p.GlobalID,
		TypeID:        p.TypeID,
		Amount:        amount.Abs(),
		CurrencyID:    p.Currency.ID,
		CardID:        p.Card.ID,
		PurchaseID:    p.PurchaseID,
		Submitted:     p.Submitted,
		DueDate:       p.DueDate,
		Description:   p.Description,
		LastUpdated:   f.balancer.Now(),
		LastUpdatedBy: settings.UpdatedBy,
	})
}

// ListForCard returns the transactions of an existing card, ordered by id.
func (f *Factory) ListForCard(ctx context.Context, rawCardID string) ([]domain.Transaction, error) {
	id, err := card.ParseID(rawCardID)
	if err != nil {
		return nil, err
	}
	if _, err := card.Lookup(ctx, f.store, id); err != nil {
		return nil, err
	}
	txs, err := f.store.TransactionsByCard(ctx, id)
	if err != nil {
		return nil, classify.Err(err)
	}
	return txs, nil
}

// resolveType returns the stored id of the named type.
func (f *Factory) resolveType(ctx context.Context, q storage.Queries, raw string) (string, error) {
	t, err := q.TransactionType(ctx, raw)
	if errors.Is(err, storage.ErrNotFound) {
		return "", apperr.NotFound(apperr.MsgNoTransactionType, raw)
	}
	if err != nil {
		return "", err
	}
	return t.ID, nil
}

func (f *Factory) log(de *apperr.Error, msg string, args ...any) {
	args = append(args, "kind", de.Kind, "error", de.Message)
	if de.Kind == apperr.KindUnclassified {
		f.logger.Error(msg, args...)
		return
	}
	f.logger.Warn(msg, args...)
}
