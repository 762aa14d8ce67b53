// Package purchase records purchases and splits them into scheduled
// installment debits.
package purchase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/card-ledger/card_ledger/internal/apperr"
	"github.com/card-ledger/card_ledger/internal/card"
	"github.com/card-ledger/card_ledger/internal/classify"
	"github.com/card-ledger/card_ledger/internal/domain"
	"github.com/card-ledger/card_ledger/internal/guard"
	"github.com/card-ledger/card_ledger/internal/ledger"
	"github.com/card-ledger/card_ledger/internal/storage"
	"github.com/card-ledger/card_ledger/internal/transaction"
)

// Scheduler creates purchases. The purchase row, every installment and the
// first installment's balance change commit together or not at all.
type Scheduler struct {
	store    storage.Store
	factory  *transaction.Factory
	balancer *ledger.Balancer
	logger   *slog.Logger
}

// NewScheduler wires a scheduler around the transaction factory.
func NewScheduler(store storage.Store, factory *transaction.Factory, balancer *ledger.Balancer, logger *slog.Logger) *Scheduler {
	return &Scheduler{store: store, factory: factory, balancer: balancer, logger: logger}
}

// CreateInput is a purchase request. Description is optional.
type CreateInput struct {
	GlobalID    string
	ShopID      string
	Currency    string
	CardID      string
	Amount      string
	Description string
}

func (in CreateInput) validate() error {
	for _, f := range []struct{ name, value string }{
		{"globalId", in.GlobalID},
		{"shopId", in.ShopID},
		{"currency", in.Currency},
		{"cardId", in.CardID},
		{"amount", in.Amount},
	} {
		if strings.TrimSpace(f.value) == "" {
			return apperr.MandatoryField(f.name)
		}
	}
	return nil
}

// InstallmentID is the globalId of installment i of a purchase.
func InstallmentID(purchaseGlobalID string, i int) string {
	return fmt.Sprintf("%s_%d", purchaseGlobalID, i)
}

// Create records the purchase and its installments. Installment 0 is
// submitted now; the rest are due one schedule period after the previous
// one and leave the balance alone.
func (s *Scheduler) Create(ctx context.Context, in CreateInput) (domain.Purchase, error) {
	if err := in.validate(); err != nil {
		return domain.Purchase{}, err
	}
	cardID, err := card.ParseID(in.CardID)
	if err != nil {
		return domain.Purchase{}, err
	}
	settings := s.balancer.Settings()
	if err := settings.Validate(); err != nil {
		s.logger.Error("purchase create failed", "global_id", in.GlobalID, "error", err)
		return domain.Purchase{}, apperr.Wrap(apperr.KindUnclassified, "ledger settings are invalid", err)
	}

	var created domain.Purchase
	err = s.store.InTx(ctx, func(q storage.Queries) error {
		cur, err := card.LookupCurrency(ctx, q, in.Currency)
		if err != nil {
			return err
		}
		c, err := card.Lookup(ctx, q, cardID)
		if err != nil {
			return err
		}
		if err := guard.AssertTrue(cur.ID == c.Currency.ID,
			fmt.Sprintf(apperr.MsgPurchaseCurrency, cur.Name, c.Currency.Name), http.StatusBadRequest); err != nil {
			return err
		}
		amount, err := ledger.ParseAmount(in.Amount)
		if err != nil {
			return err
		}
		if err := guard.Require(!amount.IsNegative(), apperr.Validation(apperr.MsgNegativeAmount)); err != nil {
			return err
		}
		if _, err := q.TransactionType(ctx, settings.DebitTypeID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return apperr.NotFound(apperr.MsgNoTransactionType, settings.DebitTypeID)
			}
			return err
		}

		now := s.balancer.Now()
		p, err := q.InsertPurchase(ctx, domain.Purchase{
			GlobalID:      in.GlobalID,
			ShopID:        in.ShopID,
			Amount:        amount,
			CurrencyID:    cur.ID,
			CardID:        c.ID,
			Description:   in.Description,
			LastUpdated:   now,
			LastUpdatedBy: settings.UpdatedBy,
		})
		if err != nil {
			return err
		}

		part := ledger.Split(amount, settings.InstallmentCount).String()
		due := now
		txs := make([]domain.Transaction, 0, settings.InstallmentCount)
		for i := 0; i < settings.InstallmentCount; i++ {
			if i > 0 {
				due = guard.Advance(due, settings.SchedulePeriod, 1)
			}
			tx, err := s.factory.CreateForPurchase(ctx, q, transaction.Params{
				GlobalID:    InstallmentID(in.GlobalID, i),
				Currency:    cur,
				Card:        c,
				TypeID:      settings.DebitTypeID,
				Amount:      part,
				PurchaseID:  &p.ID,
				Submitted:   i == 0,
				DueDate:     due,
				Description: in.Description,
			})
			if err != nil {
				return err
			}
			txs = append(txs, tx)
		}
		p.Transactions = txs
		created = p
		return nil
	})
	if err != nil {
		de := classify.Classify(err)
		args := []any{"global_id", in.GlobalID, "card_id", cardID, "kind", de.Kind, "error", de.Message}
		if de.Kind == apperr.KindUnclassified {
			s.logger.Error("purchase create failed", args...)
		} else {
			s.logger.Warn("purchase create failed", args...)
		}
		return domain.Purchase{}, de
	}

	s.logger.Info("purchase created",
		"purchase_id", created.ID, "global_id", created.GlobalID, "card_id", created.CardID,
		"installments", len(created.Transactions))
	return created, nil
}

// Get returns one purchase with its installments.
func (s *Scheduler) Get(ctx context.Context, rawID string) (domain.Purchase, error) {
	id, err := parsePurchaseID(rawID)
	if err != nil {
		return domain.Purchase{}, err
	}
	p, err := s.store.Purchase(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.Purchase{}, apperr.NotFound(apperr.MsgNoPurchase, rawID)
	}
	if err != nil {
		return domain.Purchase{}, classify.Err(err)
	}
	return p, nil
}

// ListForCard returns the purchases of an existing card, ordered by id.
func (s *Scheduler) ListForCard(ctx context.Context, rawCardID string) ([]domain.Purchase, error) {
	id, err := card.ParseID(rawCardID)
	if err != nil {
		return nil, err
	}
	if _, err := card.Lookup(ctx, s.store, id); err != nil {
		return nil, err
	}
	list, err := s.store.PurchasesByCard(ctx, id)
	if err != nil {
		return nil, classify.Err(err)
	}
	return list, nil
}

// List returns every purchase, ordered by id.
func (s *Scheduler) List(ctx context.Context) ([]domain.Purchase, error) {
	list, err := s.store.Purchases(ctx)
	if err != nil {
		return nil, classify.Err(err)
	}
	return list, nil
}

func parsePurchaseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.NotFound(apperr.MsgNoPurchase, raw)
	}
	return id, nil
}
