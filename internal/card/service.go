package card

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/card-ledger/card_ledger/internal/apperr"
	"github.com/card-ledger/card_ledger/internal/classify"
	"github.com/card-ledger/card_ledger/internal/domain"
	"github.com/card-ledger/card_ledger/internal/ledger"
	"github.com/card-ledger/card_ledger/internal/storage"
)

// Service exposes card lookups and creation.
type Service struct {
	store    storage.Store
	balancer *ledger.Balancer
	logger   *slog.Logger
}

// NewService builds a card service instance.
func NewService(store storage.Store, balancer *ledger.Balancer, logger *slog.Logger) *Service {
	return &Service{store: store, balancer: balancer, logger: logger}
}

// CreateInput captures data required to create a card.
type CreateInput struct {
	OwnerID  string
	Currency string
}

// Create provisions a zero-balance card in an existing currency.
func (s *Service) Create(ctx context.Context, input CreateInput) (domain.Card, error) {
	if strings.TrimSpace(input.OwnerID) == "" {
		return domain.Card{}, apperr.MandatoryField("userId")
	}
	if strings.TrimSpace(input.Currency) == "" {
		return domain.Card{}, apperr.MandatoryField("currency")
	}

	var created domain.Card
	err := s.store.InTx(ctx, func(q storage.Queries) error {
		cur, err := LookupCurrency(ctx, q, input.Currency)
		if err != nil {
			return err
		}
		created, err = q.InsertCard(ctx, domain.Card{
			OwnerID:       input.OwnerID,
			Currency:      cur,
			Balance:       decimal.Zero,
			LastUpdated:   s.balancer.Now(),
			LastUpdatedBy: s.balancer.Settings().UpdatedBy,
		})
		return err
	})
	if err != nil {
		de := classify.Classify(err)
		s.logger.Warn("card create failed", "owner_id", input.OwnerID, "kind", de.Kind, "error", de.Message)
		return domain.Card{}, de
	}

	s.logger.Info("card created", "card_id", created.ID, "owner_id", created.OwnerID, "currency", created.Currency.Name)
	return created, nil
}

// Find returns the card with the given id.
func (s *Service) Find(ctx context.Context, rawID string) (domain.Card, error) {
	id, err := ParseID(rawID)
	if err != nil {
		return domain.Card{}, err
	}
	return Lookup(ctx, s.store, id)
}

// FindByOwner returns every card owned by ownerID, ordered by id.
func (s *Service) FindByOwner(ctx context.Context, ownerID string) ([]domain.Card, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, apperr.MandatoryField("userId")
	}
	cards, err := s.store.CardsByOwner(ctx, ownerID)
	if err != nil {
		return nil, classify.Err(err)
	}
	return cards, nil
}

// List returns every card, ordered by id.
func (s *Service) List(ctx context.Context) ([]domain.Card, error) {
	cards, err := s.store.Cards(ctx)
	if err != nil {
		return nil, classify.Err(err)
	}
	return cards, nil
}

// ParseID converts a path or body card id. Anything that is not a positive
// integer cannot name a card.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.NotFound(apperr.MsgNoCard, raw)
	}
	return id, nil
}

// Lookup loads a card, mapping a missing row to ReferenceNotFound.
func Lookup(ctx context.Context, q storage.Queries, id int64) (domain.Card, error) {
	c, err := q.Card(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.Card{}, apperr.NotFound(apperr.MsgNoCard, strconv.FormatInt(id, 10))
	}
	if err != nil {
		return domain.Card{}, classify.Err(err)
	}
	return c, nil
}

// LookupCurrency resolves a currency by name, mapping a missing row to
// ReferenceNotFound.
func LookupCurrency(ctx context.Context, q storage.Queries, name string) (domain.Currency, error) {
	cur, err := q.CurrencyByName(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.Currency{}, apperr.NotFound(apperr.MsgNoCurrency, name)
	}
	if err != nil {
		return domain.Currency{}, classify.Err(err)
	}
	return cur, nil
}
