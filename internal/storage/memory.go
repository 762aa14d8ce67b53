package storage

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/card-ledger/card_ledger/internal/domain"
)

// MemoryStore keeps the ledger in process. InTx holds an exclusive lock for
// the whole unit and works on a copy of the data, so concurrent units are
// serialized and a failed unit leaves nothing behind.
type MemoryStore struct {
	mu   sync.RWMutex
	data *memData
}

// NewMemoryStore creates a store seeded with the same reference data as the
// SQL migrations.
func NewMemoryStore() *MemoryStore {
	d := newMemData()
	for _, name := range []string{"GBP", "EUR", "USD"} {
		d.nextCurrency++
		d.currencies[d.nextCurrency] = domain.Currency{ID: d.nextCurrency, Name: name, LastUpdatedBy: "migration"}
	}
	d.types["C"] = domain.TransactionType{ID: "C", Description: "credit"}
	d.types["D"] = domain.TransactionType{ID: "D", Description: "debit"}
	return &MemoryStore{data: d}
}

func (s *MemoryStore) InTx(ctx context.Context, fn func(q Queries) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	if err := fn(work); err != nil {
		return err
	}
	s.data = work
	return nil
}

func (s *MemoryStore) CurrencyByName(ctx context.Context, name string) (domain.Currency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.CurrencyByName(ctx, name)
}

func (s *MemoryStore) TransactionType(ctx context.Context, id string) (domain.TransactionType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.TransactionType(ctx, id)
}

func (s *MemoryStore) Card(ctx context.Context, id int64) (domain.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Card(ctx, id)
}

func (s *MemoryStore) CardsByOwner(ctx context.Context, ownerID string) ([]domain.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.CardsByOwner(ctx, ownerID)
}

func (s *MemoryStore) Cards(ctx context.Context) ([]domain.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Cards(ctx)
}

func (s *MemoryStore) InsertCard(ctx context.Context, card domain.Card) (domain.Card, error) {
	var out domain.Card
	err := s.InTx(ctx, func(q Queries) error {
		var err error
		out, err = q.InsertCard(ctx, card)
		return err
	})
	return out, err
}

func (s *MemoryStore) UpdateCardBalance(ctx context.Context, card domain.Card) error {
	return s.InTx(ctx, func(q Queries) error {
		return q.UpdateCardBalance(ctx, card)
	})
}

func (s *MemoryStore) InsertTransaction(ctx context.Context, tx domain.Transaction) (domain.Transaction, error) {
	var out domain.Transaction
	err := s.InTx(ctx, func(q Queries) error {
		var err error
		out, err = q.InsertTransaction(ctx, tx)
		return err
	})
	return out, err
}

func (s *MemoryStore) TransactionsByCard(ctx context.Context, cardID int64) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.TransactionsByCard(ctx, cardID)
}

func (s *MemoryStore) TransactionsByPurchase(ctx context.Context, purchaseID int64) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.TransactionsByPurchase(ctx, purchaseID)
}

func (s *MemoryStore) InsertPurchase(ctx context.Context, p domain.Purchase) (domain.Purchase, error) {
	var out domain.Purchase
	err := s.InTx(ctx, func(q Queries) error {
		var err error
		out, err = q.InsertPurchase(ctx, p)
		return err
	})
	return out, err
}

func (s *MemoryStore) Purchase(ctx context.Context, id int64) (domain.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Purchase(ctx, id)
}

func (s *MemoryStore) PurchasesByCard(ctx context.Context, cardID int64) ([]domain.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.PurchasesByCard(ctx, cardID)
}

func (s *MemoryStore) Purchases(ctx context.Context) ([]domain.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Purchases(ctx)
}

// memData is the unlocked state; it implements Queries for code already
// holding the store lock.
type memData struct {
	currencies   map[int64]domain.Currency
	types        map[string]domain.TransactionType
	cards        map[int64]domain.Card
	transactions map[int64]domain.Transaction
	purchases    map[int64]domain.Purchase
	txByGlobal   map[string]int64
	purByGlobal  map[string]int64

	nextCurrency int64
	nextCard     int64
	nextTx       int64
	nextPurchase int64
}

func newMemData() *memData {
	return &memData{
		currencies:   make(map[int64]domain.Currency),
		types:        make(map[string]domain.TransactionType),
		cards:        make(map[int64]domain.Card),
		transactions: make(map[int64]domain.Transaction),
		purchases:    make(map[int64]domain.Purchase),
		txByGlobal:   make(map[string]int64),
		purByGlobal:  make(map[string]int64),
	}
}

func (d *memData) clone() *memData {
	c := newMemData()
	for k, v := range d.currencies {
		c.currencies[k] = v
	}
	for k, v := range d.types {
		c.types[k] = v
	}
	for k, v := range d.cards {
		c.cards[k] = v
	}
	for k, v := range d.transactions {
		c.transactions[k] = v
	}
	for k, v := range d.purchases {
		c.purchases[k] = v
	}
	for k, v := range d.txByGlobal {
		c.txByGlobal[k] = v
	}
	for k, v := range d.purByGlobal {
		c.purByGlobal[k] = v
	}
	c.nextCurrency, c.nextCard, c.nextTx, c.nextPurchase = d.nextCurrency, d.nextCard, d.nextTx, d.nextPurchase
	return c
}

func (d *memData) InTx(_ context.Context, fn func(q Queries) error) error {
	return fn(d)
}

func (d *memData) CurrencyByName(_ context.Context, name string) (domain.Currency, error) {
	for _, c := range d.currencies {
		if c.Name == name {
			return c, nil
		}
	}
	return domain.Currency{}, ErrNotFound
}

func (d *memData) TransactionType(_ context.Context, id string) (domain.TransactionType, error) {
	t, ok := d.types[id]
	if !ok {
		return domain.TransactionType{}, ErrNotFound
	}
	return t, nil
}

func (d *memData) Card(_ context.Context, id int64) (domain.Card, error) {
	card, ok := d.cards[id]
	if !ok {
		return domain.Card{}, ErrNotFound
	}
	card.Currency = d.currencies[card.Currency.ID]
	return card, nil
}

func (d *memData) CardsByOwner(ctx context.Context, ownerID string) ([]domain.Card, error) {
	all, _ := d.Cards(ctx)
	out := make([]domain.Card, 0, len(all))
	for _, c := range all {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (d *memData) Cards(_ context.Context) ([]domain.Card, error) {
	out := make([]domain.Card, 0, len(d.cards))
	for _, c := range d.cards {
		c.Currency = d.currencies[c.Currency.ID]
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (d *memData) InsertCard(_ context.Context, card domain.Card) (domain.Card, error) {
	if _, ok := d.currencies[card.Currency.ID]; !ok {
		return domain.Card{}, fkViolation("card", "card_currency_id_fkey", "currency_id", card.Currency.ID, "currency")
	}
	d.nextCard++
	card.ID = d.nextCard
	card.Currency = d.currencies[card.Currency.ID]
	d.cards[card.ID] = card
	return card, nil
}

func (d *memData) UpdateCardBalance(_ context.Context, card domain.Card) error {
	stored, ok := d.cards[card.ID]
	if !ok {
		return ErrNotFound
	}
	if card.Balance.IsNegative() {
		return &pgconn.PgError{
			Code:           "23514",
			Message:        `new row for relation "card" violates check constraint "card_balance_non_negative"`,
			ConstraintName: "card_balance_non_negative",
		}
	}
	stored.Balance = card.Balance
	stored.LastUpdated = card.LastUpdated
	stored.LastUpdatedBy = card.LastUpdatedBy
	d.cards[card.ID] = stored
	return nil
}

func (d *memData) InsertTransaction(_ context.Context, tx domain.Transaction) (domain.Transaction, error) {
	if _, dup := d.txByGlobal[tx.GlobalID]; dup {
		return domain.Transaction{}, uniqueViolation("transaction_global_id_key", "global_id", tx.GlobalID)
	}
	// Postgres fires FK triggers in name order.
	if _, ok := d.cards[tx.CardID]; !ok {
		return domain.Transaction{}, fkViolation("transaction", "transaction_card_id_fkey", "card_id", tx.CardID, "card")
	}
	if _, ok := d.currencies[tx.CurrencyID]; !ok {
		return domain.Transaction{}, fkViolation("transaction", "transaction_currency_id_fkey", "currency_id", tx.CurrencyID, "currency")
	}
	if tx.PurchaseID != nil {
		if _, ok := d.purchases[*tx.PurchaseID]; !ok {
			return domain.Transaction{}, fkViolation("transaction", "transaction_purchase_id_fkey", "purchase_id", *tx.PurchaseID, "purchase")
		}
	}
	if _, ok := d.types[tx.TypeID]; !ok {
		return domain.Transaction{}, fkViolation("transaction", "transaction_type_id_fkey", "type_id", tx.TypeID, "transaction_type")
	}
	d.nextTx++
	tx.ID = d.nextTx
	d.transactions[tx.ID] = tx
	d.txByGlobal[tx.GlobalID] = tx.ID
	return tx, nil
}

func (d *memData) TransactionsByCard(_ context.Context, cardID int64) ([]domain.Transaction, error) {
	return d.filterTransactions(func(t domain.Transaction) bool { return t.CardID == cardID }), nil
}

func (d *memData) TransactionsByPurchase(_ context.Context, purchaseID int64) ([]domain.Transaction, error) {
	return d.filterTransactions(func(t domain.Transaction) bool {
		return t.PurchaseID != nil && *t.PurchaseID == purchaseID
	}), nil
}

func (d *memData) filterTransactions(keep func(domain.Transaction) bool) []domain.Transaction {
	out := make([]domain.Transaction, 0)
	for _, t := range d.transactions {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (d *memData) InsertPurchase(_ context.Context, p domain.Purchase) (domain.Purchase, error) {
	if _, dup := d.purByGlobal[p.GlobalID]; dup {
		return domain.Purchase{}, uniqueViolation("purchase_global_id_key", "global_id", p.GlobalID)
	}
	if _, ok := d.cards[p.CardID]; !ok {
		return domain.Purchase{}, fkViolation("purchase", "purchase_card_id_fkey", "card_id", p.CardID, "card")
	}
	if _, ok := d.currencies[p.CurrencyID]; !ok {
		return domain.Purchase{}, fkViolation("purchase", "purchase_currency_id_fkey", "currency_id", p.CurrencyID, "currency")
	}
	d.nextPurchase++
	p.ID = d.nextPurchase
	p.Transactions = nil
	d.purchases[p.ID] = p
	d.purByGlobal[p.GlobalID] = p.ID
	return p, nil
}

func (d *memData) Purchase(ctx context.Context, id int64) (domain.Purchase, error) {
	p, ok := d.purchases[id]
	if !ok {
		return domain.Purchase{}, ErrNotFound
	}
	p.Transactions, _ = d.TransactionsByPurchase(ctx, id)
	return p, nil
}

func (d *memData) PurchasesByCard(ctx context.Context, cardID int64) ([]domain.Purchase, error) {
	all, _ := d.Purchases(ctx)
	out := make([]domain.Purchase, 0, len(all))
	for _, p := range all {
		if p.CardID == cardID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (d *memData) Purchases(ctx context.Context) ([]domain.Purchase, error) {
	out := make([]domain.Purchase, 0, len(d.purchases))
	for _, p := range d.purchases {
		p.Transactions, _ = d.TransactionsByPurchase(ctx, p.ID)
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func uniqueViolation(constraint, column, value string) *pgconn.PgError {
	return &pgconn.PgError{
		Code:           "23505",
		Message:        fmt.Sprintf("duplicate key value violates unique constraint %q", constraint),
		Detail:         fmt.Sprintf("Key (%s)=(%s) already exists.", column, value),
		ConstraintName: constraint,
	}
}

func fkViolation[T int64 | string](table, constraint, column string, value T, refTable string) *pgconn.PgError {
	var v string
	switch x := any(value).(type) {
	case int64:
		v = strconv.FormatInt(x, 10)
	case string:
		v = x
	}
	return &pgconn.PgError{
		Code:           "23503",
		Message:        fmt.Sprintf("insert or update on table %q violates foreign key constraint %q", table, constraint),
		Detail:         fmt.Sprintf("Key (%s)=(%s) is not present in table %q.", column, v, refTable),
		ConstraintName: constraint,
		TableName:      table,
	}
}
