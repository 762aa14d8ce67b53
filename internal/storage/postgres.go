package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/card-ledger/card_ledger/internal/domain"
)

type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists the ledger in PostgreSQL. Units of work run at
// serializable isolation; a losing writer gets SQLSTATE 40001.
type PostgresStore struct {
	*pgQueries
	db *pgxpool.Pool
}

// NewPostgresStore wraps an existing pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pgQueries: &pgQueries{q: db}, db: db}
}

func (s *PostgresStore) InTx(ctx context.Context, fn func(q Queries) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := fn(&pgQueries{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type pgQueries struct {
	q querier
}

const cardColumns = `c.id, c.owner_id, c.balance::text, c.last_updated, c.last_updated_by,
	cur.id, cur.name, cur.last_updated_by`

const cardFrom = ` FROM card c JOIN currency cur ON cur.id = c.currency_id`

const transactionColumns = `id, global_id, type_id, amount::text, currency_id, card_id, purchase_id,
	submitted, due_date, description, last_updated, last_updated_by`

const purchaseColumns = `id, global_id, shop_id, amount::text, currency_id, card_id, description,
	last_updated, last_updated_by`

func (p *pgQueries) CurrencyByName(ctx context.Context, name string) (domain.Currency, error) {
	var c domain.Currency
	err := p.q.QueryRow(ctx, `SELECT id, name, last_updated_by FROM currency WHERE name = $1`, name).
		Scan(&c.ID, &c.Name, &c.LastUpdatedBy)
	if err != nil {
		return domain.Currency{}, notFound(err)
	}
	return c, nil
}

func (p *pgQueries) TransactionType(ctx context.Context, id string) (domain.TransactionType, error) {
	var t domain.TransactionType
	err := p.q.QueryRow(ctx, `SELECT id, description FROM transaction_type WHERE id = $1`, id).
		Scan(&t.ID, &t.Description)
	if err != nil {
		return domain.TransactionType{}, notFound(err)
	}
	return t, nil
}

func (p *pgQueries) Card(ctx context.Context, id int64) (domain.Card, error) {
	row := p.q.QueryRow(ctx, `SELECT `+cardColumns+cardFrom+` WHERE c.id = $1`, id)
	card, err := scanCard(row)
	if err != nil {
		return domain.Card{}, notFound(err)
	}
	return card, nil
}

func (p *pgQueries) CardsByOwner(ctx context.Context, ownerID string) ([]domain.Card, error) {
	return p.cards(ctx, `SELECT `+cardColumns+cardFrom+` WHERE c.owner_id = $1 ORDER BY c.id`, ownerID)
}

func (p *pgQueries) Cards(ctx context.Context) ([]domain.Card, error) {
	return p.cards(ctx, `SELECT `+cardColumns+cardFrom+` ORDER BY c.id`)
}

func (p *pgQueries) cards(ctx context.Context, query string, args ...any) ([]domain.Card, error) {
	rows, err := p.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query cards: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Card, 0)
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, card)
	}
	return out, rows.Err()
}

func (p *pgQueries) InsertCard(ctx context.Context, card domain.Card) (domain.Card, error) {
	const query = `INSERT INTO card (owner_id, currency_id, balance, last_updated, last_updated_by)
		VALUES ($1, $2, $3::text::numeric, $4, $5) RETURNING id`
	if err := p.q.QueryRow(ctx, query, card.OwnerID, card.Currency.ID, card.Balance.String(), card.LastUpdated, card.LastUpdatedBy).
		Scan(&card.ID); err != nil {
		return domain.Card{}, fmt.Errorf("insert card: %w", err)
	}
	return p.Card(ctx, card.ID)
}

func (p *pgQueries) UpdateCardBalance(ctx context.Context, card domain.Card) error {
	const query = `UPDATE card SET balance = $2::text::numeric, last_updated = $3, last_updated_by = $4 WHERE id = $1`
	tag, err := p.q.Exec(ctx, query, card.ID, card.Balance.String(), card.LastUpdated, card.LastUpdatedBy)
	if err != nil {
		return fmt.Errorf("update card balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *pgQueries) InsertTransaction(ctx context.Context, tx domain.Transaction) (domain.Transaction, error) {
	const query = `INSERT INTO "transaction" (global_id, type_id, amount, currency_id, card_id, purchase_id,
		submitted, due_date, description, last_updated, last_updated_by)
		VALUES ($1, $2, $3::text::numeric, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`
	err := p.q.QueryRow(ctx, query,
		tx.GlobalID, tx.TypeID, tx.Amount.String(), tx.CurrencyID, tx.CardID, tx.PurchaseID,
		tx.Submitted, tx.DueDate, tx.Description, tx.LastUpdated, tx.LastUpdatedBy,
	).Scan(&tx.ID)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return tx, nil
}

func (p *pgQueries) TransactionsByCard(ctx context.Context, cardID int64) ([]domain.Transaction, error) {
	return p.transactions(ctx, `SELECT `+transactionColumns+` FROM "transaction" WHERE card_id = $1 ORDER BY id`, cardID)
}

func (p *pgQueries) TransactionsByPurchase(ctx context.Context, purchaseID int64) ([]domain.Transaction, error) {
	return p.transactions(ctx, `SELECT `+transactionColumns+` FROM "transaction" WHERE purchase_id = $1 ORDER BY id`, purchaseID)
}

func (p *pgQueries) transactions(ctx context.Context, query string, args ...any) ([]domain.Transaction, error) {
	rows, err := p.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Transaction, 0)
	for rows.Next() {
		var (
			t      domain.Transaction
			amount string
			desc   *string
		)
		if err := rows.Scan(&t.ID, &t.GlobalID, &t.TypeID, &amount, &t.CurrencyID, &t.CardID, &t.PurchaseID,
			&t.Submitted, &t.DueDate, &desc, &t.LastUpdated, &t.LastUpdatedBy); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse transaction amount: %w", err)
		}
		if desc != nil {
			t.Description = *desc
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (p *pgQueries) InsertPurchase(ctx context.Context, pur domain.Purchase) (domain.Purchase, error) {
	const query = `INSERT INTO purchase (global_id, shop_id, amount, currency_id, card_id, description,
		last_updated, last_updated_by)
		VALUES ($1, $2, $3::text::numeric, $4, $5, $6, $7, $8) RETURNING id`
	err := p.q.QueryRow(ctx, query,
		pur.GlobalID, pur.ShopID, pur.Amount.String(), pur.CurrencyID, pur.CardID, pur.Description,
		pur.LastUpdated, pur.LastUpdatedBy,
	).Scan(&pur.ID)
	if err != nil {
		return domain.Purchase{}, fmt.Errorf("insert purchase: %w", err)
	}
	pur.Transactions = nil
	return pur, nil
}

func (p *pgQueries) Purchase(ctx context.Context, id int64) (domain.Purchase, error) {
	list, err := p.purchases(ctx, `SELECT `+purchaseColumns+` FROM purchase WHERE id = $1`, id)
	if err != nil {
		return domain.Purchase{}, err
	}
	if len(list) == 0 {
		return domain.Purchase{}, ErrNotFound
	}
	return list[0], nil
}

func (p *pgQueries) PurchasesByCard(ctx context.Context, cardID int64) ([]domain.Purchase, error) {
	return p.purchases(ctx, `SELECT `+purchaseColumns+` FROM purchase WHERE card_id = $1 ORDER BY id`, cardID)
}

func (p *pgQueries) Purchases(ctx context.Context) ([]domain.Purchase, error) {
	return p.purchases(ctx, `SELECT `+purchaseColumns+` FROM purchase ORDER BY id`)
}

func (p *pgQueries) purchases(ctx context.Context, query string, args ...any) ([]domain.Purchase, error) {
	rows, err := p.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query purchases: %w", err)
	}

	out := make([]domain.Purchase, 0)
	for rows.Next() {
		var (
			pur    domain.Purchase
			amount string
			desc   *string
		)
		if err := rows.Scan(&pur.ID, &pur.GlobalID, &pur.ShopID, &amount, &pur.CurrencyID, &pur.CardID, &desc,
			&pur.LastUpdated, &pur.LastUpdatedBy); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		if pur.Amount, err = decimal.NewFromString(amount); err != nil {
			rows.Close()
			return nil, fmt.Errorf("parse purchase amount: %w", err)
		}
		if desc != nil {
			pur.Description = *desc
		}
		out = append(out, pur)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// The connection is free again once rows is closed.
	for i := range out {
		if out[i].Transactions, err = p.TransactionsByPurchase(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func scanCard(row pgx.Row) (domain.Card, error) {
	var (
		card    domain.Card
		balance string
		updated time.Time
	)
	if err := row.Scan(&card.ID, &card.OwnerID, &balance, &updated, &card.LastUpdatedBy,
		&card.Currency.ID, &card.Currency.Name, &card.Currency.LastUpdatedBy); err != nil {
		return domain.Card{}, err
	}
	b, err := decimal.NewFromString(balance)
	if err != nil {
		return domain.Card{}, fmt.Errorf("parse card balance: %w", err)
	}
	card.Balance = b
	card.LastUpdated = updated
	return card, nil
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
