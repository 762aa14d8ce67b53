package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Currency is read-only reference data.
type Currency struct {
	ID            int64
	Name          string
	LastUpdatedBy string
}

// TransactionType is the credit/debit reference row.
type TransactionType struct {
	ID          string
	Description string
}

// Card is a balance holder. Balance only changes through the ledger.
type Card struct {
	ID            int64
	OwnerID       string
	Currency      Currency
	Balance       decimal.Decimal
	LastUpdated   time.Time
	LastUpdatedBy string
}

// Transaction is a single immutable ledger entry. Amount is always a
// non-negative magnitude; TypeID carries the direction.
type Transaction struct {
	ID            int64
	GlobalID      string
	TypeID        string
	Amount        decimal.Decimal
	CurrencyID    int64
	CardID        int64
	PurchaseID    *int64
	Submitted     bool
	DueDate       time.Time
	Description   string
	LastUpdated   time.Time
	LastUpdatedBy string
}

// Purchase groups the installment transactions it generated. Transactions is
// derived from transaction.purchase_id and is not stored on the row.
type Purchase struct {
	ID            int64
	GlobalID      string
	ShopID        string
	Amount        decimal.Decimal
	CurrencyID    int64
	CardID        int64
	Description   string
	LastUpdated   time.Time
	LastUpdatedBy string
	Transactions  []Transaction
}
