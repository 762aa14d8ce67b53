// Package classify turns storage failures into domain errors.
package classify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/card-ledger/card_ledger/internal/apperr"
)

// Postgres SQLSTATE codes the classifier reacts to.
const (
	CodeUniqueViolation      = "23505"
	CodeForeignKeyViolation  = "23503"
	CodeStringTooLong        = "22001"
	CodeSerializationFailure = "40001"
	CodeDeadlockDetected     = "40P01"
)

// Constraint signatures as they appear in Postgres error text.
const (
	SigTransactionGlobalID = `duplicate key value violates unique constraint "transaction_global_id_key"`
	SigPurchaseGlobalID    = `duplicate key value violates unique constraint "purchase_global_id_key"`
	SigTransactionCurrency = `violates foreign key constraint "transaction_currency_id_fkey"`
	SigCardCurrency        = `violates foreign key constraint "card_currency_id_fkey"`
	SigPurchaseCurrency    = `violates foreign key constraint "purchase_currency_id_fkey"`
	SigValueTooLong        = "value too long"
	SigTransactionType     = `violates foreign key constraint "transaction_type_id_fkey"`
	SigTransactionCard     = `violates foreign key constraint "transaction_card_id_fkey"`
)

type rule struct {
	signature string
	template  string
	kind      apperr.Kind
	withID    bool
}

// rules is evaluated in order; the first matching signature wins.
var rules = []rule{
	{SigTransactionGlobalID, apperr.MsgTransactionDup, apperr.KindDuplicate, true},
	{SigPurchaseGlobalID, apperr.MsgPurchaseDup, apperr.KindDuplicate, true},
	{SigTransactionCurrency, apperr.MsgNoCurrency, apperr.KindNotFound, true},
	{SigCardCurrency, apperr.MsgNoCurrency, apperr.KindNotFound, true},
	{SigPurchaseCurrency, apperr.MsgNoCurrency, apperr.KindNotFound, true},
	{SigValueTooLong, apperr.MsgMalformedCurrency, apperr.KindValidation, false},
	{SigTransactionType, apperr.MsgNoTransactionType, apperr.KindNotFound, true},
	{SigTransactionCard, apperr.MsgNoCard, apperr.KindNotFound, true},
}

// Translate maps a raw constraint-violation message to its user-facing text.
// ok is false when no rule matches, in which case raw is returned unchanged.
func Translate(raw string) (message string, kind apperr.Kind, ok bool) {
	for _, r := range rules {
		if !strings.Contains(raw, r.signature) {
			continue
		}
		if !r.withID {
			return r.template, r.kind, true
		}
		id, found := lastParenthesized(raw)
		if !found {
			return raw, r.kind, true
		}
		return fmt.Sprintf(r.template, id), r.kind, true
	}
	return raw, apperr.KindUnclassified, false
}

// Classify converts err into a domain error. Domain errors pass through
// untouched and nil stays nil.
func Classify(err error) *apperr.Error {
	if err == nil {
		return nil
	}
	if de, ok := apperr.As(err); ok {
		return de
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case CodeSerializationFailure, CodeDeadlockDetected:
			return apperr.Wrap(apperr.KindConflict, apperr.MsgConcurrentUpdate, err)
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperr.Wrap(apperr.KindUnclassified, err.Error(), err)
	}

	raw := RawMessage(err)
	msg, kind, _ := Translate(raw)
	return apperr.Wrap(kind, msg, err)
}

// Err is Classify for call sites that return a plain error.
func Err(err error) error {
	if de := Classify(err); de != nil {
		return de
	}
	return nil
}

// RawMessage renders err the way the Postgres server reports it, with the
// detail line appended so embedded key values can be extracted.
func RawMessage(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Detail == "" {
			return pgErr.Message
		}
		return pgErr.Message + "\n  Detail: " + pgErr.Detail
	}
	return err.Error()
}

// lastParenthesized returns the text inside the last "(...)" pair of s.
func lastParenthesized(s string) (string, bool) {
	open := strings.LastIndex(s, "(")
	if open < 0 {
		return "", false
	}
	end := strings.LastIndex(s, ")")
	if end <= open {
		return "", false
	}
	return s[open+1 : end], true
}
