package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a domain failure independently of its message.
type Kind string

const (
	KindValidation        Kind = "validation_failed"
	KindInsufficientFunds Kind = "insufficient_funds"
	KindNumberFormat      Kind = "number_format_mismatch"
	KindDuplicate         Kind = "duplicate_identifier"
	KindNotFound          Kind = "reference_not_found"
	KindConflict          Kind = "concurrency_conflict"
	KindUnclassified      Kind = "unclassified"
)

// Message templates shown to API clients.
const (
	MsgNoCurrency         = "No currency %s exists in the system."
	MsgMalformedCurrency  = "Field currency is invalid."
	MsgNoCard             = "No card with id %s exists in the system."
	MsgNoPurchase         = "No purchase with id %s exists in the system."
	MsgNoTransactionType  = "Undefined transactionType %s."
	MsgTransactionDup     = "Transaction with globalId=%s already present."
	MsgPurchaseDup        = "Purchase with globalId=%s already present."
	MsgNumberFormat       = "'%s' should be a number"
	MsgNotEnoughFunds     = "Card %d has not enough funds to perform debit transaction with amount %s"
	MsgMandatoryField     = "Field %s is mandatory. It should be provided and can't be empty."
	MsgTxCurrencyMismatch = "Transaction can't be saved. Transaction currency %s differs from card currency %s."
	MsgPurchaseCurrency   = "Purchase can't be saved. Purchase currency %s differs from card currency %s."
	MsgNegativeAmount     = "Field amount can't be negative."
	MsgConcurrentUpdate   = "Card was modified by a concurrent operation, please retry."
)

// Sentinels usable with errors.Is; matching is by Kind only.
var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrInsufficientFunds = &Error{Kind: KindInsufficientFunds}
	ErrNumberFormat      = &Error{Kind: KindNumberFormat}
	ErrDuplicate         = &Error{Kind: KindDuplicate}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrUnclassified      = &Error{Kind: KindUnclassified}
)

// Error is the single failure type surfaced by the ledger core.
type Error struct {
	Kind    Kind
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New builds an error of the given kind with the default status for that kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Code: StatusFor(kind)}
}

// Wrap is New with an underlying cause kept for Unwrap.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Code: StatusFor(kind), Err: err}
}

// StatusFor maps a kind to the HTTP status used when rendering it.
func StatusFor(kind Kind) int {
	switch kind {
	case KindValidation, KindInsufficientFunds, KindNumberFormat, KindNotFound:
		return http.StatusBadRequest
	case KindDuplicate, KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func Validation(format string, args ...any) *Error {
	return New(KindValidation, fmt.Sprintf(format, args...))
}

func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, fmt.Sprintf(format, args...))
}

func InsufficientFunds(cardID int64, amount string) *Error {
	return New(KindInsufficientFunds, fmt.Sprintf(MsgNotEnoughFunds, cardID, amount))
}

func NumberFormat(raw string) *Error {
	return New(KindNumberFormat, fmt.Sprintf(MsgNumberFormat, raw))
}

func MandatoryField(field string) *Error {
	return New(KindValidation, fmt.Sprintf(MsgMandatoryField, field))
}

// As extracts the domain error from err's chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindUnclassified for foreign errors.
func KindOf(err error) Kind {
	if de, ok := As(err); ok {
		return de.Kind
	}
	return KindUnclassified
}
