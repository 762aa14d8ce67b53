package classify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/card-ledger/card_ledger/internal/apperr"
)

func TestTranslateTable(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
		kind apperr.Kind
	}{
		{
			name: "duplicate transaction global id",
			raw:  `duplicate key value violates unique constraint "transaction_global_id_key" Detail: Key (global_id)=(tx-1) already exists.`,
			want: "Transaction with globalId=tx-1 already present.",
			kind: apperr.KindDuplicate,
		},
		{
			name: "duplicate purchase global id",
			raw:  `duplicate key value violates unique constraint "purchase_global_id_key" Detail: Key (global_id)=(p-9) already exists.`,
			want: "Purchase with globalId=p-9 already present.",
			kind: apperr.KindDuplicate,
		},
		{
			name: "transaction currency fk",
			raw:  `insert or update on table "transaction" violates foreign key constraint "transaction_currency_id_fkey" Detail: Key (currency_id)=(42) is not present in table "currency".`,
			want: "No currency 42 exists in the system.",
			kind: apperr.KindNotFound,
		},
		{
			name: "card currency fk",
			raw:  `insert or update on table "card" violates foreign key constraint "card_currency_id_fkey" Detail: Key (currency_id)=(5) is not present in table "currency".`,
			want: "No currency 5 exists in the system.",
			kind: apperr.KindNotFound,
		},
		{
			name: "purchase currency fk",
			raw:  `insert or update on table "purchase" violates foreign key constraint "purchase_currency_id_fkey" Detail: Key (currency_id)=(6) is not present in table "currency".`,
			want: "No currency 6 exists in the system.",
			kind: apperr.KindNotFound,
		},
		{
			name: "value too long",
			raw:  "value too long for type character varying(3)",
			want: "Field currency is invalid.",
			kind: apperr.KindValidation,
		},
		{
			name: "transaction type fk",
			raw:  `insert or update on table "transaction" violates foreign key constraint "transaction_type_id_fkey" Detail: Key (type_id)=(X) is not present in table "transaction_type".`,
			want: "Undefined transactionType X.",
			kind: apperr.KindNotFound,
		},
		{
			name: "card fk",
			raw:  `insert or update on table "transaction" violates foreign key constraint "transaction_card_id_fkey" Detail: Key (card_id)=(77) is not present in table "card".`,
			want: "No card with id 77 exists in the system.",
			kind: apperr.KindNotFound,
		},
		{
			name: "unmatched passes through",
			raw:  "connection reset by peer",
			want: "connection reset by peer",
			kind: apperr.KindUnclassified,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg, kind, _ := Translate(tc.raw)
			assert.Equal(t, tc.want, msg)
			assert.Equal(t, tc.kind, kind)
		})
	}
}

func TestTranslateFirstMatchWins(t *testing.T) {
	// Both the type fk and "value too long" match; the earlier rule wins.
	raw := `violates foreign key constraint "transaction_type_id_fkey", value too long (abc)`
	msg, kind, ok := Translate(raw)
	require.True(t, ok)
	assert.Equal(t, "Field currency is invalid.", msg)
	assert.Equal(t, apperr.KindValidation, kind)
}

func TestTranslateWithoutIdentifierKeepsRaw(t *testing.T) {
	raw := `duplicate key value violates unique constraint "transaction_global_id_key"`
	msg, kind, ok := Translate(raw)
	require.True(t, ok)
	assert.Equal(t, raw, msg)
	assert.Equal(t, apperr.KindDuplicate, kind)
}

func TestClassifyPgError(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:    CodeUniqueViolation,
		Message: `duplicate key value violates unique constraint "transaction_global_id_key"`,
		Detail:  "Key (global_id)=(abc_1) already exists.",
	}
	de := Classify(fmt.Errorf("insert transaction: %w", pgErr))

	require.NotNil(t, de)
	assert.Equal(t, apperr.KindDuplicate, de.Kind)
	assert.Equal(t, "Transaction with globalId=abc_1 already present.", de.Message)
	assert.Equal(t, http.StatusConflict, de.Code)
	assert.ErrorIs(t, de, pgErr)
}

func TestClassifySerializationFailure(t *testing.T) {
	for _, code := range []string{CodeSerializationFailure, CodeDeadlockDetected} {
		de := Classify(&pgconn.PgError{Code: code, Message: "could not serialize access due to concurrent update"})
		require.NotNil(t, de)
		assert.Equal(t, apperr.KindConflict, de.Kind, code)
		assert.True(t, errors.Is(de, apperr.ErrConflict))
	}
}

func TestClassifyPassesDomainErrors(t *testing.T) {
	orig := apperr.InsufficientFunds(1, "10")
	assert.Same(t, orig, Classify(fmt.Errorf("wrapped: %w", orig)))
	assert.Nil(t, Classify(nil))
	assert.NoError(t, Err(nil))
}

func TestClassifyUnknownIsServerFault(t *testing.T) {
	de := Classify(errors.New("tls handshake timeout"))
	require.NotNil(t, de)
	assert.Equal(t, apperr.KindUnclassified, de.Kind)
	assert.Equal(t, "tls handshake timeout", de.Message)
	assert.Equal(t, http.StatusInternalServerError, de.Code)

	de = Classify(context.DeadlineExceeded)
	assert.Equal(t, apperr.KindUnclassified, de.Kind)
}

func TestRawMessage(t *testing.T) {
	assert.Equal(t, "msg\n  Detail: Key (a)=(b).", RawMessage(&pgconn.PgError{Message: "msg", Detail: "Key (a)=(b)."}))
	assert.Equal(t, "msg", RawMessage(&pgconn.PgError{Message: "msg"}))
	assert.Equal(t, "plain", RawMessage(errors.New("plain")))
}
