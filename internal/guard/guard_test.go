package guard

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/card-ledger/card_ledger/internal/apperr"
)

func TestAssertTrue(t *testing.T) {
	require.NoError(t, AssertTrue(true, "never", http.StatusBadRequest))

	err := AssertTrue(false, "card missing", http.StatusBadRequest)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	de, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "card missing", de.Message)
	assert.Equal(t, http.StatusBadRequest, de.Code)
}

func TestRequireKeepsKind(t *testing.T) {
	require.NoError(t, Require(true, apperr.NotFound(apperr.MsgNoCard, "1")))

	err := Require(false, apperr.NotFound(apperr.MsgNoCard, "1"))
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.EqualError(t, err, "No card with id 1 exists in the system.")
}

func TestAdvance(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, start.Add(7*24*time.Hour), Advance(start, DefaultPeriod, 1))
	assert.Equal(t, start.Add(21*24*time.Hour), Advance(start, DefaultPeriod, 3))
	assert.Equal(t, start.Add(time.Hour), Advance(start, time.Hour, 1))
	assert.Equal(t, start.Add(7*24*time.Hour), Advance(start, 0, 1))
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), start, "input must not change")
}
