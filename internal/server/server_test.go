package server

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/card-ledger/card_ledger/internal/config"
	"github.com/card-ledger/card_ledger/internal/logging"
)

func TestNewFallsBackToMemoryInDev(t *testing.T) {
	cfg := config.Config{AppName: "test", AppEnv: "development", InstallmentCount: 4}
	srv, err := New(cfg, nil, nil, logging.Discard())
	require.NoError(t, err)

	resp, err := srv.App().Test(httptest.NewRequest("GET", "/healthz", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestNewRequiresDatabaseOutsideDev(t *testing.T) {
	cfg := config.Config{AppName: "test", AppEnv: "production"}
	_, err := New(cfg, nil, nil, logging.Discard())
	assert.Error(t, err)
}
