package infra

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresConfig(t *testing.T) {
	_, err := PostgresConfig("")
	assert.Error(t, err)

	cfg, err := PostgresConfig("postgres://u:p@localhost:5432/ledger")
	require.NoError(t, err)
	assert.Equal(t, "card-ledger", cfg.ConnConfig.RuntimeParams["application_name"])

	cfg, err = PostgresConfig("postgres://u:p@localhost:5432/ledger?application_name=custom")
	require.NoError(t, err)
	assert.Equal(t, "custom", cfg.ConnConfig.RuntimeParams["application_name"])
}

func TestNewRedisClient(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "")
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	assert.NoError(t, client.Close())
}
