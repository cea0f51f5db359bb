package database

import (
	"context"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareDSN_MySQL(t *testing.T) {
	dsn, err := prepareDSN("mysql", "builder@tcp(db:3306)/builder", "s3cret")
	require.NoError(t, err)

	cfg, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "builder", cfg.User)
	assert.Equal(t, "s3cret", cfg.Passwd)
	assert.True(t, cfg.ParseTime)
	assert.True(t, cfg.ClientFoundRows)
	assert.Equal(t, time.UTC, cfg.Loc)
}

func TestPrepareDSN_Postgres(t *testing.T) {
	dsn, err := prepareDSN("pgx", "postgres://builder@db:5432/builder?sslmode=disable", "p@ss")
	require.NoError(t, err)
	assert.Equal(t, "postgres://builder:p%40ss@db:5432/builder?sslmode=disable", dsn)

	dsn, err = prepareDSN("pgx", "host=db user=builder", "")
	require.NoError(t, err)
	assert.Equal(t, "host=db user=builder", dsn)

	_, err = prepareDSN("pgx", "host=db user=builder", "pw")
	assert.Error(t, err)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "oracle", DSN: "x"})
	assert.ErrorContains(t, err, "unsupported driver")
}
