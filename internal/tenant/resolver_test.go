// internal/tenant/resolver_test.go
//
// Resolver behaviour over sqlmock: cache hits skip the database, unknown
// hosts are not cached, and host normalisation folds ports and case.
package tenant

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const lookupSQL = `SELECT id FROM apps WHERE host = ? AND status = 'active'`

func newResolver(t *testing.T) (*Resolver, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return New(sqlx.NewDb(raw, "mysql"), zaptest.NewLogger(t), time.Minute, 10), mock
}

func TestResolverCachesHits(t *testing.T) {
	r, mock := newResolver(t)
	mock.ExpectQuery(regexp.QuoteMeta(lookupSQL)).
		WithArgs("shop.example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("app-1"))

	for _, host := range []string{"shop.example.com", "SHOP.example.com:8443", "shop.example.com."} {
		id, err := r.AppID(context.Background(), host)
		require.NoError(t, err)
		assert.Equal(t, "app-1", id)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolverMissIsNotCached(t *testing.T) {
	r, mock := newResolver(t)
	for i := 0; i < 2; i++ {
		mock.ExpectQuery(regexp.QuoteMeta(lookupSQL)).
			WithArgs("ghost.example.com").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
	}

	for i := 0; i < 2; i++ {
		_, err := r.AppID(context.Background(), "ghost.example.com")
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolverForgetAndErrors(t *testing.T) {
	r, mock := newResolver(t)
	mock.ExpectQuery(regexp.QuoteMeta(lookupSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("app-1"))
	mock.ExpectQuery(regexp.QuoteMeta(lookupSQL)).
		WillReturnError(errors.New("conn reset"))

	_, err := r.AppID(context.Background(), "a.example.com")
	require.NoError(t, err)

	r.Forget("a.example.com")
	_, err = r.AppID(context.Background(), "a.example.com")
	assert.ErrorContains(t, err, "conn reset")
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
