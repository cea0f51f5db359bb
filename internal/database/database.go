// Package database centralises sqlx connection helpers for the two SQL
// backends: go-sql-driver/mysql (also MariaDB) and jackc/pgx through its
// database/sql shim.
//
// Public entry point:
//
//	Open(ctx, Options) – opens, tunes the pool, and pings with retries.
//
// MySQL DSNs are rewritten to carry parseTime and clientFoundRows; the
// page lock's compare-and-set relies on matched-row counts.  Callers should
// Close() the returned *sqlx.DB when no longer needed.
package database

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	"github.com/jmoiron/sqlx"
)

// Options tunes one pool.
type Options struct {
	Driver          string // "mysql" or "pgx"
	DSN             string
	Password        string // injected into DSN when non-empty
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Retries         int
	RetryBackoff    time.Duration
}

// Open returns a pinged *sqlx.DB.  Ping is retried Retries times with a
// linear backoff so containers can start before the database is ready.
func Open(ctx context.Context, o Options) (*sqlx.DB, error) {
	dsn, err := prepareDSN(o.Driver, o.DSN, o.Password)
	if err != nil {
		return nil, err
	}
	db, err := sqlx.Open(o.Driver, dsn)
	if err != nil {
		return nil, err
	}

	if o.MaxOpenConns == 0 {
		o.MaxOpenConns = 15
	}
	if o.MaxIdleConns == 0 {
		o.MaxIdleConns = 5
	}
	if o.ConnMaxLifetime == 0 {
		o.ConnMaxLifetime = 30 * time.Minute
	}
	db.SetMaxOpenConns(o.MaxOpenConns)
	db.SetMaxIdleConns(o.MaxIdleConns)
	db.SetConnMaxLifetime(o.ConnMaxLifetime)

	for attempt := 0; ; attempt++ {
		err = db.PingContext(ctx)
		if err == nil {
			return db, nil
		}
		if attempt >= o.Retries {
			break
		}
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt+1) * o.RetryBackoff):
		}
	}
	_ = db.Close()
	return nil, fmt.Errorf("ping %s: %w", o.Driver, err)
}

// prepareDSN applies driver-specific flags and the secret password.
func prepareDSN(driver, dsn, password string) (string, error) {
	switch driver {
	case "mysql":
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return "", fmt.Errorf("mysql dsn: %w", err)
		}
		cfg.ParseTime = true
		cfg.ClientFoundRows = true
		cfg.Loc = time.UTC
		if password != "" {
			cfg.Passwd = password
		}
		return cfg.FormatDSN(), nil

	case "pgx":
		if password == "" {
			return dsn, nil
		}
		u, err := url.Parse(dsn)
		if err != nil || u.Scheme == "" {
			return "", fmt.Errorf("pgx dsn must be a postgres:// URL to inject a password")
		}
		u.User = url.UserPassword(u.User.Username(), password)
		return u.String(), nil

	default:
		return "", fmt.Errorf("unsupported driver %q", driver)
	}
}
