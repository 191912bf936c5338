package utils

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// The dashboard keeps one session row set per namespace, so a handful of
// connections covers every concurrent request.
const (
	pgMaxOpenConns    = 4
	pgMaxIdleConns    = 2
	pgConnMaxIdleTime = 5 * time.Minute
	pgPingTimeout     = 5 * time.Second
)

// OpenPostgres opens a small pool for the token store and pings it.
// driverName is "pgx" when the pgx stdlib driver is imported. dsn carries the
// password; never log it.
func OpenPostgres(ctx context.Context, driverName, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open token store db: %w", err)
	}
	db.SetMaxOpenConns(pgMaxOpenConns)
	db.SetMaxIdleConns(pgMaxIdleConns)
	db.SetConnMaxIdleTime(pgConnMaxIdleTime)

	if err := HealthCheck(ctx, db, pgPingTimeout); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// HealthCheck pings the DB with a timeout.
func HealthCheck(ctx context.Context, db *sql.DB, timeout time.Duration) error {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("db ping failed: %w", err)
	}
	return nil
}

// WithTx runs fn in a read-committed transaction. The transaction is rolled
// back when fn fails or panics; otherwise the commit error is returned.
func WithTx(ctx context.Context, db *sql.DB, fn func(ctx context.Context, tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()
	return fn(ctx, tx)
}
