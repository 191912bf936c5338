package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"academic-portal/pkg/utils"
)

// NOTE: This backend assumes (or creates via EnsureSchema) the table:
//
//	portal_session_kv (
//	  namespace  text        NOT NULL,
//	  key        text        NOT NULL,
//	  value      text        NOT NULL,
//	  updated_at timestamptz NOT NULL DEFAULT now(),
//	  PRIMARY KEY (namespace, key)
//	)

const schemaSessionKV = `
CREATE TABLE IF NOT EXISTS portal_session_kv (
  namespace  text        NOT NULL,
  key        text        NOT NULL,
  value      text        NOT NULL,
  updated_at timestamptz NOT NULL DEFAULT now(),
  PRIMARY KEY (namespace, key)
)
`

// PostgresBackend stores the session rows through database/sql; the pgx
// stdlib driver is registered by the binary.
type PostgresBackend struct {
	db        *sql.DB
	namespace string
}

func NewPostgresBackend(db *sql.DB, namespace string) *PostgresBackend {
	if namespace == "" {
		namespace = "default"
	}
	return &PostgresBackend{db: db, namespace: namespace}
}

func (b *PostgresBackend) EnsureSchema(ctx context.Context) error {
	if _, err := b.db.ExecContext(ctx, schemaSessionKV); err != nil {
		return fmt.Errorf("create session table: %w", err)
	}
	return nil
}

func (b *PostgresBackend) Load(ctx context.Context, key string) (string, bool, error) {
	const q = `
SELECT value
FROM portal_session_kv
WHERE namespace = $1 AND key = $2
`
	var v string
	if err := b.db.QueryRowContext(ctx, q, b.namespace, key).Scan(&v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return v, true, nil
}

// Save upserts all values in a single transaction. Keys are written in
// sorted order so concurrent writers lock rows consistently.
func (b *PostgresBackend) Save(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	const q = `
INSERT INTO portal_session_kv (namespace, key, value, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
`
	keys := sortedKeys(values)
	return utils.WithTx(ctx, b.db, func(ctx context.Context, tx *sql.Tx) error {
		for _, k := range keys {
			if _, err := tx.ExecContext(ctx, q, b.namespace, k, values[k]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *PostgresBackend) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	const q = `
DELETE FROM portal_session_kv
WHERE namespace = $1 AND key = $2
`
	return utils.WithTx(ctx, b.db, func(ctx context.Context, tx *sql.Tx) error {
		for _, k := range keys {
			if _, err := tx.ExecContext(ctx, q, b.namespace, k); err != nil {
				return err
			}
		}
		return nil
	})
}

func sortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (b *PostgresBackend) Ping(ctx context.Context) error {
	return utils.HealthCheck(ctx, b.db, 2*time.Second)
}
