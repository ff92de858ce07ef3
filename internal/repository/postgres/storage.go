package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/authclient/internal/apperrors"
)

// Common part of pgxpool.Pool, pgx.Conn and pgx.Tx
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Postgres backed key/value storage
// Rows are kept until overwritten or deleted; expired rows are invisible to Get
type Storage struct {
	DB  DBTX
	now func() time.Time
}

func NewStorage(db DBTX) *Storage {
	return &Storage{DB: db, now: time.Now}
}

const setEntry = `-- name: Set entry
INSERT INTO token_entries (key, value, path, expires_at)
VALUES ($1, $2, '/', $3)
ON CONFLICT (key) DO UPDATE
SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at, updated_at = now()
`

func (s *Storage) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	_, err := s.DB.Exec(ctx, setEntry, key, value, s.now().Add(ttl))
	if err != nil {
		return dbError(err)
	}
	return nil
}

const getEntry = `-- name: Get not expired entry
SELECT value
FROM token_entries
WHERE key = $1 AND expires_at > $2
`

func (s *Storage) Get(ctx context.Context, key string) (string, error) {
	rows, _ := s.DB.Query(ctx, getEntry, key, s.now())
	value, err := pgx.CollectOneRow(rows, pgx.RowTo[string])

	switch {
	case err == nil:
		return value, nil
	case errors.Is(err, pgx.ErrNoRows):
		return "", apperrors.ErrKeyNotFound
	default:
		return "", dbError(err)
	}
}

const deleteEntry = `-- name: Delete entry
DELETE FROM token_entries
WHERE key = $1
`

func (s *Storage) Delete(ctx context.Context, key string) error {
	_, err := s.DB.Exec(ctx, deleteEntry, key)
	if err != nil {
		return dbError(err)
	}
	return nil
}

const purgeExpired = `-- name: Purge expired entries
DELETE FROM token_entries
WHERE expires_at <= $1
`

// Remove rows that outlived their ttl, return number of removed rows
func (s *Storage) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := s.DB.Exec(ctx, purgeExpired, s.now())
	if err != nil {
		return 0, dbError(err)
	}
	return tag.RowsAffected(), nil
}

func dbError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UndefinedTable {
		return fmt.Errorf("%w: %v", apperrors.ErrStoreNotMigrated, err)
	}
	return fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
}
