package postgres

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/authclient/internal/apperrors"
	"github.com/nkiryanov/authclient/internal/testutil"
)

func mustParseTime(value string) time.Time {
	dt, err := time.Parse("2006-01-02 15:04:05Z07:00", value)
	if err != nil {
		panic(err)
	}
	return dt
}

func Test_Storage(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	now := mustParseTime("2025-01-01 19:00:01Z")
	withStorage := func(t *testing.T, fn func(s *Storage, tx pgx.Tx)) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			s := NewStorage(tx)
			s.now = func() time.Time { return now }
			fn(s, tx)
		})
	}

	t.Run("set and get", func(t *testing.T) {
		withStorage(t, func(s *Storage, tx pgx.Tx) {
			err := s.Set(t.Context(), "token-trello", "A1", 365*24*time.Hour)
			require.NoError(t, err)

			got, err := s.Get(t.Context(), "token-trello")
			require.NoError(t, err)
			require.Equal(t, "A1", got)

			var path string
			var expiresAt time.Time
			err = tx.QueryRow(t.Context(), "SELECT path, expires_at FROM token_entries WHERE key = $1", "token-trello").Scan(&path, &expiresAt)
			require.NoError(t, err)
			require.Equal(t, "/", path, "entries are root scoped")
			require.WithinDuration(t, mustParseTime("2026-01-01 19:00:01Z"), expiresAt, 0)
		})
	})

	t.Run("set overwrites", func(t *testing.T) {
		withStorage(t, func(s *Storage, _ pgx.Tx) {
			require.NoError(t, s.Set(t.Context(), "token-trello", "A1", time.Hour))
			require.NoError(t, s.Set(t.Context(), "token-trello", "A2", time.Hour))

			got, err := s.Get(t.Context(), "token-trello")
			require.NoError(t, err)
			require.Equal(t, "A2", got)
		})
	})

	t.Run("get missing", func(t *testing.T) {
		withStorage(t, func(s *Storage, _ pgx.Tx) {
			_, err := s.Get(t.Context(), "token-trello")
			require.ErrorIs(t, err, apperrors.ErrKeyNotFound)
		})
	})

	t.Run("expired invisible and purged", func(t *testing.T) {
		withStorage(t, func(s *Storage, _ pgx.Tx) {
			require.NoError(t, s.Set(t.Context(), "token-trello", "A1", time.Minute))
			require.NoError(t, s.Set(t.Context(), "refresh-token-trello", "R1", time.Hour))

			s.now = func() time.Time { return now.Add(time.Minute) }

			_, err := s.Get(t.Context(), "token-trello")
			require.ErrorIs(t, err, apperrors.ErrKeyNotFound)

			purged, err := s.PurgeExpired(t.Context())
			require.NoError(t, err)
			require.Equal(t, int64(1), purged, "only expired access entry should be purged")

			refresh, err := s.Get(t.Context(), "refresh-token-trello")
			require.NoError(t, err)
			require.Equal(t, "R1", refresh)
		})
	})

	t.Run("delete idempotent", func(t *testing.T) {
		withStorage(t, func(s *Storage, _ pgx.Tx) {
			require.NoError(t, s.Set(t.Context(), "token-trello", "A1", time.Hour))

			require.NoError(t, s.Delete(t.Context(), "token-trello"))
			require.NoError(t, s.Delete(t.Context(), "token-trello"))

			_, err := s.Get(t.Context(), "token-trello")
			require.ErrorIs(t, err, apperrors.ErrKeyNotFound)
		})
	})

	t.Run("not migrated", func(t *testing.T) {
		withStorage(t, func(s *Storage, tx pgx.Tx) {
			_, err := tx.Exec(t.Context(), "DROP TABLE token_entries")
			require.NoError(t, err)

			err = s.Delete(t.Context(), "token-trello")
			require.ErrorIs(t, err, apperrors.ErrStoreNotMigrated)
		})
	})
}
