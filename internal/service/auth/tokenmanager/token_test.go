package tokenmanager

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/authclient/internal/apperrors"
)

func mustParseTime(value string) time.Time {
	dt, err := time.Parse("2006-01-02 15:04:05Z07:00", value)
	if err != nil {
		panic(err)
	}
	return dt
}

// Build token from raw header and payload JSON
func rawToken(header string, payload string) string {
	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(header)) + "." + enc.EncodeToString([]byte(payload)) + ".c2lnbmF0dXJl"
}

func Test_UnverifiedDecoder(t *testing.T) {
	decoder := NewDecoder()

	t.Run("signed token", func(t *testing.T) {
		expiresAt := mustParseTime("2030-01-01 19:00:01Z")
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   "42",
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		}).SignedString([]byte("key-the-client-never-knows"))
		require.NoError(t, err)

		claims, err := decoder.Decode(token)

		require.NoError(t, err, "client must decode tokens signed with unknown key")
		assert.Equal(t, "42", claims.Subject)
		exp, ok := claims.Expiry()
		require.True(t, ok)
		assert.WithinDuration(t, expiresAt, exp, 0)
	})

	t.Run("already expired token decoded", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(mustParseTime("2001-01-01 00:00:00Z")),
		}).SignedString([]byte("secret"))
		require.NoError(t, err)

		claims, err := decoder.Decode(token)

		require.NoError(t, err, "expiry is not decoder business")
		_, ok := claims.Expiry()
		require.True(t, ok)
	})

	t.Run("empty payload", func(t *testing.T) {
		claims, err := decoder.Decode(rawToken(`{"alg":"HS256","typ":"JWT"}`, `{}`))

		require.NoError(t, err)
		_, ok := claims.Expiry()
		require.False(t, ok, "exp must be absent")
	})

	t.Run("unsigned token", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = decoder.Decode(token)
		require.NoError(t, err)
	})

	t.Run("header without alg", func(t *testing.T) {
		claims, err := decoder.Decode(rawToken(`{"typ":"JWT"}`, `{"exp":1893456000}`))

		require.NoError(t, err, "signing method only matters for verification")
		exp, ok := claims.Expiry()
		require.True(t, ok)
		require.Equal(t, int64(1893456000), exp.Unix())
	})

	t.Run("exp as numeric string", func(t *testing.T) {
		claims, err := decoder.Decode(rawToken(`{"alg":"HS256"}`, `{"exp":"1700000100"}`))

		require.NoError(t, err)
		exp, ok := claims.Expiry()
		require.True(t, ok)
		require.Equal(t, int64(1700000100), exp.Unix())
	})

	t.Run("fractional exp truncated to seconds", func(t *testing.T) {
		claims, err := decoder.Decode(rawToken(`{"alg":"HS256"}`, `{"exp":1700000000.7}`))

		require.NoError(t, err)
		exp, ok := claims.Expiry()
		require.True(t, ok)
		require.Equal(t, int64(1700000000), exp.Unix())
		require.Zero(t, exp.Nanosecond())
		require.False(t, exp.After(time.Unix(1700000000, 0)), "must not outlive its whole second")
	})

	t.Run("malformed", func(t *testing.T) {
		tests := []struct {
			name  string
			token string
		}{
			{"empty", ""},
			{"not a token", "invalid token"},
			{"two segments", "aGVhZGVy.cGF5bG9hZA"},
			{"four segments", "a.b.c.d"},
			{"header not base64", "!!!." + base64.RawURLEncoding.EncodeToString([]byte(`{}`)) + ".sig"},
			{"header not json", rawToken(`not-json`, `{}`)},
			{"payload not json", rawToken(`{"alg":"HS256"}`, `not-json`)},
			{"exp not numeric", rawToken(`{"alg":"HS256"}`, `{"exp":"tomorrow"}`)},
			{"exp of wrong type", rawToken(`{"alg":"HS256"}`, `{"exp":true}`)},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := decoder.Decode(tt.token)

				require.ErrorIs(t, err, apperrors.ErrMalformedToken)
				require.ErrorIs(t, err, jwt.ErrTokenMalformed, "library error must stay in chain")
			})
		}
	})
}
