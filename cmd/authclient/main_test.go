package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/authclient/internal/apperrors"
	"github.com/nkiryanov/authclient/internal/models"
	"github.com/nkiryanov/authclient/internal/testutil"
)

func Test_run(t *testing.T) {
	backend := testutil.NewBackend(t)
	tokenFile := filepath.Join(t.TempDir(), "tokens.json")

	// Run command against fake backend with tokens kept in file between runs
	runCmd := func(t *testing.T, args ...string) ([]byte, error) {
		out := &bytes.Buffer{}
		flags := []string{
			"--api", backend.URL,
			"--store", "file",
			"--store-file", tokenFile,
			"--log-level", "error",
		}
		err := run(t.Context(), func(string) string { return "" }, os.Getwd, append(flags, args...), out)
		return out.Bytes(), err
	}

	decode := func(t *testing.T, data []byte, v any) {
		require.NoError(t, json.Unmarshal(data, v), "output must be json: %s", data)
	}

	t.Run("session lifecycle", func(t *testing.T) {
		out, err := runCmd(t, "signup", "Alice", "alice@example.com", "pwd")
		require.NoError(t, err)
		pair := models.TokenPair{}
		decode(t, out, &pair)
		require.NotEmpty(t, pair.AccessToken)

		out, err = runCmd(t, "profile")
		require.NoError(t, err)
		u := models.User{}
		decode(t, out, &u)
		require.Equal(t, "alice@example.com", u.Email)

		out, err = runCmd(t, "status")
		require.NoError(t, err)
		require.JSONEq(t, `{"access":{"valid":true},"refresh":{"valid":true}}`, string(out))

		out, err = runCmd(t, "guard", "redirect-if-session", "/login")
		require.NoError(t, err)
		require.JSONEq(t, `{"route":"/login","decision":"allow","navigations":["/app"]}`, string(out))

		out, err = runCmd(t, "refresh")
		require.NoError(t, err)
		refreshed := models.TokenPair{}
		decode(t, out, &refreshed)
		require.NotEqual(t, pair.AccessToken, refreshed.AccessToken)

		_, err = runCmd(t, "users")
		require.NoError(t, err)

		out, err = runCmd(t, "logout")
		require.NoError(t, err)
		require.JSONEq(t, `{"loggedOut":true}`, string(out))

		out, err = runCmd(t, "status")
		require.NoError(t, err)
		require.JSONEq(t, `{
			"access":{"valid":false,"reason":"token not found"},
			"refresh":{"valid":false,"reason":"token not found"}
		}`, string(out))

		out, err = runCmd(t, "guard", "require-session", "/app")
		require.NoError(t, err)
		require.JSONEq(t, `{"route":"/app","decision":"deny","navigations":["/login"]}`, string(out))
	})

	t.Run("tokens kept in file", func(t *testing.T) {
		backend.AddUser("Bob", "bob@example.com", "pwd")
		_, err := runCmd(t, "login", "bob@example.com", "pwd")
		require.NoError(t, err)

		data, err := os.ReadFile(tokenFile)
		require.NoError(t, err)
		require.Contains(t, string(data), "token-trello")
		require.Contains(t, string(data), "refresh-token-trello")
	})

	t.Run("sealed tokens", func(t *testing.T) {
		sealedFile := filepath.Join(t.TempDir(), "tokens.json")
		key := strings.Repeat("ab", 32)
		backend.AddUser("Carol", "carol@example.com", "pwd")

		out := &bytes.Buffer{}
		err := run(t.Context(), func(string) string { return "" }, os.Getwd, []string{
			"--api", backend.URL,
			"--store-file", sealedFile,
			"--secret-key", key,
			"login", "carol@example.com", "pwd",
		}, out)
		require.NoError(t, err)
		pair := models.TokenPair{}
		decode(t, out.Bytes(), &pair)

		data, err := os.ReadFile(sealedFile)
		require.NoError(t, err)
		require.NotContains(t, string(data), pair.AccessToken, "token must be encrypted at rest")
	})

	t.Run("backend rejection", func(t *testing.T) {
		_, err := runCmd(t, "login", "nobody@example.com", "pwd")

		require.ErrorIs(t, err, apperrors.ErrNetworkFailure)
		require.Equal(t, http.StatusUnauthorized, apperrors.StatusCode(err))
	})

	t.Run("usage errors", func(t *testing.T) {
		tests := []struct {
			name string
			args []string
		}{
			{"no command", nil},
			{"unknown command", []string{"dance"}},
			{"missing args", []string{"login", "a@b.c"}},
			{"unknown guard", []string{"guard", "open-sesame", "/app"}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := runCmd(t, tt.args...)

				require.True(t, errors.Is(err, errUsage), "got %v", err)
			})
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		err := run(t.Context(), func(key string) string {
			if key == "TOKEN_STORE" {
				return "disk"
			}
			return ""
		}, os.Getwd, []string{"status"}, &bytes.Buffer{})

		require.Error(t, err)
	})
}
