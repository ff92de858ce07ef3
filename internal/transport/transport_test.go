package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/authclient/internal/apperrors"
	"github.com/nkiryanov/authclient/internal/repository/memory"
	"github.com/nkiryanov/authclient/internal/service/tokenstore"
)

type loggerFunc func(string, ...any)

func (f loggerFunc) Info(msg string, v ...any) { f(msg, v...) }

type brokenStore struct{}

func (brokenStore) Get(context.Context, tokenstore.Kind) (string, error) {
	return "", apperrors.ErrStoreUnavailable
}

// Server that echoes received headers back
func echoServer(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Got-Authorization", r.Header.Get("Authorization"))
		w.Header().Set("X-Got-Request-Id", r.Header.Get(RequestIDHeader))
		w.WriteHeader(http.StatusTeapot)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, ctx context.Context, client *http.Client, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := client.Do(req)
	if err == nil {
		_ = resp.Body.Close()
	}
	return resp, err
}

func TestBearer(t *testing.T) {
	srv := echoServer(t)

	prepare := func(t *testing.T) (*http.Client, *tokenstore.Store) {
		store, err := tokenstore.New(tokenstore.Config{}, memory.New(), nil)
		require.NoError(t, err)
		return &http.Client{Transport: Chain(nil, Bearer(store))}, store
	}

	t.Run("marked request with token", func(t *testing.T) {
		client, store := prepare(t)
		require.NoError(t, store.Save(t.Context(), tokenstore.KindAccess, "A1"))

		resp, err := get(t, WithToken(t.Context()), client, srv.URL)

		require.NoError(t, err)
		require.Equal(t, "Bearer A1", resp.Header.Get("X-Got-Authorization"))
	})

	t.Run("marked request without token", func(t *testing.T) {
		client, _ := prepare(t)

		resp, err := get(t, WithToken(t.Context()), client, srv.URL)

		require.NoError(t, err, "request must go out without header")
		require.Empty(t, resp.Header.Get("X-Got-Authorization"))
	})

	t.Run("unmarked request", func(t *testing.T) {
		client, store := prepare(t)
		require.NoError(t, store.Save(t.Context(), tokenstore.KindAccess, "A1"))

		resp, err := get(t, t.Context(), client, srv.URL)

		require.NoError(t, err)
		require.Empty(t, resp.Header.Get("X-Got-Authorization"), "token must not leak to unmarked requests")
	})

	t.Run("caller request untouched", func(t *testing.T) {
		_, store := prepare(t)
		require.NoError(t, store.Save(t.Context(), tokenstore.KindAccess, "A1"))

		var seen *http.Request
		rt := Bearer(store)(RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			seen = r
			return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
		}))
		req, err := http.NewRequestWithContext(WithToken(t.Context()), http.MethodGet, "http://example.com", nil)
		require.NoError(t, err)

		_, err = rt.RoundTrip(req)

		require.NoError(t, err)
		require.Empty(t, req.Header.Get("Authorization"))
		require.Equal(t, "Bearer A1", seen.Header.Get("Authorization"))
	})

	t.Run("store failure", func(t *testing.T) {
		client := &http.Client{Transport: Chain(nil, Bearer(brokenStore{}))}

		_, err := get(t, WithToken(t.Context()), client, srv.URL)

		require.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
	})
}

func TestRequestID(t *testing.T) {
	srv := echoServer(t)
	client := &http.Client{Transport: Chain(nil, RequestID())}

	t.Run("generated", func(t *testing.T) {
		first, err := get(t, t.Context(), client, srv.URL)
		require.NoError(t, err)
		second, err := get(t, t.Context(), client, srv.URL)
		require.NoError(t, err)

		firstID := first.Header.Get("X-Got-Request-Id")
		require.NoError(t, uuid.Validate(firstID))
		require.NotEqual(t, firstID, second.Header.Get("X-Got-Request-Id"))
	})

	t.Run("caller id kept", func(t *testing.T) {
		req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, srv.URL, nil)
		require.NoError(t, err)
		req.Header.Set(RequestIDHeader, "req-1")

		resp, err := client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close() // nolint:errcheck

		require.Equal(t, "req-1", resp.Header.Get("X-Got-Request-Id"))
	})
}

func TestLogger(t *testing.T) {
	srv := echoServer(t)

	t.Run("response logged", func(t *testing.T) {
		called := 0
		var msg string
		var args []any
		l := loggerFunc(func(m string, v ...any) {
			called++
			msg = m
			args = v
		})
		client := &http.Client{Transport: Chain(nil, RequestID(), Logger(l))}

		_, err := get(t, t.Context(), client, srv.URL+"/test")
		require.NoError(t, err)

		require.Equal(t, 1, called, "logger should be called once")
		require.Equal(t, "sent HTTP request", msg)
		require.Len(t, args, 10, "logger should log 10 fields")
		require.Equal(t, "method", args[0])
		require.Equal(t, "GET", args[1])
		require.Equal(t, "url", args[2])
		require.Equal(t, srv.URL+"/test", args[3])
		require.Equal(t, "duration", args[4])
		require.NotEmpty(t, args[5], "duration should not be empty")
		require.Equal(t, "status", args[6])
		require.Equal(t, http.StatusTeapot, args[7])
		require.Equal(t, "request_id", args[8])
		require.NotEmpty(t, args[9])
	})

	t.Run("transport failure logged", func(t *testing.T) {
		var args []any
		l := loggerFunc(func(_ string, v ...any) { args = v })
		failing := RoundTripperFunc(func(*http.Request) (*http.Response, error) {
			return nil, errors.New("connection refused")
		})
		client := &http.Client{Transport: Chain(failing, Logger(l))}

		_, err := get(t, t.Context(), client, "http://example.com")

		require.Error(t, err)
		require.Len(t, args, 12)
		require.Equal(t, 0, args[7], "no status without response")
		require.Equal(t, "error", args[10])
	})
}
