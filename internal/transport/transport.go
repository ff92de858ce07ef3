package transport

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/authclient/internal/apperrors"
	"github.com/nkiryanov/authclient/internal/service/tokenstore"
)

const RequestIDHeader = "X-Request-Id"

type tokenGetter interface {
	Get(ctx context.Context, kind tokenstore.Kind) (string, error)
}

type logger interface {
	Info(msg string, args ...any)
}

// RoundTripperFunc adapts function to http.RoundTripper
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// Bearer attaches 'Authorization: Bearer <access token>' to requests marked with WithToken.
// Request goes out unchanged if nothing is stored: backend decides what to do with anonymous call
func Bearer(store tokenGetter) func(http.RoundTripper) http.RoundTripper {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if !TokenRequested(r.Context()) {
				return next.RoundTrip(r)
			}

			token, err := store.Get(r.Context(), tokenstore.KindAccess)
			switch {
			case err == nil:
				r = r.Clone(r.Context())
				SetBearer(r.Header, token)
			case errors.Is(err, apperrors.ErrNoToken):
			default:
				return nil, err
			}

			return next.RoundTrip(r)
		})
	}
}

// SetBearer writes authorization header for the token
func SetBearer(h http.Header, token string) {
	h.Set("Authorization", "Bearer "+token)
}

// RequestID sets unique X-Request-Id unless caller already set one
func RequestID() func(http.RoundTripper) http.RoundTripper {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if r.Header.Get(RequestIDHeader) == "" {
				r = r.Clone(r.Context())
				r.Header.Set(RequestIDHeader, uuid.NewString())
			}
			return next.RoundTrip(r)
		})
	}
}

// Logger logs every outgoing request once response headers arrived or transport failed
func Logger(l logger) func(http.RoundTripper) http.RoundTripper {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()

			resp, err := next.RoundTrip(r)

			status := 0
			if resp != nil {
				status = resp.StatusCode
			}
			args := []any{
				"method", r.Method,
				"url", r.URL.Redacted(),
				"duration", time.Since(start),
				"status", status,
				"request_id", r.Header.Get(RequestIDHeader),
			}
			if err != nil {
				args = append(args, "error", err)
			}
			l.Info("sent HTTP request", args...)

			return resp, err
		})
	}
}

// Chain wraps base with middlewares, the first one is the outermost
func Chain(base http.RoundTripper, middlewares ...func(http.RoundTripper) http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	for i := len(middlewares) - 1; i >= 0; i-- {
		base = middlewares[i](base)
	}
	return base
}
