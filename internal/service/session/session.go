package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nkiryanov/authclient/internal/apperrors"
	"github.com/nkiryanov/authclient/internal/logger"
	"github.com/nkiryanov/authclient/internal/service/auth/tokenmanager"
	"github.com/nkiryanov/authclient/internal/service/tokenstore"
)

type tokenGetter interface {
	Get(ctx context.Context, kind tokenstore.Kind) (string, error)
}

type Option func(*Validator)

// Replace wall clock, used in tests
func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		v.now = now
	}
}

// Validator tells whether stored token is still usable.
// Only token's own exp claim is checked, signature is left to the backend
type Validator struct {
	store   tokenGetter
	decoder tokenmanager.Decoder
	now     func() time.Time
	logger  logger.Logger
}

func New(store tokenGetter, decoder tokenmanager.Decoder, l logger.Logger, opts ...Option) *Validator {
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	v := &Validator{
		store:   store,
		decoder: decoder,
		now:     time.Now,
		logger:  l.With("component", "session"),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Check token of the kind and return the reason it can't be used:
//   - apperrors.ErrNoToken if nothing stored
//   - apperrors.ErrMalformedToken if token can't be decoded or has no exp
//   - apperrors.ErrExpiredToken if exp is not after now
//
// Store errors are returned as is
func (v *Validator) Check(ctx context.Context, kind tokenstore.Kind) error {
	token, err := v.store.Get(ctx, kind)
	if err != nil {
		return err
	}

	claims, err := v.decoder.Decode(token)
	if err != nil {
		return err
	}

	exp, ok := claims.Expiry()
	if !ok {
		return fmt.Errorf("%w: exp claim is missing", apperrors.ErrMalformedToken)
	}

	now := v.now()
	if !exp.After(now) {
		return fmt.Errorf("%w: expired at %s", apperrors.ErrExpiredToken, exp.Format(time.RFC3339))
	}

	return nil
}

// IsValid reports whether token of the kind is present and not expired
func (v *Validator) IsValid(ctx context.Context, kind tokenstore.Kind) bool {
	err := v.Check(ctx, kind)
	switch {
	case err == nil:
		return true
	case errors.Is(err, apperrors.ErrNoToken):
		v.logger.Debug("No session token", "kind", kind.String())
	case errors.Is(err, apperrors.ErrMalformedToken), errors.Is(err, apperrors.ErrExpiredToken):
		v.logger.Debug("Session token rejected", "kind", kind.String(), "error", err)
	default:
		v.logger.Warn("Failed to read session token", "kind", kind.String(), "error", err)
	}
	return false
}
