package tokenmanager

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nkiryanov/authclient/internal/apperrors"
)

// Claims decoded from token payload
// Any registered claim may be absent, including exp
type Claims struct {
	jwt.RegisteredClaims
}

// Expiry returns the exp claim as time, false if token has none
func (c Claims) Expiry() (time.Time, bool) {
	if c.ExpiresAt == nil {
		return time.Time{}, false
	}
	return c.ExpiresAt.Time, true
}

// Decoder reads claims from a token without checking who signed it.
// Everything decoded this way is untrusted: the backend checks the token on every authenticated request
type Decoder interface {
	Decode(token string) (Claims, error)
}

// Verifier checks token signature and returns trusted claims.
// It is a backend capability: the client holds no signing keys and never implements it
type Verifier interface {
	Verify(token string) (Claims, error)
}

type UnverifiedDecoder struct {
	parser *jwt.Parser
}

func NewDecoder() *UnverifiedDecoder {
	return &UnverifiedDecoder{parser: jwt.NewParser()}
}

// Decode token claims
// Return error wrapping apperrors.ErrMalformedToken if token is not a well formed JWT
func (d *UnverifiedDecoder) Decode(token string) (Claims, error) {
	claims := Claims{}

	_, _, err := d.parser.ParseUnverified(token, &claims)
	switch {
	case err == nil:
		return claims, nil
	// Claims are decoded already, parser only complains about signing method, which matters for verification only
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return claims, nil
	default:
		return Claims{}, fmt.Errorf("%w: %w", apperrors.ErrMalformedToken, err)
	}
}
