package sealed

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/nkiryanov/authclient/internal/apperrors"
	"github.com/nkiryanov/authclient/internal/repository"
)

// KeySize is the secret key length in bytes
const KeySize = chacha20poly1305.KeySize

// Storage seals values with XChaCha20-Poly1305 before handing them to the wrapped storage
// The key name is bound as additional data, so a sealed value moved to another key does not open
type Storage struct {
	next repository.KV
	aead cipher.AEAD
}

// New wraps storage with sealing; secret is hex encoded key of KeySize bytes
func New(next repository.KV, secret string) (*Storage, error) {
	key, err := hex.DecodeString(secret)
	if err != nil {
		return nil, fmt.Errorf("secret key must be hex encoded: %w", err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("secret key must be %d bytes, got %d", KeySize, len(key))
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("error while creating cipher. Err: %w", err)
	}

	return &Storage{next: next, aead: aead}, nil
}

func (s *Storage) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(value)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("error while generating nonce. Err: %w", err)
	}

	sealed := s.aead.Seal(nonce, nonce, []byte(value), []byte(key))
	return s.next.Set(ctx, key, base64.RawURLEncoding.EncodeToString(sealed), ttl)
}

func (s *Storage) Get(ctx context.Context, key string) (string, error) {
	raw, err := s.next.Get(ctx, key)
	if err != nil {
		return "", err
	}

	sealed, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrSealBroken, err)
	}
	if len(sealed) < s.aead.NonceSize() {
		return "", fmt.Errorf("%w: value too short", apperrors.ErrSealBroken)
	}

	nonce, ciphertext := sealed[:s.aead.NonceSize()], sealed[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ciphertext, []byte(key))
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrSealBroken, err)
	}

	return string(plain), nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	return s.next.Delete(ctx, key)
}
