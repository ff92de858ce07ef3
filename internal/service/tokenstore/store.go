package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nkiryanov/authclient/internal/apperrors"
	"github.com/nkiryanov/authclient/internal/logger"
	"github.com/nkiryanov/authclient/internal/repository"
)

const (
	defaultAccessKey  = "token-trello"
	defaultRefreshKey = "refresh-token-trello"

	// Storage lifetime, independent of token own expiry
	defaultTTL = 365 * 24 * time.Hour
)

// Kind of session token
type Kind int

const (
	KindAccess Kind = iota
	KindRefresh
)

func (k Kind) String() string {
	switch k {
	case KindAccess:
		return "access"
	case KindRefresh:
		return "refresh"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Token store with sensible defaults
type Config struct {
	// Storage keys. If not set than default is used
	AccessKey  string
	RefreshKey string

	// Storage ttl. If not set than default is used
	TTL time.Duration
}

// Store holds at most one access and one refresh token
type Store struct {
	kv     repository.KV
	keys   map[Kind]string
	ttl    time.Duration
	logger logger.Logger
}

func New(cfg Config, kv repository.KV, l logger.Logger) (*Store, error) {
	if kv == nil {
		return nil, errors.New("storage must not be nil")
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	setDefaultString := func(field *string, def string) {
		if *field == "" {
			*field = def
		}
	}
	setDefaultString(&cfg.AccessKey, defaultAccessKey)
	setDefaultString(&cfg.RefreshKey, defaultRefreshKey)
	if cfg.TTL == 0 {
		cfg.TTL = defaultTTL
	}

	if cfg.AccessKey == cfg.RefreshKey {
		return nil, errors.New("access and refresh keys must differ")
	}

	return &Store{
		kv: kv,
		keys: map[Kind]string{
			KindAccess:  cfg.AccessKey,
			KindRefresh: cfg.RefreshKey,
		},
		ttl:    cfg.TTL,
		logger: l.With("component", "tokenstore"),
	}, nil
}

func (s *Store) key(kind Kind) (string, error) {
	key, ok := s.keys[kind]
	if !ok {
		return "", fmt.Errorf("unknown token kind %s", kind)
	}
	return key, nil
}

// Save token of the kind, overwriting the previous one.
// Empty value is rejected with apperrors.ErrEmptyToken, use Remove instead
func (s *Store) Save(ctx context.Context, kind Kind, value string) error {
	key, err := s.key(kind)
	if err != nil {
		return err
	}
	if value == "" {
		return fmt.Errorf("error while saving %s token. Err: %w", kind, apperrors.ErrEmptyToken)
	}

	if err := s.kv.Set(ctx, key, value, s.ttl); err != nil {
		return fmt.Errorf("error while saving %s token. Err: %w", kind, err)
	}

	s.logger.Debug("Token saved", "kind", kind.String(), "key", key)
	return nil
}

// Get token of the kind
// Return apperrors.ErrNoToken if there is no token
func (s *Store) Get(ctx context.Context, kind Kind) (string, error) {
	key, err := s.key(kind)
	if err != nil {
		return "", err
	}

	// Empty value can only come from a foreign writer
	value, err := s.kv.Get(ctx, key)
	switch {
	case err == nil && value != "":
		return value, nil
	case err == nil, errors.Is(err, apperrors.ErrKeyNotFound):
		return "", apperrors.ErrNoToken
	default:
		return "", fmt.Errorf("error while reading %s token. Err: %w", kind, err)
	}
}

// Remove token of the kind. Removing absent token is not an error
func (s *Store) Remove(ctx context.Context, kind Kind) error {
	key, err := s.key(kind)
	if err != nil {
		return err
	}

	if err := s.kv.Delete(ctx, key); err != nil {
		return fmt.Errorf("error while removing %s token. Err: %w", kind, err)
	}

	s.logger.Debug("Token removed", "kind", kind.String(), "key", key)
	return nil
}
