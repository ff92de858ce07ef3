package memory

import (
	"context"
	"sync"
	"time"

	"github.com/nkiryanov/authclient/internal/apperrors"
)

type entry struct {
	value     string
	expiresAt time.Time
}

// In-process key/value storage
// Everything is lost when the process exits
type Storage struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

type Option func(*Storage)

// Override wall clock, useful to test expiry
func WithClock(now func() time.Time) Option {
	return func(s *Storage) {
		s.now = now
	}
}

func New(opts ...Option) *Storage {
	s := &Storage{
		entries: make(map[string]entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Storage) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = entry{value: value, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *Storage) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return "", apperrors.ErrKeyNotFound
	}

	if !e.expiresAt.After(s.now()) {
		delete(s.entries, key)
		return "", apperrors.ErrKeyNotFound
	}

	return e.value, nil
}

func (s *Storage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}
