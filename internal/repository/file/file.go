package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nkiryanov/authclient/internal/apperrors"
)

// Cookie-like record saved to the jar file
type record struct {
	Value     string    `json:"value"`
	Path      string    `json:"path"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Key/value storage persisted as JSON file
// Shaped like a browser cookie jar: every entry is root scoped and carries its expiry
type Storage struct {
	path string
	now  func() time.Time

	mu sync.Mutex
}

type Option func(*Storage)

func WithClock(now func() time.Time) Option {
	return func(s *Storage) {
		s.now = now
	}
}

func New(path string, opts ...Option) (*Storage, error) {
	if path == "" {
		return nil, errors.New("jar file path must not be empty")
	}

	s := &Storage{path: path, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Storage) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	jar, err := s.read()
	if err != nil {
		return err
	}

	jar[key] = record{Value: value, Path: "/", ExpiresAt: s.now().Add(ttl).UTC()}
	return s.write(jar)
}

func (s *Storage) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	jar, err := s.read()
	if err != nil {
		return "", err
	}

	r, ok := jar[key]
	if !ok {
		return "", apperrors.ErrKeyNotFound
	}

	if !r.ExpiresAt.After(s.now()) {
		delete(jar, key)
		if err := s.write(jar); err != nil {
			return "", err
		}
		return "", apperrors.ErrKeyNotFound
	}

	return r.Value, nil
}

func (s *Storage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	jar, err := s.read()
	if err != nil {
		return err
	}

	if _, ok := jar[key]; !ok {
		return nil
	}

	delete(jar, key)
	return s.write(jar)
}

// Missing file is an empty jar
func (s *Storage) read() (map[string]record, error) {
	jar := make(map[string]record)

	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return jar, nil
	case err != nil:
		return nil, fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}

	if len(data) == 0 {
		return jar, nil
	}

	if err := json.Unmarshal(data, &jar); err != nil {
		return nil, fmt.Errorf("%w: jar file %s is corrupted: %v", apperrors.ErrStoreUnavailable, s.path, err)
	}

	return jar, nil
}

// Write to temp file in the same dir and rename it over the jar, so readers never see partial file
func (s *Storage) write(jar map[string]record) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}

	data, err := json.MarshalIndent(jar, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
	defer os.Remove(tmp.Name()) // nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
	return nil
}
