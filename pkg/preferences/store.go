// Package preferences persists small per-user settings, such as the preferred language,
// across runs.
package preferences

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// LanguageKey is the key the preferred language is stored under.
const LanguageKey = "preferred-language"

var ErrNotFound = errors.New("preference not found")

type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// Language returns the stored preferred language, or def when none is stored.
func Language(ctx context.Context, s Store, def string) (string, error) {
	v, err := s.Get(ctx, LanguageKey)
	if errors.Is(err, ErrNotFound) {
		return def, nil
	}
	if err != nil {
		return def, err
	}
	return v, nil
}

func SetLanguage(ctx context.Context, s Store, lang string) error {
	return s.Set(ctx, LanguageKey, lang)
}

type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

var _ Store = &MemoryStore{}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string]string{}}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
