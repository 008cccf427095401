package session

import (
	"context"
	"sync"

	"github.com/xxxsen/readiness/internal/model"
	appErr "github.com/xxxsen/readiness/internal/pkg/errors"
)

type memoryStore struct {
	mu       sync.RWMutex
	max      int
	sessions map[string]*model.Session
}

func init() {
	Register("memory", func(opts Options) (Store, error) {
		return NewMemoryStore(opts.MaxSessions), nil
	})
}

// NewMemoryStore holds at most max sessions; Insert fails with ErrTooMany
// once the store is full. A non-positive max means unbounded.
func NewMemoryStore(max int) Store {
	return &memoryStore{max: max, sessions: make(map[string]*model.Session)}
}

func (m *memoryStore) Insert(ctx context.Context, s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; ok {
		return appErr.ErrConflict
	}
	if m.max > 0 && len(m.sessions) >= m.max {
		return appErr.ErrTooMany
	}
	m.sessions[s.ID] = s.Clone()
	return nil
}

func (m *memoryStore) Get(ctx context.Context, id string) (*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	return s.Clone(), nil
}

func (m *memoryStore) Save(ctx context.Context, s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; !ok {
		return appErr.ErrNotFound
	}
	m.sessions[s.ID] = s.Clone()
	return nil
}

func (m *memoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return appErr.ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *memoryStore) ListExpired(ctx context.Context, cutoff int64, limit int) ([]string, error) {
	m.mu.RLock()
	items := make([]expiredEntry, 0)
	for id, s := range m.sessions {
		if s.Status.Terminal() && s.Mtime < cutoff {
			items = append(items, expiredEntry{id: id, mtime: s.Mtime})
		}
	}
	m.mu.RUnlock()
	return oldestFirst(items, limit), nil
}

func (m *memoryStore) Close() error {
	return nil
}
