package vectorstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/xxxsen/readiness/internal/model"
)

type collection struct {
	dims   int
	order  []string
	chunks map[string]model.DocumentChunk
}

// MemoryStore is a brute force cosine store kept in process memory.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: map[string]*collection{}}
}

func (s *MemoryStore) Reset(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[sessionID] = &collection{chunks: map[string]model.DocumentChunk{}}
	return nil
}

func (s *MemoryStore) Upsert(ctx context.Context, sessionID string, chunks []model.DocumentChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[sessionID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, sessionID)
	}
	for _, chunk := range chunks {
		if chunk.SessionID != sessionID {
			return fmt.Errorf("chunk %s belongs to session %s", chunk.ID, chunk.SessionID)
		}
		if c.dims == 0 {
			c.dims = len(chunk.Embedding)
		}
		if len(chunk.Embedding) != c.dims {
			return fmt.Errorf("%w: want %d, got %d", ErrDimensionMismatch, c.dims, len(chunk.Embedding))
		}
		if _, exists := c.chunks[chunk.ID]; !exists {
			c.order = append(c.order, chunk.ID)
		}
		chunk.Embedding = append([]float32(nil), chunk.Embedding...)
		c.chunks[chunk.ID] = chunk
	}
	return nil
}

func (s *MemoryStore) Query(ctx context.Context, sessionID string, vector []float32, k int) ([]model.Evidence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, sessionID)
	}
	if k <= 0 {
		return nil, nil
	}
	if c.dims != 0 && len(vector) != c.dims {
		return nil, fmt.Errorf("%w: want %d, got %d", ErrDimensionMismatch, c.dims, len(vector))
	}
	results := make([]model.Evidence, 0, len(c.order))
	for _, id := range c.order {
		chunk := c.chunks[id]
		score := cosine(chunk.Embedding, vector)
		chunk.Embedding = nil
		results = append(results, model.Evidence{Chunk: chunk, Score: score})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (s *MemoryStore) Exists(ctx context.Context, sessionID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[sessionID]
	return ok, nil
}

func (s *MemoryStore) Drop(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, sessionID)
	return nil
}
