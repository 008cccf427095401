package vectorstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/readiness/internal/model"
)

func chunk(session, id string, vec ...float32) model.DocumentChunk {
	return model.DocumentChunk{ID: id, SessionID: session, Source: "doc", Text: id, Embedding: vec}
}

func TestMemoryStoreQueryOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Reset(ctx, "s1"))
	require.NoError(t, s.Upsert(ctx, "s1", []model.DocumentChunk{
		chunk("s1", "a", 1, 0),
		chunk("s1", "b", 0.7, 0.7),
		chunk("s1", "c", 0, 1),
	}))
	res, err := s.Query(ctx, "s1", []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	require.Equal(t, "a", res[0].Chunk.ID)
	require.Equal(t, "b", res[1].Chunk.ID)
	require.GreaterOrEqual(t, res[0].Score, res[1].Score)
	require.Nil(t, res[0].Chunk.Embedding)
}

func TestMemoryStoreIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Reset(ctx, "s1"))
	require.NoError(t, s.Reset(ctx, "s2"))
	require.NoError(t, s.Upsert(ctx, "s1", []model.DocumentChunk{chunk("s1", "one", 1, 0)}))
	require.NoError(t, s.Upsert(ctx, "s2", []model.DocumentChunk{chunk("s2", "two", 1, 0)}))

	res, err := s.Query(ctx, "s1", []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, res, 1)
	require.Equal(t, "s1", res[0].Chunk.SessionID)

	err = s.Upsert(ctx, "s1", []model.DocumentChunk{chunk("s2", "x", 1, 0)})
	require.Error(t, err)
}

func TestMemoryStoreResetReplaces(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	for i := 0; i < 2; i++ {
		require.NoError(t, s.Reset(ctx, "s1"))
		require.NoError(t, s.Upsert(ctx, "s1", []model.DocumentChunk{chunk("s1", "a", 1, 0), chunk("s1", "b", 0, 1)}))
	}
	res, err := s.Query(ctx, "s1", []float32{1, 1}, 10)
	require.NoError(t, err)
	require.Len(t, res, 2)
}

func TestMemoryStoreMissingCollection(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_, err := s.Query(ctx, "nope", []float32{1}, 3)
	require.True(t, errors.Is(err, ErrCollectionNotFound))
	ok, err := s.Exists(ctx, "nope")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Reset(ctx, "s1"))
	require.NoError(t, s.Drop(ctx, "s1"))
	ok, err = s.Exists(ctx, "s1")
	require.NoError(t, err)
	require.False(t, ok)
}
