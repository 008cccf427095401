package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakePruner struct {
	cutoff int64
	err    error
}

func (f *fakePruner) DeleteBefore(ctx context.Context, cutoff int64) (int64, error) {
	f.cutoff = cutoff
	return 3, f.err
}

type fakeEvicter struct {
	retention time.Duration
	err       error
}

func (f *fakeEvicter) EvictExpired(ctx context.Context, retention time.Duration) (int, error) {
	f.retention = retention
	return 2, f.err
}

func TestEmbeddingCacheCleanupJob(t *testing.T) {
	pruner := &fakePruner{}
	j := NewEmbeddingCacheCleanupJob(pruner, 0)
	now := time.Unix(1700000000, 0)
	j.now = func() time.Time { return now }
	require.Equal(t, "embedding_cache_cleanup", j.Name())
	require.NoError(t, j.Run(context.Background()))
	require.Equal(t, now.Add(-30*24*time.Hour).Unix(), pruner.cutoff)

	pruner.err = errors.New("db down")
	require.Error(t, j.Run(context.Background()))
	require.NoError(t, NewEmbeddingCacheCleanupJob(nil, 1).Run(context.Background()))
}

func TestSessionEvictionJob(t *testing.T) {
	evicter := &fakeEvicter{}
	j := NewSessionEvictionJob(evicter, 6)
	require.Equal(t, "session_eviction", j.Name())
	require.NoError(t, j.Run(context.Background()))
	require.Equal(t, 6*time.Hour, evicter.retention)

	evicter.err = errors.New("store down")
	require.Error(t, j.Run(context.Background()))
}
