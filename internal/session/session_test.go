package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/readiness/internal/model"
	appErr "github.com/xxxsen/readiness/internal/pkg/errors"
	"github.com/xxxsen/readiness/internal/repo"
	"github.com/xxxsen/readiness/internal/testutil"
)

func newSession(id string, status model.Status, mtime int64) *model.Session {
	return &model.Session{
		ID:               id,
		OrganisationName: "Acme",
		Status:           status,
		Ctime:            mtime,
		Mtime:            mtime,
	}
}

func exerciseStore(t *testing.T, store Store) {
	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, newSession("a", model.StatusQueued, 10)))
	require.ErrorIs(t, store.Insert(ctx, newSession("a", model.StatusQueued, 10)), appErr.ErrConflict)

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, model.StatusQueued, got.Status)

	got.Status = model.StatusComplete
	got.ProgressPct = 100
	got.Errors = append(got.Errors, model.StageError{Stage: model.StatusScoring, Kind: model.ErrorKindScorer, Message: "boom"})
	require.NoError(t, store.Save(ctx, got))

	again, err := store.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, model.StatusComplete, again.Status)
	require.Equal(t, 100, again.ProgressPct)
	require.Len(t, again.Errors, 1)

	require.NoError(t, store.Insert(ctx, newSession("b", model.StatusScoring, 5)))
	require.NoError(t, store.Insert(ctx, newSession("c", model.StatusError, 3)))

	ids, err := store.ListExpired(ctx, 20, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"c", "a"}, ids)

	ids, err = store.ListExpired(ctx, 5, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"c"}, ids)

	require.NoError(t, store.Delete(ctx, "a"))
	_, err = store.Get(ctx, "a")
	require.ErrorIs(t, err, appErr.ErrNotFound)
	require.ErrorIs(t, store.Save(ctx, newSession("a", model.StatusQueued, 1)), appErr.ErrNotFound)
	require.ErrorIs(t, store.Delete(ctx, "a"), appErr.ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	store, err := New("memory", Options{MaxSessions: 10})
	require.NoError(t, err)
	exerciseStore(t, store)
}

func TestMemoryStoreCapacity(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(1)
	require.NoError(t, store.Insert(ctx, newSession("a", model.StatusQueued, 1)))
	require.ErrorIs(t, store.Insert(ctx, newSession("b", model.StatusQueued, 1)), appErr.ErrTooMany)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	require.NoError(t, store.Insert(ctx, newSession("a", model.StatusQueued, 1)))
	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	got.Status = model.StatusScoring
	again, err := store.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, model.StatusQueued, again.Status)
}

func TestBadgerStore(t *testing.T) {
	store, err := New("badger", Options{Data: map[string]interface{}{"in_memory": true}})
	require.NoError(t, err)
	defer store.Close()
	exerciseStore(t, store)
}

func TestBadgerStorePersists(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenBadgerStore(dir, false)
	require.NoError(t, err)
	require.NoError(t, store.Insert(context.Background(), newSession("a", model.StatusComplete, 1)))
	require.NoError(t, store.Close())

	store, err = OpenBadgerStore(dir, false)
	require.NoError(t, err)
	defer store.Close()
	got, err := store.Get(context.Background(), "a")
	require.NoError(t, err)
	require.Equal(t, "Acme", got.OrganisationName)
}

func TestPostgresStore(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	_, err := db.Exec(`DELETE FROM assessment_sessions`)
	require.NoError(t, err)
	exerciseStore(t, NewPostgresStore(repo.NewSessionRepo(db)))
}

func TestUnknownStore(t *testing.T) {
	_, err := New("etcd", Options{})
	require.Error(t, err)
}
