package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/readiness/internal/ai"
	"github.com/xxxsen/readiness/internal/model"
	"github.com/xxxsen/readiness/internal/vectorstore"
)

func seed(t *testing.T, store vectorstore.Store, emb ai.IEmbedder, session string, texts ...string) {
	ctx := context.Background()
	require.NoError(t, store.Reset(ctx, session))
	chunks := make([]model.DocumentChunk, 0, len(texts))
	for i, text := range texts {
		vec, err := emb.Embed(ctx, text, ai.TaskRetrievalDocument)
		require.NoError(t, err)
		chunks = append(chunks, model.DocumentChunk{
			ID: fmt.Sprintf("%s-%d", session, i), SessionID: session, Source: "doc.txt", Index: i, Text: text, Embedding: vec,
		})
	}
	require.NoError(t, store.Upsert(ctx, session, chunks))
}

func TestRetrieveOrderedAndBounded(t *testing.T) {
	emb := ai.NewLocalEmbedder(128)
	store := vectorstore.NewMemoryStore()
	seed(t, store, emb, "s1",
		"our data warehouse holds curated customer data",
		"the board approved an ai strategy",
		"employees receive machine learning training",
	)
	gw := NewGateway(emb, store)
	hits, err := gw.Retrieve(context.Background(), "s1", "data warehouse customer data", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	require.Equal(t, "s1-0", hits[0].Chunk.ID)
	require.GreaterOrEqual(t, hits[0].Score, hits[1].Score)
}

func TestRetrieveNotIndexed(t *testing.T) {
	gw := NewGateway(ai.NewLocalEmbedder(16), vectorstore.NewMemoryStore())
	_, err := gw.Retrieve(context.Background(), "missing", "anything", 3)
	require.True(t, errors.Is(err, ErrSessionNotIndexed))
}

func TestRetrieveIsolationUnderConcurrency(t *testing.T) {
	emb := ai.NewLocalEmbedder(64)
	store := vectorstore.NewMemoryStore()
	seed(t, store, emb, "a", "alpha governance", "alpha data")
	seed(t, store, emb, "b", "beta governance", "beta data")
	gw := NewGateway(emb, store)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		session := "a"
		if i%2 == 1 {
			session = "b"
		}
		wg.Add(1)
		go func(session string) {
			defer wg.Done()
			hits, err := gw.Retrieve(context.Background(), session, "governance data", 10)
			assert.NoError(t, err)
			assert.Len(t, hits, 2)
			for _, h := range hits {
				assert.Equal(t, session, h.Chunk.SessionID)
			}
		}(session)
	}
	wg.Wait()
}
