package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/xxxsen/readiness/internal/ai"
	"github.com/xxxsen/readiness/internal/model"
	"github.com/xxxsen/readiness/internal/vectorstore"
)

var ErrSessionNotIndexed = errors.New("session has no indexed documents")

type Gateway struct {
	embedder ai.IEmbedder
	store    vectorstore.Store
}

// NewGateway expects an embedder already wrapped with retry and cache
// layers; the gateway itself calls it once per query.
func NewGateway(embedder ai.IEmbedder, store vectorstore.Store) *Gateway {
	return &Gateway{embedder: embedder, store: store}
}

// Retrieve returns at most k chunks of the session ordered by similarity to
// query, highest first. It never writes to the store.
func (g *Gateway) Retrieve(ctx context.Context, sessionID string, query string, k int) ([]model.Evidence, error) {
	ok, err := g.store.Exists(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("check collection: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotIndexed, sessionID)
	}
	if k <= 0 || strings.TrimSpace(query) == "" {
		return nil, nil
	}
	vec, err := g.embedder.Embed(ctx, query, ai.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := g.store.Query(ctx, sessionID, vec, k)
	if err != nil {
		if errors.Is(err, vectorstore.ErrCollectionNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotIndexed, sessionID)
		}
		return nil, fmt.Errorf("query collection: %w", err)
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}
