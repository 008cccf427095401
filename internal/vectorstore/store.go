package vectorstore

import (
	"context"
	"errors"
	"math"

	"github.com/xxxsen/readiness/internal/model"
)

var (
	ErrCollectionNotFound = errors.New("vector collection not found")
	ErrDimensionMismatch  = errors.New("vector dimension mismatch")
)

// Store holds one collection per session. Every read and write is scoped to
// a session ID; implementations must never return chunks of another session.
type Store interface {
	// Reset creates the session collection or empties an existing one.
	Reset(ctx context.Context, sessionID string) error
	Upsert(ctx context.Context, sessionID string, chunks []model.DocumentChunk) error
	// Query returns at most k chunks ordered by cosine similarity, highest
	// first.
	Query(ctx context.Context, sessionID string, vector []float32, k int) ([]model.Evidence, error)
	Exists(ctx context.Context, sessionID string) (bool, error)
	Drop(ctx context.Context, sessionID string) error
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
