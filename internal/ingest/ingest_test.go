package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/readiness/internal/ai"
	"github.com/xxxsen/readiness/internal/extract"
	"github.com/xxxsen/readiness/internal/vectorstore"
)

func TestClean(t *testing.T) {
	in := "  Title\t\t here \r\n\r\n\r\n\r\nBody\x00 text\x07\n\n\n\nend  \xff"
	require.Equal(t, "Title here\n\nBody text\n\nend \uFFFD", Clean(in))
	require.Equal(t, "", Clean(" \n\t \n"))
	// e + combining acute becomes the precomposed rune
	require.Equal(t, "caf\u00e9", Clean("cafe\u0301"))
}

func reconstruct(text string, spans []Span) string {
	var sb strings.Builder
	prevEnd := 0
	for _, s := range spans {
		if s.End > prevEnd {
			sb.WriteString(text[prevEnd:s.End])
			prevEnd = s.End
		}
	}
	return sb.String()
}

func sampleText(n int) string {
	words := []string{"data", "platform", "governance", "pipeline", "model", "ünïcödé", "数据", "review."}
	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.WriteString(words[i%len(words)])
		if i%37 == 36 {
			sb.WriteString("\n\n")
		} else {
			sb.WriteByte(' ')
		}
	}
	return Clean(sb.String())
}

func TestChunkerRoundTrip(t *testing.T) {
	text := sampleText(3000)
	c := NewChunker(1000, 0.15)
	spans := c.Split(text)
	require.Greater(t, len(spans), 1)
	require.Equal(t, 0, spans[0].Start)
	require.Equal(t, len(text), spans[len(spans)-1].End)
	require.Equal(t, text, reconstruct(text, spans))

	for i, s := range spans {
		chunk := text[s.Start:s.End]
		require.True(t, utf8.ValidString(chunk))
		require.LessOrEqual(t, utf8.RuneCountInString(chunk), 1000)
		if i > 0 {
			require.Less(t, s.Start, spans[i-1].End, "chunk %d must overlap its predecessor", i)
			require.Greater(t, s.Start, spans[i-1].Start)
		}
	}
}

func TestChunkerNoWhitespace(t *testing.T) {
	text := strings.Repeat("数", 2500)
	spans := NewChunker(1000, 0.15).Split(text)
	require.Equal(t, text, reconstruct(text, spans))
	for _, s := range spans {
		require.True(t, utf8.ValidString(text[s.Start:s.End]))
	}
}

func TestChunkerShortText(t *testing.T) {
	spans := NewChunker(1000, 0.15).Split("short text")
	require.Equal(t, []Span{{Start: 0, End: 10}}, spans)
	require.Empty(t, NewChunker(1000, 0.15).Split(""))
}

func newTestBuilder(store vectorstore.Store, cfg Config) *Builder {
	return NewBuilder(extract.NewRegistry(), ai.NewLocalEmbedder(64), store, cfg)
}

func TestBuilderBuild(t *testing.T) {
	ctx := context.Background()
	store := vectorstore.NewMemoryStore()
	b := newTestBuilder(store, Config{ChunkSize: 200})
	var last float64
	res, err := b.Build(ctx, "s1", []Input{
		{Name: "a.txt", Data: []byte(sampleText(400))},
		{Name: "logo.png", Data: []byte("png")},
	}, func(f float64) {
		if f > last {
			last = f
		}
	})
	require.NoError(t, err)
	require.Len(t, res.Documents, 2)
	require.False(t, res.Documents[0].Skipped)
	require.True(t, res.Documents[1].Skipped)
	require.Greater(t, res.Chunks, 1)
	require.Equal(t, 1.0, last)

	hits, err := store.Query(ctx, "s1", mustEmbed(t, "governance pipeline"), 100)
	require.NoError(t, err)
	require.Len(t, hits, res.Chunks)

	// rebuilding replaces the collection instead of duplicating it
	_, err = b.Build(ctx, "s1", []Input{{Name: "a.txt", Data: []byte(sampleText(400))}}, nil)
	require.NoError(t, err)
	hits, err = store.Query(ctx, "s1", mustEmbed(t, "governance pipeline"), 1000)
	require.NoError(t, err)
	require.Len(t, hits, res.Chunks)
}

func mustEmbed(t *testing.T, text string) []float32 {
	vec, err := ai.NewLocalEmbedder(64).Embed(context.Background(), text, ai.TaskRetrievalQuery)
	require.NoError(t, err)
	return vec
}

func TestBuilderNoUsableText(t *testing.T) {
	store := vectorstore.NewMemoryStore()
	b := newTestBuilder(store, Config{})
	res, err := b.Build(context.Background(), "s1", []Input{
		{Name: "empty.txt", Data: []byte("  \n\n ")},
		{Name: "broken.pdf", Data: []byte("nope")},
	}, nil)
	require.True(t, errors.Is(err, ErrNoUsableText))
	require.Len(t, res.Documents, 2)
	ok, _ := store.Exists(context.Background(), "s1")
	require.False(t, ok)
}

func TestBuilderBounds(t *testing.T) {
	b := newTestBuilder(vectorstore.NewMemoryStore(), Config{MaxDocuments: 1, ChunkSize: 100, MaxTotalChunks: 3})
	_, err := b.Build(context.Background(), "s1", []Input{{Name: "a.txt"}, {Name: "b.txt"}}, nil)
	require.True(t, errors.Is(err, ErrCorpusTooLarge))

	_, err = b.Build(context.Background(), "s1", []Input{{Name: "a.txt", Data: []byte(sampleText(500))}}, nil)
	require.True(t, errors.Is(err, ErrCorpusTooLarge))

	b = newTestBuilder(vectorstore.NewMemoryStore(), Config{MaxDocumentBytes: 4})
	res, err := b.Build(context.Background(), "s1", []Input{{Name: "a.txt", Data: []byte("too long")}}, nil)
	require.True(t, errors.Is(err, ErrNoUsableText))
	require.True(t, res.Documents[0].Skipped)
}

type cancellingEmbedder struct {
	ai.IEmbedder
	cancel context.CancelFunc
}

func (c *cancellingEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	c.cancel()
	return c.IEmbedder.Embed(context.Background(), text, taskType)
}

func TestBuilderCancelledDoesNotWriteCollection(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := vectorstore.NewMemoryStore()
	emb := &cancellingEmbedder{IEmbedder: ai.NewLocalEmbedder(64), cancel: cancel}
	b := NewBuilder(extract.NewRegistry(), emb, store, Config{ChunkSize: 200})

	_, err := b.Build(ctx, "s1", []Input{{Name: "a.txt", Data: []byte(sampleText(400))}}, nil)
	require.ErrorIs(t, err, context.Canceled)
	exists, err := store.Exists(context.Background(), "s1")
	require.NoError(t, err)
	require.False(t, exists)
}
