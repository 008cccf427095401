package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xxxsen/readiness/internal/ai"
	"github.com/xxxsen/readiness/internal/extract"
	"github.com/xxxsen/readiness/internal/model"
	"github.com/xxxsen/readiness/internal/vectorstore"
)

var (
	ErrNoUsableText   = errors.New("no usable text extracted from documents")
	ErrCorpusTooLarge = errors.New("document corpus exceeds limits")
)

const (
	defaultMaxDocuments     = 20
	defaultMaxDocumentBytes = 20 << 20
	defaultMaxTotalChunks   = 2000
	defaultEmbedConcurrency = 4
	upsertBatchSize         = 100
)

type Config struct {
	ChunkSize        int
	ChunkOverlap     float64
	MaxDocuments     int
	MaxDocumentBytes int64
	MaxTotalChunks   int
	EmbedConcurrency int
}

type Input struct {
	Name string
	Type string
	Data []byte
}

type Result struct {
	Documents []model.DocumentInfo
	Chunks    int
	Pages     int
}

// Progress reports the fraction of the build done, in [0,1].
type Progress func(fraction float64)

type Builder struct {
	extractors *extract.Registry
	embedder   ai.IEmbedder
	store      vectorstore.Store
	chunker    *Chunker
	cfg        Config
}

func NewBuilder(extractors *extract.Registry, embedder ai.IEmbedder, store vectorstore.Store, cfg Config) *Builder {
	if cfg.MaxDocuments <= 0 {
		cfg.MaxDocuments = defaultMaxDocuments
	}
	if cfg.MaxDocumentBytes <= 0 {
		cfg.MaxDocumentBytes = defaultMaxDocumentBytes
	}
	if cfg.MaxTotalChunks <= 0 {
		cfg.MaxTotalChunks = defaultMaxTotalChunks
	}
	if cfg.EmbedConcurrency <= 0 {
		cfg.EmbedConcurrency = defaultEmbedConcurrency
	}
	return &Builder{
		extractors: extractors,
		embedder:   embedder,
		store:      store,
		chunker:    NewChunker(cfg.ChunkSize, cfg.ChunkOverlap),
		cfg:        cfg,
	}
}

// Build extracts, cleans, chunks and embeds the inputs and replaces the
// session collection with the result. Documents that fail extraction are
// recorded as skipped. Extraction accounts for the first 30% of progress,
// embedding for the next 60% and the store write for the rest.
func (b *Builder) Build(ctx context.Context, sessionID string, inputs []Input, progress Progress) (*Result, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("session_id", sessionID))
	if progress == nil {
		progress = func(float64) {}
	}
	if len(inputs) > b.cfg.MaxDocuments {
		return nil, fmt.Errorf("%w: %d documents, limit %d", ErrCorpusTooLarge, len(inputs), b.cfg.MaxDocuments)
	}
	res := &Result{Documents: make([]model.DocumentInfo, 0, len(inputs))}
	var chunks []model.DocumentChunk
	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info, docChunks := b.prepare(ctx, sessionID, i, in)
		res.Documents = append(res.Documents, info)
		if info.Skipped {
			logger.Warn("document skipped", zap.String("document", in.Name), zap.String("reason", info.Reason))
		}
		res.Pages += info.Pages
		chunks = append(chunks, docChunks...)
		if len(chunks) > b.cfg.MaxTotalChunks {
			return nil, fmt.Errorf("%w: more than %d chunks", ErrCorpusTooLarge, b.cfg.MaxTotalChunks)
		}
		progress(0.3 * float64(i+1) / float64(len(inputs)))
	}
	if len(chunks) == 0 {
		return res, ErrNoUsableText
	}
	res.Chunks = len(chunks)

	if err := b.embed(ctx, chunks, progress); err != nil {
		return nil, err
	}
	// A cancelled build must not recreate a collection dropped meanwhile.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := b.store.Reset(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("reset collection: %w", err)
	}
	for start := 0; start < len(chunks); start += upsertBatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := start + upsertBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		if err := b.store.Upsert(ctx, sessionID, chunks[start:end]); err != nil {
			return nil, fmt.Errorf("upsert chunks: %w", err)
		}
	}
	progress(1)
	logger.Info("chunk store built",
		zap.Int("documents", len(inputs)),
		zap.Int("chunks", len(chunks)),
		zap.Int("pages", res.Pages),
	)
	return res, nil
}

func (b *Builder) prepare(ctx context.Context, sessionID string, docIdx int, in Input) (model.DocumentInfo, []model.DocumentChunk) {
	info := model.DocumentInfo{
		Name: in.Name,
		Type: extract.DetectType(in.Name, in.Type),
		Size: int64(len(in.Data)),
	}
	if info.Size > b.cfg.MaxDocumentBytes {
		info.Skipped = true
		info.Reason = fmt.Sprintf("document exceeds %d bytes", b.cfg.MaxDocumentBytes)
		return info, nil
	}
	extracted, err := b.extractors.Extract(ctx, in.Name, in.Type, in.Data)
	if err != nil {
		info.Skipped = true
		info.Reason = err.Error()
		return info, nil
	}
	clean := Clean(extracted.Text)
	info.Chars = len([]rune(clean))
	info.Pages = extracted.Pages
	if clean == "" {
		info.Skipped = true
		info.Reason = "no text content"
		return info, nil
	}
	spans := b.chunker.Split(clean)
	chunks := make([]model.DocumentChunk, 0, len(spans))
	for i, span := range spans {
		chunks = append(chunks, model.DocumentChunk{
			ID:        fmt.Sprintf("%s-%03d-%04d", sessionID, docIdx, i),
			SessionID: sessionID,
			Source:    in.Name,
			Index:     i,
			Start:     span.Start,
			End:       span.End,
			Text:      clean[span.Start:span.End],
		})
	}
	info.Chunks = len(chunks)
	return info, chunks
}

func (b *Builder) embed(ctx context.Context, chunks []model.DocumentChunk, progress Progress) error {
	var done int64
	total := float64(len(chunks))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(b.cfg.EmbedConcurrency)
	for i := range chunks {
		i := i
		eg.Go(func() error {
			vec, err := b.embedder.Embed(egCtx, chunks[i].Text, ai.TaskRetrievalDocument)
			if err != nil {
				return fmt.Errorf("embed chunk %s: %w", chunks[i].ID, err)
			}
			if len(vec) == 0 {
				return fmt.Errorf("embed chunk %s: empty vector", chunks[i].ID)
			}
			chunks[i].Embedding = vec
			n := atomic.AddInt64(&done, 1)
			progress(0.3 + 0.6*float64(n)/total)
			return nil
		})
	}
	return eg.Wait()
}
