package ai

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

const defaultLocalDimensions = 256

type localConfig struct {
	Dimensions int `json:"dimensions"`
}

// localEmbedProvider is a feature hashing embedder. It needs no network and
// maps equal text to equal vectors, which makes it usable offline and in
// tests. Similarity follows shared word and word-bigram overlap.
type localEmbedProvider struct {
	dims int
}

func NewLocalEmbedder(dims int) IEmbedder {
	if dims <= 0 {
		dims = defaultLocalDimensions
	}
	return NewEmbedder(&localEmbedProvider{dims: dims}, "hash")
}

func (p *localEmbedProvider) Name() string {
	return "local"
}

func (p *localEmbedProvider) Embed(ctx context.Context, model string, text string, taskType string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec := make([]float64, p.dims)
	tokens := tokenize(text)
	for i, tok := range tokens {
		p.add(vec, tok, 1)
		if i > 0 {
			p.add(vec, tokens[i-1]+" "+tok, 0.5)
		}
	}
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	out := make([]float32, p.dims)
	if norm == 0 {
		return out, nil
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out, nil
}

func (p *localEmbedProvider) add(vec []float64, term string, weight float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(term))
	sum := h.Sum64()
	idx := int(sum % uint64(p.dims))
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	vec[idx] += weight
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) < 2 {
			continue
		}
		out = append(out, f)
	}
	return out
}

func init() {
	RegisterEmbed("local", func(args interface{}) (IEmbedProvider, error) {
		cfg := &localConfig{}
		if err := decodeConfig(args, cfg); err != nil {
			return nil, err
		}
		if cfg.Dimensions <= 0 {
			cfg.Dimensions = defaultLocalDimensions
		}
		return &localEmbedProvider{dims: cfg.Dimensions}, nil
	})
}
