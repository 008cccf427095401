package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// ProviderSpec names one provider entry of a failover group.
type ProviderSpec struct {
	Name     string      `json:"name"`
	Provider string      `json:"provider"`
	Model    string      `json:"model"`
	Data     interface{} `json:"data"`
}

type GeneratorEntry struct {
	Name      string
	Generator IGenerator
}

type EmbedderEntry struct {
	Name     string
	Embedder IEmbedder
}

type groupGenerator struct {
	items []GeneratorEntry
}

func NewGroupGenerator(items []GeneratorEntry) IGenerator {
	if len(items) == 0 {
		return nil
	}
	return &groupGenerator{items: items}
}

func (g *groupGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for i, item := range g.items {
		if item.Generator == nil {
			continue
		}
		res, err := item.Generator.Generate(ctx, prompt)
		if err == nil {
			return res, nil
		}
		lastErr = err
		logutil.GetLogger(ctx).Warn("generator failed", zap.Int("index", i), zap.String("name", item.Name), zap.Error(err))
		if ctx.Err() != nil {
			break
		}
	}
	if lastErr == nil {
		return "", ErrUnavailable
	}
	return "", lastErr
}

type groupEmbedder struct {
	items []EmbedderEntry
}

func NewGroupEmbedder(items []EmbedderEntry) IEmbedder {
	if len(items) == 0 {
		return nil
	}
	return &groupEmbedder{items: items}
}

func (g *groupEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	var lastErr error
	for i, item := range g.items {
		if item.Embedder == nil {
			continue
		}
		res, err := item.Embedder.Embed(ctx, text, taskType)
		if err == nil {
			return res, nil
		}
		lastErr = err
		logutil.GetLogger(ctx).Warn("embedder failed", zap.Int("index", i), zap.String("name", item.Name), zap.Error(err))
		if ctx.Err() != nil {
			break
		}
	}
	if lastErr == nil {
		return nil, ErrUnavailable
	}
	return nil, lastErr
}

// ModelName joins member model names. Vectors from different members are not
// comparable, so a failover embedder should list members of one model family.
func (g *groupEmbedder) ModelName() string {
	names := make([]string, 0, len(g.items))
	for _, item := range g.items {
		if item.Embedder == nil {
			continue
		}
		names = append(names, item.Embedder.ModelName())
	}
	return strings.Join(names, "|")
}

func BuildGenerator(specs []ProviderSpec) (IGenerator, error) {
	items := make([]GeneratorEntry, 0, len(specs))
	for _, spec := range specs {
		p, err := NewProvider(spec.Provider, spec.Data)
		if err != nil {
			return nil, fmt.Errorf("init generator %s: %w", spec.Name, err)
		}
		items = append(items, GeneratorEntry{Name: entryName(spec), Generator: NewGenerator(p, spec.Model)})
	}
	gen := NewGroupGenerator(items)
	if gen == nil {
		return nil, fmt.Errorf("no generator configured")
	}
	return gen, nil
}

func BuildEmbedder(specs []ProviderSpec) (IEmbedder, error) {
	items := make([]EmbedderEntry, 0, len(specs))
	for _, spec := range specs {
		p, err := NewEmbedProvider(spec.Provider, spec.Data)
		if err != nil {
			return nil, fmt.Errorf("init embedder %s: %w", spec.Name, err)
		}
		items = append(items, EmbedderEntry{Name: entryName(spec), Embedder: NewEmbedder(p, spec.Model)})
	}
	emb := NewGroupEmbedder(items)
	if emb == nil {
		return nil, fmt.Errorf("no embedder configured")
	}
	return emb, nil
}

func entryName(spec ProviderSpec) string {
	if spec.Name != "" {
		return spec.Name
	}
	return spec.Provider
}
