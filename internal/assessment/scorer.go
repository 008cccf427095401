package assessment

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/readiness/internal/ai"
	"github.com/xxxsen/readiness/internal/model"
)

const (
	defaultTopK            = 8
	defaultMinRelevance    = 0.2
	defaultEvidenceCeiling = 4.0
	maxStrengths           = 3
	maxGaps                = 4
	maxRecommendations     = 4
	maxExcerpts            = 2
	excerptChars           = 240
)

type Retriever interface {
	Retrieve(ctx context.Context, sessionID string, query string, k int) ([]model.Evidence, error)
}

type ScoringConfig struct {
	TopK            int
	MinRelevance    float64
	EvidenceCeiling float64
}

func (c ScoringConfig) withDefaults() ScoringConfig {
	if c.TopK <= 0 {
		c.TopK = defaultTopK
	}
	if c.MinRelevance <= 0 {
		c.MinRelevance = defaultMinRelevance
	}
	if c.EvidenceCeiling <= 0 {
		c.EvidenceCeiling = defaultEvidenceCeiling
	}
	return c
}

type scorerOutput struct {
	Score            *float64 `json:"score" validate:"required,gte=0,lte=10"`
	Maturity         string   `json:"maturity" validate:"required"`
	Strengths        []string `json:"key_strengths" validate:"required,min=1,dive,required"`
	Gaps             []string `json:"key_gaps" validate:"required,min=1,dive,required"`
	Recommendations  []string `json:"recommendations" validate:"required,min=1,dive,required"`
	EvidenceExcerpts []string `json:"evidence_excerpts"`
	EvidenceIDs      []string `json:"evidence_ids" validate:"required"`
}

type Scorer struct {
	retriever Retriever
	caller    *ai.Caller
	cfg       ScoringConfig
}

func NewScorer(retriever Retriever, caller *ai.Caller, cfg ScoringConfig) *Scorer {
	return &Scorer{retriever: retriever, caller: caller, cfg: cfg.withDefaults()}
}

func (s *Scorer) Config() ScoringConfig {
	return s.cfg
}

// Score runs one retrieval augmented scoring pass. With no retrieved evidence
// it returns a baseline result without calling the model.
func (s *Scorer) Score(ctx context.Context, sessionID string, dim model.Dimension, orgContext string) (*model.DimensionResult, error) {
	spec, ok := LookupDimension(dim)
	if !ok {
		return nil, fmt.Errorf("%w: unknown dimension %q", ErrScorer, dim)
	}
	logger := logutil.GetLogger(ctx).With(zap.String("session_id", sessionID), zap.String("dimension", string(dim)))
	query := spec.Keywords
	if c := truncateRunes(orgContext, maxContextChars); c != "" {
		query += " " + c
	}
	hits, err := s.retriever.Retrieve(ctx, sessionID, query, s.cfg.TopK)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: retrieve: %w", ErrScorer, dim, err)
	}
	if len(hits) == 0 {
		logger.Info("no evidence retrieved, using baseline result")
		return baselineResult(dim), nil
	}
	sufficient := false
	for _, hit := range hits {
		if hit.Score >= s.cfg.MinRelevance {
			sufficient = true
			break
		}
	}

	var out scorerOutput
	prompt := buildDimensionPrompt(spec, hits, orgContext)
	err = s.caller.Call(ctx, "score:"+string(dim), prompt, &out, func() error {
		if _, ok := model.ParseMaturity(out.Maturity); !ok {
			return fmt.Errorf("unknown maturity label %q", out.Maturity)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrScorer, dim, err)
	}
	result := &model.DimensionResult{
		Dimension:          dim,
		Score:              *out.Score,
		Strengths:          cleanList(out.Strengths, maxStrengths),
		Gaps:               cleanList(out.Gaps, maxGaps),
		Recommendations:    cleanList(out.Recommendations, maxRecommendations),
		EvidenceExcerpts:   cleanList(out.EvidenceExcerpts, maxExcerpts),
		EvidenceSufficient: sufficient,
		Evidence:           s.citedEvidence(out.EvidenceIDs, hits),
	}
	s.finalizeResult(result)
	if len(result.EvidenceExcerpts) == 0 && len(result.Evidence) > 0 {
		for _, hit := range hits {
			if hit.Chunk.ID == result.Evidence[0].ChunkID {
				result.EvidenceExcerpts = []string{truncateRunes(hit.Chunk.Text, excerptChars)}
				break
			}
		}
	}
	logger.Info("dimension scored",
		zap.Float64("score", result.Score),
		zap.Bool("evidence_sufficient", result.EvidenceSufficient),
		zap.Int("evidence", len(result.Evidence)),
	)
	return result, nil
}

var evidenceIDPattern = regexp.MustCompile(`(?i)E\s*(\d+)`)

// citedEvidence maps model cited labels back to retrieved chunks. When no
// label survives it cites every chunk above the relevance threshold.
func (s *Scorer) citedEvidence(ids []string, hits []model.Evidence) []model.EvidenceRef {
	seen := map[int]bool{}
	refs := make([]model.EvidenceRef, 0, len(ids))
	for _, id := range ids {
		m := evidenceIDPattern.FindStringSubmatch(id)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > len(hits) || seen[n] {
			continue
		}
		seen[n] = true
		refs = append(refs, hits[n-1].Ref())
	}
	if len(refs) > 0 {
		return refs
	}
	for _, hit := range hits {
		if hit.Score >= s.cfg.MinRelevance {
			refs = append(refs, hit.Ref())
		}
	}
	return refs
}

// finalizeResult enforces the evidence rules on a result: a sufficient
// result cites at least one chunk, and an insufficient one never scores
// above the ceiling. The maturity label always follows the final score.
func (s *Scorer) finalizeResult(r *model.DimensionResult) {
	r.Score = model.ClampScore(r.Score)
	if r.EvidenceSufficient && len(r.Evidence) == 0 {
		r.EvidenceSufficient = false
	}
	if !r.EvidenceSufficient && r.Score > s.cfg.EvidenceCeiling {
		r.Score = model.ClampScore(s.cfg.EvidenceCeiling)
		r.Gaps = append(r.Gaps, fmt.Sprintf("Documentary evidence is weak for this dimension; score capped at %.1f.", r.Score))
	}
	r.Maturity = model.MaturityForScore(r.Score)
}

func baselineResult(dim model.Dimension) *model.DimensionResult {
	return &model.DimensionResult{
		Dimension: dim,
		Score:     0,
		Maturity:  model.MaturityForScore(0),
		Strengths: []string{},
		Gaps: []string{
			fmt.Sprintf("No documentary evidence covering %s was found in the uploaded documents.", dim),
		},
		Recommendations: []string{
			fmt.Sprintf("Provide documentation describing current %s practices so this dimension can be assessed.", strings.ToLower(string(dim))),
		},
		EvidenceExcerpts:   []string{},
		EvidenceSufficient: false,
		Evidence:           []model.EvidenceRef{},
	}
}

func cleanList(items []string, limit int) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
		if len(out) == limit {
			break
		}
	}
	return out
}
