package assessment

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/readiness/internal/ai"
	"github.com/xxxsen/readiness/internal/model"
)

const (
	MaxUseCases        = 5
	maxPrerequisites   = 3
	corpusQuery        = "business process operations workflow department customers products services costs"
	corpusQueryContext = 200
)

type useCaseItem struct {
	Name            string   `json:"name" validate:"required"`
	Description     string   `json:"description" validate:"required"`
	BusinessProcess string   `json:"business_process"`
	Approach        string   `json:"ai_approach" validate:"required"`
	ROI             *float64 `json:"roi" validate:"required,gte=0,lte=10"`
	Feasibility     *float64 `json:"feasibility" validate:"required,gte=0,lte=10"`
	Prerequisites   []string `json:"prerequisites"`
}

type useCaseOutput struct {
	UseCases []useCaseItem `json:"use_cases" validate:"required,min=1"`
}

type UseCaseIdentifier struct {
	retriever Retriever
	caller    *ai.Caller
	topK      int
}

func NewUseCaseIdentifier(retriever Retriever, caller *ai.Caller, cfg ScoringConfig) *UseCaseIdentifier {
	cfg = cfg.withDefaults()
	return &UseCaseIdentifier{retriever: retriever, caller: caller, topK: cfg.TopK * 2}
}

// Identify proposes candidates from a broad corpus retrieval and the
// available dimension results, then ranks them with RankUseCases.
func (u *UseCaseIdentifier) Identify(ctx context.Context, sessionID string, orgContext string, results []model.DimensionResult) ([]model.UseCase, error) {
	query := corpusQuery
	if c := truncateRunes(orgContext, corpusQueryContext); c != "" {
		query += " " + c
	}
	hits, err := u.retriever.Retrieve(ctx, sessionID, query, u.topK)
	if err != nil {
		return nil, fmt.Errorf("%w: use cases: retrieve: %w", ErrSynthesis, err)
	}
	var out useCaseOutput
	var valid []useCaseItem
	// Candidates are validated one by one; the reply only fails when none
	// of them is usable.
	check := func() error {
		valid = valid[:0]
		var firstErr error
		for _, item := range out.UseCases {
			if err := ai.Validate(&item); err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			valid = append(valid, item)
		}
		if len(valid) == 0 {
			return fmt.Errorf("no valid use case candidate: %v", firstErr)
		}
		return nil
	}
	if err := u.caller.Call(ctx, "use_cases", buildUseCasePrompt(hits, results, orgContext), &out, check); err != nil {
		return nil, fmt.Errorf("%w: use cases: %w", ErrSynthesis, err)
	}
	if dropped := len(out.UseCases) - len(valid); dropped > 0 {
		logutil.GetLogger(ctx).Warn("invalid use case candidates dropped",
			zap.String("session_id", sessionID), zap.Int("dropped", dropped))
	}
	seen := map[string]bool{}
	candidates := make([]model.UseCase, 0, len(valid))
	for _, item := range valid {
		name := strings.TrimSpace(item.Name)
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			continue
		}
		seen[key] = true
		candidates = append(candidates, model.UseCase{
			Name:            name,
			Description:     strings.TrimSpace(item.Description),
			BusinessProcess: strings.TrimSpace(item.BusinessProcess),
			Approach:        NormalizeApproach(item.Approach),
			ROI:             model.ClampScore(*item.ROI),
			Feasibility:     model.ClampScore(*item.Feasibility),
			Prerequisites:   cleanList(item.Prerequisites, maxPrerequisites),
		})
	}
	ranked := RankUseCases(candidates, MaxUseCases)
	logutil.GetLogger(ctx).Info("use cases identified",
		zap.String("session_id", sessionID),
		zap.Int("candidates", len(candidates)),
		zap.Int("ranked", len(ranked)),
	)
	return ranked, nil
}

// RankUseCases orders candidates by normalized ROI times normalized
// feasibility. Ties go to the higher feasibility, then to the name in
// ascending order. At most limit candidates are returned, ranked from 1.
// The input slice is not modified.
func RankUseCases(candidates []model.UseCase, limit int) []model.UseCase {
	ranked := make([]model.UseCase, len(candidates))
	copy(ranked, candidates)
	for i := range ranked {
		roi := clamp01(ranked[i].ROI / 10)
		feas := clamp01(ranked[i].Feasibility / 10)
		ranked[i].RankScore = math.Round(roi*feas*10000) / 10000
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.RankScore != b.RankScore {
			return a.RankScore > b.RankScore
		}
		if a.Feasibility != b.Feasibility {
			return a.Feasibility > b.Feasibility
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Description < b.Description
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

var approachKeywords = []struct {
	approach model.AIApproach
	words    []string
}{
	{model.ApproachRAG, []string{"rag", "retrieval", "knowledge", "search"}},
	{model.ApproachAgentic, []string{"agent"}},
	{model.ApproachPredictive, []string{"predict", "forecast", "regression", "anomaly"}},
	{model.ApproachClassification, []string{"classif", "categori", "triage", "vision", "detect"}},
	{model.ApproachGenerative, []string{"generat", "llm", "summar", "draft"}},
}

// NormalizeApproach maps free text approach names onto the fixed set.
func NormalizeApproach(s string) model.AIApproach {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, item := range approachKeywords {
		if strings.EqualFold(key, string(item.approach)) {
			return item.approach
		}
	}
	words := strings.FieldsFunc(key, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, item := range approachKeywords {
		for _, prefix := range item.words {
			for _, w := range words {
				if strings.HasPrefix(w, prefix) {
					return item.approach
				}
			}
		}
	}
	return model.ApproachOther
}
