package assessment

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/xxxsen/readiness/internal/ai"
	"github.com/xxxsen/readiness/internal/model"
)

const (
	maxBlockers  = 5
	maxQuickWins = 5
)

type SynthesisInput struct {
	OrganisationName string
	OverallScore     float64
	OverallMaturity  model.Maturity
	Results          []model.DimensionResult
}

type Synthesis struct {
	ExecutiveSummary string
	CriticalBlockers []string
	QuickWins        []string
}

type synthesisOutput struct {
	ExecutiveSummary string   `json:"executive_summary" validate:"required"`
	CriticalBlockers []string `json:"critical_blockers" validate:"required,min=1,dive,required"`
	QuickWins        []string `json:"quick_wins" validate:"required,min=1,dive,required"`
}

type Synthesizer struct {
	caller *ai.Caller
}

func NewSynthesizer(caller *ai.Caller) *Synthesizer {
	return &Synthesizer{caller: caller}
}

func (s *Synthesizer) Synthesize(ctx context.Context, in SynthesisInput) (*Synthesis, error) {
	var out synthesisOutput
	if err := s.caller.Call(ctx, "synthesis", buildSynthesisPrompt(in), &out, nil); err != nil {
		return nil, fmt.Errorf("%w: executive summary: %w", ErrSynthesis, err)
	}
	return &Synthesis{
		ExecutiveSummary: strings.TrimSpace(out.ExecutiveSummary),
		CriticalBlockers: cleanList(out.CriticalBlockers, maxBlockers),
		QuickWins:        cleanList(out.QuickWins, maxQuickWins),
	}, nil
}

// FallbackSynthesis derives a summary from the dimension results alone. It
// is used when the generative synthesis fails.
func FallbackSynthesis(in SynthesisInput) *Synthesis {
	ordered := make([]model.DimensionResult, len(in.Results))
	copy(ordered, in.Results)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Score > ordered[j].Score
	})
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s has an overall AI readiness score of %.1f/10, which places it at the %s maturity level.",
		in.OrganisationName, in.OverallScore, in.OverallMaturity)
	if len(ordered) > 0 {
		fmt.Fprintf(&sb, " The strongest dimension is %s (%.1f/10).", ordered[0].Dimension, ordered[0].Score)
	}
	if len(ordered) > 1 {
		weakest := ordered[len(ordered)-1]
		fmt.Fprintf(&sb, " The weakest dimension is %s (%.1f/10) and should be addressed first.", weakest.Dimension, weakest.Score)
	}

	syn := &Synthesis{ExecutiveSummary: sb.String(), CriticalBlockers: []string{}, QuickWins: []string{}}
	for i := len(ordered) - 1; i >= 0 && len(syn.CriticalBlockers) < maxBlockers; i-- {
		if len(ordered[i].Gaps) > 0 {
			syn.CriticalBlockers = appendUnique(syn.CriticalBlockers, ordered[i].Gaps[0])
		}
	}
	for _, r := range ordered {
		if len(syn.QuickWins) >= maxQuickWins {
			break
		}
		if len(r.Recommendations) > 0 {
			syn.QuickWins = appendUnique(syn.QuickWins, r.Recommendations[0])
		}
	}
	return syn
}

// MissingDimensionsNote names the dimensions without a result. It is empty
// when every dimension was scored.
func MissingDimensionsNote(missing []model.Dimension) string {
	if len(missing) == 0 {
		return ""
	}
	names := make([]string, 0, len(missing))
	for _, d := range missing {
		names = append(names, string(d))
	}
	return fmt.Sprintf("This assessment is partial: the following dimensions could not be scored and are excluded from the overall score: %s.",
		strings.Join(names, ", "))
}
