package assessment

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/readiness/internal/ai"
	"github.com/xxxsen/readiness/internal/model"
)

type fakeRetriever struct {
	hits []model.Evidence
	err  error
}

func (f *fakeRetriever) Retrieve(ctx context.Context, sessionID string, query string, k int) ([]model.Evidence, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.hits) > k {
		return f.hits[:k], nil
	}
	return f.hits, nil
}

type fakeGenerator struct {
	mu      sync.Mutex
	replies []string
	calls   int
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.calls
	f.calls++
	if idx < len(f.replies) {
		return f.replies[idx], nil
	}
	return f.replies[len(f.replies)-1], nil
}

func hits(scores ...float64) []model.Evidence {
	out := make([]model.Evidence, 0, len(scores))
	for i, s := range scores {
		out = append(out, model.Evidence{
			Chunk: model.DocumentChunk{ID: fmt.Sprintf("c%d", i+1), SessionID: "s", Source: "doc.txt", Index: i, Text: fmt.Sprintf("evidence text %d", i+1)},
			Score: s,
		})
	}
	return out
}

func scoreReply(score float64, ids ...string) string {
	quoted := make([]string, 0, len(ids))
	for _, id := range ids {
		quoted = append(quoted, fmt.Sprintf("%q", id))
	}
	return fmt.Sprintf(`{"score": %g, "maturity": "Developing", "key_strengths": ["s"], "key_gaps": ["g"],
"recommendations": ["r"], "evidence_excerpts": [], "evidence_ids": [%s]}`, score, strings.Join(quoted, ","))
}

func newScorer(r Retriever, gen ai.IGenerator) *Scorer {
	return NewScorer(r, ai.NewCaller(gen, time.Second, 1), ScoringConfig{TopK: 8, MinRelevance: 0.2, EvidenceCeiling: 4})
}

func TestScoreNoEvidenceSkipsModel(t *testing.T) {
	gen := &fakeGenerator{replies: []string{scoreReply(9)}}
	res, err := newScorer(&fakeRetriever{}, gen).Score(context.Background(), "s", model.DimensionDataReadiness, "")
	require.NoError(t, err)
	require.Equal(t, 0, gen.calls)
	require.False(t, res.EvidenceSufficient)
	require.Equal(t, 0.0, res.Score)
	require.Equal(t, model.MaturityNascent, res.Maturity)
	require.NotEmpty(t, res.Gaps)
}

func TestScoreWeakEvidenceIsCapped(t *testing.T) {
	gen := &fakeGenerator{replies: []string{scoreReply(9.1, "E1")}}
	res, err := newScorer(&fakeRetriever{hits: hits(0.1, 0.05)}, gen).Score(context.Background(), "s", model.DimensionGovernanceRisk, "")
	require.NoError(t, err)
	require.Equal(t, 1, gen.calls)
	require.False(t, res.EvidenceSufficient)
	require.Equal(t, 4.0, res.Score)
	require.Equal(t, model.MaturityForScore(4.0), res.Maturity)
}

func TestScoreCitesEvidence(t *testing.T) {
	gen := &fakeGenerator{replies: []string{scoreReply(7.25, "[E2]", "E2", "E9", "bogus")}}
	res, err := newScorer(&fakeRetriever{hits: hits(0.8, 0.6, 0.1)}, gen).Score(context.Background(), "s", model.DimensionTalentSkills, "bank")
	require.NoError(t, err)
	require.True(t, res.EvidenceSufficient)
	require.Equal(t, 7.3, res.Score)
	require.Equal(t, model.MaturityAdvanced, res.Maturity)
	require.Len(t, res.Evidence, 1)
	require.Equal(t, "c2", res.Evidence[0].ChunkID)
	require.Equal(t, []string{"evidence text 2"}, res.EvidenceExcerpts)
}

func TestScoreFallbackCitation(t *testing.T) {
	gen := &fakeGenerator{replies: []string{scoreReply(5)}}
	res, err := newScorer(&fakeRetriever{hits: hits(0.9, 0.3, 0.1)}, gen).Score(context.Background(), "s", model.DimensionTalentSkills, "")
	require.NoError(t, err)
	require.True(t, res.EvidenceSufficient)
	require.Len(t, res.Evidence, 2)
}

func TestScoreMalformedTwiceFails(t *testing.T) {
	gen := &fakeGenerator{replies: []string{"nope", `{"score": 12}`, scoreReply(5)}}
	_, err := newScorer(&fakeRetriever{hits: hits(0.9)}, gen).Score(context.Background(), "s", model.DimensionTalentSkills, "")
	require.True(t, errors.Is(err, ErrScorer))
	require.True(t, errors.Is(err, ai.ErrMalformedOutput))
	require.Equal(t, 2, gen.calls)
}

func TestScoreRecoversOnRetry(t *testing.T) {
	gen := &fakeGenerator{replies: []string{`{"score": 5, "maturity": "Expert"}`, scoreReply(5, "E1")}}
	res, err := newScorer(&fakeRetriever{hits: hits(0.9)}, gen).Score(context.Background(), "s", model.DimensionTalentSkills, "")
	require.NoError(t, err)
	require.Equal(t, 5.0, res.Score)
}

func TestScoreRetrievalError(t *testing.T) {
	gen := &fakeGenerator{replies: []string{scoreReply(5)}}
	boom := errors.New("store down")
	_, err := newScorer(&fakeRetriever{err: boom}, gen).Score(context.Background(), "s", model.DimensionTalentSkills, "")
	require.True(t, errors.Is(err, ErrScorer))
	require.True(t, errors.Is(err, boom))
}

func TestEvidenceCeilingProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		n := rng.Intn(4)
		scores := make([]float64, n)
		for j := range scores {
			scores[j] = rng.Float64() * 0.5
		}
		gen := &fakeGenerator{replies: []string{scoreReply(rng.Float64()*10, "E1", "E3")}}
		res, err := newScorer(&fakeRetriever{hits: hits(scores...)}, gen).Score(context.Background(), "s", model.DimensionStrategyLeadership, "")
		require.NoError(t, err)
		if !res.EvidenceSufficient {
			require.LessOrEqual(t, res.Score, 4.0)
		} else {
			require.NotEmpty(t, res.Evidence)
		}
		require.Equal(t, model.MaturityForScore(res.Score), res.Maturity)
	}
}

func TestRankUseCasesDeterministic(t *testing.T) {
	base := []model.UseCase{
		{Name: "Invoice triage", ROI: 8, Feasibility: 5},
		{Name: "Churn prediction", ROI: 5, Feasibility: 8},
		{Name: "Contract search", ROI: 10, Feasibility: 9},
		{Name: "Alpha", ROI: 5, Feasibility: 8},
		{Name: "Forecasting", ROI: 2, Feasibility: 2},
		{Name: "Chatbot", ROI: 6, Feasibility: 6},
		{Name: "Overflow", ROI: 15, Feasibility: -3},
	}
	want := RankUseCases(base, MaxUseCases)
	require.Len(t, want, 5)
	require.Equal(t, "Contract search", want[0].Name)
	// equal composite and feasibility fall back to name order
	require.Equal(t, "Alpha", want[1].Name)
	require.Equal(t, "Churn prediction", want[2].Name)
	// same composite, lower feasibility
	require.Equal(t, "Invoice triage", want[3].Name)
	require.Equal(t, "Chatbot", want[4].Name)
	for i, uc := range want {
		require.Equal(t, i+1, uc.Rank)
	}

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		shuffled := append([]model.UseCase(nil), base...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		require.Equal(t, want, RankUseCases(shuffled, MaxUseCases))
	}
	require.Len(t, RankUseCases(base[:2], MaxUseCases), 2)
}

func TestNormalizeApproach(t *testing.T) {
	require.Equal(t, model.ApproachRAG, NormalizeApproach("RAG"))
	require.Equal(t, model.ApproachRAG, NormalizeApproach("Retrieval-augmented generation"))
	require.Equal(t, model.ApproachAgentic, NormalizeApproach("Agentic workflow"))
	require.Equal(t, model.ApproachClassification, NormalizeApproach("Fine-tuned classifier"))
	require.Equal(t, model.ApproachPredictive, NormalizeApproach("Predictive model"))
	require.Equal(t, model.ApproachGenerative, NormalizeApproach("Generative AI"))
	require.Equal(t, model.ApproachOther, NormalizeApproach("Leverage storage"))
}

func TestIdentifyDedupesAndRanks(t *testing.T) {
	reply := `{"use_cases": [
{"name": "Invoice triage", "description": "d", "business_process": "AP", "ai_approach": "classifier", "roi": 8, "feasibility": 6, "prerequisites": ["labelled invoices", " "]},
{"name": "invoice TRIAGE", "description": "dup", "ai_approach": "RAG", "roi": 10, "feasibility": 10},
{"name": "Policy Q&A", "description": "d", "ai_approach": "RAG", "roi": 7, "feasibility": 9}
]}`
	gen := &fakeGenerator{replies: []string{reply}}
	u := NewUseCaseIdentifier(&fakeRetriever{}, ai.NewCaller(gen, time.Second, 1), ScoringConfig{})
	res, err := u.Identify(context.Background(), "s", "", nil)
	require.NoError(t, err)
	require.Len(t, res, 2)
	require.Equal(t, "Policy Q&A", res[0].Name)
	require.Equal(t, model.ApproachClassification, res[1].Approach)
	require.Equal(t, []string{"labelled invoices"}, res[1].Prerequisites)
}

func TestIdentifyFailureIsSynthesisError(t *testing.T) {
	gen := &fakeGenerator{replies: []string{`{"use_cases": []}`}}
	u := NewUseCaseIdentifier(&fakeRetriever{}, ai.NewCaller(gen, time.Second, 1), ScoringConfig{})
	_, err := u.Identify(context.Background(), "s", "", nil)
	require.True(t, errors.Is(err, ErrSynthesis))
}

func TestIdentifyDropsInvalidCandidates(t *testing.T) {
	reply := `{"use_cases": [
{"name": "Invoice triage", "description": "d", "ai_approach": "Classification", "roi": 8, "feasibility": 6},
{"name": "Policy Q&A", "description": "d", "ai_approach": "RAG", "roi": 7, "feasibility": 9},
{"name": "Churn model", "ai_approach": "Predictive", "roi": 9, "feasibility": 9}
]}`
	gen := &fakeGenerator{replies: []string{reply}}
	u := NewUseCaseIdentifier(&fakeRetriever{}, ai.NewCaller(gen, time.Second, 1), ScoringConfig{})
	res, err := u.Identify(context.Background(), "s", "", nil)
	require.NoError(t, err)
	require.Equal(t, 1, gen.calls)
	require.Len(t, res, 2)
	require.Equal(t, "Policy Q&A", res[0].Name)
	require.Equal(t, "Invoice triage", res[1].Name)
}

func TestIdentifyAllInvalidIsSynthesisError(t *testing.T) {
	reply := `{"use_cases": [{"name": "Churn model", "ai_approach": "Predictive", "roi": 9, "feasibility": 9}]}`
	gen := &fakeGenerator{replies: []string{reply}}
	u := NewUseCaseIdentifier(&fakeRetriever{}, ai.NewCaller(gen, time.Second, 1), ScoringConfig{})
	_, err := u.Identify(context.Background(), "s", "", nil)
	require.True(t, errors.Is(err, ErrSynthesis))
	require.Equal(t, 2, gen.calls)
}

func TestBuildRoadmap(t *testing.T) {
	ucs := RankUseCases([]model.UseCase{
		{Name: "A", ROI: 9, Feasibility: 9, Prerequisites: []string{"clean data"}},
		{Name: "B", ROI: 8, Feasibility: 8},
		{Name: "C", ROI: 7, Feasibility: 7},
	}, MaxUseCases)
	var prevInitiatives int
	for _, tier := range model.AllMaturities {
		phases := BuildRoadmap(tier, ucs)
		require.Len(t, phases, 3)
		total := 0
		for i, p := range phases {
			require.Equal(t, i+1, p.Phase)
			require.Equal(t, phaseThemes[i], p.Theme)
			require.Greater(t, p.DurationMonths, 0)
			require.NotEmpty(t, p.Initiatives)
			total += len(p.Initiatives)
		}
		require.GreaterOrEqual(t, total, prevInitiatives)
		prevInitiatives = total
	}
	nascent := BuildRoadmap(model.MaturityNascent, ucs)
	advanced := BuildRoadmap(model.MaturityAdvanced, ucs)
	require.Greater(t, nascent[0].DurationMonths, advanced[0].DurationMonths)
	require.Equal(t, "Months 1-6", nascent[0].Timeline)
	require.Equal(t, "Months 7-12", nascent[1].Timeline)
	require.Contains(t, nascent[0].Dependencies, "clean data")

	require.Equal(t, nascent, BuildRoadmap(model.Maturity("unknown"), ucs))
	require.Len(t, BuildRoadmap(model.MaturityDeveloping, nil), 3)
}

func TestAssemblePartialReport(t *testing.T) {
	results := map[model.Dimension]*model.DimensionResult{}
	for i, d := range model.AllDimensions {
		if d == model.DimensionProcessAutomation {
			continue
		}
		results[d] = &model.DimensionResult{Dimension: d, Score: float64(i + 1), Maturity: model.MaturityForScore(float64(i + 1))}
	}
	score, tier, ok := Overall(results)
	require.True(t, ok)
	require.Equal(t, 3.4, score)
	require.Equal(t, model.MaturityEmerging, tier)

	in := SynthesisInput{OrganisationName: "Acme", OverallScore: score, OverallMaturity: tier, Results: OrderedResults(results)}
	report := Assemble(AssembleInput{
		ReportID:         "RPT-1",
		OrganisationName: "Acme",
		Documents:        []model.DocumentInfo{{Name: "a.pdf", Pages: 3}, {Name: "b.png", Skipped: true}},
		Results:          results,
		Synthesis:        FallbackSynthesis(in),
		Now:              time.Unix(100, 0),
	})
	require.True(t, report.Partial)
	require.Len(t, report.Dimensions, 5)
	require.Equal(t, []model.Dimension{model.DimensionProcessAutomation}, report.MissingDimensions)
	require.Contains(t, report.ExecutiveSummary, string(model.DimensionProcessAutomation))
	require.Equal(t, []string{"a.pdf"}, report.Documents)
	require.Equal(t, 3, report.TotalPages)
	require.Equal(t, model.DimensionDataReadiness, report.Dimensions[0].Dimension)
}

func TestOverallTierUsesExactMean(t *testing.T) {
	results := map[model.Dimension]*model.DimensionResult{}
	for _, d := range model.AllDimensions {
		results[d] = &model.DimensionResult{Dimension: d, Score: 6}
	}
	results[model.DimensionStrategyLeadership].Score = 5.9

	score, tier, ok := Overall(results)
	require.True(t, ok)
	require.Equal(t, 6.0, score)
	require.Equal(t, model.MaturityDeveloping, tier)

	results[model.DimensionStrategyLeadership].Score = 6
	_, tier, _ = Overall(results)
	require.Equal(t, model.MaturityAdvanced, tier)
}
