package assessment

import (
	"fmt"
	"strings"

	"github.com/xxxsen/readiness/internal/model"
)

const (
	maxContextChars  = 300
	maxEvidenceChars = 600
	noContext        = "No additional context provided."
)

const dimensionPrompt = `You are a senior AI strategy consultant performing an AI readiness assessment.

You are evaluating the dimension: %s
Definition: %s

SCORING RUBRIC (score out of 10):
- 0-2 (Nascent): No meaningful capability. Major foundational gaps.
- 2-4 (Emerging): Early experiments. Significant gaps. Ad-hoc processes.
- 4-6 (Developing): Repeatable foundation. Clear gaps in scale or governance.
- 6-10 (Advanced): Strong, systematic capability with best practices in place.

EVIDENCE FROM ENTERPRISE DOCUMENTS (each item is labelled with its ID):
%s

ADDITIONAL CONTEXT:
%s

Assess this dimension based ONLY on the evidence provided. Do not invent information.
If evidence is sparse, score conservatively and name the gap.
Cite the IDs of the evidence items your score relies on.

Respond with ONLY valid JSON:
{
  "score": <number 0-10, one decimal>,
  "maturity": "Nascent" | "Emerging" | "Developing" | "Advanced",
  "key_strengths": [<up to 3 specific strengths evidenced in the documents>],
  "key_gaps": [<up to 4 specific gaps or missing capabilities>],
  "evidence_excerpts": [<1-2 short direct quotes from the evidence>],
  "recommendations": [<3-4 specific, actionable recommendations>],
  "evidence_ids": [<IDs such as "E1" that support the score>]
}`

const useCasePrompt = `You are an AI solutions architect identifying AI use case candidates for an enterprise.

ENTERPRISE CONTEXT (from their documents):
%s

DIMENSION SCORES SUMMARY:
%s

ADDITIONAL CONTEXT:
%s

Identify up to 8 valuable AI use cases for this enterprise based on:
1. Evidence that the process exists and is significant
2. Feasibility given the current maturity scores
3. Expected ROI and business impact
4. Data availability

For each use case choose an approach from: RAG, Agentic, Predictive, Generative, Classification, Other.
Estimate ROI and feasibility on a 0-10 scale.

Respond with ONLY valid JSON:
{
  "use_cases": [{
    "name": <concise use case name>,
    "description": <2 sentence description>,
    "business_process": <business process this automates or augments>,
    "ai_approach": <approach>,
    "roi": <number 0-10>,
    "feasibility": <number 0-10>,
    "prerequisites": [<2-3 things needed before implementation>]
  }]
}`

const synthesisPrompt = `You are a chief AI officer writing the executive summary of an AI readiness assessment.

ORGANISATION: %s
OVERALL SCORE: %.1f/10 (%s maturity)

DIMENSION SCORES:
%s

Write a concise executive summary (4-5 sentences) that:
1. States the overall readiness level and what it means for AI adoption
2. Highlights the strongest dimensions
3. Calls out the most critical gaps
4. Frames the opportunity ahead

Then provide:
- critical_blockers: 3-5 things that will prevent AI adoption if not addressed
- quick_wins: 3-5 things that can be done in under 90 days with high impact

Respond with ONLY valid JSON:
{
  "executive_summary": <summary>,
  "critical_blockers": [<blocker>],
  "quick_wins": [<quick win>]
}`

func truncateRunes(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func contextOrDefault(orgContext string) string {
	if c := truncateRunes(orgContext, maxContextChars); c != "" {
		return c
	}
	return noContext
}

func evidenceLabel(i int) string {
	return fmt.Sprintf("E%d", i+1)
}

func formatEvidence(hits []model.Evidence) string {
	parts := make([]string, 0, len(hits))
	for i, hit := range hits {
		parts = append(parts, fmt.Sprintf("[%s] (source: %s, relevance %.2f)\n%s",
			evidenceLabel(i), hit.Chunk.Source, hit.Score, truncateRunes(hit.Chunk.Text, maxEvidenceChars)))
	}
	return strings.Join(parts, "\n\n---\n\n")
}

func buildDimensionPrompt(spec DimensionSpec, hits []model.Evidence, orgContext string) string {
	return fmt.Sprintf(dimensionPrompt, spec.Dimension, spec.Description, formatEvidence(hits), contextOrDefault(orgContext))
}

func scoresSummary(results []model.DimensionResult, detailed bool) string {
	if len(results) == 0 {
		return "No dimension scores available."
	}
	lines := make([]string, 0, len(results))
	for _, r := range results {
		line := fmt.Sprintf("- %s: %.1f/10 (%s)", r.Dimension, r.Score, r.Maturity)
		if detailed {
			line += fmt.Sprintf(". Strengths: %s. Gaps: %s.", joinFirst(r.Strengths, 2), joinFirst(r.Gaps, 2))
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func joinFirst(items []string, n int) string {
	if len(items) > n {
		items = items[:n]
	}
	if len(items) == 0 {
		return "none noted"
	}
	return strings.Join(items, "; ")
}

func buildUseCasePrompt(hits []model.Evidence, results []model.DimensionResult, orgContext string) string {
	context := "Limited process documentation available."
	if len(hits) > 0 {
		context = formatEvidence(hits)
	}
	return fmt.Sprintf(useCasePrompt, context, scoresSummary(results, false), contextOrDefault(orgContext))
}

func buildSynthesisPrompt(in SynthesisInput) string {
	return fmt.Sprintf(synthesisPrompt, in.OrganisationName, in.OverallScore, in.OverallMaturity, scoresSummary(in.Results, true))
}
