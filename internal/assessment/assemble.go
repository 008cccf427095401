package assessment

import (
	"strings"
	"time"

	"github.com/xxxsen/readiness/internal/model"
)

type AssembleInput struct {
	ReportID         string
	OrganisationName string
	Documents        []model.DocumentInfo
	Results          map[model.Dimension]*model.DimensionResult
	UseCases         []model.UseCase
	Roadmap          []model.RoadmapPhase
	Synthesis        *Synthesis
	Notes            []string
	Partial          bool
	Now              time.Time
}

// Overall computes the mean of the available results and its tier. The
// tier comes from the exact mean; only the returned score is rounded. ok is
// false when no dimension was scored.
func Overall(results map[model.Dimension]*model.DimensionResult) (float64, model.Maturity, bool) {
	mean, ok := model.MeanScore(OrderedResults(results))
	if !ok {
		return 0, "", false
	}
	return model.ClampScore(mean), model.MaturityForScore(mean), true
}

// OrderedResults lists available results in fixed dimension order.
func OrderedResults(results map[model.Dimension]*model.DimensionResult) []model.DimensionResult {
	out := make([]model.DimensionResult, 0, len(results))
	for _, d := range model.AllDimensions {
		if r, ok := results[d]; ok && r != nil {
			out = append(out, *r)
		}
	}
	return out
}

func MissingDimensions(results map[model.Dimension]*model.DimensionResult) []model.Dimension {
	out := make([]model.Dimension, 0)
	for _, d := range model.AllDimensions {
		if r, ok := results[d]; !ok || r == nil {
			out = append(out, d)
		}
	}
	return out
}

// Assemble builds the final report. The executive summary always ends with
// the missing dimension note when any dimension is missing, whatever the
// synthesis produced.
func Assemble(in AssembleInput) *model.AssessmentReport {
	ordered := OrderedResults(in.Results)
	missing := MissingDimensions(in.Results)
	score, tier, _ := Overall(in.Results)

	docs := make([]string, 0, len(in.Documents))
	pages := 0
	for _, d := range in.Documents {
		if d.Skipped {
			continue
		}
		docs = append(docs, d.Name)
		pages += d.Pages
	}
	syn := in.Synthesis
	if syn == nil {
		syn = &Synthesis{}
	}
	summary := strings.TrimSpace(syn.ExecutiveSummary)
	if note := MissingDimensionsNote(missing); note != "" {
		if summary != "" {
			summary += " "
		}
		summary += note
	}
	useCases := in.UseCases
	if useCases == nil {
		useCases = []model.UseCase{}
	}
	return &model.AssessmentReport{
		ReportID:          in.ReportID,
		OrganisationName:  in.OrganisationName,
		GeneratedAt:       in.Now.Unix(),
		Documents:         docs,
		TotalPages:        pages,
		OverallScore:      score,
		OverallMaturity:   tier,
		ExecutiveSummary:  summary,
		Dimensions:        ordered,
		MissingDimensions: missing,
		UseCases:          useCases,
		Roadmap:           in.Roadmap,
		CriticalBlockers:  nonNil(syn.CriticalBlockers),
		QuickWins:         nonNil(syn.QuickWins),
		Partial:           in.Partial || len(missing) > 0,
		Notes:             in.Notes,
	}
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
