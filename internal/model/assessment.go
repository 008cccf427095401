package model

type DimensionResult struct {
	Dimension          Dimension     `json:"dimension"`
	Score              float64       `json:"score"`
	Maturity           Maturity      `json:"maturity"`
	Strengths          []string      `json:"strengths"`
	Gaps               []string      `json:"gaps"`
	Recommendations    []string      `json:"recommendations"`
	EvidenceExcerpts   []string      `json:"evidence_excerpts"`
	EvidenceSufficient bool          `json:"evidence_sufficient"`
	Evidence           []EvidenceRef `json:"evidence"`
}

type AIApproach string

const (
	ApproachRAG            AIApproach = "RAG"
	ApproachAgentic        AIApproach = "Agentic"
	ApproachPredictive     AIApproach = "Predictive"
	ApproachGenerative     AIApproach = "Generative"
	ApproachClassification AIApproach = "Classification"
	ApproachOther          AIApproach = "Other"
)

type UseCase struct {
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	BusinessProcess string     `json:"business_process"`
	Approach        AIApproach `json:"approach"`
	ROI             float64    `json:"roi"`
	Feasibility     float64    `json:"feasibility"`
	RankScore       float64    `json:"rank_score"`
	Rank            int        `json:"rank"`
	Prerequisites   []string   `json:"prerequisites"`
}

type RoadmapPhase struct {
	Phase          int      `json:"phase"`
	Theme          string   `json:"theme"`
	DurationMonths int      `json:"duration_months"`
	Timeline       string   `json:"timeline"`
	FocusAreas     []string `json:"focus_areas"`
	Initiatives    []string `json:"initiatives"`
	SuccessMetrics []string `json:"success_metrics"`
	Dependencies   []string `json:"dependencies"`
}

type AssessmentReport struct {
	ReportID          string            `json:"report_id"`
	OrganisationName  string            `json:"organisation_name"`
	GeneratedAt       int64             `json:"generated_at"`
	Documents         []string          `json:"documents_analysed"`
	TotalPages        int               `json:"total_pages_analysed"`
	OverallScore      float64           `json:"overall_score"`
	OverallMaturity   Maturity          `json:"overall_maturity"`
	ExecutiveSummary  string            `json:"executive_summary"`
	Dimensions        []DimensionResult `json:"dimension_scores"`
	MissingDimensions []Dimension       `json:"missing_dimensions"`
	UseCases          []UseCase         `json:"use_case_candidates"`
	Roadmap           []RoadmapPhase    `json:"roadmap_phases"`
	CriticalBlockers  []string          `json:"critical_blockers"`
	QuickWins         []string          `json:"quick_wins"`
	Partial           bool              `json:"partial"`
	Notes             []string          `json:"notes,omitempty"`
}
