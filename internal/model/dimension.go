package model

type Dimension string

const (
	DimensionDataReadiness      Dimension = "Data Readiness"
	DimensionTechnologyInfra    Dimension = "Technology Infrastructure"
	DimensionTalentSkills       Dimension = "Talent & Skills"
	DimensionProcessAutomation  Dimension = "Process & Automation Maturity"
	DimensionGovernanceRisk     Dimension = "Governance & Risk"
	DimensionStrategyLeadership Dimension = "Strategy & Leadership"
)

// AllDimensions is the fixed scoring order used everywhere a report lists
// dimensions.
var AllDimensions = []Dimension{
	DimensionDataReadiness,
	DimensionTechnologyInfra,
	DimensionTalentSkills,
	DimensionProcessAutomation,
	DimensionGovernanceRisk,
	DimensionStrategyLeadership,
}

func (d Dimension) Valid() bool {
	for _, item := range AllDimensions {
		if item == d {
			return true
		}
	}
	return false
}
