package assessment

import (
	"github.com/xxxsen/readiness/internal/model"
)

type DimensionSpec struct {
	Dimension   model.Dimension
	Description string
	Keywords    string
}

// Dimensions holds the rubric focus and retrieval keywords of every scored
// dimension, in report order.
var Dimensions = []DimensionSpec{
	{
		Dimension:   model.DimensionDataReadiness,
		Description: "Quality, availability and governance of data assets, including data pipelines, labelling, lineage and accessibility.",
		Keywords:    "data quality data governance data pipeline data lake warehouse lineage catalogue",
	},
	{
		Dimension:   model.DimensionTechnologyInfra,
		Description: "Cloud adoption, MLOps maturity, API ecosystems, compute availability and integration capabilities.",
		Keywords:    "cloud infrastructure API microservices DevOps MLOps platform compute integration",
	},
	{
		Dimension:   model.DimensionTalentSkills,
		Description: "Presence of data scientists, ML engineers and AI product managers, and general AI literacy across the organisation.",
		Keywords:    "data scientist engineer AI skills training team capabilities hiring literacy",
	},
	{
		Dimension:   model.DimensionProcessAutomation,
		Description: "Degree of existing process automation, RPA adoption, workflow digitisation and appetite for process redesign.",
		Keywords:    "automation workflow process efficiency RPA digital transformation manual",
	},
	{
		Dimension:   model.DimensionGovernanceRisk,
		Description: "AI policy framework, model risk management, compliance posture, bias monitoring and responsible AI practices.",
		Keywords:    "risk compliance policy governance regulation ethics AI policy privacy audit",
	},
	{
		Dimension:   model.DimensionStrategyLeadership,
		Description: "Executive sponsorship, AI vision clarity, budget commitment and organisational change management capability.",
		Keywords:    "strategy leadership vision budget executive roadmap priority sponsorship investment",
	},
}

func LookupDimension(d model.Dimension) (DimensionSpec, bool) {
	for _, spec := range Dimensions {
		if spec.Dimension == d {
			return spec, true
		}
	}
	return DimensionSpec{}, false
}
