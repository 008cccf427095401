package assessment

import (
	"fmt"
	"strings"

	"github.com/xxxsen/readiness/internal/model"
)

const (
	ThemeFoundation = "Foundation"
	ThemePilotScale = "Pilot & Scale"
	ThemeOptimize   = "Optimize"
	maxDependencies = 4
)

type phaseTemplate struct {
	months      int
	focus       []string
	initiatives []string
	metrics     []string
}

type roadmapTemplate struct {
	phases [3]phaseTemplate
	// pilots is how many ranked use cases are piloted in phase 2; the rest
	// are scheduled for phase 3.
	pilots int
}

var roadmapTemplates = map[model.Maturity]roadmapTemplate{
	model.MaturityNascent: {
		pilots: 1,
		phases: [3]phaseTemplate{
			{
				months: 6,
				focus:  []string{"Data foundations", "Executive alignment"},
				initiatives: []string{
					"Appoint an executive AI sponsor and a small working group",
					"Inventory critical data sources and assign data owners",
				},
				metrics: []string{"Data owners named for top data sources", "AI ambition statement approved"},
			},
			{
				months: 6,
				focus:  []string{"First controlled pilot"},
				initiatives: []string{
					"Run one low risk pilot with a clear business owner",
				},
				metrics: []string{"Pilot delivered against agreed success criteria"},
			},
			{
				months: 12,
				focus:  []string{"Capability building"},
				initiatives: []string{
					"Launch an AI literacy programme for managers",
				},
				metrics: []string{"Share of managers completing AI literacy training"},
			},
		},
	},
	model.MaturityEmerging: {
		pilots: 2,
		phases: [3]phaseTemplate{
			{
				months: 4,
				focus:  []string{"Data quality", "AI governance basics"},
				initiatives: []string{
					"Define data quality standards for pilot domains",
					"Publish an initial AI acceptable use policy",
					"Stand up a shared cloud sandbox for experimentation",
				},
				metrics: []string{"Data quality score for pilot datasets", "AI policy published"},
			},
			{
				months: 6,
				focus:  []string{"Pilots with measurable value"},
				initiatives: []string{
					"Establish a lightweight model review step before release",
				},
				metrics: []string{"Pilots reaching production", "Measured time or cost savings"},
			},
			{
				months: 9,
				focus:  []string{"Repeatable delivery"},
				initiatives: []string{
					"Create reusable delivery templates for AI projects",
					"Hire or train dedicated ML engineering capacity",
				},
				metrics: []string{"Lead time from idea to pilot", "Dedicated AI headcount"},
			},
		},
	},
	model.MaturityDeveloping: {
		pilots: 3,
		phases: [3]phaseTemplate{
			{
				months: 3,
				focus:  []string{"Platform hardening", "Model risk management"},
				initiatives: []string{
					"Standardise an MLOps pipeline for training and deployment",
					"Introduce model risk tiers and monitoring requirements",
					"Close the highest priority data gaps found in this assessment",
				},
				metrics: []string{"Models deployed through the standard pipeline", "Models with monitoring in place"},
			},
			{
				months: 6,
				focus:  []string{"Scaling proven use cases", "Portfolio management"},
				initiatives: []string{
					"Set up an AI portfolio board to prioritise investment",
					"Expand successful pilots to additional business units",
				},
				metrics: []string{"Use cases in production", "Realised benefit against business case"},
			},
			{
				months: 6,
				focus:  []string{"Enterprise adoption"},
				initiatives: []string{
					"Embed AI champions in each business unit",
					"Automate bias and drift reporting",
					"Refresh the AI strategy based on realised value",
				},
				metrics: []string{"Business units with active AI use cases", "Drift incidents detected before impact"},
			},
		},
	},
	model.MaturityAdvanced: {
		pilots: 4,
		phases: [3]phaseTemplate{
			{
				months: 2,
				focus:  []string{"Portfolio review", "Platform optimisation"},
				initiatives: []string{
					"Review the AI portfolio against strategic objectives",
					"Optimise compute and serving costs across models",
					"Extend responsible AI controls to generative systems",
					"Benchmark capabilities against industry leaders",
				},
				metrics: []string{"Cost per inference", "Portfolio value coverage", "Generative systems under controls"},
			},
			{
				months: 4,
				focus:  []string{"Rapid scaling", "Agentic and generative capabilities"},
				initiatives: []string{
					"Run parallel delivery streams for new use cases",
					"Share reusable components through an internal AI platform",
				},
				metrics: []string{"Time from approval to production", "Component reuse rate"},
			},
			{
				months: 6,
				focus:  []string{"Continuous improvement", "AI led business models"},
				initiatives: []string{
					"Institutionalise continuous model evaluation",
					"Explore AI enabled products and revenue streams",
					"Publish an external responsible AI report",
					"Mentor partners and suppliers on AI adoption",
				},
				metrics: []string{"Revenue influenced by AI", "Model evaluation cadence met", "External transparency published"},
			},
		},
	},
}

var phaseThemes = [3]string{ThemeFoundation, ThemePilotScale, ThemeOptimize}

// BuildRoadmap turns the overall tier and the ranked use cases into a three
// phase plan. Lower tiers get a longer foundation phase and fewer parallel
// initiatives.
func BuildRoadmap(tier model.Maturity, useCases []model.UseCase) []model.RoadmapPhase {
	tpl, ok := roadmapTemplates[tier]
	if !ok {
		tpl = roadmapTemplates[model.MaturityNascent]
	}
	pilots := useCases
	var later []model.UseCase
	if len(pilots) > tpl.pilots {
		pilots, later = useCases[:tpl.pilots], useCases[tpl.pilots:]
	}

	phases := make([]model.RoadmapPhase, 0, 3)
	startMonth := 1
	for i, pt := range tpl.phases {
		phase := model.RoadmapPhase{
			Phase:          i + 1,
			Theme:          phaseThemes[i],
			DurationMonths: pt.months,
			Timeline:       fmt.Sprintf("Months %d-%d", startMonth, startMonth+pt.months-1),
			FocusAreas:     append([]string(nil), pt.focus...),
			Initiatives:    append([]string(nil), pt.initiatives...),
			SuccessMetrics: append([]string(nil), pt.metrics...),
		}
		switch i {
		case 0:
			phase.Dependencies = []string{"Assessment findings reviewed with the executive sponsor"}
			for _, uc := range pilots {
				phase.Dependencies = appendUnique(phase.Dependencies, uc.Prerequisites...)
			}
			phase.Dependencies = limit(phase.Dependencies, maxDependencies)
			for _, uc := range pilots {
				phase.Initiatives = append(phase.Initiatives, fmt.Sprintf("Prepare data and owners for %s", uc.Name))
			}
		case 1:
			phase.Dependencies = []string{"Phase 1 success metrics met"}
			for _, uc := range pilots {
				phase.Initiatives = append(phase.Initiatives, fmt.Sprintf("Pilot %s (%s)", uc.Name, uc.Approach))
			}
		case 2:
			phase.Dependencies = []string{"Pilot outcomes reviewed and scaling funded"}
			for _, uc := range pilots {
				phase.Initiatives = append(phase.Initiatives, fmt.Sprintf("Scale %s across the organisation", uc.Name))
			}
			for _, uc := range later {
				phase.Initiatives = append(phase.Initiatives, fmt.Sprintf("Launch %s (%s)", uc.Name, uc.Approach))
			}
		}
		phases = append(phases, phase)
		startMonth += pt.months
	}
	return phases
}

func appendUnique(dst []string, items ...string) []string {
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		dup := false
		for _, existing := range dst {
			if strings.EqualFold(existing, item) {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, item)
		}
	}
	return dst
}

func limit(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
