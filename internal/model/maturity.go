package model

import (
	"math"
	"strings"
)

type Maturity string

const (
	MaturityNascent    Maturity = "Nascent"
	MaturityEmerging   Maturity = "Emerging"
	MaturityDeveloping Maturity = "Developing"
	MaturityAdvanced   Maturity = "Advanced"
)

const (
	MinScore = 0.0
	MaxScore = 10.0
)

type maturityBand struct {
	lower float64
	label Maturity
}

// Ordered from the highest band down; the first band whose lower bound is
// reached wins, so labels are monotonic in score.
var maturityBands = []maturityBand{
	{lower: 6, label: MaturityAdvanced},
	{lower: 4, label: MaturityDeveloping},
	{lower: 2, label: MaturityEmerging},
	{lower: 0, label: MaturityNascent},
}

var AllMaturities = []Maturity{
	MaturityNascent,
	MaturityEmerging,
	MaturityDeveloping,
	MaturityAdvanced,
}

func MaturityForScore(score float64) Maturity {
	if math.IsNaN(score) {
		return MaturityNascent
	}
	for _, band := range maturityBands {
		if score >= band.lower {
			return band.label
		}
	}
	return MaturityNascent
}

func ParseMaturity(s string) (Maturity, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, m := range AllMaturities {
		if strings.ToLower(string(m)) == key {
			return m, true
		}
	}
	// "Leading" is the top band of the rubric shown to the model; it folds
	// into Advanced.
	if key == "leading" {
		return MaturityAdvanced, true
	}
	return "", false
}

func (m Maturity) Rank() int {
	for i, item := range AllMaturities {
		if item == m {
			return i
		}
	}
	return -1
}

// ClampScore bounds a score to [0,10] and rounds to one decimal.
func ClampScore(v float64) float64 {
	if math.IsNaN(v) || v < MinScore {
		return MinScore
	}
	if v > MaxScore {
		v = MaxScore
	}
	return math.Round(v*10) / 10
}

// MeanScore averages the available dimension scores without rounding, so
// the tier can be taken from the exact mean. ok is false when no result is
// available.
func MeanScore(results []DimensionResult) (float64, bool) {
	if len(results) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, r := range results {
		sum += r.Score
	}
	mean := sum / float64(len(results))
	if math.IsNaN(mean) || mean < MinScore {
		mean = MinScore
	}
	if mean > MaxScore {
		mean = MaxScore
	}
	return mean, true
}
