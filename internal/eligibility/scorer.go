package eligibility

import (
	"math"
	"sort"
)

// Scorer aggregates per-condition results into one eligibility decision.
// Mandatory conditions gate the decision; weights shape only the displayed
// score and progress.
type Scorer struct{}

// NewScorer returns the aggregate scorer.
func NewScorer() *Scorer { return &Scorer{} }

// Score combines the results of every active condition for a target.
//
// Policy for degenerate weight configurations: an empty condition set scores
// 100 and is eligible (nothing is required), while a non-empty set whose
// weights sum to zero scores 0 (unweighted conditions block the score until
// configuration is fixed).
func (s *Scorer) Score(specs []ConditionSpec, results []ConditionResult) Aggregate {
	agg := Aggregate{
		Met:     []ConditionResult{},
		Missing: []ConditionResult{},
	}

	byID := make(map[string]ConditionSpec, len(specs))
	for _, spec := range specs {
		byID[spec.ID.String()] = spec
	}

	var weightTotal, weightMet float64
	eligible := true
	for _, r := range results {
		spec, ok := byID[r.ConditionID.String()]
		if !ok {
			continue
		}
		weightTotal += spec.Weight
		if r.Met {
			weightMet += spec.Weight
			agg.Met = append(agg.Met, r)
		} else {
			agg.Missing = append(agg.Missing, r)
			if spec.Mandatory {
				eligible = false
			}
		}
	}
	agg.Eligible = eligible

	switch {
	case len(results) == 0:
		agg.Score = 100
	case weightTotal == 0:
		agg.Score = 0
	default:
		agg.Score = round2(100 * weightMet / weightTotal)
	}

	// Progress pins to 100 once eligible so the displayed signal never
	// regresses while optional conditions remain unmet.
	if agg.Eligible {
		agg.Progress = 100
	} else {
		agg.Progress = agg.Score
	}

	agg.EstimatedDays = s.estimateDays(byID, agg.Missing)
	return agg
}

// estimateDays returns the dominant (maximum) day distance over unmet
// mandatory conditions. If any unmet mandatory condition is not
// time-denominated the estimate is nil: a partial number would mislead.
func (s *Scorer) estimateDays(specs map[string]ConditionSpec, missing []ConditionResult) *int {
	var worst float64
	found := false
	for _, r := range missing {
		spec, ok := specs[r.ConditionID.String()]
		if !ok || !spec.Mandatory {
			continue
		}
		if !r.TimeDenominated || r.Distance == nil {
			return nil
		}
		if *r.Distance > worst {
			worst = *r.Distance
		}
		found = true
	}
	if !found {
		return nil
	}
	days := int(math.Ceil(worst))
	return &days
}

// SortByDisplayOrder orders specs the way the product presents them.
func SortByDisplayOrder(specs []ConditionSpec) {
	sort.SliceStable(specs, func(i, j int) bool {
		return specs[i].DisplayOrder < specs[j].DisplayOrder
	})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
