package scoring

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Conceptual-Machines/maestro-api/internal/forest"
)

// Confidence classifies how safely a ranked parse can be acted on.
type Confidence string

const (
	ConfidenceHigh      Confidence = "high"
	ConfidenceMedium    Confidence = "medium"
	ConfidenceLow       Confidence = "low"
	ConfidenceAmbiguous Confidence = "ambiguous"
)

// ScoredParse is one ranked interpretation.
type ScoredParse struct {
	Tree                *forest.Node `json:"tree"`
	Score               float64      `json:"score"`
	Breakdown           Breakdown    `json:"breakdown"`
	Rank                int          `json:"rank"`
	Confidence          Confidence   `json:"confidence"`
	NeedsClarification  bool         `json:"needs_clarification"`
	ClarificationReason string       `json:"clarification_reason,omitempty"`
}

// Rank scores every candidate, sorts them best-first and classifies each
// one. Identical inputs always produce identical output: candidates are
// scored in slice order, the sort is stable, and every component walk is
// order-fixed.
func Rank(candidates []*forest.Node, cfg Config) ([]ScoredParse, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	scored := make([]ScoredParse, 0, len(candidates))
	weightSum := cfg.Weights.Sum()
	for _, tree := range candidates {
		comps := components(tree, cfg)
		total := 0.0
		for _, c := range comps {
			total += c.Weighted
		}
		score := clamp01(total / weightSum)
		scored = append(scored, ScoredParse{
			Tree:  tree,
			Score: score,
			Breakdown: Breakdown{
				Components: comps,
				WeightSum:  weightSum,
				Total:      score,
			},
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	for i := range scored {
		scored[i].Rank = i + 1
		scored[i].Confidence = classify(i, scored, cfg)
		scored[i].NeedsClarification, scored[i].ClarificationReason = clarify(i, scored, cfg)
	}

	if cfg.MaxResults > 0 && len(scored) > cfg.MaxResults {
		scored = scored[:cfg.MaxResults]
	}
	return scored, nil
}

// classify buckets one ranked parse given the whole sorted list. A
// strong top parse shadowed by a close runner-up is ambiguous, not high;
// a weak top parse with a proportionally close runner-up is ambiguous,
// not merely low.
func classify(i int, scored []ScoredParse, cfg Config) Confidence {
	score := scored[i].Score
	topWithNext := i == 0 && len(scored) > 1

	switch {
	case score >= 0.8:
		if topWithNext && score-scored[1].Score < cfg.ClarityThreshold {
			return ConfidenceAmbiguous
		}
		return ConfidenceHigh
	case score >= 0.6:
		return ConfidenceMedium
	default:
		if topWithNext && scored[1].Score > 0.8*score {
			return ConfidenceAmbiguous
		}
		return ConfidenceLow
	}
}

// clarify decides whether acting on this parse requires asking the user,
// and phrases the reason. The top parse needs clarification when the
// runner-up sits within the clarity threshold; any parse needs it when
// its absolute score is below the clarification threshold.
func clarify(i int, scored []ScoredParse, cfg Config) (bool, string) {
	score := scored[i].Score

	if i == 0 && len(scored) > 1 {
		gap := score - scored[1].Score
		if gap < cfg.ClarityThreshold {
			return true, fmt.Sprintf("Two interpretations have similar scores (%.2f vs %.2f)",
				score, scored[1].Score)
		}
	}
	if score < cfg.ClarificationThreshold {
		return true, fmt.Sprintf("Interpretation scores %.2f, below the %.2f confidence threshold",
			score, cfg.ClarificationThreshold)
	}
	return false, ""
}

// Format renders the ranked list as readable text for logs and the
// debug endpoint.
func Format(scored []ScoredParse) string {
	var b strings.Builder
	for _, p := range scored {
		fmt.Fprintf(&b, "#%d score=%.3f confidence=%s", p.Rank, p.Score, p.Confidence)
		if p.NeedsClarification {
			fmt.Fprintf(&b, " needs-clarification (%s)", p.ClarificationReason)
		}
		b.WriteByte('\n')
		for _, c := range p.Breakdown.Components {
			fmt.Fprintf(&b, "   %-12s raw=%.3f weight=%.2f weighted=%.3f  %s\n",
				c.Name, c.Raw, c.Weight, c.Weighted, c.Explanation)
		}
	}
	return b.String()
}
