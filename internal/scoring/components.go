package scoring

import (
	"fmt"

	"github.com/Conceptual-Machines/maestro-api/internal/forest"
	"github.com/Conceptual-Machines/maestro-api/internal/grammar"
)

// Component is one scored criterion: the raw value in [0,1], the
// configured weight, their product, and a one-line explanation.
type Component struct {
	Name        string  `json:"name"`
	Raw         float64 `json:"raw"`
	Weight      float64 `json:"weight"`
	Weighted    float64 `json:"weighted"`
	Explanation string  `json:"explanation"`
}

// Breakdown is the full component list in fixed order plus the combined
// score. Components always appear in the same order; nothing here
// iterates a map.
type Breakdown struct {
	Components []Component `json:"components"`
	WeightSum  float64     `json:"weight_sum"`
	Total      float64     `json:"total"`
}

// Component name constants, in scoring order.
const (
	ComponentPriority     = "priority"
	ComponentExplicitness = "explicitness"
	ComponentSafety       = "safety"
	ComponentSpecificity  = "specificity"
	ComponentParsimony    = "parsimony"
	ComponentCoherence    = "coherence"
)

// treeMetrics summarizes one candidate tree. Or nodes are transparent:
// the walk descends into their first alternative, matching how
// explicitness reads ambiguous regions, and they add no structural
// nodes of their own.
type treeMetrics struct {
	size         int
	depth        int
	leaves       int
	andNodes     int
	explicitAnds int
	sources      map[string]bool
}

func measure(node *forest.Node) treeMetrics {
	m := treeMetrics{sources: make(map[string]bool)}
	walkMetrics(node, 1, &m)
	return m
}

func walkMetrics(node *forest.Node, depth int, m *treeMetrics) {
	switch node.Kind {
	case forest.KindLeaf:
		m.size++
		m.leaves++
		if depth > m.depth {
			m.depth = depth
		}
	case forest.KindAnd:
		m.size++
		m.andNodes++
		if !grammar.IsInferredAction(node.SemanticAction) {
			m.explicitAnds++
		}
		if node.RuleSource != "" {
			m.sources[node.RuleSource] = true
		}
		if depth > m.depth {
			m.depth = depth
		}
		for _, child := range node.Children {
			walkMetrics(child, depth+1, m)
		}
	case forest.KindOr:
		if len(node.Children) > 0 {
			walkMetrics(node.Children[0], depth, m)
		}
	}
}

// averagePriority returns the mean rule priority over the tree's And
// nodes. For an Or it takes the alternative with the highest average,
// first alternative winning ties.
func averagePriority(node *forest.Node) float64 {
	sum, count := prioritySum(node)
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

func prioritySum(node *forest.Node) (float64, int) {
	switch node.Kind {
	case forest.KindAnd:
		sum := float64(node.Priority)
		count := 1
		for _, child := range node.Children {
			s, c := prioritySum(child)
			sum += s
			count += c
		}
		return sum, count
	case forest.KindOr:
		bestSum, bestCount := 0.0, 0
		bestAvg := -1.0
		for _, alt := range node.Children {
			s, c := prioritySum(alt)
			if c == 0 {
				continue
			}
			if avg := s / float64(c); avg > bestAvg {
				bestAvg = avg
				bestSum, bestCount = s, c
			}
		}
		return bestSum, bestCount
	}
	return 0, 0
}

// components computes the six criteria for one candidate, in fixed order.
func components(node *forest.Node, cfg Config) []Component {
	m := measure(node)
	out := make([]Component, 0, 6)

	avgPriority := averagePriority(node)
	out = append(out, makeComponent(ComponentPriority, cfg.Weights.Priority,
		clamp01(avgPriority/priorityCeiling),
		fmt.Sprintf("average rule priority %.1f against ceiling %.0f", avgPriority, priorityCeiling)))

	explicitness := 1.0
	if m.andNodes > 0 {
		explicitness = float64(m.explicitAnds) / float64(m.andNodes)
	}
	out = append(out, makeComponent(ComponentExplicitness, cfg.Weights.Explicitness,
		clamp01(explicitness+cfg.ExplicitnessBias),
		fmt.Sprintf("%d of %d rules state intent explicitly", m.explicitAnds, m.andNodes)))

	sizeTerm := clamp01(1 - float64(m.size)/safetySizeLimit)
	depthTerm := clamp01(1 - float64(m.depth)/safetyDepthLimit)
	out = append(out, makeComponent(ComponentSafety, cfg.Weights.Safety,
		clamp01((sizeTerm+depthTerm)/2+cfg.SafetyBias),
		fmt.Sprintf("tree has %d nodes at depth %d", m.size, m.depth)))

	specificity := 0.0
	if m.size > 0 {
		specificity = float64(m.leaves) / float64(m.size)
	}
	out = append(out, makeComponent(ComponentSpecificity, cfg.Weights.Specificity,
		clamp01(specificity),
		fmt.Sprintf("%d of %d nodes consume tokens", m.leaves, m.size)))

	out = append(out, makeComponent(ComponentParsimony, cfg.Weights.Parsimony,
		clamp01(1-float64(m.size-1)/parsimonyLimit),
		fmt.Sprintf("%d nodes total", m.size)))

	coherence := 1.0
	if len(m.sources) > 1 {
		coherence = 1 / float64(len(m.sources))
	}
	out = append(out, makeComponent(ComponentCoherence, cfg.Weights.Coherence,
		clamp01(coherence),
		fmt.Sprintf("rules drawn from %d module(s)", maxInt(1, len(m.sources)))))

	return out
}

func makeComponent(name string, weight, raw float64, explanation string) Component {
	return Component{
		Name:        name,
		Raw:         raw,
		Weight:      weight,
		Weighted:    raw * weight,
		Explanation: explanation,
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
