package grammar

import "strings"

// Rule is one production. IDs must be unique within a grammar; Build
// rejects collisions because prediction is looked up by LHS and a shadowed
// rule would corrupt the chart silently.
type Rule struct {
	ID             string   `json:"id"`
	LHS            string   `json:"lhs"`
	RHS            []Symbol `json:"-"`
	Priority       int      `json:"priority"`
	SemanticAction string   `json:"semantic_action,omitempty"`
	Description    string   `json:"description,omitempty"`
	Source         string   `json:"source,omitempty"`
}

// Inferred reports whether the rule's semantic action marks it as filling
// in something the user did not say. Scoring treats these as less explicit.
func (r *Rule) Inferred() bool {
	return IsInferredAction(r.SemanticAction)
}

// IsInferredAction reports whether a semantic action name marks inferred
// or defaulted intent.
func IsInferredAction(action string) bool {
	lower := strings.ToLower(action)
	return strings.Contains(lower, "infer") ||
		strings.Contains(lower, "default") ||
		strings.Contains(lower, "implicit")
}

func (r *Rule) String() string {
	var b strings.Builder
	b.WriteString(r.LHS)
	b.WriteString(" →")
	if len(r.RHS) == 0 {
		b.WriteString(" ε")
	}
	for _, sym := range r.RHS {
		b.WriteByte(' ')
		b.WriteString(sym.Label())
	}
	return b.String()
}
