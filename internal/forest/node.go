package forest

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Conceptual-Machines/maestro-api/internal/grammar"
)

// Kind discriminates the three forest node variants.
type Kind int

const (
	// KindLeaf wraps one consumed token.
	KindLeaf Kind = iota
	// KindAnd is one rule application; children cover the RHS in order.
	KindAnd
	// KindOr is genuine syntactic ambiguity; every child is a fully
	// independent derivation of the same span.
	KindOr
)

func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindAnd:
		return "and"
	case KindOr:
		return "or"
	}
	return "unknown"
}

// Node is one vertex of the parse forest. Shared sub-derivations are
// shared pointers, so the same *Node can appear under several parents;
// treat nodes as read-only after extraction.
type Node struct {
	Kind Kind
	Span grammar.Span

	// Leaf
	Token *grammar.Token

	// And
	RuleID         string
	RuleSource     string
	Priority       int
	SemanticAction string

	// And children in RHS order, or Or alternatives.
	Children []*Node
}

// String renders a single-line summary of the node.
func (n *Node) String() string {
	switch n.Kind {
	case KindLeaf:
		return fmt.Sprintf("leaf %s", n.Token.String())
	case KindAnd:
		return fmt.Sprintf("and %s (%d children)", n.RuleID, len(n.Children))
	case KindOr:
		return fmt.Sprintf("or (%d alternatives)", len(n.Children))
	}
	return "unknown"
}

// Format renders the subtree as indented text for logs and the debug
// endpoint.
func (n *Node) Format() string {
	var b strings.Builder
	n.format(&b, 0)
	return b.String()
}

func (n *Node) format(b *strings.Builder, depth int) {
	indent := strings.Repeat("  ", depth)
	switch n.Kind {
	case KindLeaf:
		fmt.Fprintf(b, "%sLEAF %q <%s> [%d..%d)\n", indent, n.Token.Text, n.Token.Type, n.Span.Start, n.Span.End)
	case KindAnd:
		fmt.Fprintf(b, "%sAND %s", indent, n.RuleID)
		if n.SemanticAction != "" {
			fmt.Fprintf(b, " → %s", n.SemanticAction)
		}
		fmt.Fprintf(b, " (priority %d) [%d..%d)\n", n.Priority, n.Span.Start, n.Span.End)
		for _, child := range n.Children {
			child.format(b, depth+1)
		}
	case KindOr:
		fmt.Fprintf(b, "%sOR %d alternatives [%d..%d)\n", indent, len(n.Children), n.Span.Start, n.Span.End)
		for _, child := range n.Children {
			child.format(b, depth+1)
		}
	}
}

// MarshalJSON emits a kind-tagged object so clients can walk the forest
// without knowing Go's union encoding.
func (n *Node) MarshalJSON() ([]byte, error) {
	switch n.Kind {
	case KindLeaf:
		return json.Marshal(struct {
			Kind  string         `json:"kind"`
			Span  grammar.Span   `json:"span"`
			Token *grammar.Token `json:"token"`
		}{"leaf", n.Span, n.Token})
	case KindAnd:
		return json.Marshal(struct {
			Kind           string       `json:"kind"`
			Span           grammar.Span `json:"span"`
			RuleID         string       `json:"rule_id"`
			Priority       int          `json:"priority"`
			SemanticAction string       `json:"semantic_action,omitempty"`
			Children       []*Node      `json:"children"`
		}{"and", n.Span, n.RuleID, n.Priority, n.SemanticAction, n.Children})
	case KindOr:
		return json.Marshal(struct {
			Kind         string       `json:"kind"`
			Span         grammar.Span `json:"span"`
			Alternatives []*Node      `json:"alternatives"`
		}{"or", n.Span, n.Children})
	}
	return nil, fmt.Errorf("forest: unknown node kind %d", n.Kind)
}
