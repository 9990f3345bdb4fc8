package forest

import (
	"github.com/Conceptual-Machines/maestro-api/internal/earley"
	"github.com/Conceptual-Machines/maestro-api/internal/grammar"
)

// Extract converts the chart's completed parses into forest candidates:
// one tree per independent top-level derivation, with ambiguity below
// the root preserved as Or nodes. A root that is itself ambiguous is
// expanded so every alternative becomes its own candidate; scoring ranks
// candidates against each other.
//
// Requires a chart built with BuildTrees; without backpointers there is
// nothing to reconstruct and the result is empty.
func Extract(chart *earley.Chart) []*Node {
	if !chart.TreesBuilt {
		return nil
	}
	ex := &extractor{
		chart:    chart,
		memo:     make(map[*earley.Item]*Node),
		visiting: make(map[*earley.Item]bool),
		lists:    make(map[*earley.Item][][]earley.Child),
	}

	var candidates []*Node
	for _, item := range chart.CompletedParses {
		node := ex.convert(item)
		if node == nil {
			continue
		}
		if node.Kind == KindOr {
			candidates = append(candidates, node.Children...)
		} else {
			candidates = append(candidates, node)
		}
	}
	return candidates
}

type extractor struct {
	chart    *earley.Chart
	memo     map[*earley.Item]*Node
	visiting map[*earley.Item]bool
	lists    map[*earley.Item][][]earley.Child
}

// convert turns one completed item into a forest node: an And per
// derivation, wrapped in an Or when the item has several. Conversion is
// memoized on the item so sub-derivations shared between parents come
// out as shared pointers rather than copies.
//
// Cyclic derivations (an item deriving itself through zero-width rules)
// cannot form a finite tree; re-entering an item mid-conversion drops
// that alternative.
func (ex *extractor) convert(item *earley.Item) *Node {
	if node, ok := ex.memo[item]; ok {
		return node
	}
	if ex.visiting[item] {
		return nil
	}
	ex.visiting[item] = true
	defer delete(ex.visiting, item)

	var alternatives []*Node
	for _, children := range ex.childLists(item) {
		nodes := make([]*Node, 0, len(children))
		ok := true
		for _, child := range children {
			var converted *Node
			switch child.Kind {
			case earley.ChildToken:
				converted = &Node{Kind: KindLeaf, Token: child.Token, Span: child.Token.Span}
			case earley.ChildItem:
				converted = ex.convert(child.Item)
			}
			if converted == nil {
				ok = false
				break
			}
			nodes = append(nodes, converted)
		}
		if !ok {
			continue
		}
		alternatives = append(alternatives, &Node{
			Kind:           KindAnd,
			RuleID:         item.Rule.ID,
			RuleSource:     item.Rule.Source,
			Priority:       item.Rule.Priority,
			SemanticAction: item.Rule.SemanticAction,
			Children:       nodes,
			Span:           ex.spanOf(item, nodes),
		})
	}

	var node *Node
	switch len(alternatives) {
	case 0:
		// Every derivation was cyclic from this path. Leave the item
		// unmemoized; it may still convert under a different ancestor.
		return nil
	case 1:
		node = alternatives[0]
	default:
		node = &Node{Kind: KindOr, Children: alternatives, Span: alternatives[0].Span}
	}
	ex.memo[item] = node
	return node
}

// childLists enumerates the distinct child sequences that produced an
// item, walking source backpointers toward dot zero. The prev chain
// strictly decreases the dot, so this recursion cannot cycle.
func (ex *extractor) childLists(item *earley.Item) [][]earley.Child {
	if lists, ok := ex.lists[item]; ok {
		return lists
	}
	var lists [][]earley.Child
	if len(item.Sources) == 0 {
		lists = [][]earley.Child{nil}
	} else {
		for _, src := range item.Sources {
			for _, prefix := range ex.childLists(src.Prev) {
				list := make([]earley.Child, 0, len(prefix)+1)
				list = append(list, prefix...)
				list = append(list, src.Child)
				lists = append(lists, list)
			}
		}
	}
	ex.lists[item] = lists
	return lists
}

// spanOf is the union of the children's spans. An empty production gets a
// zero-width span at its start position.
func (ex *extractor) spanOf(item *earley.Item, children []*Node) grammar.Span {
	if len(children) == 0 {
		pos := 0
		switch {
		case item.Start < len(ex.chart.Tokens):
			pos = ex.chart.Tokens[item.Start].Span.Start
		case len(ex.chart.Tokens) > 0:
			pos = ex.chart.Tokens[len(ex.chart.Tokens)-1].Span.End
		}
		return grammar.Span{Start: pos, End: pos}
	}
	span := children[0].Span
	for _, child := range children[1:] {
		if child.Span.Start < span.Start {
			span.Start = child.Span.Start
		}
		if child.Span.End > span.End {
			span.End = child.Span.End
		}
	}
	return span
}
