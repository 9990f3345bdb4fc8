package earley

import (
	"fmt"
	"strings"

	"github.com/Conceptual-Machines/maestro-api/internal/grammar"
)

// ChildKind discriminates what produced one consumed RHS symbol.
type ChildKind int

const (
	ChildToken ChildKind = iota
	ChildItem
)

// Child is the record of one consumed RHS symbol: the scanned token for a
// terminal, or the completed sub-item for a non-terminal.
type Child struct {
	Kind  ChildKind
	Token *grammar.Token
	Item  *Item
}

// Source is a backpointer: this item was produced by advancing Prev over
// Child. An item reached along several distinct paths carries several
// sources; that is where ambiguity lives until forest extraction.
type Source struct {
	Prev  *Item
	Child Child
}

// Item is a partially matched rule: Dot symbols of the RHS have been
// consumed, starting at token position Start. Items are deduplicated per
// set by (rule id, dot, start); that key is what keeps the chart
// polynomial no matter how many derivations exist.
type Item struct {
	Rule  *grammar.Rule
	Dot   int
	Start int
	End   int // the set this item lives in

	Sources []Source
}

// Key is the deduplication identity within one chart set.
func (it *Item) Key() string {
	return fmt.Sprintf("%s:%d:%d", it.Rule.ID, it.Dot, it.Start)
}

// Completed reports whether the dot has passed the whole RHS.
func (it *Item) Completed() bool {
	return it.Dot >= len(it.Rule.RHS)
}

// NextSymbol returns the symbol after the dot. ok is false when the item
// is completed.
func (it *Item) NextSymbol() (grammar.Symbol, bool) {
	if it.Completed() {
		return grammar.Symbol{}, false
	}
	return it.Rule.RHS[it.Dot], true
}

// Progress is the fraction of the RHS consumed, in [0,1]. An empty
// production counts as fully consumed.
func (it *Item) Progress() float64 {
	if len(it.Rule.RHS) == 0 {
		return 1
	}
	return float64(it.Dot) / float64(len(it.Rule.RHS))
}

// addSource records one more way this item was produced, skipping exact
// duplicates. Duplicates show up when the fixed-point loop revisits a
// completion; recording them once keeps extraction from inventing
// ambiguity that is not there.
func (it *Item) addSource(src Source) {
	for _, existing := range it.Sources {
		if existing.Prev == src.Prev &&
			existing.Child.Kind == src.Child.Kind &&
			existing.Child.Token == src.Child.Token &&
			existing.Child.Item == src.Child.Item {
			return
		}
	}
	it.Sources = append(it.Sources, src)
}

func (it *Item) String() string {
	var b strings.Builder
	b.WriteString(it.Rule.LHS)
	b.WriteString(" →")
	for i, sym := range it.Rule.RHS {
		if i == it.Dot {
			b.WriteString(" ·")
		}
		b.WriteByte(' ')
		b.WriteString(sym.Label())
	}
	if it.Completed() {
		b.WriteString(" ·")
	}
	fmt.Fprintf(&b, "  [%d..%d]", it.Start, it.End)
	return b.String()
}
