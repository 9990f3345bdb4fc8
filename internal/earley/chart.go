package earley

import (
	"fmt"
	"strings"

	"github.com/Conceptual-Machines/maestro-api/internal/grammar"
)

// Limit names recorded on the chart when a resource cap trips.
const (
	LimitItemsPerSet = "max_items_per_set"
	LimitTotalItems  = "max_total_items"
)

// Chart is the full parse record: one item set per token position, plus
// the outcome. sets[i] holds items valid before token i, so there are
// always len(tokens)+1 sets.
type Chart struct {
	Grammar *grammar.Grammar
	Tokens  []grammar.Token
	Sets    []*Set

	Success         bool
	CompletedParses []*Item

	// StallPosition is the token position where progress stopped, or -1.
	// When the input ran out before any parse completed it equals
	// len(Tokens).
	StallPosition   int
	ExpectedAtStall []string

	// Truncated is set the moment a resource limit drops an item. A
	// truncated chart may still hold completed parses; callers must not
	// present those as a complete analysis.
	Truncated bool
	LimitHit  string

	// TreesBuilt records whether backpointers were kept. Forest
	// extraction needs them; a recognition-only chart has none.
	TreesBuilt bool

	TotalItems int
}

func newChart(g *grammar.Grammar, tokens []grammar.Token) *Chart {
	sets := make([]*Set, len(tokens)+1)
	for i := range sets {
		sets[i] = newSet(i)
	}
	return &Chart{
		Grammar:       g,
		Tokens:        tokens,
		Sets:          sets,
		StallPosition: -1,
	}
}

// add places an item in sets[position] unless its key is already there or
// a resource limit blocks it. When the key exists the source backpointer
// is packed onto the existing item instead, so no derivation is lost to
// deduplication. Returns the item (existing or new) and whether it was
// newly added; both are nil/false when a limit dropped it.
func (c *Chart) add(position int, rule *grammar.Rule, dot, start int, src *Source, cfg Config) (*Item, bool) {
	set := c.Sets[position]
	key := fmt.Sprintf("%s:%d:%d", rule.ID, dot, start)

	if existing := set.lookup(key); existing != nil {
		if src != nil {
			existing.addSource(*src)
		}
		return existing, false
	}

	if cfg.MaxItemsPerSet > 0 && set.Len() >= cfg.MaxItemsPerSet {
		c.Truncated = true
		c.LimitHit = LimitItemsPerSet
		return nil, false
	}
	if cfg.MaxTotalItems > 0 && c.TotalItems >= cfg.MaxTotalItems {
		c.Truncated = true
		c.LimitHit = LimitTotalItems
		return nil, false
	}

	it := &Item{Rule: rule, Dot: dot, Start: start, End: position}
	if src != nil {
		it.Sources = []Source{*src}
	}
	set.insert(key, it)
	c.TotalItems++
	return it, true
}

// StallToken returns the token parsing stalled on, or nil when the stall
// is at end of input (or there is no stall).
func (c *Chart) StallToken() *grammar.Token {
	if c.StallPosition < 0 || c.StallPosition >= len(c.Tokens) {
		return nil
	}
	return &c.Tokens[c.StallPosition]
}

// Format renders the chart set by set for logs and the debug endpoint.
func (c *Chart) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "chart for %d token(s): success=%v items=%d", len(c.Tokens), c.Success, c.TotalItems)
	if c.Truncated {
		fmt.Fprintf(&b, " TRUNCATED(%s)", c.LimitHit)
	}
	b.WriteByte('\n')
	for i, set := range c.Sets {
		if i < len(c.Tokens) {
			fmt.Fprintf(&b, "S%d (before %q):\n", i, c.Tokens[i].Text)
		} else {
			fmt.Fprintf(&b, "S%d (end):\n", i)
		}
		for _, it := range set.Items() {
			marker := "  "
			if it.Completed() {
				marker = " ✓"
			}
			fmt.Fprintf(&b, " %s %s\n", marker, it.String())
		}
	}
	if c.StallPosition >= 0 {
		if tok := c.StallToken(); tok != nil {
			fmt.Fprintf(&b, "stalled at %d on %q, expected: %s\n",
				c.StallPosition, tok.Text, strings.Join(c.ExpectedAtStall, ", "))
		} else {
			fmt.Fprintf(&b, "stalled at end of input, expected: %s\n",
				strings.Join(c.ExpectedAtStall, ", "))
		}
	}
	return b.String()
}
