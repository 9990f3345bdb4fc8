package earley

import (
	"context"
	"sort"

	"github.com/Conceptual-Machines/maestro-api/internal/grammar"
)

// Config bounds one parse. Zero limit values mean unlimited.
type Config struct {
	MaxItemsPerSet     int  `json:"max_items_per_set"`
	MaxTotalItems      int  `json:"max_total_items"`
	BuildTrees         bool `json:"build_trees"`
	CollectDiagnostics bool `json:"collect_diagnostics"`
}

// DefaultConfig is generous for command-sized inputs; a stored grammar
// that trips these limits is pathological, not large.
func DefaultConfig() Config {
	return Config{
		MaxItemsPerSet:     2000,
		MaxTotalItems:      20000,
		BuildTrees:         true,
		CollectDiagnostics: true,
	}
}

// Parser runs Earley chart construction for one grammar. It holds no
// per-parse state, so a single Parser serves concurrent requests.
type Parser struct {
	grammar *grammar.Grammar
	config  Config
}

// NewParser pairs a grammar with parse limits.
func NewParser(g *grammar.Grammar, cfg Config) *Parser {
	return &Parser{grammar: g, config: cfg}
}

// Grammar returns the grammar this parser runs.
func (p *Parser) Grammar() *grammar.Grammar { return p.grammar }

// Parse builds the chart for the token sequence. The context is checked
// once per token position, the only place where bounded work ends; a
// cancelled context returns the partial chart alongside ctx.Err().
//
// Each set is processed to a fixed point: predict and complete append to
// the set being iterated, so the loop re-reads the length every pass
// instead of caching it.
func (p *Parser) Parse(ctx context.Context, tokens []grammar.Token) (*Chart, error) {
	n := len(tokens)
	chart := newChart(p.grammar, tokens)
	chart.TreesBuilt = p.config.BuildTrees

	for _, rule := range p.grammar.RulesFor(p.grammar.StartSymbol()) {
		chart.add(0, rule, 0, 0, nil, p.config)
	}

	for i := 0; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return chart, err
		}

		set := chart.Sets[i]
		for j := 0; j < set.Len(); j++ {
			it := set.Items()[j]
			if it.Completed() {
				p.complete(chart, it, i)
				continue
			}
			sym, _ := it.NextSymbol()
			switch sym.Kind {
			case grammar.SymNonTerminal:
				p.predict(chart, it, sym.Name, i)
			case grammar.SymTerminal:
				if i < n {
					p.scan(chart, it, sym.Term, i)
				}
			}
		}

		if i < n && chart.Sets[i+1].Len() == 0 {
			chart.StallPosition = i
			if p.config.CollectDiagnostics {
				chart.ExpectedAtStall = expectedSymbols(set)
			}
			return chart, nil
		}
	}

	final := chart.Sets[n]
	for _, it := range final.Items() {
		if it.Completed() && it.Start == 0 && it.Rule.LHS == p.grammar.StartSymbol() {
			chart.CompletedParses = append(chart.CompletedParses, it)
		}
	}
	chart.Success = len(chart.CompletedParses) > 0

	if !chart.Success {
		chart.StallPosition = n
		if p.config.CollectDiagnostics {
			chart.ExpectedAtStall = expectedSymbols(final)
		}
	}
	return chart, nil
}

// predict expands a non-terminal: every rule for name starts fresh at
// position i. If a zero-width completion for name already sits in this
// set, the predicting item advances over it immediately; otherwise items
// predicted after that completion was processed would never move.
func (p *Parser) predict(chart *Chart, it *Item, name string, i int) {
	for _, rule := range p.grammar.RulesFor(name) {
		chart.add(i, rule, 0, i, nil, p.config)
	}

	set := chart.Sets[i]
	for k := 0; k < set.Len(); k++ {
		done := set.Items()[k]
		if !done.Completed() || done.Start != i || done.Rule.LHS != name {
			continue
		}
		src := p.source(it, Child{Kind: ChildItem, Item: done})
		chart.add(i, it.Rule, it.Dot+1, it.Start, src, p.config)
	}
}

// scan consumes one token if the terminal accepts it, advancing the item
// into the next set with the token recorded as the consumed child.
func (p *Parser) scan(chart *Chart, it *Item, term *grammar.Terminal, i int) {
	if term == nil || !term.Matches(chart.Tokens[i]) {
		return
	}
	src := p.source(it, Child{Kind: ChildToken, Token: &chart.Tokens[i]})
	chart.add(i+1, it.Rule, it.Dot+1, it.Start, src, p.config)
}

// complete propagates a finished rule: every item in the origin set that
// was waiting on this LHS advances into the current set, with the
// completed item recorded as the consumed child. The origin set may be
// the current one (zero-width completion); iterating by index keeps that
// safe while items append.
func (p *Parser) complete(chart *Chart, done *Item, i int) {
	origin := chart.Sets[done.Start]
	for k := 0; k < origin.Len(); k++ {
		waiting := origin.Items()[k]
		sym, ok := waiting.NextSymbol()
		if !ok || sym.Kind != grammar.SymNonTerminal || sym.Name != done.Rule.LHS {
			continue
		}
		src := p.source(waiting, Child{Kind: ChildItem, Item: done})
		chart.add(i, waiting.Rule, waiting.Dot+1, waiting.Start, src, p.config)
	}
}

// source materializes a backpointer unless tree building is off, in which
// case the chart records recognition only.
func (p *Parser) source(prev *Item, child Child) *Source {
	if !p.config.BuildTrees {
		return nil
	}
	return &Source{Prev: prev, Child: child}
}

// expectedSymbols collects the labels items in a set are waiting on,
// deduplicated and sorted. Predicted items are already in the set, so
// first terminals of expected non-terminals show up alongside the
// non-terminal names themselves.
func expectedSymbols(set *Set) []string {
	seen := make(map[string]bool)
	var labels []string
	for _, it := range set.Items() {
		sym, ok := it.NextSymbol()
		if !ok {
			continue
		}
		label := sym.Label()
		if !seen[label] {
			seen[label] = true
			labels = append(labels, label)
		}
	}
	sort.Strings(labels)
	return labels
}
