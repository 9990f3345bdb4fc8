package grammar

import (
	"fmt"
	"sort"
	"strings"
)

// Grammar is an immutable rule set. Built once by the authoring layer and
// shared read-only across concurrent parses; nothing here mutates after
// Build returns.
type Grammar struct {
	name        string
	startSymbol string
	rules       []*Rule
	rulesByLHS  map[string][]*Rule
	warnings    []string
}

// Name returns the grammar's name.
func (g *Grammar) Name() string { return g.name }

// StartSymbol returns the non-terminal parses must derive.
func (g *Grammar) StartSymbol() string { return g.startSymbol }

// Rules returns all productions in registration order. Callers must not
// modify the returned slice.
func (g *Grammar) Rules() []*Rule { return g.rules }

// RulesFor returns the productions for one non-terminal, in registration
// order. This is the prediction lookup; it is O(1) on the non-terminal name.
func (g *Grammar) RulesFor(lhs string) []*Rule { return g.rulesByLHS[lhs] }

// Warnings returns lint findings from Build: unreachable non-terminals and
// references to non-terminals no rule defines. These do not block parsing.
func (g *Grammar) Warnings() []string { return g.warnings }

// RuleByID returns the rule with the given id, or nil.
func (g *Grammar) RuleByID(id string) *Rule {
	for _, r := range g.rules {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// NonTerminals returns the defined non-terminal names, sorted.
func (g *Grammar) NonTerminals() []string {
	names := make([]string, 0, len(g.rulesByLHS))
	for name := range g.rulesByLHS {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Format renders the grammar as readable text for logs and the debug
// endpoint. No contract beyond human readability.
func (g *Grammar) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "grammar %s (start: %s, %d rules)\n", g.name, g.startSymbol, len(g.rules))
	for _, name := range g.NonTerminals() {
		for _, r := range g.rulesByLHS[name] {
			fmt.Fprintf(&b, "  [%s] %s (priority %d", r.ID, r.String(), r.Priority)
			if r.SemanticAction != "" {
				fmt.Fprintf(&b, ", action %s", r.SemanticAction)
			}
			b.WriteString(")\n")
		}
	}
	return b.String()
}

// validate enforces the hard invariants and collects lint warnings.
// Duplicate rule ids fail loudly: prediction is keyed by LHS, so a
// shadowed id would surface only as a wrong parse much later.
func validate(name, start string, rules []*Rule) ([]string, error) {
	if name == "" {
		return nil, fmt.Errorf("grammar has no name")
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("grammar %q has no rules", name)
	}

	seen := make(map[string]bool, len(rules))
	defined := make(map[string]bool)
	for _, r := range rules {
		if r.ID == "" {
			return nil, fmt.Errorf("grammar %q: rule %s has an empty id", name, r.String())
		}
		if seen[r.ID] {
			return nil, fmt.Errorf("grammar %q: duplicate rule id %q", name, r.ID)
		}
		seen[r.ID] = true
		defined[r.LHS] = true
	}
	if !defined[start] {
		return nil, fmt.Errorf("grammar %q: start symbol %q has no rules", name, start)
	}

	var warnings []string

	// Undefined references: a non-terminal used on a RHS that no rule
	// defines can never complete, which usually means a typo.
	referenced := make(map[string]bool)
	for _, r := range rules {
		for _, sym := range r.RHS {
			if sym.Kind == SymNonTerminal {
				referenced[sym.Name] = true
				if !defined[sym.Name] {
					warnings = append(warnings,
						fmt.Sprintf("rule %q references undefined non-terminal %q", r.ID, sym.Name))
				}
			}
		}
	}

	// Reachability lint: walk from the start symbol and report anything
	// the walk never touches.
	reachable := map[string]bool{start: true}
	queue := []string{start}
	byLHS := make(map[string][]*Rule)
	for _, r := range rules {
		byLHS[r.LHS] = append(byLHS[r.LHS], r)
	}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, r := range byLHS[current] {
			for _, sym := range r.RHS {
				if sym.Kind == SymNonTerminal && !reachable[sym.Name] {
					reachable[sym.Name] = true
					queue = append(queue, sym.Name)
				}
			}
		}
	}
	unreachable := make([]string, 0)
	for lhs := range defined {
		if !reachable[lhs] {
			unreachable = append(unreachable, lhs)
		}
	}
	sort.Strings(unreachable)
	for _, lhs := range unreachable {
		warnings = append(warnings, fmt.Sprintf("non-terminal %q is unreachable from %q", lhs, start))
	}

	sort.Strings(warnings)
	return warnings, nil
}
