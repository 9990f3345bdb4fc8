package grammar

import (
	"fmt"
	"regexp"
)

// Builder accumulates productions and freezes them into an immutable
// Grammar. The builder itself is mutable scratch state; everything it
// hands out after Build is copied, so later builder use cannot reach
// into a built grammar.
//
//	b := grammar.NewBuilder("music-editing", "COMMAND")
//	b.Rule("cmd.adjust", "COMMAND").
//		Lit("make").NT("TARGET").Type("adjective").
//		Priority(10).Action("edit.adjust")
//	g, err := b.Build()
type Builder struct {
	name        string
	startSymbol string
	rules       []*Rule
}

// NewBuilder starts a grammar with the given name and start symbol.
func NewBuilder(name, startSymbol string) *Builder {
	return &Builder{name: name, startSymbol: startSymbol}
}

// Rule registers a production for lhs and returns a RuleBuilder that
// appends RHS symbols and attributes to it. A rule with no appended
// symbols is an empty production.
func (b *Builder) Rule(id, lhs string) *RuleBuilder {
	r := &Rule{ID: id, LHS: lhs}
	b.rules = append(b.rules, r)
	return &RuleBuilder{rule: r}
}

// Add registers a fully formed production in one call, for callers that
// already hold the symbol slice (stored grammar definitions decode this way).
func (b *Builder) Add(r Rule) *Builder {
	clone := r
	clone.RHS = append([]Symbol(nil), r.RHS...)
	b.rules = append(b.rules, &clone)
	return b
}

// Build validates the accumulated rules and freezes them. Duplicate rule
// ids, an empty rule set, or an undefined start symbol are hard errors;
// unreachable and undefined non-terminals come back as Warnings on the
// grammar.
func (b *Builder) Build() (*Grammar, error) {
	if err := compileRegexTerminals(b.rules); err != nil {
		return nil, fmt.Errorf("grammar %q: %w", b.name, err)
	}
	warnings, err := validate(b.name, b.startSymbol, b.rules)
	if err != nil {
		return nil, err
	}

	frozen := make([]*Rule, len(b.rules))
	byLHS := make(map[string][]*Rule, len(b.rules))
	for i, r := range b.rules {
		clone := *r
		clone.RHS = append([]Symbol(nil), r.RHS...)
		frozen[i] = &clone
		byLHS[clone.LHS] = append(byLHS[clone.LHS], frozen[i])
	}

	return &Grammar{
		name:        b.name,
		startSymbol: b.startSymbol,
		rules:       frozen,
		rulesByLHS:  byLHS,
		warnings:    warnings,
	}, nil
}

func compileRegexTerminals(rules []*Rule) error {
	for _, r := range rules {
		for i := range r.RHS {
			term := r.RHS[i].Term
			if term == nil || term.Kind != MatchRegex || term.re != nil {
				continue
			}
			re, err := regexp.Compile(term.Value)
			if err != nil {
				return fmt.Errorf("rule %q: bad pattern %q: %w", r.ID, term.Value, err)
			}
			term.re = re
		}
	}
	return nil
}

// RuleBuilder appends symbols and attributes to one registered rule.
type RuleBuilder struct {
	rule *Rule
}

// NT appends a non-terminal reference.
func (rb *RuleBuilder) NT(name string) *RuleBuilder {
	rb.rule.RHS = append(rb.rule.RHS, NT(name))
	return rb
}

// Lit appends a case-insensitive literal terminal.
func (rb *RuleBuilder) Lit(text string) *RuleBuilder {
	rb.rule.RHS = append(rb.rule.RHS, Lit(text))
	return rb
}

// Type appends a token-type terminal.
func (rb *RuleBuilder) Type(tokenType string) *RuleBuilder {
	rb.rule.RHS = append(rb.rule.RHS, Type(tokenType))
	return rb
}

// Tag appends a vocabulary-tag terminal.
func (rb *RuleBuilder) Tag(tag string) *RuleBuilder {
	rb.rule.RHS = append(rb.rule.RHS, Tag(tag))
	return rb
}

// Regex appends a pattern terminal. The pattern compiles at Build.
func (rb *RuleBuilder) Regex(pattern string) *RuleBuilder {
	rb.rule.RHS = append(rb.rule.RHS, Regex(pattern))
	return rb
}

// Pred appends a predicate terminal.
func (rb *RuleBuilder) Pred(label string, fn func(Token) bool) *RuleBuilder {
	rb.rule.RHS = append(rb.rule.RHS, Pred(label, fn))
	return rb
}

// Any appends a wildcard terminal.
func (rb *RuleBuilder) Any() *RuleBuilder {
	rb.rule.RHS = append(rb.rule.RHS, Any())
	return rb
}

// Priority sets the rule's priority. Higher priorities score better.
func (rb *RuleBuilder) Priority(p int) *RuleBuilder {
	rb.rule.Priority = p
	return rb
}

// Action attaches the opaque semantic action the client executes when
// this rule wins. Actions containing "infer", "default" or "implicit"
// mark the rule as filling in unstated intent.
func (rb *RuleBuilder) Action(action string) *RuleBuilder {
	rb.rule.SemanticAction = action
	return rb
}

// Describe attaches a human-readable description, shown in diagnostics.
func (rb *RuleBuilder) Describe(description string) *RuleBuilder {
	rb.rule.Description = description
	return rb
}

// From records which grammar module contributed the rule. Scoring's
// coherence component rewards parses drawn from a single source.
func (rb *RuleBuilder) From(source string) *RuleBuilder {
	rb.rule.Source = source
	return rb
}
