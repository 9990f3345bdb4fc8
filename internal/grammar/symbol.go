package grammar

import (
	"regexp"
	"strings"
)

// SymbolKind discriminates the two symbol variants.
type SymbolKind int

const (
	SymNonTerminal SymbolKind = iota
	SymTerminal
)

// MatcherKind discriminates how a terminal decides whether it accepts a token.
type MatcherKind int

const (
	MatchExact MatcherKind = iota
	MatchType
	MatchTag
	MatchRegex
	MatchPredicate
	MatchWildcard
)

// Terminal is a leaf symbol: a matcher plus a human-readable label used in
// expected-symbol lists and debug output. Immutable once built.
type Terminal struct {
	Kind  MatcherKind
	Value string // exact text, token type, tag name, or regex source
	Label string

	re   *regexp.Regexp
	pred func(Token) bool
}

// Matches reports whether the terminal accepts the token.
func (t *Terminal) Matches(tok Token) bool {
	switch t.Kind {
	case MatchExact:
		return strings.EqualFold(tok.Text, t.Value)
	case MatchType:
		return strings.EqualFold(tok.Type, t.Value)
	case MatchTag:
		return tok.HasTag(t.Value)
	case MatchRegex:
		return t.re != nil && t.re.MatchString(tok.Text)
	case MatchPredicate:
		return t.pred != nil && t.pred(tok)
	case MatchWildcard:
		return true
	}
	return false
}

// Symbol is one position on a rule's right-hand side: either a non-terminal
// name or a terminal matcher.
type Symbol struct {
	Kind SymbolKind
	Name string    // non-terminal name when Kind == SymNonTerminal
	Term *Terminal // matcher when Kind == SymTerminal
}

// Label renders the symbol the way diagnostics and chart dumps show it:
// non-terminals by name, terminals by their matcher label.
func (s Symbol) Label() string {
	if s.Kind == SymNonTerminal {
		return s.Name
	}
	if s.Term == nil {
		return "?"
	}
	return s.Term.Label
}

// NT references the non-terminal with the given name.
func NT(name string) Symbol {
	return Symbol{Kind: SymNonTerminal, Name: name}
}

// Lit matches a token whose text equals the given word, ignoring case.
func Lit(text string) Symbol {
	return Symbol{Kind: SymTerminal, Term: &Terminal{
		Kind:  MatchExact,
		Value: text,
		Label: `"` + text + `"`,
	}}
}

// Type matches a token by its tokenizer-assigned type (noun, adjective, ...).
func Type(tokenType string) Symbol {
	return Symbol{Kind: SymTerminal, Term: &Terminal{
		Kind:  MatchType,
		Value: tokenType,
		Label: "<" + tokenType + ">",
	}}
}

// Tag matches a token carrying the given vocabulary tag.
func Tag(tag string) Symbol {
	return Symbol{Kind: SymTerminal, Term: &Terminal{
		Kind:  MatchTag,
		Value: tag,
		Label: "#" + tag,
	}}
}

// Regex matches a token whose text matches the pattern. The pattern is
// compiled at Build time so a bad pattern fails the grammar, not the parse.
func Regex(pattern string) Symbol {
	return Symbol{Kind: SymTerminal, Term: &Terminal{
		Kind:  MatchRegex,
		Value: pattern,
		Label: "/" + pattern + "/",
	}}
}

// Pred matches via an arbitrary predicate. Predicate terminals cannot be
// expressed in stored grammar definitions; they are for grammars authored
// in code.
func Pred(label string, fn func(Token) bool) Symbol {
	return Symbol{Kind: SymTerminal, Term: &Terminal{
		Kind:  MatchPredicate,
		Label: "?" + label,
		pred:  fn,
	}}
}

// Any matches every token.
func Any() Symbol {
	return Symbol{Kind: SymTerminal, Term: &Terminal{
		Kind:  MatchWildcard,
		Label: "*",
	}}
}
