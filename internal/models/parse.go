package models

import (
	"github.com/Conceptual-Machines/maestro-api/internal/diagnostics"
	"github.com/Conceptual-Machines/maestro-api/internal/grammar"
	"github.com/Conceptual-Machines/maestro-api/internal/scoring"
)

// Symbol kinds accepted in stored and inline grammar definitions.
// Predicate terminals only exist in code-authored grammars; they cannot
// round-trip through JSON.
const (
	SymbolNonTerminal = "nonterminal"
	SymbolLiteral     = "literal"
	SymbolType        = "type"
	SymbolTag         = "tag"
	SymbolRegex       = "regex"
	SymbolWildcard    = "wildcard"
)

// SymbolDefinition is one serializable RHS symbol
type SymbolDefinition struct {
	Kind  string `json:"kind"`
	Value string `json:"value,omitempty"`
}

// RuleDefinition is one serializable production
type RuleDefinition struct {
	ID             string             `json:"id"`
	LHS            string             `json:"lhs"`
	RHS            []SymbolDefinition `json:"rhs"`
	Priority       int                `json:"priority"`
	SemanticAction string             `json:"semantic_action,omitempty"`
	Description    string             `json:"description,omitempty"`
	Source         string             `json:"source,omitempty"`
}

// GrammarDefinition is the wire form of a full grammar
type GrammarDefinition struct {
	Name        string           `json:"name"`
	StartSymbol string           `json:"start_symbol"`
	Rules       []RuleDefinition `json:"rules"`
}

// ParseRequest carries one tokenized utterance. Either Grammar names a
// stored grammar (empty means the builtin command grammar) or Rules
// supplies an inline definition for experimentation.
type ParseRequest struct {
	Grammar string             `json:"grammar,omitempty"`
	Rules   *GrammarDefinition `json:"rules,omitempty"`
	Tokens  []grammar.Token    `json:"tokens"`

	// Optional per-request scoring overrides; zero values keep the
	// service defaults.
	MaxResults             int      `json:"max_results,omitempty"`
	ClarityThreshold       *float64 `json:"clarity_threshold,omitempty"`
	ClarificationThreshold *float64 `json:"clarification_threshold,omitempty"`
}

// ParseStats summarizes chart construction for one request
type ParseStats struct {
	TokenCount int   `json:"token_count"`
	TotalItems int   `json:"total_items"`
	DurationMS int64 `json:"duration_ms"`
}

// ParseResponse is the parse endpoint's reply. Exactly one of Parses or
// Diagnostic is populated, keyed by Outcome; Truncated is reported
// separately because a truncated chart can still produce parses that
// must not be presented as a complete analysis.
type ParseResponse struct {
	RequestID           string                  `json:"request_id"`
	Grammar             string                  `json:"grammar"`
	Outcome             string                  `json:"outcome"`
	Truncated           bool                    `json:"truncated"`
	LimitHit            string                  `json:"limit_hit,omitempty"`
	Parses              []scoring.ScoredParse   `json:"parses,omitempty"`
	Diagnostic          *diagnostics.Diagnostic `json:"diagnostic,omitempty"`
	NeedsClarification  bool                    `json:"needs_clarification"`
	ClarificationReason string                  `json:"clarification_reason,omitempty"`
	Warnings            []string                `json:"warnings,omitempty"`
	Stats               ParseStats              `json:"stats"`
}

// ParseDebugResponse extends a parse reply with rendered dumps of the
// chart, the candidate trees, and the ranked list. Meant for grammar
// authors chasing a misparse, not for programmatic consumption.
type ParseDebugResponse struct {
	ParseResponse
	ChartDump  string   `json:"chart_dump"`
	TreeDumps  []string `json:"tree_dumps,omitempty"`
	RankedDump string   `json:"ranked_dump,omitempty"`
}

// ClarifyOption is one interpretation offered to the user
type ClarifyOption struct {
	Label          string  `json:"label"`
	RuleID         string  `json:"rule_id"`
	SemanticAction string  `json:"semantic_action,omitempty"`
	Score          float64 `json:"score"`
}

// ClarifyRequest re-parses the utterance server side and phrases a
// disambiguation question for it
type ClarifyRequest struct {
	Grammar string          `json:"grammar,omitempty"`
	Tokens  []grammar.Token `json:"tokens"`
}

// ClarifyResponse carries the question the UI should ask
type ClarifyResponse struct {
	RequestID string          `json:"request_id"`
	Question  string          `json:"question"`
	Options   []ClarifyOption `json:"options"`
	Source    string          `json:"source"` // "template" or the LLM model name
}
