package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/maestro-api/internal/diagnostics"
	"github.com/Conceptual-Machines/maestro-api/internal/earley"
	"github.com/Conceptual-Machines/maestro-api/internal/forest"
	"github.com/Conceptual-Machines/maestro-api/internal/grammar"
	"github.com/Conceptual-Machines/maestro-api/internal/scoring"
)

func tok(text, tokenType string, tags ...string) grammar.Token {
	return grammar.Token{Text: text, Type: tokenType, Tags: tags}
}

func sequence(tokens ...grammar.Token) []grammar.Token {
	pos := 0
	for i := range tokens {
		tokens[i].Span = grammar.Span{Start: pos, End: pos + len(tokens[i].Text)}
		pos += len(tokens[i].Text) + 1
	}
	return tokens
}

// words builds bare word tokens the way a minimal tokenizer would,
// leaving all tagging to the lexicon.
func words(texts ...string) []grammar.Token {
	tokens := make([]grammar.Token, len(texts))
	for i, text := range texts {
		tokens[i] = grammar.Token{Text: text, Type: TypeWord}
	}
	return sequence(tokens...)
}

func loadAll(t *testing.T) (*grammar.Grammar, *Lexicon) {
	t.Helper()
	g, lex, err := Load()
	require.NoError(t, err)
	return g, lex
}

func parseAndRank(t *testing.T, g *grammar.Grammar, lex *Lexicon, tokens []grammar.Token) ([]scoring.ScoredParse, *earley.Chart) {
	t.Helper()
	parser := earley.NewParser(g, earley.DefaultConfig())
	chart, err := parser.Parse(context.Background(), lex.Annotate(tokens))
	require.NoError(t, err)
	scored, err := scoring.Rank(forest.Extract(chart), scoring.DefaultConfig())
	require.NoError(t, err)
	return scored, chart
}

func ruleIDs(node *forest.Node) map[string]bool {
	ids := map[string]bool{}
	var walk func(*forest.Node)
	walk = func(n *forest.Node) {
		if n == nil {
			return
		}
		if n.Kind == forest.KindAnd {
			ids[n.RuleID] = true
		}
		for _, child := range n.Children {
			walk(child)
		}
	}
	walk(node)
	return ids
}

func leafTexts(node *forest.Node) []string {
	var texts []string
	var walk func(*forest.Node)
	walk = func(n *forest.Node) {
		if n.Kind == forest.KindLeaf {
			texts = append(texts, n.Token.Text)
			return
		}
		for _, child := range n.Children {
			walk(child)
		}
	}
	walk(node)
	return texts
}

func TestGrammarBuildsClean(t *testing.T) {
	g, _ := loadAll(t)

	assert.Equal(t, GrammarName, g.Name())
	assert.Equal(t, StartSymbol, g.StartSymbol())
	assert.Empty(t, g.Warnings(), "builtin grammar should have no lint warnings")

	// Unit rules come straight from the vocabulary table.
	require.NotNil(t, g.RuleByID("unit.db"))
	require.NotNil(t, g.RuleByID("unit.bpm"))
	require.NotNil(t, g.RuleByID("cmd.adjust.inst"))
}

func TestCanonicalCommandScoresHigh(t *testing.T) {
	// A tokenizer that already disambiguated "bass" as an instrument
	// gives exactly one reading, strong enough to act on unasked.
	g, lex := loadAll(t)
	tokens := sequence(
		tok("make", "verb"),
		tok("the", "article"),
		tok("bass", "noun", TagInstrument),
		tok("louder", "word", TagAdjective),
	)

	scored, chart := parseAndRank(t, g, lex, tokens)
	assert.True(t, chart.Success)
	require.Len(t, scored, 1)

	top := scored[0]
	assert.Equal(t, "cmd.adjust.inst", top.Tree.RuleID)
	assert.GreaterOrEqual(t, top.Score, 0.8)
	assert.Equal(t, scoring.ConfidenceHigh, top.Confidence)
	assert.False(t, top.NeedsClarification)

	// Root span covers the whole utterance.
	assert.Equal(t, tokens[0].Span.Start, top.Tree.Span.Start)
	assert.Equal(t, tokens[len(tokens)-1].Span.End, top.Tree.Span.End)
}

func TestUntaggedBassSplitsIntoTwoReadings(t *testing.T) {
	// With no upstream tagging, the lexicon marks "bass" as both an
	// instrument and a frequency band. Both command rules complete and
	// the near-identical scores force a clarification.
	g, lex := loadAll(t)

	scored, chart := parseAndRank(t, g, lex, words("make", "the", "bass", "louder"))
	assert.True(t, chart.Success)
	require.Len(t, scored, 2)

	assert.Equal(t, "cmd.adjust.inst", scored[0].Tree.RuleID)
	assert.Equal(t, "cmd.adjust.band", scored[1].Tree.RuleID)
	assert.Greater(t, scored[0].Score, scored[1].Score)

	assert.True(t, scored[0].NeedsClarification)
	assert.Contains(t, scored[0].ClarificationReason, "similar scores")
	assert.Equal(t, scoring.ConfidenceAmbiguous, scored[0].Confidence)
}

func TestMissingTargetStallsWithUsefulDiagnostic(t *testing.T) {
	g, lex := loadAll(t)
	tokens := lex.Annotate(words("make", "louder"))

	chart, err := earley.NewParser(g, earley.DefaultConfig()).Parse(context.Background(), tokens)
	require.NoError(t, err)
	assert.False(t, chart.Success)
	assert.Equal(t, 1, chart.StallPosition)

	diag := diagnostics.FromChart(chart)
	assert.Equal(t, `"louder"`, diag.Found)
	assert.Contains(t, diag.Expected, "ITARGET")
	assert.Contains(t, diag.Expected, "#instrument")
	assert.NotEmpty(t, diag.PartialParses)
	assert.NotEmpty(t, diag.Suggestions)
}

func TestLowPriorityDuplicateRanksSecond(t *testing.T) {
	// A deprecated rule kept around at low priority must never outrank
	// its replacement, and the priority component has to show why.
	b := grammar.NewBuilder("variant", "COMMAND")
	b.Rule("cmd.mute", "COMMAND").
		Lit("mute").NT("T").Priority(18).Action("mix.mute").From("builtin")
	b.Rule("cmd.mute.legacy", "COMMAND").
		Lit("mute").NT("T").Priority(4).Action("mix.mute_legacy").From("legacy")
	b.Rule("t.word", "T").Tag(TagInstrument).Priority(18).From("builtin")
	g, err := b.Build()
	require.NoError(t, err)

	_, lex := loadAll(t)
	scored, _ := parseAndRank(t, g, lex, words("mute", "bass"))
	require.Len(t, scored, 2)

	assert.Equal(t, "cmd.mute", scored[0].Tree.RuleID)
	assert.Equal(t, "cmd.mute.legacy", scored[1].Tree.RuleID)

	require.Equal(t, "priority", scored[0].Breakdown.Components[0].Name)
	assert.Greater(t,
		scored[0].Breakdown.Components[0].Raw,
		scored[1].Breakdown.Components[0].Raw)
}

func TestUnitRulesParseAmounts(t *testing.T) {
	g, lex := loadAll(t)

	scored, chart := parseAndRank(t, g, lex, words("boost", "the", "bass", "by", "3", "db"))
	assert.True(t, chart.Success)
	require.Len(t, scored, 1)

	top := scored[0]
	assert.Equal(t, "mix.boost", top.Tree.SemanticAction)
	ids := ruleIDs(top.Tree)
	assert.True(t, ids["unit.db"], "expected the generated unit.db rule in the tree")
	assert.True(t, ids["amount.unit"])
	assert.False(t, top.NeedsClarification)
}

func TestBareBoostNeedsClarification(t *testing.T) {
	// "boost the bass" is doubly hedged: fader or EQ, and no amount.
	// Both readings carry an inferring action and tie exactly.
	g, lex := loadAll(t)

	scored, _ := parseAndRank(t, g, lex, words("boost", "the", "bass"))
	require.Len(t, scored, 2)

	assert.InDelta(t, scored[0].Score, scored[1].Score, 1e-9)
	assert.True(t, scored[0].NeedsClarification)
	assert.Contains(t, scored[0].ClarificationReason, "similar scores")
}

func TestRenameAcceptsArbitraryName(t *testing.T) {
	g, lex := loadAll(t)

	scored, chart := parseAndRank(t, g, lex, words("rename", "the", "synth", "to", "warmth"))
	assert.True(t, chart.Success)
	require.Len(t, scored, 1)

	top := scored[0]
	assert.Equal(t, "arrange.rename", top.Tree.SemanticAction)
	assert.Contains(t, leafTexts(top.Tree), "warmth")
	assert.Equal(t, scoring.ConfidenceHigh, top.Confidence)
}

func TestPercentAmounts(t *testing.T) {
	g, lex := loadAll(t)

	scored, chart := parseAndRank(t, g, lex, words("make", "the", "vocals", "louder", "by", "20%"))
	assert.True(t, chart.Success)
	require.Len(t, scored, 1)

	top := scored[0]
	assert.Equal(t, "mix.adjust_by", top.Tree.SemanticAction)
	assert.True(t, ruleIDs(top.Tree)["amount.percent"])
}

func TestSetTempoParsesUnambiguously(t *testing.T) {
	g, lex := loadAll(t)

	scored, chart := parseAndRank(t, g, lex, words("set", "tempo", "to", "120", "bpm"))
	assert.True(t, chart.Success)
	require.Len(t, scored, 1)
	assert.Equal(t, "transport.set_tempo", scored[0].Tree.SemanticAction)
	assert.False(t, scored[0].NeedsClarification)
}

func TestPipelineIsDeterministic(t *testing.T) {
	g, lex := loadAll(t)
	tokens := words("make", "the", "bass", "louder")

	first, _ := parseAndRank(t, g, lex, tokens)
	second, _ := parseAndRank(t, g, lex, tokens)

	assert.Equal(t, scoring.Format(first), scoring.Format(second))
}
