package grammar

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderBuildsImmutableGrammar(t *testing.T) {
	b := NewBuilder("test", "S")
	b.Rule("s.cmd", "S").Lit("make").NT("TARGET").Priority(10).Action("edit.adjust")
	b.Rule("t.bass", "TARGET").Lit("bass").Priority(5)

	g, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, "test", g.Name())
	assert.Equal(t, "S", g.StartSymbol())
	assert.Len(t, g.Rules(), 2)
	assert.Len(t, g.RulesFor("S"), 1)
	assert.Len(t, g.RulesFor("TARGET"), 1)
	assert.Empty(t, g.Warnings())

	// Mutating the builder afterwards must not reach the built grammar.
	b.Rule("t.drums", "TARGET").Lit("drums")
	assert.Len(t, g.RulesFor("TARGET"), 1)
}

func TestBuilderValidation(t *testing.T) {
	tests := []struct {
		name    string
		build   func() *Builder
		wantErr string
	}{
		{
			name: "duplicate rule id",
			build: func() *Builder {
				b := NewBuilder("dup", "S")
				b.Rule("same", "S").Lit("a")
				b.Rule("same", "S").Lit("b")
				return b
			},
			wantErr: `duplicate rule id "same"`,
		},
		{
			name: "empty rule id",
			build: func() *Builder {
				b := NewBuilder("anon", "S")
				b.Rule("", "S").Lit("a")
				return b
			},
			wantErr: "empty id",
		},
		{
			name: "no rules",
			build: func() *Builder {
				return NewBuilder("empty", "S")
			},
			wantErr: "no rules",
		},
		{
			name: "start symbol undefined",
			build: func() *Builder {
				b := NewBuilder("nostart", "S")
				b.Rule("x", "X").Lit("a")
				return b
			},
			wantErr: `start symbol "S" has no rules`,
		},
		{
			name: "bad regex pattern",
			build: func() *Builder {
				b := NewBuilder("badre", "S")
				b.Rule("s", "S").Regex("[unclosed")
				return b
			},
			wantErr: "bad pattern",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build().Build()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBuilderLintWarnings(t *testing.T) {
	b := NewBuilder("lint", "S")
	b.Rule("s", "S").Lit("go").NT("MISSING")
	b.Rule("orphan", "ORPHAN").Lit("never")

	g, err := b.Build()
	require.NoError(t, err)

	warnings := strings.Join(g.Warnings(), "\n")
	assert.Contains(t, warnings, `undefined non-terminal "MISSING"`)
	assert.Contains(t, warnings, `"ORPHAN" is unreachable`)
}

func TestTerminalMatchers(t *testing.T) {
	louder := Token{Text: "Louder", Type: "adjective", Tags: []string{"gain", "positive"}}

	tests := []struct {
		name    string
		symbol  Symbol
		token   Token
		matches bool
	}{
		{"literal ignores case", Lit("louder"), louder, true},
		{"literal mismatch", Lit("quieter"), louder, false},
		{"type match", Type("adjective"), louder, true},
		{"type mismatch", Type("noun"), louder, false},
		{"tag match", Tag("gain"), louder, true},
		{"tag case insensitive", Tag("POSITIVE"), louder, true},
		{"tag mismatch", Tag("tempo"), louder, false},
		{"wildcard", Any(), louder, true},
		{"predicate", Pred("short", func(tok Token) bool { return len(tok.Text) < 10 }), louder, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, SymTerminal, tt.symbol.Kind)
			assert.Equal(t, tt.matches, tt.symbol.Term.Matches(tt.token))
		})
	}
}

func TestRegexMatcherCompilesAtBuild(t *testing.T) {
	b := NewBuilder("re", "S")
	b.Rule("s.num", "S").Regex(`^[0-9]+$`)
	g, err := b.Build()
	require.NoError(t, err)

	term := g.RulesFor("S")[0].RHS[0].Term
	assert.True(t, term.Matches(Token{Text: "120"}))
	assert.False(t, term.Matches(Token{Text: "bpm"}))
}

func TestSymbolLabels(t *testing.T) {
	assert.Equal(t, `"make"`, Lit("make").Label())
	assert.Equal(t, "<verb>", Type("verb").Label())
	assert.Equal(t, "#target", Tag("target").Label())
	assert.Equal(t, "/^[0-9]+$/", Regex("^[0-9]+$").Label())
	assert.Equal(t, "*", Any().Label())
	assert.Equal(t, "TARGET", NT("TARGET").Label())
}

func TestRuleStringAndInferred(t *testing.T) {
	b := NewBuilder("fmt", "S")
	b.Rule("s.full", "S").Lit("make").NT("T").Type("adjective").Action("edit.infer_track")
	b.Rule("s.empty", "S").Action("edit.explicit")
	g, err := b.Build()
	require.NoError(t, err)

	rules := g.RulesFor("S")
	assert.Equal(t, `S → "make" T <adjective>`, rules[0].String())
	assert.Equal(t, "S → ε", rules[1].String())
	assert.True(t, rules[0].Inferred())
	assert.False(t, rules[1].Inferred())
}

func TestGrammarFormatListsEveryRule(t *testing.T) {
	b := NewBuilder("music", "COMMAND")
	b.Rule("cmd.make", "COMMAND").Lit("make").NT("TARGET").Priority(10).Action("edit.adjust")
	b.Rule("target.bass", "TARGET").Lit("bass").Priority(5)
	g, err := b.Build()
	require.NoError(t, err)

	formatted := g.Format()
	assert.Contains(t, formatted, "grammar music (start: COMMAND, 2 rules)")
	assert.Contains(t, formatted, "[cmd.make]")
	assert.Contains(t, formatted, "[target.bass]")
	assert.Contains(t, formatted, "action edit.adjust")
}
