package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/maestro-api/internal/grammar"
)

func TestLexiconLoadsEmbeddedTables(t *testing.T) {
	lex, err := NewLexicon()
	require.NoError(t, err)

	assert.True(t, lex.IsInstrument("bass"))
	assert.True(t, lex.IsInstrument("Vocals"), "lookups are case-insensitive")
	assert.True(t, lex.IsEffect("reverb"))

	adj, ok := lex.Adjective("louder")
	require.True(t, ok)
	assert.Equal(t, "volume", adj.Dimension)
	assert.Equal(t, "up", adj.Direction)

	band, ok := lex.Band("bass")
	require.True(t, ok)
	assert.Equal(t, 60, band.LowHz)
	assert.Equal(t, 250, band.HighHz)

	kind, ok := lex.UnitKind("db")
	require.True(t, ok)
	assert.Equal(t, "level", kind)

	units := lex.Units()
	require.NotEmpty(t, units)
	assert.Equal(t, "db", units[0], "units keep table order")
	assert.Contains(t, units, "bpm")
}

func TestTagsForAmbiguousWord(t *testing.T) {
	lex, err := NewLexicon()
	require.NoError(t, err)

	// "bass" sits in two tables; both tags come back, in fixed order.
	assert.Equal(t, []string{TagInstrument, TagBand}, lex.TagsFor("bass"))
	assert.Equal(t, []string{TagAdjective}, lex.TagsFor("louder"))
	assert.Empty(t, lex.TagsFor("make"))
}

func TestAnnotateTrustsUpstreamTags(t *testing.T) {
	lex, err := NewLexicon()
	require.NoError(t, err)

	tokens := []grammar.Token{
		{Text: "bass", Type: "noun", Tags: []string{TagInstrument}},
		{Text: "bass", Type: TypeWord},
	}
	annotated := lex.Annotate(tokens)

	// Pre-tagged stays as delivered; bare picks up the full ambiguity.
	assert.Equal(t, []string{TagInstrument}, annotated[0].Tags)
	assert.Equal(t, []string{TagInstrument, TagBand}, annotated[1].Tags)
}

func TestAnnotateTypesNumbers(t *testing.T) {
	lex, err := NewLexicon()
	require.NoError(t, err)

	tokens := lex.Annotate([]grammar.Token{
		{Text: "3", Type: TypeWord},
		{Text: "3.5", Type: TypeWord},
		{Text: "3", Type: "ordinal"},
		{Text: "20%", Type: TypeWord},
	})

	assert.Equal(t, TypeNumber, tokens[0].Type)
	assert.Equal(t, TypeNumber, tokens[1].Type)
	assert.Equal(t, "ordinal", tokens[2].Type, "an explicit upstream type wins")
	assert.Equal(t, TypeWord, tokens[3].Type)
}
