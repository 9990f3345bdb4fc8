package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/maestro-api/internal/commands"
	"github.com/Conceptual-Machines/maestro-api/internal/models"
)

func newTestGrammarService(t *testing.T) *GrammarService {
	t.Helper()
	svc, err := NewGrammarService(nil)
	require.NoError(t, err)
	return svc
}

func TestResolveBuiltin(t *testing.T) {
	svc := newTestGrammarService(t)

	byEmpty, err := svc.Resolve(context.Background(), "")
	require.NoError(t, err)
	byName, err := svc.Resolve(context.Background(), commands.GrammarName)
	require.NoError(t, err)

	assert.Same(t, svc.Builtin(), byEmpty)
	assert.Same(t, svc.Builtin(), byName)
}

func TestResolveUnknownGrammar(t *testing.T) {
	svc := newTestGrammarService(t)

	_, err := svc.Resolve(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestBuildFromDefinitionAllKinds(t *testing.T) {
	def := &models.GrammarDefinition{
		Name:        "kinds",
		StartSymbol: "S",
		Rules: []models.RuleDefinition{
			{
				ID:  "s.main",
				LHS: "S",
				RHS: []models.SymbolDefinition{
					{Kind: models.SymbolNonTerminal, Value: "OBJ"},
					{Kind: models.SymbolLiteral, Value: "go"},
					{Kind: models.SymbolType, Value: "number"},
					{Kind: models.SymbolTag, Value: "instrument"},
					{Kind: models.SymbolRegex, Value: "^x+$"},
					{Kind: models.SymbolWildcard},
				},
				Priority:       12,
				SemanticAction: "demo.run",
				Description:    "demo rule",
			},
			{
				ID:  "obj.word",
				LHS: "OBJ",
				RHS: []models.SymbolDefinition{{Kind: models.SymbolLiteral, Value: "obj"}},
			},
		},
	}

	g, err := BuildFromDefinition(def)
	require.NoError(t, err)

	assert.Equal(t, "kinds", g.Name())
	assert.Equal(t, "S", g.StartSymbol())
	require.NotNil(t, g.RuleByID("s.main"))
	assert.Equal(t, "demo.run", g.RuleByID("s.main").SemanticAction)
	assert.Len(t, g.RuleByID("s.main").RHS, 6)
}

func TestBuildFromDefinitionRejectsPredicate(t *testing.T) {
	def := &models.GrammarDefinition{
		Name:        "bad",
		StartSymbol: "S",
		Rules: []models.RuleDefinition{
			{
				ID:  "s.pred",
				LHS: "S",
				RHS: []models.SymbolDefinition{{Kind: "predicate", Value: "percent"}},
			},
		},
	}

	_, err := BuildFromDefinition(def)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported symbol kind")
}

func TestBuildFromDefinitionDuplicateRuleID(t *testing.T) {
	def := &models.GrammarDefinition{
		Name:        "dup",
		StartSymbol: "S",
		Rules: []models.RuleDefinition{
			{ID: "same", LHS: "S", RHS: []models.SymbolDefinition{{Kind: models.SymbolLiteral, Value: "a"}}},
			{ID: "same", LHS: "S", RHS: []models.SymbolDefinition{{Kind: models.SymbolLiteral, Value: "b"}}},
		},
	}

	_, err := BuildFromDefinition(def)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate rule id")
}

func TestBuildFromDefinitionNil(t *testing.T) {
	_, err := BuildFromDefinition(nil)
	require.Error(t, err)
}

func TestUploadValidation(t *testing.T) {
	svc := newTestGrammarService(t)
	ctx := context.Background()

	_, _, err := svc.Upload(ctx, nil, "")
	assert.ErrorContains(t, err, "definition is required")

	_, _, err = svc.Upload(ctx, &models.GrammarDefinition{StartSymbol: "S"}, "")
	assert.ErrorContains(t, err, "name is required")

	_, _, err = svc.Upload(ctx, &models.GrammarDefinition{Name: commands.GrammarName, StartSymbol: "S"}, "")
	assert.ErrorContains(t, err, "reserved")

	// Without a database a structurally valid upload still has nowhere
	// to go.
	def := &models.GrammarDefinition{
		Name:        "custom",
		StartSymbol: "S",
		Rules: []models.RuleDefinition{
			{ID: "s.hi", LHS: "S", RHS: []models.SymbolDefinition{{Kind: models.SymbolLiteral, Value: "hi"}}},
		},
	}
	_, _, err = svc.Upload(ctx, def, "")
	assert.ErrorContains(t, err, "requires a database")
}

func TestDeleteBuiltinRefused(t *testing.T) {
	svc := newTestGrammarService(t)

	err := svc.Delete(context.Background(), commands.GrammarName)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be deleted")
}

func TestListWithoutDatabase(t *testing.T) {
	svc := newTestGrammarService(t)

	records, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}
