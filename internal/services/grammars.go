package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"gorm.io/gorm"

	"github.com/Conceptual-Machines/maestro-api/internal/commands"
	"github.com/Conceptual-Machines/maestro-api/internal/grammar"
	"github.com/Conceptual-Machines/maestro-api/internal/logger"
	"github.com/Conceptual-Machines/maestro-api/internal/models"
)

// ErrNotFound marks lookups for grammars that do not exist (or were deleted).
// Handlers translate it to a 404.
var ErrNotFound = errors.New("not found")

// ErrNoDatabase marks operations that need persistence while the service
// runs stateless. Handlers translate it to a 503.
var ErrNoDatabase = errors.New("no database configured")

// GrammarService resolves grammar names to compiled grammars. The builtin
// music-editing grammar is always available; uploaded grammars are stored in
// Postgres and compiled on first use, then cached until the next upload or
// delete. Without a database only the builtin grammar resolves.
type GrammarService struct {
	db      *gorm.DB
	builtin *grammar.Grammar
	lexicon *commands.Lexicon

	mu    sync.RWMutex
	cache map[string]*grammar.Grammar
}

func NewGrammarService(db *gorm.DB) (*GrammarService, error) {
	g, lex, err := commands.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load builtin grammar: %w", err)
	}
	return &GrammarService{
		db:      db,
		builtin: g,
		lexicon: lex,
		cache:   make(map[string]*grammar.Grammar),
	}, nil
}

// Builtin returns the compiled builtin grammar.
func (s *GrammarService) Builtin() *grammar.Grammar {
	return s.builtin
}

// Lexicon returns the tag lexicon used to annotate untyped tokens.
func (s *GrammarService) Lexicon() *commands.Lexicon {
	return s.lexicon
}

// Resolve returns the compiled grammar for a name. An empty name selects the
// builtin grammar. Stored grammars are compiled once and cached.
func (s *GrammarService) Resolve(ctx context.Context, name string) (*grammar.Grammar, error) {
	if name == "" || name == commands.GrammarName {
		return s.builtin, nil
	}

	s.mu.RLock()
	if g, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return g, nil
	}
	s.mu.RUnlock()

	if s.db == nil {
		return nil, fmt.Errorf("grammar %q: %w", name, ErrNotFound)
	}

	var record models.GrammarRecord
	err := s.db.WithContext(ctx).Where("name = ? AND enabled = ?", name, true).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("grammar %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load grammar %q: %w", name, err)
	}

	var def models.GrammarDefinition
	if err := json.Unmarshal([]byte(record.Definition), &def); err != nil {
		return nil, fmt.Errorf("stored grammar %q is corrupt: %w", name, err)
	}
	g, err := BuildFromDefinition(&def)
	if err != nil {
		return nil, fmt.Errorf("stored grammar %q failed to compile: %w", name, err)
	}

	s.mu.Lock()
	s.cache[name] = g
	s.mu.Unlock()
	return g, nil
}

// BuildFromDefinition compiles a wire-format grammar definition. Every rule
// goes through the builder so stored grammars get the same validation,
// action inference, and nullable analysis as the builtin one. Predicate
// matchers are code-only and cannot appear in a stored definition.
func BuildFromDefinition(def *models.GrammarDefinition) (*grammar.Grammar, error) {
	if def == nil {
		return nil, fmt.Errorf("grammar definition is required")
	}

	b := grammar.NewBuilder(def.Name, def.StartSymbol)
	for _, rd := range def.Rules {
		rb := b.Rule(rd.ID, rd.LHS)
		for _, sym := range rd.RHS {
			switch sym.Kind {
			case models.SymbolNonTerminal:
				rb.NT(sym.Value)
			case models.SymbolLiteral:
				rb.Lit(sym.Value)
			case models.SymbolType:
				rb.Type(sym.Value)
			case models.SymbolTag:
				rb.Tag(sym.Value)
			case models.SymbolRegex:
				rb.Regex(sym.Value)
			case models.SymbolWildcard:
				rb.Any()
			default:
				return nil, fmt.Errorf("rule %q: unsupported symbol kind %q", rd.ID, sym.Kind)
			}
		}
		rb.Priority(rd.Priority)
		if rd.SemanticAction != "" {
			rb.Action(rd.SemanticAction)
		}
		if rd.Description != "" {
			rb.Describe(rd.Description)
		}
		if rd.Source != "" {
			rb.From(rd.Source)
		}
	}
	return b.Build()
}

// Upload validates a grammar definition by compiling it, then stores it.
// Re-uploading under an existing name bumps the version. Returns the stored
// record and any builder warnings (unreachable symbols and the like).
func (s *GrammarService) Upload(ctx context.Context, def *models.GrammarDefinition, uploadedBy string) (*models.GrammarRecord, []string, error) {
	if def == nil {
		return nil, nil, fmt.Errorf("grammar definition is required: %w", ErrInvalidRequest)
	}
	if def.Name == "" {
		return nil, nil, fmt.Errorf("grammar name is required: %w", ErrInvalidRequest)
	}
	if def.Name == commands.GrammarName {
		return nil, nil, fmt.Errorf("grammar name %q is reserved: %w", commands.GrammarName, ErrInvalidRequest)
	}
	if s.db == nil {
		return nil, nil, fmt.Errorf("grammar storage requires a database: %w", ErrNoDatabase)
	}

	g, err := BuildFromDefinition(def)
	if err != nil {
		return nil, nil, fmt.Errorf("grammar rejected: %v: %w", err, ErrInvalidRequest)
	}

	payload, err := json.Marshal(def)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode grammar definition: %w", err)
	}

	var record models.GrammarRecord
	err = s.db.WithContext(ctx).Where("name = ?", def.Name).First(&record).Error
	switch {
	case err == nil:
		record.Version++
		record.StartSymbol = def.StartSymbol
		record.Definition = string(payload)
		record.RuleCount = len(def.Rules)
		record.UploadedBy = uploadedBy
		record.Enabled = true
		if err := s.db.WithContext(ctx).Save(&record).Error; err != nil {
			return nil, nil, fmt.Errorf("failed to update grammar %q: %w", def.Name, err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		record = models.GrammarRecord{
			Name:        def.Name,
			Version:     1,
			StartSymbol: def.StartSymbol,
			Definition:  string(payload),
			RuleCount:   len(def.Rules),
			Enabled:     true,
			UploadedBy:  uploadedBy,
		}
		if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
			return nil, nil, fmt.Errorf("failed to store grammar %q: %w", def.Name, err)
		}
	default:
		return nil, nil, fmt.Errorf("failed to look up grammar %q: %w", def.Name, err)
	}

	s.mu.Lock()
	s.cache[def.Name] = g
	s.mu.Unlock()

	logger.Info("📚 Grammar stored", logger.Fields{
		"grammar": def.Name,
		"version": record.Version,
		"rules":   record.RuleCount,
	})
	return &record, g.Warnings(), nil
}

// List returns all stored grammar records ordered by name.
func (s *GrammarService) List(ctx context.Context) ([]models.GrammarRecord, error) {
	if s.db == nil {
		return []models.GrammarRecord{}, nil
	}
	var records []models.GrammarRecord
	if err := s.db.WithContext(ctx).Order("name").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list grammars: %w", err)
	}
	return records, nil
}

// Get returns one stored grammar record by name.
func (s *GrammarService) Get(ctx context.Context, name string) (*models.GrammarRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("grammar %q: %w", name, ErrNotFound)
	}
	var record models.GrammarRecord
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("grammar %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load grammar %q: %w", name, err)
	}
	return &record, nil
}

// Delete soft deletes a stored grammar and drops it from the cache. The
// builtin grammar cannot be deleted.
func (s *GrammarService) Delete(ctx context.Context, name string) error {
	if name == commands.GrammarName {
		return fmt.Errorf("the builtin grammar cannot be deleted: %w", ErrInvalidRequest)
	}
	if s.db == nil {
		return fmt.Errorf("grammar %q: %w", name, ErrNotFound)
	}

	result := s.db.WithContext(ctx).Where("name = ?", name).Delete(&models.GrammarRecord{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete grammar %q: %w", name, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("grammar %q: %w", name, ErrNotFound)
	}

	s.mu.Lock()
	delete(s.cache, name)
	s.mu.Unlock()

	logger.Info("🗑️ Grammar deleted", logger.Fields{"grammar": name})
	return nil
}
