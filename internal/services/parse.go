package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Conceptual-Machines/maestro-api/internal/config"
	"github.com/Conceptual-Machines/maestro-api/internal/diagnostics"
	"github.com/Conceptual-Machines/maestro-api/internal/earley"
	"github.com/Conceptual-Machines/maestro-api/internal/forest"
	"github.com/Conceptual-Machines/maestro-api/internal/grammar"
	"github.com/Conceptual-Machines/maestro-api/internal/logger"
	"github.com/Conceptual-Machines/maestro-api/internal/models"
	"github.com/Conceptual-Machines/maestro-api/internal/scoring"
)

// ErrInvalidRequest marks requests the service refuses to run (too many
// tokens, bad inline grammar, bad scoring overrides). Handlers translate
// it to a 400.
var ErrInvalidRequest = errors.New("invalid request")

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// ParseService runs the full pipeline for one utterance: resolve the
// grammar, annotate tokens with lexicon tags, build the chart, extract
// candidate trees, and rank them. Every request is logged to Postgres
// when a database is configured.
type ParseService struct {
	grammars *GrammarService
	db       *gorm.DB
	config   *config.Config
}

func NewParseService(grammars *GrammarService, db *gorm.DB, cfg *config.Config) *ParseService {
	return &ParseService{grammars: grammars, db: db, config: cfg}
}

// parseResult carries the intermediate artifacts alongside the wire
// response so the debug and clarify paths can reuse one pipeline run.
type parseResult struct {
	response *models.ParseResponse
	grammar  *grammar.Grammar
	chart    *earley.Chart
	trees    []*forest.Node
	scored   []scoring.ScoredParse
}

// Parse runs the pipeline and returns the wire response.
func (s *ParseService) Parse(ctx context.Context, req *models.ParseRequest, userID string) (*models.ParseResponse, error) {
	result, err := s.run(ctx, req, userID)
	if err != nil {
		return nil, err
	}
	return result.response, nil
}

// ParseDebug runs the same pipeline and attaches rendered dumps of the
// chart, the candidate trees, and the ranked list.
func (s *ParseService) ParseDebug(ctx context.Context, req *models.ParseRequest, userID string) (*models.ParseDebugResponse, error) {
	result, err := s.run(ctx, req, userID)
	if err != nil {
		return nil, err
	}

	debug := &models.ParseDebugResponse{
		ParseResponse: *result.response,
		ChartDump:     result.chart.Format(),
	}
	for _, tree := range result.trees {
		debug.TreeDumps = append(debug.TreeDumps, tree.Format())
	}
	if len(result.scored) > 0 {
		debug.RankedDump = scoring.Format(result.scored)
	}
	return debug, nil
}

func (s *ParseService) run(ctx context.Context, req *models.ParseRequest, userID string) (*parseResult, error) {
	if req == nil {
		return nil, fmt.Errorf("request body is required: %w", ErrInvalidRequest)
	}
	if len(req.Tokens) > s.config.MaxTokens {
		return nil, fmt.Errorf("too many tokens: %d exceeds the limit of %d: %w",
			len(req.Tokens), s.config.MaxTokens, ErrInvalidRequest)
	}

	g, grammarName, err := s.selectGrammar(ctx, req)
	if err != nil {
		return nil, err
	}

	scoringCfg, err := s.scoringConfig(req)
	if err != nil {
		return nil, err
	}

	requestID := uuid.New().String()
	log.Printf("🎼 PARSE REQUEST: id=%s grammar=%s tokens=%d", requestID, grammarName, len(req.Tokens))

	tokens := s.grammars.Lexicon().Annotate(req.Tokens)

	engineCfg := earley.Config{
		MaxItemsPerSet:     s.config.MaxItemsPerSet,
		MaxTotalItems:      s.config.MaxTotalItems,
		BuildTrees:         true,
		CollectDiagnostics: true,
	}

	start := time.Now()
	chart, err := earley.NewParser(g, engineCfg).Parse(ctx, tokens)
	if err != nil {
		return nil, fmt.Errorf("parse aborted: %w", err)
	}

	result := &parseResult{
		grammar: g,
		chart:   chart,
		response: &models.ParseResponse{
			RequestID: requestID,
			Grammar:   grammarName,
			Truncated: chart.Truncated,
			LimitHit:  chart.LimitHit,
			Warnings:  g.Warnings(),
		},
	}
	resp := result.response

	if chart.Success {
		result.trees = forest.Extract(chart)
	}

	switch {
	case len(result.trees) > 0:
		scored, err := scoring.Rank(result.trees, scoringCfg)
		if err != nil {
			return nil, fmt.Errorf("scoring failed: %w", err)
		}
		result.scored = scored
		resp.Outcome = models.OutcomeSuccess
		resp.Parses = scored
		resp.NeedsClarification = scored[0].NeedsClarification
		resp.ClarificationReason = scored[0].ClarificationReason
	case chart.Truncated:
		resp.Outcome = models.OutcomeResourceLimit
		resp.Diagnostic = diagnostics.FromChart(chart)
	default:
		resp.Outcome = models.OutcomeParseFailure
		resp.Diagnostic = diagnostics.FromChart(chart)
	}

	resp.Stats = models.ParseStats{
		TokenCount: len(tokens),
		TotalItems: chart.TotalItems,
		DurationMS: time.Since(start).Milliseconds(),
	}

	log.Printf("📊 PARSE RESULT: id=%s outcome=%s parses=%d items=%d duration=%dms",
		requestID, resp.Outcome, len(resp.Parses), chart.TotalItems, resp.Stats.DurationMS)

	s.record(ctx, resp, grammarName, userID)
	return result, nil
}

// selectGrammar picks the grammar for a request. Inline rules win over a
// stored name so experiments cannot be shadowed by uploads.
func (s *ParseService) selectGrammar(ctx context.Context, req *models.ParseRequest) (*grammar.Grammar, string, error) {
	if req.Rules != nil {
		g, err := BuildFromDefinition(req.Rules)
		if err != nil {
			return nil, "", fmt.Errorf("inline grammar rejected: %v: %w", err, ErrInvalidRequest)
		}
		name := req.Rules.Name
		if name == "" {
			name = "inline"
		}
		return g, name, nil
	}

	g, err := s.grammars.Resolve(ctx, req.Grammar)
	if err != nil {
		return nil, "", err
	}
	return g, g.Name(), nil
}

// scoringConfig starts from service defaults and applies per-request
// overrides, validating the merged result before any work happens.
func (s *ParseService) scoringConfig(req *models.ParseRequest) (scoring.Config, error) {
	cfg := scoring.DefaultConfig()
	cfg.ClarityThreshold = s.config.ClarityThreshold
	cfg.ClarificationThreshold = s.config.ClarificationThreshold
	cfg.MaxResults = s.config.MaxResults

	if req.MaxResults > 0 {
		cfg.MaxResults = req.MaxResults
	}
	if req.ClarityThreshold != nil {
		cfg.ClarityThreshold = *req.ClarityThreshold
	}
	if req.ClarificationThreshold != nil {
		cfg.ClarificationThreshold = *req.ClarificationThreshold
	}

	if err := cfg.Validate(); err != nil {
		return scoring.Config{}, fmt.Errorf("scoring overrides rejected: %v: %w", err, ErrInvalidRequest)
	}
	return cfg, nil
}

// record persists one ParseLog row. Failures are logged and swallowed;
// analytics must never fail a parse that already succeeded.
func (s *ParseService) record(ctx context.Context, resp *models.ParseResponse, grammarName, userID string) {
	if s.db == nil {
		return
	}

	entry := models.ParseLog{
		RequestID:          resp.RequestID,
		UserID:             userID,
		GrammarName:        grammarName,
		TokenCount:         resp.Stats.TokenCount,
		Outcome:            resp.Outcome,
		ParseCount:         len(resp.Parses),
		NeedsClarification: resp.NeedsClarification,
		Truncated:          resp.Truncated,
		TotalItems:         resp.Stats.TotalItems,
		DurationMS:         int(resp.Stats.DurationMS),
	}
	if len(resp.Parses) > 0 {
		entry.TopScore = resp.Parses[0].Score
		entry.TopRuleID = resp.Parses[0].Tree.RuleID
	}

	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		logger.Error("Failed to record parse log", err, logger.Fields{
			"request_id": resp.RequestID,
			"grammar":    grammarName,
		})
	}
}

// History returns recent parse logs, newest first, optionally filtered by
// user and grammar. Without a database it returns an empty slice.
func (s *ParseService) History(ctx context.Context, userID, grammarName string, limit int) ([]models.ParseLog, error) {
	if s.db == nil {
		return []models.ParseLog{}, nil
	}

	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	query := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	if grammarName != "" {
		query = query.Where("grammar_name = ?", grammarName)
	}

	var logs []models.ParseLog
	if err := query.Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to load parse history: %w", err)
	}
	return logs, nil
}
