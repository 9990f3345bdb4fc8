package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/Conceptual-Machines/maestro-api/internal/config"
	"github.com/Conceptual-Machines/maestro-api/internal/grammar"
	"github.com/Conceptual-Machines/maestro-api/internal/llm"
	"github.com/Conceptual-Machines/maestro-api/internal/models"
	"github.com/Conceptual-Machines/maestro-api/internal/observability"
	"github.com/Conceptual-Machines/maestro-api/internal/prompt"
)

// ErrNothingToClarify is returned when the utterance has no successful
// parses, so there are no interpretations to choose between.
var ErrNothingToClarify = errors.New("nothing to clarify")

const clarifySourceTemplate = "template"

// ClarifierService turns an ambiguous utterance into a question the UI can
// ask. The deterministic template path always works; when the clarifier
// flag is on and an API key is configured, an LLM rephrases the question
// and the option labels for a friendlier read.
type ClarifierService struct {
	parse   *ParseService
	builder *prompt.Builder
	factory *llm.ProviderFactory
	config  *config.Config

	// provider, when set, bypasses the factory. Used by tests.
	provider llm.Provider
}

func NewClarifierService(parse *ParseService, cfg *config.Config) *ClarifierService {
	return &ClarifierService{
		parse:   parse,
		builder: prompt.NewPromptBuilder(),
		factory: llm.NewProviderFactory(cfg.OpenAIAPIKey, cfg.GeminiAPIKey),
		config:  cfg,
	}
}

// Clarify re-parses the utterance and phrases a disambiguation question
// over the ranked interpretations.
func (s *ClarifierService) Clarify(ctx context.Context, req *models.ClarifyRequest, userID string) (*models.ClarifyResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("request body is required: %w", ErrInvalidRequest)
	}

	parseReq := &models.ParseRequest{Grammar: req.Grammar, Tokens: req.Tokens}
	result, err := s.parse.run(ctx, parseReq, userID)
	if err != nil {
		return nil, err
	}

	resp := result.response
	if resp.Outcome != models.OutcomeSuccess || len(resp.Parses) == 0 {
		return nil, fmt.Errorf("the utterance did not parse (outcome %s): %w", resp.Outcome, ErrNothingToClarify)
	}

	options := buildOptions(result)
	clarify := &models.ClarifyResponse{
		RequestID: resp.RequestID,
		Question:  templateQuestion(options),
		Options:   options,
		Source:    clarifySourceTemplate,
	}

	if s.config.ClarifierEnabled {
		reason := resp.ClarificationReason
		if reason == "" {
			reason = "confirmation requested by the caller"
		}
		s.rephrase(ctx, clarify, utteranceText(req.Tokens), reason)
	}

	return clarify, nil
}

// buildOptions projects the ranked parses into user-facing options. The
// label falls back from rule description to semantic action to rule ID,
// so even an undocumented grammar produces something readable.
func buildOptions(result *parseResult) []models.ClarifyOption {
	options := make([]models.ClarifyOption, 0, len(result.scored))
	for _, parse := range result.scored {
		options = append(options, models.ClarifyOption{
			Label:          optionLabel(result.grammar, parse.Tree.RuleID, parse.Tree.SemanticAction),
			RuleID:         parse.Tree.RuleID,
			SemanticAction: parse.Tree.SemanticAction,
			Score:          parse.Score,
		})
	}
	return options
}

func optionLabel(g *grammar.Grammar, ruleID, action string) string {
	if rule := g.RuleByID(ruleID); rule != nil && rule.Description != "" {
		return rule.Description
	}
	if action != "" {
		return action
	}
	return ruleID
}

// templateQuestion renders the deterministic question. One option reads as
// a confirmation, several as a choice.
func templateQuestion(options []models.ClarifyOption) string {
	labels := make([]string, len(options))
	for i, opt := range options {
		labels[i] = opt.Label
	}

	switch len(labels) {
	case 0:
		// Unreachable: options are built from a successful parse.
		return "What did you mean?"
	case 1:
		return fmt.Sprintf("Just to confirm: %s?", labels[0])
	case 2:
		return fmt.Sprintf("Did you mean %s, or %s?", labels[0], labels[1])
	default:
		return fmt.Sprintf("Did you mean %s, or %s?",
			strings.Join(labels[:len(labels)-1], ", "), labels[len(labels)-1])
	}
}

func utteranceText(tokens []grammar.Token) string {
	texts := make([]string, len(tokens))
	for i, t := range tokens {
		texts[i] = t.Text
	}
	return strings.Join(texts, " ")
}

// rephrase asks the LLM for a friendlier question. Any failure keeps the
// template output; clarification never depends on an upstream API.
func (s *ClarifierService) rephrase(ctx context.Context, clarify *models.ClarifyResponse, utterance, reason string) {
	system, user, err := s.builder.BuildClarifyMessages(utterance, clarify.Options, reason)
	if err != nil {
		log.Printf("⚠️ Clarifier prompt build failed, keeping template question: %v", err)
		return
	}

	provider := s.provider
	if provider == nil {
		provider, err = s.factory.GetProvider(ctx, s.config.ClarifyModel, s.config.LLMProvider)
		if err != nil {
			log.Printf("⚠️ Clarifier provider unavailable, keeping template question: %v", err)
			return
		}
	}

	trace := observability.GetClient().StartTrace(ctx, "clarify", map[string]interface{}{
		"request_id": clarify.RequestID,
		"options":    len(clarify.Options),
	})
	defer trace.Finish()

	gen := trace.Generation("clarify.rephrase", map[string]interface{}{
		"provider": provider.Name(),
	})
	input := []map[string]any{
		{"role": "user", "content": user},
	}
	gen.Input(input)

	genResp, err := provider.Generate(ctx, &llm.GenerationRequest{
		Model:         s.config.ClarifyModel,
		ReasoningMode: "minimal",
		SystemPrompt:  system,
		InputArray:    input,
		OutputSchema: &llm.OutputSchema{
			Name:        "clarification",
			Description: "A clarifying question with short labels for each interpretation",
			Schema:      llm.GetClarificationSchema(),
		},
	})
	if err != nil {
		gen.SetLevel("ERROR")
		gen.Finish()
		log.Printf("⚠️ Clarifier generation failed, keeping template question: %v", err)
		return
	}

	gen.Output(genResp.RawOutput)
	gen.LogUsage(s.config.ClarifyModel, genResp.Usage)
	gen.Finish()

	var phrased struct {
		Question     string   `json:"question"`
		OptionLabels []string `json:"option_labels"`
	}
	if err := json.Unmarshal([]byte(genResp.RawOutput), &phrased); err != nil {
		log.Printf("⚠️ Clarifier output was not valid JSON, keeping template question: %v", err)
		return
	}
	if phrased.Question == "" {
		return
	}

	clarify.Question = phrased.Question
	// Relabel only when the model returned one label per option; a
	// mismatched list cannot be aligned with the ranked parses.
	if len(phrased.OptionLabels) == len(clarify.Options) {
		for i, label := range phrased.OptionLabels {
			if label != "" {
				clarify.Options[i].Label = label
			}
		}
	}
	clarify.Source = s.config.ClarifyModel
}
