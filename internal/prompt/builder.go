package prompt

import (
	"fmt"
	"strings"

	"github.com/Conceptual-Machines/maestro-api/internal/models"
)

// Builder assembles the messages sent to the LLM when asking for clarification
type Builder struct {
	loader *Loader
}

// NewPromptBuilder creates a new prompt builder
func NewPromptBuilder() *Builder {
	return &Builder{loader: NewPromptLoader()}
}

// BuildClarifyMessages returns the system prompt and the filled user prompt
// for a clarification request. Options keep their input order, best first.
func (b *Builder) BuildClarifyMessages(
	utterance string,
	options []models.ClarifyOption,
	reason string,
) (string, string, error) {
	systemPrompt, err := b.loader.GetClarifySystemPrompt()
	if err != nil {
		return "", "", fmt.Errorf("failed to load clarify system prompt: %w", err)
	}

	template, err := b.loader.GetClarifyUserPromptTemplate()
	if err != nil {
		return "", "", fmt.Errorf("failed to load clarify user prompt template: %w", err)
	}

	userPrompt := fmt.Sprintf(template, utterance, formatOptions(options), reason)
	return systemPrompt, userPrompt, nil
}

// formatOptions renders each candidate interpretation as a numbered line
func formatOptions(options []models.ClarifyOption) string {
	lines := make([]string, 0, len(options))
	for i, opt := range options {
		lines = append(lines, fmt.Sprintf("%d. %s (action: %s, score %.2f)",
			i+1, opt.Label, opt.SemanticAction, opt.Score))
	}
	return strings.Join(lines, "\n")
}
