package prompt

import (
	"strings"

	"github.com/Conceptual-Machines/maestro-api/pkg/embedded"
)

type Loader struct{}

func NewPromptLoader() *Loader {
	return &Loader{}
}

// GetClarifySystemPrompt loads the clarification system prompt
func (l *Loader) GetClarifySystemPrompt() (string, error) {
	return strings.TrimSpace(string(embedded.ClarifySystemPromptTxt)), nil
}

// GetClarifyUserPromptTemplate loads the clarification user prompt template
// The template takes three verbs: the utterance, the interpretation list, and the reason
func (l *Loader) GetClarifyUserPromptTemplate() (string, error) {
	return strings.TrimSpace(string(embedded.ClarifyUserPromptTxt)), nil
}
