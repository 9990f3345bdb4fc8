package llm

const (
	// Clarification option constraints
	clarifyOptionsMin = 2
	clarifyOptionsMax = 5
)

// GetClarificationSchema returns the JSON schema for clarification output
// This schema defines the structure of the AI's clarifying question
// Note: OpenAI requires additionalProperties: false and all properties in 'required'
func GetClarificationSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"question": map[string]any{
				"type":        "string",
				"description": "One short question asking the user which interpretation they meant.",
			},
			"option_labels": map[string]any{
				"type":        "array",
				"description": "One plain-language label per candidate interpretation, in the order given.",
				"items":       map[string]any{"type": "string"},
				"minItems":    clarifyOptionsMin,
				"maxItems":    clarifyOptionsMax,
			},
		},
		"required":             []string{"question", "option_labels"},
		"additionalProperties": false,
	}
}
