package llm

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockProvider is a test implementation of the Provider interface
type MockProvider struct {
	name         string
	generateFunc func(ctx context.Context, request *GenerationRequest) (*GenerationResponse, error)
}

func (m *MockProvider) Name() string {
	return m.name
}

func (m *MockProvider) Generate(ctx context.Context, request *GenerationRequest) (*GenerationResponse, error) {
	if m.generateFunc != nil {
		return m.generateFunc(ctx, request)
	}
	return &GenerationResponse{}, nil
}

func TestProviderInterface(t *testing.T) {
	mock := &MockProvider{
		name: "mock",
	}

	assert.Equal(t, "mock", mock.Name())
}

func TestGenerationRequest(t *testing.T) {
	req := &GenerationRequest{
		Model:         "test-model",
		ReasoningMode: "medium",
		SystemPrompt:  "test prompt",
		InputArray: []map[string]any{
			{"role": "user", "content": "test"},
		},
		OutputSchema: &OutputSchema{
			Name:        "TestSchema",
			Description: "Test schema",
			Schema: map[string]any{
				"type": "object",
			},
		},
	}

	assert.Equal(t, "test-model", req.Model)
	assert.Equal(t, "medium", req.ReasoningMode)
	assert.NotNil(t, req.OutputSchema)
}

func TestMockProviderGenerate(t *testing.T) {
	callCount := 0
	mock := &MockProvider{
		name: "test",
		generateFunc: func(_ context.Context, request *GenerationRequest) (*GenerationResponse, error) {
			callCount++
			require.Equal(t, "test-model", request.Model)
			return &GenerationResponse{
				RawOutput: `{"question":"Which bass did you mean?","option_labels":["The bass track","The bass frequencies"]}`,
			}, nil
		},
	}

	req := &GenerationRequest{
		Model: "test-model",
	}

	resp, err := mock.Generate(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 1, callCount)

	var parsed struct {
		Question     string   `json:"question"`
		OptionLabels []string `json:"option_labels"`
	}
	require.NoError(t, json.Unmarshal([]byte(resp.RawOutput), &parsed))
	assert.Equal(t, "Which bass did you mean?", parsed.Question)
	assert.Len(t, parsed.OptionLabels, 2)
}

func TestClarificationSchema(t *testing.T) {
	schema := GetClarificationSchema()

	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, false, schema["additionalProperties"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "question")
	assert.Contains(t, props, "option_labels")

	required, ok := schema["required"].([]string)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"question", "option_labels"}, required)
}
