package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/maestro-api/internal/models"
)

func TestClarifyEndpoint(t *testing.T) {
	router := setupTestRouter(t)

	w := doJSON(t, router, "POST", "/api/v1/clarify", models.ClarifyRequest{
		Tokens: words("boost", "the", "bass"),
	})
	require.Equal(t, http.StatusOK, w.Code, "Unexpected status: %s", w.Body.String())

	resp := decodeBody(t, w)
	assert.Equal(t, "template", resp["source"], "Clarifier is disabled in tests, so the template answers")
	assert.NotEmpty(t, resp["request_id"])
	assert.Contains(t, resp["question"], "Did you mean")

	options, ok := resp["options"].([]any)
	require.True(t, ok, "Response should contain options array")
	require.Len(t, options, 2)

	for _, o := range options {
		option, ok := o.(map[string]any)
		require.True(t, ok, "Option should be a map")
		assert.NotEmpty(t, option["label"])
		assert.NotEmpty(t, option["rule_id"])
	}
}

func TestClarifyEndpointConfirmsSingleReading(t *testing.T) {
	router := setupTestRouter(t)

	w := doJSON(t, router, "POST", "/api/v1/clarify", models.ClarifyRequest{
		Tokens: words("mute", "the", "drums"),
	})
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeBody(t, w)
	assert.Contains(t, resp["question"], "Just to confirm")

	options, ok := resp["options"].([]any)
	require.True(t, ok, "Response should contain options array")
	assert.Len(t, options, 1)
}

func TestClarifyEndpointNothingToClarify(t *testing.T) {
	router := setupTestRouter(t)

	w := doJSON(t, router, "POST", "/api/v1/clarify", models.ClarifyRequest{
		Tokens: words("hello", "world"),
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, decodeBody(t, w)["error"], "did not parse")
}

func TestClarifyEndpointBadJSON(t *testing.T) {
	router := setupTestRouter(t)

	req, err := http.NewRequest("POST", "/api/v1/clarify", bytes.NewBufferString("nope"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
