package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/maestro-api/internal/commands"
	"github.com/Conceptual-Machines/maestro-api/internal/config"
	"github.com/Conceptual-Machines/maestro-api/internal/grammar"
	"github.com/Conceptual-Machines/maestro-api/internal/middleware"
	"github.com/Conceptual-Machines/maestro-api/internal/models"
	"github.com/Conceptual-Machines/maestro-api/internal/services"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment:            "test",
		AuthMode:               "none",
		MaxItemsPerSet:         2000,
		MaxTotalItems:          20000,
		MaxTokens:              64,
		ClarityThreshold:       0.15,
		ClarificationThreshold: 0.5,
		MaxResults:             5,
		LLMProvider:            "openai",
		ClarifyModel:           "gpt-5-mini",
	}
}

// setupTestRouter builds the API without a database or auth so every
// handler runs against the builtin grammar and nil-db fallbacks.
func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	cfg := testConfig()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(gin.Recovery())

	grammarService, err := services.NewGrammarService(nil)
	require.NoError(t, err)
	parseService := services.NewParseService(grammarService, nil, cfg)
	clarifierService := services.NewClarifierService(parseService, cfg)

	healthHandler := NewHealthHandler(nil)
	router.GET("/health", healthHandler.HealthCheck)

	metricsHandler := NewMetricsHandler("test", grammarService)
	router.GET("/api/metrics", metricsHandler.GetMetrics)

	parseHandler := NewParseHandler(parseService, nil)
	router.POST("/api/v1/parse", parseHandler.Parse)
	router.POST("/api/v1/parse/debug", parseHandler.ParseDebug)
	router.GET("/api/v1/parse/history", parseHandler.History)

	clarifyHandler := NewClarifyHandler(clarifierService, nil)
	router.POST("/api/v1/clarify", clarifyHandler.Clarify)

	grammarsHandler := NewGrammarsHandler(grammarService)
	router.GET("/api/v1/grammars", grammarsHandler.List)
	router.GET("/api/v1/grammars/:name", grammarsHandler.Get)
	router.POST("/api/v1/grammars", middleware.AdminRequired(cfg), grammarsHandler.Upload)
	router.DELETE("/api/v1/grammars/:name", middleware.AdminRequired(cfg), grammarsHandler.Delete)

	adminHandler := NewAdminHandler(nil)
	router.POST("/api/admin/keys", adminHandler.CreateKey)
	router.GET("/api/admin/keys", adminHandler.ListKeys)

	return router
}

// words builds bare word tokens the way a thin client would
func words(texts ...string) []grammar.Token {
	tokens := make([]grammar.Token, len(texts))
	pos := 0
	for i, text := range texts {
		tokens[i] = grammar.Token{
			Text: text,
			Type: commands.TypeWord,
			Span: grammar.Span{Start: pos, End: pos + len(text)},
		}
		pos += len(text) + 1
	}
	return tokens
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		require.NoError(t, err)
	}

	req, err := http.NewRequest(method, path, bytes.NewBuffer(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "Failed to parse response")
	return resp
}

func TestParseEndpoint(t *testing.T) {
	router := setupTestRouter(t)

	tests := []struct {
		name         string
		request      models.ParseRequest
		validateResp func(t *testing.T, resp map[string]any)
	}{
		{
			name:    "clear_command",
			request: models.ParseRequest{Tokens: words("mute", "the", "drums")},
			validateResp: func(t *testing.T, resp map[string]any) {
				t.Helper()
				assert.Equal(t, models.OutcomeSuccess, resp["outcome"])
				assert.NotEmpty(t, resp["request_id"], "Response should carry a request ID")
				assert.Equal(t, "builtin", resp["grammar"])
				assert.Equal(t, false, resp["needs_clarification"])

				parses, ok := resp["parses"].([]any)
				require.True(t, ok, "Response should contain parses array")
				require.NotEmpty(t, parses)

				top, ok := parses[0].(map[string]any)
				require.True(t, ok, "Parse should be a map")
				tree, ok := top["tree"].(map[string]any)
				require.True(t, ok, "Parse should contain a tree")
				assert.Equal(t, "cmd.mute", tree["rule_id"])
			},
		},
		{
			name:    "ambiguous_command",
			request: models.ParseRequest{Tokens: words("boost", "the", "bass")},
			validateResp: func(t *testing.T, resp map[string]any) {
				t.Helper()
				assert.Equal(t, models.OutcomeSuccess, resp["outcome"])
				assert.Equal(t, true, resp["needs_clarification"])
				assert.NotEmpty(t, resp["clarification_reason"])

				parses, ok := resp["parses"].([]any)
				require.True(t, ok, "Response should contain parses array")
				assert.Len(t, parses, 2, "bass should read as instrument and as frequency band")
			},
		},
		{
			name:    "parse_failure",
			request: models.ParseRequest{Tokens: words("mute")},
			validateResp: func(t *testing.T, resp map[string]any) {
				t.Helper()
				assert.Equal(t, models.OutcomeParseFailure, resp["outcome"])
				assert.Nil(t, resp["parses"])

				diag, ok := resp["diagnostic"].(map[string]any)
				require.True(t, ok, "Failure should carry a diagnostic")
				assert.NotEmpty(t, diag["message"])
				assert.NotEmpty(t, diag["expected"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, "POST", "/api/v1/parse", tt.request)
			require.Equal(t, http.StatusOK, w.Code, "Unexpected status: %s", w.Body.String())
			tt.validateResp(t, decodeBody(t, w))
		})
	}
}

func TestParseEndpointBadJSON(t *testing.T) {
	router := setupTestRouter(t)

	req, err := http.NewRequest("POST", "/api/v1/parse", bytes.NewBufferString("{not json"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, decodeBody(t, w)["error"])
}

func TestParseEndpointUnknownGrammar(t *testing.T) {
	router := setupTestRouter(t)

	w := doJSON(t, router, "POST", "/api/v1/parse", models.ParseRequest{
		Grammar: "no-such-grammar",
		Tokens:  words("mute", "the", "drums"),
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, decodeBody(t, w)["error"], "no-such-grammar")
}

func TestParseEndpointInvalidOverride(t *testing.T) {
	router := setupTestRouter(t)

	badThreshold := 1.5
	w := doJSON(t, router, "POST", "/api/v1/parse", models.ParseRequest{
		Tokens:           words("mute", "the", "drums"),
		ClarityThreshold: &badThreshold,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeBody(t, w)["error"], "scoring overrides rejected")
}

func TestParseDebugEndpoint(t *testing.T) {
	router := setupTestRouter(t)

	w := doJSON(t, router, "POST", "/api/v1/parse/debug", models.ParseRequest{
		Tokens: words("boost", "the", "bass"),
	})
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeBody(t, w)
	assert.Equal(t, models.OutcomeSuccess, resp["outcome"])
	assert.NotEmpty(t, resp["chart_dump"], "Debug response should include the chart dump")
	assert.NotEmpty(t, resp["ranked_dump"], "Debug response should include the ranking dump")

	trees, ok := resp["tree_dumps"].([]any)
	require.True(t, ok, "Debug response should include tree dumps")
	assert.Len(t, trees, 2)
}

func TestParseHistoryEndpointStateless(t *testing.T) {
	router := setupTestRouter(t)

	w := doJSON(t, router, "GET", "/api/v1/parse/history", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeBody(t, w)
	assert.Equal(t, float64(0), resp["count"])
}

func TestParseHistoryEndpointBadLimit(t *testing.T) {
	router := setupTestRouter(t)

	for _, limit := range []string{"abc", "0", "-5"} {
		w := doJSON(t, router, "GET", "/api/v1/parse/history?limit="+limit, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, "limit=%s should be rejected", limit)
	}
}

func TestHealthEndpoint(t *testing.T) {
	router := setupTestRouter(t)

	w := doJSON(t, router, "GET", "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeBody(t, w)
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, "stateless", resp["database"])
}

func TestMetricsEndpoint(t *testing.T) {
	router := setupTestRouter(t)

	w := doJSON(t, router, "GET", "/api/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeBody(t, w)
	assert.Equal(t, "healthy", resp["status"])
	assert.NotEmpty(t, resp["uptime"])

	apiInfo, ok := resp["api"].(map[string]any)
	require.True(t, ok, "Metrics should include API info")
	builtin, ok := apiInfo["builtin_grammar"].(map[string]any)
	require.True(t, ok, "Metrics should describe the builtin grammar")
	assert.Equal(t, "builtin", builtin["name"])
	assert.Greater(t, builtin["rules"], float64(0))
}
