package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Conceptual-Machines/maestro-api/internal/logger"
	"github.com/Conceptual-Machines/maestro-api/internal/metrics"
	"github.com/Conceptual-Machines/maestro-api/internal/middleware"
	"github.com/Conceptual-Machines/maestro-api/internal/models"
	"github.com/Conceptual-Machines/maestro-api/internal/services"
)

type ParseHandler struct {
	parseService  *services.ParseService
	cloudwatch    *metrics.Client
	sentryMetrics *metrics.SentryMetrics
}

func NewParseHandler(parseService *services.ParseService, cloudwatch *metrics.Client) *ParseHandler {
	return &ParseHandler{
		parseService:  parseService,
		cloudwatch:    cloudwatch,
		sentryMetrics: metrics.NewSentryMetrics(),
	}
}

// Parse runs the chart parser over one tokenized utterance. Parse
// failures and resource limits are successful HTTP responses; the
// outcome field tells the caller what happened.
func (h *ParseHandler) Parse(c *gin.Context) {
	var req models.ParseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start := time.Now()
	resp, err := h.parseService.Parse(c.Request.Context(), &req, middleware.CurrentUserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	h.recordMetrics(c, resp, time.Since(start))
	c.JSON(http.StatusOK, resp)
}

// ParseDebug runs the same pipeline and includes rendered chart, tree,
// and ranking dumps for grammar authors.
func (h *ParseHandler) ParseDebug(c *gin.Context) {
	var req models.ParseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start := time.Now()
	debug, err := h.parseService.ParseDebug(c.Request.Context(), &req, middleware.CurrentUserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	h.recordMetrics(c, &debug.ParseResponse, time.Since(start))
	c.JSON(http.StatusOK, debug)
}

// History returns the caller's recent parse logs
func (h *ParseHandler) History(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	logs, err := h.parseService.History(c.Request.Context(), middleware.CurrentUserID(c), c.Query("grammar"), limit)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"history": logs,
		"count":   len(logs),
	})
}

func (h *ParseHandler) recordMetrics(c *gin.Context, resp *models.ParseResponse, duration time.Duration) {
	logger.LogParseRequest(c, resp.Grammar, resp.Outcome, duration, logger.Fields{
		"parses": len(resp.Parses),
	})

	if h.cloudwatch != nil {
		h.cloudwatch.RecordParse(resp.Grammar, resp.Outcome, resp.Stats.TotalItems, duration)
		if resp.Outcome == models.OutcomeSuccess {
			h.cloudwatch.RecordAmbiguity(resp.Grammar, len(resp.Parses), resp.NeedsClarification)
		}
	}
	h.sentryMetrics.RecordParseOutcome(c.Request.Context(), resp.Grammar, resp.Outcome, len(resp.Parses), resp.Stats.TotalItems)
}

func (h *ParseHandler) fail(c *gin.Context, err error) {
	status := statusForServiceError(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Parse request failed", err, logger.Fields{
			"request_id": c.GetString("request_id"),
		})
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// statusForServiceError maps service sentinels onto HTTP statuses
func statusForServiceError(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNothingToClarify):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrNoDatabase):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
