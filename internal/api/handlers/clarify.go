package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Conceptual-Machines/maestro-api/internal/metrics"
	"github.com/Conceptual-Machines/maestro-api/internal/middleware"
	"github.com/Conceptual-Machines/maestro-api/internal/models"
	"github.com/Conceptual-Machines/maestro-api/internal/services"
)

type ClarifyHandler struct {
	clarifier     *services.ClarifierService
	cloudwatch    *metrics.Client
	sentryMetrics *metrics.SentryMetrics
}

func NewClarifyHandler(clarifier *services.ClarifierService, cloudwatch *metrics.Client) *ClarifyHandler {
	return &ClarifyHandler{
		clarifier:     clarifier,
		cloudwatch:    cloudwatch,
		sentryMetrics: metrics.NewSentryMetrics(),
	}
}

// Clarify re-parses the utterance and returns a disambiguation question.
// A 422 means there was nothing to clarify: the utterance either failed
// to parse or had a single clear reading.
func (h *ClarifyHandler) Clarify(c *gin.Context) {
	var req models.ClarifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start := time.Now()
	resp, err := h.clarifier.Clarify(c.Request.Context(), &req, middleware.CurrentUserID(c))
	duration := time.Since(start)
	if err != nil {
		if h.cloudwatch != nil {
			h.cloudwatch.RecordClarification("none", duration, false)
		}
		c.JSON(statusForServiceError(err), gin.H{"error": err.Error()})
		return
	}

	if h.cloudwatch != nil {
		h.cloudwatch.RecordClarification(resp.Source, duration, true)
	}
	h.sentryMetrics.RecordClarification(c.Request.Context(), resp.Source, duration, true)

	c.JSON(http.StatusOK, resp)
}
