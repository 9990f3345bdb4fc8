package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
)

const (
	// HTTP status code threshold for considering a request successful
	successStatusCodeThreshold = http.StatusBadRequest
)

// SentryMetrics handles custom metrics for Sentry
type SentryMetrics struct {
	enabled bool
}

// NewSentryMetrics creates a new Sentry metrics client
func NewSentryMetrics() *SentryMetrics {
	return &SentryMetrics{
		enabled: true, // Always enabled if Sentry is configured
	}
}

// RecordAPIRequest records API request metrics
func (m *SentryMetrics) RecordAPIRequest(ctx context.Context, endpoint string, statusCode int, duration time.Duration) {
	if !m.enabled {
		return
	}

	// Create a span for API request tracking using the request context
	span := sentry.StartSpan(ctx, "api.request")
	defer span.Finish()

	// Set span tags
	span.SetTag("endpoint", endpoint)
	span.SetTag("status_code", fmt.Sprintf("%d", statusCode))
	span.SetTag("success", fmt.Sprintf("%t", statusCode < successStatusCodeThreshold))

	// Set span data
	span.SetData("duration_ms", duration.Milliseconds())
	span.SetData("endpoint", endpoint)
	span.SetData("status_code", statusCode)

	// Set span status based on response
	if statusCode < successStatusCodeThreshold {
		span.Status = sentry.SpanStatusOK
	} else {
		span.Status = sentry.SpanStatusInternalError
	}

	// Set span description
	span.Description = fmt.Sprintf("API Request: %s", endpoint)
}

// RecordParseOutcome attaches parse result details to the active
// transaction and records a child span for the pipeline run
func (m *SentryMetrics) RecordParseOutcome(ctx context.Context, grammarName, outcome string, parseCount, totalItems int) {
	if !m.enabled {
		return
	}

	if transaction := sentry.TransactionFromContext(ctx); transaction != nil {
		transaction.SetTag("parse.grammar", grammarName)
		transaction.SetTag("parse.outcome", outcome)
		transaction.SetData("parse.readings", parseCount)
		transaction.SetData("parse.chart_items", totalItems)
	}

	span := sentry.StartSpan(ctx, "parse.pipeline")
	defer span.Finish()

	span.SetTag("grammar", grammarName)
	span.SetTag("outcome", outcome)
	span.SetData("readings", parseCount)
	span.SetData("chart_items", totalItems)

	span.Status = sentry.SpanStatusOK
	span.Description = fmt.Sprintf("Parse: %s (%s)", grammarName, outcome)
}

// RecordClarification records a clarify request span
func (m *SentryMetrics) RecordClarification(ctx context.Context, source string, duration time.Duration, success bool) {
	if !m.enabled {
		return
	}

	span := sentry.StartSpan(ctx, "clarify.request")
	defer span.Finish()

	span.SetTag("source", source)
	span.SetTag("success", fmt.Sprintf("%t", success))
	span.SetData("duration_ms", duration.Milliseconds())

	if success {
		span.Status = sentry.SpanStatusOK
	} else {
		span.Status = sentry.SpanStatusInternalError
	}

	span.Description = fmt.Sprintf("Clarify: %s", source)
}
