package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/helpdesk-ai/support-platform/internal/ai"
	"github.com/helpdesk-ai/support-platform/pkg/logger"
	"github.com/helpdesk-ai/support-platform/pkg/metrics"
)

// SafetyResult is the outcome of a safety check. Degraded marks the
// fail-open default substituted when the moderation provider errors, so
// callers can tell a genuine pass from a substituted one.
type SafetyResult struct {
	Safe       bool
	Categories map[string]bool
	Scores     map[string]float64
	Degraded   bool
}

// SafetyGate checks message content against the moderation capability
// before any state mutation. Provider failure fails open: blocking
// legitimate support traffic is judged worse than an occasional missed
// violation.
type SafetyGate struct {
	ai     ai.Client
	logger *logger.Logger
}

// NewSafetyGate creates a new safety gate.
func NewSafetyGate(client ai.Client, log *logger.Logger) *SafetyGate {
	return &SafetyGate{ai: client, logger: log}
}

// Check moderates the text. The returned result is always usable; errors
// never escape.
func (g *SafetyGate) Check(ctx context.Context, text string) SafetyResult {
	result, err := g.ai.Moderate(ctx, text)
	if err != nil {
		g.logger.Warn("moderation failed, failing open", zap.Error(err))
		metrics.ModerationTotal.WithLabelValues("degraded").Inc()
		return SafetyResult{Safe: true, Degraded: true}
	}

	if result.Flagged {
		metrics.ModerationTotal.WithLabelValues("flagged").Inc()
		return SafetyResult{
			Safe:       false,
			Categories: result.Categories,
			Scores:     result.Scores,
		}
	}

	metrics.ModerationTotal.WithLabelValues("passed").Inc()
	return SafetyResult{
		Safe:       true,
		Categories: result.Categories,
		Scores:     result.Scores,
	}
}
