package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/helpdesk-ai/support-platform/internal/ai"
	"github.com/helpdesk-ai/support-platform/internal/model"
	"github.com/helpdesk-ai/support-platform/pkg/logger"
)

// SentimentResult carries a classification and whether it is the
// fail-neutral default substituted on provider failure.
type SentimentResult struct {
	Value    model.Sentiment
	Degraded bool
}

// SentimentClassifier labels message text with a sentiment. Any provider
// error or out-of-vocabulary answer degrades deterministically to neutral.
type SentimentClassifier struct {
	ai     ai.Client
	logger *logger.Logger
}

// NewSentimentClassifier creates a new sentiment classifier.
func NewSentimentClassifier(client ai.Client, log *logger.Logger) *SentimentClassifier {
	return &SentimentClassifier{ai: client, logger: log}
}

// Classify returns the sentiment of the text, never an error.
func (c *SentimentClassifier) Classify(ctx context.Context, text string) SentimentResult {
	label, err := c.ai.Classify(ctx, text)
	if err != nil {
		c.logger.Warn("sentiment classification failed, defaulting to neutral", zap.Error(err))
		return SentimentResult{Value: model.SentimentNeutral, Degraded: true}
	}

	return SentimentResult{Value: model.ParseSentiment(label)}
}
