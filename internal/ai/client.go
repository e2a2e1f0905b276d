// Package ai provides clients for the external AI capability: content
// moderation, constrained classification, and response generation.
package ai

import (
	"context"
)

// Chat roles understood by the generation capability.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Fixed generation parameters. Classification runs cold and short;
// response generation runs at a moderate temperature.
const (
	ClassifyTemperature = 0.3
	ClassifyMaxTokens   = 10
	GenerateTemperature = 0.7
)

// ChatMessage is one turn of a generation request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationParams bound a generation call.
type GenerationParams struct {
	Model     string
	MaxTokens int
}

// GenerationResult is the outcome of a generation call.
type GenerationResult struct {
	Content    string
	Model      string
	TokensUsed int
	LatencyMs  int64
}

// ModerationResult is the outcome of a moderation call.
type ModerationResult struct {
	Flagged    bool
	Categories map[string]bool
	Scores     map[string]float64
}

// Client is the narrow contract the pipeline holds on the AI provider.
type Client interface {
	// Moderate checks text against the provider's content policy.
	Moderate(ctx context.Context, text string) (*ModerationResult, error)

	// Classify returns a single-word label for the text. Callers validate
	// the label against their own vocabulary.
	Classify(ctx context.Context, text string) (string, error)

	// Generate produces a completion for an ordered list of chat messages.
	Generate(ctx context.Context, messages []ChatMessage, params GenerationParams) (*GenerationResult, error)

	// Name returns the provider name.
	Name() string
}

// Provider is the type of AI provider.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// NewClient creates a new AI client based on provider.
func NewClient(provider Provider, apiKey string) (Client, error) {
	switch provider {
	case ProviderAnthropic:
		return NewAnthropicClient(apiKey)
	default:
		return NewOpenAIClient(apiKey)
	}
}

// classifyMessages builds the constrained sentiment-classification exchange
// shared by all providers.
func classifyMessages(text string) []ChatMessage {
	prompt := `Analyze the sentiment of the following customer message and classify it as one of: positive, neutral, negative, or frustrated.

Customer Message: "` + text + `"

Respond with ONLY ONE WORD from the options: positive, neutral, negative, frustrated

Classification:`

	return []ChatMessage{
		{Role: RoleSystem, Content: "You are a sentiment analysis expert. Classify messages accurately."},
		{Role: RoleUser, Content: prompt},
	}
}
