package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultAnthropicModel is used when a generation call names no model.
const DefaultAnthropicModel = "claude-3-5-haiku-20241022"

// AnthropicClient is the Anthropic-backed AI client.
type AnthropicClient struct {
	client *anthropic.Client
}

// NewAnthropicClient creates a new Anthropic client.
func NewAnthropicClient(apiKey string) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, errors.New("Anthropic API key is required")
	}

	return &AnthropicClient{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
	}, nil
}

// Name returns the provider name.
func (c *AnthropicClient) Name() string {
	return "anthropic"
}

// Moderate always errors. Anthropic exposes no standalone moderation
// endpoint; the safety gate treats the error as a degraded fail-open pass.
func (c *AnthropicClient) Moderate(ctx context.Context, text string) (*ModerationResult, error) {
	return nil, errors.New("moderation not supported by provider")
}

// Classify returns a one-word label for the text.
func (c *AnthropicClient) Classify(ctx context.Context, text string) (string, error) {
	resp, err := c.complete(ctx, classifyMessages(text), GenerationParams{
		Model:     DefaultAnthropicModel,
		MaxTokens: ClassifyMaxTokens,
	}, ClassifyTemperature)
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(resp.Content)), nil
}

// Generate produces a completion.
func (c *AnthropicClient) Generate(ctx context.Context, messages []ChatMessage, params GenerationParams) (*GenerationResult, error) {
	return c.complete(ctx, messages, params, GenerateTemperature)
}

func (c *AnthropicClient) complete(ctx context.Context, messages []ChatMessage, params GenerationParams, temperature float64) (*GenerationResult, error) {
	model := params.Model
	if model == "" {
		model = DefaultAnthropicModel
	}

	maxTokens := params.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}

	system, converted := convertMessages(messages)

	req := anthropic.MessageNewParams{
		Model:       anthropic.F(model),
		MaxTokens:   anthropic.F(int64(maxTokens)),
		Temperature: anthropic.F(temperature),
		Messages:    anthropic.F(converted),
	}
	if system != "" {
		req.System = anthropic.F([]anthropic.TextBlockParam{{
			Type: anthropic.F(anthropic.TextBlockParamTypeText),
			Text: anthropic.F(system),
		}})
	}

	start := time.Now()

	resp, err := c.client.Messages.New(ctx, req)
	if err != nil {
		return nil, err
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == anthropic.ContentBlockTypeText {
			content += block.Text
		}
	}

	return &GenerationResult{
		Content:    content,
		Model:      resp.Model,
		TokensUsed: int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

// convertMessages splits a turn list into the accumulated system text and
// the provider turn parameters. The Messages API takes no system role in the
// turn list; system content travels in the request's System field, so it
// survives regardless of which role the history starts with.
func convertMessages(messages []ChatMessage) (string, []anthropic.MessageParam) {
	var system string
	converted := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += msg.Content
			continue
		}
		converted = append(converted, anthropic.MessageParam{
			Role: anthropic.F(anthropic.MessageParamRole(msg.Role)),
			Content: anthropic.F([]anthropic.MessageParamContentUnion{
				anthropic.TextBlockParam{
					Type: anthropic.F(anthropic.TextBlockParamTypeText),
					Text: anthropic.F(msg.Content),
				},
			}),
		})
	}
	return system, converted
}
