package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// DefaultOpenAIModel is used when a generation call names no model.
const DefaultOpenAIModel = openai.GPT3Dot5Turbo

// OpenAIClient is the OpenAI-backed AI client.
type OpenAIClient struct {
	client *openai.Client
}

// NewOpenAIClient creates a new OpenAI client.
func NewOpenAIClient(apiKey string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}

	return &OpenAIClient{
		client: openai.NewClient(apiKey),
	}, nil
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string {
	return "openai"
}

// Moderate checks text against the OpenAI moderation endpoint.
func (c *OpenAIClient) Moderate(ctx context.Context, text string) (*ModerationResult, error) {
	resp, err := c.client.Moderations(ctx, openai.ModerationRequest{
		Input: text,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Results) == 0 {
		return &ModerationResult{}, nil
	}

	r := resp.Results[0]
	return &ModerationResult{
		Flagged: r.Flagged,
		Categories: map[string]bool{
			"hate":             r.Categories.Hate,
			"harassment":       r.Categories.Harassment,
			"self-harm":        r.Categories.SelfHarm,
			"sexual":           r.Categories.Sexual,
			"sexual/minors":    r.Categories.SexualMinors,
			"violence":         r.Categories.Violence,
			"violence/graphic": r.Categories.ViolenceGraphic,
		},
		Scores: map[string]float64{
			"hate":             float64(r.CategoryScores.Hate),
			"harassment":       float64(r.CategoryScores.Harassment),
			"self-harm":        float64(r.CategoryScores.SelfHarm),
			"sexual":           float64(r.CategoryScores.Sexual),
			"sexual/minors":    float64(r.CategoryScores.SexualMinors),
			"violence":         float64(r.CategoryScores.Violence),
			"violence/graphic": float64(r.CategoryScores.ViolenceGraphic),
		},
	}, nil
}

// Classify returns a one-word label for the text.
func (c *OpenAIClient) Classify(ctx context.Context, text string) (string, error) {
	messages := toOpenAIMessages(classifyMessages(text))

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       DefaultOpenAIModel,
		Messages:    messages,
		Temperature: ClassifyTemperature,
		MaxTokens:   ClassifyMaxTokens,
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("empty classification response")
	}

	return strings.ToLower(strings.TrimSpace(resp.Choices[0].Message.Content)), nil
}

// Generate produces a chat completion.
func (c *OpenAIClient) Generate(ctx context.Context, messages []ChatMessage, params GenerationParams) (*GenerationResult, error) {
	model := params.Model
	if model == "" {
		model = DefaultOpenAIModel
	}

	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    toOpenAIMessages(messages),
		Temperature: GenerateTemperature,
		MaxTokens:   params.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	var content string
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}

	return &GenerationResult{
		Content:    content,
		Model:      resp.Model,
		TokensUsed: resp.Usage.TotalTokens,
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

func toOpenAIMessages(messages []ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		out[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}
	return out
}
