package providers

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ibeckermayer/postlens/internal/config"
)

// AnthropicProvider calls Anthropic's Messages API
type AnthropicProvider struct {
	client      *anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
}

// NewAnthropicProvider creates a new Anthropic provider
func NewAnthropicProvider(apiKey, model string, maxTokens int, temperature float32) (*AnthropicProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic: api key is required")
	}
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	)
	return &AnthropicProvider{
		client:      &client,
		model:       model,
		maxTokens:   int64(maxTokens),
		temperature: float64(temperature),
	}, nil
}

// Name returns the provider name
func (c *AnthropicProvider) Name() string {
	return config.ProviderAnthropic
}

// Model returns the configured model
func (c *AnthropicProvider) Model() string {
	return c.model
}

// Complete sends a single user-turn prompt
func (c *AnthropicProvider) Complete(ctx context.Context, prompt string) (Completion, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   c.maxTokens,
		Temperature: anthropic.Float(c.temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return Completion{}, fmt.Errorf("failed to call Claude API: %w", err)
	}
	return anthropicCompletion(message), nil
}

func anthropicCompletion(message *anthropic.Message) Completion {
	var c Completion
	if message == nil {
		return c
	}
	for _, block := range message.Content {
		if block.Type == "text" && block.Text != "" {
			c.Parts = append(c.Parts, block.Text)
		}
	}
	if len(c.Parts) == 0 && string(message.StopReason) == "refusal" {
		c.BlockReason = "refusal"
	}
	return c
}
