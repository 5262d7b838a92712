package providers

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/ibeckermayer/postlens/internal/config"
)

// GeminiProvider calls the Gemini API through the genai SDK
type GeminiProvider struct {
	client      *genai.Client
	model       string
	maxTokens   int32
	temperature float32
}

// NewGeminiProvider creates a Gemini provider
func NewGeminiProvider(ctx context.Context, apiKey, model string, maxTokens int, temperature float32) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{
		client:      client,
		model:       model,
		maxTokens:   int32(maxTokens),
		temperature: temperature,
	}, nil
}

// Name returns the provider name
func (g *GeminiProvider) Name() string {
	return config.ProviderGemini
}

// Model returns the configured model
func (g *GeminiProvider) Model() string {
	return g.model
}

// Complete sends a single user-turn prompt
func (g *GeminiProvider) Complete(ctx context.Context, prompt string) (Completion, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		&genai.GenerateContentConfig{
			Temperature:     genai.Ptr(g.temperature),
			MaxOutputTokens: g.maxTokens,
		},
	)
	if err != nil {
		return Completion{}, fmt.Errorf("failed to call Gemini API: %w", err)
	}
	return geminiCompletion(resp), nil
}

// Finish reasons that mean the candidate was withheld on policy grounds
var geminiBlockedFinish = map[genai.FinishReason]bool{
	genai.FinishReasonSafety:            true,
	genai.FinishReasonProhibitedContent: true,
	genai.FinishReasonBlocklist:         true,
	genai.FinishReasonSPII:              true,
	genai.FinishReasonRecitation:        true,
}

func geminiCompletion(resp *genai.GenerateContentResponse) Completion {
	var c Completion
	if resp == nil {
		return c
	}

	for _, cand := range resp.Candidates {
		if cand == nil {
			continue
		}
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if part != nil && part.Text != "" && !part.Thought {
					c.Parts = append(c.Parts, part.Text)
				}
			}
		}
		if len(c.Parts) > 0 {
			return c
		}
		if c.BlockReason == "" && geminiBlockedFinish[cand.FinishReason] {
			c.BlockReason = string(cand.FinishReason)
		}
	}

	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		c.BlockReason = string(fb.BlockReason)
		if fb.BlockReasonMessage != "" {
			c.BlockReason += ": " + fb.BlockReasonMessage
		}
	}
	return c
}
