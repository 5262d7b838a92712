package providers

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"
)

func TestGeminiCompletion(t *testing.T) {
	tests := []struct {
		name      string
		resp      *genai.GenerateContentResponse
		wantText  string
		wantBlock string
	}{
		{
			name: "text parts joined",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []*genai.Part{
					{Text: "thinking out loud", Thought: true},
					{Text: "## 1. Classification\n"},
					{Text: "Sentiment: neutral"},
				}},
				FinishReason: genai.FinishReasonStop,
			}}},
			wantText: "## 1. Classification\nSentiment: neutral",
		},
		{
			name: "prompt blocked",
			resp: &genai.GenerateContentResponse{
				PromptFeedback: &genai.GenerateContentResponsePromptFeedback{
					BlockReason:        genai.BlockedReasonSafety,
					BlockReasonMessage: "harassment",
				},
			},
			wantBlock: "SAFETY: harassment",
		},
		{
			name: "candidate withheld",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content:      &genai.Content{},
				FinishReason: genai.FinishReasonProhibitedContent,
			}}},
			wantBlock: "PROHIBITED_CONTENT",
		},
		{
			name: "empty without block indicator",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				FinishReason: genai.FinishReasonMaxTokens,
			}}},
		},
		{
			name: "nil response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := geminiCompletion(tt.resp)
			assert.Equal(t, tt.wantText, c.Text())
			assert.Equal(t, tt.wantBlock, c.BlockReason)
		})
	}
}

func TestAnthropicCompletion(t *testing.T) {
	c := anthropicCompletion(&anthropic.Message{
		Content: []anthropic.ContentBlockUnion{
			{Type: "thinking", Thinking: "hmm"},
			{Type: "text", Text: "## 2. Summary\n"},
			{Type: "text", Text: "A statement."},
		},
		StopReason: anthropic.StopReasonEndTurn,
	})
	assert.Equal(t, "## 2. Summary\nA statement.", c.Text())
	assert.Empty(t, c.BlockReason)

	c = anthropicCompletion(&anthropic.Message{StopReason: "refusal"})
	assert.Empty(t, c.Parts)
	assert.Equal(t, "refusal", c.BlockReason)

	c = anthropicCompletion(&anthropic.Message{StopReason: anthropic.StopReasonMaxTokens})
	assert.Empty(t, c.Parts)
	assert.Empty(t, c.BlockReason)
}
