package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/postlens/internal/types"
)

func TestCommandsRegistered(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"analyze", "latest-post", "init-db", "serve", "watch", "login", "logout", "open", "bot-test"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestArgValidation(t *testing.T) {
	tests := [][]string{
		{"analyze"},
		{"latest-post", "E1", "E2"},
		{"open", "downloads"},
	}
	for _, args := range tests {
		root := newRootCmd()
		root.SetArgs(args)
		root.SetOut(&bytes.Buffer{})
		root.SetErr(&bytes.Buffer{})
		assert.Error(t, root.Execute(), "%v", args)
	}
}

func TestPrintResult(t *testing.T) {
	result := &types.AnalysisResult{
		EntityID: "E1",
		Post: types.SocialPost{
			Platform:  "x",
			PostID:    "P1",
			Text:      "line one\nline two",
			CreatedAt: time.Date(2025, 3, 1, 14, 0, 0, 0, time.UTC),
			Metrics:   types.Metrics{Likes: 10},
		},
		RawAnalysisText: "free-form text",
		GeneratedAt:     time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC),
	}

	var buf bytes.Buffer
	printResult(&buf, result)
	out := buf.String()
	assert.Contains(t, out, "x post P1 (2025-03-01 14:00 UTC)")
	assert.Contains(t, out, "  line one\n  line two")
	assert.Contains(t, out, "free-form text")

	result.Report = &types.Report{Sentiment: types.SentimentNegative, CriticalReply: "Sell the stock first."}
	buf.Reset()
	printResult(&buf, result)
	out = buf.String()
	assert.Contains(t, out, "Sentiment: negative")
	assert.Contains(t, out, "Critical Reply\nSell the stock first.")
	assert.NotContains(t, out, "free-form text")
}
