package analyzer

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ibeckermayer/postlens/internal/types"
)

var testPost = types.SocialPost{
	Platform:  "x",
	PostID:    "P1",
	EntityID:  "E1",
	Text:      "border security is national security",
	CreatedAt: time.Date(2025, 3, 1, 14, 0, 0, 0, time.UTC),
	Metrics:   types.Metrics{Likes: 10},
	Hashtags:  []string{"border"},
}

func TestComposeIsDeterministic(t *testing.T) {
	fin := types.FinancialContext{
		Donations: []types.Donation{{Contributor: "PAC A", Recipient: "Campaign", Amount: 2500, Date: time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)}},
	}
	first := Compose(testPost, fin)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Compose(testPost, fin))
	}
}

func TestComposeStructure(t *testing.T) {
	fin := types.FinancialContext{
		Donations: []types.Donation{{Contributor: "PAC A", Recipient: "Campaign", Amount: 1234567.5, Date: time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)}},
	}
	prompt := Compose(testPost, fin)

	assert.Contains(t, prompt, "Date: 2025-03-01")
	assert.Contains(t, prompt, "border security is national security")
	assert.Contains(t, prompt, "- PAC A to Campaign: $1,234,567.50 on 2024-10-01")
	assert.Equal(t, 3, strings.Count(prompt, noneReported), "assets, transactions and associations are empty")

	last := -1
	for _, h := range Headings {
		idx := strings.Index(prompt, "\n"+h+"\n")
		if assert.GreaterOrEqual(t, idx, 0, "missing %s", h) {
			assert.Greater(t, idx, last, "%s out of order", h)
			last = idx
		}
	}
	assert.Contains(t, prompt[last:], "financial connection or legal relevance")
}

func TestComposeBoundsEachCategory(t *testing.T) {
	var assets []types.Asset
	for _, d := range []string{"A1", "A2", "A3", "A4", "A5"} {
		assets = append(assets, types.Asset{Description: d, ValueRange: "$1,001 - $15,000", ReportYear: 2024})
	}
	prompt := Compose(testPost, types.FinancialContext{Assets: assets})

	assert.Contains(t, prompt, "- A3 (")
	assert.NotContains(t, prompt, "- A4 (")
	assert.Contains(t, prompt, "(2 more not shown)")
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "0.00", formatAmount(0))
	assert.Equal(t, "999.99", formatAmount(999.99))
	assert.Equal(t, "1,000.00", formatAmount(1000))
	assert.Equal(t, "-12,500.00", formatAmount(-12500))
}
