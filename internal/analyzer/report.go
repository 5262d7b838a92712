package analyzer

import (
	"fmt"
	"strings"

	"github.com/ibeckermayer/postlens/internal/types"
)

// ParseReport splits heading-delimited analysis text into its seven sections.
// Headings are matched on their title ("1. Classification"), ignoring the
// number of leading #s, case and bold markers. It fails if any heading is
// missing.
func ParseReport(text string) (*types.Report, error) {
	sections := make(map[string]*strings.Builder, len(Headings))
	var current *strings.Builder

	for _, line := range strings.Split(text, "\n") {
		if h, ok := matchHeading(line); ok {
			if _, seen := sections[h]; !seen {
				current = &strings.Builder{}
				sections[h] = current
				continue
			}
		}
		if current != nil {
			current.WriteString(line)
			current.WriteByte('\n')
		}
	}

	var missing []string
	for _, h := range Headings {
		if _, ok := sections[h]; !ok {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("analysis is missing sections: %s", strings.Join(missing, ", "))
	}

	body := func(h string) string { return strings.TrimSpace(sections[h].String()) }
	classification := body(HeadingClassification)
	return &types.Report{
		Sentiment:            parseSentiment(classification),
		Classification:       classification,
		Summary:              body(HeadingSummary),
		Evaluation:           body(HeadingEvaluation),
		FinancialConnections: body(HeadingFinancialConnections),
		LegalRelevance:       body(HeadingLegalRelevance),
		SupportiveReply:      body(HeadingSupportiveReply),
		CriticalReply:        body(HeadingCriticalReply),
	}, nil
}

func headingTitle(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "#")
	s = strings.Trim(s, " *_:")
	return strings.ToLower(s)
}

var headingTitles = func() map[string]string {
	m := make(map[string]string, len(Headings))
	for _, h := range Headings {
		m[headingTitle(h)] = h
	}
	return m
}()

func matchHeading(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "#") && !strings.HasPrefix(trimmed, "**") {
		return "", false
	}
	h, ok := headingTitles[headingTitle(trimmed)]
	return h, ok
}

func parseSentiment(classification string) types.Sentiment {
	for _, line := range strings.Split(classification, "\n") {
		line = strings.ToLower(strings.Trim(strings.TrimSpace(line), "*_- "))
		rest, ok := strings.CutPrefix(line, "sentiment")
		if !ok {
			continue
		}
		rest = strings.Trim(rest, "*_: ")
		for _, s := range []types.Sentiment{
			types.SentimentPositive,
			types.SentimentNegative,
			types.SentimentNeutral,
			types.SentimentMixed,
		} {
			if strings.HasPrefix(rest, string(s)) {
				return s
			}
		}
		return types.SentimentUnknown
	}
	return types.SentimentUnknown
}
