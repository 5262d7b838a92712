package analyzer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ibeckermayer/postlens/internal/types"
)

// Section headings the backend is asked to answer under, in order.
// ParseReport locates sections by these exact titles.
const (
	HeadingClassification       = "## 1. Classification"
	HeadingSummary              = "## 2. Summary"
	HeadingEvaluation           = "## 3. Evaluation"
	HeadingFinancialConnections = "## 4. Financial Connections"
	HeadingLegalRelevance       = "## 5. Legal Relevance"
	HeadingSupportiveReply      = "## 6. Supportive Reply"
	HeadingCriticalReply        = "## 7. Critical Reply"
)

// Headings lists every required section heading in answer order
var Headings = []string{
	HeadingClassification,
	HeadingSummary,
	HeadingEvaluation,
	HeadingFinancialConnections,
	HeadingLegalRelevance,
	HeadingSupportiveReply,
	HeadingCriticalReply,
}

// maxPerCategory bounds how many records of each financial category are shown
const maxPerCategory = 3

const noneReported = "None reported"

const dateLayout = "2006-01-02"

// Compose builds the analysis prompt. It depends only on its arguments, so
// the same post and context always give the same bytes.
func Compose(post types.SocialPost, fin types.FinancialContext) string {
	var sb strings.Builder

	sb.WriteString("You are a nonpartisan analyst reviewing a public post by a public figure alongside their financial disclosures.\n\n")

	date := "unknown"
	if !post.CreatedAt.IsZero() {
		date = post.CreatedAt.UTC().Format(dateLayout)
	}
	sb.WriteString("## Post\n")
	fmt.Fprintf(&sb, "Date: %s\n", date)
	fmt.Fprintf(&sb, "Engagement: %d likes, %d reposts, %d replies\n", post.Metrics.Likes, post.Metrics.Reposts, post.Metrics.Replies)
	if len(post.Hashtags) > 0 {
		fmt.Fprintf(&sb, "Hashtags: %s\n", strings.Join(post.Hashtags, ", "))
	}
	if len(post.Mentions) > 0 {
		fmt.Fprintf(&sb, "Mentions: %s\n", strings.Join(post.Mentions, ", "))
	}
	sb.WriteString("Text:\n")
	sb.WriteString(strings.TrimSpace(post.Text))
	sb.WriteString("\n\n")

	sb.WriteString("## Financial Disclosures\n\n")
	writeCategory(&sb, "Donations", fin.Donations, func(d types.Donation) string {
		line := fmt.Sprintf("%s to %s: $%s", orUnknown(d.Contributor), orUnknown(d.Recipient), formatAmount(d.Amount))
		if !d.Date.IsZero() {
			line += " on " + d.Date.UTC().Format(dateLayout)
		}
		return line
	})
	writeCategory(&sb, "Assets", fin.Assets, func(a types.Asset) string {
		line := fmt.Sprintf("%s (%s)", orUnknown(a.Description), orUnknown(a.ValueRange))
		if a.ReportYear > 0 {
			line += fmt.Sprintf(", reported %d", a.ReportYear)
		}
		return line
	})
	writeCategory(&sb, "Transactions", fin.Transactions, func(t types.Transaction) string {
		line := fmt.Sprintf("%s: %s, %s", orUnknown(t.TransactionType), orUnknown(t.Description), orUnknown(t.AmountRange))
		if t.Counterparty != "" {
			line += ", counterparty " + t.Counterparty
		}
		if !t.Date.IsZero() {
			line += " on " + t.Date.UTC().Format(dateLayout)
		}
		return line
	})
	writeCategory(&sb, "Associations", fin.Associations, func(a types.Association) string {
		line := fmt.Sprintf("%s at %s", orUnknown(a.Role), orUnknown(a.Company))
		if !a.StartDate.IsZero() {
			line += " since " + a.StartDate.UTC().Format(dateLayout)
		}
		return line
	})

	sb.WriteString("## Task\n\n")
	sb.WriteString("Answer in markdown using exactly the following headings, in this order, each on its own line:\n\n")
	sb.WriteString(HeadingClassification + "\n")
	sb.WriteString("First line: \"Sentiment: positive|negative|neutral|mixed\". Then classify the post's main claims (policy position, factual claim, opinion, announcement).\n\n")
	sb.WriteString(HeadingSummary + "\n")
	sb.WriteString("Summarize the post in two or three sentences.\n\n")
	sb.WriteString(HeadingEvaluation + "\n")
	sb.WriteString("Evaluate the accuracy and framing of the claims.\n\n")
	sb.WriteString(HeadingFinancialConnections + "\n")
	sb.WriteString("Explain any connection between the post and the financial disclosures above. If there is none, say so.\n\n")
	sb.WriteString(HeadingLegalRelevance + "\n")
	sb.WriteString("Only if the post or the disclosures touch on ethics rules, conflicts of interest or pending legislation, explain the legal relevance. Otherwise write \"No legal relevance identified.\"\n\n")
	sb.WriteString(HeadingSupportiveReply + "\n")
	sb.WriteString("Draft a short, respectful reply supporting the post.\n\n")
	sb.WriteString(HeadingCriticalReply + "\n")
	sb.WriteString("Draft a short, respectful critical reply. It must cite any financial connection or legal relevance found in sections 4 and 5.\n")

	return sb.String()
}

func writeCategory[T any](sb *strings.Builder, title string, records []T, format func(T) string) {
	fmt.Fprintf(sb, "### %s\n", title)
	if len(records) == 0 {
		sb.WriteString(noneReported + "\n\n")
		return
	}
	for i, r := range records {
		if i == maxPerCategory {
			fmt.Fprintf(sb, "(%d more not shown)\n", len(records)-maxPerCategory)
			break
		}
		sb.WriteString("- " + format(r) + "\n")
	}
	sb.WriteString("\n")
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return s
}

// formatAmount renders 2500 as "2,500.00"
func formatAmount(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String() + "." + frac
	if neg {
		out = "-" + out
	}
	return out
}
