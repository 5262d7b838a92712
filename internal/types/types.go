package types

import "time"

// Entity is a tracked person or organization, read from the entity store
type Entity struct {
	ID           string `json:"id"`
	CanonicalID  string `json:"canonical_id"`
	SocialHandle string `json:"social_handle,omitempty"`
}

// Metrics holds public engagement counts for a post
type Metrics struct {
	Likes       int `json:"likes"`
	Reposts     int `json:"reposts"`
	Replies     int `json:"replies"`
	Quotes      int `json:"quotes"`
	Impressions int `json:"impressions"`
}

// SocialPost is an eligible (non-reply, non-repost) post owned by an entity
type SocialPost struct {
	Platform  string    `json:"platform"`
	PostID    string    `json:"post_id"`
	EntityID  string    `json:"entity_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	Metrics   Metrics   `json:"metrics"`
	Hashtags  []string  `json:"hashtags"`
	Mentions  []string  `json:"mentions"`
}

// Donation is a campaign contribution record
type Donation struct {
	Contributor string    `json:"contributor"`
	Recipient   string    `json:"recipient"`
	Amount      float64   `json:"amount"`
	Date        time.Time `json:"date"`
}

// Asset is a disclosed holding with a reported value range
type Asset struct {
	Description string `json:"description"`
	ValueRange  string `json:"value_range"`
	ReportYear  int    `json:"report_year"`
}

// Transaction is a disclosed purchase, sale or exchange
type Transaction struct {
	Description     string    `json:"description"`
	TransactionType string    `json:"transaction_type"`
	AmountRange     string    `json:"amount_range"`
	Counterparty    string    `json:"counterparty,omitempty"`
	Date            time.Time `json:"date"`
}

// Association is a role held at an outside organization
type Association struct {
	Role      string    `json:"role"`
	Company   string    `json:"company"`
	StartDate time.Time `json:"start_date"`
}

// FinancialContext bundles the four disclosure categories for one canonical id.
// Every category is always present; an empty slice means none reported or
// the lookup failed.
type FinancialContext struct {
	Donations    []Donation    `json:"donations"`
	Assets       []Asset       `json:"assets"`
	Transactions []Transaction `json:"transactions"`
	Associations []Association `json:"associations"`
}

// AnalysisResult is the outcome of one successful pipeline run
type AnalysisResult struct {
	EntityID         string           `json:"entity_id"`
	Post             SocialPost       `json:"post"`
	FinancialContext FinancialContext `json:"financial_context"`
	RawAnalysisText  string           `json:"raw_analysis_text"`
	Report           *Report          `json:"report,omitempty"` // nil when a heading was missing
	GeneratedAt      time.Time        `json:"generated_at"`
}

// Sentiment is the tone classification from the analysis report
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
	SentimentMixed    Sentiment = "mixed"
	SentimentUnknown  Sentiment = "unknown"
)

// Report is the heading-delimited analysis text split into its sections
type Report struct {
	Sentiment            Sentiment `json:"sentiment"`
	Classification       string    `json:"classification"`
	Summary              string    `json:"summary"`
	Evaluation           string    `json:"evaluation"`
	FinancialConnections string    `json:"financial_connections"`
	LegalRelevance       string    `json:"legal_relevance"`
	SupportiveReply      string    `json:"supportive_reply"`
	CriticalReply        string    `json:"critical_reply"`
}
