package xweb

// X.com DOM selectors
// These are isolated here because X changes their DOM frequently
// Update these when scraping breaks

const (
	PrimaryColumn = `[data-testid="primaryColumn"]`
	ProfileName   = `[data-testid="UserName"]`
)

// Common wait conditions
const (
	WaitForProfile = PrimaryColumn
)
