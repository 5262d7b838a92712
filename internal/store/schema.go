package store

import (
	"context"
	"fmt"
)

// schema mirrors the tables owned by the collection side. It is only applied
// by Bootstrap for local databases and tests; production schemas are managed
// elsewhere.
const schema = `
CREATE TABLE IF NOT EXISTS entities (
	id TEXT PRIMARY KEY,
	canonical_id TEXT NOT NULL,
	social_handle TEXT
);

CREATE TABLE IF NOT EXISTS donations (
	canonical_id TEXT NOT NULL,
	contributor TEXT NOT NULL,
	recipient TEXT NOT NULL,
	amount DOUBLE PRECISION NOT NULL,
	date DATE
);

CREATE TABLE IF NOT EXISTS assets (
	canonical_id TEXT NOT NULL,
	description TEXT NOT NULL,
	value_range TEXT NOT NULL,
	report_year INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions (
	canonical_id TEXT NOT NULL,
	description TEXT NOT NULL,
	transaction_type TEXT NOT NULL,
	amount_range TEXT NOT NULL,
	counterparty TEXT,
	transaction_date DATE
);

CREATE TABLE IF NOT EXISTS associations (
	canonical_id TEXT NOT NULL,
	role TEXT NOT NULL,
	company TEXT NOT NULL,
	start_date DATE
);

CREATE TABLE IF NOT EXISTS social_posts (
	platform TEXT NOT NULL,
	post_id TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	canonical_id TEXT NOT NULL,
	text TEXT NOT NULL,
	created_at TIMESTAMP,
	like_count INTEGER,
	repost_count INTEGER,
	reply_count INTEGER,
	quote_count INTEGER,
	impression_count INTEGER,
	hashtags TEXT,
	mentions TEXT,
	stored_at TIMESTAMP NOT NULL,
	PRIMARY KEY (platform, post_id)
);

CREATE INDEX IF NOT EXISTS idx_donations_canonical ON donations(canonical_id);
CREATE INDEX IF NOT EXISTS idx_assets_canonical ON assets(canonical_id);
CREATE INDEX IF NOT EXISTS idx_transactions_canonical ON transactions(canonical_id);
CREATE INDEX IF NOT EXISTS idx_associations_canonical ON associations(canonical_id);
CREATE INDEX IF NOT EXISTS idx_social_posts_entity ON social_posts(entity_id);
`

// Bootstrap creates the tables if they do not exist
func (s *Store) Bootstrap(ctx context.Context) error {
	w, err := s.openWriter()
	if err != nil {
		return fmt.Errorf("failed to open write handle: %w", err)
	}
	defer w.Close()

	if _, err := w.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
