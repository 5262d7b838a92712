package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ibeckermayer/postlens/internal/types"
)

// InsertOutcome reports what InsertPostIfAbsent did
type InsertOutcome int

const (
	Inserted InsertOutcome = iota
	AlreadyPresent
)

func (o InsertOutcome) String() string {
	if o == AlreadyPresent {
		return "already_present"
	}
	return "inserted"
}

// InsertPostIfAbsent stores a post keyed by (platform, post_id).
// An existing row is left untouched and reported as AlreadyPresent.
// The write handle is opened for this call only and closed before returning.
func (s *Store) InsertPostIfAbsent(ctx context.Context, canonicalID string, p types.SocialPost) (InsertOutcome, error) {
	hashtagsJSON, err := json.Marshal(nonNil(p.Hashtags))
	if err != nil {
		return 0, fmt.Errorf("failed to marshal hashtags: %w", err)
	}
	mentionsJSON, err := json.Marshal(nonNil(p.Mentions))
	if err != nil {
		return 0, fmt.Errorf("failed to marshal mentions: %w", err)
	}

	w, err := s.openWriter()
	if err != nil {
		return 0, fmt.Errorf("failed to open write handle: %w", err)
	}
	defer w.Close()

	res, err := w.ExecContext(ctx, s.rebind(`
		INSERT INTO social_posts (platform, post_id, entity_id, canonical_id, text,
			created_at, like_count, repost_count, reply_count, quote_count,
			impression_count, hashtags, mentions, stored_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (platform, post_id) DO NOTHING
	`), p.Platform, p.PostID, p.EntityID, canonicalID, p.Text,
		p.CreatedAt.UTC(), p.Metrics.Likes, p.Metrics.Reposts, p.Metrics.Replies, p.Metrics.Quotes,
		p.Metrics.Impressions, string(hashtagsJSON), string(mentionsJSON), time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to insert post: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read insert result: %w", err)
	}
	if n == 0 {
		return AlreadyPresent, nil
	}
	return Inserted, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
