// Package fetcher retrieves an entity's latest eligible post from the content platform.
package fetcher

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ibeckermayer/postlens/internal/apperr"
	"github.com/ibeckermayer/postlens/internal/platform"
	"github.com/ibeckermayer/postlens/internal/platform/xweb"
	"github.com/ibeckermayer/postlens/internal/types"
)

// DefaultMaxResults is the candidate window requested from the platform
const DefaultMaxResults = 5

// Fetcher resolves a handle and picks the newest eligible post.
// It never retries; a failed call ends the run.
type Fetcher struct {
	client     platform.Client
	maxResults int
	timeout    time.Duration
	logger     *zap.Logger
}

// New creates a fetcher. maxResults < 1 falls back to DefaultMaxResults.
func New(client platform.Client, maxResults int, timeout time.Duration, logger *zap.Logger) *Fetcher {
	if maxResults < 1 {
		maxResults = DefaultMaxResults
	}
	return &Fetcher{
		client:     client,
		maxResults: maxResults,
		timeout:    timeout,
		logger:     logger,
	}
}

// Latest returns the first post the platform lists for the entity's handle.
// Unknown accounts and empty timelines are NoContent; any other platform
// failure, including a timeout, is UpstreamUnavailable.
func (f *Fetcher) Latest(ctx context.Context, entity types.Entity) (*types.SocialPost, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	account, err := f.client.ResolveAccount(ctx, entity.SocialHandle)
	if errors.Is(err, platform.ErrAccountNotFound) {
		return nil, apperr.Wrap(apperr.NoContent, err, "no account for @%s", entity.SocialHandle)
	}
	if err != nil {
		return nil, upstream(err, "resolve @%s", entity.SocialHandle)
	}

	posts, err := f.client.ListRecentPosts(ctx, account.ID, f.maxResults)
	if err != nil {
		return nil, upstream(err, "list posts for @%s", entity.SocialHandle)
	}
	if len(posts) == 0 {
		return nil, apperr.New(apperr.NoContent, "@%s has no eligible posts", entity.SocialHandle)
	}

	f.logger.Debug("fetched candidate posts",
		zap.String("entity_id", entity.ID),
		zap.String("account_id", account.ID),
		zap.Int("candidates", len(posts)),
		zap.String("post_id", posts[0].ID),
	)
	return toSocialPost(f.client.Name(), entity.ID, posts[0]), nil
}

func upstream(err error, format string, args ...any) error {
	e := apperr.Wrap(apperr.UpstreamUnavailable, err, format, args...)
	if errors.Is(err, platform.ErrMissingCredentials) {
		e.Reason = "credentials missing"
	} else if errors.Is(err, context.DeadlineExceeded) {
		e.Reason = "timeout"
	}
	return e
}

func toSocialPost(platformName, entityID string, p platform.Post) *types.SocialPost {
	hashtags, mentions := p.Hashtags, p.Mentions
	if hashtags == nil && mentions == nil {
		hashtags, mentions = xweb.ExtractTags(p.Text)
	}
	if hashtags == nil {
		hashtags = []string{}
	}
	if mentions == nil {
		mentions = []string{}
	}

	return &types.SocialPost{
		Platform:  platformName,
		PostID:    p.ID,
		EntityID:  entityID,
		Text:      p.Text,
		CreatedAt: p.CreatedAt.UTC(),
		Metrics:   p.Metrics,
		Hashtags:  hashtags,
		Mentions:  mentions,
	}
}
