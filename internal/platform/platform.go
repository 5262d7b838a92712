// Package platform defines the content platform boundary used by the fetcher.
package platform

import (
	"context"
	"errors"
	"time"

	"github.com/ibeckermayer/postlens/internal/types"
)

// ErrAccountNotFound is returned by ResolveAccount when the handle does not
// map to an account. Any other error means the platform was unreachable.
var ErrAccountNotFound = errors.New("account not found")

// ErrMissingCredentials is returned when a backend has no usable credentials
var ErrMissingCredentials = errors.New("platform credentials missing")

// Account is a resolved platform-side account
type Account struct {
	ID     string
	Handle string
	Name   string
}

// Post is a platform-native post
type Post struct {
	ID        string
	Text      string
	CreatedAt time.Time
	Metrics   types.Metrics
	Hashtags  []string
	Mentions  []string
}

// Client is a content platform backend
type Client interface {
	// Name is the platform name stored with each post (e.g. "x")
	Name() string
	ResolveAccount(ctx context.Context, handle string) (Account, error)
	// ListRecentPosts returns at most maxResults posts, most recent first,
	// excluding replies and reposts.
	ListRecentPosts(ctx context.Context, accountID string, maxResults int) ([]Post, error)
}
