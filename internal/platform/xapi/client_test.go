package xapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/postlens/internal/platform"
)

const userBody = `{"data":{"id":"2244994945","name":"ABC","username":"abc"}}`

const tweetsBody = `{
  "data": [
    {
      "id": "1790000000000000002",
      "text": "border security is national security #border @dhs",
      "created_at": "2025-03-01T14:00:00.000Z",
      "public_metrics": {"retweet_count": 3, "reply_count": 2, "like_count": 10, "quote_count": 1, "impression_count": 500},
      "entities": {"hashtags": [{"start": 37, "end": 44, "tag": "border"}], "mentions": [{"start": 45, "end": 49, "username": "dhs"}]}
    },
    {
      "id": "1790000000000000001",
      "text": "older post",
      "created_at": "2025-02-27T09:30:00.000Z",
      "public_metrics": {"retweet_count": 0, "reply_count": 0, "like_count": 1, "quote_count": 0, "impression_count": 20}
    }
  ],
  "meta": {"result_count": 2}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, "test-token", 0, 5*time.Second)
}

func TestResolveAccount(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2/users/by/username/abc", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(userBody))
	})

	acct, err := c.ResolveAccount(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, platform.Account{ID: "2244994945", Handle: "abc", Name: "ABC"}, acct)
}

func TestResolveAccountNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors":[{"title":"Not Found Error","detail":"Could not find user with username: [nobody]."}]}`))
	})

	_, err := c.ResolveAccount(context.Background(), "nobody")
	assert.ErrorIs(t, err, platform.ErrAccountNotFound)
	assert.Contains(t, err.Error(), "Could not find user")
}

func TestListRecentPosts(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2/users/2244994945/tweets", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "replies,retweets", q.Get("exclude"))
		assert.Equal(t, "5", q.Get("max_results"))
		assert.Equal(t, tweetFields, q.Get("tweet.fields"))
		_, _ = w.Write([]byte(tweetsBody))
	})

	posts, err := c.ListRecentPosts(context.Background(), "2244994945", 5)
	require.NoError(t, err)
	require.Len(t, posts, 2)

	first := posts[0]
	assert.Equal(t, "1790000000000000002", first.ID, "API order is preserved")
	assert.Equal(t, 10, first.Metrics.Likes)
	assert.Equal(t, 3, first.Metrics.Reposts)
	assert.Equal(t, 500, first.Metrics.Impressions)
	assert.Equal(t, []string{"border"}, first.Hashtags)
	assert.Equal(t, []string{"dhs"}, first.Mentions)
	assert.True(t, first.CreatedAt.Equal(time.Date(2025, 3, 1, 14, 0, 0, 0, time.UTC)))
}

func TestListRecentPostsClampsPageSize(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("max_results"))
		_, _ = w.Write([]byte(tweetsBody))
	})

	posts, err := c.ListRecentPosts(context.Background(), "2244994945", 1)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "1790000000000000002", posts[0].ID)
}

func TestListRecentPostsEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"meta":{"result_count":0}}`))
	})

	posts, err := c.ListRecentPosts(context.Background(), "2244994945", 5)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestUpstreamFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"unauthorized", http.StatusUnauthorized},
		{"forbidden", http.StatusForbidden},
		{"rate limited", http.StatusTooManyRequests},
		{"server error", http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"title":"nope"}`))
			})

			_, err := c.ResolveAccount(context.Background(), "abc")
			require.Error(t, err)
			assert.NotErrorIs(t, err, platform.ErrAccountNotFound)
		})
	}
}

func TestMissingToken(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ }))
	defer srv.Close()

	c := New(srv.URL, "", 0, time.Second)
	_, err := c.ResolveAccount(context.Background(), "abc")
	assert.ErrorIs(t, err, platform.ErrMissingCredentials)
	assert.Zero(t, calls)
}
