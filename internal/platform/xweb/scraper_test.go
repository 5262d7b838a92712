package xweb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"

	"github.com/ibeckermayer/postlens/internal/platform"
)

func TestParseMetric(t *testing.T) {
	tests := map[string]int{
		"":      0,
		"423":   423,
		"1,234": 1234,
		"1.2K":  1200,
		"5.7M":  5700000,
		"3k":    3000,
		"n/a":   0,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseMetric(in), "input %q", in)
	}
}

func TestRawPostEligible(t *testing.T) {
	tests := []struct {
		name string
		post rawPost
		want bool
	}{
		{"original", rawPost{ID: "1", AuthorHandle: "abc"}, true},
		{"author case differs", rawPost{ID: "1", AuthorHandle: "ABC"}, true},
		{"missing id", rawPost{AuthorHandle: "abc"}, false},
		{"reply", rawPost{ID: "1", AuthorHandle: "abc", IsReply: true}, false},
		{"repost", rawPost{ID: "1", AuthorHandle: "someone", SocialCtx: "ABC reposted"}, false},
		{"pinned", rawPost{ID: "1", AuthorHandle: "abc", SocialCtx: "Pinned"}, false},
		{"other author", rawPost{ID: "1", AuthorHandle: "someone"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.post.eligible("abc"))
		})
	}
}

func TestRawPostToPost(t *testing.T) {
	rp := rawPost{
		ID:        "1790000000000000002",
		Content:   "border security is national security #border @dhs",
		Timestamp: "2025-03-01T14:00:00.000Z",
		Likes:     "10",
		Retweets:  "1.5K",
		Replies:   "2",
	}

	p := rp.toPost()
	assert.Equal(t, 10, p.Metrics.Likes)
	assert.Equal(t, 1500, p.Metrics.Reposts)
	assert.Equal(t, []string{"border"}, p.Hashtags)
	assert.Equal(t, []string{"dhs"}, p.Mentions)
	assert.True(t, p.CreatedAt.Equal(time.Date(2025, 3, 1, 14, 0, 0, 0, time.UTC)))
}

func TestExtractTags(t *testing.T) {
	hashtags, mentions := ExtractTags("#Vote today, @alice and @bob_2! email me@example.com #1 Q&A#no")
	assert.Equal(t, []string{"Vote", "1"}, hashtags)
	assert.Equal(t, []string{"alice", "bob_2"}, mentions)

	hashtags, mentions = ExtractTags("nothing here")
	assert.Nil(t, hashtags)
	assert.Nil(t, mentions)
}

type stubCookies struct {
	cookies []*network.Cookie
	err     error
}

func (s stubCookies) GetCookies() ([]*network.Cookie, error) {
	return s.cookies, s.err
}

func TestMissingSessionIsMissingCredentials(t *testing.T) {
	s := New(true, stubCookies{}, time.Second)
	_, err := s.ResolveAccount(context.Background(), "abc")
	assert.ErrorIs(t, err, platform.ErrMissingCredentials)

	s = New(true, stubCookies{err: errors.New("open cookies.json: no such file")}, time.Second)
	_, err = s.ListRecentPosts(context.Background(), "abc", 5)
	assert.ErrorIs(t, err, platform.ErrMissingCredentials)
}
