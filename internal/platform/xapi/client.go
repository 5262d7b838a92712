// Package xapi implements the content platform client against the X API v2.
package xapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ibeckermayer/postlens/internal/platform"
	"github.com/ibeckermayer/postlens/internal/types"
)

const (
	// DefaultBaseURL is the public X API host
	DefaultBaseURL = "https://api.x.com"

	// The timeline endpoint rejects max_results outside [5, 100]
	minPageSize = 5
	maxPageSize = 100

	tweetFields = "created_at,public_metrics,entities"
)

// Client talks to the X API v2 with an app bearer token
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	limiter *rate.Limiter
}

// New creates an X API client. requestsPerMinute <= 0 disables throttling.
func New(baseURL, token string, requestsPerMinute int, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if requestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), 1)
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
		limiter: limiter,
	}
}

// Name returns the platform name stored with posts
func (c *Client) Name() string {
	return "x"
}

// apiError is one entry of the "errors" array X returns alongside or instead of data
type apiError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Type   string `json:"type"`
}

type userResponse struct {
	Data *struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Username string `json:"username"`
	} `json:"data"`
	Errors []apiError `json:"errors"`
}

type tweetsResponse struct {
	Data []tweet `json:"data"`
	Meta struct {
		ResultCount int `json:"result_count"`
	} `json:"meta"`
	Errors []apiError `json:"errors"`
}

type tweet struct {
	ID            string    `json:"id"`
	Text          string    `json:"text"`
	CreatedAt     time.Time `json:"created_at"`
	PublicMetrics struct {
		RetweetCount    int `json:"retweet_count"`
		ReplyCount      int `json:"reply_count"`
		LikeCount       int `json:"like_count"`
		QuoteCount      int `json:"quote_count"`
		ImpressionCount int `json:"impression_count"`
	} `json:"public_metrics"`
	Entities struct {
		Hashtags []struct {
			Tag string `json:"tag"`
		} `json:"hashtags"`
		Mentions []struct {
			Username string `json:"username"`
		} `json:"mentions"`
	} `json:"entities"`
}

// ResolveAccount looks up the account id for a handle
func (c *Client) ResolveAccount(ctx context.Context, handle string) (platform.Account, error) {
	var resp userResponse
	status, err := c.get(ctx, "/2/users/by/username/"+url.PathEscape(handle), nil, &resp)
	if err != nil {
		return platform.Account{}, err
	}
	if status == http.StatusNotFound || resp.Data == nil {
		return platform.Account{}, fmt.Errorf("%w: @%s%s", platform.ErrAccountNotFound, handle, describeErrors(resp.Errors))
	}

	return platform.Account{
		ID:     resp.Data.ID,
		Handle: resp.Data.Username,
		Name:   resp.Data.Name,
	}, nil
}

// ListRecentPosts returns the account's latest original posts in API order
func (c *Client) ListRecentPosts(ctx context.Context, accountID string, maxResults int) ([]platform.Post, error) {
	if maxResults < 1 {
		maxResults = 1
	}
	pageSize := min(max(maxResults, minPageSize), maxPageSize)

	query := url.Values{}
	query.Set("max_results", strconv.Itoa(pageSize))
	query.Set("exclude", "replies,retweets")
	query.Set("tweet.fields", tweetFields)

	var resp tweetsResponse
	status, err := c.get(ctx, "/2/users/"+url.PathEscape(accountID)+"/tweets", query, &resp)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}

	posts := make([]platform.Post, 0, min(len(resp.Data), maxResults))
	for _, t := range resp.Data {
		if len(posts) == maxResults {
			break
		}
		posts = append(posts, convertTweet(t))
	}
	return posts, nil
}

func convertTweet(t tweet) platform.Post {
	p := platform.Post{
		ID:        t.ID,
		Text:      t.Text,
		CreatedAt: t.CreatedAt,
		Metrics: types.Metrics{
			Likes:       t.PublicMetrics.LikeCount,
			Reposts:     t.PublicMetrics.RetweetCount,
			Replies:     t.PublicMetrics.ReplyCount,
			Quotes:      t.PublicMetrics.QuoteCount,
			Impressions: t.PublicMetrics.ImpressionCount,
		},
	}
	for _, h := range t.Entities.Hashtags {
		p.Hashtags = append(p.Hashtags, h.Tag)
	}
	for _, m := range t.Entities.Mentions {
		p.Mentions = append(p.Mentions, m.Username)
	}
	return p
}

// get performs an authenticated GET and decodes the JSON body into out.
// 404 is returned as a status, not an error; other non-2xx statuses are errors.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) (int, error) {
	if c.token == "" {
		return 0, platform.ErrMissingCredentials
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limiter: %w", err)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to call X API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return resp.StatusCode, nil
	}
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, fmt.Errorf("X API returned status %d: %.300s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to parse X API response: %w", err)
	}
	return resp.StatusCode, nil
}

func describeErrors(errs []apiError) string {
	if len(errs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		if e.Detail != "" {
			parts = append(parts, e.Detail)
		} else {
			parts = append(parts, e.Title)
		}
	}
	return " (" + strings.Join(parts, "; ") + ")"
}
