// Package xweb implements the content platform client by driving a logged-in
// browser session over x.com profile timelines. It is the fallback for setups
// without API access.
package xweb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/ibeckermayer/postlens/internal/browser"
	"github.com/ibeckermayer/postlens/internal/platform"
	"github.com/ibeckermayer/postlens/internal/types"
)

const baseURL = "https://x.com"

var errNoSession = errors.New("no stored X session; run `postlens login`")

// CookieSource supplies the stored X session cookies
type CookieSource interface {
	GetCookies() ([]*network.Cookie, error)
}

// Scraper reads profile timelines from x.com
type Scraper struct {
	headless bool
	cookies  CookieSource
	timeout  time.Duration
}

// New creates a new scraper
func New(headless bool, cookies CookieSource, timeout time.Duration) *Scraper {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Scraper{headless: headless, cookies: cookies, timeout: timeout}
}

// Name returns the platform name stored with posts
func (s *Scraper) Name() string {
	return "x"
}

// session opens a browser tab with the X cookies injected
func (s *Scraper) session(ctx context.Context) (context.Context, context.CancelFunc, error) {
	cookies, err := s.cookies.GetCookies()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", platform.ErrMissingCredentials, err)
	}
	if len(cookies) == 0 {
		return nil, nil, fmt.Errorf("%w: %v", platform.ErrMissingCredentials, errNoSession)
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, browser.Options(s.headless)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	browserCtx, timeoutCancel := context.WithTimeout(browserCtx, s.timeout)

	cancel := func() {
		timeoutCancel()
		browserCancel()
		allocCancel()
	}

	// Inject cookies before navigation
	if err := injectCookies(browserCtx, cookies); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("failed to inject cookies: %w", err)
	}
	return browserCtx, cancel, nil
}

// ResolveAccount loads the profile page; the handle doubles as the account id
func (s *Scraper) ResolveAccount(ctx context.Context, handle string) (platform.Account, error) {
	browserCtx, cancel, err := s.session(ctx)
	if err != nil {
		return platform.Account{}, err
	}
	defer cancel()

	var exists bool
	if err := chromedp.Run(browserCtx,
		chromedp.Navigate(baseURL+"/"+handle),
		chromedp.WaitVisible(WaitForProfile, chromedp.ByQuery),
		chromedp.Evaluate(`document.querySelector('`+ProfileName+`') !== null`, &exists),
	); err != nil {
		return platform.Account{}, fmt.Errorf("failed to load profile: %w", err)
	}
	if !exists {
		return platform.Account{}, fmt.Errorf("%w: @%s", platform.ErrAccountNotFound, handle)
	}

	return platform.Account{ID: handle, Handle: handle}, nil
}

// ListRecentPosts returns the first original posts in timeline order.
// Pinned posts, reposts and replies are dropped during extraction since the
// web timeline has no server-side filter.
func (s *Scraper) ListRecentPosts(ctx context.Context, accountID string, maxResults int) ([]platform.Post, error) {
	browserCtx, cancel, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	if err := chromedp.Run(browserCtx,
		chromedp.Navigate(baseURL+"/"+accountID),
		chromedp.WaitVisible(WaitForProfile, chromedp.ByQuery),
	); err != nil {
		return nil, fmt.Errorf("failed to load timeline: %w", err)
	}

	posts, err := s.extractPosts(browserCtx, accountID, maxResults)
	if err != nil {
		return nil, fmt.Errorf("failed to extract posts: %w", err)
	}
	return posts, nil
}

// injectCookies sets cookies in the browser context
func injectCookies(ctx context.Context, cookies []*network.Cookie) error {
	return chromedp.Run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			for _, c := range cookies {
				err := network.SetCookie(c.Name, c.Value).
					WithDomain(c.Domain).
					WithPath(c.Path).
					WithSecure(c.Secure).
					WithHTTPOnly(c.HTTPOnly).
					WithSameSite(c.SameSite).
					Do(ctx)
				if err != nil {
					return err
				}
			}
			return nil
		}),
	)
}

// extractPosts scrolls the timeline until maxResults eligible posts are seen
func (s *Scraper) extractPosts(ctx context.Context, handle string, maxResults int) ([]platform.Post, error) {
	var posts []platform.Post
	seenIDs := make(map[string]bool)
	maxScrollAttempts := maxResults + 2

	for attempt := 0; len(posts) < maxResults && attempt < maxScrollAttempts; attempt++ {
		var raw []rawPost
		if err := chromedp.Run(ctx, chromedp.Evaluate(extractJS, &raw)); err != nil {
			return nil, fmt.Errorf("failed to extract posts from DOM: %w", err)
		}

		for _, rp := range raw {
			if seenIDs[rp.ID] {
				continue
			}
			seenIDs[rp.ID] = true
			if !rp.eligible(handle) {
				continue
			}
			posts = append(posts, rp.toPost())
		}

		if err := chromedp.Run(ctx, chromedp.Evaluate(`window.scrollBy(0, window.innerHeight)`, nil)); err != nil {
			return nil, err
		}

		// Wait for new content to load
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(500+attempt*100) * time.Millisecond):
		}
	}

	if len(posts) > maxResults {
		posts = posts[:maxResults]
	}
	return posts, nil
}

// rawPost represents the raw data extracted from the DOM via JavaScript
type rawPost struct {
	ID           string `json:"id"`
	AuthorHandle string `json:"authorHandle"`
	Content      string `json:"content"`
	Timestamp    string `json:"timestamp"`
	Likes        string `json:"likes"`
	Retweets     string `json:"retweets"`
	Replies      string `json:"replies"`
	SocialCtx    string `json:"socialContext"`
	IsReply      bool   `json:"isReply"`
}

// eligible drops reposts, pinned posts, replies and posts by other authors
func (rp rawPost) eligible(handle string) bool {
	if rp.ID == "" || rp.IsReply {
		return false
	}
	ctx := strings.ToLower(rp.SocialCtx)
	if strings.Contains(ctx, "repost") || strings.Contains(ctx, "retweeted") || strings.Contains(ctx, "pinned") {
		return false
	}
	return rp.AuthorHandle == "" || strings.EqualFold(rp.AuthorHandle, handle)
}

func (rp rawPost) toPost() platform.Post {
	var created time.Time
	if rp.Timestamp != "" {
		if parsed, err := time.Parse(time.RFC3339, rp.Timestamp); err == nil {
			created = parsed
		}
	}

	hashtags, mentions := ExtractTags(rp.Content)
	return platform.Post{
		ID:        rp.ID,
		Text:      rp.Content,
		CreatedAt: created,
		Metrics: types.Metrics{
			Likes:   parseMetric(rp.Likes),
			Reposts: parseMetric(rp.Retweets),
			Replies: parseMetric(rp.Replies),
		},
		Hashtags: hashtags,
		Mentions: mentions,
	}
}

// JavaScript to extract tweet data from the DOM, in page order
const extractJS = `
	(function() {
		const tweets = document.querySelectorAll('article[data-testid="tweet"]');
		const results = [];

		tweets.forEach(el => {
			try {
				const statusLink = el.querySelector('a[href*="/status/"]');
				const id = statusLink?.href?.match(/status\/(\d+)/)?.[1];
				if (!id) return;

				let authorHandle = '';
				const handleLink = el.querySelector('[data-testid="User-Name"] a[href^="/"]');
				if (handleLink) {
					authorHandle = handleLink.getAttribute('href')?.replace('/', '') || '';
				}

				const content = el.querySelector('[data-testid="tweetText"]')?.textContent || '';
				const timestamp = el.querySelector('time')?.getAttribute('datetime') || '';

				const getMetric = (testId) => {
					const metricEl = el.querySelector('[data-testid="' + testId + '"]');
					if (!metricEl) return '0';
					const ariaLabel = metricEl.getAttribute('aria-label');
					if (ariaLabel) {
						const match = ariaLabel.match(/^([\d,.]+[KkMm]?)/);
						return match ? match[1] : '0';
					}
					return metricEl.textContent?.trim() || '0';
				};

				results.push({
					id,
					authorHandle,
					content,
					timestamp,
					likes: getMetric('like'),
					retweets: getMetric('retweet'),
					replies: getMetric('reply'),
					socialContext: el.querySelector('[data-testid="socialContext"]')?.textContent || '',
					isReply: el.textContent?.includes('Replying to') || false
				});
			} catch (e) {
				console.error('Error extracting tweet:', e);
			}
		});

		return results;
	})()
`

// parseMetric converts abbreviated metric strings like "1.2K", "5.7M", or "423" to integers
func parseMetric(s string) int {
	if s == "" {
		return 0
	}

	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")

	multiplier := 1.0
	if strings.HasSuffix(strings.ToUpper(s), "K") {
		multiplier = 1000
		s = s[:len(s)-1]
	} else if strings.HasSuffix(strings.ToUpper(s), "M") {
		multiplier = 1000000
		s = s[:len(s)-1]
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int(value * multiplier)
}

var (
	hashtagRe = regexp.MustCompile(`(?:^|[^\p{L}\p{N}_&])#([\p{L}\p{N}_]+)`)
	mentionRe = regexp.MustCompile(`(?:^|[^\p{L}\p{N}_])@([A-Za-z0-9_]{1,15})`)
)

// ExtractTags pulls hashtags and mentions out of post text, in order of appearance
func ExtractTags(text string) (hashtags, mentions []string) {
	for _, m := range hashtagRe.FindAllStringSubmatch(text, -1) {
		hashtags = append(hashtags, m[1])
	}
	for _, m := range mentionRe.FindAllStringSubmatch(text, -1) {
		mentions = append(mentions, m[1])
	}
	return hashtags, mentions
}

var _ platform.Client = (*Scraper)(nil)
