package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ibeckermayer/postlens/internal/analyzer"
	"github.com/ibeckermayer/postlens/internal/analyzer/providers"
	"github.com/ibeckermayer/postlens/internal/apperr"
	"github.com/ibeckermayer/postlens/internal/cache"
	"github.com/ibeckermayer/postlens/internal/fetcher"
	"github.com/ibeckermayer/postlens/internal/finance"
	"github.com/ibeckermayer/postlens/internal/metrics"
	"github.com/ibeckermayer/postlens/internal/platform"
	"github.com/ibeckermayer/postlens/internal/resolver"
	"github.com/ibeckermayer/postlens/internal/store"
	"github.com/ibeckermayer/postlens/internal/types"
)

const sevenSections = `## 1. Classification
Sentiment: neutral
Policy position.

## 2. Summary
Calls for border enforcement.

## 3. Evaluation
No figures given.

## 4. Financial Connections
One PAC donation on record.

## 5. Legal Relevance
No legal relevance identified.

## 6. Supportive Reply
Agreed.

## 7. Critical Reply
What about the PAC donation?
`

// countingPlatform serves one eligible post and counts calls
type countingPlatform struct {
	posts   []platform.Post
	resolve atomic.Int32
	list    atomic.Int32
}

func (c *countingPlatform) Name() string { return "x" }

func (c *countingPlatform) ResolveAccount(ctx context.Context, handle string) (platform.Account, error) {
	c.resolve.Add(1)
	if handle != "abc" {
		return platform.Account{}, platform.ErrAccountNotFound
	}
	return platform.Account{ID: "42", Handle: handle}, nil
}

func (c *countingPlatform) ListRecentPosts(ctx context.Context, accountID string, maxResults int) ([]platform.Post, error) {
	c.list.Add(1)
	return c.posts, nil
}

// countingProvider returns fixed text, optionally waiting on release first
type countingProvider struct {
	text    string
	calls   atomic.Int32
	release chan struct{}
}

func (p *countingProvider) Name() string  { return "fake" }
func (p *countingProvider) Model() string { return "fake-1" }

func (p *countingProvider) Complete(ctx context.Context, prompt string) (providers.Completion, error) {
	p.calls.Add(1)
	if p.release != nil {
		select {
		case <-p.release:
		case <-ctx.Done():
			return providers.Completion{}, ctx.Err()
		}
	}
	return providers.Completion{Parts: []string{p.text}}, nil
}

type harness struct {
	orch     *Orchestrator
	platform *countingPlatform
	provider *countingProvider
	seed     *sql.DB
	metrics  *metrics.Metrics
	now      time.Time
	mu       sync.Mutex
}

func (h *harness) setNow(t time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.now = t
}

func (h *harness) clock() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.now
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "postlens.db")
	st, err := store.Open(store.DriverSQLite, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Bootstrap(ctx))

	seed, err := sql.Open(store.DriverSQLite, "file:"+path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = seed.Close() })

	_, err = seed.Exec(`INSERT INTO entities (id, canonical_id, social_handle) VALUES
		('E1', 'C1', '@abc'), ('E2', 'C2', NULL)`)
	require.NoError(t, err)
	_, err = seed.Exec(`INSERT INTO donations (canonical_id, contributor, recipient, amount, date)
		VALUES ('C1', 'PAC A', 'Campaign', 2500, '2024-10-01')`)
	require.NoError(t, err)

	h := &harness{
		platform: &countingPlatform{posts: []platform.Post{{
			ID:        "P1",
			Text:      "border security is national security",
			CreatedAt: time.Date(2025, 3, 1, 14, 0, 0, 0, time.UTC),
			Metrics:   types.Metrics{Likes: 10},
		}}},
		provider: &countingProvider{text: sevenSections},
		seed:     seed,
		metrics:  metrics.New(prometheus.NewRegistry()),
		now:      time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC),
	}

	logger := zap.NewNop()
	results := cache.New(cache.NewFileStore(t.TempDir()), time.Hour, time.Second, logger).WithClock(h.clock)

	h.orch = New(Deps{
		Resolver:     resolver.New(st, time.Second),
		Fetcher:      fetcher.New(h.platform, 5, time.Second, logger),
		Posts:        st,
		Financials:   finance.New(st, time.Second, logger),
		Analyzer:     analyzer.New(h.provider, time.Second, nil, logger),
		Cache:        results,
		StoreTimeout: time.Second,
		Metrics:      h.metrics,
		Logger:       logger,
	})
	h.orch.now = h.clock
	return h
}

func (h *harness) storedPosts(t *testing.T) int {
	t.Helper()
	var n int
	require.NoError(t, h.seed.QueryRow(`SELECT COUNT(*) FROM social_posts`).Scan(&n))
	return n
}

func TestAnalyzeEndToEndThenCacheHit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.orch.Analyze(ctx, "E1")
	require.NoError(t, err)

	for _, heading := range analyzer.Headings {
		assert.Contains(t, first.RawAnalysisText, heading)
	}
	assert.Equal(t, "P1", first.Post.PostID)
	assert.Equal(t, 10, first.Post.Metrics.Likes)
	assert.Len(t, first.FinancialContext.Donations, 1)
	assert.Empty(t, first.FinancialContext.Assets)
	assert.Empty(t, first.FinancialContext.Transactions)
	assert.Empty(t, first.FinancialContext.Associations)
	require.NotNil(t, first.Report)
	assert.Equal(t, types.SentimentNeutral, first.Report.Sentiment)
	assert.Equal(t, 1, h.storedPosts(t))

	h.setNow(h.clock().Add(time.Minute))
	second, err := h.orch.Analyze(ctx, "E1")
	require.NoError(t, err)
	assert.True(t, second.GeneratedAt.Equal(first.GeneratedAt))
	assert.Equal(t, first.RawAnalysisText, second.RawAnalysisText)
	assert.Equal(t, first.Post.PostID, second.Post.PostID)
	assert.Equal(t, first.Report, second.Report)
	assert.Len(t, second.FinancialContext.Donations, 1)
	assert.EqualValues(t, 1, h.platform.resolve.Load(), "no new platform calls on a hit")
	assert.EqualValues(t, 1, h.platform.list.Load())
	assert.EqualValues(t, 1, h.provider.calls.Load(), "no new analysis calls on a hit")

	assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.RunsTotal.WithLabelValues(OpAnalyze, metrics.OutcomeOK)), 0)
}

func TestAnalyzeRecomputesAfterTTL(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	t0 := h.clock()

	first, err := h.orch.Analyze(ctx, "E1")
	require.NoError(t, err)
	assert.True(t, first.GeneratedAt.Equal(t0))

	h.setNow(t0.Add(time.Hour + time.Second))
	second, err := h.orch.Analyze(ctx, "E1")
	require.NoError(t, err)
	assert.True(t, second.GeneratedAt.After(first.GeneratedAt))
	assert.EqualValues(t, 2, h.provider.calls.Load())
	assert.Equal(t, 1, h.storedPosts(t), "re-ingesting the same post is a no-op")
}

func TestAnalyzeMissingHandleFailsFast(t *testing.T) {
	h := newHarness(t)

	result, err := h.orch.Analyze(context.Background(), "E2")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Zero(t, h.platform.resolve.Load())
	assert.Zero(t, h.platform.list.Load())
	assert.Zero(t, h.provider.calls.Load())

	_, err = h.orch.Analyze(context.Background(), "NOPE")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.InDelta(t, 2, testutil.ToFloat64(h.metrics.RunsTotal.WithLabelValues(OpAnalyze, string(apperr.NotFound))), 0)
}

func TestAnalyzeNoContentSkipsEverythingAfterFetch(t *testing.T) {
	h := newHarness(t)
	h.platform.posts = nil

	_, err := h.orch.Analyze(context.Background(), "E1")
	assert.ErrorIs(t, err, apperr.ErrNoContent)
	assert.Zero(t, h.provider.calls.Load())
	assert.Equal(t, 0, h.storedPosts(t))

	// nothing was cached
	h.platform.posts = []platform.Post{{ID: "P9", Text: "new"}}
	_, err = h.orch.Analyze(context.Background(), "E1")
	require.NoError(t, err)
}

func TestAnalyzeCollapsesConcurrentCalls(t *testing.T) {
	h := newHarness(t)
	h.provider.release = make(chan struct{})

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*types.AnalysisResult, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = h.orch.Analyze(context.Background(), "E1")
		}(i)
	}

	require.Eventually(t, func() bool { return h.provider.calls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	// let the remaining callers reach the in-flight run before it finishes
	time.Sleep(50 * time.Millisecond)
	close(h.provider.release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.True(t, results[i].GeneratedAt.Equal(results[0].GeneratedAt))
	}
	assert.EqualValues(t, 1, h.provider.calls.Load())
	assert.EqualValues(t, 1, h.platform.list.Load())
}

func TestAnalyzeCallerCancellation(t *testing.T) {
	h := newHarness(t)
	h.provider.release = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := h.orch.Analyze(ctx, "E1")
		done <- err
	}()

	require.Eventually(t, func() bool { return h.provider.calls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	// the detached run still completes and fills the cache
	close(h.provider.release)
	require.Eventually(t, func() bool {
		r, err := h.orch.Analyze(context.Background(), "E1")
		return err == nil && r != nil
	}, 2*time.Second, 10*time.Millisecond)
	assert.EqualValues(t, 1, h.provider.calls.Load())
}

type brokenWriter struct{}

func (brokenWriter) InsertPostIfAbsent(ctx context.Context, canonicalID string, p types.SocialPost) (store.InsertOutcome, error) {
	return 0, errors.New("attempt to write a readonly database")
}

func TestPersistenceFailureWithholdsPost(t *testing.T) {
	h := newHarness(t)
	h.orch.Posts = brokenWriter{}

	post, err := h.orch.LatestPost(context.Background(), "E1")
	assert.Nil(t, post, "the fetched post is not returned when it could not be stored")
	assert.ErrorIs(t, err, apperr.ErrPersistence)

	result, err := h.orch.Analyze(context.Background(), "E1")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperr.ErrPersistence)
	assert.Zero(t, h.provider.calls.Load())
}

func TestLatestPost(t *testing.T) {
	h := newHarness(t)

	post, err := h.orch.LatestPost(context.Background(), "E1")
	require.NoError(t, err)
	assert.Equal(t, "P1", post.PostID)
	assert.Equal(t, "E1", post.EntityID)
	assert.Equal(t, 1, h.storedPosts(t))
	assert.Zero(t, h.provider.calls.Load())

	h.platform.posts = nil
	post, err = h.orch.LatestPost(context.Background(), "E1")
	assert.NoError(t, err)
	assert.Nil(t, post, "no eligible post is not an error")
}

func TestUnstructuredAnalysisStillSucceeds(t *testing.T) {
	h := newHarness(t)
	h.provider.text = strings.Replace(sevenSections, "## 7. Critical Reply", "Critical:", 1)

	result, err := h.orch.Analyze(context.Background(), "E1")
	require.NoError(t, err)
	assert.Nil(t, result.Report)
	assert.Contains(t, result.RawAnalysisText, "Critical:")
}
