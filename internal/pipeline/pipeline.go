// Package pipeline runs the entity to analysis sequence:
// cache check, resolve, fetch, persist, financials, prompt, analyze, cache write.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ibeckermayer/postlens/internal/analyzer"
	"github.com/ibeckermayer/postlens/internal/apperr"
	"github.com/ibeckermayer/postlens/internal/debugdump"
	"github.com/ibeckermayer/postlens/internal/metrics"
	"github.com/ibeckermayer/postlens/internal/store"
	"github.com/ibeckermayer/postlens/internal/types"
)

// Operation names used in logs and metrics
const (
	OpAnalyze    = "analyze"
	OpLatestPost = "latest_post"
)

// Resolver maps an entity id to its handle and canonical id
type Resolver interface {
	Resolve(ctx context.Context, entityID string) (types.Entity, error)
}

type Fetcher interface {
	Latest(ctx context.Context, entity types.Entity) (*types.SocialPost, error)
}

type PostWriter interface {
	InsertPostIfAbsent(ctx context.Context, canonicalID string, p types.SocialPost) (store.InsertOutcome, error)
}

type Aggregator interface {
	Gather(ctx context.Context, canonicalID string) types.FinancialContext
}

type Analyzer interface {
	Analyze(ctx context.Context, prompt string) (string, error)
}

// Cache is the TTL result cache; it absorbs its own failures
type Cache interface {
	Get(ctx context.Context, entityID string) (*types.AnalysisResult, bool)
	Put(ctx context.Context, result *types.AnalysisResult)
}

// Deps are the collaborators an Orchestrator is built from
type Deps struct {
	Resolver     Resolver
	Fetcher      Fetcher
	Posts        PostWriter
	Financials   Aggregator
	Analyzer     Analyzer
	Cache        Cache
	StoreTimeout time.Duration
	Dumper       *debugdump.Dumper // optional
	Metrics      *metrics.Metrics  // optional
	Logger       *zap.Logger
}

// Orchestrator sequences the stages and stops at the first failure.
// Concurrent Analyze calls for the same entity share one run.
type Orchestrator struct {
	Deps
	now    func() time.Time
	flight singleflight.Group
}

// New creates an orchestrator
func New(deps Deps) *Orchestrator {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Orchestrator{Deps: deps, now: time.Now}
}

// Analyze returns the cached analysis for entityID when fresh, otherwise runs
// the full pipeline. Every failure is an *apperr.Error, except caller
// cancellation which returns the context's error.
func (o *Orchestrator) Analyze(ctx context.Context, entityID string) (*types.AnalysisResult, error) {
	start := o.now()

	// The shared run is detached from any single caller; each stage carries
	// its own timeout.
	ch := o.flight.DoChan(entityID, func() (any, error) {
		return o.analyze(context.WithoutCancel(ctx), entityID)
	})

	var (
		result *types.AnalysisResult
		err    error
	)
	select {
	case <-ctx.Done():
		err = ctx.Err()
	case r := <-ch:
		err = r.Err
		if err == nil {
			result = r.Val.(*types.AnalysisResult)
		}
		if r.Shared && o.Metrics != nil {
			o.Metrics.SharedRuns.Inc()
		}
	}

	o.observe(OpAnalyze, start, err)
	return result, err
}

func (o *Orchestrator) analyze(ctx context.Context, entityID string) (*types.AnalysisResult, error) {
	log := o.Logger.With(zap.String("run_id", uuid.NewString()), zap.String("entity_id", entityID))

	if cached, ok := o.Cache.Get(ctx, entityID); ok {
		log.Debug("cache hit", zap.Time("generated_at", cached.GeneratedAt))
		return cached, nil
	}

	entity, err := o.Resolver.Resolve(ctx, entityID)
	if err != nil {
		return nil, o.fail(log, "resolve", err)
	}

	post, err := o.fetchAndPersist(ctx, entity, log)
	if err != nil {
		return nil, err
	}

	fin := o.Financials.Gather(ctx, entity.CanonicalID)
	o.dumpStep(log, debugdump.StepFinancials, entityID, fin)

	prompt := analyzer.Compose(*post, fin)
	if o.Dumper.Enabled() {
		if _, err := o.Dumper.SaveText(debugdump.StepPrompt, entityID, prompt, ".md"); err != nil {
			log.Warn("failed to dump prompt", zap.Error(err))
		}
	}

	raw, err := o.Analyzer.Analyze(ctx, prompt)
	if err != nil {
		return nil, o.fail(log, "analyze", err)
	}

	result := &types.AnalysisResult{
		EntityID:         entityID,
		Post:             *post,
		FinancialContext: fin,
		RawAnalysisText:  raw,
		GeneratedAt:      o.now().UTC(),
	}
	if report, err := analyzer.ParseReport(raw); err != nil {
		log.Warn("analysis text is not fully structured", zap.Error(err))
	} else {
		result.Report = report
	}

	o.Cache.Put(ctx, result)

	log.Info("analysis complete",
		zap.String("post_id", post.PostID),
		zap.Int("donations", len(fin.Donations)),
		zap.Int("assets", len(fin.Assets)),
		zap.Int("transactions", len(fin.Transactions)),
		zap.Int("associations", len(fin.Associations)),
	)
	return result, nil
}

// LatestPost runs the resolve, fetch and persist stages on their own.
// It returns (nil, nil) when the entity has no eligible post.
func (o *Orchestrator) LatestPost(ctx context.Context, entityID string) (*types.SocialPost, error) {
	start := o.now()
	log := o.Logger.With(zap.String("run_id", uuid.NewString()), zap.String("entity_id", entityID))

	post, err := o.latestPost(ctx, entityID, log)
	if errors.Is(err, apperr.ErrNoContent) {
		o.observe(OpLatestPost, start, nil)
		return nil, nil
	}
	o.observe(OpLatestPost, start, err)
	return post, err
}

func (o *Orchestrator) latestPost(ctx context.Context, entityID string, log *zap.Logger) (*types.SocialPost, error) {
	entity, err := o.Resolver.Resolve(ctx, entityID)
	if err != nil {
		return nil, o.fail(log, "resolve", err)
	}
	return o.fetchAndPersist(ctx, entity, log)
}

// fetchAndPersist returns the post only once it is durably stored
func (o *Orchestrator) fetchAndPersist(ctx context.Context, entity types.Entity, log *zap.Logger) (*types.SocialPost, error) {
	post, err := o.Fetcher.Latest(ctx, entity)
	if err != nil {
		return nil, o.fail(log, "fetch", err)
	}
	o.dumpStep(log, debugdump.StepPost, entity.ID, post)

	writeCtx := ctx
	if o.StoreTimeout > 0 {
		var cancel context.CancelFunc
		writeCtx, cancel = context.WithTimeout(ctx, o.StoreTimeout)
		defer cancel()
	}

	outcome, err := o.Posts.InsertPostIfAbsent(writeCtx, entity.CanonicalID, *post)
	if err != nil {
		return nil, o.fail(log, "persist", apperr.Wrap(apperr.PersistenceError, err, "store post %s/%s", post.Platform, post.PostID))
	}
	log.Debug("post stored", zap.String("post_id", post.PostID), zap.Stringer("outcome", outcome))
	return post, nil
}

// stageKinds types errors that reach the orchestrator without a kind
var stageKinds = map[string]apperr.Kind{
	"resolve": apperr.PersistenceError,
	"fetch":   apperr.UpstreamUnavailable,
	"persist": apperr.PersistenceError,
	"analyze": apperr.AnalysisBackendError,
}

func (o *Orchestrator) fail(log *zap.Logger, stage string, err error) error {
	kind := apperr.KindOf(err)
	if kind == "" {
		kind = stageKinds[stage]
		err = apperr.Wrap(kind, err, "%s failed", stage)
	}
	log.Info("pipeline stopped", zap.String("stage", stage), zap.String("kind", string(kind)), zap.Error(err))
	return err
}

func (o *Orchestrator) dumpStep(log *zap.Logger, step debugdump.StepName, key string, data any) {
	if !o.Dumper.Enabled() {
		return
	}
	if _, err := o.Dumper.SaveStep(step, key, data); err != nil {
		log.Warn("failed to dump step", zap.String("step", string(step)), zap.Error(err))
	}
}

func (o *Orchestrator) observe(op string, start time.Time, err error) {
	if o.Metrics == nil {
		return
	}
	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = string(apperr.KindOf(err))
		if outcome == "" {
			outcome = "canceled"
		}
	}
	o.Metrics.RunsTotal.WithLabelValues(op, outcome).Inc()
	o.Metrics.RunDuration.WithLabelValues(op).Observe(o.now().Sub(start).Seconds())
}
