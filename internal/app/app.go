// Package app wires the pipeline and its collaborators from configuration.
// Everything is constructed once by Open and released by Close.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ibeckermayer/postlens/internal/analyzer"
	"github.com/ibeckermayer/postlens/internal/auth"
	"github.com/ibeckermayer/postlens/internal/cache"
	"github.com/ibeckermayer/postlens/internal/config"
	"github.com/ibeckermayer/postlens/internal/debugdump"
	"github.com/ibeckermayer/postlens/internal/fetcher"
	"github.com/ibeckermayer/postlens/internal/finance"
	"github.com/ibeckermayer/postlens/internal/metrics"
	"github.com/ibeckermayer/postlens/internal/pipeline"
	"github.com/ibeckermayer/postlens/internal/platform"
	"github.com/ibeckermayer/postlens/internal/platform/xapi"
	"github.com/ibeckermayer/postlens/internal/platform/xweb"
	"github.com/ibeckermayer/postlens/internal/resolver"
	"github.com/ibeckermayer/postlens/internal/store"
)

// App holds the long-lived clients for one process
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Store    *store.Store
	Pipeline *pipeline.Orchestrator
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry

	closers []func() error
}

// Option adjusts how Open builds the application
type Option func(*openOptions)

type openOptions struct {
	lazyAnalysis bool
}

// WithLazyAnalysis defers building the analysis provider until the first
// analysis, for commands that only fetch posts
func WithLazyAnalysis() Option {
	return func(o *openOptions) { o.lazyAnalysis = true }
}

// Open connects the store, platform client, analysis provider and cache
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (a *App, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var o openOptions
	for _, opt := range opts {
		opt(&o)
	}

	a = &App{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			_ = a.Close()
			a = nil
		}
	}()

	cacheDir, err := cacheDir(cfg)
	if err != nil {
		return nil, err
	}

	a.Store, err = OpenStore(cfg.Database)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.Store.Close)

	client, err := newPlatformClient(cfg)
	if err != nil {
		return nil, err
	}

	var provider analyzer.Provider
	if o.lazyAnalysis {
		provider = analyzer.NewLazyProvider(cfg.Analysis)
	} else if provider, err = analyzer.NewProvider(ctx, cfg.Analysis); err != nil {
		return nil, err
	}

	cacheStore, err := a.openCacheStore(cfg.Cache, cacheDir)
	if err != nil {
		return nil, err
	}

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.Metrics = metrics.New(a.Registry)

	dumper := debugdump.New(cacheDir, cfg.Debug.DumpSteps)

	results := cache.New(cacheStore, cfg.Cache.TTL.Duration, cfg.Timeouts.Cache.Duration, logger.Named("cache"))
	results.OnLookup(a.Metrics.CacheLookup)

	financials := finance.New(a.Store, cfg.Timeouts.Finance.Duration, logger.Named("finance"))
	financials.OnDegraded(a.Metrics.Degraded)

	a.Pipeline = pipeline.New(pipeline.Deps{
		Resolver:     resolver.New(a.Store, cfg.Timeouts.Store.Duration),
		Fetcher:      fetcher.New(client, cfg.Platform.MaxResults, cfg.Timeouts.Platform.Duration, logger.Named("fetcher")),
		Posts:        a.Store,
		Financials:   financials,
		Analyzer:     analyzer.New(provider, cfg.Timeouts.Analysis.Duration, dumper, logger.Named("analyzer")),
		Cache:        results,
		StoreTimeout: cfg.Timeouts.Store.Duration,
		Dumper:       dumper,
		Metrics:      a.Metrics,
		Logger:       logger.Named("pipeline"),
	})

	logger.Info("postlens ready",
		zap.String("database", cfg.Database.Driver),
		zap.String("platform", cfg.Platform.Backend),
		zap.String("provider", provider.Name()),
		zap.String("model", provider.Model()),
		zap.String("cache", cfg.Cache.Backend),
		zap.Duration("ttl", cfg.Cache.TTL.Duration),
	)
	return a, nil
}

// Close releases every client opened by Open, in reverse order
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Ping checks the store is reachable
func (a *App) Ping(ctx context.Context) error {
	return a.Store.Ping(ctx)
}

// NewAuthManager returns the x.com login manager backed by the default cookie path
func NewAuthManager(logger *zap.Logger) (*auth.Manager, *auth.CookieStore, error) {
	path, err := auth.DefaultCookieStorePath()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get cookie store path: %w", err)
	}
	cookies := auth.NewCookieStore(path)
	return auth.NewManager(cookies, logger.Named("auth")), cookies, nil
}

func cacheDir(cfg *config.Config) (string, error) {
	if cfg.Cache.Dir != "" {
		return cfg.Cache.Dir, nil
	}
	return config.CacheDir()
}

// OpenStore connects to the configured database, defaulting sqlite to the config dir
func OpenStore(cfg config.DatabaseConfig) (*store.Store, error) {
	dsn := cfg.DSN
	if dsn == "" && cfg.Driver == config.DriverSQLite {
		p, err := config.DefaultDatabasePath()
		if err != nil {
			return nil, err
		}
		dsn = p
	}
	return store.Open(cfg.Driver, dsn)
}

func newPlatformClient(cfg *config.Config) (platform.Client, error) {
	switch cfg.Platform.Backend {
	case config.PlatformAPI:
		return xapi.New(cfg.Platform.BaseURL, cfg.Platform.BearerToken, cfg.Platform.RequestsPerMinute, cfg.Timeouts.Platform.Duration), nil
	case config.PlatformBrowser:
		path, err := auth.DefaultCookieStorePath()
		if err != nil {
			return nil, fmt.Errorf("failed to get cookie store path: %w", err)
		}
		return xweb.New(cfg.Platform.Headless, auth.NewCookieStore(path), cfg.Timeouts.Platform.Duration), nil
	default:
		return nil, fmt.Errorf("unknown platform backend: %s", cfg.Platform.Backend)
	}
}

func (a *App) openCacheStore(cfg config.CacheConfig, dir string) (cache.Store, error) {
	switch cfg.Backend {
	case config.CacheFile:
		return cache.NewFileStore(filepath.Join(dir, "results")), nil
	case config.CacheRedis:
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		a.closers = append(a.closers, client.Close)
		return cache.NewRedisStore(client, cfg.RedisPrefix), nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.Backend)
	}
}
