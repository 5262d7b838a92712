package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ibeckermayer/postlens/internal/apperr"
	"github.com/ibeckermayer/postlens/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Database.DSN = filepath.Join(dir, "postlens.db")
	cfg.Cache.Dir = filepath.Join(dir, "cache")
	cfg.Analysis.Provider = config.ProviderAnthropic
	cfg.Analysis.APIKey = "test-key"
	cfg.Analysis.Model = "claude-sonnet-4-5"
	cfg.Platform.BearerToken = "test-token"
	return cfg
}

func TestOpenAndClose(t *testing.T) {
	a, err := Open(context.Background(), testConfig(t), zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, a.Pipeline)
	require.NotNil(t, a.Metrics)

	require.NoError(t, a.Store.Bootstrap(context.Background()))
	assert.NoError(t, a.Ping(context.Background()))
	assert.NoError(t, a.Close())
}

func TestOpenWithRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Cache.Backend = config.CacheRedis
	cfg.Cache.RedisAddr = mr.Addr()

	a, err := Open(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, a.closers, 2, "store and redis client")
	assert.NoError(t, a.Close())
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Platform.Backend = "carrier-pigeon"

	a, err := Open(context.Background(), cfg, zap.NewNop())
	assert.Nil(t, a)
	assert.ErrorContains(t, err, "carrier-pigeon")
}

func TestOpenRequiresProviderKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.Analysis.APIKey = ""

	a, err := Open(context.Background(), cfg, zap.NewNop())
	assert.Nil(t, a)
	assert.ErrorContains(t, err, "api key")
}

func TestOpenLazyAnalysisSkipsProviderKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.Analysis.APIKey = ""

	a, err := Open(context.Background(), cfg, zap.NewNop(), WithLazyAnalysis())
	require.NoError(t, err)
	defer a.Close()
	require.NoError(t, a.Store.Bootstrap(context.Background()))

	_, err = a.Pipeline.LatestPost(context.Background(), "E404")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.NotContains(t, err.Error(), "api key")
}
