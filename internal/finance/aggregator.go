// Package finance gathers the financial disclosure context for a canonical id.
package finance

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ibeckermayer/postlens/internal/types"
)

// Category names, as used in logs and metrics
const (
	CategoryDonations    = "donations"
	CategoryAssets       = "assets"
	CategoryTransactions = "transactions"
	CategoryAssociations = "associations"
)

// Reader is the read side of the financial store. Each list is independent
// and returns an empty slice when the canonical id has no rows.
type Reader interface {
	ListDonations(ctx context.Context, canonicalID string) ([]types.Donation, error)
	ListAssets(ctx context.Context, canonicalID string) ([]types.Asset, error)
	ListTransactions(ctx context.Context, canonicalID string) ([]types.Transaction, error)
	ListAssociations(ctx context.Context, canonicalID string) ([]types.Association, error)
}

// Aggregator runs the four category lookups concurrently
type Aggregator struct {
	reader   Reader
	timeout  time.Duration
	logger   *zap.Logger
	degraded func(category string)
}

// New creates an aggregator. timeout bounds each lookup separately.
func New(reader Reader, timeout time.Duration, logger *zap.Logger) *Aggregator {
	return &Aggregator{reader: reader, timeout: timeout, logger: logger}
}

// OnDegraded registers a hook called once per category that fell back to empty
func (a *Aggregator) OnDegraded(fn func(category string)) {
	a.degraded = fn
}

// Gather never fails. A category whose lookup fails is returned empty and
// all four categories are always non-nil.
func (a *Aggregator) Gather(ctx context.Context, canonicalID string) types.FinancialContext {
	var (
		fc types.FinancialContext
		g  errgroup.Group
	)

	g.Go(func() error {
		fc.Donations = lookup(ctx, a, CategoryDonations, canonicalID, a.reader.ListDonations)
		return nil
	})
	g.Go(func() error {
		fc.Assets = lookup(ctx, a, CategoryAssets, canonicalID, a.reader.ListAssets)
		return nil
	})
	g.Go(func() error {
		fc.Transactions = lookup(ctx, a, CategoryTransactions, canonicalID, a.reader.ListTransactions)
		return nil
	})
	g.Go(func() error {
		fc.Associations = lookup(ctx, a, CategoryAssociations, canonicalID, a.reader.ListAssociations)
		return nil
	})
	_ = g.Wait()

	return fc
}

func lookup[T any](ctx context.Context, a *Aggregator, category, canonicalID string, list func(context.Context, string) ([]T, error)) (out []T) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			a.degrade(category, canonicalID, zap.Any("panic", r))
			out = []T{}
		}
	}()

	records, err := list(ctx, canonicalID)
	if err != nil {
		a.degrade(category, canonicalID, zap.Error(err))
		return []T{}
	}
	if records == nil {
		return []T{}
	}
	return records
}

func (a *Aggregator) degrade(category, canonicalID string, cause zap.Field) {
	a.logger.Warn("financial lookup failed, continuing without it",
		zap.String("category", category),
		zap.String("canonical_id", canonicalID),
		cause,
	)
	if a.degraded != nil {
		a.degraded(category)
	}
}
