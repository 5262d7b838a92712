// Package resolver maps an entity id to its social handle and canonical id.
package resolver

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ibeckermayer/postlens/internal/apperr"
	"github.com/ibeckermayer/postlens/internal/store"
	"github.com/ibeckermayer/postlens/internal/types"
)

// EntityReader is the read side of the entity store
type EntityReader interface {
	LookupEntity(ctx context.Context, entityID string) (types.Entity, error)
}

// Resolver looks up entities with a bounded timeout
type Resolver struct {
	entities EntityReader
	timeout  time.Duration
}

// New creates a resolver. A zero timeout means no extra deadline.
func New(entities EntityReader, timeout time.Duration) *Resolver {
	return &Resolver{entities: entities, timeout: timeout}
}

// Resolve returns the entity with a normalized handle (no leading @).
// Missing entities and entities without a handle are NotFound; any other
// store failure is a PersistenceError.
func (r *Resolver) Resolve(ctx context.Context, entityID string) (types.Entity, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	e, err := r.entities.LookupEntity(ctx, entityID)
	if errors.Is(err, store.ErrEntityNotFound) {
		return types.Entity{}, apperr.New(apperr.NotFound, "entity %q does not exist", entityID)
	}
	if err != nil {
		return types.Entity{}, apperr.Wrap(apperr.PersistenceError, err, "look up entity %q", entityID)
	}

	e.SocialHandle = NormalizeHandle(e.SocialHandle)
	if e.SocialHandle == "" {
		return types.Entity{}, apperr.New(apperr.NotFound, "entity %q has no social handle", entityID)
	}
	return e, nil
}

// NormalizeHandle trims whitespace and a leading @
func NormalizeHandle(handle string) string {
	return strings.TrimPrefix(strings.TrimSpace(handle), "@")
}
