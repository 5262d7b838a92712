package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ibeckermayer/postlens/internal/types"
)

// LookupEntity returns the entity's canonical id and social handle.
// A NULL handle comes back as an empty string.
func (s *Store) LookupEntity(ctx context.Context, entityID string) (types.Entity, error) {
	var e types.Entity
	var handle sql.NullString

	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, canonical_id, social_handle
		FROM entities
		WHERE id = ?
	`), entityID).Scan(&e.ID, &e.CanonicalID, &handle)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Entity{}, ErrEntityNotFound
	}
	if err != nil {
		return types.Entity{}, err
	}

	e.SocialHandle = handle.String
	return e, nil
}
