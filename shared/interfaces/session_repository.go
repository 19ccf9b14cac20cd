package interfaces

import (
	"context"
	"time"

	"storefront/shared/models"
)

// SessionRepository is the registry of live refresh sessions, keyed by
// (userID, tokenID). Existence of a record is the only proof that a refresh
// token is still honorable.
//
// Every method talks to the shared store; there is no in-process caching.
// Backend failures are returned wrapped with models.ErrStoreUnavailable.
type SessionRepository interface {
	// Save upserts the record and sets its remaining lifetime to exactly ttl.
	Save(ctx context.Context, userID, tokenID string, meta models.SessionMetadata, ttl time.Duration) error

	// Get returns the stored metadata, or found=false when there is no record.
	Get(ctx context.Context, userID, tokenID string) (meta *models.SessionMetadata, found bool, err error)

	// Delete removes one record and reports whether it existed. Deleting an
	// absent record is not an error. Of several concurrent deletes of one
	// record at most one reports removed=true.
	Delete(ctx context.Context, userID, tokenID string) (removed bool, err error)

	// DeleteAll removes every record of the user and returns how many were removed.
	DeleteAll(ctx context.Context, userID string) (int64, error)

	// List returns the user's live sessions.
	List(ctx context.Context, userID string) ([]models.SessionRecord, error)
}
