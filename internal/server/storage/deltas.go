package storage

import (
	"context"

	"github.com/iudanet/listsync/pkg/api"
)

// DeltaStorage defines interface for document deltas persistence
type DeltaStorage interface {
	// InsertDelta stores delta and stamps it with a server timestamp that is
	// strictly greater than any timestamp issued before.
	// Delta with already known ID is not stored again: the stored copy is
	// returned with duplicate = true.
	InsertDelta(ctx context.Context, delta api.Delta) (stored *api.Delta, duplicate bool, err error)

	// GetDeltasSince retrieves list deltas with timestamp > since ordered by
	// timestamp. Deltas of excludeClientID are skipped when it is not empty.
	// Returns empty slice if no deltas found
	GetDeltasSince(ctx context.Context, listID string, since int64, excludeClientID string) ([]api.Delta, error)
}
