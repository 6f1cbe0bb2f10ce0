package storage

import (
	"context"

	"github.com/iudanet/listsync/internal/models"
)

// MetadataStorage defines interface for small sync metadata records:
// client_id, sync_state_<list>, applied_remote_updates_<list>, last_sync_<list>
type MetadataStorage interface {
	// GetMetadata returns the record for key
	// Returns ErrMetadataNotFound if the key does not exist
	GetMetadata(ctx context.Context, key string) (*models.MetadataRecord, error)

	// GetAllMetadata returns all records
	GetAllMetadata(ctx context.Context) ([]*models.MetadataRecord, error)

	// SaveMetadata stores or replaces the record (upsert)
	SaveMetadata(ctx context.Context, record *models.MetadataRecord) error

	// DeleteMetadata removes the record; deleting a missing key is not an error
	DeleteMetadata(ctx context.Context, key string) error

	// ClearMetadata removes all records (sign-out)
	ClearMetadata(ctx context.Context) error
}
