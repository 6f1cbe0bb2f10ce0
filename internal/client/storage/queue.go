package storage

import (
	"context"

	"github.com/iudanet/listsync/internal/models"
)

// QueueStorage - durable outbox (таблица sync_queue)
type QueueStorage interface {
	// GetQueueEntry returns an entry by id
	// Returns ErrQueueEntryNotFound if the entry does not exist
	GetQueueEntry(ctx context.Context, id string) (*models.QueueEntry, error)

	// GetAllQueueEntries returns all entries ordered by enqueue time
	GetAllQueueEntries(ctx context.Context) ([]*models.QueueEntry, error)

	// SaveQueueEntry stores or replaces an entry (upsert)
	SaveQueueEntry(ctx context.Context, entry *models.QueueEntry) error

	// DeleteQueueEntry removes an entry; deleting a missing entry is not an error
	DeleteQueueEntry(ctx context.Context, id string) error

	// ClearQueue removes all entries (sign-out)
	ClearQueue(ctx context.Context) error
}
