package boltdb

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/iudanet/listsync/internal/client/storage"
	"github.com/iudanet/listsync/internal/models"
)

// GetQueueEntry retrieves a sync queue entry by ID
func (s *Storage) GetQueueEntry(ctx context.Context, id string) (*models.QueueEntry, error) {
	entry := &models.QueueEntry{}
	if err := s.get(bucketSyncQueue, id, entry, storage.ErrQueueEntryNotFound); err != nil {
		return nil, err
	}
	return entry, nil
}

// GetAllQueueEntries returns all queue entries ordered by enqueue time
func (s *Storage) GetAllQueueEntries(ctx context.Context) ([]*models.QueueEntry, error) {
	var entries []*models.QueueEntry

	err := s.forEach(bucketSyncQueue, func(v []byte) error {
		var entry models.QueueEntry
		if err := json.Unmarshal(v, &entry); err != nil {
			return fmt.Errorf("failed to unmarshal queue entry: %w", err)
		}
		entries = append(entries, &entry)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get queue entries: %w", err)
	}

	// Ключи - UUID, поэтому порядок bucket не совпадает с порядком постановки
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].EnqueuedAt.Equal(entries[j].EnqueuedAt) {
			return entries[i].EnqueuedAt.Before(entries[j].EnqueuedAt)
		}
		return entries[i].ID < entries[j].ID
	})

	return entries, nil
}

// SaveQueueEntry stores or replaces a queue entry
func (s *Storage) SaveQueueEntry(ctx context.Context, entry *models.QueueEntry) error {
	if entry.ID == "" {
		return fmt.Errorf("queue entry id is empty")
	}
	return s.put(bucketSyncQueue, entry.ID, entry)
}

// DeleteQueueEntry removes a queue entry
func (s *Storage) DeleteQueueEntry(ctx context.Context, id string) error {
	return s.delete(bucketSyncQueue, id)
}

// ClearQueue removes all queue entries
func (s *Storage) ClearQueue(ctx context.Context) error {
	return s.clear(bucketSyncQueue)
}
