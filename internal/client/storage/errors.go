package storage

import "errors"

// Common client storage errors
var (
	// ErrListNotFound indicates that no snapshot exists for the list
	ErrListNotFound = errors.New("list not found")

	// ErrMetadataNotFound indicates that metadata record was not found
	ErrMetadataNotFound = errors.New("metadata record not found")

	// ErrQueueEntryNotFound indicates that sync queue entry was not found
	ErrQueueEntryNotFound = errors.New("sync queue entry not found")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")
)
