package storage

import "errors"

// Common storage errors
var (
	// ErrListNotFound indicates that list does not exist or was deleted
	ErrListNotFound = errors.New("list not found")

	// ErrListDeleted indicates that list with this ID existed and was deleted;
	// deleted IDs are never reused
	ErrListDeleted = errors.New("list deleted")

	// ErrNotOwner indicates that operation is allowed only for the list owner
	ErrNotOwner = errors.New("not a list owner")

	// ErrNotParticipant indicates that user has no access to the list
	ErrNotParticipant = errors.New("not a list participant")

	// ErrDeltaConflict indicates that delta ID is already taken by a delta
	// of another list
	ErrDeltaConflict = errors.New("delta id conflict")
)
