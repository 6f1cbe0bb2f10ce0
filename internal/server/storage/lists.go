package storage

import (
	"context"

	"github.com/iudanet/listsync/pkg/api"
)

// ListStorage defines interface for list metadata and participants persistence
type ListStorage interface {
	// CreateList creates a list and makes the owner its first participant.
	// If list with the same ID exists, the caller joins it as a participant
	// and the stored metadata is returned with created = false.
	// Returns ErrListDeleted if the ID belongs to a deleted list.
	CreateList(ctx context.Context, meta api.ListMeta) (stored *api.ListMeta, created bool, err error)

	// GetList retrieves list metadata
	// Returns ErrListNotFound if list doesn't exist or is deleted
	GetList(ctx context.Context, listID string) (*api.ListMeta, error)

	// GetUserLists retrieves all non-deleted lists where user is a participant
	// Returns empty slice if no lists found
	GetUserLists(ctx context.Context, userID string) ([]api.ListMeta, error)

	// GetParticipants returns user IDs of all list participants
	GetParticipants(ctx context.Context, listID string) ([]string, error)

	// CheckAccess returns nil if user participates in a live list,
	// ErrListNotFound or ErrNotParticipant otherwise
	CheckAccess(ctx context.Context, listID, userID string) error

	// DeleteList marks list as deleted (soft delete) and returns participants
	// at the moment of deletion. Only the owner may delete.
	DeleteList(ctx context.Context, listID, userID string) ([]string, error)

	// RemoveParticipant removes user from list participants.
	// The list is deleted when its last participant leaves.
	RemoveParticipant(ctx context.Context, listID, userID string) error
}
