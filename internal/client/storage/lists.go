package storage

import (
	"context"

	"github.com/iudanet/listsync/internal/models"
)

// ListStorage хранит полные снимки документов списков (таблица lists)
type ListStorage interface {
	// GetList returns the snapshot of a list
	// Returns ErrListNotFound if the list is not stored
	GetList(ctx context.Context, id string) (*models.ListRecord, error)

	// GetAllLists returns all stored snapshots
	GetAllLists(ctx context.Context) ([]*models.ListRecord, error)

	// SaveList stores or replaces the snapshot (upsert)
	SaveList(ctx context.Context, record *models.ListRecord) error

	// DeleteList removes the snapshot; deleting a missing list is not an error
	DeleteList(ctx context.Context, id string) error

	// ClearLists removes all snapshots (sign-out)
	ClearLists(ctx context.Context) error
}
