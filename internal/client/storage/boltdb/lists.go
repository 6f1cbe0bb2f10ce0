package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/iudanet/listsync/internal/client/storage"
	"github.com/iudanet/listsync/internal/models"
)

// GetList retrieves a list snapshot by ID
func (s *Storage) GetList(ctx context.Context, id string) (*models.ListRecord, error) {
	record := &models.ListRecord{}
	if err := s.get(bucketLists, id, record, storage.ErrListNotFound); err != nil {
		return nil, err
	}
	return record, nil
}

// GetAllLists returns all list snapshots
func (s *Storage) GetAllLists(ctx context.Context) ([]*models.ListRecord, error) {
	var records []*models.ListRecord

	err := s.forEach(bucketLists, func(v []byte) error {
		var record models.ListRecord
		if err := json.Unmarshal(v, &record); err != nil {
			return fmt.Errorf("failed to unmarshal list: %w", err)
		}
		records = append(records, &record)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get all lists: %w", err)
	}

	return records, nil
}

// SaveList stores or replaces a list snapshot
func (s *Storage) SaveList(ctx context.Context, record *models.ListRecord) error {
	if record.ID == "" {
		return fmt.Errorf("list id is empty")
	}
	return s.put(bucketLists, record.ID, record)
}

// DeleteList removes a list snapshot
func (s *Storage) DeleteList(ctx context.Context, id string) error {
	return s.delete(bucketLists, id)
}

// ClearLists removes all list snapshots
func (s *Storage) ClearLists(ctx context.Context) error {
	return s.clear(bucketLists)
}
