package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/iudanet/listsync/internal/client/storage"
	"github.com/iudanet/listsync/internal/models"
)

// GetMetadata retrieves a metadata record by key
func (s *Storage) GetMetadata(ctx context.Context, key string) (*models.MetadataRecord, error) {
	record := &models.MetadataRecord{}
	if err := s.get(bucketMetadata, key, record, storage.ErrMetadataNotFound); err != nil {
		return nil, err
	}
	return record, nil
}

// GetAllMetadata returns all metadata records
func (s *Storage) GetAllMetadata(ctx context.Context) ([]*models.MetadataRecord, error) {
	var records []*models.MetadataRecord

	err := s.forEach(bucketMetadata, func(v []byte) error {
		var record models.MetadataRecord
		if err := json.Unmarshal(v, &record); err != nil {
			return fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
		records = append(records, &record)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get all metadata: %w", err)
	}

	return records, nil
}

// SaveMetadata stores or replaces a metadata record
func (s *Storage) SaveMetadata(ctx context.Context, record *models.MetadataRecord) error {
	if record.Key == "" {
		return fmt.Errorf("metadata key is empty")
	}
	return s.put(bucketMetadata, record.Key, record)
}

// DeleteMetadata removes a metadata record
func (s *Storage) DeleteMetadata(ctx context.Context, key string) error {
	return s.delete(bucketMetadata, key)
}

// ClearMetadata removes all metadata records
func (s *Storage) ClearMetadata(ctx context.Context) error {
	return s.clear(bucketMetadata)
}
