package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/iudanet/listsync/internal/client/storage"
	"github.com/iudanet/listsync/internal/models"
)

// Ключи metadata для курсора синхронизации списка
func syncStateKey(listID string) string      { return "sync_state_" + listID }
func appliedUpdatesKey(listID string) string { return "applied_remote_updates_" + listID }
func lastSyncKey(listID string) string       { return "last_sync_" + listID }

// loadWatermark читает курсор списка. Отсутствующие записи дают нулевой курсор.
func (c *Coordinator) loadWatermark(ctx context.Context, listID string) (*models.Watermark, error) {
	w := &models.Watermark{ListID: listID}

	if _, err := c.readMetadata(ctx, syncStateKey(listID), &w.LastSyncTimestamp); err != nil {
		return nil, err
	}
	if _, err := c.readMetadata(ctx, appliedUpdatesKey(listID), &w.AppliedRemoteUpdateIDs); err != nil {
		return nil, err
	}

	return w, nil
}

func (c *Coordinator) saveWatermark(ctx context.Context, w *models.Watermark) error {
	if err := c.writeMetadata(ctx, syncStateKey(w.ListID), w.LastSyncTimestamp); err != nil {
		return err
	}
	if err := c.writeMetadata(ctx, appliedUpdatesKey(w.ListID), w.AppliedRemoteUpdateIDs); err != nil {
		return err
	}
	return c.writeMetadata(ctx, lastSyncKey(w.ListID), c.now().UTC())
}

func (c *Coordinator) clearWatermark(ctx context.Context, listID string) error {
	for _, key := range []string{syncStateKey(listID), appliedUpdatesKey(listID), lastSyncKey(listID)} {
		if err := c.store.DeleteMetadata(ctx, key); err != nil {
			return fmt.Errorf("failed to clear %s: %w", key, err)
		}
	}
	return nil
}

// LastSync возвращает время последней успешной синхронизации списка.
// Нулевое время, если список еще не синхронизировался.
func (c *Coordinator) LastSync(ctx context.Context, listID string) (time.Time, error) {
	var t time.Time
	if _, err := c.readMetadata(ctx, lastSyncKey(listID), &t); err != nil {
		return time.Time{}, err
	}
	return t, nil
}

func (c *Coordinator) readMetadata(ctx context.Context, key string, v any) (bool, error) {
	record, err := c.store.GetMetadata(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrMetadataNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if err := json.Unmarshal(record.Value, v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func (c *Coordinator) writeMetadata(ctx context.Context, key string, v any) error {
	value, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := c.store.SaveMetadata(ctx, &models.MetadataRecord{Key: key, Value: value}); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}
