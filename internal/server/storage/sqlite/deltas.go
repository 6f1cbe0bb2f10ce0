package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iudanet/listsync/internal/server/storage"
	"github.com/iudanet/listsync/pkg/api"
)

// InsertDelta stores delta and stamps it with a monotonic server timestamp.
// Repeated delivery of the same delta ID returns the stored copy.
func (s *Storage) InsertDelta(ctx context.Context, delta api.Delta) (stored *api.Delta, duplicate bool, err error) {
	// Выдача timestamp и вставка под одним замком: порядок коммитов совпадает
	// с порядком timestamp
	s.tsMu.Lock()
	defer s.tsMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	existing, err := getDelta(ctx, tx, delta.ID)
	switch {
	case err == nil:
		if existing.ListID != delta.ListID {
			return nil, false, storage.ErrDeltaConflict
		}
		_ = tx.Rollback()
		return existing, true, nil
	case !errors.Is(err, sql.ErrNoRows):
		return nil, false, fmt.Errorf("failed to check existing delta: %w", err)
	}

	_, deleted, err := getList(ctx, tx, delta.ListID)
	if err != nil {
		return nil, false, err
	}
	if deleted {
		return nil, false, storage.ErrListNotFound
	}

	now := s.now()
	delta.Timestamp = s.nextTimestamp()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO deltas (id, list_id, client_id, data, timestamp, received_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, delta.ID, delta.ListID, delta.ClientID, delta.Data, delta.Timestamp, now.UnixMilli())
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert delta: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit delta: %w", err)
	}
	s.lastTimestamp = delta.Timestamp

	return &delta, false, nil
}

// GetDeltasSince retrieves list deltas with timestamp > since ordered by timestamp
func (s *Storage) GetDeltasSince(ctx context.Context, listID string, since int64, excludeClientID string) (deltas []api.Delta, err error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, list_id, client_id, data, timestamp
		FROM deltas
		WHERE list_id = ? AND timestamp > ? AND (? = '' OR client_id <> ?)
		ORDER BY timestamp
	`, listID, since, excludeClientID, excludeClientID)
	if err != nil {
		return nil, fmt.Errorf("failed to query deltas: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	deltas = make([]api.Delta, 0)
	for rows.Next() {
		var d api.Delta
		if err := rows.Scan(&d.ID, &d.ListID, &d.ClientID, &d.Data, &d.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan delta: %w", err)
		}
		deltas = append(deltas, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return deltas, nil
}

func getDelta(ctx context.Context, q queryer, id string) (*api.Delta, error) {
	var d api.Delta
	err := q.QueryRowContext(ctx, `
		SELECT id, list_id, client_id, data, timestamp FROM deltas WHERE id = ?
	`, id).Scan(&d.ID, &d.ListID, &d.ClientID, &d.Data, &d.Timestamp)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
