package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/listsync/internal/server/storage"
	"github.com/iudanet/listsync/pkg/api"
)

// CreateList creates a list and makes the owner its first participant.
// Existing list is joined by the caller instead.
func (s *Storage) CreateList(ctx context.Context, meta api.ListMeta) (stored *api.ListMeta, created bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	existing, deleted, err := getList(ctx, tx, meta.ID)
	switch {
	case errors.Is(err, storage.ErrListNotFound):
		if meta.CreatedAt.IsZero() {
			meta.CreatedAt = s.now()
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO lists (id, owner_id, title, description, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, meta.ID, meta.OwnerID, meta.Title, meta.Description, meta.CreatedAt.UnixMilli())
		if err != nil {
			return nil, false, fmt.Errorf("failed to insert list: %w", err)
		}
		stored, created = &meta, true
	case err != nil:
		return nil, false, err
	case deleted:
		return nil, false, storage.ErrListDeleted
	default:
		stored = existing
	}

	// Создатель или присоединившийся становится участником
	_, err = tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO list_participants (list_id, user_id, joined_at)
		VALUES (?, ?, ?)
	`, meta.ID, meta.OwnerID, s.now().UnixMilli())
	if err != nil {
		return nil, false, fmt.Errorf("failed to add participant: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit list: %w", err)
	}

	return stored, created, nil
}

// GetList retrieves list metadata
func (s *Storage) GetList(ctx context.Context, listID string) (*api.ListMeta, error) {
	meta, deleted, err := getList(ctx, s.db, listID)
	if err != nil {
		return nil, err
	}
	if deleted {
		return nil, storage.ErrListNotFound
	}
	return meta, nil
}

// GetUserLists retrieves all non-deleted lists where user is a participant
func (s *Storage) GetUserLists(ctx context.Context, userID string) (lists []api.ListMeta, err error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT l.id, l.owner_id, l.title, l.description, l.created_at
		FROM lists l
		JOIN list_participants p ON p.list_id = l.id
		WHERE p.user_id = ? AND l.deleted = 0
		ORDER BY l.created_at, l.id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user lists: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	lists = make([]api.ListMeta, 0)
	for rows.Next() {
		var (
			meta        api.ListMeta
			description sql.NullString
			createdAt   int64
		)
		if err := rows.Scan(&meta.ID, &meta.OwnerID, &meta.Title, &description, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan list: %w", err)
		}
		meta.Description = nullToPtr(description)
		meta.CreatedAt = time.UnixMilli(createdAt).UTC()
		lists = append(lists, meta)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return lists, nil
}

// GetParticipants returns user IDs of all list participants
func (s *Storage) GetParticipants(ctx context.Context, listID string) ([]string, error) {
	return getParticipants(ctx, s.db, listID)
}

// CheckAccess проверяет, что пользователь участвует в живом списке
func (s *Storage) CheckAccess(ctx context.Context, listID, userID string) error {
	if _, err := s.GetList(ctx, listID); err != nil {
		return err
	}

	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM list_participants WHERE list_id = ? AND user_id = ?`,
		listID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotParticipant
	}
	if err != nil {
		return fmt.Errorf("failed to check participant: %w", err)
	}
	return nil
}

// DeleteList marks list as deleted and returns its participants
func (s *Storage) DeleteList(ctx context.Context, listID, userID string) (participants []string, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	meta, deleted, err := getList(ctx, tx, listID)
	if err != nil {
		return nil, err
	}
	if deleted {
		return nil, storage.ErrListNotFound
	}
	if meta.OwnerID != userID {
		return nil, storage.ErrNotOwner
	}

	participants, err = getParticipants(ctx, tx, listID)
	if err != nil {
		return nil, err
	}

	if err = markDeleted(ctx, tx, listID, s.now()); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit list deletion: %w", err)
	}

	return participants, nil
}

// RemoveParticipant removes user from list participants
func (s *Storage) RemoveParticipant(ctx context.Context, listID, userID string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, deleted, err := getList(ctx, tx, listID)
	if err != nil {
		return err
	}
	if deleted {
		return storage.ErrListNotFound
	}

	result, err := tx.ExecContext(ctx,
		`DELETE FROM list_participants WHERE list_id = ? AND user_id = ?`, listID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove participant: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotParticipant
	}

	// Список без участников никому не доступен
	var remaining int
	if err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM list_participants WHERE list_id = ?`, listID).Scan(&remaining); err != nil {
		return fmt.Errorf("failed to count participants: %w", err)
	}
	if remaining == 0 {
		if err = markDeleted(ctx, tx, listID, s.now()); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit leave: %w", err)
	}
	return nil
}

// queryer - общее подмножество *sql.DB и *sql.Tx
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func getList(ctx context.Context, q queryer, listID string) (*api.ListMeta, bool, error) {
	var (
		meta        api.ListMeta
		description sql.NullString
		createdAt   int64
		deleted     int
	)

	err := q.QueryRowContext(ctx, `
		SELECT id, owner_id, title, description, created_at, deleted
		FROM lists WHERE id = ?
	`, listID).Scan(&meta.ID, &meta.OwnerID, &meta.Title, &description, &createdAt, &deleted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, storage.ErrListNotFound
		}
		return nil, false, fmt.Errorf("failed to get list: %w", err)
	}

	meta.Description = nullToPtr(description)
	meta.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &meta, intToBool(deleted), nil
}

func getParticipants(ctx context.Context, q queryer, listID string) (participants []string, err error) {
	rows, err := q.QueryContext(ctx,
		`SELECT user_id FROM list_participants WHERE list_id = ? ORDER BY joined_at, user_id`, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	participants = make([]string, 0)
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, userID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return participants, nil
}

func markDeleted(ctx context.Context, q queryer, listID string, at time.Time) error {
	if _, err := q.ExecContext(ctx,
		`UPDATE lists SET deleted = 1, deleted_at = ? WHERE id = ?`, at.UnixMilli(), listID); err != nil {
		return fmt.Errorf("failed to mark list deleted: %w", err)
	}
	return nil
}

func nullToPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func intToBool(i int) bool {
	return i != 0
}
