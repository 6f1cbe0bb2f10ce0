package sync

import (
	"context"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/iudanet/listsync/internal/client/storage"
	"github.com/iudanet/listsync/internal/models"
)

// clientIDKey - ключ записи идентификатора установки в metadata
const clientIDKey = "client_id"

// Session - контекст текущего пользователя и установки.
// Передается в конструкторы вместо глобального состояния.
type Session struct {
	UserID   string // владелец создаваемых списков
	ClientID string // метка исходящих дельт, по ней отбрасывается эхо
}

// LoadSession читает client_id из хранилища, при первом запуске генерирует
// и сохраняет новый.
func LoadSession(ctx context.Context, meta storage.MetadataStorage, userID string) (Session, error) {
	record, err := meta.GetMetadata(ctx, clientIDKey)
	switch {
	case err == nil:
		var clientID string
		if err := json.Unmarshal(record.Value, &clientID); err != nil {
			return Session{}, fmt.Errorf("failed to decode client id: %w", err)
		}
		if clientID != "" {
			return Session{UserID: userID, ClientID: clientID}, nil
		}
	case !errors.Is(err, storage.ErrMetadataNotFound):
		return Session{}, fmt.Errorf("failed to load client id: %w", err)
	}

	clientID := uuid.New().String()
	value, err := json.Marshal(clientID)
	if err != nil {
		return Session{}, fmt.Errorf("failed to encode client id: %w", err)
	}
	if err := meta.SaveMetadata(ctx, &models.MetadataRecord{Key: clientIDKey, Value: value}); err != nil {
		return Session{}, fmt.Errorf("failed to save client id: %w", err)
	}

	return Session{UserID: userID, ClientID: clientID}, nil
}
