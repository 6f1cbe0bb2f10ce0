package outbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/iudanet/listsync/internal/client/remote"
	"github.com/iudanet/listsync/internal/document"
	"github.com/iudanet/listsync/internal/models"
	"github.com/iudanet/listsync/pkg/api"
)

// Sender отправляет одну запись очереди операцией удаленного хранилища,
// соответствующей ее типу.
type Sender struct {
	remote   remote.Store
	clientID string
}

// NewSender creates a sender tagging deltas with clientID
func NewSender(r remote.Store, clientID string) *Sender {
	return &Sender{remote: r, clientID: clientID}
}

// Send выполняет запись. ID записи используется как ID дельты,
// поэтому повторная отправка после сбоя безопасна.
func (s *Sender) Send(ctx context.Context, entry *models.QueueEntry) error {
	switch entry.OperationType {
	case models.OperationListCreate:
		meta, err := s.listMeta(entry)
		if err != nil {
			return err
		}
		if _, err := s.remote.CreateList(ctx, meta); err != nil {
			return fmt.Errorf("failed to create list: %w", err)
		}
		return s.pushDelta(ctx, entry)

	case models.OperationItemDelta:
		return s.pushDelta(ctx, entry)

	case models.OperationListDelete:
		// Список уже удален на сервере - цель достигнута
		if err := s.remote.DeleteList(ctx, entry.ListID); err != nil && !errors.Is(err, remote.ErrNotFound) {
			return fmt.Errorf("failed to delete list: %w", err)
		}
		return nil

	case models.OperationListLeave:
		if err := s.remote.RemoveSelfAsParticipant(ctx, entry.ListID); err != nil && !errors.Is(err, remote.ErrNotFound) {
			return fmt.Errorf("failed to leave list: %w", err)
		}
		return nil
	}

	return fmt.Errorf("unknown operation type %q", entry.OperationType)
}

func (s *Sender) pushDelta(ctx context.Context, entry *models.QueueEntry) error {
	if len(entry.Payload) == 0 {
		return nil
	}

	delta := api.Delta{
		ID:       entry.ID,
		ListID:   entry.ListID,
		ClientID: s.clientID,
		Data:     entry.Payload,
	}
	if err := s.remote.PushDelta(ctx, entry.ListID, delta); err != nil {
		return fmt.Errorf("failed to push delta: %w", err)
	}
	return nil
}

// listMeta восстанавливает метаданные списка из дельты создания.
func (s *Sender) listMeta(entry *models.QueueEntry) (api.ListMeta, error) {
	doc, err := document.Load(entry.ListID, s.clientID, entry.Payload)
	if err != nil {
		return api.ListMeta{}, fmt.Errorf("failed to decode create payload: %w", err)
	}

	snap := doc.Snapshot()
	return api.ListMeta{
		ID:          entry.ListID,
		Title:       snap.Title,
		Description: snap.Description,
		OwnerID:     snap.OwnerID,
		CreatedAt:   snap.CreatedAt,
	}, nil
}
