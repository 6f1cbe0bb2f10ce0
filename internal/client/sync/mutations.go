package sync

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/iudanet/listsync/internal/client/events"
	"github.com/iudanet/listsync/internal/document"
	"github.com/iudanet/listsync/internal/models"
)

// MetadataUpdate - изменение метаданных списка. Nil-поля не меняются.
type MetadataUpdate struct {
	Title            *string
	Description      *string
	ClearDescription bool // удалить описание; Description игнорируется
}

// update выполняет изменение документа по общему порядку: мутация, снимок,
// отправка или очередь, событие. Пустая дельта означает отсутствие изменений:
// ничего не сохраняется и не отправляется.
func (c *Coordinator) update(ctx context.Context, listID string, mutate func(*document.ListDocument) (document.Delta, []events.Event, error)) error {
	unlock := c.lockList(listID)
	defer unlock()

	doc, err := c.loadDoc(ctx, listID)
	if err != nil {
		return err
	}

	delta, evts, err := mutate(doc)
	if err != nil {
		return err
	}
	if len(delta) == 0 {
		return nil
	}

	if err := c.persist(ctx, doc); err != nil {
		return err
	}

	deliverErr := c.deliver(ctx, listID, models.OperationItemDelta, delta)

	for _, e := range evts {
		c.bus.Publish(e)
	}

	return deliverErr
}

// CreateList создает список текущего пользователя. При *RemoteRejectedError
// список все равно создан локально и возвращается вместе с ошибкой.
func (c *Coordinator) CreateList(ctx context.Context, title string, description *string) (*models.List, error) {
	listID := uuid.New().String()

	unlock := c.lockList(listID)
	defer unlock()

	doc, delta := document.Create(listID, c.session.ClientID, title, description, c.session.UserID, c.docOpts...)
	c.cacheDoc(doc)

	if err := c.persist(ctx, doc); err != nil {
		return nil, err
	}

	deliverErr := c.deliver(ctx, listID, models.OperationListCreate, delta)

	c.publish(listID, "", events.ListCreated{Title: title, OwnerID: c.session.UserID, Source: events.SourceLocal})
	c.logger.Info("List created", "list_id", listID)

	list := doc.Snapshot()
	return &list, deliverErr
}

// DeleteList удаляет список для всех участников. Удалить может только
// владелец, остальным возвращается ErrNotOwner и список остается на месте.
func (c *Coordinator) DeleteList(ctx context.Context, listID string) error {
	return c.remove(ctx, listID, models.OperationListDelete, events.ListDeleted{Source: events.SourceLocal})
}

// LeaveList убирает текущего пользователя из участников списка.
func (c *Coordinator) LeaveList(ctx context.Context, listID string) error {
	return c.remove(ctx, listID, models.OperationListLeave, events.ListLeft{})
}

func (c *Coordinator) remove(ctx context.Context, listID string, op models.OperationType, payload events.Payload) error {
	unlock := c.lockList(listID)
	defer unlock()

	doc, err := c.loadDoc(ctx, listID)
	if err != nil {
		return err
	}

	// сервер все равно ответит 403, а список к этому моменту уже забыт
	if op == models.OperationListDelete {
		if owner := doc.Snapshot().OwnerID; owner != "" && owner != c.session.UserID {
			return fmt.Errorf("%w: list %s is owned by %s", ErrNotOwner, listID, owner)
		}
	}

	// удаление отменяет все, что еще не отправлено по этому списку
	if err := c.forget(ctx, listID); err != nil {
		return err
	}

	deliverErr := c.deliver(ctx, listID, op, nil)

	c.publish(listID, "", payload)
	c.logger.Info("List removed locally", "list_id", listID, "operation", op)

	return deliverErr
}

// AddItem добавляет элемент в конец списка и возвращает его ID.
func (c *Coordinator) AddItem(ctx context.Context, listID, text string) (string, error) {
	var itemID string
	err := c.update(ctx, listID, func(doc *document.ListDocument) (document.Delta, []events.Event, error) {
		id, delta, err := doc.AddItem(text)
		if err != nil {
			return nil, nil, err
		}
		itemID = id
		return delta, []events.Event{
			events.New(listID, id, events.ItemAdded{Content: text, Index: doc.IndexOf(id)}),
		}, nil
	})
	return itemID, err
}

// EditItem меняет текст элемента.
func (c *Coordinator) EditItem(ctx context.Context, listID, itemID, text string) error {
	return c.update(ctx, listID, func(doc *document.ListDocument) (document.Delta, []events.Event, error) {
		delta, err := doc.EditItem(itemID, text)
		if err != nil {
			return nil, nil, err
		}
		return delta, []events.Event{
			events.New(listID, itemID, events.ItemContentChanged{Content: text}),
		}, nil
	})
}

// DeleteItem удаляет элемент.
func (c *Coordinator) DeleteItem(ctx context.Context, listID, itemID string) error {
	return c.update(ctx, listID, func(doc *document.ListDocument) (document.Delta, []events.Event, error) {
		delta, err := doc.DeleteItem(itemID)
		if err != nil {
			return nil, nil, err
		}
		return delta, []events.Event{events.New(listID, itemID, events.ItemDeleted{})}, nil
	})
}

// ToggleItem переключает отметку выполнения и возвращает новое значение.
func (c *Coordinator) ToggleItem(ctx context.Context, listID, itemID string) (bool, error) {
	var completed bool
	err := c.update(ctx, listID, func(doc *document.ListDocument) (document.Delta, []events.Event, error) {
		done, delta, err := doc.ToggleItem(itemID)
		if err != nil {
			return nil, nil, err
		}
		completed = done

		var payload events.Payload = events.ItemUncompleted{}
		if done {
			payload = events.ItemCompleted{}
		}
		return delta, []events.Event{events.New(listID, itemID, payload)}, nil
	})
	return completed, err
}

// MoveItem перемещает элемент на позицию newIndex (с ограничением по длине).
// Перемещение на текущую позицию ничего не делает.
func (c *Coordinator) MoveItem(ctx context.Context, listID, itemID string, newIndex int) error {
	return c.update(ctx, listID, func(doc *document.ListDocument) (document.Delta, []events.Event, error) {
		from, to, delta, err := doc.MoveItem(itemID, newIndex)
		if err != nil || delta == nil {
			return nil, nil, err
		}
		return delta, []events.Event{
			events.New(listID, itemID, events.ItemMoved{FromIndex: from, ToIndex: to}),
		}, nil
	})
}

// EditListMetadata меняет название и/или описание списка.
func (c *Coordinator) EditListMetadata(ctx context.Context, listID string, upd MetadataUpdate) error {
	var description **string
	switch {
	case upd.ClearDescription:
		var none *string
		description = &none
	case upd.Description != nil:
		description = &upd.Description
	}

	return c.update(ctx, listID, func(doc *document.ListDocument) (document.Delta, []events.Event, error) {
		delta, err := doc.EditMetadata(upd.Title, description)
		if err != nil || delta == nil {
			return nil, nil, err
		}

		snap := doc.Snapshot()
		return delta, []events.Event{
			events.New(listID, "", events.ListMetadataChanged{
				Title:       snap.Title,
				Description: snap.Description,
				Source:      events.SourceLocal,
			}),
		}, nil
	})
}

// ClearCompletedItems удаляет все выполненные элементы и возвращает их число.
func (c *Coordinator) ClearCompletedItems(ctx context.Context, listID string) (int, error) {
	var removed int
	err := c.update(ctx, listID, func(doc *document.ListDocument) (document.Delta, []events.Event, error) {
		ids, delta, err := doc.ClearCompleted()
		if err != nil || delta == nil {
			return nil, nil, err
		}
		removed = len(ids)

		evts := make([]events.Event, 0, len(ids))
		for _, id := range ids {
			evts = append(evts, events.New(listID, id, events.ItemDeleted{}))
		}
		return delta, evts, nil
	})
	return removed, err
}
