package sync

import (
	"context"
	"fmt"

	"github.com/iudanet/listsync/internal/client/events"
	"github.com/iudanet/listsync/internal/document"
	"github.com/iudanet/listsync/internal/models"
	"github.com/iudanet/listsync/pkg/api"
)

// HandleRemoteDelta применяет дельту из канала подписки. Собственные дельты
// (эхо) и уже примененные отбрасываются. Дельта неизвестного списка
// запускает загрузку этого списка целиком.
func (c *Coordinator) HandleRemoteDelta(ctx context.Context, delta api.Delta) error {
	if delta.ClientID == c.session.ClientID {
		c.logger.Debug("Dropping echo of own delta", "list_id", delta.ListID, "delta_id", delta.ID)
		return nil
	}

	unlock := c.lockList(delta.ListID)
	defer unlock()

	known, err := c.knows(ctx, delta.ListID)
	if err != nil {
		return err
	}
	w, err := c.loadWatermark(ctx, delta.ListID)
	if err != nil {
		return err
	}

	if !known {
		if gone, err := c.leaving(ctx, delta.ListID); err != nil || gone {
			return err
		}

		deltas, err := c.remote.PullDeltas(ctx, delta.ListID, w.LastSyncTimestamp, "")
		if err == nil {
			_, err = c.materialize(ctx, delta.ListID, w, deltas, nil)
			return err
		}

		// без сервера начинаем с одной этой дельты; курсор не двигаем,
		// остальное догонит bootstrap
		c.logger.Warn("Scoped pull failed, applying single delta",
			"list_id", delta.ListID,
			"error", err)
		if _, err := c.materialize(ctx, delta.ListID, w, nil, nil); err != nil {
			return err
		}
		doc, err := c.loadDoc(ctx, delta.ListID)
		if err != nil {
			return err
		}
		return c.applyLive(ctx, doc, w, nil, delta)
	}

	if w.HasApplied(delta.ID) {
		c.logger.Debug("Delta already applied", "list_id", delta.ListID, "delta_id", delta.ID)
		return nil
	}

	doc, err := c.loadDoc(ctx, delta.ListID)
	if err != nil {
		return err
	}

	// Дельты между курсором и этой могли прийти, пока подписка лежала:
	// догоняем их по порядку, курсор двигает только непрерывный pull.
	deltas, err := c.remote.PullDeltas(ctx, delta.ListID, w.LastSyncTimestamp, c.session.ClientID)
	if err != nil {
		c.logger.Warn("Catch-up pull failed, applying single delta",
			"list_id", delta.ListID,
			"error", err)
		deltas = nil
	}
	return c.applyLive(ctx, doc, w, deltas, delta)
}

// applyLive применяет догоняющие дельты и саму дельту подписки. Дельта
// подписки, не попавшая в pull, только запоминается в окне ID: timestamp
// курсора двигают лишь дельты, полученные без пропусков.
func (c *Coordinator) applyLive(ctx context.Context, doc *document.ListDocument, w *models.Watermark, deltas []api.Delta, live api.Delta) error {
	applied := c.applyAll(doc, w, deltas)

	if !w.HasApplied(live.ID) {
		if _, err := doc.ApplyDelta(live.Data); err != nil {
			c.logger.Warn("Dropping undecodable delta",
				"list_id", live.ListID,
				"delta_id", live.ID,
				"error", err)
		} else {
			applied++
		}
		w.Remember(live.ID)
	}

	if applied > 0 {
		if err := c.persist(ctx, doc); err != nil {
			return err
		}
	}
	if err := c.saveWatermark(ctx, w); err != nil {
		return err
	}

	if applied > 0 {
		c.publishRemoteChange(doc, applied)
	}
	return nil
}

// HandleRemoteListCreated загружает список, о котором клиент еще не знает.
func (c *Coordinator) HandleRemoteListCreated(ctx context.Context, meta api.ListMeta) error {
	applied, created, err := c.fetchNew(ctx, &meta)
	if err != nil {
		return fmt.Errorf("failed to fetch created list: %w", err)
	}
	if created {
		c.logger.Debug("Remote list creation handled", "list_id", meta.ID, "deltas", applied)
	}
	return nil
}

// HandleRemoteListDeleted удаляет локальное состояние списка, удаленного на сервере.
func (c *Coordinator) HandleRemoteListDeleted(ctx context.Context, listID string) error {
	unlock := c.lockList(listID)
	defer unlock()

	known, err := c.knows(ctx, listID)
	if err != nil || !known {
		return err
	}

	if err := c.forget(ctx, listID); err != nil {
		return err
	}

	c.publish(listID, "", events.ListDeleted{Source: events.SourceRemote})
	c.logger.Info("List deleted remotely", "list_id", listID)
	return nil
}
