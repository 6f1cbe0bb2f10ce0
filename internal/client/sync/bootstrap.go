package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/iudanet/listsync/internal/client/events"
	"github.com/iudanet/listsync/internal/document"
	"github.com/iudanet/listsync/internal/models"
	"github.com/iudanet/listsync/pkg/api"
)

// BootstrapResult contains reconciliation results
type BootstrapResult struct {
	ListsCreated  int // новые списки, материализованные с сервера
	ListsUpdated  int // известные списки, получившие хотя бы одну дельту
	ListsRemoved  int // локальные списки, исчезнувшие на сервере
	ListsFailed   int // списки, которые не удалось синхронизировать
	DeltasApplied int
}

// Bootstrap сверяет локальные списки с сервером. Запускается при старте и
// после восстановления соединения. Повторный вызов во время выполнения
// ничего не делает и возвращает nil, nil.
func (c *Coordinator) Bootstrap(ctx context.Context) (*BootstrapResult, error) {
	if !c.bootstrapping.CompareAndSwap(false, true) {
		c.logger.Debug("Bootstrap already in progress, skipping")
		return nil, nil
	}
	defer c.bootstrapping.Store(false)

	c.logger.Info("Starting bootstrap", "user_id", c.session.UserID)

	// Локальные списки читаются до серверных: список, созданный между двумя
	// чтениями, не попадет в local и не будет принят за удаленный
	records, err := c.store.GetAllLists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read local lists: %w", err)
	}
	local := make(map[string]bool, len(records))
	for _, r := range records {
		local[r.ID] = true
	}

	remoteLists, err := c.remote.GetUserLists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch remote lists: %w", err)
	}

	result := &BootstrapResult{}
	seen := make(map[string]bool, len(remoteLists))

	for i := range remoteLists {
		meta := remoteLists[i]
		seen[meta.ID] = true

		if err := ctx.Err(); err != nil {
			return result, err
		}

		if local[meta.ID] {
			applied, err := c.refresh(ctx, meta.ID)
			if err != nil {
				c.logger.Warn("Failed to refresh list", "list_id", meta.ID, "error", err)
				result.ListsFailed++
				continue
			}
			if applied > 0 {
				result.ListsUpdated++
				result.DeltasApplied += applied
			}
			continue
		}

		applied, created, err := c.fetchNew(ctx, &meta)
		if err != nil {
			c.logger.Warn("Failed to fetch new list", "list_id", meta.ID, "error", err)
			result.ListsFailed++
			continue
		}
		if created {
			result.ListsCreated++
			result.DeltasApplied += applied
		}
	}

	removed, err := c.removeVanished(ctx, local, seen)
	if err != nil {
		return result, err
	}
	result.ListsRemoved = removed

	c.publish("", "", events.BootstrapCompleted{
		ListsCreated:  result.ListsCreated,
		ListsUpdated:  result.ListsUpdated,
		ListsRemoved:  result.ListsRemoved,
		DeltasApplied: result.DeltasApplied,
	})

	// накопленная офлайн очередь может отправляться
	c.outbox.Wake()

	c.logger.Info("Bootstrap completed",
		"created", result.ListsCreated,
		"updated", result.ListsUpdated,
		"removed", result.ListsRemoved,
		"failed", result.ListsFailed,
		"deltas", result.DeltasApplied)

	return result, nil
}

// removeVanished удаляет локальные списки, которых больше нет на сервере
// (удалены или покинуты, пока клиент был офлайн). Списки с неотправленным
// LIST_CREATE сохраняются: сервер о них еще не знает. Очередь проверяется под
// блокировкой списка, чтобы не разойтись с идущей немедленной отправкой.
func (c *Coordinator) removeVanished(ctx context.Context, local, remoteIDs map[string]bool) (int, error) {
	removed := 0
	for id := range local {
		if remoteIDs[id] {
			continue
		}

		gone, err := c.vanish(ctx, id)
		if err != nil {
			return removed, err
		}
		if gone {
			c.publish(id, "", events.ListDeleted{Source: events.SourceRemote})
			removed++
		}
	}
	return removed, nil
}

func (c *Coordinator) vanish(ctx context.Context, listID string) (bool, error) {
	unlock := c.lockList(listID)
	defer unlock()

	creating, err := c.queued(ctx, listID, func(op models.OperationType) bool {
		return op == models.OperationListCreate
	})
	if err != nil || creating {
		return false, err
	}
	return true, c.forget(ctx, listID)
}

// fetchNew материализует список, которого нет локально: тянет дельты с
// остаточного курсора (обычно с нуля), включая собственные - локальное
// состояние могло быть стерто. created=false, если список уже известен или
// его удаление еще в очереди.
func (c *Coordinator) fetchNew(ctx context.Context, meta *api.ListMeta) (applied int, created bool, err error) {
	unlock := c.lockList(meta.ID)
	defer unlock()

	if known, err := c.knows(ctx, meta.ID); err != nil || known {
		return 0, false, err
	}
	// список удален или покинут офлайн, сервер еще не знает об этом
	if gone, err := c.leaving(ctx, meta.ID); err != nil || gone {
		return 0, false, err
	}

	w, err := c.loadWatermark(ctx, meta.ID)
	if err != nil {
		return 0, false, err
	}
	deltas, err := c.remote.PullDeltas(ctx, meta.ID, w.LastSyncTimestamp, "")
	if err != nil {
		return 0, false, fmt.Errorf("failed to pull deltas: %w", err)
	}

	applied, err = c.materialize(ctx, meta.ID, w, deltas, meta)
	return applied, err == nil, err
}

// materialize строит новый документ из дельт. Без дельт документ
// синтезируется из метаданных: создатель мог еще не отправить ни одной дельты.
// Вызывается под блокировкой списка.
func (c *Coordinator) materialize(ctx context.Context, listID string, w *models.Watermark, deltas []api.Delta, meta *api.ListMeta) (int, error) {
	doc := document.New(listID, c.session.ClientID, c.docOpts...)
	applied := c.applyAll(doc, w, deltas)

	if applied == 0 && meta != nil {
		opts := c.docOpts
		if !meta.CreatedAt.IsZero() {
			createdAt := meta.CreatedAt
			opts = append(append([]document.Option{}, c.docOpts...), document.WithNow(func() time.Time { return createdAt }))
		}
		doc, _ = document.Create(listID, c.session.ClientID, meta.Title, meta.Description, meta.OwnerID, opts...)
	}

	c.cacheDoc(doc)
	if err := c.persist(ctx, doc); err != nil {
		return applied, err
	}
	if err := c.saveWatermark(ctx, w); err != nil {
		return applied, err
	}

	snap := doc.Snapshot()
	c.publish(listID, "", events.ListCreated{Title: snap.Title, OwnerID: snap.OwnerID, Source: events.SourceRemote})
	c.logger.Info("Remote list materialized", "list_id", listID, "deltas", applied)

	return applied, nil
}

// refresh тянет чужие дельты известного списка строго после курсора.
func (c *Coordinator) refresh(ctx context.Context, listID string) (int, error) {
	unlock := c.lockList(listID)
	defer unlock()

	doc, err := c.loadDoc(ctx, listID)
	if err != nil {
		return 0, err
	}
	w, err := c.loadWatermark(ctx, listID)
	if err != nil {
		return 0, err
	}

	deltas, err := c.remote.PullDeltas(ctx, listID, w.LastSyncTimestamp, c.session.ClientID)
	if err != nil {
		return 0, fmt.Errorf("failed to pull deltas: %w", err)
	}
	if len(deltas) == 0 {
		return 0, nil
	}

	applied := c.applyAll(doc, w, deltas)
	if applied > 0 {
		if err := c.persist(ctx, doc); err != nil {
			return applied, err
		}
	}
	if err := c.saveWatermark(ctx, w); err != nil {
		return applied, err
	}

	if applied > 0 {
		c.publishRemoteChange(doc, applied)
	}
	return applied, nil
}

// applyAll применяет дельты в порядке сервера и двигает курсор.
// Уже примененные пропускаются, поврежденные логируются и отбрасываются.
func (c *Coordinator) applyAll(doc *document.ListDocument, w *models.Watermark, deltas []api.Delta) int {
	applied := 0
	for _, d := range deltas {
		// pull непрерывен: курсор проходит и уже примененную дельту
		if w.HasApplied(d.ID) {
			w.Advance(d.ID, d.Timestamp)
			continue
		}
		if _, err := doc.ApplyDelta(d.Data); err != nil {
			c.logger.Warn("Dropping undecodable delta",
				"list_id", doc.ID(),
				"delta_id", d.ID,
				"error", err)
		} else {
			applied++
		}
		w.Advance(d.ID, d.Timestamp)
	}
	return applied
}

func (c *Coordinator) publishRemoteChange(doc *document.ListDocument, applied int) {
	snap := doc.Snapshot()
	c.publish(doc.ID(), "", events.ListMetadataChanged{
		Title:         snap.Title,
		Description:   snap.Description,
		Source:        events.SourceRemote,
		AppliedDeltas: applied,
	})
}
