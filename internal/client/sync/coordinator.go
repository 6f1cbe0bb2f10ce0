// Package sync - координатор синхронизации: единственная точка изменения
// документов списков, локального хранилища и очереди отправки.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	stdsync "sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/listsync/internal/client/events"
	"github.com/iudanet/listsync/internal/client/outbox"
	"github.com/iudanet/listsync/internal/client/remote"
	"github.com/iudanet/listsync/internal/client/storage"
	"github.com/iudanet/listsync/internal/document"
	"github.com/iudanet/listsync/internal/models"
)

// Connectivity сообщает текущее состояние соединения
type Connectivity interface {
	Online() bool
}

// Waker будит фоновую отправку очереди
type Waker interface {
	Wake()
}

// Publisher публикует доменные события
type Publisher interface {
	Publish(events.Event)
}

// Deps - зависимости координатора.
type Deps struct {
	Store  storage.LocalStore
	Remote remote.Store
	Sender outbox.EntrySender // немедленная отправка, те же правила, что у outbox
	Conn   Connectivity
	Outbox Waker
	Bus    Publisher

	// DocumentOptions передаются каждому документу после document.WithNow(Now)
	DocumentOptions []document.Option
	Now             func() time.Time // nil - time.Now
}

// Coordinator выполняет пользовательские операции над списками и применяет
// входящие изменения. Операции над одним списком сериализуются.
type Coordinator struct {
	store   storage.LocalStore
	remote  remote.Store
	sender  outbox.EntrySender
	conn    Connectivity
	outbox  Waker
	bus     Publisher
	logger  *slog.Logger
	now     func() time.Time
	docs    map[string]*document.ListDocument
	locks   map[string]*stdsync.Mutex
	session Session
	docOpts []document.Option

	docsMu        stdsync.Mutex
	locksMu       stdsync.Mutex
	bootstrapping atomic.Bool
}

// NewCoordinator creates a coordinator for the session
func NewCoordinator(session Session, deps Deps, logger *slog.Logger) *Coordinator {
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return &Coordinator{
		session: session,
		store:   deps.Store,
		remote:  deps.Remote,
		sender:  deps.Sender,
		conn:    deps.Conn,
		outbox:  deps.Outbox,
		bus:     deps.Bus,
		docOpts: append([]document.Option{document.WithNow(now)}, deps.DocumentOptions...),
		now:     now,
		logger:  logger,
		docs:    make(map[string]*document.ListDocument),
		locks:   make(map[string]*stdsync.Mutex),
	}
}

// Session возвращает сессию координатора.
func (c *Coordinator) Session() Session {
	return c.session
}

// lockList захватывает мьютекс списка и возвращает функцию освобождения.
func (c *Coordinator) lockList(listID string) func() {
	c.locksMu.Lock()
	mu, ok := c.locks[listID]
	if !ok {
		mu = &stdsync.Mutex{}
		c.locks[listID] = mu
	}
	c.locksMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// loadDoc возвращает документ из кеша или гидрирует его из хранилища.
// Для неизвестного списка возвращает storage.ErrListNotFound.
func (c *Coordinator) loadDoc(ctx context.Context, listID string) (*document.ListDocument, error) {
	c.docsMu.Lock()
	doc, ok := c.docs[listID]
	c.docsMu.Unlock()
	if ok {
		return doc, nil
	}

	record, err := c.store.GetList(ctx, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to load list %s: %w", listID, err)
	}

	doc, err = document.Load(listID, c.session.ClientID, record.Data, c.docOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to decode list %s: %w", listID, err)
	}

	c.docsMu.Lock()
	defer c.docsMu.Unlock()
	if cached, ok := c.docs[listID]; ok {
		return cached, nil
	}
	c.docs[listID] = doc
	return doc, nil
}

// knows reports whether the list exists locally
func (c *Coordinator) knows(ctx context.Context, listID string) (bool, error) {
	_, err := c.loadDoc(ctx, listID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, storage.ErrListNotFound) {
		return false, nil
	}
	return false, err
}

func (c *Coordinator) cacheDoc(doc *document.ListDocument) {
	c.docsMu.Lock()
	defer c.docsMu.Unlock()

	c.docs[doc.ID()] = doc
}

func (c *Coordinator) evict(listID string) {
	c.docsMu.Lock()
	defer c.docsMu.Unlock()

	if doc, ok := c.docs[listID]; ok {
		doc.Destroy()
		delete(c.docs, listID)
	}
}

// persist сохраняет полный снимок документа. При ошибке документ
// вытесняется из кеша, чтобы следующая операция перечитала хранилище.
func (c *Coordinator) persist(ctx context.Context, doc *document.ListDocument) error {
	record := &models.ListRecord{ID: doc.ID(), Data: doc.EncodeState()}
	if err := c.store.SaveList(ctx, record); err != nil {
		c.evict(doc.ID())
		return fmt.Errorf("failed to save list %s: %w", doc.ID(), err)
	}
	return nil
}

// deliver пытается отправить изменение сразу, иначе ставит его в очередь.
// Немедленная отправка пропускается, если у списка уже есть записи в очереди,
// иначе новое изменение обогнало бы старые.
func (c *Coordinator) deliver(ctx context.Context, listID string, op models.OperationType, payload []byte) error {
	entry := &models.QueueEntry{
		ID:            uuid.New().String(),
		ListID:        listID,
		OperationType: op,
		Payload:       payload,
		EnqueuedAt:    c.now(),
	}

	var rejected error
	if c.conn.Online() {
		pending, err := c.hasPending(ctx, listID)
		if err != nil {
			return err
		}

		if !pending {
			err := c.sender.Send(ctx, entry)
			if err == nil {
				c.logger.Debug("Change pushed", "list_id", listID, "operation", op, "delta_id", entry.ID)
				return nil
			}

			c.logger.Warn("Immediate push failed, queueing change",
				"list_id", listID,
				"operation", op,
				"error", err)
			if remote.IsPermanent(err) {
				rejected = &RemoteRejectedError{Err: err, ListID: listID, Operation: op}
			}
		}
	}

	if err := c.store.SaveQueueEntry(ctx, entry); err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", op, err)
	}
	c.outbox.Wake()

	return rejected
}

func (c *Coordinator) hasPending(ctx context.Context, listID string) (bool, error) {
	return c.queued(ctx, listID, func(models.OperationType) bool { return true })
}

// leaving reports whether a delete or leave of the list is still queued
func (c *Coordinator) leaving(ctx context.Context, listID string) (bool, error) {
	return c.queued(ctx, listID, models.OperationType.RemovesList)
}

func (c *Coordinator) queued(ctx context.Context, listID string, match func(models.OperationType) bool) (bool, error) {
	entries, err := c.store.GetAllQueueEntries(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to read sync queue: %w", err)
	}
	for _, e := range entries {
		if e.ListID == listID && match(e.OperationType) {
			return true, nil
		}
	}
	return false, nil
}

// purgeQueue удаляет все записи очереди списка.
func (c *Coordinator) purgeQueue(ctx context.Context, listID string) (int, error) {
	entries, err := c.store.GetAllQueueEntries(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read sync queue: %w", err)
	}

	purged := 0
	for _, e := range entries {
		if e.ListID != listID {
			continue
		}
		if err := c.store.DeleteQueueEntry(ctx, e.ID); err != nil {
			return purged, fmt.Errorf("failed to purge queue entry: %w", err)
		}
		purged++
	}
	return purged, nil
}

// forget удаляет все локальные следы списка: документ, снимок, очередь, курсор.
func (c *Coordinator) forget(ctx context.Context, listID string) error {
	c.evict(listID)

	if err := c.store.DeleteList(ctx, listID); err != nil {
		return fmt.Errorf("failed to delete list %s: %w", listID, err)
	}
	purged, err := c.purgeQueue(ctx, listID)
	if err != nil {
		return err
	}
	if err := c.clearWatermark(ctx, listID); err != nil {
		return err
	}

	c.logger.Debug("Local list state removed", "list_id", listID, "purged_entries", purged)
	return nil
}

func (c *Coordinator) publish(listID, itemID string, payload events.Payload) {
	c.bus.Publish(events.New(listID, itemID, payload))
}

// GetList возвращает материализованный список.
// Для неизвестного списка возвращает storage.ErrListNotFound.
func (c *Coordinator) GetList(ctx context.Context, listID string) (*models.List, error) {
	doc, err := c.loadDoc(ctx, listID)
	if err != nil {
		return nil, err
	}
	list := doc.Snapshot()
	return &list, nil
}

// GetAllLists возвращает все локальные списки по времени создания.
// Поврежденные снимки пропускаются с предупреждением.
func (c *Coordinator) GetAllLists(ctx context.Context) ([]*models.List, error) {
	records, err := c.store.GetAllLists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read lists: %w", err)
	}

	lists := make([]*models.List, 0, len(records))
	for _, record := range records {
		doc, err := c.loadDoc(ctx, record.ID)
		if err != nil {
			c.logger.Warn("Skipping unreadable list", "list_id", record.ID, "error", err)
			continue
		}
		list := doc.Snapshot()
		lists = append(lists, &list)
	}

	sort.SliceStable(lists, func(i, j int) bool {
		if !lists[i].CreatedAt.Equal(lists[j].CreatedAt) {
			return lists[i].CreatedAt.Before(lists[j].CreatedAt)
		}
		return lists[i].ID < lists[j].ID
	})

	return lists, nil
}

// PendingCount возвращает число записей, ожидающих отправки.
func (c *Coordinator) PendingCount(ctx context.Context) (int, error) {
	entries, err := c.store.GetAllQueueEntries(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read sync queue: %w", err)
	}
	return len(entries), nil
}

// Reset стирает все локальное состояние (выход из аккаунта), сохраняя
// client_id установки. Вызывается при остановленных фоновых циклах.
func (c *Coordinator) Reset(ctx context.Context) error {
	c.docsMu.Lock()
	for id, doc := range c.docs {
		doc.Destroy()
		delete(c.docs, id)
	}
	c.docsMu.Unlock()

	if err := c.store.ClearLists(ctx); err != nil {
		return fmt.Errorf("failed to clear lists: %w", err)
	}
	if err := c.store.ClearQueue(ctx); err != nil {
		return fmt.Errorf("failed to clear sync queue: %w", err)
	}

	records, err := c.store.GetAllMetadata(ctx)
	if err != nil {
		return fmt.Errorf("failed to read metadata: %w", err)
	}
	for _, record := range records {
		if record.Key == clientIDKey {
			continue
		}
		if err := c.store.DeleteMetadata(ctx, record.Key); err != nil {
			return fmt.Errorf("failed to clear metadata: %w", err)
		}
	}

	c.logger.Info("Local state reset", "user_id", c.session.UserID)
	return nil
}
