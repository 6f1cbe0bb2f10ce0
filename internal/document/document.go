// Package document реализует реплицируемый документ списка поверх журнала
// операций из пакета crdt. Метаданные списка и поля элементов - LWW-регистры,
// порядок элементов - RGA-последовательность.
package document

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/listsync/internal/crdt"
	"github.com/iudanet/listsync/internal/models"
)

var (
	// ErrItemNotFound indicates that the item does not exist or was deleted
	ErrItemNotFound = errors.New("item not found")

	// ErrDestroyed indicates that the document was destroyed
	ErrDestroyed = errors.New("document destroyed")
)

// Поля списка
const (
	fieldTitle       = "title"
	fieldDescription = "description"
	fieldOwnerID     = "ownerId"
	fieldCreatedAt   = "createdAt"
	fieldUpdatedAt   = "updatedAt"
)

// Delta - закодированная пачка операций. Полное состояние документа
// имеет тот же формат и тоже является дельтой.
type Delta []byte

// Option настраивает ListDocument.
type Option func(*ListDocument)

// WithNow подменяет источник времени для createdAt/updatedAt.
func WithNow(now func() time.Time) Option {
	return func(d *ListDocument) {
		d.now = now
	}
}

// ListDocument - документ одного списка.
type ListDocument struct {
	doc       *crdt.Doc
	now       func() time.Time
	id        string
	mu        sync.Mutex
	destroyed bool
}

// New создает пустой документ. Используется для гидрации и для дельт,
// пришедших раньше создания списка.
func New(id, replicaID string, opts ...Option) *ListDocument {
	d := &ListDocument{
		id:  id,
		doc: crdt.NewDoc(replicaID),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Create создает новый список и возвращает дельту его создания.
func Create(id, replicaID, title string, description *string, ownerID string, opts ...Option) (*ListDocument, Delta) {
	d := New(id, replicaID, opts...)

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now().UnixMilli()
	ops := []crdt.Op{
		d.setField(fieldTitle, crdt.StringValue(title)),
		d.setField(fieldDescription, stringPtrValue(description)),
		d.setField(fieldOwnerID, crdt.StringValue(ownerID)),
		d.setField(fieldCreatedAt, crdt.IntValue(now)),
		d.setField(fieldUpdatedAt, crdt.IntValue(now)),
	}

	return d, Delta(crdt.Encode(ops))
}

// Load восстанавливает документ из сохраненного состояния.
func Load(id, replicaID string, state []byte, opts ...Option) (*ListDocument, error) {
	ops, err := crdt.Decode(state)
	if err != nil {
		return nil, err
	}

	d := New(id, replicaID, opts...)
	d.doc.Apply(ops)
	return d, nil
}

// ID возвращает идентификатор списка.
func (d *ListDocument) ID() string {
	return d.id
}

func stringPtrValue(s *string) *crdt.Value {
	if s == nil {
		return nil
	}
	return crdt.StringValue(*s)
}

func (d *ListDocument) setField(field string, v *crdt.Value) crdt.Op {
	return d.doc.Local(crdt.Op{Kind: crdt.OpSetField, Field: field, Value: v})
}

func (d *ListDocument) setItemField(item, field string, v *crdt.Value) crdt.Op {
	return d.doc.Local(crdt.Op{Kind: crdt.OpSetItemField, Item: item, Field: field, Value: v})
}

// commit добавляет обновление updatedAt и кодирует операции в дельту.
func (d *ListDocument) commit(ops ...crdt.Op) Delta {
	ops = append(ops, d.setField(fieldUpdatedAt, crdt.IntValue(d.now().UnixMilli())))
	return Delta(crdt.Encode(ops))
}

// AddItem добавляет элемент в конец списка.
func (d *ListDocument) AddItem(text string) (string, Delta, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.destroyed {
		return "", nil, ErrDestroyed
	}

	itemID := uuid.New().String()
	ops := []crdt.Op{
		d.doc.Local(crdt.Op{Kind: crdt.OpAddItem, Item: itemID}),
		d.setItemField(itemID, crdt.ItemFieldContent, crdt.StringValue(text)),
		d.setItemField(itemID, crdt.ItemFieldCompleted, crdt.BoolValue(false)),
		d.doc.Local(crdt.Op{Kind: crdt.OpInsertSlot, Item: itemID, Origin: d.doc.Tail()}),
	}

	return itemID, d.commit(ops...), nil
}

func (d *ListDocument) liveItem(id string) (crdt.ItemView, error) {
	if d.destroyed {
		return crdt.ItemView{}, ErrDestroyed
	}
	item, ok := d.doc.Item(id)
	if !ok {
		return crdt.ItemView{}, ErrItemNotFound
	}
	return item, nil
}

// EditItem меняет текст элемента.
func (d *ListDocument) EditItem(id, text string) (Delta, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.liveItem(id); err != nil {
		return nil, err
	}

	return d.commit(d.setItemField(id, crdt.ItemFieldContent, crdt.StringValue(text))), nil
}

// DeleteItem удаляет элемент. Удаление побеждает конкурентные правки.
func (d *ListDocument) DeleteItem(id string) (Delta, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.liveItem(id); err != nil {
		return nil, err
	}

	return d.commit(d.doc.Local(crdt.Op{Kind: crdt.OpDeleteItem, Item: id})), nil
}

// ToggleItem инвертирует отметку выполнения и возвращает новое значение.
func (d *ListDocument) ToggleItem(id string) (bool, Delta, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	item, err := d.liveItem(id)
	if err != nil {
		return false, nil, err
	}

	completed := !item.Completed
	return completed, d.commit(d.setItemField(id, crdt.ItemFieldCompleted, crdt.BoolValue(completed))), nil
}

// MoveItem перемещает элемент на позицию newIndex (с ограничением диапазоном
// [0, len-1]). Возвращает исходную и итоговую позиции. Перемещение на текущую
// позицию не создает дельту.
func (d *ListDocument) MoveItem(id string, newIndex int) (int, int, Delta, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.liveItem(id); err != nil {
		return 0, 0, nil, err
	}

	entries := d.doc.Visible()
	from := indexOf(entries, id)

	to := newIndex
	if to < 0 {
		to = 0
	}
	if to > len(entries)-1 {
		to = len(entries) - 1
	}
	if to == from {
		return from, to, nil, nil
	}

	rest := make([]crdt.Entry, 0, len(entries)-1)
	rest = append(rest, entries[:from]...)
	rest = append(rest, entries[from+1:]...)

	// Предшественник в новой позиции; элементы без слота пропускаем
	var origin *crdt.ID
	for i := to - 1; i >= 0; i-- {
		if !rest[i].Slot.IsZero() {
			slot := rest[i].Slot
			origin = &slot
			break
		}
	}

	var ops []crdt.Op
	for _, slot := range d.doc.LiveSlots(id) {
		target := slot
		ops = append(ops, d.doc.Local(crdt.Op{Kind: crdt.OpRemoveSlot, Target: &target}))
	}
	ops = append(ops, d.doc.Local(crdt.Op{Kind: crdt.OpInsertSlot, Item: id, Origin: origin}))

	return from, to, d.commit(ops...), nil
}

func indexOf(entries []crdt.Entry, id string) int {
	for i, e := range entries {
		if e.Item == id {
			return i
		}
	}
	return -1
}

// EditTitle меняет название списка.
func (d *ListDocument) EditTitle(title string) (Delta, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.destroyed {
		return nil, ErrDestroyed
	}
	return d.commit(d.setField(fieldTitle, crdt.StringValue(title))), nil
}

// EditDescription меняет описание списка; nil очищает его.
func (d *ListDocument) EditDescription(description *string) (Delta, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.destroyed {
		return nil, ErrDestroyed
	}
	return d.commit(d.setField(fieldDescription, stringPtrValue(description))), nil
}

// EditMetadata меняет название и/или описание одной дельтой.
// Нулевые аргументы оставляют поле без изменений.
func (d *ListDocument) EditMetadata(title *string, description **string) (Delta, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.destroyed {
		return nil, ErrDestroyed
	}

	var ops []crdt.Op
	if title != nil {
		ops = append(ops, d.setField(fieldTitle, crdt.StringValue(*title)))
	}
	if description != nil {
		ops = append(ops, d.setField(fieldDescription, stringPtrValue(*description)))
	}
	if len(ops) == 0 {
		return nil, nil
	}
	return d.commit(ops...), nil
}

// ClearCompleted удаляет все выполненные элементы и возвращает их ID.
func (d *ListDocument) ClearCompleted() ([]string, Delta, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.destroyed {
		return nil, nil, ErrDestroyed
	}

	var removed []string
	var ops []crdt.Op
	for _, e := range d.doc.Visible() {
		item, ok := d.doc.Item(e.Item)
		if !ok || !item.Completed {
			continue
		}
		removed = append(removed, e.Item)
		ops = append(ops, d.doc.Local(crdt.Op{Kind: crdt.OpDeleteItem, Item: e.Item}))
	}
	if len(ops) == 0 {
		return nil, nil, nil
	}

	return removed, d.commit(ops...), nil
}

// EncodeState возвращает полное состояние документа.
func (d *ListDocument) EncodeState() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.doc.Encode()
}

// ApplyDelta сливает удаленную дельту. Возвращает true, если документ изменился.
// Для некорректных байтов возвращается *crdt.DecodeError, состояние не меняется.
func (d *ListDocument) ApplyDelta(data []byte) (bool, error) {
	ops, err := crdt.Decode(data)
	if err != nil {
		return false, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.destroyed {
		return false, ErrDestroyed
	}
	return d.doc.Apply(ops), nil
}

// Destroy освобождает документ. Дальнейшие операции возвращают ErrDestroyed.
func (d *ListDocument) Destroy() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.destroyed = true
	d.doc = crdt.NewDoc("")
}

// Items возвращает видимые элементы по порядку.
func (d *ListDocument) Items() []models.Item {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.itemsLocked()
}

func (d *ListDocument) itemsLocked() []models.Item {
	entries := d.doc.Visible()
	items := make([]models.Item, 0, len(entries))
	for _, e := range entries {
		view, ok := d.doc.Item(e.Item)
		if !ok {
			continue
		}
		items = append(items, models.Item{ID: view.ID, Content: view.Content, IsCompleted: view.Completed})
	}
	return items
}

// Item возвращает элемент по ID.
func (d *ListDocument) Item(id string) (models.Item, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	view, ok := d.doc.Item(id)
	if !ok {
		return models.Item{}, false
	}
	return models.Item{ID: view.ID, Content: view.Content, IsCompleted: view.Completed}, true
}

// IndexOf возвращает позицию элемента или -1.
func (d *ListDocument) IndexOf(id string) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return indexOf(d.doc.Visible(), id)
}

// Snapshot возвращает материализованный список.
func (d *ListDocument) Snapshot() models.List {
	d.mu.Lock()
	defer d.mu.Unlock()

	title := d.doc.Field(fieldTitle)
	description := d.doc.Field(fieldDescription)
	owner := d.doc.Field(fieldOwnerID)
	created := d.doc.Field(fieldCreatedAt)
	updated := d.doc.Field(fieldUpdatedAt)

	list := models.List{
		ID:          d.id,
		Title:       title.String(),
		Description: description.StringPtr(),
		OwnerID:     owner.String(),
		Items:       d.itemsLocked(),
	}
	if created.IsSet() {
		list.CreatedAt = time.UnixMilli(created.Int()).UTC()
	}
	if updated.IsSet() {
		list.UpdatedAt = time.UnixMilli(updated.Int()).UTC()
	}
	return list
}
