package crdt

import (
	"sort"
	"sync"
)

// Item fields addressed by OpSetItemField.
const (
	ItemFieldContent   = "content"
	ItemFieldCompleted = "completed"
)

type itemState struct {
	content   Register
	completed Register
	created   ID // ID операции add_item, нулевой - элемент еще не получен
	deleted   bool
}

func (it *itemState) alive() bool {
	return !it.created.IsZero() && !it.deleted
}

// ItemView - материализованное состояние элемента.
type ItemView struct {
	ID        string
	Content   string
	Completed bool
}

// Entry - видимый элемент в порядке последовательности.
// Slot нулевой для элементов без живой позиции (они выводятся в конце).
type Entry struct {
	Item string
	Slot ID
}

// Doc - журнал операций одного документа и его материализованное состояние.
//
// Состояние - множество операций. Повторное применение операции ничего не
// меняет, порядок применения не влияет на результат, а Encode для одинакового
// множества дает одинаковые байты. Для LWW-регистров хранится только
// победившая операция.
type Doc struct {
	clock  *LamportClock
	ops    map[ID]Op
	fields map[string]*Register
	items  map[string]*itemState
	seq    sequence
	mu     sync.RWMutex
}

// NewDoc создает пустой документ для реплики replicaID.
func NewDoc(replicaID string) *Doc {
	return &Doc{
		clock:  NewLamportClock(replicaID),
		ops:    make(map[ID]Op),
		fields: make(map[string]*Register),
		items:  make(map[string]*itemState),
	}
}

// Apply применяет удаленные операции. Возвращает true, если состояние изменилось.
func (d *Doc) Apply(ops []Op) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	sorted := make([]Op, len(ops))
	copy(sorted, ops)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID.Less(sorted[j].ID) })

	changed := false
	rebuild := false
	for _, op := range sorted {
		if op.validate() != nil {
			continue
		}
		d.clock.Witness(op.ID.Counter)
		if _, seen := d.ops[op.ID]; seen {
			continue
		}
		if (op.Kind == OpInsertSlot || op.Kind == OpRemoveSlot) && !d.seq.inOrder(op) {
			d.ops[op.ID] = op
			rebuild = true
			changed = true
			continue
		}
		if d.applyLocked(op) {
			changed = true
		}
	}

	if rebuild {
		d.rebuildSequenceLocked()
	}

	return changed
}

// Local создает операцию со следующим ID часов, применяет и возвращает ее.
func (d *Doc) Local(op Op) Op {
	d.mu.Lock()
	defer d.mu.Unlock()

	op.ID = d.clock.Next()
	d.applyLocked(op)
	return op
}

func (d *Doc) item(id string) *itemState {
	it, ok := d.items[id]
	if !ok {
		it = &itemState{}
		d.items[id] = it
	}
	return it
}

func (d *Doc) applyLocked(op Op) bool {
	switch op.Kind {
	case OpSetField:
		reg, ok := d.fields[op.Field]
		if !ok {
			reg = &Register{}
			d.fields[op.Field] = reg
		}
		return d.setRegister(reg, op)

	case OpSetItemField:
		it := d.item(op.Item)
		switch op.Field {
		case ItemFieldContent:
			return d.setRegister(&it.content, op)
		case ItemFieldCompleted:
			return d.setRegister(&it.completed, op)
		}
		// неизвестное поле элемента сохраняем, чтобы не терять данные более новых клиентов
		d.ops[op.ID] = op
		return true

	case OpAddItem:
		it := d.item(op.Item)
		if it.created.IsZero() || op.ID.Less(it.created) {
			it.created = op.ID
		}
		d.ops[op.ID] = op
		return true

	case OpDeleteItem:
		d.item(op.Item).deleted = true
		d.ops[op.ID] = op
		return true

	case OpInsertSlot, OpRemoveSlot:
		d.ops[op.ID] = op
		d.seq.integrate(op)
		return true
	}

	return false
}

func (d *Doc) setRegister(reg *Register, op Op) bool {
	if !reg.Wins(op.ID) {
		return false
	}
	if reg.IsSet() {
		delete(d.ops, reg.ID)
	}
	reg.Set(op.ID, op.Value)
	d.ops[op.ID] = op
	return true
}

func (d *Doc) rebuildSequenceLocked() {
	seqOps := make([]Op, 0, len(d.ops))
	for _, op := range d.ops {
		if op.Kind == OpInsertSlot || op.Kind == OpRemoveSlot {
			seqOps = append(seqOps, op)
		}
	}
	sort.Slice(seqOps, func(i, j int) bool { return seqOps[i].ID.Less(seqOps[j].ID) })

	d.seq.reset()
	for _, op := range seqOps {
		d.seq.integrate(op)
	}
}

// Field возвращает копию регистра поля списка.
func (d *Doc) Field(name string) Register {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if reg, ok := d.fields[name]; ok {
		return *reg
	}
	return Register{}
}

// Item возвращает живой элемент по ID.
func (d *Doc) Item(id string) (ItemView, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	it, ok := d.items[id]
	if !ok || !it.alive() {
		return ItemView{}, false
	}
	return ItemView{ID: id, Content: it.content.String(), Completed: it.completed.Bool()}, true
}

// Visible возвращает живые элементы в порядке последовательности.
// Элемент, оказавшийся в нескольких слотах после конкурентных перемещений,
// выводится по первому слоту.
func (d *Doc) Visible() []Entry {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]Entry, 0, len(d.items))
	seen := make(map[string]bool, len(d.items))
	for _, sl := range d.seq.slots {
		if sl.removed || seen[sl.item] {
			continue
		}
		it, ok := d.items[sl.item]
		if !ok || !it.alive() {
			continue
		}
		seen[sl.item] = true
		result = append(result, Entry{Item: sl.item, Slot: sl.id})
	}

	var orphans []string
	for id, it := range d.items {
		if it.alive() && !seen[id] {
			orphans = append(orphans, id)
		}
	}
	sort.Slice(orphans, func(i, j int) bool {
		return d.items[orphans[i]].created.Less(d.items[orphans[j]].created)
	})
	for _, id := range orphans {
		result = append(result, Entry{Item: id})
	}

	return result
}

// LiveSlots возвращает все неудаленные слоты элемента.
func (d *Doc) LiveSlots(item string) []ID {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var ids []ID
	for _, sl := range d.seq.slots {
		if sl.item == item && !sl.removed {
			ids = append(ids, sl.id)
		}
	}
	return ids
}

// Tail returns the last slot of the sequence, or nil when it is empty.
func (d *Doc) Tail() *ID {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.seq.tail()
}

// Ops возвращает все операции журнала, отсортированные по ID.
func (d *Doc) Ops() []Op {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ops := make([]Op, 0, len(d.ops))
	for _, op := range d.ops {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].ID.Less(ops[j].ID) })
	return ops
}

// Encode сериализует полное состояние документа.
func (d *Doc) Encode() []byte {
	return Encode(d.Ops())
}
