package crdt

import (
	"fmt"
	"math"
)

// MaxCounter - наибольший допустимый счетчик операции. Запас до MaxInt64
// не дает часам переполниться после чужой операции с огромным счетчиком.
const MaxCounter int64 = math.MaxInt64 / 2

// ID уникально идентифицирует операцию: (счетчик Лампорта, реплика).
// Порядок на ID тотальный и согласован с причинностью.
type ID struct {
	Replica string `json:"r"`
	Counter int64  `json:"c"`
}

// Less сравнивает идентификаторы сначала по счетчику, затем по реплике.
func (id ID) Less(other ID) bool {
	if id.Counter != other.Counter {
		return id.Counter < other.Counter
	}
	return id.Replica < other.Replica
}

// IsZero reports whether the id was never assigned.
func (id ID) IsZero() bool {
	return id.Counter == 0 && id.Replica == ""
}

func (id ID) String() string {
	return fmt.Sprintf("%d@%s", id.Counter, id.Replica)
}

// OpKind - тип операции над документом.
type OpKind string

const (
	// OpSetField записывает LWW-поле списка (title, description, ...).
	OpSetField OpKind = "set_field"
	// OpAddItem регистрирует новый элемент.
	OpAddItem OpKind = "add_item"
	// OpSetItemField записывает LWW-поле элемента (content, completed).
	OpSetItemField OpKind = "set_item_field"
	// OpDeleteItem помечает элемент удаленным. Удаление побеждает правки.
	OpDeleteItem OpKind = "delete_item"
	// OpInsertSlot вставляет позицию элемента в последовательность (RGA).
	OpInsertSlot OpKind = "insert_slot"
	// OpRemoveSlot удаляет позицию из последовательности.
	OpRemoveSlot OpKind = "remove_slot"
)

// Value - значение LWW-регистра. Все поля nil означают null.
type Value struct {
	Str  *string `json:"s,omitempty"`
	Bool *bool   `json:"b,omitempty"`
	Int  *int64  `json:"n,omitempty"`
}

// StringValue wraps s.
func StringValue(s string) *Value { return &Value{Str: &s} }

// BoolValue wraps b.
func BoolValue(b bool) *Value { return &Value{Bool: &b} }

// IntValue wraps n.
func IntValue(n int64) *Value { return &Value{Int: &n} }

// Op - одна атомарная операция журнала.
type Op struct {
	Value  *Value `json:"v,omitempty"`
	Origin *ID    `json:"o,omitempty"` // insert_slot: слот-предшественник, nil - начало
	Target *ID    `json:"t,omitempty"` // remove_slot: удаляемый слот
	Kind   OpKind `json:"k"`
	Field  string `json:"f,omitempty"`
	Item   string `json:"i,omitempty"`
	ID     ID     `json:"id"`
}

func (op Op) validate() error {
	if op.ID.Counter <= 0 || op.ID.Counter > MaxCounter || op.ID.Replica == "" {
		return fmt.Errorf("invalid op id %s", op.ID)
	}
	switch op.Kind {
	case OpSetField:
		if op.Field == "" {
			return fmt.Errorf("op %s: empty field", op.ID)
		}
	case OpSetItemField:
		if op.Field == "" || op.Item == "" {
			return fmt.Errorf("op %s: empty item field", op.ID)
		}
	case OpAddItem, OpDeleteItem, OpInsertSlot:
		if op.Item == "" {
			return fmt.Errorf("op %s: empty item", op.ID)
		}
	case OpRemoveSlot:
		if op.Target == nil {
			return fmt.Errorf("op %s: missing target", op.ID)
		}
	default:
		return fmt.Errorf("op %s: unknown kind %q", op.ID, op.Kind)
	}
	return nil
}
