package models

import (
	"encoding/json"
	"time"
)

// OperationType тип записи очереди синхронизации
type OperationType string

const (
	OperationListCreate OperationType = "LIST_CREATE"
	OperationItemDelta  OperationType = "ITEM_DELTA"
	OperationListDelete OperationType = "LIST_DELETE"
	OperationListLeave  OperationType = "LIST_LEAVE"
)

// Priority задает порядок отправки внутри одного списка.
// Неизвестные типы отправляются последними.
func (t OperationType) Priority() int {
	switch t {
	case OperationListCreate:
		return 0
	case OperationItemDelta:
		return 1
	case OperationListDelete:
		return 2
	case OperationListLeave:
		return 3
	default:
		return 4
	}
}

// RemovesList сообщает, убирает ли операция список у этого клиента.
func (t OperationType) RemovesList() bool {
	return t == OperationListDelete || t == OperationListLeave
}

// QueueEntry - запись outbox-очереди. ID записи одновременно является
// ID дельты на сервере, поэтому повторная отправка идемпотентна.
type QueueEntry struct {
	EnqueuedAt    time.Time     `json:"enqueued_at"`
	ID            string        `json:"id"`
	ListID        string        `json:"list_id"`
	OperationType OperationType `json:"operation_type"`
	Payload       []byte        `json:"payload,omitempty"` // дельта документа или nil
}

// MetadataRecord - запись таблицы metadata.
type MetadataRecord struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// Watermark - курсор синхронизации одного списка.
type Watermark struct {
	ListID                 string   `json:"list_id"`
	AppliedRemoteUpdateIDs []string `json:"applied_remote_update_ids"`
	LastSyncTimestamp      int64    `json:"last_sync_timestamp"`
}

// MaxAppliedRemoteUpdates ограничивает окно запомненных ID удаленных дельт.
const MaxAppliedRemoteUpdates = 256

// HasApplied reports whether the remote delta id is in the window.
func (w *Watermark) HasApplied(id string) bool {
	for _, applied := range w.AppliedRemoteUpdateIDs {
		if applied == id {
			return true
		}
	}
	return false
}

// Advance запоминает примененную дельту и сдвигает timestamp вперед.
// Timestamp никогда не уменьшается.
func (w *Watermark) Advance(id string, timestamp int64) {
	if timestamp > w.LastSyncTimestamp {
		w.LastSyncTimestamp = timestamp
	}
	w.Remember(id)
}

// Remember запоминает ID примененной дельты, не трогая timestamp: более
// ранние дельты могли быть еще не получены.
func (w *Watermark) Remember(id string) {
	if id == "" || w.HasApplied(id) {
		return
	}
	w.AppliedRemoteUpdateIDs = append(w.AppliedRemoteUpdateIDs, id)
	if over := len(w.AppliedRemoteUpdateIDs) - MaxAppliedRemoteUpdates; over > 0 {
		w.AppliedRemoteUpdateIDs = w.AppliedRemoteUpdateIDs[over:]
	}
}
