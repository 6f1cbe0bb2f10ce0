package api

import "time"

// ListMeta - минимальные метаданные списка без содержимого
type ListMeta struct {
	CreatedAt   time.Time `json:"created_at"`
	Description *string   `json:"description,omitempty"`
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	OwnerID     string    `json:"owner_id"`
}

// ListsResponse представляет ответ GET /api/v1/lists
type ListsResponse struct {
	Lists []ListMeta `json:"lists"`
}

// Delta - дельта документа на сервере.
// ID задается клиентом, Timestamp - сервером (монотонный в пределах сервера).
type Delta struct {
	ID        string `json:"id"`
	ListID    string `json:"list_id"`
	ClientID  string `json:"client_id"`
	Data      []byte `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

// PushDeltaResponse представляет ответ POST /api/v1/lists/{id}/deltas
type PushDeltaResponse struct {
	Timestamp int64 `json:"timestamp"` // присвоенный сервером timestamp
	Duplicate bool  `json:"duplicate"` // дельта с таким ID уже была принята
}

// DeltasResponse представляет ответ GET /api/v1/lists/{id}/deltas
type DeltasResponse struct {
	Deltas []Delta `json:"deltas"` // по возрастанию timestamp
}

// NotificationType тип push-уведомления
type NotificationType string

const (
	NotificationDeltaInserted NotificationType = "delta_inserted"
	NotificationListCreated   NotificationType = "list_created"
	NotificationListDeleted   NotificationType = "list_deleted"
)

// Notification - сообщение websocket-канала подписки
type Notification struct {
	Delta  *Delta           `json:"delta,omitempty"`
	List   *ListMeta        `json:"list,omitempty"`
	Type   NotificationType `json:"type"`
	ListID string           `json:"list_id"`
}
