package models

import "time"

// Item представляет элемент списка.
type Item struct {
	ID          string `json:"id"`           // ID неизменяемый идентификатор (UUID)
	Content     string `json:"content"`      // Content текст элемента (LWW)
	IsCompleted bool   `json:"is_completed"` // IsCompleted отметка выполнения (LWW)
}

// List - материализованное представление документа списка.
type List struct {
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Description *string   `json:"description,omitempty"`
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	OwnerID     string    `json:"owner_id"`
	Items       []Item    `json:"items"`
}

// CompletedCount возвращает количество выполненных элементов.
func (l *List) CompletedCount() int {
	n := 0
	for _, it := range l.Items {
		if it.IsCompleted {
			n++
		}
	}
	return n
}

// ListRecord - запись таблицы lists: полный снимок документа.
type ListRecord struct {
	ID   string `json:"id"`
	Data []byte `json:"data"`
}
