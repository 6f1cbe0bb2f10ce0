// Package events - внутрипроцессная шина событий для UI-потребителей.
package events

import "time"

// EventType - тип доменного события.
type EventType string

const (
	ListCreatedEvent         EventType = "list-created"
	ListDeletedEvent         EventType = "list-deleted"
	ListLeftEvent            EventType = "list-left"
	ListMetadataChangedEvent EventType = "list-metadata-changed"
	ItemAddedEvent           EventType = "item-added"
	ItemDeletedEvent         EventType = "item-deleted"
	ItemContentChangedEvent  EventType = "item-content-changed"
	ItemCompletedEvent       EventType = "item-completed"
	ItemUncompletedEvent     EventType = "item-uncompleted"
	ItemMovedEvent           EventType = "item-moved"
	BootstrapCompletedEvent  EventType = "bootstrap-completed"
)

// Source сообщает, откуда пришло изменение.
type Source string

const (
	SourceLocal  Source = "local"
	SourceRemote Source = "remote"
)

// Event - событие шины. Payload всегда соответствует Type.
type Event struct {
	Timestamp time.Time
	Payload   Payload
	Type      EventType
	ListID    string
	ItemID    string
}

// Payload - закрытое множество полезных нагрузок, по одной на тип события.
type Payload interface {
	eventType() EventType
}

type ListCreated struct {
	Title   string
	OwnerID string
	Source  Source
}

type ListDeleted struct {
	Source Source
}

type ListLeft struct{}

type ListMetadataChanged struct {
	Description   *string
	Title         string
	Source        Source
	AppliedDeltas int
}

type ItemAdded struct {
	Content string
	Index   int
}

type ItemDeleted struct{}

type ItemContentChanged struct {
	Content string
}

type ItemCompleted struct{}

type ItemUncompleted struct{}

type ItemMoved struct {
	FromIndex int
	ToIndex   int
}

type BootstrapCompleted struct {
	ListsCreated  int
	ListsUpdated  int
	ListsRemoved  int
	DeltasApplied int
}

func (ListCreated) eventType() EventType         { return ListCreatedEvent }
func (ListDeleted) eventType() EventType         { return ListDeletedEvent }
func (ListLeft) eventType() EventType            { return ListLeftEvent }
func (ListMetadataChanged) eventType() EventType { return ListMetadataChangedEvent }
func (ItemAdded) eventType() EventType           { return ItemAddedEvent }
func (ItemDeleted) eventType() EventType         { return ItemDeletedEvent }
func (ItemContentChanged) eventType() EventType  { return ItemContentChangedEvent }
func (ItemCompleted) eventType() EventType       { return ItemCompletedEvent }
func (ItemUncompleted) eventType() EventType     { return ItemUncompletedEvent }
func (ItemMoved) eventType() EventType           { return ItemMovedEvent }
func (BootstrapCompleted) eventType() EventType  { return BootstrapCompletedEvent }

// New собирает событие; тип берется из payload.
func New(listID, itemID string, payload Payload) Event {
	return Event{
		Type:      payload.eventType(),
		ListID:    listID,
		ItemID:    itemID,
		Timestamp: time.Now(),
		Payload:   payload,
	}
}

// IsListEvent reports whether the event concerns a single list.
func (e Event) IsListEvent() bool {
	return e.Type != BootstrapCompletedEvent && e.ListID != ""
}
