package events

import (
	"log/slog"
	"sync"
)

// Handler обрабатывает событие. Вызывается синхронно из Publish.
type Handler func(Event)

type subscription struct {
	handler Handler
	id      uint64
}

// Bus - синхронная шина событий. Паника обработчика перехватывается и
// логируется, остальные обработчики все равно получают событие.
type Bus struct {
	logger  *slog.Logger
	byType  map[EventType][]subscription
	allList []subscription
	nextID  uint64
	mu      sync.RWMutex
}

// NewBus creates an empty bus
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		logger: logger,
		byType: make(map[EventType][]subscription),
	}
}

// Publish доставляет событие подписчикам его типа, а события списков -
// еще и подписчикам SubscribeToAllListEvents.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.byType[event.Type])+len(b.allList))
	for _, sub := range b.byType[event.Type] {
		handlers = append(handlers, sub.handler)
	}
	if event.IsListEvent() {
		for _, sub := range b.allList {
			handlers = append(handlers, sub.handler)
		}
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.deliver(h, event)
	}
}

func (b *Bus) deliver(h Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Event handler panicked",
				"event_type", event.Type,
				"list_id", event.ListID,
				"panic", r)
		}
	}()
	h(event)
}

// Subscribe подписывает handler на события типа eventType.
// Возвращает функцию отписки; повторный вызов безопасен.
func (b *Bus) Subscribe(eventType EventType, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.byType[eventType] = append(b.byType[eventType], subscription{id: id, handler: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.byType[eventType] = remove(b.byType[eventType], id)
	}
}

// SubscribeToAllListEvents подписывает handler на все события, относящиеся
// к конкретному списку.
func (b *Bus) SubscribeToAllListEvents(handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.allList = append(b.allList, subscription{id: id, handler: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.allList = remove(b.allList, id)
	}
}

func remove(subs []subscription, id uint64) []subscription {
	out := subs[:0:0]
	for _, s := range subs {
		if s.id != id {
			out = append(out, s)
		}
	}
	return out
}
