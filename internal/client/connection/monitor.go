// Package connection отслеживает доступность сети и живость канала
// подписки и выводит из них единый признак online.
package connection

import (
	"log/slog"
	"sync"
)

// State - снимок состояния монитора.
type State struct {
	LocalReachable    bool
	RemoteChannelLive bool
	Online            bool
}

// Listener получает новое значение online при каждом реальном переходе.
type Listener func(online bool)

// Monitor вычисляет online = localReachable && remoteChannelLive.
// Опроса нет: состояние меняется только через SetLocalReachable и
// SetRemoteChannelLive.
type Monitor struct {
	logger    *slog.Logger
	listeners map[uint64]Listener
	state     State
	nextID    uint64
	mu        sync.RWMutex
	// updateMu сериализует обновления вместе с рассылкой, чтобы
	// слушатели видели переходы в том же порядке, в каком они произошли
	updateMu sync.Mutex
}

// NewMonitor создает монитор в состоянии offline.
func NewMonitor(logger *slog.Logger) *Monitor {
	return &Monitor{
		logger:    logger,
		listeners: make(map[uint64]Listener),
	}
}

// SetLocalReachable обновляет сигнал доступности сети.
// Нельзя вызывать из Listener.
func (m *Monitor) SetLocalReachable(reachable bool) {
	m.update(func(s *State) { s.LocalReachable = reachable })
}

// SetRemoteChannelLive обновляет сигнал живости канала подписки.
// Нельзя вызывать из Listener.
func (m *Monitor) SetRemoteChannelLive(live bool) {
	m.update(func(s *State) { s.RemoteChannelLive = live })
}

func (m *Monitor) update(apply func(*State)) {
	m.updateMu.Lock()
	defer m.updateMu.Unlock()

	m.mu.Lock()
	apply(&m.state)
	online := m.state.LocalReachable && m.state.RemoteChannelLive
	changed := online != m.state.Online
	m.state.Online = online

	var listeners []Listener
	if changed {
		listeners = make([]Listener, 0, len(m.listeners))
		for _, l := range m.listeners {
			listeners = append(listeners, l)
		}
	}
	m.mu.Unlock()

	if !changed {
		return
	}

	m.logger.Info("Connection state changed", "online", online)
	for _, l := range listeners {
		l(online)
	}
}

// Online reports the derived online flag.
func (m *Monitor) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.state.Online
}

// State returns a copy of the current state.
func (m *Monitor) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.state
}

// OnChange регистрирует слушателя переходов. Возвращает функцию отписки.
func (m *Monitor) OnChange(l Listener) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := m.nextID
	m.listeners[id] = l

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}
