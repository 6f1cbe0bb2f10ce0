package handlers

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/iudanet/listsync/pkg/api"
)

// Notifier рассылает уведомления подписанным устройствам пользователей
type Notifier interface {
	Notify(userIDs []string, n api.Notification)
}

// HubConfig - параметры websocket-подписок
type HubConfig struct {
	PingPeriod time.Duration // период ping; должен быть меньше ожидания pong клиентом
	PongWait   time.Duration // сколько ждать pong от клиента
	WriteWait  time.Duration
	SendBuffer int // уведомлений в очереди одного подписчика
}

// DefaultHubConfig returns the production defaults
func DefaultHubConfig() HubConfig {
	return HubConfig{
		PingPeriod: 30 * time.Second,
		PongWait:   60 * time.Second,
		WriteWait:  10 * time.Second,
		SendBuffer: 256,
	}
}

// subscription - одно websocket-соединение
type subscription struct {
	conn   *websocket.Conn
	send   chan api.Notification
	done   chan struct{}
	userID string
	once   sync.Once
}

func (s *subscription) close() {
	s.once.Do(func() {
		close(s.done)
	})
}

// Hub держит websocket-подписки и рассылает по ним уведомления.
// Живое соединение и есть признак доступности канала для клиента.
type Hub struct {
	logger   *slog.Logger
	subs     map[string]map[*subscription]struct{}
	upgrader websocket.Upgrader
	cfg      HubConfig
	mu       sync.RWMutex
}

var _ Notifier = (*Hub)(nil)

// NewHub создает пустой hub
func NewHub(logger *slog.Logger, cfg HubConfig) *Hub {
	return &Hub{
		logger: logger,
		cfg:    cfg,
		subs:   make(map[string]map[*subscription]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Клиенты - не браузеры, проверка origin не нужна
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Subscribe обрабатывает GET /api/v1/subscribe
func (h *Hub) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.logger.Error("User ID not found in context")
		sendError(w, h.logger, "missing user", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже ответил клиенту
		h.logger.Warn("Failed to upgrade connection", "user_id", userID, "error", err)
		return
	}

	sub := &subscription{
		conn:   conn,
		userID: userID,
		send:   make(chan api.Notification, h.cfg.SendBuffer),
		done:   make(chan struct{}),
	}
	h.register(sub)
	h.logger.Info("Subscriber connected", "user_id", userID, "remote_addr", r.RemoteAddr)

	go h.writeLoop(sub)
	h.readLoop(sub)

	h.unregister(sub)
	sub.close()
	h.logger.Info("Subscriber disconnected", "user_id", userID)
}

// readLoop читает соединение только ради pong и закрытия; клиент ничего не присылает
func (h *Hub) readLoop(sub *subscription) {
	sub.conn.SetReadLimit(512)
	_ = sub.conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	sub.conn.SetPongHandler(func(string) error {
		return sub.conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	})

	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("Subscriber read failed", "user_id", sub.userID, "error", err)
			}
			return
		}
		select {
		case <-sub.done:
			return
		default:
		}
	}
}

func (h *Hub) writeLoop(sub *subscription) {
	ticker := time.NewTicker(h.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = sub.conn.Close()
	}()

	for {
		select {
		case n := <-sub.send:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteWait))
			if err := sub.conn.WriteJSON(n); err != nil {
				h.logger.Debug("Failed to write notification", "user_id", sub.userID, "error", err)
				return
			}
		case <-ticker.C:
			if err := sub.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.cfg.WriteWait)); err != nil {
				h.logger.Debug("Failed to ping subscriber", "user_id", sub.userID, "error", err)
				return
			}
		case <-sub.done:
			_ = sub.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(h.cfg.WriteWait))
			return
		}
	}
}

// Notify ставит уведомление в очередь всех подписок пользователей.
// Не блокируется: подписка с переполненной очередью закрывается, клиент
// переподключится и догонит состояние через pull.
func (h *Hub) Notify(userIDs []string, n api.Notification) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, userID := range userIDs {
		for sub := range h.subs[userID] {
			select {
			case sub.send <- n:
			case <-sub.done:
			default:
				h.logger.Warn("Subscriber is too slow, dropping connection", "user_id", userID)
				sub.close()
			}
		}
	}
}

// Subscribers возвращает число открытых подписок пользователя
func (h *Hub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subs[userID])
}

// Close закрывает все подписки
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, subs := range h.subs {
		for sub := range subs {
			sub.close()
		}
	}
}

func (h *Hub) register(sub *subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subs[sub.userID] == nil {
		h.subs[sub.userID] = make(map[*subscription]struct{})
	}
	h.subs[sub.userID][sub] = struct{}{}
}

func (h *Hub) unregister(sub *subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.subs[sub.userID], sub)
	if len(h.subs[sub.userID]) == 0 {
		delete(h.subs, sub.userID)
	}
}
