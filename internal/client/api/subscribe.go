package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/iudanet/listsync/pkg/api"
)

const (
	// pongWait - сколько ждать ping сервера, прежде чем считать канал мертвым
	pongWait  = 60 * time.Second
	writeWait = 10 * time.Second
)

// Subscribe открывает websocket-канал уведомлений и читает его до разрыва
// или отмены ctx. onReady вызывается после рукопожатия.
func (c *Client) Subscribe(ctx context.Context, onReady func(), onNotification func(api.Notification)) error {
	conn, resp, err := c.dialer.DialContext(ctx, c.websocketURL("/api/v1/subscribe"), c.authHeader())
	if err != nil {
		if resp != nil {
			defer func() {
				_ = resp.Body.Close()
			}()
			if resp.StatusCode != http.StatusSwitchingProtocols {
				return fmt.Errorf("subscribe handshake failed: %w", statusError(resp.StatusCode, nil))
			}
		}
		return fmt.Errorf("subscribe dial failed: %w", err)
	}

	// Закрываем соединение при отмене контекста, чтобы прервать чтение
	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		_ = conn.Close()
	})
	defer func() {
		stop()
		_ = conn.Close()
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(data string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
	})

	onReady()

	for {
		var n api.Notification
		if err := conn.ReadJSON(&n); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return errors.New("subscription closed by server")
			}
			return fmt.Errorf("subscription read failed: %w", err)
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		onNotification(n)
	}
}

// websocketURL переводит http(s) адрес сервера в ws(s)
func (c *Client) websocketURL(path string) string {
	base := c.baseURL
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + path
}
