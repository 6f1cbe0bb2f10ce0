package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/listsync/pkg/api"
)

func testHubConfig() HubConfig {
	return HubConfig{
		PingPeriod: 50 * time.Millisecond,
		PongWait:   time.Second,
		WriteWait:  time.Second,
		SendBuffer: 4,
	}
}

// startHub поднимает hub за тестовым сервером; пользователь берется из X-User
func startHub(t *testing.T, cfg HubConfig) (*Hub, string) {
	hub := NewHub(setupTestLogger(), cfg)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithUser(r.Context(), r.Header.Get("X-User"), "")
		hub.Subscribe(w, r.WithContext(ctx))
	}))
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url, userID string) *websocket.Conn {
	header := http.Header{}
	header.Set("X-User", userID)

	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

func waitSubscribers(t *testing.T, hub *Hub, userID string, n int) {
	require.Eventually(t, func() bool {
		return hub.Subscribers(userID) == n
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHub_NotifyFansOutPerUser(t *testing.T) {
	hub, url := startHub(t, testHubConfig())

	phone := dial(t, url, "alice")
	laptop := dial(t, url, "alice")
	other := dial(t, url, "bob")
	waitSubscribers(t, hub, "alice", 2)
	waitSubscribers(t, hub, "bob", 1)

	hub.Notify([]string{"alice"}, api.Notification{Type: api.NotificationListDeleted, ListID: "l1"})
	hub.Notify([]string{"alice", "bob"}, api.Notification{
		Type:   api.NotificationDeltaInserted,
		ListID: "l1",
		Delta:  &api.Delta{ID: "d1", ListID: "l1", ClientID: "c", Data: []byte("x"), Timestamp: 7},
	})

	for _, conn := range []*websocket.Conn{phone, laptop} {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

		var first, second api.Notification
		require.NoError(t, conn.ReadJSON(&first))
		require.NoError(t, conn.ReadJSON(&second))
		assert.Equal(t, api.NotificationListDeleted, first.Type)
		assert.Equal(t, api.NotificationDeltaInserted, second.Type)
		require.NotNil(t, second.Delta)
		assert.Equal(t, int64(7), second.Delta.Timestamp)
	}

	_ = other.SetReadDeadline(time.Now().Add(2 * time.Second))
	var n api.Notification
	require.NoError(t, other.ReadJSON(&n))
	assert.Equal(t, api.NotificationDeltaInserted, n.Type)
}

func TestHub_SendsPings(t *testing.T) {
	hub, url := startHub(t, testHubConfig())
	conn := dial(t, url, "alice")
	waitSubscribers(t, hub, "alice", 1)

	pinged := make(chan struct{}, 1)
	conn.SetPingHandler(func(string) error {
		select {
		case pinged <- struct{}{}:
		default:
		}
		return nil
	})

	// Control-фреймы обрабатываются внутри чтения
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	select {
	case <-pinged:
	case <-time.After(2 * time.Second):
		t.Fatal("no ping received")
	}
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	hub, url := startHub(t, testHubConfig())

	conn := dial(t, url, "alice")
	waitSubscribers(t, hub, "alice", 1)

	require.NoError(t, conn.Close())
	waitSubscribers(t, hub, "alice", 0)

	assert.NotPanics(t, func() {
		hub.Notify([]string{"alice"}, api.Notification{Type: api.NotificationListDeleted, ListID: "l1"})
	})
}

func TestHub_CloseEndsSubscriptions(t *testing.T) {
	hub, url := startHub(t, testHubConfig())

	conn := dial(t, url, "alice")
	waitSubscribers(t, hub, "alice", 1)

	hub.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "unexpected error: %v", err)

	waitSubscribers(t, hub, "alice", 0)
}

func TestHub_SubscribeRequiresUser(t *testing.T) {
	hub := NewHub(setupTestLogger(), testHubConfig())

	w := httptest.NewRecorder()
	hub.Subscribe(w, httptest.NewRequest(http.MethodGet, "/api/v1/subscribe", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
