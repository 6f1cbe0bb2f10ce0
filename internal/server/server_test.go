package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/listsync/internal/client/api"
	"github.com/iudanet/listsync/internal/client/engine"
	"github.com/iudanet/listsync/internal/client/listener"
	"github.com/iudanet/listsync/internal/client/outbox"
	"github.com/iudanet/listsync/internal/client/remote"
	"github.com/iudanet/listsync/internal/server/handlers"
	"github.com/iudanet/listsync/internal/server/storage/sqlite"
	dto "github.com/iudanet/listsync/pkg/api"
)

const (
	waitFor = 5 * time.Second
	tick    = 10 * time.Millisecond
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Version = "test"
	cfg.JWT = handlers.JWTConfig{Secret: []byte("test-secret"), AccessTokenTTL: time.Hour}
	cfg.Hub.PingPeriod = 100 * time.Millisecond
	cfg.ShutdownTimeout = time.Second
	return cfg
}

// startServer поднимает сервер на in-memory базе
func startServer(t *testing.T, cfg Config) (*Server, *httptest.Server) {
	t.Helper()

	store, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)

	srv := New(cfg, store, setupTestLogger())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Hub().Close()
		ts.Close()
		srv.close()
		_ = store.Close()
	})

	return srv, ts
}

func issueToken(t *testing.T, cfg Config, userID string) string {
	t.Helper()
	token, _, err := handlers.GenerateAccessToken(cfg.JWT, userID, userID)
	require.NoError(t, err)
	return token
}

func TestServer_HealthIsPublic(t *testing.T) {
	_, ts := startServer(t, testConfig())

	client := api.NewClient(ts.URL, "")
	assert.NoError(t, client.Health(context.Background()))

	_, err := client.GetUserLists(context.Background())
	assert.ErrorIs(t, err, remote.ErrUnauthorized)
}

func TestServer_RemoteStoreContract(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	_, ts := startServer(t, cfg)

	alice := api.NewClient(ts.URL, issueToken(t, cfg, "alice"))
	bob := api.NewClient(ts.URL, issueToken(t, cfg, "bob"))

	listID := uuid.New().String()
	meta := dto.ListMeta{ID: listID, Title: "Groceries", OwnerID: "alice", CreatedAt: time.Now()}

	created, err := alice.CreateList(ctx, meta)
	require.NoError(t, err)
	assert.Equal(t, "alice", created.OwnerID)

	// Повторное создание не ошибка
	_, err = alice.CreateList(ctx, meta)
	require.NoError(t, err)

	delta := dto.Delta{ID: uuid.New().String(), ListID: listID, ClientID: "phone", Data: []byte{0x28, 0xb5, 0x2f, 0xfd}}
	require.NoError(t, alice.PushDelta(ctx, listID, delta))
	require.NoError(t, alice.PushDelta(ctx, listID, delta), "redelivery is accepted")

	deltas, err := alice.PullDeltas(ctx, listID, 0, "")
	require.NoError(t, err)
	require.Len(t, deltas, 1)
	assert.Equal(t, delta.Data, deltas[0].Data)
	assert.Positive(t, deltas[0].Timestamp)

	deltas, err = alice.PullDeltas(ctx, listID, 0, "phone")
	require.NoError(t, err)
	assert.Empty(t, deltas)

	// Чужой список недоступен
	_, err = bob.PullDeltas(ctx, listID, 0, "")
	assert.ErrorIs(t, err, remote.ErrForbidden)
	assert.True(t, remote.IsPermanent(err))

	err = bob.DeleteList(ctx, listID)
	assert.ErrorIs(t, err, remote.ErrForbidden)

	require.NoError(t, alice.DeleteList(ctx, listID))
	err = alice.PushDelta(ctx, listID, dto.Delta{ID: uuid.New().String(), ClientID: "phone", Data: []byte("x")})
	assert.ErrorIs(t, err, remote.ErrNotFound)
	assert.ErrorIs(t, alice.RemoveSelfAsParticipant(ctx, listID), remote.ErrNotFound)

	lists, err := alice.GetUserLists(ctx)
	require.NoError(t, err)
	assert.Empty(t, lists)
}

func TestServer_SubscriptionDeliversNotifications(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testConfig()
	srv, ts := startServer(t, cfg)
	client := api.NewClient(ts.URL, issueToken(t, cfg, "alice"))

	ready := make(chan struct{})
	notifications := make(chan dto.Notification, 10)
	done := make(chan error, 1)
	go func() {
		done <- client.Subscribe(ctx, func() { close(ready) }, func(n dto.Notification) { notifications <- n })
	}()

	select {
	case <-ready:
	case <-time.After(waitFor):
		t.Fatal("subscription was not established")
	}
	require.Eventually(t, func() bool { return srv.Hub().Subscribers("alice") == 1 }, waitFor, tick)

	listID := uuid.New().String()
	_, err := client.CreateList(ctx, dto.ListMeta{ID: listID, Title: "Groceries"})
	require.NoError(t, err)
	require.NoError(t, client.PushDelta(ctx, listID, dto.Delta{ID: "d1", ClientID: "phone", Data: []byte("x")}))

	want := []dto.NotificationType{dto.NotificationListCreated, dto.NotificationDeltaInserted}
	for _, typ := range want {
		select {
		case n := <-notifications:
			assert.Equal(t, typ, n.Type)
			assert.Equal(t, listID, n.ListID)
		case <-time.After(waitFor):
			t.Fatalf("no %s notification", typ)
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(waitFor):
		t.Fatal("subscription did not stop")
	}
}

func TestServer_RateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = 2
	_, ts := startServer(t, cfg)

	token := issueToken(t, cfg, "alice")
	get := func() int {
		req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/lists", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusOK, get())
	assert.Equal(t, http.StatusOK, get())
	assert.Equal(t, http.StatusTooManyRequests, get())
}

func TestServer_ServeStopsOnCancel(t *testing.T) {
	store, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	defer func() {
		_ = store.Close()
	}()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- New(testConfig(), store, setupTestLogger()).Serve(ctx, ln)
	}()

	client := api.NewClient("http://"+ln.Addr().String(), "")
	require.Eventually(t, func() bool { return client.Health(context.Background()) == nil }, waitFor, tick)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("server did not stop")
	}
}

func engineConfig() engine.Config {
	return engine.Config{
		Outbox: outbox.Config{
			BaseInterval: 20 * time.Millisecond,
			MaxInterval:  100 * time.Millisecond,
			BackoffAfter: 3,
			ParkAfter:    50,
			Debounce:     5 * time.Millisecond,
		},
		Listener: listener.Config{
			MinBackoff: 10 * time.Millisecond,
			MaxBackoff: 50 * time.Millisecond,
		},
		ProbeInterval: 50 * time.Millisecond,
		ProbeTimeout:  time.Second,
	}
}

func openEngine(t *testing.T, serverURL, token string) *engine.Engine {
	t.Helper()

	e, err := engine.Open(context.Background(), engine.Options{
		ServerURL: serverURL,
		DBPath:    filepath.Join(t.TempDir(), "client.db"),
		Token:     token,
		Config:    engineConfig(),
	}, setupTestLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				t.Errorf("engine stopped with error: %v", err)
			}
		case <-time.After(waitFor):
			t.Error("engine did not stop")
		}
		_ = e.Close()
	})

	require.Eventually(t, func() bool { return e.Monitor().Online() }, waitFor, tick)
	return e
}

// Два устройства пользователя сходятся через настоящий сервер
func TestServer_EnginesConverge(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	_, ts := startServer(t, cfg)

	token := issueToken(t, cfg, "alice")
	phone := openEngine(t, ts.URL, token)
	laptop := openEngine(t, ts.URL, token)

	list, err := phone.Coordinator().CreateList(ctx, "Groceries", nil)
	require.NoError(t, err)
	milkID, err := phone.Coordinator().AddItem(ctx, list.ID, "Milk")
	require.NoError(t, err)
	_, err = phone.Coordinator().AddItem(ctx, list.ID, "Eggs")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, err := laptop.Coordinator().GetList(ctx, list.ID)
		return err == nil && len(got.Items) == 2
	}, waitFor, tick)

	_, err = laptop.Coordinator().ToggleItem(ctx, list.ID, milkID)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, err := phone.Coordinator().GetList(ctx, list.ID)
		if err != nil {
			return false
		}
		for _, item := range got.Items {
			if item.ID == milkID {
				return item.IsCompleted
			}
		}
		return false
	}, waitFor, tick)

	require.NoError(t, phone.Coordinator().DeleteList(ctx, list.ID))
	require.Eventually(t, func() bool {
		_, err := laptop.Coordinator().GetList(ctx, list.ID)
		return err != nil
	}, waitFor, tick)
}
