package sync

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	stdsync "sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iudanet/listsync/internal/client/events"
	"github.com/iudanet/listsync/internal/client/outbox"
	"github.com/iudanet/listsync/internal/client/remote"
	"github.com/iudanet/listsync/internal/client/storage/boltdb"
	"github.com/iudanet/listsync/internal/document"
	"github.com/iudanet/listsync/internal/models"
	"github.com/iudanet/listsync/pkg/api"
)

const (
	testUserID   = "user-1"
	testClientID = "client-a"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// memoryRemote - серверное хранилище в памяти поверх StoreMock
type memoryRemote struct {
	lists  map[string]api.ListMeta
	deltas map[string][]api.Delta
	err    error
	clock  int64
	mu     stdsync.Mutex
}

func newMemoryRemote() *memoryRemote {
	return &memoryRemote{
		lists:  make(map[string]api.ListMeta),
		deltas: make(map[string][]api.Delta),
	}
}

func (m *memoryRemote) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *memoryRemote) addList(meta api.ListMeta) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists[meta.ID] = meta
}

// insert сохраняет дельту так, будто ее отправил другой клиент
func (m *memoryRemote) insert(listID, clientID string, data []byte) api.Delta {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.clock++
	d := api.Delta{
		ID:        fmt.Sprintf("%s-%s-%d", listID, clientID, m.clock),
		ListID:    listID,
		ClientID:  clientID,
		Data:      data,
		Timestamp: m.clock,
	}
	m.deltas[listID] = append(m.deltas[listID], d)
	return d
}

func (m *memoryRemote) snapshot(listID string) []api.Delta {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]api.Delta(nil), m.deltas[listID]...)
}

func (m *memoryRemote) deltaCount(listID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.deltas[listID])
}

func (m *memoryRemote) store() *remote.StoreMock {
	return &remote.StoreMock{
		CreateListFunc: func(_ context.Context, meta api.ListMeta) (*api.ListMeta, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			if m.err != nil {
				return nil, m.err
			}
			if existing, ok := m.lists[meta.ID]; ok {
				return &existing, nil
			}
			m.lists[meta.ID] = meta
			return &meta, nil
		},
		DeleteListFunc: func(_ context.Context, listID string) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			if m.err != nil {
				return m.err
			}
			if _, ok := m.lists[listID]; !ok {
				return remote.ErrNotFound
			}
			delete(m.lists, listID)
			return nil
		},
		RemoveSelfAsParticipantFunc: func(_ context.Context, listID string) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			if m.err != nil {
				return m.err
			}
			delete(m.lists, listID)
			return nil
		},
		GetUserListsFunc: func(context.Context) ([]api.ListMeta, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			if m.err != nil {
				return nil, m.err
			}
			out := make([]api.ListMeta, 0, len(m.lists))
			for _, l := range m.lists {
				out = append(out, l)
			}
			sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
			return out, nil
		},
		PushDeltaFunc: func(_ context.Context, listID string, delta api.Delta) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			if m.err != nil {
				return m.err
			}
			for _, d := range m.deltas[listID] {
				if d.ID == delta.ID {
					return nil
				}
			}
			m.clock++
			delta.Timestamp = m.clock
			m.deltas[listID] = append(m.deltas[listID], delta)
			return nil
		},
		PullDeltasFunc: func(_ context.Context, listID string, since int64, exclude string) ([]api.Delta, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			if m.err != nil {
				return nil, m.err
			}
			var out []api.Delta
			for _, d := range m.deltas[listID] {
				if d.Timestamp > since && (exclude == "" || d.ClientID != exclude) {
					out = append(out, d)
				}
			}
			return out, nil
		},
	}
}

type fakeConn struct {
	online atomic.Bool
}

func (f *fakeConn) Online() bool { return f.online.Load() }

type countingWaker struct {
	n atomic.Int32
}

func (w *countingWaker) Wake() { w.n.Add(1) }

// recorder запоминает опубликованные события
type recorder struct {
	events []events.Event
	mu     stdsync.Mutex
}

func (r *recorder) Publish(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func (r *recorder) last() events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

type fixture struct {
	c      *Coordinator
	store  *boltdb.Storage
	server *memoryRemote
	remote *remote.StoreMock
	conn   *fakeConn
	waker  *countingWaker
	bus    *recorder
}

func setupCoordinator(t *testing.T, online bool) *fixture {
	t.Helper()

	store, err := boltdb.New(context.Background(), filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	server := newMemoryRemote()
	mock := server.store()
	f := &fixture{
		store:  store,
		server: server,
		remote: mock,
		conn:   &fakeConn{},
		waker:  &countingWaker{},
		bus:    &recorder{},
	}
	f.conn.online.Store(online)

	session := Session{UserID: testUserID, ClientID: testClientID}
	f.c = NewCoordinator(session, Deps{
		Store:  store,
		Remote: mock,
		Sender: outbox.NewSender(mock, testClientID),
		Conn:   f.conn,
		Outbox: f.waker,
		Bus:    f.bus,
	}, setupTestLogger())

	return f
}

func (f *fixture) setOnline(online bool) {
	f.conn.online.Store(online)
}

func (f *fixture) queue(t *testing.T) []*models.QueueEntry {
	t.Helper()
	entries, err := f.store.GetAllQueueEntries(context.Background())
	require.NoError(t, err)
	return entries
}

func opTypes(entries []*models.QueueEntry) []models.OperationType {
	out := make([]models.OperationType, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.OperationType)
	}
	return out
}

func strPtr(s string) *string { return &s }

func (m *memoryRemote) dropList(listID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lists, listID)
}

// remoteList создает на сервере список другого клиента с одним элементом
func remoteList(t *testing.T, server *memoryRemote, listID, title string) []api.Delta {
	t.Helper()

	doc, created := document.Create(listID, "client-b", title, nil, "user-2")
	_, added, err := doc.AddItem("From B")
	require.NoError(t, err)

	server.addList(api.ListMeta{ID: listID, Title: title, OwnerID: "user-2"})
	return []api.Delta{
		server.insert(listID, "client-b", created),
		server.insert(listID, "client-b", added),
	}
}

// peerEdit добавляет элемент от имени client-b в локальный список и
// возвращает дельту, не отправляя ее на сервер
func peerEdit(t *testing.T, f *fixture, listID, text string) []byte {
	t.Helper()

	record, err := f.store.GetList(context.Background(), listID)
	require.NoError(t, err)
	doc, err := document.Load(listID, "client-b", record.Data)
	require.NoError(t, err)
	_, delta, err := doc.AddItem(text)
	require.NoError(t, err)
	return delta
}

func itemContents(list *models.List) []string {
	out := make([]string, 0, len(list.Items))
	for _, it := range list.Items {
		out = append(out, it.Content)
	}
	return out
}
