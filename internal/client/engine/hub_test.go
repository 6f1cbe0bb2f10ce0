package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	stdsync "sync"

	"github.com/iudanet/listsync/internal/client/remote"
	"github.com/iudanet/listsync/pkg/api"
)

var errHubDown = errors.New("hub: connection refused")

// hub - сервер в памяти: хранилище дельт и рассылка уведомлений
// всем подписчикам. Один пользователь, несколько устройств.
type hub struct {
	lists  map[string]api.ListMeta
	deltas map[string][]api.Delta
	pushes []api.Delta
	subs   map[*hubSub]struct{}
	clock  int64
	down   bool
	mu     stdsync.Mutex
}

type hubSub struct {
	ch      chan api.Notification
	dropped chan struct{}
}

var (
	_ remote.Store      = (*hub)(nil)
	_ remote.Subscriber = (*hub)(nil)
)

func newHub() *hub {
	return &hub{
		lists:  make(map[string]api.ListMeta),
		deltas: make(map[string][]api.Delta),
		subs:   make(map[*hubSub]struct{}),
	}
}

// setDown имитирует потерю сети: запросы падают, подписки рвутся
func (h *hub) setDown(down bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.down = down
	if down {
		for s := range h.subs {
			close(s.dropped)
			delete(h.subs, s)
		}
	}
}

func (h *hub) pushed() []api.Delta {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]api.Delta(nil), h.pushes...)
}

func (h *hub) listCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.lists)
}

// broadcast вызывается под h.mu
func (h *hub) broadcast(n api.Notification) {
	for s := range h.subs {
		select {
		case s.ch <- n:
		default:
		}
	}
}

func (h *hub) Health(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.down {
		return errHubDown
	}
	return nil
}

func (h *hub) CreateList(_ context.Context, meta api.ListMeta) (*api.ListMeta, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.down {
		return nil, errHubDown
	}
	if existing, ok := h.lists[meta.ID]; ok {
		return &existing, nil
	}
	h.lists[meta.ID] = meta
	h.broadcast(api.Notification{Type: api.NotificationListCreated, ListID: meta.ID, List: &meta})
	return &meta, nil
}

func (h *hub) DeleteList(_ context.Context, listID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.down {
		return errHubDown
	}
	if _, ok := h.lists[listID]; !ok {
		return remote.ErrNotFound
	}
	delete(h.lists, listID)
	h.broadcast(api.Notification{Type: api.NotificationListDeleted, ListID: listID})
	return nil
}

func (h *hub) RemoveSelfAsParticipant(ctx context.Context, listID string) error {
	return h.DeleteList(ctx, listID)
}

func (h *hub) GetUserLists(context.Context) ([]api.ListMeta, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.down {
		return nil, errHubDown
	}
	out := make([]api.ListMeta, 0, len(h.lists))
	for _, l := range h.lists {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (h *hub) PushDelta(_ context.Context, listID string, delta api.Delta) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.down {
		return errHubDown
	}
	if _, ok := h.lists[listID]; !ok {
		return fmt.Errorf("%w: list %s", remote.ErrNotFound, listID)
	}
	for _, d := range h.deltas[listID] {
		if d.ID == delta.ID {
			return nil
		}
	}
	h.clock++
	delta.Timestamp = h.clock
	h.deltas[listID] = append(h.deltas[listID], delta)
	h.pushes = append(h.pushes, delta)
	h.broadcast(api.Notification{Type: api.NotificationDeltaInserted, ListID: listID, Delta: &delta})
	return nil
}

func (h *hub) PullDeltas(_ context.Context, listID string, since int64, exclude string) ([]api.Delta, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.down {
		return nil, errHubDown
	}
	var out []api.Delta
	for _, d := range h.deltas[listID] {
		if d.Timestamp > since && (exclude == "" || d.ClientID != exclude) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (h *hub) Subscribe(ctx context.Context, onReady func(), onNotification func(api.Notification)) error {
	h.mu.Lock()
	if h.down {
		h.mu.Unlock()
		return errHubDown
	}
	sub := &hubSub{ch: make(chan api.Notification, 256), dropped: make(chan struct{})}
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.subs, sub)
		h.mu.Unlock()
	}()

	onReady()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-sub.dropped:
			return errHubDown
		case n := <-sub.ch:
			onNotification(n)
		}
	}
}
