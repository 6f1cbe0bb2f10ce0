package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	stdsync "sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/listsync/internal/client/engine"
	"github.com/iudanet/listsync/internal/client/events"
	"github.com/iudanet/listsync/internal/client/iocli"
	"github.com/iudanet/listsync/internal/client/remote"
	"github.com/iudanet/listsync/internal/client/storage/boltdb"
	"github.com/iudanet/listsync/pkg/api"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// console собирает весь вывод команды
type console struct {
	out   strings.Builder
	input []string
	mu    stdsync.Mutex
}

func (c *console) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out.String()
}

func (c *console) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.out.Reset()
}

func (c *console) mock() *iocli.IOMock {
	write := func(s string) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.out.WriteString(s)
	}
	return &iocli.IOMock{
		PrintlnFunc: func(a ...any) { write(fmt.Sprintln(a...)) },
		PrintfFunc:  func(format string, a ...any) { write(fmt.Sprintf(format, a...)) },
		WriteFunc: func(p []byte) (int, error) {
			write(string(p))
			return len(p), nil
		},
		ReadInputFunc: func(prompt string) (string, error) {
			write(prompt)
			c.mu.Lock()
			defer c.mu.Unlock()
			if len(c.input) == 0 {
				return "", io.EOF
			}
			line := c.input[0]
			c.input = c.input[1:]
			return line, nil
		},
	}
}

// setupCli создает CLI над офлайн движком; remote может быть nil
func setupCli(t *testing.T, store *remote.StoreMock, sub *remote.SubscriberMock) (*Cli, *console, *engine.Engine) {
	t.Helper()

	bolt, err := boltdb.New(context.Background(), filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)

	if store == nil {
		store = &remote.StoreMock{}
	}
	if sub == nil {
		sub = &remote.SubscriberMock{}
	}

	e, err := engine.New(context.Background(), engine.Deps{
		Store:      bolt,
		Remote:     store,
		Subscriber: sub,
		UserID:     "user-1",
	}, engine.DefaultConfig(), setupTestLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })

	out := &console{}
	return New(out.mock(), e), out, e
}

func run(t *testing.T, c *Cli, name string, args ...string) {
	t.Helper()
	require.NoError(t, c.Run(context.Background(), name, args))
}

func TestCli_EmptyLists(t *testing.T) {
	c, out, _ := setupCli(t, nil, nil)

	run(t, c, "lists")
	assert.Contains(t, out.String(), "No lists found.")
}

func TestCli_ListLifecycle(t *testing.T) {
	c, out, _ := setupCli(t, nil, nil)

	run(t, c, "create", "Groceries", "for", "the", "weekend")
	assert.Contains(t, out.String(), `Created list "Groceries"`)

	run(t, c, "add", "groceries", "Milk")
	run(t, c, "add", "Groceries", "Free", "range", "eggs")
	run(t, c, "add", "Groceries", "Bread")

	out.reset()
	run(t, c, "show", "Groceries")
	assert.Contains(t, out.String(), "=== Groceries ===")
	assert.Contains(t, out.String(), "for the weekend")
	assert.Contains(t, out.String(), "1. [ ] Milk\n2. [ ] Free range eggs\n3. [ ] Bread")

	run(t, c, "toggle", "Groceries", "1")
	run(t, c, "move", "Groceries", "3", "1")
	run(t, c, "edit", "Groceries", "3", "Brown", "eggs")

	out.reset()
	run(t, c, "show", "Groceries")
	assert.Contains(t, out.String(), "1. [ ] Bread\n2. [x] Milk\n3. [ ] Brown eggs")

	out.reset()
	run(t, c, "lists")
	assert.Contains(t, out.String(), "Found 1 list(s)")
	assert.Contains(t, out.String(), "Items: 1/3 done")

	out.reset()
	run(t, c, "clear-completed", "Groceries")
	assert.Contains(t, out.String(), "Removed 1 completed item(s)")

	run(t, c, "remove", "Groceries", "1")
	out.reset()
	run(t, c, "show", "Groceries")
	assert.Contains(t, out.String(), "1. [ ] Brown eggs")
	assert.NotContains(t, out.String(), "Bread")
}

func TestCli_RenameAndDescribe(t *testing.T) {
	c, out, e := setupCli(t, nil, nil)
	ctx := context.Background()

	run(t, c, "create", "Todo")
	run(t, c, "rename", "Todo", "Chores")
	run(t, c, "describe", "Chores", "Saturday", "morning")

	lists, err := e.Coordinator().GetAllLists(ctx)
	require.NoError(t, err)
	require.Len(t, lists, 1)
	assert.Equal(t, "Chores", lists[0].Title)
	require.NotNil(t, lists[0].Description)
	assert.Equal(t, "Saturday morning", *lists[0].Description)

	run(t, c, "describe", "Chores")
	got, err := e.Coordinator().GetList(ctx, lists[0].ID)
	require.NoError(t, err)
	assert.Nil(t, got.Description)
	assert.Contains(t, out.String(), `Renamed "Todo" to "Chores"`)
}

func TestCli_ListReferences(t *testing.T) {
	c, _, e := setupCli(t, nil, nil)
	ctx := context.Background()

	run(t, c, "create", "Dup")
	run(t, c, "create", "dup")

	err := c.Run(ctx, "show", []string{"Dup"})
	assert.ErrorIs(t, err, ErrAmbiguousList)

	lists, err := e.Coordinator().GetAllLists(ctx)
	require.NoError(t, err)
	require.Len(t, lists, 2)

	// префикс ID однозначно выбирает список
	run(t, c, "add", lists[1].ID[:12], "only here")
	got, err := e.Coordinator().GetList(ctx, lists[1].ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)

	err = c.Run(ctx, "show", []string{"missing"})
	assert.ErrorIs(t, err, ErrListNotFound)
}

func TestCli_ItemReferences(t *testing.T) {
	c, _, e := setupCli(t, nil, nil)
	ctx := context.Background()

	run(t, c, "create", "L")
	run(t, c, "add", "L", "one")

	lists, err := e.Coordinator().GetAllLists(ctx)
	require.NoError(t, err)
	itemID := lists[0].Items[0].ID

	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{name: "position out of range", args: []string{"L", "2"}, wantErr: ErrItemNotFound},
		{name: "zero position", args: []string{"L", "0"}, wantErr: ErrItemNotFound},
		{name: "unknown id", args: []string{"L", "zzz"}, wantErr: ErrItemNotFound},
		{name: "id prefix", args: []string{"L", itemID[:9]}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Run(ctx, "toggle", tt.args)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}

	err = c.Run(ctx, "move", []string{"L", "1", "5"})
	assert.Error(t, err)
}

func TestCli_Arguments(t *testing.T) {
	c, _, _ := setupCli(t, nil, nil)
	ctx := context.Background()

	err := c.Run(ctx, "frobnicate", nil)
	assert.ErrorIs(t, err, ErrUnknownCommand)
	assert.False(t, Known("frobnicate"))
	assert.True(t, Known("clear-completed"))

	err = c.Run(ctx, "edit", []string{"L", "1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Usage: listsync edit <list> <item> <text>")
}

func TestCli_RejectsInvalidText(t *testing.T) {
	c, _, e := setupCli(t, nil, nil)
	ctx := context.Background()

	run(t, c, "create", "L")

	tests := []struct {
		name    string
		command string
		args    []string
	}{
		{name: "blank title", command: "create", args: []string{"   "}},
		{name: "long title", command: "rename", args: []string{"L", strings.Repeat("x", 201)}},
		{name: "control characters", command: "add", args: []string{"L", "bad\ttext"}},
		{name: "long item", command: "add", args: []string{"L", strings.Repeat("y", 1001)}},
		{name: "long description", command: "describe", args: []string{"L", strings.Repeat("z", 2001)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, c.Run(ctx, tt.command, tt.args))
		})
	}

	lists, err := e.Coordinator().GetAllLists(ctx)
	require.NoError(t, err)
	require.Len(t, lists, 1)
	assert.Equal(t, "L", lists[0].Title)
	assert.Empty(t, lists[0].Items)
}

func TestCli_StatusShowsPendingChanges(t *testing.T) {
	c, out, e := setupCli(t, nil, nil)

	run(t, c, "create", "Offline")
	run(t, c, "add", "Offline", "queued")

	out.reset()
	run(t, c, "status")
	assert.Contains(t, out.String(), "User:   user-1")
	assert.Contains(t, out.String(), "Device: "+e.Coordinator().Session().ClientID)
	assert.Contains(t, out.String(), "Pending sync: 2 change(s)")
	assert.Contains(t, out.String(), "never  Offline")
}

func TestCli_DeleteAndLeave(t *testing.T) {
	c, out, _ := setupCli(t, nil, nil)

	run(t, c, "create", "A")
	run(t, c, "create", "B")
	run(t, c, "delete", "A")
	run(t, c, "leave", "B")

	out.reset()
	run(t, c, "lists")
	assert.Contains(t, out.String(), "No lists found.")

	out.reset()
	run(t, c, "status")
	// создание и удаление каждого списка: удаление отменяет остальное
	assert.Contains(t, out.String(), "Pending sync: 2 change(s)")
}

func TestCli_Reset(t *testing.T) {
	c, out, e := setupCli(t, nil, nil)
	ctx := context.Background()

	run(t, c, "create", "Keep")

	out.input = []string{"no"}
	run(t, c, "reset")
	assert.Contains(t, out.String(), "Aborted.")

	lists, err := e.Coordinator().GetAllLists(ctx)
	require.NoError(t, err)
	assert.Len(t, lists, 1)

	out.input = []string{"YES"}
	run(t, c, "reset")
	lists, err = e.Coordinator().GetAllLists(ctx)
	require.NoError(t, err)
	assert.Empty(t, lists)
}

func TestCli_RemoteRejectionIsAWarning(t *testing.T) {
	store := &remote.StoreMock{
		CreateListFunc: func(context.Context, api.ListMeta) (*api.ListMeta, error) {
			return nil, fmt.Errorf("%w: quota exceeded", remote.ErrForbidden)
		},
	}
	c, out, e := setupCli(t, store, nil)

	// онлайн без запуска движка
	e.Monitor().SetLocalReachable(true)
	e.Monitor().SetRemoteChannelLive(true)

	run(t, c, "create", "Rejected")
	assert.Contains(t, out.String(), `Created list "Rejected"`)
	assert.Contains(t, out.String(), "Warning: saved locally, but the server rejected the change")

	pending, err := e.Coordinator().PendingCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, pending, "rejected change stays queued")
}

func TestCli_Sync(t *testing.T) {
	var mu stdsync.Mutex
	var created []api.ListMeta
	var pushed []api.Delta

	store := &remote.StoreMock{
		GetUserListsFunc: func(context.Context) ([]api.ListMeta, error) {
			mu.Lock()
			defer mu.Unlock()
			return append([]api.ListMeta(nil), created...), nil
		},
		CreateListFunc: func(_ context.Context, meta api.ListMeta) (*api.ListMeta, error) {
			mu.Lock()
			defer mu.Unlock()
			created = append(created, meta)
			return &meta, nil
		},
		PushDeltaFunc: func(_ context.Context, _ string, d api.Delta) error {
			mu.Lock()
			defer mu.Unlock()
			d.Timestamp = int64(len(pushed) + 1)
			pushed = append(pushed, d)
			return nil
		},
		PullDeltasFunc: func(context.Context, string, int64, string) ([]api.Delta, error) {
			return nil, nil
		},
	}
	sub := &remote.SubscriberMock{
		SubscribeFunc: func(ctx context.Context, onReady func(), _ func(api.Notification)) error {
			onReady()
			<-ctx.Done()
			return ctx.Err()
		},
	}
	c, out, _ := setupCli(t, store, sub)

	run(t, c, "create", "Weekend")
	run(t, c, "add", "Weekend", "Hike")

	out.reset()
	run(t, c, "sync")
	assert.Contains(t, out.String(), "Synchronization completed")
	assert.Contains(t, out.String(), "All local changes are on the server.")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, created, 1)
	assert.Equal(t, "Weekend", created[0].Title)
	assert.Len(t, pushed, 2)
}

func TestDescribeEvent(t *testing.T) {
	tests := []struct {
		payload events.Payload
		want    string
	}{
		{events.ListCreated{Title: "Groceries", Source: events.SourceRemote}, `list list-123 created: "Groceries" (remote)`},
		{events.ItemAdded{Content: "Milk", Index: 0}, `list list-123: added "Milk" at 1`},
		{events.ItemMoved{FromIndex: 2, ToIndex: 0}, "list list-123: moved item item-456 from 3 to 1"},
		{events.ListMetadataChanged{Title: "T", AppliedDeltas: 3}, `list list-123 updated: "T", 3 remote change(s)`},
		{events.BootstrapCompleted{ListsCreated: 1, DeltasApplied: 4}, "synchronized: 1 new, 0 updated, 0 removed list(s), 4 change(s) applied"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			e := events.New("list-1234567", "item-4567890", tt.payload)
			assert.Equal(t, tt.want, describeEvent(e))
		})
	}
}

func TestPrintUsage(t *testing.T) {
	out := &console{}
	PrintUsage(out.mock())
	assert.Contains(t, out.String(), "LISTSYNC_TOKEN")
	assert.Contains(t, out.String(), "clear-completed <list>")
}
