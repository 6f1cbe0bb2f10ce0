package document

import (
	"errors"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/listsync/internal/crdt"
)

func fixedNow(ts int64) Option {
	return WithNow(func() time.Time { return time.UnixMilli(ts) })
}

func contents(d *ListDocument) []string {
	var out []string
	for _, it := range d.Items() {
		out = append(out, it.Content)
	}
	return out
}

func TestCreate(t *testing.T) {
	desc := "weekly"
	doc, delta := Create("list-1", "client-a", "Groceries", &desc, "user-1", fixedNow(1000))

	require.NotEmpty(t, delta)
	snap := doc.Snapshot()
	assert.Equal(t, "list-1", snap.ID)
	assert.Equal(t, "Groceries", snap.Title)
	require.NotNil(t, snap.Description)
	assert.Equal(t, "weekly", *snap.Description)
	assert.Equal(t, "user-1", snap.OwnerID)
	assert.Equal(t, int64(1000), snap.CreatedAt.UnixMilli())

	// дельта создания совпадает с полным состоянием
	assert.Equal(t, []byte(delta), doc.EncodeState())
}

func TestListDocument_ItemOperations(t *testing.T) {
	doc, _ := Create("list-1", "client-a", "Groceries", nil, "user-1")

	milk, delta, err := doc.AddItem("Milk")
	require.NoError(t, err)
	require.NotEmpty(t, delta)
	eggs, _, err := doc.AddItem("Eggs")
	require.NoError(t, err)

	assert.Equal(t, []string{"Milk", "Eggs"}, contents(doc))
	assert.Equal(t, 1, doc.IndexOf(eggs))

	_, err = doc.EditItem(milk, "Oat milk")
	require.NoError(t, err)

	completed, _, err := doc.ToggleItem(milk)
	require.NoError(t, err)
	assert.True(t, completed)

	item, ok := doc.Item(milk)
	require.True(t, ok)
	assert.Equal(t, "Oat milk", item.Content)
	assert.True(t, item.IsCompleted)

	_, err = doc.DeleteItem(eggs)
	require.NoError(t, err)
	assert.Equal(t, []string{"Oat milk"}, contents(doc))
}

func TestListDocument_UnknownItem(t *testing.T) {
	doc, _ := Create("list-1", "client-a", "L", nil, "u")

	_, err := doc.EditItem("missing", "x")
	assert.ErrorIs(t, err, ErrItemNotFound)

	_, err = doc.DeleteItem("missing")
	assert.ErrorIs(t, err, ErrItemNotFound)

	_, _, err = doc.ToggleItem("missing")
	assert.ErrorIs(t, err, ErrItemNotFound)

	_, _, _, err = doc.MoveItem("missing", 0)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestListDocument_MoveItem(t *testing.T) {
	tests := []struct {
		name     string
		move     string
		index    int
		wantFrom int
		wantTo   int
		want     []string
		noDelta  bool
	}{
		{name: "move first to end", move: "a", index: 2, wantFrom: 0, wantTo: 2, want: []string{"b", "c", "a"}},
		{name: "move last to start", move: "c", index: 0, wantFrom: 2, wantTo: 0, want: []string{"c", "a", "b"}},
		{name: "move into middle", move: "a", index: 1, wantFrom: 0, wantTo: 1, want: []string{"b", "a", "c"}},
		{name: "index clamped high", move: "a", index: 100, wantFrom: 0, wantTo: 2, want: []string{"b", "c", "a"}},
		{name: "index clamped low", move: "b", index: -5, wantFrom: 1, wantTo: 0, want: []string{"b", "a", "c"}},
		{name: "current position is a no-op", move: "b", index: 1, wantFrom: 1, wantTo: 1, want: []string{"a", "b", "c"}, noDelta: true},
		{name: "clamped to current position is a no-op", move: "c", index: 10, wantFrom: 2, wantTo: 2, want: []string{"a", "b", "c"}, noDelta: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, _ := Create("list-1", "client-a", "L", nil, "u")
			ids := map[string]string{}
			for _, name := range []string{"a", "b", "c"} {
				id, _, err := doc.AddItem(name)
				require.NoError(t, err)
				ids[name] = id
			}
			before := doc.EncodeState()

			from, to, delta, err := doc.MoveItem(ids[tt.move], tt.index)
			require.NoError(t, err)

			assert.Equal(t, tt.wantFrom, from)
			assert.Equal(t, tt.wantTo, to)
			assert.Equal(t, tt.want, contents(doc))
			if tt.noDelta {
				assert.Nil(t, delta)
				assert.Equal(t, before, doc.EncodeState())
			} else {
				assert.NotNil(t, delta)
			}
		})
	}
}

func TestListDocument_ConcurrentMovesKeepItemOnce(t *testing.T) {
	a, created := Create("list-1", "client-a", "L", nil, "u")
	var deltas []Delta
	deltas = append(deltas, created)
	var ids []string
	for _, name := range []string{"x", "y", "z"} {
		id, d, err := a.AddItem(name)
		require.NoError(t, err)
		ids = append(ids, id)
		deltas = append(deltas, d)
	}

	b := New("list-1", "client-b")
	for _, d := range deltas {
		_, err := b.ApplyDelta(d)
		require.NoError(t, err)
	}

	_, _, moveA, err := a.MoveItem(ids[0], 2)
	require.NoError(t, err)
	_, _, moveB, err := b.MoveItem(ids[0], 1)
	require.NoError(t, err)

	_, err = a.ApplyDelta(moveB)
	require.NoError(t, err)
	_, err = b.ApplyDelta(moveA)
	require.NoError(t, err)

	assert.Equal(t, contents(a), contents(b))
	assert.Len(t, a.Items(), 3, "concurrent moves must not duplicate the item")
	assert.Equal(t, a.EncodeState(), b.EncodeState())
}

func TestListDocument_ConcurrentEditAndToggleMerge(t *testing.T) {
	a, created := Create("list-1", "client-a", "L", nil, "u")
	itemID, added, err := a.AddItem("Milk")
	require.NoError(t, err)

	b := New("list-1", "client-b")
	_, err = b.ApplyDelta(created)
	require.NoError(t, err)
	_, err = b.ApplyDelta(added)
	require.NoError(t, err)

	editDelta, err := a.EditItem(itemID, "Bread")
	require.NoError(t, err)
	_, toggleDelta, err := b.ToggleItem(itemID)
	require.NoError(t, err)

	_, err = a.ApplyDelta(toggleDelta)
	require.NoError(t, err)
	_, err = b.ApplyDelta(editDelta)
	require.NoError(t, err)

	for _, doc := range []*ListDocument{a, b} {
		item, ok := doc.Item(itemID)
		require.True(t, ok)
		assert.Equal(t, "Bread", item.Content)
		assert.True(t, item.IsCompleted)
	}
	assert.Equal(t, a.EncodeState(), b.EncodeState())
}

func TestListDocument_ConvergenceAnyOrder(t *testing.T) {
	a, created := Create("list-1", "client-a", "Groceries", nil, "u", fixedNow(1))
	deltas := []Delta{created}

	milk, d, _ := a.AddItem("Milk")
	deltas = append(deltas, d)
	_, d, _ = a.AddItem("Eggs")
	deltas = append(deltas, d)

	b := New("list-1", "client-b", fixedNow(2))
	for _, delta := range deltas {
		_, err := b.ApplyDelta(delta)
		require.NoError(t, err)
	}

	d, _ = a.EditTitle("Weekly groceries")
	deltas = append(deltas, d)
	_, d, _ = b.AddItem("Bread")
	deltas = append(deltas, d)
	_, d, _ = b.ToggleItem(milk)
	deltas = append(deltas, d)
	_, _, d, _ = b.MoveItem(milk, 2)
	deltas = append(deltas, d)
	d, _ = a.DeleteItem(milk)
	deltas = append(deltas, d)

	rng := rand.New(rand.NewSource(7))
	var reference []byte
	for round := 0; round < 10; round++ {
		order := append([]Delta{}, deltas...)
		order = append(order, deltas[rng.Intn(len(deltas))])
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		replica := New("list-1", "client-r")
		for _, delta := range order {
			_, err := replica.ApplyDelta(delta)
			require.NoError(t, err)
		}

		if reference == nil {
			reference = replica.EncodeState()
			snap := replica.Snapshot()
			assert.Equal(t, "Weekly groceries", snap.Title)
			assert.Equal(t, []string{"Eggs", "Bread"}, contents(replica))
			continue
		}
		require.Equal(t, reference, replica.EncodeState(), "round %d diverged", round)
	}
}

func TestListDocument_ClearCompleted(t *testing.T) {
	doc, _ := Create("list-1", "client-a", "L", nil, "u")
	a, _, _ := doc.AddItem("a")
	doc.AddItem("b")
	c, _, _ := doc.AddItem("c")

	removed, delta, err := doc.ClearCompleted()
	require.NoError(t, err)
	assert.Empty(t, removed)
	assert.Nil(t, delta, "nothing completed, nothing to send")

	doc.ToggleItem(a)
	doc.ToggleItem(c)

	removed, delta, err = doc.ClearCompleted()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a, c}, removed)
	assert.NotNil(t, delta)
	assert.Equal(t, []string{"b"}, contents(doc))
}

func TestListDocument_EditMetadata(t *testing.T) {
	desc := "old"
	doc, _ := Create("list-1", "client-a", "Title", &desc, "u", fixedNow(10))

	delta, err := doc.EditMetadata(nil, nil)
	require.NoError(t, err)
	assert.Nil(t, delta)

	title := "New"
	var cleared *string
	doc.now = func() time.Time { return time.UnixMilli(20) }
	delta, err = doc.EditMetadata(&title, &cleared)
	require.NoError(t, err)
	require.NotNil(t, delta)

	snap := doc.Snapshot()
	assert.Equal(t, "New", snap.Title)
	assert.Nil(t, snap.Description)
	assert.Equal(t, int64(20), snap.UpdatedAt.UnixMilli(), "mutations bump updatedAt")
}

func TestListDocument_ApplyDeltaMalformed(t *testing.T) {
	doc, _ := Create("list-1", "client-a", "L", nil, "u")
	doc.AddItem("a")
	before := doc.EncodeState()

	changed, err := doc.ApplyDelta([]byte("garbage"))
	require.Error(t, err)
	assert.False(t, changed)

	var decodeErr *crdt.DecodeError
	assert.True(t, errors.As(err, &decodeErr))
	assert.Equal(t, before, doc.EncodeState(), "document keeps last good state")
}

func TestListDocument_ApplyDeltaCounterOverflow(t *testing.T) {
	doc, _ := Create("list-1", "client-a", "L", nil, "u")
	peer, err := Load("list-1", "client-b", doc.EncodeState())
	require.NoError(t, err)

	huge := crdt.Encode([]crdt.Op{{
		Kind:  crdt.OpSetField,
		Field: fieldTitle,
		Value: crdt.StringValue("hijacked"),
		ID:    crdt.ID{Counter: math.MaxInt64, Replica: "client-x"},
	}})
	changed, err := doc.ApplyDelta(huge)
	var decodeErr *crdt.DecodeError
	require.True(t, errors.As(err, &decodeErr))
	assert.False(t, changed)
	assert.Equal(t, "L", doc.Snapshot().Title)

	// документ остается рабочим: новые дельты читаются другими репликами
	_, added, err := doc.AddItem("Milk")
	require.NoError(t, err)
	_, err = peer.ApplyDelta(added)
	require.NoError(t, err)
	assert.Equal(t, []string{"Milk"}, contents(peer))

	loaded, err := Load("list-1", "client-a", doc.EncodeState())
	require.NoError(t, err)
	assert.Equal(t, []string{"Milk"}, contents(loaded))
}

func TestListDocument_ApplyBeforeCreate(t *testing.T) {
	src, created := Create("list-1", "client-a", "L", nil, "u")
	_, added, _ := src.AddItem("early")

	doc := New("list-1", "client-b")
	changed, err := doc.ApplyDelta(added)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, doc.Snapshot().CreatedAt.IsZero(), "metadata has not arrived yet")

	_, err = doc.ApplyDelta(created)
	require.NoError(t, err)
	assert.Equal(t, "L", doc.Snapshot().Title)
	assert.Equal(t, []string{"early"}, contents(doc))
}

func TestListDocument_Destroy(t *testing.T) {
	doc, created := Create("list-1", "client-a", "L", nil, "u")
	doc.Destroy()

	_, err := doc.ApplyDelta(created)
	assert.ErrorIs(t, err, ErrDestroyed)
	_, _, err = doc.AddItem("x")
	assert.ErrorIs(t, err, ErrDestroyed)
	assert.Empty(t, doc.Items())
}

func TestListDocument_EncodeStateDuringDestroy(t *testing.T) {
	doc, _ := Create("list-1", "client-a", "L", nil, "u")
	doc.AddItem("a")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			assert.NotEmpty(t, doc.EncodeState())
		}
	}()
	go func() {
		defer wg.Done()
		doc.Destroy()
	}()
	wg.Wait()

	assert.Empty(t, doc.Items())
}

func TestLoad(t *testing.T) {
	doc, _ := Create("list-1", "client-a", "L", nil, "u")
	doc.AddItem("a")

	loaded, err := Load("list-1", "client-a", doc.EncodeState())
	require.NoError(t, err)
	assert.Equal(t, doc.Snapshot(), loaded.Snapshot())

	// часы восстановлены: новая операция не конфликтует со старыми ID
	_, _, err = loaded.AddItem("b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, contents(loaded))

	_, err = Load("list-1", "client-a", []byte{1, 2, 3})
	var decodeErr *crdt.DecodeError
	assert.True(t, errors.As(err, &decodeErr))
}
