package gcheap

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testObserver struct {
	mu     sync.Mutex
	events []Event
}

func (o *testObserver) OnCellEvent(e Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, e)
}

type releasable struct {
	released bool
}

func (r *releasable) Release() {
	r.released = true
}

func TestTable_Basic(t *testing.T) {
	table := NewTable()

	h, err := table.Alloc(KindScope, "scope")
	require.NoError(t, err)
	require.NotZero(t, h)

	val, ok := table.Get(h)
	require.True(t, ok)
	assert.Equal(t, "scope", val)

	_, ok = table.GetTyped(h, KindScope)
	assert.True(t, ok)
	_, ok = table.GetTyped(h, KindFunction)
	assert.False(t, ok, "GetTyped with wrong kind should fail")

	val, ok = table.Remove(h)
	require.True(t, ok)
	assert.Equal(t, "scope", val)
	assert.Zero(t, table.Len())

	_, ok = table.Get(h)
	assert.False(t, ok)
}

func TestTable_Limit(t *testing.T) {
	table := NewTableWithLimit(2)

	h1, err := table.Alloc(KindFunction, 1)
	require.NoError(t, err)
	_, err = table.Alloc(KindFunction, 2)
	require.NoError(t, err)

	_, err = table.Alloc(KindFunction, 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutOfCells))

	table.Remove(h1)
	h3, err := table.Alloc(KindTemplate, 3)
	require.NoError(t, err)
	assert.Equal(t, h1, h3, "freed handle should be reused")
}

func TestTable_Observer(t *testing.T) {
	table := NewTable()
	obs := &testObserver{}
	table.Subscribe(obs)

	h, err := table.Alloc(KindTemplate, "tpl")
	require.NoError(t, err)
	require.Len(t, obs.events, 1)
	assert.Equal(t, EventAllocated, obs.events[0].Type)
	assert.Equal(t, h, obs.events[0].Handle)
	assert.Equal(t, KindTemplate, obs.events[0].Kind)

	table.Remove(h)
	require.Len(t, obs.events, 2)
	assert.Equal(t, EventReleased, obs.events[1].Type)
	assert.Equal(t, KindTemplate, obs.events[1].Kind)

	table.Unsubscribe(obs)
	_, err = table.Alloc(KindScope, nil)
	require.NoError(t, err)
	assert.Len(t, obs.events, 2)
}

func TestTable_ClearAndRelease(t *testing.T) {
	table := NewTable()
	r := &releasable{}
	_, err := table.Alloc(KindFunction, r)
	require.NoError(t, err)
	_, err = table.Alloc(KindScope, "s")
	require.NoError(t, err)

	table.Clear()
	assert.Zero(t, table.Len())
	assert.True(t, r.released)
}

func TestTable_Close(t *testing.T) {
	table := NewTable()
	r := &releasable{}
	_, err := table.Alloc(KindFunction, r)
	require.NoError(t, err)

	require.NoError(t, table.Close())
	assert.True(t, r.released)

	_, err = table.Alloc(KindScope, nil)
	assert.True(t, errors.Is(err, ErrClosed))
}

func TestTable_Each(t *testing.T) {
	table := NewTable()
	for i := 0; i < 4; i++ {
		_, err := table.Alloc(KindScope, i)
		require.NoError(t, err)
	}

	var seen []any
	table.Each(func(h Handle, k Kind, v any) bool {
		seen = append(seen, v)
		return len(seen) < 3
	})
	assert.Equal(t, []any{0, 1, 2}, seen)
}

func TestTable_Concurrent(t *testing.T) {
	table := NewTableWithLimit(100)
	obs := &testObserver{}
	table.Subscribe(obs)

	var wg sync.WaitGroup
	var failures sync.Map
	for i := 0; i < 150; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := table.Alloc(KindFunction, i); err != nil {
				failures.Store(i, err)
			}
		}(i)
	}
	wg.Wait()

	count := 0
	failures.Range(func(_, v any) bool {
		assert.True(t, errors.Is(v.(error), ErrOutOfCells))
		count++
		return true
	})
	assert.Equal(t, 50, count)
	assert.Equal(t, 100, table.Len())
	assert.Len(t, obs.events, 100)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "function", KindFunction.String())
	assert.Equal(t, "scope", KindScope.String())
	assert.Equal(t, "template", KindTemplate.String())
	assert.Equal(t, "kind(9)", Kind(9).String())
}

func TestLocalBackend_InvalidHandle(t *testing.T) {
	b := NewLocalBackend(0)
	_, ok := b.Get(0)
	assert.False(t, ok)
	_, ok = b.Get(42)
	assert.False(t, ok)
	_, ok = b.Drop(42)
	assert.False(t, ok)
	_, ok = b.Kind(0)
	assert.False(t, ok)
}

func TestTable_Counts(t *testing.T) {
	table := NewTable()
	_, err := table.Alloc(KindScope, "a")
	require.NoError(t, err)
	h, err := table.Alloc(KindScope, "b")
	require.NoError(t, err)
	_, err = table.Alloc(KindTemplate, "c")
	require.NoError(t, err)

	assert.Equal(t, map[Kind]int{KindScope: 2, KindTemplate: 1}, table.Counts())

	table.Remove(h)
	assert.Equal(t, 1, table.Counts()[KindScope])
	assert.Zero(t, table.Counts()[KindFunction])
}

func TestTable_SharedBackend(t *testing.T) {
	b := NewLocalBackend(2)
	first := NewTableWithBackend(b)
	second := NewTableWithBackend(b)

	h, err := first.Alloc(KindFunction, 1)
	require.NoError(t, err)
	_, err = second.Alloc(KindFunction, 2)
	require.NoError(t, err)

	_, err = first.Alloc(KindFunction, 3)
	assert.ErrorIs(t, err, ErrOutOfCells)

	v, ok := second.GetTyped(h, KindFunction)
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, first.Len())
}
