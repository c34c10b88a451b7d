package persist

import (
	"context"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"reqdesk/internal/config"
	"reqdesk/internal/domain"
	"reqdesk/internal/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// countingEngine counts writes per key.
type countingEngine struct {
	*MemoryEngine
	mu     sync.Mutex
	writes map[string]int
}

func newCountingEngine() *countingEngine {
	return &countingEngine{MemoryEngine: NewMemoryEngine(), writes: make(map[string]int)}
}

func (c *countingEngine) SetItem(ctx context.Context, key string, value []byte) error {
	c.mu.Lock()
	c.writes[key]++
	c.mu.Unlock()
	return c.MemoryEngine.SetItem(ctx, key, value)
}

func (c *countingEngine) count(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes[key]
}

func createCategory(t *testing.T, s *state.Store, id, name string) {
	t.Helper()
	ev := state.Pending(state.SliceCategory, state.OpCreateCategory)
	require.NoError(t, s.Dispatch(ev))
	require.NoError(t, s.Dispatch(ev.Fulfilled(domain.Category{Ref: domain.Ref{MongoID: id}, Name: name})))
}

func TestPersistor_DebouncedWritesCoalesce(t *testing.T) {
	store := state.NewStore()
	engine := newCountingEngine()
	p := New(store, engine, Options{Debounce: 30 * time.Millisecond})
	p.Start()
	defer p.Close(context.Background())

	for i := 0; i < 5; i++ {
		createCategory(t, store, "c"+string(rune('0'+i)), "n")
	}

	require.Eventually(t, func() bool {
		return !p.debounce.Pending(state.SliceCategory) && engine.count("root:category") > 0
	}, time.Second, 5*time.Millisecond)
	assert.Less(t, engine.count("root:category"), 10)
	assert.Zero(t, engine.count("root:users"))
	require.NoError(t, p.Err())

	blob, ok, err := engine.GetItem(context.Background(), "root:category")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, string(blob), `"c4"`)
}

func TestPersistor_FlushWritesEverySlice(t *testing.T) {
	store := state.NewStore()
	engine := NewMemoryEngine()
	p := New(store, engine, Options{KeyPrefix: "desk", Debounce: time.Hour})
	p.Start()

	createCategory(t, store, "c1", "Sales")
	assert.True(t, p.debounce.Pending(state.SliceCategory))

	require.NoError(t, p.Close(context.Background()))
	assert.False(t, p.debounce.Pending(state.SliceCategory))

	keys := engine.Keys()
	sort.Strings(keys)
	assert.Equal(t, []string{"desk:auth", "desk:category", "desk:request", "desk:requestAnalytics", "desk:users"}, keys)
}

func TestPersistor_OnlyConfiguredSlices(t *testing.T) {
	store := state.NewStore()
	engine := NewMemoryEngine()
	p := New(store, engine, Options{Slices: []string{state.SliceAuth}})

	require.NoError(t, p.Flush(context.Background()))
	assert.Equal(t, []string{"root:auth"}, engine.Keys())
}

func TestPersistor_RehydrateRestoresDataNotStatus(t *testing.T) {
	ctx := context.Background()
	engine := NewMemoryEngine()

	first := state.NewStore()
	createCategory(t, first, "c1", "Sales")
	ev := state.Pending(state.SliceAuth, state.OpSignIn)
	require.NoError(t, first.Dispatch(ev))
	require.NoError(t, first.Dispatch(ev.Fulfilled(state.Session{
		Account: domain.Account{Ref: domain.Ref{MongoID: "b1"}, Role: domain.RoleBusiness},
		Token:   "tok",
	})))
	require.NoError(t, New(first, engine, Options{}).Flush(ctx))

	second := state.NewStore()
	require.NoError(t, New(second, engine, Options{}).Rehydrate(ctx))

	snap := second.Snapshot()
	require.Len(t, snap.Categories.Items, 1)
	assert.Equal(t, "Sales", snap.Categories.Items[0].Name)
	assert.Equal(t, state.StatusIdle, snap.Categories.Status(state.OpCreateCategory))
	assert.Equal(t, "tok", second.Token())
	assert.Equal(t, state.StatusIdle, snap.Auth.Status(state.OpSignIn))
}

func TestPersistor_RehydrateSkipsMissingAndReportsCorrupt(t *testing.T) {
	ctx := context.Background()
	engine := NewMemoryEngine()
	require.NoError(t, engine.SetItem(ctx, "root:users", []byte("{broken")))

	store := state.NewStore()
	err := New(store, engine, Options{}).Rehydrate(ctx)
	require.Error(t, err)
	assert.Empty(t, store.Snapshot().Users.Items)
}

func TestPersistor_Purge(t *testing.T) {
	ctx := context.Background()
	store := state.NewStore()
	engine := NewMemoryEngine()
	p := New(store, engine, Options{})

	require.NoError(t, p.Flush(ctx))
	require.NotEmpty(t, engine.Keys())
	require.NoError(t, p.Purge(ctx))
	assert.Empty(t, engine.Keys())
}

func TestSQLiteEngine(t *testing.T) {
	for _, driver := range []string{"sqlite3", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), "nested", "state.db")

			e, err := OpenSQLite(path, driver)
			require.NoError(t, err)
			assert.Equal(t, path, e.Path())
			assert.Equal(t, driver, e.Driver())

			_, ok, err := e.GetItem(ctx, "root:auth")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, e.SetItem(ctx, "root:auth", []byte(`{"token":"a"}`)))
			require.NoError(t, e.SetItem(ctx, "root:auth", []byte(`{"token":"b"}`)))
			got, ok, err := e.GetItem(ctx, "root:auth")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, `{"token":"b"}`, string(got))

			require.NoError(t, e.RemoveItem(ctx, "root:auth"))
			_, ok, err = e.GetItem(ctx, "root:auth")
			require.NoError(t, err)
			assert.False(t, ok)
			require.NoError(t, e.Close())

			// Reopening sees data written before close.
			e, err = OpenSQLite(path, driver)
			require.NoError(t, err)
			require.NoError(t, e.SetItem(ctx, "root:category", []byte(`{}`)))
			require.NoError(t, e.Close())
			e, err = OpenSQLite(path, driver)
			require.NoError(t, err)
			defer e.Close()
			_, ok, err = e.GetItem(ctx, "root:category")
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestOpen(t *testing.T) {
	e, err := Open(config.StorageConfig{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryEngine{}, e)

	e, err = Open(config.StorageConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "s.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteEngine{}, e)
	require.NoError(t, e.Close())

	_, err = Open(config.StorageConfig{Driver: "bolt"})
	assert.Error(t, err)
	_, err = OpenSQLite("x.db", "postgres")
	assert.Error(t, err)
}
