package sync

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"todohub/internal/models"
	"todohub/internal/platform"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errNetwork = errors.New("platform unreachable: dial tcp: connection refused")

var errDenied = &platform.RequestError{Status: 403, Code: "42501", Message: "row-level security policy violation"}

// fakeStore is an in-memory remote task store with switchable failure modes.
type fakeStore struct {
	rows   []models.Task
	nextID int

	failInsert error
	failUpdate error
	failDelete error
	failList   error

	// updateHook, when set, intercepts UpdateTask entirely.
	updateHook func(t models.Task) (models.Task, error)
	// listHook, when set, runs at the top of every ListTasks call.
	listHook func(ownerID string)
}

func (s *fakeStore) ListTasks(ctx context.Context, ownerID string) ([]models.Task, error) {
	if s.listHook != nil {
		s.listHook(ownerID)
	}
	if s.failList != nil {
		return nil, s.failList
	}
	var out []models.Task
	for _, t := range s.rows {
		if t.OwnerID == ownerID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *fakeStore) InsertTask(ctx context.Context, t models.Task) (models.Task, error) {
	if s.failInsert != nil {
		return models.Task{}, s.failInsert
	}
	s.nextID++
	t.ID = fmt.Sprintf("task-%d", s.nextID)
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	s.rows = append(s.rows, t)
	return t, nil
}

func (s *fakeStore) UpdateTask(ctx context.Context, t models.Task) (models.Task, error) {
	if s.updateHook != nil {
		return s.updateHook(t)
	}
	if s.failUpdate != nil {
		return models.Task{}, s.failUpdate
	}
	for i := range s.rows {
		if s.rows[i].ID == t.ID && s.rows[i].OwnerID == t.OwnerID {
			t.UpdatedAt = time.Now()
			s.rows[i] = t
			return t, nil
		}
	}
	return models.Task{}, platform.ErrNotFound
}

func (s *fakeStore) DeleteTask(ctx context.Context, id, ownerID string) error {
	if s.failDelete != nil {
		return s.failDelete
	}
	for i := range s.rows {
		if s.rows[i].ID == id && s.rows[i].OwnerID == ownerID {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			return nil
		}
	}
	return platform.ErrNotFound
}

// fakeCache records mirrored lists and serves a canned fallback.
type fakeCache struct {
	stored    [][]models.Task
	fallback  []models.Task
	syncedAt  time.Time
	failLoad  error
	failStore error
}

func (c *fakeCache) SetSyncedAt(ctx context.Context, t time.Time) error {
	c.syncedAt = t
	return nil
}

func (c *fakeCache) SyncedAt(ctx context.Context) (time.Time, error) {
	return c.syncedAt, nil
}

func (c *fakeCache) StoreTasks(ctx context.Context, tasks []models.Task) error {
	if c.failStore != nil {
		return c.failStore
	}
	snapshot := make([]models.Task, len(tasks))
	copy(snapshot, tasks)
	c.stored = append(c.stored, snapshot)
	return nil
}

func (c *fakeCache) LoadTasks(ctx context.Context, ownerID string) ([]models.Task, error) {
	if c.failLoad != nil {
		return nil, c.failLoad
	}
	out := make([]models.Task, len(c.fallback))
	copy(out, c.fallback)
	for i := range out {
		out[i].OwnerID = ownerID
	}
	return out, nil
}

func (c *fakeCache) last() []models.Task {
	if len(c.stored) == 0 {
		return nil
	}
	return c.stored[len(c.stored)-1]
}

func newTestEngine(t *testing.T, store *fakeStore, cache *fakeCache) *Engine {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewEngine(store, cache, "user-1", log)
}

func texts(tasks []models.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Text
	}
	return out
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces list and mirrors cache on success", func(t *testing.T) {
		store := &fakeStore{rows: []models.Task{
			{ID: "task-1", Text: "first", OwnerID: "user-1"},
			{ID: "task-2", Text: "second", OwnerID: "user-1"},
			{ID: "task-9", Text: "other user", OwnerID: "user-2"},
		}}
		cache := &fakeCache{}
		e := newTestEngine(t, store, cache)

		require.NoError(t, e.Load(ctx))
		assert.Equal(t, []string{"first", "second"}, texts(e.Tasks()))
		assert.Equal(t, []string{"first", "second"}, texts(cache.last()))
		assert.False(t, e.LastSyncedAt().IsZero())
	})

	t.Run("falls back to cache without overwriting it", func(t *testing.T) {
		store := &fakeStore{failList: errNetwork}
		cache := &fakeCache{fallback: []models.Task{{ID: "task-1", Text: "cached"}}}
		e := newTestEngine(t, store, cache)

		err := e.Load(ctx)
		require.Error(t, err)
		got := e.Tasks()
		require.Len(t, got, 1)
		assert.Equal(t, "cached", got[0].Text)
		// Cached records are stamped with the current identity on read.
		assert.Equal(t, "user-1", got[0].OwnerID)
		// The stale cache is preserved, never replaced with zero data.
		assert.Empty(t, cache.stored)
		assert.True(t, e.LastSyncedAt().IsZero())
	})

	t.Run("clears list when no identity", func(t *testing.T) {
		log := logrus.New()
		log.SetLevel(logrus.PanicLevel)
		e := NewEngine(&fakeStore{}, &fakeCache{}, "", log)
		assert.ErrorIs(t, e.Load(ctx), ErrNoIdentity)
		assert.Empty(t, e.Tasks())
	})
}

func TestAdd(t *testing.T) {
	ctx := context.Background()

	t.Run("confirms provisional record against the store", func(t *testing.T) {
		store := &fakeStore{}
		cache := &fakeCache{}
		e := newTestEngine(t, store, cache)

		task, err := e.Add(ctx, "  Buy milk  ", models.PriorityHigh)
		require.NoError(t, err)
		assert.Equal(t, "task-1", task.ID)
		assert.Equal(t, "Buy milk", task.Text)
		assert.Equal(t, models.PriorityHigh, task.Priority)
		assert.False(t, task.Completed)

		got := e.Tasks()
		require.Len(t, got, 1)
		// The temporary id is fully replaced; nothing dangling.
		assert.False(t, got[0].IsProvisional())
		assert.Equal(t, "task-1", got[0].ID)
	})

	t.Run("keeps provisional record on store rejection", func(t *testing.T) {
		store := &fakeStore{failInsert: errDenied}
		cache := &fakeCache{}
		e := newTestEngine(t, store, cache)

		task, err := e.Add(ctx, "Buy milk", models.PriorityHigh)
		require.Error(t, err)
		assert.True(t, task.IsProvisional())

		got := e.Tasks()
		require.Len(t, got, 1)
		assert.True(t, got[0].IsProvisional())
		assert.Equal(t, "Buy milk", got[0].Text)
		// The optimistic list is mirrored so the task survives a restart.
		require.NotNil(t, cache.last())
		assert.Equal(t, "Buy milk", cache.last()[0].Text)
	})

	t.Run("keeps provisional record on network failure and reconciles on reload", func(t *testing.T) {
		store := &fakeStore{failInsert: errNetwork}
		cache := &fakeCache{}
		e := newTestEngine(t, store, cache)

		task, err := e.Add(ctx, "Buy milk", models.PriorityHigh)
		require.Error(t, err)
		assert.True(t, task.IsProvisional())
		assert.False(t, task.Completed)

		// Back online: the store now has the row (as if a later retry or
		// another device synced it) and a reload reconciles to it.
		store.failInsert = nil
		confirmed, err := store.InsertTask(ctx, models.Task{Text: "Buy milk", Priority: models.PriorityHigh, OwnerID: "user-1"})
		require.NoError(t, err)

		require.NoError(t, e.Load(ctx))
		got := e.Tasks()
		require.Len(t, got, 1)
		assert.Equal(t, confirmed.ID, got[0].ID)
		assert.Equal(t, "Buy milk", got[0].Text)
		assert.Equal(t, models.PriorityHigh, got[0].Priority)
	})

	t.Run("rejects empty text before any store call", func(t *testing.T) {
		store := &fakeStore{}
		e := newTestEngine(t, store, &fakeCache{})

		_, err := e.Add(ctx, "   ", models.PriorityMedium)
		assert.ErrorIs(t, err, ErrEmptyText)
		assert.Empty(t, store.rows)
		assert.Empty(t, e.Tasks())
	})

	t.Run("provisional ids stay distinct within one millisecond", func(t *testing.T) {
		store := &fakeStore{failInsert: errNetwork}
		e := newTestEngine(t, store, &fakeCache{})

		a, err := e.Add(ctx, "one", models.PriorityMedium)
		require.Error(t, err)
		b, err := e.Add(ctx, "two", models.PriorityMedium)
		require.Error(t, err)

		assert.NotEqual(t, a.ID, b.ID)
		require.Len(t, e.Tasks(), 2)

		// Each confirmation swaps its own record, never the sibling's.
		store.failInsert = nil
		require.NoError(t, e.Delete(ctx, a.ID))
		got := e.Tasks()
		require.Len(t, got, 1)
		assert.Equal(t, b.ID, got[0].ID)
	})

	t.Run("no identity is a no-op", func(t *testing.T) {
		log := logrus.New()
		log.SetLevel(logrus.PanicLevel)
		store := &fakeStore{}
		e := NewEngine(store, &fakeCache{}, "", log)
		_, err := e.Add(ctx, "Buy milk", models.PriorityLow)
		assert.ErrorIs(t, err, ErrNoIdentity)
		assert.Empty(t, store.rows)
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T, store *fakeStore, cache *fakeCache) *Engine {
		t.Helper()
		store.rows = []models.Task{
			{ID: "task-1", Text: "first", OwnerID: "user-1"},
			{ID: "task-2", Text: "second", OwnerID: "user-1"},
			{ID: "task-3", Text: "third", OwnerID: "user-1"},
		}
		e := newTestEngine(t, store, cache)
		require.NoError(t, e.Load(ctx))
		return e
	}

	t.Run("removes locally and remotely", func(t *testing.T) {
		store := &fakeStore{}
		cache := &fakeCache{}
		e := seed(t, store, cache)

		require.NoError(t, e.Delete(ctx, "task-2"))
		assert.Equal(t, []string{"first", "third"}, texts(e.Tasks()))
		assert.Len(t, store.rows, 2)
		assert.Equal(t, []string{"first", "third"}, texts(cache.last()))
	})

	t.Run("restores the exact pre-delete list on store rejection", func(t *testing.T) {
		store := &fakeStore{}
		cache := &fakeCache{}
		e := seed(t, store, cache)
		store.failDelete = errDenied

		err := e.Delete(ctx, "task-2")
		require.Error(t, err)
		assert.True(t, platform.IsRequestError(err))
		// Rollback is lossless, position included.
		assert.Equal(t, []string{"first", "second", "third"}, texts(e.Tasks()))
	})

	t.Run("keeps the removal on network failure", func(t *testing.T) {
		store := &fakeStore{}
		cache := &fakeCache{}
		e := seed(t, store, cache)
		store.failDelete = errNetwork

		err := e.Delete(ctx, "task-2")
		require.Error(t, err)
		assert.Equal(t, []string{"first", "third"}, texts(e.Tasks()))
		// The cache reflects the absence.
		assert.Equal(t, []string{"first", "third"}, texts(cache.last()))
	})

	t.Run("provisional tasks never reach the store", func(t *testing.T) {
		store := &fakeStore{failInsert: errNetwork}
		cache := &fakeCache{}
		e := newTestEngine(t, store, cache)

		task, err := e.Add(ctx, "offline task", models.PriorityMedium)
		require.Error(t, err)

		store.failDelete = errDenied // would reject, but must not be called
		require.NoError(t, e.Delete(ctx, task.ID))
		assert.Empty(t, e.Tasks())
	})
}

func TestToggleCompleted(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T, store *fakeStore, cache *fakeCache) *Engine {
		t.Helper()
		store.rows = []models.Task{{ID: "task-1", Text: "first", OwnerID: "user-1"}}
		e := newTestEngine(t, store, cache)
		require.NoError(t, e.Load(ctx))
		return e
	}

	t.Run("flips and reconciles the authoritative record", func(t *testing.T) {
		store := &fakeStore{}
		e := seed(t, store, &fakeCache{})

		task, err := e.ToggleCompleted(ctx, "task-1")
		require.NoError(t, err)
		assert.True(t, task.Completed)
		assert.True(t, store.rows[0].Completed)
	})

	t.Run("rolls back on store rejection", func(t *testing.T) {
		store := &fakeStore{}
		e := seed(t, store, &fakeCache{})
		store.failUpdate = errDenied

		task, err := e.ToggleCompleted(ctx, "task-1")
		require.Error(t, err)
		assert.False(t, task.Completed)
		assert.False(t, e.Tasks()[0].Completed)
	})

	t.Run("keeps optimistic state on network failure", func(t *testing.T) {
		store := &fakeStore{}
		cache := &fakeCache{}
		e := seed(t, store, cache)
		store.failUpdate = errNetwork

		task, err := e.ToggleCompleted(ctx, "task-1")
		require.Error(t, err)
		assert.True(t, task.Completed)
		assert.True(t, e.Tasks()[0].Completed)
		assert.True(t, cache.last()[0].Completed)
	})
}

func TestEdit(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T, store *fakeStore, cache *fakeCache) *Engine {
		t.Helper()
		store.rows = []models.Task{{ID: "task-1", Text: "before", Priority: models.PriorityMedium, OwnerID: "user-1"}}
		e := newTestEngine(t, store, cache)
		require.NoError(t, e.Load(ctx))
		return e
	}

	t.Run("closes edit mode on success", func(t *testing.T) {
		store := &fakeStore{}
		e := seed(t, store, &fakeCache{})
		require.NoError(t, e.StartEdit("task-1"))

		task, err := e.Edit(ctx, "task-1", "after", models.PriorityHigh)
		require.NoError(t, err)
		assert.Equal(t, "after", task.Text)
		assert.Equal(t, models.PriorityHigh, task.Priority)
		assert.Empty(t, e.Editing())
	})

	t.Run("closes edit mode and rolls back on store rejection", func(t *testing.T) {
		store := &fakeStore{}
		e := seed(t, store, &fakeCache{})
		require.NoError(t, e.StartEdit("task-1"))
		store.failUpdate = errDenied

		task, err := e.Edit(ctx, "task-1", "after", models.PriorityHigh)
		require.Error(t, err)
		assert.Equal(t, "before", task.Text)
		assert.Equal(t, "before", e.Tasks()[0].Text)
		assert.Empty(t, e.Editing())
	})

	t.Run("closes edit mode and keeps the edit on network failure", func(t *testing.T) {
		store := &fakeStore{}
		e := seed(t, store, &fakeCache{})
		require.NoError(t, e.StartEdit("task-1"))
		store.failUpdate = errNetwork

		task, err := e.Edit(ctx, "task-1", "after", models.PriorityHigh)
		require.Error(t, err)
		assert.Equal(t, "after", task.Text)
		assert.Equal(t, "after", e.Tasks()[0].Text)
		assert.Empty(t, e.Editing())
	})
}

func TestConvergenceWithAvailableStore(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	e := newTestEngine(t, store, &fakeCache{})

	a, err := e.Add(ctx, "one", models.PriorityHigh)
	require.NoError(t, err)
	b, err := e.Add(ctx, "two", models.PriorityLow)
	require.NoError(t, err)
	_, err = e.ToggleCompleted(ctx, a.ID)
	require.NoError(t, err)
	_, err = e.Edit(ctx, b.ID, "two edited", models.PriorityMedium)
	require.NoError(t, err)
	_, err = e.Add(ctx, "three", models.PriorityMedium)
	require.NoError(t, err)
	require.NoError(t, e.Delete(ctx, a.ID))

	// No permanent divergence: memory equals the authoritative store.
	remote, err := store.ListTasks(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, remote, e.Tasks())
}

func TestView(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{rows: []models.Task{
		{ID: "task-1", Text: "low early", Priority: models.PriorityLow, OwnerID: "user-1"},
		{ID: "task-2", Text: "high", Priority: models.PriorityHigh, Completed: true, OwnerID: "user-1"},
		{ID: "task-3", Text: "medium", Priority: models.PriorityMedium, OwnerID: "user-1"},
		{ID: "task-4", Text: "low late", Priority: models.PriorityLow, OwnerID: "user-1"},
	}}
	e := newTestEngine(t, store, &fakeCache{})
	require.NoError(t, e.Load(ctx))

	t.Run("default is insertion order", func(t *testing.T) {
		assert.Equal(t, []string{"low early", "high", "medium", "low late"}, texts(e.View(ViewOptions{})))
	})

	t.Run("priority sort breaks ties by insertion order", func(t *testing.T) {
		got := texts(e.View(ViewOptions{SortByPriority: true}))
		assert.Equal(t, []string{"high", "medium", "low early", "low late"}, got)
	})

	t.Run("hide completed filters without reordering", func(t *testing.T) {
		got := texts(e.View(ViewOptions{SortByPriority: true, HideCompleted: true}))
		assert.Equal(t, []string{"medium", "low early", "low late"}, got)
	})
}

func TestListenersAreNotifiedOnEveryChange(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	e := newTestEngine(t, store, &fakeCache{})

	var snapshots [][]models.Task
	e.Subscribe(func(tasks []models.Task) {
		snapshots = append(snapshots, tasks)
	})

	_, err := e.Add(ctx, "one", models.PriorityMedium)
	require.NoError(t, err)
	// Optimistic append plus the confirmed reconcile both notify.
	require.GreaterOrEqual(t, len(snapshots), 2)
	final := snapshots[len(snapshots)-1]
	require.Len(t, final, 1)
	assert.Equal(t, "one", final[0].Text)
}

func TestRollbackSkippedWhenTaskChangedAgain(t *testing.T) {
	// A rejected mutation must not clobber a later one on the same task:
	// the rollback target is tracked per task revision.
	ctx := context.Background()
	store := &fakeStore{rows: []models.Task{{ID: "task-1", Text: "v1", OwnerID: "user-1"}}}
	cache := &fakeCache{}
	e := newTestEngine(t, store, cache)
	require.NoError(t, e.Load(ctx))

	calls := 0
	store.updateHook = func(task models.Task) (models.Task, error) {
		calls++
		if calls == 1 {
			// A second edit lands while the first is still in flight,
			// then the first comes back rejected.
			_, err := e.Edit(ctx, "task-1", "v3", models.PriorityMedium)
			require.NoError(t, err)
			return models.Task{}, errDenied
		}
		task.UpdatedAt = time.Now()
		return task, nil
	}

	_, err := e.Edit(ctx, "task-1", "v2", models.PriorityMedium)
	require.Error(t, err)
	// The rejected first edit must not roll back over the newer one.
	assert.Equal(t, "v3", e.Tasks()[0].Text)
	assert.Equal(t, 2, calls)
}
