// Package sync owns the in-memory task list for one identity and keeps it
// consistent with the remote task store. Mutations apply optimistically and
// are reconciled against the store's response: a rejected call rolls the
// optimistic change back, an unreachable store keeps it and mirrors it to
// the fallback cache for later reconciliation.
package sync

import (
	"context"
	"errors"
	"sort"
	"strings"
	gosync "sync"
	"time"

	"todohub/internal/models"
	"todohub/internal/platform"

	"github.com/sirupsen/logrus"
)

var (
	ErrNoIdentity      = errors.New("no authenticated identity")
	ErrEmptyText       = errors.New("task text must not be empty")
	ErrInvalidPriority = errors.New("invalid priority")
	ErrTaskNotFound    = errors.New("task not found")
)

// TaskStore is the remote CRUD surface the engine reconciles against.
type TaskStore interface {
	ListTasks(ctx context.Context, ownerID string) ([]models.Task, error)
	InsertTask(ctx context.Context, t models.Task) (models.Task, error)
	UpdateTask(ctx context.Context, t models.Task) (models.Task, error)
	DeleteTask(ctx context.Context, id, ownerID string) error
}

// FallbackCache preserves the last-known list and sync timestamp across
// platform outages.
type FallbackCache interface {
	StoreTasks(ctx context.Context, tasks []models.Task) error
	LoadTasks(ctx context.Context, ownerID string) ([]models.Task, error)
	SetSyncedAt(ctx context.Context, t time.Time) error
	SyncedAt(ctx context.Context) (time.Time, error)
}

// Listener receives a snapshot of the list after every change. Invoked
// synchronously; listeners must not call back into the engine.
type Listener = func(tasks []models.Task)

// ViewOptions control the presentation ordering of Tasks.
type ViewOptions struct {
	SortByPriority bool
	HideCompleted  bool
}

type Engine struct {
	store   TaskStore
	cache   FallbackCache
	ownerID string
	log     *logrus.Entry

	mu           gosync.Mutex
	tasks        []models.Task
	revs         map[string]uint64
	editing      string
	lastSyncedAt time.Time
	listeners    []Listener
	tempSeq      uint64

	tokenMu     gosync.RWMutex
	accessToken string
}

func NewEngine(store TaskStore, cache FallbackCache, ownerID string, log *logrus.Logger) *Engine {
	return &Engine{
		store:   store,
		cache:   cache,
		ownerID: ownerID,
		revs:    make(map[string]uint64),
		log:     log.WithFields(logrus.Fields{"component": "sync", "owner": ownerID}),
	}
}

// Subscribe registers a listener for list changes. The stats aggregator
// registers here so derived values recompute without any UI involvement.
func (e *Engine) Subscribe(l Listener) {
	e.mu.Lock()
	e.listeners = append(e.listeners, l)
	e.mu.Unlock()
}

// SetAccessToken refreshes the token used for change-feed-triggered reloads,
// which run outside any request context.
func (e *Engine) SetAccessToken(token string) {
	e.tokenMu.Lock()
	e.accessToken = token
	e.tokenMu.Unlock()
}

func (e *Engine) backgroundCtx() context.Context {
	e.tokenMu.RLock()
	token := e.accessToken
	e.tokenMu.RUnlock()
	return platform.WithAccessToken(context.Background(), token)
}

// snapshot must be called with e.mu held.
func (e *Engine) snapshot() []models.Task {
	out := make([]models.Task, len(e.tasks))
	copy(out, e.tasks)
	return out
}

func (e *Engine) notify(tasks []models.Task) {
	e.mu.Lock()
	listeners := make([]Listener, len(e.listeners))
	copy(listeners, e.listeners)
	e.mu.Unlock()
	for _, l := range listeners {
		l(tasks)
	}
}

// Load replaces the in-memory list with the store's authoritative one. When
// the store call fails for any reason the last cached list is used instead,
// stamped with the current owner; the cache itself is left untouched so a
// transient zero-row failure can never wipe it.
func (e *Engine) Load(ctx context.Context) error {
	if e.ownerID == "" {
		e.mu.Lock()
		e.tasks = nil
		e.revs = make(map[string]uint64)
		snap := e.snapshot()
		e.mu.Unlock()
		e.notify(snap)
		return ErrNoIdentity
	}

	remote, err := e.store.ListTasks(ctx, e.ownerID)
	if err != nil {
		cached, cacheErr := e.cache.LoadTasks(ctx, e.ownerID)
		if cacheErr != nil {
			e.log.WithError(cacheErr).Error("fallback cache read failed")
		}
		syncedAt, _ := e.cache.SyncedAt(ctx)
		e.mu.Lock()
		e.tasks = cached
		e.resetRevs()
		if !syncedAt.IsZero() {
			// Last time the cached data was known fresh.
			e.lastSyncedAt = syncedAt
		}
		snap := e.snapshot()
		e.mu.Unlock()
		e.notify(snap)
		return err
	}

	now := time.Now()
	e.mu.Lock()
	e.tasks = remote
	e.resetRevs()
	e.lastSyncedAt = now
	snap := e.snapshot()
	e.mu.Unlock()

	if err := e.cache.StoreTasks(ctx, snap); err != nil {
		e.log.WithError(err).Warn("cache mirror failed after load")
	}
	if err := e.cache.SetSyncedAt(ctx, now); err != nil {
		e.log.WithError(err).Warn("synced-at persist failed")
	}
	e.notify(snap)
	return nil
}

// markSynced records a successful store round-trip, in memory and in the
// fallback cache.
func (e *Engine) markSynced(ctx context.Context) {
	now := time.Now()
	e.mu.Lock()
	e.lastSyncedAt = now
	e.mu.Unlock()
	if err := e.cache.SetSyncedAt(ctx, now); err != nil {
		e.log.WithError(err).Warn("synced-at persist failed")
	}
}

// resetRevs must be called with e.mu held.
func (e *Engine) resetRevs() {
	e.revs = make(map[string]uint64)
	for _, t := range e.tasks {
		e.revs[t.ID] = 1
	}
}

// Add appends a provisional task and confirms it against the store. On any
// store failure the provisional record stays in the list and is mirrored to
// the cache: the intent is preserved, only unsynced.
func (e *Engine) Add(ctx context.Context, text string, priority models.Priority) (models.Task, error) {
	if e.ownerID == "" {
		return models.Task{}, ErrNoIdentity
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Task{}, ErrEmptyText
	}
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !priority.Valid() {
		return models.Task{}, ErrInvalidPriority
	}

	now := time.Now()

	e.mu.Lock()
	e.tempSeq++
	provisional := models.Task{
		ID:        tempTaskID(now, e.tempSeq),
		Text:      text,
		Completed: false,
		Priority:  priority,
		OwnerID:   e.ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	e.tasks = append(e.tasks, provisional)
	e.revs[provisional.ID] = 1
	snap := e.snapshot()
	e.mu.Unlock()
	e.notify(snap)

	confirmed, err := e.store.InsertTask(ctx, provisional)
	if err != nil {
		e.mirror(ctx)
		return provisional, err
	}

	e.mu.Lock()
	if i := e.indexOf(provisional.ID); i >= 0 {
		e.tasks[i] = confirmed
		delete(e.revs, provisional.ID)
		e.revs[confirmed.ID] = 1
	}
	snap = e.snapshot()
	e.mu.Unlock()

	e.markSynced(ctx)
	e.mirror(ctx)
	e.notify(snap)
	return confirmed, nil
}

// Delete removes a task optimistically. A store rejection restores the
// pre-delete list exactly; an unreachable store keeps the removal, to be
// reconciled on the next load.
func (e *Engine) Delete(ctx context.Context, id string) error {
	if e.ownerID == "" {
		return ErrNoIdentity
	}

	e.mu.Lock()
	idx := e.indexOf(id)
	if idx < 0 {
		e.mu.Unlock()
		return ErrTaskNotFound
	}
	pre := e.tasks[idx]
	e.tasks = append(e.tasks[:idx], e.tasks[idx+1:]...)
	if e.editing == id {
		e.editing = ""
	}
	e.revs[id]++
	rev := e.revs[id]
	snap := e.snapshot()
	e.mu.Unlock()
	e.notify(snap)

	if pre.IsProvisional() {
		// Never reached the store; nothing to delete remotely.
		e.mirror(ctx)
		return nil
	}

	err := e.store.DeleteTask(ctx, id, e.ownerID)
	if err == nil {
		e.markSynced(ctx)
		e.mirror(ctx)
		return nil
	}

	if platform.IsRequestError(err) {
		e.mu.Lock()
		if e.revs[id] == rev {
			if idx > len(e.tasks) {
				idx = len(e.tasks)
			}
			e.tasks = append(e.tasks[:idx], append([]models.Task{pre}, e.tasks[idx:]...)...)
			e.revs[id]++
		}
		snap = e.snapshot()
		e.mu.Unlock()
		e.mirror(ctx)
		e.notify(snap)
		return err
	}

	// Network failure: the local deletion stands.
	e.mirror(ctx)
	return err
}

// ToggleCompleted flips the completed flag optimistically and reconciles the
// authoritative record on success.
func (e *Engine) ToggleCompleted(ctx context.Context, id string) (models.Task, error) {
	return e.mutate(ctx, id, func(t *models.Task) {
		t.Completed = !t.Completed
	}, false)
}

// Edit rewrites a task's text and priority. Edit mode closes whatever the
// outcome; reopening it is never automatic.
func (e *Engine) Edit(ctx context.Context, id, text string, priority models.Priority) (models.Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Task{}, ErrEmptyText
	}
	if !priority.Valid() {
		return models.Task{}, ErrInvalidPriority
	}
	return e.mutate(ctx, id, func(t *models.Task) {
		t.Text = text
		t.Priority = priority
	}, true)
}

// mutate applies an optimistic in-place update and settles it against the
// store. Rollback targets are tracked per task: the pre-image is restored
// only when no later mutation has touched the same task, so concurrent
// in-flight mutations on different tasks never clobber each other.
func (e *Engine) mutate(ctx context.Context, id string, apply func(*models.Task), closeEdit bool) (models.Task, error) {
	if e.ownerID == "" {
		return models.Task{}, ErrNoIdentity
	}

	e.mu.Lock()
	idx := e.indexOf(id)
	if idx < 0 {
		e.mu.Unlock()
		return models.Task{}, ErrTaskNotFound
	}
	pre := e.tasks[idx]
	apply(&e.tasks[idx])
	e.tasks[idx].UpdatedAt = time.Now()
	optimistic := e.tasks[idx]
	e.revs[id]++
	rev := e.revs[id]
	if closeEdit && e.editing == id {
		e.editing = ""
	}
	snap := e.snapshot()
	e.mu.Unlock()
	e.notify(snap)

	updated, err := e.store.UpdateTask(ctx, optimistic)
	if err == nil {
		e.mu.Lock()
		if i := e.indexOf(id); i >= 0 && e.revs[id] == rev {
			e.tasks[i] = updated
		}
		snap = e.snapshot()
		e.mu.Unlock()
		e.markSynced(ctx)
		e.mirror(ctx)
		e.notify(snap)
		return updated, nil
	}

	if platform.IsRequestError(err) {
		e.mu.Lock()
		if i := e.indexOf(id); i >= 0 && e.revs[id] == rev {
			e.tasks[i] = pre
			e.revs[id]++
		}
		snap = e.snapshot()
		e.mu.Unlock()
		e.mirror(ctx)
		e.notify(snap)
		return pre, err
	}

	// Network failure: the optimistic state stands and is cached.
	e.mirror(ctx)
	return optimistic, err
}

// OnRemoteChange handles one change-feed notification by reloading the full
// list. Incremental patching is deliberately skipped; per-identity task
// lists are small.
func (e *Engine) OnRemoteChange(ev platform.ChangeEvent) {
	e.log.WithFields(logrus.Fields{"table": ev.Table, "event": string(ev.Type)}).Debug("change feed event")
	if err := e.Load(e.backgroundCtx()); err != nil {
		e.log.WithError(err).Warn("reload after change feed event failed")
	}
}

// StartEdit marks a task as being edited.
func (e *Engine) StartEdit(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.indexOf(id) < 0 {
		return ErrTaskNotFound
	}
	e.editing = id
	return nil
}

func (e *Engine) CancelEdit() {
	e.mu.Lock()
	e.editing = ""
	e.mu.Unlock()
}

func (e *Engine) Editing() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.editing
}

// Tasks returns the list in stable insertion order.
func (e *Engine) Tasks() []models.Task {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot()
}

// View returns the list in presentation order: insertion order by default,
// or priority order with insertion order breaking ties.
func (e *Engine) View(opts ViewOptions) []models.Task {
	e.mu.Lock()
	tasks := e.snapshot()
	e.mu.Unlock()

	if opts.SortByPriority {
		sort.SliceStable(tasks, func(i, j int) bool {
			return tasks[i].Priority.Rank() < tasks[j].Priority.Rank()
		})
	}
	if opts.HideCompleted {
		visible := tasks[:0]
		for _, t := range tasks {
			if !t.Completed {
				visible = append(visible, t)
			}
		}
		tasks = visible
	}
	return tasks
}

func (e *Engine) LastSyncedAt() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSyncedAt
}

// indexOf must be called with e.mu held.
func (e *Engine) indexOf(id string) int {
	for i, t := range e.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (e *Engine) mirror(ctx context.Context) {
	e.mu.Lock()
	snap := e.snapshot()
	e.mu.Unlock()
	if err := e.cache.StoreTasks(ctx, snap); err != nil {
		e.log.WithError(err).Warn("cache mirror failed")
	}
}
