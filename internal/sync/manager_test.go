package sync

import (
	"context"
	gosync "sync"
	"testing"
	"time"

	"todohub/internal/models"
	"todohub/internal/platform"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFeedSub struct {
	mu     gosync.Mutex
	closed bool
}

func (s *fakeFeedSub) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *fakeFeedSub) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeFeed struct {
	mu   gosync.Mutex
	subs map[string]*fakeFeedSub
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{subs: make(map[string]*fakeFeedSub)}
}

func (f *fakeFeed) Subscribe(ctx context.Context, table, ownerID string, handler func(platform.ChangeEvent)) (FeedSubscription, error) {
	sub := &fakeFeedSub{}
	f.mu.Lock()
	f.subs[ownerID] = sub
	f.mu.Unlock()
	return sub, nil
}

func (f *fakeFeed) sub(ownerID string) *fakeFeedSub {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subs[ownerID]
}

func newTestManager(store *fakeStore, feed Feed, hook EngineHook) *Manager {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewManager(store, &fakeCache{}, feed, hook, log)
}

func TestManagerEngine(t *testing.T) {
	ctx := context.Background()

	t.Run("one engine per identity", func(t *testing.T) {
		m := newTestManager(&fakeStore{}, newFakeFeed(), nil)

		a := m.Engine(ctx, "user-1", "token-1")
		b := m.Engine(ctx, "user-1", "token-2")
		c := m.Engine(ctx, "user-2", "token-3")

		assert.Same(t, a, b)
		assert.NotSame(t, a, c)
	})

	t.Run("hook runs once before the first load", func(t *testing.T) {
		var hooked []string
		m := newTestManager(&fakeStore{}, newFakeFeed(), func(ownerID string, e *Engine) {
			hooked = append(hooked, ownerID)
		})

		m.Engine(ctx, "user-1", "t")
		m.Engine(ctx, "user-1", "t")
		m.Engine(ctx, "user-2", "t")
		assert.Equal(t, []string{"user-1", "user-2"}, hooked)
	})

	t.Run("first use subscribes and loads", func(t *testing.T) {
		store := &fakeStore{rows: []models.Task{{ID: "task-1", Text: "first", OwnerID: "user-1"}}}
		feed := newFakeFeed()
		m := newTestManager(store, feed, nil)

		e := m.Engine(ctx, "user-1", "t")
		require.Len(t, e.Tasks(), 1)
		assert.NotNil(t, feed.sub("user-1"))
	})
}

func TestManagerColdStartDoesNotBlockOtherIdentities(t *testing.T) {
	ctx := context.Background()

	release := make(chan struct{})
	store := &fakeStore{listHook: func(ownerID string) {
		if ownerID == "slow-user" {
			<-release
		}
	}}
	defer close(release)

	m := newTestManager(store, newFakeFeed(), nil)

	// Warm an unrelated identity first.
	m.Engine(ctx, "user-a", "t")

	started := make(chan struct{})
	go func() {
		close(started)
		m.Engine(ctx, "slow-user", "t")
	}()
	<-started
	time.Sleep(10 * time.Millisecond) // let the cold start reach the store

	done := make(chan struct{})
	go func() {
		m.Engine(ctx, "user-a", "t")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("warm identity blocked behind another identity's cold start")
	}
}

func TestManagerDrop(t *testing.T) {
	ctx := context.Background()
	feed := newFakeFeed()
	m := newTestManager(&fakeStore{}, feed, nil)

	a := m.Engine(ctx, "user-1", "t")
	m.Drop("user-1")
	assert.True(t, feed.sub("user-1").isClosed())

	// A fresh engine is built after a drop.
	b := m.Engine(ctx, "user-1", "t")
	assert.NotSame(t, a, b)
}

func TestManagerShutdown(t *testing.T) {
	ctx := context.Background()
	feed := newFakeFeed()
	m := newTestManager(&fakeStore{}, feed, nil)

	m.Engine(ctx, "user-1", "t")
	m.Engine(ctx, "user-2", "t")
	m.Shutdown()

	assert.True(t, feed.sub("user-1").isClosed())
	assert.True(t, feed.sub("user-2").isClosed())
}
