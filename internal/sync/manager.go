package sync

import (
	"context"
	gosync "sync"

	"todohub/internal/platform"

	"github.com/sirupsen/logrus"
)

// Feed opens change-feed subscriptions; satisfied by a thin wrapper around
// the platform client so tests can substitute their own.
type Feed interface {
	Subscribe(ctx context.Context, table, ownerID string, handler func(platform.ChangeEvent)) (FeedSubscription, error)
}

type FeedSubscription interface {
	Close()
}

// EngineHook runs once per newly created engine, before its first load.
// Wiring uses it to attach the stats aggregator as a listener.
type EngineHook func(ownerID string, e *Engine)

// Manager lazily builds one engine per signed-in identity and owns its
// change-feed subscription lifecycle: a subscription is established strictly
// after the previous one for that identity is torn down, and dropped when
// the identity signs out.
type Manager struct {
	store TaskStore
	cache FallbackCache
	feed  Feed
	hook  EngineHook
	log   *logrus.Logger

	mu      gosync.RWMutex
	engines map[string]*managedEngine
}

type managedEngine struct {
	engine *Engine
	// start guards the cold start (feed subscription + initial load) so it
	// runs once, with concurrent callers for the same identity waiting on
	// the engine rather than on the manager-wide lock.
	start gosync.Once
	sub   FeedSubscription
}

func NewManager(store TaskStore, cache FallbackCache, feed Feed, hook EngineHook, log *logrus.Logger) *Manager {
	return &Manager{
		store:   store,
		cache:   cache,
		feed:    feed,
		hook:    hook,
		log:     log,
		engines: make(map[string]*managedEngine),
	}
}

// Engine returns the sync engine for an identity, creating it on first use.
// The access token is refreshed on every call so feed-triggered reloads keep
// working between requests.
func (m *Manager) Engine(ctx context.Context, ownerID, accessToken string) *Engine {
	m.mu.RLock()
	managed, exists := m.engines[ownerID]
	m.mu.RUnlock()

	if !exists {
		m.mu.Lock()
		// Check again in case another request created it
		if managed, exists = m.engines[ownerID]; !exists {
			engine := NewEngine(m.store, m.cache, ownerID, m.log)
			if m.hook != nil {
				m.hook(ownerID, engine)
			}
			managed = &managedEngine{engine: engine}
			m.engines[ownerID] = managed
		}
		m.mu.Unlock()
	}

	managed.engine.SetAccessToken(accessToken)

	// Cold start runs outside the manager lock: a slow or unreachable
	// platform stalls only callers for this identity, never the whole map.
	managed.start.Do(func() {
		if m.feed != nil {
			sub, err := m.feed.Subscribe(context.Background(), "tasks", ownerID, managed.engine.OnRemoteChange)
			if err != nil {
				m.log.WithError(err).WithField("owner", ownerID).Warn("change feed subscription failed; realtime reload disabled")
			} else {
				managed.sub = sub
			}
		}
		if err := managed.engine.Load(ctx); err != nil {
			m.log.WithError(err).WithField("owner", ownerID).Warn("initial load fell back to cache")
		}
	})

	return managed.engine
}

// Drop tears down the engine and subscription for an identity, typically on
// sign-out.
func (m *Manager) Drop(ownerID string) {
	m.mu.Lock()
	managed, exists := m.engines[ownerID]
	if exists {
		delete(m.engines, ownerID)
	}
	m.mu.Unlock()

	if exists {
		// Wait out an in-flight cold start so the subscription cannot leak.
		managed.start.Do(func() {})
		if managed.sub != nil {
			managed.sub.Close()
		}
	}
}

// Shutdown closes every subscription.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	engines := m.engines
	m.engines = make(map[string]*managedEngine)
	m.mu.Unlock()

	for _, managed := range engines {
		managed.start.Do(func() {})
		if managed.sub != nil {
			managed.sub.Close()
		}
	}
}
