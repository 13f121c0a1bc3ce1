package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// EventType mirrors the row-level change kinds delivered by the feed.
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// ChangeEvent is one row-level notification from the platform's change feed.
type ChangeEvent struct {
	Type   EventType       `json:"type"`
	Table  string          `json:"table"`
	Record json.RawMessage `json:"record,omitempty"`
}

type feedEnvelope struct {
	Type  string       `json:"type"`
	Topic string       `json:"topic,omitempty"`
	Ref   string       `json:"ref,omitempty"`
	Event *ChangeEvent `json:"event,omitempty"`
}

// Subscription is one active change-feed channel for a (table, owner)
// filter. Exactly one subscription per identity per table is kept alive;
// callers must Close the previous one before opening a replacement.
type Subscription struct {
	conn    *websocket.Conn
	done    chan struct{}
	closeMu sync.Once
}

const pingInterval = 30 * time.Second

// Subscribe opens a change-feed subscription delivering insert/update/delete
// events for rows matching owner_id on the given table. The handler runs on
// the subscription's read goroutine; it must not block.
func (c *Client) Subscribe(ctx context.Context, table, ownerID string, handler func(ChangeEvent)) (*Subscription, error) {
	wsURL := strings.Replace(c.baseURL, "http", "ws", 1) + "/realtime/v1/ws?apikey=" + c.anonKey

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("change feed unreachable: %w", err)
	}

	join := feedEnvelope{
		Type:  "subscribe",
		Topic: fmt.Sprintf("%s:owner_id=eq.%s", table, ownerID),
		Ref:   uuid.NewString(),
	}
	if err := conn.WriteJSON(join); err != nil {
		conn.Close()
		return nil, fmt.Errorf("change feed subscribe failed: %w", err)
	}

	sub := &Subscription{conn: conn, done: make(chan struct{})}
	log := c.log.WithField("topic", join.Topic)

	go func() {
		for {
			var env feedEnvelope
			if err := conn.ReadJSON(&env); err != nil {
				select {
				case <-sub.done:
				default:
					log.WithError(err).Warn("change feed read failed, subscription dead")
				}
				return
			}
			if env.Type == "change" && env.Event != nil {
				handler(*env.Event)
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				deadline := time.Now().Add(10 * time.Second)
				if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					return
				}
			case <-sub.done:
				return
			}
		}
	}()

	return sub, nil
}

// Close tears the subscription down. Safe to call more than once.
func (s *Subscription) Close() {
	s.closeMu.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}
