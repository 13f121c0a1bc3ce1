// internal/cache/cache.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"todohub/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	tasksKey    = "fallback:tasks"
	syncedAtKey = "fallback:tasks:synced_at"
	darkModeKey = "pref:darkmode:%s"
)

// Cache is the durable local fallback store: it keeps the last-known task
// list for when the platform is unreachable, plus the dark-mode flag. Like
// the device-local store it models, the task key is not namespaced per
// identity; the owner id is stamped onto records on read instead.
type Cache struct {
	redis *redis.Client
}

func New(redisURL string) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %v", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %v", err)
	}

	return &Cache{redis: client}, nil
}

// StoreTasks mirrors the in-memory task list. Callers only invoke this with
// the list they intend to survive a restart; a failed load never writes
// here, so a stale cache is preserved rather than zeroed.
func (c *Cache) StoreTasks(ctx context.Context, tasks []models.Task) error {
	payload, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("error encoding tasks: %v", err)
	}
	return c.redis.Set(ctx, tasksKey, payload, 0).Err()
}

// LoadTasks returns the last mirrored task list with every record stamped
// with the given owner id. A missing key yields an empty list.
func (c *Cache) LoadTasks(ctx context.Context, ownerID string) ([]models.Task, error) {
	payload, err := c.redis.Get(ctx, tasksKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var tasks []models.Task
	if err := json.Unmarshal(payload, &tasks); err != nil {
		return nil, fmt.Errorf("error decoding cached tasks: %v", err)
	}
	for i := range tasks {
		tasks[i].OwnerID = ownerID
	}
	return tasks, nil
}

func (c *Cache) SetSyncedAt(ctx context.Context, t time.Time) error {
	return c.redis.Set(ctx, syncedAtKey, t.UTC().Format(time.RFC3339), 0).Err()
}

func (c *Cache) SyncedAt(ctx context.Context) (time.Time, error) {
	v, err := c.redis.Get(ctx, syncedAtKey).Result()
	if err == redis.Nil {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, v)
}

func (c *Cache) SetDarkMode(ctx context.Context, userID string, enabled bool) error {
	return c.redis.Set(ctx, fmt.Sprintf(darkModeKey, userID), enabled, 0).Err()
}

func (c *Cache) DarkMode(ctx context.Context, userID string) (bool, error) {
	v, err := c.redis.Get(ctx, fmt.Sprintf(darkModeKey, userID)).Bool()
	if err == redis.Nil {
		return false, nil
	}
	return v, err
}

func (c *Cache) Close() error {
	return c.redis.Close()
}
