package platform

import (
	"context"
	"net/http"
	"net/url"

	"todohub/internal/models"
)

type taskInsert struct {
	Text      string          `json:"text"`
	Completed bool            `json:"completed"`
	Priority  models.Priority `json:"priority"`
	OwnerID   string          `json:"owner_id"`
}

type taskPatch struct {
	Text      *string          `json:"text,omitempty"`
	Completed *bool            `json:"completed,omitempty"`
	Priority  *models.Priority `json:"priority,omitempty"`
}

// ListTasks returns every task owned by ownerID in ascending creation order,
// the stable presentation order of the task list.
func (c *Client) ListTasks(ctx context.Context, ownerID string) ([]models.Task, error) {
	q := url.Values{}
	q.Set("owner_id", eq(ownerID))
	q.Set("order", "created_at.asc")

	var tasks []models.Task
	if err := c.selectRows(ctx, "tasks", q, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// InsertTask creates a task and returns the authoritative record with its
// permanent id and server-assigned timestamps. The provisional local id is
// never sent to the store.
func (c *Client) InsertTask(ctx context.Context, t models.Task) (models.Task, error) {
	return insertRow[models.Task](ctx, c, "tasks", taskInsert{
		Text:      t.Text,
		Completed: t.Completed,
		Priority:  t.Priority,
		OwnerID:   t.OwnerID,
	})
}

// UpdateTask patches a task scoped to (id, owner). The owner filter keeps
// the request within the caller's row-level policy even if the policy is
// misconfigured.
func (c *Client) UpdateTask(ctx context.Context, t models.Task) (models.Task, error) {
	q := url.Values{}
	q.Set("id", eq(t.ID))
	q.Set("owner_id", eq(t.OwnerID))

	var rows []models.Task
	patch := taskPatch{Text: &t.Text, Completed: &t.Completed, Priority: &t.Priority}
	if err := c.do(ctx, http.MethodPatch, "/rest/v1/tasks", q, patch, &rows); err != nil {
		return models.Task{}, err
	}
	if len(rows) == 0 {
		return models.Task{}, ErrNotFound
	}
	return rows[0], nil
}

// DeleteTask removes a task scoped to (id, owner).
func (c *Client) DeleteTask(ctx context.Context, id, ownerID string) error {
	q := url.Values{}
	q.Set("id", eq(id))
	q.Set("owner_id", eq(ownerID))
	return c.do(ctx, http.MethodDelete, "/rest/v1/tasks", q, nil, nil)
}
