package platform

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"todohub/internal/config"
	"todohub/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewClient(config.PlatformConfig{BaseURL: srv.URL, AnonKey: "anon-key"}, log)
}

func TestListTasks(t *testing.T) {
	var gotReq *http.Request
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReq = r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"task-1","text":"first","priority":"high","owner_id":"user-1"}]`))
	}))

	ctx := WithAccessToken(context.Background(), "user-token")
	tasks, err := c.ListTasks(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "task-1", tasks[0].ID)
	assert.Equal(t, models.PriorityHigh, tasks[0].Priority)

	require.NotNil(t, gotReq)
	assert.Equal(t, "/rest/v1/tasks", gotReq.URL.Path)
	assert.Equal(t, "eq.user-1", gotReq.URL.Query().Get("owner_id"))
	assert.Equal(t, "created_at.asc", gotReq.URL.Query().Get("order"))
	assert.Equal(t, "anon-key", gotReq.Header.Get("apikey"))
	// The caller's token, not the anon key, authorizes the call.
	assert.Equal(t, "Bearer user-token", gotReq.Header.Get("Authorization"))
}

func TestAnonAuthorizationWithoutToken(t *testing.T) {
	var authz string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	}))

	_, err := c.ListTasks(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Bearer anon-key", authz)
}

func TestInsertTask(t *testing.T) {
	var gotReq *http.Request
	var gotBody string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReq = r.Clone(context.Background())
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`[{"id":"task-9","text":"Buy milk","priority":"medium","owner_id":"user-1"}]`))
	}))

	created, err := c.InsertTask(context.Background(), models.Task{
		ID: "temp-1700000000000", Text: "Buy milk", Priority: models.PriorityMedium, OwnerID: "user-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "task-9", created.ID)

	require.NotNil(t, gotReq)
	assert.Equal(t, http.MethodPost, gotReq.Method)
	assert.Equal(t, "return=representation", gotReq.Header.Get("Prefer"))
	// The provisional id stays local.
	assert.NotContains(t, gotBody, "temp-")
	assert.Contains(t, gotBody, `"text":"Buy milk"`)
}

func TestUpdateTaskMapsEmptyResultToNotFound(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))

	_, err := c.UpdateTask(context.Background(), models.Task{ID: "task-404", OwnerID: "user-1"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, IsRequestError(err))
}

func TestErrorClassification(t *testing.T) {
	t.Run("non-2xx becomes a request error", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"code":"42501","message":"permission denied"}`))
		}))

		err := c.DeleteTask(context.Background(), "task-1", "user-1")
		require.Error(t, err)
		require.True(t, IsRequestError(err))

		var re *RequestError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, http.StatusForbidden, re.Status)
		assert.Equal(t, "42501", re.Code)
		assert.Equal(t, "permission denied", re.Message)
	})

	t.Run("unreachable host is not a request error", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()
		log := logrus.New()
		log.SetLevel(logrus.PanicLevel)
		c := NewClient(config.PlatformConfig{BaseURL: srv.URL, AnonKey: "anon-key"}, log)

		err := c.DeleteTask(context.Background(), "task-1", "user-1")
		require.Error(t, err)
		assert.False(t, IsRequestError(err))
		assert.Contains(t, err.Error(), "platform unreachable")
	})
}
