package handlers

import (
	"errors"
	"net/http"

	"todohub/internal/models"
	"todohub/internal/platform"
	"todohub/internal/sync"

	"github.com/gin-gonic/gin"
)

// taskStatus maps a settled mutation to the response shape the presentation
// layer renders: synced means the store confirmed the optimistic change,
// offline means the store was unreachable and the change is cached locally.
func taskResponse(task models.Task, synced, offline bool) gin.H {
	return gin.H{"task": task, "synced": synced, "offline": offline}
}

// ListTasks godoc
// @Summary List the caller's tasks
// @Description Returns tasks in presentation order, with sync status
// @Tags tasks
// @Produce json
// @Param sort query string false "Set to 'priority' for priority order"
// @Param hide_completed query bool false "Hide completed tasks"
// @Success 200 {object} object{tasks=[]object,last_synced_at=string,editing=string}
// @Security BearerAuth
// @Router /api/tasks [get]
func (h *Handler) ListTasks(c *gin.Context) {
	engine := h.engineFor(c)

	tasks := engine.View(sync.ViewOptions{
		SortByPriority: c.Query("sort") == "priority",
		HideCompleted:  c.Query("hide_completed") == "true",
	})
	if tasks == nil {
		tasks = []models.Task{}
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks":          tasks,
		"last_synced_at": engine.LastSyncedAt(),
		"editing":        engine.Editing(),
	})
}

// ReloadTasks godoc
// @Summary Reload tasks from the store
// @Description Forces a full reload; falls back to the local cache offline
// @Tags tasks
// @Produce json
// @Success 200 {object} object{tasks=[]object,offline=bool}
// @Security BearerAuth
// @Router /api/tasks/reload [post]
func (h *Handler) ReloadTasks(c *gin.Context) {
	engine := h.engineFor(c)

	// Any load failure falls back to the cached list; the persistent
	// offline indicator is the only surfaced signal.
	err := engine.Load(c.Request.Context())
	tasks := engine.Tasks()
	if tasks == nil {
		tasks = []models.Task{}
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks, "offline": err != nil})
}

// CreateTask godoc
// @Summary Add a task
// @Description Adds a task optimistically; an unsynced task keeps its temporary id
// @Tags tasks
// @Accept json
// @Produce json
// @Param task body object{text=string,priority=string} true "Task to add"
// @Success 201 {object} object{task=object,synced=bool,offline=bool}
// @Failure 400 {object} object{error=string}
// @Security BearerAuth
// @Router /api/tasks [post]
func (h *Handler) CreateTask(c *gin.Context) {
	var request struct {
		Text     string          `json:"text" binding:"required"`
		Priority models.Priority `json:"priority"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Task text is required"})
		return
	}

	engine := h.engineFor(c)
	task, err := engine.Add(c.Request.Context(), request.Text, request.Priority)
	switch {
	case errors.Is(err, sync.ErrEmptyText), errors.Is(err, sync.ErrInvalidPriority):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, sync.ErrNoIdentity):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
	case err != nil:
		// The optimistic record stays in the list and in the cache.
		c.JSON(http.StatusAccepted, taskResponse(task, false, !platform.IsRequestError(err)))
	default:
		c.JSON(http.StatusCreated, taskResponse(task, true, false))
	}
}

// ToggleTask godoc
// @Summary Toggle a task's completed flag
// @Tags tasks
// @Produce json
// @Param id path string true "Task id"
// @Success 200 {object} object{task=object,synced=bool,offline=bool}
// @Failure 404 {object} object{error=string}
// @Failure 409 {object} object{error=string,task=object}
// @Security BearerAuth
// @Router /api/tasks/{id}/toggle [post]
func (h *Handler) ToggleTask(c *gin.Context) {
	engine := h.engineFor(c)
	task, err := engine.ToggleCompleted(c.Request.Context(), c.Param("id"))
	h.respondMutation(c, task, err)
}

// UpdateTask godoc
// @Summary Edit a task's text and priority
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path string true "Task id"
// @Param task body object{text=string,priority=string} true "New values"
// @Success 200 {object} object{task=object,synced=bool,offline=bool}
// @Failure 400 {object} object{error=string}
// @Failure 409 {object} object{error=string,task=object}
// @Security BearerAuth
// @Router /api/tasks/{id} [put]
func (h *Handler) UpdateTask(c *gin.Context) {
	var request struct {
		Text     string          `json:"text" binding:"required"`
		Priority models.Priority `json:"priority" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Text and priority are required"})
		return
	}

	engine := h.engineFor(c)
	task, err := engine.Edit(c.Request.Context(), c.Param("id"), request.Text, request.Priority)
	h.respondMutation(c, task, err)
}

// respondMutation translates the engine's settle outcome: success, rolled
// back after a store rejection, or kept optimistically after a network
// failure.
func (h *Handler) respondMutation(c *gin.Context, task models.Task, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, taskResponse(task, true, false))
	case errors.Is(err, sync.ErrTaskNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
	case errors.Is(err, sync.ErrEmptyText), errors.Is(err, sync.ErrInvalidPriority):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, sync.ErrNoIdentity):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
	case platform.IsRequestError(err):
		// Rolled back; the client may retry.
		c.JSON(http.StatusConflict, gin.H{"error": "Change rejected by the store", "task": task})
	default:
		c.JSON(http.StatusAccepted, taskResponse(task, false, true))
	}
}

// DeleteTask godoc
// @Summary Delete a task
// @Description A store rejection restores the task; offline the removal is kept locally
// @Tags tasks
// @Produce json
// @Param id path string true "Task id"
// @Success 200 {object} object{message=string}
// @Failure 404 {object} object{error=string}
// @Failure 409 {object} object{error=string}
// @Security BearerAuth
// @Router /api/tasks/{id} [delete]
func (h *Handler) DeleteTask(c *gin.Context) {
	engine := h.engineFor(c)
	err := engine.Delete(c.Request.Context(), c.Param("id"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"message": "Task deleted"})
	case errors.Is(err, sync.ErrTaskNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
	case errors.Is(err, sync.ErrNoIdentity):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
	case platform.IsRequestError(err):
		c.JSON(http.StatusConflict, gin.H{"error": "Delete rejected by the store; task restored"})
	default:
		c.JSON(http.StatusAccepted, gin.H{"message": "Task deleted locally", "offline": true})
	}
}

// StartEdit godoc
// @Summary Mark a task as being edited
// @Tags tasks
// @Produce json
// @Param id path string true "Task id"
// @Success 200 {object} object{editing=string}
// @Failure 404 {object} object{error=string}
// @Security BearerAuth
// @Router /api/tasks/{id}/edit [post]
func (h *Handler) StartEdit(c *gin.Context) {
	engine := h.engineFor(c)
	if err := engine.StartEdit(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"editing": engine.Editing()})
}

// CancelEdit godoc
// @Summary Leave edit mode
// @Tags tasks
// @Produce json
// @Success 200 {object} object{message=string}
// @Security BearerAuth
// @Router /api/tasks/edit [delete]
func (h *Handler) CancelEdit(c *gin.Context) {
	h.engineFor(c).CancelEdit()
	c.JSON(http.StatusOK, gin.H{"message": "Edit cancelled"})
}
