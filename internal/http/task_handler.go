package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"todo-api/internal/service"
)

// TaskHandler expone el CRUD de tareas del usuario autenticado.
type TaskHandler struct {
	logger   *zap.Logger
	taskServ *service.TaskService
}

func NewTaskHandler(logger *zap.Logger, taskServ *service.TaskService) *TaskHandler {
	return &TaskHandler{logger: logger, taskServ: taskServ}
}

// List maneja GET /api/tasks?status=&search=&sortBy=&sortOrder=.
func (h *TaskHandler) List(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	listing, err := h.taskServ.Query(c.Request.Context(), userID, service.TaskQuery{
		Status:    c.Query("status"),
		Search:    c.Query("search"),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	})
	if err != nil {
		writeError(c, h.logger, err, "Failed to fetch tasks")
		return
	}
	c.JSON(http.StatusOK, listing)
}

// Get maneja GET /api/tasks/:id.
func (h *TaskHandler) Get(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	task, err := h.taskServ.GetByID(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err, "Failed to fetch task")
		return
	}
	c.JSON(http.StatusOK, task)
}

// Create maneja POST /api/tasks.
func (h *TaskHandler) Create(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Status      string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, h.logger, err)
		return
	}

	task, err := h.taskServ.Create(c.Request.Context(), userID, service.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
	})
	if err != nil {
		writeError(c, h.logger, err, "Failed to create task")
		return
	}
	c.JSON(http.StatusCreated, task)
}

// Update maneja PUT /api/tasks/:id. Solo aplica los campos presentes.
func (h *TaskHandler) Update(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Status      *string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, h.logger, err)
		return
	}

	task, err := h.taskServ.Update(c.Request.Context(), userID, c.Param("id"), service.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
	})
	if err != nil {
		writeError(c, h.logger, err, "Failed to update task")
		return
	}
	c.JSON(http.StatusOK, task)
}

// Delete maneja DELETE /api/tasks/:id.
func (h *TaskHandler) Delete(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	if err := h.taskServ.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		writeError(c, h.logger, err, "Failed to delete task")
		return
	}
	c.Status(http.StatusNoContent)
}

// Toggle maneja PATCH /api/tasks/:id/toggle.
func (h *TaskHandler) Toggle(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	task, err := h.taskServ.ToggleStatus(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err, "Failed to toggle task status")
		return
	}
	c.JSON(http.StatusOK, task)
}

// Stats maneja GET /api/tasks/stats.
func (h *TaskHandler) Stats(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	stats, err := h.taskServ.Stats(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.logger, err, "Failed to get task statistics")
		return
	}
	c.JSON(http.StatusOK, stats)
}
