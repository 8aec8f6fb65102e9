package domain

import (
	"strings"
	"time"
)

type TaskStatus string

const (
	StatusCompleted  TaskStatus = "completed"
	StatusIncomplete TaskStatus = "incomplete"

	// StatusAll solo es valido como filtro.
	StatusAll = "all"
)

// Valid indica si el status es uno de los dos valores persistibles.
func (s TaskStatus) Valid() bool {
	return s == StatusCompleted || s == StatusIncomplete
}

// Toggle devuelve el status inverso.
func (s TaskStatus) Toggle() TaskStatus {
	if s == StatusCompleted {
		return StatusIncomplete
	}
	return StatusCompleted
}

type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      TaskStatus `json:"status"`
	UserID      string     `json:"userId"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Matches aplica la busqueda de subcadena sin distinguir mayusculas sobre
// titulo o descripcion. Una consulta vacia coincide con todo.
func (t Task) Matches(query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(t.Title), q) ||
		strings.Contains(strings.ToLower(t.Description), q)
}

// TaskPatch lleva solo los campos enviados en una actualizacion parcial.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *TaskStatus
}

// Apply copia los campos presentes sobre la tarea.
func (p TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
}

// TaskFilter combina los filtros primarios de un listado. Ambos campos se
// intersectan cuando vienen juntos.
type TaskFilter struct {
	Search string
	Status string
}

// StatusFilter devuelve el status a comparar, o "" cuando el filtro es nulo.
func (f TaskFilter) StatusFilter() string {
	s := strings.TrimSpace(f.Status)
	if s == "" || s == StatusAll {
		return ""
	}
	return s
}

// Accepts evalua el filtro completo en memoria.
func (f TaskFilter) Accepts(t Task) bool {
	if s := f.StatusFilter(); s != "" && string(t.Status) != s {
		return false
	}
	return t.Matches(f.Search)
}

type TaskStats struct {
	Total          int `json:"total"`
	Completed      int `json:"completed"`
	Incomplete     int `json:"incomplete"`
	CompletionRate int `json:"completionRate"`
}

// NewTaskStats deriva incompletas y el porcentaje (redondeo half-up) a partir
// de los conteos.
func NewTaskStats(total, completed int) TaskStats {
	stats := TaskStats{
		Total:      total,
		Completed:  completed,
		Incomplete: total - completed,
	}
	if total > 0 {
		stats.CompletionRate = (200*completed + total) / (2 * total)
	}
	return stats
}
