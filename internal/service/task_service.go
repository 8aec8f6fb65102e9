package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"todo-api/internal/domain"
	"todo-api/internal/repository"
)

var (
	ErrTaskNotFound  = fmt.Errorf("task %w", domain.ErrNotFound)
	ErrTitleRequired = fmt.Errorf("%w: title is required", domain.ErrValidation)
	ErrInvalidStatus = fmt.Errorf("%w: status must be completed or incomplete", domain.ErrValidation)
)

// Campos de orden aceptados en el listado.
const (
	SortByTitle     = "title"
	SortByStatus    = "status"
	SortByCreatedAt = "createdAt"

	SortAsc  = "asc"
	SortDesc = "desc"
)

// TaskService aplica las reglas de negocio de tareas sobre el repositorio.
// Todas las operaciones reciben el ownerID y nunca cruzan de usuario.
type TaskService struct {
	logger *zap.Logger
	tasks  repository.TaskRepository
	now    func() time.Time
}

func NewTaskService(logger *zap.Logger, tasks repository.TaskRepository) *TaskService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskService{
		logger: logger,
		tasks:  tasks,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// timestamp trunca a milisegundos para que todos los backends devuelvan el
// mismo valor que se guardo.
func (s *TaskService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

type CreateTaskInput struct {
	Title       string
	Description string
	Status      string
}

func (s *TaskService) Create(ctx context.Context, ownerID string, input CreateTaskInput) (domain.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return domain.Task{}, ErrTitleRequired
	}
	status := domain.StatusIncomplete
	if raw := strings.TrimSpace(input.Status); raw != "" {
		status = domain.TaskStatus(raw)
		if !status.Valid() {
			return domain.Task{}, ErrInvalidStatus
		}
	}

	now := s.timestamp()
	task := domain.Task{
		ID:          uuid.NewString(),
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Status:      status,
		UserID:      ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return domain.Task{}, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

func (s *TaskService) GetByID(ctx context.Context, ownerID, id string) (domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, id, ownerID)
	if err != nil {
		return domain.Task{}, s.notFound(err, "get task")
	}
	return task, nil
}

// ListByOwner devuelve las tareas del usuario, la mas reciente primero.
func (s *TaskService) ListByOwner(ctx context.Context, ownerID string) ([]domain.Task, error) {
	return s.list(ctx, ownerID, domain.TaskFilter{})
}

// Search filtra por subcadena en titulo o descripcion, sin distinguir mayusculas.
func (s *TaskService) Search(ctx context.Context, ownerID, query string) ([]domain.Task, error) {
	return s.list(ctx, ownerID, domain.TaskFilter{Search: query})
}

// FilterByStatus restringe por status exacto; "all" no filtra.
func (s *TaskService) FilterByStatus(ctx context.Context, ownerID, status string) ([]domain.Task, error) {
	return s.list(ctx, ownerID, domain.TaskFilter{Status: status})
}

func (s *TaskService) list(ctx context.Context, ownerID string, filter domain.TaskFilter) ([]domain.Task, error) {
	tasks, err := s.tasks.List(ctx, ownerID, filter)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// UpdateTaskInput lleva solo los campos presentes en el cuerpo del request.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Status      *string
}

func (s *TaskService) Update(ctx context.Context, ownerID, id string, input UpdateTaskInput) (domain.Task, error) {
	var patch domain.TaskPatch
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return domain.Task{}, ErrTitleRequired
		}
		patch.Title = &title
	}
	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		patch.Description = &description
	}
	if input.Status != nil {
		status := domain.TaskStatus(strings.TrimSpace(*input.Status))
		if !status.Valid() {
			return domain.Task{}, ErrInvalidStatus
		}
		patch.Status = &status
	}
	// Un patch vacio igual refresca updatedAt y responde 404 si la tarea no es del usuario.
	task, err := s.tasks.Update(ctx, id, ownerID, patch, s.timestamp())
	if err != nil {
		return domain.Task{}, s.notFound(err, "update task")
	}
	return task, nil
}

func (s *TaskService) Delete(ctx context.Context, ownerID, id string) error {
	deleted, err := s.tasks.Delete(ctx, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if !deleted {
		return ErrTaskNotFound
	}
	return nil
}

// ToggleStatus invierte completed/incomplete en una sola operacion del store.
func (s *TaskService) ToggleStatus(ctx context.Context, ownerID, id string) (domain.Task, error) {
	task, err := s.tasks.ToggleStatus(ctx, id, ownerID, s.timestamp())
	if err != nil {
		return domain.Task{}, s.notFound(err, "toggle task")
	}
	return task, nil
}

func (s *TaskService) Stats(ctx context.Context, ownerID string) (domain.TaskStats, error) {
	total, completed, err := s.tasks.CountByStatus(ctx, ownerID)
	if err != nil {
		return domain.TaskStats{}, fmt.Errorf("count tasks: %w", err)
	}
	return domain.NewTaskStats(total, completed), nil
}

// TaskQuery son los parametros del listado combinado.
type TaskQuery struct {
	Status    string
	Search    string
	SortBy    string
	SortOrder string
}

// Normalize aplica los valores por defecto que se devuelven como eco.
func (q TaskQuery) Normalize() TaskQuery {
	out := TaskQuery{
		Status:    strings.TrimSpace(q.Status),
		Search:    strings.TrimSpace(q.Search),
		SortBy:    strings.TrimSpace(q.SortBy),
		SortOrder: strings.ToLower(strings.TrimSpace(q.SortOrder)),
	}
	if out.Status == "" {
		out.Status = domain.StatusAll
	}
	switch out.SortBy {
	case SortByTitle, SortByStatus, SortByCreatedAt:
	default:
		out.SortBy = SortByCreatedAt
	}
	if out.SortOrder != SortAsc {
		out.SortOrder = SortDesc
	}
	return out
}

// TaskListing es la respuesta de GET /tasks.
type TaskListing struct {
	Tasks   []domain.Task    `json:"tasks"`
	Stats   domain.TaskStats `json:"stats"`
	Filters TaskFilters      `json:"filters"`
}

type TaskFilters struct {
	Status    string `json:"status"`
	SortBy    string `json:"sortBy"`
	SortOrder string `json:"sortOrder"`
	Search    string `json:"search"`
}

// Query intersecta busqueda y status, ordena de forma estable y agrega las
// estadisticas del usuario (sin filtrar).
func (s *TaskService) Query(ctx context.Context, ownerID string, query TaskQuery) (TaskListing, error) {
	q := query.Normalize()
	tasks, err := s.list(ctx, ownerID, domain.TaskFilter{Search: q.Search, Status: q.Status})
	if err != nil {
		return TaskListing{}, err
	}
	SortTasks(tasks, q.SortBy, q.SortOrder)

	stats, err := s.Stats(ctx, ownerID)
	if err != nil {
		return TaskListing{}, err
	}
	return TaskListing{
		Tasks: tasks,
		Stats: stats,
		Filters: TaskFilters{
			Status:    q.Status,
			SortBy:    q.SortBy,
			SortOrder: q.SortOrder,
			Search:    q.Search,
		},
	}, nil
}

// SortTasks ordena in place. Los empates conservan el orden recibido.
func SortTasks(tasks []domain.Task, sortBy, sortOrder string) {
	var compare func(a, b domain.Task) int
	switch sortBy {
	case SortByTitle:
		compare = func(a, b domain.Task) int { return strings.Compare(a.Title, b.Title) }
	case SortByStatus:
		compare = func(a, b domain.Task) int { return strings.Compare(string(a.Status), string(b.Status)) }
	default:
		compare = func(a, b domain.Task) int { return a.CreatedAt.Compare(b.CreatedAt) }
	}
	desc := sortOrder != SortAsc
	sort.SliceStable(tasks, func(i, j int) bool {
		c := compare(tasks[i], tasks[j])
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func (s *TaskService) notFound(err error, op string) error {
	if errors.Is(err, domain.ErrNotFound) {
		return ErrTaskNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
