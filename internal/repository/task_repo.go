package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"todo-api/internal/domain"
)

// TaskRepository define el contrato de persistencia para tareas. Toda
// operacion esta acotada por ownerID: una tarea ajena se comporta igual que
// una inexistente (domain.ErrNotFound).
type TaskRepository interface {
	Create(ctx context.Context, task domain.Task) error
	GetByID(ctx context.Context, id, ownerID string) (domain.Task, error)
	// List devuelve las tareas del dueño que pasan el filtro, mas recientes
	// primero; los empates de createdAt se ordenan por id ascendente.
	List(ctx context.Context, ownerID string, filter domain.TaskFilter) ([]domain.Task, error)
	Update(ctx context.Context, id, ownerID string, patch domain.TaskPatch, updatedAt time.Time) (domain.Task, error)
	Delete(ctx context.Context, id, ownerID string) (bool, error)
	// ToggleStatus invierte el status en una sola operacion atomica.
	ToggleStatus(ctx context.Context, id, ownerID string, updatedAt time.Time) (domain.Task, error)
	CountByStatus(ctx context.Context, ownerID string) (total int, completed int, err error)
}

// PgTaskRepository implementa TaskRepository usando pgxpool.
type PgTaskRepository struct {
	pool *pgxpool.Pool
}

func NewPgTaskRepository(pool *pgxpool.Pool) *PgTaskRepository {
	return &PgTaskRepository{pool: pool}
}

const pgTaskColumns = `id, title, description, status, user_id, created_at, updated_at`

func (r *PgTaskRepository) Create(ctx context.Context, task domain.Task) error {
	const query = `
		INSERT INTO tasks (id, title, description, status, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		string(task.Status),
		task.UserID,
		task.CreatedAt,
		task.UpdatedAt,
	)
	return mapPgError(err)
}

func (r *PgTaskRepository) GetByID(ctx context.Context, id, ownerID string) (domain.Task, error) {
	query := `SELECT ` + pgTaskColumns + ` FROM tasks WHERE id = $1 AND user_id = $2`
	task, err := scanTask(r.pool.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		return domain.Task{}, mapPgError(err)
	}
	return task, nil
}

func (r *PgTaskRepository) List(ctx context.Context, ownerID string, filter domain.TaskFilter) ([]domain.Task, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + pgTaskColumns + ` FROM tasks WHERE user_id = $1`)
	args := []any{ownerID}

	if filter.Search != "" {
		args = append(args, filter.Search)
		n := len(args)
		// strpos evita que % o _ de la consulta actuen como comodines.
		fmt.Fprintf(&sb, ` AND (strpos(lower(title), lower($%d)) > 0 OR strpos(lower(description), lower($%d)) > 0)`, n, n)
	}
	if status := filter.StatusFilter(); status != "" {
		args = append(args, status)
		fmt.Fprintf(&sb, ` AND status = $%d`, len(args))
	}
	sb.WriteString(` ORDER BY created_at DESC, id ASC`)

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func (r *PgTaskRepository) Update(ctx context.Context, id, ownerID string, patch domain.TaskPatch, updatedAt time.Time) (domain.Task, error) {
	query := `
		UPDATE tasks
		SET title = COALESCE($3, title),
		    description = COALESCE($4, description),
		    status = COALESCE($5, status),
		    updated_at = $6
		WHERE id = $1 AND user_id = $2
		RETURNING ` + pgTaskColumns
	task, err := scanTask(r.pool.QueryRow(ctx, query,
		id,
		ownerID,
		patch.Title,
		patch.Description,
		statusArg(patch.Status),
		updatedAt,
	))
	if err != nil {
		return domain.Task{}, mapPgError(err)
	}
	return task, nil
}

func (r *PgTaskRepository) Delete(ctx context.Context, id, ownerID string) (bool, error) {
	const query = `DELETE FROM tasks WHERE id = $1 AND user_id = $2`
	tag, err := r.pool.Exec(ctx, query, id, ownerID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PgTaskRepository) ToggleStatus(ctx context.Context, id, ownerID string, updatedAt time.Time) (domain.Task, error) {
	query := `
		UPDATE tasks
		SET status = CASE WHEN status = 'completed' THEN 'incomplete' ELSE 'completed' END,
		    updated_at = $3
		WHERE id = $1 AND user_id = $2
		RETURNING ` + pgTaskColumns
	task, err := scanTask(r.pool.QueryRow(ctx, query, id, ownerID, updatedAt))
	if err != nil {
		return domain.Task{}, mapPgError(err)
	}
	return task, nil
}

func (r *PgTaskRepository) CountByStatus(ctx context.Context, ownerID string) (int, int, error) {
	const query = `
		SELECT count(*), count(*) FILTER (WHERE status = 'completed')
		FROM tasks
		WHERE user_id = $1
	`
	var total, completed int
	if err := r.pool.QueryRow(ctx, query, ownerID).Scan(&total, &completed); err != nil {
		return 0, 0, err
	}
	return total, completed, nil
}

func scanTask(row pgx.Row) (domain.Task, error) {
	var (
		t      domain.Task
		status string
	)
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &status, &t.UserID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return domain.Task{}, err
	}
	t.Status = domain.TaskStatus(status)
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, nil
}

// statusArg convierte el status opcional a un tipo que el driver codifica sin reflexion.
func statusArg(s *domain.TaskStatus) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}
