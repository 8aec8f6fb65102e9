package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"todo-api/internal/domain"
)

// Los timestamps se guardan como milisegundos Unix en columnas INTEGER.
func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// mapSQLiteError traduce errores de database/sql y de sqlite al dominio.
func mapSQLiteError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %v", domain.ErrDuplicate, err)
	}
	return err
}

// SQLiteUserRepository implementa UserRepository sobre database/sql con el
// driver modernc.org/sqlite.
type SQLiteUserRepository struct {
	db *sql.DB
}

func NewSQLiteUserRepository(db *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db}
}

func (r *SQLiteUserRepository) Create(ctx context.Context, user domain.UserCredentials) error {
	const query = `
		INSERT INTO users (id, username, email, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		toMillis(user.CreatedAt),
		toMillis(user.UpdatedAt),
	)
	return mapSQLiteError(err)
}

func (r *SQLiteUserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	return r.getOne(ctx, "id", id)
}

func (r *SQLiteUserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.getOne(ctx, "email", email)
}

func (r *SQLiteUserRepository) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.getOne(ctx, "username", username)
}

func (r *SQLiteUserRepository) GetCredentialsByEmail(ctx context.Context, email string) (domain.UserCredentials, error) {
	const query = `
		SELECT id, username, email, password_hash, created_at, updated_at
		FROM users
		WHERE email = ?
	`
	var (
		c                  domain.UserCredentials
		created, updated int64
	)
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&c.ID,
		&c.Username,
		&c.Email,
		&c.PasswordHash,
		&created,
		&updated,
	)
	if err != nil {
		return domain.UserCredentials{}, mapSQLiteError(err)
	}
	c.CreatedAt = fromMillis(created)
	c.UpdatedAt = fromMillis(updated)
	return c, nil
}

func (r *SQLiteUserRepository) List(ctx context.Context) ([]domain.User, error) {
	const query = `
		SELECT id, username, email, created_at, updated_at
		FROM users
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		u, err := scanSQLiteUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *SQLiteUserRepository) getOne(ctx context.Context, column, value string) (domain.User, error) {
	query := fmt.Sprintf(`
		SELECT id, username, email, created_at, updated_at
		FROM users
		WHERE %s = ?
	`, column)
	u, err := scanSQLiteUser(r.db.QueryRowContext(ctx, query, value))
	if err != nil {
		return domain.User{}, mapSQLiteError(err)
	}
	return u, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteUser(row rowScanner) (domain.User, error) {
	var (
		u                domain.User
		created, updated int64
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &created, &updated); err != nil {
		return domain.User{}, err
	}
	u.CreatedAt = fromMillis(created)
	u.UpdatedAt = fromMillis(updated)
	return u, nil
}

// SQLiteTaskRepository implementa TaskRepository sobre SQLite.
type SQLiteTaskRepository struct {
	db *sql.DB
}

func NewSQLiteTaskRepository(db *sql.DB) *SQLiteTaskRepository {
	return &SQLiteTaskRepository{db: db}
}

const sqliteTaskColumns = `id, title, description, status, user_id, created_at, updated_at`

func (r *SQLiteTaskRepository) Create(ctx context.Context, task domain.Task) error {
	const query = `
		INSERT INTO tasks (id, title, description, status, user_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		string(task.Status),
		task.UserID,
		toMillis(task.CreatedAt),
		toMillis(task.UpdatedAt),
	)
	return mapSQLiteError(err)
}

func (r *SQLiteTaskRepository) GetByID(ctx context.Context, id, ownerID string) (domain.Task, error) {
	query := `SELECT ` + sqliteTaskColumns + ` FROM tasks WHERE id = ? AND user_id = ?`
	task, err := scanSQLiteTask(r.db.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		return domain.Task{}, mapSQLiteError(err)
	}
	return task, nil
}

func (r *SQLiteTaskRepository) List(ctx context.Context, ownerID string, filter domain.TaskFilter) ([]domain.Task, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + sqliteTaskColumns + ` FROM tasks WHERE user_id = ?`)
	args := []any{ownerID}

	// La busqueda se aplica en Go: lower() de sqlite solo pliega ASCII y el
	// resultado debe coincidir con el de los demas backends.
	if status := filter.StatusFilter(); status != "" {
		sb.WriteString(` AND status = ?`)
		args = append(args, status)
	}
	sb.WriteString(` ORDER BY created_at DESC, id ASC`)

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]domain.Task, 0)
	for rows.Next() {
		task, err := scanSQLiteTask(rows)
		if err != nil {
			return nil, err
		}
		if !task.Matches(filter.Search) {
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func (r *SQLiteTaskRepository) Update(ctx context.Context, id, ownerID string, patch domain.TaskPatch, updatedAt time.Time) (domain.Task, error) {
	query := `
		UPDATE tasks
		SET title = COALESCE(?, title),
		    description = COALESCE(?, description),
		    status = COALESCE(?, status),
		    updated_at = ?
		WHERE id = ? AND user_id = ?
		RETURNING ` + sqliteTaskColumns
	task, err := scanSQLiteTask(r.db.QueryRowContext(ctx, query,
		nullString(patch.Title),
		nullString(patch.Description),
		nullString(statusArg(patch.Status)),
		toMillis(updatedAt),
		id,
		ownerID,
	))
	if err != nil {
		return domain.Task{}, mapSQLiteError(err)
	}
	return task, nil
}

func (r *SQLiteTaskRepository) Delete(ctx context.Context, id, ownerID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND user_id = ?`, id, ownerID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *SQLiteTaskRepository) ToggleStatus(ctx context.Context, id, ownerID string, updatedAt time.Time) (domain.Task, error) {
	query := `
		UPDATE tasks
		SET status = CASE WHEN status = 'completed' THEN 'incomplete' ELSE 'completed' END,
		    updated_at = ?
		WHERE id = ? AND user_id = ?
		RETURNING ` + sqliteTaskColumns
	task, err := scanSQLiteTask(r.db.QueryRowContext(ctx, query, toMillis(updatedAt), id, ownerID))
	if err != nil {
		return domain.Task{}, mapSQLiteError(err)
	}
	return task, nil
}

func (r *SQLiteTaskRepository) CountByStatus(ctx context.Context, ownerID string) (int, int, error) {
	const query = `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0)
		FROM tasks
		WHERE user_id = ?
	`
	var total, completed int
	if err := r.db.QueryRowContext(ctx, query, ownerID).Scan(&total, &completed); err != nil {
		return 0, 0, err
	}
	return total, completed, nil
}

func scanSQLiteTask(row rowScanner) (domain.Task, error) {
	var (
		t                domain.Task
		status           string
		created, updated int64
	)
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &status, &t.UserID, &created, &updated); err != nil {
		return domain.Task{}, err
	}
	t.Status = domain.TaskStatus(status)
	t.CreatedAt = fromMillis(created)
	t.UpdatedAt = fromMillis(updated)
	return t, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
