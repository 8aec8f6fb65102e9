package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"todo-api/internal/domain"
)

// UserRepository define el contrato de persistencia para usuarios.
//
// Las lecturas devuelven domain.User (sin hash). GetCredentialsByEmail es la
// unica lectura que incluye el hash y solo la usa la verificacion de login.
type UserRepository interface {
	Create(ctx context.Context, user domain.UserCredentials) error
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByUsername(ctx context.Context, username string) (domain.User, error)
	GetCredentialsByEmail(ctx context.Context, email string) (domain.UserCredentials, error)
	List(ctx context.Context) ([]domain.User, error)
}

// PgUserRepository implementa UserRepository usando pgxpool.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

func (r *PgUserRepository) Create(ctx context.Context, user domain.UserCredentials) error {
	const query = `
		INSERT INTO users (id, username, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	)
	return mapPgError(err)
}

func (r *PgUserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	return r.getOne(ctx, "id", id)
}

func (r *PgUserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.getOne(ctx, "email", email)
}

func (r *PgUserRepository) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.getOne(ctx, "username", username)
}

func (r *PgUserRepository) GetCredentialsByEmail(ctx context.Context, email string) (domain.UserCredentials, error) {
	const query = `
		SELECT id, username, email, password_hash, created_at, updated_at
		FROM users
		WHERE email = $1
	`
	var c domain.UserCredentials
	err := r.pool.QueryRow(ctx, query, email).Scan(
		&c.ID,
		&c.Username,
		&c.Email,
		&c.PasswordHash,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return domain.UserCredentials{}, mapPgError(err)
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return c, nil
}

func (r *PgUserRepository) List(ctx context.Context) ([]domain.User, error) {
	const query = `
		SELECT id, username, email, created_at, updated_at
		FROM users
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// getOne consulta por una columna fija; column nunca viene del cliente.
func (r *PgUserRepository) getOne(ctx context.Context, column, value string) (domain.User, error) {
	query := fmt.Sprintf(`
		SELECT id, username, email, created_at, updated_at
		FROM users
		WHERE %s = $1
	`, column)
	u, err := scanUser(r.pool.QueryRow(ctx, query, value))
	if err != nil {
		return domain.User{}, mapPgError(err)
	}
	return u, nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return domain.User{}, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u, nil
}

const pgUniqueViolation = "23505"

// mapPgError traduce errores de pgx a las categorias del dominio.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", domain.ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}
