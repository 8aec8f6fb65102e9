package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"todo-api/internal/domain"
)

// MemoryUserRepository guarda usuarios en memoria del proceso. Pensado para
// tests y para correr sin base de datos; cada instancia es independiente.
type MemoryUserRepository struct {
	mu   sync.RWMutex
	byID map[string]domain.UserCredentials
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID: make(map[string]domain.UserCredentials),
	}
}

func (r *MemoryUserRepository) Create(_ context.Context, user domain.UserCredentials) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.Email == user.Email {
			return fmt.Errorf("%w: email", domain.ErrDuplicate)
		}
		if existing.Username == user.Username {
			return fmt.Errorf("%w: username", domain.ErrDuplicate)
		}
	}
	if _, ok := r.byID[user.ID]; ok {
		return fmt.Errorf("%w: id", domain.ErrDuplicate)
	}
	r.byID[user.ID] = user
	return nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.byID[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return user.Public(), nil
}

func (r *MemoryUserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	creds, err := r.GetCredentialsByEmail(ctx, email)
	if err != nil {
		return domain.User{}, err
	}
	return creds.Public(), nil
}

func (r *MemoryUserRepository) GetByUsername(_ context.Context, username string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.byID {
		if user.Username == username {
			return user.Public(), nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (r *MemoryUserRepository) GetCredentialsByEmail(_ context.Context, email string) (domain.UserCredentials, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.byID {
		if user.Email == email {
			return user, nil
		}
	}
	return domain.UserCredentials{}, domain.ErrNotFound
}

func (r *MemoryUserRepository) List(_ context.Context) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]domain.User, 0, len(r.byID))
	for _, user := range r.byID {
		users = append(users, user.Public())
	}
	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.Before(users[j].CreatedAt)
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

// MemoryTaskRepository guarda tareas en memoria del proceso, en orden de
// insercion.
type MemoryTaskRepository struct {
	mu    sync.RWMutex
	tasks []domain.Task
}

func NewMemoryTaskRepository() *MemoryTaskRepository {
	return &MemoryTaskRepository{}
}

func (r *MemoryTaskRepository) Create(_ context.Context, task domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tasks {
		if t.ID == task.ID {
			return fmt.Errorf("%w: id", domain.ErrDuplicate)
		}
	}
	r.tasks = append(r.tasks, task)
	return nil
}

func (r *MemoryTaskRepository) GetByID(_ context.Context, id, ownerID string) (domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx := r.indexOf(id, ownerID)
	if idx < 0 {
		return domain.Task{}, domain.ErrNotFound
	}
	return r.tasks[idx], nil
}

func (r *MemoryTaskRepository) List(_ context.Context, ownerID string, filter domain.TaskFilter) ([]domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Task, 0)
	for _, t := range r.tasks {
		if t.UserID == ownerID && filter.Accepts(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryTaskRepository) Update(_ context.Context, id, ownerID string, patch domain.TaskPatch, updatedAt time.Time) (domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.indexOf(id, ownerID)
	if idx < 0 {
		return domain.Task{}, domain.ErrNotFound
	}
	patch.Apply(&r.tasks[idx])
	r.tasks[idx].UpdatedAt = updatedAt
	return r.tasks[idx], nil
}

func (r *MemoryTaskRepository) Delete(_ context.Context, id, ownerID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.indexOf(id, ownerID)
	if idx < 0 {
		return false, nil
	}
	r.tasks = append(r.tasks[:idx], r.tasks[idx+1:]...)
	return true, nil
}

func (r *MemoryTaskRepository) ToggleStatus(_ context.Context, id, ownerID string, updatedAt time.Time) (domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.indexOf(id, ownerID)
	if idx < 0 {
		return domain.Task{}, domain.ErrNotFound
	}
	r.tasks[idx].Status = r.tasks[idx].Status.Toggle()
	r.tasks[idx].UpdatedAt = updatedAt
	return r.tasks[idx], nil
}

func (r *MemoryTaskRepository) CountByStatus(_ context.Context, ownerID string) (int, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var total, completed int
	for _, t := range r.tasks {
		if t.UserID != ownerID {
			continue
		}
		total++
		if t.Status == domain.StatusCompleted {
			completed++
		}
	}
	return total, completed, nil
}

// indexOf requiere el lock tomado.
func (r *MemoryTaskRepository) indexOf(id, ownerID string) int {
	for i, t := range r.tasks {
		if t.ID == id && t.UserID == ownerID {
			return i
		}
	}
	return -1
}
