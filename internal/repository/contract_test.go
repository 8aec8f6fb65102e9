package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todo-api/internal/domain"
)

var baseTime = time.Date(2023, 10, 1, 12, 0, 0, 0, time.UTC)

func newCredentials(username, email string, at time.Time) domain.UserCredentials {
	return domain.UserCredentials{
		User: domain.User{
			ID:        uuid.NewString(),
			Username:  username,
			Email:     email,
			CreatedAt: at,
			UpdatedAt: at,
		},
		PasswordHash: "$2a$10$hash-for-" + username,
	}
}

func newTask(ownerID, title string, status domain.TaskStatus, at time.Time) domain.Task {
	return domain.Task{
		ID:        uuid.NewString(),
		Title:     title,
		Status:    status,
		UserID:    ownerID,
		CreatedAt: at,
		UpdatedAt: at,
	}
}

func titles(tasks []domain.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Title)
	}
	return out
}

// runUserRepositoryContract ejecuta el mismo comportamiento contra cualquier backend.
func runUserRepositoryContract(t *testing.T, newRepo func(t *testing.T) UserRepository) {
	ctx := context.Background()

	t.Run("create and read projections", func(t *testing.T) {
		repo := newRepo(t)
		alice := newCredentials("alice", "alice@example.com", baseTime)
		require.NoError(t, repo.Create(ctx, alice))

		byID, err := repo.GetByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, alice.Public(), byID)

		byEmail, err := repo.GetByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, byEmail.ID)

		byUsername, err := repo.GetByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, byUsername.ID)
	})

	t.Run("credentials path carries the hash", func(t *testing.T) {
		repo := newRepo(t)
		bob := newCredentials("bob", "bob@example.com", baseTime)
		require.NoError(t, repo.Create(ctx, bob))

		creds, err := repo.GetCredentialsByEmail(ctx, "bob@example.com")
		require.NoError(t, err)
		assert.Equal(t, bob.PasswordHash, creds.PasswordHash)
		assert.Equal(t, bob.ID, creds.ID)
	})

	t.Run("duplicates rejected", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Create(ctx, newCredentials("carol", "carol@example.com", baseTime)))

		err := repo.Create(ctx, newCredentials("carol2", "carol@example.com", baseTime))
		assert.ErrorIs(t, err, domain.ErrDuplicate)

		err = repo.Create(ctx, newCredentials("carol", "other@example.com", baseTime))
		assert.ErrorIs(t, err, domain.ErrDuplicate)

		users, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, users, 1)
	})

	t.Run("missing user is not found", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = repo.GetByEmail(ctx, "missing@example.com")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = repo.GetCredentialsByEmail(ctx, "missing@example.com")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("list in creation order", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Create(ctx, newCredentials("first", "first@example.com", baseTime)))
		require.NoError(t, repo.Create(ctx, newCredentials("second", "second@example.com", baseTime.Add(time.Minute))))

		users, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, "first", users[0].Username)
		assert.Equal(t, "second", users[1].Username)
	})

	t.Run("list ties ordered by id", func(t *testing.T) {
		repo := newRepo(t)
		late := newCredentials("late", "late@example.com", baseTime)
		late.ID = "user-b"
		early := newCredentials("early", "early@example.com", baseTime)
		early.ID = "user-a"
		require.NoError(t, repo.Create(ctx, late))
		require.NoError(t, repo.Create(ctx, early))

		users, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, "early", users[0].Username)
		assert.Equal(t, "late", users[1].Username)
	})
}

func runTaskRepositoryContract(t *testing.T, newRepo func(t *testing.T) TaskRepository) {
	ctx := context.Background()

	t.Run("create then get round trip", func(t *testing.T) {
		repo := newRepo(t)
		task := newTask("u1", "Learn Go", domain.StatusIncomplete, baseTime)
		task.Description = "tour of go"
		require.NoError(t, repo.Create(ctx, task))

		got, err := repo.GetByID(ctx, task.ID, "u1")
		require.NoError(t, err)
		assert.Equal(t, task, got)
	})

	t.Run("cross owner access is not found", func(t *testing.T) {
		repo := newRepo(t)
		task := newTask("owner-a", "Private", domain.StatusIncomplete, baseTime)
		require.NoError(t, repo.Create(ctx, task))

		_, err := repo.GetByID(ctx, task.ID, "owner-b")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		title := "hijacked"
		_, err = repo.Update(ctx, task.ID, "owner-b", domain.TaskPatch{Title: &title}, baseTime.Add(time.Hour))
		assert.ErrorIs(t, err, domain.ErrNotFound)

		_, err = repo.ToggleStatus(ctx, task.ID, "owner-b", baseTime.Add(time.Hour))
		assert.ErrorIs(t, err, domain.ErrNotFound)

		deleted, err := repo.Delete(ctx, task.ID, "owner-b")
		require.NoError(t, err)
		assert.False(t, deleted)

		got, err := repo.GetByID(ctx, task.ID, "owner-a")
		require.NoError(t, err)
		assert.Equal(t, "Private", got.Title)
		assert.Equal(t, domain.StatusIncomplete, got.Status)
	})

	t.Run("list newest first and scoped", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Create(ctx, newTask("u1", "old", domain.StatusIncomplete, baseTime)))
		require.NoError(t, repo.Create(ctx, newTask("u1", "new", domain.StatusIncomplete, baseTime.Add(time.Hour))))
		require.NoError(t, repo.Create(ctx, newTask("u2", "other", domain.StatusIncomplete, baseTime.Add(2*time.Hour))))

		tasks, err := repo.List(ctx, "u1", domain.TaskFilter{})
		require.NoError(t, err)
		assert.Equal(t, []string{"new", "old"}, titles(tasks))
	})

	t.Run("same createdAt ties ordered by id", func(t *testing.T) {
		repo := newRepo(t)
		second := newTask("u1", "second", domain.StatusIncomplete, baseTime)
		second.ID = "task-b"
		first := newTask("u1", "first", domain.StatusIncomplete, baseTime)
		first.ID = "task-a"
		newest := newTask("u1", "newest", domain.StatusIncomplete, baseTime.Add(time.Millisecond))
		require.NoError(t, repo.Create(ctx, second))
		require.NoError(t, repo.Create(ctx, first))
		require.NoError(t, repo.Create(ctx, newest))

		tasks, err := repo.List(ctx, "u1", domain.TaskFilter{})
		require.NoError(t, err)
		assert.Equal(t, []string{"newest", "first", "second"}, titles(tasks))
	})

	t.Run("search is case insensitive substring", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Create(ctx, newTask("u1", "Apple", domain.StatusIncomplete, baseTime)))
		require.NoError(t, repo.Create(ctx, newTask("u1", "Banana", domain.StatusIncomplete, baseTime.Add(time.Minute))))
		described := newTask("u1", "Chores", domain.StatusIncomplete, baseTime.Add(2*time.Minute))
		described.Description = "Clean the GARAGE"
		require.NoError(t, repo.Create(ctx, described))

		tasks, err := repo.List(ctx, "u1", domain.TaskFilter{Search: "an"})
		require.NoError(t, err)
		assert.Equal(t, []string{"Banana"}, titles(tasks))

		tasks, err = repo.List(ctx, "u1", domain.TaskFilter{Search: "garage"})
		require.NoError(t, err)
		assert.Equal(t, []string{"Chores"}, titles(tasks))

		tasks, err = repo.List(ctx, "u1", domain.TaskFilter{Search: "%"})
		require.NoError(t, err)
		assert.Empty(t, tasks)
	})

	t.Run("status filter and intersection", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Create(ctx, newTask("u1", "A", domain.StatusIncomplete, baseTime)))
		require.NoError(t, repo.Create(ctx, newTask("u1", "B", domain.StatusCompleted, baseTime.Add(time.Minute))))
		require.NoError(t, repo.Create(ctx, newTask("u1", "Bb", domain.StatusIncomplete, baseTime.Add(2*time.Minute))))

		tasks, err := repo.List(ctx, "u1", domain.TaskFilter{Status: "completed"})
		require.NoError(t, err)
		assert.Equal(t, []string{"B"}, titles(tasks))

		tasks, err = repo.List(ctx, "u1", domain.TaskFilter{Status: domain.StatusAll})
		require.NoError(t, err)
		assert.Len(t, tasks, 3)

		tasks, err = repo.List(ctx, "u1", domain.TaskFilter{Status: "incomplete", Search: "b"})
		require.NoError(t, err)
		assert.Equal(t, []string{"Bb"}, titles(tasks))

		tasks, err = repo.List(ctx, "u1", domain.TaskFilter{Status: "archived"})
		require.NoError(t, err)
		assert.Empty(t, tasks)
	})

	t.Run("partial update", func(t *testing.T) {
		repo := newRepo(t)
		task := newTask("u1", "Draft", domain.StatusIncomplete, baseTime)
		task.Description = "keep me"
		require.NoError(t, repo.Create(ctx, task))

		title := "Final"
		later := baseTime.Add(time.Hour)
		updated, err := repo.Update(ctx, task.ID, "u1", domain.TaskPatch{Title: &title}, later)
		require.NoError(t, err)
		assert.Equal(t, "Final", updated.Title)
		assert.Equal(t, "keep me", updated.Description)
		assert.Equal(t, domain.StatusIncomplete, updated.Status)
		assert.True(t, updated.UpdatedAt.Equal(later))
		assert.True(t, updated.CreatedAt.Equal(baseTime))

		_, err = repo.Update(ctx, "missing", "u1", domain.TaskPatch{Title: &title}, later)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("empty patch only refreshes updatedAt", func(t *testing.T) {
		repo := newRepo(t)
		task := newTask("u1", "Same", domain.StatusCompleted, baseTime)
		task.Description = "unchanged"
		require.NoError(t, repo.Create(ctx, task))

		later := baseTime.Add(time.Hour)
		updated, err := repo.Update(ctx, task.ID, "u1", domain.TaskPatch{}, later)
		require.NoError(t, err)
		assert.Equal(t, "Same", updated.Title)
		assert.Equal(t, "unchanged", updated.Description)
		assert.Equal(t, domain.StatusCompleted, updated.Status)
		assert.True(t, updated.UpdatedAt.Equal(later))

		_, err = repo.Update(ctx, "missing", "u1", domain.TaskPatch{}, later)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = repo.Update(ctx, task.ID, "u2", domain.TaskPatch{}, later)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("delete is true then false", func(t *testing.T) {
		repo := newRepo(t)
		task := newTask("u1", "Trash", domain.StatusIncomplete, baseTime)
		require.NoError(t, repo.Create(ctx, task))

		deleted, err := repo.Delete(ctx, task.ID, "u1")
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = repo.Delete(ctx, task.ID, "u1")
		require.NoError(t, err)
		assert.False(t, deleted)

		_, err = repo.GetByID(ctx, task.ID, "u1")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("toggle is its own inverse", func(t *testing.T) {
		repo := newRepo(t)
		task := newTask("u1", "Flip", domain.StatusIncomplete, baseTime)
		require.NoError(t, repo.Create(ctx, task))

		once, err := repo.ToggleStatus(ctx, task.ID, "u1", baseTime.Add(time.Minute))
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCompleted, once.Status)

		twice, err := repo.ToggleStatus(ctx, task.ID, "u1", baseTime.Add(2*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, domain.StatusIncomplete, twice.Status)
		assert.True(t, twice.UpdatedAt.Equal(baseTime.Add(2*time.Minute)))
	})

	t.Run("count by status", func(t *testing.T) {
		repo := newRepo(t)
		total, completed, err := repo.CountByStatus(ctx, "u1")
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Zero(t, completed)

		require.NoError(t, repo.Create(ctx, newTask("u1", "A", domain.StatusIncomplete, baseTime)))
		require.NoError(t, repo.Create(ctx, newTask("u1", "B", domain.StatusCompleted, baseTime.Add(time.Minute))))
		require.NoError(t, repo.Create(ctx, newTask("u2", "C", domain.StatusCompleted, baseTime.Add(time.Minute))))

		total, completed, err = repo.CountByStatus(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		assert.Equal(t, 1, completed)
	})
}
