package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"todo-api/internal/domain"
	"todo-api/internal/repository"
)

// failingUserRepo simula un backend caido.
type failingUserRepo struct {
	repository.UserRepository
	err error
}

func (m *failingUserRepo) GetByEmail(_ context.Context, _ string) (domain.User, error) {
	return domain.User{}, m.err
}

func (m *failingUserRepo) GetCredentialsByEmail(_ context.Context, _ string) (domain.UserCredentials, error) {
	return domain.UserCredentials{}, m.err
}

// racingUserRepo oculta los usuarios existentes hasta el primer Create,
// como si otro request hubiera insertado entre el chequeo y el insert.
type racingUserRepo struct {
	*repository.MemoryUserRepository
	hidden bool
}

func (r *racingUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	if r.hidden {
		return domain.User{}, domain.ErrNotFound
	}
	return r.MemoryUserRepository.GetByEmail(ctx, email)
}

func (r *racingUserRepo) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	if r.hidden {
		return domain.User{}, domain.ErrNotFound
	}
	return r.MemoryUserRepository.GetByUsername(ctx, username)
}

func (r *racingUserRepo) Create(ctx context.Context, user domain.UserCredentials) error {
	r.hidden = false
	return r.MemoryUserRepository.Create(ctx, user)
}

type mockLimiter struct {
	allow bool
	keys  []string
}

func (m *mockLimiter) Allow(_ context.Context, key string) bool {
	m.keys = append(m.keys, key)
	return m.allow
}

func newTestUserService(t *testing.T) (*UserService, *repository.MemoryUserRepository) {
	t.Helper()
	repo := repository.NewMemoryUserRepository()
	svc := NewUserService(zap.NewNop(), repo, &mockLimiter{allow: true}, bcrypt.MinCost)
	return svc, repo
}

func TestUserServiceRegister_ThenAuthenticate(t *testing.T) {
	svc, repo := newTestUserService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Username: " alice ", Email: " Alice@Example.COM ", Password: "secret1"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if user.ID == "" {
		t.Fatalf("expected generated id")
	}
	if user.Username != "alice" || user.Email != "alice@example.com" {
		t.Fatalf("expected normalized identity, got %+v", user)
	}

	creds, err := repo.GetCredentialsByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("expected stored credentials, got %v", err)
	}
	if creds.PasswordHash == "" || creds.PasswordHash == "secret1" {
		t.Fatalf("expected hashed password, got %q", creds.PasswordHash)
	}

	logged, err := svc.Authenticate(ctx, "ALICE@example.com", "secret1")
	if err != nil {
		t.Fatalf("expected login success, got %v", err)
	}
	if logged.ID != user.ID {
		t.Fatalf("expected same user, got %s", logged.ID)
	}
}

func TestUserServiceRegister_Validation(t *testing.T) {
	svc, _ := newTestUserService(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		input RegisterInput
		want  error
	}{
		{"missing username", RegisterInput{Email: "a@example.com", Password: "secret1"}, ErrMissingFields},
		{"missing email", RegisterInput{Username: "a", Password: "secret1"}, ErrMissingFields},
		{"missing password", RegisterInput{Username: "a", Email: "a@example.com"}, ErrMissingFields},
		{"bad email", RegisterInput{Username: "a", Email: "not-an-email", Password: "secret1"}, ErrInvalidEmail},
		{"short password", RegisterInput{Username: "a", Email: "a@example.com", Password: "12345"}, ErrPasswordTooShort},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.input)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected validation category, got %v", err)
			}
		})
	}
}

func TestUserServiceRegister_Duplicates(t *testing.T) {
	svc, repo := newTestUserService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Username: "bob", Email: "bob@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("expected first register success, got %v", err)
	}

	_, err := svc.Register(ctx, RegisterInput{Username: "bobby", Email: "BOB@example.com", Password: "secret1"})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	_, err = svc.Register(ctx, RegisterInput{Username: "bob", Email: "other@example.com", Password: "secret1"})
	if !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
	if !errors.Is(err, domain.ErrDuplicate) {
		t.Fatalf("expected duplicate category, got %v", err)
	}

	users, _ := repo.List(ctx)
	if len(users) != 1 {
		t.Fatalf("expected a single account, got %d", len(users))
	}
}

func TestUserServiceAuthenticate_Failures(t *testing.T) {
	svc, _ := newTestUserService(t)
	ctx := context.Background()
	if _, err := svc.Register(ctx, RegisterInput{Username: "carol", Email: "carol@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	_, wrongPassword := svc.Authenticate(ctx, "carol@example.com", "nope123")
	_, unknownEmail := svc.Authenticate(ctx, "ghost@example.com", "secret1")
	if !errors.Is(wrongPassword, ErrInvalidCredentials) || !errors.Is(unknownEmail, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v and %v", wrongPassword, unknownEmail)
	}
	if wrongPassword.Error() != unknownEmail.Error() {
		t.Fatalf("expected indistinguishable errors, got %q vs %q", wrongPassword, unknownEmail)
	}

	if _, err := svc.Authenticate(ctx, "", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for empty input, got %v", err)
	}
}

func TestUserServiceAuthenticate_RateLimited(t *testing.T) {
	repo := repository.NewMemoryUserRepository()
	limiter := &mockLimiter{allow: false}
	svc := NewUserService(zap.NewNop(), repo, limiter, bcrypt.MinCost)

	_, err := svc.Authenticate(context.Background(), " User@Example.com", "secret1")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if len(limiter.keys) != 1 || limiter.keys[0] != "user@example.com" {
		t.Fatalf("expected normalized limiter key, got %+v", limiter.keys)
	}
}

func TestUserServiceAuthenticate_StoreFailure(t *testing.T) {
	boom := errors.New("connection refused")
	svc := NewUserService(zap.NewNop(), &failingUserRepo{err: boom}, &mockLimiter{allow: true}, bcrypt.MinCost)

	_, err := svc.Authenticate(context.Background(), "a@example.com", "secret1")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
	if errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("store failure must not look like bad credentials")
	}
}

func TestUserServiceProfile_NeverCarriesHash(t *testing.T) {
	svc, _ := newTestUserService(t)
	ctx := context.Background()
	user, err := svc.Register(ctx, RegisterInput{Username: "dave", Email: "dave@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	profile, err := svc.Profile(ctx, user.ID)
	if err != nil {
		t.Fatalf("expected profile, got %v", err)
	}
	raw, err := json.Marshal(profile)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(raw), "$2a$") || strings.Contains(strings.ToLower(string(raw)), "password") {
		t.Fatalf("expected no credential in profile json, got %s", raw)
	}

	if _, err := svc.Profile(ctx, "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserServiceEnsureDemoUser_Idempotent(t *testing.T) {
	svc, repo := newTestUserService(t)
	ctx := context.Background()
	demo := DemoAccount{Username: "demo", Email: "demo@example.com", Password: "demo123"}

	first, created, err := svc.EnsureDemoUser(ctx, demo)
	if err != nil || !created {
		t.Fatalf("expected demo created, got created=%v err=%v", created, err)
	}
	second, created, err := svc.EnsureDemoUser(ctx, demo)
	if err != nil || created {
		t.Fatalf("expected existing demo reused, got created=%v err=%v", created, err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same demo id, got %s and %s", first.ID, second.ID)
	}
	users, _ := repo.List(ctx)
	if len(users) != 1 {
		t.Fatalf("expected one demo account, got %d", len(users))
	}

	logged, err := svc.DemoLogin(ctx, "Demo@Example.com")
	if err != nil || logged.ID != first.ID {
		t.Fatalf("expected demo login, got %+v err=%v", logged, err)
	}
	if _, err := svc.Authenticate(ctx, "demo@example.com", "demo123"); err != nil {
		t.Fatalf("expected demo password to work, got %v", err)
	}
}

func TestUserServiceDemoLogin_Missing(t *testing.T) {
	svc, _ := newTestUserService(t)
	if _, err := svc.DemoLogin(context.Background(), "demo@example.com"); !errors.Is(err, ErrDemoUserNotFound) {
		t.Fatalf("expected ErrDemoUserNotFound, got %v", err)
	}
	if _, err := svc.DemoLogin(context.Background(), ""); !errors.Is(err, ErrDemoUserNotFound) {
		t.Fatalf("expected ErrDemoUserNotFound for blank email, got %v", err)
	}
}

func TestUserServiceGetByUsername(t *testing.T) {
	svc, _ := newTestUserService(t)
	ctx := context.Background()
	created, err := svc.Register(ctx, RegisterInput{Username: "frank", Email: "frank@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	got, err := svc.GetByUsername(ctx, "  frank ")
	if err != nil || got.ID != created.ID {
		t.Fatalf("expected frank, got %+v err=%v", got, err)
	}
	if _, err := svc.GetByUsername(ctx, "nobody"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserServiceDemoLogin_IgnoresSquattedUsername(t *testing.T) {
	svc, _ := newTestUserService(t)
	ctx := context.Background()
	if _, err := svc.Register(ctx, RegisterInput{Username: "demo", Email: "victim@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := svc.DemoLogin(ctx, "demo@example.com"); !errors.Is(err, ErrDemoUserNotFound) {
		t.Fatalf("expected a real user named demo to stay private, got %v", err)
	}
}

func TestUserServiceRegister_Timestamps(t *testing.T) {
	svc, _ := newTestUserService(t)
	fixed := time.Date(2024, 3, 1, 10, 0, 0, 123456789, time.UTC)
	svc.now = func() time.Time { return fixed }

	user, err := svc.Register(context.Background(), RegisterInput{Username: "erin", Email: "erin@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	want := fixed.Truncate(time.Millisecond)
	if !user.CreatedAt.Equal(want) || !user.UpdatedAt.Equal(want) {
		t.Fatalf("expected ms-truncated timestamps %v, got %v / %v", want, user.CreatedAt, user.UpdatedAt)
	}
}

func TestUserServiceRegister_RaceReportsCollidingField(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name     string
		input    RegisterInput
		expected error
	}{
		{"username", RegisterInput{Username: "alice", Email: "other@example.com", Password: "secret1"}, ErrUsernameTaken},
		{"email", RegisterInput{Username: "other", Email: "alice@example.com", Password: "secret1"}, ErrEmailTaken},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mem := repository.NewMemoryUserRepository()
			if err := mem.Create(ctx, domain.UserCredentials{
				User:         domain.User{ID: "u1", Username: "alice", Email: "alice@example.com"},
				PasswordHash: "x",
			}); err != nil {
				t.Fatalf("seed: %v", err)
			}
			repo := &racingUserRepo{MemoryUserRepository: mem, hidden: true}
			svc := NewUserService(zap.NewNop(), repo, &mockLimiter{allow: true}, bcrypt.MinCost)

			_, err := svc.Register(ctx, tc.input)
			if !errors.Is(err, tc.expected) {
				t.Fatalf("expected %v, got %v", tc.expected, err)
			}
			other := ErrEmailTaken
			if tc.expected == ErrEmailTaken {
				other = ErrUsernameTaken
			}
			if errors.Is(err, other) {
				t.Fatalf("expected only %v, got %v", tc.expected, err)
			}
		})
	}
}
