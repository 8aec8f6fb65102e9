package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"todo-api/internal/domain"
	"todo-api/internal/repository"
)

// MinPasswordLength es el largo minimo aceptado al registrar.
const MinPasswordLength = 6

var (
	ErrUserNotFound       = fmt.Errorf("user %w", domain.ErrNotFound)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", domain.ErrUnauthenticated)
	ErrMissingFields      = fmt.Errorf("%w: username, email and password are required", domain.ErrValidation)
	ErrInvalidEmail       = fmt.Errorf("%w: invalid email", domain.ErrValidation)
	ErrPasswordTooShort   = fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, MinPasswordLength)
	ErrEmailTaken         = fmt.Errorf("email %w", domain.ErrDuplicate)
	ErrUsernameTaken      = fmt.Errorf("username %w", domain.ErrDuplicate)
	ErrRateLimited        = errors.New("rate limited")
)

// UserService coordina reglas de negocio para usuarios.
type UserService struct {
	logger     *zap.Logger
	users      repository.UserRepository
	limiter    LoginRateLimiter
	validate   *validator.Validate
	bcryptCost int
	now        func() time.Time
}

func NewUserService(logger *zap.Logger, users repository.UserRepository, limiter LoginRateLimiter, bcryptCost int) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limiter == nil {
		limiter = NewLoginRateLimiter(defaultLoginWindow, defaultLoginMax)
	}
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserService{
		logger:     logger,
		users:      users,
		limiter:    limiter,
		validate:   validator.New(),
		bcryptCost: bcryptCost,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// Register valida la entrada, verifica unicidad y persiste el usuario con la
// contraseña hasheada.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, errors.New("user service not configured")
	}

	username := strings.TrimSpace(input.Username)
	email := normalizeEmail(input.Email)
	if username == "" || email == "" || input.Password == "" {
		return domain.User{}, ErrMissingFields
	}
	if err := s.validate.Var(email, "email"); err != nil {
		return domain.User{}, ErrInvalidEmail
	}
	if len(input.Password) < MinPasswordLength {
		return domain.User{}, ErrPasswordTooShort
	}

	if err := s.ensureAvailable(ctx, username, email); err != nil {
		return domain.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().Truncate(time.Millisecond)
	creds := domain.UserCredentials{
		User: domain.User{
			ID:        uuid.NewString(),
			Username:  username,
			Email:     email,
			CreatedAt: now,
			UpdatedAt: now,
		},
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, creds); err != nil {
		// Carrera entre el chequeo previo y el insert: el indice unico decide
		// y una segunda consulta dice cual campo choco.
		if errors.Is(err, domain.ErrDuplicate) {
			if taken := s.ensureAvailable(ctx, username, email); taken != nil {
				return domain.User{}, fmt.Errorf("register: %w", taken)
			}
			return domain.User{}, fmt.Errorf("register: %w", err)
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return creds.Public(), nil
}

func (s *UserService) ensureAvailable(ctx context.Context, username, email string) error {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return ErrEmailTaken
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("lookup email: %w", err)
	}
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return ErrUsernameTaken
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("lookup username: %w", err)
	}
	return nil
}

// Authenticate verifica email y contraseña. Email desconocido y contraseña
// incorrecta devuelven el mismo error.
func (s *UserService) Authenticate(ctx context.Context, emailAddr, password string) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, errors.New("user service not configured")
	}

	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" || password == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	if !s.limiter.Allow(ctx, emailAddr) {
		s.logger.Warn("login rate limited", zap.String("email", emailAddr))
		return domain.User{}, ErrRateLimited
	}

	creds, err := s.users.GetCredentialsByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, fmt.Errorf("load credentials: %w", err)
	}
	if creds.PasswordHash == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}
	return creds.Public(), nil
}

// Profile devuelve la proyeccion publica del usuario autenticado.
func (s *UserService) Profile(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// GetByEmail busca por email normalizado.
func (s *UserService) GetByEmail(ctx context.Context, emailAddr string) (domain.User, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// GetByUsername busca por nombre de usuario exacto.
func (s *UserService) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// ListAll enumera usuarios para administracion.
func (s *UserService) ListAll(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
