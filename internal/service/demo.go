package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"todo-api/internal/domain"
)

// DemoAccount describe la cuenta de demostracion que se siembra al arrancar.
type DemoAccount struct {
	Username string
	Email    string
	Password string
}

// ErrDemoUserNotFound indica que la cuenta demo no fue sembrada.
var ErrDemoUserNotFound = fmt.Errorf("demo user %w", domain.ErrNotFound)

// EnsureDemoUser crea la cuenta demo si no existe. Es idempotente: busca por
// email antes de insertar y trata un duplicado concurrente como exito.
func (s *UserService) EnsureDemoUser(ctx context.Context, demo DemoAccount) (domain.User, bool, error) {
	existing, err := s.users.GetByEmail(ctx, normalizeEmail(demo.Email))
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, false, fmt.Errorf("lookup demo user: %w", err)
	}

	user, err := s.Register(ctx, RegisterInput{
		Username: demo.Username,
		Email:    demo.Email,
		Password: demo.Password,
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			existing, getErr := s.users.GetByEmail(ctx, normalizeEmail(demo.Email))
			if getErr == nil {
				return existing, false, nil
			}
		}
		return domain.User{}, false, fmt.Errorf("create demo user: %w", err)
	}
	s.logger.Info("demo user created", zap.String("user_id", user.ID), zap.String("email", user.Email))
	return user, true, nil
}

// DemoLogin devuelve la cuenta demo sin pedir contraseña. Se resuelve por el
// email sembrado: el username es publico y cualquiera puede registrarlo.
func (s *UserService) DemoLogin(ctx context.Context, demoEmail string) (domain.User, error) {
	if normalizeEmail(demoEmail) == "" {
		return domain.User{}, ErrDemoUserNotFound
	}
	user, err := s.GetByEmail(ctx, demoEmail)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return domain.User{}, ErrDemoUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}
