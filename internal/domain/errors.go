package domain

import "errors"

// Categorias de error que la capa HTTP traduce a codigos de estado.
var (
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("authentication required")
	ErrNotFound        = errors.New("not found")
	ErrDuplicate       = errors.New("already exists")
)
