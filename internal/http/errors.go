package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"todo-api/internal/domain"
	"todo-api/internal/service"
)

// errorMapping asocia un error de servicio con su respuesta. Se evalua en
// orden: primero los errores concretos, despues las categorias del dominio.
type errorMapping struct {
	err     error
	status  int
	message string
}

var errorMappings = []errorMapping{
	{service.ErrRateLimited, http.StatusTooManyRequests, "Too many login attempts, try again later"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
	{service.ErrMissingFields, http.StatusBadRequest, "Username, email, and password are required"},
	{service.ErrInvalidEmail, http.StatusBadRequest, "Invalid email"},
	{service.ErrPasswordTooShort, http.StatusBadRequest, "Password must be at least 6 characters"},
	{service.ErrEmailTaken, http.StatusBadRequest, "User already exists"},
	{service.ErrUsernameTaken, http.StatusBadRequest, "User already exists"},
	{service.ErrTitleRequired, http.StatusBadRequest, "Title is required"},
	{service.ErrInvalidStatus, http.StatusBadRequest, "Status must be completed or incomplete"},
	{service.ErrTaskNotFound, http.StatusNotFound, "Task not found"},
	{service.ErrDemoUserNotFound, http.StatusNotFound, "Demo user not found"},
	{service.ErrUserNotFound, http.StatusNotFound, "User not found"},

	{domain.ErrValidation, http.StatusBadRequest, "invalid request"},
	{domain.ErrDuplicate, http.StatusBadRequest, "already exists"},
	{domain.ErrUnauthenticated, http.StatusUnauthorized, "Not authenticated"},
	{domain.ErrNotFound, http.StatusNotFound, "Not found"},
}

// statusFor devuelve el codigo y mensaje publico; ok es false para errores
// internos.
func statusFor(err error) (int, string, bool) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.message, true
		}
	}
	return http.StatusInternalServerError, "", false
}

// writeError es el unico punto que traduce errores a respuestas HTTP. Los
// errores internos se loguean completos y el cliente solo ve fallback.
func writeError(c *gin.Context, logger *zap.Logger, err error, fallback string) {
	status, message, ok := statusFor(err)
	if !ok {
		logger.Error(fallback,
			zap.Error(err),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
		)
		c.JSON(status, gin.H{"error": fallback})
		return
	}
	c.JSON(status, gin.H{"error": message})
}

func writeBadRequest(c *gin.Context, logger *zap.Logger, err error) {
	logger.Warn("invalid request body", zap.Error(err), zap.String("path", c.FullPath()))
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
}
