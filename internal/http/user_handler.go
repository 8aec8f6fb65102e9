package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"todo-api/internal/domain"
	"todo-api/internal/service"
)

// DemoConfig controla POST /api/auth/demo. Email identifica la cuenta sembrada.
type DemoConfig struct {
	Enabled bool
	Email   string
}

// UserHandler mantiene dependencias para endpoints de autenticacion.
type UserHandler struct {
	logger   *zap.Logger
	userServ *service.UserService
	jwtServ  *service.JWTService
	demo     DemoConfig
}

// NewUserHandler crea una instancia de UserHandler con dependencias necesarias.
func NewUserHandler(logger *zap.Logger, userServ *service.UserService, jwtServ *service.JWTService, demo DemoConfig) *UserHandler {
	return &UserHandler{
		logger:   logger,
		userServ: userServ,
		jwtServ:  jwtServ,
		demo:     demo,
	}
}

// Register maneja POST /api/auth/register.
func (h *UserHandler) Register(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, h.logger, err)
		return
	}

	user, err := h.userServ.Register(c.Request.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(c, h.logger, err, "Failed to register user")
		return
	}

	h.respondWithSession(c, http.StatusCreated, user)
}

// Login maneja POST /api/auth/login.
func (h *UserHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, h.logger, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}

	user, err := h.userServ.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.logger, err, "Failed to login")
		return
	}

	h.respondWithSession(c, http.StatusOK, user)
}

// DemoLogin maneja POST /api/auth/demo. Deshabilitado responde igual que
// una cuenta demo inexistente.
func (h *UserHandler) DemoLogin(c *gin.Context) {
	if !h.demo.Enabled {
		writeError(c, h.logger, service.ErrDemoUserNotFound, "Failed to login as demo user")
		return
	}
	user, err := h.userServ.DemoLogin(c.Request.Context(), h.demo.Email)
	if err != nil {
		writeError(c, h.logger, err, "Failed to login as demo user")
		return
	}

	h.respondWithSession(c, http.StatusOK, user)
}

// Profile maneja GET /api/auth/profile.
func (h *UserHandler) Profile(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	user, err := h.userServ.Profile(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.logger, err, "Failed to get profile")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *UserHandler) respondWithSession(c *gin.Context, status int, user domain.User) {
	token, err := h.jwtServ.Issue(user.ID, user.Email)
	if err != nil {
		h.logger.Error("jwt issue failed", zap.Error(err), zap.String("user_id", user.ID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}
	c.JSON(status, gin.H{"user": user, "token": token})
}
