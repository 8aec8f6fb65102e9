package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger reporta si el backend de almacenamiento responde.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler expone el estado del servicio y de la base de datos.
type HealthHandler struct {
	logger  *zap.Logger
	db      Pinger
	timeout time.Duration
	now     func() time.Time
}

func NewHealthHandler(logger *zap.Logger, db Pinger) *HealthHandler {
	return &HealthHandler{
		logger:  logger,
		db:      db,
		timeout: 2 * time.Second,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// Health maneja GET /api/health. Siempre responde 200; el estado de la base
// va en el cuerpo.
func (h *HealthHandler) Health(c *gin.Context) {
	database := "Connected"
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			h.logger.Warn("health ping failed", zap.Error(err))
			database = "Disconnected"
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"timestamp": h.now().Format(isoMillis),
		"service":   "Todo API",
		"database":  database,
	})
}
