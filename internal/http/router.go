package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"todo-api/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas bajo /api.
func NewRouter(
	logger *zap.Logger,
	corsOrigins []string,
	jwtSvc *service.JWTService,
	userH *UserHandler,
	taskH *TaskHandler,
	healthH *HealthHandler,
) *gin.Engine {
	r := gin.New()

	r.Use(
		zapLoggerMiddleware(logger),
		recoveryMiddleware(logger),
		cors.New(corsConfig(corsOrigins)),
		jsonContentTypeMiddleware(),
	)

	api := r.Group("/api")
	api.GET("/health", healthH.Health)

	auth := api.Group("/auth")
	auth.POST("/register", userH.Register)
	auth.POST("/login", userH.Login)
	auth.POST("/demo", userH.DemoLogin)
	auth.GET("/profile", JWTAuthMiddleware(jwtSvc), userH.Profile)

	tasks := api.Group("/tasks", JWTAuthMiddleware(jwtSvc))
	tasks.GET("", taskH.List)
	tasks.GET("/stats", taskH.Stats)
	tasks.POST("", taskH.Create)
	tasks.GET("/:id", taskH.Get)
	tasks.PUT("/:id", taskH.Update)
	tasks.DELETE("/:id", taskH.Delete)
	tasks.PATCH("/:id/toggle", taskH.Toggle)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
	})

	return r
}

const defaultCORSOrigin = "http://localhost:3000"

// corsConfig permite los origenes configurados; "*" abre a cualquiera.
// Requests sin header Origin no pasan por CORS.
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, o := range origins {
		o = strings.TrimSpace(o)
		switch o {
		case "":
		case "*":
			cfg.AllowAllOrigins = true
			cfg.AllowCredentials = false
			cfg.AllowOrigins = nil
			return cfg
		default:
			cfg.AllowOrigins = append(cfg.AllowOrigins, o)
		}
	}
	if len(cfg.AllowOrigins) == 0 {
		cfg.AllowOrigins = []string{defaultCORSOrigin}
	}
	return cfg
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// recoveryMiddleware convierte un panic en 500 con mensaje generico.
func recoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("panic recovered",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong!"})
	})
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
