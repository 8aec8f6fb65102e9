package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"todo-api/internal/config"
	"todo-api/internal/db"
	apihttp "todo-api/internal/http"
	"todo-api/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg)
	defer logger.Sync()

	stores, err := db.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("storage open", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer stores.Close()

	limiter := service.NewLoginRateLimiter(cfg.LoginWindow, cfg.LoginMaxAttempts)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed; using in-memory login limiter", zap.Error(err))
		} else {
			limiter = service.NewRedisLoginRateLimiter(redisClient, cfg.LoginWindow, cfg.LoginMaxAttempts)
		}
		cancel()
	}

	jwtSvc := service.NewJWTService(cfg.JWTSecret, cfg.JWTTTL, cfg.JWTIssuer)
	userSvc := service.NewUserService(logger, stores.Users, limiter, cfg.BcryptCost)
	taskSvc := service.NewTaskService(logger, stores.Tasks)

	demoEnabled := cfg.DemoEnabled
	if demoEnabled {
		if _, _, err := userSvc.EnsureDemoUser(ctx, service.DemoAccount{
			Username: cfg.DemoUsername,
			Email:    cfg.DemoEmail,
			Password: cfg.DemoPassword,
		}); err != nil {
			// Sin cuenta sembrada el endpoint demo queda apagado.
			logger.Warn("demo user seed failed; demo login disabled", zap.Error(err))
			demoEnabled = false
		}
	}

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	userHandler := apihttp.NewUserHandler(logger, userSvc, jwtSvc, apihttp.DemoConfig{
		Enabled: demoEnabled,
		Email:   cfg.DemoEmail,
	})
	taskHandler := apihttp.NewTaskHandler(logger, taskSvc)
	healthHandler := apihttp.NewHealthHandler(logger, stores)
	router := apihttp.NewRouter(logger, cfg.CORSOrigins, jwtSvc, userHandler, taskHandler, healthHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting server",
			zap.String("port", cfg.HTTPPort),
			zap.String("store", stores.Driver),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.IsDevelopment() {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
