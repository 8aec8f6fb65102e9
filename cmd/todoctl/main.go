// Package main provides todoctl, the administrative CLI for the to-do API.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"todo-api/internal/config"
	"todo-api/internal/db"
	"todo-api/internal/service"
)

var (
	// timeout acota cada comando; lo fija el flag --timeout.
	timeout time.Duration

	cfg    *config.Config
	logger *zap.Logger
	stores *db.Stores
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "todoctl",
	Short: "Administrative tool for the to-do API storage",
	Long: `todoctl works directly against the storage backend configured by
STORE_DRIVER and its DSN variables, the same ones the API server reads.
A .env file in the working directory is loaded first when present.`,
	SilenceUsage:      true,
	PersistentPreRunE: openStores,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if stores != nil {
			stores.Close()
		}
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "deadline for the whole command")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(statsCmd)
}

// openStores carga configuracion y abre el backend antes de cada comando.
func openStores(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	var err error
	cfg, err = config.LoadToolConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err = zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	// migrate decide por si mismo si aplica migraciones.
	if cmd == migrateCmd {
		cfg.RunMigrations = true
	}

	// PersistentPostRun no corre si RunE falla; cerrar lo que haya quedado.
	if stores != nil {
		stores.Close()
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()
	stores, err = db.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}
	return nil
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}

func newUserService() *service.UserService {
	limiter := service.NewLoginRateLimiter(cfg.LoginWindow, cfg.LoginMaxAttempts)
	return service.NewUserService(logger, stores.Users, limiter, cfg.BcryptCost)
}
