package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Drivers de almacenamiento soportados.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverSQLite   = "sqlite"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort        string        `env:"HTTP_PORT" envDefault:"8080"`
	AppEnv          string        `env:"APP_ENV" envDefault:"production"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	StoreDriver   string `env:"STORE_DRIVER" envDefault:"memory"`
	DatabaseURL   string `env:"DATABASE_URL"`
	MongoURI      string `env:"MONGO_URI"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"todo"`
	SQLitePath    string `env:"SQLITE_PATH" envDefault:"todo.db"`
	RunMigrations bool   `env:"RUN_MIGRATIONS" envDefault:"true"`

	JWTSecret  string        `env:"JWT_SECRET"`
	JWTTTL     time.Duration `env:"JWT_TTL" envDefault:"168h"`
	JWTIssuer  string        `env:"JWT_ISSUER" envDefault:"todo-api"`
	BcryptCost int           `env:"BCRYPT_COST" envDefault:"10"`

	DemoEnabled  bool   `env:"DEMO_ENABLED" envDefault:"true"`
	DemoUsername string `env:"DEMO_USERNAME" envDefault:"demo"`
	DemoEmail    string `env:"DEMO_EMAIL" envDefault:"demo@example.com"`
	DemoPassword string `env:"DEMO_PASSWORD" envDefault:"demo123"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	RedisAddr        string        `env:"REDIS_ADDR"`
	RedisPassword    string        `env:"REDIS_PASSWORD"`
	RedisDB          int           `env:"REDIS_DB" envDefault:"0"`
	LoginMaxAttempts int           `env:"LOGIN_MAX_ATTEMPTS" envDefault:"10"`
	LoginWindow      time.Duration `env:"LOGIN_WINDOW" envDefault:"15m"`
}

// LoadConfig carga la configuración del servidor HTTP desde variables de
// entorno. JWT_SECRET es obligatorio.
func LoadConfig() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	return cfg, nil
}

// LoadToolConfig carga la configuración para herramientas administrativas,
// que solo necesitan el almacenamiento.
func LoadToolConfig() (*Config, error) {
	return load()
}

func load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate revisa combinaciones que env no puede expresar con tags.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverMemory:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for store driver %q", c.StoreDriver)
		}
	case DriverMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required for store driver %q", c.StoreDriver)
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for store driver %q", c.StoreDriver)
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive, got %s", c.JWTTTL)
	}
	return nil
}

// IsDevelopment indica si el proceso corre en modo desarrollo.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.AppEnv, "development")
}
