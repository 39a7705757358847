package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"trivia-api"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	LogLevel                string        `env:"LOG_LEVEL" envDefault:"info"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Postgres Postgres
	Redis    Redis
	Runtime  Runtime
	CORS     CORS
}

// Postgres captures connection info for the SQL database.
type Postgres struct {
	Host     string `env:"PG_HOST,notEmpty"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER,notEmpty"`
	Password string `env:"PG_PASSWORD,notEmpty"`
	Database string `env:"PG_DATABASE,notEmpty"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
	MaxConns int    `env:"PG_MAX_CONNS" envDefault:"10"`
	// AutoMigrate applies pending migrations during startup.
	AutoMigrate bool `env:"PG_AUTO_MIGRATE" envDefault:"false"`
}

// ConnString renders a libpq keyword/value connection string for a single
// connection. It carries no pool_* keys, which Postgres would reject as
// startup parameters.
func (p Postgres) ConnString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}

// DSN is ConnString plus the pgxpool sizing keys.
func (p Postgres) DSN() string {
	return fmt.Sprintf("%s pool_max_conns=%d", p.ConnString(), p.MaxConns)
}

// Redis holds the category cache and event channel configuration.
type Redis struct {
	Addr        string        `env:"REDIS_ADDR,notEmpty"`
	DB          int           `env:"REDIS_DB" envDefault:"0"`
	PoolSize    int           `env:"REDIS_POOL_SIZE" envDefault:"20"`
	CategoryTTL time.Duration `env:"REDIS_CATEGORY_TTL" envDefault:"10m"`
	// EventsChannel carries question events between API instances.
	EventsChannel string `env:"REDIS_EVENTS_CHANNEL" envDefault:"trivia:question-events"`
}

// Runtime bounds store round-trips.
type Runtime struct {
	QueryTimeout time.Duration `env:"QUERY_TIMEOUT" envDefault:"5s"`
}

// CORS holds Cross-Origin Resource Sharing configuration.
type CORS struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	AllowedMethods []string `env:"CORS_ALLOWED_METHODS" envSeparator:"," envDefault:"GET,PUT,POST,DELETE,OPTIONS"`
	AllowedHeaders []string `env:"CORS_ALLOWED_HEADERS" envSeparator:"," envDefault:"Content-Type,Authorization,true"`
	MaxAge         int      `env:"CORS_MAX_AGE" envDefault:"3600"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
