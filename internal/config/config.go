package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config содержит настройки приложения
type Config struct {
	Server    ServerConfig    `envPrefix:"SERVER_"`
	Database  DatabaseConfig  `envPrefix:"DB_"`
	Log       LogConfig       `envPrefix:"LOG_"`
	Hierarchy HierarchyConfig `envPrefix:"HIERARCHY_"`
	Metrics   MetricsConfig   `envPrefix:"METRICS_"`
}

// ServerConfig - настройки HTTP сервера
type ServerConfig struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout     time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
	AllowedOrigins  []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
}

// DatabaseConfig - настройки подключения к БД
type DatabaseConfig struct {
	Driver         string        `env:"DRIVER" envDefault:"postgres"`
	Host           string        `env:"HOST" envDefault:"localhost"`
	Port           string        `env:"PORT" envDefault:"5432"`
	User           string        `env:"USER" envDefault:"postgres"`
	Password       string        `env:"PASSWORD" envDefault:"postgres"`
	DBName         string        `env:"NAME" envDefault:"orgchart"`
	SSLMode        string        `env:"SSLMODE" envDefault:"disable"`
	SQLitePath     string        `env:"SQLITE_PATH" envDefault:"orgchart.db"`
	ConnectTimeout time.Duration `env:"CONNECT_TIMEOUT" envDefault:"30s"`
	TxRetries      uint64        `env:"TX_RETRIES" envDefault:"3"`
}

// LogConfig - настройки логирования
type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
}

// HierarchyConfig - параметры движка иерархии
type HierarchyConfig struct {
	// MaxDepth - предел обхода подчинённых
	MaxDepth int `env:"MAX_DEPTH" envDefault:"10"`
	// CapacityBuffer прибавляется к запрошенной вместимости подразделения
	// при сохранении. Значение 1 повторяет исторически сохранённое поведение.
	CapacityBuffer int `env:"CAPACITY_BUFFER" envDefault:"1"`
}

// MetricsConfig - настройки экспорта метрик Prometheus
type MetricsConfig struct {
	Enabled bool   `env:"ENABLED" envDefault:"true"`
	Path    string `env:"PATH" envDefault:"/metrics"`
}

// DSN возвращает строку подключения к PostgreSQL
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// Load загружает конфигурацию из переменных окружения.
// Существующие файлы envFiles подгружаются заранее и не перекрывают
// уже заданные переменные.
func Load(envFiles ...string) (*Config, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет согласованность настроек
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q, use %q or %q", c.Database.Driver, DriverPostgres, DriverSQLite)
	}
	if c.Hierarchy.MaxDepth < 1 {
		return fmt.Errorf("HIERARCHY_MAX_DEPTH must be positive, got %d", c.Hierarchy.MaxDepth)
	}
	if c.Hierarchy.CapacityBuffer < 0 {
		return fmt.Errorf("HIERARCHY_CAPACITY_BUFFER must be non-negative, got %d", c.Hierarchy.CapacityBuffer)
	}
	return nil
}

func loadEnvFiles(files []string) error {
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to stat %s: %w", f, err)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}
